package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jmhodges/clock"

	berrors "github.com/vqp-project/responder/errors"
)

// S3Client is the subset of *s3.Client an S3Store needs, narrowed so
// tests can supply a fake.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store persists the vault's encrypted record as a single object in
// an S3 bucket, for responders deployed without a durable local disk.
type S3Store struct {
	client     S3Client
	bucket     string
	key        string
	passphrase string
	policy     Authorizer
	clk        clock.Clock
	vault      *Vault
}

// NewS3Store builds an S3Store. clk may be nil (defaults to the real
// clock).
func NewS3Store(client S3Client, bucket, key, passphrase string, policy Authorizer, clk clock.Clock) *S3Store {
	if clk == nil {
		clk = clock.New()
	}
	return &S3Store{client: client, bucket: bucket, key: key, passphrase: passphrase, policy: policy, clk: clk}
}

// Load fetches the object and decrypts it the same way Store.Load
// does, including implicit plaintext migration — S3-backed vaults
// always auto-migrate, since there is no local-disk caller to opt out
// on their behalf.
func (s *S3Store) Load(ctx context.Context) (*Vault, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("vault: fetching s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()
	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("vault: reading s3://%s/%s: %w", s.bucket, s.key, err)
	}

	var data map[string]interface{}
	var r record
	if err := json.Unmarshal(raw, &r); err == nil && r.Algorithm != "" {
		plaintext, err := decrypt(&r, s.passphrase)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(plaintext, &data); err != nil {
			return nil, berrors.CryptoErrorf("vault: decrypted plaintext is not valid JSON: %s", err)
		}
		s.vault = New(data, s.policy, s.clk)
		return s.vault, nil
	}

	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("vault: s3 object is neither a valid encrypted record nor a plaintext mapping: %w", err)
	}
	s.vault = New(data, s.policy, s.clk)
	if err := s.Save(ctx); err != nil {
		return nil, fmt.Errorf("vault: migrating plaintext vault to encrypted form: %w", err)
	}
	return s.vault, nil
}

// Save encrypts the current plaintext and overwrites the S3 object.
// S3's PUT is itself atomic from a reader's perspective (no partial
// object is ever visible), so no separate temp-object dance is needed.
func (s *S3Store) Save(ctx context.Context) error {
	if s.vault == nil {
		return fmt.Errorf("vault: Save called before Load")
	}
	plaintext, err := json.Marshal(s.vault.snapshot())
	if err != nil {
		return fmt.Errorf("vault: marshaling plaintext: %w", err)
	}
	r, err := encrypt(plaintext, s.passphrase)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("vault: marshaling encrypted record: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   bytes.NewReader(encoded),
	})
	if err != nil {
		return fmt.Errorf("vault: writing s3://%s/%s: %w", s.bucket, s.key, err)
	}
	s.vault.cacheMu.Lock()
	s.vault.cache = make(map[string]cacheEntry)
	s.vault.cacheMu.Unlock()
	return nil
}

// Rotate re-derives the key under newPassphrase and re-saves.
func (s *S3Store) Rotate(ctx context.Context, newPassphrase string) error {
	if s.vault == nil {
		return fmt.Errorf("vault: Rotate called before Load")
	}
	s.passphrase = newPassphrase
	return s.Save(ctx)
}
