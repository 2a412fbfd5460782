package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/crypto/pbkdf2"

	berrors "github.com/vqp-project/responder/errors"
)

const (
	algorithmAESGCM  = "aes-256-gcm"
	ivLength         = 16
	keyLength        = 32
	minPBKDF2Rounds  = 100_000
	defaultPBKDF2Its = 200_000
	saltLength       = 16
)

// record is the on-disk shape of an encrypted vault.
type record struct {
	Version       int    `json:"version"`
	Algorithm     string `json:"algorithm"`
	KeyDerivation struct {
		Iterations int    `json:"iterations"`
		Salt       string `json:"salt"`
		KeyLength  int    `json:"keyLength"`
	} `json:"keyDerivation"`
	EncryptedData string    `json:"encryptedData"`
	IV            string    `json:"iv"`
	AuthTag       string    `json:"authTag"`
	Timestamp     time.Time `json:"timestamp"`
	Checksum      string    `json:"checksum"`
}

// deriveKey runs PBKDF2-HMAC-SHA-256 over passphrase and salt,
// producing a keyLength-byte key. iterations must be at least
// minPBKDF2Rounds; callers constructing a fresh record always pass
// defaultPBKDF2Its.
func deriveKey(passphrase string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, iterations, keyLength, sha256.New)
}

// encrypt produces a fresh record for plaintext under passphrase: a new
// random salt, a new random 16-byte IV, AES-256-GCM sealing, and a
// SHA-256 checksum of the plaintext for tamper evidence independent of
// the GCM tag.
func encrypt(plaintext []byte, passphrase string) (*record, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("vault: generating salt: %w", err)
	}
	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("vault: generating iv: %w", err)
	}

	key := deriveKey(passphrase, salt, defaultPBKDF2Its)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: constructing AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLength)
	if err != nil {
		return nil, fmt.Errorf("vault: constructing GCM: %w", err)
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext := sealed[:len(sealed)-gcm.Overhead()]
	tag := sealed[len(sealed)-gcm.Overhead():]

	sum := sha256.Sum256(plaintext)

	r := &record{
		Version:       1,
		Algorithm:     algorithmAESGCM,
		EncryptedData: base64.StdEncoding.EncodeToString(ciphertext),
		IV:            base64.StdEncoding.EncodeToString(iv),
		AuthTag:       base64.StdEncoding.EncodeToString(tag),
		Timestamp:     time.Now().UTC(),
		Checksum:      fmt.Sprintf("%x", sum),
	}
	r.KeyDerivation.Iterations = defaultPBKDF2Its
	r.KeyDerivation.Salt = base64.StdEncoding.EncodeToString(salt)
	r.KeyDerivation.KeyLength = keyLength
	return r, nil
}

// decrypt reverses encrypt, rejecting with a CRYPTO_ERROR-flavored
// error if either the GCM tag or the recorded plaintext checksum fails
// to validate, or if the record claims fewer than the minimum PBKDF2
// iterations.
func decrypt(r *record, passphrase string) ([]byte, error) {
	if r.KeyDerivation.Iterations < minPBKDF2Rounds {
		return nil, berrors.CryptoErrorf("vault: key derivation iteration count %d below minimum %d", r.KeyDerivation.Iterations, minPBKDF2Rounds)
	}
	salt, err := base64.StdEncoding.DecodeString(r.KeyDerivation.Salt)
	if err != nil {
		return nil, berrors.CryptoErrorf("vault: decoding salt: %s", err)
	}
	iv, err := base64.StdEncoding.DecodeString(r.IV)
	if err != nil {
		return nil, berrors.CryptoErrorf("vault: decoding iv: %s", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(r.EncryptedData)
	if err != nil {
		return nil, berrors.CryptoErrorf("vault: decoding ciphertext: %s", err)
	}
	tag, err := base64.StdEncoding.DecodeString(r.AuthTag)
	if err != nil {
		return nil, berrors.CryptoErrorf("vault: decoding auth tag: %s", err)
	}

	key := deriveKey(passphrase, salt, r.KeyDerivation.Iterations)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, berrors.CryptoErrorf("vault: constructing AES cipher: %s", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, len(iv))
	if err != nil {
		return nil, berrors.CryptoErrorf("vault: constructing GCM: %s", err)
	}

	sealed := append(append([]byte{}, ciphertext...), tag...)
	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, berrors.CryptoErrorf("vault: GCM authentication failed: %s", err)
	}

	sum := sha256.Sum256(plaintext)
	if fmt.Sprintf("%x", sum) != r.Checksum {
		return nil, berrors.CryptoErrorf("vault: plaintext checksum mismatch")
	}
	return plaintext, nil
}
