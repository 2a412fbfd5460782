package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmhodges/clock"

	berrors "github.com/vqp-project/responder/errors"
)

// Store owns a Vault's persisted form on the local filesystem and the
// passphrase used to decrypt/encrypt it.
type Store struct {
	path          string
	passphrase    string
	autoMigrate   bool
	policy        Authorizer
	clk           clock.Clock
	vault         *Vault
}

// StoreOption configures a Store at construction.
type StoreOption func(*Store)

// WithAutoMigrate enables implicit at-rest-encryption migration: a
// plaintext file found on Load is immediately re-saved encrypted. Off
// by default — a responder operator opts in explicitly.
func WithAutoMigrate() StoreOption {
	return func(s *Store) { s.autoMigrate = true }
}

// WithPolicy attaches an access policy to the Vault this Store
// produces.
func WithPolicy(p Authorizer) StoreOption {
	return func(s *Store) { s.policy = p }
}

// WithClock overrides the wall clock the resulting Vault uses for
// policy rate-limit checks.
func WithClock(clk clock.Clock) StoreOption {
	return func(s *Store) { s.clk = clk }
}

// Open constructs a Store bound to path and passphrase without loading
// anything yet.
func Open(path, passphrase string, opts ...StoreOption) *Store {
	s := &Store{path: path, passphrase: passphrase}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the vault file at s.path. If it parses as an encrypted
// record, it is decrypted. Otherwise its contents are treated as a
// plaintext JSON mapping; if WithAutoMigrate was set, that plaintext is
// immediately re-saved encrypted under s.passphrase.
func (s *Store) Load() (*Vault, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("vault: reading %q: %w", s.path, err)
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
	} else {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("vault: %q is neither a valid encrypted record nor a plaintext mapping: %w", s.path, err)
		}
		if s.autoMigrate {
			s.vault = New(data, s.policy, s.clk)
			if err := s.Save(); err != nil {
				return nil, fmt.Errorf("vault: migrating plaintext vault to encrypted form: %w", err)
			}
			return s.vault, nil
		}
	}

	s.vault = New(data, s.policy, s.clk)
	return s.vault, nil
}

// Save encrypts the current plaintext under s.passphrase and writes it
// atomically: the record is serialized to a temp file in the same
// directory, then renamed over s.path, so a reader never observes a
// partially written file.
func (s *Store) Save() error {
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
	if err := writeAtomic(s.path, encoded); err != nil {
		return err
	}
	s.vault.cacheMu.Lock()
	s.vault.cache = make(map[string]cacheEntry)
	s.vault.cacheMu.Unlock()
	return nil
}

// Rotate re-encrypts the plaintext already held from Load under
// newPassphrase, re-deriving the key with a fresh salt, and re-saves. Callers
// observe either the fully old or fully new ciphertext, never a mix,
// because the rename in writeAtomic is the only externally visible
// state change.
func (s *Store) Rotate(newPassphrase string) error {
	if s.vault == nil {
		return fmt.Errorf("vault: Rotate called before Load")
	}
	s.passphrase = newPassphrase
	return s.Save()
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".vault-*.tmp")
	if err != nil {
		return fmt.Errorf("vault: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("vault: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("vault: renaming temp file into place: %w", err)
	}
	return nil
}
