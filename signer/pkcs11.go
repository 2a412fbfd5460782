package signer

import (
	"crypto"
	"crypto/rsa"
	"encoding/hex"
	"fmt"

	pkcs11key "github.com/letsencrypt/pkcs11key/v4"

	"github.com/vqp-project/responder/core"
)

// HSMConfig names the PKCS#11 token holding a responder's default
// signing key: module path, token label, PIN, and key object label.
type HSMConfig struct {
	Module string
	Token  string
	PIN    string
	Label  string
}

// RegisterHSMKey loads an RSA-PSS key from the PKCS#11 token described
// by cfg and registers it under keyID, for responders that keep their
// default signing key in a hardware module rather than in process
// memory. pub is the key's already-known public half (PKCS#11 modules
// typically publish it out of band at provisioning time).
func (r *Registry) RegisterHSMKey(keyID string, cfg HSMConfig, pub *rsa.PublicKey) error {
	signer, err := pkcs11key.New(cfg.Module, cfg.Token, cfg.PIN, cfg.Label, crypto.PublicKey(pub))
	if err != nil {
		return fmt.Errorf("signer: loading PKCS#11 key %q: %w", cfg.Label, err)
	}
	pubBytes, err := encodeRSAPublicKey(pub)
	if err != nil {
		return err
	}
	entry := &keyEntry{
		algorithm: core.AlgorithmRSAPSS,
		publicHex: hex.EncodeToString(pubBytes),
		hsmSigner: signer,
	}
	r.mu.Lock()
	r.keys[keyID] = entry
	r.mu.Unlock()
	return nil
}
