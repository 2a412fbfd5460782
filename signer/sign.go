// Package signer implements the cryptographic layer: detached
// signatures over the canonical payload, a named key registry, and
// (optionally) zero-knowledge proof generation/verification.
package signer

import (
	"context"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"

	"github.com/vqp-project/responder/core"

	berrors "github.com/vqp-project/responder/errors"
)

// Signer implements core.CryptoPort. The zero value is not usable;
// construct with New.
type Signer struct {
	registry *Registry
	zk       *zkToolchain
}

// New returns a Signer with an empty key registry and no ZK toolchain
// configured unless an option such as WithZKToolchain wires one in.
func New(opts ...func(*Signer)) *Signer {
	s := &Signer{registry: NewRegistry()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the underlying key registry so callers (the query
// builder, operational tooling) can provision keys ahead of time.
func (s *Signer) Registry() *Registry { return s.registry }

// Sign implements core.CryptoPort.
func (s *Signer) Sign(ctx context.Context, payload []byte, keyID string) (core.Proof, error) {
	entry, err := s.registry.get(keyID)
	if err != nil {
		return core.Proof{}, berrors.CryptoErrorf("%s", err)
	}

	sigHex, err := signWithEntry(entry, payload)
	if err != nil {
		return core.Proof{}, berrors.CryptoErrorf("%s", err)
	}

	return core.Proof{
		Type:      core.ProofTypeSignature,
		Algorithm: entry.algorithm,
		PublicKey: entry.publicHex,
		Signature: sigHex,
	}, nil
}

// Verify implements core.CryptoPort.
func (s *Signer) Verify(ctx context.Context, proof core.Proof, payload []byte, publicKey string) (bool, error) {
	if proof.Type != core.ProofTypeSignature {
		return false, berrors.CryptoErrorf("signer: Verify called with proof type %q, want %q", proof.Type, core.ProofTypeSignature)
	}
	pubBytes, err := hex.DecodeString(publicKey)
	if err != nil {
		return false, berrors.CryptoErrorf("signer: decoding public key: %s", err)
	}
	sigBytes, err := hex.DecodeString(proof.Signature)
	if err != nil {
		return false, berrors.CryptoErrorf("signer: decoding signature: %s", err)
	}

	switch proof.Algorithm {
	case core.AlgorithmEd25519:
		if len(pubBytes) != ed25519.PublicKeySize {
			return false, nil
		}
		return ed25519.Verify(ed25519.PublicKey(pubBytes), payload, sigBytes), nil

	case core.AlgorithmSecp256k1:
		pub, err := decodeSecp256k1PublicKey(pubBytes)
		if err != nil {
			return false, nil
		}
		return secp256k1Verify(pub, payload, sigBytes), nil

	case core.AlgorithmRSAPSS:
		pub, err := x509.ParsePKCS1PublicKey(pubBytes)
		if err != nil {
			return false, nil
		}
		digest := sha256.Sum256(payload)
		err = rsa.VerifyPSS(pub, crypto.SHA256, digest[:], sigBytes, nil)
		return err == nil, nil

	default:
		return false, berrors.CryptoErrorf("signer: unsupported signature algorithm %q", proof.Algorithm)
	}
}

// ZKCapable implements core.CryptoPort.
func (s *Signer) ZKCapable() bool {
	return s.zk != nil
}

// GenerateZKProof implements core.CryptoPort.
func (s *Signer) GenerateZKProof(ctx context.Context, circuit string, inputs map[string]interface{}) (core.Proof, error) {
	if s.zk == nil {
		return core.Proof{}, berrors.CryptoErrorf("signer: no ZK toolchain configured")
	}
	return s.zk.generate(circuit, inputs)
}

// VerifyZKProof implements core.CryptoPort.
func (s *Signer) VerifyZKProof(ctx context.Context, proof core.Proof, publicInputs map[string]interface{}) (bool, error) {
	if s.zk == nil {
		return false, berrors.CryptoErrorf("signer: no ZK toolchain configured")
	}
	return s.zk.verify(proof, publicInputs)
}

func signWithEntry(entry *keyEntry, payload []byte) (string, error) {
	switch entry.algorithm {
	case core.AlgorithmEd25519:
		sig := ed25519.Sign(entry.ed25519Priv, payload)
		return hex.EncodeToString(sig), nil

	case core.AlgorithmSecp256k1:
		sig, err := secp256k1Sign(entry.secp256k1, payload)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(sig), nil

	case core.AlgorithmRSAPSS:
		digest := sha256.Sum256(payload)
		opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: crypto.SHA256}
		var sig []byte
		var err error
		if entry.hsmSigner != nil {
			sig, err = entry.hsmSigner.Sign(rand.Reader, digest[:], opts)
		} else {
			sig, err = rsa.SignPSS(rand.Reader, entry.rsaPriv, crypto.SHA256, digest[:], nil)
		}
		if err != nil {
			return "", fmt.Errorf("signer: RSA-PSS signing: %w", err)
		}
		return hex.EncodeToString(sig), nil

	default:
		return "", fmt.Errorf("signer: unsupported signature algorithm %q", entry.algorithm)
	}
}

func encodeRSAPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKCS1PublicKey(pub), nil
}
