// Package goodkey decides whether a signer's public key meets the
// minimum strength policy before it is registered into a key registry.
package goodkey

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"
)

// minRSAModulusBits is the smallest RSA modulus size this policy
// accepts for a signing key.
const minRSAModulusBits = 2048

// Policy validates public keys before they are accepted into a key
// registry: minimum strength per algorithm family, and (optionally) a
// blocklist of known-weak fingerprints.
type Policy struct {
	weak *weakKeys
}

// NewPolicy returns a Policy with no weak-key blocklist loaded.
func NewPolicy() *Policy {
	return &Policy{}
}

// NewPolicyWithWeakKeyDir returns a Policy that additionally rejects
// any key whose fingerprint suffix appears in dir.
func NewPolicyWithWeakKeyDir(dir string) (*Policy, error) {
	wk, err := loadSuffixes(dir)
	if err != nil {
		return nil, err
	}
	return &Policy{weak: wk}, nil
}

// GoodKey reports whether pub is acceptable for use as a signing key.
func (p *Policy) GoodKey(pub interface{}) error {
	raw, err := fingerprintInput(pub)
	if err != nil {
		return err
	}
	if p.weak != nil && p.weak.Known(raw) {
		return fmt.Errorf("goodkey: key is on the weak key blocklist")
	}

	switch k := pub.(type) {
	case *rsa.PublicKey:
		if k.N.BitLen() < minRSAModulusBits {
			return fmt.Errorf("goodkey: RSA modulus too small: %d bits, want at least %d", k.N.BitLen(), minRSAModulusBits)
		}
	case *ecdsa.PublicKey:
		if k.Curve != elliptic.P256() && k.Curve.Params().BitSize < 256 {
			return fmt.Errorf("goodkey: ECDSA curve too weak: %d bits", k.Curve.Params().BitSize)
		}
	case ed25519.PublicKey:
		// ed25519 has a single fixed, acceptable strength.
	default:
		return fmt.Errorf("goodkey: unrecognized public key type %T", pub)
	}
	return nil
}

// fingerprintInput extracts the raw bytes a weak-key suffix is
// computed over.
func fingerprintInput(pub interface{}) ([]byte, error) {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return k.N.Bytes(), nil
	case *ecdsa.PublicKey:
		return elliptic.Marshal(k.Curve, k.X, k.Y), nil
	case ed25519.PublicKey:
		return []byte(k), nil
	default:
		return nil, fmt.Errorf("goodkey: unrecognized public key type %T", pub)
	}
}
