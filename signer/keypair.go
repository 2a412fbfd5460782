package signer

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/vqp-project/responder/core"
	"github.com/vqp-project/responder/goodkey"
)

// defaultKeyID is the registry entry lazily created on first use when
// no explicit key has been registered under this name.
const defaultKeyID = "default"

// minRSAKeyBits is the modulus size generateKeyEntry requests from
// rsa.GenerateKey; Registry.policy.GoodKey re-checks it (and every
// other key this registry mints) against the same floor goodkey
// enforces on imported keys, so a future lowering of one can't
// silently diverge from the other.
const minRSAKeyBits = 2048

// keyEntry holds everything a Registry needs to sign and describe one
// registered key, independent of which algorithm family it belongs to.
type keyEntry struct {
	algorithm core.SignatureAlgorithm
	publicHex string

	ed25519Priv ed25519.PrivateKey
	rsaPriv     *rsa.PrivateKey
	secp256k1   *secp256k1KeyPair

	// hsmSigner, when non-nil, holds an RSA-PSS key backed by a
	// PKCS#11 token rather than an in-process rsaPriv.
	hsmSigner crypto.Signer
}

// Registry holds named signing keys, generating a default Ed25519 key
// on first reference if none has been registered under that id.
type Registry struct {
	mu     sync.Mutex
	keys   map[string]*keyEntry
	policy *goodkey.Policy
}

// NewRegistry returns an empty Registry with no weak-key blocklist
// loaded; every key it mints still clears goodkey's minimum strength
// floor per algorithm.
func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]*keyEntry), policy: goodkey.NewPolicy()}
}

// UseWeakKeyDir loads a weak-key fingerprint blocklist from dir and
// makes every subsequently generated key reject a match, in addition
// to the strength floor NewRegistry already enforces.
func (r *Registry) UseWeakKeyDir(dir string) error {
	policy, err := goodkey.NewPolicyWithWeakKeyDir(dir)
	if err != nil {
		return fmt.Errorf("signer: loading weak key directory %q: %w", dir, err)
	}
	r.mu.Lock()
	r.policy = policy
	r.mu.Unlock()
	return nil
}

// GenerateKeyPair creates and registers a new key of the given
// algorithm under keyID, replacing any existing entry with that id.
func (r *Registry) GenerateKeyPair(keyID string, algorithm core.SignatureAlgorithm) error {
	r.mu.Lock()
	policy := r.policy
	r.mu.Unlock()

	entry, err := generateKeyEntry(algorithm, policy)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.keys[keyID] = entry
	r.mu.Unlock()
	return nil
}

func generateKeyEntry(algorithm core.SignatureAlgorithm, policy *goodkey.Policy) (*keyEntry, error) {
	switch algorithm {
	case core.AlgorithmEd25519, "":
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("signer: generating ed25519 key: %w", err)
		}
		if err := policy.GoodKey(pub); err != nil {
			return nil, fmt.Errorf("signer: generated ed25519 key rejected: %w", err)
		}
		return &keyEntry{
			algorithm:   core.AlgorithmEd25519,
			publicHex:   hex.EncodeToString(pub),
			ed25519Priv: priv,
		}, nil

	case core.AlgorithmSecp256k1:
		// goodkey has no secp256k1 case; curve validity is enforced by
		// generateSecp256k1 itself (it rejects a scalar outside [1,N)).
		kp, err := generateSecp256k1()
		if err != nil {
			return nil, err
		}
		return &keyEntry{
			algorithm: core.AlgorithmSecp256k1,
			publicHex: hex.EncodeToString(encodeSecp256k1PublicKey(kp.pub)),
			secp256k1: kp,
		}, nil

	case core.AlgorithmRSAPSS:
		priv, err := rsa.GenerateKey(rand.Reader, minRSAKeyBits)
		if err != nil {
			return nil, fmt.Errorf("signer: generating RSA key: %w", err)
		}
		if err := policy.GoodKey(&priv.PublicKey); err != nil {
			return nil, fmt.Errorf("signer: generated RSA key rejected: %w", err)
		}
		pubBytes, err := encodeRSAPublicKey(&priv.PublicKey)
		if err != nil {
			return nil, err
		}
		return &keyEntry{
			algorithm: core.AlgorithmRSAPSS,
			publicHex: hex.EncodeToString(pubBytes),
			rsaPriv:   priv,
		}, nil

	default:
		return nil, fmt.Errorf("signer: unsupported signature algorithm %q", algorithm)
	}
}

// get returns the entry for keyID, lazily generating the default
// Ed25519 key if keyID is defaultKeyID and nothing is registered yet.
func (r *Registry) get(keyID string) (*keyEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.keys[keyID]; ok {
		return entry, nil
	}
	if keyID != defaultKeyID {
		return nil, fmt.Errorf("signer: no key registered with id %q", keyID)
	}
	entry, err := generateKeyEntry(core.AlgorithmEd25519, r.policy)
	if err != nil {
		return nil, err
	}
	r.keys[keyID] = entry
	return entry, nil
}

// publicKeyHex returns the hex-encoded public key for keyID.
func (r *Registry) publicKeyHex(keyID string) (string, error) {
	entry, err := r.get(keyID)
	if err != nil {
		return "", err
	}
	return entry.publicHex, nil
}
