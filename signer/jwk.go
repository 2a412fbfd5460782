package signer

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"fmt"

	jose "gopkg.in/go-jose/go-jose.v2"

	"github.com/vqp-project/responder/core"
)

// PublicJWK returns the JOSE JWK encoding of the public half of keyID,
// for responders that publish their verification keys as a JWK set
// rather than requiring callers to decode the raw hex form.
func (r *Registry) PublicJWK(keyID string) ([]byte, error) {
	entry, err := r.get(keyID)
	if err != nil {
		return nil, err
	}

	rawPub, err := hex.DecodeString(entry.publicHex)
	if err != nil {
		return nil, fmt.Errorf("signer: decoding stored public key: %w", err)
	}

	jwk := jose.JSONWebKey{KeyID: keyID, Use: "sig"}

	switch entry.algorithm {
	case core.AlgorithmEd25519:
		jwk.Key = ed25519.PublicKey(rawPub)
		jwk.Algorithm = "EdDSA"

	case core.AlgorithmRSAPSS:
		pub, err := x509.ParsePKCS1PublicKey(rawPub)
		if err != nil {
			return nil, fmt.Errorf("signer: parsing RSA public key: %w", err)
		}
		jwk.Key = pub
		jwk.Algorithm = "PS256"

	case core.AlgorithmSecp256k1:
		// go-jose has no secp256k1 curve identifier (it follows the
		// JOSE registry, which only names P-256/P-384/P-521); publish
		// the raw point under a custom field instead of forcing it
		// through jose.JSONWebKey.
		return json.Marshal(struct {
			Kty string `json:"kty"`
			Crv string `json:"crv"`
			Kid string `json:"kid"`
			Pub string `json:"x_pub_uncompressed"`
		}{Kty: "EC", Crv: "secp256k1", Kid: keyID, Pub: entry.publicHex})

	default:
		return nil, fmt.Errorf("signer: no JWK encoding for algorithm %q", entry.algorithm)
	}

	return jwk.MarshalJSON()
}
