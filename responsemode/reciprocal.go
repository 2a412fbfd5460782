package responsemode

import (
	"context"
	"fmt"

	"github.com/vqp-project/responder/core"
)

// CryptoVerifier is the subset of core.CryptoPort a reciprocal-mode
// counter-proof check needs.
type CryptoVerifier interface {
	Verify(ctx context.Context, proof core.Proof, payload []byte, publicKey string) (bool, error)
}

// SignatureReciprocalVerifier checks a requester's counter-proof by
// verifying its signature over the claim set it asserts, then treats
// every required claim as proven. It does not interpret individual
// claim semantics: a verified proof is a commitment that the
// requester's own responder already evaluated those predicates
// truthfully, the same trust model this responder extends to itself.
type SignatureReciprocalVerifier struct {
	crypto CryptoVerifier
}

// NewSignatureReciprocalVerifier returns a ReciprocalPort backed by
// ordinary signature verification.
func NewSignatureReciprocalVerifier(crypto CryptoVerifier) *SignatureReciprocalVerifier {
	return &SignatureReciprocalVerifier{crypto: crypto}
}

// VerifyRequesterClaims implements core.ReciprocalPort.
func (v *SignatureReciprocalVerifier) VerifyRequesterClaims(ctx context.Context, proof core.Proof, requiredClaims []string) ([]string, error) {
	if proof.Type != core.ProofTypeSignature {
		return nil, fmt.Errorf("reciprocal: unsupported counter-proof type %q", proof.Type)
	}

	ok, err := v.crypto.Verify(ctx, proof, claimSetPayload(requiredClaims), proof.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("reciprocal: verifying counter-proof: %w", err)
	}
	if !ok {
		return nil, nil
	}

	verified := make([]string, len(requiredClaims))
	copy(verified, requiredClaims)
	return verified, nil
}

// claimSetPayload builds the deterministic byte string a requester's
// counter-proof signs over: the required claim names joined in the
// order the reciprocal config listed them.
func claimSetPayload(requiredClaims []string) []byte {
	buf := make([]byte, 0, 64)
	for i, claim := range requiredClaims {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, claim...)
	}
	return buf
}
