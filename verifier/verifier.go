// Package verifier is the dual of the engine: given a response (and
// optionally the query id it claims to answer), it checks the
// response's shape, its timing, and its cryptographic proof, and
// reports a tri-field verdict rather than faulting.
package verifier

import (
	"context"
	"time"

	"github.com/jmhodges/clock"

	"github.com/vqp-project/responder/core"
)

// maxFutureDrift and maxAge bound how far a response's timestamp may
// sit from the verifier's own clock before it is considered stale or
// impossible.
const (
	maxFutureDrift = 5 * time.Minute
	maxAge         = 24 * time.Hour
)

// Verifier checks responses produced by an engine.Engine (or any other
// conforming implementation) against the protocol's shape, timing, and
// signature rules.
type Verifier struct {
	crypto core.CryptoPort
	clk    clock.Clock
}

// New returns a Verifier. clk defaults to the real wall clock if nil.
func New(crypto core.CryptoPort, clk clock.Clock) *Verifier {
	if clk == nil {
		clk = clock.New()
	}
	return &Verifier{crypto: crypto, clk: clk}
}

// Verify recomputes the canonical payload per the codec and checks the
// response's proof against it. A malformed response (missing fields,
// an ill-formed proof variant) verifies false without an error; only a
// failure of the crypto port itself is surfaced as an error.
func (v *Verifier) Verify(ctx context.Context, resp *core.Response) (bool, error) {
	if resp == nil || !shapeIsWellFormed(resp) {
		return false, nil
	}
	payload, err := core.CanonicalPayloadForResponse(resp)
	if err != nil {
		return false, nil
	}
	return v.crypto.Verify(ctx, resp.Proof, payload, resp.Proof.PublicKey)
}

// VerifyMetadata checks the response's shape and timing, and, when
// queryID is non-empty, that it matches resp.QueryID.
func (v *Verifier) VerifyMetadata(resp *core.Response, queryID string) bool {
	if resp == nil || !shapeIsWellFormed(resp) {
		return false
	}
	now := v.clk.Now()
	if resp.Timestamp.After(now.Add(maxFutureDrift)) {
		return false
	}
	if resp.Timestamp.Before(now.Add(-maxAge)) {
		return false
	}
	if queryID != "" && queryID != resp.QueryID {
		return false
	}
	return true
}

// VerifyComplete runs both checks and reports the tri-field verdict
// core.VerificationVerdict{cryptographicProof, metadata, overall}.
func (v *Verifier) VerifyComplete(ctx context.Context, resp *core.Response, queryID string) (core.VerificationVerdict, error) {
	cryptographicProof, err := v.Verify(ctx, resp)
	if err != nil {
		return core.VerificationVerdict{}, err
	}
	metadata := v.VerifyMetadata(resp, queryID)
	return core.VerificationVerdict{
		CryptographicProof: cryptographicProof,
		Metadata:           metadata,
		Overall:            cryptographicProof && metadata,
	}, nil
}

// shapeIsWellFormed checks that every required top-level field is
// present and that the proof's variant (selected by Type) carries the
// fields that variant requires.
func shapeIsWellFormed(resp *core.Response) bool {
	if resp.QueryID == "" || resp.Version == "" || resp.Responder == "" || resp.Timestamp.IsZero() || resp.Result == nil {
		return false
	}
	switch resp.Proof.Type {
	case core.ProofTypeSignature:
		return resp.Proof.Algorithm != "" && resp.Proof.PublicKey != "" && resp.Proof.Signature != ""
	case core.ProofTypeZK:
		return resp.Proof.Circuit != "" && len(resp.Proof.ZKProof) > 0
	case core.ProofTypeMulti:
		return resp.Proof.Threshold > 0 && len(resp.Proof.Signatures) > 0
	default:
		return false
	}
}
