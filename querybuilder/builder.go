// Package querybuilder provides fluent construction of well-formed VQP
// queries: a Builder assembles the required fields (a fresh UUIDv4 id,
// protocol version, predicate language, timestamp) alongside the
// caller's vocabulary, predicate expression, and response mode, and
// validates the result against the same rules the engine enforces on
// the way in.
package querybuilder

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"

	"github.com/vqp-project/responder/core"
)

// protocolVersion is the query version this builder stamps onto every
// query it produces.
const protocolVersion = "1.0.0"

// Builder accumulates the fields of a core.Query. The zero value is not
// usable; construct with New.
type Builder struct {
	query *core.Query
}

// New starts a query on behalf of requester, generating a fresh
// UUIDv4 id and defaulting the predicate language to the only one
// this protocol version accepts.
func New(requester string) *Builder {
	return &Builder{
		query: &core.Query{
			ID:        uuid.NewString(),
			Version:   protocolVersion,
			Requester: requester,
			Predicate: core.QueryBody{Lang: core.QueryLanguage},
		},
	}
}

// Target names the entity the query concerns, when it differs from the
// requester.
func (b *Builder) Target(target string) *Builder {
	b.query.Target = target
	return b
}

// Vocabulary selects the vocabulary URI the predicate's variables are
// drawn from.
func (b *Builder) Vocabulary(uri string) *Builder {
	b.query.Predicate.Vocab = uri
	return b
}

// Predicate sets the jsonlogic expression tree to evaluate.
func (b *Builder) Predicate(expr interface{}) *Builder {
	b.query.Predicate.Expr = expr
	return b
}

// At overrides the query's timestamp; Build stamps clk.Now() if this is
// never called. Tests that need a fixed timestamp call this directly
// rather than reaching into the built query afterward.
func (b *Builder) At(timestamp time.Time) *Builder {
	b.query.Timestamp = timestamp
	return b
}

// Strict requests the default disclosure mode: only the boolean result,
// no response mode configuration at all. It is the zero value's
// behavior; calling it is only useful to undo an earlier mode call.
func (b *Builder) Strict() *Builder {
	b.query.ResponseMode = nil
	return b
}

// Consensual requests consent-gated disclosure of the underlying value.
func (b *Builder) Consensual(justification string) *Builder {
	b.query.ResponseMode = &core.ResponseMode{
		Type: core.ModeConsensual,
		Config: core.ResponseModeConfig{
			Justification:   justification,
			ConsentRequired: true,
		},
	}
	return b
}

// Reciprocal requests disclosure conditioned on the requester proving
// it satisfies requiredClaims via proof.
func (b *Builder) Reciprocal(proof core.Proof, requiredClaims []string) *Builder {
	b.query.ResponseMode = &core.ResponseMode{
		Type: core.ModeReciprocal,
		Config: core.ResponseModeConfig{
			MutualVerification: &core.MutualVerificationConfig{
				RequesterProof: proof,
				RequiredClaims: requiredClaims,
			},
		},
	}
	return b
}

// ObfuscatedRange requests a bucketed value of the given bucket width.
func (b *Builder) ObfuscatedRange(width float64) *Builder {
	return b.obfuscated(core.ObfuscationConfig{Method: core.ObfuscationRange, Precision: width})
}

// ObfuscatedNoise requests a Laplace-noised value whose noise scale is
// noiseLevel times the value's magnitude. privacyBudget is carried in
// the query and echoed back but does not affect the noise.
func (b *Builder) ObfuscatedNoise(noiseLevel, privacyBudget float64) *Builder {
	return b.obfuscated(core.ObfuscationConfig{Method: core.ObfuscationNoise, NoiseLevel: noiseLevel, PrivacyBudget: privacyBudget})
}

// ObfuscatedRounding requests a value rounded to the nearest multiple of
// precision.
func (b *Builder) ObfuscatedRounding(precision float64) *Builder {
	return b.obfuscated(core.ObfuscationConfig{Method: core.ObfuscationRounding, Precision: precision})
}

func (b *Builder) obfuscated(cfg core.ObfuscationConfig) *Builder {
	b.query.ResponseMode = &core.ResponseMode{
		Type:   core.ModeObfuscated,
		Config: core.ResponseModeConfig{Obfuscation: &cfg},
	}
	return b
}

// Build stamps a timestamp (if At was never called) and validates the
// assembled query against the same structural rules the engine applies
// on receipt, so a caller never hands the engine a query the engine
// would immediately reject.
func (b *Builder) Build(clk clock.Clock) (*core.Query, error) {
	if clk == nil {
		clk = clock.New()
	}
	if b.query.Timestamp.IsZero() {
		b.query.Timestamp = clk.Now()
	}
	if err := core.ValidateQuery(b.query, clk.Now()); err != nil {
		return nil, err
	}
	return b.query, nil
}
