// Package responsemode shapes an evaluated predicate result according
// to the query's requested disclosure mode: strict passthrough,
// consent-gated, reciprocal (requester must counter-prove), or
// obfuscated (range/noise/rounding).
package responsemode

import (
	"context"

	"github.com/vqp-project/responder/core"
	berrors "github.com/vqp-project/responder/errors"
)

// Answer is the subset of a Response the Shaper is responsible for
// filling in; the engine merges it onto the rest of the Response.
type Answer struct {
	Result             interface{}
	Value              interface{}
	ConsentProof       *core.ConsentProof
	MutualProof        *core.MutualProof
	ObfuscationApplied *core.Obfuscation
}

// Shaper dispatches on a query's ResponseMode. A nil ConsentPort or
// ReciprocalPort is only an error if a query actually requests that
// mode; strict and obfuscated queries never touch them.
type Shaper struct {
	consent    core.ConsentPort
	reciprocal core.ReciprocalPort
}

// New returns a Shaper. Either port may be nil if this responder never
// serves the corresponding mode.
func New(consent core.ConsentPort, reciprocal core.ReciprocalPort) *Shaper {
	return &Shaper{consent: consent, reciprocal: reciprocal}
}

// Shape produces the disclosure for one evaluated query. result is the
// predicate's boolean (or undefined-collapsed-to-false) outcome; value,
// when non-nil, is the raw field value the query additionally
// requested (vqp queries that ask "what is" rather than "is it true
// that").
func (s *Shaper) Shape(ctx context.Context, query *core.Query, result interface{}, value interface{}, requester string) (Answer, error) {
	mode := core.ModeStrict
	var cfg core.ResponseModeConfig
	if query.ResponseMode != nil {
		mode = query.ResponseMode.Type
		cfg = query.ResponseMode.Config
	}

	switch mode {
	case core.ModeStrict, "":
		return Answer{Result: result}, nil

	case core.ModeConsensual:
		return s.shapeConsensual(ctx, query, result, value, requester, cfg)

	case core.ModeReciprocal:
		return s.shapeReciprocal(ctx, result, value, cfg)

	case core.ModeObfuscated:
		return s.shapeObfuscated(result, value, cfg)

	default:
		return Answer{}, berrors.InvalidQueryError("responsemode: unknown response mode %q", mode)
	}
}

func (s *Shaper) shapeConsensual(ctx context.Context, query *core.Query, result interface{}, value interface{}, requester string, cfg core.ResponseModeConfig) (Answer, error) {
	if s.consent == nil {
		return Answer{}, berrors.ConfigurationErrorf("responsemode: consensual mode requested but no consent port configured")
	}
	granted, proof, err := s.consent.RequestConsent(ctx, core.ConsentRequest{
		Query:          query,
		Justification:  cfg.Justification,
		RequestedValue: value,
		Requester:      requester,
	})
	if err != nil {
		return Answer{}, berrors.EvaluationErrorf("responsemode: consent request: %s", err)
	}
	if !granted {
		return Answer{}, berrors.UnauthorizedError("responsemode: consent not granted for requester %q", requester)
	}
	return Answer{Result: result, Value: value, ConsentProof: proof}, nil
}

func (s *Shaper) shapeReciprocal(ctx context.Context, result interface{}, value interface{}, cfg core.ResponseModeConfig) (Answer, error) {
	if cfg.MutualVerification == nil {
		return Answer{}, berrors.InvalidQueryError("responsemode: reciprocal mode requires mutualVerification config")
	}
	if s.reciprocal == nil {
		return Answer{}, berrors.ConfigurationErrorf("responsemode: reciprocal mode requested but no reciprocal port configured")
	}
	mv := cfg.MutualVerification
	verified, err := s.reciprocal.VerifyRequesterClaims(ctx, mv.RequesterProof, mv.RequiredClaims)
	if err != nil {
		return Answer{}, berrors.CryptoErrorf("responsemode: verifying requester claims: %s", err)
	}
	if len(verified) < len(mv.RequiredClaims) {
		return Answer{}, berrors.UnauthorizedError("responsemode: requester did not satisfy all required claims")
	}
	return Answer{
		Result: result,
		Value:  value,
		MutualProof: &core.MutualProof{
			RequesterVerified: true,
			RequiredClaims:    mv.RequiredClaims,
			VerifiedClaims:    verified,
		},
	}, nil
}

func (s *Shaper) shapeObfuscated(result interface{}, value interface{}, cfg core.ResponseModeConfig) (Answer, error) {
	if cfg.Obfuscation == nil {
		return Answer{}, berrors.InvalidQueryError("responsemode: obfuscated mode requires an obfuscation config")
	}
	oc := cfg.Obfuscation

	target := value
	if target == nil {
		target = result
	}
	num, ok := toFloat64(target)
	if !ok {
		return Answer{}, berrors.EvaluationErrorf("responsemode: obfuscation method %q requires a numeric value, got %T", oc.Method, target)
	}

	switch oc.Method {
	case core.ObfuscationRange:
		bucket, width, err := applyRange(num, oc.Precision)
		if err != nil {
			return Answer{}, berrors.InvalidQueryError("responsemode: %s", err)
		}
		return Answer{
			Result:             result,
			Value:              bucket,
			ObfuscationApplied: &core.Obfuscation{Method: core.ObfuscationRange, Precision: width},
		}, nil

	case core.ObfuscationNoise:
		noised, err := applyNoise(num, oc.NoiseLevel)
		if err != nil {
			return Answer{}, berrors.InvalidQueryError("responsemode: %s", err)
		}
		return Answer{
			Result:             result,
			Value:              noised,
			ObfuscationApplied: &core.Obfuscation{Method: core.ObfuscationNoise, NoiseLevel: oc.NoiseLevel, PrivacyBudget: oc.PrivacyBudget},
		}, nil

	case core.ObfuscationRounding:
		rounded, err := applyRounding(num, oc.Precision)
		if err != nil {
			return Answer{}, berrors.InvalidQueryError("responsemode: %s", err)
		}
		return Answer{
			Result:             result,
			Value:              rounded,
			ObfuscationApplied: &core.Obfuscation{Method: core.ObfuscationRounding, Precision: oc.Precision},
		}, nil

	default:
		return Answer{}, berrors.InvalidQueryError("responsemode: unknown obfuscation method %q", oc.Method)
	}
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
