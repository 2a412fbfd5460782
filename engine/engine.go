// Package engine implements the Responder Engine: the single entry
// point that takes an incoming query through structural validation,
// vocabulary resolution, access control, data gathering, predicate
// evaluation, response-mode shaping, and signing, in that fixed order.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jmhodges/clock"

	"github.com/vqp-project/responder/core"
	berrors "github.com/vqp-project/responder/errors"
	"github.com/vqp-project/responder/log"
	"github.com/vqp-project/responder/metrics"
	"github.com/vqp-project/responder/responsemode"
)

// Engine orchestrates the Responder Engine pipeline. Every field must
// be populated by New; the zero value is not usable.
type Engine struct {
	data      core.DataPort
	vocab     core.VocabularyPort
	mapping   core.MappingStrategy
	evaluator core.EvaluatorPort
	crypto    core.CryptoPort
	shaper    *responsemode.Shaper
	audit     core.AuditPort

	stats metrics.Scope
	clk   clock.Clock
	log   log.Logger

	responderID        string
	defaultKeyID       string
	maxQueryComplexity int
}

// New constructs an Engine. maxQueryComplexity of 0 or less disables the
// predicate node-count cap.
func New(
	clk clock.Clock,
	logger log.Logger,
	stats metrics.Scope,
	data core.DataPort,
	vocab core.VocabularyPort,
	mapping core.MappingStrategy,
	evaluator core.EvaluatorPort,
	crypto core.CryptoPort,
	shaper *responsemode.Shaper,
	audit core.AuditPort,
	responderID string,
	defaultKeyID string,
	maxQueryComplexity int,
) *Engine {
	return &Engine{
		data:               data,
		vocab:              vocab,
		mapping:            mapping,
		evaluator:          evaluator,
		crypto:             crypto,
		shaper:             shaper,
		audit:              audit,
		stats:              stats,
		clk:                clk,
		log:                logger,
		responderID:        responderID,
		defaultKeyID:       defaultKeyID,
		maxQueryComplexity: maxQueryComplexity,
	}
}

// ProcessQuery is the sole externally visible operation of the
// Responder Engine; transports wrap this. providedVocabulary, when
// non-nil, short-circuits vocabulary resolution with the caller's own
// schema.
//
// Ordering follows the state machine fixed by the protocol: structural
// validation, vocabulary resolution, authorization, data gathering,
// evaluation, mode shaping, signing. A fault at any step aborts the
// remaining steps; nothing is ever partially signed.
func (e *Engine) ProcessQuery(ctx context.Context, query *core.Query, providedVocabulary *core.VocabularySchema) (*core.Response, error) {
	received := e.clk.Now()

	if err := core.ValidateQuery(query, received); err != nil {
		e.stats.Inc("QueriesInvalid", 1)
		e.recordAudit(ctx, core.AuditEntry{
			Timestamp: received,
			Event:     core.EventErrorOccurred,
			Error:     err.Error(),
		})
		return nil, err
	}

	queryID := query.ID
	requester := query.Requester

	e.recordAudit(ctx, core.AuditEntry{
		Timestamp: received,
		Event:     core.EventQueryReceived,
		QueryID:   queryID,
		Querier:   requester,
	})

	var finalErr error
	defer func() {
		if finalErr == nil {
			return
		}
		if ctx.Err() != nil {
			// Cancelled or past its deadline: the partial state is
			// discarded without a matching terminal audit entry, per the
			// query_received-without-query_processed allowance.
			return
		}
		e.stats.Inc("QueriesFailed", 1)
		e.recordAudit(ctx, core.AuditEntry{
			Timestamp: e.clk.Now(),
			Event:     core.EventErrorOccurred,
			QueryID:   queryID,
			Querier:   requester,
			Error:     finalErr.Error(),
		})
	}()

	if err := ctx.Err(); err != nil {
		finalErr = berrors.EvaluationErrorf("engine: query %s cancelled before processing began: %s", queryID, err)
		return nil, finalErr
	}

	// Vocabulary resolution precedes authorization, so an unknown
	// vocabulary is reported even to an unauthorized requester.
	schema := providedVocabulary
	if schema == nil {
		allowed, err := e.vocab.IsVocabularyAllowed(ctx, query.Predicate.Vocab)
		if err != nil {
			finalErr = berrors.VocabularyNotFoundError("engine: checking vocabulary %q: %s", query.Predicate.Vocab, err)
			return nil, finalErr
		}
		if !allowed {
			finalErr = berrors.VocabularyNotFoundError("engine: vocabulary %q is not permitted by this responder", query.Predicate.Vocab)
			return nil, finalErr
		}
		schema, err = e.vocab.ResolveVocabulary(ctx, query.Predicate.Vocab)
		if err != nil {
			finalErr = berrors.VocabularyNotFoundError("engine: resolving vocabulary %q: %s", query.Predicate.Vocab, err)
			return nil, finalErr
		}
	}

	if !e.evaluator.IsValidExpression(query.Predicate.Expr) {
		finalErr = berrors.InvalidQueryError("engine: predicate expression is malformed")
		return nil, finalErr
	}
	if e.maxQueryComplexity > 0 {
		if n := e.evaluator.CountNodes(query.Predicate.Expr); n > e.maxQueryComplexity {
			finalErr = berrors.InvalidQueryError("engine: predicate has %d nodes, exceeds the configured maximum of %d", n, e.maxQueryComplexity)
			return nil, finalErr
		}
	}

	variables, err := e.evaluator.ExtractVariables(query.Predicate.Expr)
	if err != nil {
		finalErr = berrors.InvalidQueryError("engine: extracting predicate variables: %s", err)
		return nil, finalErr
	}
	// A variable absent from schema.Properties is not a fault: it's
	// simply undefined in vars below, and the evaluator resolves an
	// undefined variable to false rather than erroring.

	if err := ctx.Err(); err != nil {
		finalErr = berrors.EvaluationErrorf("engine: query %s cancelled before authorization: %s", queryID, err)
		return nil, finalErr
	}

	// Authorization precedes data gathering: a forbidden path must never
	// be read from the plaintext vault, let alone disclosed.
	paths := make(map[string][]string, len(variables))
	for _, field := range variables {
		path := e.mapping.ToVaultPath(field, query.Predicate.Vocab)
		paths[field] = path
		allowed, err := e.data.ValidateDataAccess(ctx, path, requester)
		if err != nil {
			finalErr = berrors.UnauthorizedError("engine: checking access to %q: %s", field, err)
			return nil, finalErr
		}
		if !allowed {
			finalErr = berrors.UnauthorizedError("engine: requester %q is not authorized for %q", requester, field)
			return nil, finalErr
		}
	}

	if err := ctx.Err(); err != nil {
		finalErr = berrors.EvaluationErrorf("engine: query %s cancelled before data gathering: %s", queryID, err)
		return nil, finalErr
	}

	// Data gathering tolerates individual missing paths; a missing path
	// becomes undefined in the evaluator's input rather than a fault.
	vars := make(map[string]interface{}, len(variables))
	for _, field := range variables {
		value, found, err := e.data.GetData(ctx, paths[field])
		if err != nil {
			finalErr = berrors.EvaluationErrorf("engine: reading %q: %s", field, err)
			return nil, finalErr
		}
		if found {
			vars[field] = value
		}
	}

	result, err := e.evaluator.Evaluate(query.Predicate.Expr, vars)
	if err != nil {
		finalErr = berrors.EvaluationErrorf("engine: evaluating predicate: %s", err)
		return nil, finalErr
	}

	// The only "actual underlying value" a mode shaper can disclose is
	// the value of a predicate that names exactly one variable; a
	// multi-variable predicate has no single field to hand back, so
	// consensual/reciprocal/obfuscated modes over it disclose nothing
	// beyond the boolean result.
	var disclosable interface{}
	if len(variables) == 1 {
		disclosable = vars[variables[0]]
	}

	if err := ctx.Err(); err != nil {
		finalErr = berrors.EvaluationErrorf("engine: query %s cancelled before mode shaping: %s", queryID, err)
		return nil, finalErr
	}

	answer, err := e.shaper.Shape(ctx, query, result, disclosable, requester)
	if err != nil {
		finalErr = err
		return nil, finalErr
	}

	// The response timestamp and responder identity are fixed
	// immediately before signing; the signature binds both. It must be
	// strictly later than the query's own timestamp.
	timestamp := e.clk.Now()
	if !timestamp.After(query.Timestamp) {
		timestamp = query.Timestamp.Add(time.Nanosecond)
	}

	hasValue := answer.Value != nil
	payload, err := core.CanonicalPayload(queryID, answer.Result, timestamp, e.responderID, answer.Value, hasValue)
	if err != nil {
		finalErr = berrors.EvaluationErrorf("engine: building canonical payload: %s", err)
		return nil, finalErr
	}

	proof, err := e.crypto.Sign(ctx, payload, e.defaultKeyID)
	if err != nil {
		// Whatever kind the crypto port surfaces internally, the one the
		// engine promises callers for a failed signing step is
		// SIGNATURE_FAILED; CRYPTO_ERROR is reserved for failures
		// encountered verifying someone else's proof (reciprocal mode).
		finalErr = berrors.SignatureFailedError("engine: signing response: %s", err)
		return nil, finalErr
	}

	response := &core.Response{
		QueryID:            queryID,
		Version:            query.Version,
		Timestamp:          timestamp,
		Responder:          e.responderID,
		Result:             answer.Result,
		Proof:              proof,
		Value:              answer.Value,
		ConsentProof:       answer.ConsentProof,
		MutualProof:        answer.MutualProof,
		ObfuscationApplied: answer.ObfuscationApplied,
	}

	e.stats.Inc("QueriesProcessed", 1)
	e.recordAudit(ctx, core.AuditEntry{
		Timestamp: timestamp,
		Event:     core.EventQueryProcessed,
		QueryID:   queryID,
		Querier:   requester,
		Result:    answer.Result,
	})
	return response, nil
}

// recordAudit hands a copy of entry to the audit port. A failure there
// is logged to the secondary channel but never overrides the fault (or
// success) the caller already has in hand.
func (e *Engine) recordAudit(ctx context.Context, entry core.AuditEntry) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Record(ctx, entry); err != nil {
		e.log.Err(fmt.Sprintf("engine: audit port failed to record %s for query %s: %s", entry.Event, entry.QueryID, err))
	}
}
