package engine

import (
	"context"
	"testing"
	"time"

	"github.com/jmhodges/clock"

	"github.com/vqp-project/responder/core"
	berrors "github.com/vqp-project/responder/errors"
	vqplog "github.com/vqp-project/responder/log"
	"github.com/vqp-project/responder/metrics"
	"github.com/vqp-project/responder/mocks"
	"github.com/vqp-project/responder/responsemode"
	"github.com/vqp-project/responder/signer"
	"github.com/vqp-project/responder/vocabulary"
)

// fakeEvaluator resolves a predicate expression to "field >= 18" with a
// fixed node count, standing in for the real predicate evaluator so
// these tests exercise the engine's orchestration rather than
// expression semantics already covered in package predicate.
type fakeEvaluator struct{}

func (fakeEvaluator) Evaluate(expr interface{}, vars map[string]interface{}) (interface{}, error) {
	field, _ := expr.(string)
	v, ok := vars[field]
	if !ok {
		return false, nil
	}
	n, _ := v.(int)
	return n >= 18, nil
}

func (fakeEvaluator) ExtractVariables(expr interface{}) ([]string, error) {
	field, _ := expr.(string)
	return []string{field}, nil
}

func (fakeEvaluator) IsValidExpression(expr interface{}) bool {
	_, ok := expr.(string)
	return ok
}

func (fakeEvaluator) CountNodes(expr interface{}) int { return 5 }

// dataPortFor builds a mocks.DataPort from a flat field->value map,
// since ProcessQuery in these tests always queries a single top-level
// field and FlatMapping's vault path for it is the field name itself.
func dataPortFor(values map[string]interface{}, denied ...string) *mocks.DataPort {
	d := mocks.NewDataPort()
	for k, v := range values {
		d.Set(k, v)
	}
	for _, k := range denied {
		d.Deny(k)
	}
	return d
}

func baseQuery(id string, expr interface{}) *core.Query {
	return &core.Query{
		ID:        id,
		Version:   "1.0.0",
		Timestamp: time.Now(),
		Requester: "did:example:requester",
		Predicate: core.QueryBody{Lang: core.QueryLanguage, Vocab: "vqp:identity:v1", Expr: expr},
	}
}

func newTestEngine(data core.DataPort, audit core.AuditPort, clk clock.Clock) *Engine {
	return New(
		clk,
		vqplog.Get(),
		metrics.NewNoopScope(),
		data,
		vocabulary.New(nil, nil),
		vocabulary.FlatMapping{},
		fakeEvaluator{},
		signer.New(),
		responsemode.New(nil, nil),
		audit,
		"did:example:responder",
		"default",
		0,
	)
}

func TestProcessQueryStrictModeSignsAndVerifies(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Now())
	data := dataPortFor(map[string]interface{}{"age": 21})
	audit := mocks.NewAuditPort()
	e := newTestEngine(data, audit, clk)

	query := baseQuery("11111111-1111-1111-1111-111111111111", "age")
	query.Timestamp = clk.Now()

	resp, err := e.ProcessQuery(context.Background(), query, nil)
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if resp.Result != true {
		t.Errorf("got result %v, want true", resp.Result)
	}
	if resp.Value != nil {
		t.Errorf("strict mode should not disclose value, got %v", resp.Value)
	}
	if !resp.Timestamp.After(query.Timestamp) {
		t.Errorf("response timestamp %s is not strictly after query timestamp %s", resp.Timestamp, query.Timestamp)
	}
	payload, err := core.CanonicalPayloadForResponse(resp)
	if err != nil {
		t.Fatalf("CanonicalPayloadForResponse: %v", err)
	}
	ok, err := e.crypto.Verify(context.Background(), resp.Proof, payload, resp.Proof.PublicKey)
	if err != nil || !ok {
		t.Errorf("expected response signature to verify, got ok=%v err=%v", ok, err)
	}
	entries := audit.Snapshot()
	if len(entries) != 2 || entries[0].Event != core.EventQueryReceived || entries[1].Event != core.EventQueryProcessed {
		t.Errorf("got audit entries %+v, want [received, processed]", entries)
	}
}

func TestProcessQueryInvalidQueryWritesOnlyErrorEntry(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Now())
	audit := mocks.NewAuditPort()
	e := newTestEngine(dataPortFor(nil), audit, clk)

	query := baseQuery("not-a-uuid", "age")
	query.Timestamp = clk.Now()

	_, err := e.ProcessQuery(context.Background(), query, nil)
	if !berrors.Is(err, berrors.InvalidQuery) {
		t.Fatalf("got %v, want INVALID_QUERY", err)
	}
	entries := audit.Snapshot()
	if len(entries) != 1 || entries[0].Event != core.EventErrorOccurred {
		t.Errorf("got audit entries %+v, want exactly one error_occurred entry", entries)
	}
}

func TestProcessQueryDeniedAccessNeverReadsVault(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Now())
	data := dataPortFor(map[string]interface{}{"age": 21}, "age")
	e := newTestEngine(data, mocks.NewAuditPort(), clk)

	query := baseQuery("22222222-2222-2222-2222-222222222222", "age")
	query.Timestamp = clk.Now()

	_, err := e.ProcessQuery(context.Background(), query, nil)
	if !berrors.Is(err, berrors.Unauthorized) {
		t.Fatalf("got %v, want UNAUTHORIZED", err)
	}
	if len(data.Reads) != 0 {
		t.Errorf("expected the vault never to be read, got reads %v", data.Reads)
	}
}

func TestProcessQueryUnknownVocabularyFaults(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Now())
	e := newTestEngine(dataPortFor(nil), mocks.NewAuditPort(), clk)

	query := baseQuery("33333333-3333-3333-3333-333333333333", "age")
	query.Predicate.Vocab = "vqp:unknown:v1"
	query.Timestamp = clk.Now()

	_, err := e.ProcessQuery(context.Background(), query, nil)
	if !berrors.Is(err, berrors.VocabularyNotFound) {
		t.Fatalf("got %v, want VOCABULARY_NOT_FOUND", err)
	}
}

func TestProcessQueryComplexityCapRejectsOversizedPredicate(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Now())
	e := newTestEngine(dataPortFor(map[string]interface{}{"age": 21}), mocks.NewAuditPort(), clk)
	// fakeEvaluator.CountNodes always reports 5 nodes; a cap below that
	// must reject the query before any data is touched.
	e.maxQueryComplexity = 4

	query := baseQuery("44444444-4444-4444-4444-444444444444", "age")
	query.Timestamp = clk.Now()

	_, err := e.ProcessQuery(context.Background(), query, nil)
	if !berrors.Is(err, berrors.InvalidQuery) {
		t.Fatalf("got %v, want INVALID_QUERY", err)
	}
}

func TestProcessQueryUndeclaredVariableResolvesFalseNotFault(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Now())
	audit := mocks.NewAuditPort()
	// "nonexistent" is not declared by vqp:identity:v1's schema; it must
	// still flow through to the evaluator as an undefined variable
	// rather than faulting at the vocabulary layer.
	e := newTestEngine(dataPortFor(nil), audit, clk)

	query := baseQuery("66666666-6666-6666-6666-666666666666", "nonexistent")
	query.Timestamp = clk.Now()

	resp, err := e.ProcessQuery(context.Background(), query, nil)
	if err != nil {
		t.Fatalf("ProcessQuery: %v, want no fault for an undeclared variable", err)
	}
	if resp.Result != false {
		t.Errorf("got result %v, want false", resp.Result)
	}
}

func TestProcessQueryCancelledContextDiscardsPartialState(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Now())
	audit := mocks.NewAuditPort()
	e := newTestEngine(dataPortFor(map[string]interface{}{"age": 21}), audit, clk)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	query := baseQuery("55555555-5555-5555-5555-555555555555", "age")
	query.Timestamp = clk.Now()

	_, err := e.ProcessQuery(ctx, query, nil)
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
	entries := audit.Snapshot()
	if len(entries) != 1 || entries[0].Event != core.EventQueryReceived {
		t.Errorf("got audit entries %+v, want only the query_received entry", entries)
	}
}
