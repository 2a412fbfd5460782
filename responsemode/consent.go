package responsemode

import (
	"context"
	"fmt"
	"sync"

	"github.com/beeker1121/goque"
	"github.com/google/uuid"
	"github.com/jmhodges/clock"

	"github.com/vqp-project/responder/core"
)

// ConsentDeciderFunc adapts a plain function to core.ConsentPort, for
// responders whose consent policy is a synchronous local decision
// (an allowlist, an auto-approve rule) rather than a human in the loop.
type ConsentDeciderFunc func(ctx context.Context, req core.ConsentRequest) (bool, *core.ConsentProof, error)

// RequestConsent implements core.ConsentPort.
func (f ConsentDeciderFunc) RequestConsent(ctx context.Context, req core.ConsentRequest) (bool, *core.ConsentProof, error) {
	return f(ctx, req)
}

// consentEnvelope is what QueuedConsentPort persists to disk: the
// request plus the id a later Resolve call will key off of.
type consentEnvelope struct {
	RequestID string             `json:"requestId"`
	Request   core.ConsentRequest `json:"request"`
}

type consentDecision struct {
	granted       bool
	justification string
	grantor       string
}

// QueuedConsentPort models consent as an asynchronous, durable
// request/reply: RequestConsent persists the request to a disk-backed
// queue and blocks until a separate Resolve call (made by an operator
// console, a webhook handler, anything outside this package) answers
// it or the context expires. The queued request survives a process
// restart; the waiting caller does not, so a Resolve made after a
// restart for a request queued before it is a no-op.
type QueuedConsentPort struct {
	queue *goque.Queue
	clk   clock.Clock

	mu      sync.Mutex
	waiters map[string]chan consentDecision
}

// OpenQueuedConsentPort opens (creating if necessary) a disk-backed
// consent request queue rooted at dataDir.
func OpenQueuedConsentPort(dataDir string) (*QueuedConsentPort, error) {
	q, err := goque.OpenQueue(dataDir)
	if err != nil {
		return nil, fmt.Errorf("responsemode: opening consent queue: %w", err)
	}
	return &QueuedConsentPort{
		queue:   q,
		clk:     clock.New(),
		waiters: make(map[string]chan consentDecision),
	}, nil
}

// Close releases the underlying queue's file handles.
func (p *QueuedConsentPort) Close() error {
	return p.queue.Close()
}

// RequestConsent implements core.ConsentPort.
func (p *QueuedConsentPort) RequestConsent(ctx context.Context, req core.ConsentRequest) (bool, *core.ConsentProof, error) {
	id := uuid.NewString()

	envelope := consentEnvelope{RequestID: id, Request: req}
	if _, err := p.queue.EnqueueObjectAsJSON(envelope); err != nil {
		return false, nil, fmt.Errorf("responsemode: enqueueing consent request: %w", err)
	}

	ch := make(chan consentDecision, 1)
	p.mu.Lock()
	p.waiters[id] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.waiters, id)
		p.mu.Unlock()
	}()

	select {
	case decision := <-ch:
		if !decision.granted {
			return false, nil, nil
		}
		return true, &core.ConsentProof{
			GrantedAt:     p.clk.Now(),
			Justification: decision.justification,
			Grantor:       decision.grantor,
		}, nil
	case <-ctx.Done():
		return false, nil, ctx.Err()
	}
}

// DequeueForReview pops the oldest unresolved consent request so an
// operator-facing surface can present it for a decision. It returns
// goque.ErrEmpty, unwrapped, when the queue is drained.
func (p *QueuedConsentPort) DequeueForReview() (string, core.ConsentRequest, error) {
	item, err := p.queue.Dequeue()
	if err != nil {
		return "", core.ConsentRequest{}, err
	}
	var envelope consentEnvelope
	if err := item.ToObjectFromJSON(&envelope); err != nil {
		return "", core.ConsentRequest{}, fmt.Errorf("responsemode: decoding consent request: %w", err)
	}
	return envelope.RequestID, envelope.Request, nil
}

// Resolve answers a pending RequestConsent call keyed by requestID, as
// returned from DequeueForReview. It is a no-op if no goroutine is
// currently waiting on that id (the waiting request timed out already).
func (p *QueuedConsentPort) Resolve(requestID string, granted bool, justification, grantor string) {
	p.mu.Lock()
	ch, ok := p.waiters[requestID]
	p.mu.Unlock()
	if !ok {
		return
	}
	ch <- consentDecision{granted: granted, justification: justification, grantor: grantor}
}
