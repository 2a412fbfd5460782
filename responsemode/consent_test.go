package responsemode

import (
	"context"
	"testing"
	"time"

	"github.com/vqp-project/responder/core"
)

func TestConsentDeciderFuncAdapter(t *testing.T) {
	var called bool
	f := ConsentDeciderFunc(func(ctx context.Context, req core.ConsentRequest) (bool, *core.ConsentProof, error) {
		called = true
		return true, &core.ConsentProof{Grantor: "g"}, nil
	})
	granted, proof, err := f.RequestConsent(context.Background(), core.ConsentRequest{})
	if err != nil {
		t.Fatalf("RequestConsent: %v", err)
	}
	if !called || !granted || proof.Grantor != "g" {
		t.Errorf("adapter did not forward to the underlying function correctly")
	}
}

func TestQueuedConsentPortRoundTrip(t *testing.T) {
	port, err := OpenQueuedConsentPort(t.TempDir())
	if err != nil {
		t.Fatalf("OpenQueuedConsentPort: %v", err)
	}
	defer port.Close()

	done := make(chan struct{})
	var granted bool
	var reqErr error
	go func() {
		granted, _, reqErr = port.RequestConsent(context.Background(), core.ConsentRequest{
			Requester:     "did:example:requester",
			Justification: "age verification",
		})
		close(done)
	}()

	// Give the requesting goroutine a moment to enqueue before we
	// dequeue it for review.
	var id string
	var req core.ConsentRequest
	for i := 0; i < 50; i++ {
		id, req, err = port.DequeueForReview()
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("DequeueForReview: %v", err)
	}
	if req.Requester != "did:example:requester" {
		t.Errorf("got requester %q, want did:example:requester", req.Requester)
	}

	port.Resolve(id, true, "approved by operator", "operator-1")

	<-done
	if reqErr != nil {
		t.Fatalf("RequestConsent: %v", reqErr)
	}
	if !granted {
		t.Error("expected consent to be granted after Resolve")
	}
}

func TestQueuedConsentPortContextCancellation(t *testing.T) {
	port, err := OpenQueuedConsentPort(t.TempDir())
	if err != nil {
		t.Fatalf("OpenQueuedConsentPort: %v", err)
	}
	defer port.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err = port.RequestConsent(ctx, core.ConsentRequest{Requester: "r"})
	if err == nil {
		t.Error("expected RequestConsent to fail when the context expires before Resolve")
	}
}

func TestQueuedConsentPortResolveUnknownIDIsNoop(t *testing.T) {
	port, err := OpenQueuedConsentPort(t.TempDir())
	if err != nil {
		t.Fatalf("OpenQueuedConsentPort: %v", err)
	}
	defer port.Close()

	port.Resolve("no-such-request", true, "", "")
}
