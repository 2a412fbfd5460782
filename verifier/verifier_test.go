package verifier

import (
	"context"
	"testing"
	"time"

	"github.com/jmhodges/clock"

	"github.com/vqp-project/responder/core"
	"github.com/vqp-project/responder/signer"
)

func signedResponse(t *testing.T, s *signer.Signer, timestamp time.Time) *core.Response {
	t.Helper()
	resp := &core.Response{
		QueryID:   "11111111-1111-1111-1111-111111111111",
		Version:   "1.0.0",
		Timestamp: timestamp,
		Responder: "did:example:responder",
		Result:    true,
	}
	payload, err := core.CanonicalPayloadForResponse(resp)
	if err != nil {
		t.Fatalf("CanonicalPayloadForResponse: %v", err)
	}
	proof, err := s.Sign(context.Background(), payload, "default")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	resp.Proof = proof
	return resp
}

func TestVerifyCompleteRoundTrip(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Now())
	s := signer.New()
	v := New(s, clk)

	resp := signedResponse(t, s, clk.Now())

	verdict, err := v.VerifyComplete(context.Background(), resp, resp.QueryID)
	if err != nil {
		t.Fatalf("VerifyComplete: %v", err)
	}
	if !verdict.Overall || !verdict.CryptographicProof || !verdict.Metadata {
		t.Errorf("got %+v, want all fields true", verdict)
	}
}

func TestVerifyCompleteDetectsTamperedPayload(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Now())
	s := signer.New()
	v := New(s, clk)

	resp := signedResponse(t, s, clk.Now())
	resp.Result = false // mutate a signed byte after signing

	verdict, err := v.VerifyComplete(context.Background(), resp, resp.QueryID)
	if err != nil {
		t.Fatalf("VerifyComplete: %v", err)
	}
	if verdict.CryptographicProof || verdict.Overall {
		t.Errorf("got %+v, want cryptographicProof false after tampering", verdict)
	}
}

func TestVerifyMetadataRejectsFutureTimestamp(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Now())
	s := signer.New()
	v := New(s, clk)

	resp := signedResponse(t, s, clk.Now().Add(10*time.Minute))
	if v.VerifyMetadata(resp, "") {
		t.Error("expected a response 10 minutes in the future to fail metadata checks")
	}
}

func TestVerifyMetadataRejectsStaleTimestamp(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Now())
	s := signer.New()
	v := New(s, clk)

	resp := signedResponse(t, s, clk.Now().Add(-48*time.Hour))
	if v.VerifyMetadata(resp, "") {
		t.Error("expected a 48-hour-old response to fail metadata checks")
	}
}

func TestVerifyMetadataRejectsMismatchedQueryID(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Now())
	s := signer.New()
	v := New(s, clk)

	resp := signedResponse(t, s, clk.Now())
	if v.VerifyMetadata(resp, "some-other-query-id") {
		t.Error("expected a mismatched queryId to fail metadata checks")
	}
}

func TestVerifyRejectsMissingProofFields(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Now())
	s := signer.New()
	v := New(s, clk)

	resp := signedResponse(t, s, clk.Now())
	resp.Proof.Signature = ""

	ok, err := v.Verify(context.Background(), resp)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("expected a response with a malformed proof to fail shape validation")
	}
}

func TestVerifyCompleteValueDisclosureBinding(t *testing.T) {
	clk := clock.NewFake()
	clk.Set(time.Now())
	s := signer.New()
	v := New(s, clk)

	resp := signedResponse(t, s, clk.Now())
	resp.Value = 42.0 // value added after signing, not part of the signed payload

	verdict, err := v.VerifyComplete(context.Background(), resp, resp.QueryID)
	if err != nil {
		t.Fatalf("VerifyComplete: %v", err)
	}
	if verdict.CryptographicProof {
		t.Error("expected cryptographicProof to fail once value is present but wasn't part of the signed payload")
	}
}
