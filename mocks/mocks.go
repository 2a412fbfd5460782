// Package mocks provides in-memory fakes for every port the engine,
// verifier, and response mode shaper depend on, for use in tests that
// don't want to stand up a real vault, signer, or vocabulary resolver.
package mocks

import (
	"context"
	"sync"

	"github.com/vqp-project/responder/core"
	berrors "github.com/vqp-project/responder/errors"
)

// DataPort is a mock core.DataPort backed by a plain in-memory map keyed
// by dotted path. Paths named in Denied fail ValidateDataAccess
// regardless of requester; Reads records every path GetData was called
// with, in order, for tests that assert on access patterns (e.g. "a
// denied path is never read").
type DataPort struct {
	mu     sync.Mutex
	Values map[string]interface{}
	Denied map[string]bool
	Reads  []string
}

// NewDataPort returns a DataPort with an empty value set.
func NewDataPort() *DataPort {
	return &DataPort{Values: map[string]interface{}{}, Denied: map[string]bool{}}
}

// Set registers a value at dottedPath for later retrieval.
func (d *DataPort) Set(dottedPath string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Values[dottedPath] = value
}

// Deny marks dottedPath as forbidden to every requester.
func (d *DataPort) Deny(dottedPath string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Denied[dottedPath] = true
}

// GetData implements core.DataPort.
func (d *DataPort) GetData(_ context.Context, path []string) (interface{}, bool, error) {
	key := joinPath(path)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Reads = append(d.Reads, key)
	v, ok := d.Values[key]
	return v, ok, nil
}

// HasData implements core.DataPort.
func (d *DataPort) HasData(ctx context.Context, path []string) (bool, error) {
	_, ok, err := d.GetData(ctx, path)
	return ok, err
}

// ValidateDataAccess implements core.DataPort.
func (d *DataPort) ValidateDataAccess(_ context.Context, path []string, _ string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.Denied[joinPath(path)], nil
}

func joinPath(path []string) string {
	out := ""
	for i, seg := range path {
		if i > 0 {
			out += "."
		}
		out += seg
	}
	return out
}

// VocabularyPort is a mock core.VocabularyPort serving a fixed set of
// registered schemas and allowing exactly those URIs.
type VocabularyPort struct {
	Schemas map[string]*core.VocabularySchema
}

// NewVocabularyPort returns a VocabularyPort with no schemas registered.
func NewVocabularyPort() *VocabularyPort {
	return &VocabularyPort{Schemas: map[string]*core.VocabularySchema{}}
}

// Register adds schema to the set of vocabularies this port will
// resolve and allow.
func (v *VocabularyPort) Register(schema *core.VocabularySchema) {
	v.Schemas[schema.URI] = schema
}

// IsVocabularyAllowed implements core.VocabularyPort.
func (v *VocabularyPort) IsVocabularyAllowed(_ context.Context, uri string) (bool, error) {
	_, ok := v.Schemas[uri]
	return ok, nil
}

// ResolveVocabulary implements core.VocabularyPort.
func (v *VocabularyPort) ResolveVocabulary(_ context.Context, uri string) (*core.VocabularySchema, error) {
	schema, ok := v.Schemas[uri]
	if !ok {
		return nil, berrors.VocabularyNotFoundError("mocks: no schema registered for %q", uri)
	}
	return schema, nil
}

// CryptoPort is a mock core.CryptoPort. Sign always succeeds with a
// fixed signature string; Verify returns VerifyResult (true by
// default) unless VerifyErr is set.
type CryptoPort struct {
	VerifyResult bool
	VerifyErr    error
	ZKEnabled    bool
}

// NewCryptoPort returns a CryptoPort whose Verify calls succeed by
// default.
func NewCryptoPort() *CryptoPort {
	return &CryptoPort{VerifyResult: true}
}

// Sign implements core.CryptoPort.
func (c *CryptoPort) Sign(_ context.Context, _ []byte, _ string) (core.Proof, error) {
	return core.Proof{
		Type:      core.ProofTypeSignature,
		Algorithm: core.AlgorithmEd25519,
		PublicKey: "mock-public-key",
		Signature: "mock-signature",
	}, nil
}

// Verify implements core.CryptoPort.
func (c *CryptoPort) Verify(_ context.Context, _ core.Proof, _ []byte, _ string) (bool, error) {
	return c.VerifyResult, c.VerifyErr
}

// ZKCapable implements core.CryptoPort.
func (c *CryptoPort) ZKCapable() bool { return c.ZKEnabled }

// GenerateZKProof implements core.CryptoPort.
func (c *CryptoPort) GenerateZKProof(_ context.Context, circuit string, _ map[string]interface{}) (core.Proof, error) {
	if !c.ZKEnabled {
		return core.Proof{}, berrors.ConfigurationErrorf("mocks: ZK not enabled")
	}
	return core.Proof{Type: core.ProofTypeZK, Circuit: circuit, ZKProof: []byte("mock-zk-proof")}, nil
}

// VerifyZKProof implements core.CryptoPort.
func (c *CryptoPort) VerifyZKProof(_ context.Context, _ core.Proof, _ map[string]interface{}) (bool, error) {
	return c.VerifyResult, c.VerifyErr
}

// AuditPort is a mock core.AuditPort recording every entry it receives,
// in order, for assertions on audit ordering.
type AuditPort struct {
	mu      sync.Mutex
	Entries []core.AuditEntry
}

// NewAuditPort returns an empty AuditPort.
func NewAuditPort() *AuditPort {
	return &AuditPort{}
}

// Record implements core.AuditPort.
func (a *AuditPort) Record(_ context.Context, entry core.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Entries = append(a.Entries, entry)
	return nil
}

// Snapshot returns a copy of the entries recorded so far.
func (a *AuditPort) Snapshot() []core.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.AuditEntry, len(a.Entries))
	copy(out, a.Entries)
	return out
}

// ConsentPort is a mock core.ConsentPort that always returns Granted
// (true by default) and, when granted, a fixed ConsentProof.
type ConsentPort struct {
	Granted bool
	Proof   *core.ConsentProof
	Err     error
}

// NewConsentPort returns a ConsentPort that grants every request.
func NewConsentPort() *ConsentPort {
	return &ConsentPort{
		Granted: true,
		Proof:   &core.ConsentProof{Grantor: "mock-operator"},
	}
}

// RequestConsent implements core.ConsentPort.
func (c *ConsentPort) RequestConsent(_ context.Context, _ core.ConsentRequest) (bool, *core.ConsentProof, error) {
	if c.Err != nil {
		return false, nil, c.Err
	}
	if !c.Granted {
		return false, nil, nil
	}
	return true, c.Proof, nil
}

// ReciprocalPort is a mock core.ReciprocalPort that reports every
// required claim verified by default.
type ReciprocalPort struct {
	Verified []string
	Err      error
}

// NewReciprocalPort returns a ReciprocalPort that verifies whatever
// claims it's asked about.
func NewReciprocalPort() *ReciprocalPort {
	return &ReciprocalPort{}
}

// VerifyRequesterClaims implements core.ReciprocalPort. When Verified
// is nil, it echoes back requiredClaims as fully satisfied; set
// Verified explicitly to test partial or failed verification.
func (r *ReciprocalPort) VerifyRequesterClaims(_ context.Context, _ core.Proof, requiredClaims []string) ([]string, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Verified != nil {
		return r.Verified, nil
	}
	out := make([]string, len(requiredClaims))
	copy(out, requiredClaims)
	return out, nil
}
