package core

import "context"

// DataPort is the Engine's view of the Data Access Layer (C4). Every
// method may suspend; getData and hasData must produce "undefined"
// (nil, false) for a missing path rather than fault.
type DataPort interface {
	GetData(ctx context.Context, path []string) (interface{}, bool, error)
	HasData(ctx context.Context, path []string) (bool, error)
	ValidateDataAccess(ctx context.Context, path []string, requester string) (bool, error)
}

// VocabularyPort resolves a vocabulary URI to a schema and decides
// whether a URI is allowed at all; vocabulary resolution over the
// network is external to this CORE — only this contract matters.
type VocabularyPort interface {
	ResolveVocabulary(ctx context.Context, uri string) (*VocabularySchema, error)
	IsVocabularyAllowed(ctx context.Context, uri string) (bool, error)
}

// CryptoPort is the Engine's view of the Cryptographic Layer (C5).
type CryptoPort interface {
	Sign(ctx context.Context, payload []byte, keyID string) (Proof, error)
	Verify(ctx context.Context, proof Proof, payload []byte, publicKey string) (bool, error)

	// ZKCapable reports whether this port can service generateZKProof /
	// verifyZKProof requests. A responder without ZK capability rejects
	// ZK-requiring paths at configuration time rather than exposing a
	// nullable method.
	ZKCapable() bool
	GenerateZKProof(ctx context.Context, circuit string, inputs map[string]interface{}) (Proof, error)
	VerifyZKProof(ctx context.Context, proof Proof, publicInputs map[string]interface{}) (bool, error)
}

// AuditPort receives owned copies of audit entries; the engine never
// holds a long-lived reference to what it hands off here.
type AuditPort interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// ConsentRequest is what the engine sends the ConsentPort in consensual
// mode.
type ConsentRequest struct {
	Query           *Query
	Justification   string
	RequestedValue  interface{}
	Requester       string
}

// ConsentPort decides whether a consensual disclosure is authorized. It
// is modeled as an explicit request/reply rather than a direct callback
// so implementations may route it through a durable queue.
type ConsentPort interface {
	RequestConsent(ctx context.Context, req ConsentRequest) (granted bool, proof *ConsentProof, err error)
}

// ReciprocalPort verifies the requester's own counter-proof in reciprocal
// mode: the requester must demonstrate it meets requiredClaims before the
// responder discloses anything back. Implementations may defer to the
// CryptoPort to check the counter-proof's signature or ZK validity.
type ReciprocalPort interface {
	VerifyRequesterClaims(ctx context.Context, proof Proof, requiredClaims []string) (verifiedClaims []string, err error)
}

// EvaluatorPort is the Engine's view of the Predicate Evaluator (C2).
type EvaluatorPort interface {
	Evaluate(expr interface{}, vars map[string]interface{}) (interface{}, error)
	ExtractVariables(expr interface{}) ([]string, error)
	IsValidExpression(expr interface{}) bool
	CountNodes(expr interface{}) int
}

// MappingStrategy maps a vocabulary field to vault path segments and
// back. Two built-in strategies exist: flat (identity split on '.') and
// standard (known prefixes per vocabulary). Mapping is pure.
type MappingStrategy interface {
	ToVaultPath(field string, vocabURI string) []string
	ToVocabularyField(segments []string, vocabURI string) string
}

// Timestamp invariants are kept deterministically testable by threading
// a github.com/jmhodges/clock.Clock through the Engine and Verifier
// rather than calling time.Now() directly; core intentionally does not
// redefine that abstraction.
