// Package core defines the canonical VQP data shapes shared by the
// Responder Engine, the Verifier, and every port between them: queries,
// responses, proofs, response modes, and vocabulary schemas.
package core

import (
	"time"
)

// Query is the wire shape of an incoming verifiable query. Every one of
// {ID, Version, Timestamp, Requester, Predicate, Predicate.Vocab,
// Predicate.Expr, Predicate.Lang} must be present for a Query to be
// structurally valid.
type Query struct {
	ID           string        `json:"id" validate:"required,uuid4"`
	Version      string        `json:"version" validate:"required"`
	Timestamp    time.Time     `json:"timestamp" validate:"required"`
	Requester    string        `json:"requester" validate:"required"`
	Target       string        `json:"target,omitempty"`
	ResponseMode *ResponseMode `json:"responseMode,omitempty"`
	Predicate    QueryBody     `json:"query" validate:"required"`
}

// QueryBody is the nested predicate record of a Query.
type QueryBody struct {
	Lang  string      `json:"lang" validate:"required"`
	Vocab string      `json:"vocab" validate:"required"`
	Expr  interface{} `json:"expr" validate:"required"`
}

// QueryLanguage is the only predicate language version this CORE accepts.
const QueryLanguage = "jsonlogic@1.0.0"

// Response is the wire shape of a query's answer.
type Response struct {
	QueryID            string      `json:"queryId"`
	Version            string      `json:"version"`
	Timestamp          time.Time   `json:"timestamp"`
	Responder          string      `json:"responder"`
	Result             interface{} `json:"result"`
	Proof              Proof       `json:"proof"`
	Value              interface{} `json:"value,omitempty"`
	ConsentProof       *ConsentProof `json:"consentProof,omitempty"`
	MutualProof        *MutualProof  `json:"mutualProof,omitempty"`
	ObfuscationApplied *Obfuscation  `json:"obfuscationApplied,omitempty"`
}

// ProofType tags the variant held by a Proof.
type ProofType string

const (
	ProofTypeSignature ProofType = "signature"
	ProofTypeZK        ProofType = "zk-snark"
	ProofTypeMulti     ProofType = "multi-signature"
)

// SignatureAlgorithm enumerates the signature schemes the signer supports.
type SignatureAlgorithm string

const (
	AlgorithmEd25519   SignatureAlgorithm = "ed25519"
	AlgorithmSecp256k1 SignatureAlgorithm = "secp256k1"
	AlgorithmRSAPSS    SignatureAlgorithm = "rsa-pss"
)

// Proof is a tagged variant: exactly one of the three shapes below is
// populated, selected by Type.
type Proof struct {
	Type ProofType `json:"type"`

	// Signature variant.
	Algorithm SignatureAlgorithm `json:"algorithm,omitempty"`
	PublicKey string             `json:"publicKey,omitempty"`
	Signature string             `json:"signature,omitempty"`

	// Zero-knowledge variant.
	Circuit       string                 `json:"circuit,omitempty"`
	ZKProof       []byte                 `json:"proof,omitempty"`
	PublicInputs  map[string]interface{} `json:"publicInputs,omitempty"`

	// Multi-signature variant (contract only; signer.Sign never
	// produces it).
	Threshold  int         `json:"threshold,omitempty"`
	Signatures []Signature `json:"signatures,omitempty"`
}

// Signature is one element of a multi-signature proof.
type Signature struct {
	Algorithm SignatureAlgorithm `json:"algorithm"`
	PublicKey string             `json:"publicKey"`
	Signature string             `json:"signature"`
}

// ConsentProof evidences that a consensual disclosure was authorized.
type ConsentProof struct {
	GrantedAt    time.Time `json:"grantedAt"`
	Justification string   `json:"justification,omitempty"`
	Grantor      string    `json:"grantor"`
}

// MutualProof carries both sides' verification facts for reciprocal mode.
type MutualProof struct {
	RequesterVerified bool     `json:"requesterVerified"`
	RequiredClaims    []string `json:"requiredClaims"`
	VerifiedClaims    []string `json:"verifiedClaims"`
}

// ObfuscationMethod enumerates the obfuscated-mode disclosure methods.
type ObfuscationMethod string

const (
	ObfuscationRange    ObfuscationMethod = "range"
	ObfuscationNoise    ObfuscationMethod = "noise"
	ObfuscationRounding ObfuscationMethod = "rounding"
)

// Obfuscation reports the method and parameters actually applied.
type Obfuscation struct {
	Method        ObfuscationMethod `json:"method"`
	Precision     float64           `json:"precision,omitempty"`
	NoiseLevel    float64           `json:"noiseLevel,omitempty"`
	PrivacyBudget float64           `json:"privacyBudget,omitempty"`
}

// ResponseModeType enumerates the four disclosure modes.
type ResponseModeType string

const (
	ModeStrict      ResponseModeType = "strict"
	ModeConsensual  ResponseModeType = "consensual"
	ModeReciprocal  ResponseModeType = "reciprocal"
	ModeObfuscated  ResponseModeType = "obfuscated"
)

// ResponseMode selects how the engine shapes the disclosed answer.
type ResponseMode struct {
	Type   ResponseModeType   `json:"type"`
	Config ResponseModeConfig `json:"config"`
}

// ResponseModeConfig holds the union of every mode's configuration; only
// the fields relevant to Type are populated.
type ResponseModeConfig struct {
	// Consensual.
	Justification    string `json:"justification,omitempty"`
	ConsentRequired  bool   `json:"consentRequired,omitempty"`

	// Reciprocal.
	MutualVerification *MutualVerificationConfig `json:"mutualVerification,omitempty"`

	// Obfuscated.
	Obfuscation *ObfuscationConfig `json:"obfuscation,omitempty"`
}

// MutualVerificationConfig is the reciprocal mode's request payload.
type MutualVerificationConfig struct {
	RequesterProof Proof    `json:"requesterProof"`
	RequiredClaims []string `json:"requiredClaims"`
}

// ObfuscationConfig is the obfuscated mode's request payload.
type ObfuscationConfig struct {
	Method        ObfuscationMethod `json:"method"`
	Precision     float64           `json:"precision,omitempty"`
	NoiseLevel    float64           `json:"noiseLevel,omitempty"`
	PrivacyBudget float64           `json:"privacyBudget,omitempty"`
}

// VerificationVerdict is the Verifier's tri-field result.
type VerificationVerdict struct {
	CryptographicProof bool `json:"cryptographicProof"`
	Metadata           bool `json:"metadata"`
	Overall            bool `json:"overall"`
}

// FieldType enumerates the scalar types a vocabulary field may declare.
type FieldType string

const (
	FieldInteger FieldType = "integer"
	FieldNumber  FieldType = "number"
	FieldString  FieldType = "string"
	FieldBoolean FieldType = "boolean"
	FieldArray   FieldType = "array"
)

// FieldSchema describes one recognized vocabulary field.
type FieldSchema struct {
	Type    FieldType `json:"type"`
	Minimum *float64  `json:"minimum,omitempty"`
	Maximum *float64  `json:"maximum,omitempty"`
	Enum    []string  `json:"enum,omitempty"`
	Pattern string    `json:"pattern,omitempty"`
	Items   *FieldSchema `json:"items,omitempty"`
}

// VocabularySchema names the fields a predicate may reference and their
// scalar types; a JSON-Schema-2020-12-shaped description in the wire
// protocol, reduced here to exactly what the engine consults.
type VocabularySchema struct {
	URI        string                 `json:"$id"`
	Title      string                 `json:"title,omitempty"`
	Properties map[string]FieldSchema `json:"properties"`
}

// AuditEvent enumerates the kinds of audit entries the engine emits.
type AuditEvent string

const (
	EventQueryReceived  AuditEvent = "query_received"
	EventQueryProcessed AuditEvent = "query_processed"
	EventErrorOccurred  AuditEvent = "error_occurred"
	EventKeyRotated     AuditEvent = "key_rotated"
)

// AuditEntry is one append-only record produced by the engine on a
// terminal transition (success or error).
type AuditEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Event     AuditEvent             `json:"event"`
	QueryID   string                 `json:"queryId,omitempty"`
	Querier   string                 `json:"querier,omitempty"`
	Result    interface{}            `json:"result,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
