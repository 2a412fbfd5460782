// Package errors defines the externally visible fault taxonomy for the
// responder. Every internal fault the engine surfaces maps to exactly one
// of these kinds.
package errors

import "fmt"

// Kind is the coarse category of a VQPError.
type Kind int

const (
	InvalidQuery Kind = iota
	EvaluationError
	SignatureFailed
	VocabularyNotFound
	Unauthorized
	RateLimited
	NetworkError
	CryptoError
	ConfigurationError
)

func (k Kind) String() string {
	switch k {
	case InvalidQuery:
		return "INVALID_QUERY"
	case EvaluationError:
		return "EVALUATION_ERROR"
	case SignatureFailed:
		return "SIGNATURE_FAILED"
	case VocabularyNotFound:
		return "VOCABULARY_NOT_FOUND"
	case Unauthorized:
		return "UNAUTHORIZED"
	case RateLimited:
		return "RATE_LIMITED"
	case NetworkError:
		return "NETWORK_ERROR"
	case CryptoError:
		return "CRYPTO_ERROR"
	case ConfigurationError:
		return "CONFIGURATION_ERROR"
	default:
		return "UNKNOWN"
	}
}

// VQPError is the single error type the engine surfaces to callers.
type VQPError struct {
	Kind   Kind
	Detail string
}

func (e *VQPError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// New is a convenience constructor for a VQPError.
func New(kind Kind, msg string, args ...interface{}) error {
	return &VQPError{
		Kind:   kind,
		Detail: fmt.Sprintf(msg, args...),
	}
}

// Is reports whether err is a VQPError of the given kind.
func Is(err error, kind Kind) bool {
	ve, ok := err.(*VQPError)
	if !ok {
		return false
	}
	return ve.Kind == kind
}

func InvalidQueryError(msg string, args ...interface{}) error {
	return New(InvalidQuery, msg, args...)
}

func EvaluationErrorf(msg string, args ...interface{}) error {
	return New(EvaluationError, msg, args...)
}

func SignatureFailedError(msg string, args ...interface{}) error {
	return New(SignatureFailed, msg, args...)
}

func VocabularyNotFoundError(msg string, args ...interface{}) error {
	return New(VocabularyNotFound, msg, args...)
}

func UnauthorizedError(msg string, args ...interface{}) error {
	return New(Unauthorized, msg, args...)
}

func RateLimitedError(msg string, args ...interface{}) error {
	return New(RateLimited, msg, args...)
}

func NetworkErrorf(msg string, args ...interface{}) error {
	return New(NetworkError, msg, args...)
}

func CryptoErrorf(msg string, args ...interface{}) error {
	return New(CryptoError, msg, args...)
}

func ConfigurationErrorf(msg string, args ...interface{}) error {
	return New(ConfigurationError, msg, args...)
}
