package core

import (
	"time"

	validator "github.com/letsencrypt/validator/v10"

	berrors "github.com/vqp-project/responder/errors"
)

var structValidator = validator.New()

// timestampPastWindow and timestampFutureWindow bound how far a query's
// timestamp may drift from the responder's clock.
const (
	timestampPastWindow   = 5 * time.Minute
	timestampFutureWindow = 1 * time.Minute
)

// ValidateQuery checks that every required field is present and
// well-formed, and that the timestamp falls within [now-5m, now+1m].
// now is passed in explicitly so callers can use a jmhodges/clock.Clock
// rather than time.Now().
func ValidateQuery(q *Query, now time.Time) error {
	if q == nil {
		return berrors.InvalidQueryError("query is nil")
	}
	if err := structValidator.Struct(q); err != nil {
		return berrors.InvalidQueryError("structural validation failed: %s", err)
	}
	if err := structValidator.Struct(q.Predicate); err != nil {
		return berrors.InvalidQueryError("structural validation failed: %s", err)
	}
	if q.Predicate.Lang != QueryLanguage {
		return berrors.InvalidQueryError("unsupported query language %q", q.Predicate.Lang)
	}

	earliest := now.Add(-timestampPastWindow)
	latest := now.Add(timestampFutureWindow)
	if q.Timestamp.Before(earliest) || q.Timestamp.After(latest) {
		return berrors.InvalidQueryError(
			"timestamp %s outside allowed window [%s, %s]",
			q.Timestamp.Format(time.RFC3339), earliest.Format(time.RFC3339), latest.Format(time.RFC3339),
		)
	}
	return nil
}
