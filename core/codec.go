package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// CanonicalPayload returns the exact byte sequence a signature binds to:
// `{"queryId":...,"result":...,"timestamp":...,"responder":...}` with
// object keys in that fixed order, compact separators, and no
// whitespace. When value is non-nil the payload is extended with a
// trailing `"value":...` member, used uniformly by both signer and
// verifier.
//
// This is hand-built rather than routed through a generic JSON marshaler
// because byte-exactness of key order and separators is the entire
// contract: any library free to reorder map keys (most are) would
// silently break every signature built on top of it.
func CanonicalPayload(queryID string, result interface{}, timestamp time.Time, responder string, value interface{}, hasValue bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	if err := writeMember(&buf, "queryId", queryID, true); err != nil {
		return nil, err
	}
	if err := writeMember(&buf, "result", result, false); err != nil {
		return nil, err
	}
	if err := writeMember(&buf, "timestamp", timestamp.UTC().Format(time.RFC3339Nano), false); err != nil {
		return nil, err
	}
	if err := writeMember(&buf, "responder", responder, false); err != nil {
		return nil, err
	}
	if hasValue {
		if err := writeMember(&buf, "value", value, false); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, key string, val interface{}, first bool) error {
	if !first {
		buf.WriteByte(',')
	}
	keyJSON, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(keyJSON)
	buf.WriteByte(':')

	var valJSON []byte
	if s, ok := val.(string); ok {
		valJSON, err = json.Marshal(s)
	} else {
		valJSON, err = json.Marshal(val)
	}
	if err != nil {
		return fmt.Errorf("core: encoding canonical payload member %q: %w", key, err)
	}
	buf.Write(compact(valJSON))
	return nil
}

// compact strips any incidental whitespace json.Marshal may have emitted
// for composite values (it normally emits none, but this keeps the
// guarantee explicit rather than implicit in the standard library's
// current behavior).
func compact(in []byte) []byte {
	var out bytes.Buffer
	if err := json.Compact(&out, in); err != nil {
		return in
	}
	return out.Bytes()
}

// CanonicalPayloadForResponse derives the canonical payload directly from
// a Response, the form the Verifier actually calls.
func CanonicalPayloadForResponse(r *Response) ([]byte, error) {
	hasValue := r.Value != nil
	return CanonicalPayload(r.QueryID, r.Result, r.Timestamp, r.Responder, r.Value, hasValue)
}
