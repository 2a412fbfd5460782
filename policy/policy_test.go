package policy

import (
	"testing"
	"time"
)

func TestAuthorizeNormalizesRequesterUnicodeForm(t *testing.T) {
	// Precomposed U+00E9 vs. the decomposed "e" + combining acute
	// accent (U+0065 U+0301): visually identical, byte-distinct. A
	// rule written against one form must still match a requester
	// presenting the other.
	precomposed := "did:example:jos" + string(rune(0x00E9))
	decomposed := "did:example:jos" + string(rune(0x0065)) + string(rune(0x0301))

	p := New(
		map[string][]string{"identity.age": {precomposed}},
		nil,
		Deny,
		nil,
	)
	now := time.Now()
	if !p.Authorize(decomposed, "identity.age", now) {
		t.Error("expected decomposed-form requester to match a precomposed-form rule")
	}
}

func TestAuthorizeExactPathMatch(t *testing.T) {
	p := New(
		map[string][]string{"financial.annual_income": {"did:example:trusted"}},
		nil,
		Deny,
		nil,
	)
	now := time.Now()
	if !p.Authorize("did:example:trusted", "financial.annual_income", now) {
		t.Error("expected trusted requester allowed by exact match")
	}
	if p.Authorize("did:example:other", "financial.annual_income", now) {
		t.Error("expected other requester denied")
	}
}

func TestAuthorizeExactPathWildcardRequester(t *testing.T) {
	p := New(
		map[string][]string{"identity.age": {"*"}},
		nil,
		Deny,
		nil,
	)
	if !p.Authorize("did:example:anyone", "identity.age", time.Now()) {
		t.Error("expected '*' requester rule to allow any requester")
	}
}

func TestAuthorizeWildcardPath(t *testing.T) {
	p := New(
		nil,
		map[string][]string{"iot.*": {"*"}},
		Deny,
		nil,
	)
	if !p.Authorize("did:example:x", "iot.battery_percent", time.Now()) {
		t.Error("expected wildcard path to match")
	}
	if p.Authorize("did:example:x", "financial.annual_income", time.Now()) {
		t.Error("expected non-matching path denied under default deny")
	}
}

func TestAuthorizeDefaultPolicy(t *testing.T) {
	allow := New(nil, nil, Allow, nil)
	if !allow.Authorize("did:example:x", "anything.at.all", time.Now()) {
		t.Error("expected default_policy=allow to permit unmatched paths")
	}

	deny := New(nil, nil, Deny, nil)
	if deny.Authorize("did:example:x", "anything.at.all", time.Now()) {
		t.Error("expected default_policy=deny to reject unmatched paths")
	}
}

func TestAuthorizeRateLimitCheckedFirst(t *testing.T) {
	limiter := NewRateLimiter(nil, RateLimit{RequestsPerMinute: 1, RequestsPerHour: 100})
	p := New(
		map[string][]string{"identity.age": {"*"}},
		nil,
		Deny,
		limiter,
	)
	now := time.Now()
	if !p.Authorize("did:example:x", "identity.age", now) {
		t.Fatal("expected first request allowed")
	}
	if p.Authorize("did:example:x", "identity.age", now) {
		t.Error("expected second request within the same minute denied by rate limit despite matching allow rule")
	}
}

func TestGlobMatching(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"iot.*", "iot.battery_percent", true},
		{"iot.*", "health.blood_type", false},
		{"*.age", "identity.age", true},
		{"identity.a?e", "identity.age", true},
		{"identity.a?e", "identity.aaae", false},
		{"*", "anything", true},
		{"financial.annual_income", "financial.annual_income", true},
		{"financial.annual_income", "financial.credit_score", false},
	}
	for _, c := range cases {
		if got := matchGlob(c.pattern, c.s); got != c.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", c.pattern, c.s, got, c.want)
		}
	}
}

func TestRateLimiterDualWindow(t *testing.T) {
	rl := NewRateLimiter(nil, RateLimit{RequestsPerMinute: 2, RequestsPerHour: 3})
	now := time.Now()
	if !rl.Allow("r1", now) {
		t.Fatal("expected 1st request allowed")
	}
	if !rl.Allow("r1", now) {
		t.Fatal("expected 2nd request allowed")
	}
	if rl.Allow("r1", now) {
		t.Error("expected 3rd request in same minute denied by per-minute budget")
	}
	if !rl.Allow("r1", now.Add(2*time.Minute)) {
		t.Fatal("expected a request in a later minute allowed while the hour still has budget")
	}
	if rl.Allow("r1", now.Add(4*time.Minute)) {
		t.Error("expected 4th request within the hour denied by per-hour budget")
	}
}

func TestRateLimiterPerRequesterIsolated(t *testing.T) {
	rl := NewRateLimiter(map[string]RateLimit{"r1": {RequestsPerMinute: 1, RequestsPerHour: 1}}, RateLimit{})
	now := time.Now()
	if !rl.Allow("r1", now) {
		t.Fatal("expected r1's first request allowed")
	}
	if rl.Allow("r1", now) {
		t.Error("expected r1's second request denied")
	}
	if !rl.Allow("r2", now) {
		t.Error("expected r2 (no explicit limit, unlimited fallback) allowed")
	}
}
