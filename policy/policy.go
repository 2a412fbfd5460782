// Package policy enforces the access policy layered over the data
// access layer: rate limiting followed by a path-based allow/deny
// decision table.
package policy

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/exp/slices"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Decision is the outcome of evaluating a path rule.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)

// anyRequester is the wildcard entry in allowed_paths/wildcard_paths
// rule lists meaning every requester is permitted.
const anyRequester = "*"

// config is the on-disk shape of an access policy document.
type config struct {
	AllowedPaths  map[string][]string  `yaml:"allowed_paths"`
	WildcardPaths map[string][]string  `yaml:"wildcard_paths"`
	DefaultPolicy Decision             `yaml:"default_policy"`
	RateLimits    map[string]RateLimit `yaml:"rate_limits"`
}

// Policy is the loaded, ready-to-evaluate access policy.
type Policy struct {
	allowedPaths  map[string][]string
	wildcardPaths map[string][]string
	defaultPolicy Decision
	limiter       Limiter
}

// Load reads an access policy document from path.
func Load(path string, limiter Limiter) (*Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: reading %q: %w", path, err)
	}
	var cfg config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("policy: parsing %q: %w", path, err)
	}
	return newFromConfig(cfg, limiter), nil
}

// New builds a Policy directly from its component parts, for callers
// that construct the policy programmatically rather than from a file
// (tests, and the responder's startup when no policy file is configured).
func New(allowedPaths, wildcardPaths map[string][]string, defaultPolicy Decision, limiter Limiter) *Policy {
	return &Policy{
		allowedPaths:  allowedPaths,
		wildcardPaths: wildcardPaths,
		defaultPolicy: defaultPolicy,
		limiter:       limiter,
	}
}

func newFromConfig(cfg config, limiter Limiter) *Policy {
	if limiter == nil {
		fallback := RateLimit{}
		limiter = NewRateLimiter(cfg.RateLimits, fallback)
	}
	defaultPolicy := cfg.DefaultPolicy
	if defaultPolicy == "" {
		defaultPolicy = Deny
	}
	return &Policy{
		allowedPaths:  cfg.AllowedPaths,
		wildcardPaths: cfg.WildcardPaths,
		defaultPolicy: defaultPolicy,
		limiter:       limiter,
	}
}

// Authorize decides whether requester may access dottedPath at now.
// Rate limiting is checked first: exhaustion denies access outright,
// before any path rule is consulted. Authorize never returns an error;
// it is the caller's responsibility (the vault's ValidateDataAccess)
// to convert a false result into an UNAUTHORIZED fault.
func (p *Policy) Authorize(requester, dottedPath string, now time.Time) bool {
	// Two DIDs that are visually identical but differently encoded
	// (combining vs. precomposed accents) must not be able to dodge
	// rate limits or path rules by presenting as distinct requesters.
	requester = norm.NFC.String(requester)

	if p.limiter != nil && !p.limiter.Allow(requester, now) {
		return false
	}

	if requesters, ok := p.allowedPaths[dottedPath]; ok {
		return matchesRequester(requesters, requester)
	}

	for pattern, requesters := range p.wildcardPaths {
		if matchGlob(pattern, dottedPath) && matchesRequester(requesters, requester) {
			return true
		}
	}

	return p.defaultPolicy == Allow
}

func matchesRequester(requesters []string, requester string) bool {
	return slices.Contains(requesters, anyRequester) || slices.Contains(requesters, requester)
}

// dottedPathFromSegments joins vault path segments the same way the
// vocabulary layer's mapping strategies split them, so policy rules
// expressed on dotted strings line up with vault paths expressed as
// segment slices.
func dottedPathFromSegments(segments []string) string {
	return strings.Join(segments, ".")
}
