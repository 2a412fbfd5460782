// Package config defines the on-disk JSON shape of a responder
// deployment and the handful of custom field types (durations,
// file-indirected secrets) that shape needs to round-trip cleanly.
package config

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"strings"
	"time"

	"github.com/vqp-project/responder/log"
	"github.com/vqp-project/responder/policy"
)

// Config is the root configuration document for a vqp-responder
// process: its identity, where its data and policy come from, which
// vocabularies it will serve, and how it logs and reports metrics.
type Config struct {
	Responder ResponderConfig

	Vault      VaultConfig
	Policy     PolicyConfig
	Vocabulary VocabularyConfig
	Consent    ConsentConfig

	MaxQueryComplexity int
	CacheEnabled       bool

	Syslog SyslogConfig
	Statsd StatsdConfig

	DebugAddr string
}

// ResponderConfig names the identity a signed response presents to
// verifiers, and the key it signs with.
type ResponderConfig struct {
	// ID is the DID or URI this responder identifies itself as in
	// every Response.Responder field.
	ID string
	// DefaultKeyID selects which key in the signer's registry signs
	// queries that don't request a specific one.
	DefaultKeyID string
	// Algorithm is the signature algorithm DefaultKeyID is generated
	// under on first use, when it doesn't already exist.
	Algorithm string
	// ListenAddr is the address the query-serving HTTP endpoint binds.
	ListenAddr string
	// WeakKeyDir, when set, points at a directory of known-weak key
	// fingerprint suffix files the signer's key registry refuses to
	// generate or import a match for.
	WeakKeyDir string
}

// VaultConfig describes where the responder's decrypted data set
// comes from and how its at-rest encryption key is derived, when the
// vault is backed by the encrypted S3 store rather than an in-memory
// map supplied programmatically.
type VaultConfig struct {
	// DataFile is a JSON document of the flat field->value map loaded
	// into an in-memory vault at startup. Mutually exclusive with the
	// S3 fields below.
	DataFile string

	S3Bucket string
	S3Key    string
	// Passphrase derives the vault's encryption key; prefix with
	// "secret:" to read it from a file instead of inlining it.
	Passphrase ConfigSecret

	KeyDerivation KeyDerivationConfig
}

// KeyDerivationConfig holds key-derivation parameters for the vault's
// encryption key. Nothing in the responder reads it: the vault derives
// its key with PBKDF2-HMAC-SHA-256 at its own fixed iteration count
// and a 32-byte key length, whatever these fields say.
type KeyDerivationConfig struct {
	Iterations int
	KeyLength  int
}

// ConsentConfig points at the durable queue backing consensual-mode
// responses that require an out-of-band grant before they're shaped.
type ConsentConfig struct {
	// QueueDir is the directory OpenQueuedConsentPort persists pending
	// and resolved consent requests under.
	QueueDir string
}

// PolicyConfig points at the access-policy document governing which
// paths each requester may query, and the rate limits applied ahead
// of it.
type PolicyConfig struct {
	// PolicyFile is a YAML document in the shape policy.Load expects.
	PolicyFile string

	// RateLimits maps requester id to its request budget; requesters
	// absent from this map fall back to RateLimitDefault.
	RateLimits       map[string]policy.RateLimit
	RateLimitDefault policy.RateLimit

	// RedisAddr, when non-empty, backs the rate limiter with Redis so
	// limits are enforced across every replica of this responder
	// rather than per-process.
	RedisAddr string
}

// VocabularyConfig lists which vocabulary URIs this responder will
// resolve and serve queries against; any URI absent from Allowed is
// rejected with VOCABULARY_NOT_FOUND before data is ever touched.
type VocabularyConfig struct {
	Allowed []string
	// FetchBaseURL is not read by anything in the responder; the
	// resolver is built without a Fetcher and serves only the
	// built-in vqp:*:v1 set.
	FetchBaseURL string
}

// SyslogConfig controls where the responder's structured logger
// writes, and at what verbosity.
type SyslogConfig struct {
	Network     string
	Server      string
	StdoutLevel *int
	SyslogLevel *int
}

// level resolves a SyslogConfig verbosity field to a log.Level,
// falling back to def when the field was left unset in the document.
func (s SyslogConfig) level(field *int, def log.Level) log.Level {
	if field == nil {
		return def
	}
	return log.Level(*field)
}

// StdoutOrDefault resolves the stdout verbosity, defaulting to Info.
func (s SyslogConfig) StdoutOrDefault() log.Level { return s.level(s.StdoutLevel, log.LevelInfo) }

// SyslogOrDefault resolves the syslog verbosity, defaulting to Err.
func (s SyslogConfig) SyslogOrDefault() log.Level { return s.level(s.SyslogLevel, log.LevelErr) }

// StatsdConfig defines the config for exporting metrics via the
// Prometheus HTTP handler served from Config.DebugAddr.
type StatsdConfig struct {
	Server string
	Prefix string
}

// ConfigDuration is a time.Duration that marshals as a
// ParseDuration-compatible string ("500ms", "10s") rather than JSON's
// default nanosecond integer, so the config document stays readable.
type ConfigDuration struct {
	time.Duration
}

// ErrDurationMustBeString is returned when a ConfigDuration field in
// the document is a JSON number instead of a duration string.
var ErrDurationMustBeString = errors.New("config: durations must be specified as strings, like \"300ms\"")

// UnmarshalJSON implements json.Unmarshaler.
func (d *ConfigDuration) UnmarshalJSON(b []byte) error {
	s := ""
	if err := json.Unmarshal(b, &s); err != nil {
		if _, ok := err.(*json.UnmarshalTypeError); ok {
			return ErrDurationMustBeString
		}
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d ConfigDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

// UnmarshalYAML uses the same format as JSON, but is called by the
// YAML parser (the policy document embeds durations too).
func (d *ConfigDuration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// ConfigSecret is a string field whose value may be given inline or,
// prefixed with "secret:", read from the named file (with a trailing
// newline trimmed) so secrets never need to sit in the document
// itself.
type ConfigSecret string

const secretPrefix = "secret:"

var errSecretMustBeString = errors.New("config: cannot unmarshal a non-string into a ConfigSecret")

// UnmarshalJSON implements json.Unmarshaler.
func (s *ConfigSecret) UnmarshalJSON(b []byte) error {
	raw := ""
	if err := json.Unmarshal(b, &raw); err != nil {
		if _, ok := err.(*json.UnmarshalTypeError); ok {
			return errSecretMustBeString
		}
		return err
	}
	if !strings.HasPrefix(raw, secretPrefix) {
		*s = ConfigSecret(raw)
		return nil
	}
	contents, err := ioutil.ReadFile(raw[len(secretPrefix):])
	if err != nil {
		return err
	}
	*s = ConfigSecret(strings.TrimRight(string(contents), "\n"))
	return nil
}

// Value returns the resolved secret string.
func (s ConfigSecret) Value() string { return string(s) }

// Load reads and unmarshals a Config document from filename.
func Load(filename string) (*Config, error) {
	raw, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
