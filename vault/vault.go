package vault

import (
	"context"
	"sync"
	"time"

	"github.com/jmhodges/clock"

	"github.com/vqp-project/responder/core"
)

// Vault is the in-memory, decrypted view of a hierarchical data
// mapping. It is the only place the plaintext is observable; nothing
// outside this package holds a reference to it.
type Vault struct {
	mu      sync.RWMutex
	data    map[string]interface{}
	policy  Authorizer
	clk     clock.Clock
	cacheMu sync.Mutex
	cache   map[string]cacheEntry
}

type cacheEntry struct {
	value interface{}
	found bool
}

// Authorizer decides whether a requester may read a given dotted path.
// policy.Policy implements this.
type Authorizer interface {
	Authorize(requester, dottedPath string, now time.Time) bool
}

// New wraps an already-decrypted plaintext mapping. policy may be nil,
// in which case ValidateDataAccess always grants access. clk defaults
// to the real wall clock if nil; tests inject a jmhodges/clock.Fake to
// drive rate-limit windows deterministically.
func New(data map[string]interface{}, policy Authorizer, clk clock.Clock) *Vault {
	if clk == nil {
		clk = clock.New()
	}
	return &Vault{
		data:   data,
		policy: policy,
		clk:    clk,
		cache:  make(map[string]cacheEntry),
	}
}

// GetData implements core.DataPort. A missing path yields (nil, false,
// nil) — undefined, not a fault.
func (v *Vault) GetData(ctx context.Context, path []string) (interface{}, bool, error) {
	key := dottedKey(path)

	v.cacheMu.Lock()
	if entry, ok := v.cache[key]; ok {
		v.cacheMu.Unlock()
		return entry.value, entry.found, nil
	}
	v.cacheMu.Unlock()

	v.mu.RLock()
	value, found := lookupPath(v.data, path)
	v.mu.RUnlock()

	v.cacheMu.Lock()
	v.cache[key] = cacheEntry{value: value, found: found}
	v.cacheMu.Unlock()

	return value, found, nil
}

// HasData implements core.DataPort.
func (v *Vault) HasData(ctx context.Context, path []string) (bool, error) {
	_, found, err := v.GetData(ctx, path)
	return found, err
}

// ValidateDataAccess implements core.DataPort. It never returns an
// error itself; a false result is converted to an UNAUTHORIZED fault
// by the caller (the engine), per the access-policy contract.
func (v *Vault) ValidateDataAccess(ctx context.Context, path []string, requester string) (bool, error) {
	if v.policy == nil {
		return true, nil
	}
	return v.policy.Authorize(requester, dottedKey(path), v.clk.Now()), nil
}

// replaceData swaps the plaintext wholesale and invalidates the
// getData cache. Store does not call it; Save clears the cache itself.
func (v *Vault) replaceData(data map[string]interface{}) {
	v.mu.Lock()
	v.data = data
	v.mu.Unlock()

	v.cacheMu.Lock()
	v.cache = make(map[string]cacheEntry)
	v.cacheMu.Unlock()
}

// snapshot returns the current plaintext for serialization by Store.
func (v *Vault) snapshot() map[string]interface{} {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.data
}

func lookupPath(data map[string]interface{}, path []string) (interface{}, bool) {
	var cur interface{} = data
	for _, seg := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func dottedKey(path []string) string {
	out := ""
	for i, seg := range path {
		if i > 0 {
			out += "."
		}
		out += seg
	}
	return out
}

var _ core.DataPort = (*Vault)(nil)
