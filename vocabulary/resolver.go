package vocabulary

import (
	"context"
	"fmt"
	"sync"

	"github.com/golang/groupcache/lru"
	"golang.org/x/sync/singleflight"

	berrors "github.com/vqp-project/responder/errors"

	"github.com/vqp-project/responder/core"
)

// defaultCacheEntries bounds the read-mostly schema cache; resolved
// vocabularies are small and rarely evicted in practice.
const defaultCacheEntries = 256

// Resolver implements core.VocabularyPort. It serves the built-in
// vqp:<domain>:v1 schemas directly and falls back to an optional
// external Fetcher for anything else, deduplicating concurrent
// resolutions of the same URI through a singleflight.Group and
// memoizing results in a bounded LRU.
type Resolver struct {
	allowed map[string]struct{}
	fetcher Fetcher

	group singleflight.Group
	mu    sync.Mutex
	cache *lru.Cache
}

// Fetcher resolves a vocabulary URI that isn't one of the built-ins,
// typically by loading a registered external schema document.
type Fetcher interface {
	FetchVocabulary(ctx context.Context, uri string) (*core.VocabularySchema, error)
}

// New builds a Resolver. allowedURIs is the responder's configured
// allow-list; a nil or empty list permits every built-in vocabulary and
// rejects everything a Fetcher would otherwise serve. fetcher may be
// nil, in which case only built-ins resolve.
func New(allowedURIs []string, fetcher Fetcher) *Resolver {
	allowed := make(map[string]struct{}, len(allowedURIs))
	for _, uri := range allowedURIs {
		allowed[uri] = struct{}{}
	}
	return &Resolver{
		allowed: allowed,
		fetcher: fetcher,
		cache:   lru.New(defaultCacheEntries),
	}
}

// IsVocabularyAllowed implements core.VocabularyPort.
func (r *Resolver) IsVocabularyAllowed(ctx context.Context, uri string) (bool, error) {
	if len(r.allowed) == 0 {
		_, isBuiltin := builtin[uri]
		return isBuiltin, nil
	}
	_, ok := r.allowed[uri]
	return ok, nil
}

// ResolveVocabulary implements core.VocabularyPort.
func (r *Resolver) ResolveVocabulary(ctx context.Context, uri string) (*core.VocabularySchema, error) {
	if schema, ok := builtin[uri]; ok {
		return schema, nil
	}

	if cached, ok := r.cacheGet(uri); ok {
		return cached, nil
	}

	if r.fetcher == nil {
		return nil, berrors.VocabularyNotFoundError("no resolver registered for vocabulary %q", uri)
	}

	result, err, _ := r.group.Do(uri, func() (interface{}, error) {
		schema, err := r.fetcher.FetchVocabulary(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("vocabulary: fetching %q: %w", uri, err)
		}
		r.cachePut(uri, schema)
		return schema, nil
	})
	if err != nil {
		return nil, berrors.VocabularyNotFoundError("%s", err)
	}
	return result.(*core.VocabularySchema), nil
}

func (r *Resolver) cacheGet(uri string) (*core.VocabularySchema, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.cache.Get(uri)
	if !ok {
		return nil, false
	}
	return v.(*core.VocabularySchema), true
}

func (r *Resolver) cachePut(uri string, schema *core.VocabularySchema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Add(uri, schema)
}

// Builtin returns the schema registered for uri among the shipped
// vqp:<domain>:v1 vocabularies, for callers (tests, querybuilder) that
// want it without going through the VocabularyPort contract.
func Builtin(uri string) (*core.VocabularySchema, bool) {
	s, ok := builtin[uri]
	return s, ok
}
