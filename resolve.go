package wtinspect

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
)

const defaultResolverEntries = 1024

type ResolverOptions struct {
	// MaxEntries bounds the number of cached namespaces. Defaults to 1024.
	MaxEntries int64

	Read ReadOptions
}

// Resolver maps collection namespaces to idents, caching what it learns
// from the catalog. A lookup that misses the cache rereads the catalog once.
type Resolver struct {
	env   *Env
	opt   ResolverOptions
	cache *ristretto.Cache[string, CatalogEntry]

	mu    sync.Mutex
	scans int
}

func NewResolver(env *Env, opt ResolverOptions) (*Resolver, error) {
	if opt.MaxEntries <= 0 {
		opt.MaxEntries = defaultResolverEntries
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, CatalogEntry]{
		NumCounters:        opt.MaxEntries * 10,
		MaxCost:            opt.MaxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("resolver cache: %w", err)
	}
	return &Resolver{env: env, opt: opt, cache: cache}, nil
}

// Collection returns the catalog entry of ns, or an error wrapping
// ErrNamespaceNotFound.
func (r *Resolver) Collection(ctx context.Context, ns string) (CatalogEntry, error) {
	if e, ok := r.cache.Get(ns); ok {
		return e, nil
	}
	cat, err := r.refresh(ctx)
	if err != nil {
		return CatalogEntry{}, err
	}
	if e, ok := cat.Lookup(ns); ok {
		return e, nil
	}
	return CatalogEntry{}, fmt.Errorf("%w: %s", ErrNamespaceNotFound, ns)
}

// Index returns the ident of the named index of ns.
func (r *Resolver) Index(ctx context.Context, ns, name string) (string, error) {
	e, err := r.Collection(ctx, ns)
	if err != nil {
		return "", err
	}
	ident, ok := e.IndexIdents[name]
	if !ok {
		return "", fmt.Errorf("%w: %s index %s", ErrIndexNotFound, ns, name)
	}
	return ident, nil
}

// Refresh rereads the catalog and replaces the cached entries.
func (r *Resolver) Refresh(ctx context.Context) error {
	_, err := r.refresh(ctx)
	return err
}

func (r *Resolver) refresh(ctx context.Context) (*Catalog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cat *Catalog
	err := r.env.View(func(sess *Session) error {
		var err error
		cat, err = ReadCatalog(ctx, sess, r.opt.Read)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.scans++

	r.cache.Clear()
	for _, e := range cat.Entries {
		r.cache.Set(e.Namespace, e, 1)
	}
	r.cache.Wait()
	r.env.logger.Debug("resolver refreshed", "entries", len(cat.Entries), "scans", r.scans)
	return cat, nil
}

// Scans returns how many times the catalog has been read.
func (r *Resolver) Scans() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scans
}

func (r *Resolver) Close() {
	r.cache.Close()
}
