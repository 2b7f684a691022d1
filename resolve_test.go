package wtinspect

import (
	"context"
	"errors"
	"testing"
)

func TestResolver(t *testing.T) {
	d := &fakeDriver{tables: map[string][]RawRecord{CatalogURI: catalogRecords(t)}}
	env := openEnv(t, "h", Options{Driver: registerFake(d)})
	defer closeEnv(t, env)

	r, err := NewResolver(env, ResolverOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	ctx := context.Background()

	e, err := r.Collection(ctx, "test.foo")
	if err != nil {
		t.Fatal(err)
	}
	deepEqual(t, e.Ident, "file:foo.wt")
	deepEqual(t, r.Scans(), 1)

	ident, err := r.Index(ctx, "test.bar", "_id_")
	if err != nil {
		t.Fatal(err)
	}
	deepEqual(t, ident, "index-5")
	deepEqual(t, r.Scans(), 1)

	if _, err := r.Index(ctx, "test.bar", "nope_1"); !errors.Is(err, ErrIndexNotFound) {
		t.Errorf("Index(nope_1) err = %v, wanted ErrIndexNotFound", err)
	}
	deepEqual(t, r.Scans(), 1)

	if _, err := r.Collection(ctx, "test.none"); !errors.Is(err, ErrNamespaceNotFound) {
		t.Errorf("Collection(test.none) err = %v, wanted ErrNamespaceNotFound", err)
	}
	deepEqual(t, r.Scans(), 2)

	ensure(r.Refresh(ctx))
	deepEqual(t, r.Scans(), 3)
	deepEqual(t, env.OpenSessionCount(), 0)
}

func TestResolver_ScanFailure(t *testing.T) {
	d := &fakeDriver{
		tables:     map[string][]RawRecord{CatalogURI: catalogRecords(t)},
		nextFaults: map[int]Status{1: StatusCacheFull},
	}
	env := openEnv(t, "h", Options{Driver: registerFake(d)})
	defer closeEnv(t, env)
	r := must(NewResolver(env, ResolverOptions{MaxEntries: 8}))
	defer r.Close()

	_, err := r.Collection(context.Background(), "test.foo")
	if !IsFatal(err) {
		t.Fatalf("err = %v, wanted fatal", err)
	}
	deepEqual(t, r.Scans(), 0)

	e, err := r.Collection(context.Background(), "test.foo")
	if err != nil {
		t.Fatalf("second lookup failed: %v", err)
	}
	deepEqual(t, e.Namespace, "test.foo")
}
