package wtinspect

import (
	"bytes"
	"fmt"
	"slices"
	"sort"
	"sync"
)

var (
	memHomesMu sync.Mutex
	memHomes   = make(map[string]*memHome)
)

// memHome is the contents of a named in-memory engine home. It outlives
// individual connections so that a home can be seeded and then opened.
type memHome struct {
	mu      sync.Mutex
	cond    *sync.Cond
	buckets map[string]*memBucket
	writer  bool
}

// DropMemoryHome forgets the in-memory engine home with the given name.
func DropMemoryHome(home string) {
	memHomesMu.Lock()
	defer memHomesMu.Unlock()
	delete(memHomes, home)
}

func openMemStorage(home string, cfg engineConfig) (storage, Status) {
	memHomesMu.Lock()
	defer memHomesMu.Unlock()
	h := memHomes[home]
	if h == nil {
		if !cfg.Create || cfg.ReadOnly {
			return nil, StatusENOENT
		}
		h = &memHome{buckets: make(map[string]*memBucket)}
		h.cond = sync.NewCond(&h.mu)
		memHomes[home] = h
	}
	return &memStorage{home: h}, StatusOK
}

// memStorage is one connection to a memHome. Intended for tests.
type memStorage struct {
	home   *memHome
	closed bool
}

func (s *memStorage) BeginTx(writable bool) (storageTx, error) {
	h := s.home
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("storage closed")
	}
	if writable {
		for h.writer {
			h.cond.Wait()
		}
		h.writer = true
	}

	// Read and write txs work on a private copy of the home.
	snap := make(map[string]*memBucket, len(h.buckets))
	for k, b := range h.buckets {
		snap[k] = b.clone()
	}

	return &memTx{
		writable: writable,
		base:     h,
		buckets:  snap,
	}, nil
}

func (s *memStorage) Close() error {
	s.home.mu.Lock()
	defer s.home.mu.Unlock()
	s.closed = true
	return nil
}

type memTx struct {
	base     *memHome
	writable bool
	buckets  map[string]*memBucket
	closed   bool
}

func (tx *memTx) closeLocked() {
	if tx.closed {
		return
	}
	tx.closed = true
	if tx.writable {
		tx.base.writer = false
		tx.base.cond.Broadcast()
	}
}

func (tx *memTx) Bucket(name string) (storageBucket, error) {
	if tx.closed {
		return nil, fmt.Errorf("tx is closed")
	}
	b := tx.buckets[name]
	if b == nil {
		return nil, nil
	}
	return memBucketHandle{tx: tx, b: b}, nil
}

func (tx *memTx) CreateBucket(name string) (storageBucket, error) {
	if tx.closed {
		return nil, fmt.Errorf("tx is closed")
	}
	if !tx.writable {
		return nil, fmt.Errorf("tx not writable")
	}
	b := tx.buckets[name]
	if b == nil {
		b = &memBucket{}
		tx.buckets[name] = b
	}
	return memBucketHandle{tx: tx, b: b}, nil
}

func (tx *memTx) Commit() error {
	if tx.closed {
		return nil
	}
	if !tx.writable {
		return fmt.Errorf("tx not writable")
	}
	tx.base.mu.Lock()
	defer tx.base.mu.Unlock()
	tx.base.buckets = tx.buckets
	tx.closeLocked()
	return nil
}

func (tx *memTx) Rollback() error {
	tx.base.mu.Lock()
	defer tx.base.mu.Unlock()
	tx.closeLocked()
	return nil
}

type memBucket struct {
	items []memKV // sorted by key
}

func (b *memBucket) clone() *memBucket {
	if b == nil {
		return nil
	}
	out := &memBucket{items: make([]memKV, len(b.items))}
	for i, kv := range b.items {
		out.items[i] = memKV{
			key:   slices.Clone(kv.key),
			value: slices.Clone(kv.value),
		}
	}
	return out
}

type memKV struct {
	key   []byte
	value []byte
}

type memBucketHandle struct {
	tx *memTx
	b  *memBucket
}

func (b memBucketHandle) Put(key, value []byte) error {
	if !b.tx.writable {
		return fmt.Errorf("tx not writable")
	}
	key = slices.Clone(key)
	value = slices.Clone(value)

	i, ok := b.find(key)
	if ok {
		b.b.items[i].value = value
		return nil
	}
	b.b.items = slices.Insert(b.b.items, i, memKV{key: key, value: value})
	return nil
}

func (b memBucketHandle) Cursor() (storageCursor, error) {
	return &memCursor{b: b.b, pos: -1}, nil
}

func (b memBucketHandle) find(key []byte) (idx int, ok bool) {
	items := b.b.items
	i := sort.Search(len(items), func(i int) bool {
		return bytes.Compare(items[i].key, key) >= 0
	})
	if i < len(items) && bytes.Equal(items[i].key, key) {
		return i, true
	}
	return i, false
}

type memCursor struct {
	b   *memBucket
	pos int
}

func (c *memCursor) First() ([]byte, []byte) {
	c.pos = 0
	return c.current()
}

func (c *memCursor) Seek(seek []byte) ([]byte, []byte) {
	items := c.b.items
	c.pos = sort.Search(len(items), func(i int) bool {
		return bytes.Compare(items[i].key, seek) >= 0
	})
	return c.current()
}

func (c *memCursor) Next() ([]byte, []byte) {
	if c.pos < 0 {
		return c.First()
	}
	if c.pos < len(c.b.items) {
		c.pos++
	}
	return c.current()
}

func (c *memCursor) current() ([]byte, []byte) {
	if c.pos < 0 || c.pos >= len(c.b.items) {
		return nil, nil
	}
	kv := c.b.items[c.pos]
	return kv.key, kv.value
}

func (c *memCursor) Err() error { return nil }

func (c *memCursor) Close() error { return nil }
