package wtinspect

import (
	"errors"
	"io/fs"
	"os"

	"github.com/cockroachdb/pebble"
)

// Pebble has a single keyspace, so tables are simulated via key-prefixing:
// each record lives under uri + '\x00' + key, keeping tables sorted in
// disjoint ranges. Table existence is recorded separately under
// pebbleTableRegistry + uri, because an empty table has no records to find.
const pebbleTableRegistry = "\x00tables\x00"

type pebbleStorage struct {
	db *pebble.DB
}

func openPebbleStorage(home string, cfg engineConfig) (storage, Status) {
	if _, err := os.Stat(home); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, errnoStatus(err)
		}
		if !cfg.Create || cfg.ReadOnly {
			return nil, StatusENOENT
		}
	}

	opts := &pebble.Options{
		ErrorIfNotExists: !cfg.Create,
		ReadOnly:         cfg.ReadOnly,
	}
	if cfg.CacheSize > 0 {
		cache := pebble.NewCache(cfg.CacheSize)
		defer cache.Unref()
		opts.Cache = cache
	}

	db, err := pebble.Open(home, opts)
	if err != nil {
		return nil, pebbleStatus(err)
	}
	return &pebbleStorage{db: db}, StatusOK
}

func pebbleStatus(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, fs.ErrNotExist):
		return StatusENOENT
	case errors.Is(err, pebble.ErrClosed):
		return StatusEINVAL
	}
	return errnoStatus(err)
}

func (s *pebbleStorage) BeginTx(writable bool) (storageTx, error) {
	if writable {
		return &pebbleWriteTx{db: s.db, batch: s.db.NewBatch()}, nil
	}
	return &pebbleReadTx{snap: s.db.NewSnapshot()}, nil
}

func (s *pebbleStorage) Close() error {
	return s.db.Close()
}

type pebbleReadTx struct {
	snap   *pebble.Snapshot
	closed bool
}

func (tx *pebbleReadTx) Bucket(name string) (storageBucket, error) {
	_, closer, err := tx.snap.Get(pebbleRegistryKey(name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	closer.Close()
	return pebbleBucket{reader: tx.snap, name: name}, nil
}

func (tx *pebbleReadTx) CreateBucket(name string) (storageBucket, error) {
	return nil, errors.New("tx not writable")
}

func (tx *pebbleReadTx) Commit() error { return errors.New("tx not writable") }

func (tx *pebbleReadTx) Rollback() error {
	if tx.closed {
		return nil
	}
	tx.closed = true
	return tx.snap.Close()
}

type pebbleWriteTx struct {
	db     *pebble.DB
	batch  *pebble.Batch
	closed bool
}

func (tx *pebbleWriteTx) Bucket(name string) (storageBucket, error) {
	_, closer, err := tx.db.Get(pebbleRegistryKey(name))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	closer.Close()
	return pebbleBucket{batch: tx.batch, name: name}, nil
}

func (tx *pebbleWriteTx) CreateBucket(name string) (storageBucket, error) {
	if err := tx.batch.Set(pebbleRegistryKey(name), nil, nil); err != nil {
		return nil, err
	}
	return pebbleBucket{batch: tx.batch, name: name}, nil
}

func (tx *pebbleWriteTx) Commit() error {
	if tx.closed {
		return nil
	}
	tx.closed = true
	err := tx.batch.Commit(pebble.Sync)
	if cerr := tx.batch.Close(); err == nil {
		err = cerr
	}
	return err
}

func (tx *pebbleWriteTx) Rollback() error {
	if tx.closed {
		return nil
	}
	tx.closed = true
	return tx.batch.Close()
}

type pebbleBucket struct {
	reader *pebble.Snapshot
	batch  *pebble.Batch
	name   string
}

func (b pebbleBucket) Put(key, value []byte) error {
	if b.batch == nil {
		return errors.New("tx not writable")
	}
	return b.batch.Set(pebblePrefixedKey(b.name, key), value, nil)
}

func (b pebbleBucket) Cursor() (storageCursor, error) {
	if b.reader == nil {
		return nil, errors.New("cursor requires a read tx")
	}
	prefix := pebblePrefixedKey(b.name, nil)
	iter, err := b.reader.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: pebbleUpperBound(b.name),
	})
	if err != nil {
		return nil, err
	}
	return &pebbleCursor{iter: iter, prefix: prefix}, nil
}

type pebbleCursor struct {
	iter   *pebble.Iterator
	prefix []byte
	err    error
}

func (c *pebbleCursor) First() ([]byte, []byte) { return c.current(c.iter.First()) }

func (c *pebbleCursor) Seek(seek []byte) ([]byte, []byte) {
	target := make([]byte, 0, len(c.prefix)+len(seek))
	target = append(append(target, c.prefix...), seek...)
	return c.current(c.iter.SeekGE(target))
}

func (c *pebbleCursor) Next() ([]byte, []byte) { return c.current(c.iter.Next()) }

func (c *pebbleCursor) current(valid bool) ([]byte, []byte) {
	if !valid {
		c.err = c.iter.Error()
		return nil, nil
	}
	raw := c.iter.Key()
	if len(raw) < len(c.prefix) {
		return nil, nil
	}
	val, err := c.iter.ValueAndErr()
	if err != nil {
		c.err = err
		return nil, nil
	}
	return raw[len(c.prefix):], val
}

func (c *pebbleCursor) Err() error { return c.err }

func (c *pebbleCursor) Close() error { return c.iter.Close() }

// pebblePrefixedKey builds the storage key of a record: uri + '\x00' + key.
func pebblePrefixedKey(name string, key []byte) []byte {
	pk := make([]byte, len(name)+1+len(key))
	copy(pk, name)
	pk[len(name)] = 0x00
	copy(pk[len(name)+1:], key)
	return pk
}

// pebbleUpperBound builds the exclusive upper bound of a table: uri + '\x01'.
func pebbleUpperBound(name string) []byte {
	b := make([]byte, len(name)+1)
	copy(b, name)
	b[len(name)] = 0x01
	return b
}

func pebbleRegistryKey(name string) []byte {
	return append([]byte(pebbleTableRegistry), name...)
}
