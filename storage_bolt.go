package wtinspect

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	"unsafe"

	"go.etcd.io/bbolt"
)

// BoltFileName is the file inside the home directory that holds a bolt
// backed engine.
const BoltFileName = "engine.bolt"

type boltStorage struct {
	bdb *bbolt.DB
}

func openBoltStorage(home string, cfg engineConfig) (storage, Status) {
	path := filepath.Join(home, BoltFileName)
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, errnoStatus(err)
		}
		if !cfg.Create || cfg.ReadOnly {
			return nil, StatusENOENT
		}
		if err := os.MkdirAll(home, 0o755); err != nil {
			return nil, errnoStatus(err)
		}
	}

	bopt := *bbolt.DefaultOptions
	bopt.Timeout = time.Second
	bopt.ReadOnly = cfg.ReadOnly
	if cfg.CacheSize > 0 {
		bopt.InitialMmapSize = int(cfg.CacheSize)
	}
	bdb, err := bbolt.Open(path, 0o644, &bopt)
	if err != nil {
		return nil, boltStatus(err)
	}
	return &boltStorage{bdb: bdb}, StatusOK
}

func boltStatus(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, bbolt.ErrTimeout):
		return StatusEBUSY
	case errors.Is(err, bbolt.ErrInvalid), errors.Is(err, bbolt.ErrVersionMismatch), errors.Is(err, bbolt.ErrChecksum):
		return StatusTrySalvage
	case errors.Is(err, bbolt.ErrDatabaseNotOpen), errors.Is(err, bbolt.ErrTxClosed):
		return StatusEINVAL
	}
	return errnoStatus(err)
}

func (s *boltStorage) BeginTx(writable bool) (storageTx, error) {
	btx, err := s.bdb.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &boltStorageTx{btx: btx}, nil
}

func (s *boltStorage) Close() error {
	return s.bdb.Close()
}

type boltStorageTx struct {
	btx *bbolt.Tx
}

func (tx *boltStorageTx) Bucket(name string) (storageBucket, error) {
	b := tx.btx.Bucket(unsafeBytesFromString(name))
	if b == nil {
		return nil, nil
	}
	return boltBucket{b: b}, nil
}

func (tx *boltStorageTx) CreateBucket(name string) (storageBucket, error) {
	b, err := tx.btx.CreateBucketIfNotExists([]byte(name))
	if err != nil {
		return nil, err
	}
	return boltBucket{b: b}, nil
}

func (tx *boltStorageTx) Commit() error { return tx.btx.Commit() }

func (tx *boltStorageTx) Rollback() error {
	err := tx.btx.Rollback()
	if err == bbolt.ErrTxClosed {
		return nil
	}
	return err
}

type boltBucket struct {
	b *bbolt.Bucket
}

func (b boltBucket) Put(key, value []byte) error { return b.b.Put(key, value) }

func (b boltBucket) Cursor() (storageCursor, error) { return boltCursor{c: b.b.Cursor()}, nil }

type boltCursor struct {
	c *bbolt.Cursor
}

func (c boltCursor) First() ([]byte, []byte) { return c.c.First() }

func (c boltCursor) Seek(seek []byte) ([]byte, []byte) { return c.c.Seek(seek) }

func (c boltCursor) Next() ([]byte, []byte) { return c.c.Next() }

func (c boltCursor) Err() error { return nil }

func (c boltCursor) Close() error { return nil }

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
