package wtinspect

// storage is a sorted key-value backend that the kv driver turns into an
// engine: tables become buckets, sessions become read transactions.
type storage interface {
	// BeginTx starts a new transaction. Read transactions are snapshots.
	BeginTx(writable bool) (storageTx, error)
	// Close closes the storage.
	Close() error
}

type storageTx interface {
	// Bucket returns the named bucket, or nil if it doesn't exist.
	Bucket(name string) (storageBucket, error)

	// CreateBucket creates a bucket if it doesn't exist. Writable txs only.
	CreateBucket(name string) (storageBucket, error)

	Commit() error

	// Rollback aborts the transaction. It should be safe to call multiple times.
	Rollback() error
}

type storageBucket interface {
	// Put stores a key-value pair. Writable txs only.
	Put(key, value []byte) error

	// Cursor returns a cursor for iteration. The caller must close it.
	Cursor() (storageCursor, error)
}

// storageCursor iterates over a sorted bucket. Returned slices are only
// valid until the next call on the cursor or the end of the transaction.
type storageCursor interface {
	// First moves to the first key-value pair.
	First() (key, value []byte)

	// Seek moves to the first key >= seek.
	Seek(seek []byte) (key, value []byte)

	// Next moves to the next key-value pair.
	Next() (key, value []byte)

	// Err returns an error that made the last move return a nil key, if any.
	Err() error

	Close() error
}
