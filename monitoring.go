package wtinspect

import (
	"sync/atomic"
)

// EngineStats are cumulative counters for an Env. They are logged when the
// Env closes if the open config enabled statistics.
type EngineStats struct {
	SessionsOpened uint64
	CursorsOpened  uint64
	Advances       uint64
	BytesRead      uint64
}

type engineCounters struct {
	sessionsOpened atomic.Uint64
	cursorsOpened  atomic.Uint64
	advances       atomic.Uint64
	bytesRead      atomic.Uint64
}

func (env *Env) Stats() EngineStats {
	return EngineStats{
		SessionsOpened: env.counters.sessionsOpened.Load(),
		CursorsOpened:  env.counters.cursorsOpened.Load(),
		Advances:       env.counters.advances.Load(),
		BytesRead:      env.counters.bytesRead.Load(),
	}
}

// ScanStats summarizes one catalog scan.
type ScanStats struct {
	Records   int // records visited
	Entries   int // decoded into a CatalogEntry
	Skipped   int // no ident
	Malformed int
	Bytes     int64 // total value bytes
}

// TableStats describes the records of a single table.
type TableStats struct {
	Records  int
	MinKey   int64
	MaxKey   int64
	DataSize int64
	MaxValue int
}

func (ts *TableStats) AvgValue() int64 {
	if ts.Records == 0 {
		return 0
	}
	return ts.DataSize / int64(ts.Records)
}

func (ts *TableStats) add(rec RawRecord) {
	if ts.Records == 0 || rec.Key < ts.MinKey {
		ts.MinKey = rec.Key
	}
	if ts.Records == 0 || rec.Key > ts.MaxKey {
		ts.MaxKey = rec.Key
	}
	ts.Records++
	ts.DataSize += int64(len(rec.Value))
	ts.MaxValue = max(ts.MaxValue, len(rec.Value))
}
