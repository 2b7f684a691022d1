package wtinspect

import (
	"bytes"
	"context"
	"errors"
	"slices"
)

// ScanTable walks every record of uri in key order, calling fn for each.
// The record's Value is only valid during the call. The cursor is closed on
// every return path; a scan stops at the first error from the engine, from
// fn, or from ctx.
func ScanTable(ctx context.Context, sess *Session, uri string, fn func(rec RawRecord) error) (stats ScanStats, err error) {
	c, err := sess.OpenCursor(uri, CursorOptions{})
	if err != nil {
		return stats, err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	log := sess.env.logger.With("uri", uri)
	log.Debug("scan started")
	for {
		if err := ctx.Err(); err != nil {
			log.Warn("scan canceled", "records", stats.Records)
			return stats, err
		}
		more, err := c.Next()
		if err != nil {
			log.Error("scan aborted", "err", err, "records", stats.Records)
			return stats, err
		}
		if !more {
			break
		}
		key, err := c.Key()
		if err != nil {
			return stats, err
		}
		value, err := c.Value()
		if err != nil {
			return stats, err
		}
		stats.Records++
		stats.Bytes += int64(len(value))
		if err := fn(RawRecord{key, value}); err != nil {
			return stats, err
		}
	}
	log.Debug("scan finished", "records", stats.Records, "bytes", stats.Bytes)
	return stats, nil
}

// CatalogVisitor receives the outcome of each catalog record. Nil callbacks
// are skipped. Returning an error from Entry or Malformed stops the scan.
type CatalogVisitor struct {
	Entry     func(entry CatalogEntry) error
	Skip      func(key int64)
	Malformed func(err *MalformedDocumentError) error
}

// ScanCatalog decodes every record of the catalog table. Malformed records
// are reported to v.Malformed and do not stop the scan unless it says so.
func ScanCatalog(ctx context.Context, sess *Session, v CatalogVisitor) (ScanStats, error) {
	var counts ScanStats
	log := sess.env.logger
	stats, err := ScanTable(ctx, sess, CatalogURI, func(rec RawRecord) error {
		entry, ok, err := DecodeCatalogEntry(rec.Key, rec.Value)
		switch {
		case err != nil:
			var me *MalformedDocumentError
			if !errors.As(err, &me) {
				return err
			}
			me.Data = bytes.Clone(me.Data)
			counts.Malformed++
			log.Warn("malformed catalog record", "key", rec.Key, "reason", me.Reason)
			if v.Malformed != nil {
				return v.Malformed(me)
			}
		case !ok:
			counts.Skipped++
			if v.Skip != nil {
				v.Skip(rec.Key)
			}
		default:
			counts.Entries++
			if v.Entry != nil {
				return v.Entry(entry)
			}
		}
		return nil
	})
	stats.Entries = counts.Entries
	stats.Skipped = counts.Skipped
	stats.Malformed = counts.Malformed
	return stats, err
}

type ReadOptions struct {
	// Strict makes the first malformed record fail the read.
	Strict bool
}

// Catalog is the decoded content of the catalog table.
type Catalog struct {
	Entries   []CatalogEntry
	Malformed []*MalformedDocumentError
	Stats     ScanStats
}

// Lookup finds the entry for a namespace.
func (cat *Catalog) Lookup(ns string) (CatalogEntry, bool) {
	for _, e := range cat.Entries {
		if e.Namespace == ns {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

func (cat *Catalog) Namespaces() []string {
	names := make([]string, 0, len(cat.Entries))
	for _, e := range cat.Entries {
		names = append(names, e.Namespace)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// ReadCatalog collects the whole catalog. On failure no partial catalog is
// returned.
func ReadCatalog(ctx context.Context, sess *Session, opt ReadOptions) (*Catalog, error) {
	cat := new(Catalog)
	stats, err := ScanCatalog(ctx, sess, CatalogVisitor{
		Entry: func(entry CatalogEntry) error {
			cat.Entries = append(cat.Entries, entry)
			return nil
		},
		Malformed: func(me *MalformedDocumentError) error {
			if opt.Strict {
				return me
			}
			cat.Malformed = append(cat.Malformed, me)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	cat.Stats = stats
	sess.env.logger.Info("catalog read",
		"entries", stats.Entries,
		"skipped", stats.Skipped,
		"malformed", stats.Malformed,
		"bytes", stats.Bytes,
	)
	return cat, nil
}

// ListCatalog opens the environment at home, reads its catalog and closes
// everything again, cursor first and environment last.
func ListCatalog(ctx context.Context, home string, opt Options, ropt ReadOptions) (cat *Catalog, err error) {
	env, err := Open(home, opt)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := env.Close(); cerr != nil {
			cat, err = nil, errors.Join(err, cerr)
		}
	}()

	err = env.View(func(sess *Session) error {
		var rerr error
		cat, rerr = ReadCatalog(ctx, sess, ropt)
		return rerr
	})
	if err != nil {
		return nil, err
	}
	return cat, nil
}

// TableStats scans uri and summarizes its records.
func (s *Session) TableStats(ctx context.Context, uri string) (TableStats, error) {
	var ts TableStats
	_, err := ScanTable(ctx, s, uri, func(rec RawRecord) error {
		ts.add(rec)
		return nil
	})
	return ts, err
}
