package wtinspect

import (
	"errors"
	"fmt"
)

// SeedTable is a table to be written by Seed.
type SeedTable struct {
	URI     string
	Records []RawRecord
}

// Seed writes records into a key-value driver home, creating the home and
// tables as needed. It is test and demo tooling; the engine API itself is
// read-only. Drivers other than the built-in key-value ones return
// ErrNotSeedable.
func Seed(home string, opt Options, tables ...SeedTable) (err error) {
	d, err := lookupDriver(opt.Driver)
	if err != nil {
		return err
	}
	kd, ok := d.(*kvDriver)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotSeedable, opt.Driver)
	}
	cfg, err := parseEngineConfig(opt.Config)
	if err != nil {
		return err
	}
	cfg.Create, cfg.ReadOnly = true, false

	s, st := kd.open(home, cfg)
	if st != StatusOK {
		return statusErr("open", home, st, 1, ErrEngineOpen)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	tx, err := s.BeginTx(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	for _, t := range tables {
		b, err := tx.CreateBucket(t.URI)
		if err != nil {
			return fmt.Errorf("%s: %w", t.URI, err)
		}
		for _, rec := range t.Records {
			if err := b.Put(EncodeRecordKey(rec.Key), rec.Value); err != nil {
				return fmt.Errorf("%s: record %d: %w", t.URI, rec.Key, err)
			}
			n++
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	log := opt.Logger
	if log != nil {
		log.Debug("seeded engine home", "driver", kd.name, "home", home, "tables", len(tables), "records", n)
	}
	return nil
}
