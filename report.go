package wtinspect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/vmihailenco/msgpack/v5"
)

type ReportFormat int

const (
	ReportText ReportFormat = iota
	ReportJSON
	ReportMsgpack
)

var reportFormatNames = []string{"text", "json", "msgpack"}

func (f ReportFormat) String() string {
	if f >= 0 && int(f) < len(reportFormatNames) {
		return reportFormatNames[f]
	}
	return fmt.Sprintf("ReportFormat(%d)", int(f))
}

func ParseReportFormat(s string) (ReportFormat, error) {
	for i, name := range reportFormatNames {
		if strings.EqualFold(s, name) {
			return ReportFormat(i), nil
		}
	}
	return 0, fmt.Errorf("unknown report format %q (wanted one of %s)", s, strings.Join(reportFormatNames, ", "))
}

type catalogReport struct {
	Entries   []CatalogEntry    `json:"entries" msgpack:"entries"`
	Malformed []malformedReport `json:"malformed,omitempty" msgpack:"malformed,omitempty"`
	Stats     ScanStats         `json:"stats" msgpack:"stats"`
}

type malformedReport struct {
	Key    int64  `json:"key" msgpack:"key"`
	Reason string `json:"reason" msgpack:"reason"`
}

// WriteReport writes the catalog in the given format. Text output has one
// block per collection, in catalog order, with indexes sorted by name.
func WriteReport(w io.Writer, cat *Catalog, f ReportFormat) error {
	switch f {
	case ReportText:
		return writeTextReport(w, cat)
	case ReportJSON, ReportMsgpack:
		rep := catalogReport{
			Entries: cat.Entries,
			Stats:   cat.Stats,
		}
		if rep.Entries == nil {
			rep.Entries = []CatalogEntry{}
		}
		for _, me := range cat.Malformed {
			rep.Malformed = append(rep.Malformed, malformedReport{me.Key, me.Reason})
		}
		if f == ReportMsgpack {
			return msgpack.NewEncoder(w).Encode(&rep)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(&rep)
	default:
		return fmt.Errorf("unknown report format %v", f)
	}
}

func writeTextReport(w io.Writer, cat *Catalog) error {
	var buf strings.Builder
	for _, e := range cat.Entries {
		fmt.Fprintf(&buf, "collection %q is file %q\n", e.Namespace, e.Ident)
		if len(e.IndexIdents) > 0 {
			buf.WriteString("indexes:\n")
			for _, name := range e.IndexNames() {
				fmt.Fprintf(&buf, "\t%s : %q\n", name, e.IndexIdents[name])
			}
		}
		buf.WriteByte('\n')
	}
	for _, me := range cat.Malformed {
		fmt.Fprintf(&buf, "malformed record %d: %s\n", me.Key, me.Reason)
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

type DumpFlags uint64

const (
	DumpTableHeaders = DumpFlags(1 << iota)
	DumpRows
	DumpStats

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

const dumpPreviewLen = 32

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// WriteTableDump writes a raw dump of records: one line per record with its
// key, size and a hex preview of the value.
func WriteTableDump(w io.Writer, uri string, records []RawRecord, f DumpFlags) error {
	var ts TableStats
	for _, rec := range records {
		ts.add(rec)
	}

	var buf strings.Builder
	if f.Contains(DumpTableHeaders) {
		fmt.Fprintln(&buf, dumpSep1)
		fmt.Fprintf(&buf, "%s (%d records)\n", uri, ts.Records)
	}
	if f.Contains(DumpStats) {
		fmt.Fprintf(&buf, "%s.stats: min_key = %d, max_key = %d, data_size = %s, avg_value = %s, max_value = %s\n",
			uri, ts.MinKey, ts.MaxKey,
			humanize.IBytes(uint64(ts.DataSize)), humanize.IBytes(uint64(ts.AvgValue())), humanize.IBytes(uint64(ts.MaxValue)))
	}
	if f.Contains(DumpRows) {
		if f.Contains(DumpStats) {
			fmt.Fprintln(&buf, dumpSep2)
		}
		for _, rec := range records {
			fmt.Fprintf(&buf, "%s.%d = (%s) %s\n", uri, rec.Key, humanize.IBytes(uint64(len(rec.Value))), hexPreview(rec.Value, dumpPreviewLen))
		}
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

// Dump scans uri and writes it with WriteTableDump.
func (s *Session) Dump(ctx context.Context, w io.Writer, uri string, f DumpFlags) error {
	var records []RawRecord
	_, err := ScanTable(ctx, s, uri, func(rec RawRecord) error {
		records = append(records, RawRecord{rec.Key, append([]byte(nil), rec.Value...)})
		return nil
	})
	if err != nil {
		return err
	}
	return WriteTableDump(w, uri, records, f)
}
