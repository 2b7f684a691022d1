package wtinspect

import (
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// CatalogURI is the table holding one BSON document per collection.
const CatalogURI = "table:_mdb_catalog"

// minDocumentSize is the size of an empty BSON document: int32 length and
// the trailing NUL.
const minDocumentSize = 5

// CatalogEntry maps a collection namespace to the ident of its storage file
// and the idents of its indexes.
type CatalogEntry struct {
	Key         int64             `json:"key" msgpack:"key"`
	Namespace   string            `json:"ns" msgpack:"ns"`
	Ident       string            `json:"ident" msgpack:"ident"`
	IndexIdents map[string]string `json:"idxIdent,omitempty" msgpack:"idxIdent,omitempty"`
}

// IndexNames returns the index names in sorted order.
func (e *CatalogEntry) IndexNames() []string {
	names := make([]string, 0, len(e.IndexIdents))
	for name := range e.IndexIdents {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DecodeCatalogEntry decodes a catalog record value.
//
// Records without an ident are internal bookkeeping; for them ok is false and
// err is nil. Every decoding failure is a *MalformedDocumentError carrying
// key. A top-level ns takes precedence over md.ns.
func DecodeCatalogEntry(key int64, data []byte) (entry CatalogEntry, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			entry, ok = CatalogEntry{}, false
			err = malformedf(key, data, nil, "decoder panic: %v", r)
		}
	}()

	if len(data) < minDocumentSize {
		return entry, false, malformedf(key, data, nil, "truncated document: %d bytes", len(data))
	}
	length, _, lenOK := bsoncore.ReadLength(data)
	if !lenOK || length < minDocumentSize || int64(length) > int64(len(data)) {
		return entry, false, malformedf(key, data, nil, "truncated document: declared %d bytes, have %d", length, len(data))
	}
	if int(length) != len(data) {
		return entry, false, malformedf(key, data, nil, "declared length %d does not match %d bytes", length, len(data))
	}

	doc := bson.Raw(data)
	if err := doc.Validate(); err != nil {
		return entry, false, malformedf(key, data, err, "invalid document")
	}
	fields, err := lookupFields(doc, "ident", "ns", "idxIdent", "md")
	if err != nil {
		return entry, false, malformedf(key, data, err, "invalid document")
	}

	identVal, found := fields["ident"]
	if !found {
		return CatalogEntry{Key: key}, false, nil
	}
	ident, isStr := identVal.StringValueOK()
	if !isStr {
		return entry, false, malformedf(key, data, nil, "ident is %v, wanted string", identVal.Type)
	}

	nsVal, found := fields["ns"]
	if !found {
		if md, isDoc := fields["md"].DocumentOK(); isDoc {
			mdFields, err := lookupFields(md, "ns")
			if err != nil {
				return entry, false, malformedf(key, data, err, "invalid md")
			}
			nsVal, found = mdFields["ns"]
		}
	}
	if !found {
		return entry, false, malformedf(key, data, nil, "ident %q without ns", ident)
	}
	ns, isStr := nsVal.StringValueOK()
	if !isStr {
		return entry, false, malformedf(key, data, nil, "ns is %v, wanted string", nsVal.Type)
	}

	entry = CatalogEntry{
		Key:       key,
		Namespace: ns,
		Ident:     ident,
	}

	if idxVal, found := fields["idxIdent"]; found {
		sub, isDoc := idxVal.DocumentOK()
		if !isDoc {
			return CatalogEntry{}, false, malformedf(key, data, nil, "idxIdent is %v, wanted document", idxVal.Type)
		}
		elems, err := sub.Elements()
		if err != nil {
			return CatalogEntry{}, false, malformedf(key, data, err, "invalid idxIdent")
		}
		if len(elems) > 0 {
			entry.IndexIdents = make(map[string]string, len(elems))
		}
		for _, elem := range elems {
			name := elem.Key()
			v := elem.Value()
			s, isStr := v.StringValueOK()
			if !isStr {
				return CatalogEntry{}, false, malformedf(key, data, nil, "idxIdent.%s is %v, wanted string", name, v.Type)
			}
			entry.IndexIdents[name] = s
		}
	}
	return entry, true, nil
}

// lookupFields returns the first occurrence of each of the named top-level
// fields present in doc.
func lookupFields(doc bson.Raw, names ...string) (map[string]bson.RawValue, error) {
	elems, err := doc.Elements()
	if err != nil {
		return nil, err
	}
	result := make(map[string]bson.RawValue, len(names))
	for _, elem := range elems {
		k := elem.Key()
		if !slices.Contains(names, k) {
			continue
		}
		if _, dup := result[k]; !dup {
			result[k] = elem.Value()
		}
	}
	return result, nil
}
