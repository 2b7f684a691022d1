/*
Package wtinspect reads the catalog of a MongoDB-style storage engine home
and resolves collection namespaces to the idents of their storage files.

The engine is reached through three nested handles:

1. Env, an open engine instance rooted at a home directory.

2. Session, a read-only scope within an Env, needed to open cursors.

3. Cursor, a positioned iterator over one table, in ascending key order.

An Env owns its sessions and a Session owns its cursors. Closing a parent
closes its children first, newest first, so resources are always released
cursor, session, environment. Every handle can be closed exactly once.

# Technical Details

**Drivers.**
Handles are implemented on top of a Driver, which mirrors the engine's C API:
every call returns an int32 status. The built-in drivers keep tables in
bbolt buckets, in pebble key prefixes, or in memory. The wiredtiger
subpackage registers a cgo driver for real engine homes.

**Statuses.**
Classify maps a status to an Outcome. NotFound ends a scan and is never an
error. Retryable statuses are retried up to Options.MaxRetries times; a
cursor whose advance failed resumes after the last key it delivered. Fatal
and unknown statuses abort the operation with a *StatusError.

**Catalog.**
The catalog table (CatalogURI) holds one BSON document per record. Documents
with an ident describe a collection: ns is its namespace and idxIdent maps
index names to index idents. Documents without an ident are internal and
skipped. A record that can't be decoded yields a *MalformedDocumentError
with the record key; by default the scan records it and moves on.

**Record keys.**
Record keys are int64s. Key-value drivers store them as 8 big-endian bytes
with the sign bit flipped, so that byte order matches numeric order.
*/
package wtinspect
