// Package wiredtiger registers a wtinspect driver backed by libwiredtiger.
//
// The driver is only compiled with cgo and the wiredtiger build tag:
//
//	go build -tags wiredtiger ./...
//
// Without the tag, importing this package is a no-op and DriverName is not
// registered.
package wiredtiger

// DriverName is the name the driver is registered under.
const DriverName = "wiredtiger"
