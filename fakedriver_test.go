package wtinspect

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var fakeDriverSeq atomic.Int64

// fakeDriver serves tables from memory, injects statuses and records the
// order in which handles are closed.
type fakeDriver struct {
	tables map[string][]RawRecord

	// openFaults are returned by successive Open calls before one succeeds.
	openFaults []Status
	// nextFaults maps the n-th Next call (1-based, across cursors) to a status.
	nextFaults map[int]Status
	// resetOnFault makes a faulted cursor lose its position, as the engine
	// does after a failed operation.
	resetOnFault bool

	mu        sync.Mutex
	nextCalls int
	seeks     int
	reads     int
	events    []string
}

func registerFake(d *fakeDriver) string {
	name := fmt.Sprintf("fake-%d", fakeDriverSeq.Add(1))
	Register(name, d)
	return name
}

func (d *fakeDriver) log(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, fmt.Sprintf(format, args...))
}

func (d *fakeDriver) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

func (d *fakeDriver) Open(home, config string) (DriverConn, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.openFaults) > 0 {
		st := d.openFaults[0]
		d.openFaults = d.openFaults[1:]
		return nil, st
	}
	return &fakeConn{d}, StatusOK
}

type fakeConn struct{ d *fakeDriver }

func (c *fakeConn) OpenSession(config string) (DriverSession, Status) {
	return &fakeSession{c.d}, StatusOK
}

func (c *fakeConn) Close(config string) Status {
	c.d.log("close conn")
	return StatusOK
}

type fakeSession struct{ d *fakeDriver }

func (s *fakeSession) OpenCursor(uri string, dup DriverCursor, config string) (DriverCursor, Status) {
	if dup != nil {
		src := dup.(*fakeCursor)
		return &fakeCursor{d: s.d, uri: src.uri, records: src.records, pos: src.pos}, StatusOK
	}
	records, ok := s.d.tables[uri]
	if !ok {
		return nil, StatusENOENT
	}
	return &fakeCursor{d: s.d, uri: uri, records: records, pos: -1}, StatusOK
}

func (s *fakeSession) Close(config string) Status {
	s.d.log("close session")
	return StatusOK
}

type fakeCursor struct {
	d       *fakeDriver
	uri     string
	records []RawRecord
	pos     int
}

func (c *fakeCursor) Next() Status {
	c.d.mu.Lock()
	c.d.nextCalls++
	st, fault := c.d.nextFaults[c.d.nextCalls]
	reset := c.d.resetOnFault
	c.d.mu.Unlock()
	if fault {
		if reset {
			c.pos = -1
		}
		return st
	}
	if c.pos+1 >= len(c.records) {
		c.pos = len(c.records)
		return StatusNotFound
	}
	c.pos++
	return StatusOK
}

func (c *fakeCursor) SeekGE(key int64) Status {
	c.d.mu.Lock()
	c.d.seeks++
	c.d.mu.Unlock()
	c.pos = len(c.records)
	for i, rec := range c.records {
		if rec.Key >= key {
			c.pos = i
			return StatusOK
		}
	}
	return StatusNotFound
}

func (c *fakeCursor) Key() (int64, Status) {
	if c.pos < 0 || c.pos >= len(c.records) {
		return 0, StatusEINVAL
	}
	return c.records[c.pos].Key, StatusOK
}

func (c *fakeCursor) Value() ([]byte, Status) {
	if c.pos < 0 || c.pos >= len(c.records) {
		return nil, StatusEINVAL
	}
	c.d.mu.Lock()
	c.d.reads++
	c.d.mu.Unlock()
	return c.records[c.pos].Value, StatusOK
}

func (c *fakeCursor) Close() Status {
	c.d.log("close cursor %s", c.uri)
	return StatusOK
}
