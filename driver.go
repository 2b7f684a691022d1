package wtinspect

import (
	"fmt"
	"slices"
	"sync"
)

// Driver is the raw engine API: every call reports a Status the way the
// engine's C API does, and Env/Session/Cursor turn those into state and
// errors.
type Driver interface {
	Open(home, config string) (DriverConn, Status)
}

type DriverConn interface {
	OpenSession(config string) (DriverSession, Status)
	Close(config string) Status
}

type DriverSession interface {
	// OpenCursor opens a cursor on uri. If dup is non-nil, the new cursor is
	// a duplicate of dup (same table, same position) and uri may be empty.
	OpenCursor(uri string, dup DriverCursor, config string) (DriverCursor, Status)
	Close(config string) Status
}

type DriverCursor interface {
	// Next moves to the next record, returning StatusNotFound past the end.
	Next() Status
	// SeekGE positions the cursor on the first record whose key is >= key,
	// returning StatusNotFound if there is none.
	SeekGE(key int64) Status
	Key() (int64, Status)
	// Value returns the current value. The slice is only valid until the
	// next call to Next or Close.
	Value() ([]byte, Status)
	Close() Status
}

// DefaultDriver is used when Options.Driver is empty.
const DefaultDriver = "bolt"

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name. It panics if the name is taken
// or d is nil.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if d == nil {
		panic("wtinspect: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("wtinspect: Register called twice for driver " + name)
	}
	drivers[name] = d
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func lookupDriver(name string) (Driver, error) {
	if name == "" {
		name = DefaultDriver
	}
	driversMu.RLock()
	d, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownDriver, name, Drivers())
	}
	return d, nil
}

func init() {
	Register("bolt", &kvDriver{name: "bolt", open: openBoltStorage})
	Register("pebble", &kvDriver{name: "pebble", open: openPebbleStorage})
	Register("memory", &kvDriver{name: "memory", open: openMemStorage})
}
