//go:build wiredtiger && cgo

package wiredtiger

/*
#cgo darwin CFLAGS: -I/usr/local/include
#cgo darwin LDFLAGS: -L/usr/local/lib -Wl,-rpath,/usr/local/lib -lwiredtiger
#cgo linux CFLAGS: -I/usr/local/include
#cgo linux LDFLAGS: -L/usr/local/lib -Wl,-rpath,/usr/local/lib -Wl,-rpath,/usr/lib -Wl,-rpath,/usr/lib/x86_64-linux-gnu -lwiredtiger
#include <stdint.h>
#include <stdlib.h>
#include <wiredtiger.h>

static int wti_conn_open(const char *home, const char *config, WT_CONNECTION **out) {
	return wiredtiger_open(home, NULL, config, out);
}

static int wti_conn_close(WT_CONNECTION *conn, const char *config) {
	return conn->close(conn, config);
}

static int wti_session_open(WT_CONNECTION *conn, const char *config, WT_SESSION **out) {
	return conn->open_session(conn, NULL, config, out);
}

static int wti_session_close(WT_SESSION *session, const char *config) {
	return session->close(session, config);
}

static int wti_cursor_open(WT_SESSION *session, const char *uri, WT_CURSOR *dup, const char *config, WT_CURSOR **out) {
	return session->open_cursor(session, uri, dup, config, out);
}

static int wti_cursor_next(WT_CURSOR *cursor) {
	return cursor->next(cursor);
}

static int wti_cursor_seek_ge(WT_CURSOR *cursor, int64_t key) {
	int exact, err;
	cursor->set_key(cursor, key);
	if ((err = cursor->search_near(cursor, &exact)) != 0) {
		return err;
	}
	if (exact < 0) {
		return cursor->next(cursor);
	}
	return 0;
}

static int wti_cursor_key_i64(WT_CURSOR *cursor, int64_t *key) {
	return cursor->get_key(cursor, key);
}

static int wti_cursor_value_item(WT_CURSOR *cursor, const void **data, size_t *size) {
	WT_ITEM item;
	int err = cursor->get_value(cursor, &item);
	if (err == 0) {
		*data = item.data;
		*size = item.size;
	}
	return err;
}

static int wti_cursor_close(WT_CURSOR *cursor) {
	return cursor->close(cursor);
}
*/
import "C"

import (
	"unsafe"

	"github.com/andreyvit/wtinspect"
)

func init() {
	wtinspect.Register(DriverName, driver{})
}

// cstring returns nil for an empty string, which the engine reads as the
// default configuration.
func cstring(s string) *C.char {
	if s == "" {
		return nil
	}
	return C.CString(s)
}

func free(p *C.char) {
	if p != nil {
		C.free(unsafe.Pointer(p))
	}
}

type driver struct{}

func (driver) Open(home, config string) (wtinspect.DriverConn, wtinspect.Status) {
	chome := C.CString(home)
	defer free(chome)
	cconfig := cstring(config)
	defer free(cconfig)

	var conn *C.WT_CONNECTION
	if rc := C.wti_conn_open(chome, cconfig, &conn); rc != 0 {
		return nil, wtinspect.Status(rc)
	}
	return &connection{conn: conn}, wtinspect.StatusOK
}

type connection struct {
	conn *C.WT_CONNECTION
}

func (c *connection) OpenSession(config string) (wtinspect.DriverSession, wtinspect.Status) {
	cconfig := cstring(config)
	defer free(cconfig)

	var sess *C.WT_SESSION
	if rc := C.wti_session_open(c.conn, cconfig, &sess); rc != 0 {
		return nil, wtinspect.Status(rc)
	}
	return &session{sess: sess}, wtinspect.StatusOK
}

func (c *connection) Close(config string) wtinspect.Status {
	cconfig := cstring(config)
	defer free(cconfig)
	rc := C.wti_conn_close(c.conn, cconfig)
	c.conn = nil
	return wtinspect.Status(rc)
}

type session struct {
	sess *C.WT_SESSION
}

func (s *session) OpenCursor(uri string, dup wtinspect.DriverCursor, config string) (wtinspect.DriverCursor, wtinspect.Status) {
	var dupCursor *C.WT_CURSOR
	if dup != nil {
		dc, ok := dup.(*cursor)
		if !ok {
			return nil, wtinspect.StatusEINVAL
		}
		dupCursor = dc.cur
		// the engine takes the URI from the duplicated cursor
		uri = ""
	}
	curi := cstring(uri)
	defer free(curi)
	cconfig := cstring(config)
	defer free(cconfig)

	var cur *C.WT_CURSOR
	if rc := C.wti_cursor_open(s.sess, curi, dupCursor, cconfig, &cur); rc != 0 {
		return nil, wtinspect.Status(rc)
	}
	return &cursor{cur: cur}, wtinspect.StatusOK
}

func (s *session) Close(config string) wtinspect.Status {
	cconfig := cstring(config)
	defer free(cconfig)
	rc := C.wti_session_close(s.sess, cconfig)
	s.sess = nil
	return wtinspect.Status(rc)
}

type cursor struct {
	cur *C.WT_CURSOR
}

func (c *cursor) Next() wtinspect.Status {
	return wtinspect.Status(C.wti_cursor_next(c.cur))
}

func (c *cursor) SeekGE(key int64) wtinspect.Status {
	return wtinspect.Status(C.wti_cursor_seek_ge(c.cur, C.int64_t(key)))
}

func (c *cursor) Key() (int64, wtinspect.Status) {
	var k C.int64_t
	if rc := C.wti_cursor_key_i64(c.cur, &k); rc != 0 {
		return 0, wtinspect.Status(rc)
	}
	return int64(k), wtinspect.StatusOK
}

// Value returns a view of engine memory, valid until the next Next or Close.
func (c *cursor) Value() ([]byte, wtinspect.Status) {
	var data unsafe.Pointer
	var size C.size_t
	if rc := C.wti_cursor_value_item(c.cur, &data, &size); rc != 0 {
		return nil, wtinspect.Status(rc)
	}
	if size == 0 {
		return []byte{}, wtinspect.StatusOK
	}
	return unsafe.Slice((*byte)(data), int(size)), wtinspect.StatusOK
}

func (c *cursor) Close() wtinspect.Status {
	rc := C.wti_cursor_close(c.cur)
	c.cur = nil
	return wtinspect.Status(rc)
}
