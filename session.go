package wtinspect

import (
	"errors"
	"slices"
	"time"
)

// Session is a unit of interaction with an Env. It owns the cursors opened
// from it. A Session must not be used from multiple goroutines at once.
type Session struct {
	env       *Env
	ds        DriverSession
	startTime time.Time
	cursors   []*Cursor
	closed    bool
}

type CursorOptions struct {
	// DuplicateOf, if set, makes the new cursor a copy of an open cursor of
	// the same session: same table and same position.
	DuplicateOf *Cursor

	Config string
}

func (s *Session) Env() *Env { return s.env }

// OpenCursor opens a cursor on a table URI. A failure wraps ErrCursorOpen.
// uri may be empty when opts.DuplicateOf is set.
func (s *Session) OpenCursor(uri string, opts CursorOptions) (*Cursor, error) {
	if s.closed {
		return nil, contractErr("open_cursor", "closed session")
	}

	var dupDriver DriverCursor
	state := CursorCreated
	if dup := opts.DuplicateOf; dup != nil {
		if dup.sess != s {
			return nil, contractErr("open_cursor duplicate", "cursor of another session")
		}
		if dup.state == CursorClosed {
			return nil, contractErr("open_cursor duplicate", dup.state.String())
		}
		if uri == "" {
			uri = dup.uri
		}
		dupDriver = dup.dc
		if dup.state == CursorPositioned {
			state = CursorPositioned
		}
	}

	var dc DriverCursor
	st, attempts := retry(s.env.maxRetries, s.env.logger, "open_cursor", uri, func() Status {
		var st Status
		dc, st = s.ds.OpenCursor(uri, dupDriver, opts.Config)
		return st
	})
	if st != StatusOK {
		s.env.logger.Warn("failed to open cursor", "uri", uri, "status", st.String())
		return nil, statusErr("open_cursor", uri, st, attempts, ErrCursorOpen)
	}

	c := &Cursor{
		sess:  s,
		dc:    dc,
		uri:   uri,
		state: state,
	}
	if state == CursorPositioned {
		c.lastKey, c.delivered = opts.DuplicateOf.lastKey, opts.DuplicateOf.delivered
	}
	s.cursors = append(s.cursors, c)
	s.env.counters.cursorsOpened.Add(1)
	return c, nil
}

func (s *Session) OpenCursorCount() int {
	return len(s.cursors)
}

// Close closes the session's open cursors, newest first, and then the
// session itself. Closing twice is a contract violation.
func (s *Session) Close() error {
	if s.closed {
		return contractErr("close", "closed session")
	}
	return s.close()
}

func (s *Session) close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for i := len(s.cursors) - 1; i >= 0; i-- {
		if err := s.cursors[i].close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.cursors = nil

	if st := s.ds.Close(""); st != StatusOK {
		errs = append(errs, statusErr("close_session", s.env.home, st, 1, nil))
	}
	s.env.removeSession(s)
	s.env.logger.Debug("session closed", "duration", time.Since(s.startTime))
	return errors.Join(errs...)
}

func (s *Session) removeCursor(c *Cursor) {
	if i := slices.Index(s.cursors, c); i >= 0 {
		s.cursors = slices.Delete(s.cursors, i, i+1)
	}
}
