package wtinspect

// CursorState is the lifecycle stage of a Cursor.
//
//	Created --next ok--> Positioned --next ok--> Positioned
//	Created/Positioned --next not found--> Exhausted
//	any --close--> Closed
type CursorState int

const (
	CursorCreated CursorState = iota
	CursorPositioned
	CursorExhausted
	CursorClosed
)

func (s CursorState) String() string {
	switch s {
	case CursorCreated:
		return "created"
	case CursorPositioned:
		return "positioned"
	case CursorExhausted:
		return "exhausted"
	case CursorClosed:
		return "closed"
	default:
		return "invalid"
	}
}

// RawRecord is one record of a table: its int64 key and raw value bytes.
type RawRecord struct {
	Key   int64
	Value []byte
}

// Cursor iterates one table in ascending key order.
type Cursor struct {
	sess  *Session
	dc    DriverCursor
	uri   string
	state CursorState

	// lastKey is the key of the last record Next moved to, if delivered.
	lastKey   int64
	delivered bool
	// resume is set after a failed advance; the engine may have reset the
	// position, so the next attempt seeks past lastKey instead.
	resume bool
}

func (c *Cursor) URI() string        { return c.uri }
func (c *Cursor) State() CursorState { return c.state }
func (c *Cursor) Session() *Session  { return c.sess }

// Next advances the cursor. It returns false, nil once the table is
// exhausted; advancing again after that is a contract violation.
//
// After a failed advance the cursor is no longer positioned and reads are
// rejected. Retries and later calls to Next continue after the last record
// delivered, so keys never go backwards.
func (c *Cursor) Next() (bool, error) {
	switch c.state {
	case CursorExhausted, CursorClosed:
		return false, contractErr("next", c.state.String())
	}
	env := c.sess.env
	st, attempts := retry(env.maxRetries, env.logger, "next", c.uri, c.advance)
	switch st.Outcome() {
	case Success:
		c.state = CursorPositioned
		env.counters.advances.Add(1)
		return true, nil
	case NotFound:
		c.state = CursorExhausted
		return false, nil
	default:
		c.state = CursorCreated
		return false, statusErr("next", c.uri, st, attempts, nil)
	}
}

func (c *Cursor) advance() Status {
	var st Status
	if c.resume && c.delivered {
		st = c.seekPast(c.lastKey)
	} else {
		st = c.dc.Next()
	}
	switch st.Outcome() {
	case Success:
		k, kst := c.dc.Key()
		if kst != StatusOK {
			c.resume = true
			return kst
		}
		c.lastKey, c.delivered, c.resume = k, true, false
	case NotFound:
		c.resume = false
	default:
		c.resume = true
	}
	return st
}

// seekPast positions the driver cursor on the first record after key.
func (c *Cursor) seekPast(key int64) Status {
	st := c.dc.SeekGE(key)
	if st != StatusOK {
		return st
	}
	k, st := c.dc.Key()
	if st != StatusOK {
		return st
	}
	if k <= key {
		return c.dc.Next()
	}
	return StatusOK
}

func (c *Cursor) Key() (int64, error) {
	if c.state != CursorPositioned {
		return 0, contractErr("read_key", c.state.String())
	}
	k, st := c.dc.Key()
	if st != StatusOK {
		return 0, statusErr("get_key", c.uri, st, 1, nil)
	}
	return k, nil
}

// Value returns the current record's value. The returned slice is owned by
// the engine and only valid until the next call to Next or Close.
func (c *Cursor) Value() ([]byte, error) {
	if c.state != CursorPositioned {
		return nil, contractErr("read_value", c.state.String())
	}
	v, st := c.dc.Value()
	if st != StatusOK {
		return nil, statusErr("get_value", c.uri, st, 1, nil)
	}
	c.sess.env.counters.bytesRead.Add(uint64(len(v)))
	return v, nil
}

// Record returns the current key and a copy of the current value.
func (c *Cursor) Record() (RawRecord, error) {
	k, err := c.Key()
	if err != nil {
		return RawRecord{}, err
	}
	v, err := c.Value()
	if err != nil {
		return RawRecord{}, err
	}
	return RawRecord{k, append([]byte(nil), v...)}, nil
}

// Close releases the cursor. Closing twice is a contract violation.
func (c *Cursor) Close() error {
	if c.state == CursorClosed {
		return contractErr("close", c.state.String())
	}
	err := c.close()
	c.sess.removeCursor(c)
	return err
}

func (c *Cursor) close() error {
	if c.state == CursorClosed {
		return nil
	}
	c.state = CursorClosed
	if st := c.dc.Close(); st != StatusOK {
		return statusErr("close_cursor", c.uri, st, 1, nil)
	}
	return nil
}
