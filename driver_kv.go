package wtinspect

// kvDriver implements Driver on top of a sorted key-value storage. Table URIs
// name buckets; record keys are encoded with EncodeRecordKey.
type kvDriver struct {
	name string
	open func(home string, cfg engineConfig) (storage, Status)
}

func (d *kvDriver) Open(home, config string) (DriverConn, Status) {
	cfg, err := parseEngineConfig(config)
	if err != nil {
		return nil, StatusEINVAL
	}
	s, st := d.open(home, cfg)
	if st != StatusOK {
		return nil, st
	}
	return &kvConn{s: s}, StatusOK
}

type kvConn struct {
	s      storage
	closed bool
}

func (c *kvConn) OpenSession(config string) (DriverSession, Status) {
	if c.closed {
		return nil, StatusEINVAL
	}
	if config != "" {
		if _, err := parseConfig(config); err != nil {
			return nil, StatusEINVAL
		}
	}
	tx, err := c.s.BeginTx(false)
	if err != nil {
		return nil, errnoStatus(err)
	}
	return &kvSession{tx: tx}, StatusOK
}

func (c *kvConn) Close(config string) Status {
	if c.closed {
		return StatusEINVAL
	}
	c.closed = true
	if err := c.s.Close(); err != nil {
		return errnoStatus(err)
	}
	return StatusOK
}

type kvSession struct {
	tx     storageTx
	closed bool
}

func (s *kvSession) OpenCursor(uri string, dup DriverCursor, config string) (DriverCursor, Status) {
	if s.closed {
		return nil, StatusEINVAL
	}
	var src *kvCursor
	if dup != nil {
		var ok bool
		src, ok = dup.(*kvCursor)
		if !ok || src.closed {
			return nil, StatusEINVAL
		}
		if uri == "" {
			uri = src.uri
		} else if uri != src.uri {
			return nil, StatusEINVAL
		}
	}
	if uri == "" {
		return nil, StatusEINVAL
	}

	b, err := s.tx.Bucket(uri)
	if err != nil {
		return nil, errnoStatus(err)
	}
	if b == nil {
		return nil, StatusENOENT
	}
	sc, err := b.Cursor()
	if err != nil {
		return nil, errnoStatus(err)
	}
	c := &kvCursor{uri: uri, c: sc}

	if src != nil && src.key != nil {
		k, v := sc.Seek(src.key)
		if k == nil {
			sc.Close()
			return nil, StatusWTError
		}
		c.started = true
		c.key, c.value = k, v
	}
	return c, StatusOK
}

func (s *kvSession) Close(config string) Status {
	if s.closed {
		return StatusEINVAL
	}
	s.closed = true
	if err := s.tx.Rollback(); err != nil {
		return errnoStatus(err)
	}
	return StatusOK
}

type kvCursor struct {
	uri     string
	c       storageCursor
	started bool
	key     []byte
	value   []byte
	closed  bool
}

func (c *kvCursor) Next() Status {
	if c.closed {
		return StatusEINVAL
	}
	var k, v []byte
	if c.started {
		k, v = c.c.Next()
	} else {
		c.started = true
		k, v = c.c.First()
	}
	if k == nil {
		c.key, c.value = nil, nil
		if err := c.c.Err(); err != nil {
			return StatusWTError
		}
		return StatusNotFound
	}
	c.key, c.value = k, v
	return StatusOK
}

func (c *kvCursor) SeekGE(key int64) Status {
	if c.closed {
		return StatusEINVAL
	}
	c.started = true
	k, v := c.c.Seek(EncodeRecordKey(key))
	if k == nil {
		c.key, c.value = nil, nil
		if err := c.c.Err(); err != nil {
			return StatusWTError
		}
		return StatusNotFound
	}
	c.key, c.value = k, v
	return StatusOK
}

func (c *kvCursor) Key() (int64, Status) {
	if c.closed || c.key == nil {
		return 0, StatusEINVAL
	}
	k, ok := DecodeRecordKey(c.key)
	if !ok {
		return 0, StatusWTError
	}
	return k, StatusOK
}

func (c *kvCursor) Value() ([]byte, Status) {
	if c.closed || c.key == nil {
		return nil, StatusEINVAL
	}
	return c.value, StatusOK
}

func (c *kvCursor) Close() Status {
	if c.closed {
		return StatusEINVAL
	}
	c.closed = true
	c.key, c.value = nil, nil
	if err := c.c.Close(); err != nil {
		return errnoStatus(err)
	}
	return StatusOK
}
