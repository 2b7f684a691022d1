package wtinspect

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/andreyvit/wtinspect/pkg/logger"
)

func TestCursor_EmptyTable(t *testing.T) {
	home := "mem:" + t.Name()
	defer DropMemoryHome(home)
	opt := Options{Driver: "memory", Config: DefaultOpenConfig}
	seed(t, home, opt, SeedTable{URI: "table:empty"})

	env := openEnv(t, home, opt)
	defer closeEnv(t, env)
	sess := must(env.OpenSession(""))
	c := must(sess.OpenCursor("table:empty", CursorOptions{}))

	deepEqual(t, c.State(), CursorCreated)
	if _, err := c.Key(); !errors.Is(err, ErrContractViolation) {
		t.Errorf("Key() in created state: err = %v, wanted contract violation", err)
	}

	more, err := c.Next()
	if more || err != nil {
		t.Fatalf("Next() = %v, %v, wanted false, nil", more, err)
	}
	deepEqual(t, c.State(), CursorExhausted)

	if _, err := c.Value(); !errors.Is(err, ErrContractViolation) {
		t.Errorf("Value() when exhausted: err = %v, wanted contract violation", err)
	}
	if _, err := c.Next(); !errors.Is(err, ErrContractViolation) {
		t.Errorf("Next() when exhausted: err = %v, wanted contract violation", err)
	}

	ensure(c.Close())
	deepEqual(t, c.State(), CursorClosed)
	if err := c.Close(); !errors.Is(err, ErrContractViolation) {
		t.Errorf("second Close(): err = %v, wanted contract violation", err)
	}
	if _, err := c.Next(); !errors.Is(err, ErrContractViolation) {
		t.Errorf("Next() when closed: err = %v, wanted contract violation", err)
	}
	if _, err := c.Record(); !errors.Is(err, ErrContractViolation) {
		t.Errorf("Record() when closed: err = %v, wanted contract violation", err)
	}
	deepEqual(t, sess.OpenCursorCount(), 0)
}

func TestCursor_StateSequence(t *testing.T) {
	d := &fakeDriver{tables: map[string][]RawRecord{
		"table:t": {{Key: 1, Value: []byte("a")}, {Key: 2, Value: []byte("b")}, {Key: 2, Value: []byte("c")}},
	}}
	env := openEnv(t, "h", Options{Driver: registerFake(d)})
	defer closeEnv(t, env)
	sess := must(env.OpenSession(""))
	c := must(sess.OpenCursor("table:t", CursorOptions{}))

	states := []CursorState{c.State()}
	var keys []int64
	for {
		more, err := c.Next()
		if err != nil {
			t.Fatal(err)
		}
		states = append(states, c.State())
		if !more {
			break
		}
		keys = append(keys, must(c.Key()))
	}
	e := []CursorState{CursorCreated, CursorPositioned, CursorPositioned, CursorPositioned, CursorExhausted}
	if !slices.Equal(states, e) {
		t.Errorf("states = %v, wanted %v", states, e)
	}
	if !slices.IsSorted(keys) {
		t.Errorf("keys = %v, wanted non-decreasing", keys)
	}
}

func TestCursor_RecordCopiesValue(t *testing.T) {
	value := []byte("abc")
	d := &fakeDriver{tables: map[string][]RawRecord{"table:t": {{Key: 1, Value: value}}}}
	env := openEnv(t, "h", Options{Driver: registerFake(d)})
	defer closeEnv(t, env)
	c := must(must(env.OpenSession("")).OpenCursor("table:t", CursorOptions{}))
	must(c.Next())
	rec := must(c.Record())
	value[0] = 'X'
	deepEqual(t, string(rec.Value), "abc")
}

func TestEnvClose_ClosesChildrenInReverseOrder(t *testing.T) {
	d := &fakeDriver{tables: map[string][]RawRecord{"table:a": nil, "table:b": nil}}
	env := openEnv(t, "h", Options{Driver: registerFake(d)})
	sess := must(env.OpenSession(""))
	a := must(sess.OpenCursor("table:a", CursorOptions{}))
	b := must(sess.OpenCursor("table:b", CursorOptions{}))

	if err := env.Close(); err != nil {
		t.Fatal(err)
	}
	e := []string{"close cursor table:b", "close cursor table:a", "close session", "close conn"}
	if a := d.Events(); !slices.Equal(a, e) {
		t.Errorf("events = %q, wanted %q", a, e)
	}

	deepEqual(t, a.State(), CursorClosed)
	deepEqual(t, b.State(), CursorClosed)
	deepEqual(t, env.OpenSessionCount(), 0)

	for name, err := range map[string]error{
		"env.Close":       env.Close(),
		"sess.Close":      sess.Close(),
		"cursor.Close":    a.Close(),
		"env.OpenSession": second(env.OpenSession("")),
		"sess.OpenCursor": second(sess.OpenCursor("table:a", CursorOptions{})),
		"env.View":        env.View(func(*Session) error { return nil }),
		"cursor.Next":     second(b.Next()),
	} {
		if !errors.Is(err, ErrContractViolation) {
			t.Errorf("%s after close: err = %v, wanted contract violation", name, err)
		}
	}
}

func second[T any](_ T, err error) error {
	return err
}

func TestSessionClose_ClosesCursors(t *testing.T) {
	d := &fakeDriver{tables: map[string][]RawRecord{"table:a": nil}}
	env := openEnv(t, "h", Options{Driver: registerFake(d)})
	defer closeEnv(t, env)

	s1 := must(env.OpenSession(""))
	s2 := must(env.OpenSession(""))
	must(s1.OpenCursor("table:a", CursorOptions{}))
	deepEqual(t, env.OpenSessionCount(), 2)

	ensure(s1.Close())
	deepEqual(t, env.OpenSessionCount(), 1)
	if a, e := d.Events(), []string{"close cursor table:a", "close session"}; !slices.Equal(a, e) {
		t.Errorf("events = %q, wanted %q", a, e)
	}
	ensure(s2.Close())
	deepEqual(t, env.OpenSessionCount(), 0)
}

func TestOpenCursor_DuplicateRules(t *testing.T) {
	d := &fakeDriver{tables: map[string][]RawRecord{"table:a": {{Key: 1}}}}
	env := openEnv(t, "h", Options{Driver: registerFake(d)})
	defer closeEnv(t, env)
	s1 := must(env.OpenSession(""))
	s2 := must(env.OpenSession(""))

	c := must(s1.OpenCursor("table:a", CursorOptions{}))
	if _, err := s2.OpenCursor("", CursorOptions{DuplicateOf: c}); !errors.Is(err, ErrContractViolation) {
		t.Errorf("duplicate across sessions: err = %v, wanted contract violation", err)
	}
	ensure(c.Close())
	if _, err := s1.OpenCursor("", CursorOptions{DuplicateOf: c}); !errors.Is(err, ErrContractViolation) {
		t.Errorf("duplicate of closed cursor: err = %v, wanted contract violation", err)
	}
}

func TestRetry(t *testing.T) {
	newEnv := func(retries int) (*Env, *fakeDriver) {
		d := &fakeDriver{
			tables:     map[string][]RawRecord{"table:t": {{Key: 1}}},
			nextFaults: map[int]Status{1: StatusRestart, 2: StatusRollback},
		}
		return openEnv(t, "h", Options{Driver: registerFake(d), MaxRetries: retries}), d
	}

	t.Run("within budget", func(t *testing.T) {
		env, _ := newEnv(2)
		defer closeEnv(t, env)
		c := must(must(env.OpenSession("")).OpenCursor("table:t", CursorOptions{}))
		more, err := c.Next()
		if !more || err != nil {
			t.Fatalf("Next() = %v, %v, wanted true, nil", more, err)
		}
		deepEqual(t, must(c.Key()), int64(1))
	})

	t.Run("budget exhausted", func(t *testing.T) {
		env, _ := newEnv(1)
		defer closeEnv(t, env)
		c := must(must(env.OpenSession("")).OpenCursor("table:t", CursorOptions{}))
		_, err := c.Next()
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("err = %v, wanted *StatusError", err)
		}
		deepEqual(t, se.Status, StatusRollback)
		deepEqual(t, se.Attempts, 2)
		if !IsFatal(err) {
			t.Errorf("IsFatal = false, wanted true")
		}
		deepEqual(t, c.State(), CursorCreated)
		if _, err := c.Key(); !errors.Is(err, ErrContractViolation) {
			t.Errorf("Key() after failed Next: err = %v, wanted contract violation", err)
		}
	})

	t.Run("no retries", func(t *testing.T) {
		env, d := newEnv(0)
		defer closeEnv(t, env)
		c := must(must(env.OpenSession("")).OpenCursor("table:t", CursorOptions{}))
		_, err := c.Next()
		if OutcomeOf(err) != Retryable {
			t.Fatalf("err = %v, wanted retryable failure", err)
		}
		deepEqual(t, d.nextCalls, 1)
	})
}

func TestRetry_ResumesAfterLastKey(t *testing.T) {
	newEnv := func(retries int) (*Env, *fakeDriver) {
		d := &fakeDriver{
			tables:       map[string][]RawRecord{"table:t": {{Key: 1}, {Key: 2}, {Key: 3}}},
			nextFaults:   map[int]Status{3: StatusRollback},
			resetOnFault: true,
		}
		return openEnv(t, "h", Options{Driver: registerFake(d), MaxRetries: retries}), d
	}

	t.Run("within budget", func(t *testing.T) {
		env, d := newEnv(1)
		defer closeEnv(t, env)
		var keys []int64
		_, err := ScanTable(context.Background(), must(env.OpenSession("")), "table:t", func(rec RawRecord) error {
			keys = append(keys, rec.Key)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if e := []int64{1, 2, 3}; !slices.Equal(keys, e) {
			t.Errorf("keys = %v, wanted %v", keys, e)
		}
		deepEqual(t, d.seeks, 1)
	})

	t.Run("later Next", func(t *testing.T) {
		env, _ := newEnv(0)
		defer closeEnv(t, env)
		c := must(must(env.OpenSession("")).OpenCursor("table:t", CursorOptions{}))
		must(c.Next())
		must(c.Next())
		if _, err := c.Next(); OutcomeOf(err) != Retryable {
			t.Fatalf("err = %v, wanted retryable failure", err)
		}
		more, err := c.Next()
		if !more || err != nil {
			t.Fatalf("Next() = %v, %v, wanted true, nil", more, err)
		}
		deepEqual(t, must(c.Key()), int64(3))
		deepEqual(t, must(c.Next()), false)
	})

	t.Run("fault on last record", func(t *testing.T) {
		d := &fakeDriver{
			tables:       map[string][]RawRecord{"table:t": {{Key: 1}}},
			nextFaults:   map[int]Status{2: StatusRestart},
			resetOnFault: true,
		}
		env := openEnv(t, "h", Options{Driver: registerFake(d), MaxRetries: 1})
		defer closeEnv(t, env)
		c := must(must(env.OpenSession("")).OpenCursor("table:t", CursorOptions{}))
		deepEqual(t, must(c.Next()), true)
		deepEqual(t, must(c.Next()), false)
		deepEqual(t, c.State(), CursorExhausted)
	})
}

func TestOpen_Retry(t *testing.T) {
	d := &fakeDriver{openFaults: []Status{StatusRollback}}
	name := registerFake(d)
	_, err := Open("h", Options{Driver: name})
	if !errors.Is(err, ErrEngineOpen) {
		t.Fatalf("err = %v, wanted ErrEngineOpen", err)
	}

	d.openFaults = []Status{StatusRollback}
	env, err := Open("h", Options{Driver: name, MaxRetries: 1})
	if err != nil {
		t.Fatalf("Open with retries failed: %v", err)
	}
	ensure(env.Close())
}

func TestNext_UnknownStatus(t *testing.T) {
	d := &fakeDriver{
		tables:     map[string][]RawRecord{"table:t": {{Key: 1}}},
		nextFaults: map[int]Status{1: StatusPrepareConflict},
	}
	env := openEnv(t, "h", Options{Driver: registerFake(d), MaxRetries: 5})
	defer closeEnv(t, env)
	c := must(must(env.OpenSession("")).OpenCursor("table:t", CursorOptions{}))

	_, err := c.Next()
	if err == nil || IsFatal(err) || OutcomeOf(err) != Unknown {
		t.Fatalf("err = %v, wanted a non-fatal unknown failure", err)
	}
	deepEqual(t, d.nextCalls, 1)

	more, err := c.Next()
	if !more || err != nil {
		t.Fatalf("Next() after unknown failure = %v, %v, wanted true, nil", more, err)
	}
}

func TestEnv_StatsAndLogging(t *testing.T) {
	var buf bytes.Buffer
	log := must(logger.NewWriter(&buf, "info"))

	home := "mem:" + t.Name()
	defer DropMemoryHome(home)
	opt := Options{Driver: "memory", Config: DefaultOpenConfig, Logger: log}
	seed(t, home, opt, SeedTable{URI: "table:t", Records: []RawRecord{{Key: 1, Value: []byte("ab")}, {Key: 2, Value: []byte("cde")}}})

	env := openEnv(t, home, opt)
	sess := must(env.OpenSession(""))
	c := must(sess.OpenCursor("table:t", CursorOptions{}))
	for more := must(c.Next()); more; more = must(c.Next()) {
		must(c.Value())
	}

	desc := env.DescribeOpenSessions()
	if !strings.HasPrefix(desc, "1 OPEN SESSIONS:") || !strings.Contains(desc, "table:t (exhausted)") {
		t.Errorf("DescribeOpenSessions() = %q", desc)
	}

	ensure(env.Close())
	e := EngineStats{SessionsOpened: 1, CursorsOpened: 1, Advances: 2, BytesRead: 5}
	if a := env.Stats(); a != e {
		t.Errorf("Stats() = %+v, wanted %+v", a, e)
	}
	deepEqual(t, env.DescribeOpenSessions(), "NO OPEN SESSIONS")

	out := buf.String()
	for _, s := range []string{"environment opened", "engine statistics", "advances", "environment closed"} {
		if !strings.Contains(out, s) {
			t.Errorf("log output lacks %q:\n%s", s, out)
		}
	}
}

func TestEnv_NoStatisticsLogging(t *testing.T) {
	var buf bytes.Buffer
	d := &fakeDriver{}
	env := openEnv(t, "h", Options{Driver: registerFake(d), Config: "statistics=(none)", Logger: must(logger.NewWriter(&buf, "info"))})
	ensure(env.Close())
	if strings.Contains(buf.String(), "engine statistics") {
		t.Errorf("statistics logged with statistics=(none):\n%s", buf.String())
	}
}
