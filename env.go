package wtinspect

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/andreyvit/wtinspect/pkg/logger"
)

type Options struct {
	// Driver names a registered driver; DefaultDriver if empty.
	Driver string

	// Config is the engine open configuration string, e.g.
	// DefaultOpenConfig.
	Config string

	// Logger receives structured operational log messages.
	// If not set, logger.Default() is used.
	Logger logger.Logger

	// MaxRetries bounds how many times an operation that returned a
	// retryable status is re-attempted before the failure is surfaced.
	// Zero surfaces the first failure.
	MaxRetries int
}

// Env is an open engine instance rooted at a home directory. It owns the
// sessions opened from it; closing the Env closes them first.
type Env struct {
	home       string
	driver     string
	conn       DriverConn
	logger     logger.Logger
	maxRetries int
	statistics bool

	counters engineCounters

	mu       sync.Mutex
	sessions []*Session
	closed   bool
}

// Open initializes or attaches to the engine state at home. Failures wrap
// ErrEngineOpen.
func Open(home string, opt Options) (*Env, error) {
	d, err := lookupDriver(opt.Driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineOpen, err)
	}
	driverName := opt.Driver
	if driverName == "" {
		driverName = DefaultDriver
	}

	log := opt.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.With("component", "engine", "driver", driverName, "home", home)

	var conn DriverConn
	st, attempts := retry(opt.MaxRetries, log, "open", home, func() Status {
		var st Status
		conn, st = d.Open(home, opt.Config)
		return st
	})
	if st != StatusOK {
		log.Error("failed to open environment", "status", st, "attempts", attempts)
		return nil, statusErr("open", home, st, attempts, ErrEngineOpen)
	}

	env := &Env{
		home:       home,
		driver:     driverName,
		conn:       conn,
		logger:     log,
		maxRetries: opt.MaxRetries,
		statistics: statisticsRequested(opt.Config),
	}
	log.Info("environment opened", "config", opt.Config)
	return env, nil
}

func statisticsRequested(config string) bool {
	pairs, err := parseConfig(config)
	if err != nil {
		return false
	}
	for _, p := range pairs {
		if p.Key == "statistics" {
			return statisticsEnabled(splitStatisticsModes(p.Value))
		}
	}
	return false
}

func (env *Env) Home() string   { return env.home }
func (env *Env) Driver() string { return env.driver }

func (env *Env) Logger() logger.Logger { return env.logger }

// OpenSession opens a session scoped to this environment. config is passed
// to the engine verbatim.
func (env *Env) OpenSession(config string) (*Session, error) {
	env.mu.Lock()
	closed := env.closed
	env.mu.Unlock()
	if closed {
		return nil, contractErr("open_session", "closed environment")
	}

	var ds DriverSession
	st, attempts := retry(env.maxRetries, env.logger, "open_session", env.home, func() Status {
		var st Status
		ds, st = env.conn.OpenSession(config)
		return st
	})
	if st != StatusOK {
		return nil, statusErr("open_session", env.home, st, attempts, nil)
	}

	sess := &Session{
		env:       env,
		ds:        ds,
		startTime: time.Now(),
	}
	env.addSession(sess)
	env.counters.sessionsOpened.Add(1)
	env.logger.Debug("session opened")
	return sess, nil
}

// View runs fn with a fresh session and closes it afterwards.
func (env *Env) View(fn func(sess *Session) error) (err error) {
	sess, err := env.OpenSession("")
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()
	return fn(sess)
}

// Close closes every session still open (newest first), then the engine
// connection. Closing twice is a contract violation.
func (env *Env) Close() error {
	env.mu.Lock()
	if env.closed {
		env.mu.Unlock()
		return contractErr("close", "closed environment")
	}
	env.closed = true
	sessions := slices.Clone(env.sessions)
	env.mu.Unlock()

	var errs []error
	if len(sessions) > 0 {
		env.logger.Warn("closing environment with open sessions", "sessions", len(sessions))
	}
	for i := len(sessions) - 1; i >= 0; i-- {
		if err := sessions[i].close(); err != nil {
			errs = append(errs, err)
		}
	}

	if env.statistics {
		s := env.Stats()
		env.logger.Info("engine statistics",
			"sessions_opened", s.SessionsOpened,
			"cursors_opened", s.CursorsOpened,
			"advances", s.Advances,
			"bytes_read", s.BytesRead,
		)
	}

	if st := env.conn.Close(""); st != StatusOK {
		errs = append(errs, statusErr("close", env.home, st, 1, nil))
	}
	env.logger.Info("environment closed")
	return errors.Join(errs...)
}

func (env *Env) addSession(sess *Session) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.sessions = append(env.sessions, sess)
}

func (env *Env) removeSession(sess *Session) {
	env.mu.Lock()
	defer env.mu.Unlock()
	if i := slices.Index(env.sessions, sess); i >= 0 {
		env.sessions = slices.Delete(env.sessions, i, i+1)
	}
}

func (env *Env) OpenSessionCount() int {
	env.mu.Lock()
	defer env.mu.Unlock()
	return len(env.sessions)
}

func (env *Env) DescribeOpenSessions() string {
	env.mu.Lock()
	sessions := slices.Clone(env.sessions)
	env.mu.Unlock()

	if len(sessions) == 0 {
		return "NO OPEN SESSIONS"
	}

	now := time.Now()

	var buf strings.Builder
	fmt.Fprintf(&buf, "%d OPEN SESSIONS:\n", len(sessions))
	for _, sess := range sessions {
		ms := now.Sub(sess.startTime).Milliseconds()
		fmt.Fprintf(&buf, "\n---\nopen for %d ms, %d cursors", ms, len(sess.cursors))
		for _, c := range sess.cursors {
			fmt.Fprintf(&buf, "\n  %s (%s)", c.uri, c.state)
		}
		buf.WriteByte('\n')
	}
	return buf.String()
}
