package wtinspect

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEngineOpen          = errors.New("engine open failed")
	ErrCursorOpen          = errors.New("cursor open failed")
	ErrMalformedDocument   = errors.New("malformed document")
	ErrContractViolation   = errors.New("contract violation")
	ErrUnknownDriver       = errors.New("unknown driver")
	ErrNamespaceNotFound   = errors.New("namespace not found")
	ErrIndexNotFound       = errors.New("index not found")
	ErrNotSeedable         = errors.New("driver does not support seeding")
	ErrInvalidEngineConfig = errors.New("invalid engine config")
)

// StatusError reports an engine operation that returned a status other than
// success (or, for advances, not-found).
type StatusError struct {
	Op       string // open, open_session, open_cursor, next, get_key, get_value, close...
	Target   string // home directory or table URI
	Status   Status
	Attempts int
	Err      error // ErrEngineOpen or ErrCursorOpen for failed opens
}

func statusErr(op, target string, st Status, attempts int, kind error) error {
	return &StatusError{op, target, st, attempts, kind}
}

func (e *StatusError) Outcome() Outcome {
	return e.Status.Outcome()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

func (e *StatusError) Error() string {
	var buf strings.Builder
	if e.Err != nil {
		buf.WriteString(e.Err.Error())
		buf.WriteString(": ")
	}
	buf.WriteString(e.Op)
	if e.Target != "" {
		buf.WriteByte(' ')
		buf.WriteString(e.Target)
	}
	fmt.Fprintf(&buf, ": %v (%d, %v)", e.Status, int32(e.Status), e.Outcome())
	if e.Attempts > 1 {
		fmt.Fprintf(&buf, " after %d attempts", e.Attempts)
	}
	return buf.String()
}

// MalformedDocumentError reports a catalog record whose value could not be
// decoded into a CatalogEntry.
type MalformedDocumentError struct {
	Key    int64
	Reason string
	Data   []byte
	Err    error
}

func malformedf(key int64, data []byte, err error, format string, args ...any) *MalformedDocumentError {
	return &MalformedDocumentError{key, fmt.Sprintf(format, args...), data, err}
}

func (e *MalformedDocumentError) Is(target error) bool {
	return target == ErrMalformedDocument
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

func (e *MalformedDocumentError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	var buf strings.Builder
	fmt.Fprintf(&buf, "record %d: malformed document: %s", e.Key, e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&buf, ": %v", e.Err)
	}
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		fmt.Fprintf(&buf, ": (%d) %x", n, e.Data)
	} else {
		fmt.Fprintf(&buf, ": (%d) %x...%x", n, e.Data[:prefixLen], e.Data[n-suffixLen:])
	}
	return buf.String()
}

// ContractError reports misuse of a handle: reading an unpositioned cursor,
// advancing an exhausted one, or touching anything after it was closed.
type ContractError struct {
	Op    string
	State string
}

func contractErr(op, state string) error {
	return &ContractError{op, state}
}

func (e *ContractError) Unwrap() error {
	return ErrContractViolation
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%v: %s not allowed in state %s", ErrContractViolation, e.Op, e.State)
}

// IsFatal reports whether err carries a fatal engine status, or a retryable
// one that was still failing when the retry budget ran out.
func IsFatal(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.Outcome() {
	case Fatal, Retryable:
		return true
	}
	return false
}

// OutcomeOf returns the outcome carried by err, Success for nil, and Unknown
// for errors that did not come from an engine status.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return Success
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Outcome()
	}
	return Unknown
}
