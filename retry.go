package wtinspect

import "github.com/andreyvit/wtinspect/pkg/logger"

// retry calls fn until it returns a non-retryable status or max re-attempts
// have been made. It returns the last status and the number of calls.
func retry(max int, log logger.Logger, op, target string, fn func() Status) (Status, int) {
	attempts := 0
	for {
		attempts++
		st := fn()
		if st.Outcome() != Retryable || attempts > max {
			return st, attempts
		}
		log.Warn("retrying engine operation", "op", op, "target", target, "status", st.String(), "attempt", attempts)
	}
}
