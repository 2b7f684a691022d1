package wtinspect

import (
	"fmt"
	"syscall"
)

// Status is a raw return code of an engine operation. Zero is success,
// negative values are engine sentinels, positive values are errno codes.
type Status int32

const (
	StatusOK              Status = 0
	StatusRollback        Status = -31800
	StatusDuplicateKey    Status = -31801
	StatusWTError         Status = -31802
	StatusNotFound        Status = -31803
	StatusPanic           Status = -31804
	StatusRestart         Status = -31805
	StatusRunRecovery     Status = -31806
	StatusCacheFull       Status = -31807
	StatusPrepareConflict Status = -31808
	StatusTrySalvage      Status = -31809

	StatusENOENT = Status(syscall.ENOENT)
	StatusEBUSY  = Status(syscall.EBUSY)
	StatusEINVAL = Status(syscall.EINVAL)
)

var statusNames = map[Status]string{
	StatusOK:              "OK",
	StatusRollback:        "WT_ROLLBACK",
	StatusDuplicateKey:    "WT_DUPLICATE_KEY",
	StatusWTError:         "WT_ERROR",
	StatusNotFound:        "WT_NOTFOUND",
	StatusPanic:           "WT_PANIC",
	StatusRestart:         "WT_RESTART",
	StatusRunRecovery:     "WT_RUN_RECOVERY",
	StatusCacheFull:       "WT_CACHE_FULL",
	StatusPrepareConflict: "WT_PREPARE_CONFLICT",
	StatusTrySalvage:      "WT_TRY_SALVAGE",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	if s > 0 {
		return syscall.Errno(s).Error()
	}
	return fmt.Sprintf("status %d", int32(s))
}

func (s Status) Outcome() Outcome {
	return Classify(int32(s))
}

// Outcome is the category a status code falls into.
type Outcome int

const (
	Success Outcome = iota
	NotFound
	Retryable
	Fatal
	Unknown
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case NotFound:
		return "not found"
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	case Unknown:
		return "unknown"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Classify maps an engine return code to its outcome. NotFound terminates
// scans normally; Retryable may be re-attempted; Fatal aborts the current
// operation; every other non-zero code is Unknown.
func Classify(code int32) Outcome {
	switch Status(code) {
	case StatusOK:
		return Success
	case StatusNotFound:
		return NotFound
	case StatusRollback, StatusRestart:
		return Retryable
	case StatusWTError, StatusDuplicateKey, StatusPanic, StatusRunRecovery, StatusCacheFull:
		return Fatal
	default:
		return Unknown
	}
}
