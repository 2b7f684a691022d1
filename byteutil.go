package wtinspect

import (
	"encoding/binary"
	"errors"
	"io/fs"
	"math"
	"syscall"
)

// recordKeySize is the size of an encoded record key.
const recordKeySize = 8

// EncodeRecordKey encodes an int64 record key so that byte order matches
// numeric order: big-endian with the sign bit flipped.
func EncodeRecordKey(k int64) []byte {
	return appendRecordKey(make([]byte, 0, recordKeySize), k)
}

func appendRecordKey(buf []byte, k int64) []byte {
	return binary.BigEndian.AppendUint64(buf, uint64(k)^(1<<63))
}

// DecodeRecordKey reverses EncodeRecordKey.
func DecodeRecordKey(b []byte) (int64, bool) {
	if len(b) != recordKeySize {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63)), true
}

func errnoStatus(err error) Status {
	var errno syscall.Errno
	switch {
	case err == nil:
		return StatusOK
	case errors.As(err, &errno) && errno > 0 && errno <= math.MaxInt32:
		return Status(errno)
	case errors.Is(err, fs.ErrNotExist):
		return StatusENOENT
	case errors.Is(err, fs.ErrPermission):
		return Status(syscall.EACCES)
	}
	return StatusWTError
}
