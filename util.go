package wtinspect

import (
	"encoding/hex"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}

func hexstr(b []byte) string {
	if b == nil {
		return "<nil>"
	}
	if len(b) == 0 {
		return "<empty>"
	}
	return hex.EncodeToString(b)
}

func hexPreview(b []byte, n int) string {
	if len(b) <= n {
		return hexstr(b)
	}
	return hex.EncodeToString(b[:n]) + "..."
}
