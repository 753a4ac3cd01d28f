package util

import (
	"io"
	"strings"
	"unsafe"
)

// S2Bytes exposes the bytes of s without copying. The result must be treated
// as read-only.
//
//go:nosplit
//go:nocheckptr
func S2Bytes(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func StringToReaderCloser(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}
