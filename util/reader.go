package util

import (
	"errors"
	"io"

	"github.com/httpecho/httpecho/common"
)

const readChunkSize = 32 << 10

var decoders = NewDecoderPool()

// ReadBody consumes body, decoding it according to contentEncoding (gzip,
// deflate or zstd; anything else is read as-is), and returns the decoded bytes
// as a string. When limit > 0 and the decoded size exceeds it, accumulation
// stops, the rest of the raw stream is drained and ErrBodyTooLarge is returned.
func ReadBody(body io.Reader, contentEncoding string, limit int64) (string, error) {
	if body == nil {
		return "", nil
	}

	reader, closeFn, err := decoders.Acquire(body, contentEncoding)
	if err != nil {
		drain(body)
		return "", common.NewErrBodyRead(err)
	}
	defer closeFn()

	buf := BorrowBuf()
	defer ReturnBuf(buf)

	chunk := make([]byte, readChunkSize)
	var total int64
	for {
		n, rerr := reader.Read(chunk)
		if n > 0 {
			total += int64(n)
			if limit > 0 && total > limit {
				drain(body)
				return "", common.NewErrBodyTooLarge(limit)
			}
			buf.Write(chunk[:n])
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			drain(body)
			return "", common.NewErrBodyRead(rerr)
		}
	}

	return buf.String(), nil
}

// drain reads the remaining stream so the connection can be reused; errors are
// irrelevant at this point.
func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, r)
}
