package util

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var b bytes.Buffer
	zw := gzip.NewWriter(&b)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return b.Bytes()
}

func TestDecoderPool_ReusesGzipReaders(t *testing.T) {
	pool := NewDecoderPool()

	for _, payload := range []string{"first body", "second, longer body", ""} {
		r, release, err := pool.Acquire(bytes.NewReader(gzipped(t, payload)), "GZIP")
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, payload, string(got))
		release()
		release()
	}
}

func TestDecoderPool_BadGzipHeader(t *testing.T) {
	pool := NewDecoderPool()

	// warm the pool so the failing Reset path is taken
	r, release, err := pool.Acquire(bytes.NewReader(gzipped(t, "ok")), "gzip")
	require.NoError(t, err)
	_, _ = io.ReadAll(r)
	release()

	_, _, err = pool.Acquire(strings.NewReader("definitely not gzip"), "gzip")
	assert.Error(t, err)

	r, release, err = pool.Acquire(bytes.NewReader(gzipped(t, "again")), "gzip")
	require.NoError(t, err)
	defer release()
	got, _ := io.ReadAll(r)
	assert.Equal(t, "again", string(got))
}

func TestDecoderPool_ReusesZstdDecoders(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()

	pool := NewDecoderPool()
	for _, payload := range []string{"zstd one", "zstd two"} {
		r, release, err := pool.Acquire(bytes.NewReader(enc.EncodeAll([]byte(payload), nil)), "zstd")
		require.NoError(t, err)
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, payload, string(got))
		release()
	}
}

func TestDecoderPool_UnknownEncodingPassesThrough(t *testing.T) {
	body := strings.NewReader("as is")
	r, release, err := NewDecoderPool().Acquire(body, "br")
	require.NoError(t, err)
	defer release()
	assert.Same(t, body, r)
}
