package util

import (
	"bytes"
	"os"
	"strconv"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func benchEnvMB(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func BenchmarkReadBody_Large(b *testing.B) {
	mb := benchEnvMB("ECHO_BENCH_READBODY_MB", 16)
	payload := bytes.Repeat([]byte{'x'}, mb<<20)

	b.ReportAllocs()
	b.SetBytes(int64(len(payload)))

	var rr bytes.Reader
	for i := 0; i < b.N; i++ {
		rr.Reset(payload)
		body, err := ReadBody(&rr, "", 0)
		if err != nil {
			b.Fatal(err)
		}
		if len(body) != len(payload) {
			b.Fatalf("unexpected len: got=%d want=%d", len(body), len(payload))
		}
	}
}

func BenchmarkReadBody_Gzip(b *testing.B) {
	mb := benchEnvMB("ECHO_BENCH_READBODY_MB", 1)
	var compressed bytes.Buffer
	zw := gzip.NewWriter(&compressed)
	if _, err := zw.Write(bytes.Repeat([]byte("echo "), (mb<<20)/5)); err != nil {
		b.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()

	var rr bytes.Reader
	for i := 0; i < b.N; i++ {
		rr.Reset(compressed.Bytes())
		if _, err := ReadBody(&rr, "gzip", 0); err != nil {
			b.Fatal(err)
		}
	}
}
