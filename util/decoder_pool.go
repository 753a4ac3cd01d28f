package util

import (
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// emptyStream lets pooled decoders drop their reference to the last body.
type emptyStream struct{}

func (emptyStream) Read([]byte) (int, error) { return 0, io.EOF }
func (emptyStream) ReadByte() (byte, error)  { return 0, io.EOF }

// DecoderPool keeps gzip and zstd decompressors around between requests.
// Deflate readers are cheap enough to build per body.
type DecoderPool struct {
	gzip sync.Pool
	zstd sync.Pool
}

func NewDecoderPool() *DecoderPool {
	return &DecoderPool{}
}

// Acquire returns a reader decoding body per contentEncoding and a release
// func that must be called once the reader is no longer used. Unknown
// encodings pass body through untouched.
func (p *DecoderPool) Acquire(body io.Reader, contentEncoding string) (io.Reader, func(), error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		zr, err := p.gzipReader(body)
		if err != nil {
			return nil, nil, err
		}
		var once sync.Once
		return zr, func() { once.Do(func() { p.putGzip(zr) }) }, nil
	case "deflate":
		zr, err := zlib.NewReader(body)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil
	case "zstd":
		zr, err := p.zstdReader(body)
		if err != nil {
			return nil, nil, err
		}
		var once sync.Once
		return zr, func() { once.Do(func() { p.putZstd(zr) }) }, nil
	default:
		return body, func() {}, nil
	}
}

func (p *DecoderPool) gzipReader(r io.Reader) (*gzip.Reader, error) {
	if pooled, ok := p.gzip.Get().(*gzip.Reader); ok {
		if err := pooled.Reset(r); err != nil {
			p.gzip.Put(pooled)
			return nil, err
		}
		return pooled, nil
	}
	return gzip.NewReader(r)
}

func (p *DecoderPool) putGzip(zr *gzip.Reader) {
	_ = zr.Close()
	var fr flate.Reader = emptyStream{}
	_ = zr.Reset(fr)
	p.gzip.Put(zr)
}

func (p *DecoderPool) zstdReader(r io.Reader) (*zstd.Decoder, error) {
	if pooled, ok := p.zstd.Get().(*zstd.Decoder); ok {
		if err := pooled.Reset(r); err == nil {
			return pooled, nil
		}
		pooled.Close()
	}
	return zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
}

func (p *DecoderPool) putZstd(zr *zstd.Decoder) {
	if err := zr.Reset(nil); err != nil {
		zr.Close()
		return
	}
	p.zstd.Put(zr)
}
