package util

import (
	"bytes"
	"net"
	"strings"
	"sync"
)

// DefaultRecordLimit bounds how many trailing bytes a RecordingConn keeps.
const DefaultRecordLimit = 64 << 10

// RecordingListener wraps every accepted connection in a RecordingConn so the
// original header casing and ordering can be recovered after net/http has
// canonicalized them.
type RecordingListener struct {
	net.Listener
	limit int
}

func NewRecordingListener(ln net.Listener, limit int) *RecordingListener {
	if limit <= 0 {
		limit = DefaultRecordLimit
	}
	return &RecordingListener{Listener: ln, limit: limit}
}

func (l *RecordingListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return &RecordingConn{Conn: c, limit: l.limit}, nil
}

// RecordingConn keeps a bounded copy of the bytes read from the wrapped conn.
type RecordingConn struct {
	net.Conn

	mu    sync.Mutex
	buf   []byte
	limit int
}

func (c *RecordingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.mu.Lock()
		c.buf = append(c.buf, p[:n]...)
		if over := len(c.buf) - c.limit; over > 0 {
			c.buf = append(c.buf[:0], c.buf[over:]...)
		}
		c.mu.Unlock()
	}
	return n, err
}

// NetConn returns the wrapped connection.
func (c *RecordingConn) NetConn() net.Conn {
	return c.Conn
}

// TakeRawHeaders locates the request identified by method and requestURI in the
// recorded bytes and returns its headers as an interleaved name/value slice.
// Everything recorded so far is discarded, found or not.
func (c *RecordingConn) TakeRawHeaders(method, requestURI string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := c.buf
	defer func() { c.buf = c.buf[:0] }()

	start := findRequestLine(data, method+" "+requestURI+" HTTP/")
	if start < 0 {
		return nil, false
	}
	return ParseRawHeaderBlock(data[start:])
}

// Discard drops everything recorded so far.
func (c *RecordingConn) Discard() {
	c.mu.Lock()
	c.buf = c.buf[:0]
	c.mu.Unlock()
}

func findRequestLine(data []byte, prefix string) int {
	p := []byte(prefix)
	offset := 0
	for {
		i := bytes.Index(data[offset:], p)
		if i < 0 {
			return -1
		}
		at := offset + i
		if at == 0 || data[at-1] == '\n' {
			return at
		}
		offset = at + 1
	}
}

// ParseRawHeaderBlock parses an HTTP/1.x request head (request line followed by
// header lines and a blank line). It returns false if the block is incomplete.
func ParseRawHeaderBlock(data []byte) ([]string, bool) {
	lineEnd := bytes.IndexByte(data, '\n')
	if lineEnd < 0 {
		return nil, false
	}
	data = data[lineEnd+1:]

	var raw []string
	for {
		lineEnd = bytes.IndexByte(data, '\n')
		if lineEnd < 0 {
			return nil, false
		}
		line := strings.TrimRight(string(data[:lineEnd]), "\r")
		data = data[lineEnd+1:]
		if line == "" {
			return raw, true
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || name == "" {
			continue
		}
		raw = append(raw, name, strings.TrimSpace(value))
	}
}
