package echo

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"

	"github.com/httpecho/httpecho/common"
)

func connFromContext(ctx context.Context) net.Conn {
	c, _ := ctx.Value(common.ConnContextKey).(net.Conn)
	return c
}

// connectionOf reports the transport of r. When the TLS conn is wrapped (as it
// is when header case is preserved) net/http does not populate r.TLS, so the
// state is read from the underlying *tls.Conn instead.
func connectionOf(r *http.Request) common.Connection {
	if r.TLS != nil {
		return common.NewTlsConnection(r.TLS)
	}
	conn := connFromContext(r.Context())
	for conn != nil {
		switch c := conn.(type) {
		case *tls.Conn:
			state := c.ConnectionState()
			return common.NewTlsConnection(&state)
		case interface{ NetConn() net.Conn }:
			conn = c.NetConn()
		default:
			conn = nil
		}
	}
	return common.PlainConnection{}
}
