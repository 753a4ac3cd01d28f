package common

import (
	"crypto/tls"
	"crypto/x509"
)

type ContextKey string

const ConnContextKey ContextKey = "echo_conn"

// Connection describes the transport a request arrived on. It is either a
// PlainConnection or a TlsConnection.
type Connection interface {
	Scheme() string
	isConnection()
}

type PlainConnection struct{}

func (PlainConnection) Scheme() string { return "http" }
func (PlainConnection) isConnection()  {}

type TlsConnection struct {
	ServerName string

	// PeerCertificate is the leaf certificate presented by the client, if any.
	PeerCertificate *x509.Certificate
}

func (TlsConnection) Scheme() string { return "https" }
func (TlsConnection) isConnection()  {}

func NewTlsConnection(state *tls.ConnectionState) TlsConnection {
	conn := TlsConnection{ServerName: state.ServerName}
	if len(state.PeerCertificates) > 0 && len(state.PeerCertificates[0].Raw) > 0 {
		conn.PeerCertificate = state.PeerCertificates[0]
	}
	return conn
}
