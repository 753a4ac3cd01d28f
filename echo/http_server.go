package echo

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/httpecho/httpecho/common"
	"github.com/httpecho/httpecho/telemetry"
	"github.com/httpecho/httpecho/tracing"
	"github.com/httpecho/httpecho/util"
	"github.com/rs/zerolog"
)

const readHeaderTimeout = 10 * time.Second

// HttpServer serves the echo pipeline on a single listener, either plain HTTP
// or HTTPS.
type HttpServer struct {
	scheme    string
	server    *http.Server
	listener  net.Listener
	tlsConfig *tls.Config
	logger    *zerolog.Logger

	preserveHeaderCase bool
	recordLimit        int
}

func NewHttpServer(logger *zerolog.Logger, cfg *common.Config, handler http.Handler, tlsConfig *tls.Config) *HttpServer {
	scheme := "http"
	if tlsConfig != nil {
		scheme = "https"
	}
	lg := logger.With().Str("listener", scheme).Logger()

	srv := &HttpServer{
		scheme:             scheme,
		tlsConfig:          tlsConfig,
		logger:             &lg,
		preserveHeaderCase: cfg.Echo.PreserveHeaderCase,
		recordLimit:        util.DefaultRecordLimit,
	}
	if cfg.Server.MaxHeaderSize > 0 && int(cfg.Server.MaxHeaderSize)+4096 > srv.recordLimit {
		srv.recordLimit = int(cfg.Server.MaxHeaderSize) + 4096
	}

	srv.server = &http.Server{
		Handler:           handler,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: readHeaderTimeout,
		MaxHeaderBytes:    int(cfg.Server.MaxHeaderSize),
		ErrorLog:          log.New(&serverErrorLog{logger: srv.logger}, "", 0),
		ConnContext: func(ctx context.Context, c net.Conn) context.Context {
			return context.WithValue(ctx, common.ConnContextKey, c)
		},
	}

	return srv
}

// NewHandler assembles the request pipeline: tracing, CORS, access log,
// metrics and finally the reflector.
func NewHandler(logger *zerolog.Logger, cfg *common.Config, reflector http.Handler, recorder *telemetry.Recorder) http.Handler {
	var traced, cors, metrics Middleware
	if cfg.Tracing.Enabled {
		traced = tracing.Middleware
	}
	if c := NewCORS(logger, cfg.CORS); c != nil {
		cors = c.Middleware
	}
	if recorder != nil {
		metrics = recorder.Middleware
	}
	return Chain(reflector, traced, cors, AccessLog(logger, cfg.Logging), metrics)
}

// NextProtos returns the ALPN protocols to offer. Raw header capture only
// understands HTTP/1.x, so h2 is withheld when header case is preserved.
func NextProtos(preserveHeaderCase bool) []string {
	if preserveHeaderCase {
		return []string{"http/1.1"}
	}
	return []string{"h2", "http/1.1"}
}

func (s *HttpServer) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return common.NewErrListenerFailed(s.scheme, addr, err)
	}
	if s.tlsConfig != nil {
		ln = tls.NewListener(ln, s.tlsConfig)
	}
	if s.preserveHeaderCase {
		ln = util.NewRecordingListener(ln, s.recordLimit)
	}
	s.listener = ln
	return nil
}

func (s *HttpServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *HttpServer) Scheme() string {
	return s.scheme
}

// Serve blocks until the server is shut down. A graceful shutdown is not an error.
func (s *HttpServer) Serve() error {
	if s.listener == nil {
		return errors.New("listener is not bound, call Listen first")
	}
	s.logger.Info().Msgf("starting %s server on %s", s.scheme, s.listener.Addr())
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HttpServer) Shutdown(ctx context.Context) error {
	s.logger.Info().Msgf("shutting down %s server", s.scheme)
	err := s.server.Shutdown(ctx)
	if s.listener != nil {
		// not tracked by the server if Serve was never reached
		_ = s.listener.Close()
	}
	if err != nil {
		s.logger.Error().Err(err).Msgf("%s server forced to shutdown", s.scheme)
		_ = s.server.Close()
		return err
	}
	s.logger.Info().Msgf("%s server stopped", s.scheme)
	return nil
}

type serverErrorLog struct {
	logger *zerolog.Logger
}

func (l *serverErrorLog) Write(p []byte) (int, error) {
	l.logger.Debug().Msg(strings.TrimSpace(string(p)))
	return len(p), nil
}
