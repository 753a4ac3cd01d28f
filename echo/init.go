package echo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/httpecho/httpecho/common"
	"github.com/httpecho/httpecho/telemetry"
	"github.com/httpecho/httpecho/tracing"
	"github.com/httpecho/httpecho/util"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateListening
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateDraining:
		return "draining"
	default:
		return "stopped"
	}
}

// Lifecycle tracks the listeners started by Init until they are drained.
type Lifecycle struct {
	state atomic.Int32

	cfg      *common.Config
	logger   *zerolog.Logger
	http     *HttpServer
	https    *HttpServer
	recorder *telemetry.Recorder
	group    *errgroup.Group

	// ownsTracing is set when this lifecycle installed the tracing pipeline.
	ownsTracing bool

	done    chan struct{}
	errOnce sync.Once
	err     error
}

func (l *Lifecycle) State() State {
	return State(l.state.Load())
}

// HttpServer returns the plain listener.
func (l *Lifecycle) HttpServer() *HttpServer {
	return l.http
}

// HttpsServer returns the TLS listener, or nil when no key material was found.
func (l *Lifecycle) HttpsServer() *HttpServer {
	return l.https
}

func (l *Lifecycle) Recorder() *telemetry.Recorder {
	return l.recorder
}

// Wait blocks until both listeners have drained after ctx was cancelled.
func (l *Lifecycle) Wait() error {
	<-l.done
	return l.err
}

// Init binds the HTTP listener and, when both key and certificate files exist,
// the HTTPS listener. Serving stops once ctx is cancelled: HTTP drains first,
// then HTTPS.
func Init(ctx context.Context, fs afero.Fs, cfg *common.Config, logger *zerolog.Logger) (*Lifecycle, error) {
	lc := &Lifecycle{
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
	lc.state.Store(int32(StateStarting))

	logger.Info().Object("config", cfg).Msg("starting echo server")

	fail := func(err error) (*Lifecycle, error) {
		lc.closeListeners()
		if lc.ownsTracing {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			if serr := tracing.Shutdown(shutdownCtx); serr != nil {
				logger.Warn().Err(serr).Msg("failed to shut down tracing after startup failure")
			}
			cancel()
		}
		lc.state.Store(int32(StateStopped))
		return nil, err
	}

	//
	// 1) Supporting components
	//
	if cfg.Tracing.Enabled && !tracing.IsEnabled() {
		if err := tracing.Initialize(ctx, logger, cfg.Tracing); err != nil {
			return fail(err)
		}
		lc.ownsTracing = true
	}

	if cfg.Metrics.Enabled {
		recorder, err := telemetry.NewRecorder(logger, cfg.Metrics)
		if err != nil {
			return fail(err)
		}
		lc.recorder = recorder
	}

	reflector := NewReflector(logger, cfg, Hostname())
	if path := cfg.Echo.OverrideResponseBodyFilePath; path != "" {
		body, contentType, err := LoadOverrideBody(fs, path)
		if err != nil {
			return fail(fmt.Errorf("failed to load override response body from %s: %w", path, err))
		}
		logger.Info().Str("path", path).Str("contentType", contentType).Msg("serving static override response body")
		reflector.WithOverrideBody(body, contentType)
	}
	handler := NewHandler(logger, cfg, reflector, lc.recorder)

	//
	// 2) Listeners
	//
	lc.http = NewHttpServer(logger, cfg, handler, nil)
	if err := lc.http.Listen(fmt.Sprintf(":%d", cfg.Server.HttpPort)); err != nil {
		return fail(err)
	}

	if common.HttpsFilesPresent(fs, cfg.Server) {
		tlsConfig, err := common.CreateServerTLSConfig(fs, cfg.Server, NextProtos(cfg.Echo.PreserveHeaderCase))
		if err != nil {
			return fail(err)
		}
		lc.https = NewHttpServer(logger, cfg, handler, tlsConfig)
		if err := lc.https.Listen(fmt.Sprintf(":%d", cfg.Server.HttpsPort)); err != nil {
			return fail(err)
		}
	} else {
		logger.Info().
			Str("keyFile", cfg.Server.HttpsKeyFile).
			Str("certFile", cfg.Server.HttpsCertFile).
			Msg("https key or certificate not found, serving plain http only")
	}

	//
	// 3) Serve until ctx is done
	//
	lc.group = &errgroup.Group{}
	for _, srv := range []*HttpServer{lc.http, lc.https} {
		if srv == nil {
			continue
		}
		srv := srv
		lc.group.Go(func() error {
			if err := srv.Serve(); err != nil {
				logger.Error().Err(err).Msgf("%s server failed", srv.Scheme())
				util.OsExit(util.ExitCodeHttpServerFailed)
				return err
			}
			return nil
		})
	}
	lc.state.Store(int32(StateListening))

	go func() {
		<-ctx.Done()
		lc.drain()
	}()

	return lc, nil
}

func (l *Lifecycle) drain() {
	l.state.Store(int32(StateDraining))
	l.logger.Info().Msg("draining listeners")

	if l.recorder != nil {
		l.recorder.MarkDown()
	}

	// sequential on purpose: https only starts draining once http is closed
	for _, srv := range []*HttpServer{l.http, l.https} {
		if srv == nil {
			continue
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), l.cfg.Server.ShutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.setErr(err)
		}
		cancel()
	}

	if err := l.group.Wait(); err != nil {
		l.setErr(err)
	}

	if l.ownsTracing {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), l.cfg.Server.ShutdownTimeout)
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			l.logger.Warn().Err(err).Msg("failed to flush traces")
		}
		cancel()
	}

	l.state.Store(int32(StateStopped))
	l.logger.Info().Msg("echo server stopped")
	close(l.done)
}

func (l *Lifecycle) closeListeners() {
	for _, srv := range []*HttpServer{l.http, l.https} {
		if srv != nil && srv.listener != nil {
			_ = srv.listener.Close()
		}
	}
}

func (l *Lifecycle) setErr(err error) {
	l.errOnce.Do(func() { l.err = err })
}
