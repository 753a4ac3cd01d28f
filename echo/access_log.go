package echo

import (
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/httpecho/httpecho/common"
	"github.com/rs/zerolog"
)

// AccessLog writes one record per completed request. It returns nil when
// request logs are disabled.
func AccessLog(logger *zerolog.Logger, cfg *common.RequestLogConfig) Middleware {
	if cfg == nil || cfg.Disabled {
		return nil
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			// same form as the echo document path, so both records agree on LOG_IGNORE_PATH
			path := r.URL.EscapedPath()
			if cfg.Ignored(path) {
				return
			}
			logger.Info().
				Str("method", r.Method).
				Str("path", path).
				Int("status", m.Code).
				Float64("latency", float64(m.Duration.Microseconds())/1000).
				Int64("bytes", m.Written).
				Str("remote", r.RemoteAddr).
				Msg("request")
		})
	}
}
