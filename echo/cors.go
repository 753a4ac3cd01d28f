package echo

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/IGLOU-EU/go-wildcard/v2"
	"github.com/httpecho/httpecho/common"
	"github.com/rs/zerolog"
)

const (
	headerAllowOrigin      = "Access-Control-Allow-Origin"
	headerAllowMethods     = "Access-Control-Allow-Methods"
	headerAllowHeaders     = "Access-Control-Allow-Headers"
	headerAllowCredentials = "Access-Control-Allow-Credentials"
)

type CORS struct {
	cfg     *common.CORSConfig
	logger  *zerolog.Logger
	pattern *originPattern
}

// NewCORS returns nil when no allow-origin is configured.
func NewCORS(logger *zerolog.Logger, cfg *common.CORSConfig) *CORS {
	if !cfg.Enabled() {
		return nil
	}
	c := &CORS{cfg: cfg, logger: logger}
	if cfg.AllowOrigin != "*" && strings.ContainsAny(cfg.AllowOrigin, "*?") {
		c.pattern = parseOriginPattern(cfg.AllowOrigin)
	}
	return c
}

func (c *CORS) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.annotate(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *CORS) annotate(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	if c.pattern != nil {
		h.Add("Vary", "Origin")
		origin := r.Header.Get("Origin")
		if origin != "" && c.pattern.match(origin) {
			h.Set(headerAllowOrigin, origin)
		} else if origin != "" {
			c.logger.Debug().Str("origin", origin).Msg("CORS request from disallowed origin")
		}
	} else {
		h.Set(headerAllowOrigin, c.cfg.AllowOrigin)
	}

	if c.cfg.AllowMethods != "" {
		h.Set(headerAllowMethods, c.cfg.AllowMethods)
	}
	if c.cfg.AllowHeaders != "" {
		h.Set(headerAllowHeaders, c.cfg.AllowHeaders)
	}
	if c.cfg.AllowCredentials != "" {
		h.Set(headerAllowCredentials, c.cfg.AllowCredentials)
	}
}

// originPattern is an allowed origin with wildcards confined to host labels:
// scheme and port compare exactly, and `*` or `?` never cross a dot.
type originPattern struct {
	scheme string
	labels []string
	port   string
}

func parseOriginPattern(pattern string) *originPattern {
	p := &originPattern{}
	host := strings.ToLower(pattern)
	if scheme, rest, ok := strings.Cut(host, "://"); ok {
		p.scheme, host = scheme, rest
	}
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host, p.port = host[:i], host[i+1:]
	}
	p.labels = strings.Split(host, ".")
	return p
}

func (p *originPattern) match(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" || u.User != nil || (u.Path != "" && u.Path != "/") || u.RawQuery != "" {
		return false
	}
	if p.scheme != "" && !strings.EqualFold(u.Scheme, p.scheme) {
		return false
	}
	if u.Port() != p.port {
		return false
	}

	labels := strings.Split(strings.ToLower(u.Hostname()), ".")
	if len(labels) != len(p.labels) {
		return false
	}
	for i, label := range labels {
		if label == "" || !wildcard.Match(p.labels[i], label) {
			return false
		}
	}
	return true
}
