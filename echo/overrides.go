package echo

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderSetResponseStatusCode  = "x-set-response-status-code"
	HeaderSetResponseDelayMs     = "x-set-response-delay-ms"
	HeaderSetResponseContentType = "x-set-response-content-type"
	QueryResponseBodyOnly        = "response_body_only"
)

// maxDelayMs is the largest delay that still fits a time.Duration. Larger
// values are treated like any other invalid delay.
const maxDelayMs = int64(math.MaxInt64 / int64(time.Millisecond))

// Overrides are per-request instructions that change the response.
// Zero values mean "not requested".
type Overrides struct {
	StatusCode  int
	Delay       time.Duration
	ContentType string
	BodyOnly    bool
}

// ResolveOverrides reads overrides from headers, falling back to query
// parameters of the same name. Invalid values are ignored.
func ResolveOverrides(r *http.Request) Overrides {
	query := r.URL.Query()
	lookup := func(name string) string {
		if v := r.Header.Get(name); v != "" {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(query.Get(name))
	}

	var ov Overrides
	if v := lookup(HeaderSetResponseStatusCode); v != "" {
		if code, err := strconv.Atoi(v); err == nil && code >= 100 && code < 600 {
			ov.StatusCode = code
		}
	}
	if v := lookup(HeaderSetResponseDelayMs); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 && ms <= maxDelayMs {
			ov.Delay = time.Duration(ms) * time.Millisecond
		}
	}
	ov.ContentType = lookup(HeaderSetResponseContentType)
	ov.BodyOnly = query.Get(QueryResponseBodyOnly) == "true"

	return ov
}

// Status returns the overridden status code or def.
func (o Overrides) Status(def int) int {
	if o.StatusCode != 0 {
		return o.StatusCode
	}
	return def
}
