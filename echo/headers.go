package echo

import (
	"net/http"
	"strings"

	"github.com/httpecho/httpecho/util"
)

func joinHeaderValues(name string, values []string) string {
	if strings.EqualFold(name, "cookie") {
		return strings.Join(values, "; ")
	}
	return strings.Join(values, ", ")
}

// normalizedHeaders flattens r.Header into lowercase names. Host and
// Transfer-Encoding are lifted out of the header map by net/http and are put
// back here.
func normalizedHeaders(r *http.Request) map[string]string {
	headers := make(map[string]string, len(r.Header)+2)
	for name, values := range r.Header {
		lower := strings.ToLower(name)
		headers[lower] = joinHeaderValues(lower, values)
	}
	if r.Host != "" {
		headers["host"] = r.Host
	}
	if len(r.TransferEncoding) > 0 {
		headers["transfer-encoding"] = strings.Join(r.TransferEncoding, ", ")
	}
	return headers
}

// rawHeaders keeps the casing each header name had on the wire. Repeated
// names are merged under the first spelling seen.
func rawHeaders(pairs []string) map[string]string {
	names := make(map[string]string, len(pairs)/2)
	values := make(map[string][]string, len(pairs)/2)
	var order []string

	for i := 0; i+1 < len(pairs); i += 2 {
		lower := strings.ToLower(pairs[i])
		if _, ok := names[lower]; !ok {
			names[lower] = pairs[i]
			order = append(order, lower)
		}
		values[lower] = append(values[lower], pairs[i+1])
	}

	headers := make(map[string]string, len(order))
	for _, lower := range order {
		headers[names[lower]] = joinHeaderValues(lower, values[lower])
	}
	return headers
}

// captureRawHeaders looks up the recorded bytes of the connection r arrived on.
// It must run before the body is read.
func captureRawHeaders(r *http.Request) ([]string, bool) {
	rc := recordingConn(r)
	if rc == nil {
		return nil, false
	}
	return rc.TakeRawHeaders(r.Method, r.RequestURI)
}

func recordingConn(r *http.Request) *util.RecordingConn {
	conn := connFromContext(r.Context())
	if conn == nil {
		return nil
	}
	rc, _ := conn.(*util.RecordingConn)
	return rc
}
