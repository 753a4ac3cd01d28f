package echo

import "net/http"

type Middleware func(http.Handler) http.Handler

// Chain wraps endpoint so that the first middleware is the outermost one.
// Nil middlewares are skipped.
func Chain(endpoint http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			endpoint = mws[i](endpoint)
		}
	}
	return endpoint
}
