package echo

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveOverrides(t *testing.T) {
	t.Run("None", func(t *testing.T) {
		ov := ResolveOverrides(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, Overrides{}, ov)
		assert.Equal(t, 200, ov.Status(200))
	})

	t.Run("FromHeaders", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Set-Response-Status-Code", "418")
		req.Header.Set("x-set-response-delay-ms", "250")
		req.Header.Set("X-SET-RESPONSE-CONTENT-TYPE", "text/csv")

		ov := ResolveOverrides(req)
		assert.Equal(t, 418, ov.Status(200))
		assert.Equal(t, 250*time.Millisecond, ov.Delay)
		assert.Equal(t, "text/csv", ov.ContentType)
		assert.False(t, ov.BodyOnly)
	})

	t.Run("FromQuery", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?x-set-response-status-code=503&x-set-response-delay-ms=10&x-set-response-content-type=text/html&response_body_only=true", nil)

		ov := ResolveOverrides(req)
		assert.Equal(t, 503, ov.StatusCode)
		assert.Equal(t, 10*time.Millisecond, ov.Delay)
		assert.Equal(t, "text/html", ov.ContentType)
		assert.True(t, ov.BodyOnly)
	})

	t.Run("HeaderWinsOverQuery", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?x-set-response-status-code=500", nil)
		req.Header.Set(HeaderSetResponseStatusCode, "201")
		assert.Equal(t, 201, ResolveOverrides(req).StatusCode)
	})

	t.Run("InvalidValuesIgnored", func(t *testing.T) {
		for _, v := range []string{"999", "99", "600", "abc", "-1", "2.5"} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderSetResponseStatusCode, v)
			req.Header.Set(HeaderSetResponseDelayMs, v)
			ov := ResolveOverrides(req)
			assert.Equal(t, 0, ov.StatusCode, v)
			if v != "999" && v != "99" && v != "600" {
				assert.Equal(t, time.Duration(0), ov.Delay, v)
			}
		}
	})

	t.Run("DelayOutOfDurationRange", func(t *testing.T) {
		for _, v := range []string{"9223372036855", "9223372036854775", "99999999999999999999"} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderSetResponseDelayMs, v)
			assert.Equal(t, time.Duration(0), ResolveOverrides(req).Delay, v)
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderSetResponseDelayMs, "9223372036854")
		assert.Equal(t, time.Duration(9223372036854)*time.Millisecond, ResolveOverrides(req).Delay)
	})

	t.Run("BoundaryStatusCodes", func(t *testing.T) {
		for code, want := range map[string]int{"100": 100, "599": 599} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderSetResponseStatusCode, code)
			assert.Equal(t, want, ResolveOverrides(req).StatusCode)
		}
	})

	t.Run("BodyOnlyNeedsLiteralTrue", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?response_body_only=1", nil)
		assert.False(t, ResolveOverrides(req).BodyOnly)
	})
}
