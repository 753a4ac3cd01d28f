package echo

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/httpecho/httpecho/common"
	"github.com/httpecho/httpecho/util"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func init() {
	util.ConfigureTestLogger()
}

func newTestConfig(t *testing.T, env map[string]string) *common.Config {
	t.Helper()
	if env == nil {
		env = map[string]string{}
	}
	cfg, err := common.LoadConfig(env)
	require.NoError(t, err)
	return cfg
}

func newTestHandler(t *testing.T, cfg *common.Config) http.Handler {
	t.Helper()
	logger := util.TestLogger()
	return NewHandler(logger, cfg, NewReflector(logger, cfg, "test-host"), nil)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeDoc(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &doc), "body: %s", body)
	return doc
}

// syncBuffer is written by handlers and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLogger enables logging for the duration of the test and returns a
// logger writing into a buffer.
func captureLogger(t *testing.T) (*zerolog.Logger, *syncBuffer) {
	t.Helper()
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	buf := &syncBuffer{}
	logger := zerolog.New(buf)
	return &logger, buf
}
