package echo

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/httpecho/httpecho/common"
	"github.com/httpecho/httpecho/util"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const (
	contentTypeJson      = "application/json; charset=utf-8"
	contentTypePlainText = "text/plain; charset=utf-8"
)

// Reflector answers every request with a description of the request itself.
type Reflector struct {
	cfg      *common.EchoConfig
	logCfg   *common.RequestLogConfig
	logger   *zerolog.Logger
	hostname string

	overrideBody        []byte
	overrideContentType string
}

func NewReflector(logger *zerolog.Logger, cfg *common.Config, hostname string) *Reflector {
	return &Reflector{
		cfg:      cfg.Echo,
		logCfg:   cfg.Logging,
		logger:   logger,
		hostname: hostname,
	}
}

// WithOverrideBody makes the reflector answer every request with body instead
// of an echo.
func (rf *Reflector) WithOverrideBody(body []byte, contentType string) *Reflector {
	rf.overrideBody = body
	rf.overrideContentType = contentType
	return rf
}

// LoadOverrideBody reads the static response body once at startup. The content
// type comes from the file extension, or is sniffed when the extension is unknown.
func LoadOverrideBody(fs afero.Fs, path string) ([]byte, string, error) {
	body, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, "", err
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return body, contentType, nil
}

func (rf *Reflector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if rf.overrideBody != nil {
		w.Header().Set("Content-Type", rf.overrideContentType)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(rf.overrideBody); err != nil {
			rf.logger.Debug().Err(err).Msg("failed to write override response body")
		}
		return
	}

	// raw header bytes have to be claimed before the body is read, otherwise the
	// recorded window may have moved past them
	headers := rf.headers(r)

	body, err := util.ReadBody(r.Body, r.Header.Get("Content-Encoding"), rf.cfg.MaxBodySize)
	if err != nil {
		handleErrorResponse(rf.logger, err, w)
		return
	}
	if rf.cfg.PreserveHeaderCase {
		// body bytes must not precede the next request line on this conn
		if rc := recordingConn(r); rc != nil {
			rc.Discard()
		}
	}

	doc := rf.BuildDocument(r, headers, body)
	ov := ResolveOverrides(r)

	if ov.Delay > 0 {
		timer := time.NewTimer(ov.Delay)
		select {
		case <-timer.C:
		case <-r.Context().Done():
			timer.Stop()
			rf.logger.Debug().Str("path", r.URL.Path).Msg("client went away during response delay")
			return
		}
	}

	rf.writeResponse(w, r, doc, ov)

	if !rf.logCfg.Ignored(doc.Path) {
		rf.logDocument(doc)
	}
}

// BuildDocument assembles the echo of r. headers is the already resolved header
// mapping and body the already read request body.
func (rf *Reflector) BuildDocument(r *http.Request, headers map[string]string, body string) *common.EchoDocument {
	conn := connectionOf(r)
	client := resolveClient(r, conn.Scheme())

	doc := &common.EchoDocument{
		Path:       r.URL.EscapedPath(),
		Headers:    headers,
		Method:     r.Method,
		Body:       body,
		Cookies:    ParseCookies(strings.Join(r.Header.Values("Cookie"), "; ")),
		Fresh:      false,
		Hostname:   client.hostname,
		Ip:         client.ip,
		Ips:        client.ips,
		Protocol:   client.protocol,
		Query:      queryOf(r),
		Subdomains: client.subdomains,
		Xhr:        strings.EqualFold(r.Header.Get("X-Requested-With"), "xmlhttprequest"),
		Os:         common.OsInfo{Hostname: rf.hostname},
	}

	if tlsConn, ok := conn.(common.TlsConnection); ok {
		doc.Connection.ServerName = tlsConn.ServerName
		if tlsConn.PeerCertificate != nil {
			doc.ClientCertificate = common.NewClientCertificate(tlsConn.PeerCertificate)
		}
	}

	if rf.cfg.IncludeEnvVars {
		doc.Env = rf.cfg.Environment
	}

	if declaresJson(r.Header.Get("Content-Type")) {
		var parsed interface{}
		if err := common.SonicCfg.UnmarshalFromString(body, &parsed); err != nil {
			rf.logger.Warn().Err(common.NewErrJsonParse(err)).Str("path", doc.Path).Msg("invalid json body received")
		} else {
			doc.Json = util.S2Bytes(body)
		}
	}

	if rf.cfg.JwtHeader != "" {
		doc.JwtEnabled = true
		doc.Jwt = rf.decodeJwt(r)
	}

	return doc
}

func (rf *Reflector) headers(r *http.Request) map[string]string {
	if !rf.cfg.PreserveHeaderCase {
		return normalizedHeaders(r)
	}
	if pairs, ok := captureRawHeaders(r); ok {
		return rawHeaders(pairs)
	}
	rf.logger.Debug().Str("path", r.URL.Path).Msg("raw headers unavailable, falling back to lowercase names")
	return normalizedHeaders(r)
}

func (rf *Reflector) decodeJwt(r *http.Request) *common.JwtToken {
	value := r.Header.Get(rf.cfg.JwtHeader)
	if value == "" {
		return nil
	}
	token, err := DecodeJwt(ExtractJwt(value))
	if err != nil {
		rf.logger.Warn().Err(common.NewErrJwtDecode(rf.cfg.JwtHeader, err)).Msg("could not decode jwt from request header")
		return nil
	}
	return token
}

func (rf *Reflector) writeResponse(w http.ResponseWriter, r *http.Request, doc *common.EchoDocument, ov Overrides) {
	var payload []byte
	contentType := contentTypeJson

	switch {
	case !rf.cfg.EchoBackToClient:
		payload = nil
	case ov.BodyOnly:
		payload = util.S2Bytes(doc.Body)
		if ct := r.Header.Get("Content-Type"); ct != "" {
			contentType = ct
		} else {
			contentType = contentTypePlainText
		}
	default:
		encoded, err := doc.Encode(false)
		if err != nil {
			handleErrorResponse(rf.logger, err, w)
			return
		}
		payload = encoded
	}

	if ov.ContentType != "" {
		contentType = ov.ContentType
	}

	status := ov.Status(http.StatusOK)
	if status < http.StatusOK {
		// a 1xx cannot end a response: it goes out as an interim response
		// and the echo follows with 200. net/http would treat 101 as final.
		if status != http.StatusSwitchingProtocols {
			w.WriteHeader(status)
		}
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)

	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			rf.logger.Debug().Err(err).Msg("failed to write echo response")
		}
	}
}

func (rf *Reflector) logDocument(doc *common.EchoDocument) {
	encoded, err := doc.Encode(!rf.logCfg.WithoutNewline)
	if err != nil {
		rf.logger.Error().Err(err).Msg("failed to encode echo document for logging")
		return
	}
	rf.logger.Info().RawJSON("echo", encoded).Msg("echo")
}

func queryOf(r *http.Request) map[string]interface{} {
	values := r.URL.Query()
	query := make(map[string]interface{}, len(values))
	for k, v := range values {
		if len(v) == 1 {
			query[k] = v[0]
		} else {
			query[k] = v
		}
	}
	return query
}

func declaresJson(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func handleErrorResponse(logger *zerolog.Logger, err error, w http.ResponseWriter) {
	status := http.StatusInternalServerError
	var httpErr common.ErrorWithStatusCode
	if errors.As(err, &httpErr) {
		status = httpErr.ErrorStatusCode()
	}

	if status >= 500 {
		logger.Error().Err(err).Msg("failed to handle echo request")
	} else {
		logger.Debug().Err(err).Int("status", status).Msg("rejected echo request")
	}

	var body interface{} = map[string]string{"error": err.Error()}
	var bodyErr common.ErrorWithBody
	if errors.As(err, &bodyErr) {
		body = bodyErr.ErrorResponseBody()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if writeErr := common.SonicCfg.NewEncoder(w).Encode(body); writeErr != nil {
		logger.Error().Err(writeErr).Msg("failed to encode error response body")
	}
}

// Hostname is resolved once at startup and reported in every echo.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}
