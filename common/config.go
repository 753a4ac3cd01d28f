package common

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Config represents the configuration of the application. It is built once at
// startup from the environment and never mutated afterwards.
type Config struct {
	LogLevel  string
	LogFormat LogFormat
	Server    *ServerConfig
	Echo      *EchoConfig
	CORS      *CORSConfig
	Metrics   *MetricsConfig
	Logging   *RequestLogConfig
	Tracing   *TracingConfig
}

type LogFormat string

const (
	LogFormatJson    LogFormat = "json"
	LogFormatConsole LogFormat = "console"
)

type ServerConfig struct {
	HttpPort        int
	HttpsPort       int
	HttpsKeyFile    string
	HttpsCertFile   string
	MtlsEnabled     bool
	MaxHeaderSize   int64
	ShutdownTimeout time.Duration
}

type EchoConfig struct {
	MaxBodySize                  int64
	EchoBackToClient             bool
	OverrideResponseBodyFilePath string
	PreserveHeaderCase           bool
	IncludeEnvVars               bool
	JwtHeader                    string

	// Environment is the process environment captured at load time, only
	// populated when IncludeEnvVars is set.
	Environment map[string]string
}

type CORSConfig struct {
	AllowOrigin      string
	AllowMethods     string
	AllowHeaders     string
	AllowCredentials string
}

func (c *CORSConfig) Enabled() bool {
	return c != nil && c.AllowOrigin != ""
}

type MetricsConfig struct {
	Enabled    bool
	Path       string
	WithPath   bool
	WithMethod bool
	WithStatus bool
	Buckets    string
}

type RequestLogConfig struct {
	Disabled       bool
	IgnorePath     string
	WithoutNewline bool

	ignorePattern *regexp.Regexp
}

// Ignored reports whether request logs should be skipped for the given path.
func (c *RequestLogConfig) Ignored(path string) bool {
	if c == nil {
		return false
	}
	if c.Disabled {
		return true
	}
	return c.ignorePattern != nil && c.ignorePattern.MatchString(path)
}

type TracingProtocol string

const (
	TracingProtocolHttp TracingProtocol = "http"
	TracingProtocolGrpc TracingProtocol = "grpc"
)

type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	Protocol   TracingProtocol
	SampleRate float64
	Insecure   bool

	// ServiceName is reported as service.name on every span.
	ServiceName string
}

// EnvironMap converts an os.Environ style slice into a map.
func EnvironMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// LoadConfig reads every setting from env, applies defaults and validates the result.
func LoadConfig(env map[string]string) (*Config, error) {
	r := &envReader{env: env}
	cfg := &Config{
		LogLevel:  r.str("LOG_LEVEL"),
		LogFormat: LogFormat(strings.ToLower(r.str("LOG_FORMAT"))),
		Server: &ServerConfig{
			HttpPort:        r.integer("HTTP_PORT", "PORT"),
			HttpsPort:       r.integer("HTTPS_PORT"),
			HttpsKeyFile:    r.str("HTTPS_KEY_FILE"),
			HttpsCertFile:   r.str("HTTPS_CERT_FILE"),
			MtlsEnabled:     r.boolean("MTLS_ENABLE", false),
			MaxHeaderSize:   r.byteSize("MAX_HEADER_SIZE"),
			ShutdownTimeout: r.duration("SHUTDOWN_TIMEOUT"),
		},
		Echo: &EchoConfig{
			MaxBodySize:                  r.byteSize("MAX_BODY_SIZE"),
			EchoBackToClient:             r.boolean("ECHO_BACK_TO_CLIENT", true),
			OverrideResponseBodyFilePath: r.str("OVERRIDE_RESPONSE_BODY_FILE_PATH"),
			PreserveHeaderCase:           r.boolean("PRESERVE_HEADER_CASE", false),
			IncludeEnvVars:               r.boolean("ECHO_INCLUDE_ENV_VARS", false),
			JwtHeader:                    r.str("JWT_HEADER"),
		},
		CORS: &CORSConfig{
			AllowOrigin:      r.str("CORS_ALLOW_ORIGIN"),
			AllowMethods:     r.str("CORS_ALLOW_METHODS"),
			AllowHeaders:     r.str("CORS_ALLOW_HEADERS"),
			AllowCredentials: r.str("CORS_ALLOW_CREDENTIALS"),
		},
		Metrics: &MetricsConfig{
			Enabled:    r.boolean("PROMETHEUS_ENABLED", false),
			Path:       r.str("PROMETHEUS_METRICS_PATH"),
			WithPath:   r.boolean("PROMETHEUS_WITH_PATH", false),
			WithMethod: r.boolean("PROMETHEUS_WITH_METHOD", true),
			WithStatus: r.boolean("PROMETHEUS_WITH_STATUS", true),
			Buckets:    r.str("PROMETHEUS_BUCKETS"),
		},
		Logging: &RequestLogConfig{
			Disabled:       r.boolean("DISABLE_REQUEST_LOGS", false),
			IgnorePath:     r.str("LOG_IGNORE_PATH"),
			WithoutNewline: r.boolean("LOG_WITHOUT_NEWLINE", false),
		},
		Tracing: &TracingConfig{
			Enabled:    r.boolean("TRACING_ENABLED", false),
			Endpoint:   r.str("TRACING_ENDPOINT"),
			Protocol:   TracingProtocol(strings.ToLower(r.str("TRACING_PROTOCOL"))),
			SampleRate: r.float("TRACING_SAMPLE_RATE", 1.0),
			Insecure:   r.boolean("TRACING_INSECURE", true),

			ServiceName: r.str("TRACING_SERVICE_NAME"),
		},
	}
	if r.err != nil {
		return nil, r.err
	}

	if cfg.Echo.IncludeEnvVars {
		cfg.Echo.Environment = make(map[string]string, len(env))
		for k, v := range env {
			cfg.Echo.Environment[k] = v
		}
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.HttpPort < 0 || c.Server.HttpPort > 65535 {
		return NewErrInvalidConfig(fmt.Sprintf("HTTP_PORT must be between 0 and 65535, got %d", c.Server.HttpPort))
	}
	if c.Server.HttpsPort < 0 || c.Server.HttpsPort > 65535 {
		return NewErrInvalidConfig(fmt.Sprintf("HTTPS_PORT must be between 0 and 65535, got %d", c.Server.HttpsPort))
	}
	if c.Echo.MaxBodySize < 0 {
		return NewErrInvalidConfig("MAX_BODY_SIZE cannot be negative")
	}
	switch c.LogFormat {
	case LogFormatJson, LogFormatConsole:
	default:
		return NewErrInvalidConfig(fmt.Sprintf("LOG_FORMAT must be one of json, console; got '%s'", c.LogFormat))
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return NewErrInvalidConfig(fmt.Sprintf("PROMETHEUS_METRICS_PATH must start with '/', got '%s'", c.Metrics.Path))
	}
	if c.Logging.IgnorePath != "" {
		re, err := regexp.Compile(c.Logging.IgnorePath)
		if err != nil {
			return NewErrInvalidConfig(fmt.Sprintf("LOG_IGNORE_PATH is not a valid regular expression: %v", err))
		}
		c.Logging.ignorePattern = re
	}
	if c.Tracing.Enabled {
		if c.Tracing.Endpoint == "" {
			return NewErrInvalidConfig("TRACING_ENDPOINT is required when TRACING_ENABLED is set")
		}
		if c.Tracing.Protocol != TracingProtocolHttp && c.Tracing.Protocol != TracingProtocolGrpc {
			return NewErrInvalidConfig(fmt.Sprintf("TRACING_PROTOCOL must be http or grpc, got '%s'", c.Tracing.Protocol))
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return NewErrInvalidConfig("TRACING_SAMPLE_RATE must be between 0 and 1")
		}
	}
	return nil
}

func (c *Config) MarshalZerologObject(e *zerolog.Event) {
	e.Str("logLevel", c.LogLevel).
		Str("logFormat", string(c.LogFormat)).
		Object("server", c.Server).
		Object("echo", c.Echo).
		Bool("cors", c.CORS.Enabled()).
		Bool("metrics", c.Metrics.Enabled).
		Bool("tracing", c.Tracing.Enabled)
}

func (c *ServerConfig) MarshalZerologObject(e *zerolog.Event) {
	e.Int("httpPort", c.HttpPort).
		Int("httpsPort", c.HttpsPort).
		Str("httpsKeyFile", c.HttpsKeyFile).
		Str("httpsCertFile", c.HttpsCertFile).
		Bool("mtls", c.MtlsEnabled).
		Dur("shutdownTimeout", c.ShutdownTimeout)
}

func (c *EchoConfig) MarshalZerologObject(e *zerolog.Event) {
	maxBody := "unlimited"
	if c.MaxBodySize > 0 {
		maxBody = humanize.IBytes(uint64(c.MaxBodySize))
	}
	e.Str("maxBodySize", maxBody).
		Bool("echoBackToClient", c.EchoBackToClient).
		Str("overrideResponseBodyFilePath", c.OverrideResponseBodyFilePath).
		Bool("preserveHeaderCase", c.PreserveHeaderCase).
		Bool("includeEnvVars", c.IncludeEnvVars).
		Str("jwtHeader", c.JwtHeader)
}

// envReader collects the first parse failure so LoadConfig can report it once.
type envReader struct {
	env map[string]string
	err error
}

func (r *envReader) lookup(names ...string) (string, string, bool) {
	for _, name := range names {
		if v, ok := r.env[name]; ok && strings.TrimSpace(v) != "" {
			return name, strings.TrimSpace(v), true
		}
	}
	return "", "", false
}

func (r *envReader) fail(name, value, expected string) {
	if r.err == nil {
		r.err = NewErrInvalidConfig(fmt.Sprintf("%s must be %s, got '%s'", name, expected, value))
	}
}

func (r *envReader) str(names ...string) string {
	_, v, _ := r.lookup(names...)
	return v
}

// integer returns -1 when none of the names is set.
func (r *envReader) integer(names ...string) int {
	name, v, ok := r.lookup(names...)
	if !ok {
		return -1
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.fail(name, v, "an integer")
		return -1
	}
	return i
}

func (r *envReader) float(name string, def float64) float64 {
	_, v, ok := r.lookup(name)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(name, v, "a number")
		return def
	}
	return f
}

func (r *envReader) boolean(name string, def bool) bool {
	_, v, ok := r.lookup(name)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	r.fail(name, v, "a boolean")
	return def
}

// byteSize returns -1 when the variable is unset so defaults can tell
// "unset" apart from an explicit 0 (unlimited).
func (r *envReader) byteSize(name string) int64 {
	_, v, ok := r.lookup(name)
	if !ok {
		return -1
	}
	n, err := ParseByteSize(v)
	if err != nil {
		r.fail(name, v, "a byte size")
		return -1
	}
	return n
}

func (r *envReader) duration(name string) time.Duration {
	_, v, ok := r.lookup(name)
	if !ok {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(name, v, "a duration")
		return 0
	}
	return d
}

// ParseByteSize accepts plain byte counts as well as humanized sizes such as 1MB or 512KiB.
func ParseByteSize(size string) (int64, error) {
	size = strings.TrimSpace(size)
	if size == "" {
		return 0, fmt.Errorf("empty size string")
	}
	if strings.HasPrefix(size, "-") {
		return 0, fmt.Errorf("size cannot be negative")
	}
	n, err := humanize.ParseBytes(size)
	if err != nil {
		return 0, fmt.Errorf("invalid size format: %w", err)
	}
	return int64(n), nil
}
