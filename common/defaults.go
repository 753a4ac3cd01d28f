package common

import "time"

const (
	DefaultHttpPort           = 8080
	DefaultHttpsPort          = 8443
	DefaultHttpsKeyFile       = "testpk.pem"
	DefaultHttpsCertFile      = "fullchain.pem"
	DefaultMaxBodySize        = 1024 * 1024
	DefaultMetricsPath        = "/metrics"
	DefaultShutdownTimeout    = 10 * time.Second
	DefaultLogLevel           = "info"
	DefaultTracingSampleRate  = 1.0
	DefaultTracingServiceName = "httpecho"
)

func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJson
	}

	if c.Server == nil {
		c.Server = &ServerConfig{HttpPort: -1, HttpsPort: -1, MaxHeaderSize: -1}
	}
	c.Server.SetDefaults()

	if c.Echo == nil {
		c.Echo = &EchoConfig{MaxBodySize: -1, EchoBackToClient: true}
	}
	c.Echo.SetDefaults()

	if c.CORS == nil {
		c.CORS = &CORSConfig{}
	}

	if c.Metrics == nil {
		c.Metrics = &MetricsConfig{WithMethod: true, WithStatus: true}
	}
	c.Metrics.SetDefaults()

	if c.Logging == nil {
		c.Logging = &RequestLogConfig{}
	}

	if c.Tracing == nil {
		c.Tracing = &TracingConfig{SampleRate: DefaultTracingSampleRate}
	}
	if c.Tracing.Protocol == "" {
		c.Tracing.Protocol = TracingProtocolHttp
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = DefaultTracingServiceName
	}
}

func (s *ServerConfig) SetDefaults() {
	if s.HttpPort < 0 {
		s.HttpPort = DefaultHttpPort
	}
	if s.HttpsPort < 0 {
		s.HttpsPort = DefaultHttpsPort
	}
	if s.HttpsKeyFile == "" {
		s.HttpsKeyFile = DefaultHttpsKeyFile
	}
	if s.HttpsCertFile == "" {
		s.HttpsCertFile = DefaultHttpsCertFile
	}
	if s.MaxHeaderSize < 0 {
		// 0 leaves net/http's own default in place
		s.MaxHeaderSize = 0
	}
	if s.ShutdownTimeout <= 0 {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func (e *EchoConfig) SetDefaults() {
	if e.MaxBodySize < 0 {
		e.MaxBodySize = DefaultMaxBodySize
	}
}

func (m *MetricsConfig) SetDefaults() {
	if m.Path == "" {
		m.Path = DefaultMetricsPath
	}
}
