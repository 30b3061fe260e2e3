package models

// Config holds the application configuration
type Config struct {
	Port                int           `json:"port"`
	VerifyToken         string        `json:"verify_token"`
	PullSecret          string        `json:"pull_secret"`
	LogLevel            string        `json:"log_level"`
	MaxWebhookBodyBytes int64         `json:"max_webhook_body_bytes"`
	Server              ServerConfig  `json:"server"`
	Tracing             TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	ReadTimeoutSec     int    `json:"read_timeout_sec"`
	WriteTimeoutSec    int    `json:"write_timeout_sec"`
	IdleTimeoutSec     int    `json:"idle_timeout_sec"`
	ShutdownTimeoutSec int    `json:"shutdown_timeout_sec"`
	CORSAllowOrigin    string `json:"cors_allow_origin"`
}

// TracingConfig holds OpenTelemetry settings
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	UseStdout      bool    `json:"use_stdout"`
}

// Secrets are the shared secrets checked by the HTTP surface
type Secrets struct {
	VerifyToken string
	PullSecret  string
}

// Secrets returns the configured handshake and pull secrets
func (c *Config) Secrets() Secrets {
	return Secrets{
		VerifyToken: c.VerifyToken,
		PullSecret:  c.PullSecret,
	}
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
