package constants

// Relay defaults
const (
	DefaultServerPort  = 3000
	DefaultVerifyToken = "changeme"
	DefaultLogLevel    = "info"

	// DefaultMaxWebhookBodyBytes caps how much of a webhook body is read
	DefaultMaxWebhookBodyBytes = 1 << 20
)

// Default timeout values
const (
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	DefaultConfigPollIntervalSec = 5
)

// Tracing defaults
const (
	DefaultTracingServiceName = "whatsrelay"
	DefaultTracingEndpoint    = "http://localhost:4318/v1/traces"
	DefaultTracingSampleRate  = 0.1
)

// HTTP surface
const (
	DefaultCORSAllowOrigin = "*"
	ServerErrorChannelSize = 1
	MinProductionSecretLen = 16
)

// Environment variable names
const (
	EnvPort                = "PORT"
	EnvVerifyToken         = "VERIFY_TOKEN"
	EnvPullSecret          = "PULL_SECRET"
	EnvLogLevel            = "LOG_LEVEL"
	EnvMaxWebhookBodyBytes = "MAX_WEBHOOK_BODY_BYTES"
	EnvRelayEnv            = "RELAY_ENV"
	EnvTracingEnabled      = "OTEL_ENABLED"
	EnvTracingEndpoint     = "OTEL_EXPORTER_OTLP_ENDPOINT"
	EnvTracingSampleRate   = "OTEL_SAMPLE_RATE"
	EnvTracingUseStdout    = "OTEL_USE_STDOUT"

	ProductionEnv = "production"
)
