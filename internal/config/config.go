package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"whatsrelay/internal/constants"
	"whatsrelay/internal/models"
	"whatsrelay/internal/security"
)

var (
	ErrInvalidPort         = models.ConfigError{Message: "port must be between 1 and 65535"}
	ErrMissingVerifyToken  = models.ConfigError{Message: "verify token cannot be empty"}
	ErrInvalidBodyLimit    = models.ConfigError{Message: "max webhook body bytes must be positive"}
	ErrInvalidLogLevel     = models.ConfigError{Message: "log level must be one of trace, debug, info, warn, error"}
	ErrPlaceholderToken    = models.ConfigError{Message: "verify token is still the placeholder value; set VERIFY_TOKEN in production"}
	ErrWeakProductionToken = models.ConfigError{Message: fmt.Sprintf("secrets must be at least %d characters in production", constants.MinProductionSecretLen)}
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

// LoadConfig builds the relay configuration. When path is non-empty the
// JSON file at path is read first; environment variables always take
// precedence over it. The pull secret falls back to the verify token.
func LoadConfig(path string) (*models.Config, error) {
	// seeded so that an explicit 0 in the file or environment is kept
	config := models.Config{
		Tracing: models.TracingConfig{SampleRate: constants.DefaultTracingSampleRate},
	}

	if path != "" {
		if err := security.ValidateConfigPath(path); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}

		file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateConfigPath above
		if err != nil {
			return nil, err
		}

		if err := json.Unmarshal(file, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnvironmentOverrides(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	if err := validateSecurity(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyEnvironmentOverrides(c *models.Config) error {
	if port := os.Getenv(constants.EnvPort); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid %s %q: %v", constants.EnvPort, port, err)}
		}
		c.Port = p
	}

	// SECURITY: secrets should be set via environment variables
	if token := os.Getenv(constants.EnvVerifyToken); token != "" {
		c.VerifyToken = token
	}
	if secret := os.Getenv(constants.EnvPullSecret); secret != "" {
		c.PullSecret = secret
	}

	if level := os.Getenv(constants.EnvLogLevel); level != "" {
		c.LogLevel = level
	}

	if limit := os.Getenv(constants.EnvMaxWebhookBodyBytes); limit != "" {
		n, err := strconv.ParseInt(limit, 10, 64)
		if err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid %s %q: %v", constants.EnvMaxWebhookBodyBytes, limit, err)}
		}
		c.MaxWebhookBodyBytes = n
	}

	if enabled := os.Getenv(constants.EnvTracingEnabled); enabled != "" {
		b, err := strconv.ParseBool(enabled)
		if err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid %s %q: %v", constants.EnvTracingEnabled, enabled, err)}
		}
		c.Tracing.Enabled = b
	}
	if endpoint := os.Getenv(constants.EnvTracingEndpoint); endpoint != "" {
		c.Tracing.OTLPEndpoint = endpoint
		c.Tracing.UseStdout = false
	}
	if useStdout := os.Getenv(constants.EnvTracingUseStdout); useStdout != "" {
		b, err := strconv.ParseBool(useStdout)
		if err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid %s %q: %v", constants.EnvTracingUseStdout, useStdout, err)}
		}
		c.Tracing.UseStdout = b
	}
	if rate := os.Getenv(constants.EnvTracingSampleRate); rate != "" {
		f, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return models.ConfigError{Message: fmt.Sprintf("invalid %s %q: %v", constants.EnvTracingSampleRate, rate, err)}
		}
		c.Tracing.SampleRate = f
	}

	return nil
}

func applyDefaults(c *models.Config) {
	if c.Port == 0 {
		c.Port = constants.DefaultServerPort
	}
	if c.VerifyToken == "" {
		c.VerifyToken = constants.DefaultVerifyToken
	}
	if c.PullSecret == "" {
		c.PullSecret = c.VerifyToken
	}
	if c.LogLevel == "" {
		c.LogLevel = constants.DefaultLogLevel
	}
	if c.MaxWebhookBodyBytes == 0 {
		c.MaxWebhookBodyBytes = constants.DefaultMaxWebhookBodyBytes
	}

	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	if c.Server.ShutdownTimeoutSec <= 0 {
		c.Server.ShutdownTimeoutSec = constants.DefaultGracefulShutdownSec
	}
	if c.Server.CORSAllowOrigin == "" {
		c.Server.CORSAllowOrigin = constants.DefaultCORSAllowOrigin
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = constants.DefaultTracingServiceName
	}
	if c.Tracing.OTLPEndpoint == "" {
		c.Tracing.OTLPEndpoint = constants.DefaultTracingEndpoint
	}
	if c.Tracing.Environment == "" {
		c.Tracing.Environment = environment()
	}
}

func validate(c *models.Config) error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if strings.TrimSpace(c.VerifyToken) == "" {
		return ErrMissingVerifyToken
	}
	if c.MaxWebhookBodyBytes < 0 {
		return ErrInvalidBodyLimit
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return ErrInvalidLogLevel
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return models.ConfigError{Message: "tracing sample rate must be between 0 and 1"}
	}
	return nil
}

// validateSecurity refuses placeholder and short secrets in production
func validateSecurity(c *models.Config) error {
	if !IsProduction() {
		return nil
	}

	if c.VerifyToken == constants.DefaultVerifyToken || c.PullSecret == constants.DefaultVerifyToken {
		return ErrPlaceholderToken
	}
	if len(c.VerifyToken) < constants.MinProductionSecretLen || len(c.PullSecret) < constants.MinProductionSecretLen {
		return ErrWeakProductionToken
	}
	if strings.EqualFold(c.LogLevel, "debug") || strings.EqualFold(c.LogLevel, "trace") {
		return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
	}

	return nil
}

// SecurityWarnings lists insecure settings that are tolerated outside
// production
func SecurityWarnings(c *models.Config) []string {
	var warnings []string

	if c.VerifyToken == constants.DefaultVerifyToken {
		warnings = append(warnings, "verify token is the placeholder value; set VERIFY_TOKEN")
	}
	if c.PullSecret == c.VerifyToken {
		warnings = append(warnings, "pull secret equals the verify token; set PULL_SECRET to a distinct value")
	}

	return warnings
}

// IsProduction reports whether RELAY_ENV selects production mode
func IsProduction() bool {
	return environment() == constants.ProductionEnv
}

func environment() string {
	if env := os.Getenv(constants.EnvRelayEnv); env != "" {
		return strings.ToLower(env)
	}
	return "development"
}
