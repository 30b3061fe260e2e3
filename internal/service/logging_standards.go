package service

// Standard field names for relay log lines. Use these exact names so log
// queries work across components.
const (
	// Core identifiers
	LogFieldMessageID = "message_id"
	LogFieldPhone     = "phone"
	LogFieldRequestID = "request_id"
	LogFieldTraceID   = "trace_id"

	// Service and operation fields
	LogFieldService   = "service"
	LogFieldOperation = "operation"
	LogFieldComponent = "component"
	LogFieldMethod    = "method"

	// Message and event fields
	LogFieldMessageType = "message_type"
	LogFieldDirection   = "direction"

	// Performance and counts
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"
	LogFieldSkipped  = "skipped"
	LogFieldPending  = "pending"
	LogFieldSize     = "size_bytes"

	// Network
	LogFieldURL        = "url"
	LogFieldEndpoint   = "endpoint"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"

	// Errors
	LogFieldErrorCode  = "error_code"
	LogFieldErrorCount = "error_count"
)

// Log levels:
//
// DEBUG: per-record detail (masked unless verbose).
// INFO:  startup, shutdown, request completion, successful pulls.
// WARN:  malformed webhook bodies, rejected handshakes and pulls.
// ERROR: response encoding failures, server errors.
