package errors

import (
	"fmt"
)

// Common error creators for frequent use cases

// NewConfigError creates a configuration error
func NewConfigError(key, message string) *AppError {
	return New(ErrCodeInvalidConfig, message).
		WithContext("config_key", key).
		WithUserMessage("Configuration error")
}

// NewPayloadError creates an ingestion error for the part of a webhook body
// at path. A nil cause yields a plain INVALID_INPUT error.
func NewPayloadError(path string, err error) *AppError {
	message := "malformed webhook payload"
	if path != "" {
		message = fmt.Sprintf("malformed webhook payload at %s", path)
	}
	return Wrap(err, ErrCodeInvalidInput, message).
		WithContext("path", path)
}

// NewPayloadTooLargeError creates an error for bodies above the configured limit
func NewPayloadTooLargeError(limit int64) *AppError {
	return New(ErrCodePayloadTooLarge, fmt.Sprintf("webhook body exceeds %d bytes", limit)).
		WithContext("limit_bytes", limit)
}

// NewAuthError creates an authentication/authorization error
func NewAuthError(reason string) *AppError {
	return New(ErrCodeAuthentication, "authentication failed").
		WithContext("reason", reason).
		WithUserMessage("Authentication failed")
}
