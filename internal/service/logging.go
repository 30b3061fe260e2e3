package service

import (
	"context"

	"whatsrelay/internal/privacy"
)

// ContextKey is a package-local type to prevent context key collisions
type ContextKey string

// VerboseContextKey marks a context whose log lines may carry unmasked
// phone numbers and message ids
const VerboseContextKey ContextKey = "verbose"

// IsVerboseLogging checks if verbose logging is enabled from context
func IsVerboseLogging(ctx context.Context) bool {
	if verbose, ok := ctx.Value(VerboseContextKey).(bool); ok {
		return verbose
	}
	return false
}

// WithVerbose returns a context carrying the verbose flag
func WithVerbose(ctx context.Context, verbose bool) context.Context {
	return context.WithValue(ctx, VerboseContextKey, verbose)
}

// SanitizePhoneNumber masks a phone number unless ctx is verbose
func SanitizePhoneNumber(ctx context.Context, phone string) string {
	if IsVerboseLogging(ctx) {
		return phone
	}
	return privacy.MaskPhoneNumber(phone)
}

// SanitizeMessageID masks a message id unless ctx is verbose
func SanitizeMessageID(ctx context.Context, messageID string) string {
	if IsVerboseLogging(ctx) {
		return messageID
	}
	return privacy.MaskMessageID(messageID)
}
