package tracing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	traceIDKey   contextKey = "trace_id"
	spanIDKey    contextKey = "span_id"
	startTimeKey contextKey = "start_time"
)

const (
	requestIDPrefix = "req_"
	// maxRequestIDLen bounds caller supplied request ids
	maxRequestIDLen = 64
)

// RequestInfo is the per-request correlation data carried in a context
type RequestInfo struct {
	RequestID string    `json:"request_id"`
	TraceID   string    `json:"trace_id"`
	SpanID    string    `json:"span_id"`
	StartTime time.Time `json:"start_time"`
}

// GenerateRequestID returns a random "req_" prefixed id
func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%s%d", requestIDPrefix, time.Now().UnixNano())
	}
	return requestIDPrefix + hex.EncodeToString(b)
}

// ResolveRequestID keeps an id supplied by a proxy or client when it is
// short and limited to [A-Za-z0-9._-]; otherwise a fresh id is generated.
func ResolveRequestID(incoming string) string {
	if incoming == "" || len(incoming) > maxRequestIDLen {
		return GenerateRequestID()
	}
	for _, c := range incoming {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return GenerateRequestID()
		}
	}
	return incoming
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func WithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, spanIDKey, spanID)
}

func WithStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, startTimeKey, startTime)
}

func GetRequestID(ctx context.Context) string { return valueOf[string](ctx, requestIDKey) }

func GetTraceID(ctx context.Context) string { return valueOf[string](ctx, traceIDKey) }

func GetSpanID(ctx context.Context) string { return valueOf[string](ctx, spanIDKey) }

func GetStartTime(ctx context.Context) time.Time { return valueOf[time.Time](ctx, startTimeKey) }

// GetRequestInfo collects every correlation value present in ctx
func GetRequestInfo(ctx context.Context) *RequestInfo {
	return &RequestInfo{
		RequestID: GetRequestID(ctx),
		TraceID:   GetTraceID(ctx),
		SpanID:    GetSpanID(ctx),
		StartTime: GetStartTime(ctx),
	}
}

// Duration is the time elapsed since the start time in ctx, or zero
func Duration(ctx context.Context) time.Duration {
	if start := GetStartTime(ctx); !start.IsZero() {
		return time.Since(start)
	}
	return 0
}

func valueOf[T any](ctx context.Context, key contextKey) T {
	v, _ := ctx.Value(key).(T)
	return v
}
