package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"whatsrelay/internal/httputil"
	"whatsrelay/internal/service"
	"whatsrelay/internal/tracing"

	"github.com/sirupsen/logrus"
)

const maskedValue = "***MASKED***"

// DetailedLoggingConfig controls what gets logged
type DetailedLoggingConfig struct {
	LogRequestHeaders  bool
	LogResponseHeaders bool
	SensitiveHeaders   []string
	SensitiveParams    []string
	SkipEndpoints      []string
}

// DefaultDetailedLoggingConfig masks credentials carried in headers and in
// the handshake and pull query strings
func DefaultDetailedLoggingConfig() DetailedLoggingConfig {
	return DetailedLoggingConfig{
		LogRequestHeaders:  true,
		LogResponseHeaders: false,
		SensitiveHeaders: []string{
			"authorization", "cookie", "set-cookie",
			"x-api-key", "x-hub-signature", "x-hub-signature-256",
		},
		SensitiveParams: []string{
			"hub.verify_token", "secret",
		},
		SkipEndpoints: []string{
			"/metrics",
		},
	}
}

// DetailedLoggingMiddleware logs request and response details at debug
// level. It is only installed in verbose mode.
func DetailedLoggingMiddleware(logger *logrus.Logger, config DetailedLoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range config.SkipEndpoints {
				if r.URL.Path == skip {
					next.ServeHTTP(w, r)
					return
				}
			}

			requestInfo := tracing.GetRequestInfo(r.Context())

			fields := logrus.Fields{
				service.LogFieldRequestID: requestInfo.RequestID,
				service.LogFieldTraceID:   requestInfo.TraceID,
				service.LogFieldMethod:    r.Method,
				service.LogFieldURL:       r.URL.Path,
				service.LogFieldRemoteIP:  httputil.GetClientIP(r),
				"query":                   maskQuery(r.URL.Query(), config.SensitiveParams),
				"content_length":          r.ContentLength,
				"protocol":                r.Proto,
			}
			if config.LogRequestHeaders {
				fields["request_headers"] = maskHeaders(r.Header, config.SensitiveHeaders)
			}
			logger.WithFields(fields).Debug("Detailed request logging")

			capture := &responseCaptureWrapper{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(capture, r)

			responseFields := logrus.Fields{
				service.LogFieldRequestID:  requestInfo.RequestID,
				service.LogFieldStatusCode: capture.statusCode,
				service.LogFieldSize:       capture.size,
			}
			if config.LogResponseHeaders {
				responseFields["response_headers"] = maskHeaders(w.Header(), config.SensitiveHeaders)
			}
			logger.WithFields(responseFields).Debug("Detailed response logging")
		})
	}
}

type responseCaptureWrapper struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rc *responseCaptureWrapper) Write(data []byte) (int, error) {
	n, err := rc.ResponseWriter.Write(data)
	rc.size += n
	return n, err
}

func (rc *responseCaptureWrapper) WriteHeader(statusCode int) {
	rc.statusCode = statusCode
	rc.ResponseWriter.WriteHeader(statusCode)
}

func maskHeaders(header http.Header, sensitive []string) map[string]string {
	headers := make(map[string]string, len(header))
	for name, values := range header {
		if containsFold(sensitive, name) {
			headers[name] = maskedValue
		} else {
			headers[name] = strings.Join(values, ", ")
		}
	}
	return headers
}

func maskQuery(query url.Values, sensitive []string) map[string]string {
	params := make(map[string]string, len(query))
	for name, values := range query {
		if containsFold(sensitive, name) {
			params[name] = maskedValue
		} else {
			params[name] = strings.Join(values, ", ")
		}
	}
	return params
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}
