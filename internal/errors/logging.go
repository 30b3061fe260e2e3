package errors

import (
	stderrors "errors"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger so AppError codes and context land in
// structured fields instead of the message text
type Logger struct {
	*logrus.Logger
}

func NewLogger() *Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return &Logger{Logger: logger}
}

// FromLogrus wraps an already configured logrus logger
func FromLogrus(logger *logrus.Logger) *Logger {
	return &Logger{Logger: logger}
}

func (l *Logger) LogError(err error, message string, fields ...logrus.Fields) {
	l.entry(err, fields...).Error(message)
}

func (l *Logger) LogWarn(err error, message string, fields ...logrus.Fields) {
	l.entry(err, fields...).Warn(message)
}

// WithError adds an error and its AppError fields to subsequent log entries
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.entry(err)
}

func (l *Logger) entry(err error, fields ...logrus.Fields) *logrus.Entry {
	entry := l.Logger.WithError(err).WithFields(errorFields(err))
	for _, field := range fields {
		entry = entry.WithFields(field)
	}
	return entry
}

// errorFields flattens an error into log fields. A single AppError
// contributes its code and context. Joined errors, such as the result of
// a partially readable webhook body, contribute every code and path.
func errorFields(err error) logrus.Fields {
	fields := logrus.Fields{}

	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var codes []ErrorCode
		var paths []string
		for _, e := range joined.Unwrap() {
			var appErr *AppError
			if !stderrors.As(e, &appErr) {
				continue
			}
			codes = append(codes, appErr.Code)
			if path, ok := appErr.Context["path"].(string); ok && path != "" {
				paths = append(paths, path)
			}
		}
		if len(codes) > 0 {
			fields["error_codes"] = codes
		}
		if len(paths) > 0 {
			fields["error_paths"] = paths
		}
		return fields
	}

	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return fields
	}
	fields["error_code"] = appErr.Code
	for k, v := range appErr.Context {
		fields[k] = v
	}
	return fields
}
