package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger() (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetOutput(&buf)
	return logger, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_LogWarnWithAppError(t *testing.T) {
	logger, buf := newBufferedLogger()

	err := NewPayloadError("entry[0]", errors.New("not an object"))
	logger.LogWarn(err, "Webhook parse error", logrus.Fields{"request_id": "req_1"})

	entry := decodeLine(t, buf)
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "Webhook parse error", entry["msg"])
	assert.Equal(t, "INVALID_INPUT", entry["error_code"])
	assert.Equal(t, "entry[0]", entry["path"])
	assert.Equal(t, "req_1", entry["request_id"])
}

func TestLogger_LogErrorWithPlainError(t *testing.T) {
	logger, buf := newBufferedLogger()

	logger.LogError(errors.New("plain failure"), "Something failed")

	entry := decodeLine(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "plain failure", entry["error"])
	assert.NotContains(t, entry, "error_code")
}

func TestFromLogrus(t *testing.T) {
	var buf bytes.Buffer
	base := logrus.New()
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	logger := FromLogrus(base)
	logger.WithError(NewAuthError("bad secret")).Info("denied")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "AUTHENTICATION", entry["error_code"])
	assert.Equal(t, "bad secret", entry["reason"])
}

func TestLogger_JoinedPayloadErrors(t *testing.T) {
	logger, buf := newBufferedLogger()

	err := errors.Join(
		NewPayloadError("entry[0].changes[1]", errors.New("not an object")),
		NewPayloadError("entry[2]", errors.New("not an object")),
		errors.New("plain"),
	)
	logger.LogWarn(err, "Malformed webhook payload")

	entry := decodeLine(t, buf)
	assert.Equal(t, []interface{}{"INVALID_INPUT", "INVALID_INPUT"}, entry["error_codes"])
	assert.Equal(t, []interface{}{"entry[0].changes[1]", "entry[2]"}, entry["error_paths"])
	assert.NotContains(t, entry, "error_code")
}

func TestLogger_WrappedAppError(t *testing.T) {
	logger, buf := newBufferedLogger()

	err := fmt.Errorf("reading body: %w", NewPayloadTooLargeError(1024))
	logger.LogWarn(err, "Failed to read webhook body")

	entry := decodeLine(t, buf)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", entry["error_code"])
	assert.Equal(t, float64(1024), entry["limit_bytes"])
}
