package whatsapp

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"

	"whatsrelay/internal/errors"
	"whatsrelay/pkg/whatsapp/types"
)

// NormalizeResult is the outcome of flattening one webhook body. Errors
// holds one entry per part of the body that could not be read; Records
// still contains every message that could.
type NormalizeResult struct {
	Records []types.InboundRecord
	Skipped int
	Errors  []error
}

// OK reports whether the whole body was readable
func (r NormalizeResult) OK() bool {
	return len(r.Errors) == 0
}

// Err joins all parse errors, or returns nil
func (r NormalizeResult) Err() error {
	return stderrors.Join(r.Errors...)
}

// object is one level of the payload with its members left undecoded.
// Lookups are exact: "From" is not "from".
type object map[string]json.RawMessage

// decodeObject reads raw as a JSON object. A JSON null yields a nil object
// and no error.
func decodeObject(raw json.RawMessage) (object, error) {
	var obj object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// array returns the elements of the member key. A missing or null member
// has no elements.
func (o object) array(key string) ([]json.RawMessage, error) {
	raw, ok := o[key]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return items, nil
}

// str returns the member key when it is a JSON string
func (o object) str(key string) (string, bool) {
	raw, ok := o[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Normalize flattens a Cloud API webhook body into inbound records,
// preserving entry, change and message order. Messages without a sender are
// skipped. Missing levels of the payload produce no records and no error.
func Normalize(body []byte) NormalizeResult {
	var result NormalizeResult

	payload, err := decodeObject(body)
	if err != nil {
		result.Errors = append(result.Errors, errors.NewPayloadError("", err))
		return result
	}

	entries, err := payload.array("entry")
	if err != nil {
		result.Errors = append(result.Errors, errors.NewPayloadError("entry", err))
		return result
	}
	for i, rawEntry := range entries {
		result.normalizeEntry(fmt.Sprintf("entry[%d]", i), rawEntry)
	}

	return result
}

func (r *NormalizeResult) normalizeEntry(path string, raw json.RawMessage) {
	entry, err := decodeObject(raw)
	if err != nil {
		r.Errors = append(r.Errors, errors.NewPayloadError(path, err))
		return
	}

	changes, err := entry.array("changes")
	if err != nil {
		r.Errors = append(r.Errors, errors.NewPayloadError(path, err))
		return
	}
	for i, rawChange := range changes {
		r.normalizeChange(fmt.Sprintf("%s.changes[%d]", path, i), rawChange)
	}
}

func (r *NormalizeResult) normalizeChange(path string, raw json.RawMessage) {
	change, err := decodeObject(raw)
	if err != nil {
		r.Errors = append(r.Errors, errors.NewPayloadError(path, err))
		return
	}

	rawValue, ok := change["value"]
	if !ok {
		return
	}
	value, err := decodeObject(rawValue)
	if err != nil {
		r.Errors = append(r.Errors, errors.NewPayloadError(path+".value", err))
		return
	}

	messages, err := value.array("messages")
	if err != nil {
		r.Errors = append(r.Errors, errors.NewPayloadError(path+".value", err))
		return
	}
	for i, rawMessage := range messages {
		r.normalizeMessage(fmt.Sprintf("%s.value.messages[%d]", path, i), rawMessage)
	}
}

func (r *NormalizeResult) normalizeMessage(path string, raw json.RawMessage) {
	msg, err := decodeObject(raw)
	if err != nil {
		r.Errors = append(r.Errors, errors.NewPayloadError(path, err))
		return
	}

	from, ok := msg["from"]
	if !ok || isNull(from) {
		r.Skipped++
		return
	}
	phone, ok := msg.str("from")
	if !ok {
		r.Errors = append(r.Errors, errors.NewPayloadError(path, fmt.Errorf("from is not a string: %s", compact(from))))
		return
	}
	if phone == "" {
		r.Skipped++
		return
	}

	r.Records = append(r.Records, newInboundRecord(phone, msg, raw))
}

// newInboundRecord builds the record for a message with a sender. Fields of
// an unexpected JSON type are left out of the record; raw still has them.
func newInboundRecord(phone string, msg object, raw json.RawMessage) types.InboundRecord {
	record := types.InboundRecord{
		Phone:       phone,
		Timestamp:   present(msg["timestamp"]),
		Interactive: truthy(msg["interactive"]),
		Raw:         compact(raw),
	}
	record.ID, _ = msg.str("id")
	record.Type, _ = msg.str("type")

	if rawText, ok := msg["text"]; ok {
		if text, err := decodeObject(rawText); err == nil {
			if body, ok := text.str("body"); ok {
				record.Text = &body
			}
		}
	}

	return record
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// present drops JSON null so it is treated as absent
func present(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	return compact(raw)
}

// truthy is present with false, zero and the empty string also treated as
// absent.
func truthy(raw json.RawMessage) json.RawMessage {
	raw = present(raw)
	if raw == nil {
		return nil
	}
	switch string(raw) {
	case "false", `""`:
		return nil
	}
	if f, err := strconv.ParseFloat(string(raw), 64); err == nil && f == 0 {
		return nil
	}
	return raw
}

func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return append(json.RawMessage(nil), raw...)
	}
	return buf.Bytes()
}
