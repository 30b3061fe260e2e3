package whatsapp

import (
	"encoding/json"
	"testing"

	"whatsrelay/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const textMessageBody = `{"entry":[{"changes":[{"value":{"messages":[{"id":"m1","from":"15551234567","timestamp":"100","type":"text","text":{"body":"hi"}}]}}]}]}`

func TestNormalize_TextMessage(t *testing.T) {
	result := Normalize([]byte(textMessageBody))

	require.True(t, result.OK())
	require.NoError(t, result.Err())
	require.Len(t, result.Records, 1)

	out, err := json.Marshal(result.Records)
	require.NoError(t, err)
	assert.JSONEq(t, `[{
		"id": "m1",
		"phone": "15551234567",
		"timestamp": "100",
		"type": "text",
		"text": "hi",
		"raw": {"id":"m1","from":"15551234567","timestamp":"100","type":"text","text":{"body":"hi"}}
	}]`, string(out))
}

func TestNormalize_TraversalOrder(t *testing.T) {
	body := `{"entry":[
		{"changes":[
			{"value":{"messages":[{"id":"a","from":"1"},{"id":"b","from":"2"}]}},
			{"value":{"messages":[{"id":"c","from":"3"}]}}
		]},
		{"changes":[
			{"value":{"messages":[{"id":"d","from":"4"},{"id":"e","from":"5"}]}}
		]}
	]}`

	result := Normalize([]byte(body))
	require.True(t, result.OK())

	var ids []string
	for _, r := range result.Records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
}

func TestNormalize_SkipsMessagesWithoutSender(t *testing.T) {
	body := `{"entry":[{"changes":[{"value":{"messages":[
		{"id":"m1","type":"text","text":{"body":"no sender"}},
		{"id":"m2","from":"","type":"text"},
		{"id":"m3","from":null},
		{"id":"m4","from":"15550000000","type":"text","text":{"body":"kept"}}
	]}}]}]}`

	result := Normalize([]byte(body))

	assert.True(t, result.OK())
	assert.Equal(t, 3, result.Skipped)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "m4", result.Records[0].ID)
	assert.Equal(t, "15550000000", result.Records[0].Phone)
}

func TestNormalize_MissingStructureYieldsNothing(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"null body", `null`},
		{"null entry", `{"entry":null}`},
		{"entry without changes", `{"entry":[{}]}`},
		{"change without value", `{"entry":[{"changes":[{}]}]}`},
		{"value without messages", `{"entry":[{"changes":[{"value":{"statuses":[{"id":"s1"}]}}]}]}`},
		{"null entry element", `{"entry":[null]}`},
		{"status only object", `{"object":"whatsapp_business_account","entry":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize([]byte(tt.body))
			assert.True(t, result.OK())
			assert.Empty(t, result.Records)
			assert.Zero(t, result.Skipped)
		})
	}
}

func TestNormalize_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"entry":[`},
		{"not json", `hello`},
		{"top-level array", `[{"entry":[]}]`},
		{"entry not array", `{"entry":5}`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize([]byte(tt.body))
			assert.False(t, result.OK())
			assert.Error(t, result.Err())
			assert.True(t, errors.HasCode(result.Err(), errors.ErrCodeInvalidInput))
			assert.Empty(t, result.Records)
		})
	}
}

func TestNormalize_PartialSuccess(t *testing.T) {
	body := `{"entry":[
		"not an entry",
		{"changes":[
			{"value":{"messages":[{"id":"bad","from":12345}]}},
			{"value":{"messages":[{"id":"good","from":"15551112222"}]}}
		]}
	]}`

	result := Normalize([]byte(body))

	assert.False(t, result.OK())
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "entry[0]", result.Errors[0].(*errors.AppError).Context["path"])
	assert.Equal(t, "entry[1].changes[0].value.messages[0]", result.Errors[1].(*errors.AppError).Context["path"])

	require.Len(t, result.Records, 1)
	assert.Equal(t, "good", result.Records[0].ID)
}

func TestNormalize_InteractiveMessage(t *testing.T) {
	body := `{"entry":[{"changes":[{"value":{"messages":[{
		"id":"m9",
		"from":"15557654321",
		"timestamp":1700000000,
		"type":"interactive",
		"interactive":{"type":"button_reply","button_reply":{"id":"yes","title":"Yes"}},
		"context":{"id":"prev"}
	}]}}]}]}`

	result := Normalize([]byte(body))
	require.True(t, result.OK())
	require.Len(t, result.Records, 1)

	record := result.Records[0]
	assert.Equal(t, "interactive", record.Type)
	assert.Nil(t, record.Text)
	assert.Equal(t, `1700000000`, string(record.Timestamp))
	assert.JSONEq(t, `{"type":"button_reply","button_reply":{"id":"yes","title":"Yes"}}`, string(record.Interactive))

	// fields not extracted are still available through raw
	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(record.Raw, &raw))
	assert.Equal(t, map[string]interface{}{"id": "prev"}, raw["context"])
}

func TestNormalize_OptionalFields(t *testing.T) {
	body := `{"entry":[{"changes":[{"value":{"messages":[
		{"from":"1","type":"text","text":{}},
		{"from":"2","type":"text","text":{"body":""}},
		{"from":"3","type":"image","interactive":null}
	]}}]}]}`

	result := Normalize([]byte(body))
	require.True(t, result.OK())
	require.Len(t, result.Records, 3)

	assert.Nil(t, result.Records[0].Text)
	require.NotNil(t, result.Records[1].Text)
	assert.Equal(t, "", *result.Records[1].Text)
	assert.Nil(t, result.Records[2].Interactive)

	out, err := json.Marshal(result.Records[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"phone":"1","type":"text","raw":{"from":"1","type":"text","text":{}}}`, string(out))
}

func TestNormalize_DuplicateDeliveriesAreKept(t *testing.T) {
	body := `{"entry":[{"changes":[{"value":{"messages":[
		{"id":"dup","from":"1"},
		{"id":"dup","from":"1"}
	]}}]}]}`

	result := Normalize([]byte(body))
	require.Len(t, result.Records, 2)
	assert.Equal(t, result.Records[0], result.Records[1])
}

func TestNormalize_LooseSiblingFieldsKeepRecord(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected string
	}{
		{
			name:     "text as plain string",
			message:  `{"id":"m1","from":"155","type":"text","text":"hi"}`,
			expected: `{"id":"m1","phone":"155","type":"text","raw":{"id":"m1","from":"155","type":"text","text":"hi"}}`,
		},
		{
			name:     "numeric id",
			message:  `{"id":42,"from":"155"}`,
			expected: `{"phone":"155","raw":{"id":42,"from":"155"}}`,
		},
		{
			name:     "numeric text body",
			message:  `{"from":"155","text":{"body":7}}`,
			expected: `{"phone":"155","raw":{"from":"155","text":{"body":7}}}`,
		},
		{
			name:     "object type",
			message:  `{"id":"m2","from":"155","type":{"kind":"text"}}`,
			expected: `{"id":"m2","phone":"155","raw":{"id":"m2","from":"155","type":{"kind":"text"}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"entry":[{"changes":[{"value":{"messages":[` + tt.message + `]}}]}]}`

			result := Normalize([]byte(body))

			require.True(t, result.OK(), "unexpected errors: %v", result.Err())
			require.Len(t, result.Records, 1)
			out, err := json.Marshal(result.Records[0])
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(out))
		})
	}
}

func TestNormalize_KeysAreCaseSensitive(t *testing.T) {
	t.Run("sender", func(t *testing.T) {
		body := `{"entry":[{"changes":[{"value":{"messages":[{"id":"x","From":"1"}]}}]}]}`

		result := Normalize([]byte(body))

		assert.True(t, result.OK())
		assert.Empty(t, result.Records)
		assert.Equal(t, 1, result.Skipped)
	})

	nesting := []struct {
		name string
		body string
	}{
		{"entry", `{"ENTRY":[{"changes":[{"value":{"messages":[{"from":"1"}]}}]}]}`},
		{"changes", `{"entry":[{"Changes":[{"value":{"messages":[{"from":"1"}]}}]}]}`},
		{"value", `{"entry":[{"changes":[{"Value":{"messages":[{"from":"1"}]}}]}]}`},
		{"messages", `{"entry":[{"changes":[{"value":{"Messages":[{"from":"1"}]}}]}]}`},
	}
	for _, tt := range nesting {
		t.Run(tt.name, func(t *testing.T) {
			result := Normalize([]byte(tt.body))

			assert.True(t, result.OK())
			assert.Empty(t, result.Records)
			assert.Zero(t, result.Skipped)
		})
	}
}

func TestNormalize_FalsyInteractiveIsAbsent(t *testing.T) {
	body := `{"entry":[{"changes":[{"value":{"messages":[
		{"from":"1","interactive":false},
		{"from":"2","interactive":0},
		{"from":"3","interactive":""},
		{"from":"4","interactive":0.0},
		{"from":"5","interactive":true},
		{"from":"6","interactive":{}}
	]}}]}]}`

	result := Normalize([]byte(body))
	require.True(t, result.OK())
	require.Len(t, result.Records, 6)

	for _, record := range result.Records[:4] {
		assert.Nil(t, record.Interactive, "phone %s", record.Phone)
	}
	assert.Equal(t, `true`, string(result.Records[4].Interactive))
	assert.Equal(t, `{}`, string(result.Records[5].Interactive))
}
