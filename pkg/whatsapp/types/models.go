package types

import "encoding/json"

// InboundRecord is the normalized form of one inbound message as handed to
// pulling clients. Timestamp, Interactive and Raw are copied byte for byte
// from the provider payload. ID, Type and Text are set only when the
// provider sent them as strings.
type InboundRecord struct {
	ID          string          `json:"id,omitempty"`
	Phone       string          `json:"phone"`
	Timestamp   json.RawMessage `json:"timestamp,omitempty"`
	Type        string          `json:"type,omitempty"`
	Text        *string         `json:"text,omitempty"`
	Interactive json.RawMessage `json:"interactive,omitempty"`
	Raw         json.RawMessage `json:"raw"`
}
