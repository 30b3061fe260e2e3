package types

// Webhook subscription handshake query parameters
const (
	QueryHubMode        = "hub.mode"
	QueryHubVerifyToken = "hub.verify_token"
	QueryHubChallenge   = "hub.challenge"

	// ModeSubscribe is the only hub.mode value accepted by the handshake
	ModeSubscribe = "subscribe"
)

// Cloud API message kinds the relay extracts fields for. Other kinds are
// still relayed, with their content only available in the raw object.
const (
	MessageTypeText        = "text"
	MessageTypeInteractive = "interactive"
)
