package whatsapp

import (
	"crypto/subtle"

	"whatsrelay/pkg/whatsapp/types"
)

// VerifySubscription checks a webhook subscription handshake. It succeeds
// only for mode "subscribe" and a token equal to expected. An empty expected
// token never matches.
func VerifySubscription(mode, token, expected string) bool {
	if mode != types.ModeSubscribe {
		return false
	}
	return SecretEqual(token, expected)
}

// SecretEqual compares a provided secret against the configured one in
// constant time
func SecretEqual(provided, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
