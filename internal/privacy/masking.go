package privacy

import (
	"strings"
)

// cloudMessageIDPrefix starts every Cloud API message id
const cloudMessageIDPrefix = "wamid."

// MaskPhoneNumber masks a phone number showing only the last 4 digits
// Example: "+1234567890" -> "+******7890"
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	if strings.HasPrefix(phone, "+") {
		if len(phone) == 1 {
			return phone
		}
		if len(phone) <= 5 {
			return "+" + strings.Repeat("*", len(phone)-1)
		}
		return "+" + strings.Repeat("*", len(phone)-5) + phone[len(phone)-4:]
	}

	return maskString(phone, 4)
}

// MaskMessageID masks a Cloud API message id, keeping the "wamid." prefix
// and the last 8 characters for correlation.
// Example: "wamid.ABCDEFGHIJKL" -> "wamid.****EFGHIJKL"
func MaskMessageID(messageID string) string {
	if messageID == "" {
		return ""
	}

	if rest, ok := strings.CutPrefix(messageID, cloudMessageIDPrefix); ok {
		return cloudMessageIDPrefix + maskString(rest, 8)
	}

	return maskString(messageID, 8)
}

// maskString masks a string showing only the last n characters
func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}

	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}

	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}

// MaskSensitiveFields applies appropriate masking to common logging fields
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		s, isString := v.(string)
		if !isString {
			masked[k] = v
			continue
		}

		switch k {
		case "phone", "phone_number", "from", "to":
			masked[k] = MaskPhoneNumber(s)
		case "message_id", "messageId", "msg_id", "id":
			masked[k] = MaskMessageID(s)
		case "secret", "verify_token", "token", "hub.verify_token":
			masked[k] = strings.Repeat("*", len(s))
		default:
			masked[k] = v
		}
	}

	return masked
}
