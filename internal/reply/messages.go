package reply

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	TransientServiceText = "Sorry, there's a temporary issue with the AI service. The request was received but couldn't be processed. Please try again in a moment."
	AuthErrorText        = "Authentication error. Please check the webhook credentials."
	NetworkErrorText     = "Sorry, I'm having trouble connecting right now. Please check your internet connection and try again."
	ResponseFormatText   = "The server responded successfully but the response format was unexpected. The workflow may be working but returning data in an unexpected format."
	NotConfiguredText    = "Chatbot is not configured. Please set WEBHOOK_CHAT_URL (or WEBHOOK_URL) in the environment."
)

// StatusText picks the user-visible message for a non-2xx webhook response.
func StatusText(status int, detail string) string {
	switch status {
	case http.StatusInternalServerError:
		return TransientServiceText
	case http.StatusUnauthorized, http.StatusForbidden:
		return AuthErrorText
	}
	if detail == "" {
		detail = "Please try again later."
	}
	return fmt.Sprintf("Error: Unable to connect to the AI service (%d). %s", status, detail)
}

// TimeoutText is the "still processing" message for a call cut off after d.
func TimeoutText(d time.Duration) string {
	return fmt.Sprintf("The request is taking longer than expected (over %s). The AI might still be processing your request. Please try again or check back later.", durationPhrase(d))
}

// ErrorDetail pulls a short explanation out of an error response body:
// a JSON message or error field, else the raw text, else the status text.
func ErrorDetail(body []byte, statusText string) string {
	body = bytes.TrimPrefix(body, utf8BOM)
	if gjson.ValidBytes(body) {
		doc := gjson.ParseBytes(body)
		for _, key := range []string{"message", "error"} {
			if v := doc.Get(key); v.Type == gjson.String && v.Str != "" {
				return v.Str
			}
		}
		return ""
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return statusText
}

func durationPhrase(d time.Duration) string {
	switch {
	case d <= 0:
		return "the time limit"
	case d%time.Minute == 0:
		if m := int(d / time.Minute); m != 1 {
			return fmt.Sprintf("%d minutes", m)
		}
		return "1 minute"
	case d%time.Second == 0:
		if s := int(d / time.Second); s != 1 {
			return fmt.Sprintf("%d seconds", s)
		}
		return "1 second"
	default:
		return d.String()
	}
}
