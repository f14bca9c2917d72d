package backend

import (
	"github.com/tidwall/gjson"
)

const (
	// Ollama native
	FieldOllamaResponse    = "response"
	FieldOllamaChatContent = "message.content"
	FieldOllamaDone        = "done"

	// OpenAI-compatible
	FieldOpenAIText        = "choices.0.text"
	FieldOpenAIChatContent = "choices.0.message.content"
	FieldOpenAIDeltaText   = "choices.0.delta.content"

	FieldError        = "error"
	FieldErrorMessage = "error.message"

	SSEDone = "[DONE]"
)

// extractString pulls a string field out of a JSON body. ok is false when
// the body isn't JSON or the field is missing or isn't a string.
func extractString(body []byte, path string) (string, bool) {
	if !gjson.ValidBytes(body) {
		return "", false
	}
	r := gjson.GetBytes(body, path)
	if !r.Exists() || r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

// upstreamError digs out a human message from a backend error body, both
// families use either {"error":"..."} or {"error":{"message":"..."}}
func upstreamError(body []byte) string {
	if r := gjson.GetBytes(body, FieldErrorMessage); r.Exists() {
		return r.String()
	}
	if r := gjson.GetBytes(body, FieldError); r.Exists() {
		return r.String()
	}
	if len(body) > 256 {
		return string(body[:256])
	}
	return string(body)
}
