package constants

import (
	"fmt"
	"testing"
)

func TestDefaultBackendURLMatchesOllamaPort(t *testing.T) {
	want := fmt.Sprintf("http://%s:%d", DefaultBackendHost, DefaultOllamaPort)
	if DefaultBackendURL != want {
		t.Errorf("DefaultBackendURL = %q, want %q", DefaultBackendURL, want)
	}
}

func TestErrorMessagesHaveNoQuotes(t *testing.T) {
	// these are embedded into hand-built JSON bodies in the gateway hot path
	for _, msg := range []string{
		ErrMsgMissingFields, ErrMsgNoJSONBody, ErrMsgBadRequest, ErrMsgMethodNotAllowed,
		ErrMsgTooManyRequests, ErrMsgRateLimited, ErrMsgPayloadTooLarge,
		ErrMsgResponseTooLarge, ErrMsgNotInitialised,
	} {
		for _, r := range msg {
			if r == '"' || r == '\\' {
				t.Errorf("message %q contains a character that needs escaping", msg)
			}
		}
	}
}
