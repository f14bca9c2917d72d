package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/qlite/internal/core/domain"
)

func TestOllama_Generate(t *testing.T) {
	mock := newMockBackend(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		fmt.Fprint(w, `{"model":"llama3","response":"Hi \"there\"","done":true}`)
	})
	b := NewOllamaBackend(mock.descriptor(t, domain.FamilyNative), Options{})

	text, err := b.Generate(context.Background(), "llama3", "Say hi")
	require.NoError(t, err)
	assert.Equal(t, `Hi "there"`, text)

	assert.Equal(t, "/api/generate", mock.path())
	assert.Equal(t, "llama3", mock.field("model").String())
	assert.Equal(t, "Say hi", mock.field("prompt").String())
	assert.False(t, mock.field("stream").Bool())
	assert.Equal(t, "response", b.ReplyKey(domain.KindGenerate))
}

func TestOllama_Chat(t *testing.T) {
	mock := newMockBackend(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		fmt.Fprint(w, `{"message":{"role":"assistant","content":"hello"},"done":true}`)
	})
	b := NewOllamaBackend(mock.descriptor(t, domain.FamilyNative), Options{})

	text, err := b.Chat(context.Background(), "llama3", "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	assert.Equal(t, "/api/chat", mock.path())
	assert.Equal(t, "user", mock.field("messages.0.role").String())
	assert.Equal(t, "hi", mock.field("messages.0.content").String())
	assert.Equal(t, "content", b.ReplyKey(domain.KindChat))
}

func TestOllama_InvalidResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing field", `{"model":"llama3"}`},
		{"truncated", `{"response":"hal`},
		{"not json", `<html>oops</html>`},
		{"wrong type", `{"response":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockBackend(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
				fmt.Fprint(w, tt.body)
			})
			b := NewOllamaBackend(mock.descriptor(t, domain.FamilyNative), Options{})

			_, err := b.Generate(context.Background(), "m", "p")
			assert.True(t, errors.Is(err, domain.ErrInvalidResponse), "got %v", err)
		})
	}
}

func TestOllama_ErrorStatus(t *testing.T) {
	mock := newMockBackend(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model 'nope' not found"}`)
	})
	b := NewOllamaBackend(mock.descriptor(t, domain.FamilyNative), Options{})

	_, err := b.Generate(context.Background(), "nope", "p")
	assert.True(t, errors.Is(err, domain.ErrInvalidResponse))
}

func TestOllama_Unreachable(t *testing.T) {
	b := NewOllamaBackend(closedPortDescriptor(t, domain.FamilyNative), Options{})

	_, err := b.Generate(context.Background(), "m", "p")
	assert.True(t, errors.Is(err, domain.ErrBackendUnreachable), "got %v", err)

	var be *domain.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "generate", be.Op)
	assert.Equal(t, "Ollama", be.Backend)
}

func TestOllama_ResponseTooLarge(t *testing.T) {
	mock := newMockBackend(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		fmt.Fprintf(w, `{"response":"%s"}`, strings.Repeat("x", 200))
	})
	b := NewOllamaBackend(mock.descriptor(t, domain.FamilyNative), Options{MaxResponseBytes: 64})

	_, err := b.Generate(context.Background(), "m", "p")
	assert.True(t, errors.Is(err, domain.ErrResponseTooLarge))
}

func TestOllama_StreamGenerate(t *testing.T) {
	mock := newMockBackend(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		flusher := w.(http.Flusher)
		lines := []string{
			`{"response":"The","done":false}`,
			`{"response":"","done":false}`,
			`{"response":" sky","done":false}`,
			`{"response":" is blue","done":false}`,
			`{"response":"","done":true,"total_duration":123}`,
		}
		for _, l := range lines {
			fmt.Fprintln(w, l)
			flusher.Flush()
		}
		// anything after done is ignored
		fmt.Fprintln(w, `{"response":"ignored","done":false}`)
	})
	b := NewOllamaBackend(mock.descriptor(t, domain.FamilyNative), Options{})

	var got []string
	err := b.StreamGenerate(context.Background(), "llama3", "why", collect(&got))
	require.NoError(t, err)

	assert.Equal(t, []string{"The", " sky", " is blue"}, got)
	assert.True(t, mock.field("stream").Bool())
}

func TestOllama_StreamMidStreamError(t *testing.T) {
	mock := newMockBackend(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		fmt.Fprintln(w, `{"response":"partial","done":false}`)
		fmt.Fprintln(w, `{"error":"out of memory"}`)
	})
	b := NewOllamaBackend(mock.descriptor(t, domain.FamilyNative), Options{})

	var got []string
	err := b.StreamGenerate(context.Background(), "m", "p", collect(&got))
	assert.True(t, errors.Is(err, domain.ErrInvalidResponse))
	assert.Equal(t, []string{"partial"}, got)
}

func TestOllama_StreamSinkError(t *testing.T) {
	mock := newMockBackend(t, func(w http.ResponseWriter, r *http.Request, _ []byte) {
		for i := 0; i < 5; i++ {
			fmt.Fprintln(w, `{"response":"x","done":false}`)
		}
	})
	b := NewOllamaBackend(mock.descriptor(t, domain.FamilyNative), Options{})

	clientGone := errors.New("client gone")
	calls := 0
	err := b.StreamGenerate(context.Background(), "m", "p", func(string) error {
		calls++
		return clientGone
	})
	assert.ErrorIs(t, err, clientGone)
	assert.Equal(t, 1, calls)
}

func TestOllama_StreamUnreachable(t *testing.T) {
	b := NewOllamaBackend(closedPortDescriptor(t, domain.FamilyNative), Options{})
	err := b.StreamGenerate(context.Background(), "m", "p", func(string) error { return nil })
	assert.True(t, errors.Is(err, domain.ErrBackendUnreachable))
}
