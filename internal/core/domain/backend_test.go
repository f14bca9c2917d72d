package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackendURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		family  Family
		host    string
		port    int
		wantErr bool
	}{
		{name: "explicit port", raw: "http://localhost:11434", family: FamilyNative, host: "localhost", port: 11434},
		{name: "no scheme", raw: "10.0.0.2:8000", family: FamilyOpenAI, host: "10.0.0.2", port: 8000},
		{name: "native default port", raw: "http://ollama.lan", family: FamilyNative, host: "ollama.lan", port: 11434},
		{name: "openai default port", raw: "http://studio.lan", family: FamilyOpenAI, host: "studio.lan", port: 1234},
		{name: "empty", raw: "", family: FamilyNative, wantErr: true},
		{name: "https rejected", raw: "https://localhost:11434", family: FamilyNative, wantErr: true},
		{name: "bad port", raw: "http://localhost:99999", family: FamilyNative, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseBackendURL(tt.raw, tt.family)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.host, d.Host)
			assert.Equal(t, tt.port, d.Port)
			assert.Equal(t, tt.family, d.Family)
		})
	}
}

func TestParseFamily(t *testing.T) {
	for _, s := range []string{"ollama", "native", " Ollama "} {
		f, ok := ParseFamily(s)
		assert.True(t, ok, s)
		assert.Equal(t, FamilyNative, f, s)
	}
	for _, s := range []string{"openai", "lmstudio", "lm-studio", "vllm", "openai-compatible"} {
		f, ok := ParseFamily(s)
		assert.True(t, ok, s)
		assert.Equal(t, FamilyOpenAI, f, s)
	}
	_, ok := ParseFamily("llamafile")
	assert.False(t, ok)
}

func TestBackendDescriptor(t *testing.T) {
	d := DefaultBackendDescriptor()
	assert.Equal(t, "localhost:11434", d.Address())
	assert.Equal(t, "http://localhost:11434", d.BaseURL())
	assert.Equal(t, "Ollama", d.DisplayName())

	assert.Equal(t, "backend", BackendDescriptor{}.DisplayName())
	assert.Equal(t, "custom", BackendDescriptor{Name: "custom"}.DisplayName())
}

func TestBackendErrorUnwraps(t *testing.T) {
	err := NewBackendError("generate", "Ollama", ErrBackendUnreachable)
	assert.True(t, errors.Is(err, ErrBackendUnreachable))
	assert.Contains(t, err.Error(), "generate failed for backend Ollama")

	serr := &SessionError{SessionID: "abc", Op: "store", Err: ErrSessionClosed}
	assert.ErrorIs(t, serr, ErrSessionClosed)
}

func TestEnvelopeKinds(t *testing.T) {
	assert.True(t, Envelope{Kind: KindGenerate}.IsGenerate())
	assert.True(t, Envelope{Kind: KindChat}.IsChat())
	assert.Equal(t, "unknown", KindUnknown.String())

	r := ErrorReply(ErrInvalidResponse)
	assert.ErrorIs(t, r.Err, ErrInvalidResponse)
	assert.Equal(t, "response", TextReply("response", "hi").Key)
}
