package backend

import (
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/thushan/qlite/internal/core/constants"
	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/core/ports"
)

const (
	ReplyKeyOllamaGenerate = "response"
	ReplyKeyChat           = "content"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// OllamaBackend speaks Ollama's native /api endpoints
type OllamaBackend struct {
	baseClient
}

var _ ports.Backend = (*OllamaBackend)(nil)

func NewOllamaBackend(descriptor domain.BackendDescriptor, opts Options) *OllamaBackend {
	return &OllamaBackend{baseClient: newBaseClient(descriptor, opts)}
}

func (o *OllamaBackend) ReplyKey(kind domain.RequestKind) string {
	if kind == domain.KindChat {
		return ReplyKeyChat
	}
	return ReplyKeyOllamaGenerate
}

func (o *OllamaBackend) Generate(ctx context.Context, model, prompt string) (string, error) {
	body, err := o.post(ctx, "generate", constants.PathOllamaGenerate, ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	return o.extract("generate", body, FieldOllamaResponse)
}

func (o *OllamaBackend) Chat(ctx context.Context, model, message string) (string, error) {
	body, err := o.post(ctx, "chat", constants.PathOllamaChat, ollamaChatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: message}},
	})
	if err != nil {
		return "", err
	}
	return o.extract("chat", body, FieldOllamaChatContent)
}

// StreamGenerate relays each ndjson line's response field to sink until the
// backend sends "done":true
func (o *OllamaBackend) StreamGenerate(ctx context.Context, model, prompt string, sink ports.FragmentSink) error {
	body, err := o.openStream(ctx, "stream", constants.PathOllamaGenerate, ollamaGenerateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: true,
	})
	if err != nil {
		return err
	}
	defer body.Close()

	return relayLines(body, SplitJSONLines, o.opts.StreamLineBytes, func(line []byte) (bool, error) {
		if !gjson.ValidBytes(line) {
			return false, domain.NewBackendError("stream", o.descriptor.DisplayName(), domain.ErrInvalidResponse)
		}
		if e := gjson.GetBytes(line, FieldError); e.Exists() {
			return false, domain.NewBackendError("stream", o.descriptor.DisplayName(),
				fmt.Errorf("%w: %s", domain.ErrInvalidResponse, e.String()))
		}

		if fragment := gjson.GetBytes(line, FieldOllamaResponse).String(); fragment != "" {
			if err := sink(fragment); err != nil {
				return false, err
			}
		}
		return gjson.GetBytes(line, FieldOllamaDone).Bool(), nil
	})
}
