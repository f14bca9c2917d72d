package backend

import (
	"bufio"
	"bytes"
	"context"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/thushan/qlite/internal/core/constants"
	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/core/ports"
)

const ReplyKeyOpenAIGenerate = "text"

var sseDataPrefix = []byte("data:")

type openAICompletionRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type openAIChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// OpenAIBackend speaks the OpenAI-compatible /v1 API that LM Studio, vLLM
// and friends expose
type OpenAIBackend struct {
	baseClient
}

var _ ports.Backend = (*OpenAIBackend)(nil)

func NewOpenAIBackend(descriptor domain.BackendDescriptor, opts Options) *OpenAIBackend {
	return &OpenAIBackend{baseClient: newBaseClient(descriptor, opts)}
}

func (o *OpenAIBackend) ReplyKey(kind domain.RequestKind) string {
	if kind == domain.KindChat {
		return ReplyKeyChat
	}
	return ReplyKeyOpenAIGenerate
}

func (o *OpenAIBackend) Generate(ctx context.Context, model, prompt string) (string, error) {
	body, err := o.post(ctx, "generate", constants.PathV1Completions, openAICompletionRequest{
		Model:  model,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	return o.extract("generate", body, FieldOpenAIText)
}

func (o *OpenAIBackend) Chat(ctx context.Context, model, message string) (string, error) {
	body, err := o.post(ctx, "chat", constants.PathV1ChatCompletions, openAIChatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: message}},
	})
	if err != nil {
		return "", err
	}
	return o.extract("chat", body, FieldOpenAIChatContent)
}

// StreamGenerate relays server-sent completion events until data: [DONE]
func (o *OpenAIBackend) StreamGenerate(ctx context.Context, model, prompt string, sink ports.FragmentSink) error {
	body, err := o.openStream(ctx, "stream", constants.PathV1Completions, openAICompletionRequest{
		Model:  model,
		Prompt: prompt,
		Stream: true,
	})
	if err != nil {
		return err
	}
	defer body.Close()

	return relayLines(body, bufio.ScanLines, o.opts.StreamLineBytes, func(line []byte) (bool, error) {
		// comments and other SSE fields (event:, id:) carry nothing for us
		if !bytes.HasPrefix(line, sseDataPrefix) {
			return false, nil
		}
		payload := bytes.TrimSpace(line[len(sseDataPrefix):])
		if string(payload) == SSEDone {
			return true, nil
		}

		if !gjson.ValidBytes(payload) {
			return false, domain.NewBackendError("stream", o.descriptor.DisplayName(), domain.ErrInvalidResponse)
		}
		if e := gjson.GetBytes(payload, FieldError); e.Exists() {
			return false, domain.NewBackendError("stream", o.descriptor.DisplayName(),
				fmt.Errorf("%w: %s", domain.ErrInvalidResponse, upstreamError(payload)))
		}

		if fragment := gjson.GetBytes(payload, FieldOpenAIText).String(); fragment != "" {
			if err := sink(fragment); err != nil {
				return false, err
			}
		}
		return false, nil
	})
}
