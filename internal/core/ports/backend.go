package ports

import (
	"context"

	"github.com/thushan/qlite/internal/core/domain"
)

// FragmentSink receives streamed text fragments in order. Returning an error
// stops the stream, usually because the client went away.
type FragmentSink func(fragment string) error

// Backend is one inference backend family's client. Implementations must be
// safe for concurrent use, connections are handled in parallel.
type Backend interface {
	Descriptor() domain.BackendDescriptor

	// ReplyKey names the JSON key the gateway should put reply text under
	ReplyKey(kind domain.RequestKind) string

	Generate(ctx context.Context, model, prompt string) (string, error)
	Chat(ctx context.Context, model, message string) (string, error)
	StreamGenerate(ctx context.Context, model, prompt string, sink FragmentSink) error
}

// SessionBackend is implemented by backends that can carry inference state
// between turns. The registry hands it the caller's session cache; none of the
// bundled backends implement it yet.
type SessionBackend interface {
	Backend
	GenerateWithSession(ctx context.Context, session SessionCache, model, prompt string) (string, error)
}

// BackendFactory builds a backend client for a descriptor
type BackendFactory interface {
	Create(descriptor domain.BackendDescriptor) (Backend, error)
	Families() []domain.Family
}

// Dispatcher is what the gateway needs from the backend registry
type Dispatcher interface {
	Descriptor() domain.BackendDescriptor
	Dispatch(ctx context.Context, env domain.Envelope) domain.Reply
	StreamGenerate(ctx context.Context, model, prompt string, sink FragmentSink) error
	// ErrorStatus maps a failed reply to a status code and client message
	ErrorStatus(err error) (int, string)
}
