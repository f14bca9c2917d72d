package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/thushan/qlite/internal/core/constants"
	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/core/ports"
	"github.com/thushan/qlite/internal/logger"
)

// Registry holds the active backend for the life of the process and is the
// single place requests get dispatched through.
type Registry struct {
	backend  ports.Backend
	sessions ports.SessionProvider
	stats    ports.StatsCollector
	logger   *logger.StyledLogger
	timeout  time.Duration
}

type RegistryOption func(*Registry)

// WithSessions enables session routing for backends that support it
func WithSessions(sessions ports.SessionProvider) RegistryOption {
	return func(r *Registry) { r.sessions = sessions }
}

func WithStats(stats ports.StatsCollector) RegistryOption {
	return func(r *Registry) { r.stats = stats }
}

// WithTimeout bounds each unary backend call
func WithTimeout(timeout time.Duration) RegistryOption {
	return func(r *Registry) { r.timeout = timeout }
}

func NewRegistry(backend ports.Backend, log *logger.StyledLogger, opts ...RegistryOption) *Registry {
	if log == nil {
		log = logger.NewDiscard()
	}
	r := &Registry{
		backend: backend,
		logger:  log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Descriptor of the active backend, the native default if none is set
func (r *Registry) Descriptor() domain.BackendDescriptor {
	if r.backend == nil {
		return domain.DefaultBackendDescriptor()
	}
	return r.backend.Descriptor()
}

func (r *Registry) Generate(ctx context.Context, model, prompt string) domain.Reply {
	return r.Dispatch(ctx, domain.Envelope{Model: model, Input: prompt, Kind: domain.KindGenerate})
}

func (r *Registry) Chat(ctx context.Context, model, message string) domain.Reply {
	return r.Dispatch(ctx, domain.Envelope{Model: model, Input: message, Kind: domain.KindChat})
}

// Dispatch runs a unary request against the active backend. The reply is
// never empty, it holds either text under the backend's key or an error.
func (r *Registry) Dispatch(ctx context.Context, env domain.Envelope) domain.Reply {
	if r.backend == nil {
		return domain.ErrorReply(domain.ErrBackendMissing)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := r.call(ctx, env)
	latency := time.Since(start)

	if err != nil {
		if r.stats != nil {
			r.stats.RecordBackendError()
		}
		r.logger.Warn("Backend request failed",
			"backend", r.backend.Descriptor().Name,
			"kind", env.Kind.String(),
			"model", env.Model,
			"latency", latency,
			"error", err)
		return domain.ErrorReply(err)
	}

	if r.stats != nil {
		r.stats.RecordBackendLatency(env.Kind.String(), latency)
	}
	return domain.TextReply(r.backend.ReplyKey(env.Kind), text)
}

func (r *Registry) call(ctx context.Context, env domain.Envelope) (string, error) {
	switch env.Kind {
	case domain.KindGenerate:
		if env.Session != "" {
			if sb, ok := r.backend.(ports.SessionBackend); ok && r.sessions != nil {
				cache, err := r.sessions.Acquire(env.Session)
				if err != nil {
					return "", err
				}
				return sb.GenerateWithSession(ctx, cache, env.Model, env.Input)
			}
			r.logger.Debug("Backend has no session support, ignoring session", "session", env.Session)
		}
		return r.backend.Generate(ctx, env.Model, env.Input)
	case domain.KindChat:
		return r.backend.Chat(ctx, env.Model, env.Input)
	}
	return "", domain.ErrUnsupportedKind
}

// StreamGenerate relays fragments to sink. There's no overall deadline, the
// shared transport only bounds how long we wait for the first byte.
func (r *Registry) StreamGenerate(ctx context.Context, model, prompt string, sink ports.FragmentSink) error {
	if r.backend == nil {
		return domain.ErrBackendMissing
	}

	start := time.Now()
	err := r.backend.StreamGenerate(ctx, model, prompt, sink)
	if err != nil {
		// a client hanging up mid stream is not the backend's fault
		if r.stats != nil && !errors.Is(err, domain.ErrClientGone) {
			r.stats.RecordBackendError()
		}
		return err
	}
	if r.stats != nil {
		r.stats.RecordBackendLatency("stream", time.Since(start))
	}
	return nil
}

// ErrorStatus maps a dispatch error to the HTTP status and client message.
// Backend failures stay 200 so clients only need to check for an error key,
// the exception is a response too big for our buffers.
func (r *Registry) ErrorStatus(err error) (int, string) {
	name := r.Descriptor().DisplayName()
	var be *domain.BackendError
	if errors.As(err, &be) && be.Backend != "" {
		name = be.Backend
	}

	switch {
	case errors.Is(err, domain.ErrBackendMissing):
		return http.StatusOK, constants.ErrMsgNotInitialised
	case errors.Is(err, domain.ErrResponseTooLarge):
		return http.StatusBadGateway, constants.ErrMsgResponseTooLarge
	case errors.Is(err, domain.ErrBackendUnreachable):
		return http.StatusOK, fmt.Sprintf(constants.ErrMsgConnectFailed, name)
	case errors.Is(err, domain.ErrCacheFull), errors.Is(err, domain.ErrSessionClosed):
		return http.StatusOK, err.Error()
	}
	return http.StatusOK, fmt.Sprintf(constants.ErrMsgInvalidResponse, name)
}
