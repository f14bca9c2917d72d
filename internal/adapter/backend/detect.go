package backend

import (
	"context"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thushan/qlite/internal/core/constants"
	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/logger"
)

// DialFunc matches net.Dialer.DialContext, tests swap it out
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DefaultCandidates are the well known local backends in priority order
func DefaultCandidates() []domain.BackendDescriptor {
	return []domain.BackendDescriptor{
		domain.NewBackendDescriptor(constants.ProviderTypeOllama, constants.DefaultBackendHost, constants.DefaultOllamaPort, domain.FamilyNative),
		domain.NewBackendDescriptor(constants.ProviderTypeLMStudio, constants.DefaultBackendHost, constants.DefaultLMStudioPort, domain.FamilyOpenAI),
		domain.NewBackendDescriptor(constants.ProviderTypeVLLM, constants.DefaultBackendHost, constants.DefaultVLLMPort, domain.FamilyOpenAI),
	}
}

// Detector finds the first reachable backend out of a priority list
type Detector struct {
	dial       DialFunc
	logger     *logger.StyledLogger
	candidates []domain.BackendDescriptor
	timeout    time.Duration
}

func NewDetector(candidates []domain.BackendDescriptor, timeout time.Duration, log *logger.StyledLogger) *Detector {
	if len(candidates) == 0 {
		candidates = DefaultCandidates()
	}
	if timeout <= 0 {
		timeout = constants.DefaultProbeTimeout
	}
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Detector{
		candidates: candidates,
		timeout:    timeout,
		logger:     log,
		dial:       (&net.Dialer{}).DialContext,
	}
}

// WithDialer overrides how probes connect
func (d *Detector) WithDialer(dial DialFunc) *Detector {
	d.dial = dial
	return d
}

// Detect probes every candidate at once and returns the highest priority one
// that accepted a TCP connection. When nothing answers it falls back to the
// native default and found is false, callers always get a usable descriptor.
func (d *Detector) Detect(ctx context.Context) (descriptor domain.BackendDescriptor, found bool) {
	reachable := make([]bool, len(d.candidates))

	g, gctx := errgroup.WithContext(ctx)
	for i, candidate := range d.candidates {
		g.Go(func() error {
			reachable[i] = d.probe(gctx, candidate)
			return nil
		})
	}
	_ = g.Wait()

	for i, ok := range reachable {
		if ok {
			d.logger.InfoWithBackend("Detected backend", d.candidates[i].DisplayName(),
				"address", d.candidates[i].Address(),
				"family", d.candidates[i].Family)
			return d.candidates[i], true
		}
	}

	fallback := domain.DefaultBackendDescriptor()
	d.logger.WarnWithBackend("No backend answered, defaulting to", fallback.DisplayName(), "address", fallback.Address())
	return fallback, false
}

func (d *Detector) probe(ctx context.Context, candidate domain.BackendDescriptor) bool {
	probeCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	conn, err := d.dial(probeCtx, "tcp", candidate.Address())
	if err != nil {
		d.logger.Debug("Probe failed", "backend", candidate.Name, "address", candidate.Address(), "type", classifyError(err))
		return false
	}
	_ = conn.Close()
	return true
}
