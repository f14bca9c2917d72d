package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/thushan/qlite/internal/adapter/backend"
	"github.com/thushan/qlite/internal/adapter/factory"
	"github.com/thushan/qlite/internal/adapter/session"
	"github.com/thushan/qlite/internal/adapter/stats"
	"github.com/thushan/qlite/internal/config"
	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/gateway"
	"github.com/thushan/qlite/internal/logger"
	"github.com/thushan/qlite/internal/platform"
)

const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultMemoryCheck    = 30 * time.Second

	// warn once session and buffer memory passes this share of the budget
	memoryWarningPercent = 80
)

// Application ties the gateway to its backend, sessions and telemetry
type Application struct {
	configMu sync.RWMutex
	config   *config.Config

	logger   *logger.StyledLogger
	platform platform.Ops
	registry *backend.Registry
	sessions *session.Manager
	store    *session.SQLiteStore
	stats    *stats.Collector
	memory   *stats.MemProfile
	server   *gateway.Server

	startTime time.Time
	errCh     chan error
	stopCh    chan struct{}
	wg        sync.WaitGroup

	// dial overrides backend probing, tests use it
	dial backend.DialFunc
}

type Option func(*Application)

// WithDialer swaps how auto-detect connects to candidate backends
func WithDialer(dial backend.DialFunc) Option {
	return func(a *Application) { a.dial = dial }
}

// New resolves the preset and backend and builds every component. Nothing is
// listening until Start.
func New(ctx context.Context, startTime time.Time, cfg *config.Config, log *logger.StyledLogger, opts ...Option) (*Application, error) {
	a := &Application{
		logger:    log,
		startTime: startTime,
		stats:     stats.NewCollector(),
		memory:    stats.NewMemProfile(),
		errCh:     make(chan error, 1),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.setConfig(cfg)

	limits, known := cfg.Limits()
	if !known {
		log.Warn("Unknown preset, using auto", "preset", cfg.Server.Preset)
	}

	host := platform.NewHost(limits, log)
	if err := host.Init(); err != nil {
		return nil, fmt.Errorf("platform init failed: %w", err)
	}
	platform.PrintInfo(host, log)
	a.platform = host
	limits = host.Config()

	desc, err := resolveBackend(ctx, cfg, log, a.dial)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve backend: %w", err)
	}

	clients := factory.NewSharedClientFactory(DefaultConnectTimeout, limits.Timeout())
	backends := backend.NewFactory(backend.Options{
		Unary:            clients.GetUnaryClient(),
		Stream:           clients.GetStreamClient(),
		Logger:           log,
		MaxResponseBytes: cfg.MaxResponseBytes(),
		StreamLineBytes:  limits.ResponseBufferSize(),
	})
	active, err := backends.Create(desc)
	if err != nil {
		return nil, err
	}

	a.sessions = session.NewManager(cfg.SessionBudget(), a.memory, log)
	a.registry = backend.NewRegistry(active, log,
		backend.WithSessions(a.sessions),
		backend.WithStats(a.stats),
		backend.WithTimeout(limits.Timeout()))

	a.server, err = gateway.New(gateway.Options{
		Dispatcher:        a.registry,
		Stats:             a.stats,
		Memory:            a.memory,
		Sessions:          a.sessions,
		Logger:            log,
		Limits:            limits,
		RequestsPerMinute: cfg.Server.RateLimits.GlobalRequestsPerMinute,
		Burst:             cfg.Server.RateLimits.BurstSize,
	})
	if err != nil {
		return nil, err
	}

	if path := cfg.Sessions.PersistPath; path != "" {
		a.store, err = session.NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("unable to open session store: %w", err)
		}
	}
	return a, nil
}

// Start restores sessions, binds the listener and begins serving
func (a *Application) Start(ctx context.Context) error {
	cfg := a.getConfig()

	if a.store != nil {
		if err := a.sessions.Restore(ctx, a.store); err != nil {
			a.logger.Warn("Unable to restore sessions", "path", a.store.Path(), "error", err)
		}
	}

	addr := cfg.Server.GetAddress()
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", addr, err)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.server.Serve(ctx, ln); err != nil && !errors.Is(err, gateway.ErrServerClosed) {
			a.logger.Error("Gateway stopped", "error", err)
			select {
			case a.errCh <- err:
			default:
			}
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.watchMemory()
	}()

	cfg.Watch(a.reloadConfig)

	a.logger.InfoWithBackend("Q-Lite started, forwarding to", a.registry.Descriptor().DisplayName(),
		"bind", ln.Addr().String(),
		"backend", a.registry.Descriptor().BaseURL())
	return nil
}

// Errors delivers a fatal serving error, if one happens
func (a *Application) Errors() <-chan error {
	return a.errCh
}

// Addr is the bound listener address once started
func (a *Application) Addr() net.Addr {
	return a.server.Addr()
}

func (a *Application) Descriptor() domain.BackendDescriptor {
	return a.registry.Descriptor()
}

// Stop drains connections, persists sessions and reports what the gateway did
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.getConfig().Server.ShutdownTimeout)
	defer cancel()

	close(a.stopCh)
	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("gateway shutdown: %w", err))
	}
	a.wg.Wait()

	if a.store != nil {
		if err := a.sessions.Persist(shutdownCtx, a.store); err != nil {
			errs = append(errs, fmt.Errorf("session persist: %w", err))
		}
		if err := a.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.sessions.Close()

	a.reportGatewayStats()
	a.memory.Report(a.logger)
	return errors.Join(errs...)
}

// watchMemory warns when session and connection buffers approach the budget
func (a *Application) watchMemory() {
	budget := a.getConfig().SessionBudget()
	limits := a.platform.Config()
	budget += int64(limits.MaxConnections) * int64(limits.RequestBufferSize()+limits.ResponseBufferSize())
	threshold := budget * memoryWarningPercent / 100

	ticker := time.NewTicker(DefaultMemoryCheck)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.memory.CheckWarning(threshold, a.logger)
		}
	}
}
