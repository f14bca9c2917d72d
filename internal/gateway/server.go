package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/thushan/qlite/internal/core/constants"
	"github.com/thushan/qlite/internal/core/ports"
	"github.com/thushan/qlite/internal/logger"
	"github.com/thushan/qlite/internal/platform"
	"github.com/thushan/qlite/internal/util"
	"github.com/thushan/qlite/pkg/pool"
)

var ErrServerClosed = errors.New("gateway: server closed")

const busyDrainTimeout = time.Second

// SessionCounter reports how many sessions are live, for the status payload
type SessionCounter interface {
	Len() int
}

// Options wires the gateway to its collaborators. Dispatcher and Limits are
// required, everything else is optional.
type Options struct {
	Dispatcher ports.Dispatcher
	Stats      ports.StatsCollector
	Memory     ports.MemoryTracker
	Sessions   SessionCounter
	Logger     *logger.StyledLogger
	Limits     platform.Config

	// RequestsPerMinute of 0 disables the global rate limit
	RequestsPerMinute int
	Burst             int
}

// Server owns the listening socket. Every accepted connection runs its own
// state machine on a goroutine; the number of open connections is capped by
// the preset and the number in Processing by the admission semaphore.
type Server struct {
	dispatcher ports.Dispatcher
	stats      ports.StatsCollector
	memory     ports.MemoryTracker
	sessions   SessionCounter
	logger     *logger.StyledLogger
	limits     platform.Config

	slots     *semaphore.Weighted
	admission *semaphore.Weighted
	limiter   atomic.Pointer[rate.Limiter]
	inFlight  atomic.Int64

	contexts *pool.Pool[*connContext]
	active   *xsync.Map[string, net.Conn]
	wg       sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
	closed   atomic.Bool
}

func New(opts Options) (*Server, error) {
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("gateway: dispatcher is required")
	}
	if err := opts.Limits.Validate(); err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewDiscard()
	}

	reqSize, respSize := opts.Limits.RequestBufferSize(), opts.Limits.ResponseBufferSize()
	contexts, err := pool.NewLitePool(func() *connContext {
		return newConnContext(reqSize, respSize)
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	s := &Server{
		dispatcher: opts.Dispatcher,
		stats:      opts.Stats,
		memory:     opts.Memory,
		sessions:   opts.Sessions,
		logger:     opts.Logger,
		limits:     opts.Limits,
		slots:      semaphore.NewWeighted(int64(opts.Limits.MaxConnections)),
		admission:  semaphore.NewWeighted(int64(opts.Limits.QueueDepth)),
		contexts:   contexts,
		active:     xsync.NewMap[string, net.Conn](),
	}
	s.SetRateLimit(opts.RequestsPerMinute, opts.Burst)
	return s, nil
}

// SetRateLimit swaps the global limiter, safe while serving so config
// reloads can call it
func (s *Server) SetRateLimit(perMinute, burst int) {
	if perMinute <= 0 {
		s.limiter.Store(nil)
		return
	}
	if burst <= 0 {
		burst = 1
	}
	s.limiter.Store(rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst))
}

// ListenAndServe binds addr and serves until ctx is cancelled or Shutdown
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the accept loop on ln. It blocks until the listener is closed.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = s.stopListening() })
	defer stop()

	s.logger.Info("Gateway listening",
		"addr", ln.Addr().String(),
		"max_connections", s.limits.MaxConnections,
		"queue_depth", s.limits.QueueDepth)

	for {
		// Idle: always accept, a connection over the cap is answered with a
		// 503 instead of being left in the backlog
		conn, err := ln.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				time.Sleep(constants.DefaultIdlePoll)
				continue
			}
			s.logger.Warn("Accept failed", "error", err)
			time.Sleep(constants.DefaultIdlePoll)
			continue
		}

		if !s.slots.TryAcquire(1) {
			s.wg.Add(1)
			go s.rejectBusy(conn)
			continue
		}

		if s.stats != nil {
			s.stats.RecordConnection()
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.slots.Release(1)
			s.serveConn(ctx, conn)
		}()
	}
}

// rejectBusy answers a connection that arrived with every slot taken. The
// write side is shut before draining so the close can't reset the reply away.
func (s *Server) rejectBusy(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	if s.stats != nil {
		s.stats.RecordRejection(http.StatusServiceUnavailable)
	}

	_ = conn.SetDeadline(time.Now().Add(busyDrainTimeout))
	if _, err := writeAll(conn, busyResponse); err != nil {
		s.logger.Debug("Busy rejection failed", "remote", util.RemoteIP(conn.RemoteAddr()), "error", err)
		return
	}
	if hc, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = hc.CloseWrite()
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(conn, int64(s.limits.RequestBufferSize())))
}

// Addr is the bound listener address, nil before Serve
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) InFlight() int64 {
	return s.inFlight.Load()
}

// Shutdown stops accepting and waits for open connections to finish. When
// ctx expires first the remaining connections are closed under them.
func (s *Server) Shutdown(ctx context.Context) error {
	_ = s.stopListening()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		count := 0
		s.active.Range(func(_ string, conn net.Conn) bool {
			_ = conn.Close()
			count++
			return true
		})
		s.logger.Warn("Shutdown timed out, closed open connections", "connections", count)
		<-done
		return ctx.Err()
	}
}

func (s *Server) stopListening() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed.CompareAndSwap(false, true) {
		return ErrServerClosed
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	return ErrServerClosed
}
