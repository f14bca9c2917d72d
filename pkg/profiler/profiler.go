package profiler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"
)

// Profiler serves net/http/pprof on its own mux and listener so it never
// shares a port with the gateway.
// Based off https://github.com/thushan/smash/blob/main/pkg/profiler/profiler.go
type Profiler struct {
	server *http.Server
	ln     net.Listener
	errCh  chan error
}

// Start binds address and serves the pprof handlers in the background.
// Keep it on loopback, the profile endpoints are not authenticated.
func Start(address string) (*Profiler, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("profiler: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	p := &Profiler{
		ln:    ln,
		errCh: make(chan error, 1),
		server: &http.Server{
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second, // profile defaults to 30s of sampling
		},
	}

	go func() {
		if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.errCh <- err
		}
		close(p.errCh)
	}()
	return p, nil
}

func (p *Profiler) Addr() string {
	return p.ln.Addr().String()
}

func (p *Profiler) Stop(ctx context.Context) error {
	if err := p.server.Shutdown(ctx); err != nil {
		return err
	}
	return <-p.errCh
}
