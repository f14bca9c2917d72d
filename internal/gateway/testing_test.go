package gateway

import (
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/thushan/qlite/internal/adapter/backend"
	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/core/ports"
	"github.com/thushan/qlite/internal/platform"
)

// fakeDispatcher stands in for the backend registry and counts every call
// that would have reached a backend
type fakeDispatcher struct {
	mu        sync.Mutex
	last      domain.Envelope
	reply     domain.Reply
	fragments []string
	streamErr error
	calls     atomic.Int32

	// when set, Dispatch signals entered and parks until release is closed.
	// entered wants headroom so calls after release don't block.
	entered chan struct{}
	release chan struct{}
}

var _ ports.Dispatcher = (*fakeDispatcher)(nil)

func (f *fakeDispatcher) Descriptor() domain.BackendDescriptor {
	return domain.DefaultBackendDescriptor()
}

func (f *fakeDispatcher) Dispatch(_ context.Context, env domain.Envelope) domain.Reply {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = env
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	return f.reply
}

func (f *fakeDispatcher) StreamGenerate(_ context.Context, model, prompt string, sink ports.FragmentSink) error {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = domain.Envelope{Model: model, Input: prompt, Kind: domain.KindGenerate, Stream: true}
	f.mu.Unlock()
	for _, fragment := range f.fragments {
		if err := sink(fragment); err != nil {
			return err
		}
	}
	return f.streamErr
}

func (f *fakeDispatcher) ErrorStatus(err error) (int, string) {
	return backend.NewRegistry(nil, nil).ErrorStatus(err)
}

func (f *fakeDispatcher) lastEnvelope() domain.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type sessionCount int

func (s sessionCount) Len() int { return int(s) }

func testLimits() platform.Config {
	cfg, _ := platform.Lookup(platform.PresetAuto)
	cfg.TimeoutMS = 2000
	return cfg
}

// startServer runs a gateway on a loopback port for the life of the test
func startServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()

	if opts.Limits.Name == "" {
		opts.Limits = testLimits()
	}
	srv, err := New(opts)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()

	t.Cleanup(func() {
		cancel()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
		<-done
	})
	return srv, ln.Addr().String()
}

// roundTrip writes raw to the gateway and reads until it closes the connection
func roundTrip(t *testing.T, addr string, raw ...string) string {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	for i, part := range raw {
		if i > 0 {
			time.Sleep(20 * time.Millisecond)
		}
		_, err = io.WriteString(conn, part)
		require.NoError(t, err)
	}

	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(out)
}

// exchange is roundTrip for use off the test goroutine
func exchange(addr, raw string) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return "", err
	}
	if _, err := io.WriteString(conn, raw); err != nil {
		return "", err
	}
	out, err := io.ReadAll(conn)
	return string(out), err
}

// occupy parks n generate requests inside Dispatch and returns their
// responses once release is closed
func occupy(t *testing.T, addr string, d *fakeDispatcher, n int) <-chan string {
	t.Helper()

	results := make(chan string, n)
	for i := 0; i < n; i++ {
		go func() {
			out, err := exchange(addr, post("/api/generate", `{"model":"m","prompt":"p"}`))
			if err != nil {
				out = "error: " + err.Error()
			}
			results <- out
		}()
	}
	for i := 0; i < n; i++ {
		select {
		case <-d.entered:
		case <-time.After(3 * time.Second):
			t.Fatalf("only %d of %d requests reached the backend", i, n)
		}
	}
	return results
}

func post(path, body string) string {
	return "POST " + path + " HTTP/1.1\r\n" +
		"Host: localhost\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
}

// splitResponse separates a raw response into head and body
func splitResponse(t *testing.T, raw string) (string, string) {
	t.Helper()
	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok, "no header terminator in %q", raw)
	return head, body
}
