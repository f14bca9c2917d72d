package backend

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/thushan/qlite/internal/core/domain"
)

// mockBackend is an httptest server that records the last request body
type mockBackend struct {
	server   *httptest.Server
	lastPath atomic.Value
	lastBody atomic.Value
	calls    atomic.Int64
}

func newMockBackend(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body []byte)) *mockBackend {
	t.Helper()
	m := &mockBackend{}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		m.calls.Add(1)
		m.lastPath.Store(r.URL.Path)
		m.lastBody.Store(body)
		handler(w, r, body)
	}))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockBackend) descriptor(t *testing.T, family domain.Family) domain.BackendDescriptor {
	t.Helper()
	host, portStr, err := net.SplitHostPort(m.server.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return domain.NewBackendDescriptor("mock", host, port, family)
}

func (m *mockBackend) path() string {
	p, _ := m.lastPath.Load().(string)
	return p
}

func (m *mockBackend) field(path string) gjson.Result {
	b, _ := m.lastBody.Load().([]byte)
	return gjson.GetBytes(b, path)
}

// closedPortDescriptor points at a port nothing is listening on
func closedPortDescriptor(t *testing.T, family domain.Family) domain.BackendDescriptor {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return domain.NewBackendDescriptor("ollama", "127.0.0.1", port, family)
}

// collect returns a sink that appends fragments
func collect(into *[]string) func(string) error {
	return func(s string) error {
		*into = append(*into, s)
		return nil
	}
}
