package backend

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/qlite/internal/core/constants"
	"github.com/thushan/qlite/internal/core/domain"
)

// fakeDialer succeeds only for the listed ports
func fakeDialer(open ...int) DialFunc {
	reachable := make(map[string]bool)
	for _, p := range open {
		reachable[net.JoinHostPort(constants.DefaultBackendHost, strconv.Itoa(p))] = true
	}
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		if reachable[address] {
			client, server := net.Pipe()
			_ = server.Close()
			return client, nil
		}
		return nil, &net.OpError{Op: "dial", Net: network, Err: errors.New("connection refused")}
	}
}

func TestDetector_PriorityOrder(t *testing.T) {
	tests := []struct {
		name   string
		open   []int
		want   string
		family domain.Family
		found  bool
	}{
		{"all up picks ollama", []int{11434, 1234, 8000}, constants.ProviderTypeOllama, domain.FamilyNative, true},
		{"lm studio beats vllm", []int{1234, 8000}, constants.ProviderTypeLMStudio, domain.FamilyOpenAI, true},
		{"only vllm", []int{8000}, constants.ProviderTypeVLLM, domain.FamilyOpenAI, true},
		{"nothing falls back to ollama", nil, constants.ProviderTypeOllama, domain.FamilyNative, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(nil, 50*time.Millisecond, nil).WithDialer(fakeDialer(tt.open...))

			got, found := d.Detect(context.Background())
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got.Name)
			assert.Equal(t, tt.family, got.Family)
		})
	}
}

func TestDetector_FallbackIsDefault(t *testing.T) {
	d := NewDetector(nil, 0, nil).WithDialer(fakeDialer())

	got, found := d.Detect(context.Background())
	assert.False(t, found)
	assert.Equal(t, "localhost:11434", got.Address())
}

func TestDetector_ProbesConcurrently(t *testing.T) {
	var mu sync.Mutex
	inflight, peak := 0, 0

	slow := func(ctx context.Context, network, address string) (net.Conn, error) {
		mu.Lock()
		inflight++
		peak = max(peak, inflight)
		mu.Unlock()

		<-ctx.Done()

		mu.Lock()
		inflight--
		mu.Unlock()
		return nil, ctx.Err()
	}

	d := NewDetector(nil, 30*time.Millisecond, nil).WithDialer(slow)
	start := time.Now()
	_, found := d.Detect(context.Background())

	assert.False(t, found)
	assert.Equal(t, 3, peak)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDetector_RealListener(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	port := l.Addr().(*net.TCPAddr).Port

	candidates := []domain.BackendDescriptor{
		closedPortDescriptor(t, domain.FamilyNative),
		domain.NewBackendDescriptor("local", "127.0.0.1", port, domain.FamilyOpenAI),
	}
	got, found := NewDetector(candidates, 200*time.Millisecond, nil).Detect(context.Background())
	assert.True(t, found)
	assert.Equal(t, port, got.Port)
}
