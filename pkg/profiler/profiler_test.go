package profiler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiler_ServesIndex(t *testing.T) {
	p, err := Start("127.0.0.1:0")
	require.NoError(t, err)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + p.Addr() + "/debug/pprof/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, p.Stop(ctx))
}

func TestProfiler_BadAddress(t *testing.T) {
	_, err := Start("not-an-address")
	assert.Error(t, err)
}
