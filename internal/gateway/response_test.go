package gateway

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/logger"
)

// trickleWriter accepts at most n bytes per call
type trickleWriter struct {
	buf bytes.Buffer
	n   int
}

func (w *trickleWriter) Write(p []byte) (int, error) {
	if len(p) > w.n {
		p = p[:w.n]
	}
	return w.buf.Write(p)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestWriteAll_PartialWrites(t *testing.T) {
	w := &trickleWriter{n: 3}
	n, err := writeAll(w, []byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, "hello world", w.buf.String())

	_, err = writeAll(brokenWriter{}, []byte("x"))
	assert.Error(t, err)
}

func TestChunkWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := newChunkWriter(&buf)

	require.NoError(t, cw.WriteChunk(""))
	assert.False(t, cw.started, "empty fragments don't start the stream")

	require.NoError(t, cw.WriteChunk(strings.Repeat("x", 26)))
	require.NoError(t, cw.Finish())

	head, body, ok := strings.Cut(buf.String(), "\r\n\r\n")
	require.True(t, ok)
	assert.Contains(t, head, "Transfer-Encoding: chunked")
	assert.Equal(t, "1a\r\n"+strings.Repeat("x", 26)+"\r\n0\r\n\r\n", body)
	assert.Equal(t, 1, cw.frames)
	assert.Equal(t, int64(buf.Len()), cw.written)
}

func TestChunkWriter_FinishWithoutFrames(t *testing.T) {
	var buf bytes.Buffer
	cw := newChunkWriter(&buf)
	require.NoError(t, cw.Finish())
	assert.True(t, strings.HasSuffix(buf.String(), "\r\n\r\n0\r\n\r\n"))
}

func TestChunkWriter_ClientGone(t *testing.T) {
	cw := newChunkWriter(brokenWriter{})
	err := cw.WriteChunk("data")
	assert.ErrorIs(t, err, errClientGone)
}

func TestSetResponse_FallsBackWhenTooLarge(t *testing.T) {
	cc := newConnContext(64, 160)
	cc.logger = logger.NewDiscard()

	cc.setJSON(200, []byte(`{"response":"`+strings.Repeat("a", 200)+`"}`))
	assert.Equal(t, 502, cc.status)
	assert.Contains(t, string(cc.response), "Response too large for gateway buffer")
	assert.LessOrEqual(t, len(cc.response), cap(cc.response))
}

func TestSetResponse_NothingFits(t *testing.T) {
	cc := newConnContext(64, 16)
	cc.logger = logger.NewDiscard()

	cc.setJSON(200, []byte(`{"response":"long enough"}`))
	assert.Empty(t, cc.response)
}

func TestReplyBody(t *testing.T) {
	body, err := replyBody(domain.TextReply("response", "line one\n\"two\""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"response":"line one\n\"two\""}`, string(body))

	assert.JSONEq(t, `{"error":"Failed to connect to \"x\""}`, string(jsonErrorBody(`Failed to connect to "x"`)))
}
