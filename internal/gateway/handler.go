package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/thushan/qlite/internal/adapter/stats"
	"github.com/thushan/qlite/internal/core/constants"
	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/core/ports"
	"github.com/thushan/qlite/internal/util"
	"github.com/thushan/qlite/internal/version"
)

// serveConn drives one connection through its state machine
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	cc := s.contexts.Get()
	cc.attach(conn, s.logger)
	s.active.Store(cc.id, conn)
	if s.memory != nil {
		s.memory.Alloc(cc.bufferBytes())
	}

	cc.logger.Debug("Connection accepted", "remote", util.RemoteIP(conn.RemoteAddr()))

	for cc.state != StateIdle {
		switch cc.state {
		case StateReading:
			cc.state = s.handleReading(cc)
		case StateProcessing:
			cc.state = s.handleProcessing(ctx, cc)
		case StateResponding:
			cc.state = s.handleResponding(cc)
		case StateClosing:
			cc.state = s.handleClosing(cc)
		default:
			cc.state = StateClosing
		}
	}

	s.active.Delete(cc.id)
	if s.memory != nil {
		s.memory.Free(cc.bufferBytes())
	}
	if s.stats != nil {
		s.stats.RecordBytes(int64(len(cc.request)), cc.written)
	}
	s.contexts.Put(cc)
}

func (s *Server) handleReading(cc *connContext) State {
	n, err := cc.readOnce(s.limits.Timeout())
	if errors.Is(err, errRequestTooLarge) {
		return s.reject(cc, http.StatusRequestEntityTooLarge, bodyPayloadTooLarge)
	}

	if n > 0 {
		done, cerr := cc.complete()
		if cerr != nil {
			return s.reject(cc, http.StatusRequestEntityTooLarge, bodyPayloadTooLarge)
		}
		if done {
			return StateProcessing
		}
	}

	if err != nil || n <= 0 {
		// the client went away or stalled, nothing to answer
		if err != nil && !errors.Is(err, io.EOF) {
			cc.logger.Debug("Read failed", "error", err, "read", len(cc.request))
		}
		return StateClosing
	}
	return StateReading
}

func (s *Server) handleProcessing(ctx context.Context, cc *connContext) State {
	if cc.headErr != nil {
		cc.logger.Debug("Malformed request", "error", cc.headErr)
		return s.reject(cc, http.StatusBadRequest, bodyBadRequest)
	}

	if limiter := s.limiter.Load(); limiter != nil && !limiter.Allow() {
		return s.reject(cc, http.StatusTooManyRequests, bodyRateLimited)
	}

	// reject rather than queue, the client is expected to retry
	if !s.admission.TryAcquire(1) {
		s.reject(cc, http.StatusServiceUnavailable, bodyTooManyRequests)
		s.flush(cc)
		return StateClosing
	}
	s.inFlight.Add(1)
	defer func() {
		s.inFlight.Add(-1)
		s.admission.Release(1)
	}()

	switch cc.head.Method {
	case http.MethodGet:
		s.handleStatus(cc)
	case http.MethodPost:
		s.handlePost(ctx, cc)
	default:
		s.reject(cc, http.StatusMethodNotAllowed, bodyMethodNotAllowed)
	}
	return StateResponding
}

func (s *Server) handleResponding(cc *connContext) State {
	s.flush(cc)
	return StateClosing
}

func (s *Server) handleClosing(cc *connContext) State {
	if err := cc.conn.Close(); err != nil {
		cc.logger.Debug("Close failed", "error", err)
	}
	cc.logger.Debug("Connection closed",
		"method", cc.head.Method,
		"path", cc.head.Path(),
		"status", cc.status,
		"streamed", cc.streamed,
		"bytes_in", len(cc.request),
		"bytes_out", cc.written)
	return StateIdle
}

// flush writes whatever is in the response buffer
func (s *Server) flush(cc *connContext) {
	if len(cc.response) == 0 {
		return
	}
	if timeout := s.limits.Timeout(); timeout > 0 {
		_ = cc.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	n, err := writeAll(cc.conn, cc.response)
	cc.written += int64(n)
	if err != nil {
		cc.logger.Debug("Write failed", "error", err, "written", n, "size", len(cc.response))
	}
}

func (s *Server) reject(cc *connContext, status int, body []byte) State {
	if s.stats != nil {
		s.stats.RecordRejection(status)
	}
	cc.setJSON(status, body)
	return StateResponding
}

func (s *Server) handlePost(ctx context.Context, cc *connContext) {
	env, err := parseEnvelope(cc.body())
	if err != nil {
		if errors.Is(err, errNoBody) {
			s.reject(cc, http.StatusBadRequest, bodyNoJSON)
			return
		}
		s.reject(cc, http.StatusBadRequest, bodyMissingFields)
		return
	}

	if env.Stream && env.IsGenerate() {
		s.relayStream(ctx, cc, env)
		return
	}

	if s.stats != nil {
		s.stats.RecordRequest(env.Kind.String())
	}

	reply := s.dispatcher.Dispatch(ctx, env)
	if reply.Failed() {
		status, msg := s.dispatcher.ErrorStatus(reply.Err)
		cc.setJSON(status, jsonErrorBody(msg))
		return
	}

	body, err := replyBody(reply)
	if err != nil {
		cc.logger.Error("Failed to encode reply", "error", err)
		status, msg := s.dispatcher.ErrorStatus(err)
		cc.setJSON(status, jsonErrorBody(msg))
		return
	}
	cc.setJSON(http.StatusOK, body)
}

// relayStream forwards fragments as chunked frames straight to the socket.
// Once the header is out the terminal frame is always written, even when the
// upstream fails partway, so the client's framing stays valid.
func (s *Server) relayStream(ctx context.Context, cc *connContext, env domain.Envelope) {
	if s.stats != nil {
		s.stats.RecordRequest(stats.KindStream)
	}

	cw := newChunkWriter(deadlineWriter{conn: cc.conn, timeout: s.limits.Timeout()})
	var clientErr error
	sink := ports.FragmentSink(func(fragment string) error {
		if err := cw.WriteChunk(fragment); err != nil {
			clientErr = err
			return err
		}
		if s.stats != nil && fragment != "" {
			s.stats.RecordStreamFrame(len(fragment))
		}
		return nil
	})

	err := s.dispatcher.StreamGenerate(ctx, env.Model, env.Input, sink)
	defer func() { cc.written += cw.written }()

	if err != nil && !cw.started {
		// nothing sent yet, answer like a unary failure
		status, msg := s.dispatcher.ErrorStatus(err)
		cc.setJSON(status, jsonErrorBody(msg))
		return
	}

	cc.streamed = true
	cc.status = http.StatusOK

	if clientErr != nil {
		cc.logger.Debug("Client went away mid-stream", "frames", cw.frames, "error", clientErr)
		return
	}
	if err != nil {
		cc.logger.Warn("Stream ended early", "frames", cw.frames, "error", err)
	}
	if ferr := cw.Finish(); ferr != nil {
		cc.logger.Debug("Failed to terminate stream", "error", ferr)
	}
}

type deadlineWriter struct {
	conn    net.Conn
	timeout time.Duration
}

func (w deadlineWriter) Write(p []byte) (int, error) {
	if w.timeout > 0 {
		_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	}
	return w.conn.Write(p)
}

type backendInfo struct {
	Name    string `json:"name"`
	Family  string `json:"family"`
	Address string `json:"address"`
}

type statusPayload struct {
	Status    string              `json:"status"`
	Message   string              `json:"message"`
	Endpoints []string            `json:"endpoints"`
	Backend   backendInfo         `json:"backend"`
	Preset    string              `json:"preset"`
	InFlight  int64               `json:"in_flight"`
	Sessions  int                 `json:"sessions"`
	Stats     *ports.GatewayStats `json:"stats,omitempty"`
}

var statusEndpoints = []string{
	http.MethodGet + " " + constants.DefaultStatusPath,
	http.MethodPost + " " + constants.DefaultGeneratePath,
	http.MethodPost + " " + constants.DefaultChatPath,
}

func (s *Server) handleStatus(cc *connContext) {
	if s.stats != nil {
		s.stats.RecordRequest(stats.KindStatus)
	}

	desc := s.dispatcher.Descriptor()
	payload := statusPayload{
		Status:    "ok",
		Message:   version.StatusMessage(),
		Endpoints: statusEndpoints,
		Backend: backendInfo{
			Name:    desc.Name,
			Family:  desc.Family.String(),
			Address: desc.Address(),
		},
		Preset:   s.limits.Name,
		InFlight: s.inFlight.Load(),
	}
	if s.sessions != nil {
		payload.Sessions = s.sessions.Len()
	}
	if s.stats != nil {
		snapshot := s.stats.GetGatewayStats()
		payload.Stats = &snapshot
	}

	body, err := json.Marshal(payload)
	if err != nil {
		cc.logger.Error("Failed to encode status", "error", err)
		cc.setJSON(http.StatusInternalServerError, jsonErrorBody(err.Error()))
		return
	}
	cc.setJSON(http.StatusOK, body)
}
