package gateway

import (
	"bytes"
	"errors"
	"net"
	"time"

	"github.com/thushan/qlite/internal/core/constants"
	"github.com/thushan/qlite/internal/logger"
	"github.com/thushan/qlite/internal/util"
)

var errRequestTooLarge = errors.New("request exceeds buffer")

// connContext is the per connection state. It's owned by exactly one
// goroutine from accept to close and then goes back to the pool, so nothing
// in here is guarded.
type connContext struct {
	conn   net.Conn
	logger *logger.StyledLogger
	id     string
	state  State

	// request holds what we've read so far, len is the fill level and cap
	// the preset's request buffer size
	request  []byte
	response []byte

	head     requestHead
	headErr  error
	headEnd  int // offset of the body, 0 until the head terminator is seen
	parsed   bool
	streamed bool // response went straight to the socket as chunks
	status   int
	written  int64
}

func newConnContext(requestSize, responseSize int) *connContext {
	return &connContext{
		request:  make([]byte, 0, requestSize),
		response: make([]byte, 0, responseSize),
	}
}

// Reset implements pool.Resettable, buffers keep their capacity
func (cc *connContext) Reset() {
	cc.conn = nil
	cc.logger = nil
	cc.id = ""
	cc.state = StateIdle
	cc.request = cc.request[:0]
	cc.response = cc.response[:0]
	cc.head = requestHead{}
	cc.headErr = nil
	cc.headEnd = 0
	cc.parsed = false
	cc.streamed = false
	cc.status = 0
	cc.written = 0
}

func (cc *connContext) attach(conn net.Conn, log *logger.StyledLogger) {
	cc.conn = conn
	cc.id = util.GenerateConnectionID()
	cc.logger = log.WithConnection(cc.id)
	cc.state = StateReading
}

func (cc *connContext) bufferBytes() int64 {
	return int64(cap(cc.request) + cap(cc.response))
}

// readOnce does a single bounded read into the free tail of the request buffer
func (cc *connContext) readOnce(timeout time.Duration) (int, error) {
	if len(cc.request) == cap(cc.request) {
		return 0, errRequestTooLarge
	}
	if timeout > 0 {
		_ = cc.conn.SetReadDeadline(time.Now().Add(timeout))
	}
	free := cc.request[len(cc.request):cap(cc.request)]
	n, err := cc.conn.Read(free)
	if n > 0 {
		cc.request = cc.request[:len(cc.request)+n]
	}
	return n, err
}

// complete reports whether the buffer holds a whole request: the head
// terminator and, when a Content-Length was sent, that many body bytes.
func (cc *connContext) complete() (bool, error) {
	if cc.headEnd == 0 {
		idx := bytes.Index(cc.request, []byte(constants.HeaderTerminator))
		if idx < 0 {
			if len(cc.request) == cap(cc.request) {
				return false, errRequestTooLarge
			}
			return false, nil
		}
		cc.headEnd = idx + len(constants.HeaderTerminator)
	}

	if !cc.parsed {
		cc.head, cc.headErr = parseHead(cc.request[:cc.headEnd])
		cc.parsed = true
		if cc.headErr != nil {
			// Processing answers with a 400
			return true, nil
		}
	}

	need := cc.headEnd + cc.head.ContentLength
	if need > cap(cc.request) {
		return false, errRequestTooLarge
	}
	return len(cc.request) >= need, nil
}

// body is whatever follows the head, trimmed to Content-Length if we got one
func (cc *connContext) body() []byte {
	if cc.headEnd == 0 || cc.headEnd > len(cc.request) {
		return nil
	}
	body := cc.request[cc.headEnd:]
	if cc.head.HasLength && cc.head.ContentLength < len(body) {
		body = body[:cc.head.ContentLength]
	}
	return body
}
