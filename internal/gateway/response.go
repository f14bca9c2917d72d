package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/thushan/qlite/internal/core/constants"
	"github.com/thushan/qlite/internal/core/domain"
)

// Fixed error bodies are built once, they're the hot path for rejections
var (
	bodyTooManyRequests  = errorBody(constants.ErrMsgTooManyRequests)
	bodyRateLimited      = errorBody(constants.ErrMsgRateLimited)
	bodyPayloadTooLarge  = errorBody(constants.ErrMsgPayloadTooLarge)
	bodyMethodNotAllowed = errorBody(constants.ErrMsgMethodNotAllowed)
	bodyNoJSON           = errorBody(constants.ErrMsgNoJSONBody)
	bodyMissingFields    = errorBody(constants.ErrMsgMissingFields)
	bodyBadRequest       = errorBody(constants.ErrMsgBadRequest)
	bodyResponseTooLarge = errorBody(constants.ErrMsgResponseTooLarge)
)

// errorBody is for messages known not to need escaping
func errorBody(msg string) []byte {
	return []byte(`{"error":"` + msg + `"}`)
}

// jsonErrorBody escapes properly, for messages carrying backend names etc
func jsonErrorBody(msg string) []byte {
	b, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return bodyBadRequest
	}
	return b
}

// replyBody frames a backend reply as {"<key>":"<text>"}
func replyBody(reply domain.Reply) ([]byte, error) {
	return json.Marshal(map[string]string{reply.Key: reply.Text})
}

func statusLine(status int) string {
	return fmt.Sprintf("%s %d %s\r\n", constants.HTTPVersion, status, http.StatusText(status))
}

// busyResponse goes to connections accepted while every slot is taken
var busyResponse = append([]byte(responseHead(http.StatusServiceUnavailable, constants.ContentTypeJSON, len(bodyTooManyRequests))), bodyTooManyRequests...)

func responseHead(status int, contentType string, length int) string {
	return statusLine(status) +
		constants.ContentTypeHeader + ": " + contentType + constants.CRLF +
		constants.HeaderContentLength + ": " + strconv.Itoa(length) + constants.CRLF +
		constants.HeaderConnection + ": close" + constants.CRLF + constants.CRLF
}

// setResponse renders a complete response into the connection's response
// buffer. A response that won't fit is replaced by a 502 which always does.
func (cc *connContext) setResponse(status int, contentType string, body []byte) {
	head := responseHead(status, contentType, len(body))

	if len(head)+len(body) > cap(cc.response) {
		if status == http.StatusBadGateway {
			// not even the fallback fits, send nothing rather than a torn response
			cc.response = cc.response[:0]
			return
		}
		cc.logger.Warn("Response exceeds buffer", "size", len(head)+len(body), "capacity", cap(cc.response))
		cc.setResponse(http.StatusBadGateway, constants.ContentTypeJSON, bodyResponseTooLarge)
		return
	}

	cc.status = status
	cc.response = append(cc.response[:0], head...)
	cc.response = append(cc.response, body...)
}

func (cc *connContext) setJSON(status int, body []byte) {
	cc.setResponse(status, constants.ContentTypeJSON, body)
}

// writeAll keeps writing until buf is flushed or the connection fails
func writeAll(w io.Writer, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := w.Write(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

// chunkWriter relays fragments as HTTP/1.1 chunked frames. The header goes
// out lazily with the first frame so an upstream that fails before sending
// anything can still get a plain JSON error.
type chunkWriter struct {
	w       io.Writer
	started bool
	frames  int
	written int64
}

func newChunkWriter(w io.Writer) *chunkWriter {
	return &chunkWriter{w: w}
}

func (c *chunkWriter) writeHeader() error {
	if c.started {
		return nil
	}
	c.started = true
	head := statusLine(http.StatusOK) +
		constants.ContentTypeHeader + ": " + constants.ContentTypeText + constants.CRLF +
		constants.HeaderTransferEncoding + ": chunked" + constants.CRLF +
		constants.HeaderConnection + ": close" + constants.CRLF + constants.CRLF
	return c.write([]byte(head))
}

// WriteChunk frames data, empty fragments are dropped since a zero length
// frame would end the stream
func (c *chunkWriter) WriteChunk(data string) error {
	if data == "" {
		return nil
	}
	if err := c.writeHeader(); err != nil {
		return err
	}
	frame := make([]byte, 0, len(data)+16)
	frame = strconv.AppendInt(frame, int64(len(data)), 16)
	frame = append(frame, constants.CRLF...)
	frame = append(frame, data...)
	frame = append(frame, constants.CRLF...)
	if err := c.write(frame); err != nil {
		return err
	}
	c.frames++
	return nil
}

// Finish writes the terminal frame, sending the header first if nothing
// was streamed
func (c *chunkWriter) Finish() error {
	if err := c.writeHeader(); err != nil {
		return err
	}
	return c.write([]byte(constants.ChunkTerminator))
}

func (c *chunkWriter) write(buf []byte) error {
	n, err := writeAll(c.w, buf)
	c.written += int64(n)
	if err != nil {
		return errors.Join(errClientGone, err)
	}
	return nil
}

// errClientGone marks sink failures so the registry doesn't count them
// against the backend
var errClientGone = domain.ErrClientGone
