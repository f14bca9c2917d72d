package gateway

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/thushan/qlite/internal/core/constants"
	"github.com/thushan/qlite/internal/core/domain"
)

var (
	errMalformedRequest = errors.New("malformed request line")
	errNoBody           = errors.New(constants.ErrMsgNoJSONBody)
	errMissingFields    = errors.New(constants.ErrMsgMissingFields)
)

// requestHead is the little we care about from the request line and headers
type requestHead struct {
	Method        string
	Target        string
	Proto         string
	Header        textproto.MIMEHeader
	ContentLength int
	HasLength     bool
}

// Path is the target without any query string
func (h requestHead) Path() string {
	if i := strings.IndexByte(h.Target, '?'); i >= 0 {
		return h.Target[:i]
	}
	return h.Target
}

// parseHead parses a request head up to and including the blank line
func parseHead(raw []byte) (requestHead, error) {
	tp := textproto.NewReader(bufio.NewReader(bytes.NewReader(raw)))

	line, err := tp.ReadLine()
	if err != nil {
		return requestHead{}, fmt.Errorf("%w: %v", errMalformedRequest, err)
	}

	method, rest, ok := strings.Cut(line, " ")
	if !ok || method == "" {
		return requestHead{}, errMalformedRequest
	}
	target, proto, ok := strings.Cut(rest, " ")
	if !ok || target == "" || !strings.HasPrefix(proto, "HTTP/") {
		return requestHead{}, errMalformedRequest
	}

	header, err := tp.ReadMIMEHeader()
	if err != nil {
		return requestHead{}, fmt.Errorf("%w: %v", errMalformedRequest, err)
	}

	head := requestHead{
		Method: method,
		Target: target,
		Proto:  proto,
		Header: header,
	}

	if cl := header.Get(constants.HeaderContentLength); cl != "" {
		n, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil || n < 0 {
			return requestHead{}, fmt.Errorf("%w: bad content length %q", errMalformedRequest, cl)
		}
		head.ContentLength = n
		head.HasLength = true
	}
	return head, nil
}

// parseEnvelope pulls model, prompt/message, stream and session out of a
// POST body. The kind follows whichever of prompt or message shows up first
// in the body, the request path plays no part.
func parseEnvelope(body []byte) (domain.Envelope, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.Envelope{}, errNoBody
	}
	if !gjson.ValidBytes(body) {
		return domain.Envelope{}, errMissingFields
	}

	fields := gjson.GetManyBytes(body, "model", "prompt", "message", "stream", "session")
	model, prompt, message, stream, session := fields[0], fields[1], fields[2], fields[3], fields[4]

	env := domain.Envelope{
		Model:   model.String(),
		Stream:  stream.Bool(),
		Session: session.String(),
		Kind:    firstKind(prompt, message),
	}
	if model.Type != gjson.String || env.Model == "" {
		return domain.Envelope{}, errMissingFields
	}

	var input gjson.Result
	switch env.Kind {
	case domain.KindGenerate:
		input = prompt
	case domain.KindChat:
		input = message
	default:
		return domain.Envelope{}, errMissingFields
	}
	if input.Type != gjson.String {
		return domain.Envelope{}, errMissingFields
	}
	env.Input = input.String()
	return env, nil
}

// firstKind picks generate or chat by field position, gjson gives us the
// byte offset of each value in the raw body
func firstKind(prompt, message gjson.Result) domain.RequestKind {
	switch {
	case prompt.Exists() && message.Exists():
		if message.Index < prompt.Index {
			return domain.KindChat
		}
		return domain.KindGenerate
	case prompt.Exists():
		return domain.KindGenerate
	case message.Exists():
		return domain.KindChat
	}
	return domain.KindUnknown
}
