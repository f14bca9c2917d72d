package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/thushan/qlite/internal/core/constants"
	"github.com/thushan/qlite/internal/core/domain"
	"github.com/thushan/qlite/internal/logger"
)

const (
	DefaultMaxResponseBytes = 1 << 20

	ErrorTypeTimeout = "timeout"
	ErrorTypeNetwork = "network"
	ErrorTypeHTTP    = "http"
)

// Options are shared by every backend implementation
type Options struct {
	Unary  *http.Client
	Stream *http.Client
	Logger *logger.StyledLogger

	// MaxResponseBytes caps a unary body, StreamLineBytes caps one streamed line
	MaxResponseBytes int64
	StreamLineBytes  int
}

func (o Options) withDefaults() Options {
	if o.Unary == nil {
		o.Unary = http.DefaultClient
	}
	if o.Stream == nil {
		o.Stream = o.Unary
	}
	if o.Logger == nil {
		o.Logger = logger.NewDiscard()
	}
	if o.MaxResponseBytes <= 0 {
		o.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if o.StreamLineBytes <= 0 {
		o.StreamLineBytes = bufio.MaxScanTokenSize
	}
	return o
}

// baseClient is the plumbing both backend families share: posting JSON and
// turning transport failures into domain errors.
type baseClient struct {
	descriptor domain.BackendDescriptor
	opts       Options
}

func newBaseClient(descriptor domain.BackendDescriptor, opts Options) baseClient {
	return baseClient{
		descriptor: descriptor,
		opts:       opts.withDefaults(),
	}
}

func (b *baseClient) Descriptor() domain.BackendDescriptor {
	return b.descriptor
}

func (b *baseClient) url(path string) string {
	return b.descriptor.BaseURL() + path
}

func (b *baseClient) newRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url(path), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	return req, nil
}

// post sends payload and returns the whole response body, bounded by MaxResponseBytes
func (b *baseClient) post(ctx context.Context, op, path string, payload any) ([]byte, error) {
	req, err := b.newRequest(ctx, path, payload)
	if err != nil {
		return nil, b.wrap(op, err)
	}

	resp, err := b.opts.Unary.Do(req)
	if err != nil {
		return nil, b.wrap(op, err)
	}
	defer resp.Body.Close()

	limit := b.opts.MaxResponseBytes
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, b.wrap(op, err)
	}
	if int64(len(body)) > limit {
		return nil, domain.NewBackendError(op, b.descriptor.DisplayName(), domain.ErrResponseTooLarge)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b.opts.Logger.Warn("Backend returned an error status",
			"backend", b.descriptor.Name,
			"op", op,
			"status", resp.StatusCode,
			"detail", upstreamError(body))
		return nil, domain.NewBackendError(op, b.descriptor.DisplayName(),
			fmt.Errorf("%w: status %d", domain.ErrInvalidResponse, resp.StatusCode))
	}
	return body, nil
}

// openStream sends payload and hands back the live body, the caller closes it
func (b *baseClient) openStream(ctx context.Context, op, path string, payload any) (io.ReadCloser, error) {
	req, err := b.newRequest(ctx, path, payload)
	if err != nil {
		return nil, b.wrap(op, err)
	}

	resp, err := b.opts.Stream.Do(req)
	if err != nil {
		return nil, b.wrap(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, domain.NewBackendError(op, b.descriptor.DisplayName(),
			fmt.Errorf("%w: status %d: %s", domain.ErrInvalidResponse, resp.StatusCode, upstreamError(detail)))
	}
	return resp.Body, nil
}

func (b *baseClient) extract(op string, body []byte, path string) (string, error) {
	text, ok := extractString(body, path)
	if !ok {
		return "", domain.NewBackendError(op, b.descriptor.DisplayName(), domain.ErrInvalidResponse)
	}
	return text, nil
}

// wrap maps a transport failure to ErrBackendUnreachable, anything else is
// treated as a bad response
func (b *baseClient) wrap(op string, err error) error {
	kind := classifyError(err)
	b.opts.Logger.Debug("Backend call failed", "backend", b.descriptor.Name, "op", op, "type", kind, "error", err)

	switch kind {
	case ErrorTypeTimeout, ErrorTypeNetwork:
		return domain.NewBackendError(op, b.descriptor.DisplayName(), fmt.Errorf("%w: %v", domain.ErrBackendUnreachable, err))
	}
	return domain.NewBackendError(op, b.descriptor.DisplayName(), fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err))
}

func classifyError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorTypeTimeout
		}
		return ErrorTypeNetwork
	}

	// Do wraps its failures in *url.Error so they land above, this catches a
	// backend hanging up mid body
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return ErrorTypeNetwork
	}
	return ErrorTypeHTTP
}
