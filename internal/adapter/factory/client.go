package factory

import (
	"net"
	"net/http"
	"time"
)

// SharedClientFactory hands out the http clients used to talk to backends.
// Unary and streaming calls share a transport so connections get reused.
type SharedClientFactory struct {
	unaryClient  *http.Client
	streamClient *http.Client
	dialer       *net.Dialer
}

const (
	DefaultConnectTimeout  = 5 * time.Second
	DefaultResponseTimeout = 30 * time.Second
)

// NewSharedClientFactory builds clients bounded by responseTimeout. Unary
// calls get it as an overall deadline, streams only wait that long for headers
// since a generation can legitimately run longer.
func NewSharedClientFactory(connectTimeout, responseTimeout time.Duration) *SharedClientFactory {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if responseTimeout <= 0 {
		responseTimeout = DefaultResponseTimeout
	}

	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}

	sharedTransport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: responseTimeout,
		DisableCompression:    true,
	}

	return &SharedClientFactory{
		unaryClient: &http.Client{
			Timeout:   responseTimeout,
			Transport: sharedTransport,
		},
		streamClient: &http.Client{
			Transport: sharedTransport,
		},
		dialer: dialer,
	}
}

func (f *SharedClientFactory) GetUnaryClient() *http.Client {
	return f.unaryClient
}

func (f *SharedClientFactory) GetStreamClient() *http.Client {
	return f.streamClient
}

func (f *SharedClientFactory) GetDialer() *net.Dialer {
	return f.dialer
}
