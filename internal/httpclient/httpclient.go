// Package httpclient builds the HTTP client handed to the Gemini SDK.
package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds one upstream round trip. Image generation is slow.
const DefaultTimeout = 180 * time.Second

type Options struct {
	// PreferIPv4 forces tcp4 dials; some hosts have broken IPv6 routes to Google.
	PreferIPv4 bool
	Timeout    time.Duration
}

func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(opts.PreferIPv4),
	}
}

func newTransport(preferIPv4 bool) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   15 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialFunc(dialer, preferIPv4),
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 150 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

func dialFunc(dialer *net.Dialer, preferIPv4 bool) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if preferIPv4 && (network == "tcp" || network == "tcp6") {
			network = "tcp4"
		}
		return dialer.DialContext(ctx, network, addr)
	}
}
