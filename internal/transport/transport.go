// Package transport provides the HTTP transports used for upstream calls.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"

	"storefront-proxy/internal/metrics"
)

// =============================================================================
// TLS FINGERPRINT TRANSPORT
// =============================================================================
//
// Go's standard TLS client has a distinctive fingerprint that some WordPress
// hosts and CDNs rate-limit aggressively. With Fingerprint enabled the
// transport presents a Chrome-like ClientHello via uTLS:
//
//   1. uTLS with HelloChrome_Auto for Chrome's TLS fingerprint
//   2. ALPN negotiates naturally (h2, http/1.1)
//   3. Go's http2.Transport handles framing when h2 is negotiated
//
// Plain http:// upstreams (local development) always use the standard transport.
// =============================================================================

// Options configure an upstream client.
type Options struct {
	// Service labels upstream metrics ("cocart", "woocommerce", "myfatoorah").
	Service string
	// Timeout bounds dialing and the whole request.
	Timeout time.Duration
	// Fingerprint enables the Chrome TLS fingerprint.
	Fingerprint bool
}

// NewClient returns an instrumented *http.Client for one upstream service.
func NewClient(opts Options) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	var rt http.RoundTripper = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: opts.Timeout}).DialContext,
		TLSHandshakeTimeout: opts.Timeout,
		ForceAttemptHTTP2:   true,
		MaxIdleConnsPerHost: 16,
	}
	if opts.Fingerprint {
		rt = NewChromeTransport(opts.Timeout)
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: Instrument(opts.Service, rt),
	}
}

// NewChromeTransport creates an http.RoundTripper that presents Chrome's TLS
// fingerprint. Supports HTTP/2 and HTTP/1.1 based on ALPN negotiation.
func NewChromeTransport(timeout time.Duration) http.RoundTripper {
	dialer := &net.Dialer{Timeout: timeout}

	h2Transport := &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
	}

	h1Transport := &http.Transport{
		DialContext: dialer.DialContext,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialChromeTLS(ctx, dialer, network, addr)
		},
		ForceAttemptHTTP2: false,
	}

	return &chromeTransport{
		h2: h2Transport,
		h1: h1Transport,
	}
}

type chromeTransport struct {
	h2 *http2.Transport
	h1 *http.Transport
}

// RoundTrip tries HTTP/2 first and falls back to HTTP/1.1.
// Requests with a body are not retried on h1 once h2 may have consumed it.
func (t *chromeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.h1.RoundTrip(req)
	}

	resp, err := t.h2.RoundTrip(req)
	if err == nil {
		return resp, nil
	}

	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			return nil, err
		}
		body, bodyErr := req.GetBody()
		if bodyErr != nil {
			return nil, err
		}
		req = req.Clone(req.Context())
		req.Body = body
	}
	return t.h1.RoundTrip(req)
}

func dialChromeTLS(ctx context.Context, dialer *net.Dialer, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	tlsConn := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake: %w", err)
	}

	return tlsConn, nil
}

// Instrument wraps rt so every round trip is observed in the upstream duration histogram.
func Instrument(service string, rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	if service == "" {
		service = "upstream"
	}
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := rt.RoundTrip(req)
		status := 0
		if err == nil {
			status = resp.StatusCode
		}
		metrics.ObserveUpstream(service, req.Method, status, time.Since(start))
		return resp, err
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }
