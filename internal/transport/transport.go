// Package transport provides a high-performance HTTP client factory, tuned
// for a single long-lived connection that issues many sequential queries
// and page fetches against one Databend warehouse endpoint.
package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"
)

// transportDefaults groups transport-layer knobs that are set once at
// construction time. Exposing them as a struct makes unit-testing easier and
// keeps New's signature small.
type transportDefaults struct {
	maxIdleConns        int
	maxIdleConnsPerHost int
	maxConnsPerHost     int
}

// defaultTransport holds the tuning values used when callers do not supply
// an explicit override. These numbers are sized for a client that pages
// through large result sets on a handful of concurrent connections, not for
// fan-out across thousands of hosts.
var defaultTransport = transportDefaults{
	maxIdleConns:        100,
	maxIdleConnsPerHost: 50,
	maxConnsPerHost:     100,
}

// Options configures the HTTP client returned by New.
type Options struct {
	// Timeout is the end-to-end request timeout passed to http.Client.Timeout.
	// The pagination protocol layers its own wait_time_secs on top of this, so
	// Timeout should be generous; 0 disables it.
	Timeout time.Duration

	// TLSCAFile, if non-empty, is a path to a PEM file of root CAs to trust
	// in place of the system pool. Corresponds to a DSN's tls_ca_file
	// option.
	TLSCAFile string

	// InsecureSkipVerify disables TLS certificate verification. It is off by
	// default and apiclient.New never sets it; a DSN's sslmode=disable
	// switches the connection to plain http instead.
	InsecureSkipVerify bool
}

// New constructs an *http.Client that is safe for concurrent use by every
// goroutine sharing one session (queries, kill, presign, and page fetches
// all multiplex over the same pooled transport).
//
// Design decisions:
//
//  1. Custom http.Transport — a dedicated pool per connection avoids
//     contention with any other driver instance in the same process.
//
//  2. Keep-alives stay enabled so sequential page fetches reuse the TCP
//     connection instead of paying a new handshake per page.
//
//  3. IdleConnTimeout is held short (1s): a paused REPL session shouldn't
//     keep sockets open against a server that may recycle them anyway.
//
//  4. ForceAttemptHTTP2 lets the stdlib transport negotiate HTTP/2 without
//     an explicit golang.org/x/net/http2 import.
//
//  5. TLS root CAs are loaded from Options.TLSCAFile when set; otherwise the
//     system pool is used.
func New(opts Options) (*http.Client, error) {
	transport, err := buildTransport(opts)
	if err != nil {
		return nil, err
	}

	return &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		// CheckRedirect is intentionally left nil so the client follows
		// redirects automatically (up to the default limit of 10).
	}, nil
}

// buildTransport creates an *http.Transport with carefully tuned defaults.
func buildTransport(opts Options) (*http.Transport, error) {
	t := &http.Transport{
		DisableKeepAlives: false,

		MaxIdleConns:        defaultTransport.maxIdleConns,
		MaxIdleConnsPerHost: defaultTransport.maxIdleConnsPerHost,
		MaxConnsPerHost:     defaultTransport.maxConnsPerHost,

		// Evict idle connections quickly; a REPL session that's been sitting
		// at the prompt shouldn't hold a socket the server may have already
		// reclaimed.
		IdleConnTimeout: 1 * time.Second,

		TLSHandshakeTimeout: 10 * time.Second,

		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	if opts.TLSCAFile != "" || opts.InsecureSkipVerify {
		tlsCfg := &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify} // #nosec G402 – only on when a caller sets Options.InsecureSkipVerify
		if opts.TLSCAFile != "" {
			pool, err := loadCAPool(opts.TLSCAFile)
			if err != nil {
				return nil, fmt.Errorf("transport: load CA file %q: %w", opts.TLSCAFile, err)
			}
			tlsCfg.RootCAs = pool
		}
		t.TLSClientConfig = tlsCfg
	}

	return t, nil
}

// loadCAPool reads a PEM file of root certificates into a fresh cert pool.
func loadCAPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path) // #nosec G304 – path is caller-provided DSN option
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %q", path)
	}
	return pool, nil
}
