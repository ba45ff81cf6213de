// Package transport implements a browser-faithful HTTP/1.1 transport.
//
// TLS connections present a real browser ClientHello via uTLS, request
// headers are written to the wire in browser order, and response bodies are
// transparently decompressed for the full browser Accept-Encoding set
// (gzip, deflate, br, zstd). Connections are pooled per host with
// keep-alive and idle reaping.
//
// Plain http:// targets are supported without TLS, which keeps the
// transport testable against local servers.
package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"

	"github.com/quailbyte/cleverbot-go/dns"
	"github.com/quailbyte/cleverbot-go/fingerprint"
)

// Request represents an HTTP request
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

// Response represents an HTTP response.
// Header keys are lowercased; values preserve duplicates (set-cookie).
type Response struct {
	StatusCode int
	Headers    map[string][]string
	Body       []byte
	FinalURL   string
}

// GetHeader returns the first value for the given header key
func (r *Response) GetHeader(key string) string {
	if values := r.Headers[strings.ToLower(key)]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// IsSuccess returns true if the status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport is an HTTP/1.1 transport with uTLS fingerprinting and
// per-host connection pooling
type Transport struct {
	preset   *fingerprint.Preset
	dnsCache *dns.Cache

	idleConns   map[string][]*conn
	idleConnsMu sync.Mutex

	sessionCache utls.ClientSessionCache

	maxIdleConnsPerHost int
	maxIdleTime         time.Duration
	connectTimeout      time.Duration
	insecureSkipVerify  bool

	stopCleanup chan struct{}
	closed      bool
	closedMu    sync.RWMutex
}

// conn is a persistent HTTP/1.1 connection
type conn struct {
	host       string
	port       string
	netConn    net.Conn
	tlsConn    *utls.UConn
	br         *bufio.Reader
	bw         *bufio.Writer
	createdAt  time.Time
	lastUsedAt time.Time
	useCount   int64
	mu         sync.Mutex
	closed     bool
}

// New creates a transport presenting the given fingerprint preset
func New(preset *fingerprint.Preset, dnsCache *dns.Cache) *Transport {
	t := &Transport{
		preset:              preset,
		dnsCache:            dnsCache,
		idleConns:           make(map[string][]*conn),
		sessionCache:        utls.NewLRUClientSessionCache(16),
		maxIdleConnsPerHost: 2,
		maxIdleTime:         90 * time.Second,
		connectTimeout:      30 * time.Second,
		stopCleanup:         make(chan struct{}),
	}

	go t.cleanupLoop()

	return t
}

// SetInsecureSkipVerify sets whether to skip TLS certificate verification
func (t *Transport) SetInsecureSkipVerify(skip bool) {
	t.insecureSkipVerify = skip
}

// Do executes a request and returns the fully-read, decompressed response
func (t *Transport) Do(ctx context.Context, req *Request) (*Response, error) {
	t.closedMu.RLock()
	if t.closed {
		t.closedMu.RUnlock()
		return nil, wrapErr("roundtrip", "", "", ErrClosed)
	}
	t.closedMu.RUnlock()

	parsedURL, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	scheme := parsedURL.Scheme
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", scheme)
	}

	host := parsedURL.Hostname()
	port := parsedURL.Port()
	if port == "" {
		if scheme == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	key := scheme + "://" + net.JoinHostPort(host, port)

	// Reuse an idle connection when one is available; a failure on a
	// pooled connection falls through to a fresh dial.
	if c := t.getIdleConn(key); c != nil {
		resp, err := t.doRequest(ctx, c, req, parsedURL)
		if err == nil {
			t.putIdleConn(key, c)
			return resp, nil
		}
		c.close()
	}

	c, err := t.createConn(ctx, host, port, scheme)
	if err != nil {
		return nil, err
	}

	resp, err := t.doRequest(ctx, c, req, parsedURL)
	if err != nil {
		c.close()
		return nil, wrapErr("request", host, port, err)
	}

	t.putIdleConn(key, c)
	return resp, nil
}

// createConn dials a new connection, wrapping it with uTLS for https
func (t *Transport) createConn(ctx context.Context, host, port, scheme string) (*conn, error) {
	ip, err := t.dnsCache.ResolveOne(ctx, host)
	if err != nil {
		return nil, wrapErr("dns", host, port, err)
	}

	dialer := &net.Dialer{
		Timeout:   t.connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	rawConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip.String(), port))
	if err != nil {
		return nil, wrapErr("dial", host, port, err)
	}

	if tcpConn, ok := rawConn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
	}

	c := &conn{
		host:       host,
		port:       port,
		netConn:    rawConn,
		createdAt:  time.Now(),
		lastUsedAt: time.Now(),
	}

	if scheme == "https" {
		tlsConfig := &utls.Config{
			ServerName:         host,
			InsecureSkipVerify: t.insecureSkipVerify,
			MinVersion:         tls.VersionTLS12,
			MaxVersion:         tls.VersionTLS13,
			ClientSessionCache: t.sessionCache,
			NextProtos:         []string{"http/1.1"},
		}

		tlsConn := utls.UClient(rawConn, tlsConfig, t.preset.ClientHelloID)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			rawConn.Close()
			return nil, wrapErr("tls_handshake", host, port, err)
		}

		c.tlsConn = tlsConn
		c.netConn = tlsConn
	}

	c.br = bufio.NewReaderSize(c.netConn, 4096)
	c.bw = bufio.NewWriterSize(c.netConn, 4096)

	return c, nil
}

// doRequest performs one request/response cycle on the connection
func (t *Transport) doRequest(ctx context.Context, c *conn, req *Request, parsedURL *url.URL) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("connection closed")
	}

	c.lastUsedAt = time.Now()
	c.useCount++

	if deadline, ok := ctx.Deadline(); ok {
		c.netConn.SetDeadline(deadline)
		defer c.netConn.SetDeadline(time.Time{})
	}

	if err := writeRequest(c.bw, req, parsedURL); err != nil {
		return nil, err
	}

	resp, err := http.ReadResponse(c.br, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	body, err := decompress(rawBody, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("decompress response: %w", err)
	}

	headers := make(map[string][]string, len(resp.Header))
	for key, values := range resp.Header {
		headers[strings.ToLower(key)] = append([]string(nil), values...)
	}

	if resp.Header.Get("Connection") == "close" {
		// Let the pool drop it on the next reuse check
		c.lastUsedAt = time.Time{}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       body,
		FinalURL:   req.URL,
	}, nil
}

// headerOrder is the browser-like wire order for request headers.
// Host is always written first, before this list.
var headerOrder = []string{
	"Connection",
	"Cache-Control",
	"Pragma",
	"User-Agent",
	"Accept",
	"Accept-Encoding",
	"Accept-Language",
	"Cookie",
	"Referer",
	"Origin",
	"Content-Type",
	"Content-Length",
}

// writeRequest writes the request line, browser-ordered headers, and body
func writeRequest(bw *bufio.Writer, req *Request, parsedURL *url.URL) error {
	method := req.Method
	if method == "" {
		method = "GET"
	}

	uri := parsedURL.RequestURI()
	if uri == "" {
		uri = "/"
	}
	fmt.Fprintf(bw, "%s %s HTTP/1.1\r\n", method, uri)
	fmt.Fprintf(bw, "Host: %s\r\n", parsedURL.Host)

	headers := make(map[string]string, len(req.Headers)+2)
	for key, value := range req.Headers {
		headers[http.CanonicalHeaderKey(key)] = value
	}
	if _, ok := headers["Connection"]; !ok {
		headers["Connection"] = "keep-alive"
	}
	if len(req.Body) > 0 || method == "POST" || method == "PUT" {
		headers["Content-Length"] = fmt.Sprintf("%d", len(req.Body))
	}

	written := make(map[string]bool, len(headers))
	for _, key := range headerOrder {
		if value, ok := headers[key]; ok {
			fmt.Fprintf(bw, "%s: %s\r\n", key, value)
			written[key] = true
		}
	}
	for key, value := range headers {
		if written[key] || strings.EqualFold(key, "Host") {
			continue
		}
		fmt.Fprintf(bw, "%s: %s\r\n", key, value)
	}

	bw.WriteString("\r\n")
	if len(req.Body) > 0 {
		bw.Write(req.Body)
	}
	return bw.Flush()
}

// getIdleConn retrieves a usable idle connection from the pool
func (t *Transport) getIdleConn(key string) *conn {
	t.idleConnsMu.Lock()
	defer t.idleConnsMu.Unlock()

	conns := t.idleConns[key]
	for len(conns) > 0 {
		c := conns[len(conns)-1]
		conns = conns[:len(conns)-1]
		t.idleConns[key] = conns

		if time.Since(c.lastUsedAt) > t.maxIdleTime {
			c.close()
			continue
		}
		return c
	}
	return nil
}

// putIdleConn returns a connection to the pool
func (t *Transport) putIdleConn(key string, c *conn) {
	t.closedMu.RLock()
	closed := t.closed
	t.closedMu.RUnlock()
	if closed || c.lastUsedAt.IsZero() {
		c.close()
		return
	}

	t.idleConnsMu.Lock()
	defer t.idleConnsMu.Unlock()

	conns := t.idleConns[key]
	if len(conns) >= t.maxIdleConnsPerHost {
		old := conns[0]
		conns = conns[1:]
		go old.close()
	}

	c.lastUsedAt = time.Now()
	t.idleConns[key] = append(conns, c)
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	if c.tlsConn != nil {
		c.tlsConn.Close()
	} else if c.netConn != nil {
		c.netConn.Close()
	}
}

// cleanupLoop periodically drops stale idle connections
func (t *Transport) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCleanup:
			return
		case <-ticker.C:
			t.cleanup()
		}
	}
}

func (t *Transport) cleanup() {
	t.idleConnsMu.Lock()
	defer t.idleConnsMu.Unlock()

	for key, conns := range t.idleConns {
		var active []*conn
		for _, c := range conns {
			if time.Since(c.lastUsedAt) > t.maxIdleTime {
				go c.close()
			} else {
				active = append(active, c)
			}
		}
		if len(active) > 0 {
			t.idleConns[key] = active
		} else {
			delete(t.idleConns, key)
		}
	}
}

// Close shuts down the transport and all pooled connections
func (t *Transport) Close() {
	t.closedMu.Lock()
	if t.closed {
		t.closedMu.Unlock()
		return
	}
	t.closed = true
	t.closedMu.Unlock()

	close(t.stopCleanup)

	t.idleConnsMu.Lock()
	for _, conns := range t.idleConns {
		for _, c := range conns {
			go c.close()
		}
	}
	t.idleConns = nil
	t.idleConnsMu.Unlock()
}
