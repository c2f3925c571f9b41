package web2rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// DefaultMaxBodyBytes is the default limit on a decompressed response body.
const DefaultMaxBodyBytes = 32 << 20

var (
	ErrBodyTooLarge        = errors.New("web2rpc: response body too large")
	ErrUnsupportedEncoding = errors.New("web2rpc: unsupported content encoding")
)

// HTTPTransportConfig holds configuration parameters for [NewHTTPTransport].
type HTTPTransportConfig struct {
	// Client performs the requests. Defaults to a new [http.Client].
	Client *http.Client

	// Header is added to every request. Request headers take precedence.
	Header http.Header

	// UserAgent, if set, is sent as the User-Agent header.
	UserAgent string

	// MaxBodyBytes limits the decompressed size of a response body.
	// Defaults to [DefaultMaxBodyBytes] if zero or negative.
	MaxBodyBytes int64

	// BufferPoolSize is the number of body buffers kept for reuse.
	// If zero or negative, it defaults to `min(runtime.NumCPU(), runtime.GOMAXPROCS(-1)) * 2`.
	BufferPoolSize int32

	// DisableCompression stops the transport from asking for gzip or zstd encoded responses.
	DisableCompression bool
}

// HTTPTransport is a [Transport] over an [http.Client].
//
// Response bodies are read fully into pooled buffers. HTTPTransport is safe for
// concurrent use.
type HTTPTransport struct {
	client    *http.Client
	pool      *bufferPool
	header    http.Header
	userAgent string
	maxBody   int64
	compress  bool
}

// NewHTTPTransport builds a new [*HTTPTransport].
func NewHTTPTransport(config HTTPTransportConfig) (*HTTPTransport, error) {
	if config.Client == nil {
		config.Client = new(http.Client)
	}

	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}

	pool, err := newBufferPool(config.BufferPoolSize)
	if err != nil {
		return nil, err
	}

	return &HTTPTransport{
		client:    config.Client,
		pool:      pool,
		header:    config.Header.Clone(),
		userAgent: config.UserAgent,
		maxBody:   config.MaxBodyBytes,
		compress:  !config.DisableCompression,
	}, nil
}

// Close closes idle connections held by the underlying client and the buffer pool.
//
// Close waits for every outstanding [Response] to be released.
func (h *HTTPTransport) Close() error {
	h.client.CloseIdleConnections()
	h.pool.close()

	return nil
}

// Do implements [Transport].
func (h *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	hreq, err := http.NewRequestWithContext(ctx, req.method(), req.URL, body)
	if err != nil {
		return nil, err
	}

	for k, v := range h.header {
		hreq.Header[k] = v
	}

	for k, v := range req.Header {
		hreq.Header[k] = v
	}

	if req.Body != nil && hreq.Header.Get("Content-Type") == "" {
		hreq.Header.Set("Content-Type", "application/json")
	}

	if hreq.Header.Get("Accept") == "" {
		hreq.Header.Set("Accept", "application/json")
	}

	if h.userAgent != "" {
		hreq.Header.Set("User-Agent", h.userAgent)
	}

	if h.compress {
		// Setting this explicitly disables net/http's transparent gzip handling.
		hreq.Header.Set("Accept-Encoding", "gzip, zstd")
	}

	resp, err := h.client.Do(hreq)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	buf, err := h.readBody(resp)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       buf.buf.Bytes(),
		release:    func() { h.pool.release(buf) },
	}, nil
}

func (h *HTTPTransport) readBody(resp *http.Response) (*pooledBuffer, error) {
	var r io.Reader = resp.Body

	switch enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc {
	case "", "identity":
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("http: gzip body: %w", err)
		}

		defer zr.Close()

		r = zr
	case "zstd":
		zr, err := zstd.NewReader(resp.Body, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("http: zstd body: %w", err)
		}

		defer zr.Close()

		r = zr
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, enc)
	}

	buf := h.pool.acquire()

	n, err := buf.buf.ReadFrom(io.LimitReader(r, h.maxBody+1))

	switch {
	case err != nil:
		h.pool.release(buf)
		return nil, fmt.Errorf("http: failed to read response body: %w", err)
	case n > h.maxBody:
		h.pool.release(buf)
		return nil, fmt.Errorf("%w (limit %d bytes)", ErrBodyTooLarge, h.maxBody)
	}

	return buf, nil
}
