package web2rpc

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransport(t *testing.T, config HTTPTransportConfig) *HTTPTransport {
	t.Helper()

	h, err := NewHTTPTransport(config)
	require.NoError(t, err)

	t.Cleanup(func() { _ = h.Close() })

	return h
}

func TestHTTPTransportRequest(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "web2rpc-test", r.Header.Get("User-Agent"))
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "override", r.Header.Get("X-Chain"))
		assert.Equal(t, `{"q":1}`, string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"x":1}`))
	}))
	defer server.Close()

	h := newTestTransport(t, HTTPTransportConfig{
		UserAgent: "web2rpc-test",
		Header:    http.Header{"X-Api-Key": {"secret"}, "X-Chain": {"solana"}},
	})

	req := NewRequest("", server.URL, []byte(`{"q":1}`))
	req.Header.Set("X-Chain", "override")

	resp, err := h.Do(t.Context(), req)
	require.NoError(t, err)

	defer resp.Release()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"x":1}`, string(resp.Body))
}

func TestHTTPTransportCompression(t *testing.T) {
	t.Parallel()

	payload := `{"data":{"x":` + strings.Repeat("1", 10) + `}}`

	//nolint:govet //Do not reorder struct
	tests := []struct {
		name     string
		encoding string
		encode   func(t *testing.T, p string) []byte
	}{
		{"Identity", "", func(_ *testing.T, p string) []byte { return []byte(p) }},
		{"Gzip", "gzip", func(t *testing.T, p string) []byte {
			var buf bytes.Buffer

			zw := gzip.NewWriter(&buf)
			_, err := zw.Write([]byte(p))
			require.NoError(t, err)
			require.NoError(t, zw.Close())

			return buf.Bytes()
		}},
		{"Zstd", "zstd", func(t *testing.T, p string) []byte {
			enc, err := zstd.NewWriter(nil)
			require.NoError(t, err)

			defer enc.Close()

			return enc.EncodeAll([]byte(p), nil)
		}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			body := test.encode(t, payload)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Contains(t, r.Header.Get("Accept-Encoding"), "zstd")

				if test.encoding != "" {
					w.Header().Set("Content-Encoding", test.encoding)
				}

				_, _ = w.Write(body)
			}))
			defer server.Close()

			h := newTestTransport(t, HTTPTransportConfig{})

			resp, err := h.Do(t.Context(), NewRequest(http.MethodGet, server.URL, nil))
			require.NoError(t, err)

			defer resp.Release()

			assert.Equal(t, payload, string(resp.Body))
		})
	}
}

func TestHTTPTransportUnsupportedEncoding(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write([]byte("xx"))
	}))
	defer server.Close()

	h := newTestTransport(t, HTTPTransportConfig{})

	_, err := h.Do(t.Context(), NewRequest(http.MethodGet, server.URL, nil))
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestHTTPTransportBodyLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 65)))
	}))
	defer server.Close()

	h := newTestTransport(t, HTTPTransportConfig{MaxBodyBytes: 64})

	_, err := h.Do(t.Context(), NewRequest(http.MethodGet, server.URL, nil))
	require.ErrorIs(t, err, ErrBodyTooLarge)

	p := NewPipeline(h)
	_, err = Call(t.Context(), p, NewRequest(http.MethodGet, server.URL, nil), Body(decodeTestPoint))
	assert.ErrorIs(t, err, ErrTransport)
	assert.True(t, Retryable(err))
}

func TestHTTPTransportPipeline(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		ids []string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get(RequestIDHeader))
		mu.Unlock()

		if r.URL.Path == "/limited" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		_, _ = w.Write([]byte(`{"data":{"x":7}}`))
	}))
	defer server.Close()

	h := newTestTransport(t, HTTPTransportConfig{BufferPoolSize: 1})
	p := NewPipeline(h)

	for range 3 {
		got, err := Call(t.Context(), p, NewRequest(http.MethodGet, server.URL+"/ok", nil), Body(Envelope("data", decodeTestPoint)))
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.X)
	}

	_, err := Call(t.Context(), p, NewRequest(http.MethodGet, server.URL+"/limited", nil), Body(decodeTestPoint))

	var rf *RemoteFailure

	require.ErrorAs(t, err, &rf)
	assert.Equal(t, http.StatusTooManyRequests, rf.StatusCode)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, ids, 4)

	for _, id := range ids {
		assert.Len(t, id, 36)
	}
}

func TestBufferPool(t *testing.T) {
	t.Parallel()

	pool, err := newBufferPool(1)
	require.NoError(t, err)

	// Never blocks, even past the pool size.
	bufs := []*pooledBuffer{pool.acquire(), pool.acquire(), pool.acquire()}
	for _, b := range bufs {
		require.NotNil(t, b.buf)
		b.buf.WriteString("abc")
	}

	for _, b := range bufs {
		pool.release(b)
		pool.release(b)
	}

	reused := pool.acquire()
	assert.Equal(t, 0, reused.buf.Len())
	reused.buf.Grow(DefaultMaxRetainedBuffer + 1)
	pool.release(reused)

	pool.close()

	closed := pool.acquire()
	assert.Nil(t, closed.res)
	assert.NotNil(t, closed.buf)
}
