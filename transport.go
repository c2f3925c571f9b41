package web2rpc

import (
	"context"
	"net/http"
	"time"
)

// Request is a prepared request handed to a [Transport].
type Request struct {
	Header  http.Header
	Method  string // Defaults to GET, or POST when Body is set.
	URL     string
	Body    []byte
	Timeout time.Duration // Overrides the [Pipeline] default when positive.
}

// NewRequest builds a [*Request] with an empty header.
func NewRequest(method, url string, body []byte) *Request {
	return &Request{Method: method, URL: url, Body: body, Header: make(http.Header)}
}

func (r *Request) method() string {
	switch {
	case r.Method != "":
		return r.Method
	case r.Body != nil:
		return http.MethodPost
	}

	return http.MethodGet
}

// Response is a fully received response. Body may be backed by pooled memory and
// must not be retained after [Response.Release].
type Response struct {
	Header     http.Header
	release    func()
	Status     string
	Body       []byte
	StatusCode int
}

// NewResponse builds a [*Response] that owns body.
func NewResponse(statusCode int, body []byte) *Response {
	return &Response{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
		Header:     make(http.Header),
		Body:       body,
	}
}

// Release returns the body's memory to its owner. It is safe to call more than once.
func (r *Response) Release() {
	if r.release != nil {
		r.release()
		r.release = nil
	}

	r.Body = nil
}

// Transport performs exactly one attempt at a request and returns the complete
// response. It must honor ctx cancellation.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// TransportFunc adapts a function to a [Transport].
type TransportFunc func(ctx context.Context, req *Request) (*Response, error)

// Do implements [Transport].
func (f TransportFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}
