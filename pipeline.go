package web2rpc

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTimeout is the request timeout used by a [Pipeline] unless changed with
// [Pipeline.SetDefaultTimeout].
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries the correlation id the pipeline assigns to each request.
const RequestIDHeader = "X-Request-Id"

// Decoder converts a response that passed its status check into a value.
// The response is available as context, for headers or the raw body.
type Decoder[T any] func(c *Cursor, resp *Response) (T, error)

// Body adapts a decode function that only needs the body to a [Decoder].
func Body[T any](fn func(c *Cursor) (T, error)) Decoder[T] {
	return func(c *Cursor, _ *Response) (T, error) {
		return fn(c)
	}
}

// StatusCheck inspects a response before it is decoded. A non-nil error fails the
// call without invoking the [Decoder].
type StatusCheck func(resp *Response) error

// CheckHTTPStatus accepts 2xx responses. Anything else fails with a [*RemoteFailure]
// holding a copy of the body and, when the body is a JSON-RPC error response, its
// error code and message.
func CheckHTTPStatus(resp *Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	rf := &RemoteFailure{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Payload:    bytes.Clone(resp.Body),
	}

	if HintKind(resp.Body) == KindObject {
		c := NewCursor(resp.Body)
		if c.SkipUntil("error") && c.NextKind() == KindObject {
			if e, err := DecodeRPCError(c); err == nil {
				rf.Code, rf.Message, rf.Data, rf.RPC = e.Code, e.Message, e.Data, true
			}
		}
	}

	return rf
}

// Pipeline sends requests over a [Transport] and decodes their responses.
//
// Each call makes exactly one attempt. A Pipeline is safe for concurrent use once
// configured; its setters and [Pipeline.Callbacks] must not be changed while calls are in flight.
type Pipeline struct {
	transport Transport
	check     StatusCheck
	logger    zerolog.Logger
	Callbacks Callbacks
	timeout   time.Duration
}

// NewPipeline builds a new [*Pipeline] over t using [CheckHTTPStatus], [DefaultTimeout]
// and a disabled logger.
func NewPipeline(t Transport) *Pipeline {
	return &Pipeline{transport: t, check: CheckHTTPStatus, logger: zerolog.Nop(), timeout: DefaultTimeout}
}

// SetDefaultTimeout sets the timeout for requests that do not carry their own.
// Zero or negative disables it.
func (p *Pipeline) SetDefaultTimeout(d time.Duration) {
	p.timeout = d
}

// SetLogger sets the logger used to record one event per completed request.
func (p *Pipeline) SetLogger(l zerolog.Logger) {
	p.logger = l
}

// SetStatusCheck replaces [CheckHTTPStatus]. A nil check accepts every response.
func (p *Pipeline) SetStatusCheck(check StatusCheck) {
	p.check = check
}

const (
	statePending int32 = iota
	stateDecoding
	stateAbandoned
)

// Send starts req and returns a [*Future] for the decoded result.
//
// The request is bounded by its own timeout or the pipeline default. If the deadline
// passes before the response has been received the future resolves with a [*TimeoutError];
// if ctx is cancelled it resolves with the context's error. Once the body has been handed
// to dec, decoding runs to completion.
//
// Send assigns the call a [RequestIDHeader] unless req carries one. req itself is
// not modified and may be sent again or concurrently.
func Send[T any](ctx context.Context, p *Pipeline, req *Request, dec Decoder[T]) *Future[T] {
	timeout := p.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	req = req.withRequestID()

	f := newFuture[T](cancel)

	var state atomic.Int32

	go func() {
		defer cancel()

		start := time.Now()
		resp, err := p.transport.Do(ctx, req)

		if !state.CompareAndSwap(statePending, stateDecoding) {
			if resp != nil {
				resp.Release()
			}

			return
		}

		if err != nil {
			err = p.transportError(ctx, err, timeout)
			p.logCompletion(req, nil, start, err)
			f.resolve(*new(T), err)

			return
		}

		v, err := complete(p, req, resp, dec)
		p.logCompletion(req, resp, start, err)
		resp.Release()
		f.resolve(v, err)
	}()

	go func() {
		select {
		case <-ctx.Done():
			if state.CompareAndSwap(statePending, stateAbandoned) {
				err := contextError(ctx, timeout)
				p.logger.Warn().
					Str("method", req.method()).
					Str("url", req.URL).
					Str("request_id", req.Header.Get(RequestIDHeader)).
					Err(err).
					Msg("http_request_abandoned")
				f.resolve(*new(T), err)
			}
		case <-f.done:
		}
	}()

	return f
}

// Call is [Send] followed by [Future.Get].
func Call[T any](ctx context.Context, p *Pipeline, req *Request, dec Decoder[T]) (T, error) {
	return Send(ctx, p, req, dec).Get()
}

func complete[T any](p *Pipeline, req *Request, resp *Response, dec Decoder[T]) (T, error) {
	var zero T

	if p.check != nil {
		if err := p.check(resp); err != nil {
			var rf *RemoteFailure
			if errors.As(err, &rf) {
				p.Callbacks.runOnRemoteFailure(req, rf)
			}

			return zero, err
		}
	}

	c := NewCursor(resp.Body)
	c.OnUnknownField(p.Callbacks.OnUnknownField)

	v, err := dec(c, resp)
	if err == nil {
		err = c.Finish()
	}

	if err != nil {
		var rf *RemoteFailure
		if errors.As(err, &rf) {
			p.Callbacks.runOnRemoteFailure(req, rf)
			return zero, err
		}

		p.Callbacks.runOnDecodeError(req, resp.Body, err)

		return zero, &MalformedResponseError{StatusCode: resp.StatusCode, Err: err}
	}

	return v, nil
}

// withRequestID returns a shallow copy of r with its own header set holding a request id.
func (r *Request) withRequestID() *Request {
	out := *r
	out.Header = r.Header.Clone()

	if out.Header == nil {
		out.Header = make(http.Header)
	}

	if out.Header.Get(RequestIDHeader) == "" {
		out.Header.Set(RequestIDHeader, uuid.NewString())
	}

	return &out
}

func (p *Pipeline) transportError(ctx context.Context, err error, timeout time.Duration) error {
	if ctx.Err() != nil {
		return contextError(ctx, timeout)
	}

	return &TransportError{Err: err}
}

func contextError(ctx context.Context, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Err: ctx.Err(), After: timeout}
	}

	return ctx.Err()
}

func (p *Pipeline) logCompletion(req *Request, resp *Response, start time.Time, err error) {
	var rf *RemoteFailure

	event := p.logger.Debug()

	switch {
	case err == nil:
	case errors.As(err, &rf):
		event = p.logger.Warn()
	default:
		event = p.logger.Error()
	}

	event = event.
		Str("method", req.method()).
		Str("url", req.URL).
		Str("request_id", req.Header.Get(RequestIDHeader)).
		Dur("duration", time.Since(start))

	if resp != nil {
		event = event.Int("status", resp.StatusCode).Int("bytes", len(resp.Body))
	}

	event.Err(err).Msg("http_request")
}
