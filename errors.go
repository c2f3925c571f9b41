package web2rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrDecode            = errors.New("web2rpc: decode error")
	ErrMalformedResponse = errors.New("web2rpc: malformed response")
	ErrRemoteFailure     = errors.New("web2rpc: remote failure")
	ErrTimeout           = errors.New("web2rpc: request timed out")
	ErrHostResolution    = errors.New("web2rpc: host resolution failed")
	ErrTransport         = errors.New("web2rpc: transport failure")
)

// DecodeError reports wire data that could not be decoded: truncated input,
// invalid escapes or UTF-8, or a value of the wrong kind.
//
// Err is set instead of Expected when a nested decode function failed with an error of
// its own, see [Cursor.Abort].
type DecodeError struct {
	Err      error
	Expected string // What the cursor was looking for.
	Found    string // A short description of what it found instead.
	Offset   int    // Byte offset into the decoded buffer.
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("web2rpc: decode error at offset %d: %v", e.Offset, e.Err)
	}

	return fmt.Sprintf("web2rpc: decode error at offset %d: expected %s, found %s", e.Offset, e.Expected, e.Found)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is [ErrDecode].
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// MalformedResponseError is returned by the [Pipeline] when a response passed its
// status check but its body could not be decoded. Retrying will not help.
type MalformedResponseError struct {
	Err        error
	StatusCode int
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("web2rpc: malformed response (status %d): %v", e.StatusCode, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is [ErrMalformedResponse].
func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedResponse
}

// RemoteFailure is returned when the remote side answered with a non-success
// status, or with a JSON-RPC error object.
//
// Code and Message are only populated when a JSON-RPC error object was found,
// either in a successful envelope or in the payload of a failed HTTP response.
// The success decoder is never invoked for a RemoteFailure.
type RemoteFailure struct {
	Status     string
	Message    string
	Payload    []byte // Copy of the response body.
	Data       []byte // Raw "data" member of the JSON-RPC error, if any.
	StatusCode int
	Code       int64
	RPC        bool // True when Code/Message came from a JSON-RPC error object.
}

func (e *RemoteFailure) Error() string {
	if e.RPC {
		return fmt.Sprintf("web2rpc: remote failure (status %d): rpc error %d: %s", e.StatusCode, e.Code, e.Message)
	}

	return fmt.Sprintf("web2rpc: remote failure (status %s)", e.Status)
}

// Is reports whether target is [ErrRemoteFailure].
func (e *RemoteFailure) Is(target error) bool {
	return target == ErrRemoteFailure
}

// TimeoutError is returned when a request exceeded its deadline before the
// response body was received.
type TimeoutError struct {
	Err   error
	After time.Duration
}

func (e *TimeoutError) Error() string {
	if e.After > 0 {
		return fmt.Sprintf("web2rpc: request timed out after %s", e.After)
	}

	return "web2rpc: request timed out"
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// Is reports whether target is [ErrTimeout] or [context.DeadlineExceeded].
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout || target == context.DeadlineExceeded
}

// HostResolutionError is returned when a client's configured host could not be
// resolved while the client was being constructed.
type HostResolutionError struct {
	Err  error
	Host string
}

func (e *HostResolutionError) Error() string {
	return fmt.Sprintf("web2rpc: failed to resolve host %q: %v", e.Host, e.Err)
}

func (e *HostResolutionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is [ErrHostResolution].
func (e *HostResolutionError) Is(target error) bool {
	return target == ErrHostResolution
}

// TransportError wraps failures reported by a [Transport], such as connection
// resets, DNS failures or oversized bodies.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("web2rpc: transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is [ErrTransport].
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Retryable reports whether a failed call could plausibly succeed if issued
// again. Transport failures, timeouts, HTTP 429 and 5xx responses are
// retryable. Malformed responses and other remote failures are not.
//
// The package itself never retries, callers compose retries around a [Future].
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var rf *RemoteFailure

	switch {
	case errors.Is(err, ErrMalformedResponse), errors.Is(err, ErrDecode):
		return false
	case errors.As(err, &rf):
		return rf.StatusCode == http.StatusTooManyRequests || rf.StatusCode >= http.StatusInternalServerError
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrTransport):
		return true
	}

	return false
}
