package web2rpc

import (
	"github.com/rs/zerolog"
)

// Callbacks defines a set of functions a [Pipeline] calls on specific events, for
// diagnostics such as logging or metrics. Nil callbacks are skipped.
//
// Callbacks are assigned before the pipeline is used and must be safe for concurrent
// use, since calls may complete concurrently.
//
// Example:
//
//	p := web2rpc.NewPipeline(transport)
//	p.Callbacks.OnUnknownField = web2rpc.LogUnknownFields(logger)
//	p.Callbacks.OnRemoteFailure = func(req *web2rpc.Request, err *web2rpc.RemoteFailure) {
//		metrics.Inc(req.URL, err.StatusCode)
//	}
type Callbacks struct {
	// OnUnknownField is installed on every [Cursor] the pipeline creates and receives
	// fields skipped with [Cursor.SkipUnknown]. By default unknown fields are skipped silently.
	OnUnknownField UnknownFieldFunc

	// OnRemoteFailure is called when a response fails its status check.
	OnRemoteFailure func(req *Request, err *RemoteFailure)

	// OnDecodeError is called when a response passed its status check but could not be decoded.
	// The body is only valid for the duration of the call.
	OnDecodeError func(req *Request, body []byte, err error)
}

func (c *Callbacks) runOnRemoteFailure(req *Request, err *RemoteFailure) {
	if c.OnRemoteFailure != nil {
		c.OnRemoteFailure(req, err)
	}
}

func (c *Callbacks) runOnDecodeError(req *Request, body []byte, err error) {
	if c.OnDecodeError != nil {
		c.OnDecodeError(req, body, err)
	}
}

// LogUnknownFields returns an [UnknownFieldFunc] that logs each unknown field at debug level.
func LogUnknownFields(logger zerolog.Logger) UnknownFieldFunc {
	return func(field []byte, kind Kind, offset int) {
		logger.Debug().
			Bytes("field", field).
			Stringer("kind", kind).
			Int("offset", offset).
			Msg("unknown_field")
	}
}
