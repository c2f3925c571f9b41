package web2rpc

import (
	"fmt"
)

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Message string
	Data    []byte // Raw JSON, nil when absent.
	Code    int64
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcErrorBuilder struct {
	message string
	data    []byte
	code    int64
}

func (b *rpcErrorBuilder) Build() RPCError {
	return RPCError{Message: b.message, Data: b.data, Code: b.code}
}

func rpcErrorField(b *rpcErrorBuilder, field []byte, c *Cursor) Action {
	switch {
	case FieldEquals("code", field):
		b.code = c.ReadInt64()
	case FieldEquals("message", field):
		b.message = c.ReadString()
	case FieldEquals("data", field):
		if !c.ReadNull() {
			b.data = c.ReadRaw()
		}
	default:
		c.SkipUnknown(field)
	}

	return Continue
}

// DecodeRPCError decodes a JSON-RPC error object.
func DecodeRPCError(c *Cursor) (RPCError, error) {
	return DecodeRecord[RPCError](c, rpcErrorField)
}

func rpcFailure(resp *Response, e RPCError) *RemoteFailure {
	return &RemoteFailure{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Payload:    append([]byte(nil), resp.Body...),
		Data:       e.Data,
		Code:       e.Code,
		Message:    e.Message,
		RPC:        true,
	}
}

// JSONRPCResult returns a [Decoder] for a JSON-RPC response envelope.
//
// A non-null "error" member resolves the call with a [*RemoteFailure] and fn is never
// called, regardless of where the member appears. Otherwise fn decodes the "result" member
// and the cursor is left just past the envelope.
func JSONRPCResult[T any](fn func(c *Cursor) (T, error)) Decoder[T] {
	return func(c *Cursor, resp *Response) (T, error) {
		var (
			zero   T
			result Mark
			found  bool
		)

		for field := c.ReadObjectField(); field != nil; field = c.ReadObjectField() {
			switch {
			case FieldEquals("result", field):
				result, found = c.Mark(), true
				c.Skip()
			case FieldEquals("error", field):
				if c.ReadNull() {
					continue
				}

				e, err := DecodeRPCError(c)
				if err != nil {
					return zero, err
				}

				return zero, rpcFailure(resp, e)
			default:
				c.Skip()
			}
		}

		if c.Err() != nil {
			return zero, c.Err()
		}

		if !found {
			return zero, c.Missing("result")
		}

		end := c.Mark()
		c.Reset(result)

		v, err := fn(c)
		if err != nil {
			return zero, err
		}

		c.Reset(end)

		return v, nil
	}
}

// RPCContext is the context object returned alongside values by Solana style
// JSON-RPC methods.
type RPCContext struct {
	APIVersion string
	Slot       uint64
}

func rpcContextField(r *RPCContext, field []byte, c *Cursor) Action {
	switch {
	case FieldEquals("slot", field):
		r.Slot = c.ReadUint64()
	case FieldEquals("apiVersion", field):
		r.APIVersion = c.ReadString()
	default:
		c.SkipUnknown(field)
	}

	return Continue
}

// JSONRPCValue is [JSONRPCResult] for results shaped as {"context": {...}, "value": ...}.
// fn decodes the "value" member and receives the decoded context.
func JSONRPCValue[T any](fn func(c *Cursor, rpc RPCContext) (T, error)) Decoder[T] {
	return JSONRPCResult(func(c *Cursor) (T, error) {
		var (
			zero  T
			rpc   RPCContext
			value Mark
			found bool
		)

		for field := c.ReadObjectField(); field != nil; field = c.ReadObjectField() {
			switch {
			case FieldEquals("value", field):
				value, found = c.Mark(), true
				c.Skip()
			case FieldEquals("context", field):
				if err := DecodeObject(c, &rpc, rpcContextField); err != nil {
					return zero, err
				}
			default:
				c.SkipUnknown(field)
			}
		}

		if c.Err() != nil {
			return zero, c.Err()
		}

		if !found {
			return zero, c.Missing("value")
		}

		end := c.Mark()
		c.Reset(value)

		v, err := fn(c, rpc)
		if err != nil {
			return zero, err
		}

		c.Reset(end)

		return v, nil
	})
}
