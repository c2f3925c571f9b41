package web2rpc

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

// ErrInvalidParamsType is returned when JSON-RPC params do not marshal to an array or object.
var ErrInvalidParamsType = errors.New("web2rpc: json-rpc params must be an array or object")

// RPCRequest is an outgoing JSON-RPC 2.0 request.
//
//nolint:govet //Field order matches the JSON-RPC wire examples
type RPCRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NewRPCRequest builds a request for method with the given id. params must marshal to
// a JSON array or object, or be nil to omit them.
func NewRPCRequest(id int64, method string, params any) (*RPCRequest, error) {
	req := &RPCRequest{Jsonrpc: "2.0", ID: id, Method: method}

	if params == nil {
		return req, nil
	}

	raw, err := Marshal(params)
	if err != nil {
		return nil, err
	}

	switch HintKind(raw) {
	case KindArray, KindObject:
		req.Params = raw
	case KindNull:
	default:
		return nil, ErrInvalidParamsType
	}

	return req, nil
}

// NewRPCPost builds a POST [*Request] to url carrying a JSON-RPC request.
func NewRPCPost(url string, id int64, method string, params any) (*Request, error) {
	rpc, err := NewRPCRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	body, err := Marshal(rpc)
	if err != nil {
		return nil, err
	}

	return NewRequest(http.MethodPost, url, body), nil
}

// IDSource hands out increasing request ids, starting from the wall clock in
// milliseconds so ids from successive processes rarely collide. It is safe for
// concurrent use.
type IDSource struct {
	next atomic.Int64
}

// NewIDSource returns an [*IDSource] seeded from the current time.
func NewIDSource() *IDSource {
	s := new(IDSource)
	s.next.Store(time.Now().UnixMilli())

	return s
}

// Next returns the next id.
func (s *IDSource) Next() int64 {
	return s.next.Add(1)
}
