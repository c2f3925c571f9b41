// Package web2rpc turns JSON web API and JSON-RPC responses into typed, immutable
// values without an intermediate document tree.
//
// # Overview
//
// The package has two halves. The decode half is a forward-only [Cursor] over a
// response body plus a handful of generic helpers ([DecodeObject], [DecodeRecord],
// [DecodeArray], [Envelope]) that route each object field to a caller supplied
// dispatch function filling a builder. The request half is a [Pipeline] that sends a
// [Request] over a [Transport] once, checks the status, and hands the body to a
// [Decoder], resolving a [Future] with the typed record or a typed failure.
//
// # Features
//
//   - Field names are compared in place with [FieldEquals] and [FieldEqualsFold].
//   - Unknown fields are skipped, and optionally reported through [Callbacks.OnUnknownField].
//   - Decimals keep their scale ([Cursor.ReadDecimal]), or drop padding zeros ([Cursor.ReadDecimalStripZeros]).
//   - Failures are distinguishable: [*RemoteFailure] and [*TimeoutError] may be worth retrying
//     (see [Retryable]), [*MalformedResponseError] never is.
//   - JSON-RPC envelopes via [JSONRPCResult] and [JSONRPCValue].
//   - [HTTPTransport] with pooled body buffers and gzip/zstd responses.
//   - Endpoint families chosen once per client by [ResolveEndpoint].
//   - Pluggable JSON encoding for outgoing bodies by overriding [Marshal].
//
// # Basic Usage
//
//	type Token struct {
//		Symbol string
//		Price  decimal.Decimal
//	}
//
//	type tokenBuilder struct {
//		symbol string
//		price  decimal.Decimal
//	}
//
//	func (b *tokenBuilder) Build() Token { return Token{Symbol: b.symbol, Price: b.price} }
//
//	func tokenField(b *tokenBuilder, field []byte, c *web2rpc.Cursor) web2rpc.Action {
//		switch {
//		case web2rpc.FieldEquals("symbol", field):
//			b.symbol = c.ReadString()
//		case web2rpc.FieldEquals("price", field):
//			b.price = c.ReadDecimalStripZeros()
//		default:
//			c.SkipUnknown(field)
//		}
//
//		return web2rpc.Continue
//	}
//
//	func decodeToken(c *web2rpc.Cursor) (Token, error) {
//		return web2rpc.DecodeRecord[Token](c, tokenField)
//	}
//
//	func main() {
//		transport, err := web2rpc.NewHTTPTransport(web2rpc.HTTPTransportConfig{})
//		if err != nil {
//			log.Fatal(err)
//		}
//		defer transport.Close()
//
//		p := web2rpc.NewPipeline(transport)
//		req := web2rpc.NewRequest(http.MethodGet, "https://example.com/token", nil)
//
//		tok, err := web2rpc.Call(context.Background(), p, req, web2rpc.Body(web2rpc.Envelope("data", decodeToken)))
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		log.Println(tok.Symbol, tok.Price)
//	}
package web2rpc

import (
	"github.com/goccy/go-json"
)

// Marshal defines the function used for marshaling request bodies.
// By default, it uses [github.com/goccy/go-json.Marshal]. Applications can replace
// this variable *at startup* with a different marshaling function.
//
// The replacement function must have the same signature as `json.Marshal`.
var Marshal = json.Marshal
