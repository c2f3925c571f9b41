// Package jito is a JSON-RPC client for the Jito block engine.
//
// Bundle calls go to /api/v1/bundles and transaction calls to /api/v1/transactions.
// Every call is a single JSON-RPC request with an id taken from a per-client
// [web2rpc.IDSource].
package jito

import (
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/rrb3942/web2rpc"
)

const (
	DefaultEndpoint = "https://mainnet.block-engine.jito.wtf"

	HeaderAuth     = "x-jito-auth"
	HeaderBundleID = "x-bundle-id"

	bundlesPath      = "/api/v1/bundles"
	transactionsPath = "/api/v1/transactions"
)

var ErrEndpoint = errors.New("jito: invalid endpoint")

// Config configures a [Client]. Zero values select the defaults; a zero Timeout uses
// the pipeline's.
type Config struct {
	Endpoint string
	Auth     string
	Timeout  time.Duration
}

// Client issues block engine calls through a [web2rpc.Pipeline].
type Client struct {
	pipeline *web2rpc.Pipeline
	ids      *web2rpc.IDSource
	base     string
	auth     string
	timeout  time.Duration
}

// NewClient returns a new [*Client] sending requests through p.
func NewClient(p *web2rpc.Pipeline, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Host == "" {
		return nil, errors.Join(ErrEndpoint, err)
	}

	return &Client{
		pipeline: p,
		ids:      web2rpc.NewIDSource(),
		base:     strings.TrimSuffix(u.String(), "/"),
		auth:     cfg.Auth,
		timeout:  cfg.Timeout,
	}, nil
}

func (c *Client) newRequest(path, method string, params any) (*web2rpc.Request, error) {
	req, err := web2rpc.NewRPCPost(c.base+path, c.ids.Next(), method, params)
	if err != nil {
		return nil, err
	}

	req.Timeout = c.timeout

	if c.auth != "" {
		req.Header.Set(HeaderAuth, c.auth)
	}

	return req, nil
}

func send[T any](ctx context.Context, c *Client, path, method string, params any, dec web2rpc.Decoder[T]) *web2rpc.Future[T] {
	req, err := c.newRequest(path, method, params)
	if err != nil {
		return web2rpc.Failed[T](err)
	}

	return web2rpc.Send(ctx, c.pipeline, req, dec)
}

// TipAccounts returns the accounts tips may be paid to.
func (c *Client) TipAccounts(ctx context.Context) *web2rpc.Future[[]string] {
	return send(ctx, c, bundlesPath, "getTipAccounts", []any{}, web2rpc.JSONRPCResult(web2rpc.ReadStrings))
}

func decodeStatuses(cur *web2rpc.Cursor, rpc web2rpc.RPCContext) (Statuses, error) {
	list, err := DecodeBundleStatusList(cur)
	if err != nil {
		return Statuses{}, err
	}

	return newStatuses(list, rpc), nil
}

// BundleStatuses looks up the status of each bundle in ids. Unknown bundles are
// absent from the result.
func (c *Client) BundleStatuses(ctx context.Context, ids []string) *web2rpc.Future[Statuses] {
	return send(ctx, c, bundlesPath, "getBundleStatuses", []any{ids}, web2rpc.JSONRPCValue(decodeStatuses))
}

func decodeFirstStatus(cur *web2rpc.Cursor, _ web2rpc.RPCContext) (*BundleStatus, error) {
	list, err := DecodeBundleStatusList(cur)
	if err != nil || len(list) == 0 {
		return nil, err
	}

	return &list[0], nil
}

// BundleStatus looks up a single bundle. The result is nil if the bundle is unknown.
func (c *Client) BundleStatus(ctx context.Context, id string) *web2rpc.Future[*BundleStatus] {
	return send(ctx, c, bundlesPath, "getBundleStatuses", []any{[]string{id}}, web2rpc.JSONRPCValue(decodeFirstStatus))
}

func encodeTransactions(txs [][]byte) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = base64.StdEncoding.EncodeToString(tx)
	}

	return out
}

// readOptionalString returns "" for any value that is not a string.
func readOptionalString(cur *web2rpc.Cursor) (string, error) {
	if cur.NextKind() != web2rpc.KindString {
		cur.Skip()
		return "", cur.Err()
	}

	return cur.ReadString(), cur.Err()
}

// SendBundle submits serialized transactions as one bundle and returns its id.
func (c *Client) SendBundle(ctx context.Context, txs [][]byte) *web2rpc.Future[string] {
	params := []any{encodeTransactions(txs), map[string]string{"encoding": "base64"}}

	return send(ctx, c, bundlesPath, "sendBundle", params, web2rpc.JSONRPCResult(readOptionalString))
}

// SendOptions are the options of [Client.SendTransaction].
type SendOptions struct {
	MaxRetries          *int       `json:"maxRetries,omitempty"`
	Encoding            string     `json:"encoding"`
	PreflightCommitment Commitment `json:"preflightCommitment,omitempty"`
	SkipPreflight       bool       `json:"skipPreflight,omitempty"`
	// BundleOnly also wraps the transaction in a bundle of its own.
	BundleOnly bool `json:"-"`
}

// SendResult is the outcome of [Client.SendTransaction].
type SendResult struct {
	Signature string
	// BundleID is set when the transaction was sent as a bundle.
	BundleID string
}

func decodeSendResult(cur *web2rpc.Cursor, resp *web2rpc.Response) (SendResult, error) {
	sig, err := web2rpc.JSONRPCResult(readOptionalString)(cur, resp)
	if err != nil {
		return SendResult{}, err
	}

	return SendResult{Signature: sig, BundleID: resp.Header.Get(HeaderBundleID)}, nil
}

// SendTransaction submits one serialized transaction.
func (c *Client) SendTransaction(ctx context.Context, tx []byte, opts SendOptions) *web2rpc.Future[SendResult] {
	opts.Encoding = "base64"

	path := transactionsPath
	if opts.BundleOnly {
		path += "?bundleOnly=true"
	}

	params := []any{base64.StdEncoding.EncodeToString(tx), opts}

	return send(ctx, c, path, "sendTransaction", params, decodeSendResult)
}
