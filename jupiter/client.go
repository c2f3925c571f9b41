// Package jupiter is a client for the Jupiter swap API.
//
// The API is served either by the public gateway, under /swap/v1, or by a self-hosted
// instance at the root. [NewClient] resolves the endpoint host once and picks the
// path set: loopback and unspecified addresses are treated as self-hosted.
package jupiter

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rrb3942/web2rpc"
)

const (
	DefaultEndpoint = "https://api.jup.ag"
	DefaultTimeout  = 13 * time.Second

	headerAPIKey = "x-api-key"
)

// Paths is the set of API paths for one deployment family.
type Paths struct {
	Quote            string
	Swap             string
	SwapInstructions string
	ProgramLabels    string
}

var (
	LocalPaths = Paths{
		Quote:            "/quote",
		Swap:             "/swap",
		SwapInstructions: "/swap-instructions",
		ProgramLabels:    "/program-id-to-label",
	}
	PublicPaths = Paths{
		Quote:            "/swap/v1/quote",
		Swap:             "/swap/v1/swap",
		SwapInstructions: "/swap/v1/swap-instructions",
		ProgramLabels:    "/swap/v1/program-id-to-label",
	}
)

// Config configures a [Client]. Zero values select the defaults.
type Config struct {
	Lookup   web2rpc.LookupFunc
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// Client issues quote and swap requests through a [web2rpc.Pipeline].
type Client struct {
	pipeline *web2rpc.Pipeline
	endpoint *web2rpc.Endpoint[Paths]
	apiKey   string
	timeout  time.Duration
}

// NewClient resolves cfg.Endpoint and returns a new [*Client] sending requests through p.
// A host that cannot be resolved is a [*web2rpc.HostResolutionError].
func NewClient(ctx context.Context, p *web2rpc.Pipeline, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.Lookup == nil {
		cfg.Lookup = web2rpc.DefaultLookup
	}

	ep, err := web2rpc.ResolveEndpoint(ctx, cfg.Endpoint, LocalPaths, PublicPaths, cfg.Lookup)
	if err != nil {
		return nil, err
	}

	return &Client{pipeline: p, endpoint: ep, apiKey: cfg.APIKey, timeout: cfg.Timeout}, nil
}

// Family reports whether the client talks to a self-hosted or the public API.
func (c *Client) Family() web2rpc.Family {
	return c.endpoint.Family
}

func (c *Client) newRequest(method, path string, query url.Values, body []byte) *web2rpc.Request {
	u := c.endpoint.URL(path)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req := web2rpc.NewRequest(method, u, body)
	req.Timeout = c.timeout

	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}

	return req
}

// QuoteRequest holds the parameters of a quote. Zero values are omitted.
type QuoteRequest struct {
	InputMint                  string
	OutputMint                 string
	SwapMode                   SwapMode
	Dexes                      []string
	ExcludeDexes               []string
	Amount                     uint64
	SlippageBps                int
	PlatformFeeBps             int
	MaxAccounts                int
	OnlyDirectRoutes           bool
	RestrictIntermediateTokens bool
}

func (r QuoteRequest) query() url.Values {
	q := url.Values{}
	q.Set("inputMint", r.InputMint)
	q.Set("outputMint", r.OutputMint)
	q.Set("amount", strconv.FormatUint(r.Amount, 10))

	if r.SwapMode != "" {
		q.Set("swapMode", string(r.SwapMode))
	}

	if r.SlippageBps > 0 {
		q.Set("slippageBps", strconv.Itoa(r.SlippageBps))
	}

	if r.PlatformFeeBps > 0 {
		q.Set("platformFeeBps", strconv.Itoa(r.PlatformFeeBps))
	}

	if r.MaxAccounts > 0 {
		q.Set("maxAccounts", strconv.Itoa(r.MaxAccounts))
	}

	if len(r.Dexes) > 0 {
		q.Set("dexes", strings.Join(r.Dexes, ","))
	}

	if len(r.ExcludeDexes) > 0 {
		q.Set("excludeDexes", strings.Join(r.ExcludeDexes, ","))
	}

	if r.OnlyDirectRoutes {
		q.Set("onlyDirectRoutes", "true")
	}

	if r.RestrictIntermediateTokens {
		q.Set("restrictIntermediateTokens", "true")
	}

	return q
}

// Quote requests a swap quote.
func (c *Client) Quote(ctx context.Context, r QuoteRequest) *web2rpc.Future[Quote] {
	req := c.newRequest(http.MethodGet, c.endpoint.Paths.Quote, r.query(), nil)

	return web2rpc.Send(ctx, c.pipeline, req, decodeQuoteResponse)
}

// The response body is pooled, so the raw echo is a copy.
func decodeQuoteResponse(cur *web2rpc.Cursor, resp *web2rpc.Response) (Quote, error) {
	return DecodeQuote(cur, bytes.Clone(resp.Body))
}

// Swap requests a serialized transaction for quote.
func (c *Client) Swap(ctx context.Context, r SwapRequest, quote Quote) *web2rpc.Future[SwapTx] {
	body, err := r.Body(quote)
	if err != nil {
		return web2rpc.Failed[SwapTx](err)
	}

	req := c.newRequest(http.MethodPost, c.endpoint.Paths.Swap, nil, body)

	return web2rpc.Send(ctx, c.pipeline, req, web2rpc.Body(DecodeSwapTx))
}

// SwapInstructions requests the instructions of a swap for quote and returns the
// response object undecoded.
func (c *Client) SwapInstructions(ctx context.Context, r SwapRequest, quote Quote) *web2rpc.Future[[]byte] {
	body, err := r.Body(quote)
	if err != nil {
		return web2rpc.Failed[[]byte](err)
	}

	req := c.newRequest(http.MethodPost, c.endpoint.Paths.SwapInstructions, nil, body)

	return web2rpc.Send(ctx, c.pipeline, req, web2rpc.Body(func(cur *web2rpc.Cursor) ([]byte, error) {
		if cur.NextKind() != web2rpc.KindObject {
			return nil, cur.Fail("object")
		}

		return cur.ReadRaw(), cur.Err()
	}))
}

// ProgramLabels requests the label of every program the router can use.
func (c *Client) ProgramLabels(ctx context.Context) *web2rpc.Future[ProgramLabels] {
	req := c.newRequest(http.MethodGet, c.endpoint.Paths.ProgramLabels, nil, nil)

	return web2rpc.Send(ctx, c.pipeline, req, web2rpc.Body(DecodeProgramLabels))
}
