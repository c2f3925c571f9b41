// Package birdeye is a client for the Birdeye public token API.
//
// Responses arrive wrapped as {"data": {...}}. Decimal amounts are normalized with
// trailing zeros removed and unix timestamps decode to [time.Time] in UTC.
package birdeye

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rrb3942/web2rpc"
)

const (
	DefaultEndpoint = "https://public-api.birdeye.so"
	DefaultTimeout  = 13 * time.Second

	ChainSolana = "solana"

	headerAPIKey = "X-API-KEY"
	headerChain  = "x-chain"
	tokenListAPI = "/public/tokenlist"
)

var ErrEndpoint = errors.New("birdeye: invalid endpoint")

// SortBy selects the token list ordering field.
type SortBy string

const (
	SortByVolume24hUSD    SortBy = "v24hUSD"
	SortByMarketCap       SortBy = "mc"
	SortByVolume24hChange SortBy = "v24hChangePercent"
)

// SortType is the direction of a token list ordering.
type SortType string

const (
	SortAsc  SortType = "asc"
	SortDesc SortType = "desc"
)

// Config configures a [Client]. Zero values select the defaults.
type Config struct {
	Endpoint string
	APIKey   string
	Chain    string
	Timeout  time.Duration
}

// Client issues token list requests through a [web2rpc.Pipeline].
type Client struct {
	pipeline *web2rpc.Pipeline
	base     string
	apiKey   string
	chain    string
	timeout  time.Duration
}

// NewClient returns a new [*Client] sending requests through p.
func NewClient(p *web2rpc.Pipeline, cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}

	if cfg.Chain == "" {
		cfg.Chain = ChainSolana
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Host == "" {
		return nil, errors.Join(ErrEndpoint, err)
	}

	return &Client{
		pipeline: p,
		base:     strings.TrimSuffix(u.String(), "/"),
		apiKey:   cfg.APIKey,
		chain:    cfg.Chain,
		timeout:  cfg.Timeout,
	}, nil
}

// Chain returns the chain requests are issued for.
func (c *Client) Chain() string {
	return c.chain
}

func (c *Client) newRequest(path string, query url.Values) *web2rpc.Request {
	req := web2rpc.NewRequest(http.MethodGet, c.base+path+"?"+query.Encode(), nil)
	req.Timeout = c.timeout
	req.Header.Set(headerChain, c.chain)

	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}

	return req
}

// TokenList requests one page of the token list.
func (c *Client) TokenList(ctx context.Context, sortBy SortBy, sortType SortType, offset, limit int) *web2rpc.Future[TokenList] {
	query := url.Values{}
	query.Set("sort_by", string(sortBy))
	query.Set("sort_type", string(sortType))
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	return web2rpc.Send(ctx, c.pipeline, c.newRequest(tokenListAPI, query), c.tokenListDecoder())
}

func (c *Client) tokenListDecoder() web2rpc.Decoder[TokenList] {
	chain := c.chain

	return web2rpc.Body(web2rpc.Envelope("data", func(cur *web2rpc.Cursor) (TokenList, error) {
		return DecodeTokenList(cur, chain)
	}))
}
