package birdeye

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rrb3942/web2rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tokenListBody = `{
  "success": true,
  "data": {
    "updateUnixTime": 1700000000,
    "updateTime": "2023-11-14T22:13:20",
    "tokens": [
      {
        "address": "So11111111111111111111111111111111111111112",
        "decimals": 9,
        "lastTradeUnixTime": 1699999990,
        "liquidity": 12345.67800,
        "logoURI": "https://example.com/sol.png",
        "mc": "62000000000.000",
        "name": "Wrapped SOL",
        "symbol": "SOL",
        "v24hChangePercent": -1.50,
        "v24hUSD": 1000,
        "extra": {"nested": [1, 2, 3]}
      }
    ],
    "total": 1
  }
}`

func newTestClient(t *testing.T, cfg Config, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	h, err := web2rpc.NewHTTPTransport(web2rpc.HTTPTransportConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	cfg.Endpoint = server.URL

	c, err := NewClient(web2rpc.NewPipeline(h), cfg)
	require.NoError(t, err)

	return c
}

func TestTokenList(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, Config{APIKey: "secret"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, tokenListAPI, r.URL.Path)
		assert.Equal(t, "v24hUSD", r.URL.Query().Get("sort_by"))
		assert.Equal(t, "desc", r.URL.Query().Get("sort_type"))
		assert.Equal(t, "10", r.URL.Query().Get("offset"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "secret", r.Header.Get(headerAPIKey))
		assert.Equal(t, ChainSolana, r.Header.Get(headerChain))

		_, _ = w.Write([]byte(tokenListBody))
	})

	list, err := c.TokenList(t.Context(), SortByVolume24hUSD, SortDesc, 10, 50).Get()
	require.NoError(t, err)

	assert.Equal(t, time.Unix(1700000000, 0).UTC(), list.Updated)
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Tokens, 1)

	tok := list.Tokens[0]
	assert.Equal(t, "So11111111111111111111111111111111111111112", tok.Address)
	assert.Equal(t, 9, tok.Decimals)
	assert.Equal(t, "Wrapped SOL", tok.Name)
	assert.Equal(t, "SOL", tok.Symbol)
	assert.Equal(t, "https://example.com/sol.png", tok.LogoURI)
	assert.Equal(t, time.Unix(1699999990, 0).UTC(), tok.LastTrade)

	assert.Equal(t, "12345.678", tok.Liquidity.String())
	assert.Equal(t, int32(-3), tok.Liquidity.Exponent())
	assert.Equal(t, "62000000000", tok.MarketCap.String())
	assert.Equal(t, "-1.5", tok.V24hChangePercent.String())
	assert.Equal(t, "1000", tok.V24hUSD.String())
}

func TestTokenListEmpty(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, Config{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(headerAPIKey))
		_, _ = w.Write([]byte(`{"data":{"updateUnixTime":1700000000,"tokens":[],"total":0}}`))
	})

	list, err := c.TokenList(t.Context(), SortByMarketCap, SortAsc, 0, 1).Get()
	require.NoError(t, err)

	assert.Equal(t, time.Unix(1700000000, 0).UTC(), list.Updated)
	assert.Equal(t, 0, list.Total)
	assert.NotNil(t, list.Tokens)
	assert.Empty(t, list.Tokens)
}

func TestTokenListChain(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, Config{Chain: "base"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "base", r.Header.Get(headerChain))
		_, _ = w.Write([]byte(`{"data":{"tokens":[{"address":"0xABCdef"}],"total":1}}`))
	})

	assert.Equal(t, "base", c.Chain())

	list, err := c.TokenList(t.Context(), SortByMarketCap, SortDesc, 0, 1).Get()
	require.NoError(t, err)
	require.Len(t, list.Tokens, 1)
	assert.Equal(t, "0xabcdef", list.Tokens[0].Address)
	assert.True(t, list.Updated.IsZero())
}

func TestTokenListFailures(t *testing.T) {
	t.Parallel()

	//nolint:govet //Do not reorder struct
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"RateLimited", http.StatusTooManyRequests, `{"success":false}`, web2rpc.ErrRemoteFailure},
		{"MissingData", http.StatusOK, `{"success":true}`, web2rpc.ErrMalformedResponse},
		{"BadDecimals", http.StatusOK, `{"data":{"tokens":[{"decimals":"nine"}]}}`, web2rpc.ErrMalformedResponse},
		{"TokensWithoutComma", http.StatusOK, `{"data":{"tokens":[{"symbol":"A"} {"symbol":"B"}]}}`, web2rpc.ErrMalformedResponse},
		{"TrailingData", http.StatusOK, `{"data":{"tokens":[]},"success":true} {}`, web2rpc.ErrMalformedResponse},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, Config{}, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(test.status)
				_, _ = w.Write([]byte(test.body))
			})

			_, err := c.TokenList(t.Context(), SortByMarketCap, SortDesc, 0, 1).Get()
			assert.ErrorIs(t, err, test.want)
		})
	}
}

func TestDecodeTokenListNestedError(t *testing.T) {
	t.Parallel()

	c := web2rpc.NewCursor([]byte(`{"total":2,"tokens":[{"decimals":1},{"decimals":"x"}],"updateUnixTime":1}`))

	list, err := DecodeTokenList(c, ChainSolana)
	require.ErrorIs(t, err, web2rpc.ErrDecode)
	assert.Equal(t, TokenList{}, list)
}

func TestTokenListTimeout(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	defer close(block)

	c := newTestClient(t, Config{Timeout: 20 * time.Millisecond}, func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})

	_, err := c.TokenList(t.Context(), SortByMarketCap, SortDesc, 0, 1).Get()
	assert.ErrorIs(t, err, web2rpc.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewClientDefaults(t *testing.T) {
	t.Parallel()

	c, err := NewClient(web2rpc.NewPipeline(nil), Config{})
	require.NoError(t, err)

	assert.Equal(t, DefaultEndpoint, c.base)
	assert.Equal(t, ChainSolana, c.chain)
	assert.Equal(t, DefaultTimeout, c.timeout)

	_, err = NewClient(web2rpc.NewPipeline(nil), Config{Endpoint: "not a url"})
	assert.ErrorIs(t, err, ErrEndpoint)
}

func TestTokenListRoundTrip(t *testing.T) {
	t.Parallel()

	want := TokenList{
		Updated: time.Unix(1700000000, 0).UTC(),
		Total:   2,
		Tokens: []Token{
			{
				Address:           "So11111111111111111111111111111111111111112",
				Decimals:          9,
				LastTrade:         time.Unix(1699999990, 0).UTC(),
				Liquidity:         decimal.RequireFromString("12345.678"),
				MarketCap:         decimal.RequireFromString("62000000000"),
				V24hChangePercent: decimal.RequireFromString("-1.5"),
				V24hUSD:           decimal.RequireFromString("1000"),
				Name:              "Wrapped SOL",
				Symbol:            "SOL",
			},
			{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Name: "USD Coin", Symbol: "USDC", Decimals: 6},
		},
	}

	body, err := MarshalTokenList(want)
	require.NoError(t, err)

	got, err := web2rpc.Envelope("data", func(c *web2rpc.Cursor) (TokenList, error) {
		return DecodeTokenList(c, ChainSolana)
	})(web2rpc.NewCursor(body))
	require.NoError(t, err)

	assert.Equal(t, want.Updated, got.Updated)
	assert.Equal(t, want.Total, got.Total)
	require.Len(t, got.Tokens, len(want.Tokens))

	for i := range want.Tokens {
		w, g := want.Tokens[i], got.Tokens[i]

		assert.Equal(t, w.Address, g.Address)
		assert.Equal(t, w.Decimals, g.Decimals)
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.Symbol, g.Symbol)
		assert.Equal(t, w.LastTrade, g.LastTrade)
		assert.True(t, w.Liquidity.Equal(g.Liquidity), "liquidity %s != %s", w.Liquidity, g.Liquidity)
		assert.True(t, w.MarketCap.Equal(g.MarketCap))
		assert.True(t, w.V24hChangePercent.Equal(g.V24hChangePercent))
		assert.True(t, w.V24hUSD.Equal(g.V24hUSD))
	}
}
