package birdeye

import (
	"strings"
	"time"

	"github.com/rrb3942/web2rpc"
	"github.com/shopspring/decimal"
)

// Token is one entry of the token list.
type Token struct {
	LastTrade         time.Time
	Liquidity         decimal.Decimal
	MarketCap         decimal.Decimal
	V24hChangePercent decimal.Decimal
	V24hUSD           decimal.Decimal
	Address           string
	LogoURI           string
	Name              string
	Symbol            string
	Decimals          int
}

type tokenBuilder struct {
	lastTrade         time.Time
	liquidity         decimal.Decimal
	marketCap         decimal.Decimal
	v24hChangePercent decimal.Decimal
	v24hUSD           decimal.Decimal
	address           string
	logoURI           string
	name              string
	symbol            string
	decimals          int
}

func (b *tokenBuilder) Build() Token {
	return Token{
		LastTrade:         b.lastTrade,
		Liquidity:         b.liquidity,
		MarketCap:         b.marketCap,
		V24hChangePercent: b.v24hChangePercent,
		V24hUSD:           b.v24hUSD,
		Address:           b.address,
		LogoURI:           b.logoURI,
		Name:              b.name,
		Symbol:            b.symbol,
		Decimals:          b.decimals,
	}
}

// Decimal fields drop trailing zeros so equal amounts compare equal regardless of
// how the API formatted them.
func tokenField(b *tokenBuilder, chain string, field []byte, c *web2rpc.Cursor) web2rpc.Action {
	switch {
	case web2rpc.FieldEquals("address", field):
		b.address = c.ReadString()
		// EVM addresses are case-insensitive hex, base58 addresses are not.
		if chain != ChainSolana {
			b.address = strings.ToLower(b.address)
		}
	case web2rpc.FieldEquals("decimals", field):
		b.decimals = c.ReadInt()
	case web2rpc.FieldEquals("lastTradeUnixTime", field):
		b.lastTrade = epochSeconds(c)
	case web2rpc.FieldEquals("liquidity", field):
		b.liquidity = c.ReadDecimalStripZeros()
	case web2rpc.FieldEquals("logoURI", field):
		b.logoURI = c.ReadString()
	case web2rpc.FieldEquals("mc", field):
		b.marketCap = c.ReadDecimalStripZeros()
	case web2rpc.FieldEquals("name", field):
		b.name = c.ReadString()
	case web2rpc.FieldEquals("symbol", field):
		b.symbol = c.ReadString()
	case web2rpc.FieldEquals("v24hChangePercent", field):
		b.v24hChangePercent = c.ReadDecimalStripZeros()
	case web2rpc.FieldEquals("v24hUSD", field):
		b.v24hUSD = c.ReadDecimalStripZeros()
	default:
		c.SkipUnknown(field)
	}

	return web2rpc.Continue
}

// DecodeToken decodes a single token object. Addresses are lowercased unless chain is
// [ChainSolana].
func DecodeToken(c *web2rpc.Cursor, chain string) (Token, error) {
	return web2rpc.DecodeRecordWith[Token](c, chain, tokenField)
}

// TokenList is the decoded payload of the token list endpoint.
type TokenList struct {
	Updated time.Time
	Tokens  []Token
	Total   int
}

type tokenListBuilder struct {
	updated time.Time
	tokens  []Token
	total   int
}

func (b *tokenListBuilder) Build() TokenList {
	tokens := b.tokens
	if tokens == nil {
		tokens = []Token{}
	}

	return TokenList{Updated: b.updated, Tokens: tokens, Total: b.total}
}

func tokenListField(b *tokenListBuilder, chain string, field []byte, c *web2rpc.Cursor) web2rpc.Action {
	switch {
	case web2rpc.FieldEquals("updateUnixTime", field):
		b.updated = epochSeconds(c)
	case web2rpc.FieldEquals("tokens", field):
		var err error

		b.tokens, err = web2rpc.DecodeArray(c, func(c *web2rpc.Cursor) (Token, error) {
			return DecodeToken(c, chain)
		})
		c.Abort(err)
	case web2rpc.FieldEquals("total", field):
		b.total = c.ReadInt()
	default:
		c.SkipUnknown(field)
	}

	return web2rpc.Continue
}

// DecodeTokenList decodes the object carried in the response's "data" member.
func DecodeTokenList(c *web2rpc.Cursor, chain string) (TokenList, error) {
	return web2rpc.DecodeRecordWith[TokenList](c, chain, tokenListField)
}

func epochSeconds(c *web2rpc.Cursor) time.Time {
	if c.ReadNull() {
		return time.Time{}
	}

	return time.Unix(c.ReadInt64(), 0).UTC()
}
