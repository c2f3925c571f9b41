package birdeye

import (
	"github.com/rrb3942/web2rpc"
	"github.com/shopspring/decimal"
)

type tokenJSON struct {
	LastTradeUnixTime *int64          `json:"lastTradeUnixTime,omitempty"`
	Address           string          `json:"address"`
	LogoURI           string          `json:"logoURI,omitempty"`
	Name              string          `json:"name"`
	Symbol            string          `json:"symbol"`
	Liquidity         decimal.Decimal `json:"liquidity"`
	MarketCap         decimal.Decimal `json:"mc"`
	V24hChangePercent decimal.Decimal `json:"v24hChangePercent"`
	V24hUSD           decimal.Decimal `json:"v24hUSD"`
	Decimals          int             `json:"decimals"`
}

type tokenListJSON struct {
	Tokens         []tokenJSON `json:"tokens"`
	UpdateUnixTime int64       `json:"updateUnixTime"`
	Total          int         `json:"total"`
}

// MarshalTokenList encodes l in the wire format of the token list endpoint,
// including the "data" envelope.
func MarshalTokenList(l TokenList) ([]byte, error) {
	out := tokenListJSON{
		Tokens:         make([]tokenJSON, 0, len(l.Tokens)),
		UpdateUnixTime: l.Updated.Unix(),
		Total:          l.Total,
	}

	for _, t := range l.Tokens {
		tj := tokenJSON{
			Address:           t.Address,
			LogoURI:           t.LogoURI,
			Name:              t.Name,
			Symbol:            t.Symbol,
			Liquidity:         t.Liquidity,
			MarketCap:         t.MarketCap,
			V24hChangePercent: t.V24hChangePercent,
			V24hUSD:           t.V24hUSD,
			Decimals:          t.Decimals,
		}

		if !t.LastTrade.IsZero() {
			sec := t.LastTrade.Unix()
			tj.LastTradeUnixTime = &sec
		}

		out.Tokens = append(out.Tokens, tj)
	}

	return web2rpc.Marshal(struct {
		Data tokenListJSON `json:"data"`
	}{out})
}
