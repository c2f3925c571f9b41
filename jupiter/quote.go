package jupiter

import (
	"github.com/rrb3942/web2rpc"
	"github.com/shopspring/decimal"
)

// SwapMode fixes which side of a swap is exact.
type SwapMode string

const (
	ExactIn  SwapMode = "ExactIn"
	ExactOut SwapMode = "ExactOut"
)

func readSwapMode(c *web2rpc.Cursor) SwapMode {
	switch s := SwapMode(c.ReadString()); s {
	case ExactIn, ExactOut, "":
		return s
	}

	_ = c.Fail("swap mode ExactIn or ExactOut")

	return ""
}

// PlatformFee is the integrator fee taken from a quote.
type PlatformFee struct {
	Amount uint64
	FeeBps int
}

type platformFeeBuilder struct {
	amount uint64
	feeBps int
}

func (b *platformFeeBuilder) Build() PlatformFee {
	return PlatformFee{Amount: b.amount, FeeBps: b.feeBps}
}

func platformFeeField(b *platformFeeBuilder, field []byte, c *web2rpc.Cursor) web2rpc.Action {
	switch {
	case web2rpc.FieldEquals("amount", field):
		b.amount = c.ReadUint64()
	case web2rpc.FieldEquals("feeBps", field):
		b.feeBps = c.ReadInt()
	default:
		c.SkipUnknown(field)
	}

	return web2rpc.Continue
}

func decodePlatformFee(c *web2rpc.Cursor) (PlatformFee, error) {
	return web2rpc.DecodeRecord[PlatformFee](c, platformFeeField)
}

// Route is one hop of a quote's route plan.
type Route struct {
	AmmKey     string
	Label      string
	InputMint  string
	OutputMint string
	FeeMint    string
	InAmount   uint64
	OutAmount  uint64
	FeeAmount  uint64
	Percent    int
}

type routeBuilder struct {
	ammKey     string
	label      string
	inputMint  string
	outputMint string
	feeMint    string
	inAmount   uint64
	outAmount  uint64
	feeAmount  uint64
	percent    int
}

func (b *routeBuilder) Build() Route {
	return Route{
		AmmKey:     b.ammKey,
		Label:      b.label,
		InputMint:  b.inputMint,
		OutputMint: b.outputMint,
		FeeMint:    b.feeMint,
		InAmount:   b.inAmount,
		OutAmount:  b.outAmount,
		FeeAmount:  b.feeAmount,
		Percent:    b.percent,
	}
}

func routeField(b *routeBuilder, field []byte, c *web2rpc.Cursor) web2rpc.Action {
	switch {
	case web2rpc.FieldEquals("swapInfo", field):
		c.Abort(web2rpc.DecodeObject(c, b, swapInfoField))
	case web2rpc.FieldEquals("percent", field):
		b.percent = c.ReadInt()
	default:
		c.SkipUnknown(field)
	}

	return web2rpc.Continue
}

func swapInfoField(b *routeBuilder, field []byte, c *web2rpc.Cursor) web2rpc.Action {
	switch {
	case web2rpc.FieldEquals("ammKey", field):
		b.ammKey = c.ReadString()
	case web2rpc.FieldEquals("label", field):
		b.label = c.ReadString()
	case web2rpc.FieldEquals("inputMint", field):
		b.inputMint = c.ReadString()
	case web2rpc.FieldEquals("outputMint", field):
		b.outputMint = c.ReadString()
	case web2rpc.FieldEquals("inAmount", field):
		b.inAmount = c.ReadUint64()
	case web2rpc.FieldEquals("outAmount", field):
		b.outAmount = c.ReadUint64()
	case web2rpc.FieldEquals("feeAmount", field):
		b.feeAmount = c.ReadUint64()
	case web2rpc.FieldEquals("feeMint", field):
		b.feeMint = c.ReadString()
	default:
		c.SkipUnknown(field)
	}

	return web2rpc.Continue
}

// DecodeRoute decodes one route plan entry, flattening its "swapInfo".
func DecodeRoute(c *web2rpc.Cursor) (Route, error) {
	return web2rpc.DecodeRecord[Route](c, routeField)
}

// Quote is a swap quote. Raw holds the exact response body, which the swap
// endpoints expect back verbatim.
type Quote struct {
	PriceImpactPct       decimal.Decimal
	PlatformFee          *PlatformFee
	InputMint            string
	OutputMint           string
	SwapMode             SwapMode
	RoutePlan            []Route
	Raw                  []byte
	InAmount             uint64
	OutAmount            uint64
	OtherAmountThreshold uint64
	ContextSlot          uint64
	TimeTaken            float64
	SlippageBps          int
}

type quoteBuilder struct {
	priceImpactPct       decimal.Decimal
	platformFee          *PlatformFee
	inputMint            string
	outputMint           string
	swapMode             SwapMode
	routePlan            []Route
	raw                  []byte
	inAmount             uint64
	outAmount            uint64
	otherAmountThreshold uint64
	contextSlot          uint64
	timeTaken            float64
	slippageBps          int
}

func (b *quoteBuilder) Build() Quote {
	routes := b.routePlan
	if routes == nil {
		routes = []Route{}
	}

	return Quote{
		PriceImpactPct:       b.priceImpactPct,
		PlatformFee:          b.platformFee,
		InputMint:            b.inputMint,
		OutputMint:           b.outputMint,
		SwapMode:             b.swapMode,
		RoutePlan:            routes,
		Raw:                  b.raw,
		InAmount:             b.inAmount,
		OutAmount:            b.outAmount,
		OtherAmountThreshold: b.otherAmountThreshold,
		ContextSlot:          b.contextSlot,
		TimeTaken:            b.timeTaken,
		SlippageBps:          b.slippageBps,
	}
}

func quoteField(b *quoteBuilder, field []byte, c *web2rpc.Cursor) web2rpc.Action {
	var err error

	switch {
	case web2rpc.FieldEquals("inputMint", field):
		b.inputMint = c.ReadString()
	case web2rpc.FieldEquals("inAmount", field):
		b.inAmount = c.ReadUint64()
	case web2rpc.FieldEquals("outputMint", field):
		b.outputMint = c.ReadString()
	case web2rpc.FieldEquals("outAmount", field):
		b.outAmount = c.ReadUint64()
	case web2rpc.FieldEquals("otherAmountThreshold", field):
		b.otherAmountThreshold = c.ReadUint64()
	case web2rpc.FieldEquals("swapMode", field):
		b.swapMode = readSwapMode(c)
	case web2rpc.FieldEquals("slippageBps", field):
		b.slippageBps = c.ReadInt()
	case web2rpc.FieldEquals("platformFee", field):
		b.platformFee, err = web2rpc.DecodeOptional(c, decodePlatformFee)
	case web2rpc.FieldEquals("priceImpactPct", field):
		b.priceImpactPct = c.ReadDecimalStripZeros()
	case web2rpc.FieldEquals("routePlan", field):
		b.routePlan, err = web2rpc.DecodeArray(c, DecodeRoute)
	case web2rpc.FieldEquals("contextSlot", field):
		b.contextSlot = c.ReadUint64()
	case web2rpc.FieldEquals("timeTaken", field):
		b.timeTaken = c.ReadFloat64()
	default:
		c.SkipUnknown(field)
	}

	c.Abort(err)

	return web2rpc.Continue
}

// DecodeQuote decodes a quote object. raw is stored in [Quote.Raw] as is.
func DecodeQuote(c *web2rpc.Cursor, raw []byte) (Quote, error) {
	b := quoteBuilder{raw: raw}

	if err := web2rpc.DecodeObject(c, &b, quoteField); err != nil {
		return Quote{}, err
	}

	return b.Build(), nil
}
