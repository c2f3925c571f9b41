package jupiter

import (
	"errors"
	"fmt"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/rrb3942/web2rpc"
)

var (
	ErrMissingQuote   = errors.New("jupiter: swap request has no raw quote")
	ErrDuplicateLabel = errors.New("jupiter: duplicate case insensitive program label")
)

// SwapRequest builds the body of a swap or swap-instructions call. Zero values are
// left out so the service defaults apply.
type SwapRequest struct {
	WrapAndUnwrapSOL              *bool  `json:"wrapAndUnwrapSol,omitempty"`
	UseSharedAccounts             *bool  `json:"useSharedAccounts,omitempty"`
	UserPublicKey                 string `json:"userPublicKey"`
	FeeAccount                    string `json:"feeAccount,omitempty"`
	DestinationTokenAccount       string `json:"destinationTokenAccount,omitempty"`
	ComputeUnitPriceMicroLamports uint64 `json:"computeUnitPriceMicroLamports,omitempty"`
	PrioritizationFeeLamports     uint64 `json:"prioritizationFeeLamports,omitempty"`
	AsLegacyTransaction           bool   `json:"asLegacyTransaction,omitempty"`
	RestrictIntermediateTokens    bool   `json:"restrictIntermediateTokens,omitempty"`
	UseTokenLedger                bool   `json:"useTokenLedger,omitempty"`
	SkipUserAccountsRPCCalls      bool   `json:"skipUserAccountsRpcCalls,omitempty"`
}

// Body encodes the request with quote's raw response as "quoteResponse".
func (r SwapRequest) Body(quote Quote) ([]byte, error) {
	if len(quote.Raw) == 0 {
		return nil, ErrMissingQuote
	}

	return web2rpc.Marshal(struct {
		SwapRequest
		QuoteResponse gojson.RawMessage `json:"quoteResponse"`
	}{r, quote.Raw})
}

// SwapTx is a serialized swap transaction ready to be signed.
type SwapTx struct {
	Transaction          []byte
	Base64               string
	LastValidBlockHeight uint64
}

type swapTxBuilder struct {
	transaction          []byte
	base64               string
	lastValidBlockHeight uint64
}

func (b *swapTxBuilder) Build() SwapTx {
	return SwapTx{Transaction: b.transaction, Base64: b.base64, LastValidBlockHeight: b.lastValidBlockHeight}
}

func swapTxField(b *swapTxBuilder, field []byte, c *web2rpc.Cursor) web2rpc.Action {
	switch {
	case web2rpc.FieldEquals("swapTransaction", field):
		mark := c.Mark()
		b.base64 = c.ReadString()
		end := c.Mark()

		c.Reset(mark)
		b.transaction = c.ReadBase64()
		c.Reset(end)
	case web2rpc.FieldEquals("lastValidBlockHeight", field):
		b.lastValidBlockHeight = c.ReadUint64()
	default:
		c.SkipUnknown(field)
	}

	return web2rpc.Continue
}

// DecodeSwapTx decodes a swap response.
func DecodeSwapTx(c *web2rpc.Cursor) (SwapTx, error) {
	return web2rpc.DecodeRecord[SwapTx](c, swapTxField)
}

// ProgramLabels maps a program label to its program id.
type ProgramLabels map[string]string

// Program returns the program id for label, ignoring case.
func (l ProgramLabels) Program(label string) (string, bool) {
	if id, ok := l[label]; ok {
		return id, true
	}

	for k, id := range l {
		if strings.EqualFold(k, label) {
			return id, true
		}
	}

	return "", false
}

// DecodeProgramLabels decodes an object of program id to label. Two labels that differ
// only by case are rejected.
func DecodeProgramLabels(c *web2rpc.Cursor) (ProgramLabels, error) {
	byProgram, err := web2rpc.DecodeMap(c, web2rpc.StringKey, func(c *web2rpc.Cursor) (string, error) {
		return c.ReadString(), c.Err()
	})
	if err != nil {
		return nil, err
	}

	labels := make(ProgramLabels, len(byProgram))
	seen := make(map[string]string, len(byProgram))

	for program, label := range byProgram {
		folded := strings.ToLower(label)
		if prev, ok := seen[folded]; ok {
			return nil, fmt.Errorf("%w: %q and %q", ErrDuplicateLabel, prev, label)
		}

		seen[folded] = label
		labels[label] = program
	}

	return labels, nil
}
