package jito

import (
	"github.com/rrb3942/web2rpc"
)

// Commitment is the confirmation level a bundle has reached.
type Commitment string

const (
	Processed Commitment = "processed"
	Confirmed Commitment = "confirmed"
	Finalized Commitment = "finalized"
)

var commitments = [...]Commitment{Processed, Confirmed, Finalized}

// readCommitment matches case-insensitively. Blank and null read as "".
func readCommitment(c *web2rpc.Cursor) Commitment {
	v := c.ReadStringBytes()
	if len(v) == 0 {
		return ""
	}

	for _, s := range commitments {
		if web2rpc.FieldEqualsFold(string(s), v) {
			return s
		}
	}

	_ = c.Fail("commitment processed, confirmed or finalized")

	return ""
}

// BundleStatus is the landing status of a bundle.
type BundleStatus struct {
	// Unhandled holds fields this package does not know, by name. Strings are kept as
	// is, everything else as a shortened copy of its JSON text.
	Unhandled          map[string]string
	BundleID           string
	ConfirmationStatus Commitment
	Transactions       []string
	// Err is the raw "err" member. It is nil when the member is absent or null.
	Err  []byte
	Slot uint64
}

type bundleStatusBuilder struct {
	unhandled          map[string]string
	bundleID           string
	confirmationStatus Commitment
	transactions       []string
	err                []byte
	slot               uint64
}

func (b *bundleStatusBuilder) Build() BundleStatus {
	txs := b.transactions
	if txs == nil {
		txs = []string{}
	}

	return BundleStatus{
		Unhandled:          b.unhandled,
		BundleID:           b.bundleID,
		ConfirmationStatus: b.confirmationStatus,
		Transactions:       txs,
		Err:                b.err,
		Slot:               b.slot,
	}
}

func bundleStatusField(b *bundleStatusBuilder, field []byte, c *web2rpc.Cursor) web2rpc.Action {
	switch {
	case web2rpc.FieldEquals("bundle_id", field):
		b.bundleID = c.ReadString()
	case web2rpc.FieldEquals("transactions", field):
		var err error

		b.transactions, err = web2rpc.ReadStrings(c)
		c.Abort(err)
	case web2rpc.FieldEquals("slot", field):
		b.slot = c.ReadUint64()
	case web2rpc.FieldEquals("err", field):
		if !c.ReadNull() {
			b.err = c.ReadRaw()
		}
	case web2rpc.FieldEquals("confirmationStatus", field), web2rpc.FieldEquals("confirmation_status", field):
		b.confirmationStatus = readCommitment(c)
	default:
		b.keepUnhandled(field, c)
	}

	return web2rpc.Continue
}

func (b *bundleStatusBuilder) keepUnhandled(field []byte, c *web2rpc.Cursor) {
	kind := c.NextKind()
	offset := c.Offset()

	var v string
	if kind == web2rpc.KindString {
		v = c.ReadString()
	} else {
		v = c.ReadValueSummary()
	}

	if c.Err() != nil {
		return
	}

	if b.unhandled == nil {
		b.unhandled = make(map[string]string)
	}

	b.unhandled[string(field)] = v
	c.ReportUnknownField(field, kind, offset)
}

// DecodeBundleStatus decodes one bundle status object.
func DecodeBundleStatus(c *web2rpc.Cursor) (BundleStatus, error) {
	return web2rpc.DecodeRecord[BundleStatus](c, bundleStatusField)
}

// DecodeBundleStatusList decodes an array of bundle statuses. Elements that are not
// objects, such as the null returned for unknown bundles, are skipped.
func DecodeBundleStatusList(c *web2rpc.Cursor) ([]BundleStatus, error) {
	out := []BundleStatus{}

	for c.ReadArray() {
		if c.NextKind() != web2rpc.KindObject {
			c.Skip()
			continue
		}

		s, err := DecodeBundleStatus(c)
		if err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	if err := c.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// Statuses is the result of a bundle status lookup, keyed by bundle id.
type Statuses struct {
	ByID    map[string]BundleStatus
	Context web2rpc.RPCContext
}

func newStatuses(list []BundleStatus, rpc web2rpc.RPCContext) Statuses {
	s := Statuses{ByID: make(map[string]BundleStatus, len(list)), Context: rpc}
	for _, st := range list {
		s.ByID[st.BundleID] = st
	}

	return s
}
