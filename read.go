package web2rpc

import (
	"encoding/base64"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"
)

// summaryLimit caps the text returned by [Cursor.ReadValueSummary].
const summaryLimit = 64

// numberText consumes a number, a quoted number or null. It returns the number's
// text, or nil for null or on error.
func (c *Cursor) numberText() ([]byte, int) {
	b, ok := c.peek()
	start := c.pos

	switch {
	case c.err != nil:
		return nil, start
	case !ok:
		c.fail("number")
		return nil, start
	case b == 'n':
		c.literal("null")
		return nil, start
	case b == '"':
		text := c.stringBytes(&c.scratch)
		if c.err != nil {
			return nil, start
		}

		if len(text) == 0 || scanNumber(text) != len(text) {
			c.failAt(start, "quoted number")
			return nil, start
		}

		return text, start
	}

	n := scanNumber(c.buf[c.pos:])
	if n == 0 {
		c.fail("number")
		return nil, start
	}

	c.pos += n

	return c.buf[start:c.pos], start
}

func (c *Cursor) readInt(bits int, expected string) int64 {
	text, start := c.numberText()
	if text == nil {
		return 0
	}

	v, err := strconv.ParseInt(string(text), 10, bits)
	if err != nil {
		c.failAt(start, expected)
		return 0
	}

	return v
}

// ReadInt consumes an integer that fits in an int.
func (c *Cursor) ReadInt() int {
	return int(c.readInt(strconv.IntSize, "int"))
}

// ReadInt32 consumes an integer that fits in an int32.
func (c *Cursor) ReadInt32() int32 {
	return int32(c.readInt(32, "int32")) //nolint:gosec //Range checked by ParseInt
}

// ReadInt64 consumes an integer that fits in an int64.
func (c *Cursor) ReadInt64() int64 {
	return c.readInt(64, "int64")
}

// ReadUint64 consumes a non-negative integer that fits in a uint64.
func (c *Cursor) ReadUint64() uint64 {
	text, start := c.numberText()
	if text == nil {
		return 0
	}

	v, err := strconv.ParseUint(string(text), 10, 64)
	if err != nil {
		c.failAt(start, "uint64")
		return 0
	}

	return v
}

// ReadFloat64 consumes a number as a float64.
func (c *Cursor) ReadFloat64() float64 {
	text, start := c.numberText()
	if text == nil {
		return 0
	}

	v, err := strconv.ParseFloat(string(text), 64)
	if err != nil {
		c.failAt(start, "float64")
		return 0
	}

	return v
}

// ReadBigInt consumes an integer of any size. It returns nil for null.
func (c *Cursor) ReadBigInt() *big.Int {
	text, start := c.numberText()
	if text == nil {
		return nil
	}

	v, ok := new(big.Int).SetString(string(text), 10)
	if !ok {
		c.failAt(start, "integer")
		return nil
	}

	return v
}

// ReadDecimal consumes a number as an arbitrary-precision decimal, preserving its scale.
// "1.50000" keeps an exponent of -5.
func (c *Cursor) ReadDecimal() decimal.Decimal {
	text, start := c.numberText()
	if text == nil {
		return decimal.Zero
	}

	v, err := decimal.NewFromString(string(text))
	if err != nil {
		c.failAt(start, "decimal")
		return decimal.Zero
	}

	return v
}

// ReadDecimalStripZeros is [Cursor.ReadDecimal] with trailing fractional zeros removed,
// for services that pad decimals inconsistently. "1.50000" reads as 1.5 and "100" is unchanged.
func (c *Cursor) ReadDecimalStripZeros() decimal.Decimal {
	return StripZeros(c.ReadDecimal())
}

// StripZeros removes trailing zeros from the fractional part of d.
func StripZeros(d decimal.Decimal) decimal.Decimal {
	exp := d.Exponent()
	if exp >= 0 {
		return d
	}

	coef := d.Coefficient()
	ten := big.NewInt(10)
	q, r := new(big.Int), new(big.Int)

	for exp < 0 {
		q.QuoRem(coef, ten, r)
		if r.Sign() != 0 {
			break
		}

		coef, q = q, coef
		exp++
	}

	return decimal.NewFromBigInt(coef, exp)
}

// ReadNumberString consumes a number and returns its text unparsed. Quoted numbers
// are unquoted. It returns "" for null.
func (c *Cursor) ReadNumberString() string {
	text, _ := c.numberText()
	return string(text)
}

// ReadStringBytes consumes a string and returns a view of its contents. The view
// aliases the buffer or the cursor's scratch space and is valid until the next read.
// It returns nil for null.
func (c *Cursor) ReadStringBytes() []byte {
	b, ok := c.peek()

	switch {
	case c.err != nil:
		return nil
	case ok && b == '"':
		return c.stringBytes(&c.scratch)
	case ok && b == 'n':
		c.literal("null")
		return nil
	}

	c.fail("string")

	return nil
}

// ReadString consumes a string. It returns "" for null.
func (c *Cursor) ReadString() string {
	return string(c.ReadStringBytes())
}

// ReadBool consumes a boolean. It returns false for null.
func (c *Cursor) ReadBool() bool {
	b, ok := c.peek()

	switch {
	case c.err != nil:
		return false
	case ok && b == 't':
		return c.literal("true")
	case ok && b == 'f':
		c.literal("false")
		return false
	case ok && b == 'n':
		c.literal("null")
		return false
	}

	c.fail("boolean")

	return false
}

// ReadBase64 consumes a base64 string and returns the decoded bytes. Padded and
// unpadded standard encodings are accepted. It returns nil for null.
func (c *Cursor) ReadBase64() []byte {
	if _, ok := c.peek(); !ok {
		c.fail("base64 string")
		return nil
	}

	start := c.pos

	text := c.ReadStringBytes()
	if text == nil {
		return nil
	}

	out, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		out, err = base64.RawStdEncoding.DecodeString(string(text))
	}

	if err != nil {
		c.failAt(start, "base64 string")
		return nil
	}

	return out
}

// ReadNull consumes the next value if it is null and reports whether it did.
// Any other value is left in place.
func (c *Cursor) ReadNull() bool {
	if c.NextKind() != KindNull {
		return false
	}

	return c.literal("null")
}

// ReadValueSummary consumes the next value and returns its raw text, shortened for
// use in diagnostics.
func (c *Cursor) ReadValueSummary() string {
	raw := c.rawValue()
	if len(raw) > summaryLimit {
		return string(raw[:summaryLimit]) + "..."
	}

	return string(raw)
}
