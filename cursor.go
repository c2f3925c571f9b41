package web2rpc

import (
	"bytes"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// DefaultMaxDepth bounds how deeply containers may nest.
const DefaultMaxDepth = 512

// Mark is a saved [Cursor] position, see [Cursor.Mark].
type Mark struct {
	pos   int
	value int
	depth int
}

// frame is an array or object entered through [Cursor.ReadArray] or
// [Cursor.ReadObjectField] and not yet closed.
type frame struct {
	keys    []byte // Unescaped field names at this level.
	value   int    // Offset of the current element or field value.
	closing byte
}

// UnknownFieldFunc receives fields that a dispatch function did not recognize.
// The field view is only valid for the duration of the call.
type UnknownFieldFunc func(field []byte, kind Kind, offset int)

// Cursor is a forward-only reader over a JSON document held in memory.
//
// Every read primitive consumes exactly one value and leaves the cursor just past it.
// Errors are sticky: the first failure is recorded and returned by [Cursor.Err], after
// which every primitive returns a zero value without moving.
//
// A Cursor borrows its buffer and must not be shared between goroutines.
type Cursor struct {
	buf       []byte
	err       error
	onUnknown UnknownFieldFunc
	scratch   []byte // Unescaped string values.
	frames    []frame
	pos       int
	maxDepth  int
}

// NewCursor returns a [*Cursor] positioned at the start of buf.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf, maxDepth: DefaultMaxDepth}
}

// SetMaxDepth sets the nesting limit for containers, both skipped and entered.
// Values below 1 restore [DefaultMaxDepth].
func (c *Cursor) SetMaxDepth(n int) {
	if n < 1 {
		n = DefaultMaxDepth
	}

	c.maxDepth = n
}

// OnUnknownField installs fn as the receiver of fields passed to [Cursor.SkipUnknown].
// A nil fn disables reporting.
func (c *Cursor) OnUnknownField(fn UnknownFieldFunc) {
	c.onUnknown = fn
}

// Offset returns the current byte offset.
func (c *Cursor) Offset() int {
	return c.pos
}

// Err returns the first error encountered, if any. It is always a [*DecodeError].
func (c *Cursor) Err() error {
	return c.err
}

// Mark saves the current position, including the containers entered so far.
func (c *Cursor) Mark() Mark {
	m := Mark{pos: c.pos, depth: len(c.frames)}
	if m.depth > 0 {
		m.value = c.frames[m.depth-1].value
	}

	return m
}

// Reset moves the cursor back to m. It is the only way the offset decreases.
// Reset has no effect once an error has been recorded.
//
// Containers entered after m was taken are forgotten. When the container m was
// taken in has since been closed, only whole values may be read from m.
func (c *Cursor) Reset(m Mark) {
	if c.err != nil || m.pos < 0 || m.pos > len(c.buf) {
		return
	}

	c.pos = m.pos

	if len(c.frames) >= m.depth {
		c.frames = c.frames[:m.depth]

		if m.depth > 0 {
			c.frames[m.depth-1].value = m.value
		}
	}
}

// Finish checks that the document has been read to its end: every container entered
// has been closed and nothing but whitespace follows. It returns the cursor's error.
func (c *Cursor) Finish() error {
	if c.err != nil {
		return c.err
	}

	if n := len(c.frames); n > 0 {
		c.fail("',' or " + strconv.QuoteRune(rune(c.frames[n-1].closing)))
		return c.err
	}

	if _, ok := c.peek(); ok {
		c.fail("end of input")
	}

	return c.err
}

// NextKind reports the [Kind] of the next value without consuming it.
func (c *Cursor) NextKind() Kind {
	if c.err != nil {
		return KindInvalid
	}

	b, ok := c.peek()
	if !ok {
		return KindInvalid
	}

	return KindOf(b)
}

// ReadArray advances to the next element of an array.
//
// Call it once to enter the array and again after each element has been consumed.
// It returns false once the closing bracket has been consumed. A null value reads
// as an empty array.
//
//	for c.ReadArray() {
//		v := c.ReadString()
//	}
func (c *Cursor) ReadArray() bool {
	if c.err != nil {
		return false
	}

	if c.continuing() {
		return c.advance(']', "array")
	}

	b, ok := c.peek()

	switch {
	case !ok:
		c.fail("array")
		return false
	case b == 'n':
		c.literal("null")
		return false
	case b != '[':
		c.fail("'[' or null")
		return false
	}

	if !c.enter(']') {
		return false
	}

	if nb, ok := c.peek(); ok && nb == ']' {
		c.pos++
		c.frames = c.frames[:len(c.frames)-1]

		return false
	}

	c.element()

	return true
}

// ReadObjectField advances to the next field of an object and returns its name,
// leaving the cursor at the field's value. It returns nil once the closing brace has
// been consumed, or on error. A null value reads as an empty object.
//
// The returned name aliases the buffer, or scratch space owned by the object when the
// name contains escapes. It remains valid until the next call to ReadObjectField on the
// same object; reading nested objects does not disturb it.
func (c *Cursor) ReadObjectField() []byte {
	if c.err != nil {
		return nil
	}

	if c.continuing() {
		if !c.advance('}', "object") {
			return nil
		}
	} else {
		b, ok := c.peek()

		switch {
		case !ok:
			c.fail("object")
			return nil
		case b == 'n':
			c.literal("null")
			return nil
		case b != '{':
			c.fail("'{' or null")
			return nil
		}

		if !c.enter('}') {
			return nil
		}

		if nb, ok := c.peek(); ok && nb == '}' {
			c.pos++
			c.frames = c.frames[:len(c.frames)-1]

			return nil
		}
	}

	if b, ok := c.peek(); !ok || b != '"' {
		c.fail("field name")
		return nil
	}

	f := &c.frames[len(c.frames)-1]

	name := c.stringBytes(&f.keys)
	if c.err != nil {
		return nil
	}

	if b, ok := c.peek(); !ok || b != ':' {
		c.fail("':'")
		return nil
	}

	c.pos++
	c.element()

	return name
}

// continuing reports whether a value has been consumed in the innermost open
// container since it last advanced. Only a separator or the closing bracket may follow.
func (c *Cursor) continuing() bool {
	n := len(c.frames)
	return n > 0 && c.pos != c.frames[n-1].value
}

// enter consumes an opening bracket and opens a frame closed by closing.
func (c *Cursor) enter(closing byte) bool {
	n := len(c.frames)
	if n >= c.maxDepth {
		c.fail("nesting within depth limit")
		return false
	}

	c.pos++

	if n < cap(c.frames) {
		c.frames = c.frames[:n+1]
	} else {
		c.frames = append(c.frames, frame{})
	}

	c.frames[n].closing = closing

	return true
}

// element records the start of the next value in the innermost frame.
func (c *Cursor) element() {
	c.skipSpace()
	c.frames[len(c.frames)-1].value = c.pos
}

// advance consumes what follows a value in the innermost frame. It reports true after a
// ',' and false after the closing bracket, which also closes the frame.
func (c *Cursor) advance(closing byte, kind string) bool {
	n := len(c.frames)
	if c.frames[n-1].closing != closing {
		c.fail(kind)
		return false
	}

	b, ok := c.peek()

	switch {
	case ok && b == ',':
		c.pos++
		c.element()

		return true
	case ok && b == closing:
		c.pos++
		c.frames = c.frames[:n-1]

		return false
	}

	c.fail("',' or " + strconv.QuoteRune(rune(closing)))

	return false
}

// Skip consumes the next value of any kind, including nested containers.
func (c *Cursor) Skip() {
	if c.err != nil {
		return
	}

	c.skipValue(0)
}

// SkipUnknown consumes the value of a field the caller did not recognize and reports
// it to the hook installed with [Cursor.OnUnknownField].
func (c *Cursor) SkipUnknown(field []byte) {
	if c.err != nil {
		return
	}

	kind := c.NextKind()
	offset := c.pos

	c.skipValue(0)

	if c.err == nil {
		c.ReportUnknownField(field, kind, offset)
	}
}

// ReportUnknownField forwards an unrecognized field to the installed hook without
// touching the cursor. It is meant for dispatch functions that consume unknown
// values themselves.
func (c *Cursor) ReportUnknownField(field []byte, kind Kind, offset int) {
	if c.onUnknown != nil {
		c.onUnknown(field, kind, offset)
	}
}

// SkipUntil skips fields of the current object until one named field is found and
// leaves the cursor at its value. It returns false, having consumed the rest of the
// object, when no such field exists.
//
// It is typically used to unwrap an envelope such as {"data": {...}}.
func (c *Cursor) SkipUntil(field string) bool {
	for f := c.ReadObjectField(); f != nil; f = c.ReadObjectField() {
		if FieldEquals(field, f) {
			return true
		}

		c.Skip()
	}

	return false
}

// Missing records a [DecodeError] for a required field that was not found, and
// returns it.
func (c *Cursor) Missing(field string) error {
	c.fail("field " + strconv.Quote(field))
	return c.err
}

// Fail records a [DecodeError] at the current offset with the given expectation,
// and returns the cursor's error. It is for dispatch functions that find a value of
// the right kind but with unusable contents.
func (c *Cursor) Fail(expected string) error {
	c.fail(expected)
	return c.err
}

// Abort records err as the cursor's error so that an enclosing [DecodeObject] or
// [DecodeArray] stops. It is for dispatch functions whose nested decode failed.
// A nil err, or one recorded after the cursor already failed, is ignored.
func (c *Cursor) Abort(err error) {
	if err == nil || c.err != nil {
		return
	}

	c.err = &DecodeError{Err: err, Offset: c.pos}
}

func (c *Cursor) fail(expected string) {
	c.failAt(c.pos, expected)
}

func (c *Cursor) failAt(pos int, expected string) {
	if c.err != nil {
		return
	}

	found := "end of input"
	if pos < len(c.buf) {
		found = strconv.QuoteRuneToASCII(rune(c.buf[pos]))
	}

	c.err = &DecodeError{Offset: pos, Expected: expected, Found: found}
}

func (c *Cursor) skipSpace() {
	for c.pos < len(c.buf) && isSpace(c.buf[c.pos]) {
		c.pos++
	}
}

func (c *Cursor) peek() (byte, bool) {
	if c.err != nil {
		return 0, false
	}

	c.skipSpace()

	if c.pos >= len(c.buf) {
		return 0, false
	}

	return c.buf[c.pos], true
}

func (c *Cursor) literal(lit string) bool {
	if len(c.buf)-c.pos >= len(lit) && string(c.buf[c.pos:c.pos+len(lit)]) == lit {
		c.pos += len(lit)
		return true
	}

	c.fail(lit)

	return false
}

func (c *Cursor) skipValue(depth int) {
	b, ok := c.peek()
	if !ok {
		c.fail("value")
		return
	}

	switch b {
	case '"':
		c.skipString()
	case '{', '[':
		if depth >= c.maxDepth {
			c.fail("nesting within depth limit")
			return
		}

		c.skipContainer(b, depth)
	case 't':
		c.literal("true")
	case 'f':
		c.literal("false")
	case 'n':
		c.literal("null")
	default:
		n := scanNumber(c.buf[c.pos:])
		if n == 0 {
			c.fail("value")
			return
		}

		c.pos += n
	}
}

func (c *Cursor) skipContainer(open byte, depth int) {
	closing := byte(']')
	if open == '{' {
		closing = '}'
	}

	c.pos++

	if b, ok := c.peek(); ok && b == closing {
		c.pos++
		return
	}

	for {
		if open == '{' {
			if b, ok := c.peek(); !ok || b != '"' {
				c.fail("field name")
				return
			}

			c.skipString()

			if b, ok := c.peek(); !ok || b != ':' {
				c.fail("':'")
				return
			}

			c.pos++
		}

		c.skipValue(depth + 1)

		if c.err != nil {
			return
		}

		b, ok := c.peek()

		switch {
		case ok && b == ',':
			c.pos++
		case ok && b == closing:
			c.pos++
			return
		default:
			c.fail("',' or " + strconv.QuoteRune(rune(closing)))
			return
		}
	}
}

func (c *Cursor) skipString() {
	if c.err != nil {
		return
	}

	for i := c.pos + 1; i < len(c.buf); i++ {
		switch b := c.buf[i]; {
		case b == '"':
			c.pos = i + 1
			return
		case b == '\\':
			i++
		case b < 0x20:
			c.failAt(i, "string character")
			return
		}
	}

	c.failAt(len(c.buf), "closing '\"'")
}

// stringBytes consumes the string at the cursor and returns its decoded contents.
// The result aliases the buffer, or *scratch when the string contains escapes.
func (c *Cursor) stringBytes(scratch *[]byte) []byte {
	start := c.pos + 1
	ascii := true

	for i := start; i < len(c.buf); i++ {
		switch b := c.buf[i]; {
		case b == '"':
			s := c.buf[start:i]
			if !ascii && !utf8.Valid(s) {
				c.failAt(start, "valid UTF-8")
				return nil
			}

			c.pos = i + 1

			return s
		case b == '\\':
			return c.unescape(scratch, start, i)
		case b < 0x20:
			c.failAt(i, "string character")
			return nil
		case b >= utf8.RuneSelf:
			ascii = false
		}
	}

	c.failAt(len(c.buf), "closing '\"'")

	return nil
}

func (c *Cursor) unescape(scratch *[]byte, start, i int) []byte {
	out := append((*scratch)[:0], c.buf[start:i]...)

	for i < len(c.buf) {
		b := c.buf[i]

		switch {
		case b == '"':
			*scratch = out

			if !utf8.Valid(out) {
				c.failAt(start, "valid UTF-8")
				return nil
			}

			c.pos = i + 1

			return out
		case b == '\\':
			if i+1 >= len(c.buf) {
				c.failAt(len(c.buf), "escape sequence")
				return nil
			}

			switch e := c.buf[i+1]; e {
			case '"', '\\', '/':
				out = append(out, e)
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'u':
				r, n := unicodeEscape(c.buf[i:])
				if n < 0 {
					c.failAt(i, "\\u escape with four hex digits")
					return nil
				}

				out = utf8.AppendRune(out, r)
				i += n

				continue
			default:
				c.failAt(i, "valid escape sequence")
				return nil
			}

			i += 2
		case b < 0x20:
			c.failAt(i, "string character")
			return nil
		default:
			out = append(out, b)
			i++
		}
	}

	*scratch = out
	c.failAt(len(c.buf), "closing '\"'")

	return nil
}

// unicodeEscape decodes a \uXXXX escape at the start of b, joining surrogate pairs.
// It returns the rune and the number of bytes consumed, or -1 if b is not a valid escape.
// Unpaired surrogates decode to U+FFFD.
func unicodeEscape(b []byte) (rune, int) {
	r, ok := hex4(b[2:])
	if !ok {
		return 0, -1
	}

	if !utf16.IsSurrogate(r) {
		return r, 6
	}

	if len(b) >= 12 && b[6] == '\\' && b[7] == 'u' {
		if r2, ok := hex4(b[8:]); ok {
			if dec := utf16.DecodeRune(r, r2); dec != utf8.RuneError {
				return dec, 12
			}
		}
	}

	return utf8.RuneError, 6
}

func hex4(b []byte) (rune, bool) {
	if len(b) < 4 {
		return 0, false
	}

	var r rune

	for _, h := range b[:4] {
		r <<= 4

		switch {
		case '0' <= h && h <= '9':
			r |= rune(h - '0')
		case 'a' <= h && h <= 'f':
			r |= rune(h - 'a' + 10)
		case 'A' <= h && h <= 'F':
			r |= rune(h - 'A' + 10)
		default:
			return 0, false
		}
	}

	return r, true
}

// scanNumber returns the length of the JSON number at the start of b, or 0 if b
// does not start with one.
func scanNumber(b []byte) int {
	i := 0

	if i < len(b) && b[i] == '-' {
		i++
	}

	switch {
	case i >= len(b):
		return 0
	case b[i] == '0':
		i++
	case '1' <= b[i] && b[i] <= '9':
		for i < len(b) && isDigit(b[i]) {
			i++
		}
	default:
		return 0
	}

	if i < len(b) && b[i] == '.' {
		i++
		d := i

		for i < len(b) && isDigit(b[i]) {
			i++
		}

		if i == d {
			return 0
		}
	}

	if i < len(b) && (b[i] == 'e' || b[i] == 'E') {
		i++

		if i < len(b) && (b[i] == '+' || b[i] == '-') {
			i++
		}

		d := i

		for i < len(b) && isDigit(b[i]) {
			i++
		}

		if i == d {
			return 0
		}
	}

	return i
}

// rawValue consumes the next value and returns the bytes it spans in the buffer.
func (c *Cursor) rawValue() []byte {
	if c.err != nil {
		return nil
	}

	c.skipSpace()
	start := c.pos
	c.skipValue(0)

	if c.err != nil {
		return nil
	}

	return c.buf[start:c.pos]
}

// ReadRaw consumes the next value and returns a copy of its raw JSON text.
func (c *Cursor) ReadRaw() []byte {
	return bytes.Clone(c.rawValue())
}
