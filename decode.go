package web2rpc

import (
	"strconv"
)

// Action is returned by field dispatch functions to control object iteration.
type Action int

const (
	Continue Action = iota // Continue with the next field.
	Stop                   // Skip the remaining fields of the object.
)

// FieldEquals reports whether field is exactly name. It does not allocate.
func FieldEquals(name string, field []byte) bool {
	return len(name) == len(field) && string(field) == name
}

// FieldEqualsFold is [FieldEquals] ignoring ASCII case.
func FieldEqualsFold(name string, field []byte) bool {
	if len(name) != len(field) {
		return false
	}

	for i := range len(field) {
		if lower(name[i]) != lower(field[i]) {
			return false
		}
	}

	return true
}

func lower(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}

	return b
}

// DecodeObject iterates the fields of the object at the cursor and calls fn once per field,
// in wire order, with the builder b.
//
// fn must consume exactly one value from the cursor on every call, using a read primitive,
// a nested decode or [Cursor.SkipUnknown] for fields it does not recognize. A call that
// consumes nothing fails decoding. When fn returns [Stop] the remaining fields are skipped,
// so the cursor always ends up just past the object.
//
//	err := web2rpc.DecodeObject(c, &b, func(b *tokenBuilder, field []byte, c *web2rpc.Cursor) web2rpc.Action {
//		switch {
//		case web2rpc.FieldEquals("symbol", field):
//			b.symbol = c.ReadString()
//		default:
//			c.SkipUnknown(field)
//		}
//		return web2rpc.Continue
//	})
func DecodeObject[B any](c *Cursor, b *B, fn func(b *B, field []byte, c *Cursor) Action) error {
	for field := c.ReadObjectField(); field != nil; field = c.ReadObjectField() {
		start := c.pos
		act := fn(b, field, c)

		if c.err != nil {
			return c.err
		}

		if c.pos == start {
			c.fail("value for field " + strconv.Quote(string(field)) + " to be consumed")
			return c.err
		}

		if act == Stop {
			for f := c.ReadObjectField(); f != nil; f = c.ReadObjectField() {
				c.Skip()
			}

			break
		}
	}

	return c.err
}

// DecodeObjectWith is [DecodeObject] with an extra context value passed through to fn,
// for data that is not part of the object itself.
func DecodeObjectWith[B, X any](c *Cursor, b *B, ctx X, fn func(b *B, ctx X, field []byte, c *Cursor) Action) error {
	return DecodeObject(c, b, func(b *B, field []byte, c *Cursor) Action {
		return fn(b, ctx, field, c)
	})
}

// DecodeRecord decodes the object at the cursor into a fresh builder of type B and returns
// the record built from it. The builder never escapes.
//
//	tok, err := web2rpc.DecodeRecord[Token](c, tokenField)
func DecodeRecord[T, B any, PB interface {
	*B
	Build() T
}](c *Cursor, fn func(b *B, field []byte, c *Cursor) Action) (T, error) {
	var b B

	if err := DecodeObject(c, &b, fn); err != nil {
		var zero T
		return zero, err
	}

	return PB(&b).Build(), nil
}

// DecodeRecordWith is [DecodeRecord] with a context value, see [DecodeObjectWith].
func DecodeRecordWith[T, B, X any, PB interface {
	*B
	Build() T
}](c *Cursor, ctx X, fn func(b *B, ctx X, field []byte, c *Cursor) Action) (T, error) {
	var b B

	if err := DecodeObjectWith(c, &b, ctx, fn); err != nil {
		var zero T
		return zero, err
	}

	return PB(&b).Build(), nil
}

// DecodeArray decodes every element of the array at the cursor with elem.
// Empty and null arrays decode to an empty, non-nil slice.
func DecodeArray[T any](c *Cursor, elem func(c *Cursor) (T, error)) ([]T, error) {
	out := []T{}

	for c.ReadArray() {
		start := c.pos

		v, err := elem(c)
		if err != nil {
			return nil, err
		}

		if c.pos == start {
			c.fail("array element to be consumed")
			return nil, c.err
		}

		out = append(out, v)
	}

	if c.err != nil {
		return nil, c.err
	}

	return out, nil
}

// DecodeMap decodes an object used as a map. key converts each field name, elem decodes each value.
// A null object decodes to an empty, non-nil map.
func DecodeMap[K comparable, V any](c *Cursor, key func(field []byte) (K, error), elem func(c *Cursor) (V, error)) (map[K]V, error) {
	out := make(map[K]V)

	for field := c.ReadObjectField(); field != nil; field = c.ReadObjectField() {
		k, err := key(field)
		if err != nil {
			return nil, err
		}

		v, err := elem(c)
		if err != nil {
			return nil, err
		}

		out[k] = v
	}

	if c.err != nil {
		return nil, c.err
	}

	return out, nil
}

// StringKey is a [DecodeMap] key function that copies the field name.
func StringKey(field []byte) (string, error) {
	return string(field), nil
}

// DecodeOptional decodes a nullable value. It returns nil if the next value is null.
func DecodeOptional[T any](c *Cursor, fn func(c *Cursor) (T, error)) (*T, error) {
	if c.ReadNull() {
		return nil, nil //nolint:nilnil //Null is a valid absence
	}

	v, err := fn(c)
	if err != nil {
		return nil, err
	}

	return &v, nil
}

// ReadStrings decodes an array of strings.
func ReadStrings(c *Cursor) ([]string, error) {
	return DecodeArray(c, func(c *Cursor) (string, error) {
		return c.ReadString(), c.Err()
	})
}

// Envelope returns a decode function that unwraps a payload carried in the named field
// of an enclosing object, such as {"data": {...}}. Sibling fields are skipped. A missing
// field is a [*DecodeError].
func Envelope[T any](field string, fn func(c *Cursor) (T, error)) func(c *Cursor) (T, error) {
	return func(c *Cursor) (T, error) {
		var zero T

		if !c.SkipUntil(field) {
			if c.err != nil {
				return zero, c.err
			}

			return zero, c.Missing(field)
		}

		v, err := fn(c)
		if err != nil {
			return zero, err
		}

		for f := c.ReadObjectField(); f != nil; f = c.ReadObjectField() {
			c.Skip()
		}

		if c.err != nil {
			return zero, c.err
		}

		return v, nil
	}
}
