package web2rpc

// Kind classifies the next JSON value under a [Cursor] by its first
// non-whitespace byte.
//
// Note: This is only a hint and does not guarantee that the value which follows
// is well formed.
type Kind int

const (
	KindInvalid Kind = iota // End of input or a byte that cannot start a JSON value.
	KindString              // Starts with '"'.
	KindNumber              // Starts with '-' or '0'-'9'.
	KindBool                // Starts with 't' or 'f'.
	KindNull                // Starts with 'n'.
	KindArray               // Starts with '['.
	KindObject              // Starts with '{'.
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}

	return "invalid"
}

// KindOf returns the [Kind] of a value starting with b.
func KindOf(b byte) Kind {
	switch b {
	case '"':
		return KindString
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return KindNumber
	case 't', 'f':
		return KindBool
	case 'n':
		return KindNull
	case '[':
		return KindArray
	case '{':
		return KindObject
	}

	return KindInvalid
}

// HintKind examines the first non-whitespace byte of m and reports the [Kind]
// of the value it starts. It returns [KindInvalid] for empty input.
//
// This function provides a fast check but does not validate the entire JSON structure.
func HintKind(m []byte) Kind {
	for _, b := range m {
		if !isSpace(b) {
			return KindOf(b)
		}
	}

	return KindInvalid
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isDigit(b byte) bool {
	return '0' <= b && b <= '9'
}
