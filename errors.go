package marshal

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrTruncated          = errors.New("marshal: truncated data")
	ErrUnknownKind        = errors.New("marshal: unknown type code")
	ErrInvalidReference   = errors.New("marshal: bad marshal data (invalid reference)")
	ErrUnexpectedNull     = errors.New("marshal: unexpected NULL object")
	ErrUnexpectedObject   = errors.New("marshal: unexpected object")
	ErrUnhashable         = errors.New("marshal: unhashable value")
	ErrDepthLimit         = errors.New("marshal: maximum recursion depth exceeded")
	ErrRecursiveStore     = errors.New("marshal: store reference re-enters its own definition")
	ErrVersionMismatch    = errors.New("marshal: code object version does not match target version")
	ErrUnsupportedMagic   = errors.New("marshal: unsupported magic number")
	ErrUnsupportedVersion = errors.New("marshal: unsupported version")
	ErrBadHeader          = errors.New("marshal: bad pyc header")
)

// ErrCorrupt is returned if the marshal data was corrupt
type ErrCorrupt struct{ Err string }

// internal constants used for corrupt
var (
	errBadDigit         = "bad marshal data (digit out of range in long)"
	errUnnormalizedLong = "bad marshal data (unnormalized long data)"
	errBadLongSize      = "bad marshal data (long size out of range)"
	errBadSize          = "bad marshal data (size out of range)"
	errBadFloat         = "bad marshal data (invalid float literal)"
	errBadUTF8          = "bad marshal data (invalid utf-8 text)"
	errNullInTuple      = "NULL object in marshal data for tuple"
	errNullInList       = "NULL object in marshal data for list"
	errNullInSet        = "NULL object in marshal data for set"
	errNegativeField    = "bad marshal data (negative code object field)"
	errStringTooLong    = "string too long for marshal"
	errBadStringKind    = "invalid string kind"
)

func (c ErrCorrupt) Error() string { return "marshal: corrupt data: " + c.Err }

// DecodeError reports the offset of the tag whose payload could not be
// decoded. Err is one of the sentinel errors above or an ErrCorrupt.
type DecodeError struct {
	Offset int
	Kind   byte
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v (decoding %s at offset %d)", e.Err, kindName(e.Kind), e.Offset)
}

func (e *DecodeError) Unwrap() error { return e.Err }
