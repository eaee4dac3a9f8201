package marshal

import (
	"math"
	"math/big"
)

// Value is one node of a decoded object tree. The set of implementations is
// closed; a nil Value stands for the NULL marker.
type Value interface {
	isValue()
}

// None is the None singleton.
type None struct{}

// StopIteration is the StopIteration singleton.
type StopIteration struct{}

// Ellipsis is the Ellipsis singleton.
type Ellipsis struct{}

// Bool is True or False.
type Bool bool

// Int is an arbitrary precision integer. The wrapped big.Int must not be
// mutated once the Int is part of a tree.
type Int struct {
	Big *big.Int
}

// NewInt returns an Int holding n.
func NewInt(n int64) Int { return Int{big.NewInt(n)} }

// value returns the wrapped integer; the zero Int is 0.
func (i Int) value() *big.Int {
	if i.Big == nil {
		return new(big.Int)
	}
	return i.Big
}

// Equal compares two integers by value.
func (i Int) Equal(o Int) bool { return i.value().Cmp(o.value()) == 0 }

func (i Int) String() string { return i.value().String() }

// Float is a 64-bit float.
type Float float64

// Equal compares floats bitwise, so NaN equals itself and -0.0 differs from 0.0.
func (f Float) Equal(o Float) bool {
	return math.Float64bits(float64(f)) == math.Float64bits(float64(o))
}

// Complex is a pair of 64-bit floats.
type Complex complex128

// Equal compares both components bitwise.
func (c Complex) Equal(o Complex) bool {
	return Float(real(c)).Equal(Float(real(o))) && Float(imag(c)).Equal(Float(imag(o)))
}

// Bytes is a byte string.
type Bytes []byte

// StringKind is the tag a text string was read with. It picks the tag the
// string is written with again.
type StringKind uint8

// string kinds
const (
	// KindUnset lets the Encoder pick a tag from the content.
	KindUnset StringKind = iota
	ShortASCII
	ShortASCIIInterned
	ASCII
	ASCIIInterned
	Interned
	Unicode
)

func (k StringKind) String() string {
	switch k {
	case ShortASCII:
		return "short ascii"
	case ShortASCIIInterned:
		return "short ascii interned"
	case ASCII:
		return "ascii"
	case ASCIIInterned:
		return "ascii interned"
	case Interned:
		return "interned"
	case Unicode:
		return "unicode"
	}
	return "unset"
}

// String is a text string. For the ASCII kinds Value holds the raw payload
// bytes, which the decoder does not validate.
type String struct {
	Value string
	Kind  StringKind
}

// NewString returns a string without a recorded kind.
func NewString(s string) String { return String{Value: s} }

// Tuple is an immutable sequence.
type Tuple []Value

// List is a mutable sequence.
type List []Value

// LoadRef points at a value already defined in the reference table.
type LoadRef int

// StoreRef stands for the one canonical definition of a reference table slot.
type StoreRef int

func (None) isValue()          {}
func (StopIteration) isValue() {}
func (Ellipsis) isValue()      {}
func (Bool) isValue()          {}
func (Int) isValue()           {}
func (Float) isValue()         {}
func (Complex) isValue()       {}
func (Bytes) isValue()         {}
func (String) isValue()        {}
func (Tuple) isValue()         {}
func (List) isValue()          {}
func (*Dict) isValue()         {}
func (*Set) isValue()          {}
func (*FrozenSet) isValue()    {}
func (*Code310) isValue()      {}
func (*Code311) isValue()      {}
func (LoadRef) isValue()       {}
func (StoreRef) isValue()      {}

// Deref follows v through the reference table until it reaches a value that
// is not a placeholder.
func Deref(v Value, refs []Value) (Value, error) {
	for hops := 0; hops <= len(refs); hops++ {
		var idx int
		switch r := v.(type) {
		case LoadRef:
			idx = int(r)
		case StoreRef:
			idx = int(r)
		default:
			return v, nil
		}
		if idx < 0 || idx >= len(refs) {
			return nil, ErrInvalidReference
		}
		v = refs[idx]
	}
	return nil, ErrInvalidReference
}

// Equal reports whether a and b are the same tree. String kinds are part of
// the comparison, floats compare bitwise, and dicts and sets ignore order.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case None, StopIteration, Ellipsis, Bool, LoadRef, StoreRef, String:
		return a == b
	case Int:
		y, ok := b.(Int)
		return ok && x.Equal(y)
	case Float:
		y, ok := b.(Float)
		return ok && x.Equal(y)
	case Complex:
		y, ok := b.(Complex)
		return ok && x.Equal(y)
	case Bytes:
		y, ok := b.(Bytes)
		return ok && string(x) == string(y)
	case Tuple:
		y, ok := b.(Tuple)
		return ok && equalSeq(x, y)
	case List:
		y, ok := b.(List)
		return ok && equalSeq(x, y)
	case *Dict:
		y, ok := b.(*Dict)
		return ok && x.Equal(y)
	case *Set:
		y, ok := b.(*Set)
		return ok && x.Equal(y)
	case *FrozenSet:
		y, ok := b.(*FrozenSet)
		return ok && x.Equal(y)
	case *Code310:
		y, ok := b.(*Code310)
		return ok && x.Equal(y)
	case *Code311:
		y, ok := b.(*Code311)
		return ok && x.Equal(y)
	}
	return false
}

func equalSeq(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
