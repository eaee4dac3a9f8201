package marshal

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// Encoder writes marshal data.
type Encoder struct {
	// Revision is the marshal format revision. Revisions above 1 write
	// binary floats; revision 4 and later write small tuples and short
	// ASCII strings.
	Revision int
	// Version, when set, is the only code object version accepted.
	Version Version
	// MaxDepth bounds the nesting of written values.
	MaxDepth int
}

// NewEncoder returns an encoder writing code objects for v with the given
// marshal revision.
func NewEncoder(v Version, revision int) *Encoder {
	return &Encoder{Revision: revision, Version: v, MaxDepth: defaultMaxDepth}
}

// Marshal encodes root with a default encoder.
func Marshal(root Value, refs []Value, v Version, revision int) ([]byte, error) {
	return NewEncoder(v, revision).Marshal(root, refs)
}

// Marshal returns the encoding of root. refs is the reference table the
// placeholders in root index into; it may be nil for trees without any.
func (e *Encoder) Marshal(root Value, refs []Value) ([]byte, error) {
	s := &encodeState{Encoder: e, refs: refs}
	if s.MaxDepth <= 0 {
		s.MaxDepth = defaultMaxDepth
	}
	return s.encode(make([]byte, 0, 64), root, false)
}

type encodeState struct {
	*Encoder
	refs  []Value
	depth int
}

func tagOf(kind byte, flag bool) byte {
	if flag {
		return kind | refFlag
	}
	return kind
}

func (e *encodeState) encode(by []byte, v Value, flag bool) ([]byte, error) {

	// a definition is written in place with the flag set and no depth of its own
	if r, ok := v.(StoreRef); ok {
		if int(r) < 0 || int(r) >= len(e.refs) {
			return nil, fmt.Errorf("%w: store %d", ErrInvalidReference, int(r))
		}
		t := e.refs[r]
		if _, ok := t.(StoreRef); ok {
			return nil, fmt.Errorf("%w: slot %d holds a store reference", ErrInvalidReference, int(r))
		}
		return e.encode(by, t, true)
	}

	e.depth++
	defer func() { e.depth-- }()
	if e.depth > e.MaxDepth {
		return nil, ErrDepthLimit
	}

	switch x := v.(type) {

	case nil:
		return nil, ErrUnexpectedNull

	case None:
		by = append(by, typeNONE)
	case StopIteration:
		by = append(by, typeSTOPITER)
	case Ellipsis:
		by = append(by, typeELLIPSIS)
	case Bool:
		if x {
			by = append(by, typeTRUE)
		} else {
			by = append(by, typeFALSE)
		}

	case LoadRef:
		if int(x) < 0 || int(x) >= len(e.refs) {
			return nil, fmt.Errorf("%w: load %d", ErrInvalidReference, int(x))
		}
		by = append(by, typeREF)
		by = binary.LittleEndian.AppendUint32(by, uint32(x))

	case Int:
		by = e.encodeInt(by, x, flag)
	case Float:
		by = e.encodeFloat(by, float64(x), flag)
	case Complex:
		by = e.encodeComplex(by, complex128(x), flag)

	case Bytes:
		by = append(by, tagOf(typeSTRING, flag))
		by = binary.LittleEndian.AppendUint32(by, uint32(len(x)))
		by = append(by, x...)

	case String:
		return e.encodeString(by, x, flag)

	case Tuple:
		if e.Revision >= 4 && len(x) <= 255 {
			by = append(by, tagOf(typeSMALL_TUPLE, flag), byte(len(x)))
		} else {
			by = append(by, tagOf(typeTUPLE, flag))
			by = binary.LittleEndian.AppendUint32(by, uint32(len(x)))
		}
		return e.encodeSeq(by, x)

	case List:
		by = append(by, tagOf(typeLIST, flag))
		by = binary.LittleEndian.AppendUint32(by, uint32(len(x)))
		return e.encodeSeq(by, x)

	case *Dict:
		return e.encodeDict(by, x, flag)

	case *Set:
		by = append(by, tagOf(typeSET, flag))
		return e.encodeMembers(by, x.elems)

	case *FrozenSet:
		by = append(by, tagOf(typeFROZENSET, flag))
		return e.encodeMembers(by, x.elems)

	case *Code310:
		if e.Version != (Version{}) && e.Version != V3_10 {
			return nil, fmt.Errorf("%w: 3.10 code object, writing %s", ErrVersionMismatch, e.Version)
		}
		return e.encodeCode310(append(by, tagOf(typeCODE, flag)), x)

	case *Code311:
		if e.Version != (Version{}) && e.Version != x.Version {
			return nil, fmt.Errorf("%w: %s code object, writing %s", ErrVersionMismatch, x.Version, e.Version)
		}
		if !hasCodeLayout(x.Version) || x.Version == V3_10 {
			return nil, fmt.Errorf("%w: no code object layout for %s", ErrUnsupportedVersion, x.Version)
		}
		return e.encodeCode311(append(by, tagOf(typeCODE, flag)), x)

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedObject, v)
	}

	return by, nil
}

func (e *encodeState) encodeInt(by []byte, i Int, flag bool) []byte {

	n := i.value()

	if n.IsInt64() {
		if v := n.Int64(); v >= math.MinInt32 && v <= math.MaxInt32 {
			by = append(by, tagOf(typeINT, flag))
			return binary.LittleEndian.AppendUint32(by, uint32(int32(v)))
		}
	}

	// 15-bit digits, least significant first, count signed like the value
	mag := new(big.Int).Abs(n)
	mask := big.NewInt(longMask)
	var digits []uint16
	for mag.Sign() > 0 {
		digits = append(digits, uint16(new(big.Int).And(mag, mask).Uint64()))
		mag.Rsh(mag, longShift)
	}
	count := int32(len(digits))
	if n.Sign() < 0 {
		count = -count
	}

	by = append(by, tagOf(typeLONG, flag))
	by = binary.LittleEndian.AppendUint32(by, uint32(count))
	for _, d := range digits {
		by = binary.LittleEndian.AppendUint16(by, d)
	}
	return by
}

// formatFloat renders f the way the reference encoder does for text floats.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return strconv.FormatFloat(f, 'g', 17, 64)
}

func appendTextFloat(by []byte, f float64) []byte {
	s := formatFloat(f)
	by = append(by, byte(len(s)))
	return append(by, s...)
}

func appendBinaryFloat(by []byte, f float64) []byte {
	return binary.LittleEndian.AppendUint64(by, math.Float64bits(f))
}

func (e *encodeState) encodeFloat(by []byte, f float64, flag bool) []byte {
	if e.Revision > 1 {
		return appendBinaryFloat(append(by, tagOf(typeBINARY_FLOAT, flag)), f)
	}
	return appendTextFloat(append(by, tagOf(typeFLOAT, flag)), f)
}

func (e *encodeState) encodeComplex(by []byte, c complex128, flag bool) []byte {
	if e.Revision > 1 {
		by = appendBinaryFloat(append(by, tagOf(typeBINARY_COMPLEX, flag)), real(c))
		return appendBinaryFloat(by, imag(c))
	}
	by = appendTextFloat(append(by, tagOf(typeCOMPLEX, flag)), real(c))
	return appendTextFloat(by, imag(c))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// stringTag picks the tag for s. A recorded kind wins; otherwise the choice
// follows the marshal revision.
func (e *encodeState) stringTag(s String) (byte, error) {
	short := len(s.Value) <= 255
	switch s.Kind {
	case KindUnset:
		if e.Revision >= 4 && isASCII(s.Value) {
			if short {
				return typeSHORT_ASCII, nil
			}
			return typeASCII, nil
		}
		return typeUNICODE, nil
	case ShortASCII:
		if short {
			return typeSHORT_ASCII, nil
		}
		return typeASCII, nil
	case ShortASCIIInterned:
		if short {
			return typeSHORT_ASCII_INTERNED, nil
		}
		return typeASCII_INTERNED, nil
	case ASCII:
		return typeASCII, nil
	case ASCIIInterned:
		return typeASCII_INTERNED, nil
	case Interned:
		return typeINTERNED, nil
	case Unicode:
		return typeUNICODE, nil
	}
	return 0, ErrCorrupt{errBadStringKind}
}

func (e *encodeState) encodeString(by []byte, s String, flag bool) ([]byte, error) {

	tag, err := e.stringTag(s)
	if err != nil {
		return nil, err
	}
	if int64(len(s.Value)) > math.MaxInt32 {
		return nil, ErrCorrupt{errStringTooLong}
	}

	by = append(by, tagOf(tag, flag))
	if tag == typeSHORT_ASCII || tag == typeSHORT_ASCII_INTERNED {
		by = append(by, byte(len(s.Value)))
	} else {
		by = binary.LittleEndian.AppendUint32(by, uint32(len(s.Value)))
	}
	return append(by, s.Value...), nil
}

func (e *encodeState) encodeSeq(by []byte, elems []Value) ([]byte, error) {
	var err error
	for _, v := range elems {
		if by, err = e.encode(by, v, false); err != nil {
			return nil, err
		}
	}
	return by, nil
}

func (e *encodeState) encodeMembers(by []byte, elems []Hashable) ([]byte, error) {
	by = binary.LittleEndian.AppendUint32(by, uint32(len(elems)))
	var err error
	for _, h := range elems {
		if by, err = e.encode(by, FromHashable(h), false); err != nil {
			return nil, err
		}
	}
	return by, nil
}

func (e *encodeState) encodeDict(by []byte, d *Dict, flag bool) ([]byte, error) {
	by = append(by, tagOf(typeDICT, flag))
	var err error
	for i, k := range d.Keys() {
		if by, err = e.encode(by, FromHashable(k), false); err != nil {
			return nil, err
		}
		if by, err = e.encode(by, d.values[i], false); err != nil {
			return nil, err
		}
	}
	return append(by, typeNULL), nil
}

type fieldWriter struct {
	e   *encodeState
	by  []byte
	err error
}

func (w *fieldWriter) u32(n uint32) {
	if w.err == nil {
		w.by = binary.LittleEndian.AppendUint32(w.by, n)
	}
}

func (w *fieldWriter) object(v Value) {
	if w.err == nil {
		w.by, w.err = w.e.encode(w.by, v, false)
	}
}

func (e *encodeState) encodeCode310(by []byte, c *Code310) ([]byte, error) {
	w := &fieldWriter{e: e, by: by}
	w.u32(c.ArgCount)
	w.u32(c.PosOnlyArgCount)
	w.u32(c.KwOnlyArgCount)
	w.u32(c.NLocals)
	w.u32(c.StackSize)
	w.u32(uint32(c.Flags))
	w.object(c.Code)
	w.object(c.Consts)
	w.object(c.Names)
	w.object(c.VarNames)
	w.object(c.FreeVars)
	w.object(c.CellVars)
	w.object(c.Filename)
	w.object(c.Name)
	w.u32(c.FirstLineNo)
	w.object(c.LNoTab)
	return w.by, w.err
}

func (e *encodeState) encodeCode311(by []byte, c *Code311) ([]byte, error) {
	w := &fieldWriter{e: e, by: by}
	w.u32(c.ArgCount)
	w.u32(c.PosOnlyArgCount)
	w.u32(c.KwOnlyArgCount)
	w.u32(c.StackSize)
	w.u32(uint32(c.Flags))
	w.object(c.Code)
	w.object(c.Consts)
	w.object(c.Names)
	w.object(c.LocalsPlusNames)
	w.object(c.LocalsPlusKinds)
	w.object(c.Filename)
	w.object(c.Name)
	w.object(c.QualName)
	w.u32(c.FirstLineNo)
	w.object(c.LineTable)
	w.object(c.ExceptionTable)
	return w.by, w.err
}
