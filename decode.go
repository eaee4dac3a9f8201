package marshal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"unicode/utf8"
)

// Decoder reads marshal data. The zero value is not usable; use NewDecoder.
type Decoder struct {
	// Version selects the code object layout.
	Version Version
	// MaxDepth bounds the nesting of decoded values.
	MaxDepth int
}

// NewDecoder returns a decoder for data written by interpreter version v.
func NewDecoder(v Version) *Decoder {
	return &Decoder{Version: v, MaxDepth: defaultMaxDepth}
}

// Unmarshal decodes b with a default decoder for version v.
func Unmarshal(b []byte, v Version) (Value, []Value, error) {
	return NewDecoder(v).Unmarshal(b)
}

// Unmarshal decodes the first value in b. It returns the root value and the
// reference table its placeholders index into. Trailing bytes are ignored.
func (d *Decoder) Unmarshal(b []byte) (Value, []Value, error) {
	root, _, refs, err := d.Decode(b)
	return root, refs, err
}

// Decode is like Unmarshal but also returns the number of bytes consumed.
func (d *Decoder) Decode(b []byte) (Value, int, []Value, error) {

	s := &decodeState{
		Decoder: d,
		b:       b,
		pending: make(map[int]bool),
	}
	if s.MaxDepth <= 0 {
		s.MaxDepth = defaultMaxDepth
	}

	root, idx, err := s.decode(0)
	if err != nil {
		return nil, 0, nil, err
	}
	if root == nil {
		return nil, 0, nil, &DecodeError{Offset: 0, Kind: typeNULL, Err: ErrUnexpectedNull}
	}

	return root, idx, s.refs, nil
}

type decodeState struct {
	*Decoder
	b     []byte
	refs  []Value
	depth int
	// slots reserved for containers whose payload is still being read
	pending map[int]bool
}

// decode reads the value whose tag is at b[idx]. A NULL tag yields a nil
// Value and no error; callers decide whether NULL is allowed.
func (s *decodeState) decode(idx int) (Value, int, error) {

	if idx >= len(s.b) {
		return nil, idx, &DecodeError{Offset: idx, Kind: typeUNKNOWN, Err: ErrTruncated}
	}

	start := idx
	tag := s.b[idx]
	flag := tag&refFlag == refFlag
	kind := tag &^ refFlag
	idx++

	s.depth++
	defer func() { s.depth-- }()
	if s.depth > s.MaxDepth {
		return nil, idx, &DecodeError{Offset: start, Kind: kind, Err: ErrDepthLimit}
	}

	v, idx, err := s.decodeKind(kind, flag, idx)
	if err != nil {
		var de *DecodeError
		if !errors.As(err, &de) {
			err = &DecodeError{Offset: start, Kind: kind, Err: err}
		}
		return nil, idx, err
	}
	return v, idx, nil
}

func (s *decodeState) decodeKind(kind byte, flag bool, idx int) (Value, int, error) {

	// containers reserve their slot before their children are read so the
	// children can load it
	slot := -1
	reserve := func() {
		if flag {
			slot = len(s.refs)
			s.refs = append(s.refs, None{})
			s.pending[slot] = true
		}
	}
	finish := func(v Value) Value {
		if slot < 0 {
			return v
		}
		s.refs[slot] = v
		delete(s.pending, slot)
		return StoreRef(slot)
	}
	store := func(v Value) Value {
		if !flag {
			return v
		}
		s.refs = append(s.refs, v)
		return StoreRef(len(s.refs) - 1)
	}

	switch kind {

	case typeNULL:
		return nil, idx, nil

	case typeNONE:
		return None{}, idx, nil

	case typeFALSE:
		return Bool(false), idx, nil

	case typeTRUE:
		return Bool(true), idx, nil

	case typeSTOPITER:
		return StopIteration{}, idx, nil

	case typeELLIPSIS:
		return Ellipsis{}, idx, nil

	case typeINT:
		n, idx, err := s.readInt32(idx)
		if err != nil {
			return nil, idx, err
		}
		return store(NewInt(int64(n))), idx, nil

	case typeINT64:
		if err := s.need(idx, 8); err != nil {
			return nil, idx, err
		}
		n := int64(binary.LittleEndian.Uint64(s.b[idx:]))
		return store(NewInt(n)), idx + 8, nil

	case typeLONG:
		n, idx, err := s.readLong(idx)
		if err != nil {
			return nil, idx, err
		}
		return store(n), idx, nil

	case typeFLOAT:
		f, idx, err := s.readTextFloat(idx)
		if err != nil {
			return nil, idx, err
		}
		return store(Float(f)), idx, nil

	case typeBINARY_FLOAT:
		f, idx, err := s.readBinaryFloat(idx)
		if err != nil {
			return nil, idx, err
		}
		return store(Float(f)), idx, nil

	case typeCOMPLEX:
		re, idx, err := s.readTextFloat(idx)
		if err != nil {
			return nil, idx, err
		}
		im, idx, err := s.readTextFloat(idx)
		if err != nil {
			return nil, idx, err
		}
		return store(Complex(complex(re, im))), idx, nil

	case typeBINARY_COMPLEX:
		re, idx, err := s.readBinaryFloat(idx)
		if err != nil {
			return nil, idx, err
		}
		im, idx, err := s.readBinaryFloat(idx)
		if err != nil {
			return nil, idx, err
		}
		return store(Complex(complex(re, im))), idx, nil

	case typeSTRING:
		b, idx, err := s.readBytes(idx, false)
		if err != nil {
			return nil, idx, err
		}
		return store(Bytes(b)), idx, nil

	case typeINTERNED, typeUNICODE:
		b, idx, err := s.readBytes(idx, false)
		if err != nil {
			return nil, idx, err
		}
		if !validText(b) {
			return nil, idx, ErrCorrupt{errBadUTF8}
		}
		k := Unicode
		if kind == typeINTERNED {
			k = Interned
		}
		return store(String{Value: string(b), Kind: k}), idx, nil

	case typeASCII, typeASCII_INTERNED, typeSHORT_ASCII, typeSHORT_ASCII_INTERNED:
		short := kind == typeSHORT_ASCII || kind == typeSHORT_ASCII_INTERNED
		b, idx, err := s.readBytes(idx, short)
		if err != nil {
			return nil, idx, err
		}
		return store(String{Value: string(b), Kind: asciiKind(kind)}), idx, nil

	case typeTUPLE, typeSMALL_TUPLE:
		var n int
		var err error
		if kind == typeSMALL_TUPLE {
			n, idx, err = s.readByteLen(idx)
		} else {
			n, idx, err = s.readLen(idx)
		}
		if err != nil {
			return nil, idx, err
		}
		reserve()
		elems, idx, err := s.decodeSeq(idx, n, errNullInTuple)
		if err != nil {
			return nil, idx, err
		}
		return finish(Tuple(elems)), idx, nil

	case typeLIST:
		n, idx, err := s.readLen(idx)
		if err != nil {
			return nil, idx, err
		}
		reserve()
		elems, idx, err := s.decodeSeq(idx, n, errNullInList)
		if err != nil {
			return nil, idx, err
		}
		return finish(List(elems)), idx, nil

	case typeDICT:
		reserve()
		d := NewDict()
		for {
			var k, v Value
			var err error
			k, idx, err = s.decode(idx)
			if err != nil {
				return nil, idx, err
			}
			if k == nil {
				break
			}
			v, idx, err = s.decode(idx)
			if err != nil {
				return nil, idx, err
			}
			if v == nil {
				break
			}
			hk, err := ToHashable(k)
			if err != nil {
				return nil, idx, err
			}
			d.Set(hk, v)
		}
		return finish(d), idx, nil

	case typeSET, typeFROZENSET:
		n, idx, err := s.readLen(idx)
		if err != nil {
			return nil, idx, err
		}
		reserve()
		elems, idx, err := s.decodeSeq(idx, n, errNullInSet)
		if err != nil {
			return nil, idx, err
		}
		var hs hashSet
		for _, e := range elems {
			h, err := ToHashable(e)
			if err != nil {
				return nil, idx, err
			}
			hs.Add(h)
		}
		if kind == typeSET {
			return finish(&Set{hs}), idx, nil
		}
		return finish(&FrozenSet{hs}), idx, nil

	case typeCODE:
		reserve()
		var c Value
		var err error
		switch {
		case s.Version == V3_10:
			c, idx, err = s.decodeCode310(idx)
		case hasCodeLayout(s.Version):
			c, idx, err = s.decodeCode311(idx)
		default:
			err = fmt.Errorf("%w: no code object layout for %s", ErrUnsupportedVersion, s.Version)
		}
		if err != nil {
			return nil, idx, err
		}
		return finish(c), idx, nil

	case typeREF:
		n, idx, err := s.readInt32(idx)
		if err != nil {
			return nil, idx, err
		}
		if n < 0 || int(n) >= len(s.refs) {
			return nil, idx, fmt.Errorf("%w: %d", ErrInvalidReference, n)
		}
		return LoadRef(n), idx, nil

	}

	return nil, idx, ErrUnknownKind
}

func asciiKind(kind byte) StringKind {
	switch kind {
	case typeSHORT_ASCII:
		return ShortASCII
	case typeSHORT_ASCII_INTERNED:
		return ShortASCIIInterned
	case typeASCII_INTERNED:
		return ASCIIInterned
	}
	return ASCII
}

func (s *decodeState) need(idx, n int) error {
	if n < 0 {
		return ErrCorrupt{errBadSize}
	}
	if len(s.b)-idx < n {
		return ErrTruncated
	}
	return nil
}

func (s *decodeState) readInt32(idx int) (int32, int, error) {
	if err := s.need(idx, 4); err != nil {
		return 0, idx, err
	}
	return int32(binary.LittleEndian.Uint32(s.b[idx:])), idx + 4, nil
}

// readLen reads a 4-byte element count. Every element takes at least one
// byte, so counts past the end of the input are rejected before allocating.
func (s *decodeState) readLen(idx int) (int, int, error) {
	n, idx, err := s.readInt32(idx)
	if err != nil {
		return 0, idx, err
	}
	if n < 0 {
		return 0, idx, ErrCorrupt{errBadSize}
	}
	if err := s.need(idx, int(n)); err != nil {
		return 0, idx, err
	}
	return int(n), idx, nil
}

func (s *decodeState) readByteLen(idx int) (int, int, error) {
	if err := s.need(idx, 1); err != nil {
		return 0, idx, err
	}
	return int(s.b[idx]), idx + 1, nil
}

func (s *decodeState) readBytes(idx int, short bool) ([]byte, int, error) {
	var n int
	var err error
	if short {
		n, idx, err = s.readByteLen(idx)
	} else {
		n, idx, err = s.readLen(idx)
	}
	if err != nil {
		return nil, idx, err
	}
	if err := s.need(idx, n); err != nil {
		return nil, idx, err
	}
	b := make([]byte, n)
	copy(b, s.b[idx:idx+n])
	return b, idx + n, nil
}

func (s *decodeState) readLong(idx int) (Int, int, error) {

	n, idx, err := s.readInt32(idx)
	if err != nil {
		return Int{}, idx, err
	}
	if n == 0 {
		return NewInt(0), idx, nil
	}
	if n == math.MinInt32 {
		return Int{}, idx, ErrCorrupt{errBadLongSize}
	}

	neg := n < 0
	if neg {
		n = -n
	}
	if err := s.need(idx, 2*int(n)); err != nil {
		return Int{}, idx, err
	}

	digits := make([]uint16, n)
	for i := range digits {
		d := binary.LittleEndian.Uint16(s.b[idx:])
		idx += 2
		if d > longMask {
			return Int{}, idx, ErrCorrupt{errBadDigit}
		}
		digits[i] = d
	}
	if digits[len(digits)-1] == 0 {
		return Int{}, idx, ErrCorrupt{errUnnormalizedLong}
	}

	v := new(big.Int)
	for i := len(digits) - 1; i >= 0; i-- {
		v.Lsh(v, longShift)
		v.Or(v, big.NewInt(int64(digits[i])))
	}
	if neg {
		v.Neg(v)
	}
	return Int{v}, idx, nil
}

func (s *decodeState) readTextFloat(idx int) (float64, int, error) {
	n, idx, err := s.readByteLen(idx)
	if err != nil {
		return 0, idx, err
	}
	if err := s.need(idx, n); err != nil {
		return 0, idx, err
	}
	text := string(s.b[idx : idx+n])
	f, err := strconv.ParseFloat(text, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, idx, ErrCorrupt{errBadFloat}
	}
	return f, idx + n, nil
}

func (s *decodeState) readBinaryFloat(idx int) (float64, int, error) {
	if err := s.need(idx, 8); err != nil {
		return 0, idx, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(s.b[idx:])), idx + 8, nil
}

// decodeSeq reads n values, none of which may be NULL.
func (s *decodeState) decodeSeq(idx, n int, nullErr string) ([]Value, int, error) {
	elems := make([]Value, n)
	for i := range elems {
		var err error
		elems[i], idx, err = s.decode(idx)
		if err != nil {
			return nil, idx, err
		}
		if elems[i] == nil {
			return nil, idx, ErrCorrupt{nullErr}
		}
	}
	return elems, idx, nil
}

// validText accepts UTF-8 plus encoded surrogate code points, which the
// reference encoder writes for lone surrogates.
func validText(b []byte) bool {
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			if len(b) >= 3 && b[0] == 0xED && b[1]&0xE0 == 0xA0 && b[2]&0xC0 == 0x80 {
				size = 3
			} else {
				return false
			}
		}
		b = b[size:]
	}
	return true
}

// code objects

type fieldReader struct {
	s   *decodeState
	idx int
	err error
}

func (r *fieldReader) u32(name string) uint32 {
	if r.err != nil {
		return 0
	}
	var n int32
	n, r.idx, r.err = r.s.readInt32(r.idx)
	if r.err == nil && n < 0 {
		r.err = ErrCorrupt{errNegativeField + ": " + name}
	}
	return uint32(n)
}

func (r *fieldReader) flags() CodeFlags {
	if r.err != nil {
		return 0
	}
	var n int32
	n, r.idx, r.err = r.s.readInt32(r.idx)
	return CodeFlags(uint32(n))
}

func (r *fieldReader) object(name string, check func(Value) bool) Value {
	if r.err != nil {
		return nil
	}
	var v Value
	v, r.idx, r.err = r.s.decode(r.idx)
	if r.err != nil {
		return nil
	}
	if v == nil {
		r.err = fmt.Errorf("%w: code object field %s", ErrUnexpectedNull, name)
		return nil
	}
	if t, done := r.s.target(v); done && !check(t) {
		r.err = fmt.Errorf("%w: code object field %s is %T", ErrUnexpectedObject, name, t)
	}
	return v
}

// target follows placeholders to the value they stand for. It reports false
// if the chain ends at a slot that is still being decoded.
func (s *decodeState) target(v Value) (Value, bool) {
	for hops := 0; hops <= len(s.refs); hops++ {
		var i int
		switch r := v.(type) {
		case LoadRef:
			i = int(r)
		case StoreRef:
			i = int(r)
		default:
			return v, true
		}
		if s.pending[i] {
			return nil, false
		}
		v = s.refs[i]
	}
	return nil, false
}

func isBytes(v Value) bool {
	_, ok := v.(Bytes)
	return ok
}

func isString(v Value) bool {
	_, ok := v.(String)
	return ok
}

func isTuple(v Value) bool {
	_, ok := v.(Tuple)
	return ok
}

func (s *decodeState) isNames(v Value) bool {
	t, ok := v.(Tuple)
	if !ok {
		return false
	}
	for _, e := range t {
		if e, done := s.target(e); done && !isString(e) {
			return false
		}
	}
	return true
}

func (s *decodeState) decodeCode310(idx int) (Value, int, error) {
	r := &fieldReader{s: s, idx: idx}
	c := &Code310{}
	c.ArgCount = r.u32("argcount")
	c.PosOnlyArgCount = r.u32("posonlyargcount")
	c.KwOnlyArgCount = r.u32("kwonlyargcount")
	c.NLocals = r.u32("nlocals")
	c.StackSize = r.u32("stacksize")
	c.Flags = r.flags()
	c.Code = r.object("code", isBytes)
	c.Consts = r.object("consts", isTuple)
	c.Names = r.object("names", s.isNames)
	c.VarNames = r.object("varnames", s.isNames)
	c.FreeVars = r.object("freevars", s.isNames)
	c.CellVars = r.object("cellvars", s.isNames)
	c.Filename = r.object("filename", isString)
	c.Name = r.object("name", isString)
	c.FirstLineNo = r.u32("firstlineno")
	c.LNoTab = r.object("lnotab", isBytes)
	if r.err != nil {
		return nil, r.idx, r.err
	}
	return c, r.idx, nil
}

func (s *decodeState) decodeCode311(idx int) (Value, int, error) {
	r := &fieldReader{s: s, idx: idx}
	c := &Code311{Version: s.Version}
	c.ArgCount = r.u32("argcount")
	c.PosOnlyArgCount = r.u32("posonlyargcount")
	c.KwOnlyArgCount = r.u32("kwonlyargcount")
	c.StackSize = r.u32("stacksize")
	c.Flags = r.flags()
	c.Code = r.object("code", isBytes)
	c.Consts = r.object("consts", isTuple)
	c.Names = r.object("names", s.isNames)
	c.LocalsPlusNames = r.object("localsplusnames", s.isNames)
	c.LocalsPlusKinds = r.object("localspluskinds", isBytes)
	c.Filename = r.object("filename", isString)
	c.Name = r.object("name", isString)
	c.QualName = r.object("qualname", isString)
	c.FirstLineNo = r.u32("firstlineno")
	c.LineTable = r.object("linetable", isBytes)
	c.ExceptionTable = r.object("exceptiontable", isBytes)
	if r.err != nil {
		return nil, r.idx, r.err
	}
	return c, r.idx, nil
}
