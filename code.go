package marshal

import "encoding/binary"

// CodeFlags is the co_flags bit set of a code object.
type CodeFlags uint32

// code flags
const (
	FlagOptimized             CodeFlags = 0x1
	FlagNewlocals             CodeFlags = 0x2
	FlagVarargs               CodeFlags = 0x4
	FlagVarkeywords           CodeFlags = 0x8
	FlagNested                CodeFlags = 0x10
	FlagGenerator             CodeFlags = 0x20
	FlagNofree                CodeFlags = 0x40
	FlagCoroutine             CodeFlags = 0x80
	FlagIterableCoroutine     CodeFlags = 0x100
	FlagAsyncGenerator        CodeFlags = 0x200
	FlagGeneratorAllowed      CodeFlags = 0x1000
	FlagFutureDivision        CodeFlags = 0x2000
	FlagFutureAbsoluteImport  CodeFlags = 0x4000
	FlagFutureWithStatement   CodeFlags = 0x8000
	FlagFuturePrintFunction   CodeFlags = 0x10000
	FlagFutureUnicodeLiterals CodeFlags = 0x20000
	FlagFutureBarryAsBdfl     CodeFlags = 0x40000
	FlagFutureGeneratorStop   CodeFlags = 0x80000
	FlagFutureAnnotations     CodeFlags = 0x100000
	FlagNoMonitoringEvents    CodeFlags = 0x200000
)

// Has reports whether every bit of f is set.
func (c CodeFlags) Has(f CodeFlags) bool { return c&f == f }

// Code is a code object of either layout.
type Code interface {
	Value
	CodeVersion() Version
}

// Code310 is a code object in the 3.10 layout. Object fields may be
// reference placeholders.
type Code310 struct {
	ArgCount        uint32
	PosOnlyArgCount uint32
	KwOnlyArgCount  uint32
	NLocals         uint32
	StackSize       uint32
	Flags           CodeFlags
	Code            Value // bytes
	Consts          Value // tuple
	Names           Value // tuple of str
	VarNames        Value // tuple of str
	FreeVars        Value // tuple of str
	CellVars        Value // tuple of str
	Filename        Value // str
	Name            Value // str
	FirstLineNo     uint32
	LNoTab          Value // bytes
}

// Code311 is a code object in the layout shared by 3.11, 3.12 and 3.13.
type Code311 struct {
	Version         Version
	ArgCount        uint32
	PosOnlyArgCount uint32
	KwOnlyArgCount  uint32
	StackSize       uint32
	Flags           CodeFlags
	Code            Value // bytes
	Consts          Value // tuple
	Names           Value // tuple of str
	LocalsPlusNames Value // tuple of str
	LocalsPlusKinds Value // bytes
	Filename        Value // str
	Name            Value // str
	QualName        Value // str
	FirstLineNo     uint32
	LineTable       Value // bytes
	ExceptionTable  Value // bytes
}

// CodeVersion is always 3.10.
func (c *Code310) CodeVersion() Version { return V3_10 }

// CodeVersion returns the version the code object was decoded for.
func (c *Code311) CodeVersion() Version { return c.Version }

func (c *Code310) objects() []*Value {
	return []*Value{&c.Code, &c.Consts, &c.Names, &c.VarNames, &c.FreeVars,
		&c.CellVars, &c.Filename, &c.Name, &c.LNoTab}
}

func (c *Code311) objects() []*Value {
	return []*Value{&c.Code, &c.Consts, &c.Names, &c.LocalsPlusNames,
		&c.LocalsPlusKinds, &c.Filename, &c.Name, &c.QualName, &c.LineTable,
		&c.ExceptionTable}
}

func (c *Code310) ints() []uint32 {
	return []uint32{c.ArgCount, c.PosOnlyArgCount, c.KwOnlyArgCount, c.NLocals,
		c.StackSize, uint32(c.Flags), c.FirstLineNo}
}

func (c *Code311) ints() []uint32 {
	return []uint32{uint32(c.Version.Major), uint32(c.Version.Minor), c.ArgCount,
		c.PosOnlyArgCount, c.KwOnlyArgCount, c.StackSize, uint32(c.Flags), c.FirstLineNo}
}

func codeKey(ints []uint32, objs []*Value) ([]byte, error) {
	b := []byte{typeCODE}
	for _, n := range ints {
		b = binary.LittleEndian.AppendUint32(b, n)
	}
	for _, o := range objs {
		h, err := ToHashable(*o)
		if err != nil {
			return nil, err
		}
		b = h.appendKey(b)
	}
	return b, nil
}

func (c *Code310) key() ([]byte, error) { return codeKey(c.ints(), c.objects()) }
func (c *Code311) key() ([]byte, error) { return codeKey(c.ints(), c.objects()) }

// Equal compares every field.
func (c *Code310) Equal(o *Code310) bool {
	if c == nil || o == nil {
		return c == o
	}
	return equalCode(c.ints(), o.ints(), c.objects(), o.objects())
}

// Equal compares every field, the version included.
func (c *Code311) Equal(o *Code311) bool {
	if c == nil || o == nil {
		return c == o
	}
	return equalCode(c.ints(), o.ints(), c.objects(), o.objects())
}

func equalCode(ai, bi []uint32, ao, bo []*Value) bool {
	for i := range ai {
		if ai[i] != bi[i] {
			return false
		}
	}
	for i := range ao {
		if !Equal(*ao[i], *bo[i]) {
			return false
		}
	}
	return true
}
