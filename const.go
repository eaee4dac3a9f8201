package marshal

// refFlag marks a value that is recorded in the reference table so later
// back-references can point at it.
const refFlag = byte(0x80)

// wire kinds, the low 7 bits of a tag byte
const (
	typeNULL                 = '0'
	typeNONE                 = 'N'
	typeFALSE                = 'F'
	typeTRUE                 = 'T'
	typeSTOPITER             = 'S'
	typeELLIPSIS             = '.'
	typeINT                  = 'i'
	typeINT64                = 'I'
	typeFLOAT                = 'f'
	typeBINARY_FLOAT         = 'g'
	typeCOMPLEX              = 'x'
	typeBINARY_COMPLEX       = 'y'
	typeLONG                 = 'l'
	typeSTRING               = 's'
	typeINTERNED             = 't'
	typeREF                  = 'r'
	typeTUPLE                = '('
	typeLIST                 = '['
	typeDICT                 = '{'
	typeCODE                 = 'c'
	typeUNICODE              = 'u'
	typeUNKNOWN              = '?'
	typeSET                  = '<'
	typeFROZENSET            = '>'
	typeASCII                = 'a'
	typeASCII_INTERNED       = 'A'
	typeSMALL_TUPLE          = ')'
	typeSHORT_ASCII          = 'z'
	typeSHORT_ASCII_INTERNED = 'Z'
)

// long digits are 15 bits wide on the wire
const (
	longShift = 15
	longMask  = 1<<longShift - 1
)

// DefaultRevision is the marshal revision written by current interpreters.
const DefaultRevision = 4

// kindName is used in error messages and dumps.
func kindName(k byte) string {
	switch k {
	case typeNULL:
		return "NULL"
	case typeNONE:
		return "None"
	case typeFALSE:
		return "False"
	case typeTRUE:
		return "True"
	case typeSTOPITER:
		return "StopIteration"
	case typeELLIPSIS:
		return "Ellipsis"
	case typeINT:
		return "int"
	case typeINT64:
		return "int64"
	case typeFLOAT:
		return "float"
	case typeBINARY_FLOAT:
		return "binary float"
	case typeCOMPLEX:
		return "complex"
	case typeBINARY_COMPLEX:
		return "binary complex"
	case typeLONG:
		return "long"
	case typeSTRING:
		return "bytes"
	case typeINTERNED:
		return "interned"
	case typeREF:
		return "ref"
	case typeTUPLE:
		return "tuple"
	case typeLIST:
		return "list"
	case typeDICT:
		return "dict"
	case typeCODE:
		return "code"
	case typeUNICODE:
		return "unicode"
	case typeSET:
		return "set"
	case typeFROZENSET:
		return "frozenset"
	case typeASCII:
		return "ascii"
	case typeASCII_INTERNED:
		return "ascii interned"
	case typeSMALL_TUPLE:
		return "small tuple"
	case typeSHORT_ASCII:
		return "short ascii"
	case typeSHORT_ASCII_INTERNED:
		return "short ascii interned"
	}
	return "unknown"
}
