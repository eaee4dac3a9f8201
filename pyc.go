package marshal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// PycFile is a compiled module file: a header and one marshalled object.
type PycFile struct {
	Version Version
	// Timestamp is present from 3.7 on.
	Timestamp *uint32
	// Hash is 64 bits wide from 3.7 on and 32 bits before.
	Hash       uint64
	Object     Value
	References []Value
}

func headerSize(v Version) int {
	if v.AtLeast(V3_7) {
		return 4 + 4 + 8
	}
	return 4 + 4
}

// LoadPyc reads a whole pyc file from r.
func LoadPyc(r io.Reader) (*PycFile, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return UnmarshalPyc(b)
}

// UnmarshalPyc parses a pyc file held in b.
func UnmarshalPyc(b []byte) (*PycFile, error) {
	return (&Decoder{MaxDepth: defaultMaxDepth}).UnmarshalPyc(b)
}

// UnmarshalPyc parses a pyc file held in b. The version is taken from the
// header; of d only MaxDepth applies.
func (d *Decoder) UnmarshalPyc(b []byte) (*PycFile, error) {

	if len(b) < 4 {
		return nil, fmt.Errorf("%w: missing magic number", ErrBadHeader)
	}
	v, err := VersionFromMagic(binary.LittleEndian.Uint32(b))
	if err != nil {
		return nil, err
	}

	hsize := headerSize(v)
	if len(b) < hsize {
		return nil, fmt.Errorf("%w: %d header bytes, %s needs %d", ErrBadHeader, len(b), v, hsize)
	}

	p := &PycFile{Version: v}
	if v.AtLeast(V3_7) {
		ts := binary.LittleEndian.Uint32(b[4:])
		p.Timestamp = &ts
		p.Hash = binary.LittleEndian.Uint64(b[8:])
	} else {
		p.Hash = uint64(binary.LittleEndian.Uint32(b[4:]))
	}

	body := &Decoder{Version: v, MaxDepth: d.MaxDepth}
	p.Object, p.References, err = body.Unmarshal(b[hsize:])
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DumpPyc returns the encoding of p, written with the marshal revision the
// interpreter of p.Version uses.
func DumpPyc(p *PycFile) ([]byte, error) {
	return (&Encoder{MaxDepth: defaultMaxDepth}).DumpPyc(p)
}

// DumpPyc is like the package level DumpPyc. The version and revision come
// from p; of e only MaxDepth applies.
func (e *Encoder) DumpPyc(p *PycFile) ([]byte, error) {

	magic, err := p.Version.Magic()
	if err != nil {
		return nil, err
	}

	by := binary.LittleEndian.AppendUint32(nil, magic)
	if p.Version.AtLeast(V3_7) {
		if p.Timestamp == nil {
			return nil, fmt.Errorf("%w: %s header needs a timestamp", ErrBadHeader, p.Version)
		}
		by = binary.LittleEndian.AppendUint32(by, *p.Timestamp)
		by = binary.LittleEndian.AppendUint64(by, p.Hash)
	} else {
		if p.Hash > math.MaxUint32 {
			return nil, fmt.Errorf("%w: hash 0x%x does not fit the %s header", ErrBadHeader, p.Hash, p.Version)
		}
		by = binary.LittleEndian.AppendUint32(by, uint32(p.Hash))
	}

	enc := &Encoder{Revision: RevisionFor(p.Version), Version: p.Version, MaxDepth: e.MaxDepth}
	body, err := enc.Marshal(p.Object, p.References)
	if err != nil {
		return nil, err
	}
	return append(by, body...), nil
}

// WriteTo writes the encoding of p to w.
func (p *PycFile) WriteTo(w io.Writer) (int64, error) {
	b, err := DumpPyc(p)
	if err != nil {
		return 0, err
	}
	return io.Copy(w, bytes.NewReader(b))
}
