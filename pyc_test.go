package marshal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pycmarshal/marshal/internal/compress"
)

func TestPycHeader311(t *testing.T) {

	ts := uint32(1)
	p := &PycFile{Version: V3_11, Timestamp: &ts, Hash: 0xbf490be6d25061de, Object: None{}}

	b, err := DumpPyc(p)
	require.NoError(t, err)
	assert.Equal(t, unhex(t, "a70d0d0a"+"01000000"+"de6150d2e60b49bf"+"4e"), b)

	back, err := UnmarshalPyc(b)
	require.NoError(t, err)
	assert.Equal(t, V3_11, back.Version)
	require.NotNil(t, back.Timestamp)
	assert.Equal(t, ts, *back.Timestamp)
	assert.Equal(t, p.Hash, back.Hash)
	assert.Equal(t, None{}, back.Object)
}

func TestPycHeaderLegacy(t *testing.T) {

	p := &PycFile{Version: V3_6, Hash: 0x1234, Object: NewInt(1)}

	b, err := DumpPyc(p)
	require.NoError(t, err)
	assert.Equal(t, unhex(t, "330d0d0a"+"34120000"+"6901000000"), b)

	back, err := UnmarshalPyc(b)
	require.NoError(t, err)
	assert.Nil(t, back.Timestamp)
	assert.Equal(t, uint64(0x1234), back.Hash)
	assert.True(t, Equal(NewInt(1), back.Object))

	// revision 2 before 3.4 still writes binary floats
	b, err = DumpPyc(&PycFile{Version: V3_3, Object: Float(1.5)})
	require.NoError(t, err)
	assert.Equal(t, unhex(t, "9e0c0d0a"+"00000000"+"67000000000000f83f"), b)
}

func TestPycErrors(t *testing.T) {

	_, err := UnmarshalPyc(unhex(t, "a70d"))
	assert.ErrorIs(t, err, ErrBadHeader)

	_, err = UnmarshalPyc(unhex(t, "a70d0d0a01000000"))
	assert.ErrorIs(t, err, ErrBadHeader)

	_, err = UnmarshalPyc(unhex(t, "00000000000000004e"))
	assert.ErrorIs(t, err, ErrUnsupportedMagic)

	_, err = UnmarshalPyc(unhex(t, "a70d0d0a0100000000000000000000005b"))
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = DumpPyc(&PycFile{Version: V3_11, Object: None{}})
	assert.ErrorIs(t, err, ErrBadHeader)

	_, err = DumpPyc(&PycFile{Version: V3_5, Hash: 1 << 32, Object: None{}})
	assert.ErrorIs(t, err, ErrBadHeader)

	_, err = DumpPyc(&PycFile{Version: Version{3, 14}, Object: None{}})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestPycMaxDepth(t *testing.T) {

	var v Value = None{}
	for i := 0; i < 30; i++ {
		v = List{v}
	}
	ts := uint32(0)
	p := &PycFile{Version: V3_11, Timestamp: &ts, Object: v}

	_, err := (&Encoder{MaxDepth: 10}).DumpPyc(p)
	assert.ErrorIs(t, err, ErrDepthLimit)

	b, err := DumpPyc(p)
	require.NoError(t, err)

	_, err = (&Decoder{MaxDepth: 10}).UnmarshalPyc(b)
	assert.ErrorIs(t, err, ErrDepthLimit)

	// the header decides the version, not the decoder
	back, err := NewDecoder(V3_6).UnmarshalPyc(b)
	require.NoError(t, err)
	assert.Equal(t, V3_11, back.Version)
	assert.True(t, Equal(v, back.Object))
}

func TestPycWriteTo(t *testing.T) {

	ts := uint32(0)
	p := &PycFile{Version: V3_10, Timestamp: &ts, Object: Tuple{}}

	var buf bytes.Buffer
	n, err := p.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(18), n)

	back, err := LoadPyc(&buf)
	require.NoError(t, err)
	assert.Equal(t, V3_10, back.Version)
	assert.True(t, Equal(Tuple{}, back.Object))
}

func TestPycModule(t *testing.T) {

	raw, err := os.ReadFile("testdata/module311.pyc")
	require.NoError(t, err)

	p, err := UnmarshalPyc(raw)
	require.NoError(t, err)
	assert.Equal(t, V3_11, p.Version)
	assert.Equal(t, uint32(1), *p.Timestamp)

	root, err := Deref(p.Object, p.References)
	require.NoError(t, err)
	c, ok := root.(*Code311)
	require.True(t, ok, "root is %T", root)

	name, err := Deref(c.Name, p.References)
	require.NoError(t, err)
	assert.Equal(t, "<module>", name.(String).Value)

	consts, err := Deref(c.Consts, p.References)
	require.NoError(t, err)
	assert.Len(t, consts, 18)

	// byte exact
	out, err := DumpPyc(p)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(raw, out), "re-encoding differs")

	// and still the same module once every reference is expanded
	obj, refs, err := Resolve(p.Object, p.References)
	require.NoError(t, err)
	p2 := &PycFile{Version: p.Version, Timestamp: p.Timestamp, Hash: p.Hash, Object: obj, References: refs}
	out, err = DumpPyc(p2)
	require.NoError(t, err)

	back, err := UnmarshalPyc(out)
	require.NoError(t, err)
	obj2, _, err := Resolve(back.Object, back.References)
	require.NoError(t, err)
	assert.True(t, Equal(obj, obj2))
}

func TestPycCorpus(t *testing.T) {

	// plain files plus compressed copies written on the fly
	dir := t.TempDir()
	files, err := filepath.Glob("testdata/*.pyc*")
	require.NoError(t, err)
	if len(files) == 0 {
		t.Skip("no pyc files in testdata")
	}

	var all []string
	for _, f := range files {
		all = append(all, f)
		raw, err := compress.ReadFile(f)
		require.NoError(t, err)
		base := filepath.Base(compress.Trim(f))
		for _, ext := range []string{compress.ExtZlib, compress.ExtSnappy, compress.ExtZstd} {
			name := filepath.Join(dir, base+ext)
			require.NoError(t, compress.WriteFile(name, raw, 0o644))
			all = append(all, name)
		}
	}

	for _, f := range all {
		t.Run(filepath.Base(f), func(t *testing.T) {
			raw, err := compress.ReadFile(f)
			require.NoError(t, err)

			p, err := LoadPyc(bytes.NewReader(raw))
			require.NoError(t, err)

			out, err := DumpPyc(p)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(raw, out), "%s does not re-encode byte for byte", f)

			obj, refs, err := Optimize(p.Object, p.References)
			require.NoError(t, err)
			_, err = NewEncoder(p.Version, RevisionFor(p.Version)).Marshal(obj, refs)
			require.NoError(t, err)
		})
	}
}
