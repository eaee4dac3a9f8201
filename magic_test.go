package marshal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMagicTable(t *testing.T) {

	for _, e := range magicTable {
		v, err := VersionFromMagic(e.magic)
		require.NoError(t, err)
		assert.Equal(t, e.version, v)

		m, err := e.version.Magic()
		require.NoError(t, err)
		assert.Equal(t, e.magic, m, "magic for %s", e.version)
	}

	// the bytes on disk for 3.11 are a7 0d 0d 0a
	v, err := VersionFromMagic(0x0A0D0DA7)
	require.NoError(t, err)
	assert.Equal(t, V3_11, v)

	_, err = VersionFromMagic(0x0A0D0DA8)
	assert.ErrorIs(t, err, ErrUnsupportedMagic)

	_, err = Version{3, 14}.Magic()
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
	_, err = Version{2, 7}.Magic()
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestVersionOrder(t *testing.T) {

	assert.True(t, V3_9.Less(V3_10))
	assert.False(t, V3_10.Less(V3_9))
	assert.False(t, V3_10.Less(V3_10))
	assert.True(t, Version{2, 7}.Less(V3_0))

	assert.True(t, V3_11.AtLeast(V3_7))
	assert.True(t, V3_7.AtLeast(V3_7))
	assert.False(t, V3_6.AtLeast(V3_7))

	assert.Equal(t, "3.13", V3_13.String())
}

func TestParseVersion(t *testing.T) {

	v, err := ParseVersion("3.11")
	require.NoError(t, err)
	assert.Equal(t, V3_11, v)

	v, err = ParseVersion(" 3.9\n")
	require.NoError(t, err)
	assert.Equal(t, V3_9, v)

	for _, s := range []string{"", "3", "3.x", "three.1", "3.11.2"} {
		_, err := ParseVersion(s)
		assert.ErrorIs(t, err, ErrUnsupportedVersion, "%q", s)
	}
}

func TestRevisionFor(t *testing.T) {
	assert.Equal(t, 2, RevisionFor(V3_0))
	assert.Equal(t, 2, RevisionFor(V3_3))
	assert.Equal(t, 4, RevisionFor(V3_4))
	assert.Equal(t, 4, RevisionFor(V3_13))
}
