package marshal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSharedLeaf(t *testing.T) {

	root := List{StoreRef(0), LoadRef(0), LoadRef(0)}
	refs := []Value{NewInt(1)}

	got, table, err := Resolve(root, refs)
	require.NoError(t, err)
	assert.Empty(t, table)
	assert.Empty(t, cmp.Diff(List{NewInt(1), NewInt(1), NewInt(1)}, got))
}

func TestResolveSelfReference(t *testing.T) {

	root := LoadRef(0)
	refs := []Value{List{LoadRef(0)}}

	got, table, err := Resolve(root, refs)
	require.NoError(t, err)
	assert.Equal(t, LoadRef(0), got)
	require.Len(t, table, 1)
	assert.Empty(t, cmp.Diff(List{LoadRef(0)}, table[0]))
}

func TestResolveDecodedCycle(t *testing.T) {

	root, refs, err := Unmarshal(unhex(t, "db010000007200000000"), V3_11)
	require.NoError(t, err)

	got, table, err := Resolve(root, refs)
	require.NoError(t, err)
	assert.Equal(t, StoreRef(0), got)
	require.Len(t, table, 1)
	assert.Empty(t, cmp.Diff(List{LoadRef(0)}, table[0]))

	// still writes the original bytes
	b, err := Marshal(got, table, V3_11, 4)
	require.NoError(t, err)
	assert.Equal(t, unhex(t, "db010000007200000000"), b)
}

func TestResolveMutualCycle(t *testing.T) {

	// a = [b], b = [a], plus an acyclic leaf shared inside b
	root := StoreRef(0)
	refs := []Value{
		List{StoreRef(1)},
		List{LoadRef(0), StoreRef(2), LoadRef(2)},
		sa("leaf"),
	}

	got, table, err := Resolve(root, refs)
	require.NoError(t, err)

	assert.Equal(t, StoreRef(0), got)
	require.Len(t, table, 1)
	want := List{List{LoadRef(0), sa("leaf"), sa("leaf")}}
	assert.Empty(t, cmp.Diff(want, table[0]))
}

func TestResolveAcyclicCode(t *testing.T) {

	root, refs, err := Unmarshal(unhex(t, code311Hex), V3_11)
	require.NoError(t, err)

	got, table, err := Resolve(root, refs)
	require.NoError(t, err)
	assert.Empty(t, table)

	c := got.(*Code311)
	assert.Equal(t, sai("f"), c.Name)
	assert.Equal(t, sai("f"), c.QualName)
	assert.Equal(t, Tuple{sai("a"), sai("b"), sai("args"), sai("kw"), sai("x")}, c.LocalsPlusNames)
	assert.False(t, containsRef(got), "placeholders left in %v", got)

	// resolving is idempotent
	got2, table2, err := Resolve(got, table)
	require.NoError(t, err)
	assert.Empty(t, table2)
	assert.True(t, Equal(got, got2))
}

func TestResolveRecursiveStore(t *testing.T) {

	// a definition that contains its own definition again
	_, _, err := Resolve(StoreRef(0), []Value{List{List{StoreRef(0)}}})
	assert.ErrorIs(t, err, ErrRecursiveStore)

	// once the slot is loaded the inner definition is just another load
	root, table, err := Resolve(LoadRef(0), []Value{List{List{StoreRef(0)}}})
	require.NoError(t, err)
	assert.Equal(t, LoadRef(0), root)
	assert.Empty(t, cmp.Diff([]Value{List{List{LoadRef(0)}}}, table))

	_, err = findCycles(StoreRef(0), []Value{List{StoreRef(0)}})
	assert.ErrorIs(t, err, ErrRecursiveStore)
}

func TestResolveInvalidReference(t *testing.T) {

	_, _, err := Resolve(List{LoadRef(4)}, []Value{None{}})
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func containsRef(v Value) bool {
	found := false
	var walk func(Value) error
	walk = func(v Value) error {
		switch v.(type) {
		case LoadRef, StoreRef:
			found = true
			return nil
		}
		return eachChild(v, walk)
	}
	_ = walk(v)
	return found
}
