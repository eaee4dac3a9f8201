//go:build gofuzz

package marshal

import (
	"github.com/google/go-cmp/cmp"
)

// Fuzz decodes data as 3.11 marshal data and checks that it survives an
// encode and decode round trip.
func Fuzz(data []byte) int {

	root, refs, err := Unmarshal(data, V3_11)
	if err != nil {
		return 0
	}

	enc, err := Marshal(root, refs, V3_11, DefaultRevision)
	if err != nil {
		panic("unable to marshal: " + err.Error())
	}

	root2, refs2, err := Unmarshal(enc, V3_11)
	if err != nil {
		panic("unmarshalling marshalled data: " + err.Error())
	}

	if !Equal(root, root2) || !cmp.Equal(refs, refs2) {
		panic("failed to roundtrip: " + cmp.Diff(refs, refs2))
	}

	return 1
}

// FuzzResolve checks that resolving a decoded graph never fails on data the
// decoder accepted, and that the result can be written.
func FuzzResolve(data []byte) int {

	root, refs, err := Unmarshal(data, V3_10)
	if err != nil {
		return 0
	}

	root, refs, err = Resolve(root, refs)
	if err != nil {
		return 0
	}

	if _, err := Marshal(root, refs, V3_10, DefaultRevision); err != nil {
		panic("unable to marshal resolved data: " + err.Error())
	}

	return 1
}
