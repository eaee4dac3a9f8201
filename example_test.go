package marshal_test

import (
	"fmt"

	"github.com/pycmarshal/marshal"
)

func Example() {

	// marshal.dumps(['a', 'a']) with the string shared
	data := []byte("[\x02\x00\x00\x00\xfa\x01ar\x00\x00\x00\x00")

	root, refs, err := marshal.Unmarshal(data, marshal.V3_11)
	if err != nil {
		panic(err)
	}
	fmt.Println(len(refs))

	root, refs, err = marshal.Resolve(root, refs)
	if err != nil {
		panic(err)
	}
	fmt.Println(len(refs), len(root.(marshal.List)))

	out, err := marshal.Marshal(root, refs, marshal.V3_11, marshal.DefaultRevision)
	if err != nil {
		panic(err)
	}
	fmt.Printf("%x\n", out)
	// Output:
	// 1
	// 0 2
	// 5b020000007a01617a0161
}
