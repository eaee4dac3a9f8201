// fuzzer feeds random marshal data to the decoder and checks that whatever
// decodes also survives an encode and decode round trip. With -minimize it
// shrinks a failing input instead.
package main

import (
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"

	"github.com/dgryski/go-ddmin"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/pycmarshal/marshal"
	"github.com/pycmarshal/marshal/internal/compress"
)

var log = commonlog.GetLogger("fuzzer")

// container tags seed the random documents so most runs get past the first byte
var seeds = []byte("([{<>)c")

func main() {

	var (
		version  = flag.String("version", "3.11", "interpreter version")
		rounds   = flag.Int("n", 0, "number of documents, 0 runs forever")
		maxLen   = flag.Int("len", 200, "maximum document length")
		minimize = flag.String("minimize", "", "shrink the failing document in this file")
		verbose  = flag.Int("v", 0, "log verbosity")
	)
	flag.Parse()
	commonlog.Configure(*verbose, nil)

	v, err := marshal.ParseVersion(*version)
	if err != nil {
		log.Errorf("%s", err)
		os.Exit(2)
	}

	if *minimize != "" {
		b, err := compress.ReadFile(*minimize)
		if err != nil {
			log.Errorf("%s", err)
			os.Exit(1)
		}
		small := ddmin.Minimize(b, func(d []byte) ddmin.Result {
			if check(v, d) != nil {
				return ddmin.Fail
			}
			return ddmin.Pass
		})
		fmt.Println(hex.Dump(small))
		fmt.Println("err=", check(v, small))
		return
	}

	for i := 0; *rounds == 0 || i < *rounds; i++ {
		doc := make([]byte, 1+mrand.Intn(*maxLen))
		crand.Read(doc)
		doc[0] = seeds[mrand.Intn(len(seeds))] | doc[0]&0x80

		if err := check(v, doc); err != nil {
			fmt.Println(hex.Dump(doc))
			fmt.Println("err=", err)
			continue
		}
		log.Debugf("ok: %x", doc)
	}
}

// check reports a document that decodes but does not round trip, or that
// makes the codec panic. Documents the decoder rejects are fine.
func check(v marshal.Version, doc []byte) error {
	return guard(func() error { return roundTrip(v, doc) })
}

// guard turns a panic in f into an error.
func guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return f()
}

func roundTrip(v marshal.Version, doc []byte) error {

	root, refs, err := marshal.Unmarshal(doc, v)
	if err != nil {
		return nil
	}

	out, err := marshal.Marshal(root, refs, v, marshal.RevisionFor(v))
	if err != nil {
		return fmt.Errorf("encoding decoded document: %w", err)
	}

	root2, refs2, err := marshal.Unmarshal(out, v)
	if err != nil {
		return fmt.Errorf("decoding re-encoded document: %w", err)
	}
	if !marshal.Equal(root, root2) || len(refs) != len(refs2) {
		return errors.New("round trip changed the document")
	}

	if _, _, err := marshal.Resolve(root, refs); err != nil && !isGraphError(err) {
		return fmt.Errorf("resolving: %w", err)
	}
	return nil
}

func isGraphError(err error) bool {
	return errors.Is(err, marshal.ErrRecursiveStore) || errors.Is(err, marshal.ErrInvalidReference)
}
