package compress

import (
	"math"

	"github.com/golang/snappy"
)

// Snappy frames a document as a snappy block. Incremental frames carry the
// compressed length as a varint in front.
type Snappy struct {
	Incremental bool
}

// Compress implements Compressor.
func (c Snappy) Compress(b []byte) ([]byte, error) {
	if len(b) >= math.MaxUint32 {
		return nil, ErrTooLarge
	}

	compressed := snappy.Encode(nil, b)
	if !c.Incremental {
		return compressed, nil
	}
	out := appendLen(make([]byte, 0, len(compressed)+5), len(compressed))
	return append(out, compressed...), nil
}

// Decompress implements Compressor.
func (c Snappy) Decompress(b []byte) ([]byte, error) {
	if c.Incremental {
		var err error
		if _, b, err = frame(b); err != nil {
			return nil, err
		}
	}
	return snappy.Decode(nil, b)
}
