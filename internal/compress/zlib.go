package compress

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// Zlib frames a document as two varints, the uncompressed and the compressed
// length, followed by a zlib stream.
type Zlib struct {
	Level int // compression level
}

// zlib levels
const (
	ZlibNoCompression      = zlib.NoCompression
	ZlibBestSpeed          = zlib.BestSpeed
	ZlibBestCompression    = zlib.BestCompression
	ZlibDefaultCompression = zlib.DefaultCompression
)

// upper bound for the preallocated output buffer
const maxPrealloc = 64 << 20

var zlibWriterPools = make(map[int]*sync.Pool)

func init() {
	for i := zlib.DefaultCompression; i <= zlib.BestCompression; i++ {
		level := i
		zlibWriterPools[i] = &sync.Pool{
			New: func() interface{} {
				zw, _ := zlib.NewWriterLevel(nil, level)
				return zw
			},
		}
	}
}

// Compress implements Compressor.
func (c Zlib) Compress(b []byte) ([]byte, error) {
	pool := zlibWriterPools[c.Level]
	if pool == nil {
		return nil, fmt.Errorf("compress: unknown zlib level %d", c.Level)
	}

	var comp bytes.Buffer
	zw := pool.Get().(*zlib.Writer)
	defer pool.Put(zw)
	zw.Reset(&comp)

	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	head := appendLen(nil, len(b))
	head = appendLen(head, comp.Len())
	return append(head, comp.Bytes()...), nil
}

// Decompress implements Compressor.
func (c Zlib) Decompress(b []byte) ([]byte, error) {
	uln, sz := binary.Uvarint(b)
	if sz <= 0 {
		return nil, ErrCorrupt
	}
	_, blob, err := frame(b[sz:])
	if err != nil {
		return nil, err
	}

	zr, err := zlib.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	dec := bytes.NewBuffer(make([]byte, 0, min(uln, maxPrealloc)))
	if _, err := dec.ReadFrom(zr); err != nil {
		return nil, err
	}
	if uint64(dec.Len()) != uln {
		return nil, fmt.Errorf("%w: %d bytes, header claims %d", ErrCorrupt, dec.Len(), uln)
	}
	return dec.Bytes(), nil
}
