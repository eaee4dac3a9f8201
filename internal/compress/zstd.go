package compress

// Zstd frames a document as a varint compressed length followed by a zstd
// frame.
type Zstd struct {
	Level int // compression level, ZstdDefaultCompression when zero
}

// zstd levels
const (
	ZstdBestSpeed          = 1
	ZstdBestCompression    = 20
	ZstdDefaultCompression = 3
)

// Compress implements Compressor.
func (c Zstd) Compress(b []byte) ([]byte, error) {
	if c.Level == 0 {
		c.Level = ZstdDefaultCompression
	}

	tail, err := zstdEncode(b, c.Level)
	if err != nil {
		return nil, err
	}
	head := appendLen(nil, len(tail))
	return append(head, tail...), nil
}

// Decompress implements Compressor.
func (c Zstd) Decompress(b []byte) ([]byte, error) {
	_, blob, err := frame(b)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return []byte{}, nil
	}
	return zstdDecode(nil, blob)
}
