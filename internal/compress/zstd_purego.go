//go:build !clibs

package compress

import "github.com/klauspost/compress/zstd"

func zstdEncode(b []byte, level int) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(b, nil), nil
}

var decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))

func zstdDecode(dst, b []byte) ([]byte, error) { return decoder.DecodeAll(b, dst) }
