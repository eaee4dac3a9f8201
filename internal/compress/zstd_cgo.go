//go:build clibs

package compress

import "github.com/DataDog/zstd"

func zstdEncode(b []byte, level int) ([]byte, error) { return zstd.CompressLevel(nil, b, level) }

func zstdDecode(dst, b []byte) ([]byte, error) { return zstd.Decompress(dst, b) }
