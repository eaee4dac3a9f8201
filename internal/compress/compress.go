// Package compress frames pyc payloads with zlib, snappy or zstd so corpora
// of compiled modules can be stored compressed.
package compress

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Compressor compresses and decompresses one framed document.
type Compressor interface {
	Compress(b []byte) ([]byte, error)
	Decompress(b []byte) ([]byte, error)
}

// ErrCorrupt is returned when a frame header does not match its payload.
var ErrCorrupt = errors.New("compress: corrupt frame")

// ErrTooLarge is returned for documents that do not fit a frame.
var ErrTooLarge = errors.New("compress: document too large")

// file name extensions, one per framing
const (
	ExtZlib   = ".zz"
	ExtSnappy = ".sz"
	ExtZstd   = ".zst"
)

// ForPath picks the compressor matching the extension of name.
func ForPath(name string) (Compressor, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtZlib:
		return Zlib{Level: ZlibDefaultCompression}, true
	case ExtSnappy:
		return Snappy{Incremental: true}, true
	case ExtZstd:
		return Zstd{}, true
	}
	return nil, false
}

// Trim strips a compression extension from name.
func Trim(name string) string {
	if _, ok := ForPath(name); ok {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

// ReadFile reads name, decompressing it when the extension asks for it.
func ReadFile(name string) ([]byte, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	c, ok := ForPath(name)
	if !ok {
		return b, nil
	}
	return c.Decompress(b)
}

// WriteFile writes b to name, compressing it when the extension asks for it.
func WriteFile(name string, b []byte, perm os.FileMode) error {
	if c, ok := ForPath(name); ok {
		var err error
		if b, err = c.Compress(b); err != nil {
			return err
		}
	}
	return os.WriteFile(name, b, perm)
}

// frame reads a varint length and returns the payload it covers.
func frame(b []byte) (int, []byte, error) {
	ln, sz := binary.Uvarint(b)
	if sz <= 0 || ln > math.MaxInt32 || uint64(len(b)-sz) < ln {
		return 0, nil, ErrCorrupt
	}
	return sz, b[sz : sz+int(ln)], nil
}

func appendLen(b []byte, n int) []byte { return binary.AppendUvarint(b, uint64(n)) }
