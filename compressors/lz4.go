package compressors

import (
	"bytes"
	"fmt"

	"github.com/INLOpen/textstore/coding"
	"github.com/INLOpen/textstore/core"
	lz4 "github.com/pierrec/lz4/v4"
)

// maxLZ4BlockSize bounds the plaintext size accepted on decompression.
const maxLZ4BlockSize = 64 * 1024 * 1024

// LZ4Compressor implements the Compressor interface using the LZ4 block
// format. The block format does not record the plaintext size, so
// CompressTo prefixes it as a uvarint.
type LZ4Compressor struct{}

var _ core.Compressor = (*LZ4Compressor)(nil)

func NewLz4Compressor() *LZ4Compressor {
	return &LZ4Compressor{}
}

func (c *LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	src := coding.NewSource(data)
	size, err := src.ReadUvarint()
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress error: bad size prefix: %w", err)
	}
	if size > maxLZ4BlockSize {
		return nil, fmt.Errorf("lz4 decompress error: block of %d bytes exceeds limit", size)
	}
	payload, _ := src.Next(src.Remaining())
	dst := make([]byte, size)
	if size == 0 {
		return dst, nil
	}
	n, err := lz4.UncompressBlock(payload, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress error: %w", err)
	}
	if uint64(n) != size {
		return nil, fmt.Errorf("lz4 decompress error: got %d bytes, want %d", n, size)
	}
	return dst, nil
}

func (c *LZ4Compressor) Type() core.CompressionType {
	return core.CompressionLZ4
}

// CompressTo compresses src into dst using the LZ4 block format.
func (c *LZ4Compressor) CompressTo(dst *bytes.Buffer, src []byte) error {
	dst.Reset()
	if err := coding.WriteUvarint(dst, uint64(len(src))); err != nil {
		return err
	}
	if len(src) == 0 {
		return nil
	}
	tempBuf := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, tempBuf, nil)
	if err != nil {
		return fmt.Errorf("lz4 CompressTo block compress error: %w", err)
	}
	if n == 0 {
		// Incompressible input; CompressBlock leaves it to the caller.
		return fmt.Errorf("lz4 compression produced no output for %d bytes", len(src))
	}
	dst.Write(tempBuf[:n])
	return nil
}
