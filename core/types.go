package core

import "bytes"

// CompressionType identifies a block compression algorithm. The textstore
// container records the codec of its sections in the file header; the other
// identifiers are used by the compression report.
type CompressionType byte

const (
	CompressionNone   CompressionType = 0
	CompressionSnappy CompressionType = 1
	CompressionLZ4    CompressionType = 2
	CompressionZSTD   CompressionType = 3
	CompressionBWT    CompressionType = 4 // BWT + MTF + canonical Huffman
)

// Compressor compresses and decompresses whole in-memory blocks.
type Compressor interface {
	// CompressTo resets dst and writes the compressed form of src into it.
	CompressTo(dst *bytes.Buffer, src []byte) error
	// Decompress returns the plaintext of a block produced by CompressTo.
	Decompress(data []byte) ([]byte, error)
	// Type returns the CompressionType identifier for this compressor.
	Type() CompressionType
}

// String returns the string representation of the CompressionType.
func (ct CompressionType) String() string {
	switch ct {
	case CompressionNone:
		return "none"
	case CompressionSnappy:
		return "snappy"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	case CompressionBWT:
		return "bwt"
	default:
		return "unknown"
	}
}

// ParseCompressionType is the inverse of CompressionType.String.
func ParseCompressionType(name string) (CompressionType, bool) {
	for ct := CompressionNone; ct <= CompressionBWT; ct++ {
		if ct.String() == name {
			return ct, true
		}
	}
	return 0, false
}
