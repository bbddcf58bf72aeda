package compressors

import (
	"fmt"

	"github.com/INLOpen/textstore/core"
)

// New returns a fresh compressor for ct.
func New(ct core.CompressionType) (core.Compressor, error) {
	switch ct {
	case core.CompressionNone:
		return &NoCompressionCompressor{}, nil
	case core.CompressionSnappy:
		return NewSnappyCompressor(), nil
	case core.CompressionLZ4:
		return NewLz4Compressor(), nil
	case core.CompressionZSTD:
		return NewZstdCompressor(), nil
	case core.CompressionBWT:
		return NewBWTCompressor(), nil
	}
	return nil, fmt.Errorf("unknown compression type %d", ct)
}

// ByName returns a fresh compressor for a name such as "zstd".
func ByName(name string) (core.Compressor, error) {
	ct, ok := core.ParseCompressionType(name)
	if !ok {
		return nil, fmt.Errorf("unknown compressor %q", name)
	}
	return New(ct)
}

// Names lists the known compressor names.
func Names() []string {
	var names []string
	for ct := core.CompressionNone; ct <= core.CompressionBWT; ct++ {
		names = append(names, ct.String())
	}
	return names
}
