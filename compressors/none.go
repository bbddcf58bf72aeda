package compressors

import (
	"bytes"

	"github.com/INLOpen/textstore/core"
)

// NoCompressionCompressor stores blocks as is. It is the baseline of the
// compression report.
type NoCompressionCompressor struct{}

var _ core.Compressor = (*NoCompressionCompressor)(nil)

func (c *NoCompressionCompressor) Decompress(data []byte) ([]byte, error) {
	return append([]byte{}, data...), nil
}

func (c *NoCompressionCompressor) Type() core.CompressionType {
	return core.CompressionNone
}

func (c *NoCompressionCompressor) CompressTo(dst *bytes.Buffer, src []byte) error {
	dst.Reset()
	_, err := dst.Write(src)
	return err
}
