package compressors

import (
	"bytes"
	"fmt"

	"github.com/INLOpen/textstore/coding"
	"github.com/INLOpen/textstore/core"
)

// BWTCompressor wraps the text store block codec. A BlockCodec keeps
// scratch space, so BWTCompressor must not be shared between goroutines.
type BWTCompressor struct {
	codec *coding.BlockCodec
}

var _ core.Compressor = (*BWTCompressor)(nil)

func NewBWTCompressor() *BWTCompressor {
	return &BWTCompressor{codec: coding.NewBlockCodec(nil)}
}

func (c *BWTCompressor) Decompress(data []byte) ([]byte, error) {
	src := coding.NewSource(data)
	out, err := c.codec.Decode(src)
	if err != nil {
		return nil, err
	}
	if src.Remaining() != 0 {
		return nil, core.NewCorruptBlockError("%d trailing bytes", src.Remaining())
	}
	return out, nil
}

func (c *BWTCompressor) Type() core.CompressionType {
	return core.CompressionBWT
}

func (c *BWTCompressor) CompressTo(dst *bytes.Buffer, src []byte) error {
	dst.Reset()
	if err := c.codec.Encode(dst, src); err != nil {
		return fmt.Errorf("bwt compress error: %w", err)
	}
	return nil
}
