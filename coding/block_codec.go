package coding

import (
	"errors"
	"io"
	"math"

	"github.com/INLOpen/textstore/core"
)

// BlockCodec composes BWT, move-to-front and canonical Huffman coding to
// encode one block of plaintext. A BlockCodec keeps scratch state and must
// not be shared between goroutines.
type BlockCodec struct {
	huffman *Huffman
	mtf     MoveToFront
	scratch []byte
}

// NewBlockCodec creates a codec using build for Huffman code lengths; nil
// selects GreedyLengths.
func NewBlockCodec(build LengthBuilder) *BlockCodec {
	return &BlockCodec{huffman: NewHuffman(build)}
}

// Encode writes the encoded form of data to w.
func (c *BlockCodec) Encode(w io.Writer, data []byte) error {
	n := len(data)
	if cap(c.scratch) < n {
		c.scratch = make([]byte, n)
	}
	permuted := c.scratch[:n]
	start := BWTEncodeTo(permuted, data)

	c.mtf.Reset()
	c.mtf.EncodeInPlace(permuted)

	if err := c.huffman.Init(permuted); err != nil {
		return err
	}
	if err := WriteUvarint(w, uint64(n)); err != nil {
		return err
	}
	if err := WriteUvarint(w, uint64(start)); err != nil {
		return err
	}
	if err := c.huffman.WriteEncoding(w); err != nil {
		return err
	}
	return c.huffman.EncodeAndWrite(w, permuted)
}

// Decode reads one encoded block from src and returns its plaintext.
// Malformed input is reported as a CorruptBlockError.
func (c *BlockCodec) Decode(src *Source) ([]byte, error) {
	n, err := src.ReadUvarint()
	if err != nil {
		return nil, corruptVarint("plaintext length", err)
	}
	start, err := src.ReadUvarint()
	if err != nil {
		return nil, corruptVarint("bwt start", err)
	}
	if n > math.MaxInt32 {
		return nil, core.NewCorruptBlockError("plaintext length %d too large", n)
	}
	if start >= n && !(n == 0 && start == 0) {
		return nil, core.NewCorruptBlockError("bwt start %d outside [0, %d)", start, n)
	}
	if err := c.huffman.ReadEncoding(src); err != nil {
		return nil, err
	}
	permuted, err := c.huffman.ReadAndDecode(src, int(n))
	if err != nil {
		return nil, err
	}
	c.mtf.Reset()
	c.mtf.DecodeInPlace(permuted)
	return BWTDecode(int(start), permuted)
}

func corruptVarint(field string, err error) error {
	if errors.Is(err, ErrVarintOverflow) {
		return core.NewCorruptBlockError("%s overflows", field)
	}
	return core.NewCorruptBlockError("%s truncated", field)
}

// EncodeBlock encodes data with a fresh default codec.
func EncodeBlock(w io.Writer, data []byte) error {
	return NewBlockCodec(nil).Encode(w, data)
}

// DecodeBlock decodes one block from buf with a fresh default codec and
// returns the plaintext and the number of bytes consumed.
func DecodeBlock(buf []byte) ([]byte, int, error) {
	src := NewSource(buf)
	out, err := NewBlockCodec(nil).Decode(src)
	if err != nil {
		return nil, 0, err
	}
	return out, src.Pos(), nil
}
