package textstore

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/INLOpen/textstore/coding"
	"github.com/INLOpen/textstore/core"
	"github.com/INLOpen/textstore/sys"
)

// Index holds the block table of a section. It is immutable once read and
// safe for concurrent use.
type Index struct {
	blocks      []BlockInfo
	indexOffset int64
	numStrings  uint64
}

// ReadIndex parses the index region of the section r. Any inconsistency
// between the header field, the block offsets and the section size is
// reported as a FormatError.
func ReadIndex(r sys.Reader) (*Index, error) {
	size := r.Size()
	if size < core.SectionHeaderSize {
		return nil, core.NewFormatError("section of %d bytes is shorter than its header", size)
	}
	var field [core.SectionHeaderSize]byte
	if err := sys.ReadFull(r, field[:], 0); err != nil {
		return nil, fmt.Errorf("failed to read section header: %w", err)
	}
	indexOffset := binary.LittleEndian.Uint64(field[:])
	if indexOffset < core.SectionHeaderSize || indexOffset > uint64(size) {
		return nil, core.NewFormatError("index offset %d outside section [%d, %d]", indexOffset, core.SectionHeaderSize, size)
	}

	raw := make([]byte, uint64(size)-indexOffset)
	if err := sys.ReadFull(r, raw, int64(indexOffset)); err != nil {
		return nil, fmt.Errorf("failed to read index region: %w", err)
	}
	src := coding.NewSource(raw)

	count, err := src.ReadUvarint()
	if err != nil {
		return nil, core.NewFormatError("block count: %v", err)
	}
	// Each entry takes at least two bytes.
	if count > uint64(src.Remaining()/2) {
		return nil, core.NewFormatError("block count %d exceeds index region of %d bytes", count, len(raw))
	}

	idx := &Index{
		blocks:      make([]BlockInfo, 0, count),
		indexOffset: int64(indexOffset),
	}
	offset := uint64(core.SectionHeaderSize)
	for i := uint64(0); i < count; i++ {
		delta, err := src.ReadUvarint()
		if err != nil {
			return nil, core.NewFormatError("block %d offset: %v", i, err)
		}
		subs, err := src.ReadUvarint()
		if err != nil {
			return nil, core.NewFormatError("block %d string count: %v", i, err)
		}
		if i == 0 && delta != 0 {
			return nil, core.NewFormatError("first block starts at %d, want %d", offset+delta, core.SectionHeaderSize)
		}
		if i > 0 && delta == 0 {
			return nil, core.NewFormatError("block %d has the same offset as block %d", i, i-1)
		}
		if delta >= indexOffset-offset {
			return nil, core.NewFormatError("block %d offset %d+%d reaches the index region at %d", i, offset, delta, indexOffset)
		}
		if subs == 0 {
			return nil, core.NewFormatError("block %d holds no strings", i)
		}
		if subs > math.MaxUint64-idx.numStrings {
			return nil, core.NewFormatError("string count overflows at block %d", i)
		}
		offset += delta
		idx.blocks = append(idx.blocks, BlockInfo{Offset: int64(offset), From: idx.numStrings, Subs: subs})
		idx.numStrings += subs
	}
	if src.Remaining() != 0 {
		return nil, core.NewFormatError("%d trailing bytes after index", src.Remaining())
	}
	if count == 0 && indexOffset != core.SectionHeaderSize {
		return nil, core.NewFormatError("data region of %d bytes without blocks", indexOffset-core.SectionHeaderSize)
	}
	return idx, nil
}

// NumBlocks returns the number of blocks.
func (idx *Index) NumBlocks() int { return len(idx.blocks) }

// NumStrings returns the total number of strings.
func (idx *Index) NumStrings() uint64 { return idx.numStrings }

// Blocks returns the block table. The slice must not be modified.
func (idx *Index) Blocks() []BlockInfo { return idx.blocks }

// IndexOffset returns the section-relative offset of the index region.
func (idx *Index) IndexOffset() int64 { return idx.indexOffset }

// GetBlockIx returns the block holding string stringIx, or NumBlocks() if
// stringIx is out of range.
func (idx *Index) GetBlockIx(stringIx uint64) int {
	if stringIx >= idx.numStrings {
		return len(idx.blocks)
	}
	return sort.Search(len(idx.blocks), func(i int) bool {
		return idx.blocks[i].To() > stringIx
	})
}

// BlockRange returns the section-relative byte range [start, end) of block i.
func (idx *Index) BlockRange(i int) (start, end int64) {
	start = idx.blocks[i].Offset
	if i+1 < len(idx.blocks) {
		return start, idx.blocks[i+1].Offset
	}
	return start, idx.indexOffset
}
