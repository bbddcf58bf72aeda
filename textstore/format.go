package textstore

// A section is laid out as
//
//	[8 bytes LE: offset of the index region, relative to the section start]
//	[block 0][block 1]...[block k-1]
//	[index: uvarint k, then k x (uvarint deltaOffset, uvarint subs)]
//
// Every block is the uvarint length of each of its strings followed by the
// coding.BlockCodec encoding of their concatenation. Block offsets are
// relative to the section start, so the first block sits at offset 8 and its
// delta is 0. Each later delta is measured from the previous block.

const (
	// DefaultBlockSize is the pool size at which the writer flushes a block.
	DefaultBlockSize = 16 * 1024
	// DefaultCacheCapacity is the number of decoded blocks a reader keeps.
	DefaultCacheCapacity = 32
)

// BlockInfo describes one block of a section.
type BlockInfo struct {
	Offset int64  // section-relative byte offset of the block
	From   uint64 // global index of the first string in the block
	Subs   uint64 // number of strings in the block
}

// To returns the index one past the last string in the block.
func (b BlockInfo) To() uint64 { return b.From + b.Subs }
