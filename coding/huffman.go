package coding

import (
	"bytes"
	"container/heap"
	"fmt"
	"io"

	"github.com/INLOpen/textstore/core"
)

// MaxCodeLength is the longest codeword the coder produces or accepts.
const MaxCodeLength = 32

// CodeLengths holds the Huffman code length of every byte value; zero marks
// an absent symbol.
type CodeLengths [256]uint8

// LengthBuilder derives code lengths from a frequency histogram. Any builder
// whose lengths satisfy the Kraft inequality and stay within MaxCodeLength
// produces a decodable stream, since codewords are regenerated canonically
// from the lengths alone.
type LengthBuilder func(freqs *[256]uint64) CodeLengths

// Huffman is a canonical Huffman coder over bytes. Codewords are assigned in
// order of (length, symbol), so only the lengths are serialized.
type Huffman struct {
	build   LengthBuilder
	lengths CodeLengths
	codes   [256]uint32

	// Canonical decoding tables: codewords of length l occupy
	// [first[l], first[l]+count[l]) and map to symbols[offset[l]:].
	count   [MaxCodeLength + 1]int
	first   [MaxCodeLength + 1]uint64
	offset  [MaxCodeLength + 1]int
	symbols []byte
	maxLen  int
}

// NewHuffman creates a coder using build to derive code lengths. A nil
// build selects GreedyLengths.
func NewHuffman(build LengthBuilder) *Huffman {
	if build == nil {
		build = GreedyLengths
	}
	return &Huffman{build: build}
}

// Init builds the code table from the byte histogram of data. A table from
// the LengthBuilder that SetLengths rejects is returned as an error.
func (h *Huffman) Init(data []byte) error {
	var freqs [256]uint64
	for _, b := range data {
		freqs[b]++
	}
	lengths := h.build(&freqs)
	for sym, f := range freqs {
		if f > 0 && lengths[sym] == 0 {
			return fmt.Errorf("length builder left symbol %d without a code", sym)
		}
	}
	if err := h.SetLengths(lengths); err != nil {
		return fmt.Errorf("invalid code lengths from length builder: %w", err)
	}
	return nil
}

// Lengths returns the current code lengths.
func (h *Huffman) Lengths() CodeLengths { return h.lengths }

// SetLengths installs a code length table and regenerates canonical codes.
// Lengths that overflow MaxCodeLength or violate the Kraft inequality are
// reported as a CorruptBlockError.
func (h *Huffman) SetLengths(lengths CodeLengths) error {
	var count [MaxCodeLength + 1]int
	maxLen := 0
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		if int(l) > MaxCodeLength {
			return core.NewCorruptBlockError("huffman code length %d for symbol %d exceeds %d", l, sym, MaxCodeLength)
		}
		count[l]++
		if int(l) > maxLen {
			maxLen = int(l)
		}
	}
	var kraft uint64
	for l := 1; l <= MaxCodeLength; l++ {
		kraft += uint64(count[l]) << (MaxCodeLength - l)
	}
	if kraft > 1<<MaxCodeLength {
		return core.NewCorruptBlockError("huffman code lengths are over-subscribed")
	}

	h.lengths = lengths
	h.count = count
	h.maxLen = maxLen

	var next [MaxCodeLength + 2]uint64
	code := uint64(0)
	idx := 0
	for l := 1; l <= MaxCodeLength; l++ {
		code = (code + uint64(count[l-1])) << 1
		next[l] = code
		h.first[l] = code
		h.offset[l] = idx
		idx += count[l]
	}
	h.symbols = make([]byte, idx)
	var fill [MaxCodeLength + 1]int
	for sym := 0; sym < 256; sym++ {
		l := lengths[sym]
		if l == 0 {
			h.codes[sym] = 0
			continue
		}
		h.codes[sym] = uint32(next[l])
		next[l]++
		h.symbols[h.offset[l]+fill[l]] = byte(sym)
		fill[l]++
	}
	return nil
}

// WriteEncoding serializes the table: VarUint(count) followed by count
// (symbol, length) byte pairs in ascending symbol order.
func (h *Huffman) WriteEncoding(w io.Writer) error {
	present := 0
	for _, l := range h.lengths {
		if l != 0 {
			present++
		}
	}
	if err := WriteUvarint(w, uint64(present)); err != nil {
		return err
	}
	pairs := make([]byte, 0, 2*present)
	for sym, l := range h.lengths {
		if l != 0 {
			pairs = append(pairs, byte(sym), l)
		}
	}
	if _, err := w.Write(pairs); err != nil {
		return fmt.Errorf("failed to write huffman table: %w", err)
	}
	return nil
}

// ReadEncoding parses a table written by WriteEncoding.
func (h *Huffman) ReadEncoding(src *Source) error {
	present, err := src.ReadUvarint()
	if err != nil {
		return core.NewCorruptBlockError("huffman table size: %v", err)
	}
	if present > 256 {
		return core.NewCorruptBlockError("huffman table lists %d symbols", present)
	}
	pairs, err := src.Next(int(2 * present))
	if err != nil {
		return core.NewCorruptBlockError("huffman table truncated: %v", err)
	}
	var lengths CodeLengths
	prev := -1
	for i := 0; i < len(pairs); i += 2 {
		sym, l := int(pairs[i]), pairs[i+1]
		if sym <= prev {
			return core.NewCorruptBlockError("huffman table symbols out of order at %d", sym)
		}
		if l == 0 {
			return core.NewCorruptBlockError("huffman table lists symbol %d with zero length", sym)
		}
		lengths[sym] = l
		prev = sym
	}
	return h.SetLengths(lengths)
}

// EncodeAndWrite writes the bit-packed codewords of data, zero padded to a
// byte boundary. Every byte of data must have a non-zero code length.
func (h *Huffman) EncodeAndWrite(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	bw := bitWriter{buf: make([]byte, 0, len(data)/2+8)}
	for _, b := range data {
		l := h.lengths[b]
		if l == 0 {
			return fmt.Errorf("huffman: symbol %d has no code", b)
		}
		bw.writeBits(h.codes[b], l)
	}
	if _, err := w.Write(bw.flush()); err != nil {
		return fmt.Errorf("failed to write huffman bitstream: %w", err)
	}
	return nil
}

// ReadAndDecode decodes exactly count symbols from src and advances src past
// the byte-aligned bitstream.
func (h *Huffman) ReadAndDecode(src *Source, count int) ([]byte, error) {
	if count == 0 {
		return []byte{}, nil
	}
	// Every symbol costs at least one bit.
	if count < 0 || count/8 > src.Remaining() {
		return nil, core.NewCorruptBlockError("huffman stream too short for %d symbols", count)
	}
	if h.maxLen == 0 {
		return nil, core.NewCorruptBlockError("empty huffman table for %d symbols", count)
	}
	out := make([]byte, count)
	br := newBitReader(src.rest())
	for i := range out {
		code := uint64(0)
		l := 1
		for ; l <= h.maxLen; l++ {
			bit, ok := br.readBit()
			if !ok {
				return nil, core.NewCorruptBlockError("huffman stream ended after %d of %d symbols", i, count)
			}
			code = code<<1 | bit
			if c := h.count[l]; c > 0 && code >= h.first[l] && code < h.first[l]+uint64(c) {
				out[i] = h.symbols[h.offset[l]+int(code-h.first[l])]
				break
			}
		}
		if l > h.maxLen {
			return nil, core.NewCorruptBlockError("invalid huffman codeword at symbol %d", i)
		}
	}
	if !br.paddingIsZero() {
		return nil, core.NewCorruptBlockError("non-zero huffman padding bits")
	}
	src.skip(br.consumed())
	return out, nil
}

// EncodedSize returns the bitstream size in bytes for data under the current
// table.
func (h *Huffman) EncodedSize(data []byte) int {
	bits := 0
	for _, b := range data {
		bits += int(h.lengths[b])
	}
	return (bits + 7) / 8
}

// String renders the non-zero lengths, mostly for debugging.
func (h *Huffman) String() string {
	var b bytes.Buffer
	b.WriteString("huffman{")
	first := true
	for sym, l := range h.lengths {
		if l == 0 {
			continue
		}
		if !first {
			b.WriteByte(' ')
		}
		first = false
		fmt.Fprintf(&b, "%d:%d", sym, l)
	}
	b.WriteByte('}')
	return b.String()
}

type huffNode struct {
	weight uint64
	order  int // creation order, breaks weight ties
}

type nodeHeap struct {
	nodes []huffNode
	items []int
}

func (q *nodeHeap) Len() int { return len(q.items) }
func (q *nodeHeap) Less(i, j int) bool {
	a, b := q.nodes[q.items[i]], q.nodes[q.items[j]]
	if a.weight != b.weight {
		return a.weight < b.weight
	}
	return a.order < b.order
}
func (q *nodeHeap) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *nodeHeap) Push(x any)    { q.items = append(q.items, x.(int)) }
func (q *nodeHeap) Pop() any {
	last := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	return last
}

// GreedyLengths assigns lengths by repeatedly merging the two lightest
// subtrees. When the tree gets deeper than MaxCodeLength the frequencies are
// halved (keeping every present symbol non-zero) and the tree is rebuilt.
func GreedyLengths(freqs *[256]uint64) CodeLengths {
	weights := *freqs
	for {
		lengths, depth := greedyTree(&weights)
		if depth <= MaxCodeLength {
			return lengths
		}
		for i, w := range weights {
			if w != 0 {
				weights[i] = w/2 + 1
			}
		}
	}
}

func greedyTree(weights *[256]uint64) (CodeLengths, int) {
	var lengths CodeLengths
	q := &nodeHeap{}
	leaves := make([]int, 0, 256) // node index -> symbol for leaves
	for sym, w := range weights {
		if w == 0 {
			continue
		}
		q.nodes = append(q.nodes, huffNode{weight: w, order: len(q.nodes)})
		q.items = append(q.items, len(q.nodes)-1)
		leaves = append(leaves, sym)
	}
	switch len(leaves) {
	case 0:
		return lengths, 0
	case 1:
		// A lone symbol still costs one bit per occurrence.
		lengths[leaves[0]] = 1
		return lengths, 1
	}
	heap.Init(q)
	parent := make([]int, len(q.nodes), 2*len(q.nodes))
	for q.Len() > 1 {
		a := heap.Pop(q).(int)
		b := heap.Pop(q).(int)
		q.nodes = append(q.nodes, huffNode{weight: q.nodes[a].weight + q.nodes[b].weight, order: len(q.nodes)})
		id := len(q.nodes) - 1
		parent = append(parent, -1)
		parent[a], parent[b] = id, id
		heap.Push(q, id)
	}
	// Parents are created after their children, so walking from the root
	// down resolves every depth in one pass.
	depth := make([]int, len(q.nodes))
	for id := len(q.nodes) - 2; id >= 0; id-- {
		depth[id] = depth[parent[id]] + 1
	}
	maxDepth := 0
	for id, sym := range leaves {
		d := depth[id]
		if d > maxDepth {
			maxDepth = d
		}
		if d > MaxCodeLength {
			continue
		}
		lengths[sym] = uint8(d)
	}
	return lengths, maxDepth
}
