package textstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"testing"

	"github.com/INLOpen/textstore/coding"
	"github.com/INLOpen/textstore/core"
	"github.com/INLOpen/textstore/sys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"golang.org/x/sync/errgroup"
)

func buildSection(t *testing.T, blockSize int, strs [][]byte) []byte {
	t.Helper()
	sink := sys.NewMemWriter()
	err := Write(sink, WriterOptions{BlockSize: blockSize}, func(w *Writer) error {
		for _, s := range strs {
			if err := w.Append(s); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return sink.Bytes()
}

func openSection(data []byte, capacity int) *Reader {
	return NewReader(sys.NewBytesReader(data), ReaderOptions{CacheCapacity: capacity})
}

func requireAllStrings(t *testing.T, r *Reader, want [][]byte, order []int) {
	t.Helper()
	n, err := r.NumStrings()
	require.NoError(t, err)
	require.Equal(t, uint64(len(want)), n)
	for _, i := range order {
		got, err := r.ExtractString(uint64(i))
		require.NoError(t, err, "index %d", i)
		require.Equal(t, string(want[i]), got, "index %d", i)
	}
}

func ascending(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func TestScenarioA_SmallStrings(t *testing.T) {
	strs := [][]byte{[]byte(""), []byte("Hello"), []byte("Hello, World!"), []byte("Hola mundo"), []byte("Smoke test")}
	r := openSection(buildSection(t, 10, strs), 0)
	requireAllStrings(t, r, strs, ascending(len(strs)))
}

func TestScenarioB_RandomStrings(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	strs := make([][]byte, 1000)
	for i := range strs {
		strs[i] = make([]byte, rng.Intn(401))
		rng.Read(strs[i])
	}
	r := openSection(buildSection(t, 100, strs), 0)

	requireAllStrings(t, r, strs, ascending(len(strs)))
	desc := ascending(len(strs))
	for i, j := 0, len(desc)-1; i < j; i, j = i+1, j-1 {
		desc[i], desc[j] = desc[j], desc[i]
	}
	requireAllStrings(t, r, strs, desc)
}

func TestScenarioC_InterleavedEmptyStrings(t *testing.T) {
	if testing.Short() {
		t.Skip("writes a million strings")
	}
	var strs [][]byte
	for i := 0; i < 1000; i++ {
		strs = append(strs, []byte{byte(i % 256)})
		for j := 0; j < 1000; j++ {
			strs = append(strs, nil)
		}
	}
	r := openSection(buildSection(t, 5, strs), 0)
	requireAllStrings(t, r, strs, ascending(len(strs)))
}

func TestScenarioD_ScanWithEvictions(t *testing.T) {
	// 500 strings of 10 bytes with a 100 byte threshold give 50 blocks.
	strs := make([][]byte, 500)
	for i := range strs {
		strs[i] = []byte{'s', byte('0' + i/100), byte('0' + i/10%10), byte('0' + i%10), '-', 'b', 'l', 'o', 'c', 'k'}
	}
	r := openSection(buildSection(t, 100, strs), 32)
	idx, err := r.Index()
	require.NoError(t, err)
	require.Equal(t, 50, idx.NumBlocks())

	for pass := 0; pass < 2; pass++ {
		requireAllStrings(t, r, strs, ascending(len(strs)))
	}
	stats := r.Stats()
	assert.Equal(t, uint64(100), stats.BlockDecodes, "each pass decodes each block once")
	assert.Equal(t, 32, stats.CachedBlocks)
}

func TestRoundTrip_Thresholds(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	strs := [][]byte{
		nil,
		bytes.Repeat([]byte{0xff}, 3000),
		[]byte("dup"), []byte("dup"), []byte("dup"),
	}
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	strs = append(strs, all)
	for i := 0; i < 50; i++ {
		s := make([]byte, rng.Intn(60))
		rng.Read(s)
		strs = append(strs, s)
	}
	for _, threshold := range []int{1, 2, 7, 64, 1000, 1 << 20} {
		r := openSection(buildSection(t, threshold, strs), 4)
		requireAllStrings(t, r, strs, ascending(len(strs)))
	}
}

func TestLayout_SingleString(t *testing.T) {
	data := buildSection(t, 1, [][]byte{[]byte("a")})
	want := []byte{
		15, 0, 0, 0, 0, 0, 0, 0, // index offset
		1,         // string length
		1, 0,      // n, bwt start
		1, 'a', 1, // huffman table: one symbol of length 1
		0,         // bitstream
		1, 0, 1,   // index: one block, delta 0, one string
	}
	assert.Equal(t, want, data)
}

func TestLayout_Empty(t *testing.T) {
	data := buildSection(t, 10, nil)
	assert.Equal(t, []byte{8, 0, 0, 0, 0, 0, 0, 0, 0}, data)

	r := openSection(data, 0)
	n, err := r.NumStrings()
	require.NoError(t, err)
	assert.Zero(t, n)
	idx, err := r.Index()
	require.NoError(t, err)
	assert.Zero(t, idx.NumBlocks())
	assert.Equal(t, 0, idx.GetBlockIx(0))

	_, err = r.ExtractString(0)
	assert.True(t, core.IsOutOfRange(err))
}

func TestLayout_OnlyEmptyStrings(t *testing.T) {
	strs := [][]byte{nil, nil, nil}
	data := buildSection(t, 10, strs)
	idx, err := ReadIndex(sys.NewBytesReader(data))
	require.NoError(t, err)
	require.Equal(t, 1, idx.NumBlocks())
	assert.Equal(t, BlockInfo{Offset: 8, From: 0, Subs: 3}, idx.Blocks()[0])
	requireAllStrings(t, openSection(data, 0), strs, ascending(3))
}

func TestIndex_PartitionInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	strs := make([][]byte, 700)
	for i := range strs {
		strs[i] = make([]byte, rng.Intn(30))
		rng.Read(strs[i])
	}
	idx, err := ReadIndex(sys.NewBytesReader(buildSection(t, 64, strs)))
	require.NoError(t, err)
	blocks := idx.Blocks()
	require.NotEmpty(t, blocks)

	assert.Zero(t, blocks[0].From)
	assert.Equal(t, int64(core.SectionHeaderSize), blocks[0].Offset)
	for i := 1; i < len(blocks); i++ {
		assert.Equal(t, blocks[i-1].To(), blocks[i].From)
		assert.Greater(t, blocks[i].From, blocks[i-1].From)
		assert.Greater(t, blocks[i].Offset, blocks[i-1].Offset)
	}
	assert.Equal(t, idx.NumStrings(), blocks[len(blocks)-1].To())
	assert.Equal(t, uint64(len(strs)), idx.NumStrings())

	for i := range strs {
		b := idx.GetBlockIx(uint64(i))
		require.Less(t, b, idx.NumBlocks())
		assert.True(t, blocks[b].From <= uint64(i) && uint64(i) < blocks[b].To(), "string %d in block %d", i, b)
	}
	assert.Equal(t, idx.NumBlocks(), idx.GetBlockIx(uint64(len(strs))))

	start, end := idx.BlockRange(idx.NumBlocks() - 1)
	assert.Equal(t, blocks[len(blocks)-1].Offset, start)
	assert.Equal(t, idx.IndexOffset(), end)
}

func TestReader_CacheAvoidsRedecode(t *testing.T) {
	strs := make([][]byte, 40)
	for i := range strs {
		strs[i] = bytes.Repeat([]byte{byte('a' + i%26)}, 10)
	}
	data := buildSection(t, 50, strs) // 5 strings per block, 8 blocks
	r := openSection(data, 2)

	for i := 0; i < 5; i++ {
		_, err := r.ExtractString(uint64(i))
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(1), r.Stats().BlockDecodes)

	r.ExtractString(5)  // block 1
	r.ExtractString(0)  // block 0 is most recent again
	r.ExtractString(10) // block 2 evicts block 1
	assert.Equal(t, uint64(3), r.Stats().BlockDecodes)

	r.ExtractString(1)
	assert.Equal(t, uint64(3), r.Stats().BlockDecodes, "block 0 must still be cached")
	r.ExtractString(6)
	assert.Equal(t, uint64(4), r.Stats().BlockDecodes, "block 1 was evicted and is decoded again")

	stats := r.Stats()
	assert.Equal(t, 2, stats.CachedBlocks)
	assert.Equal(t, int64(4), stats.CacheMisses)
	assert.Equal(t, int64(6), stats.CacheHits)

	require.NoError(t, r.Close())
	closed := r.Stats()
	assert.Zero(t, closed.CachedBlocks)
	assert.Equal(t, stats.BlockDecodes, closed.BlockDecodes)
	assert.Equal(t, stats.CacheMisses, closed.CacheMisses)
	assert.Equal(t, stats.CacheHits, closed.CacheHits)

	r.ExtractString(1)
	assert.Equal(t, uint64(5), r.Stats().BlockDecodes, "a closed reader decodes again")
	assert.Equal(t, int64(5), r.Stats().CacheMisses)
}

func TestReader_CacheDisabled(t *testing.T) {
	strs := [][]byte{[]byte("one"), []byte("two")}
	r := openSection(buildSection(t, 100, strs), -1)
	for i := 0; i < 3; i++ {
		_, err := r.ExtractString(0)
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(3), r.Stats().BlockDecodes)
	assert.Zero(t, r.Stats().CachedBlocks)
}

func TestReader_OutOfRange(t *testing.T) {
	r := openSection(buildSection(t, 10, [][]byte{[]byte("x")}), 0)
	_, err := r.ExtractString(1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrOutOfRange))
	var oor *core.OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, uint64(1), oor.Index)
	assert.Equal(t, uint64(1), oor.Count)

	_, err = r.DecodeBlock(1)
	assert.ErrorIs(t, err, core.ErrOutOfRange)
}

func TestReader_DecodeBlock(t *testing.T) {
	strs := [][]byte{[]byte("alpha"), nil, []byte("beta")}
	r := openSection(buildSection(t, 100, strs), 0)
	b, err := r.DecodeBlock(0)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, "alphabeta", string(b.Pool))
	assert.Equal(t, "", string(b.String(1)))
	assert.Equal(t, "beta", string(b.String(2)))
}

func TestReadIndex_FormatErrors(t *testing.T) {
	good := buildSection(t, 1, [][]byte{[]byte("a"), []byte("b")})

	withField := func(v uint64) []byte {
		d := append([]byte(nil), good...)
		binary.LittleEndian.PutUint64(d, v)
		return d
	}
	idxOff := binary.LittleEndian.Uint64(good)
	withIndex := func(index ...byte) []byte {
		return append(append([]byte(nil), good[:idxOff]...), index...)
	}

	cases := map[string][]byte{
		"short section":        good[:5],
		"offset below header":  withField(3),
		"offset past end":      withField(uint64(len(good)) + 1),
		"zero subs":            withIndex(2, 0, 1, 7, 0),
		"repeated offset":      withIndex(2, 0, 1, 0, 1),
		"first delta non-zero": withIndex(2, 3, 1, 4, 1),
		"offset into index":    withIndex(2, 0, 1, 50, 1),
		"count too large":      withIndex(40, 0, 1),
		"trailing bytes":       withIndex(2, 0, 1, 7, 1, 9),
		"truncated entry":      withIndex(2, 0, 1, 7),
		"blocks without data":  append(withField(core.SectionHeaderSize)[:8], 1, 0, 1),
		"data without blocks":  withIndex(0),
		"missing block count":  withIndex(),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadIndex(sys.NewBytesReader(data))
			require.Error(t, err)
			assert.True(t, core.IsFormatError(err), "got %v", err)
		})
	}
}

func TestReader_CorruptBlock(t *testing.T) {
	// Layout of "a" at threshold 1: length @8, n @9, start @10.
	good := buildSection(t, 1, [][]byte{[]byte("a")})

	badStart := append([]byte(nil), good...)
	badStart[10] = 5
	badLength := append([]byte(nil), good...)
	badLength[8] = 2
	badTable := append([]byte(nil), good...)
	badTable[13] = 40 // code length above the limit

	for name, data := range map[string][]byte{
		"bwt start":     badStart,
		"length sum":    badLength,
		"huffman table": badTable,
	} {
		t.Run(name, func(t *testing.T) {
			r := openSection(data, 0)
			_, err := r.ExtractString(0)
			require.Error(t, err)
			assert.True(t, core.IsCorruptBlock(err), "got %v", err)
			var cbe *core.CorruptBlockError
			require.ErrorAs(t, err, &cbe)
			assert.Equal(t, 0, cbe.Block)
			assert.Zero(t, r.Stats().CachedBlocks, "failed decodes are not cached")
		})
	}
}

func TestWriter_RejectsInvalidLengthBuilder(t *testing.T) {
	broken := func(freqs *[256]uint64) coding.CodeLengths {
		var l coding.CodeLengths
		for i := range l {
			l[i] = 1
		}
		return l
	}
	sink := sys.NewMemWriter()
	w, err := NewWriter(sink, WriterOptions{BlockSize: 1, LengthBuilder: broken})
	require.NoError(t, err)
	require.Error(t, w.AppendString("abc"))
	assert.Zero(t, w.NumBlocks())
	assert.Equal(t, int64(core.SectionHeaderSize), w.Size())
	w.Abort()
}

func TestWriter_Lifecycle(t *testing.T) {
	sink := sys.NewMemWriter()
	w, err := NewWriter(sink, WriterOptions{})
	require.NoError(t, err)
	require.NoError(t, w.AppendString("x"))
	assert.Equal(t, uint64(1), w.NumStrings())
	require.NoError(t, w.Finish())
	assert.Equal(t, int64(len(sink.Bytes())), w.Size())

	assert.ErrorIs(t, w.Append(nil), ErrWriterClosed)
	assert.ErrorIs(t, w.Finish(), ErrWriterClosed)

	_, err = NewWriter(sink, WriterOptions{BlockSize: -1})
	assert.Error(t, err)
}

func TestWriter_SectionAfterPrefix(t *testing.T) {
	sink := sys.NewMemWriter()
	sink.Write([]byte("prefix"))
	require.NoError(t, Write(sink, WriterOptions{BlockSize: 4}, func(w *Writer) error {
		for _, s := range []string{"first", "second", "third"} {
			if err := w.AppendString(s); err != nil {
				return err
			}
		}
		return nil
	}))
	data := sink.Bytes()
	require.Equal(t, "prefix", string(data[:6]))
	r := openSection(data[6:], 0)
	got, err := r.ExtractString(2)
	require.NoError(t, err)
	assert.Equal(t, "third", got)
}

func TestWrite_AbortsOnError(t *testing.T) {
	boom := errors.New("boom")
	var captured *Writer
	err := Write(sys.NewMemWriter(), WriterOptions{}, func(w *Writer) error {
		captured = w
		w.AppendString("lost")
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, captured.Finish(), ErrWriterClosed)

	assert.Panics(t, func() {
		Write(sys.NewMemWriter(), WriterOptions{}, func(w *Writer) error {
			captured = w
			panic("stop")
		})
	})
	assert.ErrorIs(t, captured.Append(nil), ErrWriterClosed)
}

func TestTracing_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := tp.Tracer("textstore-test")

	sink := sys.NewMemWriter()
	require.NoError(t, Write(sink, WriterOptions{BlockSize: 3, Tracer: tracer}, func(w *Writer) error {
		w.AppendString("abc")
		return w.AppendString("de")
	}))
	r := NewReader(sys.NewBytesReader(sink.Bytes()), ReaderOptions{Tracer: tracer})
	_, err := r.ExtractString(1)
	require.NoError(t, err)

	counts := map[string]int{}
	for _, s := range sr.Ended() {
		counts[s.Name()]++
	}
	assert.Equal(t, 2, counts["textstore.Writer.flushBlock"])
	assert.Equal(t, 1, counts["textstore.Writer.Finish"])
	assert.Equal(t, 1, counts["textstore.Index.Read"])
	assert.Equal(t, 1, counts["textstore.Reader.decodeBlock"])
}

func TestSyncReader_Concurrent(t *testing.T) {
	strs := make([][]byte, 300)
	for i := range strs {
		strs[i] = []byte{byte(i), byte(i >> 8), 'z'}
	}
	sr := NewSyncReader(openSection(buildSection(t, 32, strs), 4))

	var g errgroup.Group
	for worker := 0; worker < 8; worker++ {
		worker := worker
		g.Go(func() error {
			for i := worker; i < len(strs); i += 3 {
				got, err := sr.ExtractString(uint64(i))
				if err != nil {
					return err
				}
				if got != string(strs[i]) {
					return errors.New("string mismatch")
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	n, err := sr.NumStrings()
	require.NoError(t, err)
	assert.Equal(t, uint64(300), n)
	assert.NotZero(t, sr.Stats().BlockDecodes)
}
