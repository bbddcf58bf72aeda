package textstore

import (
	"context"
	"expvar"
	"fmt"
	"log/slog"

	"github.com/INLOpen/textstore/cache"
	"github.com/INLOpen/textstore/coding"
	"github.com/INLOpen/textstore/core"
	"github.com/INLOpen/textstore/sys"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	// CacheCapacity is the number of decoded blocks kept in memory. Zero
	// selects DefaultCacheCapacity; a negative value disables the cache.
	CacheCapacity int
	Tracer        trace.Tracer
	Logger        *slog.Logger
}

// Block is a decoded block: the concatenated strings and their boundaries.
// Blocks returned by a Reader are shared with its cache and must be treated
// as read-only.
type Block struct {
	Info BlockInfo
	Pool []byte
	ends []int
}

// Len returns the number of strings in the block.
func (b *Block) Len() int { return len(b.ends) }

// String returns the i-th string of the block without copying.
func (b *Block) String(i int) []byte {
	start := 0
	if i > 0 {
		start = b.ends[i-1]
	}
	return b.Pool[start:b.ends[i]]
}

// ReaderStats reports the work done by a Reader.
type ReaderStats struct {
	BlockDecodes uint64
	CacheHits    int64
	CacheMisses  int64
	CachedBlocks int
}

// Reader extracts strings from a section. It loads the index on first use
// and caches decoded blocks. A Reader is not safe for concurrent use; wrap
// it in a SyncReader or give each goroutine its own Reader.
type Reader struct {
	src   sys.Reader
	index *Index

	codec   *coding.BlockCodec
	blocks  cache.Interface[int, *Block]
	hits    *expvar.Int
	misses  *expvar.Int
	decodes uint64

	tracer trace.Tracer
	logger *slog.Logger
}

// NewReader creates a reader over the section src. No I/O happens until the
// first call that needs the index.
func NewReader(src sys.Reader, opts ReaderOptions) *Reader {
	if opts.CacheCapacity == 0 {
		opts.CacheCapacity = DefaultCacheCapacity
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "textstore.Reader")
	}
	r := &Reader{
		src:    src,
		codec:  coding.NewBlockCodec(nil),
		blocks: cache.NewLRUCache[int, *Block](opts.CacheCapacity, nil),
		hits:   new(expvar.Int),
		misses: new(expvar.Int),
		tracer: opts.Tracer,
		logger: opts.Logger,
	}
	r.blocks.SetMetrics(r.hits, r.misses)
	return r
}

// InitializeIfNeeded reads the index if it has not been read yet. A failed
// read is retried on the next call.
func (r *Reader) InitializeIfNeeded() error {
	if r.index != nil {
		return nil
	}
	var span trace.Span
	if r.tracer != nil {
		_, span = r.tracer.Start(context.Background(), "textstore.Index.Read")
		defer span.End()
	}
	idx, err := ReadIndex(r.src)
	if err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		r.logger.Error("Failed to read text store index", "error", err)
		return err
	}
	if span != nil {
		span.SetAttributes(
			attribute.Int("textstore.blocks", idx.NumBlocks()),
			attribute.Int64("textstore.strings", int64(idx.NumStrings())),
		)
	}
	r.logger.Debug("Loaded text store index", "blocks", idx.NumBlocks(), "strings", idx.NumStrings())
	r.index = idx
	return nil
}

// Index returns the section index, reading it if needed.
func (r *Reader) Index() (*Index, error) {
	if err := r.InitializeIfNeeded(); err != nil {
		return nil, err
	}
	return r.index, nil
}

// NumStrings returns the number of strings in the section.
func (r *Reader) NumStrings() (uint64, error) {
	if err := r.InitializeIfNeeded(); err != nil {
		return 0, err
	}
	return r.index.NumStrings(), nil
}

// ExtractString returns a copy of string stringIx.
func (r *Reader) ExtractString(stringIx uint64) (string, error) {
	if err := r.InitializeIfNeeded(); err != nil {
		return "", err
	}
	blockIx := r.index.GetBlockIx(stringIx)
	if blockIx == r.index.NumBlocks() {
		return "", &core.OutOfRangeError{Index: stringIx, Count: r.index.NumStrings()}
	}
	block, err := r.DecodeBlock(blockIx)
	if err != nil {
		return "", err
	}
	return string(block.String(int(stringIx - block.Info.From))), nil
}

// DecodeBlock returns block i, decoding it unless it is cached.
func (r *Reader) DecodeBlock(i int) (*Block, error) {
	if err := r.InitializeIfNeeded(); err != nil {
		return nil, err
	}
	if i < 0 || i >= r.index.NumBlocks() {
		return nil, fmt.Errorf("block %d of %d: %w", i, r.index.NumBlocks(), core.ErrOutOfRange)
	}
	return r.blocks.GetOrInsert(i, func() (*Block, error) {
		return r.decodeBlock(i)
	})
}

func (r *Reader) decodeBlock(i int) (*Block, error) {
	var span trace.Span
	if r.tracer != nil {
		_, span = r.tracer.Start(context.Background(), "textstore.Reader.decodeBlock")
		defer span.End()
	}
	r.decodes++

	info := r.index.Blocks()[i]
	start, end := r.index.BlockRange(i)
	buf := core.BufferPool.Get()
	defer core.BufferPool.Put(buf)
	buf.Grow(int(end - start))
	raw := buf.Bytes()[:end-start]
	if err := sys.ReadFull(r.src, raw, start); err != nil {
		err = fmt.Errorf("failed to read block %d: %w", i, err)
		r.recordDecodeError(span, i, err)
		return nil, err
	}

	block, err := parseBlock(r.codec, raw, info)
	if err != nil {
		err = core.WithBlock(err, i)
		r.recordDecodeError(span, i, err)
		return nil, err
	}
	if span != nil {
		span.SetAttributes(
			attribute.Int("textstore.block.index", i),
			attribute.Int64("textstore.block.subs", int64(info.Subs)),
			attribute.Int("textstore.block.plain_len_bytes", len(block.Pool)),
			attribute.Int64("textstore.block.encoded_len_bytes", end-start),
		)
	}
	return block, nil
}

func (r *Reader) recordDecodeError(span trace.Span, i int, err error) {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	r.logger.Error("Failed to decode block", "block", i, "error", err)
}

// parseBlock decodes a block's length list and codec payload. The block must
// consume raw exactly.
func parseBlock(codec *coding.BlockCodec, raw []byte, info BlockInfo) (*Block, error) {
	src := coding.NewSource(raw)
	if info.Subs > uint64(len(raw)) {
		return nil, core.NewCorruptBlockError("%d strings cannot fit in %d bytes", info.Subs, len(raw))
	}
	ends := make([]int, info.Subs)
	total := uint64(0)
	for j := range ends {
		l, err := src.ReadUvarint()
		if err != nil {
			return nil, core.NewCorruptBlockError("length of string %d: %v", j, err)
		}
		total += l
		// Every pool byte costs at least one bit of the block.
		if total < l || total > uint64(len(raw))*8 {
			return nil, core.NewCorruptBlockError("string lengths overflow at string %d", j)
		}
		ends[j] = int(total)
	}
	pool, err := codec.Decode(src)
	if err != nil {
		return nil, err
	}
	if uint64(len(pool)) != total {
		return nil, core.NewCorruptBlockError("decoded %d bytes, string lengths sum to %d", len(pool), total)
	}
	if src.Remaining() != 0 {
		return nil, core.NewCorruptBlockError("%d trailing bytes", src.Remaining())
	}
	return &Block{Info: info, Pool: pool, ends: ends}, nil
}

// Stats returns the reader's counters.
func (r *Reader) Stats() ReaderStats {
	return ReaderStats{
		BlockDecodes: r.decodes,
		CacheHits:    r.hits.Value(),
		CacheMisses:  r.misses.Value(),
		CachedBlocks: r.blocks.Len(),
	}
}

// Close drops all cached blocks. The counters reported by Stats are kept and
// the Reader stays usable.
func (r *Reader) Close() error {
	// Clear zeroes the cache metrics.
	hits, misses := r.hits.Value(), r.misses.Value()
	r.blocks.Clear()
	r.hits.Set(hits)
	r.misses.Set(misses)
	return nil
}
