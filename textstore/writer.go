package textstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/INLOpen/textstore/coding"
	"github.com/INLOpen/textstore/core"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrWriterClosed is returned by a Writer used after Finish or Abort.
var ErrWriterClosed = errors.New("textstore: writer is closed")

// WriterOptions configures a Writer.
type WriterOptions struct {
	// BlockSize is the pool size in bytes that triggers a block flush.
	// Zero selects DefaultBlockSize.
	BlockSize int
	// LengthBuilder overrides the Huffman code length construction.
	LengthBuilder coding.LengthBuilder
	Tracer        trace.Tracer
	Logger        *slog.Logger
}

// Writer appends strings to a section. It is not safe for concurrent use.
// Every Writer must end with exactly one call to Finish or Abort; Write
// wraps that rule for callers with a single build function.
type Writer struct {
	sink io.WriteSeeker
	base int64 // absolute sink position of the section start
	pos  int64 // section-relative write position

	blockSize int
	codec     *coding.BlockCodec

	pool    []byte
	lengths []int

	blocks     []BlockInfo
	numStrings uint64
	closed     bool

	tracer trace.Tracer
	logger *slog.Logger
}

// NewWriter starts a section at the current position of sink and writes the
// placeholder for the index offset.
func NewWriter(sink io.WriteSeeker, opts WriterOptions) (*Writer, error) {
	if opts.BlockSize < 0 {
		return nil, fmt.Errorf("invalid block size %d", opts.BlockSize)
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = DefaultBlockSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "textstore.Writer")
	}

	base, err := sink.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to get section start: %w", err)
	}
	var placeholder [core.SectionHeaderSize]byte
	if _, err := sink.Write(placeholder[:]); err != nil {
		return nil, fmt.Errorf("failed to write section header: %w", err)
	}

	return &Writer{
		sink:      sink,
		base:      base,
		pos:       core.SectionHeaderSize,
		blockSize: opts.BlockSize,
		codec:     coding.NewBlockCodec(opts.LengthBuilder),
		tracer:    opts.Tracer,
		logger:    opts.Logger,
	}, nil
}

// AppendString is Append for a string.
func (w *Writer) AppendString(s string) error {
	return w.Append([]byte(s))
}

// Append adds s as the next string. The bytes are copied.
func (w *Writer) Append(s []byte) error {
	if w.closed {
		return ErrWriterClosed
	}
	w.pool = append(w.pool, s...)
	w.lengths = append(w.lengths, len(s))
	w.numStrings++
	if len(w.pool) >= w.blockSize {
		return w.flushBlock()
	}
	return nil
}

// NumStrings returns the number of strings appended so far.
func (w *Writer) NumStrings() uint64 { return w.numStrings }

// NumBlocks returns the number of blocks flushed so far.
func (w *Writer) NumBlocks() int { return len(w.blocks) }

// flushBlock encodes the pending strings as one block. A block with no
// strings is never written.
func (w *Writer) flushBlock() error {
	if len(w.lengths) == 0 {
		return nil
	}
	var span trace.Span
	if w.tracer != nil {
		_, span = w.tracer.Start(context.Background(), "textstore.Writer.flushBlock")
		defer span.End()
	}

	buf := core.BufferPool.Get()
	defer core.BufferPool.Put(buf)

	for _, l := range w.lengths {
		if err := coding.WriteUvarint(buf, uint64(l)); err != nil {
			return w.fail(span, err)
		}
	}
	if err := w.codec.Encode(buf, w.pool); err != nil {
		return w.fail(span, fmt.Errorf("failed to encode block %d: %w", len(w.blocks), err))
	}
	if _, err := w.sink.Write(buf.Bytes()); err != nil {
		return w.fail(span, fmt.Errorf("failed to write block %d: %w", len(w.blocks), err))
	}

	subs := uint64(len(w.lengths))
	info := BlockInfo{Offset: w.pos, From: w.numStrings - subs, Subs: subs}
	w.blocks = append(w.blocks, info)
	w.pos += int64(buf.Len())

	if span != nil {
		span.SetAttributes(
			attribute.Int("textstore.block.index", len(w.blocks)-1),
			attribute.Int64("textstore.block.offset", info.Offset),
			attribute.Int64("textstore.block.subs", int64(subs)),
			attribute.Int("textstore.block.plain_len_bytes", len(w.pool)),
			attribute.Int("textstore.block.encoded_len_bytes", buf.Len()),
		)
	}
	w.logger.Debug("Flushed block",
		"block", len(w.blocks)-1,
		"strings", subs,
		"plain_bytes", len(w.pool),
		"encoded_bytes", buf.Len())

	w.pool = w.pool[:0]
	w.lengths = w.lengths[:0]
	return nil
}

// Finish flushes the pending block, backpatches the index offset and writes
// the index. The sink is left positioned at the end of the section.
func (w *Writer) Finish() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true

	var span trace.Span
	if w.tracer != nil {
		_, span = w.tracer.Start(context.Background(), "textstore.Writer.Finish")
		defer span.End()
	}

	if err := w.flushBlock(); err != nil {
		return w.fail(span, fmt.Errorf("failed to flush final block: %w", err))
	}

	indexOffset := w.pos
	var field [core.SectionHeaderSize]byte
	binary.LittleEndian.PutUint64(field[:], uint64(indexOffset))
	if _, err := w.sink.Seek(w.base, io.SeekStart); err != nil {
		return w.fail(span, fmt.Errorf("failed to seek to section header: %w", err))
	}
	if _, err := w.sink.Write(field[:]); err != nil {
		return w.fail(span, fmt.Errorf("failed to backpatch section header: %w", err))
	}
	if _, err := w.sink.Seek(w.base+indexOffset, io.SeekStart); err != nil {
		return w.fail(span, fmt.Errorf("failed to seek to index region: %w", err))
	}

	buf := core.BufferPool.Get()
	defer core.BufferPool.Put(buf)
	if err := coding.WriteUvarint(buf, uint64(len(w.blocks))); err != nil {
		return w.fail(span, err)
	}
	prev := int64(core.SectionHeaderSize)
	for _, b := range w.blocks {
		if err := coding.WriteUvarint(buf, uint64(b.Offset-prev)); err != nil {
			return w.fail(span, err)
		}
		if err := coding.WriteUvarint(buf, b.Subs); err != nil {
			return w.fail(span, err)
		}
		prev = b.Offset
	}
	if _, err := w.sink.Write(buf.Bytes()); err != nil {
		return w.fail(span, fmt.Errorf("failed to write index: %w", err))
	}
	w.pos += int64(buf.Len())

	if span != nil {
		span.SetAttributes(
			attribute.Int("textstore.blocks", len(w.blocks)),
			attribute.Int64("textstore.strings", int64(w.numStrings)),
			attribute.Int64("textstore.section_len_bytes", w.pos),
		)
	}
	w.logger.Info("Finished text store section",
		"blocks", len(w.blocks),
		"strings", w.numStrings,
		"index_offset", indexOffset,
		"section_bytes", w.pos)
	w.pool = nil
	w.lengths = nil
	return nil
}

// Abort discards the pending block and closes the writer without writing an
// index. Whatever was already written to the sink is left as is.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	w.pool = nil
	w.lengths = nil
	w.logger.Debug("Aborted text store section", "strings", w.numStrings, "blocks", len(w.blocks))
}

// Size returns the number of section bytes written so far.
func (w *Writer) Size() int64 { return w.pos }

func (w *Writer) fail(span trace.Span, err error) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	w.logger.Error("Text store write failed", "error", err)
	return err
}

// Write builds a section on sink. fn appends the strings; Write finishes the
// section when fn succeeds and aborts it when fn returns an error or panics.
func Write(sink io.WriteSeeker, opts WriterOptions, fn func(w *Writer) error) (err error) {
	w, err := NewWriter(sink, opts)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			w.Abort()
			panic(r)
		}
	}()
	if err := fn(w); err != nil {
		w.Abort()
		return err
	}
	return w.Finish()
}
