package core

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrFormat       = errors.New("text storage format error")
	ErrCorruptBlock = errors.New("corrupt text storage block")
	ErrOutOfRange   = errors.New("string index out of range")
)

// FormatError reports a structural mismatch in a store: an index entry or a
// length field that is inconsistent with the rest of the section.
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format error: %s", e.Message)
}

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// CorruptBlockError is returned when a single compressed block cannot be
// decoded: an invalid Huffman table, a BWT start outside [0,n), a truncated
// bitstream or a decoded size mismatch.
type CorruptBlockError struct {
	Block   int // -1 when the block number is not known to the decoder
	Message string
}

func (e *CorruptBlockError) Error() string {
	if e.Block < 0 {
		return fmt.Sprintf("corrupt block: %s", e.Message)
	}
	return fmt.Sprintf("corrupt block %d: %s", e.Block, e.Message)
}

func (e *CorruptBlockError) Is(target error) bool { return target == ErrCorruptBlock }

// OutOfRangeError is returned for a string index at or beyond the number of
// stored strings.
type OutOfRangeError struct {
	Index uint64
	Count uint64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("string index %d out of range [0, %d)", e.Index, e.Count)
}

func (e *OutOfRangeError) Is(target error) bool { return target == ErrOutOfRange }

// NewFormatError builds a FormatError from a format string.
func NewFormatError(format string, args ...interface{}) error {
	return &FormatError{Message: fmt.Sprintf(format, args...)}
}

// NewCorruptBlockError builds a CorruptBlockError for an unknown block.
// Callers that know the block number set it with WithBlock.
func NewCorruptBlockError(format string, args ...interface{}) error {
	return &CorruptBlockError{Block: -1, Message: fmt.Sprintf(format, args...)}
}

// WithBlock attaches a block number to err if it is a CorruptBlockError
// without one. Other errors are returned unchanged.
func WithBlock(err error, block int) error {
	var cbe *CorruptBlockError
	if errors.As(err, &cbe) && cbe.Block < 0 {
		return &CorruptBlockError{Block: block, Message: cbe.Message}
	}
	return err
}

// IsFormatError checks if an error is a FormatError.
func IsFormatError(err error) bool {
	var formatError *FormatError
	return errors.As(err, &formatError)
}

// IsCorruptBlock checks if an error is a CorruptBlockError.
func IsCorruptBlock(err error) bool {
	var corruptError *CorruptBlockError
	return errors.As(err, &corruptError)
}

// IsOutOfRange checks if an error is an OutOfRangeError.
func IsOutOfRange(err error) bool {
	var rangeError *OutOfRangeError
	return errors.As(err, &rangeError)
}
