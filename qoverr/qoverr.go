// Package qoverr defines the sentinel error values shared by every QOV
// package. Callers branch on error identity with errors.Is; the detail
// string attached by fmt.Errorf("%w: ...", ...) at the call site is for
// humans only.
package qoverr

import "errors"

var (
	// ErrInvalidArgument marks illegal constructor/call arguments: width,
	// height, fps_den, colorspace, or frame index out of range.
	ErrInvalidArgument = errors.New("qov: invalid argument")

	// ErrInvalidHeader marks a file header that fails magic or version
	// validation, or that carries a zero fps_den or an unknown colorspace.
	ErrInvalidHeader = errors.New("qov: invalid header")

	// ErrTruncatedInput marks a chunk header or payload that extends past
	// the bytes currently available, or a file that ends without an END
	// chunk.
	ErrTruncatedInput = errors.New("qov: truncated input")

	// ErrCorruptedStream marks a structurally invalid bitstream: an
	// unknown opcode, an LZ4 back-reference outside the window, a plane
	// that ends before its expected sample count, or a chunk size that
	// disagrees with where the end marker actually sits.
	ErrCorruptedStream = errors.New("qov: corrupted stream")

	// ErrWriterExhausted marks an output-buffer allocation failure.
	ErrWriterExhausted = errors.New("qov: writer exhausted")

	// ErrNotYetAvailable marks a transient short read from a streaming
	// DataSource; callers should retry once more bytes are available.
	ErrNotYetAvailable = errors.New("qov: not yet available")
)
