// Package qov implements the QOV codec: an encoder that turns RGBA
// frames into a QOV byte stream, and a streaming decoder that turns a
// QOV byte stream back into RGBA frames. See SPEC_FULL.md for the
// format this package implements.
package qov

import (
	"qov/internal/container"
	"qov/internal/yuv"
)

// Header is the decoded 24-byte QOV file header.
type Header = container.FileHeader

// ChunkDescriptor records one chunk's position and metadata as found by
// Decoder.BuildIndex.
type ChunkDescriptor = container.ChunkDescriptor

// KeyframeIndexEntry is one entry of a QOV file's trailing INDEX chunk.
type KeyframeIndexEntry = container.KeyframeIndexEntry

// Frame is a single decoded video frame.
type Frame struct {
	// Pixels holds width*height packed RGBA samples, row-major.
	Pixels []byte
	// Timestamp is the frame chunk's 32-bit timestamp field, exactly as
	// the encoder was given it (microseconds by the format's convention).
	Timestamp uint32
	// Index is the frame's position in decode order, 0-based.
	Index int
	// Keyframe reports whether this frame was encoded without
	// reference to any other frame.
	Keyframe bool
}

// FileStats is the decoder's read-only summary of a parsed QOV stream,
// as returned by Decoder.FileStats.
type FileStats struct {
	Header          Header
	Chunks          []ChunkDescriptor
	KeyframeIndices []int
	TotalFrames     int
	TotalDuration   uint32
}

func subsamplingForColorspace(c byte) yuv.Subsampling {
	switch c {
	case container.ColorspaceYUV422:
		return yuv.Subsampling422
	case container.ColorspaceYUV444:
		return yuv.Subsampling444
	default: // ColorspaceYUV420, ColorspaceYUV420A
		return yuv.Subsampling420
	}
}
