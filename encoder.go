package qov

import (
	"fmt"
	"log/slog"

	"qov/internal/bitio"
	"qov/internal/container"
	"qov/internal/opcode/rgb"
	"qov/internal/opcode/yuvplane"
	"qov/internal/yuv"
	"qov/qoverr"
)

// Encoder builds a QOV byte stream one frame at a time. It is not
// thread-safe or re-entrant; callers serialize access (spec §5).
type Encoder struct {
	header container.FileHeader
	w      *bitio.Writer
	logger *slog.Logger

	width, height int
	yuvMode       bool
	hasAlpha      bool
	subsampling   yuv.Subsampling
	compression   bool

	rgbCache                                            rgb.Cache
	planeCacheY, planeCacheU, planeCacheV, planeCacheA   yuvplane.Cache
	prevRGB                                              []byte
	prevY, prevU, prevV, prevA                           []byte

	frameCount      uint32
	keyframeEntries []container.KeyframeIndexEntry
	haveFrame       bool
	finished        bool
}

// New constructs an Encoder for width×height video at fpsNum/fpsDen
// frames per second. flags and colorspace populate the file header as
// described in SPEC_FULL.md §4.6; yuv_mode is derived from colorspace
// and has_alpha from flags bit 0 or colorspace 0x13, per §4.7. logger
// may be nil, in which case
// slog.Default() is used.
func New(width, height int, fpsNum, fpsDen uint16, flags, colorspace byte, compressionEnabled bool, logger *slog.Logger) (*Encoder, error) {
	if width < 1 || width > 65535 || height < 1 || height > 65535 {
		return nil, fmt.Errorf("%w: width/height out of range [1,65535]: %dx%d", qoverr.ErrInvalidArgument, width, height)
	}
	if fpsDen == 0 {
		return nil, fmt.Errorf("%w: fps_den is zero", qoverr.ErrInvalidArgument)
	}
	if !validEncodeColorspace(colorspace) {
		return nil, fmt.Errorf("%w: unknown colorspace 0x%02x", qoverr.ErrInvalidArgument, colorspace)
	}
	if logger == nil {
		logger = slog.Default()
	}

	yuvMode := colorspace >= container.ColorspaceYUV420 && colorspace <= container.ColorspaceYUV420A
	hasAlpha := flags&container.HeaderFlagHasAlpha != 0 || colorspace == container.ColorspaceYUV420A

	e := &Encoder{
		header: container.FileHeader{
			Version:    2,
			Flags:      flags,
			Width:      uint16(width),
			Height:     uint16(height),
			FPSNum:     fpsNum,
			FPSDen:     fpsDen,
			Colorspace: colorspace,
		},
		w:           bitio.NewWriter(),
		logger:      logger,
		width:       width,
		height:      height,
		yuvMode:     yuvMode,
		hasAlpha:    hasAlpha,
		subsampling: subsamplingForColorspace(colorspace),
		compression: compressionEnabled,
	}
	return e, nil
}

func validEncodeColorspace(c byte) bool {
	switch c {
	case container.ColorspaceSRGB, container.ColorspaceSRGBA, container.ColorspaceLinear, container.ColorspaceLinearA,
		container.ColorspaceYUV420, container.ColorspaceYUV422, container.ColorspaceYUV444, container.ColorspaceYUV420A:
		return true
	default:
		return false
	}
}

// WriteHeader emits the 24-byte file header with a placeholder
// total_frames, to be patched by Finish.
func (e *Encoder) WriteHeader() error {
	if e.finished {
		return fmt.Errorf("%w: encoder already finished", qoverr.ErrInvalidArgument)
	}
	container.WriteFileHeader(e.w, e.header)
	return nil
}

// EncodeKeyframe appends a keyframe chunk for pixels (width*height
// packed RGBA, row-major) at timestamp.
func (e *Encoder) EncodeKeyframe(pixels []byte, timestamp uint32) error {
	return e.encodeFrame(pixels, timestamp, true)
}

// EncodePFrame appends a P-frame chunk for pixels against the
// previously encoded frame. Before any keyframe has been encoded, it
// behaves as EncodeKeyframe (spec §4.7).
func (e *Encoder) EncodePFrame(pixels []byte, timestamp uint32) error {
	return e.encodeFrame(pixels, timestamp, !e.haveFrame)
}

func (e *Encoder) encodeFrame(pixels []byte, timestamp uint32, isKeyframe bool) error {
	if e.finished {
		return fmt.Errorf("%w: encoder already finished", qoverr.ErrInvalidArgument)
	}
	if len(pixels) != e.width*e.height*4 {
		return fmt.Errorf("%w: pixel buffer length %d, want %d", qoverr.ErrInvalidArgument, len(pixels), e.width*e.height*4)
	}

	if isKeyframe {
		syncOffset := e.w.Len()
		container.WriteSyncChunk(e.w, e.header.Version, e.frameCount, timestamp)
		if e.header.HasIndex() {
			e.keyframeEntries = append(e.keyframeEntries, container.KeyframeIndexEntry{
				FrameNumber: e.frameCount,
				Offset:      uint64(syncOffset),
				Timestamp:   timestamp,
			})
		}
	}

	scratch := bitio.NewWriter()
	if e.yuvMode {
		e.encodeYUVFrame(scratch, pixels, isKeyframe)
	} else {
		e.encodeRGBFrame(scratch, pixels, isKeyframe)
	}

	baseFlags := byte(0)
	if e.yuvMode {
		baseFlags |= container.ChunkFlagYUV
	}
	flags, body := container.PackFrameChunk(scratch.Bytes(), baseFlags, e.compression)

	chunkType := byte(container.ChunkPFrame)
	if isKeyframe {
		chunkType = container.ChunkKeyframe
	}
	container.WriteChunkHeader(e.w, e.header.Version, container.ChunkHeader{
		Type:      chunkType,
		Flags:     flags,
		Size:      uint32(len(body)),
		Timestamp: timestamp,
	})
	e.w.WriteBytes(body)

	e.logger.Debug("encoded frame", "frame", e.frameCount, "keyframe", isKeyframe, "compressed", flags&container.ChunkFlagCompressed != 0)

	e.frameCount++
	e.haveFrame = true
	return nil
}

func (e *Encoder) encodeRGBFrame(scratch *bitio.Writer, pixels []byte, isKeyframe bool) {
	if isKeyframe {
		rgb.EncodeKeyframe(scratch, &e.rgbCache, pixels, e.width, e.height)
	} else {
		rgb.EncodePFrame(scratch, &e.rgbCache, pixels, e.prevRGB, e.width, e.height)
	}
	// Retain our own copy: the caller may reuse or mutate pixels after
	// this call returns, but we need it unchanged as next frame's
	// temporal reference.
	e.prevRGB = append(e.prevRGB[:0], pixels...)
}

func (e *Encoder) encodeYUVFrame(scratch *bitio.Writer, pixels []byte, isKeyframe bool) {
	y, u, v, a := yuv.ToPlanes(pixels, e.width, e.height, e.subsampling, e.hasAlpha)

	if isKeyframe {
		yuvplane.EncodeKeyframePlane(scratch, &e.planeCacheY, y)
		yuvplane.EncodeKeyframePlane(scratch, &e.planeCacheU, u)
		yuvplane.EncodeKeyframePlane(scratch, &e.planeCacheV, v)
		if e.hasAlpha {
			yuvplane.EncodeKeyframePlane(scratch, &e.planeCacheA, a)
		}
	} else {
		e.planeCacheY.Reset()
		yuvplane.EncodePFramePlane(scratch, &e.planeCacheY, y, e.prevY)
		e.planeCacheU.Reset()
		yuvplane.EncodePFramePlane(scratch, &e.planeCacheU, u, e.prevU)
		e.planeCacheV.Reset()
		yuvplane.EncodePFramePlane(scratch, &e.planeCacheV, v, e.prevV)
		if e.hasAlpha {
			e.planeCacheA.Reset()
			yuvplane.EncodePFramePlane(scratch, &e.planeCacheA, a, e.prevA)
		}
	}
	scratch.WriteBytes(container.EndMarker[:])

	e.prevY, e.prevU, e.prevV, e.prevA = y, u, v, a
}

// Finish writes the trailing INDEX chunk (if the header's HAS_INDEX
// flag is set and at least one keyframe was encoded) and the END
// chunk, patches total_frames into the file header, and returns the
// complete QOV byte stream. Finish is idempotent: calling it again
// after the stream is finished returns the same bytes without
// re-appending the INDEX/END chunks. Encoding a frame after Finish
// fails with ErrInvalidArgument.
func (e *Encoder) Finish() ([]byte, error) {
	if e.finished {
		return e.w.Bytes(), nil
	}
	if e.header.HasIndex() && len(e.keyframeEntries) > 0 {
		container.WriteIndexChunk(e.w, e.header.Version, e.keyframeEntries)
	}
	container.WriteEndChunk(e.w, e.header.Version)
	e.w.PatchU32(container.TotalFramesOffset, e.frameCount)
	e.finished = true
	return e.w.Bytes(), nil
}

// FrameCount reports how many keyframe/P-frame chunks have been
// encoded so far.
func (e *Encoder) FrameCount() uint32 { return e.frameCount }
