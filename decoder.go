package qov

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"qov/internal/bitio"
	"qov/internal/container"
	"qov/internal/opcode/rgb"
	"qov/internal/opcode/yuvplane"
	"qov/internal/yuv"
	"qov/qoverr"
	"qov/qovsrc"
)

// Decoder reconstructs frames from a QOV byte stream read through a
// qovsrc.DataSource. Decoder is not thread-safe; DecodeFrame guards
// against re-entrancy with an internal mutex (spec §4.8/§5).
type Decoder struct {
	src    qovsrc.DataSource
	logger *slog.Logger
	id     uuid.UUID

	mu sync.Mutex

	header       container.FileHeader
	headerParsed bool
	yuvMode      bool
	hasAlpha     bool
	subsampling  yuv.Subsampling

	chunks          []container.ChunkDescriptor
	frameChunks     []container.ChunkDescriptor // indexed by frame index
	keyframeIndices []int
	totalDuration   uint32
	indexed         bool

	rgbCache                                          rgb.Cache
	planeCacheY, planeCacheU, planeCacheV, planeCacheA yuvplane.Cache
	prevRGB                                            []byte
	prevY, prevU, prevV, prevA                         []byte
	lastDecoded                                        int
}

// NewDecoder constructs a Decoder reading from src. logger may be nil,
// in which case slog.Default() is used.
func NewDecoder(src qovsrc.DataSource, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		src:         src,
		logger:      logger,
		id:          uuid.New(),
		lastDecoded: -1,
	}
}

// ParseHeader reads and validates the 24-byte file header. It blocks
// (via the DataSource's own Read contract) until those bytes are
// available.
func (d *Decoder) ParseHeader() error {
	data, err := d.readExact(0, container.FileHeaderSize)
	if err != nil {
		return err
	}
	h, err := container.ParseFileHeader(bitio.NewReader(data))
	if err != nil {
		return err
	}
	d.header = h
	d.yuvMode = h.YUVMode()
	d.hasAlpha = h.HasAlpha()
	d.subsampling = subsamplingForColorspace(h.Colorspace)
	d.headerParsed = true
	return nil
}

// readExact reads length bytes at offset, translating a permanently
// out-of-range read (source has a known total size and the read
// extends past it) into ErrTruncatedInput rather than the source's raw
// ErrNotYetAvailable.
func (d *Decoder) readExact(offset int64, length int) ([]byte, error) {
	data, err := d.src.Read(offset, length)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, qoverr.ErrNotYetAvailable) {
		total := d.src.TotalSize()
		if total >= 0 && offset+int64(length) > total {
			return nil, fmt.Errorf("%w: need %d bytes at offset %d, source ends at %d", qoverr.ErrTruncatedInput, length, offset, total)
		}
	}
	return nil, err
}

// BuildIndex walks the chunk sequence from byte offset 24 to the END
// chunk, recording a ChunkDescriptor per chunk and assigning frame
// indices to KEYFRAME/PFRAME chunks in order. If the source ends before
// an END chunk, BuildIndex returns the read error (ErrTruncatedInput when
// the source's total size is known).
func (d *Decoder) BuildIndex() error {
	if !d.headerParsed {
		return fmt.Errorf("%w: ParseHeader must run before BuildIndex", qoverr.ErrInvalidArgument)
	}

	hdrSize := chunkHeaderSizeFor(d.header.Version)
	offset := int64(container.FileHeaderSize)
	frameIdx := 0

	for {
		hdrBytes, err := d.readExact(offset, hdrSize)
		if err != nil {
			return err
		}
		ch, err := container.ParseChunkHeader(bitio.NewReader(hdrBytes), d.header.Version)
		if err != nil {
			return err
		}

		desc := container.ChunkDescriptor{
			Type:       ch.Type,
			Flags:      ch.Flags,
			Offset:     uint64(offset),
			HeaderSize: hdrSize,
			BodySize:   ch.Size,
			Timestamp:  ch.Timestamp,
			FrameIndex: -1,
		}

		switch ch.Type {
		case container.ChunkKeyframe, container.ChunkPFrame:
			desc.FrameIndex = frameIdx
			desc.IsKeyframe = ch.Type == container.ChunkKeyframe
			if desc.IsKeyframe {
				d.keyframeIndices = append(d.keyframeIndices, frameIdx)
			}
			d.totalDuration = ch.Timestamp
			d.frameChunks = append(d.frameChunks, desc)
			frameIdx++
		}

		d.chunks = append(d.chunks, desc)

		if ch.Type == container.ChunkEnd {
			d.indexed = true
			return nil
		}
		offset += int64(hdrSize) + int64(ch.Size)
	}
}

func chunkHeaderSizeFor(version byte) int {
	if version == 1 {
		return container.ChunkHeaderSizeV1
	}
	return container.ChunkHeaderSizeV2
}

// FrameCount reports the number of KEYFRAME/PFRAME chunks found by
// BuildIndex.
func (d *Decoder) FrameCount() int { return len(d.frameChunks) }

// KeyframeIndices returns the frame indices of every keyframe found by
// BuildIndex, in ascending order.
func (d *Decoder) KeyframeIndices() []int {
	out := make([]int, len(d.keyframeIndices))
	copy(out, d.keyframeIndices)
	return out
}

// FileStats summarizes the parsed stream: the file header, every
// chunk's descriptor, the keyframe index, and the timestamp of the
// last frame chunk.
func (d *Decoder) FileStats() (FileStats, error) {
	if !d.indexed {
		return FileStats{}, fmt.Errorf("%w: BuildIndex must run before FileStats", qoverr.ErrInvalidArgument)
	}
	chunks := make([]ChunkDescriptor, len(d.chunks))
	copy(chunks, d.chunks)
	return FileStats{
		Header:          d.header,
		Chunks:          chunks,
		KeyframeIndices: d.KeyframeIndices(),
		TotalFrames:     len(d.frameChunks),
		TotalDuration:   d.totalDuration,
	}, nil
}

// DecodeFrame reconstructs frame i. If i is the next frame after the
// last one decoded, it decodes incrementally from existing state.
// Otherwise it resets decoder state and replays from the nearest
// preceding keyframe (spec §4.8's seek invariant).
func (d *Decoder) DecodeFrame(i int) (*Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.indexed {
		return nil, fmt.Errorf("%w: BuildIndex must run before DecodeFrame", qoverr.ErrInvalidArgument)
	}
	if i < 0 || i >= len(d.frameChunks) {
		return nil, fmt.Errorf("%w: frame index %d out of range [0,%d)", qoverr.ErrInvalidArgument, i, len(d.frameChunks))
	}

	start := i
	if i != d.lastDecoded+1 {
		start = d.nearestKeyframeAtOrBefore(i)
		d.resetDecodeState()
		d.logger.Debug("seeking", "session", d.id.String(), "from_keyframe", start, "to_frame", i)
	}

	var frame *Frame
	for f := start; f <= i; f++ {
		var err error
		frame, err = d.decodeFrameAt(d.frameChunks[f])
		if err != nil {
			return nil, err
		}
	}
	d.lastDecoded = i
	return frame, nil
}

func (d *Decoder) nearestKeyframeAtOrBefore(i int) int {
	best := 0
	for _, k := range d.keyframeIndices {
		if k <= i {
			best = k
		} else {
			break
		}
	}
	return best
}

func (d *Decoder) resetDecodeState() {
	d.rgbCache.Reset()
	d.prevRGB = nil
	d.prevY, d.prevU, d.prevV, d.prevA = nil, nil, nil, nil
}

func (d *Decoder) decodeFrameAt(desc container.ChunkDescriptor) (*Frame, error) {
	bodyOffset := int64(desc.Offset) + int64(desc.HeaderSize)
	raw, err := d.readExact(bodyOffset, int(desc.BodySize))
	if err != nil {
		return nil, err
	}

	payload, err := container.UnpackFrameChunk(desc.Flags, raw)
	if err != nil {
		return nil, err
	}

	var pixels []byte
	if desc.Flags&container.ChunkFlagYUV != 0 {
		pixels, err = d.decodeYUVPayload(payload, desc.IsKeyframe)
	} else {
		pixels, err = d.decodeRGBPayload(payload, desc.IsKeyframe)
	}
	if err != nil {
		return nil, err
	}

	return &Frame{
		Pixels:    pixels,
		Timestamp: desc.Timestamp,
		Index:     desc.FrameIndex,
		Keyframe:  desc.IsKeyframe,
	}, nil
}

func (d *Decoder) decodeRGBPayload(payload []byte, isKeyframe bool) ([]byte, error) {
	r := bitio.NewReader(payload)

	var pixels []byte
	var err error
	if isKeyframe {
		pixels, err = rgb.DecodeKeyframe(r, &d.rgbCache, int(d.header.Width), int(d.header.Height))
	} else {
		pixels, err = rgb.DecodePFrame(r, &d.rgbCache, d.prevRGB, int(d.header.Width), int(d.header.Height))
	}
	if err != nil {
		return nil, err
	}
	if err := consumeEndMarker(r); err != nil {
		return nil, err
	}

	d.prevRGB = pixels
	return pixels, nil
}

func (d *Decoder) decodeYUVPayload(payload []byte, isKeyframe bool) ([]byte, error) {
	r := bitio.NewReader(payload)

	w, h := int(d.header.Width), int(d.header.Height)
	cw, ch := yuv.ChromaDims(w, h, d.subsampling)
	yCount, cCount := w*h, cw*ch

	var y, u, v, a []byte
	var err error

	if isKeyframe {
		if y, err = yuvplane.DecodeKeyframePlane(r, &d.planeCacheY, yCount); err != nil {
			return nil, err
		}
		if u, err = yuvplane.DecodeKeyframePlane(r, &d.planeCacheU, cCount); err != nil {
			return nil, err
		}
		if v, err = yuvplane.DecodeKeyframePlane(r, &d.planeCacheV, cCount); err != nil {
			return nil, err
		}
		if d.hasAlpha {
			if a, err = yuvplane.DecodeKeyframePlane(r, &d.planeCacheA, yCount); err != nil {
				return nil, err
			}
		}
	} else {
		d.planeCacheY.Reset()
		if y, err = yuvplane.DecodePFramePlane(r, &d.planeCacheY, d.prevY, yCount); err != nil {
			return nil, err
		}
		d.planeCacheU.Reset()
		if u, err = yuvplane.DecodePFramePlane(r, &d.planeCacheU, d.prevU, cCount); err != nil {
			return nil, err
		}
		d.planeCacheV.Reset()
		if v, err = yuvplane.DecodePFramePlane(r, &d.planeCacheV, d.prevV, cCount); err != nil {
			return nil, err
		}
		if d.hasAlpha {
			d.planeCacheA.Reset()
			if a, err = yuvplane.DecodePFramePlane(r, &d.planeCacheA, d.prevA, yCount); err != nil {
				return nil, err
			}
		}
	}
	if err := consumeEndMarker(r); err != nil {
		return nil, err
	}

	d.prevY, d.prevU, d.prevV, d.prevA = y, u, v, a
	return yuv.FromPlanes(y, u, v, a, w, h, d.subsampling), nil
}

func consumeEndMarker(r *bitio.Reader) error {
	tail, err := r.ReadBytes(8)
	if err != nil {
		return err
	}
	if !bytes.Equal(tail, container.EndMarker[:]) {
		return fmt.Errorf("%w: missing or malformed end marker", qoverr.ErrCorruptedStream)
	}
	return nil
}
