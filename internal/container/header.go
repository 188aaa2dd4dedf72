package container

import (
	"fmt"

	"qov/internal/bitio"
	"qov/qoverr"
)

// WriteFileHeader appends the 24-byte file header to w.
func WriteFileHeader(w *bitio.Writer, h FileHeader) {
	w.WriteBytes([]byte(magic))
	w.WriteU8(h.Version)
	w.WriteU8(h.Flags)
	w.WriteU16(h.Width)
	w.WriteU16(h.Height)
	w.WriteU16(h.FPSNum)
	w.WriteU16(h.FPSDen)
	w.WriteU32(h.TotalFrames)
	w.WriteU8(h.AudioChannels)
	rate := h.AudioRateHz & 0x00FFFFFF
	w.WriteU8(byte(rate >> 16))
	w.WriteU8(byte(rate >> 8))
	w.WriteU8(byte(rate))
	w.WriteU8(h.Colorspace)
	w.WriteU8(0) // reserved
}

// TotalFramesOffset is the byte offset of the total_frames field within
// the file header, used by the encoder to patch it on Finish.
const TotalFramesOffset = 14

// ParseFileHeader reads and validates the 24-byte file header from r.
func ParseFileHeader(r *bitio.Reader) (FileHeader, error) {
	var h FileHeader

	magicBytes, err := r.ReadBytes(4)
	if err != nil {
		return h, err
	}
	if string(magicBytes) != magic {
		return h, fmt.Errorf("%w: bad magic %q", qoverr.ErrInvalidHeader, magicBytes)
	}

	version, err := r.ReadU8()
	if err != nil {
		return h, err
	}
	if version != 1 && version != 2 {
		return h, fmt.Errorf("%w: unsupported version %d", qoverr.ErrInvalidHeader, version)
	}
	h.Version = version

	if h.Flags, err = r.ReadU8(); err != nil {
		return h, err
	}
	if h.Width, err = r.ReadU16(); err != nil {
		return h, err
	}
	if h.Height, err = r.ReadU16(); err != nil {
		return h, err
	}
	if h.FPSNum, err = r.ReadU16(); err != nil {
		return h, err
	}
	if h.FPSDen, err = r.ReadU16(); err != nil {
		return h, err
	}
	if h.FPSDen == 0 {
		return h, fmt.Errorf("%w: fps_den is zero", qoverr.ErrInvalidHeader)
	}
	if h.TotalFrames, err = r.ReadU32(); err != nil {
		return h, err
	}
	if h.AudioChannels, err = r.ReadU8(); err != nil {
		return h, err
	}
	rateBytes, err := r.ReadBytes(3)
	if err != nil {
		return h, err
	}
	h.AudioRateHz = uint32(rateBytes[0])<<16 | uint32(rateBytes[1])<<8 | uint32(rateBytes[2])
	if h.Colorspace, err = r.ReadU8(); err != nil {
		return h, err
	}
	if !validColorspace(h.Colorspace) {
		return h, fmt.Errorf("%w: unknown colorspace 0x%02x", qoverr.ErrInvalidHeader, h.Colorspace)
	}
	if _, err := r.ReadU8(); err != nil { // reserved
		return h, err
	}
	return h, nil
}

func validColorspace(c byte) bool {
	switch c {
	case ColorspaceSRGB, ColorspaceSRGBA, ColorspaceLinear, ColorspaceLinearA,
		ColorspaceYUV420, ColorspaceYUV422, ColorspaceYUV444, ColorspaceYUV420A:
		return true
	default:
		return false
	}
}

// chunkHeaderSize returns the on-wire chunk header size for the file
// format version.
func chunkHeaderSize(version byte) int {
	if version == 1 {
		return ChunkHeaderSizeV1
	}
	return ChunkHeaderSizeV2
}

// WriteChunkHeader appends a chunk header to w for the given format
// version.
func WriteChunkHeader(w *bitio.Writer, version byte, h ChunkHeader) {
	w.WriteU8(h.Type)
	w.WriteU8(h.Flags)
	if version == 1 {
		w.WriteU16(uint16(h.Size))
	} else {
		w.WriteU32(h.Size)
	}
	w.WriteU32(h.Timestamp)
}

// ParseChunkHeader reads a chunk header for the given format version.
func ParseChunkHeader(r *bitio.Reader, version byte) (ChunkHeader, error) {
	var h ChunkHeader
	var err error
	if h.Type, err = r.ReadU8(); err != nil {
		return h, err
	}
	if h.Flags, err = r.ReadU8(); err != nil {
		return h, err
	}
	if version == 1 {
		sz, err := r.ReadU16()
		if err != nil {
			return h, err
		}
		h.Size = uint32(sz)
	} else {
		if h.Size, err = r.ReadU32(); err != nil {
			return h, err
		}
	}
	if h.Timestamp, err = r.ReadU32(); err != nil {
		return h, err
	}
	return h, nil
}

// WriteSyncChunk appends a SYNC chunk (type 0x00, 8-byte body: "QOVS" +
// big-endian frame number) for the given frame number.
func WriteSyncChunk(w *bitio.Writer, version byte, frameNumber uint32, timestamp uint32) {
	WriteChunkHeader(w, version, ChunkHeader{Type: ChunkSync, Size: 8, Timestamp: timestamp})
	w.WriteBytes([]byte(syncMagic))
	w.WriteU32(frameNumber)
}

// ParseSyncBody validates and decodes an 8-byte SYNC chunk body.
func ParseSyncBody(body []byte) (frameNumber uint32, err error) {
	if len(body) != 8 {
		return 0, fmt.Errorf("%w: sync body length %d, want 8", qoverr.ErrCorruptedStream, len(body))
	}
	if string(body[:4]) != syncMagic {
		return 0, fmt.Errorf("%w: bad sync magic %q", qoverr.ErrCorruptedStream, body[:4])
	}
	return uint32(body[4])<<24 | uint32(body[5])<<16 | uint32(body[6])<<8 | uint32(body[7]), nil
}

// WriteEndChunk appends the END chunk: a chunk header whose size field is
// 8, followed by the 8-byte end marker that size counts.
func WriteEndChunk(w *bitio.Writer, version byte) {
	WriteChunkHeader(w, version, ChunkHeader{Type: ChunkEnd, Size: 8})
	w.WriteBytes(EndMarker[:])
}

// WriteIndexChunk appends the INDEX chunk: u32 count followed by count
// entries of {u32 frame_number, u64 offset_be, u32 timestamp}.
func WriteIndexChunk(w *bitio.Writer, version byte, entries []KeyframeIndexEntry) {
	size := 4 + len(entries)*16
	WriteChunkHeader(w, version, ChunkHeader{Type: ChunkIndex, Size: uint32(size)})
	w.WriteU32(uint32(len(entries)))
	for _, e := range entries {
		w.WriteU32(e.FrameNumber)
		w.WriteU64(e.Offset)
		w.WriteU32(e.Timestamp)
	}
}

// ParseIndexBody decodes an INDEX chunk body into its entries.
func ParseIndexBody(body []byte) ([]KeyframeIndexEntry, error) {
	r := bitio.NewReader(body)
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	entries := make([]KeyframeIndexEntry, count)
	for i := range entries {
		fn, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		off, err := r.ReadU64()
		if err != nil {
			return nil, err
		}
		ts, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		entries[i] = KeyframeIndexEntry{FrameNumber: fn, Offset: off, Timestamp: ts}
	}
	return entries, nil
}
