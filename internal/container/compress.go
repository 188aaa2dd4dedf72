package container

import (
	"fmt"

	"qov/internal/bitio"
	"qov/internal/lz4block"
	"qov/qoverr"
)

// compressRatioGate is the spec's compression gating threshold (§4.7):
// a payload is written compressed only if its LZ4 output, not counting
// the 4-byte uncompressed-size prefix, is under 95% of the payload length.
const compressRatioGate = 0.95

// PackFrameChunk decides whether payload (an opcode stream already
// ending in the 8-byte end marker) should be written compressed, and
// returns the chunk flags and body bytes to follow the chunk header.
// The body for an uncompressed chunk is payload itself; for a
// compressed chunk it is the 4-byte uncompressed-size prefix followed
// by LZ4 bytes.
func PackFrameChunk(payload []byte, baseFlags byte, compressionEnabled bool) (flags byte, body []byte) {
	if !compressionEnabled {
		return baseFlags, payload
	}

	compressed, ok := lz4block.Compress(payload)
	if !ok || float64(len(compressed)) >= compressRatioGate*float64(len(payload)) {
		return baseFlags, payload
	}

	out := bitio.NewWriter()
	out.WriteU32(uint32(len(payload)))
	out.WriteBytes(compressed)
	return baseFlags | ChunkFlagCompressed, out.Bytes()
}

// UnpackFrameChunk reverses PackFrameChunk: given the chunk's flags and
// raw body bytes, returns the plain opcode-stream payload.
func UnpackFrameChunk(flags byte, body []byte) ([]byte, error) {
	if flags&ChunkFlagCompressed == 0 {
		return body, nil
	}
	r := bitio.NewReader(body)
	uncompressedSize, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	rest, err := r.ReadBytes(r.Remaining())
	if err != nil {
		return nil, err
	}
	out, err := lz4block.Decompress(rest, int(uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("%w: lz4 decompress: %v", qoverr.ErrCorruptedStream, err)
	}
	return out, nil
}
