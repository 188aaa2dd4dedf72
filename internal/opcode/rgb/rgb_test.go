package rgb

import (
	"bytes"
	"testing"

	"qov/internal/bitio"
)

func solidFrame(w, h int, px [4]byte) []byte {
	out := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		writePixel(out, i, px)
	}
	return out
}

func gradientFrame(w, h int) []byte {
	out := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			writePixel(out, i, [4]byte{byte(x * 7), byte(y * 13), byte(x + y), 255})
		}
	}
	return out
}

func TestKeyframeRoundTripGradient(t *testing.T) {
	w, h := 16, 16
	pixels := gradientFrame(w, h)

	wr := bitio.NewWriter()
	var enc Cache
	EncodeKeyframe(wr, &enc, pixels, w, h)

	rd := bitio.NewReader(wr.Bytes())
	var dec Cache
	got, err := DecodeKeyframe(rd, &dec, w, h)
	if err != nil {
		t.Fatalf("DecodeKeyframe: %v", err)
	}
	if !bytes.Equal(got, pixels) {
		t.Fatalf("round trip mismatch")
	}

	tail, err := rd.ReadBytes(8)
	if err != nil || !bytes.Equal(tail, []byte{0, 0, 0, 0, 0, 0, 0, 1}) {
		t.Fatalf("expected end marker, got %v err=%v", tail, err)
	}
}

func TestKeyframeRoundTripSolidRunsAcrossBoundary(t *testing.T) {
	// 150 identical pixels forces multiple RUN opcodes (max 62 each).
	w, h := 150, 1
	pixels := solidFrame(w, h, [4]byte{10, 20, 30, 255})

	wr := bitio.NewWriter()
	var enc Cache
	EncodeKeyframe(wr, &enc, pixels, w, h)

	runOpcodes := 0
	body := wr.Bytes()
	for i := 0; i < len(body)-8; i++ {
		if body[i] >= opRunMin && body[i] <= opRunMax {
			runOpcodes++
		}
	}
	if runOpcodes < 3 {
		t.Fatalf("expected at least 3 RUN opcodes for 150 equal pixels, got %d", runOpcodes)
	}

	rd := bitio.NewReader(body)
	var dec Cache
	got, err := DecodeKeyframe(rd, &dec, w, h)
	if err != nil {
		t.Fatalf("DecodeKeyframe: %v", err)
	}
	if !bytes.Equal(got, pixels) {
		t.Fatalf("round trip mismatch for solid run")
	}
}

func TestPFrameRoundTripAllSkip(t *testing.T) {
	w, h := 300, 1
	prev := gradientFrame(w, h)
	cur := make([]byte, len(prev))
	copy(cur, prev)

	wr := bitio.NewWriter()
	var cache Cache
	EncodePFrame(wr, &cache, cur, prev, w, h)

	body := wr.Bytes()
	if len(body) == 0 || body[0] != opSkipLong {
		t.Fatalf("expected SKIP_LONG for >62 unchanged pixels, got first byte 0x%02x", body[0])
	}

	rd := bitio.NewReader(body)
	var dcache Cache
	got, err := DecodePFrame(rd, &dcache, prev, w, h)
	if err != nil {
		t.Fatalf("DecodePFrame: %v", err)
	}
	if !bytes.Equal(got, cur) {
		t.Fatalf("round trip mismatch for all-skip pframe")
	}
}

func TestPFrameRoundTripMixedChanges(t *testing.T) {
	w, h := 20, 5
	prev := gradientFrame(w, h)
	cur := make([]byte, len(prev))
	copy(cur, prev)

	// Mutate a scattered subset of pixels so the encoder must interleave
	// SKIP runs with DIFF/LUMA/RGB/RGBA opcodes.
	mutate := func(i int, px [4]byte) { writePixel(cur, i, px) }
	mutate(3, [4]byte{255, 0, 0, 255})
	mutate(4, [4]byte{250, 1, 1, 255})
	mutate(50, [4]byte{0, 200, 0, 128})
	mutate(51, [4]byte{1, 201, 1, 128})
	mutate(99, [4]byte{9, 9, 9, 9})

	wr := bitio.NewWriter()
	var cache Cache
	EncodePFrame(wr, &cache, cur, prev, w, h)

	rd := bitio.NewReader(wr.Bytes())
	var dcache Cache
	got, err := DecodePFrame(rd, &dcache, prev, w, h)
	if err != nil {
		t.Fatalf("DecodePFrame: %v", err)
	}
	if !bytes.Equal(got, cur) {
		t.Fatalf("round trip mismatch for mixed pframe")
	}
}

func TestPFrameNeverEmitsIndexZeroAsOpcode(t *testing.T) {
	// Slot 0's hash target is black (0,0,0,0) by construction of Index();
	// force a P-frame cache hit there and confirm the encoder never emits
	// a lone 0x00 opcode byte outside of SKIP_LONG's 3-byte form.
	w, h := 4, 1
	prev := solidFrame(w, h, [4]byte{1, 1, 1, 255})
	cur := make([]byte, len(prev))
	copy(cur, prev)
	writePixel(cur, 2, [4]byte{0, 0, 0, 0})

	wr := bitio.NewWriter()
	var cache Cache
	EncodePFrame(wr, &cache, cur, prev, w, h)

	rd := bitio.NewReader(wr.Bytes())
	var dcache Cache
	got, err := DecodePFrame(rd, &dcache, prev, w, h)
	if err != nil {
		t.Fatalf("DecodePFrame: %v", err)
	}
	if !bytes.Equal(got, cur) {
		t.Fatalf("round trip mismatch")
	}
}

func TestKeyframeRejectsTruncatedStream(t *testing.T) {
	w, h := 4, 1
	pixels := gradientFrame(w, h)

	wr := bitio.NewWriter()
	var enc Cache
	EncodeKeyframe(wr, &enc, pixels, w, h)

	body := wr.Bytes()
	// Strip the end marker plus a chunk of the final pixel's opcode bytes
	// so the decoder runs out of input before reconstructing all pixels.
	cut := len(body) - 8 - 3
	if cut < 1 {
		cut = 1
	}
	truncated := body[:cut]

	rd := bitio.NewReader(truncated)
	var dec Cache
	if _, err := DecodeKeyframe(rd, &dec, w, h); err == nil {
		t.Fatalf("expected error decoding truncated stream")
	}
}
