package yuvplane

import (
	"bytes"
	"testing"

	"qov/internal/bitio"
)

func rampPlane(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i * 17)
	}
	return out
}

func TestKeyframePlaneRoundTrip(t *testing.T) {
	samples := rampPlane(64)

	w := bitio.NewWriter()
	var enc Cache
	EncodeKeyframePlane(w, &enc, samples)

	r := bitio.NewReader(w.Bytes())
	var dec Cache
	got, err := DecodeKeyframePlane(r, &dec, len(samples))
	if err != nil {
		t.Fatalf("DecodeKeyframePlane: %v", err)
	}
	if !bytes.Equal(got, samples) {
		t.Fatalf("round trip mismatch: got %v want %v", got, samples)
	}
}

func TestKeyframePlaneRunAcrossBoundary(t *testing.T) {
	samples := make([]byte, 140) // flat plane, forces multiple RUN opcodes

	w := bitio.NewWriter()
	var enc Cache
	EncodeKeyframePlane(w, &enc, samples)

	body := w.Bytes()
	runs := 0
	for _, b := range body {
		if b >= opRunMin && b <= opRunMax {
			runs++
		}
	}
	if runs < 2 {
		t.Fatalf("expected at least 2 RUN opcodes for 140 zero samples, got %d", runs)
	}

	r := bitio.NewReader(body)
	var dec Cache
	got, err := DecodeKeyframePlane(r, &dec, len(samples))
	if err != nil {
		t.Fatalf("DecodeKeyframePlane: %v", err)
	}
	if !bytes.Equal(got, samples) {
		t.Fatalf("round trip mismatch")
	}
}

func TestPFramePlaneAllSkipUsesSkipLong(t *testing.T) {
	prev := rampPlane(200)
	cur := make([]byte, len(prev))
	copy(cur, prev)

	w := bitio.NewWriter()
	var cache Cache
	EncodePFramePlane(w, &cache, cur, prev)

	body := w.Bytes()
	if len(body) == 0 || body[0] != opSkipLong {
		t.Fatalf("expected SKIP_LONG as first opcode, got 0x%02x", body[0])
	}

	r := bitio.NewReader(body)
	var dcache Cache
	got, err := DecodePFramePlane(r, &dcache, prev, len(cur))
	if err != nil {
		t.Fatalf("DecodePFramePlane: %v", err)
	}
	if !bytes.Equal(got, cur) {
		t.Fatalf("round trip mismatch")
	}
}

func TestPFramePlaneMixedChanges(t *testing.T) {
	prev := rampPlane(50)
	cur := make([]byte, len(prev))
	copy(cur, prev)
	cur[0] = 250
	cur[1] = 5
	cur[25] = 0
	cur[49] = 1

	w := bitio.NewWriter()
	var cache Cache
	EncodePFramePlane(w, &cache, cur, prev)

	r := bitio.NewReader(w.Bytes())
	var dcache Cache
	got, err := DecodePFramePlane(r, &dcache, prev, len(cur))
	if err != nil {
		t.Fatalf("DecodePFramePlane: %v", err)
	}
	if !bytes.Equal(got, cur) {
		t.Fatalf("round trip mismatch: got %v want %v", got, cur)
	}
}

func TestPFramePlaneNeverEmitsBareIndexZero(t *testing.T) {
	prev := []byte{9, 9, 9, 9}
	cur := []byte{9, 9, 0, 9}

	w := bitio.NewWriter()
	var cache Cache
	EncodePFramePlane(w, &cache, cur, prev)

	r := bitio.NewReader(w.Bytes())
	var dcache Cache
	got, err := DecodePFramePlane(r, &dcache, prev, len(cur))
	if err != nil {
		t.Fatalf("DecodePFramePlane: %v", err)
	}
	if !bytes.Equal(got, cur) {
		t.Fatalf("round trip mismatch: got %v want %v", got, cur)
	}
}

func TestDecodeKeyframePlaneRejectsUnknownOpcode(t *testing.T) {
	// 0xFF has no meaning in the single-channel codec (no RGBA analogue).
	r := bitio.NewReader([]byte{0xFF})
	var dec Cache
	if _, err := DecodeKeyframePlane(r, &dec, 1); err == nil {
		t.Fatalf("expected error for unknown opcode 0xFF")
	}
}
