package lz4block

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"qov/qoverr"
)

// roundTrip decompresses whatever Compress produced regardless of the
// ratio-gate verdict: Compress always returns well-formed LZ4, even when
// it also reports that storing the input uncompressed would be smaller
// (the encoder orchestrator, not Compress, decides which bytes actually
// land in the container; here we only check the codec itself).
func roundTrip(t *testing.T, src []byte) {
	t.Helper()
	compressed, _ := Compress(src)
	got, err := Decompress(compressed, len(src))
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(src))
	}
}

func TestRoundTripEmpty(t *testing.T) {
	roundTrip(t, nil)
}

func TestRoundTripShort(t *testing.T) {
	roundTrip(t, []byte("hi"))
}

func TestRoundTripRepeated(t *testing.T) {
	roundTrip(t, bytes.Repeat([]byte("abcdabcdabcd"), 100))
}

func TestRoundTripAllSame(t *testing.T) {
	roundTrip(t, bytes.Repeat([]byte{0x42}, 10000))
}

func TestRoundTripRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	buf := make([]byte, 5000)
	r.Read(buf)
	roundTrip(t, buf)
}

func TestRoundTripLongLiteralRuns(t *testing.T) {
	// Force literal-length encoding past the 4-bit nibble (>=15 bytes)
	// with no matches available anywhere.
	r := rand.New(rand.NewSource(2))
	buf := make([]byte, 300)
	r.Read(buf)
	roundTrip(t, buf)
}

func TestRoundTripLongMatch(t *testing.T) {
	src := append([]byte("HEADER-"), bytes.Repeat([]byte{0x7}, 1000)...)
	roundTrip(t, src)
}

func TestCompressGatesIncompressibleInput(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	buf := make([]byte, 8192)
	r.Read(buf)
	_, ok := Compress(buf)
	if ok {
		t.Fatal("expected Compress to reject random data (ratio gate)")
	}
}

func TestCompressAcceptsCompressibleInput(t *testing.T) {
	buf := bytes.Repeat([]byte("0123456789"), 1000)
	out, ok := Compress(buf)
	if !ok {
		t.Fatal("expected Compress to accept highly repetitive data")
	}
	if len(out) >= len(buf)*19/20 {
		t.Fatalf("compressed size %d not under 95%% of %d", len(out), len(buf))
	}
}

func TestDecompressRejectsOffsetBeforeStart(t *testing.T) {
	// token: litLen=0, matchLen nibble=0 -> offset field follows
	// immediately with no literals emitted yet, so any offset is
	// necessarily out of window (len(dst)==0 at that point).
	bad := []byte{0x00, 0x01, 0x00}
	_, err := Decompress(bad, 4)
	if !errors.Is(err, qoverr.ErrCorruptedStream) {
		t.Fatalf("err = %v, want ErrCorruptedStream", err)
	}
}

func TestDecompressRejectsTruncatedLiteralRun(t *testing.T) {
	bad := []byte{0x50, 'a'} // claims 5 literal bytes, only 1 present
	_, err := Decompress(bad, 5)
	if !errors.Is(err, qoverr.ErrCorruptedStream) {
		t.Fatalf("err = %v, want ErrCorruptedStream", err)
	}
}

func TestDecompressRejectsWrongExpectedLength(t *testing.T) {
	compressed, _ := Compress([]byte("hello world"))
	_, err := Decompress(compressed, 999)
	if !errors.Is(err, qoverr.ErrCorruptedStream) {
		t.Fatalf("err = %v, want ErrCorruptedStream", err)
	}
}
