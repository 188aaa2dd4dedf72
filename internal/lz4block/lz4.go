// Package lz4block implements the LZ4 block format (not the framed
// format): a flat stream of {token, literals, offset, match} sequences,
// used here to compress individual QOV chunk payloads. The window,
// hashing, and safety-margin constants follow the reference LZ4 block
// codec surfaced in the retrieval pack (github.com/pierrec/lz4, vendored
// under minio/minio as internal/lz4.go).
package lz4block

import (
	"encoding/binary"
	"fmt"

	"qov/qoverr"
)

const (
	minMatch = 4     // shortest back-reference LZ4 will emit
	winSize  = 65535 // maximum back-offset (64KB - 1)
	hashLog  = 16
	hashMul  = 2654435769 // Knuth multiplicative hash constant used by LZ4

	// mfLimit is the length of the input tail that no match may cover:
	// the final minMatch+1 bytes (5, the "LZ4 safety rule") are always
	// emitted as literals.
	mfLimit = minMatch + 1
)

// compressRatioGate is the spec's compression-gating threshold: LZ4
// output at or above 95% of the input size is rejected in favor of
// storing the chunk uncompressed. Compress applies the gate itself
// (reporting ok=false) using the exact integer form len(output)*20 >=
// len(input)*19; the constant records the threshold's meaning.
const compressRatioGate = 0.95

func hash4(data []byte, i int) uint32 {
	v := binary.LittleEndian.Uint32(data[i : i+4])
	return (v * hashMul) >> (32 - hashLog)
}

// Compress produces LZ4 block-format output for src. It returns ok=false
// (meaning: store src uncompressed instead) when the compressed length
// would be at least 95% of len(src), per the spec's compression gate.
func Compress(src []byte) (dst []byte, ok bool) {
	n := len(src)
	dst = make([]byte, 0, n)

	if n < mfLimit {
		dst = emitLiterals(dst, src)
		return dst, false
	}

	var table [1 << hashLog]int32
	for i := range table {
		table[i] = -1
	}

	anchor := 0
	i := 0
	// A match starts no later than limit and stops extending at
	// n-mfLimit, so the final mfLimit bytes stay in the literal tail.
	limit := n - mfLimit - minMatch

	for i <= limit {
		h := hash4(src, i)
		ref := int(table[h])
		table[h] = int32(i)

		if ref < 0 || i-ref > winSize || !matches4(src, ref, i) {
			i++
			continue
		}

		matchStart := i
		matchRef := ref

		i += minMatch
		ref += minMatch
		for i < n-mfLimit && src[ref] == src[i] {
			i++
			ref++
		}
		matchLen := i - matchStart

		dst = emitToken(dst, src[anchor:matchStart], matchStart-matchRef, matchLen)
		anchor = i

		// Reseed the hash table for positions just consumed by the match
		// so later matches can still reference into the middle of it.
		for p := matchStart + 1; p < i && p <= limit; p++ {
			table[hash4(src, p)] = int32(p)
		}
	}

	dst = emitLiterals(dst, src[anchor:])

	if len(dst)*20 >= n*19 {
		return dst, false
	}
	return dst, true
}

func matches4(src []byte, a, b int) bool {
	return src[a] == src[b] && src[a+1] == src[b+1] && src[a+2] == src[b+2] && src[a+3] == src[b+3]
}

// emitToken appends one {token, literals, offset, match-length} sequence.
func emitToken(dst []byte, literals []byte, offset, matchLen int) []byte {
	litLen := len(literals)
	extraMatch := matchLen - minMatch

	litNibble := litLen
	if litNibble > 15 {
		litNibble = 15
	}
	matchNibble := extraMatch
	if matchNibble > 15 {
		matchNibble = 15
	}
	dst = append(dst, byte(litNibble<<4|matchNibble))

	if litLen >= 15 {
		dst = appendExtendedLength(dst, litLen-15)
	}
	dst = append(dst, literals...)

	dst = append(dst, byte(offset), byte(offset>>8))

	if extraMatch >= 15 {
		dst = appendExtendedLength(dst, extraMatch-15)
	}
	return dst
}

// emitLiterals appends a trailing literal-only token (zero match length,
// zero offset bytes) — used for the final safety-margin bytes of a block
// and for inputs too short to match against.
func emitLiterals(dst []byte, literals []byte) []byte {
	litLen := len(literals)
	litNibble := litLen
	if litNibble > 15 {
		litNibble = 15
	}
	dst = append(dst, byte(litNibble<<4))
	if litLen >= 15 {
		dst = appendExtendedLength(dst, litLen-15)
	}
	dst = append(dst, literals...)
	return dst
}

// appendExtendedLength appends the 0xFF-run + final-byte encoding of a
// length remainder that did not fit in a 4-bit nibble.
func appendExtendedLength(dst []byte, remainder int) []byte {
	for remainder >= 255 {
		dst = append(dst, 0xFF)
		remainder -= 255
	}
	return append(dst, byte(remainder))
}

// Decompress expands LZ4 block-format src into a buffer of exactly
// expectedLen bytes. It returns ErrCorruptedStream if a match offset
// points before the start of the output, or if a literal/match run would
// read past the end of src.
func Decompress(src []byte, expectedLen int) ([]byte, error) {
	dst := make([]byte, 0, expectedLen)
	i := 0
	n := len(src)

	for i < n {
		token := src[i]
		i++

		litLen := int(token >> 4)
		if litLen == 15 {
			extra, ni, err := readExtendedLength(src, i)
			if err != nil {
				return nil, err
			}
			litLen += extra
			i = ni
		}

		if i+litLen > n {
			return nil, fmt.Errorf("%w: lz4 literal run of %d bytes exceeds input", qoverr.ErrCorruptedStream, litLen)
		}
		dst = append(dst, src[i:i+litLen]...)
		i += litLen

		if i == n {
			// Final token in the stream may be literal-only (no offset
			// field follows), matching the encoder's emitLiterals tail.
			break
		}

		if i+2 > n {
			return nil, fmt.Errorf("%w: lz4 truncated offset field", qoverr.ErrCorruptedStream)
		}
		offset := int(src[i]) | int(src[i+1])<<8
		i += 2
		if offset == 0 || offset > len(dst) {
			return nil, fmt.Errorf("%w: lz4 offset %d out of window (have %d output bytes)", qoverr.ErrCorruptedStream, offset, len(dst))
		}

		matchLen := int(token & 0x0F)
		if matchLen == 15 {
			extra, ni, err := readExtendedLength(src, i)
			if err != nil {
				return nil, err
			}
			matchLen += extra
			i = ni
		}
		matchLen += minMatch

		matchPos := len(dst) - offset
		for k := 0; k < matchLen; k++ {
			dst = append(dst, dst[matchPos+k])
		}
	}

	if len(dst) != expectedLen {
		return nil, fmt.Errorf("%w: lz4 decompressed %d bytes, expected %d", qoverr.ErrCorruptedStream, len(dst), expectedLen)
	}
	return dst, nil
}

func readExtendedLength(src []byte, i int) (extra int, next int, err error) {
	for {
		if i >= len(src) {
			return 0, 0, fmt.Errorf("%w: lz4 extended length runs past input", qoverr.ErrCorruptedStream)
		}
		b := src[i]
		i++
		extra += int(b)
		if b != 0xFF {
			return extra, i, nil
		}
	}
}
