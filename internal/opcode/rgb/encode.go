package rgb

import "qov/internal/bitio"

// EncodeKeyframe writes width*height pixels (packed RGBA, row-major) as a
// keyframe opcode stream into w, followed by the 8-byte end marker. It
// resets cache and begins the previous-pixel chain at opaque black, per
// spec §4.4's keyframe frame-level contract.
func EncodeKeyframe(w *bitio.Writer, cache *Cache, pixels []byte, width, height int) {
	cache.Reset()
	prev := black
	run := 0
	n := width * height

	flushRun := func() {
		if run > 0 {
			w.WriteU8(runTag | byte(run-1))
			run = 0
		}
	}

	for i := 0; i < n; i++ {
		cur := readPixel(pixels, i)
		if cur == prev {
			run++
			if run == maxRunLength {
				flushRun()
			}
			continue
		}
		flushRun()
		emitPixel(w, cache, cur, prev, false)
		prev = cur
	}
	flushRun()
	writeEndMarker(w)
}

// EncodePFrame writes a P-frame opcode stream for cur against the
// previous frame's pixels prevFrame, into w. The color cache carries over
// from whatever state the caller left it in (it is not reset here).
func EncodePFrame(w *bitio.Writer, cache *Cache, cur, prevFrame []byte, width, height int) {
	n := width * height
	skip := 0

	flushSkip := func() {
		switch {
		case skip == 0:
			return
		case skip <= maxRunLength:
			w.WriteU8(runTag | byte(skip-1))
		default:
			w.WriteU8(opSkipLong)
			w.WriteU16(uint16(skip))
		}
		skip = 0
	}

	for i := 0; i < n; i++ {
		ref := readPixel(prevFrame, i)
		curPixel := readPixel(cur, i)
		if curPixel == ref {
			skip++
			if skip == 65535 {
				flushSkip()
			}
			continue
		}
		flushSkip()
		emitPixel(w, cache, curPixel, ref, true)
	}
	flushSkip()
	writeEndMarker(w)
}

// emitPixel chooses the first opcode from the spec's preference order
// (INDEX, DIFF, LUMA, RGB, RGBA) that represents cur exactly relative to
// ref, writes it, and updates cache. ref is the previous-pixel chain
// value on keyframes or the co-located previous-frame pixel on P-frames.
// On P-frames, slot 0 can never be signaled by INDEX: byte 0x00 is
// reserved for SKIP_LONG, so a cache hit at slot 0 falls through to the
// next candidate opcode.
func emitPixel(w *bitio.Writer, cache *Cache, cur, ref [4]byte, isPFrame bool) {
	idx := Index(cur[0], cur[1], cur[2], cur[3])
	if cache.Get(idx) == cur && !(isPFrame && idx == 0) {
		w.WriteU8(byte(idx))
		cache.Put(cur)
		return
	}

	if cur[3] == ref[3] {
		dr := wrappedDelta(cur[0], ref[0])
		dg := wrappedDelta(cur[1], ref[1])
		db := wrappedDelta(cur[2], ref[2])

		if clampDelta2(dr) && clampDelta2(dg) && clampDelta2(db) {
			w.WriteU8(opDiffMin | byte(dr+diffBias)<<4 | byte(dg+diffBias)<<2 | byte(db+diffBias))
			cache.Put(cur)
			return
		}

		drg := dr - dg
		dbg := db - dg
		if clampDelta6(dg) && clampDelta4(drg) && clampDelta4(dbg) {
			w.WriteU8(opLumaMin | byte(dg+lumaGBias))
			w.WriteU8(byte(drg+lumaRBBias)<<4 | byte(dbg+lumaRBBias))
			cache.Put(cur)
			return
		}

		w.WriteU8(opRGB)
		w.WriteU8(cur[0])
		w.WriteU8(cur[1])
		w.WriteU8(cur[2])
		cache.Put(cur)
		return
	}

	w.WriteU8(opRGBA)
	w.WriteU8(cur[0])
	w.WriteU8(cur[1])
	w.WriteU8(cur[2])
	w.WriteU8(cur[3])
	cache.Put(cur)
}

func readPixel(pixels []byte, i int) [4]byte {
	o := i * 4
	return [4]byte{pixels[o], pixels[o+1], pixels[o+2], pixels[o+3]}
}

func writeEndMarker(w *bitio.Writer) {
	w.WriteBytes([]byte{0, 0, 0, 0, 0, 0, 0, 1})
}
