package yuvplane

import "qov/internal/bitio"

// EncodeKeyframePlane writes one plane's samples as a keyframe opcode
// stream into w. It resets cache and begins the previous-value chain at
// 0, per OQ-1 (see SPEC_FULL.md §9): every plane, Y included, starts
// from 0, not 128. Callers are responsible for appending the shared
// end marker once after all of a frame's planes have been written.
func EncodeKeyframePlane(w *bitio.Writer, cache *Cache, samples []byte) {
	cache.Reset()
	prev := byte(0)
	run := 0
	n := len(samples)

	flushRun := func() {
		if run > 0 {
			w.WriteU8(runTag | byte(run-1))
			run = 0
		}
	}

	for i := 0; i < n; i++ {
		cur := samples[i]
		if cur == prev {
			run++
			if run == maxRunLength {
				flushRun()
			}
			continue
		}
		flushRun()
		emitSample(w, cache, cur, prev, false)
		prev = cur
	}
	flushRun()
}

// EncodePFramePlane writes a P-frame opcode stream for cur against the
// co-located previous plane prev. cache is not reset here; the caller
// resets it before every P-frame plane (EncodeKeyframePlane resets it
// itself).
func EncodePFramePlane(w *bitio.Writer, cache *Cache, cur, prev []byte) {
	n := len(cur)
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
		refV := prev[i]
		curV := cur[i]
		if curV == refV {
			skip++
			if skip == 65535 {
				flushSkip()
			}
			continue
		}
		flushSkip()
		emitSample(w, cache, curV, refV, true)
	}
	flushSkip()
}

// emitSample chooses the first opcode from the spec's preference order
// (INDEX, DIFF, LUMA, FULL) that represents cur exactly relative to ref,
// writes it, and updates cache. On P-frames, slot 0 can never be
// signaled by INDEX: byte 0x00 is reserved for SKIP_LONG, so a cache
// hit at slot 0 falls through to the next candidate opcode.
func emitSample(w *bitio.Writer, cache *Cache, cur, ref byte, isPFrame bool) {
	idx := Index(cur)
	if cache.Get(idx) == cur && !(isPFrame && idx == 0) {
		w.WriteU8(byte(idx))
		cache.Put(cur)
		return
	}

	d := wrappedDelta(cur, ref)
	if clampDiff(d) {
		w.WriteU8(opDiffMin | byte(d+diffBias))
		cache.Put(cur)
		return
	}
	if clampLuma(d) {
		w.WriteU8(opLumaMin | byte(d+lumaBias))
		cache.Put(cur)
		return
	}

	w.WriteU8(opFull)
	w.WriteU8(cur)
	cache.Put(cur)
}
