package rgb

import (
	"fmt"

	"qov/internal/bitio"
	"qov/qoverr"
)

// DecodeKeyframe reads a keyframe opcode stream (not including the end
// marker) and returns width*height packed RGBA pixels.
func DecodeKeyframe(r *bitio.Reader, cache *Cache, width, height int) ([]byte, error) {
	cache.Reset()
	prev := black
	n := width * height
	out := make([]byte, n*4)

	pos := 0
	for pos < n {
		b, err := r.ReadU8()
		if err != nil {
			return nil, err
		}

		switch {
		case b <= opIndexMax: // INDEX
			pixel := cache.Get(int(b))
			writePixel(out, pos, pixel)
			prev = pixel
			pos++

		case b <= opDiffMax: // DIFF
			dr := int((b>>4)&0x3) - diffBias
			dg := int((b>>2)&0x3) - diffBias
			db := int(b&0x3) - diffBias
			pixel := [4]byte{addDelta(prev[0], dr), addDelta(prev[1], dg), addDelta(prev[2], db), prev[3]}
			cache.Put(pixel)
			writePixel(out, pos, pixel)
			prev = pixel
			pos++

		case b <= opLumaMax: // LUMA
			dg := int(b&0x3F) - lumaGBias
			b2, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			drg := int(b2>>4) - lumaRBBias
			dbg := int(b2&0x0F) - lumaRBBias
			pixel := [4]byte{addDelta(prev[0], dg+drg), addDelta(prev[1], dg), addDelta(prev[2], dg+dbg), prev[3]}
			cache.Put(pixel)
			writePixel(out, pos, pixel)
			prev = pixel
			pos++

		case b <= opRunMax: // RUN
			count := int(b&0x3F) + 1
			if pos+count > n {
				return nil, fmt.Errorf("%w: rgb keyframe RUN of %d overruns frame at pixel %d/%d", qoverr.ErrCorruptedStream, count, pos, n)
			}
			for k := 0; k < count; k++ {
				writePixel(out, pos, prev)
				pos++
			}

		case b == opRGB:
			rv, gv, bv, err := read3(r)
			if err != nil {
				return nil, err
			}
			pixel := [4]byte{rv, gv, bv, prev[3]}
			cache.Put(pixel)
			writePixel(out, pos, pixel)
			prev = pixel
			pos++

		case b == opRGBA:
			rv, gv, bv, av, err := read4(r)
			if err != nil {
				return nil, err
			}
			pixel := [4]byte{rv, gv, bv, av}
			cache.Put(pixel)
			writePixel(out, pos, pixel)
			prev = pixel
			pos++

		default:
			return nil, fmt.Errorf("%w: unreachable rgb opcode 0x%02x", qoverr.ErrCorruptedStream, b)
		}
	}
	return out, nil
}

// DecodePFrame reads a P-frame opcode stream against prevFrame and
// returns the reconstructed width*height packed RGBA pixels. cache is not
// reset; it carries forward exactly the state the caller passes in.
func DecodePFrame(r *bitio.Reader, cache *Cache, prevFrame []byte, width, height int) ([]byte, error) {
	n := width * height
	out := make([]byte, len(prevFrame))
	copy(out, prevFrame)

	pos := 0
	for pos < n {
		b, err := r.ReadU8()
		if err != nil {
			return nil, err
		}

		switch {
		case b == opSkipLong:
			hi, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			lo, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			count := int(hi)<<8 | int(lo)
			if pos+count > n {
				return nil, fmt.Errorf("%w: rgb pframe SKIP_LONG of %d overruns frame at pixel %d/%d", qoverr.ErrCorruptedStream, count, pos, n)
			}
			pos += count // out already holds prevFrame's pixels there

		case b <= opIndexMax: // INDEX (b in 0x01..0x3F; 0x00 handled above)
			pixel := cache.Get(int(b))
			writePixel(out, pos, pixel)
			pos++

		case b <= opDiffMax: // TDIFF
			ref := readPixel(prevFrame, pos)
			dr := int((b>>4)&0x3) - diffBias
			dg := int((b>>2)&0x3) - diffBias
			db := int(b&0x3) - diffBias
			pixel := [4]byte{addDelta(ref[0], dr), addDelta(ref[1], dg), addDelta(ref[2], db), ref[3]}
			cache.Put(pixel)
			writePixel(out, pos, pixel)
			pos++

		case b <= opLumaMax: // TLUMA
			ref := readPixel(prevFrame, pos)
			dg := int(b&0x3F) - lumaGBias
			b2, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			drg := int(b2>>4) - lumaRBBias
			dbg := int(b2&0x0F) - lumaRBBias
			pixel := [4]byte{addDelta(ref[0], dg+drg), addDelta(ref[1], dg), addDelta(ref[2], dg+dbg), ref[3]}
			cache.Put(pixel)
			writePixel(out, pos, pixel)
			pos++

		case b <= opRunMax: // SKIP
			count := int(b&0x3F) + 1
			if pos+count > n {
				return nil, fmt.Errorf("%w: rgb pframe SKIP of %d overruns frame at pixel %d/%d", qoverr.ErrCorruptedStream, count, pos, n)
			}
			pos += count

		case b == opRGB:
			ref := readPixel(prevFrame, pos)
			rv, gv, bv, err := read3(r)
			if err != nil {
				return nil, err
			}
			pixel := [4]byte{rv, gv, bv, ref[3]}
			cache.Put(pixel)
			writePixel(out, pos, pixel)
			pos++

		case b == opRGBA:
			rv, gv, bv, av, err := read4(r)
			if err != nil {
				return nil, err
			}
			pixel := [4]byte{rv, gv, bv, av}
			cache.Put(pixel)
			writePixel(out, pos, pixel)
			pos++

		default:
			return nil, fmt.Errorf("%w: unreachable rgb opcode 0x%02x", qoverr.ErrCorruptedStream, b)
		}
	}
	return out, nil
}

func writePixel(out []byte, i int, pixel [4]byte) {
	o := i * 4
	out[o], out[o+1], out[o+2], out[o+3] = pixel[0], pixel[1], pixel[2], pixel[3]
}

func read3(r *bitio.Reader) (a, b, c byte, err error) {
	if a, err = r.ReadU8(); err != nil {
		return
	}
	if b, err = r.ReadU8(); err != nil {
		return
	}
	c, err = r.ReadU8()
	return
}

func read4(r *bitio.Reader) (a, b, c, d byte, err error) {
	if a, b, c, err = read3(r); err != nil {
		return
	}
	d, err = r.ReadU8()
	return
}
