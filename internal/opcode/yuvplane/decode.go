package yuvplane

import (
	"fmt"

	"qov/internal/bitio"
	"qov/qoverr"
)

// DecodeKeyframePlane reads a keyframe plane opcode stream and returns
// count reconstructed samples.
func DecodeKeyframePlane(r *bitio.Reader, cache *Cache, count int) ([]byte, error) {
	cache.Reset()
	prev := byte(0)
	out := make([]byte, count)

	pos := 0
	for pos < count {
		b, err := r.ReadU8()
		if err != nil {
			return nil, err
		}

		switch {
		case b <= opIndexMax: // INDEX
			v := cache.Get(int(b))
			out[pos] = v
			prev = v
			pos++

		case b <= opDiffMax: // DIFF
			d := int(b&0x0F) - diffBias
			v := addDelta(prev, d)
			cache.Put(v)
			out[pos] = v
			prev = v
			pos++

		case b < opLumaMin:
			return nil, fmt.Errorf("%w: unknown plane keyframe opcode 0x%02x", qoverr.ErrCorruptedStream, b)

		case b <= opLumaMax: // LUMA
			d := int(b&0x3F) - lumaBias
			v := addDelta(prev, d)
			cache.Put(v)
			out[pos] = v
			prev = v
			pos++

		case b <= opRunMax: // RUN
			run := int(b&0x3F) + 1
			if pos+run > count {
				return nil, fmt.Errorf("%w: plane keyframe RUN of %d overruns plane at sample %d/%d", qoverr.ErrCorruptedStream, run, pos, count)
			}
			for k := 0; k < run; k++ {
				out[pos] = prev
				pos++
			}

		case b == opFull:
			lit, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			cache.Put(lit)
			out[pos] = lit
			prev = lit
			pos++

		default:
			return nil, fmt.Errorf("%w: unknown plane keyframe opcode 0x%02x", qoverr.ErrCorruptedStream, b)
		}
	}
	return out, nil
}

// DecodePFramePlane reads a P-frame plane opcode stream against prev and
// returns the reconstructed plane. cache carries forward exactly the
// state the caller passes in.
func DecodePFramePlane(r *bitio.Reader, cache *Cache, prev []byte, count int) ([]byte, error) {
	out := make([]byte, len(prev))
	copy(out, prev)

	pos := 0
	for pos < count {
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
			run := int(hi)<<8 | int(lo)
			if pos+run > count {
				return nil, fmt.Errorf("%w: plane pframe SKIP_LONG of %d overruns plane at sample %d/%d", qoverr.ErrCorruptedStream, run, pos, count)
			}
			pos += run

		case b <= opIndexMax: // INDEX (0x01..0x3F; 0x00 handled above)
			out[pos] = cache.Get(int(b))
			pos++

		case b <= opDiffMax: // TDIFF
			ref := prev[pos]
			d := int(b&0x0F) - diffBias
			v := addDelta(ref, d)
			cache.Put(v)
			out[pos] = v
			pos++

		case b < opLumaMin:
			return nil, fmt.Errorf("%w: unknown plane pframe opcode 0x%02x", qoverr.ErrCorruptedStream, b)

		case b <= opLumaMax: // TLUMA
			ref := prev[pos]
			d := int(b&0x3F) - lumaBias
			v := addDelta(ref, d)
			cache.Put(v)
			out[pos] = v
			pos++

		case b <= opRunMax: // SKIP
			run := int(b&0x3F) + 1
			if pos+run > count {
				return nil, fmt.Errorf("%w: plane pframe SKIP of %d overruns plane at sample %d/%d", qoverr.ErrCorruptedStream, run, pos, count)
			}
			pos += run

		case b == opFull:
			lit, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			cache.Put(lit)
			out[pos] = lit
			pos++

		default:
			return nil, fmt.Errorf("%w: unknown plane pframe opcode 0x%02x", qoverr.ErrCorruptedStream, b)
		}
	}
	return out, nil
}
