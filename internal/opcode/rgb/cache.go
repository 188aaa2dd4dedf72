// Package rgb implements the RGB opcode codec (spec component C4): the
// 64-entry color-cache opcode stream shared by RGB keyframes and P-frames.
// Frames are passed and returned as packed RGBA byte slices (4 bytes per
// pixel, row-major), mirroring how the QOI reference codecs in the
// retrieval pack (kropptrevor-go-qoi, rainrambler-QOIGO) represent pixels.
package rgb

// Cache is the 64-slot predicted-color table. It is owned by the caller
// (the encoder/decoder orchestrator), not by a single frame: it persists
// across P-frames and is only reset when a keyframe begins.
type Cache struct {
	slots [64][4]byte
}

// Reset clears every slot to opaque black's hash target — in practice the
// zero pixel {0,0,0,0}, matching the reference hash table's all-zero
// initialization at the start of every keyframe.
func (c *Cache) Reset() {
	for i := range c.slots {
		c.slots[i] = [4]byte{}
	}
}

// Index returns the cache slot for a pixel's hash.
func Index(r, g, b, a byte) int {
	return int(int(r)*3+int(g)*5+int(b)*7+int(a)*11) & 63
}

// Get returns the pixel currently stored at slot idx.
func (c *Cache) Get(idx int) [4]byte {
	return c.slots[idx]
}

// Put stores pixel at the slot its hash selects and returns that slot.
func (c *Cache) Put(pixel [4]byte) int {
	idx := Index(pixel[0], pixel[1], pixel[2], pixel[3])
	c.slots[idx] = pixel
	return idx
}
