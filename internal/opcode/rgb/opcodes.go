package rgb

// Opcode byte-range boundaries, per spec §4.4.
const (
	opSkipLong = 0x00 // P-frame only

	opIndexMax = 0x3F // INDEX occupies 0x00..0x3F on keyframes

	opDiffMin = 0x40
	opDiffMax = 0x7F

	opLumaMin = 0x80
	opLumaMax = 0xBF

	opRunMin = 0xC0
	opRunMax = 0xFD

	opRGB  = 0xFE
	opRGBA = 0xFF

	maxRunLength = 62
	runTag       = 0xC0

	diffBias = 2
	lumaGBias = 32
	lumaRBBias = 8
)

var black = [4]byte{0, 0, 0, 255}

func clampDelta2(d int) bool { return d >= -diffBias && d <= 1 }

func clampDelta6(d int) bool { return d >= -lumaGBias && d <= lumaGBias-1 }

func clampDelta4(d int) bool { return d >= -lumaRBBias && d <= lumaRBBias-1 }
