package yuv

// Subsampling selects how densely the chroma planes are sampled relative
// to luma, per spec §4.3.
type Subsampling int

const (
	// Subsampling420 halves both chroma dimensions.
	Subsampling420 Subsampling = iota
	// Subsampling422 halves only the horizontal chroma dimension.
	Subsampling422
	// Subsampling444 samples chroma at full resolution.
	Subsampling444
)

// ChromaDims returns the U/V plane dimensions for a w×h luma plane under
// the given subsampling.
func ChromaDims(w, h int, s Subsampling) (cw, ch int) {
	switch s {
	case Subsampling420:
		return (w + 1) / 2, (h + 1) / 2
	case Subsampling422:
		return (w + 1) / 2, h
	default: // Subsampling444
		return w, h
	}
}

// ToPlanes splits a packed RGBA buffer (4 bytes/pixel, row-major, w*h
// pixels) into Y/U/V planes at the given subsampling, plus an alpha plane
// when withAlpha is true. Chroma samples are the arithmetic mean of the
// source pixels' U/V values over the block that subsampling maps onto
// them, rounded to the nearest integer and clamped by Clip8.
func ToPlanes(rgba []byte, w, h int, s Subsampling, withAlpha bool) (y, u, v, a []byte) {
	y = make([]byte, w*h)
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			i := (py*w + px) * 4
			y[py*w+px] = RGBToY(rgba[i], rgba[i+1], rgba[i+2])
		}
	}

	cw, ch := ChromaDims(w, h, s)
	u = make([]byte, cw*ch)
	v = make([]byte, cw*ch)

	blockW, blockH := 1, 1
	switch s {
	case Subsampling420:
		blockW, blockH = 2, 2
	case Subsampling422:
		blockW, blockH = 2, 1
	}

	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			var sumU, sumV, n int
			for dy := 0; dy < blockH; dy++ {
				py := cy*blockH + dy
				if py >= h {
					continue
				}
				for dx := 0; dx < blockW; dx++ {
					px := cx*blockW + dx
					if px >= w {
						continue
					}
					i := (py*w + px) * 4
					sumU += int(RGBToU(rgba[i], rgba[i+1], rgba[i+2]))
					sumV += int(RGBToV(rgba[i], rgba[i+1], rgba[i+2]))
					n++
				}
			}
			u[cy*cw+cx] = Clip8(float64(sumU) / float64(n))
			v[cy*cw+cx] = Clip8(float64(sumV) / float64(n))
		}
	}

	if withAlpha {
		a = make([]byte, w*h)
		for py := 0; py < h; py++ {
			for px := 0; px < w; px++ {
				i := (py*w + px) * 4
				a[py*w+px] = rgba[i+3]
			}
		}
	}

	return y, u, v, a
}

// FromPlanes reassembles a packed RGBA buffer from Y/U/V (and optional A)
// planes. Chroma samples are nearest-neighbor upsampled: every luma pixel
// reads the chroma sample of the block it falls within, the inverse of
// the averaging ToPlanes performed.
func FromPlanes(y, u, v, a []byte, w, h int, s Subsampling) []byte {
	cw, _ := ChromaDims(w, h, s)
	blockW, blockH := 1, 1
	switch s {
	case Subsampling420:
		blockW, blockH = 2, 2
	case Subsampling422:
		blockW, blockH = 2, 1
	}

	rgba := make([]byte, w*h*4)
	for py := 0; py < h; py++ {
		cy := py / blockH
		for px := 0; px < w; px++ {
			cx := px / blockW
			yy := y[py*w+px]
			uu := u[cy*cw+cx]
			vv := v[cy*cw+cx]

			i := (py*w + px) * 4
			rgba[i] = YUVToR(yy, uu, vv)
			rgba[i+1] = YUVToG(yy, uu, vv)
			rgba[i+2] = YUVToB(yy, uu, vv)
			if a != nil {
				rgba[i+3] = a[py*w+px]
			} else {
				rgba[i+3] = 255
			}
		}
	}
	return rgba
}
