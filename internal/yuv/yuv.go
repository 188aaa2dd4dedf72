// Package yuv implements the BT.601 RGB↔YUV conversion and 4:2:0/4:2:2/4:4:4
// chroma subsampling used by the YUV colorspace family (header byte
// 0x10..0x13). The per-channel conversion functions mirror the shape of
// the retrieval pack's WebP yuv package (separate RGBToY/RGBToU/RGBToV and
// YUVToR/YUVToG/YUVToB functions plus a shared Clip8 helper) but use the
// spec's full-range floating point BT.601 coefficients rather than WebP's
// studio-range fixed-point ones, since the two colorspaces are not
// interchangeable.
package yuv

import "math"

// Clip8 rounds v to the nearest integer and clamps it to [0, 255].
func Clip8(v float64) uint8 {
	r := math.Round(v)
	switch {
	case r < 0:
		return 0
	case r > 255:
		return 255
	default:
		return uint8(r)
	}
}

// RGBToY returns the luma sample for an RGB triple.
func RGBToY(r, g, b uint8) uint8 {
	return Clip8(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
}

// RGBToU returns the U (Cb) chroma sample for an RGB triple.
func RGBToU(r, g, b uint8) uint8 {
	return Clip8(-0.147*float64(r) - 0.289*float64(g) + 0.436*float64(b) + 128)
}

// RGBToV returns the V (Cr) chroma sample for an RGB triple.
func RGBToV(r, g, b uint8) uint8 {
	return Clip8(0.615*float64(r) - 0.515*float64(g) - 0.100*float64(b) + 128)
}

// YUVToR recovers the red channel from a Y/U/V triple.
func YUVToR(y, _, v uint8) uint8 {
	return Clip8(float64(y) + 1.140*(float64(v)-128))
}

// YUVToG recovers the green channel from a Y/U/V triple.
func YUVToG(y, u, v uint8) uint8 {
	return Clip8(float64(y) - 0.395*(float64(u)-128) - 0.581*(float64(v)-128))
}

// YUVToB recovers the blue channel from a Y/U/V triple.
func YUVToB(y, u, _ uint8) uint8 {
	return Clip8(float64(y) + 2.032*(float64(u)-128))
}
