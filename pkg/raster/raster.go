// Package raster converts between decoded images and the flat buffers the
// segmentation engine works on: packed ARGB pixels, confidence matrices and
// grayscale masks.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/Fepozopo/siox/pkg/siox"
)

// ToNRGBA converts any image.Image to *image.NRGBA anchored at the origin.
func ToNRGBA(src image.Image) *image.NRGBA {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if n, ok := src.(*image.NRGBA); ok && n.Stride == 4*b.Dx() {
		// return a copy to avoid modifying the original
		copy(out.Pix, n.Pix[n.PixOffset(b.Min.X, b.Min.Y):])
		return out
	}
	idx := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			out.Pix[idx+0] = c.R
			out.Pix[idx+1] = c.G
			out.Pix[idx+2] = c.B
			out.Pix[idx+3] = c.A
			idx += 4
		}
	}
	return out
}

// Pack returns the row-major 0xAARRGGBB pixels of img with its dimensions.
func Pack(img image.Image) (pixels []uint32, w, h int) {
	n := ToNRGBA(img)
	if n == nil {
		return nil, 0, 0
	}
	w, h = n.Rect.Dx(), n.Rect.Dy()
	pixels = make([]uint32, w*h)
	for i := range pixels {
		p := n.Pix[i*4 : i*4+4 : i*4+4]
		pixels[i] = uint32(p[3])<<24 | uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
	}
	return pixels, w, h
}

// TrimapConfidence maps a trimap gray level to a confidence: 0 is certain
// background, 255 certain foreground, near-black and near-white are
// background and foreground samples, everything else is unknown.
func TrimapConfidence(g uint8) float64 {
	switch {
	case g == 0:
		return siox.CertainBackground
	case g <= 25:
		return siox.Background
	case g == 255:
		return siox.CertainForeground
	case g >= 204:
		return siox.Foreground
	default:
		return siox.Unknown
	}
}

// ConfidenceFromTrimap builds a confidence matrix from the luminance of a
// trimap image.
func ConfidenceFromTrimap(trimap image.Image) ([]float64, int, int) {
	b := trimap.Bounds()
	w, h := b.Dx(), b.Dy()
	cm := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g := color.GrayModel.Convert(trimap.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			cm[y*w+x] = TrimapConfidence(g.Y)
		}
	}
	return cm, w, h
}

func clampUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}

// MaskFromConfidence renders cm as a grayscale mask, 0 -> black, 1 -> white.
func MaskFromConfidence(cm []float64, w, h int) (*image.Gray, error) {
	if w <= 0 || h <= 0 || len(cm) != w*h {
		return nil, fmt.Errorf("%w: %d confidences for %dx%d", siox.ErrSizeMismatch, len(cm), w, h)
	}
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range cm {
		mask.Pix[i] = clampUint8(v * 255)
	}
	return mask, nil
}

// Feather softens mask edges with a gaussian blur of the given sigma.
// sigma <= 0 returns the mask unchanged.
func Feather(mask *image.Gray, sigma float64) *image.Gray {
	if sigma <= 0 {
		return mask
	}
	blurred := imaging.Blur(mask, sigma)
	out := image.NewGray(mask.Rect)
	for i := range out.Pix {
		out.Pix[i] = blurred.Pix[i*4]
	}
	return out
}

// Cutout returns img with its alpha multiplied by mask.
func Cutout(img image.Image, mask *image.Gray) (*image.NRGBA, error) {
	out := ToNRGBA(img)
	if out == nil {
		return nil, fmt.Errorf("nil image")
	}
	if out.Rect.Dx() != mask.Rect.Dx() || out.Rect.Dy() != mask.Rect.Dy() {
		return nil, fmt.Errorf("%w: image %v, mask %v", siox.ErrSizeMismatch, out.Rect.Size(), mask.Rect.Size())
	}
	w := out.Rect.Dx()
	for i := range mask.Pix {
		x, y := i%w, i/w
		m := mask.Pix[mask.PixOffset(mask.Rect.Min.X+x, mask.Rect.Min.Y+y)]
		a := &out.Pix[i*4+3]
		*a = uint8((uint32(*a)*uint32(m) + 127) / 255)
	}
	return out, nil
}
