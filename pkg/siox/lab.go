package siox

import (
	"github.com/lucasb-eyer/go-colorful"
)

// Lab is a CIELab triple (L in [0,100], a and b roughly in [-128,127]).
type Lab [3]float64

// LabConverter maps a packed 0xAARRGGBB pixel to Lab. Alpha is ignored.
type LabConverter func(pixel uint32) Lab

// DistanceFunc returns a squared distance between two Lab colors.
type DistanceFunc func(a, b Lab) float64

// Metric bundles the color space collaborators used for classification and
// region growing.
type Metric struct {
	ToLab    LabConverter
	Distance DistanceFunc
}

// DefaultMetric converts with go-colorful (sRGB, D65) and measures squared
// Euclidean distance.
var DefaultMetric = Metric{ToLab: ColorfulLab, Distance: SqrDist}

// ColorfulLab converts a packed pixel to CIELab using go-colorful. go-colorful
// scales Lab to [0,1] so the result is multiplied back to CIELab units, which
// the default clustering limits are expressed in.
func ColorfulLab(pixel uint32) Lab {
	c := colorful.Color{
		R: float64((pixel>>16)&0xff) / 255.0,
		G: float64((pixel>>8)&0xff) / 255.0,
		B: float64(pixel&0xff) / 255.0,
	}
	l, a, b := c.Lab()
	return Lab{l * 100, a * 100, b * 100}
}

// SqrDist is the squared Euclidean distance of two Lab triples.
func SqrDist(a, b Lab) float64 {
	dl := a[0] - b[0]
	da := a[1] - b[1]
	db := a[2] - b[2]
	return dl*dl + da*da + db*db
}

// PackRGB builds an opaque packed pixel.
func PackRGB(r, g, b uint8) uint32 {
	return 0xff<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

func (m Metric) withDefaults() Metric {
	if m.ToLab == nil {
		m.ToLab = ColorfulLab
	}
	if m.Distance == nil {
		m.Distance = SqrDist
	}
	return m
}

// labMemo caches conversions for one pass over an image; flat regions repeat
// the same packed value many times.
type labMemo struct {
	conv LabConverter
	m    map[uint32]Lab
}

func newLabMemo(conv LabConverter) *labMemo {
	return &labMemo{conv: conv, m: make(map[uint32]Lab)}
}

func (lm *labMemo) get(p uint32) Lab {
	if v, ok := lm.m[p]; ok {
		return v
	}
	v := lm.conv(p)
	lm.m[p] = v
	return v
}
