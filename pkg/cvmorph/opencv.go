//go:build opencv

// Package cvmorph implements the confidence map morphology on OpenCV through
// gocv. It is compiled only with the opencv build tag.
package cvmorph

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/Fepozopo/siox/pkg/morph"
)

// OpenCV smooths with a separable 3-tap filter and erodes or dilates with a
// 3x3 rectangular element. Unlike morph.Sweep every pass is centered, so
// results are symmetric but not identical to the sweep backend. Operations
// that fail inside OpenCV fall back to morph.Sweep.
type OpenCV struct {
	fallback morph.Sweep
}

// New returns the OpenCV backend.
func New() *OpenCV {
	return &OpenCV{}
}

func toMat(cm []float64, w, h int) gocv.Mat {
	m := gocv.NewMatWithSize(h, w, gocv.MatTypeCV64F)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetDoubleAt(y, x, cm[y*w+x])
		}
	}
	return m
}

func fromMat(m gocv.Mat, cm []float64, w, h int) bool {
	if m.Empty() || m.Rows() != h || m.Cols() != w || m.Type() != gocv.MatTypeCV64F {
		return false
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cm[y*w+x] = m.GetDoubleAt(y, x)
		}
	}
	return true
}

func valid(cm []float64, w, h int) bool {
	return w > 0 && h > 0 && len(cm) >= w*h
}

func (o *OpenCV) Smooth(cm []float64, w, h int, f1, f2, f3 float64) {
	if !valid(cm, w, h) {
		return
	}
	src := toMat(cm, w, h)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()

	kx := gocv.NewMatWithSize(1, 3, gocv.MatTypeCV64F)
	defer kx.Close()
	ky := gocv.NewMatWithSize(3, 1, gocv.MatTypeCV64F)
	defer ky.Close()
	for i, f := range []float64{f3, f2, f1} {
		kx.SetDoubleAt(0, i, f)
		ky.SetDoubleAt(i, 0, f)
	}

	gocv.SepFilter2D(src, &dst, gocv.MatTypeCV64F, kx, ky, image.Pt(-1, -1), 0, gocv.BorderReplicate)
	if !fromMat(dst, cm, w, h) {
		o.fallback.Smooth(cm, w, h, f1, f2, f3)
	}
}

// Normalize uses the sweep implementation; OpenCV's min/max reductions only
// report float32.
func (o *OpenCV) Normalize(cm []float64) {
	o.fallback.Normalize(cm)
}

func (o *OpenCV) Erode(cm []float64, w, h int) {
	if !valid(cm, w, h) {
		return
	}
	if !o.morphology(cm, w, h, false) {
		o.fallback.Erode(cm, w, h)
	}
}

func (o *OpenCV) Dilate(cm []float64, w, h int) {
	if !valid(cm, w, h) {
		return
	}
	if !o.morphology(cm, w, h, true) {
		o.fallback.Dilate(cm, w, h)
	}
}

func (o *OpenCV) morphology(cm []float64, w, h int, dilate bool) bool {
	src := toMat(cm, w, h)
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 3, Y: 3})
	defer kernel.Close()

	if dilate {
		gocv.Dilate(src, &dst, kernel)
	} else {
		gocv.Erode(src, &dst, kernel)
	}
	return fromMat(dst, cm, w, h)
}
