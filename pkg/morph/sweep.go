// Package morph provides in-place grayscale operations on row-major
// float64 matrices, used to post-process SIOX confidence maps.
package morph

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Sweep implements smoothing, erosion and dilation as forward and backward
// sweeps along every row and then every column. Each sweep reads values it
// has already written, so the effective kernel grows in the sweep direction.
// Sweep carries no state and is safe for concurrent use on distinct
// matrices.
type Sweep struct{}

// Smooth blurs cm with the 3-tap kernel (f1, f2, f3): a forward sweep
// combines each cell with the next two, a backward sweep with the previous
// two.
func (Sweep) Smooth(cm []float64, w, h int, f1, f2, f3 float64) {
	if w <= 0 || h <= 0 || len(cm) < w*h {
		return
	}
	for y := 0; y < h; y++ {
		row := cm[y*w : (y+1)*w]
		for x := 0; x < w-2; x++ {
			row[x] = f1*row[x] + f2*row[x+1] + f3*row[x+2]
		}
		for x := w - 1; x >= 2; x-- {
			row[x] = f3*row[x-2] + f2*row[x-1] + f1*row[x]
		}
	}
	for x := 0; x < w; x++ {
		for y := 0; y < h-2; y++ {
			i := y*w + x
			cm[i] = f1*cm[i] + f2*cm[i+w] + f3*cm[i+2*w]
		}
		for y := h - 1; y >= 2; y-- {
			i := y*w + x
			cm[i] = f3*cm[i-2*w] + f2*cm[i-w] + f1*cm[i]
		}
	}
}

// Normalize divides cm by its maximum. Matrices whose maximum is not
// positive, or already 1, are left alone.
func (Sweep) Normalize(cm []float64) {
	if len(cm) == 0 {
		return
	}
	m := floats.Max(cm)
	if m <= 0 || m == 1 {
		return
	}
	floats.Scale(1/m, cm)
}

// Erode replaces every cell by the minimum of itself and its neighbour in
// sweep direction.
func (Sweep) Erode(cm []float64, w, h int) {
	sweepPairs(cm, w, h, math.Min)
}

// Dilate replaces every cell by the maximum of itself and its neighbour in
// sweep direction.
func (Sweep) Dilate(cm []float64, w, h int) {
	sweepPairs(cm, w, h, math.Max)
}

func sweepPairs(cm []float64, w, h int, op func(a, b float64) float64) {
	if w <= 0 || h <= 0 || len(cm) < w*h {
		return
	}
	for y := 0; y < h; y++ {
		row := cm[y*w : (y+1)*w]
		for x := 0; x < w-1; x++ {
			row[x] = op(row[x], row[x+1])
		}
		for x := w - 1; x >= 1; x-- {
			row[x] = op(row[x-1], row[x])
		}
	}
	for x := 0; x < w; x++ {
		for y := 0; y < h-1; y++ {
			i := y*w + x
			cm[i] = op(cm[i], cm[i+w])
		}
		for y := h - 1; y >= 1; y-- {
			i := y*w + x
			cm[i] = op(cm[i-w], cm[i])
		}
	}
}
