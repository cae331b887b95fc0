package siox

import (
	"testing"

	"github.com/Fepozopo/siox/pkg/morph"
)

var _ Morphology = morph.Sweep{}

var (
	red  = PackRGB(220, 30, 30)
	blue = PackRGB(20, 20, 220)
)

// squareScene builds a w*h blue image with a red square covering
// [inset, w-inset) on both axes. The outer two pixel rows and columns are
// marked CertainBackground, a 4x4 block in the middle CertainForeground and
// everything else Unknown.
func squareScene(w, h, inset int) ([]uint32, []float64) {
	pixels := make([]uint32, w*h)
	cm := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			pixels[i] = blue
			if x >= inset && x < w-inset && y >= inset && y < h-inset {
				pixels[i] = red
			}
			switch {
			case x < 2 || y < 2 || x >= w-2 || y >= h-2:
				cm[i] = CertainBackground
			case x >= w/2-2 && x < w/2+2 && y >= h/2-2 && y < h/2+2:
				cm[i] = CertainForeground
			default:
				cm[i] = Unknown
			}
		}
	}
	return pixels, cm
}

func newTestEngine(t testing.TB, w, h int) *Engine {
	t.Helper()
	e, err := New(w, h, DefaultConfig())
	if err != nil {
		t.Fatalf("New(%d, %d): %v", w, h, err)
	}
	return e
}
