// Package siox implements Simple Interactive Object Extraction: given an
// image and a sparse confidence map (certain background, certain foreground,
// unknown) it computes a mask separating the foreground object from the
// background.
//
// A typical session:
//
//	eng, err := siox.New(w, h, siox.DefaultConfig())
//	ok, err := eng.Segmentate(pixels, cm, 2, 3)
//	err = eng.Refine(siox.Circle(x, y, 8), siox.AddEdge, 0.2, cm)
//
// The confidence matrix cm is modified in place. An Engine owns all of its
// scratch buffers and caches and must not be shared between goroutines.
package siox

// Confidence sentinels. Values at or below Background mark known background
// samples, values at or above Foreground mark known foreground samples,
// anything in between is unknown.
const (
	CertainBackground = 0.0
	Background        = 0.1
	Unknown           = 0.5
	Foreground        = 0.8
	CertainForeground = 1.0
)

// BrushMode selects how Refine modifies confidences.
type BrushMode string

const (
	// AddEdge only modifies pixels currently classified as background.
	AddEdge BrushMode = "add"
	// SubEdge only modifies pixels currently classified as foreground.
	SubEdge BrushMode = "subtract"
)

// NewConfidence returns a matrix of n entries all set to v.
func NewConfidence(n int, v float64) []float64 {
	cm := make([]float64, n)
	if v != 0 {
		for i := range cm {
			cm[i] = v
		}
	}
	return cm
}

// IsBinary reports whether every entry of cm is exactly CertainBackground or
// CertainForeground.
func IsBinary(cm []float64) bool {
	for _, v := range cm {
		if v != CertainBackground && v != CertainForeground {
			return false
		}
	}
	return true
}

// threshold maps every entry to CertainForeground if it is at least t and to
// CertainBackground otherwise.
func threshold(cm []float64, t float64) {
	for i, v := range cm {
		if v >= t {
			cm[i] = CertainForeground
		} else {
			cm[i] = CertainBackground
		}
	}
}
