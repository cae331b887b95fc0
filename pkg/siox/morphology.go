package siox

// Morphology is the set of grayscale operations the engine applies to the
// confidence matrix between pruning passes. Implementations work in place on
// a row-major w*h matrix and never change its length.
type Morphology interface {
	// Smooth blurs with the 3-tap kernel (f1, f2, f3).
	Smooth(cm []float64, w, h int, f1, f2, f3 float64)
	// Normalize rescales cm into [0,1].
	Normalize(cm []float64)
	Erode(cm []float64, w, h int)
	Dilate(cm []float64, w, h int)
}

// smoothWeight is the tap weight of the averaging kernel used by the engine.
const smoothWeight = 0.33
