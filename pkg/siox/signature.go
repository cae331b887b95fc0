package siox

import (
	"gonum.org/v1/gonum/floats"
)

// DefaultLimits is the cluster extent on the L, a and b axes.
var DefaultLimits = [3]float64{0.64, 1.28, 2.56}

// DefaultAbstractionThreshold is the minimum share, in percent, of all samples
// a stage-two cluster must represent to stay in the signature.
const DefaultAbstractionThreshold = 0.1

// Centroid is a representative color and the number of samples it stands for.
type Centroid struct {
	Lab    Lab `json:"lab"`
	Weight int `json:"weight"`
}

// Signature is a compact weighted color summary of a pixel population.
type Signature []Centroid

// Weight returns the number of samples represented by s.
func (s Signature) Weight() int {
	n := 0
	for _, c := range s {
		n += c.Weight
	}
	return n
}

// BuildSignature clusters samples into a signature.
//
// Stage one bisects the samples along L, a, b in turn until every cell is
// narrower than limits on its split axis; every cell becomes a centroid. Stage
// two runs the same bisection over those centroids to merge clusters split by
// artificial cell boundaries, and drops clusters holding less than
// thresholdPercent of all samples.
func BuildSignature(samples []Lab, limits [3]float64, thresholdPercent float64) Signature {
	sig := Signature{}
	if len(samples) == 0 {
		return sig
	}
	pts := make([]Centroid, len(samples))
	for i, s := range samples {
		pts[i] = Centroid{Lab: s, Weight: 1}
	}

	var stage1 []Centroid
	bisect(pts, limits, func(cell []Centroid) {
		stage1 = append(stage1, Centroid{Lab: meanLab(cell), Weight: len(cell)})
	})

	total := float64(len(samples))
	bisect(stage1, limits, func(cell []Centroid) {
		w := 0
		for _, c := range cell {
			w += c.Weight
		}
		if float64(w)/total*100 >= thresholdPercent {
			sig = append(sig, Centroid{Lab: meanLab(cell), Weight: w})
		}
	})
	return sig
}

func meanLab(cell []Centroid) Lab {
	var sum [3]float64
	for _, c := range cell {
		floats.Add(sum[:], c.Lab[:])
	}
	floats.Scale(1/float64(len(cell)), sum[:])
	return Lab(sum)
}

type span struct {
	lo, hi, depth int
}

// bisect partitions pts in place and calls leaf for every final cell, left
// cells before right cells. Each split is stable: points keep their relative
// order within a side.
func bisect(pts []Centroid, limits [3]float64, leaf func([]Centroid)) {
	if len(pts) == 0 {
		return
	}
	scratch := make([]Centroid, len(pts))
	stack := []span{{0, len(pts), 0}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cell := pts[s.lo:s.hi]
		dim := s.depth % 3

		lo, hi := cell[0].Lab[dim], cell[0].Lab[dim]
		for _, p := range cell[1:] {
			v := p.Lab[dim]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if !(hi-lo > limits[dim]) {
			leaf(cell)
			continue
		}

		pivot := lo + (hi-lo)/2
		n := 0
		for _, p := range cell {
			if p.Lab[dim] <= pivot {
				scratch[n] = p
				n++
			}
		}
		if n == 0 || n == len(cell) {
			// degenerate limits (zero or negative) can't be split further
			leaf(cell)
			continue
		}
		m := n
		for _, p := range cell {
			if p.Lab[dim] > pivot {
				scratch[m] = p
				m++
			}
		}
		copy(cell, scratch[:len(cell)])
		mid := s.lo + n
		stack = append(stack, span{mid, s.hi, s.depth + 1}, span{s.lo, mid, s.depth + 1})
	}
}
