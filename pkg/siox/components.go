package siox

// fillDistance is the squared Lab distance below which FillColorRegions treats
// a neighbour as the same color as the seed.
const fillDistance = 1.0

// Component describes one connected region found by the last labeling pass.
type Component struct {
	Label  int
	Size   int
	Pinned bool
}

// Pruner performs connected component analysis on a confidence matrix. The
// label field and work stack are allocated once and reused by every call.
type Pruner struct {
	width, height int
	labels        []int
	stack         []int
	sizes         []int
	pinned        []bool
}

// NewPruner returns a pruner for w*h matrices.
func NewPruner(w, h int) *Pruner {
	return &Pruner{
		width:  w,
		height: h,
		labels: make([]int, w*h),
		stack:  make([]int, 0, 1024),
	}
}

// Labels exposes the label field of the last KeepOnlyLargeComponents or
// FillColorRegions call; -1 marks unlabeled pixels. The slice is overwritten by
// the next call.
func (p *Pruner) Labels() []int {
	return p.labels
}

// Components reports the components found by the last KeepOnlyLargeComponents
// call. FillColorRegions does not reset it.
func (p *Pruner) Components() []Component {
	out := make([]Component, len(p.sizes))
	for l, s := range p.sizes {
		out[l] = Component{Label: l, Size: s, Pinned: l < len(p.pinned) && p.pinned[l]}
	}
	return out
}

func (p *Pruner) resetLabels() {
	for i := range p.labels {
		p.labels[i] = -1
	}
}

// flood labels the 4-connected region around seed whose pixels satisfy
// accept, and returns its size. seed must already be accepted.
func (p *Pruner) flood(seed, label int, accept func(i int) bool, visit func(i int)) int {
	w := p.width
	p.labels[seed] = label
	if visit != nil {
		visit(seed)
	}
	size := 1
	p.stack = append(p.stack[:0], seed)
	for len(p.stack) > 0 {
		pos := p.stack[len(p.stack)-1]
		p.stack = p.stack[:len(p.stack)-1]
		x := pos % w
		y := pos / w
		var nb [4]int
		n := 0
		if x > 0 {
			nb[n] = pos - 1
			n++
		}
		if x+1 < w {
			nb[n] = pos + 1
			n++
		}
		if y > 0 {
			nb[n] = pos - w
			n++
		}
		if y+1 < p.height {
			nb[n] = pos + w
			n++
		}
		for _, q := range nb[:n] {
			if p.labels[q] != -1 || !accept(q) {
				continue
			}
			p.labels[q] = label
			if visit != nil {
				visit(q)
			}
			size++
			p.stack = append(p.stack, q)
		}
	}
	return size
}

// label assigns component labels to every pixel at or above threshold and
// returns the label of the largest component, or -1 if there is none.
func (p *Pruner) label(cm []float64, threshold float64) int {
	p.resetLabels()
	p.sizes = p.sizes[:0]
	p.pinned = p.pinned[:0]
	accept := func(i int) bool { return cm[i] >= threshold }
	largest, maxSize := -1, 0
	for i := range cm {
		if p.labels[i] != -1 || !accept(i) {
			continue
		}
		l := len(p.sizes)
		size := p.flood(i, l, accept, nil)
		p.sizes = append(p.sizes, size)
		if size > maxSize {
			maxSize = size
			largest = l
		}
	}
	return largest
}

// KeepOnlyLargeComponents removes small foreground components from cm.
//
// Components are the 4-connected regions of entries at or above threshold.
// Without pinned pixels, every component with size*sizeFactor below the
// largest size is set to CertainBackground and the largest component to
// CertainForeground. With pinned pixels and sizeFactor == 0 only components
// holding a pinned pixel survive, regardless of size. With sizeFactor > 0 a
// component is removed only if it is undersized and holds no pinned pixel, and
// the largest is promoted. cm must hold one entry per pixel; other lengths are
// ignored.
func (p *Pruner) KeepOnlyLargeComponents(cm []float64, threshold, sizeFactor float64, pinned []int) {
	if len(cm) != len(p.labels) {
		return
	}
	largest := p.label(cm, threshold)
	if largest < 0 {
		return
	}
	maxSize := float64(p.sizes[largest])

	p.pinned = append(p.pinned, make([]bool, len(p.sizes))...)
	for _, i := range pinned {
		if i >= 0 && i < len(p.labels) && p.labels[i] != -1 {
			p.pinned[p.labels[i]] = true
		}
	}

	switch {
	case len(pinned) == 0:
		for i, l := range p.labels {
			if l == -1 {
				continue
			}
			if float64(p.sizes[l])*sizeFactor < maxSize {
				cm[i] = CertainBackground
			}
			if l == largest {
				cm[i] = CertainForeground
			}
		}
	case sizeFactor == 0:
		for i, l := range p.labels {
			if l == -1 {
				continue
			}
			if p.pinned[l] {
				cm[i] = CertainForeground
			} else {
				cm[i] = CertainBackground
			}
		}
	default:
		for i, l := range p.labels {
			if l == -1 {
				continue
			}
			if l == largest {
				cm[i] = CertainForeground
			} else if float64(p.sizes[l])*sizeFactor < maxSize && !p.pinned[l] {
				cm[i] = CertainBackground
			}
		}
	}
}

// FillColorRegions grows foreground into neighbouring pixels of nearly
// identical color. Every unlabeled pixel at or above Unknown seeds a 4-connected
// fill over pixels within fillDistance of the seed color; all filled pixels
// become CertainForeground. Foreground is never removed. cm and pixels must
// hold one entry per pixel; other lengths are ignored.
func (p *Pruner) FillColorRegions(cm []float64, pixels []uint32, metric Metric) {
	if len(cm) != len(p.labels) || len(pixels) != len(p.labels) {
		return
	}
	metric = metric.withDefaults()
	memo := newLabMemo(metric.ToLab)
	p.resetLabels()
	mark := func(i int) { cm[i] = CertainForeground }
	for i := range cm {
		if p.labels[i] != -1 || cm[i] < Unknown {
			continue
		}
		seed := memo.get(pixels[i])
		accept := func(q int) bool {
			return metric.Distance(memo.get(pixels[q]), seed) < fillDistance
		}
		p.flood(i, i+1, accept, mark)
	}
}
