package siox

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"

	"github.com/Fepozopo/siox/pkg/morph"
)

// Config holds engine parameters. The zero value of any field selects its
// default.
type Config struct {
	// Limits is the cluster extent on the L, a and b axes.
	Limits [3]float64
	// AbstractionThreshold is the minimum percentage of samples a signature
	// cluster must hold.
	AbstractionThreshold float64
	// Morphology post-processes the confidence matrix.
	Morphology Morphology
	// Metric converts and compares colors. ToLab must be safe for concurrent
	// use.
	Metric Metric
	// Workers bounds classification parallelism; <= 0 means runtime.NumCPU().
	Workers int
	// PrunePrecomputed enables both component pruning passes in
	// ApplyPrecomputedSignatures, which skips them by default.
	PrunePrecomputed bool
	Logger           *zerolog.Logger
}

// DefaultConfig returns the standard SIOX parameters.
func DefaultConfig() Config {
	return Config{
		Limits:               DefaultLimits,
		AbstractionThreshold: DefaultAbstractionThreshold,
		Morphology:           morph.Sweep{},
		Metric:               DefaultMetric,
	}
}

// Engine is one segmentation session for images of a fixed size. It starts
// Fresh and becomes Segmented after the first successful Segmentate,
// ApplyPrecomputedSignatures or SegmentateVideoFirstFrame. An Engine is not
// safe for concurrent use.
type Engine struct {
	width, height int
	cfg           Config
	log           zerolog.Logger

	pruner    *Pruner
	cache     *Cache
	bg, fg    Signature
	snapshot  []uint32
	segmented bool
}

// New returns a Fresh engine for w*h images.
func New(w, h int, cfg Config) (*Engine, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, w, h)
	}
	if cfg.Limits == ([3]float64{}) {
		cfg.Limits = DefaultLimits
	}
	if cfg.AbstractionThreshold == 0 {
		cfg.AbstractionThreshold = DefaultAbstractionThreshold
	}
	if cfg.Morphology == nil {
		cfg.Morphology = morph.Sweep{}
	}
	cfg.Metric = cfg.Metric.withDefaults()
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "siox").Logger()
	}
	return &Engine{
		width:  w,
		height: h,
		cfg:    cfg,
		log:    log,
		pruner: NewPruner(w, h),
		cache:  NewCache(),
	}, nil
}

// NewWithSignatures returns an engine preloaded with signatures, ready for
// ApplyPrecomputedSignatures.
func NewWithSignatures(w, h int, cfg Config, bg, fg Signature) (*Engine, error) {
	e, err := New(w, h, cfg)
	if err != nil {
		return nil, err
	}
	e.SetSignatures(bg, fg)
	return e, nil
}

func (e *Engine) Width() int  { return e.width }
func (e *Engine) Height() int { return e.height }

// Segmented reports whether the engine holds a usable segmentation.
func (e *Engine) Segmented() bool { return e.segmented }

// Signatures returns the current background and foreground signatures.
func (e *Engine) Signatures() (bg, fg Signature) {
	return e.bg, e.fg
}

// SetSignatures replaces both signatures and invalidates cached
// classifications.
func (e *Engine) SetSignatures(bg, fg Signature) {
	e.bg = append(Signature{}, bg...)
	e.fg = append(Signature{}, fg...)
	e.cache.Reset()
}

// CacheSize is the number of distinct colors classified so far.
func (e *Engine) CacheSize() int { return e.cache.Len() }

// Reset returns the engine to the Fresh state.
func (e *Engine) Reset() {
	e.bg, e.fg = nil, nil
	e.cache.Reset()
	e.snapshot = e.snapshot[:0]
	e.segmented = false
}

func (e *Engine) check(pixels []uint32, cm []float64) error {
	n := e.width * e.height
	if len(pixels) != n || len(cm) != n {
		return fmt.Errorf("%w: %d pixels, %d confidences, want %d", ErrSizeMismatch, len(pixels), len(cm), n)
	}
	return nil
}

// collectSamples converts known background and foreground pixels to Lab and
// returns the indices of foreground pixels pinned at exactly
// CertainForeground.
func collectSamples(pixels []uint32, cm []float64, conv LabConverter) (bg, fg []Lab, pinned []int) {
	memo := newLabMemo(conv)
	for i, v := range cm {
		switch {
		case v <= Background:
			bg = append(bg, memo.get(pixels[i]))
		case v >= Foreground:
			fg = append(fg, memo.get(pixels[i]))
			if v == CertainForeground {
				pinned = append(pinned, i)
			}
		}
	}
	return bg, fg, pinned
}

func (e *Engine) samples(pixels []uint32, cm []float64) (bg, fg []Lab, pinned []int) {
	return collectSamples(pixels, cm, e.cfg.Metric.ToLab)
}

// BuildSignatures builds both signatures from the known pixels of cm without
// segmenting, for storage and later use with ApplyPrecomputedSignatures.
func BuildSignatures(pixels []uint32, cm []float64, cfg Config) (bg, fg Signature) {
	if len(pixels) != len(cm) {
		return Signature{}, Signature{}
	}
	if cfg.Limits == ([3]float64{}) {
		cfg.Limits = DefaultLimits
	}
	if cfg.AbstractionThreshold == 0 {
		cfg.AbstractionThreshold = DefaultAbstractionThreshold
	}
	bgSamples, fgSamples, _ := collectSamples(pixels, cm, cfg.Metric.withDefaults().ToLab)
	return BuildSignature(bgSamples, cfg.Limits, cfg.AbstractionThreshold),
		BuildSignature(fgSamples, cfg.Limits, cfg.AbstractionThreshold)
}

func (e *Engine) buildSignatures(bgSamples, fgSamples []Lab) {
	e.bg = BuildSignature(bgSamples, e.cfg.Limits, e.cfg.AbstractionThreshold)
	e.fg = BuildSignature(fgSamples, e.cfg.Limits, e.cfg.AbstractionThreshold)
	e.cache.Reset()
	e.log.Debug().
		Int("bg_samples", len(bgSamples)).
		Int("fg_samples", len(fgSamples)).
		Int("bg_clusters", len(e.bg)).
		Int("fg_clusters", len(e.fg)).
		Msg("signatures built")
}

func (e *Engine) classify(pixels []uint32, cm []float64) error {
	if err := Classify(pixels, cm, e.bg, e.fg, e.cache, e.cfg.Metric, e.cfg.Workers); err != nil {
		return fmt.Errorf("classify: %w", err)
	}
	e.log.Debug().Int("cache", e.cache.Len()).Msg("pixels classified")
	return nil
}

func (e *Engine) smooth(cm []float64) {
	e.cfg.Morphology.Smooth(cm, e.width, e.height, smoothWeight, smoothWeight, smoothWeight)
}

func (e *Engine) prune(cm []float64, sizeFactor float64, pinned []int) {
	e.pruner.KeepOnlyLargeComponents(cm, Unknown, sizeFactor, pinned)
	comps := e.pruner.Components()
	kept := 0
	for _, c := range comps {
		if c.Pinned {
			kept++
		}
	}
	e.log.Debug().Int("components", len(comps)).Int("pinned", kept).Msg("components pruned")
}

// postprocess runs the full still-image pipeline after classification.
func (e *Engine) postprocess(pixels []uint32, cm []float64, smoothness int, sizeFactor float64, pinned []int, prune bool) {
	m := e.cfg.Morphology
	e.smooth(cm)
	m.Normalize(cm)
	m.Erode(cm, e.width, e.height)
	if prune {
		e.prune(cm, sizeFactor, pinned)
	}
	for i := 0; i < smoothness; i++ {
		e.smooth(cm)
	}
	m.Normalize(cm)
	threshold(cm, Unknown)
	if prune {
		e.prune(cm, sizeFactor, pinned)
	}
	e.pruner.FillColorRegions(cm, pixels, e.cfg.Metric)
	m.Dilate(cm, e.width, e.height)
}

// Segmentate segments pixels using the hints in cm and stores the result in
// cm, every entry becoming CertainBackground or CertainForeground.
//
// Entries at or below Background are background samples, entries at or above
// Foreground are foreground samples, entries of exactly CertainForeground are
// additionally pinned and survive size-based pruning. smoothness is the number
// of extra smoothing passes; components smaller than largest/sizeFactor are
// dropped.
//
// It returns false and ErrInsufficientBackground if no background signature
// could be built.
func (e *Engine) Segmentate(pixels []uint32, cm []float64, smoothness int, sizeFactor float64) (bool, error) {
	if err := e.check(pixels, cm); err != nil {
		return false, err
	}
	e.segmented = false
	e.snapshot = append(e.snapshot[:0], pixels...)

	bgSamples, fgSamples, pinned := e.samples(pixels, cm)
	e.buildSignatures(bgSamples, fgSamples)
	if len(e.bg) == 0 {
		return false, ErrInsufficientBackground
	}
	if err := e.classify(pixels, cm); err != nil {
		return false, err
	}
	e.postprocess(pixels, cm, smoothness, sizeFactor, pinned, true)
	e.segmented = true
	e.log.Debug().Int("smoothness", smoothness).Float64("size_factor", sizeFactor).Msg("segmentation done")
	return true, nil
}

// ApplyPrecomputedSignatures segments like Segmentate but with the signatures
// already held by the engine. Component pruning is skipped unless
// Config.PrunePrecomputed is set.
func (e *Engine) ApplyPrecomputedSignatures(pixels []uint32, cm []float64, smoothness int, sizeFactor float64) (bool, error) {
	if err := e.check(pixels, cm); err != nil {
		return false, err
	}
	e.segmented = false
	e.cache.Reset()
	e.snapshot = append(e.snapshot[:0], pixels...)
	if len(e.bg) == 0 {
		return false, ErrInsufficientBackground
	}

	var pinned []int
	if e.cfg.PrunePrecomputed {
		_, _, pinned = e.samples(pixels, cm)
	}
	if err := e.classify(pixels, cm); err != nil {
		return false, err
	}
	e.postprocess(pixels, cm, smoothness, sizeFactor, pinned, e.cfg.PrunePrecomputed)
	e.segmented = true
	return true, nil
}

// SegmentateVideoFirstFrame rebuilds the signatures from cm and applies the
// reduced video pipeline: classification, one smoothing pass, normalization
// and pruning.
func (e *Engine) SegmentateVideoFirstFrame(pixels []uint32, cm []float64, sizeFactor float64) (bool, error) {
	if err := e.check(pixels, cm); err != nil {
		return false, err
	}
	e.segmented = false
	e.snapshot = append(e.snapshot[:0], pixels...)

	bgSamples, fgSamples, _ := e.samples(pixels, cm)
	e.buildSignatures(bgSamples, fgSamples)
	if len(e.bg) == 0 {
		return false, ErrInsufficientBackground
	}
	if err := e.videoFrame(pixels, cm, sizeFactor); err != nil {
		return false, err
	}
	e.segmented = true
	return true, nil
}

// SegmentateVideoNextFrame segments a following frame with the signatures and
// cache of the previous one. cm needs no known pixels.
func (e *Engine) SegmentateVideoNextFrame(pixels []uint32, cm []float64, sizeFactor float64) (bool, error) {
	if !e.segmented {
		return false, ErrNotSegmented
	}
	if err := e.check(pixels, cm); err != nil {
		return false, err
	}
	e.snapshot = append(e.snapshot[:0], pixels...)
	if err := e.videoFrame(pixels, cm, sizeFactor); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) videoFrame(pixels []uint32, cm []float64, sizeFactor float64) error {
	if err := e.classify(pixels, cm); err != nil {
		return err
	}
	e.smooth(cm)
	e.cfg.Morphology.Normalize(cm)
	e.prune(cm, sizeFactor, nil)
	return nil
}

// Refine applies the detail refinement brush to area of a segmented cm.
func (e *Engine) Refine(area Area, mode BrushMode, threshold float64, cm []float64) error {
	if !e.segmented {
		return ErrNotSegmented
	}
	return NewBrush(e.width, e.height, e.snapshot, e.cache).Apply(area, mode, threshold, cm)
}

// RefineSquare refines the square of half-diameter half around (x,y).
func (e *Engine) RefineSquare(x, y, half int, mode BrushMode, threshold float64, cm []float64) error {
	return e.Refine(Square(x, y, half), mode, threshold, cm)
}
