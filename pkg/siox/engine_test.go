package siox

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Fepozopo/siox/pkg/morph"
)

// countingMorphology records how often the engine calls each operation.
type countingMorphology struct {
	morph.Sweep
	smooth, normalize, erode, dilate int
}

func (c *countingMorphology) Smooth(cm []float64, w, h int, f1, f2, f3 float64) {
	c.smooth++
	c.Sweep.Smooth(cm, w, h, f1, f2, f3)
}

func (c *countingMorphology) Normalize(cm []float64) {
	c.normalize++
	c.Sweep.Normalize(cm)
}

func (c *countingMorphology) Erode(cm []float64, w, h int) {
	c.erode++
	c.Sweep.Erode(cm, w, h)
}

func (c *countingMorphology) Dilate(cm []float64, w, h int) {
	c.dilate++
	c.Sweep.Dilate(cm, w, h)
}

func checkSquare(t *testing.T, cm []float64, pixels []uint32, w, h int) {
	t.Helper()
	if !IsBinary(cm) {
		t.Fatalf("confidence matrix is not binary")
	}
	for i, p := range pixels {
		if p == red && cm[i] != CertainForeground {
			t.Fatalf("object pixel (%d,%d) classified background", i%w, i/w)
		}
	}
	for _, i := range []int{0, w - 1, (h - 1) * w, w*h - 1, 2*w + 2} {
		if cm[i] != CertainBackground {
			t.Fatalf("background pixel (%d,%d) classified foreground", i%w, i/w)
		}
	}
}

func TestNewInvalidDimensions(t *testing.T) {
	for _, d := range [][2]int{{0, 4}, {4, 0}, {-1, 3}} {
		if _, err := New(d[0], d[1], DefaultConfig()); !errors.Is(err, ErrInvalidDimensions) {
			t.Fatalf("New(%d,%d) error = %v", d[0], d[1], err)
		}
	}
}

func TestNewFillsDefaults(t *testing.T) {
	e, err := New(3, 2, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.cfg.Limits != DefaultLimits || e.cfg.AbstractionThreshold != DefaultAbstractionThreshold {
		t.Fatalf("defaults not applied: %+v", e.cfg)
	}
	if e.cfg.Morphology == nil || e.cfg.Workers <= 0 || e.cfg.Metric.ToLab == nil {
		t.Fatalf("collaborators not defaulted")
	}
	if e.Width() != 3 || e.Height() != 2 || e.Segmented() {
		t.Fatalf("unexpected fresh engine state")
	}
}

func TestSegmentateSquare(t *testing.T) {
	w, h := 20, 20
	pixels, cm := squareScene(w, h, 5)
	e := newTestEngine(t, w, h)
	ok, err := e.Segmentate(pixels, cm, 2, 3)
	if !ok || err != nil {
		t.Fatalf("Segmentate = %v, %v", ok, err)
	}
	if !e.Segmented() {
		t.Fatalf("engine not segmented")
	}
	checkSquare(t, cm, pixels, w, h)

	bg, fg := e.Signatures()
	if len(bg) != 1 || len(fg) != 1 {
		t.Fatalf("uniform samples gave %d/%d centroids", len(bg), len(fg))
	}
	if e.CacheSize() != 2 {
		t.Fatalf("cache holds %d colors, want 2", e.CacheSize())
	}
}

func TestSegmentatePipelineOrder(t *testing.T) {
	w, h := 20, 20
	pixels, cm := squareScene(w, h, 5)
	m := &countingMorphology{}
	cfg := DefaultConfig()
	cfg.Morphology = m
	e, err := New(w, h, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.Segmentate(pixels, cm, 4, 3); err != nil {
		t.Fatalf("Segmentate: %v", err)
	}
	if m.smooth != 5 || m.normalize != 2 || m.erode != 1 || m.dilate != 1 {
		t.Fatalf("calls: smooth=%d normalize=%d erode=%d dilate=%d", m.smooth, m.normalize, m.erode, m.dilate)
	}

	*m = countingMorphology{}
	_, cm = squareScene(w, h, 5)
	if _, err := e.SegmentateVideoFirstFrame(pixels, cm, 3); err != nil {
		t.Fatalf("SegmentateVideoFirstFrame: %v", err)
	}
	if m.smooth != 1 || m.normalize != 1 || m.erode != 0 || m.dilate != 0 {
		t.Fatalf("video calls: smooth=%d normalize=%d erode=%d dilate=%d", m.smooth, m.normalize, m.erode, m.dilate)
	}
}

func TestSegmentateErrors(t *testing.T) {
	w, h := 6, 6
	e := newTestEngine(t, w, h)
	pixels := make([]uint32, w*h)

	if _, err := e.Segmentate(pixels[:5], NewConfidence(w*h, Unknown), 1, 3); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("expected ErrSizeMismatch, got %v", err)
	}

	cm := NewConfidence(w*h, Unknown)
	cm[0] = CertainForeground
	ok, err := e.Segmentate(pixels, cm, 1, 3)
	if ok || !errors.Is(err, ErrInsufficientBackground) {
		t.Fatalf("Segmentate = %v, %v; want ErrInsufficientBackground", ok, err)
	}
	if e.Segmented() {
		t.Fatalf("failed segmentation marked engine segmented")
	}

	cm = NewConfidence(w*h, Unknown)
	cm[0] = CertainBackground
	ok, err = e.Segmentate(pixels, cm, 1, 3)
	if ok || !errors.Is(err, ErrMissingForegroundSignature) {
		t.Fatalf("Segmentate = %v, %v; want ErrMissingForegroundSignature", ok, err)
	}
	if cm[1] != Unknown {
		t.Fatalf("cm modified on error")
	}
}

func TestOperationsRequireSegmentation(t *testing.T) {
	w, h := 4, 4
	e := newTestEngine(t, w, h)
	cm := NewConfidence(w*h, Unknown)
	if _, err := e.SegmentateVideoNextFrame(make([]uint32, w*h), cm, 3); !errors.Is(err, ErrNotSegmented) {
		t.Fatalf("SegmentateVideoNextFrame error = %v", err)
	}
	if err := e.RefineSquare(1, 1, 1, AddEdge, 0.1, cm); !errors.Is(err, ErrNotSegmented) {
		t.Fatalf("RefineSquare error = %v", err)
	}
}

func TestApplyPrecomputedSignatures(t *testing.T) {
	w, h := 20, 20
	pixels, cm := squareScene(w, h, 5)
	first := newTestEngine(t, w, h)
	if _, err := first.Segmentate(pixels, cm, 2, 3); err != nil {
		t.Fatalf("Segmentate: %v", err)
	}
	bg, fg := first.Signatures()

	for _, prune := range []bool{false, true} {
		cfg := DefaultConfig()
		cfg.PrunePrecomputed = prune
		e, err := NewWithSignatures(w, h, cfg, bg, fg)
		if err != nil {
			t.Fatalf("NewWithSignatures: %v", err)
		}
		cm := NewConfidence(w*h, Unknown)
		ok, err := e.ApplyPrecomputedSignatures(pixels, cm, 2, 3)
		if !ok || err != nil {
			t.Fatalf("prune=%v: ApplyPrecomputedSignatures = %v, %v", prune, ok, err)
		}
		checkSquare(t, cm, pixels, w, h)
		if !e.Segmented() {
			t.Fatalf("engine not segmented")
		}
	}

	e := newTestEngine(t, w, h)
	if _, err := e.ApplyPrecomputedSignatures(pixels, NewConfidence(w*h, Unknown), 2, 3); !errors.Is(err, ErrInsufficientBackground) {
		t.Fatalf("expected ErrInsufficientBackground without signatures, got %v", err)
	}
}

func TestVideoFrames(t *testing.T) {
	w, h := 20, 20
	pixels, cm := squareScene(w, h, 5)
	e := newTestEngine(t, w, h)
	ok, err := e.SegmentateVideoFirstFrame(pixels, cm, 3)
	if !ok || err != nil {
		t.Fatalf("SegmentateVideoFirstFrame = %v, %v", ok, err)
	}
	center := (h/2)*w + w/2
	if cm[center] != CertainForeground || cm[0] != CertainBackground {
		t.Fatalf("first frame: center %v corner %v", cm[center], cm[0])
	}
	cached := e.CacheSize()

	next := NewConfidence(w*h, Unknown)
	ok, err = e.SegmentateVideoNextFrame(pixels, next, 3)
	if !ok || err != nil {
		t.Fatalf("SegmentateVideoNextFrame = %v, %v", ok, err)
	}
	if next[center] != CertainForeground || next[0] != CertainBackground {
		t.Fatalf("next frame: center %v corner %v", next[center], next[0])
	}
	if e.CacheSize() != cached {
		t.Fatalf("cache grew from %d to %d on identical frame", cached, e.CacheSize())
	}
}

func TestResetAndSetSignatures(t *testing.T) {
	w, h := 20, 20
	pixels, cm := squareScene(w, h, 5)
	e := newTestEngine(t, w, h)
	if _, err := e.Segmentate(pixels, cm, 1, 3); err != nil {
		t.Fatalf("Segmentate: %v", err)
	}
	bg, fg := e.Signatures()
	e.SetSignatures(bg, fg)
	if e.CacheSize() != 0 {
		t.Fatalf("SetSignatures kept %d cached colors", e.CacheSize())
	}
	e.Reset()
	if e.Segmented() || e.CacheSize() != 0 {
		t.Fatalf("Reset left state behind")
	}
	if b, f := e.Signatures(); len(b) != 0 || len(f) != 0 {
		t.Fatalf("Reset kept signatures")
	}
}

func TestEngineLogsStages(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	cfg := DefaultConfig()
	cfg.Logger = &log
	w, h := 20, 20
	pixels, cm := squareScene(w, h, 5)
	e, err := New(w, h, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := e.Segmentate(pixels, cm, 1, 3); err != nil {
		t.Fatalf("Segmentate: %v", err)
	}
	out := buf.String()
	for _, msg := range []string{"signatures built", "pixels classified", "components pruned", `"pinned":1`, "segmentation done", `"component":"siox"`} {
		if !strings.Contains(out, msg) {
			t.Fatalf("log output missing %q:\n%s", msg, out)
		}
	}
	if len(e.pruner.Components()) == 0 {
		t.Fatal("component report cleared by the fill pass")
	}
}

func BenchmarkSegmentate(b *testing.B) {
	w, h := 256, 256
	pixels, src := squareScene(w, h, 64)
	cm := make([]float64, len(src))
	e := newTestEngine(b, w, h)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(cm, src)
		if _, err := e.Segmentate(pixels, cm, 2, 3); err != nil {
			b.Fatal(err)
		}
	}
}

func TestBuildSignaturesMatchesSegmentate(t *testing.T) {
	w, h := 20, 20
	pixels, cm := squareScene(w, h, 5)
	bg, fg := BuildSignatures(pixels, append([]float64(nil), cm...), DefaultConfig())

	e := newTestEngine(t, w, h)
	if _, err := e.Segmentate(pixels, cm, 1, 3); err != nil {
		t.Fatalf("Segmentate: %v", err)
	}
	ebg, efg := e.Signatures()
	if !reflect.DeepEqual(bg, ebg) || !reflect.DeepEqual(fg, efg) {
		t.Fatalf("BuildSignatures differs from the engine's signatures")
	}

	if b, f := BuildSignatures(pixels[:3], cm, DefaultConfig()); len(b) != 0 || len(f) != 0 {
		t.Fatalf("mismatched input produced signatures")
	}
}
