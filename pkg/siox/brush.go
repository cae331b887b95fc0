package siox

import (
	"fmt"
	"image"
	"math"
)

// Area is a set of pixel coordinates for the refinement brush.
type Area interface {
	Bounds() image.Rectangle
	Contains(x, y int) bool
}

type rectArea image.Rectangle

func (r rectArea) Bounds() image.Rectangle { return image.Rectangle(r) }

func (r rectArea) Contains(x, y int) bool {
	return image.Pt(x, y).In(image.Rectangle(r))
}

// Rect returns an area covering r.
func Rect(r image.Rectangle) Area {
	return rectArea(r.Canon())
}

// Square returns the square brush of half-diameter half centered on (x,y).
func Square(x, y, half int) Area {
	return Rect(image.Rect(x-half, y-half, x+half, y+half))
}

type circleArea struct {
	cx, cy, r int
}

// Circle returns a round brush of radius r centered on (cx,cy).
func Circle(cx, cy, r int) Area {
	return circleArea{cx, cy, r}
}

func (c circleArea) Bounds() image.Rectangle {
	return image.Rect(c.cx-c.r, c.cy-c.r, c.cx+c.r+1, c.cy+c.r+1)
}

func (c circleArea) Contains(x, y int) bool {
	dx, dy := x-c.cx, y-c.cy
	return dx*dx+dy*dy <= c.r*c.r
}

// Brush assigns soft alpha values using the distances cached during
// classification of the original pixels.
type Brush struct {
	width, height int
	pixels        []uint32
	cache         *Cache
}

// NewBrush returns a brush over a w*h image whose pixels were classified into
// cache.
func NewBrush(w, h int, pixels []uint32, cache *Cache) *Brush {
	return &Brush{width: w, height: h, pixels: pixels, cache: cache}
}

// Apply refines cm inside area. Pixels whose color never went through
// nearest-centroid classification are skipped. AddEdge raises pixels below
// Foreground to bg/fg distance ratio (clipped at 1), SubEdge lowers pixels
// above Foreground to 1 - fg/bg ratio. Results below threshold become
// CertainBackground.
func (b *Brush) Apply(area Area, mode BrushMode, threshold float64, cm []float64) error {
	if mode != AddEdge && mode != SubEdge {
		return fmt.Errorf("%w: %q", ErrUnknownBrushMode, mode)
	}
	if len(cm) != b.width*b.height {
		return fmt.Errorf("%w: %d confidences for %dx%d", ErrSizeMismatch, len(cm), b.width, b.height)
	}
	r := area.Bounds().Intersect(image.Rect(0, 0, b.width, b.height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if !area.Contains(x, y) {
				continue
			}
			i := y*b.width + x
			c, ok := b.cache.Get(b.pixels[i])
			if !ok {
				continue
			}
			bg := math.Sqrt(c.MinBgDist)
			fg := math.Sqrt(c.MinFgDist)
			var alpha float64
			switch mode {
			case AddEdge:
				if cm[i] >= Foreground {
					continue
				}
				if fg == 0 {
					alpha = CertainForeground
				} else {
					alpha = math.Min(bg/fg, CertainForeground)
				}
			case SubEdge:
				if cm[i] <= Foreground {
					continue
				}
				if bg == 0 {
					alpha = CertainBackground
				} else {
					alpha = CertainForeground - math.Min(fg/bg, CertainForeground)
				}
			}
			if alpha < threshold {
				alpha = CertainBackground
			}
			cm[i] = alpha
		}
	}
	return nil
}
