package siox

import (
	"fmt"
	"math"
	"runtime"
	"sync"
)

// Classify turns every confidence of cm into CertainBackground or
// CertainForeground.
//
// Entries at or above Foreground become foreground and entries at or below
// Background become background without any distance work. Unknown entries are
// assigned to the nearer signature, looked up in cache by raw pixel value and
// computed on a miss. Missing cache entries are scored on up to workers
// goroutines and merged into cache afterwards.
//
// cm is left untouched when an error is returned.
func Classify(pixels []uint32, cm []float64, bg, fg Signature, cache *Cache, metric Metric, workers int) error {
	if len(pixels) != len(cm) {
		return fmt.Errorf("%w: %d pixels, %d confidences", ErrSizeMismatch, len(pixels), len(cm))
	}
	if len(bg) == 0 {
		return ErrInsufficientBackground
	}
	metric = metric.withDefaults()

	var pending []uint32
	seen := make(map[uint32]struct{})
	unknown := 0
	for i, v := range cm {
		if v >= Foreground || v <= Background {
			continue
		}
		unknown++
		p := pixels[i]
		if _, ok := cache.Get(p); ok {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		pending = append(pending, p)
	}
	if unknown > 0 && len(fg) == 0 {
		return ErrMissingForegroundSignature
	}

	scored := scoreColors(pending, bg, fg, metric, workers)
	for i, p := range pending {
		cache.Put(p, scored[i])
	}

	for i, v := range cm {
		switch {
		case v >= Foreground:
			cm[i] = CertainForeground
		case v <= Background:
			cm[i] = CertainBackground
		default:
			c, _ := cache.Get(pixels[i])
			if c.IsBackground() {
				cm[i] = CertainBackground
			} else {
				cm[i] = CertainForeground
			}
		}
	}
	return nil
}

// Nearest returns the squared distance to, and index of, the centroid of sig
// closest to lab. An empty signature yields (+Inf, -1).
func Nearest(lab Lab, sig Signature, dist DistanceFunc) (float64, int) {
	best := math.Inf(1)
	idx := -1
	for j, c := range sig {
		if d := dist(lab, c.Lab); d < best {
			best = d
			idx = j
		}
	}
	return best, idx
}

func classifyColor(p uint32, bg, fg Signature, metric Metric) Classification {
	lab := metric.ToLab(p)
	var c Classification
	c.MinBgDist, c.BgIndex = Nearest(lab, bg, metric.Distance)
	c.MinFgDist, c.FgIndex = Nearest(lab, fg, metric.Distance)
	return c
}

// scoreColors classifies colors in parallel; result i belongs to colors[i].
func scoreColors(colors []uint32, bg, fg Signature, metric Metric, workers int) []Classification {
	out := make([]Classification, len(colors))
	if len(colors) == 0 {
		return out
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(colors) {
		workers = len(colors)
	}
	per := (len(colors) + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < len(colors); start += per {
		end := min(start+per, len(colors))
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				out[i] = classifyColor(colors[i], bg, fg, metric)
			}
		}(start, end)
	}
	wg.Wait()
	return out
}
