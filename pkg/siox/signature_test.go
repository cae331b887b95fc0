package siox

import (
	"math/rand"
	"reflect"
	"testing"
)

func randomSamples(n int, seed int64) []Lab {
	r := rand.New(rand.NewSource(seed))
	out := make([]Lab, n)
	for i := range out {
		out[i] = Lab{r.Float64() * 100, r.Float64()*200 - 100, r.Float64()*200 - 100}
	}
	return out
}

func TestBuildSignatureEmpty(t *testing.T) {
	sig := BuildSignature(nil, DefaultLimits, DefaultAbstractionThreshold)
	if sig == nil || len(sig) != 0 {
		t.Fatalf("expected empty non-nil signature, got %#v", sig)
	}
}

func TestBuildSignatureDeterministic(t *testing.T) {
	samples := randomSamples(5000, 1)
	a := BuildSignature(append([]Lab(nil), samples...), DefaultLimits, DefaultAbstractionThreshold)
	b := BuildSignature(append([]Lab(nil), samples...), DefaultLimits, DefaultAbstractionThreshold)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("signatures differ between identical runs")
	}
}

func TestBuildSignatureWeightBound(t *testing.T) {
	for _, n := range []int{1, 7, 300, 4000} {
		samples := randomSamples(n, int64(n))
		sig := BuildSignature(samples, DefaultLimits, DefaultAbstractionThreshold)
		if sig.Weight() > n {
			t.Fatalf("n=%d: weight %d exceeds sample count", n, sig.Weight())
		}
		all := BuildSignature(samples, DefaultLimits, 0)
		if all.Weight() != n {
			t.Fatalf("n=%d: zero threshold kept weight %d", n, all.Weight())
		}
	}
}

func TestBuildSignatureSeparatesColors(t *testing.T) {
	a := Lab{50, 0, 0}
	b := Lab{80, 40, -20}
	var samples []Lab
	for i := 0; i < 10; i++ {
		samples = append(samples, a, b)
	}
	sig := BuildSignature(samples, DefaultLimits, DefaultAbstractionThreshold)
	if len(sig) != 2 {
		t.Fatalf("got %d clusters, want 2: %v", len(sig), sig)
	}
	for i, want := range []Lab{a, b} {
		if sig[i].Weight != 10 || SqrDist(sig[i].Lab, want) > 1e-12 {
			t.Fatalf("cluster %d = %v, want %v with weight 10", i, sig[i], want)
		}
	}
}

func TestBuildSignatureMergesWithinLimits(t *testing.T) {
	samples := []Lab{{50, 0, 0}, {50.3, 0.5, 1}, {50.1, 1, 2}}
	sig := BuildSignature(samples, DefaultLimits, 0)
	if len(sig) != 1 || sig[0].Weight != 3 {
		t.Fatalf("expected one cluster of weight 3, got %v", sig)
	}
}

func TestBuildSignatureDropsRareColors(t *testing.T) {
	common := Lab{40, 10, 10}
	rare := Lab{90, -50, 60}
	samples := make([]Lab, 0, 2000)
	for i := 0; i < 1999; i++ {
		samples = append(samples, common)
	}
	samples = append(samples, rare)
	sig := BuildSignature(samples, DefaultLimits, DefaultAbstractionThreshold)
	if len(sig) != 1 || SqrDist(sig[0].Lab, common) > 1e-12 || sig[0].Weight != 1999 {
		t.Fatalf("rare color should be abstracted away, got %v", sig)
	}
}

func TestBuildSignatureDegenerateLimits(t *testing.T) {
	samples := []Lab{{10, 0, 0}, {10, 0, 0}, {20, 0, 0}}
	sig := BuildSignature(samples, [3]float64{}, 0)
	if sig.Weight() != 3 {
		t.Fatalf("weight = %d, want 3", sig.Weight())
	}
}

func BenchmarkBuildSignature(b *testing.B) {
	samples := randomSamples(100000, 42)
	work := make([]Lab, len(samples))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(work, samples)
		BuildSignature(work, DefaultLimits, DefaultAbstractionThreshold)
	}
}
