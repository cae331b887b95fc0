package cli

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"math/rand"
	"strings"
	"testing"
)

func fakeEnv(vars map[string]string) previewEnv {
	return func(k string) string { return vars[k] }
}

func TestPickBackend(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want previewBackend
	}{
		{"wezterm", map[string]string{"TERM_PROGRAM": "WezTerm"}, backendInline},
		{"iterm session", map[string]string{"ITERM_SESSION_ID": "w0t0p0"}, backendInline},
		{"kitty window", map[string]string{"KITTY_WINDOW_ID": "1"}, backendKitty},
		{"ghostty term", map[string]string{"TERM": "xterm-ghostty"}, backendKitty},
		{"override", map[string]string{"TERM_PROGRAM": "WezTerm", "SIOX_PREVIEW_BACKEND": "kitty"}, backendKitty},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := fakeEnv(tc.vars).pickBackend(); got != tc.want {
				t.Fatalf("pickBackend = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestComputePreviewSize(t *testing.T) {
	if s := computePreviewSize(image.Rect(0, 0, 4, 4)); s.Cols != 6 || s.Rows != 3 {
		t.Fatalf("tiny image: %+v", s)
	}
	s := computePreviewSize(image.Rect(0, 0, 6400, 640))
	if s.Cols != 80 {
		t.Fatalf("wide image cols = %d, want 80", s.Cols)
	}
	if s.Rows > 40 || s.Rows < 3 {
		t.Fatalf("wide image rows out of range: %d", s.Rows)
	}
}

func TestPreviewInlineWritesPNG(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.NRGBA{200, 10, 10, 255})
	var out bytes.Buffer
	if err := previewImage(&out, img, fakeEnv(map[string]string{"TERM_PROGRAM": "WezTerm"})); err != nil {
		t.Fatalf("previewImage: %v", err)
	}
	s := out.String()
	if !strings.HasPrefix(s, "\x1b]1337;File=") {
		t.Fatalf("missing inline sequence: %q", s)
	}
	payload := s[strings.Index(s, ":")+1 : strings.Index(s, "\a")]
	dec, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if !bytes.HasPrefix(dec, []byte("\x89PNG")) {
		t.Fatalf("payload is not a PNG: %x", dec[:4])
	}
}

func TestPreviewKittyChunks(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	rng := rand.New(rand.NewSource(1))
	for i := range img.Pix {
		img.Pix[i] = byte(rng.Intn(256))
	}
	var out bytes.Buffer
	if err := previewImage(&out, img, fakeEnv(map[string]string{"KITTY_WINDOW_ID": "1"})); err != nil {
		t.Fatalf("previewImage: %v", err)
	}
	s := out.String()
	if !strings.HasPrefix(s, "\x1b_Ga=T,f=100,") {
		t.Fatalf("first chunk lacks control keys: %q", s[:20])
	}
	if n := strings.Count(s, "\x1b_G"); n < 2 {
		t.Fatalf("expected several chunks, got %d", n)
	}
	if !strings.Contains(s, "m=0;") {
		t.Fatal("last chunk not terminated with m=0")
	}
}

func TestPreviewNilImage(t *testing.T) {
	var out bytes.Buffer
	if err := previewImage(&out, nil, fakeEnv(nil)); err == nil {
		t.Fatal("expected error for nil image")
	}
}
