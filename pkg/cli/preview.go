package cli

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"os/exec"
	"strings"
)

// Terminal preview of segmentation results.
//
// Backends, in the order they are tried:
//   - iTerm2-style OSC 1337 inline images (iTerm2, WezTerm, Warp, VSCode, ...)
//   - the kitty graphics protocol (kitty, ghostty, Konsole)
//   - chafa, when it is on PATH
//
// SIOX_PREVIEW_BACKEND=inline|kitty|chafa forces a backend.

var errNoPreview = errors.New("terminal does not support image preview")

type previewBackend int

const (
	backendNone previewBackend = iota
	backendInline
	backendKitty
	backendChafa
)

type previewEnv func(string) string

func (env previewEnv) isKitty() bool {
	if env("KITTY_WINDOW_ID") != "" || env("KONSOLE_VERSION") != "" {
		return true
	}
	term := strings.ToLower(env("TERM"))
	return strings.Contains(term, "kitty") || strings.Contains(term, "ghostty")
}

func (env previewEnv) isInline() bool {
	switch env("TERM_PROGRAM") {
	case "iTerm.app", "WezTerm", "Warp", "Hyper", "vscode", "Tabby", "Bobcat":
		return true
	}
	if env("ITERM_SESSION_ID") != "" {
		return true
	}
	term := strings.ToLower(env("TERM"))
	return strings.Contains(term, "wezterm") || strings.Contains(term, "tabby")
}

func hasChafa() bool {
	_, err := exec.LookPath("chafa")
	return err == nil
}

// pickBackend chooses a preview backend from the environment.
func (env previewEnv) pickBackend() previewBackend {
	switch strings.ToLower(env("SIOX_PREVIEW_BACKEND")) {
	case "inline", "iterm", "wezterm":
		return backendInline
	case "kitty":
		return backendKitty
	case "chafa":
		return backendChafa
	}
	switch {
	case env.isInline():
		return backendInline
	case env.isKitty():
		return backendKitty
	case hasChafa():
		return backendChafa
	}
	return backendNone
}

// previewSize is a placement in terminal cells.
type previewSize struct {
	Cols, Rows int
}

// computePreviewSize fits an image into at most 80x40 cells of 8x16 pixels,
// never scaling up.
func computePreviewSize(b image.Rectangle) previewSize {
	const (
		charW, charH     = 8, 16
		minCols, minRows = 6, 3
		maxCols, maxRows = 80, 40
	)
	w, h := float64(b.Dx()), float64(b.Dy())
	if w <= 0 || h <= 0 {
		return previewSize{minCols, minRows}
	}
	scale := math.Min(1, math.Min(maxCols*charW/w, maxRows*charH/h))
	cols := int(math.Round(w * scale / charW))
	rows := int(math.Round(h * scale / charH))
	return previewSize{
		Cols: min(max(cols, minCols), maxCols),
		Rows: min(max(rows, minRows), maxRows),
	}
}

// previewImage writes img to out using the best backend env allows.
func previewImage(out io.Writer, img image.Image, env previewEnv) error {
	if img == nil {
		return errors.New("nil image")
	}
	backend := env.pickBackend()
	if backend == backendNone {
		return errNoPreview
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("png encode failed: %w", err)
	}
	size := computePreviewSize(img.Bounds())
	switch backend {
	case backendInline:
		return sendInline(out, buf.Bytes(), size)
	case backendKitty:
		return sendKitty(out, buf.Bytes(), size)
	default:
		return sendChafa(out, buf.Bytes(), size)
	}
}

func sendInline(out io.Writer, data []byte, size previewSize) error {
	enc := base64.StdEncoding.EncodeToString(data)
	_, err := fmt.Fprintf(out, "\x1b]1337;File=name=preview.png;inline=1;size=%d;width=%d;height=%d:%s\a\n",
		len(data), size.Cols, size.Rows, enc)
	return err
}

// sendKitty transmits PNG data in base64 chunks of at most 4096 bytes.
// Only the first chunk carries the control keys.
func sendKitty(out io.Writer, data []byte, size previewSize) error {
	const chunkSize = 4096
	enc := base64.StdEncoding.EncodeToString(data)
	for pos := 0; pos < len(enc); pos += chunkSize {
		end := min(pos+chunkSize, len(enc))
		more := 0
		if end < len(enc) {
			more = 1
		}
		var err error
		if pos == 0 {
			_, err = fmt.Fprintf(out, "\x1b_Ga=T,f=100,t=d,q=2,c=%d,r=%d,m=%d;%s\x1b\\", size.Cols, size.Rows, more, enc[pos:end])
		} else {
			_, err = fmt.Fprintf(out, "\x1b_Gm=%d;%s\x1b\\", more, enc[pos:end])
		}
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(out)
	return err
}

func sendChafa(out io.Writer, data []byte, size previewSize) error {
	if _, err := exec.LookPath("chafa"); err != nil {
		return fmt.Errorf("chafa not found in PATH: %w", err)
	}
	cmd := exec.Command("chafa", "--fill=block", "--symbols=block", "-s", fmt.Sprintf("%dx%d", size.Cols, size.Rows), "-")
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = out
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("chafa failed: %w", err)
	}
	return nil
}
