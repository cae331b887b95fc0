package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Fepozopo/siox/pkg/siox"
)

// signatureFile is the JSON layout written by `siox signature`.
type signatureFile struct {
	Version    string         `json:"version"`
	Limits     [3]float64     `json:"limits"`
	Background siox.Signature `json:"background"`
	Foreground siox.Signature `json:"foreground"`
}

func writeSignatures(path string, limits [3]float64, bg, fg siox.Signature) error {
	b, err := json.MarshalIndent(signatureFile{
		Version:    Version,
		Limits:     limits,
		Background: bg,
		Foreground: fg,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode signatures: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readSignatures(path string) (signatureFile, error) {
	var sf signatureFile
	b, err := os.ReadFile(path)
	if err != nil {
		return sf, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, &sf); err != nil {
		return sf, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if len(sf.Background) == 0 {
		return sf, fmt.Errorf("%s: %w", path, siox.ErrInsufficientBackground)
	}
	return sf, nil
}
