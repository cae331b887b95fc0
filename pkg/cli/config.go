package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Fepozopo/siox/pkg/siox"
)

// Config holds the defaults every command starts from. Values come from the
// environment (optionally seeded by a .env file) and are overridden by flags.
type Config struct {
	Smoothness   int
	SizeFactor   float64
	Limits       [3]float64
	AddThreshold float64
	SubThreshold float64
	LogLevel     zerolog.Level
	Morphology   string
	Workers      int
}

// DefaultConfig mirrors the engine defaults.
func DefaultConfig() Config {
	return Config{
		Smoothness:   2,
		SizeFactor:   3,
		Limits:       siox.DefaultLimits,
		AddThreshold: 1,
		SubThreshold: 0,
		LogLevel:     zerolog.WarnLevel,
		Morphology:   "sweep",
	}
}

// LoadConfig loads envFile if it exists and reads SIOX_* variables on top of
// the defaults. Variables already set in the environment win over the file.
func LoadConfig(envFile string) (Config, error) {
	cfg := DefaultConfig()
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if v, ok := lookup("SIOX_SMOOTHNESS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("SIOX_SMOOTHNESS: invalid value %q", v)
		}
		cfg.Smoothness = n
	}
	if v, ok := lookup("SIOX_SIZE_FACTOR"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return cfg, fmt.Errorf("SIOX_SIZE_FACTOR: invalid value %q", v)
		}
		cfg.SizeFactor = f
	}
	if v, ok := lookup("SIOX_LIMITS"); ok {
		l, err := parseLimits(v)
		if err != nil {
			return cfg, fmt.Errorf("SIOX_LIMITS: %w", err)
		}
		cfg.Limits = l
	}
	for key, dst := range map[string]*float64{
		"SIOX_ADD_THRESHOLD": &cfg.AddThreshold,
		"SIOX_SUB_THRESHOLD": &cfg.SubThreshold,
	} {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return cfg, fmt.Errorf("%s: invalid value %q", key, v)
		}
		*dst = f
	}
	if v, ok := lookup("SIOX_LOG_LEVEL"); ok {
		lvl, err := zerolog.ParseLevel(strings.ToLower(v))
		if err != nil {
			return cfg, fmt.Errorf("SIOX_LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = lvl
	}
	if v, ok := lookup("SIOX_MORPHOLOGY"); ok {
		cfg.Morphology = strings.ToLower(v)
	}
	if v, ok := lookup("SIOX_WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("SIOX_WORKERS: invalid value %q", v)
		}
		cfg.Workers = n
	}
	return cfg, nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// parseLimits parses "l,a,b" cluster limits.
func parseLimits(s string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return out, fmt.Errorf("need three comma separated values, got %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || f <= 0 {
			return out, fmt.Errorf("invalid limit %q", p)
		}
		out[i] = f
	}
	return out, nil
}

// NewLogger returns a human readable logger writing to w.
func NewLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(cw).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// RefineThreshold returns the brush threshold for mode. Additive strokes
// default to 1 and only keep pixels the brush makes fully opaque; subtractive
// strokes default to 0 and keep every soft value.
func (c Config) RefineThreshold(mode siox.BrushMode) float64 {
	if mode == siox.SubEdge {
		return c.SubThreshold
	}
	return c.AddThreshold
}

// EngineConfig builds the engine configuration for cfg.
func (c Config) EngineConfig(log *zerolog.Logger) (siox.Config, error) {
	m, err := newMorphology(c.Morphology)
	if err != nil {
		return siox.Config{}, err
	}
	ec := siox.DefaultConfig()
	ec.Limits = c.Limits
	ec.Morphology = m
	ec.Workers = c.Workers
	ec.Logger = log
	return ec, nil
}
