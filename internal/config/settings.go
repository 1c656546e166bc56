package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lorikeet/internal/deltae"
	"lorikeet/internal/sampler"
	"lorikeet/internal/scheme"

	"github.com/pelletier/go-toml/v2"
)

const maxColorCount = 64

// Settings is the on-disk generation configuration.
type Settings struct {
	LogLevel   string          `toml:"logLevel" json:"logLevel"`
	ColorCount int             `toml:"colorCount" json:"colorCount"`
	Algorithm  AlgorithmConfig `toml:"algorithm" json:"algorithm"`
	Sampler    sampler.Config  `toml:"sampler" json:"sampler"`
	Generation scheme.Options  `toml:"generation" json:"generation"`
}

type AlgorithmConfig struct {
	Name string `toml:"name" json:"name"`
	// Weights switches cie94/cie2000 to their parametric variants when set.
	Weights *deltae.Weights `toml:"weights,omitempty" json:"weights,omitempty"`
}

func (c AlgorithmConfig) Build() (deltae.Algorithm, error) {
	return deltae.ParseAlgorithm(c.Name, c.Weights)
}

func DefaultSettings() Settings {
	return Settings{
		LogLevel:   "info",
		ColorCount: 5,
		Algorithm:  AlgorithmConfig{Name: "cie2000"},
		Sampler:    sampler.DefaultConfig(),
		Generation: scheme.DefaultOptions(),
	}
}

func (s Settings) Validate() error {
	if _, err := ParseLogLevel(s.LogLevel); err != nil {
		return err
	}
	if s.ColorCount < 0 || s.ColorCount > maxColorCount {
		return fmt.Errorf("color count %d outside [0,%d]", s.ColorCount, maxColorCount)
	}
	if _, err := s.Algorithm.Build(); err != nil {
		return fmt.Errorf("algorithm: %w", err)
	}
	if _, err := s.Sampler.Build(); err != nil {
		return fmt.Errorf("sampler: %w", err)
	}
	if err := s.Generation.Validate(); err != nil {
		return fmt.Errorf("generation: %w", err)
	}
	return nil
}

func ParseLogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
}

// LoadSettings reads path, writing the defaults first if it does not exist.
// Keys missing from the file keep their default values.
func LoadSettings(path string) (Settings, error) {
	body, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		settings := DefaultSettings()
		if err := SaveSettings(path, settings); err != nil {
			return Settings{}, err
		}
		return settings, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	settings := DefaultSettings()
	if err := toml.Unmarshal(body, &settings); err != nil {
		return Settings{}, fmt.Errorf("decode settings %s: %w", path, err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings %s: %w", path, err)
	}

	return settings, nil
}

// SaveSettings writes through a temporary file so watchers never see a
// half-written document.
func SaveSettings(path string, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("refuse to save invalid settings: %w", err)
	}

	body, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("create settings temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close settings temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
