package session

import (
	"fmt"

	"github.com/hpungsan/frag/internal/config"
	"github.com/hpungsan/frag/internal/errors"
)

// Preset values offered by the UI and accepted anywhere else.
var (
	QualityPresets   = []float64{0.3, 0.5, 0.7, 0.9}
	MaxSizePresets   = []int{128, 256, 512, 1024}
	ChunkSizePresets = []int{10000, 20000, 30000, 50000}
)

// Settings controls how a picked source is turned into a data URI.
type Settings struct {
	// Quality is the JPEG quality in (0, 1]. Ignored when Compress is false.
	Quality float64 `json:"quality"`

	// MaxSize is the long-edge limit in pixels. Ignored when Compress is false.
	MaxSize int `json:"max_size"`

	// ChunkSize is the fragment length in characters.
	ChunkSize int `json:"chunk_size"`

	// Compress enables resizing and quality reduction for images.
	Compress bool `json:"compress"`
}

// DefaultSettings returns the settings a fresh workbench starts with.
func DefaultSettings() Settings {
	return Settings{
		Quality:   config.DefaultQuality,
		MaxSize:   config.DefaultMaxSize,
		ChunkSize: config.DefaultChunkSize,
		Compress:  true,
	}
}

// SettingsFromConfig overlays non-zero config values on the defaults.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()
	if cfg == nil {
		return s
	}
	if cfg.Quality > 0 {
		s.Quality = cfg.Quality
	}
	if cfg.MaxSize > 0 {
		s.MaxSize = cfg.MaxSize
	}
	if cfg.ChunkSize > 0 {
		s.ChunkSize = cfg.ChunkSize
	}
	s.Compress = !cfg.DisableCompression
	return s
}

// Validate checks ranges. Values need not be one of the presets.
func (s Settings) Validate() error {
	if s.ChunkSize <= 0 {
		return errors.NewInvalidArgument(fmt.Sprintf("chunk size must be > 0, got %d", s.ChunkSize))
	}
	if !s.Compress {
		return nil
	}
	if s.Quality <= 0 || s.Quality > 1 {
		return errors.NewInvalidArgument(fmt.Sprintf("quality must be in (0, 1], got %v", s.Quality))
	}
	if s.MaxSize <= 0 {
		return errors.NewInvalidArgument(fmt.Sprintf("max size must be > 0, got %d", s.MaxSize))
	}
	return nil
}
