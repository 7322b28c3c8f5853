// Package config provides the global render settings shared by every
// character: canvas resolution, cache pixel format, fonts, watch timing, and
// logging.
//
// Settings are loaded from settings.toml in the asset root. A missing file
// yields [DefaultSettings]; a present file is decoded over the defaults so any
// key it omits keeps its default value.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/galcard/internal/atomicfile"
	"tools.zach/dev/galcard/internal/layout"
	"tools.zach/dev/galcard/internal/migrate"
)

// ///////////////////////////////////////////////
// Cache Format
// ///////////////////////////////////////////////

// CacheFormat is the pixel format composites are persisted in.
type CacheFormat string

const (
	// FormatJPEG is lossy and honors the configured quality.
	FormatJPEG CacheFormat = "jpeg"
	// FormatPNG is lossless.
	FormatPNG CacheFormat = "png"
)

// LegacyExt is the extension composites were written with before the format
// became configurable. The renderer still reads files carrying it.
const LegacyExt = ".png"

// Ext returns the file extension for f, including the dot.
func (f CacheFormat) Ext() string {
	if f == FormatPNG {
		return ".png"
	}
	return ".jpg"
}

// Valid reports whether f is a known format.
func (f CacheFormat) Valid() bool {
	return f == FormatJPEG || f == FormatPNG
}

// ///////////////////////////////////////////////
// Settings
// ///////////////////////////////////////////////

// Settings holds all global configuration.
type Settings struct {
	// Version is the settings schema version used for migrations.
	Version int `toml:"version"`
	// Render holds canvas and cache settings.
	Render RenderConfig `toml:"render"`
	// Fonts holds font resolution settings.
	Fonts FontsConfig `toml:"fonts"`
	// Watch holds asset watcher timing.
	Watch WatchConfig `toml:"watch"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// RenderConfig holds canvas and cache settings.
type RenderConfig struct {
	// CanvasSize is the output resolution as [width, height].
	CanvasSize [2]int `toml:"canvas_size"`
	// CacheFormat is "jpeg" or "png".
	CacheFormat CacheFormat `toml:"cache_format"`
	// JPEGQuality is the encoder quality for jpeg caches (1-100).
	JPEGQuality int `toml:"jpeg_quality"`
	// UseMemoryCanvasCache keeps resolved base canvases in memory per renderer.
	UseMemoryCanvasCache bool `toml:"use_memory_canvas_cache"`
}

// FontsConfig holds font resolution settings.
type FontsConfig struct {
	// DefaultFont is looked up in common/fonts when a character names no font.
	DefaultFont string `toml:"default_font"`
}

// WatchConfig holds asset watcher timing.
type WatchConfig struct {
	// DebounceMS coalesces bursts of filesystem events.
	DebounceMS int `toml:"debounce_ms"`
	// PollIntervalSeconds is the mtime polling period when fsnotify is unavailable.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// DefaultFontFile is the shared font used when none is configured.
const DefaultFontFile = "LXGWWenKai-Medium.ttf"

// DefaultSettings returns a Settings populated with default values.
func DefaultSettings() *Settings {
	return &Settings{
		Version: migrate.Settings.CurrentVersion,
		Render: RenderConfig{
			CanvasSize:           [2]int{layout.DefaultCanvas.W, layout.DefaultCanvas.H},
			CacheFormat:          FormatJPEG,
			JPEGQuality:          90,
			UseMemoryCanvasCache: true,
		},
		Fonts: FontsConfig{
			DefaultFont: DefaultFontFile,
		},
		Watch: WatchConfig{
			DebounceMS:          500,
			PollIntervalSeconds: 2,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ExampleSettings returns the Settings used to generate settings.default.toml.
func ExampleSettings() *Settings {
	return DefaultSettings()
}

// ///////////////////////////////////////////////
// Render Settings
// ///////////////////////////////////////////////

// RenderSettings is the immutable subset of Settings every builder and
// renderer is constructed with.
type RenderSettings struct {
	Canvas         layout.Size
	Format         CacheFormat
	JPEGQuality    int
	UseMemoryCache bool
	DefaultFont    string
}

// Runtime returns the settings value passed to builders and renderers.
func (s *Settings) Runtime() RenderSettings {
	return RenderSettings{
		Canvas:         layout.Size{W: s.Render.CanvasSize[0], H: s.Render.CanvasSize[1]},
		Format:         s.Render.CacheFormat,
		JPEGQuality:    s.Render.JPEGQuality,
		UseMemoryCache: s.Render.UseMemoryCanvasCache,
		DefaultFont:    s.Fonts.DefaultFont,
	}
}

// DefaultRenderSettings returns the render settings of [DefaultSettings].
func DefaultRenderSettings() RenderSettings {
	return DefaultSettings().Runtime()
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the settings file at path.
// If the file doesn't exist, returns DefaultSettings.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("read settings file: %w", err)
	}

	original := data
	data, migrated, err := migrate.Settings.Upgrade(data, PeekVersion(data))
	if err != nil {
		return nil, fmt.Errorf("migrate settings: %w", err)
	}
	if migrated {
		if backupErr := atomicfile.Write(path+".bak", original, 0o644); backupErr != nil {
			slog.Warn("failed to write settings backup", "error", backupErr)
		}
	}

	s := DefaultSettings()
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	s.Version = migrate.Settings.CurrentVersion

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}

	if migrated {
		if err := s.Save(path); err != nil {
			slog.Warn("failed to save migrated settings", "error", err)
		}
	}
	return s, nil
}

// Save writes the settings to disk as TOML using atomic file write.
func (s *Settings) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks that every setting is usable.
func (s *Settings) Validate() error {
	if w, h := s.Render.CanvasSize[0], s.Render.CanvasSize[1]; w < 1 || h < 1 {
		return fmt.Errorf("invalid render.canvas_size [%d, %d]: both dimensions must be >= 1", w, h)
	}

	if !s.Render.CacheFormat.Valid() {
		return fmt.Errorf("invalid render.cache_format %q: must be jpeg or png", s.Render.CacheFormat)
	}

	if q := s.Render.JPEGQuality; q < 1 || q > 100 {
		return fmt.Errorf("render.jpeg_quality must be in 1..100, got %d", q)
	}

	if strings.TrimSpace(s.Fonts.DefaultFont) == "" {
		return fmt.Errorf("fonts.default_font must not be empty")
	}

	if s.Watch.DebounceMS < 0 {
		return fmt.Errorf("watch.debounce_ms must be >= 0, got %d", s.Watch.DebounceMS)
	}

	if s.Watch.PollIntervalSeconds <= 0 {
		return fmt.Errorf("watch.poll_interval_seconds must be > 0, got %d", s.Watch.PollIntervalSeconds)
	}

	if !validLogLevels[strings.ToLower(s.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", s.Log.Level)
	}

	if s.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", s.Log.MaxSizeMB)
	}

	return nil
}
