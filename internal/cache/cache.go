// Package cache owns the on-disk composite cache of each character:
// assets/cache/<id>/ holding one image per (portrait, background) pair plus a
// _meta.json record that is the sole authority on whether the directory is
// usable.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"tools.zach/dev/galcard/internal/atomicfile"
	"tools.zach/dev/galcard/internal/config"
	"tools.zach/dev/galcard/internal/paths"
	"tools.zach/dev/galcard/internal/signature"
)

// ///////////////////////////////////////////////
// Metadata
// ///////////////////////////////////////////////

// Meta is the persisted description of a completed build.
type Meta struct {
	SourceSignature string             `json:"source_signature"`
	CanvasSize      [2]int             `json:"canvas_size"`
	CacheFormat     config.CacheFormat `json:"cache_format"`
	PortraitCount   int                `json:"portrait_count"`
	BackgroundCount int                `json:"background_count"`
}

// Store reads and writes character caches for one set of render settings.
type Store struct {
	dir      paths.AssetDir
	settings config.RenderSettings
}

// NewStore returns a Store rooted at dir.
func NewStore(dir paths.AssetDir, settings config.RenderSettings) *Store {
	return &Store{dir: dir, settings: settings}
}

// Settings returns the render settings the store validates against.
func (s *Store) Settings() config.RenderSettings { return s.settings }

// Dir returns the store's asset directory.
func (s *Store) Dir() paths.AssetDir { return s.dir }

// Expected returns the metadata a complete cache built from in would carry.
func (s *Store) Expected(in signature.Inputs) Meta {
	return Meta{
		SourceSignature: signature.Of(s.dir.Root, s.settings, in),
		CanvasSize:      [2]int{s.settings.Canvas.W, s.settings.Canvas.H},
		CacheFormat:     s.settings.Format,
		PortraitCount:   len(in.Portraits),
		BackgroundCount: len(in.Backgrounds),
	}
}

// ReadMeta returns the stored metadata of character id. ok is false when the
// file is absent or unreadable; a corrupt file is treated as absent.
func (s *Store) ReadMeta(id string) (meta Meta, ok bool) {
	data, err := os.ReadFile(s.dir.CacheMeta(id))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to read cache metadata", "character", id, "error", err)
		}
		return Meta{}, false
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		slog.Warn("ignoring corrupt cache metadata", "character", id, "error", err)
		return Meta{}, false
	}
	return meta, true
}

// WriteMeta atomically persists meta for character id.
func (s *Store) WriteMeta(id string, meta Meta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache metadata: %w", err)
	}
	if err := atomicfile.Write(s.dir.CacheMeta(id), data, 0o644); err != nil {
		return fmt.Errorf("write cache metadata: %w", err)
	}
	return nil
}

// ///////////////////////////////////////////////
// Completeness
// ///////////////////////////////////////////////

// IsComplete reports whether the cache of character id matches in. It is
// false when either list is empty, when any expected composite is missing,
// when metadata is absent, or when any metadata field differs from what a
// fresh build would record.
func (s *Store) IsComplete(id string, in signature.Inputs) bool {
	if len(in.Portraits) == 0 || len(in.Backgrounds) == 0 {
		return false
	}

	present, err := s.Composites(id)
	if err != nil {
		return false
	}
	have := make(map[string]bool, len(present))
	for _, name := range present {
		have[name] = true
	}
	ext := s.settings.Format.Ext()
	for _, p := range in.Portraits {
		for _, b := range in.Backgrounds {
			if !have[paths.CompositeName(p.Key, b.Key, ext)] {
				slog.Debug("cache incomplete", "character", id, "portrait", p.Key, "background", b.Key)
				return false
			}
		}
	}

	meta, ok := s.ReadMeta(id)
	if !ok {
		return false
	}
	if want := s.Expected(in); meta != want {
		slog.Debug("cache metadata stale", "character", id, "have", meta.SourceSignature, "want", want.SourceSignature)
		return false
	}
	return true
}

// ///////////////////////////////////////////////
// Composites
// ///////////////////////////////////////////////

// CompositePath returns where the composite of (portraitKey, backgroundKey)
// lives in the configured format.
func (s *Store) CompositePath(id, portraitKey, backgroundKey string) string {
	return s.dir.Composite(id, portraitKey, backgroundKey, s.settings.Format.Ext())
}

// LegacyCompositePath returns the composite path under [config.LegacyExt].
func (s *Store) LegacyCompositePath(id, portraitKey, backgroundKey string) string {
	return s.dir.Composite(id, portraitKey, backgroundKey, config.LegacyExt)
}

// Composites returns the sorted names of composites in the configured format
// present for character id. A missing directory yields an empty list.
func (s *Store) Composites(id string) ([]string, error) {
	entries, err := os.ReadDir(s.dir.Cache(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list cache: %w", err)
	}
	ext := s.settings.Format.Ext()
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "p_") || !strings.EqualFold(extOf(name), ext) {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

// Inputs lists the signature inputs of character id.
func (s *Store) Inputs(id string) (signature.Inputs, error) {
	return signature.Collect(s.dir, id)
}
