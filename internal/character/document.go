// Package character loads per-character config documents and resolves them
// into normalized profiles.
//
// A character lives in assets/characters/<id>/ and is described by
// config.json or config.toml. The document carries meta.name,
// assets.dialog_box, a style block, and a layout block. Older documents are
// upgraded in memory through the migrate.Character registry; they are only
// written back by [Repair].
package character

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/galcard/internal/atomicfile"
	"tools.zach/dev/galcard/internal/migrate"
	"tools.zach/dev/galcard/internal/paths"
)

// ErrConfigNotFound is returned when a character has no config document.
var ErrConfigNotFound = errors.New("character config not found")

// Format identifies the encoding of a config document.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// formatOf maps a config file name to its format.
func formatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatJSON
}

// ///////////////////////////////////////////////
// Document
// ///////////////////////////////////////////////

// Document is a decoded character config. Data keeps every key of the file,
// including ones this package does not interpret, so a saved document loses
// nothing.
type Document struct {
	// Path is the file the document was read from.
	Path string
	// Format is the encoding Path uses.
	Format Format
	// Data is the decoded document tree.
	Data map[string]any
	// Migrated reports whether Data was upgraded from an older version.
	Migrated bool
}

// FindConfig returns the path of the first config document present for id.
func FindConfig(assets paths.AssetDir, id string) (string, error) {
	for _, name := range paths.ConfigFiles {
		path := assets.CharacterFile(id, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat character config: %w", err)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrConfigNotFound, id)
}

// LoadDocument reads and decodes the config document of character id,
// upgrading it to the current schema version in memory.
func LoadDocument(assets paths.AssetDir, id string) (*Document, error) {
	path, err := FindConfig(assets, id)
	if err != nil {
		return nil, err
	}
	return ReadDocument(path)
}

// ReadDocument decodes the config document at path.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("read character config: %w", err)
	}

	doc := &Document{Path: path, Format: formatOf(path)}
	tree, err := decode(data, doc.Format)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	version := peekVersion(tree)
	if migrate.Character.NeedsMigration(version) {
		canonical, err := json.Marshal(tree)
		if err != nil {
			return nil, fmt.Errorf("encode for migration: %w", err)
		}
		upgraded, changed, err := migrate.Character.Upgrade(canonical, version)
		if err != nil {
			return nil, err
		}
		if changed {
			if tree, err = decode(upgraded, FormatJSON); err != nil {
				return nil, fmt.Errorf("decode migrated config: %w", err)
			}
			tree = integralize(tree).(map[string]any)
			doc.Migrated = true
		}
	}
	doc.Data = tree
	return doc, nil
}

func decode(data []byte, format Format) (map[string]any, error) {
	tree := map[string]any{}
	var err error
	if format == FormatTOML {
		err = toml.Unmarshal(data, &tree)
	} else {
		err = json.Unmarshal(data, &tree)
	}
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// peekVersion returns the document's version, treating a missing or
// non-numeric field as 1.
func peekVersion(tree map[string]any) int {
	switch v := tree["version"].(type) {
	case float64:
		if v >= 1 {
			return int(v)
		}
	case int64:
		if v >= 1 {
			return int(v)
		}
	}
	return 1
}

// integralize converts whole float64 values back to int64 after a JSON round
// trip so TOML documents keep their integer literals.
func integralize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = integralize(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = integralize(item)
		}
		return t
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
	}
	return v
}

// Section returns the named top-level block, or nil when it is absent or not
// a table.
func (d *Document) Section(key string) map[string]any {
	m, _ := d.Data[key].(map[string]any)
	return m
}

// ensureSection returns the named block, creating it when absent.
func (d *Document) ensureSection(key string) map[string]any {
	if m := d.Section(key); m != nil {
		return m
	}
	m := map[string]any{}
	d.Data[key] = m
	return m
}

// Name returns meta.name, or "" when unset.
func (d *Document) Name() string {
	name, _ := d.Section("meta")["name"].(string)
	return name
}

// DialogBox returns assets.dialog_box, defaulting to textbox_bg.png.
func (d *Document) DialogBox() string {
	if name, ok := d.Section("assets")["dialog_box"].(string); ok && name != "" {
		return name
	}
	return paths.DefaultBoxFile
}

// Save atomically writes the document back to Path in its own format.
func (d *Document) Save() error {
	var buf bytes.Buffer
	switch d.Format {
	case FormatTOML:
		if err := toml.NewEncoder(&buf).Encode(d.Data); err != nil {
			return fmt.Errorf("encoding character config: %w", err)
		}
	default:
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "    ")
		if err := enc.Encode(d.Data); err != nil {
			return fmt.Errorf("encoding character config: %w", err)
		}
	}
	return atomicfile.Write(d.Path, buf.Bytes(), 0o644)
}
