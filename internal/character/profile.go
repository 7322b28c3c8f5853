package character

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"tools.zach/dev/galcard/internal/layout"
	"tools.zach/dev/galcard/internal/paths"
)

// Profile is a character resolved for one canvas size.
type Profile struct {
	// ID is the character directory name.
	ID string
	// Root is the character directory.
	Root string
	// ConfigPath is the document the profile was loaded from.
	ConfigPath string
	// Name is meta.name; empty when the document sets none.
	Name string
	// DialogBox is the dialogue-box file name relative to Root.
	DialogBox string
	Layout    layout.Layout
	Style     layout.Style
}

// Load reads character id and normalizes its layout and style for canvas.
func Load(assets paths.AssetDir, id string, canvas layout.Size) (*Profile, error) {
	doc, err := LoadDocument(assets, id)
	if err != nil {
		return nil, err
	}
	return FromDocument(assets, id, doc, canvas), nil
}

// FromDocument resolves an already decoded document.
func FromDocument(assets paths.AssetDir, id string, doc *Document, canvas layout.Size) *Profile {
	return &Profile{
		ID:         id,
		Root:       assets.Character(id),
		ConfigPath: doc.Path,
		Name:       doc.Name(),
		DialogBox:  doc.DialogBox(),
		Layout:     layout.NormalizeLayout(doc.Section("layout"), canvas),
		Style:      layout.NormalizeStyle(doc.Section("style")),
	}
}

// Speaker returns the default speaker label: meta.name, else the id.
func (p *Profile) Speaker() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// DialogBoxPath returns the full path of the dialogue-box image.
func (p *Profile) DialogBoxPath() string {
	return filepath.Join(p.Root, p.DialogBox)
}

// List returns the sorted ids of every character directory under assets.
// A missing characters directory yields an empty list.
func List(assets paths.AssetDir) ([]string, error) {
	entries, err := os.ReadDir(assets.Characters())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list characters: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	slices.Sort(ids)
	return ids, nil
}
