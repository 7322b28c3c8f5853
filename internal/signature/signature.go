// Package signature fingerprints a character's source assets and the active
// render settings so a stale cache can be detected without reading any image.
//
// Only file metadata is hashed: path, modification time, and size. This is an
// authoring-workflow staleness check, not an integrity check.
package signature

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"tools.zach/dev/galcard/internal/assets"
	"tools.zach/dev/galcard/internal/character"
	"tools.zach/dev/galcard/internal/config"
	"tools.zach/dev/galcard/internal/paths"
)

// Inputs are the files a signature covers. Portraits and Backgrounds must be
// in their listing order (sorted, character backgrounds before common).
type Inputs struct {
	// Config is the character document path; empty when there is none.
	Config      string
	Portraits   []assets.Entry
	Backgrounds []assets.Entry
}

// Collect lists the inputs of character id.
func Collect(dir paths.AssetDir, id string) (Inputs, error) {
	var in Inputs
	cfg, err := character.FindConfig(dir, id)
	switch {
	case err == nil:
		in.Config = cfg
	case !errors.Is(err, character.ErrConfigNotFound):
		return in, err
	}
	if in.Portraits, err = assets.Portraits(dir, id); err != nil {
		return in, err
	}
	if in.Backgrounds, err = assets.Backgrounds(dir, id); err != nil {
		return in, err
	}
	return in, nil
}

// Compute returns the signature of character id under settings.
func Compute(dir paths.AssetDir, id string, settings config.RenderSettings) (string, error) {
	in, err := Collect(dir, id)
	if err != nil {
		return "", fmt.Errorf("collect signature inputs: %w", err)
	}
	return Of(dir.Root, settings, in), nil
}

// Of hashes in under settings. Paths are recorded relative to root with
// forward slashes. A file that cannot be stat'ed contributes nothing, so
// deleting a file changes the signature by omission.
func Of(root string, settings config.RenderSettings, in Inputs) string {
	h := xxhash.New()
	field(h, settings.Canvas.String())
	field(h, string(settings.Format))

	if in.Config != "" {
		file(h, root, in.Config)
	}
	for _, e := range in.Portraits {
		file(h, root, e.Path)
	}
	for _, e := range in.Backgrounds {
		file(h, root, e.Path)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// field writes s followed by a separator so adjacent fields cannot run
// together.
func field(w io.Writer, s string) {
	io.WriteString(w, s)
	w.Write([]byte{0})
}

func file(w io.Writer, root, path string) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	name := path
	if rel, err := filepath.Rel(root, path); err == nil {
		name = rel
	}
	field(w, filepath.ToSlash(name))
	field(w, strconv.FormatInt(info.ModTime().UnixNano(), 10))
	field(w, strconv.FormatInt(info.Size(), 10))
}
