// Package assets enumerates a character's source images: portraits in the
// character directory and backgrounds from the character directory with the
// shared common pool as fallback.
package assets

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/galcard/internal/paths"
)

// ImagePattern matches the accepted image extensions against a lower-cased
// file name.
const ImagePattern = "*.{png,jpg,jpeg}"

// Entry is one source image.
type Entry struct {
	// Name is the file name including extension.
	Name string
	// Key is Name without its extension; cache names and render arguments use it.
	Key string
	// Path is the full path of the file.
	Path string
}

// ///////////////////////////////////////////////
// Listing
// ///////////////////////////////////////////////

// ListImages returns the sorted image file names in dir. A missing dir
// yields an empty list.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list images: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}

// IsImage reports whether name carries an accepted image extension.
func IsImage(name string) bool {
	ok, err := doublestar.Match(ImagePattern, strings.ToLower(name))
	return err == nil && ok
}

// KeyOf strips the extension from a file name.
func KeyOf(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// collect appends the images of dir to out, skipping keys already in seen.
func collect(out []Entry, seen map[string]bool, dir string) ([]Entry, error) {
	names, err := ListImages(dir)
	if err != nil {
		return out, err
	}
	for _, name := range names {
		key := KeyOf(name)
		if seen[key] {
			slog.Debug("skipping shadowed image", "path", filepath.Join(dir, name), "key", key)
			continue
		}
		seen[key] = true
		out = append(out, Entry{Name: name, Key: key, Path: filepath.Join(dir, name)})
	}
	return out, nil
}

// Portraits returns the portraits of character id in file-name order.
// When two files share a key (smile.png, smile.jpg) the first one wins.
func Portraits(dir paths.AssetDir, id string) ([]Entry, error) {
	return collect(nil, map[string]bool{}, dir.Portraits(id))
}

// Backgrounds returns the backgrounds available to character id: the
// character's own directory first, then the common pool. The first occurrence
// of a key wins, so a character background shadows a common one.
func Backgrounds(dir paths.AssetDir, id string) ([]Entry, error) {
	seen := map[string]bool{}
	out, err := collect(nil, seen, dir.Backgrounds(id))
	if err != nil {
		return nil, err
	}
	return collect(out, seen, dir.CommonBackgrounds())
}

// Keys returns the keys of entries in order.
func Keys(entries []Entry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

// Find returns the entry with key, if present.
func Find(entries []Entry, key string) (Entry, bool) {
	i := slices.IndexFunc(entries, func(e Entry) bool { return e.Key == key })
	if i < 0 {
		return Entry{}, false
	}
	return entries[i], true
}
