package render

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	sfnt "github.com/tdewolff/font"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"tools.zach/dev/galcard/internal/paths"
)

// BuiltinFont is the path key under which the embedded fallback face is memoized.
const BuiltinFont = "<builtin>"

// ///////////////////////////////////////////////
// Font Set
// ///////////////////////////////////////////////

type faceKey struct {
	size int
	path string
}

// FontSet resolves font file names for one character and memoizes parsed
// fonts by path and faces by (size, path).
//
// Lookup order for a name: an absolute path, the character directory, the
// shared fonts directory, then the configured default font in the shared fonts
// directory, then the built-in face.
type FontSet struct {
	dir         paths.AssetDir
	charRoot    string
	defaultFont string

	fonts map[string]*opentype.Font
	faces map[faceKey]font.Face
}

// NewFontSet returns a FontSet for the character rooted at charRoot.
// defaultFont is a file name inside the shared fonts directory.
func NewFontSet(dir paths.AssetDir, charRoot, defaultFont string) *FontSet {
	return &FontSet{
		dir:         dir,
		charRoot:    charRoot,
		defaultFont: defaultFont,
		fonts:       map[string]*opentype.Font{},
		faces:       map[faceKey]font.Face{},
	}
}

// Resolve returns the file to load for name, or [BuiltinFont] when nothing
// on disk matches.
func (fs *FontSet) Resolve(name string) string {
	var candidates []string
	if name != "" {
		if filepath.IsAbs(name) {
			candidates = append(candidates, name)
		} else {
			candidates = append(candidates,
				filepath.Join(fs.charRoot, name),
				filepath.Join(fs.dir.CommonFonts(), name),
			)
		}
	}
	if fs.defaultFont != "" {
		candidates = append(candidates, filepath.Join(fs.dir.CommonFonts(), fs.defaultFont))
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return BuiltinFont
}

// Face returns the face for name at size pixels. A font that fails to parse
// is logged and replaced by the built-in face.
func (fs *FontSet) Face(name string, size int) font.Face {
	path := fs.Resolve(name)
	key := faceKey{size: size, path: path}
	if face, ok := fs.faces[key]; ok {
		return face
	}

	face, err := fs.newFace(path, size)
	if err != nil {
		slog.Warn("falling back to built-in font", "path", path, "error", err)
		if face, err = fs.newFace(BuiltinFont, size); err != nil {
			// goregular is embedded and always parses.
			panic(err)
		}
	}
	fs.faces[key] = face
	return face
}

func (fs *FontSet) newFace(path string, size int) (font.Face, error) {
	f, err := fs.font(path)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face %s@%d: %w", path, size, err)
	}
	return face, nil
}

func (fs *FontSet) font(path string) (*opentype.Font, error) {
	if f, ok := fs.fonts[path]; ok {
		return f, nil
	}
	var data []byte
	if path == BuiltinFont {
		data = goregular.TTF
	} else {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read font: %w", err)
		}
		if data, err = toSFNT(raw); err != nil {
			return nil, err
		}
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	fs.fonts[path] = f
	return f, nil
}

// Close releases every memoized face.
func (fs *FontSet) Close() error {
	var errs []error
	for key, face := range fs.faces {
		if err := face.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(fs.faces, key)
	}
	return errors.Join(errs...)
}

// toSFNT converts WOFF and WOFF2 data to plain SFNT; anything else is
// returned unchanged.
func toSFNT(data []byte) ([]byte, error) {
	if !isWOFF(data) {
		return data, nil
	}
	out, err := sfnt.ToSFNT(data)
	if err != nil {
		return nil, fmt.Errorf("convert woff to sfnt: %w", err)
	}
	return out, nil
}

// isWOFF checks the WOFF ("wOFF") and WOFF2 ("wOF2") magic bytes.
func isWOFF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("wOFF")) || bytes.HasPrefix(data, []byte("wOF2"))
}
