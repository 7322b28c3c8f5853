// Package paths centralizes file and directory names used across the project.
// All asset-tree names are defined here as the single source of truth; every
// other package builds paths through [AssetDir].
package paths

import (
	"fmt"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Asset tree directory and file names.
const (
	CharactersDir  = "characters"
	CommonDir      = "common"
	PortraitDir    = "portrait"
	BackgroundDir  = "background"
	FontsDir       = "fonts"
	PreScaledDir   = "pre_scaled"
	CacheDir       = "cache"
	CacheMetaFile  = "_meta.json"
	BuildLockFile  = ".build.lock"
	SettingsFile   = "settings.toml"
	LogFile        = "galcard.log"
	DefaultBoxFile = "textbox_bg.png"
)

// ConfigFiles lists the accepted character config document names in lookup
// order. The first one present on disk wins.
var ConfigFiles = []string{"config.json", "config.toml"}

// Binary and default root names.
const (
	BinaryName     = "galcard"
	DefaultRootRel = "assets"
)

// ///////////////////////////////////////////////
// Naming Helpers
// ///////////////////////////////////////////////

// ScaledTag returns the resolution tag appended to pre-scaled background names,
// e.g. ScaledTag(2560, 1440) returns "@2560x1440".
func ScaledTag(w, h int) string {
	return fmt.Sprintf("@%dx%d", w, h)
}

// CompositeName returns the cache file name for a (portrait, background) pair.
// ext includes the leading dot, e.g. CompositeName("smile", "park", ".jpg")
// returns "p_smile__b_park.jpg".
func CompositeName(portraitKey, backgroundKey, ext string) string {
	return "p_" + portraitKey + "__b_" + backgroundKey + ext
}

// ///////////////////////////////////////////////
// AssetDir
// ///////////////////////////////////////////////

// AssetDir provides path construction methods rooted at an asset directory.
type AssetDir struct {
	Root string
}

// Settings returns the full path to the global settings file.
func (d AssetDir) Settings() string { return filepath.Join(d.Root, SettingsFile) }

// Log returns the full path to the log file.
func (d AssetDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Characters returns the directory holding every character profile.
func (d AssetDir) Characters() string { return filepath.Join(d.Root, CharactersDir) }

// Character returns the root directory of one character profile.
func (d AssetDir) Character(id string) string { return filepath.Join(d.Root, CharactersDir, id) }

// CharacterFile returns a file path relative to a character root.
func (d AssetDir) CharacterFile(id, name string) string {
	return filepath.Join(d.Character(id), name)
}

// Portraits returns the character's portrait directory.
func (d AssetDir) Portraits(id string) string { return filepath.Join(d.Character(id), PortraitDir) }

// Backgrounds returns the character-specific background directory.
func (d AssetDir) Backgrounds(id string) string {
	return filepath.Join(d.Character(id), BackgroundDir)
}

// CommonBackgrounds returns the shared background pool.
func (d AssetDir) CommonBackgrounds() string {
	return filepath.Join(d.Root, CommonDir, BackgroundDir)
}

// CommonFonts returns the shared font directory.
func (d AssetDir) CommonFonts() string { return filepath.Join(d.Root, CommonDir, FontsDir) }

// PreScaledBackgrounds returns the directory of resolution-tagged backgrounds
// for a character.
func (d AssetDir) PreScaledBackgrounds(id string) string {
	return filepath.Join(d.Root, PreScaledDir, CharactersDir, id, BackgroundDir)
}

// Cache returns the composite cache directory for a character.
func (d AssetDir) Cache(id string) string { return filepath.Join(d.Root, CacheDir, id) }

// CacheMeta returns the metadata file path inside a character's cache.
func (d AssetDir) CacheMeta(id string) string { return filepath.Join(d.Cache(id), CacheMetaFile) }

// Composite returns the full path of one cached composite.
func (d AssetDir) Composite(id, portraitKey, backgroundKey, ext string) string {
	return filepath.Join(d.Cache(id), CompositeName(portraitKey, backgroundKey, ext))
}

// BuildLock returns the lock file used to serialize builds of one character.
func (d AssetDir) BuildLock(id string) string { return filepath.Join(d.Cache(id), BuildLockFile) }
