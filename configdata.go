// Package galcard provides embedded assets for the galcard renderer.
//
// The root package exists solely to embed [settings.default.toml] via
// [DefaultSettingsTOML], which the CLI writes to the asset root on first run.
package galcard

import _ "embed"

// DefaultSettingsTOML holds the raw bytes of settings.default.toml, embedded
// at build time.
//
//go:embed settings.default.toml
var DefaultSettingsTOML []byte
