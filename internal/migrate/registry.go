package migrate

import "fmt"

// Registry holds the version and migrations for a single document kind
// (settings TOML, character config). Each kind gets its own instance so that
// version numbers and migration lists are fully independent.
type Registry struct {
	// Name labels the document kind in errors.
	Name string
	// CurrentVersion is the latest schema version that this registry targets.
	CurrentVersion int
	// Migrations is the list of versioned upgrades. Exported so tests can
	// override the migration list for a given registry instance.
	Migrations []Migration
}

// Register appends a migration to the registry. It panics if a migration
// with the same version is already registered, preventing silent conflicts.
func (r *Registry) Register(m Migration) {
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: duplicate %s migration version %d (description: %q)", r.Name, m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
}

// NeedsMigration reports whether a document at fileVersion would be upgraded.
func (r *Registry) NeedsMigration(fileVersion int) bool {
	return NeedsMigration(fileVersion, r.CurrentVersion, r.Migrations)
}

// Upgrade brings data from fileVersion up to the registry's current version.
// changed reports whether any migration ran.
func (r *Registry) Upgrade(data []byte, fileVersion int) (out []byte, changed bool, err error) {
	if !r.NeedsMigration(fileVersion) {
		return data, false, nil
	}
	out, version, err := Run(data, fileVersion, r.Migrations)
	if err != nil {
		return nil, false, fmt.Errorf("upgrade %s: %w", r.Name, err)
	}
	if version > r.CurrentVersion {
		return nil, false, fmt.Errorf("upgrade %s: reached v%d beyond current v%d", r.Name, version, r.CurrentVersion)
	}
	return out, true, nil
}

// Settings is the migration registry for settings.toml files.
var Settings = &Registry{Name: "settings", CurrentVersion: 1}

// Character is the migration registry for per-character config documents.
// Version 2 nests the flat basic style keys under style.basic.
var Character = &Registry{Name: "character config", CurrentVersion: 2}
