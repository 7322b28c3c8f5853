// Package prebuild renders every (portrait, background) base canvas of a
// character into the on-disk cache and records fresh metadata once the whole
// cross product is written.
package prebuild

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"tools.zach/dev/galcard/internal/buildlock"
	"tools.zach/dev/galcard/internal/cache"
	"tools.zach/dev/galcard/internal/character"
	"tools.zach/dev/galcard/internal/compose"
	"tools.zach/dev/galcard/internal/config"
	"tools.zach/dev/galcard/internal/imaging"
	"tools.zach/dev/galcard/internal/paths"
	"tools.zach/dev/galcard/internal/prescale"
)

// Reasons a build is abandoned without an error. They leave any previous
// cache untouched.
var (
	ErrNoPortraits      = errors.New("character has no portraits")
	ErrNoBackgrounds    = errors.New("no backgrounds available")
	ErrDialogBoxMissing = errors.New("dialog box image missing")
)

// Status is the outcome of [Builder.EnsureCache].
type Status string

const (
	StatusBuilt   Status = "built"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result describes a finished EnsureCache call.
type Result struct {
	Status Status
	// Composites is the number of canvases written.
	Composites int
	// Reason explains a failed status: ErrNoPortraits, ErrNoBackgrounds,
	// ErrDialogBoxMissing, or character.ErrConfigNotFound.
	Reason error
}

// Builder builds character caches for one set of render settings. Builds of
// the same character are serialized through a lock file; a concurrent build
// gets [buildlock.ErrLocked].
type Builder struct {
	dir      paths.AssetDir
	settings config.RenderSettings
	store    *cache.Store
	bg       *prescale.Preparer
}

// New returns a Builder for the asset tree at dir.
func New(dir paths.AssetDir, settings config.RenderSettings) *Builder {
	return &Builder{
		dir:      dir,
		settings: settings,
		store:    cache.NewStore(dir, settings),
		bg:       prescale.New(dir, settings.Canvas),
	}
}

// Store returns the cache store the builder writes to.
func (b *Builder) Store() *cache.Store { return b.store }

// ///////////////////////////////////////////////
// EnsureCache
// ///////////////////////////////////////////////

// EnsureCache makes the cache of character id complete and current. Unless
// force is set, a cache that already matches the sources is left alone after
// a metadata check. Missing configuration (no config, portraits, backgrounds,
// or dialog box) is reported through progress and Result.Reason with a nil
// error. Decode and write failures are returned; metadata is written only
// after every composite succeeds, so a failed build never looks complete.
func (b *Builder) EnsureCache(ctx context.Context, id string, force bool, progress ProgressFunc) (Result, error) {
	n := notifier{fn: progress, id: id}
	log := slog.With("character", id)
	n.emit(EventStart, 0, 0, "building cache for %s", id)

	fail := func(reason error) (Result, error) {
		log.Warn("cache build skipped", "reason", reason)
		n.emit(EventError, 0, 0, "%v", reason)
		return Result{Status: StatusFailed, Reason: reason}, nil
	}

	profile, err := character.Load(b.dir, id, b.settings.Canvas)
	if errors.Is(err, character.ErrConfigNotFound) {
		return fail(err)
	}
	if err != nil {
		n.emit(EventError, 0, 0, "%v", err)
		return Result{Status: StatusFailed}, fmt.Errorf("load character: %w", err)
	}

	in, err := b.store.Inputs(id)
	if err != nil {
		n.emit(EventError, 0, 0, "%v", err)
		return Result{Status: StatusFailed}, fmt.Errorf("list sources: %w", err)
	}
	switch {
	case len(in.Portraits) == 0:
		return fail(ErrNoPortraits)
	case len(in.Backgrounds) == 0:
		return fail(ErrNoBackgrounds)
	}
	if !force && b.store.IsComplete(id, in) {
		return b.skip(id, n)
	}

	boxPath := profile.DialogBoxPath()
	if _, err := os.Stat(boxPath); err != nil {
		return fail(fmt.Errorf("%w: %s", ErrDialogBoxMissing, boxPath))
	}

	lock, err := buildlock.Acquire(b.dir.BuildLock(id))
	if err != nil {
		n.emit(EventError, 0, 0, "%v", err)
		return Result{Status: StatusFailed}, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warn("failed to release build lock", "error", err)
		}
	}()

	// A concurrent build may have finished between the first check and the
	// lock.
	if !force && b.store.IsComplete(id, in) {
		return b.skip(id, n)
	}

	// Captured before any composite is written: sources edited mid-build
	// leave the stored signature stale.
	meta := b.store.Expected(in)

	rawBox, err := imaging.Load(boxPath)
	if err != nil {
		n.emit(EventError, 0, 0, "%v", err)
		return Result{Status: StatusFailed}, fmt.Errorf("load dialog box: %w", err)
	}
	scene := compose.NewScene(profile.Layout, rawBox)

	backgrounds, err := b.bg.Prepare(id, in.Backgrounds, func(cur, total int, name string) {
		if cur == 0 {
			n.emit(EventPrepareBG, cur, total, "preparing backgrounds")
			return
		}
		n.emit(EventPrepareBG, cur, total, "prepared %s", name)
	})
	if err != nil {
		n.emit(EventError, 0, 0, "%v", err)
		return Result{Status: StatusFailed}, fmt.Errorf("prepare backgrounds: %w", err)
	}

	total := len(in.Portraits) * len(in.Backgrounds)
	count := 0
	n.emit(EventComposite, 0, total, "compositing %d canvases", total)
	log.Info("building cache", "portraits", len(in.Portraits), "backgrounds", len(in.Backgrounds), "force", force)

	for _, p := range in.Portraits {
		raw, err := imaging.Load(p.Path)
		if err != nil {
			n.emit(EventError, count, total, "%v", err)
			return Result{Status: StatusFailed, Composites: count}, fmt.Errorf("load portrait: %w", err)
		}
		portrait := scene.PreparePortrait(raw)

		for _, bg := range in.Backgrounds {
			if err := ctx.Err(); err != nil {
				n.emit(EventError, count, total, "build cancelled")
				return Result{Status: StatusFailed, Composites: count}, err
			}
			canvas := scene.Composite(backgrounds[bg.Key], portrait)
			path := b.store.CompositePath(id, p.Key, bg.Key)
			if err := imaging.Save(path, canvas, b.settings.Format, b.settings.JPEGQuality); err != nil {
				n.emit(EventError, count, total, "%v", err)
				return Result{Status: StatusFailed, Composites: count}, err
			}
			count++
			n.emit(EventComposite, count, total, "wrote %s", paths.CompositeName(p.Key, bg.Key, b.settings.Format.Ext()))
		}
	}

	if err := b.store.WriteMeta(id, meta); err != nil {
		n.emit(EventError, count, total, "%v", err)
		return Result{Status: StatusFailed, Composites: count}, err
	}
	log.Info("cache built", "composites", count)
	n.emit(EventDone, count, total, "%s cache complete", id)
	return Result{Status: StatusBuilt, Composites: count}, nil
}

// skip reports an up-to-date cache.
func (b *Builder) skip(id string, n notifier) (Result, error) {
	slog.Debug("cache up to date", "character", id)
	n.emit(EventSkip, 0, 0, "cache for %s is up to date", id)
	return Result{Status: StatusSkipped}, nil
}

// EnsureCharacterCache is the startup path: it returns at once when the cache
// is complete and otherwise forces a full rebuild.
func (b *Builder) EnsureCharacterCache(ctx context.Context, id string, progress ProgressFunc) (Result, error) {
	in, err := b.store.Inputs(id)
	if err != nil {
		return Result{Status: StatusFailed}, fmt.Errorf("list sources: %w", err)
	}
	if b.store.IsComplete(id, in) {
		return Result{Status: StatusSkipped}, nil
	}
	return b.EnsureCache(ctx, id, true, progress)
}
