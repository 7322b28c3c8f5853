// Package main implements the galcard command, which prebuilds per-character
// base-canvas caches and renders dialogue cards from them.
//
// Usage:
//
//	galcard [-assets DIR] [-v] <command> [flags]
//
// Commands:
//
//	prebuild  build the base-canvas cache of one or all characters
//	render    render a card to a PNG file
//	watch     rebuild a character's cache whenever its assets change
//	sync      repair stale references in character configs
//	meta      show a character's cache metadata and composites
//	version   print the build version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	rootpkg "tools.zach/dev/galcard"
	"tools.zach/dev/galcard/internal/cache"
	"tools.zach/dev/galcard/internal/character"
	"tools.zach/dev/galcard/internal/config"
	"tools.zach/dev/galcard/internal/imaging"
	"tools.zach/dev/galcard/internal/logger"
	"tools.zach/dev/galcard/internal/paths"
	"tools.zach/dev/galcard/internal/prebuild"
	"tools.zach/dev/galcard/internal/render"
	"tools.zach/dev/galcard/internal/watch"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags (-X main.version=0.1.0). Bare
// builds fall back to the VCS revision embedded by the toolchain.
var version = "dev"

// resolveVersion returns [version] when set via ldflags, else "dev+<hash>"
// with a ".dirty" suffix for modified trees.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Environment
// ///////////////////////////////////////////////

// env carries what every command needs.
type env struct {
	dir      paths.AssetDir
	settings *config.Settings
	stdout   io.Writer
	stderr   io.Writer
}

// errUsage marks a bad command line; run exits 2 for it.
var errUsage = errors.New("usage")

// setup creates the asset root, seeds settings.toml on first run, loads the
// settings, and installs the default logger. The returned closer flushes the
// log file.
func setup(root string, verbose bool, stderr io.Writer) (*env, io.Closer, error) {
	dir := paths.AssetDir{Root: root}
	if err := os.MkdirAll(dir.Root, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create asset dir: %w", err)
	}

	if _, err := os.Stat(dir.Settings()); errors.Is(err, os.ErrNotExist) {
		if writeErr := os.WriteFile(dir.Settings(), rootpkg.DefaultSettingsTOML, 0o644); writeErr != nil {
			fmt.Fprintf(stderr, "warning: failed to write default settings: %v\n", writeErr)
		}
	}

	settings, err := config.Load(dir.Settings())
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}

	opts := logger.Options{
		Path:      dir.Log(),
		Level:     logger.ParseLevel(settings.Log.Level),
		MaxSizeMB: settings.Log.MaxSizeMB,
	}
	if verbose {
		opts.Mirror = stderr
	}
	log, closer := logger.NewLogger(opts)
	slog.SetDefault(log)

	return &env{dir: dir, settings: settings, stderr: stderr}, closer, nil
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses global flags, dispatches the command, and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(paths.BinaryName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	assetsDir := fs.String("assets", paths.DefaultRootRel, "Asset root containing characters/, common/, and cache/")
	verbose := fs.Bool("v", false, "Mirror log output to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: galcard [-assets DIR] [-v] <prebuild|render|watch|sync|meta|version> [flags]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	name, rest := fs.Arg(0), fs.Args()[1:]
	if name == "version" {
		fmt.Fprintln(stdout, resolveVersion())
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		fs.Usage()
		return 2
	}

	e, closer, err := setup(*assetsDir, *verbose, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "fatal: %v\n", err)
		return 1
	}
	defer closer.Close()
	e.stdout = stdout
	slog.Debug("galcard starting", "version", resolveVersion(), "command", name, "assets", e.dir.Root)

	if err := cmd(e, rest); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			return 2
		}
		slog.Error("command failed", "command", name, "error", err)
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

var commands = map[string]func(*env, []string) error{
	"prebuild": cmdPrebuild,
	"render":   cmdRender,
	"watch":    cmdWatch,
	"sync":     cmdSync,
	"meta":     cmdMeta,
}

// newFlags returns a flag set that reports errors through the command's
// stderr instead of exiting.
func (e *env) newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

// parse parses args and wraps failures as errUsage.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// printer returns a progress callback writing each event as a line to w.
func printer(w io.Writer) prebuild.ProgressFunc {
	return func(ev prebuild.Event) { fmt.Fprintln(w, ev.String()) }
}

// ///////////////////////////////////////////////
// prebuild
// ///////////////////////////////////////////////

func cmdPrebuild(e *env, args []string) error {
	fs := e.newFlags("prebuild")
	id := fs.String("char", "", "Character id")
	all := fs.Bool("all", false, "Build every character")
	force := fs.Bool("force", false, "Rebuild even when the cache is complete")
	quiet := fs.Bool("q", false, "Suppress progress output")
	if err := parse(fs, args); err != nil {
		return err
	}

	var ids []string
	switch {
	case *all:
		list, err := character.List(e.dir)
		if err != nil {
			return err
		}
		ids = list
	case *id != "":
		ids = []string{*id}
	default:
		fmt.Fprintln(e.stderr, "prebuild: -char or -all is required")
		return errUsage
	}

	var progress prebuild.ProgressFunc
	if !*quiet {
		progress = printer(e.stdout)
	}

	ctx, stop := signalContext(context.Background())
	defer stop()

	b := prebuild.New(e.dir, e.settings.Runtime())
	var errs []error
	for _, id := range ids {
		res, err := b.EnsureCache(ctx, id, *force, progress)
		if err != nil {
			// One character's failure does not stop the others.
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		if res.Status == prebuild.StatusFailed {
			fmt.Fprintf(e.stdout, "%s: not built: %v\n", id, res.Reason)
			continue
		}
		fmt.Fprintf(e.stdout, "%s: %s (%d composites)\n", id, res.Status, res.Composites)
	}
	return errors.Join(errs...)
}

// ///////////////////////////////////////////////
// render
// ///////////////////////////////////////////////

func cmdRender(e *env, args []string) error {
	fs := e.newFlags("render")
	id := fs.String("char", "", "Character id")
	text := fs.String("text", "", "Dialogue text; \\n breaks are honored")
	portrait := fs.String("portrait", "", "Portrait key (default: first)")
	index := fs.Int("portrait-index", 0, "Portrait by 1-based position in key order")
	background := fs.String("background", "", "Background key (default: first)")
	speaker := fs.String("speaker", "", "Speaker name (default: the character's name)")
	noSpeaker := fs.Bool("no-speaker", false, "Draw no speaker name")
	ensure := fs.Bool("ensure", false, "Build the character's cache first if it is incomplete")
	out := fs.String("out", "card.png", "Output PNG path")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		fmt.Fprintln(e.stderr, "render: -char is required")
		return errUsage
	}

	settings := e.settings.Runtime()
	if *ensure {
		if _, err := prebuild.New(e.dir, settings).EnsureCharacterCache(context.Background(), *id, nil); err != nil {
			slog.Warn("cache build failed, rendering on demand", "character", *id, "error", err)
		}
	}

	r, err := render.New(e.dir, *id, settings)
	if err != nil {
		return err
	}
	defer r.Close()

	opts := []render.Option{render.WithBackground(*background)}
	switch {
	case *index > 0:
		key, err := r.PortraitByIndex(*index)
		if err != nil {
			return err
		}
		opts = append(opts, render.WithPortrait(key))
	default:
		opts = append(opts, render.WithPortrait(*portrait))
	}
	switch {
	case *noSpeaker:
		opts = append(opts, render.WithSpeaker(""))
	case *speaker != "":
		opts = append(opts, render.WithSpeaker(*speaker))
	}

	card, err := r.Render(unescape(*text), opts...)
	if err != nil {
		return err
	}
	if err := imaging.Save(*out, card, config.FormatPNG, 0); err != nil {
		return fmt.Errorf("write card: %w", err)
	}
	fmt.Fprintln(e.stdout, *out)
	return nil
}

// unescape turns the two-character sequence \n into a newline so multi-line
// text can be passed on one shell line.
func unescape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == 'n' {
			out = append(out, '\n')
			i++
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

// ///////////////////////////////////////////////
// watch
// ///////////////////////////////////////////////

func cmdWatch(e *env, args []string) error {
	fs := e.newFlags("watch")
	id := fs.String("char", "", "Character id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		fmt.Fprintln(e.stderr, "watch: -char is required")
		return errUsage
	}

	ctx, stop := signalContext(context.Background())
	defer stop()

	poll := time.Duration(e.settings.Watch.PollIntervalSeconds) * time.Second
	debounce := time.Duration(e.settings.Watch.DebounceMS) * time.Millisecond

	w, err := watch.ForCharacter(e.dir, *id, poll)
	if err != nil {
		return err
	}
	defer w.Close()
	if w.Polling() {
		slog.Info("using polling mode for asset watching")
	}

	b := prebuild.New(e.dir, e.settings.Runtime())
	progress := printer(e.stdout)
	build := func() {
		if _, err := b.EnsureCache(ctx, *id, false, progress); err != nil && ctx.Err() == nil {
			slog.Error("rebuild failed", "character", *id, "error", err)
			fmt.Fprintf(e.stderr, "error: %v\n", err)
		}
	}

	build()
	slog.Info("watching assets", "character", *id)
	watch.Debounce(ctx, w.Events(), debounce, build)
	slog.Info("received shutdown signal")
	return nil
}

// ///////////////////////////////////////////////
// sync
// ///////////////////////////////////////////////

func cmdSync(e *env, args []string) error {
	fs := e.newFlags("sync")
	id := fs.String("char", "", "Character id (default: all)")
	if err := parse(fs, args); err != nil {
		return err
	}

	ids := []string{*id}
	if *id == "" {
		list, err := character.List(e.dir)
		if err != nil {
			return err
		}
		ids = list
	}

	var errs []error
	for _, id := range ids {
		res, err := character.Repair(e.dir, id)
		if err != nil {
			if errors.Is(err, character.ErrConfigNotFound) {
				fmt.Fprintf(e.stdout, "%s: no config\n", id)
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		if !res.Saved {
			fmt.Fprintf(e.stdout, "%s: ok\n", id)
			continue
		}
		fmt.Fprintf(e.stdout, "%s: saved\n", id)
		for _, fix := range res.Fixes {
			fmt.Fprintf(e.stdout, "  %s\n", fix)
		}
	}
	return errors.Join(errs...)
}

// ///////////////////////////////////////////////
// meta
// ///////////////////////////////////////////////

func cmdMeta(e *env, args []string) error {
	fs := e.newFlags("meta")
	id := fs.String("char", "", "Character id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		fmt.Fprintln(e.stderr, "meta: -char is required")
		return errUsage
	}

	store := cache.NewStore(e.dir, e.settings.Runtime())
	meta, ok := store.ReadMeta(*id)
	if !ok {
		fmt.Fprintf(e.stdout, "%s: no cache metadata\n", *id)
	} else {
		fmt.Fprintf(e.stdout, "signature:   %s\n", meta.SourceSignature)
		fmt.Fprintf(e.stdout, "canvas:      %dx%d\n", meta.CanvasSize[0], meta.CanvasSize[1])
		fmt.Fprintf(e.stdout, "format:      %s\n", meta.CacheFormat)
		fmt.Fprintf(e.stdout, "portraits:   %d\n", meta.PortraitCount)
		fmt.Fprintf(e.stdout, "backgrounds: %d\n", meta.BackgroundCount)
	}

	in, err := store.Inputs(*id)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "complete:    %t\n", store.IsComplete(*id, in))

	names, err := store.Composites(*id)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintf(e.stdout, "  %s\n", name)
	}
	return nil
}
