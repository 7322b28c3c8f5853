package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single settings field.
// The genconfig tool uses [FieldDoc] values to annotate the generated settings.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example settings.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// SettingsDocs maps TOML field paths (dot-separated, e.g. "render.cache_format")
// to their [FieldDoc] entries.
var SettingsDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Settings schema version. Do not edit.",
	},

	// ── Render ───────────────────────────────────────────────────
	"render.canvas_size": {
		Comment: "Output resolution [width, height].\nChanging it invalidates every character cache and re-scales stored layouts.",
		Alternatives: []string{
			"canvas_size = [1920, 1080]",
			"canvas_size = [1280, 720]",
		},
	},
	"render.cache_format": {
		Comment: "Pixel format of pre-rendered base canvases.\njpeg is smaller; png is lossless.",
		Alternatives: []string{`cache_format = "png"`},
	},
	"render.jpeg_quality": {
		Comment: "Encoder quality for jpeg caches (1-100).",
	},
	"render.use_memory_canvas_cache": {
		Comment: "Keep resolved base canvases in memory for the lifetime of a renderer.",
	},

	// ── Fonts ────────────────────────────────────────────────────
	"fonts.default_font": {
		Comment: "Font file looked up in common/fonts when a character names none.\nA built-in font is used if it cannot be found.",
	},

	// ── Watch ────────────────────────────────────────────────────
	"watch.debounce_ms": {
		Comment: "Quiet period before a burst of asset changes triggers a rebuild.",
	},
	"watch.poll_interval_seconds": {
		Comment: "Polling period used when filesystem notifications are unavailable.",
	},

	// ── Log ──────────────────────────────────────────────────────
	"log.level": {
		Comment:      "Minimum log level.",
		Alternatives: []string{`level = "debug"`, `level = "trace"`},
	},
	"log.max_size_mb": {
		Comment: "Rotate galcard.log after this many megabytes.",
	},
}
