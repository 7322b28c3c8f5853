package layout

import (
	"image/color"
	"maps"
	"slices"
	"strings"
)

// ///////////////////////////////////////////////
// Style Types
// ///////////////////////////////////////////////

// Mode selects how the speaker name is drawn.
type Mode string

const (
	ModeBasic    Mode = "basic"
	ModeAdvanced Mode = "advanced"
)

// WrapperType selects where the dialogue prefix/suffix come from.
type WrapperType string

const (
	WrapperNone   WrapperType = "none"
	WrapperPreset WrapperType = "preset"
	WrapperCustom WrapperType = "custom"
)

// Wrapper presets.
const (
	PresetCornerSingle = "corner_single" // 「」
	PresetCornerDouble = "corner_double" // 『』
)

// DefaultLayerKey is the name_layers entry used when no entry matches the speaker.
const DefaultLayerKey = "default"

// NamePlaceholder is substituted with the speaker name in layer templates.
const NamePlaceholder = "{name}"

// RGB is a 3-component byte color.
type RGB struct {
	R, G, B uint8
}

// NRGBA returns the opaque color.
func (c RGB) NRGBA() color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255} }

// TextWrapper frames the dialogue text. Prefix and Suffix are already
// resolved from Type and Preset.
type TextWrapper struct {
	Type   WrapperType
	Preset string
	Prefix string
	Suffix string
}

// BasicStyle holds the single-line name and dialogue settings.
type BasicStyle struct {
	FontSize     int
	NameFontSize int
	TextColor    RGB
	NameColor    RGB
}

// NameLayer is one text layer of an advanced name plate.
type NameLayer struct {
	// Offset is relative to the layout's name position.
	Offset Point
	// FontFile overrides the name font for this layer; empty uses the style's.
	FontFile string
	FontSize int
	Color    RGB
	// Text is a template; [NamePlaceholder] is replaced with the speaker name.
	Text string
}

// Render returns the layer's text for speaker.
func (l NameLayer) Render(speaker string) string {
	return strings.ReplaceAll(l.Text, NamePlaceholder, speaker)
}

// Style is the fully defaulted text style of a character.
type Style struct {
	Mode         Mode
	Wrapper      TextWrapper
	Basic        BasicStyle
	NameLayers   map[string][]NameLayer
	FontFile     string
	NameFontFile string
}

// Defaults applied by [NormalizeStyle].
var (
	DefaultBasic = BasicStyle{
		FontSize:     40,
		NameFontSize: 32,
		TextColor:    RGB{R: 255, G: 255, B: 255},
		NameColor:    RGB{R: 255, G: 85, B: 255},
	}
	defaultWrapper = TextWrapper{Type: WrapperNone, Preset: PresetCornerSingle}
)

// LayersFor returns the advanced layers for speaker, falling back to the
// [DefaultLayerKey] entry. ok is false when the style is not advanced or no
// entry applies.
func (s Style) LayersFor(speaker string) (layers []NameLayer, ok bool) {
	if s.Mode != ModeAdvanced {
		return nil, false
	}
	if layers, ok := s.NameLayers[speaker]; ok {
		return layers, true
	}
	layers, ok = s.NameLayers[DefaultLayerKey]
	return layers, ok
}

// Wrap applies the wrapper around text. An empty text with a configured
// wrapper yields just the bracket pair.
func (s Style) Wrap(text string) string {
	if s.Wrapper.Prefix == "" && s.Wrapper.Suffix == "" {
		return text
	}
	return s.Wrapper.Prefix + text + s.Wrapper.Suffix
}

// ///////////////////////////////////////////////
// NormalizeStyle
// ///////////////////////////////////////////////

// NormalizeStyle fills every missing style field from its default, coerces
// colors to byte triples and font sizes to positive integers, and resolves the
// wrapper's effective prefix/suffix. Flat legacy keys at the top level
// (font_size, text_color, ...) are honored when the basic block lacks them.
func NormalizeStyle(raw map[string]any) Style {
	if raw == nil {
		raw = map[string]any{}
	}
	s := Style{
		Mode:       ModeBasic,
		Wrapper:    defaultWrapper,
		Basic:      DefaultBasic,
		NameLayers: map[string][]NameLayer{},
	}

	if m, ok := raw["mode"].(string); ok {
		switch Mode(strings.ToLower(m)) {
		case ModeBasic:
			s.Mode = ModeBasic
		case ModeAdvanced:
			s.Mode = ModeAdvanced
		}
	}

	s.Wrapper = normalizeWrapper(asMap(raw["text_wrapper"]))

	basic := asMap(raw["basic"])
	lookup := func(key string) any {
		if v, ok := basic[key]; ok {
			return v
		}
		return raw[key]
	}
	s.Basic.FontSize = coerceSize(lookup("font_size"), DefaultBasic.FontSize)
	s.Basic.NameFontSize = coerceSize(lookup("name_font_size"), DefaultBasic.NameFontSize)
	s.Basic.TextColor = coerceColor(lookup("text_color"), DefaultBasic.TextColor)
	s.Basic.NameColor = coerceColor(lookup("name_color"), DefaultBasic.NameColor)

	s.FontFile, _ = raw["font_file"].(string)
	s.NameFontFile, _ = raw["name_font_file"].(string)

	layers := asMap(asMap(raw["advanced"])["name_layers"])
	for _, speaker := range slices.Sorted(maps.Keys(layers)) {
		list, ok := layers[speaker].([]any)
		if !ok {
			continue
		}
		out := make([]NameLayer, 0, len(list))
		for _, item := range list {
			out = append(out, normalizeLayer(asMap(item), s.Basic))
		}
		s.NameLayers[speaker] = out
	}
	return s
}

// Raw converts s back to its document form.
func (s Style) Raw() map[string]any {
	layers := map[string]any{}
	for speaker, list := range s.NameLayers {
		items := make([]any, 0, len(list))
		for _, l := range list {
			items = append(items, map[string]any{
				"offset":    []any{l.Offset.X, l.Offset.Y},
				"font_file": l.FontFile,
				"font_size": l.FontSize,
				"color":     rawColor(l.Color),
				"text":      l.Text,
			})
		}
		layers[speaker] = items
	}
	raw := map[string]any{
		"mode": string(s.Mode),
		"text_wrapper": map[string]any{
			"type":   string(s.Wrapper.Type),
			"preset": s.Wrapper.Preset,
			"prefix": s.Wrapper.Prefix,
			"suffix": s.Wrapper.Suffix,
		},
		"basic": map[string]any{
			"font_size":      s.Basic.FontSize,
			"name_font_size": s.Basic.NameFontSize,
			"text_color":     rawColor(s.Basic.TextColor),
			"name_color":     rawColor(s.Basic.NameColor),
		},
		"advanced": map[string]any{"name_layers": layers},
	}
	if s.FontFile != "" {
		raw["font_file"] = s.FontFile
	}
	if s.NameFontFile != "" {
		raw["name_font_file"] = s.NameFontFile
	}
	return raw
}

func normalizeWrapper(src map[string]any) TextWrapper {
	w := defaultWrapper
	if t, ok := src["type"].(string); ok {
		switch WrapperType(t) {
		case WrapperNone, WrapperPreset, WrapperCustom:
			w.Type = WrapperType(t)
		}
	}
	if p, ok := src["preset"].(string); ok {
		w.Preset = p
	}
	if p, ok := src["prefix"].(string); ok {
		w.Prefix = p
	}
	if p, ok := src["suffix"].(string); ok {
		w.Suffix = p
	}
	switch w.Type {
	case WrapperPreset:
		w.Prefix, w.Suffix = presetTokens(w.Preset)
	case WrapperNone:
		w.Prefix, w.Suffix = "", ""
	}
	return w
}

// presetTokens maps a preset name to its bracket pair. Unknown presets use
// the single corner brackets.
func presetTokens(preset string) (prefix, suffix string) {
	if preset == PresetCornerDouble {
		return "『", "』"
	}
	return "「", "」"
}

func normalizeLayer(src map[string]any, basic BasicStyle) NameLayer {
	l := NameLayer{
		FontSize: coerceSize(src["font_size"], basic.NameFontSize),
		Color:    coerceColor(src["color"], basic.NameColor),
		Text:     NamePlaceholder,
	}
	if p, ok := parsePoint(src["offset"]); ok {
		l.Offset = Point{X: truncate(p[0]), Y: truncate(p[1])}
	}
	l.FontFile, _ = src["font_file"].(string)
	if t, ok := src["text"].(string); ok {
		l.Text = t
	}
	return l
}

// ///////////////////////////////////////////////
// Coercion Helpers
// ///////////////////////////////////////////////

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// coerceSize returns a positive integer or fallback.
func coerceSize(v any, fallback int) int {
	if n, ok := toInt(v); ok && n > 0 {
		return n
	}
	return fallback
}

// coerceColor accepts exactly three numbers, clamping each into [0, 255].
func coerceColor(v any, fallback RGB) RGB {
	n, ok := numbers(v, "r", "g", "b")
	if !ok {
		return fallback
	}
	c := func(f float64) uint8 { return uint8(clamp(truncate(f), 0, 255)) }
	return RGB{R: c(n[0]), G: c(n[1]), B: c(n[2])}
}

func rawColor(c RGB) []any { return []any{int(c.R), int(c.G), int(c.B)} }
