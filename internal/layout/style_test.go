// Tests for [NormalizeStyle]: defaults, color and size coercion, wrapper
// resolution, legacy flat keys, and advanced name layers.

package layout

import (
	"encoding/json"
	"reflect"
	"testing"
)

func decodeStyle(t *testing.T, doc string) map[string]any {
	t.Helper()
	var raw map[string]any
	if err := json.Unmarshal([]byte(doc), &raw); err != nil {
		t.Fatalf("decode style: %v", err)
	}
	return raw
}

func TestNormalizeStyleDefaults(t *testing.T) {
	s := NormalizeStyle(nil)
	if s.Mode != ModeBasic {
		t.Errorf("Mode = %q, want basic", s.Mode)
	}
	if s.Basic != DefaultBasic {
		t.Errorf("Basic = %+v, want %+v", s.Basic, DefaultBasic)
	}
	if s.Wrapper.Type != WrapperNone || s.Wrapper.Prefix != "" || s.Wrapper.Suffix != "" {
		t.Errorf("Wrapper = %+v", s.Wrapper)
	}
	if s.NameLayers == nil || len(s.NameLayers) != 0 {
		t.Errorf("NameLayers = %v, want empty map", s.NameLayers)
	}
}

func TestNormalizeStyleCoercion(t *testing.T) {
	s := NormalizeStyle(decodeStyle(t, `{
		"mode": "ADVANCED",
		"basic": {
			"font_size": -4,
			"name_font_size": 28.9,
			"text_color": [300, -20, 12.7],
			"name_color": [1, 2]
		}
	}`))
	if s.Mode != ModeAdvanced {
		t.Errorf("Mode = %q, want advanced", s.Mode)
	}
	if s.Basic.FontSize != 40 {
		t.Errorf("FontSize = %d, want default 40", s.Basic.FontSize)
	}
	if s.Basic.NameFontSize != 28 {
		t.Errorf("NameFontSize = %d, want 28", s.Basic.NameFontSize)
	}
	if s.Basic.TextColor != (RGB{R: 255, G: 0, B: 12}) {
		t.Errorf("TextColor = %+v", s.Basic.TextColor)
	}
	if s.Basic.NameColor != DefaultBasic.NameColor {
		t.Errorf("NameColor = %+v, want default", s.Basic.NameColor)
	}
}

func TestNormalizeStyleLegacyFlatKeys(t *testing.T) {
	s := NormalizeStyle(decodeStyle(t, `{"font_size": 50, "text_color": [1, 2, 3]}`))
	if s.Basic.FontSize != 50 || s.Basic.TextColor != (RGB{1, 2, 3}) {
		t.Errorf("Basic = %+v", s.Basic)
	}
}

func TestNormalizeStyleWrapper(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		wantPrefix string
		wantSuffix string
	}{
		{"none clears custom strings", `{"type": "none", "prefix": "<", "suffix": ">"}`, "", ""},
		{"preset single", `{"type": "preset", "preset": "corner_single"}`, "「", "」"},
		{"preset double", `{"type": "preset", "preset": "corner_double", "prefix": "x"}`, "『", "』"},
		{"preset unknown", `{"type": "preset", "preset": "wavy"}`, "「", "」"},
		{"custom", `{"type": "custom", "prefix": "<<", "suffix": ">>"}`, "<<", ">>"},
		{"bad type", `{"type": "fancy", "prefix": "<"}`, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NormalizeStyle(decodeStyle(t, `{"text_wrapper": `+tt.doc+`}`))
			if s.Wrapper.Prefix != tt.wantPrefix || s.Wrapper.Suffix != tt.wantSuffix {
				t.Errorf("wrapper = (%q, %q), want (%q, %q)",
					s.Wrapper.Prefix, s.Wrapper.Suffix, tt.wantPrefix, tt.wantSuffix)
			}
		})
	}
}

func TestStyleWrap(t *testing.T) {
	s := NormalizeStyle(decodeStyle(t, `{"text_wrapper": {"type": "preset"}}`))
	if got := s.Wrap("hi"); got != "「hi」" {
		t.Errorf("Wrap = %q", got)
	}
	if got := s.Wrap(""); got != "「」" {
		t.Errorf("Wrap(empty) = %q, want bracket pair", got)
	}
	if got := NormalizeStyle(nil).Wrap("hi"); got != "hi" {
		t.Errorf("Wrap without wrapper = %q", got)
	}
}

func TestNormalizeStyleNameLayers(t *testing.T) {
	s := NormalizeStyle(decodeStyle(t, `{
		"mode": "advanced",
		"basic": {"name_font_size": 30, "name_color": [9, 9, 9]},
		"advanced": {"name_layers": {
			"Yuraa": [
				{"offset": [2, 2], "color": [0, 0, 0], "text": "{name}"},
				{"offset": [0, 0], "font_size": 36, "font_file": "title.ttf", "text": "~{name}~"}
			],
			"default": [{}],
			"broken": "not a list"
		}}
	}`))

	layers, ok := s.LayersFor("Yuraa")
	if !ok || len(layers) != 2 {
		t.Fatalf("LayersFor(Yuraa) = %v, %v", layers, ok)
	}
	if layers[0].Offset != (Point{2, 2}) || layers[0].FontSize != 30 || layers[0].Color != (RGB{}) {
		t.Errorf("layer 0 = %+v", layers[0])
	}
	if layers[1].FontFile != "title.ttf" || layers[1].FontSize != 36 || layers[1].Color != (RGB{9, 9, 9}) {
		t.Errorf("layer 1 = %+v", layers[1])
	}
	if got := layers[1].Render("Yuraa"); got != "~Yuraa~" {
		t.Errorf("Render = %q", got)
	}

	fallback, ok := s.LayersFor("Someone")
	if !ok || len(fallback) != 1 || fallback[0].Text != NamePlaceholder {
		t.Errorf("default layers = %+v, %v", fallback, ok)
	}
	if _, exists := s.NameLayers["broken"]; exists {
		t.Error("non-list layer entry should be dropped")
	}

	basic := NormalizeStyle(nil)
	if _, ok := basic.LayersFor("Yuraa"); ok {
		t.Error("basic mode must not report layers")
	}
}

func TestNormalizeStyleRawRoundTrip(t *testing.T) {
	s := NormalizeStyle(decodeStyle(t, `{
		"mode": "advanced",
		"font_file": "body.ttf",
		"text_wrapper": {"type": "custom", "prefix": "[", "suffix": "]"},
		"advanced": {"name_layers": {"default": [{"offset": [1, 2], "text": "{name}!"}]}}
	}`))
	again := NormalizeStyle(s.Raw())
	if !reflect.DeepEqual(s, again) {
		t.Errorf("round trip mismatch:\n %+v\n %+v", s, again)
	}
}
