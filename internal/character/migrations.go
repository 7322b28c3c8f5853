package character

import (
	"encoding/json"
	"fmt"

	"tools.zach/dev/galcard/internal/migrate"
)

// flatStyleKeys are the style keys version 1 kept at the top of the style
// block. Version 2 nests them under style.basic.
var flatStyleKeys = []string{"font_size", "name_font_size", "text_color", "name_color"}

func init() {
	migrate.Character.Register(migrate.Migration{
		Version:     2,
		Description: "nest basic style keys under style.basic",
		Upgrade:     nestBasicStyle,
	})
}

// nestBasicStyle moves flat style keys into style.basic. Keys already present
// in style.basic win over their flat counterparts.
func nestBasicStyle(data []byte) ([]byte, error) {
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode v1 config: %w", err)
	}

	if style, ok := tree["style"].(map[string]any); ok {
		basic, _ := style["basic"].(map[string]any)
		if basic == nil {
			basic = map[string]any{}
		}
		moved := false
		for _, key := range flatStyleKeys {
			v, ok := style[key]
			if !ok {
				continue
			}
			if _, exists := basic[key]; !exists {
				basic[key] = v
			}
			delete(style, key)
			moved = true
		}
		if moved || style["basic"] != nil {
			style["basic"] = basic
		}
	}
	tree["version"] = 2
	return json.Marshal(tree)
}
