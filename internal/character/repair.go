package character

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"tools.zach/dev/galcard/internal/paths"
)

// RepairResult describes what [Repair] changed in one document.
type RepairResult struct {
	// ID is the character repaired.
	ID string
	// Fixes lists human-readable descriptions of each reset field.
	Fixes []string
	// Saved reports whether the document was written back.
	Saved bool
}

// Repair resets document fields that point at files which no longer exist:
// layout.current_portrait, layout.current_background (looked up in the
// character and common background directories), and assets.dialog_box (reset
// to textbox_bg.png). A migrated document is also written back. The document
// is saved only when something changed.
func Repair(assets paths.AssetDir, id string) (RepairResult, error) {
	res := RepairResult{ID: id}
	doc, err := LoadDocument(assets, id)
	if err != nil {
		return res, err
	}

	if lay := doc.Section("layout"); lay != nil {
		if name, _ := lay["current_portrait"].(string); name != "" {
			if !exists(filepath.Join(assets.Portraits(id), name)) {
				lay["current_portrait"] = ""
				res.Fixes = append(res.Fixes, fmt.Sprintf("portrait %q missing, selection cleared", name))
			}
		}
		if name, _ := lay["current_background"].(string); name != "" {
			if !exists(filepath.Join(assets.Backgrounds(id), name)) &&
				!exists(filepath.Join(assets.CommonBackgrounds(), name)) {
				lay["current_background"] = ""
				res.Fixes = append(res.Fixes, fmt.Sprintf("background %q missing, selection cleared", name))
			}
		}
	}

	if box, _ := doc.Section("assets")["dialog_box"].(string); box != "" && box != paths.DefaultBoxFile {
		if !exists(assets.CharacterFile(id, box)) {
			doc.ensureSection("assets")["dialog_box"] = paths.DefaultBoxFile
			res.Fixes = append(res.Fixes, fmt.Sprintf("dialog box %q missing, reset to %s", box, paths.DefaultBoxFile))
		}
	}

	if len(res.Fixes) == 0 && !doc.Migrated {
		slog.Debug("character config ok", "character", id)
		return res, nil
	}
	for _, fix := range res.Fixes {
		slog.Info("repaired character config", "character", id, "fix", fix)
	}
	if err := doc.Save(); err != nil {
		return res, fmt.Errorf("save repaired config: %w", err)
	}
	res.Saved = true
	return res, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
