// Package main implements the genconfig tool that writes settings.default.toml
// from config.ExampleSettings(), annotated with config.SettingsDocs.
//
// It is invoked by go generate via the directive in internal/config/config.go.
package main

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/galcard/internal/config"
)

// outPath is relative to internal/config, where go generate runs. The root
// package embeds the file from there.
const outPath = "../../settings.default.toml"

func main() {
	out, err := generate(config.ExampleSettings(), config.SettingsDocs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Println("wrote settings.default.toml")
}

// generate encodes settings as TOML and interleaves the field documentation.
func generate(settings *config.Settings, docs map[string]config.FieldDoc) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(settings); err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}

	out := []string{
		"# ///////////////////////////////////////////////",
		"# galcard Settings",
		"# ///////////////////////////////////////////////",
		"",
	}
	var section []string
	emitted := map[string]bool{}

	for _, line := range strings.Split(raw.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue

		case strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[["):
			injectOmitted(&out, section, emitted, docs)
			name := strings.Trim(trimmed, "[] ")
			section = parseSectionPath(name)
			out = append(out, "", fmt.Sprintf("# ///// %s /////", sectionName(name)), "")
			out = appendComment(out, docs[name].Comment)
			out = append(out, trimmed)

		case !strings.Contains(trimmed, "=") || strings.HasPrefix(trimmed, "#"):
			out = append(out, trimmed)

		default:
			key := strings.TrimSpace(strings.SplitN(trimmed, "=", 2)[0])
			full := strings.Join(append(slices.Clone(section), key), ".")
			emitted[full] = true
			doc := docs[full]
			out = appendComment(out, doc.Comment)
			out = append(out, trimmed)
			for _, alt := range doc.Alternatives {
				out = append(out, "# "+alt)
			}
		}
	}
	injectOmitted(&out, section, emitted, docs)

	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n", nil
}

// appendComment appends comment as "# " lines.
func appendComment(out []string, comment string) []string {
	if comment == "" {
		return out
	}
	for _, cl := range strings.Split(comment, "\n") {
		out = append(out, "# "+cl)
	}
	return out
}

// injectOmitted appends commented-out entries for documented keys of the
// current section that the encoder did not emit. Keys are sorted for
// deterministic output.
func injectOmitted(out *[]string, section []string, emitted map[string]bool, docs map[string]config.FieldDoc) {
	if len(section) == 0 {
		return
	}
	prefix := strings.Join(section, ".") + "."

	var omitted []string
	for path := range docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, ".") || emitted[path] {
			continue
		}
		omitted = append(omitted, path)
	}
	slices.Sort(omitted)

	for _, path := range omitted {
		doc := docs[path]
		*out = append(*out, "")
		*out = appendComment(*out, doc.Comment)
		for _, alt := range doc.Alternatives {
			*out = append(*out, "# "+alt)
		}
		emitted[path] = true
	}
}

// parseSectionPath splits a dotted TOML section header into its segments.
func parseSectionPath(section string) []string {
	return strings.Split(section, ".")
}

// sectionName capitalizes the last segment of a dotted section header.
func sectionName(section string) string {
	parts := strings.Split(section, ".")
	last := parts[len(parts)-1]
	if len(last) == 0 {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
