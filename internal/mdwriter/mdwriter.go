// Package mdwriter renders an mdast.Root (plus a frontmatter map) to Quarto
// or standard Markdown text. Write is a pure function: the writer never
// touches disk, so it cannot fail — any I/O happens in the caller.
package mdwriter

import (
	"strings"

	"github.com/rdocs/rd2qmd/internal/mdast"
)

// TableStyle selects how mdast.Table nodes are rendered.
type TableStyle string

const (
	TableGrid TableStyle = "grid"
	TablePipe TableStyle = "pipe"
)

// Options parameterises rendering. OutputFormat controls fence/extension
// choices that differ between qmd and md targets; QuartoCodeBlocks and
// TableStyle are the writer-facing half of the same options split
// lower.Options implements the other half of — see lower.Options' doc
// comment.
type Options struct {
	OutputFormat     string // "qmd" or "md"
	QuartoCodeBlocks bool
	TableStyle       TableStyle
}

// DefaultOptions matches the documented CLI defaults for qmd output.
func DefaultOptions() Options {
	return Options{OutputFormat: "qmd", QuartoCodeBlocks: true, TableStyle: TableGrid}
}

// Write renders root to Markdown text. frontmatter may be nil or empty, in
// which case no YAML block is emitted.
func Write(root mdast.Root, frontmatter map[string]any, opts Options) string {
	var parts []string
	if fm := renderFrontmatter(frontmatter); fm != "" {
		parts = append(parts, fm)
	}

	for _, block := range renderBlockList(normalizeFlow(root.Children), opts) {
		parts = append(parts, block)
	}

	return finalize(strings.Join(parts, "\n\n"))
}

func renderFrontmatter(fm map[string]any) string {
	data, err := serializeFrontmatterYAML(fm)
	if err != nil || len(data) == 0 {
		return ""
	}
	return "---\n" + strings.TrimRight(string(data), "\n") + "\n---"
}

// finalize trims trailing whitespace from every line and ensures the
// document ends in exactly one trailing newline.
func finalize(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	out := strings.TrimRight(strings.Join(lines, "\n"), "\n")
	if out == "" {
		return ""
	}
	return out + "\n"
}
