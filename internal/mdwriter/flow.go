package mdwriter

import "github.com/rdocs/rd2qmd/internal/mdast"

// isInlineKind reports whether n renders in running text rather than as its
// own block. The lowerer sometimes hands the writer a bare run of inline
// nodes (a table header cell, a describe term) instead of wrapping them in
// a Paragraph, so the writer has to be able to tell the difference itself.
func isInlineKind(k mdast.Kind) bool {
	switch k {
	case mdast.Text, mdast.Emphasis, mdast.Strong, mdast.InlineCode,
		mdast.Break, mdast.Link, mdast.Image, mdast.InlineMath, mdast.Html:
		return true
	default:
		return false
	}
}

// normalizeFlow groups any run of bare inline nodes into an implicit
// Paragraph, leaving real block nodes untouched, so every caller of
// renderBlockList can assume a uniform list of block-kind nodes.
func normalizeFlow(nodes []mdast.Node) []mdast.Node {
	var out []mdast.Node
	var run []mdast.Node

	flush := func() {
		if len(run) > 0 {
			out = append(out, mdast.Node{Kind: mdast.Paragraph, Children: run})
			run = nil
		}
	}

	for _, n := range nodes {
		if isInlineKind(n.Kind) {
			run = append(run, n)
			continue
		}
		flush()
		out = append(out, n)
	}
	flush()
	return out
}
