package mdwriter

import (
	"strconv"
	"strings"

	"github.com/rdocs/rd2qmd/internal/mdast"
)

// renderBlockList renders a sequence of already-normalized block nodes,
// joined by exactly one blank line.
func renderBlockList(nodes []mdast.Node, opts Options) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if s := renderBlock(n, opts); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func renderBlock(n mdast.Node, opts Options) string {
	switch n.Kind {
	case mdast.Heading:
		depth := int(n.Depth)
		if depth < 1 {
			depth = 1
		}
		return strings.Repeat("#", depth) + " " + renderInlineSeq(n.Children, opts)
	case mdast.Paragraph:
		return renderInlineSeq(n.Children, opts)
	case mdast.ThematicBreak:
		return "---"
	case mdast.Blockquote:
		body := strings.Join(renderBlockList(normalizeFlow(n.Children), opts), "\n\n")
		return prefixLines(body, "> ")
	case mdast.List:
		return renderList(n, opts)
	case mdast.Code:
		return renderCode(n, opts)
	case mdast.Math:
		return "$$\n" + strings.TrimSpace(n.Value) + "\n$$"
	case mdast.DefinitionList:
		return renderDefinitionList(n, opts)
	case mdast.Table:
		return renderTable(n, opts)
	default:
		return renderInline(n, opts)
	}
}

func prefixLines(body, prefix string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		if l == "" {
			lines[i] = strings.TrimRight(prefix, " ")
		} else {
			lines[i] = prefix + l
		}
	}
	return strings.Join(lines, "\n")
}

// indentContinuation indents every line but the first by width spaces, the
// shape list items and definition descriptions need for wrapped block
// content to stay nested under their marker.
func indentContinuation(body string, width int) string {
	lines := strings.Split(body, "\n")
	pad := strings.Repeat(" ", width)
	for i := 1; i < len(lines); i++ {
		if lines[i] != "" {
			lines[i] = pad + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}

func renderList(n mdast.Node, opts Options) string {
	var lines []string
	for i, item := range n.Children {
		marker := "- "
		if n.Ordered {
			start := 1
			if n.HasStart {
				start = n.Start
			}
			marker = strconv.Itoa(start+i) + ". "
		}
		body := strings.Join(renderBlockList(normalizeFlow(item.Children), opts), "\n\n")
		body = indentContinuation(body, len(marker))
		lines = append(lines, marker+body)
	}
	return strings.Join(lines, "\n")
}

func renderCode(n mdast.Node, opts Options) string {
	info := codeInfoString(n, opts)
	fenceLen := longestBacktickRun(n.Value) + 1
	if fenceLen < 3 {
		fenceLen = 3
	}
	fence := strings.Repeat("`", fenceLen)
	value := strings.TrimRight(n.Value, "\n")
	if value == "" {
		return fence + info + "\n" + fence
	}
	return fence + info + "\n" + value + "\n" + fence
}

// codeInfoString picks the fence info string: Quarto's `{r}` only for nodes
// the lowerer marked executable (Meta == "exec"), downgraded to a plain
// language token for md output or when quarto_code_blocks is off.
func codeInfoString(n mdast.Node, opts Options) string {
	if n.Lang == "" {
		return ""
	}
	if opts.OutputFormat == "md" {
		return n.Lang
	}
	if opts.QuartoCodeBlocks && n.Meta == "exec" {
		return "{" + n.Lang + "}"
	}
	return n.Lang
}

func renderDefinitionList(n mdast.Node, opts Options) string {
	var lines []string
	for i := 0; i+1 < len(n.Children); i += 2 {
		term := n.Children[i]
		desc := n.Children[i+1]
		lines = append(lines, renderInlineSeq(term.Children, opts))
		body := strings.Join(renderBlockList(normalizeFlow(desc.Children), opts), "\n\n")
		lines = append(lines, indentContinuation(":   "+body, 4))
	}
	return strings.Join(lines, "\n")
}
