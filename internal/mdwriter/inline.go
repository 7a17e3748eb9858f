package mdwriter

import (
	"strings"

	"github.com/rdocs/rd2qmd/internal/mdast"
)

// escapeText escapes Markdown metacharacters in a plain-text run: *, _, `,
// [, ], <, >, |, plus a leading #, -, + that would otherwise start a
// heading/list block.
func escapeText(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '*', '_', '`', '[', ']', '<', '>', '|':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '#', '-', '+':
			if i == 0 {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func renderInlineSeq(nodes []mdast.Node, opts Options) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(renderInline(n, opts))
	}
	return b.String()
}

func renderInline(n mdast.Node, opts Options) string {
	switch n.Kind {
	case mdast.Text:
		return escapeText(n.Value)
	case mdast.Emphasis:
		return "*" + renderInlineSeq(n.Children, opts) + "*"
	case mdast.Strong:
		return "**" + renderInlineSeq(n.Children, opts) + "**"
	case mdast.InlineCode:
		return wrapInlineCode(n.Value)
	case mdast.Break:
		return "\\\n"
	case mdast.Link:
		return "[" + renderInlineSeq(n.Children, opts) + "](" + n.URL + ")"
	case mdast.Image:
		return "![" + n.Alt + "](" + n.URL + ")"
	case mdast.InlineMath:
		return "$" + n.Value + "$"
	case mdast.Html:
		return n.Value
	default:
		// Block-kind node leaking into an inline context (e.g. a Code node
		// inside a table cell collapsed for pipe rendering): fall back to
		// its flattened text rather than drop it.
		return renderInlineSeq(n.Children, opts)
	}
}

// wrapInlineCode picks a backtick run one longer than the longest run
// already present in value, the same fence-collision rule block code fences
// use, applied to inline code spans too.
func wrapInlineCode(value string) string {
	n := longestBacktickRun(value) + 1
	if n < 1 {
		n = 1
	}
	fence := strings.Repeat("`", n)
	pad := ""
	if strings.HasPrefix(value, "`") || strings.HasSuffix(value, "`") || value == "" {
		pad = " "
	}
	return fence + pad + value + pad + fence
}

func longestBacktickRun(s string) int {
	longest, cur := 0, 0
	for _, c := range s {
		if c == '`' {
			cur++
			if cur > longest {
				longest = cur
			}
		} else {
			cur = 0
		}
	}
	return longest
}
