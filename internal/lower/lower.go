// Package lower implements the Rd → mdast lowering pass: it walks a parsed
// rdast.Document and produces an mdast.Root plus a frontmatter map, applying
// link resolution via the Alias Index and External Resolver along the way.
package lower

import (
	"regexp"
	"strings"

	"github.com/rdocs/rd2qmd/internal/mdast"
	"github.com/rdocs/rd2qmd/internal/rdast"
	"github.com/rdocs/rd2qmd/internal/rderrors"
)

// Result is the output of lowering one document.
type Result struct {
	Root        mdast.Root
	Frontmatter map[string]any
	Diagnostics []*rderrors.ClassifiedError
}

// Lowerer lowers one rdast.Document at a time. It is not safe for
// concurrent use by multiple goroutines on the same instance, but a fresh
// Lowerer is cheap to construct per document (it holds no mutable state
// beyond the accumulated diagnostics of its last Lower call).
type Lowerer struct {
	opts     Options
	aliases  AliasResolver
	external ExternalResolver
	diags    []*rderrors.ClassifiedError
}

// New constructs a Lowerer. Either resolver may be nil, in which case links
// that would have queried it simply miss and fall through to the next
// precedence tier.
func New(opts Options, aliases AliasResolver, external ExternalResolver) *Lowerer {
	if aliases == nil {
		aliases = noAliases{}
	}
	if external == nil {
		external = noExternal{}
	}
	return &Lowerer{opts: opts, aliases: aliases, external: external}
}

func (lw *Lowerer) warn(err *rderrors.ClassifiedError) {
	lw.diags = append(lw.diags, err)
}

// Lower converts doc into an mdast.Root and a frontmatter map. Section order
// in the output follows doc.Sections verbatim: document order is
// authoritative, there is no re-sorting by section kind.
func (lw *Lowerer) Lower(doc *rdast.Document) Result {
	lw.diags = nil

	var name, title string
	haveTitle := false
	var aliases, keywords, concepts []string
	var blocks []mdast.Node

	for _, sec := range doc.Sections {
		switch sec.Tag.Kind {
		case rdast.Name:
			name = strings.TrimSpace(rdast.Flatten(sec.Body))
		case rdast.Title:
			title = strings.TrimSpace(rdast.Flatten(sec.Body))
			haveTitle = true
		case rdast.Alias:
			if a := strings.TrimSpace(rdast.Flatten(sec.Body)); a != "" {
				aliases = append(aliases, a)
			}
		case rdast.Keyword:
			if k := strings.TrimSpace(rdast.Flatten(sec.Body)); k != "" {
				keywords = append(keywords, k)
			}
		case rdast.Concept:
			if c := strings.TrimSpace(rdast.Flatten(sec.Body)); c != "" {
				concepts = append(concepts, c)
			}
		case rdast.Description:
			blocks = append(blocks, lw.heading("Description"))
			blocks = append(blocks, lw.lowerBlockFlow(sec.Body)...)
		case rdast.Usage:
			blocks = append(blocks, lw.heading("Usage"), lw.lowerUsage(sec.Body))
		case rdast.Arguments:
			blocks = append(blocks, lw.heading("Arguments"))
			blocks = append(blocks, lw.lowerArguments(sec.Body)...)
		case rdast.Examples:
			blocks = append(blocks, lw.heading("Examples"))
			blocks = append(blocks, lw.lowerExamples(sec.Body)...)
		case rdast.Author:
			blocks = append(blocks, lw.heading("Author(s)"))
			blocks = append(blocks, lw.lowerBlockFlow(sec.Body)...)
		case rdast.SeeAlso:
			blocks = append(blocks, lw.heading("See Also"))
			blocks = append(blocks, lw.lowerBlockFlow(sec.Body)...)
		case rdast.Value, rdast.Details, rdast.Note, rdast.References, rdast.Source, rdast.Format:
			blocks = append(blocks, lw.heading(sectionTitle(sec.Tag.Kind)))
			blocks = append(blocks, lw.lowerBlockFlow(sec.Body)...)
		case rdast.Custom:
			blocks = append(blocks, lw.heading(sec.Tag.Title))
			blocks = append(blocks, lw.lowerBlockFlow(sec.Body)...)
		}
		// Keyword and Concept sections contribute to frontmatter only and
		// are otherwise dropped from the body per the section mapping table.
	}

	fm := map[string]any{}
	if lw.opts.FrontmatterOn {
		if name != "" {
			fm["name"] = name
		}
		if haveTitle {
			fm["title"] = title
		}
		if haveTitle && name != "" && lw.opts.PagetitleOn {
			fm["pagetitle"] = title + " — " + name
		}
		if len(aliases) > 0 {
			fm["aliases"] = aliases
		}
		if len(keywords) > 0 {
			fm["keywords"] = keywords
		}
		if len(concepts) > 0 {
			fm["concepts"] = concepts
		}
	}

	var out []mdast.Node
	if haveTitle {
		out = append(out, mdast.Node{Kind: mdast.Heading, Depth: 1, Children: []mdast.Node{mdast.TextNode(title)}})
	}
	out = append(out, blocks...)

	return Result{Root: mdast.Root{Children: out}, Frontmatter: fm, Diagnostics: lw.diags}
}

func (lw *Lowerer) heading(text string) mdast.Node {
	return mdast.Node{Kind: mdast.Heading, Depth: 2, Children: []mdast.Node{mdast.TextNode(text)}}
}

func sectionTitle(k rdast.SectionKind) string {
	switch k {
	case rdast.Value:
		return "Value"
	case rdast.Details:
		return "Details"
	case rdast.Note:
		return "Note"
	case rdast.References:
		return "References"
	case rdast.Source:
		return "Source"
	case rdast.Format:
		return "Format"
	default:
		return k.String()
	}
}

// lowerUsage renders a Usage section as a single, non-executable R code
// block: it is a function signature listing, never meant to be run.
func (lw *Lowerer) lowerUsage(body []rdast.Inline) mdast.Node {
	code := strings.TrimSpace(rdast.Flatten(body))
	return mdast.Node{Kind: mdast.Code, Lang: "r", Value: code}
}

// lowerArguments turns the ArgumentItem sequence the parser already
// extracted into a two-column mdast.Table, one row per item.
func (lw *Lowerer) lowerArguments(body []rdast.Inline) []mdast.Node {
	header := mdast.Node{Kind: mdast.TableRow, Children: []mdast.Node{
		{Kind: mdast.TableCell, Children: []mdast.Node{mdast.TextNode("Argument")}},
		{Kind: mdast.TableCell, Children: []mdast.Node{mdast.TextNode("Description")}},
	}}
	rows := []mdast.Node{header}

	for _, item := range body {
		if item.Kind != rdast.ArgumentItem {
			continue
		}
		nameCell := mdast.Node{Kind: mdast.TableCell}
		for i, nm := range item.Names {
			if i > 0 {
				nameCell.Children = append(nameCell.Children, mdast.TextNode(", "))
			}
			nameCell.Children = append(nameCell.Children, mdast.Node{Kind: mdast.InlineCode, Value: nm})
		}
		descCell := mdast.Node{Kind: mdast.TableCell, Children: lw.lowerBlockFlow(item.Children)}
		rows = append(rows, mdast.Node{Kind: mdast.TableRow, Children: []mdast.Node{nameCell, descCell}})
	}

	return []mdast.Node{{
		Kind:      mdast.Table,
		AlignCols: []mdast.Align{mdast.AlignLeft, mdast.AlignLeft},
		HasHeader: true,
		Children:  rows,
	}}
}

// lowerExamples splits the body at each ExampleBlock boundary: ordinary code
// outside any block is always executable; each block gets its own fence
// governed by the dontrun/donttest/dontshow/testonly/dontdiff policy.
func (lw *Lowerer) lowerExamples(body []rdast.Inline) []mdast.Node {
	var out []mdast.Node
	var plain strings.Builder

	flushPlain := func() {
		code := strings.TrimSpace(plain.String())
		plain.Reset()
		if code == "" {
			return
		}
		out = append(out, exampleCodeBlock(code, true))
	}

	for _, n := range body {
		if n.Kind != rdast.ExampleBlock {
			plain.WriteString(rdast.Flatten([]rdast.Inline{n}))
			continue
		}

		if n.ExampleKind == rdast.Dontshow || n.ExampleKind == rdast.Testonly {
			// Invisible in the rendered docs; skip without breaking the
			// surrounding plain-code run into two fences.
			continue
		}

		flushPlain()
		code := strings.TrimSpace(rdast.Flatten(n.Children))
		if code == "" {
			continue
		}
		out = append(out, exampleCodeBlock(code, lw.exampleExecutable(n.ExampleKind)))
	}
	flushPlain()
	return out
}

func (lw *Lowerer) exampleExecutable(kind rdast.ExampleKind) bool {
	switch kind {
	case rdast.Dontrun:
		return lw.opts.ExecDontrun
	case rdast.Donttest:
		return lw.opts.ExecDonttest
	case rdast.Dontdiff:
		return false
	default:
		return true
	}
}

// exampleCodeBlock marks the mdast node executable via Meta, leaving the
// choice of "{r}" vs plain "r" info string to the writer.
func exampleCodeBlock(code string, executable bool) mdast.Node {
	n := mdast.Node{Kind: mdast.Code, Lang: "r", Value: code}
	if executable {
		n.Meta = "exec"
	}
	return n
}

var paragraphBreak = regexp.MustCompile(`\n{2,}`)
var whitespaceRun = regexp.MustCompile(`\s+`)

func splitParagraphs(s string) []string {
	return paragraphBreak.Split(s, -1)
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// resolveConditionals splices \if/\ifelse bodies in, selecting a branch by
// format and dropping the node entirely when \if has none applicable:
// non-markdown/text formats drop the body, with no LaTeX exception for qmd
// output.
func resolveConditionals(nodes []rdast.Inline) []rdast.Inline {
	var out []rdast.Inline
	for _, n := range nodes {
		switch n.Kind {
		case rdast.If:
			if isTextFormat(n.Format) {
				out = append(out, resolveConditionals(n.Then)...)
			}
		case rdast.Ifelse:
			if isTextFormat(n.Format) {
				out = append(out, resolveConditionals(n.Then)...)
			} else {
				out = append(out, resolveConditionals(n.Else)...)
			}
		default:
			out = append(out, n)
		}
	}
	return out
}

func isTextFormat(format string) bool {
	f := strings.ToLower(strings.TrimSpace(format))
	return f == "markdown" || f == "text"
}

// lowerBlockFlow walks a mixed inline/block sequence, splitting it into
// mdast block nodes: consecutive Text/inline markup accumulates into a
// Paragraph until a blank line (2+ newlines) or a block-level construct
// (list, table, display math, preformatted text) interrupts it.
func (lw *Lowerer) lowerBlockFlow(nodes []rdast.Inline) []mdast.Node {
	nodes = resolveConditionals(nodes)

	var blocks []mdast.Node
	var para []mdast.Node

	flushPara := func() {
		if len(para) > 0 {
			blocks = append(blocks, mdast.Node{Kind: mdast.Paragraph, Children: para})
		}
		para = nil
	}

	for _, n := range nodes {
		switch n.Kind {
		case rdast.Text:
			for i, piece := range splitParagraphs(n.Raw) {
				if i > 0 {
					flushPara()
				}
				if t := collapseWhitespace(piece); t != "" {
					para = append(para, mdast.TextNode(t))
				}
			}
		case rdast.Itemize:
			flushPara()
			blocks = append(blocks, lw.lowerList(n.Items, false))
		case rdast.Enumerate:
			flushPara()
			blocks = append(blocks, lw.lowerList(n.Items, true))
		case rdast.Describe:
			flushPara()
			blocks = append(blocks, lw.lowerDescribe(n.DescribeItems))
		case rdast.Tabular:
			flushPara()
			blocks = append(blocks, lw.lowerTabular(n))
		case rdast.Deqn:
			flushPara()
			blocks = append(blocks, mdast.Node{Kind: mdast.Math, Value: n.Latex})
		case rdast.Preformatted:
			flushPara()
			blocks = append(blocks, mdast.Node{Kind: mdast.Code, Value: n.Raw})
		default:
			para = append(para, lw.lowerInline(n))
		}
	}
	flushPara()
	return blocks
}

// lowerInlineSeq lowers a sequence of inline nodes without paragraph
// splitting, for contexts that are inherently single-line (link display
// text, table cells, describe terms).
func (lw *Lowerer) lowerInlineSeq(nodes []rdast.Inline) []mdast.Node {
	nodes = resolveConditionals(nodes)
	var out []mdast.Node
	for _, n := range nodes {
		if n.Kind == rdast.Text {
			if t := collapseWhitespace(n.Raw); t != "" {
				out = append(out, mdast.TextNode(t))
			}
			continue
		}
		out = append(out, lw.lowerInline(n))
	}
	return out
}

func (lw *Lowerer) lowerList(items [][]rdast.Inline, ordered bool) mdast.Node {
	var children []mdast.Node
	for _, item := range items {
		children = append(children, mdast.Node{Kind: mdast.ListItem, Children: lw.lowerBlockFlow(item)})
	}
	return mdast.Node{Kind: mdast.List, Ordered: ordered, Children: children}
}

func (lw *Lowerer) lowerDescribe(items []rdast.DescribeItem) mdast.Node {
	var children []mdast.Node
	for _, item := range items {
		children = append(children,
			mdast.Node{Kind: mdast.DefinitionTerm, Children: lw.lowerInlineSeq(item.Term)},
			mdast.Node{Kind: mdast.DefinitionDescription, Children: lw.lowerBlockFlow(item.Description)},
		)
	}
	return mdast.Node{Kind: mdast.DefinitionList, Children: children}
}

func (lw *Lowerer) lowerTabular(n rdast.Inline) mdast.Node {
	align := lw.tabularAlign(n.TabularSpec)
	var rows []mdast.Node
	for _, row := range n.TabularRows {
		var cells []mdast.Node
		for _, cell := range row {
			cells = append(cells, mdast.Node{Kind: mdast.TableCell, Children: lw.lowerBlockFlow(cell)})
		}
		rows = append(rows, mdast.Node{Kind: mdast.TableRow, Children: cells})
	}
	return mdast.Node{Kind: mdast.Table, AlignCols: align, Children: rows}
}

func (lw *Lowerer) tabularAlign(spec string) []mdast.Align {
	var cols []mdast.Align
	valid := true
	for _, c := range spec {
		switch c {
		case 'l':
			cols = append(cols, mdast.AlignLeft)
		case 'c':
			cols = append(cols, mdast.AlignCenter)
		case 'r':
			cols = append(cols, mdast.AlignRight)
		case '|', ' ':
			// column rules and padding carry no alignment of their own
		default:
			valid = false
		}
	}
	if !valid {
		lw.warn(rderrors.Warning(rderrors.CategoryLower, "invalid tabular column spec").WithContext("spec", spec))
	}
	if len(cols) == 0 {
		cols = []mdast.Align{mdast.AlignNone}
	}
	return cols
}

func (lw *Lowerer) lowerInline(n rdast.Inline) mdast.Node {
	switch n.Kind {
	case rdast.Text:
		return mdast.TextNode(collapseWhitespace(n.Raw))
	case rdast.Code:
		return mdast.Node{Kind: mdast.InlineCode, Value: rdast.Flatten(n.Children)}
	case rdast.Verb:
		return mdast.Node{Kind: mdast.InlineCode, Value: n.Raw}
	case rdast.Preformatted:
		return mdast.Node{Kind: mdast.Code, Value: n.Raw}
	case rdast.Emph:
		return mdast.Node{Kind: mdast.Emphasis, Children: lw.lowerInlineSeq(n.Children)}
	case rdast.Strong, rdast.Bold:
		return mdast.Node{Kind: mdast.Strong, Children: lw.lowerInlineSeq(n.Children)}
	case rdast.Cite, rdast.Abbr:
		return mdast.Node{Kind: mdast.Emphasis, Children: lw.lowerInlineSeq(n.Children)}
	case rdast.Pkg:
		return mdast.Node{Kind: mdast.Strong, Children: []mdast.Node{mdast.TextNode(n.PkgName)}}
	case rdast.Var:
		return mdast.Node{Kind: mdast.Emphasis, Children: lw.lowerInlineSeq(n.Children)}
	case rdast.Kbd:
		return mdast.Node{Kind: mdast.InlineCode, Value: rdast.Flatten(n.Children)}
	case rdast.SQuote:
		return mdast.TextNode("‘" + rdast.Flatten(n.Children) + "’")
	case rdast.DQuote:
		return mdast.TextNode("“" + rdast.Flatten(n.Children) + "”")
	case rdast.Out:
		return mdast.Node{Kind: mdast.Html, Value: n.Raw}
	case rdast.Figure:
		return mdast.Node{Kind: mdast.Image, URL: n.FigureFile, Alt: n.FigureAlt}
	case rdast.Url:
		return mdast.Node{Kind: mdast.Link, URL: n.Raw, Children: []mdast.Node{mdast.TextNode(n.Raw)}}
	case rdast.Email:
		return mdast.Node{Kind: mdast.Link, URL: "mailto:" + n.Raw, Children: []mdast.Node{mdast.TextNode(n.Raw)}}
	case rdast.Doi:
		return mdast.Node{Kind: mdast.Link, URL: "https://doi.org/" + n.Raw, Children: []mdast.Node{mdast.TextNode("doi:" + n.Raw)}}
	case rdast.Href:
		return mdast.Node{Kind: mdast.Link, URL: n.URL, Children: lw.lowerInlineSeq(n.Children)}
	case rdast.Link:
		return lw.lowerLink(n.Target, n.Package, n.Children)
	case rdast.LinkS4class:
		return lw.lowerLink(n.Target, n.Package, n.Children)
	case rdast.Eqn:
		return mdast.Node{Kind: mdast.InlineMath, Value: n.Latex}
	case rdast.Deqn:
		return mdast.Node{Kind: mdast.Math, Value: n.Latex}
	case rdast.Itemize:
		return lw.lowerList(n.Items, false)
	case rdast.Enumerate:
		return lw.lowerList(n.Items, true)
	case rdast.Describe:
		return lw.lowerDescribe(n.DescribeItems)
	case rdast.Tabular:
		return lw.lowerTabular(n)
	case rdast.R:
		return mdast.Node{Kind: mdast.Emphasis, Children: []mdast.Node{mdast.TextNode("R")}}
	case rdast.Dots, rdast.Ldots:
		return mdast.TextNode("...")
	case rdast.Cr:
		return mdast.Node{Kind: mdast.Break}
	case rdast.Tab:
		return mdast.TextNode(" ")
	case rdast.Sexpr:
		return mdast.Node{Kind: mdast.InlineCode, Value: n.Raw}
	case rdast.Method:
		text := n.Generic
		if n.Class != "" {
			text += "." + n.Class
		}
		return mdast.TextNode(text)
	default:
		return mdast.TextNode(rdast.Flatten([]rdast.Inline{n}))
	}
}

// lowerLink resolves a \link target by precedence: External (package set) >
// Alias Index > unresolved-template > plain text.
func (lw *Lowerer) lowerLink(target, pkg string, textNodes []rdast.Inline) mdast.Node {
	display := lw.lowerInlineSeq(textNodes)
	if len(display) == 0 {
		display = []mdast.Node{mdast.TextNode(target)}
	}
	plainText := func() mdast.Node {
		if len(textNodes) == 0 {
			return mdast.TextNode(target)
		}
		return mdast.TextNode(rdast.Flatten(textNodes))
	}

	if pkg != "" {
		if lw.opts.ExternalLinksEnabled {
			if url, ok := lw.external.Resolve(pkg, target); ok {
				return mdast.Node{Kind: mdast.Link, URL: url, Children: display}
			}
		}
		if lw.opts.ExternalPackageFallbackTemplate != "" {
			return mdast.Node{Kind: mdast.Link, URL: expandTemplate(lw.opts.ExternalPackageFallbackTemplate, pkg, target), Children: display}
		}
		return plainText()
	}

	if stem, ok := lw.aliases.Resolve(target); ok {
		return mdast.Node{Kind: mdast.Link, URL: stem + "." + lw.opts.fileExt(), Children: display}
	}

	if lw.opts.UnresolvedLinkURLTemplate != "" {
		return mdast.Node{Kind: mdast.Link, URL: expandTemplate(lw.opts.UnresolvedLinkURLTemplate, "", target), Children: display}
	}

	return plainText()
}

func expandTemplate(tpl, pkg, topic string) string {
	out := strings.ReplaceAll(tpl, "{topic}", topic)
	out = strings.ReplaceAll(out, "{package}", pkg)
	return out
}
