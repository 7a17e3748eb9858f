package lower

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rdocs/rd2qmd/internal/mdast"
	"github.com/rdocs/rd2qmd/internal/rdparse"
)

func findKind(n mdast.Node, kind mdast.Kind) (mdast.Node, bool) {
	if n.Kind == kind {
		return n, true
	}
	for _, c := range n.Children {
		if found, ok := findKind(c, kind); ok {
			return found, true
		}
	}
	return mdast.Node{}, false
}

func findAllKind(n mdast.Node, kind mdast.Kind) []mdast.Node {
	var out []mdast.Node
	if n.Kind == kind {
		out = append(out, n)
	}
	for _, c := range n.Children {
		out = append(out, findAllKind(c, kind)...)
	}
	return out
}

// root wraps a document's top-level nodes under a synthetic container kind
// that none of these tests ever search for directly, so findKind always
// descends into the real content instead of matching the wrapper itself.
func root(children []mdast.Node) mdast.Node {
	return mdast.Node{Kind: mdast.Blockquote, Children: children}
}

func textOf(n mdast.Node) string {
	if n.Kind == mdast.Text {
		return n.Value
	}
	var s string
	for _, c := range n.Children {
		s += textOf(c)
	}
	return s
}

func TestLower_MinimalDoc_ProducesFrontmatterAndHeading(t *testing.T) {
	doc, diags := rdparse.Parse([]byte(`\name{f}\title{T}\description{D}`))
	require.Empty(t, diags)

	lw := New(DefaultOptions(), nil, nil)
	res := lw.Lower(doc)

	require.Equal(t, "f", res.Frontmatter["name"])
	require.Equal(t, "T", res.Frontmatter["title"])
	require.Equal(t, "T — f", res.Frontmatter["pagetitle"])

	h1, ok := findKind(root(res.Root.Children), mdast.Heading)
	require.True(t, ok)
	require.EqualValues(t, 1, h1.Depth)
	require.Equal(t, "T", textOf(h1))

	para, ok := findKind(root(res.Root.Children), mdast.Paragraph)
	require.True(t, ok)
	require.Equal(t, "D", textOf(para))
}

func TestLower_InternalLink_ResolvesViaAliasIndex(t *testing.T) {
	doc, diags := rdparse.Parse([]byte(`\name{baz}\description{see \link{bar}}`))
	require.Empty(t, diags)

	aliases := stubAliases{"bar": "foo"}
	lw := New(DefaultOptions(), aliases, nil)
	res := lw.Lower(doc)

	links := findAllKind(root(res.Root.Children), mdast.Link)
	require.Len(t, links, 1)
	require.Equal(t, "foo.qmd", links[0].URL)
}

func TestLower_ExternalLink_PrefersExternalResolverOverTemplate(t *testing.T) {
	doc, diags := rdparse.Parse([]byte(`\name{baz}\description{see \link[dplyr]{mutate}}`))
	require.Empty(t, diags)

	external := stubExternal{"dplyr:mutate": "https://dplyr.tidyverse.org/reference/mutate.html"}
	lw := New(DefaultOptions(), nil, external)
	res := lw.Lower(doc)

	links := findAllKind(root(res.Root.Children), mdast.Link)
	require.Len(t, links, 1)
	require.Equal(t, "https://dplyr.tidyverse.org/reference/mutate.html", links[0].URL)
}

func TestLower_UnresolvedLink_FallsBackToTemplate(t *testing.T) {
	doc, diags := rdparse.Parse([]byte(`\name{baz}\description{see \link{nonesuch}}`))
	require.Empty(t, diags)

	lw := New(DefaultOptions(), nil, nil)
	res := lw.Lower(doc)

	links := findAllKind(root(res.Root.Children), mdast.Link)
	require.Len(t, links, 1)
	require.Equal(t, "https://rdrr.io/r/base/nonesuch.html", links[0].URL)
}

func TestLower_UnresolvedLink_DisabledTemplateYieldsPlainText(t *testing.T) {
	doc, diags := rdparse.Parse([]byte(`\name{baz}\description{see \link{nonesuch}}`))
	require.Empty(t, diags)

	opts := DefaultOptions()
	opts.UnresolvedLinkURLTemplate = ""
	lw := New(opts, nil, nil)
	res := lw.Lower(doc)

	links := findAllKind(root(res.Root.Children), mdast.Link)
	require.Empty(t, links)

	para, ok := findKind(root(res.Root.Children), mdast.Paragraph)
	require.True(t, ok)
	require.Contains(t, textOf(para), "nonesuch")
}

func TestLower_ExampleControlBlocks_SplitsExecutableAndPlainFences(t *testing.T) {
	doc, diags := rdparse.Parse([]byte(`\name{f}\examples{1+1\dontrun{stop("x")}}`))
	require.Empty(t, diags)

	lw := New(DefaultOptions(), nil, nil)
	res := lw.Lower(doc)

	codes := findAllKind(root(res.Root.Children), mdast.Code)
	require.Len(t, codes, 2)
	require.Equal(t, "1+1", codes[0].Value)
	require.Equal(t, "exec", codes[0].Meta)
	require.Equal(t, `stop("x")`, codes[1].Value)
	require.Equal(t, "", codes[1].Meta)
}

func TestLower_DontshowAndTestonly_AreDroppedFromExamples(t *testing.T) {
	doc, diags := rdparse.Parse([]byte(`\name{f}\examples{before\dontshow{setup()}\testonly{check()}after}`))
	require.Empty(t, diags)

	lw := New(DefaultOptions(), nil, nil)
	res := lw.Lower(doc)

	codes := findAllKind(root(res.Root.Children), mdast.Code)
	require.Len(t, codes, 1)
	require.NotContains(t, codes[0].Value, "setup()")
	require.NotContains(t, codes[0].Value, "check()")
	require.Contains(t, codes[0].Value, "before")
	require.Contains(t, codes[0].Value, "after")
}

func TestLower_ArgumentsSection_ProducesTwoColumnTableWithNestedList(t *testing.T) {
	doc, diags := rdparse.Parse([]byte(
		`\name{f}\arguments{\item{x,y}{coords}\item{opts}{list: \itemize{\item a \item b}}}`))
	require.Empty(t, diags)

	lw := New(DefaultOptions(), nil, nil)
	res := lw.Lower(doc)

	tables := findAllKind(root(res.Root.Children), mdast.Table)
	require.Len(t, tables, 1)
	rows := findAllKind(tables[0], mdast.TableRow)
	require.Len(t, rows, 3) // header + 2 items

	lists := findAllKind(rows[2], mdast.List)
	require.Len(t, lists, 1)
	require.False(t, lists[0].Ordered)
	require.Len(t, lists[0].Children, 2)
}

func TestLower_Ifelse_PicksBranchByFormat(t *testing.T) {
	doc, diags := rdparse.Parse([]byte(`\name{f}\description{\ifelse{text}{plain}{other}}`))
	require.Empty(t, diags)

	lw := New(DefaultOptions(), nil, nil)
	res := lw.Lower(doc)

	para, ok := findKind(root(res.Root.Children), mdast.Paragraph)
	require.True(t, ok)
	require.Equal(t, "plain", textOf(para))
}

func TestLower_If_DropsBodyForNonTextFormat(t *testing.T) {
	doc, diags := rdparse.Parse([]byte(`\name{f}\description{before\if{html}{hidden}after}`))
	require.Empty(t, diags)

	lw := New(DefaultOptions(), nil, nil)
	res := lw.Lower(doc)

	para, ok := findKind(root(res.Root.Children), mdast.Paragraph)
	require.True(t, ok)
	require.NotContains(t, textOf(para), "hidden")
}

func TestLower_TabularSpec_MapsAlignmentLetters(t *testing.T) {
	doc, diags := rdparse.Parse([]byte(`\name{f}\description{\tabular{lcr}{a \tab b \tab c \cr}}`))
	require.Empty(t, diags)

	lw := New(DefaultOptions(), nil, nil)
	res := lw.Lower(doc)

	tables := findAllKind(root(res.Root.Children), mdast.Table)
	require.Len(t, tables, 1)
	require.Equal(t, []mdast.Align{mdast.AlignLeft, mdast.AlignCenter, mdast.AlignRight}, tables[0].AlignCols)
}

func TestLower_Pkg_LowersToStrong(t *testing.T) {
	doc, diags := rdparse.Parse([]byte(`\name{f}\description{see \pkg{dplyr}}`))
	require.Empty(t, diags)

	lw := New(DefaultOptions(), nil, nil)
	res := lw.Lower(doc)

	strongs := findAllKind(root(res.Root.Children), mdast.Strong)
	require.Len(t, strongs, 1)
	require.Equal(t, "dplyr", textOf(strongs[0]))
}

type stubAliases map[string]string

func (s stubAliases) Resolve(topic string) (string, bool) {
	stem, ok := s[topic]
	return stem, ok
}

type stubExternal map[string]string

func (s stubExternal) Resolve(pkg, topic string) (string, bool) {
	url, ok := s[pkg+":"+topic]
	return url, ok
}
