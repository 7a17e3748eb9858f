package rdparse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rdocs/rd2qmd/internal/rdast"
)

func flat(nodes []rdast.Inline) string {
	return strings.TrimSpace(rdast.Flatten(nodes))
}

func TestParse_NameTitleDescription_ProducesExpectedSections(t *testing.T) {
	doc, diags := Parse([]byte(`\name{foo}\title{Foo title}\description{\emph{bar} baz}`))
	require.Empty(t, diags)
	require.Len(t, doc.Sections, 3)

	require.Equal(t, rdast.Name, doc.Sections[0].Tag.Kind)
	require.Equal(t, "foo", flat(doc.Sections[0].Body))

	require.Equal(t, rdast.Title, doc.Sections[1].Tag.Kind)
	require.Equal(t, "Foo title", flat(doc.Sections[1].Body))

	require.Equal(t, rdast.Description, doc.Sections[2].Tag.Kind)
	require.Len(t, doc.Sections[2].Body, 2)
	require.Equal(t, rdast.Emph, doc.Sections[2].Body[0].Kind)
	require.Equal(t, "bar", flat(doc.Sections[2].Body[0].Children))
}

func TestParse_ArgumentsSection_YieldsArgumentItems(t *testing.T) {
	doc, diags := Parse([]byte(`\arguments{\item{x}{A number.}\item{y, z}{Two more.}}`))
	require.Empty(t, diags)
	require.Len(t, doc.Sections, 1)

	body := doc.Sections[0].Body
	require.Len(t, body, 2)
	require.Equal(t, rdast.ArgumentItem, body[0].Kind)
	require.Equal(t, []string{"x"}, body[0].Names)
	require.Equal(t, "A number.", flat(body[0].Children))

	require.Equal(t, []string{"y", "z"}, body[1].Names)
	require.Equal(t, "Two more.", flat(body[1].Children))
}

func TestParse_Itemize_SplitsOnBareItem(t *testing.T) {
	doc, diags := Parse([]byte(`\details{\itemize{\item one \item two}}`))
	require.Empty(t, diags)

	body := doc.Sections[0].Body
	require.Len(t, body, 1)
	require.Equal(t, rdast.Itemize, body[0].Kind)
	require.Len(t, body[0].Items, 2)
	require.Equal(t, "one", flat(body[0].Items[0]))
	require.Equal(t, "two", flat(body[0].Items[1]))
}

func TestParse_Describe_PairsTermAndDescription(t *testing.T) {
	doc, _ := Parse([]byte(`\details{\describe{\item{foo}{does foo}\item{bar}{does bar}}}`))
	body := doc.Sections[0].Body
	require.Equal(t, rdast.Describe, body[0].Kind)
	require.Len(t, body[0].DescribeItems, 2)
	require.Equal(t, "foo", flat(body[0].DescribeItems[0].Term))
	require.Equal(t, "does foo", flat(body[0].DescribeItems[0].Description))
}

func TestParse_Tabular_SplitsRowsAndCellsOnCrTab(t *testing.T) {
	doc, _ := Parse([]byte(`\details{\tabular{ll}{a \tab b \cr c \tab d}}`))
	body := doc.Sections[0].Body
	require.Equal(t, rdast.Tabular, body[0].Kind)
	require.Equal(t, "ll", body[0].TabularSpec)
	require.Len(t, body[0].TabularRows, 2)
	require.Equal(t, "a", flat(body[0].TabularRows[0][0]))
	require.Equal(t, "b", flat(body[0].TabularRows[0][1]))
	require.Equal(t, "c", flat(body[0].TabularRows[1][0]))
	require.Equal(t, "d", flat(body[0].TabularRows[1][1]))
}

func TestParse_Link_AllBracketForms(t *testing.T) {
	doc, _ := Parse([]byte(`\details{\link{plain}\link[pkgA]{crossRef}\link[=dest]{shown}\link[pkgB:other]{shown2}}`))
	body := doc.Sections[0].Body
	require.Len(t, body, 4)

	require.Equal(t, "plain", body[0].Target)
	require.Equal(t, "", body[0].Package)

	require.Equal(t, "crossRef", body[1].Target)
	require.Equal(t, "pkgA", body[1].Package)

	require.Equal(t, "dest", body[2].Target)
	require.Equal(t, "", body[2].Package)

	require.Equal(t, "other", body[3].Target)
	require.Equal(t, "pkgB", body[3].Package)
}

func TestParse_Eqn_WithAndWithoutAsciiAlternative(t *testing.T) {
	doc, _ := Parse([]byte(`\details{\eqn{\alpha}{alpha}\eqn{\beta}}`))
	body := doc.Sections[0].Body
	require.Equal(t, rdast.Eqn, body[0].Kind)
	require.Equal(t, `\alpha`, body[0].Latex)
	require.True(t, body[0].HasAscii)
	require.Equal(t, "alpha", body[0].Ascii)

	require.False(t, body[1].HasAscii)
	require.Equal(t, `\beta`, body[1].Latex)
}

func TestParse_VerbatimGroup_PreservesNestedBracesExactly(t *testing.T) {
	doc, _ := Parse([]byte(`\details{\verb{a{nested}b}}`))
	body := doc.Sections[0].Body
	require.Equal(t, rdast.Verb, body[0].Kind)
	require.Equal(t, "a{nested}b", body[0].Raw)
}

func TestParse_ExampleControlBlocks_PreserveRawCode(t *testing.T) {
	doc, _ := Parse([]byte(`\examples{f(1)\dontrun{f(99) \% not escaped here}}`))
	body := doc.Sections[0].Body
	var block *rdast.Inline
	for i := range body {
		if body[i].Kind == rdast.ExampleBlock {
			block = &body[i]
		}
	}
	require.NotNil(t, block)
	require.Equal(t, rdast.Dontrun, block.ExampleKind)
	require.Equal(t, `f(99) \% not escaped here`, block.Children[0].Raw)
}

func TestParse_UnknownMacro_FallsBackToLiteralCode(t *testing.T) {
	doc, diags := Parse([]byte(`\details{\foo{bar}{baz}}`))
	require.Empty(t, diags)
	body := doc.Sections[0].Body
	require.Equal(t, rdast.Code, body[0].Kind)
	require.Equal(t, `\foo{bar}{baz}`, body[0].Children[0].Raw)
}

func TestParse_CustomSection_CapturesTitleAndBody(t *testing.T) {
	doc, _ := Parse([]byte(`\section{Extra}{Some text}`))
	require.Len(t, doc.Sections, 1)
	require.Equal(t, rdast.Custom, doc.Sections[0].Tag.Kind)
	require.Equal(t, "Extra", doc.Sections[0].Tag.Title)
	require.Equal(t, "Some text", flat(doc.Sections[0].Body))
}

func TestParse_UnclosedGroup_RecordsDiagnosticButStillReturnsDocument(t *testing.T) {
	doc, diags := Parse([]byte(`\name{unterminated`))
	require.NotEmpty(t, diags)
	require.NotNil(t, doc)
	require.Len(t, doc.Sections, 1)
	require.Equal(t, "unterminated", flat(doc.Sections[0].Body))
}

func TestParse_RepeatableAlias_AllowsMultipleOccurrences(t *testing.T) {
	doc, diags := Parse([]byte(`\alias{foo}\alias{foo-class}`))
	require.Empty(t, diags)
	require.Len(t, doc.Sections, 2)
	require.True(t, doc.Sections[0].Tag.Kind.Repeatable())
}
