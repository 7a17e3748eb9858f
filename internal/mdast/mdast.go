// Package mdast defines a small curated subset of the mdast (Markdown
// Abstract Syntax Tree) node set, the target of the lowering pass and the
// input to the Markdown writer.
//
// Reference: https://github.com/syntax-tree/mdast
package mdast

// Root is the top of an mdast document.
type Root struct {
	Children []Node
}

// Kind enumerates the closed set of node variants this package supports.
type Kind int

const (
	Heading Kind = iota
	Paragraph
	ThematicBreak
	Blockquote
	List
	ListItem
	Code
	Table
	TableRow
	TableCell
	DefinitionList
	DefinitionTerm
	DefinitionDescription
	Text
	Emphasis
	Strong
	InlineCode
	Break
	Link
	Image
	Math
	InlineMath
	Html
)

// Align is a table column's alignment, or AlignNone for unset.
type Align int

const (
	AlignNone Align = iota
	AlignLeft
	AlignCenter
	AlignRight
)

// Node is one mdast node. As with rdast.Inline, exactly one field group is
// meaningful per Kind; callers switch on Kind.
type Node struct {
	Kind Kind

	// Heading.
	Depth uint8

	// Heading, Paragraph, Blockquote, ListItem, Table, TableRow, TableCell,
	// DefinitionList, DefinitionTerm, DefinitionDescription, Emphasis,
	// Strong carry Children.
	Children []Node

	// List.
	Ordered bool
	Start   int
	HasStart bool

	// Code.
	Lang  string
	Meta  string
	Value string

	// Table. HasHeader marks whether Children[0] is a header row (grid
	// tables get a "=" rule below it, pipe tables always need a header so a
	// headerless table still renders row 0 as one there).
	AlignCols []Align
	HasHeader bool

	// Text, InlineCode, Math, InlineMath, Html share Value too.

	// Link, Image.
	URL   string
	Title string
	Alt   string // Image only
}

// TextNode constructs a Text leaf.
func TextNode(value string) Node { return Node{Kind: Text, Value: value} }

// Para constructs a Paragraph wrapping children.
func Para(children ...Node) Node { return Node{Kind: Paragraph, Children: children} }
