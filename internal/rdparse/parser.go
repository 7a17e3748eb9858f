// Package rdparse implements a recursive-descent parser that turns a stream
// of rdlex tokens into an rdast.Document.
//
// The parser never aborts on malformed input: unexpected tokens degrade to
// best-effort recovery plus a recorded diagnostic, and unknown commands fall
// back to a literal rendering rather than vanishing from the output.
package rdparse

import (
	"strings"

	"github.com/rdocs/rd2qmd/internal/rdast"
	"github.com/rdocs/rd2qmd/internal/rderrors"
	"github.com/rdocs/rd2qmd/internal/rdlex"
)

// Parser consumes rdlex tokens and builds an rdast.Document.
type Parser struct {
	lex   *rdlex.Lexer
	cur   rdlex.Token
	diags []*rderrors.ClassifiedError
}

// New constructs a Parser over src and primes the first token.
func New(src []byte) *Parser {
	p := &Parser{lex: rdlex.New(src)}
	p.advance()
	return p
}

// Parse parses src as a complete Rd document, returning the document and any
// diagnostics accumulated along the way. A non-empty diagnostics slice does
// not mean the document is unusable: Fatal entries mark spots where recovery
// was best-effort, Warning entries are informational.
func Parse(src []byte) (*rdast.Document, []*rderrors.ClassifiedError) {
	p := New(src)
	return p.parseDocument(), p.diags
}

func (p *Parser) advance() { p.cur = p.lex.Next() }

func (p *Parser) warn(err *rderrors.ClassifiedError) { p.diags = append(p.diags, err) }

// consumeIdentifierAfterBackslash assumes p.cur.Kind == Backslash and returns
// the macro name, leaving p.cur on whatever follows it.
func (p *Parser) consumeIdentifierAfterBackslash() string {
	tok := p.lex.NextIdentifier()
	p.advance()
	return tok.Text
}

func (p *Parser) skipWS() {
	for {
		switch p.cur.Kind {
		case rdlex.Comment:
			p.advance()
		case rdlex.Text:
			if !isAllWhitespace(p.cur.Text) {
				return
			}
			p.advance()
		default:
			return
		}
	}
}

func (p *Parser) skipWSAndNL() {
	for {
		switch p.cur.Kind {
		case rdlex.Comment, rdlex.Newline:
			p.advance()
		case rdlex.Text:
			if !isAllWhitespace(p.cur.Text) {
				return
			}
			p.advance()
		default:
			return
		}
	}
}

func isAllWhitespace(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' {
			return false
		}
	}
	return true
}

// parseDocument consumes top-level `\tag{...}` sections until EOF.
func (p *Parser) parseDocument() *rdast.Document {
	doc := &rdast.Document{}
	p.skipWSAndNL()
	for p.cur.Kind != rdlex.EOF {
		if p.cur.Kind == rdlex.Backslash {
			if sec := p.parseSection(); sec != nil {
				doc.Sections = append(doc.Sections, *sec)
			}
		} else {
			// Content outside any section has nowhere to go; drop and
			// keep scanning so one stray byte can't sink the document.
			p.advance()
		}
		p.skipWSAndNL()
	}
	return doc
}

func (p *Parser) parseSection() *rdast.Section {
	name := p.consumeIdentifierAfterBackslash()
	lname := strings.ToLower(name)
	if lname == "section" {
		return p.parseCustomSection()
	}

	kind, ok := rdast.LookupSectionKind(lname)
	title := ""
	if !ok {
		kind = rdast.Custom
		title = name
	}

	p.skipWSAndNL()
	if p.cur.Kind != rdlex.LBrace {
		p.warn(rderrors.ExpectedGroup(name, rderrors.Offset(p.cur.Start)))
		return &rdast.Section{Tag: rdast.SectionTag{Kind: kind, Title: title}}
	}
	openedAt := rderrors.Offset(p.cur.Start)
	p.advance()

	var body []rdast.Inline
	if kind == rdast.Arguments {
		body = p.parseArgumentsBody()
	} else {
		body = p.parseContent(openedAt, p.atRBrace)
	}
	p.closeGroup()

	return &rdast.Section{Tag: rdast.SectionTag{Kind: kind, Title: title}, Body: body}
}

func (p *Parser) parseCustomSection() *rdast.Section {
	p.skipWSAndNL()
	if p.cur.Kind != rdlex.LBrace {
		p.warn(rderrors.ExpectedGroup("section", rderrors.Offset(p.cur.Start)))
		return nil
	}
	titleNodes := p.parseInlineGroup()
	p.skipWSAndNL()

	var body []rdast.Inline
	if p.cur.Kind == rdlex.LBrace {
		body = p.parseInlineGroup()
	} else {
		p.warn(rderrors.BadArity("section", 2, 1))
	}

	return &rdast.Section{
		Tag:  rdast.SectionTag{Kind: rdast.Custom, Title: rdast.Flatten(titleNodes)},
		Body: body,
	}
}

func (p *Parser) atRBrace() bool { return p.cur.Kind == rdlex.RBrace }

// closeGroup consumes a trailing '}' if present. If it isn't (we're at EOF),
// parseContent already recorded the unclosed-group diagnostic.
func (p *Parser) closeGroup() {
	if p.cur.Kind == rdlex.RBrace {
		p.advance()
	}
}

// parseContent is the general recursive-descent scanner for a run of inline
// content, used for every `{...}` group except the handful with their own
// specialized grammar (item lists, describe, tabular, arguments, verbatim
// groups).
func (p *Parser) parseContent(openedAt rderrors.Offset, stop func() bool) []rdast.Inline {
	var nodes []rdast.Inline
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			nodes = append(nodes, rdast.Inline{Kind: rdast.Text, Raw: buf.String()})
			buf.Reset()
		}
	}
	for {
		if stop() {
			break
		}
		switch p.cur.Kind {
		case rdlex.EOF:
			p.warn(rderrors.UnclosedGroup(openedAt))
			flush()
			return nodes
		case rdlex.Backslash:
			flush()
			name := p.consumeIdentifierAfterBackslash()
			if node := p.parseMacro(name); node != nil {
				nodes = append(nodes, *node)
			}
		case rdlex.LBrace:
			// A bare grouping brace with no preceding command: nest its
			// content as plain text, same as the rest of real-world Rd.
			p.advance()
			inner := p.parseContent(openedAt, p.atRBrace)
			p.closeGroup()
			flush()
			nodes = append(nodes, inner...)
		case rdlex.RBrace:
			p.warn(rderrors.UnexpectedClose(rderrors.Offset(p.cur.Start)))
			p.advance()
		case rdlex.Newline:
			buf.WriteByte('\n')
			p.advance()
		case rdlex.Comment:
			p.advance()
		default: // Text, LBracket, RBracket
			buf.WriteString(p.cur.Text)
			p.advance()
		}
	}
	flush()
	return nodes
}

// parseInlineGroup parses one required `{...}` argument as recursive inline
// content.
func (p *Parser) parseInlineGroup() []rdast.Inline {
	p.skipWS()
	if p.cur.Kind != rdlex.LBrace {
		p.warn(rderrors.ExpectedGroup("(group)", rderrors.Offset(p.cur.Start)))
		return nil
	}
	openedAt := rderrors.Offset(p.cur.Start)
	p.advance()
	body := p.parseContent(openedAt, p.atRBrace)
	p.closeGroup()
	return body
}

// parseRawGroup parses one required `{...}` argument as uninterpreted raw
// text: braces nest by depth, everything else (including backslashes) is
// literal. This is how \verb, \eqn, \url and friends read their arguments.
func (p *Parser) parseRawGroup() string {
	p.skipWS()
	if p.cur.Kind != rdlex.LBrace {
		p.warn(rderrors.ExpectedGroup("(raw group)", rderrors.Offset(p.cur.Start)))
		return ""
	}
	openedAt := rderrors.Offset(p.cur.Start)
	p.lex.SetMode(rdlex.ModeVerbatim)
	p.advance() // consumes '{'; the token after it lexes in verbatim mode

	var b strings.Builder
	depth := 0
	for {
		switch p.cur.Kind {
		case rdlex.LBrace:
			depth++
			b.WriteByte('{')
			p.advance()
		case rdlex.RBrace:
			if depth == 0 {
				p.lex.SetMode(rdlex.ModeNormal)
				p.advance()
				return b.String()
			}
			depth--
			b.WriteByte('}')
			p.advance()
		case rdlex.EOF:
			p.warn(rderrors.UnclosedGroup(openedAt))
			p.lex.SetMode(rdlex.ModeNormal)
			return b.String()
		default:
			b.WriteString(p.cur.Text)
			p.advance()
		}
	}
}

// parseBracketArg consumes a `[...]` optional argument, assuming p.cur is
// already positioned on the '['.
func (p *Parser) parseBracketArg() string {
	p.advance() // consume '['
	var b strings.Builder
	for p.cur.Kind != rdlex.RBracket && p.cur.Kind != rdlex.EOF {
		if p.cur.Kind == rdlex.Backslash {
			b.WriteByte('\\')
		} else {
			b.WriteString(p.cur.Text)
		}
		p.advance()
	}
	if p.cur.Kind == rdlex.RBracket {
		p.advance()
	} else {
		p.warn(rderrors.UnclosedGroup(rderrors.Offset(p.cur.Start)))
	}
	return b.String()
}

// parseMacro parses a command's arguments given its already-consumed name
// (p.cur is the token right after the identifier). It returns nil only when
// the command's own grammar determines there's nothing to emit.
func (p *Parser) parseMacro(name string) *rdast.Inline {
	lname := strings.ToLower(name)

	// No-argument specials resolve immediately, matching real Rd: these
	// never consume a following brace even if one happens to be adjacent.
	switch lname {
	case "r":
		return &rdast.Inline{Kind: rdast.R}
	case "dots", "ldots":
		k := rdast.Dots
		if lname == "ldots" {
			k = rdast.Ldots
		}
		return &rdast.Inline{Kind: k}
	case "cr":
		return &rdast.Inline{Kind: rdast.Cr}
	case "tab":
		return &rdast.Inline{Kind: rdast.Tab}
	}

	p.skipWS()
	hasBracket := false
	bracket := ""
	if p.cur.Kind == rdlex.LBracket {
		hasBracket = true
		bracket = p.parseBracketArg()
	}

	switch lname {
	case "itemize":
		return p.parseList(false)
	case "enumerate":
		return p.parseList(true)
	case "describe":
		return p.parseDescribe()
	case "tabular":
		return p.parseTabular()

	case "code":
		return &rdast.Inline{Kind: rdast.Code, Children: p.parseInlineGroup()}
	case "emph":
		return &rdast.Inline{Kind: rdast.Emph, Children: p.parseInlineGroup()}
	case "strong", "bold":
		k := rdast.Strong
		if lname == "bold" {
			k = rdast.Bold
		}
		return &rdast.Inline{Kind: k, Children: p.parseInlineGroup()}
	case "kbd":
		return &rdast.Inline{Kind: rdast.Kbd, Children: p.parseInlineGroup()}
	case "var":
		return &rdast.Inline{Kind: rdast.Var, Children: p.parseInlineGroup()}
	case "squote":
		return &rdast.Inline{Kind: rdast.SQuote, Children: p.parseInlineGroup()}
	case "dquote":
		return &rdast.Inline{Kind: rdast.DQuote, Children: p.parseInlineGroup()}
	case "cite":
		return &rdast.Inline{Kind: rdast.Cite, Children: p.parseInlineGroup()}
	case "abbr":
		return &rdast.Inline{Kind: rdast.Abbr, Children: p.parseInlineGroup()}

	case "verb":
		return &rdast.Inline{Kind: rdast.Verb, Raw: p.parseRawGroup()}
	case "preformatted":
		return &rdast.Inline{Kind: rdast.Preformatted, Raw: p.parseRawGroup()}
	case "out":
		return &rdast.Inline{Kind: rdast.Out, Raw: p.parseRawGroup()}
	case "url":
		return &rdast.Inline{Kind: rdast.Url, Raw: p.parseRawGroup()}
	case "email":
		return &rdast.Inline{Kind: rdast.Email, Raw: p.parseRawGroup()}
	case "doi":
		return &rdast.Inline{Kind: rdast.Doi, Raw: p.parseRawGroup()}
	case "pkg":
		return &rdast.Inline{Kind: rdast.Pkg, PkgName: p.parseRawGroup()}

	case "href":
		return p.parseHref()
	case "link":
		return p.parseLink(hasBracket, bracket)
	case "links4class":
		return p.parseLinkS4class(hasBracket, bracket)
	case "sexpr":
		return &rdast.Inline{Kind: rdast.Sexpr, Raw: p.parseRawGroup()}
	case "eqn":
		return p.parseEqn(rdast.Eqn)
	case "deqn":
		return p.parseEqn(rdast.Deqn)
	case "if":
		return p.parseIf()
	case "ifelse":
		return p.parseIfelse()
	case "method":
		return p.parseMethod(rdast.MethodGeneric)
	case "s3method":
		return p.parseMethod(rdast.MethodS3)
	case "s4method":
		return p.parseMethod(rdast.MethodS4)
	case "figure":
		return p.parseFigure(bracket)

	case "dontrun":
		return p.parseExampleBlock(rdast.Dontrun)
	case "donttest":
		return p.parseExampleBlock(rdast.Donttest)
	case "dontshow":
		return p.parseExampleBlock(rdast.Dontshow)
	case "testonly":
		return p.parseExampleBlock(rdast.Testonly)
	case "dontdiff":
		return p.parseExampleBlock(rdast.Dontdiff)
	}

	return p.parseUnknownMacro(name, hasBracket, bracket)
}

// parseList parses \itemize or \enumerate: zero or more bare `\item` runs,
// each collecting content until the next `\item` or the closing brace.
func (p *Parser) parseList(ordered bool) *rdast.Inline {
	p.skipWS()
	if p.cur.Kind != rdlex.LBrace {
		p.warn(rderrors.ExpectedGroup("itemize", rderrors.Offset(p.cur.Start)))
		return nil
	}
	openedAt := rderrors.Offset(p.cur.Start)
	p.advance()
	p.skipWSAndNL()

	var items [][]rdast.Inline
	var cur []rdast.Inline
	var buf strings.Builder
	started := false

	flush := func() {
		if buf.Len() > 0 {
			cur = append(cur, rdast.Inline{Kind: rdast.Text, Raw: buf.String()})
			buf.Reset()
		}
	}
	commit := func() {
		flush()
		if started {
			items = append(items, cur)
		}
		cur = nil
	}

	for p.cur.Kind != rdlex.RBrace && p.cur.Kind != rdlex.EOF {
		if p.cur.Kind == rdlex.Backslash {
			name := p.consumeIdentifierAfterBackslash()
			if strings.ToLower(name) == "item" {
				commit()
				started = true
				p.skipWS()
				continue
			}
			if node := p.parseMacro(name); node != nil && started {
				cur = append(cur, *node)
			}
			continue
		}
		if !started {
			// Content before the first \item has no item to belong to.
			p.advance()
			continue
		}
		switch p.cur.Kind {
		case rdlex.Newline:
			buf.WriteByte('\n')
		case rdlex.Comment:
			// dropped
		default:
			buf.WriteString(p.cur.Text)
		}
		p.advance()
	}
	commit()

	if p.cur.Kind == rdlex.RBrace {
		p.advance()
	} else {
		p.warn(rderrors.UnclosedGroup(openedAt))
	}

	kind := rdast.Itemize
	if ordered {
		kind = rdast.Enumerate
	}
	return &rdast.Inline{Kind: kind, Items: items}
}

// parseDescribe parses \describe: zero or more `\item{term}{description}`
// pairs.
func (p *Parser) parseDescribe() *rdast.Inline {
	p.skipWS()
	if p.cur.Kind != rdlex.LBrace {
		p.warn(rderrors.ExpectedGroup("describe", rderrors.Offset(p.cur.Start)))
		return nil
	}
	openedAt := rderrors.Offset(p.cur.Start)
	p.advance()
	p.skipWSAndNL()

	var items []rdast.DescribeItem
	for p.cur.Kind != rdlex.RBrace && p.cur.Kind != rdlex.EOF {
		if p.cur.Kind == rdlex.Backslash {
			name := p.consumeIdentifierAfterBackslash()
			if strings.ToLower(name) == "item" {
				term := p.parseInlineGroup()
				desc := p.parseInlineGroup()
				items = append(items, rdast.DescribeItem{Term: term, Description: desc})
				p.skipWSAndNL()
				continue
			}
			p.parseMacro(name) // content outside \item has nowhere to go
			continue
		}
		p.advance()
	}

	if p.cur.Kind == rdlex.RBrace {
		p.advance()
	} else {
		p.warn(rderrors.UnclosedGroup(openedAt))
	}
	return &rdast.Inline{Kind: rdast.Describe, DescribeItems: items}
}

// parseArgumentsBody parses the body of an \arguments section directly
// (it isn't wrapped in its own Inline node the way \describe is): a
// sequence of `\item{names}{description}` pairs.
func (p *Parser) parseArgumentsBody() []rdast.Inline {
	var body []rdast.Inline
	for p.cur.Kind != rdlex.RBrace && p.cur.Kind != rdlex.EOF {
		if p.cur.Kind == rdlex.Backslash {
			name := p.consumeIdentifierAfterBackslash()
			if strings.ToLower(name) == "item" {
				names := splitArgNames(p.parseRawGroup())
				desc := p.parseInlineGroup()
				body = append(body, rdast.Inline{Kind: rdast.ArgumentItem, Names: names, Children: desc})
				continue
			}
			if node := p.parseMacro(name); node != nil {
				body = append(body, *node)
			}
			continue
		}
		p.advance()
	}
	return body
}

func splitArgNames(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, pt := range parts {
		pt = strings.TrimSpace(pt)
		if pt != "" {
			out = append(out, pt)
		}
	}
	return out
}

// parseTabular parses \tabular{spec}{rows}. Cell boundaries are bare \tab,
// row boundaries bare \cr; both are scanned for directly since they carry no
// braces of their own and would otherwise be indistinguishable from the
// zero-argument Tab/Cr specials used elsewhere.
func (p *Parser) parseTabular() *rdast.Inline {
	spec := p.parseRawGroup()

	p.skipWS()
	if p.cur.Kind != rdlex.LBrace {
		p.warn(rderrors.BadArity("tabular", 2, 1))
		return &rdast.Inline{Kind: rdast.Tabular, TabularSpec: spec}
	}
	openedAt := rderrors.Offset(p.cur.Start)
	p.advance()
	rows := p.parseTabularRows(openedAt)
	p.closeGroup()

	return &rdast.Inline{Kind: rdast.Tabular, TabularSpec: spec, TabularRows: rows}
}

func (p *Parser) parseTabularRows(openedAt rderrors.Offset) [][][]rdast.Inline {
	var rows [][][]rdast.Inline
	var row [][]rdast.Inline
	var cell []rdast.Inline
	var buf strings.Builder

	flushText := func() {
		if buf.Len() > 0 {
			cell = append(cell, rdast.Inline{Kind: rdast.Text, Raw: buf.String()})
			buf.Reset()
		}
	}
	finish := func() {
		flushText()
		if len(cell) > 0 {
			row = append(row, cell)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}

	for {
		switch p.cur.Kind {
		case rdlex.EOF:
			p.warn(rderrors.UnclosedGroup(openedAt))
			finish()
			return rows
		case rdlex.RBrace:
			finish()
			return rows
		case rdlex.Backslash:
			name := p.consumeIdentifierAfterBackslash()
			switch strings.ToLower(name) {
			case "tab":
				flushText()
				row = append(row, cell)
				cell = nil
			case "cr":
				flushText()
				row = append(row, cell)
				cell = nil
				rows = append(rows, row)
				row = nil
			default:
				if node := p.parseMacro(name); node != nil {
					cell = append(cell, *node)
				}
			}
		case rdlex.Newline:
			buf.WriteByte('\n')
			p.advance()
		case rdlex.Comment:
			p.advance()
		default:
			buf.WriteString(p.cur.Text)
			p.advance()
		}
	}
}

func (p *Parser) parseHref() *rdast.Inline {
	url := p.parseRawGroup()
	text := p.parseInlineGroup()
	return &rdast.Inline{Kind: rdast.Href, URL: url, Children: text}
}

// parseLink resolves the four real-world \link forms: \link{topic},
// \link[pkg]{topic}, \link[pkg:dest]{text} and \link[=dest]{text}.
func (p *Parser) parseLink(hasBracket bool, bracket string) *rdast.Inline {
	content := p.parseInlineGroup()
	flat := rdast.Flatten(content)

	var target, pkg string
	switch {
	case !hasBracket:
		target = flat
	case strings.HasPrefix(bracket, "="):
		target = bracket[1:]
	case strings.Contains(bracket, ":"):
		idx := strings.Index(bracket, ":")
		pkg, target = bracket[:idx], bracket[idx+1:]
	default:
		pkg, target = bracket, flat
	}
	return &rdast.Inline{Kind: rdast.Link, Target: target, Package: pkg, Children: content}
}

func (p *Parser) parseLinkS4class(hasBracket bool, bracket string) *rdast.Inline {
	classname := p.parseRawGroup()
	pkg := ""
	if hasBracket {
		pkg = bracket
	}
	return &rdast.Inline{Kind: rdast.LinkS4class, Target: classname, Package: pkg}
}

func (p *Parser) parseEqn(kind rdast.InlineKind) *rdast.Inline {
	latex := p.parseRawGroup()
	p.skipWS()
	node := &rdast.Inline{Kind: kind, Latex: latex}
	if p.cur.Kind == rdlex.LBrace {
		node.Ascii = p.parseRawGroup()
		node.HasAscii = true
	}
	return node
}

func (p *Parser) parseIf() *rdast.Inline {
	format := p.parseRawGroup()
	then := p.parseInlineGroup()
	return &rdast.Inline{Kind: rdast.If, Format: format, Then: then}
}

func (p *Parser) parseIfelse() *rdast.Inline {
	format := p.parseRawGroup()
	thenContent := p.parseInlineGroup()
	elseContent := p.parseInlineGroup()
	return &rdast.Inline{Kind: rdast.Ifelse, Format: format, Then: thenContent, Else: elseContent}
}

func (p *Parser) parseMethod(kind rdast.MethodKind) *rdast.Inline {
	generic := p.parseRawGroup()
	class := p.parseRawGroup()
	return &rdast.Inline{Kind: rdast.Method, MethodKind: kind, Generic: generic, Class: class}
}

func (p *Parser) parseFigure(bracket string) *rdast.Inline {
	file := p.parseRawGroup()
	alt := bracket
	p.skipWS()
	if p.cur.Kind == rdlex.LBrace {
		alt = p.parseRawGroup()
	}
	return &rdast.Inline{Kind: rdast.Figure, FigureFile: file, FigureAlt: alt}
}

// parseExampleBlock reads a dontrun/donttest/dontshow/testonly/dontdiff body
// as raw, uninterpreted R source so it survives parse -> lower -> write
// byte-identical, per the round-trip property these blocks are held to.
func (p *Parser) parseExampleBlock(kind rdast.ExampleKind) *rdast.Inline {
	raw := p.parseRawGroup()
	return &rdast.Inline{
		Kind:        rdast.ExampleBlock,
		ExampleKind: kind,
		Children:    []rdast.Inline{{Kind: rdast.Text, Raw: raw}},
	}
}

// parseUnknownMacro preserves a command the closed union doesn't recognize
// as a literal Code fallback, so content is never silently dropped.
func (p *Parser) parseUnknownMacro(name string, hasBracket bool, bracket string) *rdast.Inline {
	var b strings.Builder
	b.WriteByte('\\')
	b.WriteString(name)
	if hasBracket {
		b.WriteByte('[')
		b.WriteString(bracket)
		b.WriteByte(']')
	}
	p.skipWS()
	for p.cur.Kind == rdlex.LBrace {
		b.WriteByte('{')
		b.WriteString(p.parseRawGroup())
		b.WriteByte('}')
		p.skipWS()
	}
	return &rdast.Inline{Kind: rdast.Code, Children: []rdast.Inline{{Kind: rdast.Text, Raw: b.String()}}}
}
