package mdwriter

import (
	"strings"

	"github.com/rdocs/rd2qmd/internal/mdast"
)

func renderTable(n mdast.Node, opts Options) string {
	if opts.TableStyle == TablePipe {
		return renderPipeTable(n, opts)
	}
	return renderGridTable(n, opts)
}

// renderGridTable lays out a pandoc-style grid table: per-column width is
// the max of every cell's rendered line widths; cells may hold full block
// content (lists, nested tables) spanning multiple lines between the
// borders.
func renderGridTable(n mdast.Node, opts Options) string {
	rows := n.Children
	if len(rows) == 0 {
		return ""
	}
	ncols := len(rows[0].Children)
	if ncols == 0 {
		return ""
	}

	cellLines := make([][][]string, len(rows))
	colWidths := make([]int, ncols)
	for ri, row := range rows {
		cellLines[ri] = make([][]string, ncols)
		for ci, cell := range row.Children {
			if ci >= ncols {
				continue
			}
			content := strings.Join(renderBlockList(normalizeFlow(cell.Children), opts), "\n\n")
			lines := strings.Split(content, "\n")
			cellLines[ri][ci] = lines
			for _, l := range lines {
				if w := displayWidth(l); w > colWidths[ci] {
					colWidths[ci] = w
				}
			}
		}
	}

	var b strings.Builder
	b.WriteString(gridBorder(colWidths, '-', nil))
	for ri := range rows {
		maxLines := 0
		for _, lines := range cellLines[ri] {
			if len(lines) > maxLines {
				maxLines = len(lines)
			}
		}
		for li := 0; li < maxLines; li++ {
			b.WriteString("\n|")
			for ci := 0; ci < ncols; ci++ {
				var line string
				if li < len(cellLines[ri][ci]) {
					line = cellLines[ri][ci][li]
				}
				b.WriteString(" " + padDisplay(line, colWidths[ci]) + " |")
			}
		}
		b.WriteString("\n")
		if ri == 0 && n.HasHeader {
			b.WriteString(gridBorder(colWidths, '=', n.AlignCols))
		} else {
			b.WriteString(gridBorder(colWidths, '-', nil))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// gridBorder renders one horizontal rule. When aligns is non-nil it decorates
// the rule with pandoc's grid-table alignment colons, derived from
// \tabular's l/c/r column letters.
func gridBorder(colWidths []int, ch byte, aligns []mdast.Align) string {
	var b strings.Builder
	for i, w := range colWidths {
		seg := make([]byte, w+2)
		for j := range seg {
			seg[j] = ch
		}
		if aligns != nil && i < len(aligns) {
			switch aligns[i] {
			case mdast.AlignLeft:
				seg[0] = ':'
			case mdast.AlignRight:
				seg[len(seg)-1] = ':'
			case mdast.AlignCenter:
				seg[0] = ':'
				seg[len(seg)-1] = ':'
			}
		}
		b.WriteByte('+')
		b.Write(seg)
	}
	b.WriteByte('+')
	return b.String()
}

// renderPipeTable lays out a GitHub-style pipe table: each cell collapses to
// one line, block breaks become <br>, and a header separator is always
// emitted since pipe tables require one even when the source table (e.g.
// \tabular) never designated a header row.
func renderPipeTable(n mdast.Node, opts Options) string {
	rows := n.Children
	if len(rows) == 0 {
		return ""
	}
	ncols := len(rows[0].Children)

	lines := make([]string, 0, len(rows)+1)
	for ri, row := range rows {
		cells := make([]string, ncols)
		for ci, cell := range row.Children {
			if ci >= ncols {
				continue
			}
			cells[ci] = pipeCellText(cell, opts)
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
		if ri == 0 {
			lines = append(lines, pipeAlignRow(ncols, n.AlignCols))
		}
	}
	return strings.Join(lines, "\n")
}

func pipeCellText(cell mdast.Node, opts Options) string {
	content := strings.Join(renderBlockList(normalizeFlow(cell.Children), opts), "<br>")
	content = strings.ReplaceAll(content, "\n", "<br>")
	return content
}

func pipeAlignRow(ncols int, aligns []mdast.Align) string {
	cells := make([]string, ncols)
	for i := range cells {
		a := mdast.AlignNone
		if i < len(aligns) {
			a = aligns[i]
		}
		switch a {
		case mdast.AlignLeft:
			cells[i] = ":---"
		case mdast.AlignRight:
			cells[i] = "---:"
		case mdast.AlignCenter:
			cells[i] = ":---:"
		default:
			cells[i] = "---"
		}
	}
	return "| " + strings.Join(cells, " | ") + " |"
}
