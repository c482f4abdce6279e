package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pageWidth    = 190.0
	bottomMargin = 10.0
	bodyFont     = "Arial"
	bodySize     = 9.0
)

// markdownToPDF lays the bundle out on A4 pages
func (r *Renderer) markdownToPDF(markdown []byte, title string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("evharness", true)
	pdf.AddPage()
	pdf.SetFont(bodyFont, "", bodySize)

	doc := r.md.Parser().Parse(text.NewReader(markdown))
	w := &pdfWriter{
		pdf:    pdf,
		source: markdown,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
	}
	if err := ast.Walk(doc, w.walk); err != nil {
		return nil, fmt.Errorf("failed to lay out PDF: %w", err)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to lay out PDF: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf       *fpdf.Fpdf
	source    []byte
	tr        func(string) string // UTF-8 to cp1252 for the core fonts
	bold      bool
	italic    bool
	listLevel int
}

func (w *pdfWriter) updateFont() {
	style := ""
	if w.bold {
		style += "B"
	}
	if w.italic {
		style += "I"
	}
	w.pdf.SetFont(bodyFont, style, bodySize)
}

func (w *pdfWriter) write(s string) {
	w.pdf.Write(5, w.tr(s))
}

func (w *pdfWriter) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		w.heading(node, entering)
	case *ast.Paragraph:
		if !entering {
			w.pdf.Ln(6)
		}
	case *ast.Text:
		if entering {
			w.write(string(node.Segment.Value(w.source)))
			if node.SoftLineBreak() || node.HardLineBreak() {
				w.pdf.Ln(5)
			}
		}
	case *ast.Emphasis:
		if node.Level == 2 {
			w.bold = entering
		} else {
			w.italic = entering
		}
		w.updateFont()
	case *ast.CodeSpan:
		if entering {
			w.pdf.SetFont("Courier", "", bodySize)
			w.write(string(node.Text(w.source)))
			w.updateFont()
		}
		return ast.WalkSkipChildren, nil
	case *ast.FencedCodeBlock:
		if entering {
			w.codeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.CodeBlock:
		if entering {
			w.codeBlock(node.Lines())
		}
		return ast.WalkSkipChildren, nil
	case *ast.List:
		w.list(entering)
	case *ast.ListItem:
		if entering {
			w.pdf.Ln(5)
			w.pdf.SetX(10 + float64(w.listLevel)*5)
			w.write("- ")
		}
	case *ast.ThematicBreak:
		if entering {
			w.pdf.Ln(2)
			w.pdf.Line(10, w.pdf.GetY(), 10+pageWidth, w.pdf.GetY())
			w.pdf.Ln(2)
		}
	case *extast.Table:
		if entering {
			w.table(w.tableRows(node))
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (w *pdfWriter) heading(n *ast.Heading, entering bool) {
	if !entering {
		w.pdf.Ln(7)
		w.updateFont()
		return
	}
	w.pdf.Ln(4)
	size := 10.0
	switch n.Level {
	case 1:
		size = 15
	case 2:
		size = 12
	case 3:
		size = 11
	}
	w.pdf.SetFont(bodyFont, "B", size)
}

func (w *pdfWriter) list(entering bool) {
	if entering {
		w.listLevel++
		return
	}
	w.listLevel--
	if w.listLevel == 0 {
		w.pdf.Ln(7)
	}
}

func (w *pdfWriter) codeBlock(lines *text.Segments) {
	w.pdf.Ln(2)
	w.pdf.SetFont("Courier", "", 8)
	w.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		txt := strings.TrimRight(string(line.Value(w.source)), "\n")
		w.pdf.MultiCell(0, 4, w.tr(txt), "", "L", true)
	}
	w.pdf.SetFillColor(255, 255, 255)
	w.updateFont()
	w.pdf.Ln(2)
}

func (w *pdfWriter) tableRows(t *extast.Table) [][]string {
	var rows [][]string
	for child := t.FirstChild(); child != nil; child = child.NextSibling() {
		// the header is a sibling of the body rows, not a row itself
		var row []string
		for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
			if _, ok := cell.(*extast.TableCell); ok {
				row = append(row, w.tr(strings.TrimSpace(string(cell.Text(w.source)))))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func (w *pdfWriter) table(rows [][]string) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}
	const (
		fontSize   = 7.0
		lineHeight = 3.5
		maxLines   = 8
	)
	numCols := len(rows[0])
	widths := w.columnWidths(rows, numCols, fontSize)
	_, pageHeight := w.pdf.GetPageSize()

	w.pdf.Ln(1)
	for i, row := range rows {
		if i == 0 {
			w.pdf.SetFont(bodyFont, "B", fontSize)
		} else {
			w.pdf.SetFont(bodyFont, "", fontSize)
		}

		lines := make([][]string, numCols)
		height := 1
		for j := 0; j < numCols && j < len(row); j++ {
			lines[j] = w.wrap(row[j], widths[j]-2)
			if len(lines[j]) > maxLines {
				lines[j] = append(lines[j][:maxLines-1], lines[j][maxLines-1]+"...")
			}
			if len(lines[j]) > height {
				height = len(lines[j])
			}
		}
		rowHeight := float64(height)*lineHeight + 2

		x, y := 10.0, w.pdf.GetY()
		if y+rowHeight > pageHeight-bottomMargin {
			w.pdf.AddPage()
			y = w.pdf.GetY()
		}
		for j := 0; j < numCols; j++ {
			if i == 0 {
				w.pdf.SetFillColor(230, 230, 230)
				w.pdf.Rect(x, y, widths[j], rowHeight, "FD")
			} else {
				w.pdf.Rect(x, y, widths[j], rowHeight, "D")
			}
			for k, line := range lines[j] {
				w.pdf.SetXY(x+1, y+1+float64(k)*lineHeight)
				w.pdf.CellFormat(widths[j]-2, lineHeight, line, "", 0, "L", false, 0, "")
			}
			x += widths[j]
		}
		w.pdf.SetXY(10, y+rowHeight)
	}
	w.pdf.SetFillColor(255, 255, 255)
	w.pdf.Ln(3)
	w.updateFont()
}

// columnWidths sizes columns to their widest cell, clamped and scaled to the page
func (w *pdfWriter) columnWidths(rows [][]string, numCols int, fontSize float64) []float64 {
	widths := make([]float64, numCols)
	for i, row := range rows {
		style := ""
		if i == 0 {
			style = "B"
		}
		w.pdf.SetFont(bodyFont, style, fontSize)
		for j := 0; j < numCols && j < len(row); j++ {
			if cw := w.pdf.GetStringWidth(row[j]) + 4; cw > widths[j] {
				widths[j] = cw
			}
		}
	}

	const minWidth = 12.0
	maxWidth := pageWidth / 2
	total := 0.0
	for j := range widths {
		if widths[j] < minWidth {
			widths[j] = minWidth
		}
		if widths[j] > maxWidth {
			widths[j] = maxWidth
		}
		total += widths[j]
	}
	if total > pageWidth {
		scale := pageWidth / total
		for j := range widths {
			widths[j] *= scale
		}
	}
	return widths
}

func (w *pdfWriter) wrap(s string, width float64) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if w.pdf.GetStringWidth(current+" "+word) <= width {
			current += " " + word
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
