package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin = 20.0
	pdfIndent = 5.0
	fontName  = "Helvetica"
)

// pdfReplacer maps typographic punctuation to the core font's repertoire.
var pdfReplacer = strings.NewReplacer(
	"—", "-", "–", "-",
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
	"…", "...", "•", "-",
)

// PDF renders the document as an A4 PDF using the core Helvetica font.
// Characters outside Latin-1 are dropped.
func PDF(d Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	clean := func(s string) string { return tr(latin1(pdfReplacer.Replace(s))) }

	if d.Title != "" {
		pdf.SetFont(fontName, "B", 16)
		pdf.MultiCell(0, 8, clean(d.Title), "", "C", false)
	}
	if d.Subtitle != "" {
		pdf.SetFont(fontName, "", 10)
		pdf.MultiCell(0, 5, clean(d.Subtitle), "", "C", false)
	}
	if d.Title != "" || d.Subtitle != "" {
		pdf.Ln(4)
	}

	for _, b := range d.Blocks {
		switch b.Kind {
		case Heading:
			pdf.Ln(2)
			pdf.SetFont(fontName, "B", 13)
			pdf.MultiCell(0, 7, clean(b.Text), "", "L", false)
			y := pdf.GetY()
			pdf.Line(pdfMargin, y, 210-pdfMargin, y)
			pdf.Ln(2)
		case Bullet:
			pdf.SetLeftMargin(pdfMargin + pdfIndent)
			pdf.SetX(pdfMargin + pdfIndent)
			writeLabelled(pdf, "- "+clean(b.Label), clean(b.Text))
			pdf.SetLeftMargin(pdfMargin)
		default:
			writeLabelled(pdf, clean(b.Label), clean(b.Text))
			pdf.Ln(2)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeLabelled(pdf *fpdf.Fpdf, label, text string) {
	if label != "" {
		pdf.SetFont(fontName, "B", 11)
		pdf.Write(6, label)
	}
	pdf.SetFont(fontName, "", 11)
	pdf.Write(6, text)
	pdf.Ln(6)
}

func latin1(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r <= 0xFF {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
