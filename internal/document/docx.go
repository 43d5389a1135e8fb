package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const (
	docxHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	docxFooter = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1134" w:right="1134" w:bottom="1134" w:left="1134" w:header="709" w:footer="709" w:gutter="0"/></w:sectPr></w:body></w:document>`
)

// DOCXContentType is the MIME type of DOCX output.
const DOCXContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DOCX renders the document as a minimal Office Open XML package.
func DOCX(d Document) ([]byte, error) {
	var body strings.Builder
	body.WriteString(docxHeader)

	if d.Title != "" {
		paragraph(&body, `<w:jc w:val="center"/>`, run(d.Title, true, 32))
	}
	if d.Subtitle != "" {
		paragraph(&body, `<w:jc w:val="center"/>`, run(d.Subtitle, false, 20))
	}
	for _, b := range d.Blocks {
		var runs string
		if b.Label != "" {
			runs = run(b.Label, true, 22)
		}
		switch b.Kind {
		case Heading:
			paragraph(&body, `<w:spacing w:before="240" w:after="80"/>`, run(b.Text, true, 28))
		case Bullet:
			paragraph(&body, `<w:ind w:left="360" w:hanging="220"/>`, run("• ", false, 22)+runs+run(b.Text, false, 22))
		default:
			paragraph(&body, `<w:spacing w:after="120"/>`, runs+run(b.Text, false, 22))
		}
	}
	body.WriteString(docxFooter)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct{ name, content string }{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{"word/document.xml", body.String()},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", p.name, err)
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("writing %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing docx: %w", err)
	}
	return buf.Bytes(), nil
}

func paragraph(sb *strings.Builder, props, runs string) {
	sb.WriteString("<w:p>")
	if props != "" {
		sb.WriteString("<w:pPr>" + props + "</w:pPr>")
	}
	sb.WriteString(runs)
	sb.WriteString("</w:p>")
}

// run renders one text run; size is in half-points.
func run(text string, bold bool, size int) string {
	var sb strings.Builder
	sb.WriteString(`<w:r><w:rPr><w:rFonts w:ascii="Arial" w:hAnsi="Arial" w:cs="Arial"/>`)
	if bold {
		sb.WriteString("<w:b/>")
	}
	fmt.Fprintf(&sb, `<w:sz w:val="%d"/></w:rPr><w:t xml:space="preserve">`, size)
	xml.EscapeText(&sb, []byte(text))
	sb.WriteString("</w:t></w:r>")
	return sb.String()
}
