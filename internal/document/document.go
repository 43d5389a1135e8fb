// Package document renders generated text to PDF and DOCX and extracts text
// from uploaded files.
package document

import (
	"strings"
)

// BlockKind is the layout role of a block.
type BlockKind int

const (
	Paragraph BlockKind = iota
	Heading
	Bullet
)

// Block is one unit of document content.
type Block struct {
	Kind BlockKind
	// Label is rendered in bold before Text, e.g. "Email: ".
	Label string
	Text  string
}

// Document is a renderer-independent layout: a centred title and subtitle
// followed by blocks.
type Document struct {
	Title    string
	Subtitle string
	Blocks   []Block
}

// FromText turns free text into a Document. Lines starting with '#' become
// headings, lines starting with '-', '*' or a bullet glyph become bullets,
// and other consecutive lines are joined into paragraphs. Markdown bold
// markers are dropped.
func FromText(title, text string) Document {
	doc := Document{Title: strings.TrimSpace(title)}

	var para []string
	flush := func() {
		if len(para) > 0 {
			doc.Blocks = append(doc.Blocks, Block{Kind: Paragraph, Text: strings.Join(para, " ")})
			para = nil
		}
	}

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		l := strings.TrimSpace(strings.ReplaceAll(raw, "**", ""))
		switch {
		case l == "", l == "-", l == "*":
			flush()
		case strings.HasPrefix(l, "#"):
			flush()
			if h := strings.TrimSpace(strings.TrimLeft(l, "#")); h != "" {
				doc.Blocks = append(doc.Blocks, Block{Kind: Heading, Text: h})
			}
		case strings.HasPrefix(l, "- "), strings.HasPrefix(l, "* "), strings.HasPrefix(l, "•"):
			flush()
			b := strings.TrimSpace(strings.TrimLeft(l, "-*• "))
			if b != "" {
				doc.Blocks = append(doc.Blocks, Block{Kind: Bullet, Text: b})
			}
		default:
			para = append(para, l)
		}
	}
	flush()
	return doc
}

// PlainText renders the document back to text, one block per line.
func (d Document) PlainText() string {
	var sb strings.Builder
	if d.Title != "" {
		sb.WriteString(d.Title + "\n")
	}
	if d.Subtitle != "" {
		sb.WriteString(d.Subtitle + "\n")
	}
	for _, b := range d.Blocks {
		switch b.Kind {
		case Heading:
			sb.WriteString("\n## " + b.Text + "\n")
		case Bullet:
			sb.WriteString("- " + b.Label + b.Text + "\n")
		default:
			sb.WriteString(b.Label + b.Text + "\n")
		}
	}
	return strings.TrimSpace(sb.String())
}
