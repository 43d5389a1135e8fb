package sanitize

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/inforens/nori/internal/corpus"
)

// Format selects how RenderLinks presents bare URLs.
type Format string

const (
	FormatPlain    Format = "plain"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// RenderLinks turns bare URLs in sanitized text into clickable links for rich
// transports. FormatHTML escapes all other text. FormatPlain returns text
// unchanged.
func RenderLinks(text string, format Format) string {
	switch format {
	case FormatHTML:
		return renderHTML(text)
	case FormatMarkdown:
		return corpus.URLPattern.ReplaceAllStringFunc(text, func(u string) string {
			t := corpus.TrimURL(u)
			return "[" + t + "](" + t + ")" + u[len(t):]
		})
	default:
		return text
	}
}

func renderHTML(text string) string {
	var buf bytes.Buffer
	last := 0
	for _, loc := range corpus.URLPattern.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		u := corpus.TrimURL(raw)
		writeNode(&buf, textNode(text[last:loc[0]]))
		writeNode(&buf, anchor(u))
		writeNode(&buf, textNode(raw[len(u):]))
		last = loc[1]
	}
	writeNode(&buf, textNode(text[last:]))
	return buf.String()
}

func anchor(u string) *html.Node {
	a := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.A,
		Data:     "a",
		Attr: []html.Attribute{
			{Key: "href", Val: u},
			{Key: "target", Val: "_blank"},
			{Key: "rel", Val: "noopener noreferrer"},
		},
	}
	a.AppendChild(textNode(u))
	return a
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func writeNode(buf *bytes.Buffer, n *html.Node) {
	if n.Type == html.TextNode && n.Data == "" {
		return
	}
	// Render only fails on writer errors; bytes.Buffer never returns one.
	_ = html.Render(buf, n)
}
