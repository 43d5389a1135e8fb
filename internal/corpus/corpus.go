package corpus

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const defaultMaxTokens = 6000

// Corpus is the static reference text used to ground chat answers, together
// with the set of links the assistant is allowed to cite. It is immutable
// after Load.
type Corpus struct {
	path  string
	text  string
	valid map[string]struct{}
}

// New builds a corpus from text. The fallback links are always part of the
// valid link set.
func New(text string, fallbacks ...string) *Corpus {
	valid := ExtractURLs(text)
	for _, f := range fallbacks {
		if f != "" {
			valid[f] = struct{}{}
		}
	}
	return &Corpus{text: text, valid: valid}
}

// Load reads the corpus file at path. HTML files (.html, .htm) are reduced to
// their visible text plus link targets. A missing file is not an error: the
// corpus is empty and a warning is logged.
func Load(path string, fallbacks ...string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("corpus file not found, serving without reference content", "path", path)
		c := New("", fallbacks...)
		c.path = path
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}

	text := string(data)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		text, err = htmlText(data)
		if err != nil {
			return nil, fmt.Errorf("parsing corpus html: %w", err)
		}
	}

	c := New(text, fallbacks...)
	c.path = path
	slog.Debug("corpus loaded", "path", path, "bytes", len(text), "links", len(c.valid))
	return c, nil
}

// Text returns the full corpus text.
func (c *Corpus) Text() string { return c.text }

// Path returns the file the corpus was loaded from, if any.
func (c *Corpus) Path() string { return c.path }

// Empty reports whether the corpus has no usable content.
func (c *Corpus) Empty() bool { return strings.TrimSpace(c.text) == "" }

// IsValid reports whether u is in the valid link set.
func (c *Corpus) IsValid(u string) bool {
	_, ok := c.valid[u]
	return ok
}

// ValidURLs returns a copy of the valid link set.
func (c *Corpus) ValidURLs() map[string]struct{} {
	out := make(map[string]struct{}, len(c.valid))
	for u := range c.valid {
		out[u] = struct{}{}
	}
	return out
}

// Excerpt returns a prefix of the corpus that fits in maxTokens, cut on a
// paragraph boundary where possible. maxTokens <= 0 uses the default budget.
func (c *Corpus) Excerpt(maxTokens int) string {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	if EstimateTokens(c.text) <= maxTokens {
		return c.text
	}

	limit := maxTokens * 4
	for limit > 0 && !utf8.RuneStart(c.text[limit]) {
		limit--
	}
	cut := c.text[:limit]
	if i := strings.LastIndex(cut, "\n\n"); i > limit/2 {
		cut = cut[:i]
	} else if i := strings.LastIndexByte(cut, '\n'); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, "\n ")
}

// EstimateTokens provides a rough token count using 4 chars per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// htmlText flattens an HTML document into its visible text. Anchor targets are
// written next to their label so the link extractor sees them.
func htmlText(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteByte(' ')
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if n.Type == html.ElementNode {
			if n.Data == "a" {
				for _, a := range n.Attr {
					if a.Key == "href" && strings.HasPrefix(a.Val, "http") {
						sb.WriteString("(" + a.Val + ") ")
					}
				}
			}
			if isBlock(n.Data) {
				sb.WriteByte('\n')
			}
		}
	}
	walk(doc)

	lines := strings.Split(sb.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n"), nil
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "li", "ul", "ol", "br",
		"h1", "h2", "h3", "h4", "h5", "h6", "tr", "table", "header", "footer", "nav":
		return true
	}
	return false
}
