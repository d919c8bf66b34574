// Package htmltext turns fetched HTML into the plain text an agent reads.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type CleanConfig struct {
	TagsToRemove  []string
	MaxOutputSize int
}

var DefaultCleanConfig = CleanConfig{
	TagsToRemove: []string{
		"script", "style", "noscript", "svg", "iframe", "canvas",
		"link", "meta", "template", "nav", "footer", "form",
	},
	MaxOutputSize: 60_000,
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Main: true, atom.Header: true, atom.Aside: true, atom.Li: true,
	atom.Ul: true, atom.Ol: true, atom.Table: true, atom.Tr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Br: true, atom.Blockquote: true, atom.Pre: true, atom.Dd: true, atom.Dt: true,
}

// Extract returns the document title and its readable body text, one line
// per block element.
func Extract(rawHTML string, cfg *CleanConfig) (string, string) {
	if cfg == nil {
		cfg = &DefaultCleanConfig
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", truncate(strings.TrimSpace(rawHTML), cfg.MaxOutputSize)
	}

	title := ""
	if t := findNode(doc, atom.Title); t != nil {
		title = collapse(textOf(t))
	}

	body := findNode(doc, atom.Body)
	if body == nil {
		return title, ""
	}
	cleanNode(body, cfg)

	var sb strings.Builder
	writeText(&sb, body)

	lines := strings.Split(sb.String(), "\n")
	kept := lines[:0]
	for _, l := range lines {
		if l = collapse(l); l != "" {
			kept = append(kept, l)
		}
	}
	return title, truncate(strings.Join(kept, "\n"), cfg.MaxOutputSize)
}

func findNode(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, a); found != nil {
			return found
		}
	}
	return nil
}

// cleanNode removes comments and the configured tags in place.
func cleanNode(n *html.Node, cfg *CleanConfig) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.CommentNode:
			n.RemoveChild(c)
		case c.Type == html.ElementNode && isOneOf(c.Data, cfg.TagsToRemove...):
			n.RemoveChild(c)
		case c.Type == html.ElementNode && hidden(c):
			n.RemoveChild(c)
		default:
			cleanNode(c, cfg)
		}
		c = next
	}
}

func hidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch {
		case a.Key == "hidden":
			return true
		case a.Key == "aria-hidden" && a.Val == "true":
			return true
		}
	}
	return false
}

func writeText(sb *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		return
	}
	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		sb.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(sb, c)
	}
	if block {
		sb.WriteByte('\n')
	}
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxSize int) string {
	if maxSize > 0 && len(s) > maxSize {
		cut := maxSize
		for cut > 0 && !utf8Start(s[cut]) {
			cut--
		}
		return s[:cut] + "\n... (truncated)"
	}
	return s
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}

func isOneOf(s string, candidates ...string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}
