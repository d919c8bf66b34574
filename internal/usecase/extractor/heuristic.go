package extractor

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	urlPattern          = regexp.MustCompile("https?://[^\\s<>\"'`\\[\\]]+")
	markdownLinkPattern = regexp.MustCompile(`\[([^\[\]]+)\]\((https?://[^\s)]+)\)`)
)

const maxLabelRunes = 100

var genericLabels = map[string]bool{
	"source": true, "sources": true, "see": true, "link": true,
	"url": true, "ref": true, "reference": true,
}

type located struct {
	span span
	candidate
}

// scanSources collects every URL in text, in order of appearance, with the
// best title the surrounding text offers.
func scanSources(text string) []candidate {
	var found []located
	var covered []span

	for _, m := range markdownLinkPattern.FindAllStringSubmatchIndex(text, -1) {
		sp := span{m[0], m[1]}
		covered = append(covered, sp)
		found = append(found, located{span: sp, candidate: candidate{
			title: cleanLabel(text[m[2]:m[3]]),
			url:   text[m[4]:m[5]],
		}})
	}

	for _, a := range scanAnchors(text) {
		if inside(a.span.start, covered) {
			continue
		}
		covered = append(covered, a.span)
		found = append(found, a)
	}

	for _, m := range urlPattern.FindAllStringIndex(text, -1) {
		if inside(m[0], covered) {
			continue
		}
		found = append(found, located{span: span{m[0], m[1]}, candidate: candidate{
			title: labelBefore(text, m[0]),
			url:   trimURL(text[m[0]:m[1]]),
		}})
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].span.start < found[j].span.start
	})

	out := make([]candidate, 0, len(found))
	for _, f := range found {
		out = append(out, f.candidate)
	}
	return out
}

// scanAnchors finds <a href="http...">text</a> elements and their byte spans.
func scanAnchors(text string) []located {
	if !strings.Contains(text, "<") {
		return nil
	}

	var out []located
	z := html.NewTokenizer(strings.NewReader(text))
	pos := 0

	var open *located
	var label strings.Builder

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out
		}
		start := pos
		pos += len(z.Raw())
		tok := z.Token()

		switch tt {
		case html.StartTagToken:
			if tok.DataAtom != atom.A {
				continue
			}
			href := attr(tok, "href")
			if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
				open = nil
				continue
			}
			open = &located{span: span{start: start}, candidate: candidate{url: strings.TrimSpace(href)}}
			label.Reset()
		case html.TextToken:
			if open != nil {
				label.WriteString(tok.Data)
			}
		case html.EndTagToken:
			if tok.DataAtom == atom.A && open != nil {
				open.span.end = pos
				open.title = cleanLabel(label.String())
				out = append(out, *open)
				open = nil
			}
		}
	}
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}

func inside(pos int, spans []span) bool {
	for _, sp := range spans {
		if pos >= sp.start && pos < sp.end {
			return true
		}
	}
	return false
}

// trimURL drops trailing sentence punctuation and unbalanced closing
// parentheses.
func trimURL(u string) string {
	for {
		trimmed := strings.TrimRight(u, ".,;:!?'\"*_")
		if strings.HasSuffix(trimmed, ")") && strings.Count(trimmed, "(") < strings.Count(trimmed, ")") {
			trimmed = trimmed[:len(trimmed)-1]
		}
		if trimmed == u {
			return u
		}
		u = trimmed
	}
}

// labelBefore returns the same-line label introducing the URL at pos, or ""
// when there is none.
func labelBefore(text string, pos int) string {
	lineStart := strings.LastIndexByte(text[:pos], '\n') + 1
	before := strings.TrimRight(text[lineStart:pos], " \t")
	if before == "" {
		return ""
	}

	last, _ := utf8.DecodeLastRuneInString(before)
	if !strings.ContainsRune(":-–—|(", last) {
		return ""
	}

	before = listMarkerPattern.ReplaceAllString(before, "")
	for _, stop := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(before, stop); idx >= 0 {
			before = before[idx+len(stop):]
		}
	}

	label := cleanLabel(before)
	switch {
	case label == "":
		return ""
	case genericLabels[strings.ToLower(label)]:
		return ""
	case utf8.RuneCountInString(label) > maxLabelRunes:
		return ""
	case strings.Contains(label, "://"):
		return ""
	}
	return label
}

func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ":-–—|( \t")
	s = strings.Trim(s, "\"*_` ")
	return strings.Join(strings.Fields(s), " ")
}

func hasContent(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
