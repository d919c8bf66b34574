package extractor

import (
	"regexp"
	"strings"
)

var (
	answerLabelPattern  = regexp.MustCompile(`(?i)^\s*(?:[*_#>]+\s*)?(?:final\s+)?answer\s*(?:[*_]+)?\s*:\s*(?:[*_]+\s*)?(.*)$`)
	sourcesLabelPattern = regexp.MustCompile(`(?i)^\s*(?:[*_#>]+\s*)?(?:sources?|references|citations)\s*(?:[*_]+)?\s*:\s*(?:[*_]+\s*)?(.*)$`)
	listMarkerPattern   = regexp.MustCompile(`^\s*(?:[-*•+]|\d+[.)])\s+`)
)

var entrySeparators = []string{": ", " - ", " – ", " — ", " | "}

type line struct {
	start, end int
	text       string
}

func splitLines(text string) []line {
	var out []line
	pos := 0
	for pos <= len(text) {
		nl := strings.IndexByte(text[pos:], '\n')
		if nl < 0 {
			out = append(out, line{start: pos, end: len(text), text: text[pos:]})
			break
		}
		out = append(out, line{start: pos, end: pos + nl, text: strings.TrimRight(text[pos:pos+nl], "\r")})
		pos += nl + 1
	}
	return out
}

// sectionsBlock recognises an "Answer:" line followed later by a "Sources:"
// line and its list of entries.
func sectionsBlock(text string) *structuredBlock {
	lines := splitLines(text)

	answerAt := -1
	for i, l := range lines {
		if answerLabelPattern.MatchString(l.text) {
			answerAt = i
			break
		}
	}
	if answerAt < 0 {
		return nil
	}

	sourcesAt := -1
	for i := answerAt + 1; i < len(lines); i++ {
		if sourcesLabelPattern.MatchString(lines[i].text) {
			sourcesAt = i
			break
		}
	}
	if sourcesAt < 0 {
		return nil
	}

	parts := []string{answerLabelPattern.FindStringSubmatch(lines[answerAt].text)[1]}
	for i := answerAt + 1; i < sourcesAt; i++ {
		parts = append(parts, lines[i].text)
	}
	answer := strings.TrimSpace(strings.Join(parts, "\n"))

	var entries []string
	inline := strings.TrimSpace(sourcesLabelPattern.FindStringSubmatch(lines[sourcesAt].text)[1])
	if inline != "" {
		if urls := urlPattern.FindAllString(inline, -1); len(urls) > 1 && markdownLinkPattern.FindStringIndex(inline) == nil {
			for _, u := range urls {
				entries = append(entries, trimURL(u))
			}
		} else {
			entries = append(entries, inline)
		}
	}

	last := sourcesAt
	for i := sourcesAt + 1; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i].text)
		if t == "" {
			continue
		}
		if !listMarkerPattern.MatchString(lines[i].text) && !strings.Contains(t, "://") {
			break
		}
		entries = append(entries, t)
		last = i
	}

	sources := make([]candidate, 0, len(entries))
	for _, e := range entries {
		sources = append(sources, parseEntry(e))
	}

	return &structuredBlock{
		span:    span{lines[answerAt].start, lines[last].end},
		path:    PathSections,
		answer:  answer,
		sources: sources,
	}
}

// parseEntry reads one source line: a markdown link, a label followed by a
// URL, a "Title: locator" pair, or a bare locator.
func parseEntry(entry string) candidate {
	s := strings.TrimSpace(listMarkerPattern.ReplaceAllString(entry, ""))

	if m := markdownLinkPattern.FindStringSubmatch(s); m != nil {
		return candidate{title: cleanLabel(m[1]), url: m[2]}
	}

	if loc := urlPattern.FindStringIndex(s); loc != nil {
		return candidate{title: cleanLabel(s[:loc[0]]), url: trimURL(s[loc[0]:loc[1]])}
	}

	for _, sep := range entrySeparators {
		if idx := strings.LastIndex(s, sep); idx > 0 {
			return candidate{title: cleanLabel(s[:idx]), url: strings.TrimSpace(s[idx+len(sep):])}
		}
	}
	return candidate{url: s}
}
