package extractor

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	resultTagPattern = regexp.MustCompile(`(?is)<result>(.*?)(?:</result>|\z)`)

	jsonFenceLangs = map[string]bool{"": true, "json": true, "json5": true, "jsonc": true}
)

type span struct {
	start, end int
}

type candidate struct {
	title string
	url   string
}

type structuredBlock struct {
	span    span
	path    Path
	answer  string
	sources []candidate
}

type delimited struct {
	span span
	body string
}

// findBlock returns the first block carrying an answer or sources, plus the
// spans of delimited blocks that carry neither.
func findBlock(raw string) (*structuredBlock, []span) {
	var empties []span
	var found *structuredBlock

	for _, d := range delimitedBodies(raw) {
		obj, ok := decodeObject(d.body)
		if !ok {
			if strings.TrimSpace(d.body) == "" {
				empties = append(empties, d.span)
			}
			continue
		}
		answer, sources, conforming := payloadFrom(obj)
		if !conforming {
			empties = append(empties, d.span)
			continue
		}
		if found == nil {
			found = &structuredBlock{span: d.span, path: PathBlock, answer: answer, sources: sources}
		}
	}
	if found != nil {
		return found, empties
	}

	masked := mask(raw, empties)
	if blk := bracesBlock(masked); blk != nil {
		return blk, empties
	}
	if blk := sectionsBlock(masked); blk != nil {
		return blk, empties
	}
	return nil, empties
}

func delimitedBodies(raw string) []delimited {
	out := fencedBodies(raw)
	for _, m := range resultTagPattern.FindAllStringSubmatchIndex(raw, -1) {
		out = append(out, delimited{span: span{m[0], m[1]}, body: raw[m[2]:m[3]]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].span.start < out[j].span.start
	})
	return out
}

// fencedBodies finds markdown code fences holding JSON. An unterminated
// fence runs to the end of the text.
func fencedBodies(raw string) []delimited {
	var out []delimited
	i := 0
	for {
		rel := strings.Index(raw[i:], "```")
		if rel < 0 {
			return out
		}
		open := i + rel
		after := open + 3

		firstLine := raw[after:]
		nl := strings.IndexByte(firstLine, '\n')
		if nl >= 0 {
			firstLine = firstLine[:nl]
		}

		if c := strings.Index(firstLine, "```"); c >= 0 {
			lang, body := splitInlineLang(strings.TrimSpace(firstLine[:c]))
			end := after + c + 3
			if jsonFenceLangs[lang] {
				out = append(out, delimited{span: span{open, end}, body: body})
			}
			i = end
			continue
		}

		lang := strings.ToLower(strings.TrimSpace(firstLine))
		bodyStart := after + len(firstLine)
		if nl >= 0 {
			bodyStart++
		}
		if strings.HasPrefix(lang, "{") {
			lang = ""
			bodyStart = after
		}

		body := raw[bodyStart:]
		end := len(raw)
		if c := strings.Index(body, "```"); c >= 0 {
			body = body[:c]
			end = bodyStart + c + 3
		}
		if jsonFenceLangs[lang] {
			out = append(out, delimited{span: span{open, end}, body: body})
		}
		i = end
	}
}

func splitInlineLang(inner string) (string, string) {
	if strings.HasPrefix(inner, "{") {
		return "", inner
	}
	idx := strings.IndexAny(inner, " \t{")
	if idx < 0 {
		return strings.ToLower(inner), ""
	}
	return strings.ToLower(strings.TrimSpace(inner[:idx])), inner[idx:]
}

// bracesBlock tries the outermost {...} span, then the tail from the first
// brace for output that was cut off before closing.
func bracesBlock(text string) *structuredBlock {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil
	}

	spans := make([]span, 0, 2)
	if end := strings.LastIndexByte(text, '}'); end > start {
		spans = append(spans, span{start, end + 1})
	}
	if len(spans) == 0 || spans[0].end < len(strings.TrimRight(text, " \t\r\n")) {
		spans = append(spans, span{start, len(text)})
	}

	for _, sp := range spans {
		obj, ok := decodeObject(text[sp.start:sp.end])
		if !ok {
			continue
		}
		if answer, sources, conforming := payloadFrom(obj); conforming {
			return &structuredBlock{span: sp, path: PathBlock, answer: answer, sources: sources}
		}
	}
	return nil
}

func decodeObject(body string) (map[string]json.RawMessage, bool) {
	s := stripFence(strings.TrimSpace(body))
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return obj, obj != nil
	}

	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, false
	}
	obj = nil
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
		return nil, false
	}
	return obj, obj != nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func payloadFrom(obj map[string]json.RawMessage) (string, []candidate, bool) {
	answerRaw, hasAnswer := lookup(obj, "answer")
	sourcesRaw, hasSources := lookup(obj, "sources")
	if !hasAnswer && !hasSources {
		return "", nil, false
	}
	return decodeAnswer(answerRaw), decodeSources(sourcesRaw), true
}

// lookup prefers the exact key and falls back to a case-insensitive match
// in sorted key order.
func lookup(obj map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	if v, ok := obj[name]; ok {
		return v, true
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.EqualFold(k, name) {
			return obj[k], true
		}
	}
	return nil, false
}

func decodeAnswer(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := bytes.TrimSpace(raw)
	if string(trimmed) == "null" {
		return ""
	}
	return string(trimmed)
}

func decodeSources(raw json.RawMessage) []candidate {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		items = []json.RawMessage{raw}
	}
	out := make([]candidate, 0, len(items))
	for _, item := range items {
		out = append(out, decodeSource(item))
	}
	return out
}

func decodeSource(item json.RawMessage) candidate {
	var s string
	if err := json.Unmarshal(item, &s); err == nil {
		return candidate{url: s}
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(item, &obj); err == nil && obj != nil {
		return candidate{
			title: stringField(obj, "title", "name"),
			url:   stringField(obj, "url", "link", "href"),
		}
	}
	return candidate{url: string(bytes.TrimSpace(item))}
}

func stringField(obj map[string]json.RawMessage, names ...string) string {
	for _, name := range names {
		v, ok := lookup(obj, name)
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	return ""
}

// mask blanks the given spans while keeping offsets and line breaks.
func mask(raw string, spans []span) string {
	if len(spans) == 0 {
		return raw
	}
	b := []byte(raw)
	for _, sp := range spans {
		for k := sp.start; k < sp.end; k++ {
			if b[k] != '\n' {
				b[k] = ' '
			}
		}
	}
	return string(b)
}

// residual is raw with the spans cut out, trimmed.
func residual(raw string, spans []span) string {
	if len(spans) == 0 {
		return strings.TrimSpace(raw)
	}
	sorted := append([]span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	var sb strings.Builder
	pos := 0
	for _, sp := range sorted {
		if sp.end <= pos {
			continue
		}
		if sp.start > pos {
			sb.WriteString(raw[pos:sp.start])
		}
		pos = sp.end
	}
	if pos < len(raw) {
		sb.WriteString(raw[pos:])
	}
	return strings.TrimSpace(sb.String())
}
