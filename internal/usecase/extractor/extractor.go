// Package extractor turns the free-text answer of a reasoning agent into a
// validated StructuredResult.
//
// It first looks for a structured block (a fenced or <result>-tagged JSON
// object, a bare {...} object, or Answer:/Sources: sections) and falls back
// to treating the whole text as the answer with URLs scanned out of it.
// Extraction is pure: no I/O, no logging, no shared state.
package extractor

import (
	"errors"
	"strings"

	"search-agent/internal/domain/entity"
)

// Extract converts raw into a StructuredResult, or fails with an *Error
// whose Kind is EmptyAnswer, MalformedSource or NoParsableContent. It is
// deterministic and safe for concurrent use.
func Extract(raw string, opts Options) (*entity.StructuredResult, error) {
	res, _, err := ExtractWithReport(raw, opts)
	return res, err
}

// ExtractWithReport is Extract plus a Report naming the path taken and the
// sources dropped along the way.
func ExtractWithReport(raw string, opts Options) (*entity.StructuredResult, Report, error) {
	res, rep, err := extract(raw, opts)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			e.Raw = raw
		}
		return nil, rep, err
	}
	return res, rep, nil
}

func extract(raw string, opts Options) (*entity.StructuredResult, Report, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, Report{}, &Error{Kind: KindEmptyAnswer}
	}

	blk, empties := findBlock(raw)
	if blk != nil {
		rep := Report{Path: blk.path}
		sources, err := resolveSources(blk.sources, opts, &rep)
		if err != nil {
			return nil, rep, err
		}

		answer := strings.TrimSpace(blk.answer)
		if answer == "" {
			rest := residual(raw, append(empties, blk.span))
			if !hasContent(rest) {
				return nil, rep, &Error{Kind: KindEmptyAnswer}
			}
			answer = rest
		}
		return &entity.StructuredResult{Answer: answer, Sources: sources}, rep, nil
	}

	rep := Report{Path: PathHeuristic}
	answer := residual(raw, empties)
	if !hasContent(answer) {
		return nil, rep, &Error{Kind: KindNoParsableContent}
	}

	sources, err := resolveSources(scanSources(answer), opts, &rep)
	if err != nil {
		return nil, rep, err
	}
	return &entity.StructuredResult{Answer: answer, Sources: sources}, rep, nil
}

func resolveSources(cands []candidate, opts Options, rep *Report) ([]entity.Source, error) {
	out := make([]entity.Source, 0, len(cands))
	seen := make(map[string]bool, len(cands))

	for i, c := range cands {
		u, reason := validateURL(c.url)
		if reason != "" {
			if opts.StrictSources {
				return nil, &Error{Kind: KindMalformedSource, Index: i, URL: c.url, Reason: reason}
			}
			rep.Dropped = append(rep.Dropped, DroppedSource{Index: i, Title: c.title, URL: c.url, Reason: reason})
			continue
		}

		if opts.DedupeSources {
			key := normalizeURL(u)
			if seen[key] {
				continue
			}
			seen[key] = true
		}

		title := strings.TrimSpace(c.title)
		if title == "" {
			title = u
		}
		out = append(out, entity.Source{Title: title, URL: u})
	}
	return out, nil
}
