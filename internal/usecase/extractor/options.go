package extractor

// Options selects the source validation policy. The zero value is lenient
// and keeps duplicates.
type Options struct {
	// StrictSources fails the extraction on the first invalid source instead
	// of dropping it.
	StrictSources bool
	// DedupeSources collapses sources sharing a normalized URL, keeping the
	// first occurrence.
	DedupeSources bool
}

// DefaultOptions drops invalid sources and keeps duplicates.
func DefaultOptions() Options {
	return Options{}
}

// Path names the strategy that produced a result.
type Path string

const (
	PathBlock     Path = "block"
	PathSections  Path = "sections"
	PathHeuristic Path = "heuristic"
)

type DroppedSource struct {
	Index  int    `json:"index"`
	Title  string `json:"title,omitempty"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Report describes how a result was derived. Dropped lists the sources
// discarded in lenient mode.
type Report struct {
	Path    Path            `json:"path"`
	Dropped []DroppedSource `json:"dropped,omitempty"`
}
