package entity

// Source is one cited reference backing part of an answer.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// StructuredResult is the validated, program-ready form of an agent answer.
// Answer is never empty; Sources is never nil once returned by the extractor.
type StructuredResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}
