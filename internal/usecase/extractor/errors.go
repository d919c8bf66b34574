package extractor

import (
	"errors"
	"fmt"
)

// Kind classifies an extraction failure. Its string form is what the HTTP
// API and the CLI report.
type Kind string

const (
	KindEmptyAnswer       Kind = "EmptyAnswer"
	KindMalformedSource   Kind = "MalformedSource"
	KindNoParsableContent Kind = "NoParsableContent"
)

var (
	ErrEmptyAnswer       = errors.New("empty answer")
	ErrMalformedSource   = errors.New("malformed source")
	ErrNoParsableContent = errors.New("no parsable content")
)

// Error is returned for every extraction failure. Raw holds the text that
// was being extracted so callers can surface it.
type Error struct {
	Kind   Kind
	Index  int
	URL    string
	Reason string
	Raw    string
}

func (e *Error) Error() string {
	if e.Kind == KindMalformedSource {
		return fmt.Sprintf("malformed source #%d %q: %s", e.Index, e.URL, e.Reason)
	}
	return e.sentinel().Error()
}

// FailureKind and RawText describe the failure to callers that only know
// the method set, such as presenters.
func (e *Error) FailureKind() string { return string(e.Kind) }

func (e *Error) RawText() string { return e.Raw }

func (e *Error) Unwrap() error {
	return e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindEmptyAnswer:
		return ErrEmptyAnswer
	case KindMalformedSource:
		return ErrMalformedSource
	default:
		return ErrNoParsableContent
	}
}

// KindOf reports the extraction failure kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// RawOf returns the original text attached to an extraction failure.
func RawOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Raw
	}
	return ""
}
