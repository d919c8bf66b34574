package entity

import "errors"

// AgentState is a state of the reasoning loop.
type AgentState string

const (
	StateReasoning AgentState = "reasoning"
	StateActing    AgentState = "acting"
	StateObserving AgentState = "observing"
	StateFinished  AgentState = "finished"
)

type AgentStep struct {
	Iteration   int    `json:"iteration"`
	Thought     string `json:"thought,omitempty"`
	Tool        string `json:"tool"`
	Input       string `json:"input"`
	Observation string `json:"observation"`
	IsError     bool   `json:"is_error,omitempty"`
}

type AgentRun struct {
	FinalAnswer string      `json:"final_answer"`
	Steps       []AgentStep `json:"steps"`
	Iterations  int         `json:"iterations"`
}

// ErrMaxIterations is returned by every agent engine that runs out of its
// iteration budget before producing a final answer.
var ErrMaxIterations = errors.New("max iterations exceeded")

// MaxObservationRunes bounds a tool result fed back to the model.
const MaxObservationRunes = 20000

const truncatedMarker = "\n... (truncated)"

// ClipObservation cuts s after MaxObservationRunes runes and marks the cut.
// The cut never splits a UTF-8 sequence.
func ClipObservation(s string) string {
	n := 0
	for i := range s {
		if n == MaxObservationRunes {
			return s[:i] + truncatedMarker
		}
		n++
	}
	return s
}
