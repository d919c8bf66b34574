package openrouter

import (
	"strings"

	"search-agent/internal/domain/entity"

	"github.com/sashabaranov/go-openai"
)

// streamAccumulator folds chat completion chunks into one assistant message.
//
// Tool-call deltas are matched to a call by index when the provider sends
// one, then by id. A delta with neither continues the most recent call when
// it arrives alone, or the call at the same position when several arrive
// together.
type streamAccumulator struct {
	text      strings.Builder
	reasoning strings.Builder
	calls     []*entity.ToolCall
	byIndex   map[int]*entity.ToolCall
	byID      map[string]*entity.ToolCall
	chunks    int
	unindexed int
}

func (s *streamAccumulator) add(chunk openai.ChatCompletionStreamResponse) {
	s.chunks++
	if len(chunk.Choices) == 0 {
		return
	}
	delta := chunk.Choices[0].Delta
	s.text.WriteString(delta.Content)
	s.reasoning.WriteString(delta.ReasoningContent)

	for pos, tc := range delta.ToolCalls {
		s.addToolCall(pos, len(delta.ToolCalls), tc)
	}
}

func (s *streamAccumulator) addToolCall(pos, width int, tc openai.ToolCall) {
	if s.byIndex == nil {
		s.byIndex = make(map[int]*entity.ToolCall)
		s.byID = make(map[string]*entity.ToolCall)
	}
	if tc.Index == nil {
		s.unindexed++
	}

	call := s.match(pos, width, tc)
	if call == nil {
		call = &entity.ToolCall{}
		s.calls = append(s.calls, call)
	}

	if call.ID == "" {
		call.ID = tc.ID
	}
	if tc.Function.Name != "" {
		call.Name = tc.Function.Name
	}
	call.Arguments += tc.Function.Arguments

	if tc.Index != nil {
		s.byIndex[*tc.Index] = call
	}
	if tc.ID != "" {
		s.byID[tc.ID] = call
	}
}

func (s *streamAccumulator) match(pos, width int, tc openai.ToolCall) *entity.ToolCall {
	if tc.Index != nil {
		if call, ok := s.byIndex[*tc.Index]; ok {
			return call
		}
	}
	if tc.ID != "" {
		return s.byID[tc.ID]
	}
	if tc.Index != nil || len(s.calls) == 0 {
		return nil
	}
	if width == 1 {
		return s.calls[len(s.calls)-1]
	}
	if pos < len(s.calls) {
		return s.calls[pos]
	}
	return nil
}

func (s *streamAccumulator) message() entity.Message {
	calls := make([]entity.ToolCall, 0, len(s.calls))
	for _, c := range s.calls {
		calls = append(calls, *c)
	}
	return assistantMessage(s.text.String(), s.reasoning.String(), calls)
}
