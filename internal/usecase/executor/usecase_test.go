package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"search-agent/internal/application/port/output"
	"search-agent/internal/application/service"
	"search-agent/internal/domain/entity"
	"search-agent/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedLLM struct {
	replies  []entity.Message
	err      error
	requests []output.ChatRequest
}

func (s *scriptedLLM) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.replies) == 0 {
		return nil, errors.New("script exhausted")
	}
	msg := s.replies[0]
	s.replies = s.replies[1:]
	return &output.ChatResponse{Message: msg}, nil
}

type fakeTool struct {
	name   entity.ToolName
	result string
	err    error
	calls  []string
}

func (f *fakeTool) Name() entity.ToolName { return f.name }
func (f *fakeTool) Description() string   { return "fake" }
func (f *fakeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object"}
}
func (f *fakeTool) Execute(ctx context.Context, arguments string) (string, error) {
	f.calls = append(f.calls, arguments)
	return f.result, f.err
}

type recordingProgress struct {
	events []string
}

func (p *recordingProgress) ShowIteration(ctx context.Context, iteration, maxIterations int) {
	p.events = append(p.events, "iteration")
}
func (p *recordingProgress) ShowThinking(ctx context.Context, content string) {
	p.events = append(p.events, "thinking:"+content)
}
func (p *recordingProgress) ShowToolStart(ctx context.Context, toolName, arguments string) {
	p.events = append(p.events, "start:"+toolName)
}
func (p *recordingProgress) ShowToolResult(ctx context.Context, toolName, result string, isError bool) {
	if isError {
		p.events = append(p.events, "error:"+toolName)
		return
	}
	p.events = append(p.events, "result:"+toolName)
}

func toolCall(id, name, args string) entity.Message {
	return entity.Message{
		Role:      entity.RoleAssistant,
		Content:   "I should search.",
		ToolCalls: []entity.ToolCall{{ID: id, Name: name, Arguments: args}},
	}
}

func final(content string) entity.Message {
	return entity.Message{Role: entity.RoleAssistant, Content: content}
}

func newRegistry(t *testing.T, tools ...*fakeTool) *service.ToolRegistryImpl {
	r := service.NewToolRegistry()
	for _, tool := range tools {
		require.NoError(t, r.Register(tool))
	}
	return r
}

func TestRun_ToolThenAnswer(t *testing.T) {
	search := &fakeTool{name: entity.ToolWebSearch, result: "Title: ICC\nURL: https://icc-cricket.com"}
	llm := &scriptedLLM{replies: []entity.Message{
		toolCall("call_1", "web_search", `{"query":"icc odi rankings"}`),
		final("Gill is first. Source: https://icc-cricket.com"),
	}}
	progress := &recordingProgress{}

	uc := New(llm, newRegistry(t, search), logger.NewNop(), progress, Config{SystemPrompt: "sys", MaxIterations: 5})
	run, err := uc.Run(context.Background(), "who leads?")
	require.NoError(t, err)

	assert.Equal(t, "Gill is first. Source: https://icc-cricket.com", run.FinalAnswer)
	assert.Equal(t, 2, run.Iterations)
	require.Len(t, run.Steps, 1)
	assert.Equal(t, entity.AgentStep{
		Iteration:   1,
		Thought:     "I should search.",
		Tool:        "web_search",
		Input:       `{"query":"icc odi rankings"}`,
		Observation: "Title: ICC\nURL: https://icc-cricket.com",
	}, run.Steps[0])
	assert.Equal(t, []string{`{"query":"icc odi rankings"}`}, search.calls)

	require.Len(t, llm.requests, 2)
	second := llm.requests[1].Messages
	require.Len(t, second, 4)
	assert.Equal(t, entity.RoleSystem, second[0].Role)
	assert.Equal(t, entity.RoleTool, second[3].Role)
	assert.Equal(t, "call_1", second[3].ToolCallID)
	assert.Len(t, llm.requests[0].Tools, 1)

	assert.Equal(t, []string{
		"iteration", "thinking:I should search.", "start:web_search", "result:web_search",
		"iteration",
	}, progress.events)
}

func TestRun_ToolErrorBecomesObservation(t *testing.T) {
	search := &fakeTool{name: entity.ToolWebSearch, err: errors.New("rate limited")}
	llm := &scriptedLLM{replies: []entity.Message{
		toolCall("call_1", "web_search", `{"query":"x"}`),
		final("done"),
	}}

	uc := New(llm, newRegistry(t, search), logger.NewNop(), nil, Config{})
	run, err := uc.Run(context.Background(), "q")
	require.NoError(t, err)

	require.Len(t, run.Steps, 1)
	assert.True(t, run.Steps[0].IsError)
	assert.Equal(t, "Error: rate limited", run.Steps[0].Observation)
	assert.Equal(t, "Error: rate limited", llm.requests[1].Messages[3].Content)
}

func TestRun_UnknownTool(t *testing.T) {
	llm := &scriptedLLM{replies: []entity.Message{
		toolCall("call_1", "browser_click", `{}`),
		final("done"),
	}}

	uc := New(llm, newRegistry(t), logger.NewNop(), nil, Config{})
	run, err := uc.Run(context.Background(), "q")
	require.NoError(t, err)

	require.Len(t, run.Steps, 1)
	assert.True(t, run.Steps[0].IsError)
	assert.Equal(t, "Error: unknown tool 'browser_click'", run.Steps[0].Observation)
}

func TestRun_TruncatesLongObservations(t *testing.T) {
	long := strings.Repeat("é", entity.MaxObservationRunes+10)
	search := &fakeTool{name: entity.ToolWebSearch, result: long}
	llm := &scriptedLLM{replies: []entity.Message{
		toolCall("call_1", "web_search", `{"query":"x"}`),
		final("done"),
	}}

	uc := New(llm, newRegistry(t, search), logger.NewNop(), nil, Config{})
	run, err := uc.Run(context.Background(), "q")
	require.NoError(t, err)

	obs := run.Steps[0].Observation
	assert.True(t, utf8.ValidString(obs))
	assert.Equal(t, strings.Repeat("é", entity.MaxObservationRunes)+"\n... (truncated)", obs)
}

type streamingLLM struct {
	scriptedLLM
	streamed int
}

func (s *streamingLLM) ChatStream(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	s.streamed++
	return s.scriptedLLM.Chat(ctx, req)
}

func TestRun_PrefersStreaming(t *testing.T) {
	llm := &streamingLLM{scriptedLLM: scriptedLLM{replies: []entity.Message{final("done")}}}

	uc := New(llm, newRegistry(t), logger.NewNop(), nil, Config{})
	run, err := uc.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, "done", run.FinalAnswer)
	assert.Equal(t, 1, llm.streamed)
}

func TestRun_MaxIterations(t *testing.T) {
	search := &fakeTool{name: entity.ToolWebSearch, result: "nothing"}
	llm := &scriptedLLM{replies: []entity.Message{
		toolCall("c1", "web_search", `{"query":"a"}`),
		toolCall("c2", "web_search", `{"query":"b"}`),
		toolCall("c3", "web_search", `{"query":"c"}`),
	}}

	uc := New(llm, newRegistry(t, search), logger.NewNop(), nil, Config{MaxIterations: 2})
	run, err := uc.Run(context.Background(), "q")

	assert.Nil(t, run)
	assert.ErrorIs(t, err, ErrMaxIterations)
	assert.Len(t, llm.requests, 2)
}

func TestRun_LLMError(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("401 unauthorized")}

	uc := New(llm, newRegistry(t), logger.NewNop(), nil, Config{})
	_, err := uc.Run(context.Background(), "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm request failed")
	assert.Contains(t, err.Error(), "401 unauthorized")
}

func TestRun_CancelledBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	search := &fakeTool{name: entity.ToolWebSearch, result: "r"}
	llm := &scriptedLLM{replies: []entity.Message{
		toolCall("c1", "web_search", `{"query":"a"}`),
		final("never"),
	}}

	uc := New(llm, newRegistry(t, search), logger.NewNop(), nil, Config{})
	cancel()
	_, err := uc.Run(ctx, "q")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_DefaultIterations(t *testing.T) {
	uc := New(&scriptedLLM{}, newRegistry(t), logger.NewNop(), nil, Config{})
	assert.Equal(t, defaultMaxIterations, uc.cfg.MaxIterations)
}
