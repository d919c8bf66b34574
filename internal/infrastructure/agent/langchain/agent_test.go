package langchain

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
	"github.com/tmc/langchaingo/llms"
)

type scriptedModel struct {
	replies []string
	err     error
	prompts []string
	opts    []llms.CallOptions
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	m.opts = append(m.opts, opts)
	for _, msg := range messages {
		for _, p := range msg.Parts {
			if text, ok := p.(llms.TextContent); ok {
				m.prompts = append(m.prompts, text.Text)
			}
		}
	}

	if m.err != nil {
		return nil, m.err
	}
	if len(m.replies) == 0 {
		return nil, errors.New("script exhausted")
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

type fakeTool struct {
	name   entity.ToolName
	result string
	err    error
	calls  []string
}

func (f *fakeTool) Name() entity.ToolName { return f.name }
func (f *fakeTool) Description() string   { return "Searches the web." }
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

const (
	searchReply = "Thought: I need the current rankings.\nAction: web_search\nAction Input: ICC ODI batting rankings"
	finalReply  = "Thought: I now know the final answer\nFinal Answer: Gill leads.\n```json\n{\"answer\": \"Gill leads.\", \"sources\": []}\n```"
)

func newAgent(t *testing.T, model llms.Model, tool *fakeTool, progress *recordingProgress, maxIterations int) *Agent {
	t.Helper()
	registry := service.NewToolRegistry()
	require.NoError(t, registry.Register(tool))
	var p output.ProgressPort
	if progress != nil {
		p = progress
	}
	return New(model, registry, logger.NewNop(), p, Config{
		SystemPrompt:  "You are a research assistant.",
		MaxIterations: maxIterations,
		MaxTokens:     512,
	})
}

func TestRun_SearchThenAnswer(t *testing.T) {
	model := &scriptedModel{replies: []string{searchReply, finalReply}}
	tool := &fakeTool{name: entity.ToolWebSearch, result: "1. ICC Rankings\n   URL: https://www.icc-cricket.com/rankings\n"}
	progress := &recordingProgress{}

	run, err := newAgent(t, model, tool, progress, 5).Run(context.Background(), "top ODI batters")
	require.NoError(t, err)

	assert.Contains(t, run.FinalAnswer, "Gill leads.")
	assert.Contains(t, run.FinalAnswer, "```json")
	assert.Equal(t, 2, run.Iterations)

	require.Len(t, run.Steps, 1)
	step := run.Steps[0]
	assert.Equal(t, 1, step.Iteration)
	assert.Equal(t, "I need the current rankings.", step.Thought)
	assert.Equal(t, "web_search", step.Tool)
	assert.Equal(t, "ICC ODI batting rankings", step.Input)
	assert.Equal(t, tool.result, step.Observation)
	assert.False(t, step.IsError)

	assert.Equal(t, []string{`{"query":"ICC ODI batting rankings"}`}, tool.calls)
	assert.Equal(t, []string{
		"iteration",
		"thinking:I need the current rankings.",
		"start:web_search",
		"result:web_search",
		"iteration",
	}, progress.events)

	require.NotEmpty(t, model.prompts)
	assert.Contains(t, model.prompts[0], "You are a research assistant.")
	assert.Contains(t, model.prompts[0], "- web_search: Searches the web.")
	assert.Contains(t, model.prompts[0], "Question: top ODI batters")
	assert.Contains(t, model.prompts[1], "Observation: 1. ICC Rankings")

	assert.Equal(t, 512, model.opts[0].MaxTokens)
	assert.Contains(t, model.opts[0].StopWords, "\nObservation:")
}

func TestRun_ToolErrorBecomesObservation(t *testing.T) {
	model := &scriptedModel{replies: []string{searchReply, finalReply}}
	tool := &fakeTool{name: entity.ToolWebSearch, err: errors.New("rate limited")}
	progress := &recordingProgress{}

	run, err := newAgent(t, model, tool, progress, 5).Run(context.Background(), "q")
	require.NoError(t, err)

	require.Len(t, run.Steps, 1)
	assert.Equal(t, "Error: rate limited", run.Steps[0].Observation)
	assert.True(t, run.Steps[0].IsError)
	assert.Contains(t, progress.events, "error:web_search")
}

func TestRun_UnparsableReplyIsRetried(t *testing.T) {
	model := &scriptedModel{replies: []string{"I am not sure what to do.", finalReply}}
	tool := &fakeTool{name: entity.ToolWebSearch}

	run, err := newAgent(t, model, tool, nil, 5).Run(context.Background(), "q")
	require.NoError(t, err)

	require.Len(t, run.Steps, 1)
	assert.True(t, run.Steps[0].IsError)
	assert.Contains(t, run.Steps[0].Observation, "Final Answer:")
	assert.Contains(t, run.FinalAnswer, "Gill leads.")
	assert.Empty(t, tool.calls)
}

func TestRun_MaxIterations(t *testing.T) {
	model := &scriptedModel{replies: []string{searchReply}}
	tool := &fakeTool{name: entity.ToolWebSearch, result: "nothing"}

	_, err := newAgent(t, model, tool, nil, 2).Run(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrMaxIterations)
	assert.Len(t, tool.calls, 2)
}

func TestRun_ModelError(t *testing.T) {
	modelErr := errors.New("overloaded")
	model := &scriptedModel{err: modelErr}
	tool := &fakeTool{name: entity.ToolWebSearch}

	_, err := newAgent(t, model, tool, nil, 5).Run(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, modelErr)
	assert.NotErrorIs(t, err, entity.ErrMaxIterations)
}

func TestToArguments(t *testing.T) {
	tests := map[string]struct {
		input string
		want  string
	}{
		"plain text":     {input: "ICC rankings", want: `{"query":"ICC rankings"}`},
		"json object":    {input: `{"query": "x"}`, want: `{"query": "x"}`},
		"quoted string":  {input: `"ICC rankings"`, want: `{"query":"ICC rankings"}`},
		"fenced object":  {input: "```json\n{\"query\": \"x\"}\n```", want: `{"query": "x"}`},
		"broken object":  {input: `{"query": `, want: `{"query":"{\"query\":"}`},
		"surrounding ws": {input: "  padded \n", want: `{"query":"padded"}`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, toArguments("query", tt.input))
		})
	}
}

func TestPromptPrefix_EscapesTemplateDelimiters(t *testing.T) {
	prefix := promptPrefix("Reply with {{json}}.")
	assert.NotContains(t, prefix[:len(prefix)-len("{{.tool_descriptions}}")], "{{")
	assert.Contains(t, prefix, "{{.tool_descriptions}}")
}

func TestToolAdapter_ClipsByRune(t *testing.T) {
	tool := &fakeTool{name: entity.ToolWebSearch, result: strings.Repeat("日", entity.MaxObservationRunes+5)}
	adapter := &toolAdapter{tool: tool, logger: logger.NewNop()}

	out, err := adapter.Call(context.Background(), "go")
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "\n... (truncated)"))
	assert.Equal(t, entity.MaxObservationRunes, utf8.RuneCountInString(strings.TrimSuffix(out, "\n... (truncated)")))
}
