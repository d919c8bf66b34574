package executor

import (
	"context"
	"fmt"

	"search-agent/internal/application/port/input"
	"search-agent/internal/application/port/output"
	"search-agent/internal/domain/entity"
)

var _ input.AgentRunner = (*UseCase)(nil)

var ErrMaxIterations = entity.ErrMaxIterations

const defaultMaxIterations = 15

type Config struct {
	SystemPrompt  string
	MaxIterations int
	Temperature   float32
	MaxTokens     int
}

// UseCase is a ReAct loop run as an explicit state machine:
// reasoning -> acting -> observing -> reasoning ... -> finished.
type UseCase struct {
	llm      output.LLMPort
	tools    output.ToolRegistry
	logger   output.LoggerPort
	progress output.ProgressPort
	cfg      Config
}

func New(
	llm output.LLMPort,
	tools output.ToolRegistry,
	logger output.LoggerPort,
	progress output.ProgressPort,
	cfg Config,
) *UseCase {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	return &UseCase{
		llm:      llm,
		tools:    tools,
		logger:   logger,
		progress: progress,
		cfg:      cfg,
	}
}

type runState struct {
	state     entity.AgentState
	iteration int
	messages  []entity.Message
	pending   []entity.ToolCall
	thought   string
	results   []entity.AgentStep
	run       entity.AgentRun
}

func (uc *UseCase) Run(ctx context.Context, query string) (*entity.AgentRun, error) {
	rs := &runState{
		state: entity.StateReasoning,
		messages: []entity.Message{
			{Role: entity.RoleSystem, Content: uc.cfg.SystemPrompt},
			{Role: entity.RoleUser, Content: query},
		},
	}

	for rs.state != entity.StateFinished {
		var err error
		switch rs.state {
		case entity.StateReasoning:
			err = uc.reason(ctx, rs)
		case entity.StateActing:
			uc.act(ctx, rs)
		case entity.StateObserving:
			err = uc.observe(ctx, rs)
		default:
			err = fmt.Errorf("unexpected agent state %q", rs.state)
		}
		if err != nil {
			return nil, err
		}
	}

	rs.run.Iterations = rs.iteration
	return &rs.run, nil
}

func (uc *UseCase) reason(ctx context.Context, rs *runState) error {
	if rs.iteration >= uc.cfg.MaxIterations {
		uc.logger.Warn("Iteration budget exhausted", "iterations", rs.iteration)
		return fmt.Errorf("%w (%d)", ErrMaxIterations, uc.cfg.MaxIterations)
	}
	rs.iteration++
	uc.logger.Debug("Starting iteration", "iteration", rs.iteration)
	if uc.progress != nil {
		uc.progress.ShowIteration(ctx, rs.iteration, uc.cfg.MaxIterations)
	}

	resp, err := uc.chat(ctx, output.ChatRequest{
		Messages:    rs.messages,
		Tools:       uc.tools.Definitions(),
		Temperature: uc.cfg.Temperature,
		MaxTokens:   uc.cfg.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("llm request failed: %w", err)
	}

	msg := resp.Message
	rs.messages = append(rs.messages, msg)

	thought := msg.Thinking()
	if thought == "" && len(msg.ToolCalls) > 0 {
		thought = msg.Content
	}
	if thought != "" && uc.progress != nil {
		uc.progress.ShowThinking(ctx, thought)
	}

	if len(msg.ToolCalls) == 0 {
		rs.run.FinalAnswer = msg.Content
		rs.state = entity.StateFinished
		uc.logger.Info("Agent finished", "iterations", rs.iteration, "answerLen", len(msg.Content))
		return nil
	}

	rs.thought = thought
	rs.pending = msg.ToolCalls
	rs.state = entity.StateActing
	return nil
}

func (uc *UseCase) act(ctx context.Context, rs *runState) {
	rs.results = rs.results[:0]
	for _, tc := range rs.pending {
		if uc.progress != nil {
			uc.progress.ShowToolStart(ctx, tc.Name, tc.Arguments)
		}

		observation, isError := uc.executeTool(ctx, tc)

		if uc.progress != nil {
			uc.progress.ShowToolResult(ctx, tc.Name, observation, isError)
		}
		rs.results = append(rs.results, entity.AgentStep{
			Iteration:   rs.iteration,
			Thought:     rs.thought,
			Tool:        tc.Name,
			Input:       tc.Arguments,
			Observation: observation,
			IsError:     isError,
		})
	}
	rs.state = entity.StateObserving
}

func (uc *UseCase) observe(ctx context.Context, rs *runState) error {
	for i, tc := range rs.pending {
		rs.messages = append(rs.messages, entity.Message{
			Role:       entity.RoleTool,
			ToolCallID: tc.ID,
			Name:       tc.Name,
			Content:    rs.results[i].Observation,
		})
	}
	rs.run.Steps = append(rs.run.Steps, rs.results...)
	rs.pending = nil
	rs.thought = ""

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("agent interrupted: %w", err)
	}
	rs.state = entity.StateReasoning
	return nil
}

func (uc *UseCase) chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	if s, ok := uc.llm.(output.StreamingLLMPort); ok {
		return s.ChatStream(ctx, req)
	}
	return uc.llm.Chat(ctx, req)
}

func (uc *UseCase) executeTool(ctx context.Context, tc entity.ToolCall) (string, bool) {
	tool, ok := uc.tools.Get(entity.ToolName(tc.Name))
	if !ok {
		uc.logger.Warn("Unknown tool called", "name", tc.Name)
		return fmt.Sprintf("Error: unknown tool '%s'", tc.Name), true
	}

	uc.logger.Info("Executing tool", "name", tc.Name, "args", tc.Arguments)

	result, err := tool.Execute(ctx, tc.Arguments)
	if err != nil {
		uc.logger.Error("Tool execution failed", "name", tc.Name, "error", err)
		return "Error: " + err.Error(), true
	}

	result = entity.ClipObservation(result)

	uc.logger.Debug("Tool completed", "name", tc.Name, "resultLen", len(result))
	return result, false
}
