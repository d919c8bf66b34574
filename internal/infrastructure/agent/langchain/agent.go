// Package langchain runs the reasoning loop on langchaingo's one-shot ReAct
// executor instead of the native state machine.
package langchain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"search-agent/internal/application/port/input"
	"search-agent/internal/application/port/output"
	"search-agent/internal/domain/entity"

	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/tools"
)

var _ input.AgentRunner = (*Agent)(nil)

const (
	defaultMaxIterations = 15
	intermediateStepsKey = "intermediateSteps"
	outputKey            = "output"
)

type Config struct {
	SystemPrompt  string
	MaxIterations int
	Temperature   float64
	MaxTokens     int
}

type Agent struct {
	model    llms.Model
	tools    output.ToolRegistry
	logger   output.LoggerPort
	progress output.ProgressPort
	cfg      Config
}

func New(
	model llms.Model,
	tools output.ToolRegistry,
	logger output.LoggerPort,
	progress output.ProgressPort,
	cfg Config,
) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	return &Agent{
		model:    model,
		tools:    tools,
		logger:   logger,
		progress: progress,
		cfg:      cfg,
	}
}

func (a *Agent) Run(ctx context.Context, query string) (*entity.AgentRun, error) {
	model := &countingModel{Model: a.model, onCall: func(ctx context.Context, n int) {
		a.logger.Debug("Starting iteration", "iteration", n)
		if a.progress != nil {
			a.progress.ShowIteration(ctx, n, a.cfg.MaxIterations)
		}
	}}

	registered := a.tools.All()
	lcTools := make([]tools.Tool, 0, len(registered))
	for _, t := range registered {
		lcTools = append(lcTools, &toolAdapter{tool: t, logger: a.logger, progress: a.progress})
	}

	handler := &callbackHandler{logger: a.logger, progress: a.progress}
	agent := agents.NewOneShotAgent(model, lcTools,
		agents.WithPromptPrefix(promptPrefix(a.cfg.SystemPrompt)),
		agents.WithCallbacksHandler(handler),
	)
	executor := agents.NewExecutor(agent,
		agents.WithMaxIterations(a.cfg.MaxIterations),
		agents.WithReturnIntermediateSteps(),
		agents.WithCallbacksHandler(handler),
		agents.WithParserErrorHandler(agents.NewParserErrorHandler(parseErrorObservation)),
	)

	opts := []chains.ChainCallOption{chains.WithTemperature(a.cfg.Temperature)}
	if a.cfg.MaxTokens > 0 {
		opts = append(opts, chains.WithMaxTokens(a.cfg.MaxTokens))
	}

	out, err := chains.Call(ctx, executor, map[string]any{"input": query}, opts...)
	run := &entity.AgentRun{
		Steps:      toSteps(out),
		Iterations: int(model.calls.Load()),
	}
	if err != nil {
		if errors.Is(err, agents.ErrNotFinished) {
			a.logger.Warn("Iteration budget exhausted", "iterations", run.Iterations)
			return nil, fmt.Errorf("%w (%d)", entity.ErrMaxIterations, a.cfg.MaxIterations)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("agent interrupted: %w", ctxErr)
		}
		return nil, fmt.Errorf("agent executor failed: %w", err)
	}

	answer, _ := out[outputKey].(string)
	run.FinalAnswer = answer
	a.logger.Info("Agent finished", "iterations", run.Iterations, "answerLen", len(answer))
	return run, nil
}

// promptPrefix turns the system prompt into a one-shot agent prefix. The
// prefix is a Go template, so literal braces pairs must not reach it.
func promptPrefix(system string) string {
	system = strings.NewReplacer("{{", "{ {", "}}", "} }").Replace(system)
	return strings.TrimSpace(system) + "\n\nYou have access to the following tools:\n\n{{.tool_descriptions}}"
}

func parseErrorObservation(msg string) string {
	return "Error: could not parse your reply. Use the Thought/Action/Action Input format, " +
		"or start your answer with \"Final Answer:\". Details: " + msg
}

func toSteps(out map[string]any) []entity.AgentStep {
	raw, _ := out[intermediateStepsKey].([]schema.AgentStep)
	steps := make([]entity.AgentStep, 0, len(raw))
	for i, s := range raw {
		obs := s.Observation
		steps = append(steps, entity.AgentStep{
			Iteration:   i + 1,
			Thought:     thoughtOf(s.Action.Log),
			Tool:        s.Action.Tool,
			Input:       s.Action.ToolInput,
			Observation: obs,
			IsError: s.Action.Tool == "" ||
				strings.HasPrefix(obs, "Error: ") ||
				strings.HasSuffix(obs, "is not a valid tool, try another one"),
		})
	}
	return steps
}

// thoughtOf returns the model's reasoning that precedes its action line.
func thoughtOf(log string) string {
	if i := strings.Index(log, "Action:"); i >= 0 {
		log = log[:i]
	}
	log = strings.TrimSpace(log)
	return strings.TrimSpace(strings.TrimPrefix(log, "Thought:"))
}

// countingModel numbers the planning calls the executor makes.
type countingModel struct {
	llms.Model
	calls  atomic.Int64
	onCall func(ctx context.Context, n int)
}

func (m *countingModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	n := m.calls.Add(1)
	if m.onCall != nil {
		m.onCall(ctx, int(n))
	}
	return m.Model.GenerateContent(ctx, messages, options...)
}

func (m *countingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
