package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"search-agent/internal/domain/entity"
	"search-agent/internal/infrastructure/logger"
	"search-agent/internal/usecase/extractor"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeAgent struct {
	run     *entity.AgentRun
	err     error
	queries []string
	ctx     context.Context
}

func (f *fakeAgent) Run(ctx context.Context, query string) (*entity.AgentRun, error) {
	f.queries = append(f.queries, query)
	f.ctx = ctx
	if f.err != nil {
		return nil, f.err
	}
	return f.run, nil
}

type fakeReformatter struct {
	reply   string
	err     error
	answers []string
}

func (f *fakeReformatter) Reformat(ctx context.Context, query, answer string) (string, error) {
	f.answers = append(f.answers, answer)
	return f.reply, f.err
}

const (
	blockAnswer = "Gill is first.\n```json\n" +
		`{"answer": "Shubman Gill is ranked first.", "sources": [` +
		`{"title": "Bare", "url": "icc-cricket.com"},` +
		`{"title": "ICC Rankings", "url": "https://www.icc-cricket.com/rankings"}]}` +
		"\n```"
	unparsable = "?!.. --"
)

func agentReturning(answer string) *fakeAgent {
	return &fakeAgent{run: &entity.AgentRun{
		FinalAnswer: answer,
		Iterations:  2,
		Steps:       []entity.AgentStep{{Iteration: 1, Tool: "web_search", Input: `{"query":"x"}`, Observation: "..."}},
	}}
}

func TestSearch_Success(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	agent := agentReturning(blockAnswer)
	svc := New(agent, nil, logger.New(core), Config{})

	out, err := svc.Search(context.Background(), "  top ODI batters ")
	require.NoError(t, err)

	assert.Equal(t, []string{"top ODI batters"}, agent.queries)
	_, parseErr := uuid.Parse(out.RunID)
	assert.NoError(t, parseErr)
	assert.Equal(t, "Shubman Gill is ranked first.", out.Result.Answer)
	assert.Equal(t, []entity.Source{{Title: "ICC Rankings", URL: "https://www.icc-cricket.com/rankings"}}, out.Result.Sources)
	assert.Equal(t, 2, out.Iterations)
	assert.Len(t, out.Steps, 1)
	assert.Equal(t, "block", out.Path)
	assert.Equal(t, 1, out.Dropped)
	assert.False(t, out.Reformatted)

	dropped := logs.FilterMessage("Dropped source").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, zapcore.WarnLevel, dropped[0].Level)
	assert.Equal(t, out.RunID, dropped[0].ContextMap()["run_id"])
	assert.Equal(t, "icc-cricket.com", dropped[0].ContextMap()["url"])
}

func TestSearch_EmptyQuery(t *testing.T) {
	agent := agentReturning(blockAnswer)
	svc := New(agent, nil, logger.NewNop(), Config{})

	_, err := svc.Search(context.Background(), " \n")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Empty(t, agent.queries)
}

func TestSearch_AgentFailure(t *testing.T) {
	agent := &fakeAgent{err: entity.ErrMaxIterations}
	svc := New(agent, nil, logger.NewNop(), Config{})

	_, err := svc.Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrAgentFailed)
	assert.ErrorIs(t, err, entity.ErrMaxIterations)
}

func TestSearch_ExtractionFailure(t *testing.T) {
	reformatter := &fakeReformatter{reply: blockAnswer}
	svc := New(agentReturning(unparsable), reformatter, logger.NewNop(), Config{ReformatOnFailure: false})

	_, err := svc.Search(context.Background(), "q")
	require.Error(t, err)

	kind, ok := extractor.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, extractor.KindNoParsableContent, kind)
	assert.Equal(t, unparsable, extractor.RawOf(err))
	assert.Empty(t, reformatter.answers)
}

func TestSearch_ReformatRecovers(t *testing.T) {
	reformatter := &fakeReformatter{reply: blockAnswer}
	svc := New(agentReturning(unparsable), reformatter, logger.NewNop(), Config{ReformatOnFailure: true})

	out, err := svc.Search(context.Background(), "q")
	require.NoError(t, err)

	assert.True(t, out.Reformatted)
	assert.Equal(t, "Shubman Gill is ranked first.", out.Result.Answer)
	assert.Equal(t, []string{unparsable}, reformatter.answers)
}

func TestSearch_ReformatRunsOnce(t *testing.T) {
	tests := map[string]*fakeReformatter{
		"still unparsable": {reply: "!!"},
		"reformat error":   {err: errors.New("overloaded")},
	}

	for name, reformatter := range tests {
		t.Run(name, func(t *testing.T) {
			svc := New(agentReturning(unparsable), reformatter, logger.NewNop(), Config{ReformatOnFailure: true})

			_, err := svc.Search(context.Background(), "q")
			require.Error(t, err)

			assert.ErrorIs(t, err, extractor.ErrNoParsableContent)
			assert.Equal(t, unparsable, extractor.RawOf(err))
			assert.Len(t, reformatter.answers, 1)
		})
	}
}

func TestSearch_StrictSources(t *testing.T) {
	svc := New(agentReturning(blockAnswer), nil, logger.NewNop(), Config{
		Extract: extractor.Options{StrictSources: true},
	})

	_, err := svc.Search(context.Background(), "q")
	assert.ErrorIs(t, err, extractor.ErrMalformedSource)
}

func TestSearch_Timeout(t *testing.T) {
	agent := agentReturning(blockAnswer)
	svc := New(agent, nil, logger.NewNop(), Config{Timeout: time.Minute})

	_, err := svc.Search(context.Background(), "q")
	require.NoError(t, err)

	deadline, ok := agent.ctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}
