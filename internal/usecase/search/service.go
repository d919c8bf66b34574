package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"search-agent/internal/application/port/input"
	"search-agent/internal/application/port/output"
	"search-agent/internal/domain/entity"
	"search-agent/internal/usecase/extractor"

	"github.com/google/uuid"
)

var _ input.SearchExecutor = (*Service)(nil)

var (
	ErrEmptyQuery  = errors.New("query is empty")
	ErrAgentFailed = errors.New("agent run failed")
)

// Reformatter restates a free-text answer so the extractor can read it.
type Reformatter interface {
	Reformat(ctx context.Context, query, answer string) (string, error)
}

type Config struct {
	Extract extractor.Options
	// ReformatOnFailure allows one reformat pass when extraction fails.
	ReformatOnFailure bool
	// Timeout bounds a whole search when positive.
	Timeout time.Duration
}

type Service struct {
	agent       input.AgentRunner
	reformatter Reformatter
	logger      output.LoggerPort
	cfg         Config
}

// New builds the search service. reformatter may be nil.
func New(agent input.AgentRunner, reformatter Reformatter, logger output.LoggerPort, cfg Config) *Service {
	return &Service{
		agent:       agent,
		reformatter: reformatter,
		logger:      logger,
		cfg:         cfg,
	}
}

func (s *Service) Search(ctx context.Context, query string) (*entity.SearchOutcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	log := s.logger.WithField("run_id", runID)
	log.Info("Search started", "query", query)

	run, err := s.agent.Run(ctx, query)
	if err != nil {
		log.Error("Agent run failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAgentFailed, err)
	}

	res, rep, err := extractor.ExtractWithReport(run.FinalAnswer, s.cfg.Extract)
	reformatted := false
	if err != nil && s.canReformat(ctx) {
		kind, _ := extractor.KindOf(err)
		log.Warn("Extraction failed, reformatting answer", "kind", kind)

		if r, rr, ok := s.reformat(ctx, log, query, run.FinalAnswer); ok {
			res, rep, err = r, rr, nil
			reformatted = true
		}
	}
	if err != nil {
		kind, _ := extractor.KindOf(err)
		log.Error("Extraction failed", "kind", kind, "error", err)
		return nil, fmt.Errorf("extract answer: %w", err)
	}

	for _, d := range rep.Dropped {
		log.Warn("Dropped source", "index", d.Index, "url", d.URL, "reason", d.Reason)
	}
	log.Info("Search finished",
		"iterations", run.Iterations,
		"path", rep.Path,
		"sources", len(res.Sources),
		"reformatted", reformatted,
	)

	return &entity.SearchOutcome{
		RunID:       runID,
		Result:      *res,
		Iterations:  run.Iterations,
		Steps:       run.Steps,
		Path:        string(rep.Path),
		Dropped:     len(rep.Dropped),
		Reformatted: reformatted,
	}, nil
}

func (s *Service) canReformat(ctx context.Context) bool {
	return s.cfg.ReformatOnFailure && s.reformatter != nil && ctx.Err() == nil
}

func (s *Service) reformat(
	ctx context.Context,
	log output.LoggerPort,
	query, answer string,
) (*entity.StructuredResult, extractor.Report, bool) {
	text, err := s.reformatter.Reformat(ctx, query, answer)
	if err != nil {
		log.Warn("Reformat failed", "error", err)
		return nil, extractor.Report{}, false
	}

	res, rep, err := extractor.ExtractWithReport(text, s.cfg.Extract)
	if err != nil {
		kind, _ := extractor.KindOf(err)
		log.Warn("Reformatted answer still not extractable", "kind", kind)
		return nil, extractor.Report{}, false
	}
	return res, rep, true
}
