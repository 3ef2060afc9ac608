// Package assistant ties the dialog layer to the research pipeline for one
// conversational turn.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/chative/market-research/internal/agent/dialog"
	"github.com/chative/market-research/internal/agent/graph/conversations"
	"github.com/chative/market-research/internal/agent/model"
	"github.com/chative/market-research/internal/agent/report"
	errx "github.com/chative/market-research/internal/core/error"
	logx "github.com/chative/market-research/pkg/logger"
)

// Researcher runs a research pipeline.
type Researcher interface {
	Run(ctx context.Context, params model.ResearchParameters) (model.ResearchResult, error)
}

// ResearchOutcome is a research result with its report split into sections.
type ResearchOutcome struct {
	Result   model.ResearchResult `json:"result" yaml:"result"`
	Sections *report.Sections     `json:"sections,omitempty" yaml:"sections,omitempty"`
	Summary  string               `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Turn is the outcome of one handled utterance.
type Turn struct {
	SessionID string           `json:"session_id" yaml:"session_id"`
	Reply     string           `json:"reply" yaml:"reply"`
	Intent    model.Intent     `json:"intent" yaml:"intent"`
	Research  *ResearchOutcome `json:"research,omitempty" yaml:"research,omitempty"`
}

type Config struct {
	Coordinator *dialog.Coordinator
	Sessions    *conversations.SessionManager
	Researcher  Researcher
	Store       model.ResultStore
	Defaults    model.ParameterDefaults
}

// Service handles user turns and standalone research requests.
type Service struct {
	coordinator *dialog.Coordinator
	sessions    *conversations.SessionManager
	researcher  Researcher
	store       model.ResultStore
	defaults    model.ParameterDefaults
}

func New(cfg Config) (*Service, error) {
	if cfg.Coordinator == nil || cfg.Sessions == nil {
		return nil, fmt.Errorf("coordinator and session manager are required")
	}
	if cfg.Researcher == nil || cfg.Store == nil {
		return nil, fmt.Errorf("researcher and result store are required")
	}
	return &Service{
		coordinator: cfg.Coordinator,
		sessions:    cfg.Sessions,
		researcher:  cfg.Researcher,
		store:       cfg.Store,
		defaults:    cfg.Defaults,
	}, nil
}

// Handle processes one utterance within a session. Research and comparison
// intents run the pipeline in the same turn; a failed run is reported in the
// conversation rather than returned as an error.
func (s *Service) Handle(ctx context.Context, sessionID, utterance string) (Turn, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return Turn{}, errx.Validation("message is empty")
	}

	var turn Turn
	dctx, err := s.sessions.WithSession(ctx, sessionID, func(dctx *model.DialogContext) error {
		reply, in := s.coordinator.ProcessMessage(ctx, utterance, dctx)
		turn.Reply = reply
		turn.Intent = in
		if !in.Type.IsResearch() {
			return nil
		}

		params := s.paramsFor(in, utterance)
		outcome, err := s.Research(ctx, params)
		if err != nil {
			logx.Warn().Err(err).Str("session_id", dctx.SessionID).Msg("Research request rejected")
			dctx.AddMessage(model.RoleAssistant, fmt.Sprintf("I encountered an error while researching %s: %v", params.Query, err), nil)
			return nil
		}
		turn.Research = outcome

		if outcome.Result.IsError() {
			dctx.AddMessage(model.RoleAssistant,
				fmt.Sprintf("I encountered an error while researching %s: %s", params.Query, outcome.Result.Error),
				map[string]any{"research_id": outcome.Result.Metadata.ResearchID})
			return nil
		}
		dctx.CurrentTopic = params.Query
		dctx.CurrentResearchID = outcome.Result.Metadata.ResearchID
		return nil
	})
	if err != nil {
		return Turn{}, err
	}
	turn.SessionID = dctx.SessionID
	return turn, nil
}

// Research runs the pipeline directly. Only invalid parameters return an
// error; failed runs come back as error-shaped results.
func (s *Service) Research(ctx context.Context, params model.ResearchParameters) (*ResearchOutcome, error) {
	result, err := s.researcher.Run(ctx, params)
	if err != nil {
		return nil, err
	}
	return NewOutcome(result), nil
}

// Result loads a stored research result with its sections.
func (s *Service) Result(ctx context.Context, researchID string) (*ResearchOutcome, error) {
	result, err := s.store.Load(ctx, researchID)
	if err != nil {
		return nil, err
	}
	return NewOutcome(result), nil
}

// Results lists stored research results, newest first.
func (s *Service) Results(ctx context.Context, limit int) ([]model.ResultSummary, error) {
	return s.store.List(ctx, limit)
}

// Reset clears a session while keeping its id.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	_, err := s.sessions.WithSession(ctx, sessionID, func(dctx *model.DialogContext) error {
		dctx.Reset()
		return nil
	})
	return err
}

// Session returns the current dialog context of a session.
func (s *Service) Session(ctx context.Context, sessionID string) (*model.DialogContext, error) {
	return s.sessions.Load(ctx, sessionID)
}

func (s *Service) paramsFor(in model.Intent, utterance string) model.ResearchParameters {
	query := in.Param(model.ParamTopic)
	if query == "" {
		query = in.Param(model.ParamComparisonQuery)
	}
	if query == "" {
		query = utterance
	}
	params := model.ParametersFromQuery(query, s.defaults)
	if strings.Contains(strings.ToLower(utterance), "company") {
		params.InputType = model.InputCompany
	}
	return params
}

// NewOutcome splits a result's final report into sections.
func NewOutcome(result model.ResearchResult) *ResearchOutcome {
	out := &ResearchOutcome{Result: result}
	if result.FinalReport != "" {
		out.Sections = report.Extract(result.FinalReport)
		out.Summary = result.ResultSummary
	}
	return out
}
