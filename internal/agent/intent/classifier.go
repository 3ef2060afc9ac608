package intent

import (
	"context"

	"github.com/chative/market-research/internal/agent/graph/nodes"
	"github.com/chative/market-research/internal/agent/graph/parsers"
	"github.com/chative/market-research/internal/agent/graph/prompts"
	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
	logx "github.com/chative/market-research/pkg/logger"
)

// DefaultHistoryTurns is how many history messages the model fallback sees.
const DefaultHistoryTurns = 3

// Strategy is one step of the classification cascade.
type Strategy interface {
	Name() string
	Classify(ctx context.Context, in Input) (model.Intent, bool)
}

type ruleStrategy struct {
	name  string
	match func(Input) (model.Intent, bool)
}

func (r ruleStrategy) Name() string { return r.name }

func (r ruleStrategy) Classify(_ context.Context, in Input) (model.Intent, bool) {
	return r.match(in)
}

// Rules returns the deterministic strategies in priority order.
func Rules() []Strategy {
	return []Strategy{
		ruleStrategy{"system_command", matchCommand},
		ruleStrategy{"greeting", matchGreeting},
		ruleStrategy{"research", matchResearch},
		ruleStrategy{"followup", matchFollowup},
		ruleStrategy{"comparison", matchComparison},
		ruleStrategy{"clarification", matchClarification},
		ruleStrategy{"feedback", matchFeedback},
		ruleStrategy{"small_talk", matchSmallTalk},
		ruleStrategy{"topic_continuation", matchTopicContinuation},
	}
}

// ModelFallback asks the generator to classify utterances no rule matched. It
// only runs when the conversation already has history.
type ModelFallback struct {
	Generator    model.Generator
	HistoryTurns int
}

func (f *ModelFallback) Name() string { return "model_fallback" }

func (f *ModelFallback) Classify(ctx context.Context, in Input) (model.Intent, bool) {
	if f.Generator == nil || in.Context == nil || len(in.Context.History) == 0 {
		return model.Intent{}, false
	}
	turns := f.HistoryTurns
	if turns <= 0 {
		turns = DefaultHistoryTurns
	}

	prompt, err := prompts.RenderClassifyIntent(ctx, in.Utterance, in.Context.FormattedHistory(turns), in.Context.CurrentTopic)
	if err != nil {
		logx.Error().Err(err).Msg("Error rendering classification prompt")
		return unknown(in), true
	}

	raw, err := f.Generator.Generate(ctx, prompt, nodes.RoleContext(nodes.RoleDialog))
	if err != nil {
		logx.Warn().
			Str("session_id", in.Context.SessionID).
			Err(errx.Classification(err)).
			Msg("Model classification failed; using unknown intent")
		return unknown(in), true
	}

	intent, err := parsers.ParseIntent(raw, in.Utterance)
	if err != nil {
		logx.Warn().
			Str("session_id", in.Context.SessionID).
			Str("intent_type", intent.Type.String()).
			Err(err).
			Msg("Degraded model classification")
	}
	return intent, true
}

func unknown(in Input) model.Intent {
	return model.NewIntent(model.IntentUnknown, map[string]any{model.ParamMessage: in.Utterance}, 0)
}

// Classifier evaluates its strategies in order; the first match wins.
type Classifier struct {
	strategies []Strategy
}

// NewClassifier builds the standard cascade. A nil generator disables the
// model fallback.
func NewClassifier(gen model.Generator, historyTurns int) *Classifier {
	strategies := Rules()
	if gen != nil {
		strategies = append(strategies, &ModelFallback{Generator: gen, HistoryTurns: historyTurns})
	}
	return &Classifier{strategies: strategies}
}

// NewClassifierWith builds a classifier from explicit strategies.
func NewClassifierWith(strategies ...Strategy) *Classifier {
	return &Classifier{strategies: strategies}
}

// Classify maps an utterance and its dialog context to an Intent. It never fails:
// unmatched input is IntentUnknown.
func (c *Classifier) Classify(ctx context.Context, utterance string, dctx *model.DialogContext) model.Intent {
	in := NewInput(utterance, dctx)
	for _, s := range c.strategies {
		if intent, ok := s.Classify(ctx, in); ok {
			logx.Debug().
				Str("strategy", s.Name()).
				Str("intent_type", intent.Type.String()).
				Msg("Intent classified")
			return intent
		}
	}
	return unknown(in)
}
