package dialog

import (
	"context"
	"strings"

	"github.com/chative/market-research/internal/agent/graph/nodes"
	"github.com/chative/market-research/internal/agent/graph/prompts"
	"github.com/chative/market-research/internal/agent/intent"
	"github.com/chative/market-research/internal/agent/model"
	logx "github.com/chative/market-research/pkg/logger"
)

// Classifier maps an utterance to an Intent.
type Classifier interface {
	Classify(ctx context.Context, utterance string, dctx *model.DialogContext) model.Intent
}

var _ Classifier = (*intent.Classifier)(nil)

// Coordinator drives one dialog turn: classify, update the context, reply.
type Coordinator struct {
	classifier   Classifier
	generator    model.Generator
	historyTurns int
}

// NewCoordinator builds a coordinator. A nil generator makes every generated
// reply use its canned fallback.
func NewCoordinator(classifier Classifier, gen model.Generator, historyTurns int) *Coordinator {
	if historyTurns <= 0 {
		historyTurns = intent.DefaultHistoryTurns
	}
	return &Coordinator{classifier: classifier, generator: gen, historyTurns: historyTurns}
}

// ProcessMessage handles one utterance, mutating dctx. History grows by one
// user and one assistant message, except on reset where the context is
// replaced and only the reset reply remains.
func (c *Coordinator) ProcessMessage(ctx context.Context, utterance string, dctx *model.DialogContext) (string, model.Intent) {
	dctx.AddMessage(model.RoleUser, utterance, nil)

	in := c.classifier.Classify(ctx, utterance, dctx)
	dctx.LastIntent = &in

	switch in.Type {
	case model.IntentGreeting:
		dctx.State = model.StateGreeting
	case model.IntentResearch:
		dctx.State = model.StateResearching
		if topic := in.Param(model.ParamTopic); topic != "" {
			dctx.CurrentTopic = topic
		}
	case model.IntentFollowup:
		dctx.State = model.StateDiscussing
	}

	reply := c.respond(ctx, in, dctx)
	dctx.AddMessage(model.RoleAssistant, reply, map[string]any{"intent_type": in.Type.String()})

	logx.Debug().
		Str("session_id", dctx.SessionID).
		Str("intent_type", in.Type.String()).
		Str("state", string(dctx.State)).
		Int("history_len", len(dctx.History)).
		Msg("Dialog turn processed")
	return reply, in
}

func (c *Coordinator) respond(ctx context.Context, in model.Intent, dctx *model.DialogContext) string {
	switch in.Type {
	case model.IntentCommand:
		if in.Param(model.ParamCommand) == model.CommandReset {
			dctx.Reset()
			return ResetReply
		}
		return HelpText
	case model.IntentGreeting:
		// history already holds this turn's user message
		if len(dctx.History) <= 2 {
			return FirstGreeting
		}
		return RepeatGreeting
	case model.IntentResearch, model.IntentComparison:
		return c.researchAck(ctx, in, dctx)
	case model.IntentFollowup:
		return c.followup(ctx, in, dctx)
	case model.IntentClarification:
		// skip the user message just appended; the reply quotes the previous answer
		if last, ok := dctx.LastAssistantMessage(); ok {
			return clarifyReply(last)
		}
		return ClarifyNothing
	case model.IntentFeedback:
		if in.Param(model.ParamSentiment) == "positive" {
			return PositiveFeedbackReply
		}
		return NegativeFeedbackReply
	case model.IntentSmallTalk:
		return smallTalkReply(in.Param(model.ParamMessage))
	default:
		if dctx.CurrentTopic != "" {
			return unknownWithTopic(dctx.CurrentTopic)
		}
		return UnknownNoTopic
	}
}

func (c *Coordinator) researchAck(ctx context.Context, in model.Intent, dctx *model.DialogContext) string {
	topic := in.Param(model.ParamTopic)
	query := in.Param(model.ParamOriginalQuery)
	if in.Type == model.IntentComparison {
		query = in.Param(model.ParamComparisonQuery)
	}
	if query == "" {
		query = topic
	}
	if topic == "" {
		topic = query
	}
	if in.Type == model.IntentComparison && topic != "" {
		dctx.CurrentTopic = topic
	}

	fallback := researchAckFallback(topic)
	prompt, err := prompts.RenderResearchAck(ctx, query, topic)
	if err != nil {
		logx.Error().Err(err).Msg("Error rendering research acknowledgment prompt")
		return fallback
	}
	return c.generate(ctx, dctx, prompt, fallback)
}

func (c *Coordinator) followup(ctx context.Context, in model.Intent, dctx *model.DialogContext) string {
	topic := in.Param(model.ParamTopic)
	if topic == "" {
		topic = dctx.CurrentTopic
	}
	prompt, err := prompts.RenderFollowup(ctx, in.Param(model.ParamQuestion), topic, dctx.FormattedHistory(c.historyTurns))
	if err != nil {
		logx.Error().Err(err).Msg("Error rendering followup prompt")
		return FollowupFallback
	}
	return c.generate(ctx, dctx, prompt, FollowupFallback)
}

// generate calls the generator and returns fallback on any failure or empty output.
func (c *Coordinator) generate(ctx context.Context, dctx *model.DialogContext, prompt, fallback string) string {
	if c.generator == nil {
		return fallback
	}
	out, err := c.generator.Generate(ctx, prompt, nodes.RoleContext(nodes.RoleDialog))
	if err != nil {
		logx.Warn().Err(err).Str("session_id", dctx.SessionID).Msg("Reply generation failed; using fallback")
		return fallback
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return fallback
	}
	return out
}
