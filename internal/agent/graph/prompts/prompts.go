package prompts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/classify_intent.txt
var classifyIntentPrompt string

//go:embed template/research_ack.txt
var researchAckPrompt string

//go:embed template/followup.txt
var followupPrompt string

// render formats a Go template through the Eino prompt component so Prompt
// callbacks fire when a callback handler is attached to ctx.
func render(ctx context.Context, name, tpl string, vars map[string]any) (string, error) {
	t := prompt.FromMessages(schema.GoTemplate, schema.UserMessage(tpl))
	msgs, err := t.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("%s prompt render: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt render: empty result", name)
	}
	return msgs[0].Content, nil
}

// RenderClassifyIntent builds the fallback classification prompt.
func RenderClassifyIntent(ctx context.Context, message, history, currentTopic string) (string, error) {
	if currentTopic == "" {
		currentTopic = "None"
	}
	if history == "" {
		history = "(no previous messages)"
	}
	return render(ctx, "classify_intent", classifyIntentPrompt, map[string]any{
		"Message":      message,
		"History":      history,
		"CurrentTopic": currentTopic,
	})
}

// RenderResearchAck builds the prompt for the initial acknowledgment of a research request.
func RenderResearchAck(ctx context.Context, query, topic string) (string, error) {
	if topic == "" {
		topic = query
	}
	return render(ctx, "research_ack", researchAckPrompt, map[string]any{
		"Query": query,
		"Topic": topic,
	})
}

// RenderFollowup builds the prompt answering a follow-up question.
func RenderFollowup(ctx context.Context, question, topic, history string) (string, error) {
	return render(ctx, "followup", followupPrompt, map[string]any{
		"Question": question,
		"Topic":    topic,
		"History":  history,
	})
}
