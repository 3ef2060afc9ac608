package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/chative/market-research/pkg/logger"
)

// previewLen bounds message content copied into debug logs.
const previewLen = 200

// newModelHandler logs the prompt and reply around chat model calls.
func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ev := logx.Debug().Str("component", "model").Str("name", info.Name)
			if input != nil {
				ev = ev.Int("messages", len(input.Messages)).
					Str("user", preview(lastUserContent(input.Messages)))
			}
			ev.Msg("Model call started")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			ev := logx.Debug().Str("component", "model").Str("name", info.Name)
			if output != nil {
				if output.Message != nil {
					ev = ev.Str("assistant", preview(output.Message.Content))
				}
				if output.TokenUsage != nil {
					ev = ev.Int("prompt_tokens", output.TokenUsage.PromptTokens).
						Int("completion_tokens", output.TokenUsage.CompletionTokens)
				}
			}
			ev.Msg("Model call finished")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("component", "model").Str("name", info.Name).Msg("Model call failed")
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "..."
}
