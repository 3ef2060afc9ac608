package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/prompt"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/chative/market-research/pkg/logger"
)

func newPromptHandler() *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *prompt.CallbackInput) context.Context {
			ev := logx.Debug().Str("component", "prompt").Str("name", info.Name)
			if input != nil {
				ev = ev.Int("variables", len(input.Variables))
			}
			ev.Msg("Prompt rendering")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			ev := logx.Debug().Str("component", "prompt").Str("name", info.Name)
			if output != nil && len(output.Result) > 0 && output.Result[0] != nil {
				ev = ev.Str("rendered", preview(output.Result[0].Content))
			}
			ev.Msg("Prompt rendered")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Warn().Err(err).Str("component", "prompt").Str("name", info.Name).Msg("Prompt rendering failed")
			return ctx
		},
	}
}

// NewPromptCallbacks logs prompt template rendering.
func NewPromptCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		Prompt(newPromptHandler()).
		Handler()
}
