package observers

import (
	"context"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"

	logx "github.com/chative/market-research/pkg/logger"
)

type stageStartKey struct{ name string }

// NewStageCallbacks logs the start, duration and failure of every lambda node
// in a graph run, which covers each research stage.
func NewStageCallbacks() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackInput) context.Context {
			if !isLambda(info) {
				return ctx
			}
			return context.WithValue(ctx, stageStartKey{info.Name}, time.Now())
		}).
		OnEndFn(func(ctx context.Context, info *einocb.RunInfo, _ einocb.CallbackOutput) context.Context {
			if !isLambda(info) {
				return ctx
			}
			ev := logx.Info().Str("node", info.Name)
			if start, ok := ctx.Value(stageStartKey{info.Name}).(time.Time); ok {
				ev = ev.Dur("took", time.Since(start))
			}
			ev.Msg("Node finished")
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			if !isLambda(info) {
				return ctx
			}
			logx.Error().Err(err).Str("node", info.Name).Msg("Node failed")
			return ctx
		}).
		Build()
}

func isLambda(info *einocb.RunInfo) bool {
	return info != nil && info.Component == compose.ComponentOfLambda
}
