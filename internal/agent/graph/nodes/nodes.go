package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/chative/market-research/internal/agent/graph/prompts"
	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
	logx "github.com/chative/market-research/pkg/logger"
)

// StageDeps are the capabilities shared by every stage node.
type StageDeps struct {
	Generator model.Generator
	Cache     model.CacheStore
	// Evidence is optional; without it the verify stage relies on prior output only.
	Evidence *EvidenceGatherer
}

// NewStagePreHandler refuses to start a stage before all of its
// dependencies have completed in this run.
func NewStagePreHandler(task model.PipelineTask) func(context.Context, model.ResearchParameters, *PipelineState) (model.ResearchParameters, error) {
	return func(ctx context.Context, in model.ResearchParameters, s *PipelineState) (model.ResearchParameters, error) {
		for _, dep := range task.DependsOn {
			if !s.Done(dep) {
				return in, fmt.Errorf("stage %s started before dependency %s completed", task.ID, dep)
			}
		}
		logx.Debug().
			Str("run_id", s.RunID).
			Str("stage", string(task.ID)).
			Msg("Stage starting")
		return in, nil
	}
}

// NewStageNode builds the lambda of one research stage: render the stage
// instruction, call the generator with the combined prior output, cache the
// result and record it in the run state.
func NewStageNode(deps *StageDeps, task model.PipelineTask) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, params model.ResearchParameters) (model.ResearchParameters, error) {
		if err := ctx.Err(); err != nil {
			return params, err
		}

		var prior, refined, runID string
		err := compose.ProcessState(ctx, func(_ context.Context, s *PipelineState) error {
			prior = s.Combined(task.DependsOn)
			refined = s.Outputs[model.StageRefine]
			runID = s.RunID
			return nil
		})
		if err != nil {
			return params, fmt.Errorf("failed to access state: %w", err)
		}

		depKeys := make([]string, 0, len(task.DependsOn))
		for _, d := range task.DependsOn {
			depKeys = append(depKeys, strings.TrimSuffix(task.CacheKey, task.ID.CacheSuffix())+d.CacheSuffix())
		}

		vars := prompts.StageVars{
			Stage:         task.ID,
			TaskID:        string(task.ID),
			CacheKey:      task.CacheKey,
			DependsOnKeys: depKeys,
			Params:        params,
		}
		if task.ID == model.StageVerify && deps.Evidence != nil {
			vars.Evidence = deps.Evidence.Gather(ctx, VerifyQueries(refined, params.Query, deps.Evidence.MaxQueries))
			if err := ctx.Err(); err != nil {
				return params, err
			}
		}

		instruction, err := prompts.RenderStage(ctx, vars)
		if err != nil {
			return params, fmt.Errorf("render %s prompt: %w", task.ID, err)
		}
		if prior != "" {
			instruction += "\n\nContext from previous stages:\n\n" + prior
		}

		out, err := deps.Generator.Generate(ctx, instruction, RoleContext(task.Role))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return params, ctxErr
			}
			if errx.KindOf(err) != errx.KindGeneration {
				err = errx.Generation(err)
			}
			return params, fmt.Errorf("stage %s: %w", task.ID, err)
		}

		if deps.Cache != nil {
			if err := deps.Cache.Put(ctx, task.CacheKey, out); err != nil {
				logx.Warn().
					Err(err).
					Str("run_id", runID).
					Str("cache_key", task.CacheKey).
					Msg("Failed to cache stage output; keeping in-memory copy")
			}
		}

		err = compose.ProcessState(ctx, func(_ context.Context, s *PipelineState) error {
			s.record(task, out)
			return nil
		})
		if err != nil {
			return params, fmt.Errorf("failed to access state: %w", err)
		}

		logx.Debug().
			Str("run_id", runID).
			Str("stage", string(task.ID)).
			Int("output_len", len(out)).
			Msg("Stage completed")
		return params, nil
	})
}

// NewCollectNode reads every stage output back from the cache, falling back
// to the in-memory copy when the cached artifact is missing.
func NewCollectNode(cache model.CacheStore) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ model.ResearchParameters) (*StageOutputs, error) {
		var outputs map[model.StageID]string
		var keys map[model.StageID]string
		var runID string
		err := compose.ProcessState(ctx, func(_ context.Context, s *PipelineState) error {
			outputs = make(map[model.StageID]string, len(s.Outputs))
			keys = make(map[model.StageID]string, len(s.CacheKeys))
			for k, v := range s.Outputs {
				outputs[k] = v
			}
			for k, v := range s.CacheKeys {
				keys[k] = v
			}
			runID = s.RunID
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		read := func(id model.StageID) string {
			mem := outputs[id]
			if cache == nil {
				return mem
			}
			v, err := cache.Get(ctx, keys[id])
			if err != nil {
				logx.Warn().
					Err(err).
					Str("run_id", runID).
					Str("stage", string(id)).
					Msg("Cached stage output unavailable; using in-memory copy")
				return mem
			}
			return v
		}

		return &StageOutputs{
			Refined:     read(model.StageRefine),
			RawData:     read(model.StageResearch),
			Analysis:    read(model.StageAnalyze),
			Verified:    read(model.StageVerify),
			FinalReport: read(model.StageSynthesize),
		}, nil
	})
}
