package graph

import (
	"context"
	"fmt"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/chative/market-research/internal/agent/graph/nodes"
	"github.com/chative/market-research/internal/agent/graph/observers"
	"github.com/chative/market-research/internal/agent/model"
	"github.com/chative/market-research/internal/agent/report"
	errx "github.com/chative/market-research/internal/core/error"
	logx "github.com/chative/market-research/pkg/logger"
)

// summaryLines is how many executive summary lines go into ResultSummary.
const summaryLines = 2

// Config holds everything needed to run research pipelines.
type Config struct {
	Generator model.Generator
	Cache     model.CacheStore
	Store     model.ResultStore
	// Evidence enables secondary searches in the verify stage.
	Evidence *nodes.EvidenceGatherer
	// ModelName is recorded in result metadata.
	ModelName string
	// Callbacks replace the default observers when set.
	Callbacks []einocb.Handler
	// NewRunID overrides research id generation.
	NewRunID func() string
}

// Pipeline runs the five research stages against a generator.
type Pipeline struct {
	deps      *nodes.StageDeps
	store     model.ResultStore
	modelName string
	callbacks []einocb.Handler
	newRunID  func() string
}

// NewPipeline validates cfg.
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is nil")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache store is nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("result store is nil")
	}
	cbs := cfg.Callbacks
	if len(cbs) == 0 {
		cbs = observers.NewAllCallbacks()
	}
	newRunID := cfg.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}
	return &Pipeline{
		deps: &nodes.StageDeps{
			Generator: cfg.Generator,
			Cache:     cfg.Cache,
			Evidence:  cfg.Evidence,
		},
		store:     cfg.Store,
		modelName: cfg.ModelName,
		callbacks: cbs,
		newRunID:  newRunID,
	}, nil
}

// Run executes one research run. Invalid parameters fail fast with a
// validation error; every later failure becomes an error-shaped result with a
// nil error. Results are persisted once under their research id.
func (p *Pipeline) Run(ctx context.Context, params model.ResearchParameters) (model.ResearchResult, error) {
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return model.ResearchResult{}, err
	}

	start := time.Now()
	runID := p.newRunID()
	logx.Info().
		Str("run_id", runID).
		Str("query", params.Query).
		Str("input_type", string(params.InputType)).
		Msg("Starting research")

	outputs, err := p.execute(ctx, runID, params)
	if err == nil && outputs.FinalReport == "" {
		err = errx.Generation(fmt.Errorf("synthesis produced an empty report"))
	}
	if err != nil {
		return p.fail(ctx, runID, params, start, err), nil
	}

	result := model.ResearchResult{
		Query:         params.Query,
		Parameters:    params,
		RawData:       outputs.RawData,
		Analysis:      outputs.Analysis,
		Verified:      outputs.Verified,
		FinalReport:   outputs.FinalReport,
		ResultSummary: report.Summary(report.Extract(outputs.FinalReport), summaryLines),
		Metadata: model.ResultMetadata{
			ResearchID:  runID,
			Timestamp:   time.Now().UTC(),
			ElapsedTime: time.Since(start).Seconds(),
			Model:       p.modelName,
		},
	}
	if err := p.store.Save(ctx, runID, result); err != nil {
		return p.fail(ctx, runID, params, start, fmt.Errorf("persist result: %w", err)), nil
	}

	logx.Info().
		Str("run_id", runID).
		Float64("elapsed_s", result.Metadata.ElapsedTime).
		Msg("Research completed")
	return result, nil
}

// fail builds the error-shaped result and stores it when possible so the run
// can be inspected later.
func (p *Pipeline) fail(ctx context.Context, runID string, params model.ResearchParameters, start time.Time, err error) model.ResearchResult {
	result := model.ResearchResult{
		Query:      params.Query,
		Parameters: params,
		Error:      err.Error(),
		Metadata: model.ResultMetadata{
			ResearchID:  runID,
			Timestamp:   time.Now().UTC(),
			ElapsedTime: time.Since(start).Seconds(),
			Model:       p.modelName,
			Status:      model.StatusError,
		},
	}
	logx.Error().
		Err(err).
		Str("run_id", runID).
		Str("kind", string(errx.KindOf(err))).
		Float64("elapsed_s", result.Metadata.ElapsedTime).
		Msg("Research failed")

	// a cancelled run has no usable context left for storage
	saveCtx := context.WithoutCancel(ctx)
	if serr := p.store.Save(saveCtx, runID, result); serr != nil {
		logx.Warn().Err(serr).Str("run_id", runID).Msg("Failed to persist error result")
	}
	return result
}

func (p *Pipeline) execute(ctx context.Context, runID string, params model.ResearchParameters) (*nodes.StageOutputs, error) {
	order, err := Schedule(Plan(params, runID))
	if err != nil {
		return nil, err
	}
	runnable, err := BuildGraph(ctx, runID, order, p.deps)
	if err != nil {
		return nil, err
	}
	out, err := runnable.Invoke(ctx, params, compose.WithCallbacks(p.callbacks...))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("pipeline returned no output")
	}
	return out, nil
}

// GraphBuilder assembles the research graph for one run.
type GraphBuilder struct {
	order []model.PipelineTask
	deps  *nodes.StageDeps
	graph *compose.Graph[model.ResearchParameters, *nodes.StageOutputs]
}

// BuildGraph compiles the scheduled tasks into a linear graph ending in the
// collect node. The graph-local state carries stage outputs between nodes.
func BuildGraph(ctx context.Context, runID string, order []model.PipelineTask, deps *nodes.StageDeps) (compose.Runnable[model.ResearchParameters, *nodes.StageOutputs], error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("no tasks to run")
	}
	if deps == nil || deps.Generator == nil {
		return nil, fmt.Errorf("stage dependencies are not initialized")
	}

	b := &GraphBuilder{
		order: order,
		deps:  deps,
		graph: compose.NewGraph[model.ResearchParameters, *nodes.StageOutputs](
			compose.WithGenLocalState(func(ctx context.Context) *nodes.PipelineState {
				return nodes.NewPipelineState(runID)
			}),
		),
	}
	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	return b.compile(ctx)
}

func (b *GraphBuilder) addNodes() error {
	for _, t := range b.order {
		err := b.graph.AddLambdaNode(nodes.NodeStage(t.ID),
			nodes.NewStageNode(b.deps, t),
			compose.WithNodeName(string(t.ID)),
			compose.WithStatePreHandler(nodes.NewStagePreHandler(t)),
		)
		if err != nil {
			logx.Error().Err(err).Str("stage", string(t.ID)).Msg("Error adding stage node")
			return fmt.Errorf("error adding stage node %s: %w", t.ID, err)
		}
	}
	if err := b.graph.AddLambdaNode(nodes.NodeCollect, nodes.NewCollectNode(b.deps.Cache), compose.WithNodeName(nodes.NodeCollect)); err != nil {
		return fmt.Errorf("error adding collect node: %w", err)
	}
	return nil
}

func (b *GraphBuilder) addEdges() error {
	keys := []string{compose.START}
	for _, t := range b.order {
		keys = append(keys, nodes.NodeStage(t.ID))
	}
	keys = append(keys, nodes.NodeCollect, compose.END)

	for i := 0; i+1 < len(keys); i++ {
		if err := b.graph.AddEdge(keys[i], keys[i+1]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", keys[i], keys[i+1], err)
		}
	}
	return nil
}

func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.ResearchParameters, *nodes.StageOutputs], error) {
	// one step per node plus headroom
	maxSteps := len(b.order) + 4
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("research_pipeline"),
		compose.WithMaxRunSteps(maxSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}
	return runnable, nil
}
