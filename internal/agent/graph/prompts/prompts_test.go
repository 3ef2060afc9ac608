package prompts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chative/market-research/internal/agent/model"
)

func TestRenderClassifyIntent(t *testing.T) {
	out, err := RenderClassifyIntent(context.Background(), "what next for batteries", "User: hi", "")
	require.NoError(t, err)
	assert.Contains(t, out, `"what next for batteries"`)
	assert.Contains(t, out, "Current topic: None")
	assert.Contains(t, out, "User: hi")
	assert.Contains(t, out, `"intent_type"`)
}

func TestRenderResearchAckDefaultsTopic(t *testing.T) {
	out, err := RenderResearchAck(context.Background(), "compare AWS vs Azure", "")
	require.NoError(t, err)
	assert.Contains(t, out, "The key topic is: compare AWS vs Azure")
}

func TestRenderStageChecklistBranches(t *testing.T) {
	ctx := context.Background()
	company := model.ParametersFromQuery("Acme company", model.ParameterDefaults{})
	topic := model.ParametersFromQuery("plant-based meat", model.ParameterDefaults{})

	out, err := RenderStage(ctx, StageVars{Stage: model.StageResearch, TaskID: "research", CacheKey: "k_raw", DependsOnKeys: []string{"k_params"}, Params: company})
	require.NoError(t, err)
	assert.Contains(t, out, "the company")
	assert.Contains(t, out, "4. SWOT analysis")
	assert.Contains(t, out, "builds on: k_params")

	out, err = RenderStage(ctx, StageVars{Stage: model.StageResearch, TaskID: "research", CacheKey: "k_raw", Params: topic})
	require.NoError(t, err)
	assert.Contains(t, out, "the topic")
	assert.Contains(t, out, "4. Market size and growth projections")
	assert.Contains(t, out, "builds on: none")
}

func TestRenderStageAnalyzeFocus(t *testing.T) {
	p := model.ParametersFromQuery("Acme company", model.ParameterDefaults{})
	out, err := RenderStage(context.Background(), StageVars{Stage: model.StageAnalyze, Params: p})
	require.NoError(t, err)
	assert.Contains(t, out, "- Business model and revenue streams")
}

func TestRenderStageVerifyEvidence(t *testing.T) {
	p := model.ParametersFromQuery("ev", model.ParameterDefaults{})
	out, err := RenderStage(context.Background(), StageVars{Stage: model.StageVerify, Params: p, Evidence: "[1] source"})
	require.NoError(t, err)
	assert.Contains(t, out, "[1] source")

	out, err = RenderStage(context.Background(), StageVars{Stage: model.StageVerify, Params: p})
	require.NoError(t, err)
	assert.Contains(t, out, "No additional evidence")
}

func TestRenderStageUnknown(t *testing.T) {
	_, err := RenderStage(context.Background(), StageVars{Stage: "dance"})
	assert.Error(t, err)
}

func TestChecklistIsCopied(t *testing.T) {
	c := Checklist(model.InputTopic)
	require.Len(t, c, 6)
	c[0] = "changed"
	assert.Equal(t, "Topic background and key concepts", Checklist(model.InputTopic)[0])
}
