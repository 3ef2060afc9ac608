package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chative/market-research/internal/agent/model"
)

func TestPipelineStateCombined(t *testing.T) {
	s := NewPipelineState("r1")
	assert.False(t, s.Done(model.StageRefine))
	assert.Empty(t, s.Combined(nil))

	s.record(model.PipelineTask{ID: model.StageRefine, CacheKey: "k_params"}, "refined")
	s.record(model.PipelineTask{ID: model.StageResearch, CacheKey: "k_raw"}, "raw")
	s.record(model.PipelineTask{ID: model.StageRefine, CacheKey: "k_params"}, "refined again")

	assert.True(t, s.Done(model.StageRefine))
	assert.Equal(t, []model.StageID{model.StageRefine, model.StageResearch}, s.Completed)

	got := s.Combined([]model.StageID{model.StageResearch, model.StageRefine})
	assert.Equal(t, "=== Output of refine (cache key: k_params) ===\nrefined again\n\n"+
		"=== Output of research (cache key: k_raw) ===\nraw", got)

	assert.Equal(t, "=== Output of research (cache key: k_raw) ===\nraw",
		s.Combined([]model.StageID{model.StageResearch}))
}

func TestNodeStage(t *testing.T) {
	assert.Equal(t, "stage_verify", NodeStage(model.StageVerify))
}

func TestRoleContextFallsBackToDialog(t *testing.T) {
	assert.Equal(t, RoleContext(RoleDialog), RoleContext("nope"))
	assert.Contains(t, RoleContext(RoleWriter), "Content Strategist")
}
