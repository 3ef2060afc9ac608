package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
)

func TestCachePrefix(t *testing.T) {
	assert.Equal(t, "research_EV market_abc", CachePrefix(" EV market ", "abc"))
	assert.Equal(t, "research_abcdefghijklmnopqrst_r1", CachePrefix("abcdefghijklmnopqrstuvwxyz", "r1"))
	// rune-safe truncation
	assert.Equal(t, "research_"+strings.Repeat("é", 20)+"_r1", CachePrefix(strings.Repeat("é", 25), "r1"))
}

func TestPlan(t *testing.T) {
	params := model.ResearchParameters{Query: "EV market"}.WithDefaults()
	tasks := Plan(params, "run1")
	require.Len(t, tasks, 5)

	for i, task := range tasks {
		assert.Equal(t, model.Stages[i], task.ID)
		assert.Equal(t, model.Stages[:i], task.DependsOn, "stage %s", task.ID)
		assert.Equal(t, "research_EV market_run1"+task.ID.CacheSuffix(), task.CacheKey)
		assert.NotEmpty(t, task.Role)
		assert.NotEmpty(t, task.Description)
	}
	assert.True(t, tasks[4].DependsOnStage(model.StageRefine))
	assert.Equal(t, "research_EV market_run1_final", tasks[4].CacheKey)
}

func TestPlanDependenciesAreNotShared(t *testing.T) {
	tasks := Plan(model.ResearchParameters{Query: "q"}.WithDefaults(), "r")
	tasks[2].DependsOn[0] = "mutated"
	assert.Equal(t, model.StageRefine, tasks[3].DependsOn[0])
}

func TestScheduleKeepsPlanOrder(t *testing.T) {
	tasks := Plan(model.ResearchParameters{Query: "q"}.WithDefaults(), "r")
	order, err := Schedule(tasks)
	require.NoError(t, err)
	ids := make([]model.StageID, 0, len(order))
	for _, task := range order {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, model.Stages, ids)
}

func TestScheduleReordersByDependency(t *testing.T) {
	tasks := []model.PipelineTask{
		{ID: "c", DependsOn: []model.StageID{"b"}},
		{ID: "a"},
		{ID: "b", DependsOn: []model.StageID{"a"}},
		{ID: "d"},
	}
	order, err := Schedule(tasks)
	require.NoError(t, err)

	var ids []model.StageID
	for _, task := range order {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []model.StageID{"a", "b", "c", "d"}, ids)
}

func TestScheduleErrors(t *testing.T) {
	tests := []struct {
		name  string
		tasks []model.PipelineTask
		want  string
	}{
		{
			name:  "cycle",
			tasks: []model.PipelineTask{{ID: "a", DependsOn: []model.StageID{"b"}}, {ID: "b", DependsOn: []model.StageID{"a"}}},
			want:  "cycle",
		},
		{
			name:  "unknown dependency",
			tasks: []model.PipelineTask{{ID: "a", DependsOn: []model.StageID{"zzz"}}},
			want:  "unknown task",
		},
		{
			name:  "duplicate id",
			tasks: []model.PipelineTask{{ID: "a"}, {ID: "a"}},
			want:  "duplicate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Schedule(tt.tasks)
			require.Error(t, err)
			assert.True(t, errx.IsKind(err, errx.KindValidation))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
