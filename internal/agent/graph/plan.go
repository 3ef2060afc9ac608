package graph

import (
	"fmt"
	"strings"

	"github.com/chative/market-research/internal/agent/graph/nodes"
	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
)

// CachePrefix derives the per-run cache key prefix from the query and run id.
func CachePrefix(query, runID string) string {
	q := []rune(strings.TrimSpace(query))
	if len(q) > 20 {
		q = q[:20]
	}
	return fmt.Sprintf("research_%s_%s", string(q), runID)
}

// Plan returns the five research tasks for one run. Later stages depend on
// every earlier stage so synthesis sees all prior output.
func Plan(params model.ResearchParameters, runID string) []model.PipelineTask {
	prefix := CachePrefix(params.Query, runID)
	subject := "topic"
	if params.IsCompany() {
		subject = "company"
	}

	specs := []struct {
		id   model.StageID
		desc string
		role string
	}{
		{model.StageRefine, "Refine the research parameters for " + params.Query, nodes.RoleDialog},
		{model.StageResearch, fmt.Sprintf("Research the %s %q", subject, params.Query), nodes.RoleResearcher},
		{model.StageAnalyze, "Analyze the research findings on " + params.Query, nodes.RoleAnalyst},
		{model.StageVerify, "Verify the research and analysis on " + params.Query, nodes.RoleVerifier},
		{model.StageSynthesize, "Write the final report on " + params.Query, nodes.RoleWriter},
	}

	tasks := make([]model.PipelineTask, 0, len(specs))
	var done []model.StageID
	for _, s := range specs {
		deps := make([]model.StageID, len(done))
		copy(deps, done)
		tasks = append(tasks, model.PipelineTask{
			ID:          s.id,
			Description: s.desc,
			DependsOn:   deps,
			CacheKey:    prefix + s.id.CacheSuffix(),
			Role:        s.role,
		})
		done = append(done, s.id)
	}
	return tasks
}

// Schedule orders tasks so each runs after all of its dependencies. Ties keep
// the input order. Unknown dependencies, duplicate ids and cycles are
// validation errors.
func Schedule(tasks []model.PipelineTask) ([]model.PipelineTask, error) {
	index := make(map[model.StageID]int, len(tasks))
	for i, t := range tasks {
		if _, dup := index[t.ID]; dup {
			return nil, errx.Validation(fmt.Sprintf("duplicate task %q", t.ID))
		}
		index[t.ID] = i
	}

	indegree := make([]int, len(tasks))
	dependents := make([][]int, len(tasks))
	for i, t := range tasks {
		for _, d := range t.DependsOn {
			j, ok := index[d]
			if !ok {
				return nil, errx.Validation(fmt.Sprintf("task %q depends on unknown task %q", t.ID, d))
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i := range tasks {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]model.PipelineTask, 0, len(tasks))
	for len(ready) > 0 {
		// lowest input index first keeps the order stable
		min := 0
		for k := range ready {
			if ready[k] < ready[min] {
				min = k
			}
		}
		i := ready[min]
		ready = append(ready[:min], ready[min+1:]...)
		order = append(order, tasks[i])
		for _, j := range dependents[i] {
			indegree[j]--
			if indegree[j] == 0 {
				ready = append(ready, j)
			}
		}
	}

	if len(order) != len(tasks) {
		return nil, errx.Validation("task graph has a cycle")
	}
	return order, nil
}
