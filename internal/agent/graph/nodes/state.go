package nodes

import (
	"slices"
	"strings"

	"github.com/chative/market-research/internal/agent/model"
)

// Node keys of the research graph.
const (
	NodeCollect = "collect_results"
)

// NodeStage returns the graph node key of a stage.
func NodeStage(id model.StageID) string {
	return "stage_" + string(id)
}

// PipelineState is the graph-local state of one research run.
type PipelineState struct {
	RunID     string
	Outputs   map[model.StageID]string
	CacheKeys map[model.StageID]string
	Completed []model.StageID
}

func NewPipelineState(runID string) *PipelineState {
	return &PipelineState{
		RunID:     runID,
		Outputs:   map[model.StageID]string{},
		CacheKeys: map[model.StageID]string{},
	}
}

// Done reports whether a stage finished in this run.
func (s *PipelineState) Done(id model.StageID) bool {
	return slices.Contains(s.Completed, id)
}

func (s *PipelineState) record(task model.PipelineTask, output string) {
	s.Outputs[task.ID] = output
	s.CacheKeys[task.ID] = task.CacheKey
	if !s.Done(task.ID) {
		s.Completed = append(s.Completed, task.ID)
	}
}

// Combined renders the outputs of deps in completion order, each labelled
// with its stage and cache key.
func (s *PipelineState) Combined(deps []model.StageID) string {
	var b strings.Builder
	for _, id := range s.Completed {
		if !slices.Contains(deps, id) {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("=== Output of ")
		b.WriteString(string(id))
		b.WriteString(" (cache key: ")
		b.WriteString(s.CacheKeys[id])
		b.WriteString(") ===\n")
		b.WriteString(s.Outputs[id])
	}
	return b.String()
}

// StageOutputs is what a completed run hands back to the caller.
type StageOutputs struct {
	Refined     string
	RawData     string
	Analysis    string
	Verified    string
	FinalReport string
}
