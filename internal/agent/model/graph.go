package model

// StageID names one of the five research stages.
type StageID string

const (
	StageRefine     StageID = "refine"
	StageResearch   StageID = "research"
	StageAnalyze    StageID = "analyze"
	StageVerify     StageID = "verify"
	StageSynthesize StageID = "synthesize"
)

// Stages lists the stages in chain order.
var Stages = []StageID{StageRefine, StageResearch, StageAnalyze, StageVerify, StageSynthesize}

// CacheSuffix is appended to a run's cache prefix to store a stage's output.
func (s StageID) CacheSuffix() string {
	switch s {
	case StageRefine:
		return "_params"
	case StageResearch:
		return "_raw"
	case StageAnalyze:
		return "_analysis"
	case StageVerify:
		return "_verified"
	case StageSynthesize:
		return "_final"
	default:
		return "_" + string(s)
	}
}

// PipelineTask is one node of the research task graph.
type PipelineTask struct {
	ID          StageID   `json:"id"`
	Description string    `json:"description"`
	DependsOn   []StageID `json:"depends_on"`
	CacheKey    string    `json:"cache_key"`
	// Role selects the persona handed to the generator.
	Role string `json:"role"`
}

// DependsOnStage reports whether t has a direct dependency on id.
func (t PipelineTask) DependsOnStage(id StageID) bool {
	for _, d := range t.DependsOn {
		if d == id {
			return true
		}
	}
	return false
}
