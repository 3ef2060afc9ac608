package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/chative/market-research/internal/agent/model"
)

//go:embed template/stage_refine.txt
var stageRefinePrompt string

//go:embed template/stage_research.txt
var stageResearchPrompt string

//go:embed template/stage_analyze.txt
var stageAnalyzePrompt string

//go:embed template/stage_verify.txt
var stageVerifyPrompt string

//go:embed template/stage_synthesize.txt
var stageSynthesizePrompt string

var companyChecklist = []string{
	"Company background, history, and main products/services",
	"Market position, competitors, and market share",
	"Financial performance and funding history",
	"SWOT analysis (strengths, weaknesses, opportunities, threats)",
	"Recent news, developments, and strategic initiatives",
	"Future outlook and growth potential",
}

var topicChecklist = []string{
	"Topic background and key concepts",
	"Current trends and developments",
	"Key players and organizations in this space",
	"Market size and growth projections",
	"Challenges and opportunities",
	"Future predictions and emerging trends",
}

var companyFocus = []string{
	"Business model and revenue streams",
	"Competitive advantage and differentiators",
	"Market positioning and strategy",
	"Financial health and performance",
	"Growth vectors and challenges",
}

var topicFocus = []string{
	"Current state and major developments",
	"Key influencers and thought leaders",
	"Regional differences and patterns",
	"Historical context and evolution",
	"Future trajectory and potential disruptions",
}

// Checklist returns the six research coverage items for the input type.
func Checklist(t model.InputType) []string {
	src := topicChecklist
	if t == model.InputCompany {
		src = companyChecklist
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// AnalysisFocus returns the analysis focus list for the input type.
func AnalysisFocus(t model.InputType) []string {
	src := topicFocus
	if t == model.InputCompany {
		src = companyFocus
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// StageVars feed a stage instruction template.
type StageVars struct {
	Stage         model.StageID
	TaskID        string
	CacheKey      string
	DependsOnKeys []string
	Params        model.ResearchParameters
	// Evidence is only used by the verify stage.
	Evidence string
}

func stageTemplate(s model.StageID) (string, error) {
	switch s {
	case model.StageRefine:
		return stageRefinePrompt, nil
	case model.StageResearch:
		return stageResearchPrompt, nil
	case model.StageAnalyze:
		return stageAnalyzePrompt, nil
	case model.StageVerify:
		return stageVerifyPrompt, nil
	case model.StageSynthesize:
		return stageSynthesizePrompt, nil
	default:
		return "", fmt.Errorf("no template for stage %q", s)
	}
}

// RenderStage renders the instruction for one pipeline stage.
func RenderStage(ctx context.Context, v StageVars) (string, error) {
	tpl, err := stageTemplate(v.Stage)
	if err != nil {
		return "", err
	}
	checklist := Checklist(v.Params.InputType)
	for i := range checklist {
		checklist[i] = fmt.Sprintf("%d. %s", i+1, checklist[i])
	}
	deps := "none"
	if len(v.DependsOnKeys) > 0 {
		deps = strings.Join(v.DependsOnKeys, ", ")
	}
	return render(ctx, "stage_"+string(v.Stage), tpl, map[string]any{
		"TaskID":        v.TaskID,
		"CacheKey":      v.CacheKey,
		"DependsOnKeys": deps,
		"Params":        v.Params,
		"IsCompany":     v.Params.IsCompany(),
		"Checklist":     checklist,
		"Focus":         AnalysisFocus(v.Params.InputType),
		"Evidence":      v.Evidence,
	})
}
