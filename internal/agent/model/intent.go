package model

import (
	"fmt"
	"maps"
	"strings"
	"time"
)

// IntentType is the closed set of purposes a user utterance can be classified into.
type IntentType string

const (
	IntentGreeting      IntentType = "greeting"
	IntentResearch      IntentType = "research_request"
	IntentFollowup      IntentType = "followup_question"
	IntentClarification IntentType = "clarification_request"
	IntentComparison    IntentType = "comparison_request"
	IntentCommand       IntentType = "system_command"
	IntentFeedback      IntentType = "user_feedback"
	IntentSmallTalk     IntentType = "small_talk"
	IntentUnknown       IntentType = "unknown"
)

// AllIntentTypes lists every valid IntentType in classification-prompt order.
var AllIntentTypes = []IntentType{
	IntentGreeting,
	IntentResearch,
	IntentFollowup,
	IntentClarification,
	IntentComparison,
	IntentCommand,
	IntentFeedback,
	IntentSmallTalk,
	IntentUnknown,
}

// String returns the wire name of the intent type.
func (t IntentType) String() string {
	return string(t)
}

// IsValid reports whether t is one of the enumerated intent types.
func (t IntentType) IsValid() bool {
	for _, v := range AllIntentTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsResearch reports whether the intent should trigger a research pipeline run.
func (t IntentType) IsResearch() bool {
	return t == IntentResearch || t == IntentComparison
}

// ParseIntentType maps free text from a model response onto the enum.
// Spacing, case and hyphens are normalised; anything else becomes IntentUnknown.
func ParseIntentType(s string) IntentType {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "research", "research_request":
		return IntentResearch
	case "followup", "follow_up", "followup_question", "follow_up_question":
		return IntentFollowup
	case "clarification", "clarification_request":
		return IntentClarification
	case "comparison", "comparison_request":
		return IntentComparison
	case "command", "system_command":
		return IntentCommand
	case "feedback", "user_feedback":
		return IntentFeedback
	case "smalltalk", "small_talk":
		return IntentSmallTalk
	case "greeting":
		return IntentGreeting
	default:
		return IntentUnknown
	}
}

// Parameter keys carried by intents.
const (
	ParamCommand         = "command"
	ParamTopic           = "topic"
	ParamOriginalQuery   = "original_query"
	ParamQuestion        = "question"
	ParamRelatedTo       = "related_to"
	ParamComparisonQuery = "comparison_query"
	ParamRequest         = "request"
	ParamSentiment       = "sentiment"
	ParamFeedback        = "feedback"
	ParamMessage         = "message"
)

// Command values for IntentCommand.
const (
	CommandReset = "reset"
	CommandHelp  = "help"
)

// DefaultIntentConfidence is used when a rule matches or a model omits confidence.
const (
	DefaultIntentConfidence  = 1.0
	FallbackIntentConfidence = 0.7
)

// Intent is the classified purpose of one utterance. Build it with NewIntent and
// treat it as a value: the parameter map is copied in and never shared.
type Intent struct {
	Type       IntentType     `json:"type"`
	Parameters map[string]any `json:"parameters"`
	Confidence float64        `json:"confidence"`
	Timestamp  time.Time      `json:"timestamp"`
}

// NewIntent validates the type, clamps confidence to [0,1] and stamps the time.
func NewIntent(t IntentType, params map[string]any, confidence float64) Intent {
	if !t.IsValid() {
		t = IntentUnknown
	}
	p := make(map[string]any, len(params))
	maps.Copy(p, params)
	return Intent{
		Type:       t,
		Parameters: p,
		Confidence: clamp01(confidence),
		Timestamp:  time.Now().UTC(),
	}
}

// Param returns the parameter as a string, or "" when absent.
func (i Intent) Param(key string) string {
	v, ok := i.Parameters[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func clamp01(v float64) float64 {
	if v != v { // NaN
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
