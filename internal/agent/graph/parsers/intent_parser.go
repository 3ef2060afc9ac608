package parsers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
	logx "github.com/chative/market-research/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024
	maxErrSnippet = 200
)

type intentPayload struct {
	IntentType string          `json:"intent_type"`
	Intent     string          `json:"intent"`
	Parameters map[string]any  `json:"parameters"`
	Confidence json.RawMessage `json:"confidence"`
}

// ParseIntent turns a model classification reply into an Intent. It tries, in
// order: the whole reply as JSON, the first balanced {...} substring, and a
// keyword sniff for "research" or "followup". When all fail the result is
// IntentUnknown.
//
// The returned error is non-nil whenever the reply was not valid JSON. It is a
// classification error meant for logging; the Intent is always usable.
func ParseIntent(raw, message string) (intent model.Intent, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "intent_parser").Msgf("panic recovered: %v", r)
			intent = model.NewIntent(model.IntentUnknown, nil, 0)
			err = errx.Classification(fmt.Errorf("intent parser panic"))
		}
	}()

	if len(raw) > maxContentLen {
		raw = raw[:maxContentLen]
	}
	trimmed := strings.TrimSpace(raw)

	if p, ok := decode(trimmed); ok {
		return fromPayload(p, message), nil
	}
	if sub := ExtractJSONObject(trimmed); sub != "" {
		if p, ok := decode(sub); ok {
			return fromPayload(p, message), nil
		}
	}

	perr := errx.Classification(fmt.Errorf("unparseable classification: %s", safeSnippet(trimmed)))
	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "research"):
		return model.NewIntent(model.IntentResearch, map[string]any{
			model.ParamTopic:         message,
			model.ParamOriginalQuery: message,
		}, model.FallbackIntentConfidence), perr
	case strings.Contains(lower, "followup"), strings.Contains(lower, "follow_up"), strings.Contains(lower, "follow-up"):
		return model.NewIntent(model.IntentFollowup, map[string]any{
			model.ParamQuestion: message,
		}, model.FallbackIntentConfidence), perr
	default:
		return model.NewIntent(model.IntentUnknown, map[string]any{
			model.ParamMessage: message,
		}, 0), perr
	}
}

func decode(s string) (intentPayload, bool) {
	var p intentPayload
	if s == "" || s[0] != '{' {
		return p, false
	}
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return p, false
	}
	return p, true
}

func fromPayload(p intentPayload, message string) model.Intent {
	name := p.IntentType
	if name == "" {
		name = p.Intent
	}
	t := model.ParseIntentType(name)

	params := p.Parameters
	if params == nil {
		params = map[string]any{}
	}
	switch t {
	case model.IntentResearch:
		if s, _ := params[model.ParamTopic].(string); strings.TrimSpace(s) == "" {
			params[model.ParamTopic] = message
		}
		if _, ok := params[model.ParamOriginalQuery]; !ok {
			params[model.ParamOriginalQuery] = message
		}
	case model.IntentFollowup:
		if s, _ := params[model.ParamQuestion].(string); strings.TrimSpace(s) == "" {
			params[model.ParamQuestion] = message
		}
	case model.IntentComparison:
		if s, _ := params[model.ParamComparisonQuery].(string); strings.TrimSpace(s) == "" {
			params[model.ParamComparisonQuery] = message
		}
	}
	return model.NewIntent(t, params, parseConfidence(p.Confidence))
}

// parseConfidence accepts a number or a numeric string; anything else is the default.
func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return model.DefaultIntentConfidence
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return v
		}
	}
	return model.DefaultIntentConfidence
}

// ExtractJSONObject returns the first balanced {...} substring of s, ignoring
// braces inside JSON strings, or "" when there is none.
func ExtractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func safeSnippet(s string) string {
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet] + "..."
}
