package intent

import (
	"regexp"
	"strings"

	"github.com/chative/market-research/internal/agent/model"
)

// Input is one utterance prepared for the strategies.
type Input struct {
	// Utterance is the trimmed original text.
	Utterance string
	// Normalized is the trimmed, lower-cased text every rule matches against.
	Normalized string
	Tokens     int
	Context    *model.DialogContext
}

// NewInput normalizes an utterance.
func NewInput(utterance string, dctx *model.DialogContext) Input {
	u := strings.TrimSpace(utterance)
	n := strings.ToLower(u)
	return Input{
		Utterance:  u,
		Normalized: n,
		Tokens:     len(strings.Fields(n)),
		Context:    dctx,
	}
}

func (in Input) currentTopic() string {
	if in.Context == nil {
		return ""
	}
	return in.Context.CurrentTopic
}

func (in Input) researchID() string {
	if in.Context == nil {
		return ""
	}
	return in.Context.CurrentResearchID
}

var (
	resetPattern         = wordsPattern("reset", "start over", "clear", "new conversation")
	helpPattern          = wordsPattern("help", "how does this work", "what can you do")
	greetingPattern      = wordsPattern("hi", "hello", "hey", "greetings", "howdy")
	vsPattern            = wordsPattern("vs")
	clarificationPattern = wordsPattern("what do you mean", "clarify", "explain", "confused", "don't understand")
	feedbackPattern      = wordsPattern("good job", "well done", "thanks", "thank you", "helpful", "not helpful", "useless", "wrong")
)

var researchKeywords = []string{
	"research", "find", "look up", "search", "investigate", "analyze", "study",
	"get info", "tell me about", "what is", "who is", "market", "industry",
	"company", "trends", "statistics", "data on", "report on",
}

// researchStrippers hold one pattern per research keyword, in list order.
var researchStrippers = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(researchKeywords))
	for i, kw := range researchKeywords {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b\s*`)
	}
	return out
}()

var followupKeywords = []string{
	"more about", "tell me more", "expand on", "elaborate", "details",
	"additional info", "what about", "how about", "why", "how", "when",
}

var comparisonKeywords = []string{"compare", "versus", "differences between"}

var (
	positiveFeedbackWords = []string{"good", "well", "thanks", "thank", "helpful"}
	negativeFeedbackWords = []string{"not helpful", "useless", "wrong"}
)

func wordsPattern(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func matchCommand(in Input) (model.Intent, bool) {
	switch {
	case resetPattern.MatchString(in.Normalized):
		return model.NewIntent(model.IntentCommand, map[string]any{model.ParamCommand: model.CommandReset}, model.DefaultIntentConfidence), true
	case helpPattern.MatchString(in.Normalized):
		return model.NewIntent(model.IntentCommand, map[string]any{model.ParamCommand: model.CommandHelp}, model.DefaultIntentConfidence), true
	}
	return model.Intent{}, false
}

func matchGreeting(in Input) (model.Intent, bool) {
	if in.Tokens <= 3 && greetingPattern.MatchString(in.Normalized) {
		return model.NewIntent(model.IntentGreeting, nil, model.DefaultIntentConfidence), true
	}
	return model.Intent{}, false
}

func matchResearch(in Input) (model.Intent, bool) {
	for i, kw := range researchKeywords {
		if !strings.Contains(in.Normalized, kw) {
			continue
		}
		return model.NewIntent(model.IntentResearch, map[string]any{
			model.ParamTopic:         researchTopic(in.Utterance, researchStrippers[i]),
			model.ParamOriginalQuery: in.Utterance,
		}, model.DefaultIntentConfidence), true
	}
	return model.Intent{}, false
}

// researchTopic removes the first word-bounded occurrence of the keyword. A
// keyword found only inside a longer word leaves the utterance unchanged, and
// an utterance that is nothing but the keyword keeps itself as the topic.
func researchTopic(utterance string, strip *regexp.Regexp) string {
	topic := utterance
	if loc := strip.FindStringIndex(utterance); loc != nil {
		topic = utterance[:loc[0]] + utterance[loc[1]:]
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return utterance
	}
	return topic
}

func followupIntent(in Input) model.Intent {
	return model.NewIntent(model.IntentFollowup, map[string]any{
		model.ParamTopic:     in.currentTopic(),
		model.ParamQuestion:  in.Utterance,
		model.ParamRelatedTo: in.researchID(),
	}, model.DefaultIntentConfidence)
}

func matchFollowup(in Input) (model.Intent, bool) {
	if in.currentTopic() == "" {
		return model.Intent{}, false
	}
	if containsAny(in.Normalized, followupKeywords) || strings.HasSuffix(in.Normalized, "?") {
		return followupIntent(in), true
	}
	return model.Intent{}, false
}

func matchComparison(in Input) (model.Intent, bool) {
	if containsAny(in.Normalized, comparisonKeywords) || vsPattern.MatchString(in.Normalized) {
		return model.NewIntent(model.IntentComparison, map[string]any{model.ParamComparisonQuery: in.Utterance}, model.DefaultIntentConfidence), true
	}
	return model.Intent{}, false
}

func matchClarification(in Input) (model.Intent, bool) {
	if clarificationPattern.MatchString(in.Normalized) {
		return model.NewIntent(model.IntentClarification, map[string]any{model.ParamRequest: in.Utterance}, model.DefaultIntentConfidence), true
	}
	return model.Intent{}, false
}

func matchFeedback(in Input) (model.Intent, bool) {
	if !feedbackPattern.MatchString(in.Normalized) {
		return model.Intent{}, false
	}
	return model.NewIntent(model.IntentFeedback, map[string]any{
		model.ParamSentiment: feedbackSentiment(in.Normalized),
		model.ParamFeedback:  in.Utterance,
	}, model.DefaultIntentConfidence), true
}

// feedbackSentiment removes negative phrases before looking for positive words,
// so "not helpful" does not count as praise.
func feedbackSentiment(normalized string) string {
	rest := normalized
	for _, w := range negativeFeedbackWords {
		rest = strings.ReplaceAll(rest, w, " ")
	}
	if containsAny(rest, positiveFeedbackWords) {
		return "positive"
	}
	return "negative"
}

func matchSmallTalk(in Input) (model.Intent, bool) {
	if in.Tokens <= 5 {
		return model.NewIntent(model.IntentSmallTalk, map[string]any{model.ParamMessage: in.Utterance}, model.DefaultIntentConfidence), true
	}
	return model.Intent{}, false
}

func matchTopicContinuation(in Input) (model.Intent, bool) {
	if in.currentTopic() == "" {
		return model.Intent{}, false
	}
	return followupIntent(in), true
}
