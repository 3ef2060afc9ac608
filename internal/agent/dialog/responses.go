package dialog

import (
	"fmt"
	"strings"
)

// Canned replies. The generated replies fall back to these on failure.
const (
	HelpText = `I'm your AI Market Research Assistant, designed to help you with comprehensive market research. Here's what I can do:

• **Research Topics**: Ask me to research any market, industry, technology, or company
• **Answer Follow-ups**: Ask clarifying questions about any research I provide
• **Compare Items**: Request comparisons between companies, products, or markets

To get started, try asking something like:
- "Research the electric vehicle market in Europe"
- "Tell me about emerging fintech trends"
- "Analyze the competitive landscape for cloud storage providers"
- "What's the market size for plant-based meat alternatives?"

You can reset our conversation anytime by saying "reset" or "start over".`

	FirstGreeting = `Hello! I'm your AI Market Research Assistant. I can help you with in-depth research on companies, markets, industries, and trends.

What topic would you like me to research today?`

	RepeatGreeting = "Hello again! How can I help with your market research today?"

	ResetReply = "I've reset our conversation. How can I help you today?"

	FollowupFallback = "That's a great follow-up question. Let me explore that aspect in more detail for you."

	ClarifyNothing = "I apologize for any confusion. Could you please specify what you'd like me to clarify?"

	PositiveFeedbackReply = "Thank you for the positive feedback! I'm glad I could help. Is there anything else you'd like to know?"
	NegativeFeedbackReply = "I appreciate your feedback. I'll do my best to improve my responses. What specific information would be more helpful for you?"

	SmallTalkWellbeing = "I'm functioning well, thank you for asking! I'm ready to help with your market research needs. What would you like to know about?"
	SmallTalkThanks    = "You're welcome! I'm happy to assist with your research needs. Let me know if you have any other questions."
	SmallTalkIdentity  = "I'm an AI Market Research Assistant designed to help you with in-depth research on markets, industries, companies, and trends. How can I assist you today?"
	SmallTalkDefault   = "I'm here to help with market research. Would you like me to research a specific topic or company for you?"

	UnknownNoTopic = "I'm not quite sure what you're asking. I can help with market research on companies, industries, or trends. Could you provide more details about what you'd like to know?"
)

// clarifyQuoteLen is how much of the previous reply a clarification repeats.
const clarifyQuoteLen = 100

func researchAckFallback(topic string) string {
	if topic == "" {
		topic = "that topic"
	}
	return fmt.Sprintf("I'd be happy to research %s for you. Let me gather some information and I'll provide you with insights shortly.", topic)
}

func clarifyReply(last string) string {
	r := []rune(last)
	if len(r) > clarifyQuoteLen {
		r = r[:clarifyQuoteLen]
	}
	return fmt.Sprintf("I apologize if I wasn't clear. Let me clarify: %s... Would you like me to explain any specific part in more detail?", string(r))
}

func unknownWithTopic(topic string) string {
	return fmt.Sprintf("I see we were discussing %s. Would you like me to research a specific aspect of this topic, or would you prefer to explore something else?", topic)
}

func smallTalkReply(message string) string {
	m := strings.ToLower(message)
	switch {
	case strings.Contains(m, "who are you"), strings.Contains(m, "what are you"):
		return SmallTalkIdentity
	case strings.Contains(m, "thank"):
		return SmallTalkThanks
	case strings.Contains(m, "how are"), strings.Contains(m, "how's it going"), strings.Contains(m, "how do you do"):
		return SmallTalkWellbeing
	default:
		return SmallTalkDefault
	}
}
