package nodes

import "fmt"

// Role is the persona a generator adopts for a call.
type Role struct {
	Name      string
	Goal      string
	Backstory string
}

// Context renders the role as a system instruction.
func (r Role) Context() string {
	return fmt.Sprintf("You are a %s. Your goal: %s. Background: %s.", r.Name, r.Goal, r.Backstory)
}

// Role keys used by pipeline tasks and the dialog layer.
const (
	RoleDialog     = "dialog"
	RoleResearcher = "researcher"
	RoleAnalyst    = "analyst"
	RoleVerifier   = "verifier"
	RoleWriter     = "writer"
)

var roles = map[string]Role{
	RoleDialog: {
		Name:      "Conversation Manager",
		Goal:      "Maintain natural conversation flow and extract research parameters from user queries",
		Backstory: "An empathetic conversationalist skilled at understanding user needs and creating engaging dialog",
	},
	RoleResearcher: {
		Name:      "Research Specialist",
		Goal:      "Find comprehensive, accurate information on any topic from multiple reliable sources",
		Backstory: "A meticulous researcher with expertise in evaluating source credibility and finding deep insights",
	},
	RoleAnalyst: {
		Name:      "Data Analyst",
		Goal:      "Analyze research findings to identify key trends, comparisons, and insights",
		Backstory: "An analytical expert who excels at finding patterns and meaningful connections in complex data",
	},
	RoleVerifier: {
		Name:      "Fact Checker",
		Goal:      "Verify the accuracy and completeness of research findings with multiple sources",
		Backstory: "A meticulous verifier who ensures information is accurate, balanced, and properly sourced",
	},
	RoleWriter: {
		Name:      "Content Strategist",
		Goal:      "Transform research and analysis into clear, engaging, and actionable content",
		Backstory: "A talented communicator who makes complex information accessible and compelling for different audiences",
	},
}

// RoleContext returns the system instruction for a role key. Unknown keys fall
// back to the dialog persona.
func RoleContext(key string) string {
	r, ok := roles[key]
	if !ok {
		r = roles[RoleDialog]
	}
	return r.Context()
}
