package prompt

import (
	"fmt"
	"strings"
)

// Rule names, as reported in Prompt.Rules.
const (
	RuleStudyGuide     = "study_guide"
	RuleAudit          = "audit"
	RuleCodeMentor     = "code_mentor"
	RuleCode           = "code"
	RuleSimulation     = "simulation"
	RuleCollaboration  = "collaboration"
	RuleSocratic       = "socratic"
	RuleConversational = "conversational"
	RuleFactCheck      = "fact_check"
	RuleShowReasoning  = "show_reasoning"
	RuleDetailed       = "detailed"
	RuleWebSearch      = "web_search"
	RuleAILiteracy     = "ai_literacy"
)

// state is threaded through the rules.
type state struct {
	input string
	opts  Options
	tone  string
	base  string // name of the chosen base rule
	text  string
}

type rule struct {
	name   string
	when   func(s state) bool
	render func(s state) string
}

// baseRules are checked in priority order; the first match produces the prompt.
var baseRules = []rule{
	{
		name: RuleStudyGuide,
		when: func(s state) bool { return s.opts.StudyGuide },
		render: func(s state) string {
			return "Generate a concise study guide from the following notes in Markdown format: " + s.input
		},
	},
	{
		name: RuleAudit,
		when: func(s state) bool { return s.opts.Audit },
		render: func(s state) string {
			lang := s.opts.Language
			return fmt.Sprintf("Act as a code auditor for %s code. Analyze the following code for syntax errors, "+
				"potential issues, and best practices. Provide a detailed audit report in Markdown format, including "+
				"a summary of findings, specific issues with line numbers (if applicable), reasoning for each issue, "+
				"and suggestions for improvement. Here is the code to audit:\n\n```%s\n%s\n```", lang, lang, s.input)
		},
	},
	{
		name: RuleCodeMentor,
		when: func(s state) bool { return s.opts.Code && s.opts.CriticalThinking },
		render: func(s state) string {
			return fmt.Sprintf("Act as a coding mentor for %s. Instead of providing the full solution, ask probing "+
				"questions to guide the user to solve: %s. Then, suggest alternative approaches and explain their "+
				"trade-offs in Markdown format.", s.opts.Language, s.input)
		},
	},
	{
		name: RuleCode,
		when: func(s state) bool { return s.opts.Code },
		render: func(s state) string {
			return fmt.Sprintf("Act as a coding assistant. Generate a complete %s code file for: %s. Include all "+
				"necessary imports, main logic, and exports. Provide explanations in Markdown format.", s.opts.Language, s.input)
		},
	},
	{
		name: RuleSimulation,
		when: func(s state) bool { return s.opts.Simulation },
		render: func(s state) string {
			return "Act as a simulation guide. Guide the user through a real-world scenario related to: " + s.input +
				". Provide a step-by-step simulation in Markdown format, asking for user decisions at each step and " +
				"providing feedback on their choices. For example, if the topic is project management, simulate " +
				"managing a project budget."
		},
	},
	{
		name: RuleCollaboration,
		when: func(s state) bool { return s.opts.Collaboration },
		render: func(s state) string {
			return "Act as a collaboration facilitator. Suggest a group activity or networking opportunity related to: " +
				s.input + ". Provide prompts to guide collaborative problem-solving in Markdown format. For example, " +
				"suggest joining a study group or coding challenge and provide discussion prompts."
		},
	},
	{
		name: RuleSocratic,
		when: func(s state) bool { return s.opts.CriticalThinking },
		render: func(s state) string {
			return "Act as a Socratic tutor. Instead of answering directly, ask probing questions to guide the user " +
				"to the answer for: " + s.input + ". Provide hints and encourage critical thinking in Markdown format."
		},
	},
	{
		name: RuleConversational,
		when: func(state) bool { return true },
		render: func(s state) string {
			return fmt.Sprintf("Respond in a %s tone with a %s response in Markdown format. %s", s.tone, s.opts.Length, s.input)
		},
	},
}

// modifiers only decorate the conversational template. Order matters:
// "detailed" ends up outermost.
var modifiers = []rule{
	{
		name: RuleFactCheck,
		when: func(s state) bool { return s.base == RuleConversational && s.opts.FactCheck },
		render: func(s state) string {
			return s.text + " Verify the information and provide sources if possible."
		},
	},
	{
		name: RuleShowReasoning,
		when: func(s state) bool { return s.base == RuleConversational && s.opts.ShowReasoning },
		render: func(s state) string {
			return "Show your reasoning step-by-step before providing the final answer in Markdown format. " + s.text
		},
	},
	{
		name: RuleDetailed,
		when: func(s state) bool { return s.base == RuleConversational && s.opts.Detailed },
		render: func(s state) string {
			return "Provide a detailed and thorough response in Markdown format. " + s.text
		},
	},
}

// overrides replace the prompt built so far.
var overrides = []rule{
	{
		name: RuleWebSearch,
		when: func(s state) bool {
			o := s.opts
			return strings.Contains(strings.ToLower(s.input), "search for") &&
				!o.Audit && !o.Code && !o.Simulation && !o.Collaboration
		},
		render: func(s state) string {
			return "Simulate a web search for: " + s.input + " in Markdown format"
		},
	},
}

var suffixes = []rule{
	{
		name: RuleAILiteracy,
		when: func(s state) bool { return s.opts.AILiteracy },
		render: func(s state) string {
			return s.text + "\n\nAfter providing the response, explain in simple terms how you arrived at this answer, " +
				"including the steps you took and any limitations or biases I should be aware of. Also, provide a tip " +
				"for using AI responsibly. Format this explanation in Markdown under a section titled " +
				"'How I Processed This Request'."
		},
	},
}
