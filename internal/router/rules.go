package router

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"oneai/backend/internal/prompt"
	"oneai/backend/internal/providers"
)

var greetingPattern = regexp.MustCompile(`^(hi|hello|hey|good morning|good afternoon|good evening|how are you|what's up|sup)[\s.,!?]*$`)

var (
	casualTerms = []string{"thank", "thanks", "ok", "okay", "cool", "nice"}

	attachmentMarkers = []string{
		"analyze these files:", "analyze this image:", "analyze these images:",
		"analyze this document:", "analyze these documents:",
	}

	visionAnalysisPhrases = []string{
		"analyze image", "describe image", "what's in this image", "read text from", "ocr",
		"document analysis", "analyze document", "extract text", "visual analysis",
	}

	autoVisionTerms = []string{
		"image", "photo", "picture", "analyze", "visual", "describe", "ocr", "read text",
		"chart", "graph", "diagram", "screenshot", "attachment", "file", "document",
	}
	autoAnalyticalTerms = []string{
		"analyze", "compare", "evaluate", "reasoning", "logic", "philosophy", "ethics",
		"debate", "argument", "research", "study", "academic", "scientific", "theory",
		"hypothesis", "complex", "detailed", "thorough", "comprehensive", "in-depth",
	}
	autoProgrammingTerms = []string{
		"code", "program", "function", "algorithm", "debug", "error", "javascript", "python",
		"java", "c++", "html", "css", "react", "node", "api", "database", "sql", "server",
		"terminal", "command", "git", "docker", "linux", "ubuntu",
	}
	autoCreativeTerms = []string{
		"creative", "story", "write", "poem", "song", "lyrics", "novel", "script", "screenplay",
		"brainstorm", "idea", "innovative", "design", "art", "music", "creative writing", "imagination",
	}
	autoQuickTerms = []string{
		"hello", "hi", "hey", "good morning", "good evening", "how are you", "what's up",
		"quick", "fast", "simple", "briefly", "short", "summary",
	}
	autoMathTerms = []string{
		"calculate", "math", "equation", "formula", "solve", "compute", "number",
		"statistics", "probability", "geometry", "algebra", "calculus",
	}

	geminiProTerms = []string{"analyze", "compare", "reasoning", "complex"}

	groqReasoningTerms = []string{
		"analyze", "compare", "plan", "strategy", "decision", "problem", "code", "program",
		"algorithm", "function", "implement", "c++", "java", "python", "javascript", "html", "css",
	}
	groqCreativeTerms = []string{"creative", "brainstorm", "idea", "write", "design", "story"}

	codingTerms = []string{"code", "program", "write", "implement", "triangle", "algorithm"}
)

// signals are the facts about a message that the rule tables test.
type signals struct {
	raw         string
	lower       string
	greeting    bool
	casual      bool
	attachments bool
	vision      bool
}

func analyze(text string, hasAttachments bool) signals {
	lower := strings.ToLower(text)
	s := signals{raw: text, lower: lower}
	s.greeting = greetingPattern.MatchString(strings.TrimSpace(lower))
	s.casual = utf8.RuneCountInString(lower) < 50 && !strings.Contains(lower, "?") && prompt.ContainsAny(lower, casualTerms)
	s.attachments = hasAttachments || prompt.ContainsAny(lower, attachmentMarkers)
	s.vision = s.attachments || prompt.ContainsAny(lower, visionAnalysisPhrases) || prompt.ContainsAny(lower, prompt.ImagePhrases)
	return s
}

func (s signals) smallTalk() bool {
	return s.greeting || s.casual
}

// ProviderRule maps a message category to the provider that serves it best.
type ProviderRule struct {
	Name     string
	Match    func(signals) bool
	Provider providers.ID
}

func containsRule(terms ...[]string) func(signals) bool {
	return func(s signals) bool {
		for _, group := range terms {
			if prompt.ContainsAny(s.lower, group) {
				return true
			}
		}
		return false
	}
}

// AutoRules are evaluated in order; the first match wins.
var AutoRules = []ProviderRule{
	{Name: "vision", Match: containsRule(autoVisionTerms, prompt.ImagePhrases), Provider: providers.Gemini},
	{Name: "analytical", Match: containsRule(autoAnalyticalTerms), Provider: providers.Gemini},
	{Name: "programming", Match: containsRule(autoProgrammingTerms), Provider: providers.Groq},
	{Name: "creative", Match: containsRule(autoCreativeTerms), Provider: providers.Gemini},
	{Name: "quick", Match: func(s signals) bool {
		return prompt.ContainsAny(s.lower, autoQuickTerms) || utf8.RuneCountInString(s.raw) < 50
	}, Provider: providers.Groq},
	{Name: "math", Match: containsRule(autoMathTerms), Provider: providers.Groq},
}

const autoDefault = providers.Groq

// ClassifyAuto picks a provider for "auto" requests and names the rule that fired.
func ClassifyAuto(text string) (providers.ID, string) {
	s := analyze(text, false)
	for _, rule := range AutoRules {
		if rule.Match(s) {
			return rule.Provider, rule.Name
		}
	}
	return autoDefault, "default"
}

// ClassRule selects a model class within one provider.
type ClassRule struct {
	Name  string
	Match func(signals) bool
	Class string
}

// GroqClassRules put small talk first so a greeting never lands on a large model.
var GroqClassRules = []ClassRule{
	{Name: "small-talk", Match: signals.smallTalk, Class: providers.ClassFast},
	{Name: "reasoning", Match: containsRule(groqReasoningTerms), Class: providers.ClassReasoning},
	{Name: "creative", Match: containsRule(groqCreativeTerms), Class: providers.ClassCreative},
}

var GeminiClassRules = []ClassRule{
	{Name: "vision", Match: func(s signals) bool { return s.vision }, Class: providers.ClassVision},
	{Name: "pro", Match: func(s signals) bool {
		return !s.smallTalk() && prompt.ContainsAny(s.lower, geminiProTerms)
	}, Class: providers.ClassPro},
}

func firstClass(rules []ClassRule, s signals, fallback string) string {
	for _, rule := range rules {
		if rule.Match(s) {
			return rule.Class
		}
	}
	return fallback
}
