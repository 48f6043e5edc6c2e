// Package router decides which provider, model and system prompt serve a
// chat turn. Routing is deterministic: the same input and the same set of
// configured providers always produce the same Selection.
package router

import (
	"errors"

	"oneai/backend/internal/prompt"
	"oneai/backend/internal/providers"
)

const (
	DefaultMaxTokens = 2500

	temperatureDefault  = 0.7
	temperatureCreative = 0.8
	temperatureBFF      = 0.9
)

var ErrNoProviderConfigured = errors.New("no AI providers are configured")

type Input struct {
	Mode           prompt.Mode
	Provider       providers.ID
	Text           string
	HasAttachments bool
	// Model is an optional class hint honoured for providers other than Groq.
	Model string
}

type Selection struct {
	Requested    providers.ID
	Provider     providers.ID
	ModelClass   string
	Model        string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
	// InlineMedia is set when the provider accepts attachments as binary parts.
	InlineMedia bool
	AutoRule    string
	SmallTalk   bool
	Vision      bool
}

type Router struct {
	registry providers.Registry
}

func New(registry providers.Registry) Router {
	return Router{registry: registry}
}

func (r Router) Route(in Input) (Selection, error) {
	s := analyze(in.Text, in.HasAttachments)
	sel := Selection{
		Requested: in.Provider,
		Provider:  in.Provider,
		MaxTokens: DefaultMaxTokens,
		SmallTalk: s.smallTalk(),
		Vision:    s.vision,
	}

	if sel.Provider == providers.Auto {
		sel.Provider, sel.AutoRule = ClassifyAuto(in.Text)
	}
	if !r.registry.Available(sel.Provider) {
		fallback, ok := r.registry.FirstAvailable()
		if !ok {
			return Selection{}, ErrNoProviderConfigured
		}
		sel.Provider = fallback
	}

	geminiReady := r.registry.Available(providers.Gemini)
	forcedVision := false
	switch {
	case s.attachments && geminiReady:
		sel.Provider, sel.ModelClass, forcedVision = providers.Gemini, providers.ClassVision, true
	case s.vision && geminiReady:
		sel.Provider, sel.ModelClass, forcedVision = providers.Gemini, providers.ClassVision, true
	case s.attachments:
		sel.ModelClass = attachmentClass(sel.Provider)
	default:
		sel.ModelClass = r.classFor(sel.Provider, s)
	}
	if !forcedVision && !s.attachments && sel.Provider != providers.Groq && in.Model != "" {
		sel.ModelClass = r.registry.NormalizeClass(sel.Provider, in.Model)
	}

	sel.Model = r.registry.ResolveModel(sel.Provider, sel.ModelClass)
	sel.InlineMedia = sel.Provider == providers.Gemini
	sel.SystemPrompt = systemPrompt(in.Mode, sel, s)
	sel.Temperature = temperature(in.Mode, sel.ModelClass, s.attachments)
	return sel, nil
}

func (r Router) classFor(provider providers.ID, s signals) string {
	switch provider {
	case providers.Groq:
		return firstClass(GroqClassRules, s, providers.ClassFast)
	case providers.Gemini:
		return firstClass(GeminiClassRules, s, providers.ClassFlash)
	default:
		return r.registry.DefaultClass(provider)
	}
}

// attachmentClass is used when files arrive but Gemini is not configured.
func attachmentClass(provider providers.ID) string {
	if provider == providers.Groq {
		return providers.ClassReasoning
	}
	return providers.ClassDefault
}

func systemPrompt(mode prompt.Mode, sel Selection, s signals) string {
	base := prompt.ComposeSystemPrompt(mode)
	switch {
	case s.attachments:
		return prompt.FileAnalysisPrompt
	case s.smallTalk():
		return prompt.CasualOverride
	case s.vision && sel.Provider == providers.Gemini && sel.ModelClass == providers.ClassVision:
		return prompt.VisionSystemPrompt(base)
	case sel.ModelClass == providers.ClassReasoning && prompt.ContainsAny(s.lower, codingTerms):
		return base + prompt.CodingAddendum
	default:
		return base
	}
}

func temperature(mode prompt.Mode, class string, attachments bool) float32 {
	switch {
	case attachments:
		return temperatureDefault
	case class == providers.ClassCreative:
		return temperatureCreative
	case mode == prompt.ModeBFF:
		return temperatureBFF
	default:
		return temperatureDefault
	}
}
