// Package providers holds the static model tables for every supported LLM
// vendor and answers which of them have credentials configured.
package providers

import (
	"strings"

	"oneai/backend/internal/config"
)

type ID string

const (
	Groq   ID = "groq"
	Gemini ID = "gemini"
	OpenAI ID = "openai"
	Claude ID = "claude"

	// Auto is a request value only; the router replaces it with a real provider.
	Auto ID = "auto"
)

// Priority is the fallback order used when the requested provider has no credential.
var Priority = []ID{Groq, Gemini, OpenAI, Claude}

const (
	ClassDefault   = "default"
	ClassFast      = "fast"
	ClassReasoning = "reasoning"
	ClassCreative  = "creative"
	ClassFlash     = "flash"
	ClassPro       = "pro"
	ClassVision    = "vision"
	ClassTurbo     = "turbo"
	ClassSonnet    = "sonnet"
	ClassHaiku     = "haiku"
)

type table struct {
	defaultClass string
	models       map[string]string
	classes      []string
}

var tables = map[ID]table{
	Groq: {
		defaultClass: ClassFast,
		models: map[string]string{
			ClassFast:      "llama-3.1-8b-instant",
			ClassReasoning: "llama-3.3-70b-versatile",
			ClassCreative:  "qwen/qwen3-32b",
		},
		classes: []string{ClassFast, ClassReasoning, ClassCreative},
	},
	Gemini: {
		defaultClass: ClassDefault,
		models: map[string]string{
			ClassDefault: "gemini-2.5-flash",
			ClassFlash:   "gemini-2.5-flash",
			ClassPro:     "gemini-2.5-pro",
			ClassVision:  "gemini-2.5-pro",
		},
		classes: []string{ClassDefault, ClassFlash, ClassPro, ClassVision},
	},
	OpenAI: {
		defaultClass: ClassDefault,
		models: map[string]string{
			ClassDefault: "gpt-4o",
			ClassTurbo:   "gpt-4-turbo",
			ClassFast:    "gpt-3.5-turbo",
		},
		classes: []string{ClassDefault, ClassTurbo, ClassFast},
	},
	Claude: {
		defaultClass: ClassDefault,
		models: map[string]string{
			ClassDefault: "claude-3-5-sonnet-20241022",
			ClassSonnet:  "claude-3-sonnet-20240229",
			ClassHaiku:   "claude-3-haiku-20240307",
		},
		classes: []string{ClassDefault, ClassSonnet, ClassHaiku},
	},
}

type Display struct {
	Name   string
	Models string
}

var displays = map[ID]Display{
	Groq:   {Name: "Groq's lightning-fast inference engine", Models: "Llama 3.1 and Llama 3.3 models that handle different types of tasks"},
	Gemini: {Name: "Google's Gemini AI platform", Models: "Gemini 2.5 Flash and Gemini 2.5 Pro models for advanced reasoning and creativity"},
	OpenAI: {Name: "OpenAI's advanced language models", Models: "GPT-4o and GPT-4 Turbo models for sophisticated conversations and analysis"},
	Claude: {Name: "Anthropic's Claude AI system", Models: "Claude 3.5 Sonnet and Claude 3 models for thoughtful and nuanced responses"},
	Auto:   {Name: "intelligent Auto mode that dynamically selects between Groq and Gemini", Models: "smart provider selection based on your question type"},
}

// Parse normalises a client-supplied provider name. Unknown names map to Groq.
func Parse(raw string) ID {
	id := ID(strings.ToLower(strings.TrimSpace(raw)))
	if id == "" {
		return Groq
	}
	if id == Auto {
		return Auto
	}
	if _, ok := tables[id]; ok {
		return id
	}
	return Groq
}

// Registry is built once at startup and is read-only afterwards.
type Registry struct {
	available map[ID]bool
}

func NewRegistry(cfg config.Config) Registry {
	return NewRegistryFromKeys(map[ID]string{
		Groq:   cfg.GroqAPIKey,
		Gemini: cfg.GeminiAPIKey,
		OpenAI: cfg.OpenAIAPIKey,
		Claude: cfg.AnthropicAPIKey,
	})
}

func NewRegistryFromKeys(keys map[ID]string) Registry {
	available := make(map[ID]bool, len(keys))
	for id, key := range keys {
		if strings.TrimSpace(key) != "" {
			available[id] = true
		}
	}
	return Registry{available: available}
}

// ResolveModel maps a provider and class to a vendor model name. It never
// fails: unknown classes use the provider default, unknown providers use
// Groq's fast model.
func (r Registry) ResolveModel(provider ID, class string) string {
	t, ok := tables[provider]
	if !ok {
		return tables[Groq].models[ClassFast]
	}
	if model, ok := t.models[class]; ok {
		return model
	}
	return t.models[t.defaultClass]
}

// NormalizeClass returns class when the provider defines it, else its default class.
func (r Registry) NormalizeClass(provider ID, class string) string {
	t, ok := tables[provider]
	if !ok {
		return ClassFast
	}
	if _, ok := t.models[class]; ok {
		return class
	}
	return t.defaultClass
}

func (r Registry) Available(provider ID) bool {
	return r.available[provider]
}

func (r Registry) FirstAvailable() (ID, bool) {
	for _, id := range Priority {
		if r.available[id] {
			return id, true
		}
	}
	return "", false
}

func (r Registry) AnyAvailable() bool {
	_, ok := r.FirstAvailable()
	return ok
}

func (r Registry) Classes(provider ID) []string {
	return append([]string(nil), tables[provider].classes...)
}

func (r Registry) DefaultClass(provider ID) string {
	if t, ok := tables[provider]; ok {
		return t.defaultClass
	}
	return ClassFast
}

func Describe(provider ID) Display {
	if d, ok := displays[provider]; ok {
		return d
	}
	return Display{Name: "advanced AI infrastructure", Models: "state-of-the-art language models"}
}
