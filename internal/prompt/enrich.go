package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"oneai/backend/internal/providers"
)

// DisplayImageMarker prefixes an enriched prompt that asks for real images
// instead of a generated description.
const DisplayImageMarker = "SEARCH_AND_DISPLAY_IMAGE:"

// ImagePhrases mark requests to create or show a picture.
var ImagePhrases = []string{
	"create an image", "generate an image", "make an image", "draw an image",
	"show an image", "show me an image", "display an image",
	"show picture", "show me picture", "display picture",
	"create picture", "generate picture", "make picture", "draw picture",
	"show photo", "show me photo", "display photo",
	"create photo", "generate photo", "make photo", "draw photo",
	"illustration", "sketch", "artwork", "drawing", "painting", "render", "visualize",
	"create visual", "generate visual", "make visual", "show visual",
}

var (
	displayVerbs = []string{"show", "display", "find", "get"}
	createVerbs  = []string{"create", "generate", "make", "draw", "paint", "render"}
)

var identityPhrases = []string{
	"who made you", "who created you", "who developed you", "who built you",
	"what is technology behind", "what technology",
	"how were you made", "how were you created", "what powers you", "your developer",
	"who are you", "what are you", "how do you work", "how do you operate",
	"what is your purpose", "why were you created", "what can you do", "your capabilities",
	"how do you think", "how do you learn", "what makes you different", "what makes you special",
	"how do you understand", "how do you process", "what is your role", "what is your function",
	"how do you interact", "how do you communicate", "what is your architecture", "your design",
	"your programming", "your training", "your intelligence", "your consciousness",
	"are you real", "are you alive", "do you have feelings", "do you have emotions",
	"what is your name", "introduce yourself", "tell me about yourself", "about you",
}

var imageRequestPrefix = regexp.MustCompile(`(?i)^(show|display|find|get)\s+(an?\s+)?(image|picture|photo)\s+(of\s+)?`)

// ContainsAny reports whether lower contains one of terms.
func ContainsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// Enrich rewrites a user message into a more directive instruction. The
// checks run in a fixed order: image requests, identity questions, then
// leading how/why/what prefixes.
func Enrich(text string, provider providers.ID) string {
	lower := strings.ToLower(text)

	if ContainsAny(lower, ImagePhrases) {
		if ContainsAny(lower, displayVerbs) && !ContainsAny(lower, createVerbs) {
			return fmt.Sprintf(displayImageTemplate, text, text)
		}
		return describeImageTemplate + text
	}

	if ContainsAny(lower, identityPhrases) {
		return identityPrompt(provider) + text
	}

	switch {
	case strings.HasPrefix(lower, "how"):
		return "Give step-by-step instructions:\n" + text
	case strings.HasPrefix(lower, "why"):
		return "Explain the reasoning clearly:\n" + text
	case strings.HasPrefix(lower, "what") || strings.Contains(lower, "compare"):
		return "List key points clearly in markdown format:\n" + text
	}
	return text
}

// IsImageDisplayRequest reports whether enriched came from a show/display image request.
func IsImageDisplayRequest(enriched string) bool {
	return strings.HasPrefix(enriched, DisplayImageMarker)
}

// ImageSearchQuery strips the leading "show me an image of" phrasing.
func ImageSearchQuery(text string) string {
	return strings.TrimSpace(imageRequestPrefix.ReplaceAllString(strings.TrimSpace(text), ""))
}

func identityPrompt(provider providers.ID) string {
	display := providers.Describe(provider)
	return fmt.Sprintf(identityTemplate, display.Name, display.Models, primaryProviderLabel(provider), display.Models)
}

func primaryProviderLabel(provider providers.ID) string {
	switch provider {
	case providers.Auto:
		return "Auto Mode (intelligently selects between Groq for speed and Gemini for reasoning)"
	case providers.Groq:
		return "Groq (for ultra-fast inference)"
	case providers.Gemini:
		return "Google Gemini (for advanced reasoning)"
	case providers.OpenAI:
		return "OpenAI (for sophisticated conversations)"
	default:
		return "Anthropic Claude (for thoughtful responses)"
	}
}
