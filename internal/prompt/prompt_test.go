package prompt

import (
	"strings"
	"testing"

	"oneai/backend/internal/providers"

	"github.com/stretchr/testify/assert"
)

func TestComposeSystemPromptForEveryMode(t *testing.T) {
	canonical := map[Mode]string{
		ModeGeneral:      "advanced AI assistant",
		ModeProductivity: "productivity assistant",
		ModeWellness:     "wellness advisor",
		ModeLearning:     "learning and education specialist",
		ModeCreative:     "creative thinking and innovation specialist",
		ModeCasual:       "approachable and engaging",
		ModeBFF:          "Gen Z AI assistant",
	}
	for mode, phrase := range canonical {
		got := ComposeSystemPrompt(mode)
		assert.Contains(t, got, phrase, "mode %s", mode)
		assert.True(t, strings.HasSuffix(got, toneGuidance), "mode %s missing tone guidance", mode)
	}
}

func TestComposeSystemPromptUnknownModeFallsBackToGeneral(t *testing.T) {
	assert.Equal(t, generalPrompt, ComposeSystemPrompt(Mode("pirate")))
	assert.Equal(t, ModeGeneral, ParseMode("pirate"))
	assert.Equal(t, ModeBFF, ParseMode(" BFF "))
}

func TestEnrichImageDisplayVersusCreate(t *testing.T) {
	display := Enrich("show me an image of a cat", providers.Groq)
	assert.True(t, IsImageDisplayRequest(display))
	assert.Contains(t, display, `"show me an image of a cat"`)

	create := Enrich("create an image of a sunset", providers.Groq)
	assert.False(t, IsImageDisplayRequest(create))
	assert.True(t, strings.HasPrefix(create, "Create a detailed, vivid description"))

	// a create verb anywhere wins over a display verb
	both := Enrich("show me an image and make it a painting", providers.Groq)
	assert.False(t, IsImageDisplayRequest(both))
}

func TestEnrichIdentityInterpolatesProvider(t *testing.T) {
	got := Enrich("Who made you?", providers.Gemini)
	assert.Contains(t, got, "Google's Gemini AI platform")
	assert.Contains(t, got, "Primary Provider: Google Gemini (for advanced reasoning)")
	assert.True(t, strings.HasSuffix(got, "Original question: Who made you?"))

	auto := Enrich("tell me about yourself", providers.Auto)
	assert.Contains(t, auto, "Auto Mode (intelligently selects")
}

func TestEnrichPrefixes(t *testing.T) {
	cases := map[string]string{
		"How do I bake bread":     "Give step-by-step instructions:\nHow do I bake bread",
		"why is the sky blue":     "Explain the reasoning clearly:\nwhy is the sky blue",
		"What is Go":              "List key points clearly in markdown format:\nWhat is Go",
		"please compare X and Y":  "List key points clearly in markdown format:\nplease compare X and Y",
		"tell me a joke about Go": "tell me a joke about Go",
	}
	for in, want := range cases {
		assert.Equal(t, want, Enrich(in, providers.Groq), "input %q", in)
	}
}

func TestImageSearchQuery(t *testing.T) {
	assert.Equal(t, "golden retrievers", ImageSearchQuery("Show an image of golden retrievers"))
	assert.Equal(t, "the eiffel tower at night", ImageSearchQuery("display photo the eiffel tower at night"))
	assert.Equal(t, "cats please", ImageSearchQuery("cats please"))
}

func TestImageFoundReplyKeepsFourImages(t *testing.T) {
	images := make([]ImageResult, 6)
	for i := range images {
		images[i] = ImageResult{Title: "t", ImageURL: "https://img/x.png", SourceDomain: "img"}
	}
	reply := ImageFoundReply("cats", images)
	assert.True(t, strings.HasPrefix(reply, "I found some great images for \"cats\"! Here they are:\n\n"))
	assert.Contains(t, reply, "**4. t**")
	assert.NotContains(t, reply, "**5. t**")
	assert.Contains(t, reply, "![t](https://img/x.png)\n*Source: img*")
}

func TestWebSummaryPromptListsSources(t *testing.T) {
	got := WebSummaryPrompt("go generics", "Google Custom Search", []WebSource{
		{Title: "A", URL: "https://a.dev", DisplayLink: "a.dev", Snippet: "s", Content: "c"},
	}, 8)
	assert.Contains(t, got, "## Source 1: A")
	assert.Contains(t, got, "*Sources analyzed: 1 out of 8 found*")
	assert.Contains(t, got, "# 🔍 Web Search Results: go generics")
}
