package prompt

import (
	"fmt"
	"strings"
)

// WebSource is one fetched search result handed to the summariser.
type WebSource struct {
	Title       string
	URL         string
	DisplayLink string
	Snippet     string
	Content     string
}

// WebSummaryPrompt builds the research-analyst prompt over fetched pages.
func WebSummaryPrompt(query, searchMethod string, sources []WebSource, totalResults int) string {
	blocks := make([]string, 0, len(sources))
	listing := make([]string, 0, len(sources))
	for i, src := range sources {
		blocks = append(blocks, fmt.Sprintf("## Source %d: %s\n**URL**: %s\n**Domain**: %s\n**Snippet**: %s\n**Content**: %s\n\n---",
			i+1, src.Title, src.URL, src.DisplayLink, src.Snippet, src.Content))
		listing = append(listing, fmt.Sprintf("%d. **%s**\n   - %s\n   - %s", i+1, src.Title, src.DisplayLink, src.URL))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert research analyst. I have gathered information from multiple web sources about the following query: %q\n\n", query)
	fmt.Fprintf(&b, "Please analyze the following content from %d web sources and provide a comprehensive, well-structured summary:\n\n", len(sources))
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n\nPlease provide your analysis in the following format:\n\n")
	fmt.Fprintf(&b, "# 🔍 Web Search Results: %s\n\n", query)
	b.WriteString("## 📊 Quick Summary\n[Provide a concise 2-3 sentence summary of the key findings]\n\n")
	b.WriteString("## 🔍 Key Findings\n[List 3-5 main points discovered from the research, with bullet points]\n\n")
	b.WriteString("## 📈 Detailed Analysis\n[Provide a comprehensive analysis of the information, organizing it logically with subheadings as needed]\n\n")
	b.WriteString("## 🌐 Sources Analyzed\n")
	b.WriteString(strings.Join(listing, "\n"))
	b.WriteString("\n\n## 💡 Key Insights\n[Any interesting observations, trends, or implications based on the gathered information]\n\n")
	fmt.Fprintf(&b, "*Search performed using: %s*\n", searchMethod)
	fmt.Fprintf(&b, "*Sources analyzed: %d out of %d found*\n\n", len(sources), totalResults)
	b.WriteString("Guidelines followed:\n- Objective and fact-based analysis\n- Organized information logically\n- Used markdown formatting for readability\n- Included relevant statistics and dates when available\n- Highlighted any conflicting information found\n")
	return b.String()
}
