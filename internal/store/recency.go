package store

import (
	"strings"
	"time"
)

const justNowWindow = 10 * time.Minute

// Groups buckets conversations for the sidebar timeline.
type Groups struct {
	JustNow   []Conversation `json:"justNow"`
	Today     []Conversation `json:"today"`
	Yesterday []Conversation `json:"yesterday"`
	ThisWeek  []Conversation `json:"thisWeek"`
	ThisMonth []Conversation `json:"thisMonth"`
	Older     []Conversation `json:"older"`
}

// GroupByRecency buckets by updated_at relative to now, in now's location.
// Order within each bucket follows the input.
func GroupByRecency(conversations []Conversation, now time.Time) Groups {
	groups := Groups{
		JustNow:   []Conversation{},
		Today:     []Conversation{},
		Yesterday: []Conversation{},
		ThisWeek:  []Conversation{},
		ThisMonth: []Conversation{},
		Older:     []Conversation{},
	}

	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	yesterday := today.AddDate(0, 0, -1)
	weekStart := today.AddDate(0, 0, -7)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	justNow := now.Add(-justNowWindow)

	for _, c := range conversations {
		at := c.UpdatedAt
		switch {
		case !at.Before(justNow):
			groups.JustNow = append(groups.JustNow, c)
		case !at.Before(today):
			groups.Today = append(groups.Today, c)
		case !at.Before(yesterday):
			groups.Yesterday = append(groups.Yesterday, c)
		case !at.Before(weekStart):
			groups.ThisWeek = append(groups.ThisWeek, c)
		case !at.Before(monthStart):
			groups.ThisMonth = append(groups.ThisMonth, c)
		default:
			groups.Older = append(groups.Older, c)
		}
	}
	return groups
}

type ModeInfo struct {
	Label string `json:"label"`
	Emoji string `json:"emoji"`
}

var modeInfo = map[string]ModeInfo{
	"general":      {Label: "General", Emoji: "💬"},
	"productivity": {Label: "Productivity", Emoji: "⚡"},
	"wellness":     {Label: "Wellness", Emoji: "🌸"},
	"learning":     {Label: "Learning", Emoji: "📚"},
	"creative":     {Label: "Creative", Emoji: "🎨"},
	"bff":          {Label: "BFF", Emoji: "💕"},
}

// ModeDisplay returns the label and emoji for a mode; unknown modes read as General.
func ModeDisplay(mode string) ModeInfo {
	if info, ok := modeInfo[strings.ToLower(strings.TrimSpace(mode))]; ok {
		return info
	}
	return modeInfo["general"]
}
