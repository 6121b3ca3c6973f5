package service

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/maxviazov/knowledge-hub/internal/model"
)

const (
	maxTitleLen     = 200
	maxSummaryLen   = 500
	maxTags         = 20
	wordsPerMinute  = 200
	defaultColor    = "#007bff"
	maxCategoryName = 100
	minPasswordLen  = 8
	dateOnlyLayout  = "2006-01-02"
	maxUsernameLen  = 80
	minUsernameLen  = 3
)

var colorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func isValidStatus(s string) bool {
	switch s {
	case model.StatusDraft, model.StatusPublished, model.StatusArchived:
		return true
	default:
		return false
	}
}

func isValidPriority(s string) bool {
	switch s {
	case model.PriorityLow, model.PriorityNormal, model.PriorityHigh, model.PriorityCritical:
		return true
	default:
		return false
	}
}

// readingStats returns the word count and minutes to read at 200 wpm, never below one minute.
func readingStats(content string) (words, minutes int) {
	words = len(strings.Fields(content))
	minutes = int(math.Round(float64(words) / wordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return words, minutes
}

// cleanList trims, lowercases and de-duplicates values, keeping first-seen order.
func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// parseDate accepts RFC3339 or a bare date. A bare upper bound covers the whole day.
func parseDate(raw string, upper bool) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}
	t, err := time.Parse(dateOnlyLayout, raw)
	if err != nil {
		return nil, false
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}
