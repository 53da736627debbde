package router

import (
	"regexp"
	"strings"
)

// RuleMatcher answers plain greetings without a model call. Anything that
// looks like a request is left to the LLM.
type RuleMatcher struct {
	greetingKeywords map[string]int
	actionKeywords   []string
	maxTokens        int
	nonWord          *regexp.Regexp
}

// NewRuleMatcher creates a new rule matcher with predefined keyword weights.
func NewRuleMatcher() *RuleMatcher {
	return &RuleMatcher{
		// Core greetings weigh 2, filler words 1.
		greetingKeywords: map[string]int{
			"hi": 2, "hello": 2, "hey": 2, "hiya": 2, "howdy": 2, "greetings": 2,
			"good morning": 3, "good afternoon": 3, "good evening": 3,
			"there": 1, "assistant": 1, "coworkr": 1, "how are you": 1, "whats up": 1,
		},
		actionKeywords: []string{
			"task", "todo", "meeting", "event", "calendar", "schedule", "remind",
			"create", "add", "assign", "cancel", "move", "update", "delete",
			"deal", "contact", "project", "summary", "busy", "free", "workload",
			"show", "list",
		},
		maxTokens: 6,
		nonWord:   regexp.MustCompile(`[^a-z0-9 ]+`),
	}
}

// Match returns GREETING when input is a short greeting.
// Returns: intent, confidence, matched
func (m *RuleMatcher) Match(input string) (Intent, float32, bool) {
	lower := m.normalize(input)
	if lower == "" {
		return IntentGeneralChat, 0, false
	}
	words := strings.Fields(lower)
	if len(words) > m.maxTokens {
		return IntentGeneralChat, 0, false
	}
	for _, w := range words {
		for _, kw := range m.actionKeywords {
			if w == kw || strings.TrimSuffix(w, "s") == kw {
				return IntentGeneralChat, 0, false
			}
		}
	}

	score := m.calculateScore(" "+lower+" ", m.greetingKeywords)
	if score < 2 {
		return IntentGeneralChat, 0, false
	}
	return IntentGreeting, m.normalizeConfidence(score, 3), true
}

func (m *RuleMatcher) normalize(input string) string {
	lower := strings.ToLower(strings.ReplaceAll(input, "'", ""))
	lower = m.nonWord.ReplaceAllString(lower, " ")
	return strings.Join(strings.Fields(lower), " ")
}

// calculateScore sums the weights of keywords found as whole words.
func (m *RuleMatcher) calculateScore(input string, keywords map[string]int) int {
	score := 0
	for keyword, weight := range keywords {
		if strings.Contains(input, " "+keyword+" ") {
			score += weight
		}
	}
	return score
}

// normalizeConfidence normalizes score to 0-1 confidence range.
func (m *RuleMatcher) normalizeConfidence(score, maxScore int) float32 {
	if score >= maxScore {
		return 0.95
	}
	return float32(score) / float32(maxScore)
}
