package router

import (
	"context"
	"strings"
	"sync"

	aicontext "github.com/hrygo/coworkr/plugin/ai/context"
	"github.com/hrygo/coworkr/plugin/ai/session"
)

// MockClassifier is a scripted IntentClassifier for testing.
type MockClassifier struct {
	mu sync.Mutex
	// Overrides maps a lower-cased utterance to its classification.
	Overrides map[string]*Classification
	// Default is returned for unscripted utterances (GENERAL_CHAT when nil).
	Default *Classification
	calls   []string
}

// NewMockClassifier creates a new MockClassifier.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{Overrides: make(map[string]*Classification)}
}

// On scripts the classification for utterance. Missing fields are derived
// from params.
func (m *MockClassifier) On(utterance string, params Params) *MockClassifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Overrides[strings.ToLower(strings.TrimSpace(utterance))] = newClassification(params, "mock")
	return m
}

// Calls returns the utterances classified so far.
func (m *MockClassifier) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Classify implements IntentClassifier.
func (m *MockClassifier) Classify(_ context.Context, utterance string, _ *aicontext.Snapshot, _ []session.Turn) *Classification {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, utterance)
	if c, ok := m.Overrides[strings.ToLower(strings.TrimSpace(utterance))]; ok {
		cp := *c
		return &cp
	}
	if m.Default != nil {
		cp := *m.Default
		return &cp
	}
	return Fallback()
}

var _ IntentClassifier = (*MockClassifier)(nil)
