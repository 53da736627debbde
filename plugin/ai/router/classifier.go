package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/coworkr/plugin/ai"
	aicontext "github.com/hrygo/coworkr/plugin/ai/context"
	"github.com/hrygo/coworkr/plugin/ai/session"
)

// Classifier runs the greeting rules first and asks the LLM for everything
// else. Any failure on the LLM path becomes GENERAL_CHAT.
type Classifier struct {
	rules *RuleMatcher
	llm   ai.LLMService
}

// NewClassifier creates a classifier. A nil llm classifies everything the
// rules miss as GENERAL_CHAT.
func NewClassifier(llm ai.LLMService) *Classifier {
	return &Classifier{rules: NewRuleMatcher(), llm: llm}
}

// Classify implements IntentClassifier.
func (c *Classifier) Classify(ctx context.Context, utterance string, snap *aicontext.Snapshot, history []session.Turn) *Classification {
	start := time.Now()

	if intent, confidence, ok := c.rules.Match(utterance); ok {
		slog.Debug("intent classified by rule matcher",
			"input", truncate(utterance, 50),
			"intent", intent,
			"confidence", confidence,
			"latency_ms", time.Since(start).Milliseconds())
		return newClassification(NoParams{Name: intent}, "rule")
	}

	if c.llm == nil {
		return Fallback()
	}

	res, err := c.llm.CompleteJSON(ctx, BuildPrompt(utterance, snap, history), ClassificationSystemPrompt)
	if err != nil {
		slog.Warn("LLM classification failed, falling back to general chat",
			"input", truncate(utterance, 50),
			"latency_ms", time.Since(start).Milliseconds(),
			"error", err)
		return Fallback()
	}

	intent, ok := ParseIntent(res.Get("intent").String())
	if !ok {
		slog.Debug("LLM returned unknown intent", "intent", res.Get("intent").String())
		return Fallback()
	}

	raw := res.Get("params")
	var rawParams []byte
	if raw.IsObject() {
		rawParams = []byte(raw.Raw)
	}
	params, err := DecodeParams(intent, rawParams)
	if err != nil {
		slog.Warn("LLM params did not decode, falling back to general chat", "intent", intent, "error", err)
		return Fallback()
	}

	// Required fields are checked here regardless of what the model said
	// about needsMoreInfo.
	out := newClassification(params, "llm")
	slog.Debug("intent classified by LLM",
		"input", truncate(utterance, 50),
		"intent", out.Intent,
		"needs_more_info", out.Field,
		"latency_ms", time.Since(start).Milliseconds())
	return out
}

// ============================================================================
// Clarification round-trip
// ============================================================================

// Pending captures an incomplete classification for the session store.
func Pending(c *Classification, now time.Time) (*session.PendingClarification, error) {
	raw, err := json.Marshal(c.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pending params: %w", err)
	}
	return &session.PendingClarification{
		Intent:    string(c.Intent),
		Params:    raw,
		Field:     c.Field,
		Question:  c.NeedsMoreInfo,
		CreatedAt: now,
	}, nil
}

// Resume fills the field a pending clarification was waiting on with reply
// and re-validates. The result may still need another field.
func Resume(p *session.PendingClarification, reply string) (*Classification, error) {
	intent, ok := ParseIntent(p.Intent)
	if !ok {
		return nil, fmt.Errorf("pending clarification has unknown intent %q", p.Intent)
	}
	params, err := DecodeParams(intent, p.Params)
	if err != nil {
		return nil, err
	}
	value := cleanReply(reply)
	if value == "" || !params.Fill(p.Field, value) {
		return nil, fmt.Errorf("cannot fill %q of %s", p.Field, intent)
	}
	return newClassification(params, "resume"), nil
}

// cleanReply strips surrounding quotes and trailing punctuation from a
// clarification answer.
func cleanReply(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'“”‘’")
	s = strings.TrimRight(s, ".!?,;: ")
	return strings.TrimSpace(s)
}

// truncate truncates a string to maxLen bytes.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

var _ IntentClassifier = (*Classifier)(nil)
