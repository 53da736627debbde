// Package session keeps per-caller conversational state: the recent turn
// window and the single outstanding clarification.
package session

import (
	"context"
	"encoding/json"
	"time"
)

// Role is the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one utterance in a conversation.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// PendingClarification is an intent left incomplete because a required
// parameter was missing.
type PendingClarification struct {
	Intent    string          `json:"intent"`
	Params    json.RawMessage `json:"params"`
	Field     string          `json:"field"`
	Question  string          `json:"question"`
	CreatedAt time.Time       `json:"createdAt"`
}

// HistoryStore holds the bounded, append-only turn window per caller.
type HistoryStore interface {
	// Append adds turns in order, discarding the oldest beyond the window.
	Append(ctx context.Context, caller string, turns ...Turn) error

	// Recent returns up to n of the newest turns, oldest first. n <= 0 returns the whole window.
	Recent(ctx context.Context, caller string, n int) ([]Turn, error)
}

// PendingStore holds at most one clarification per caller.
type PendingStore interface {
	Get(ctx context.Context, caller string) (*PendingClarification, error)

	// Set replaces any existing clarification for the caller.
	Set(ctx context.Context, caller string, p *PendingClarification) error

	Clear(ctx context.Context, caller string) error
}
