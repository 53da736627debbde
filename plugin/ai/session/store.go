package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hrygo/coworkr/plugin/ai/cache"
)

const (
	// MaxTurnsPerCaller is the size of the sliding history window.
	MaxTurnsPerCaller = 20

	// DefaultTTL evicts state untouched for a day.
	DefaultTTL = 24 * time.Hour

	historyPrefix = "history:"
	pendingPrefix = "pending:"
)

// Store implements HistoryStore and PendingStore on a cache backend.
// Read-modify-write of a caller's history is not atomic across processes;
// callers serialize turns per caller before touching it.
type Store struct {
	cache cache.CacheService
	ttl   time.Duration
	now   func() time.Time

	entropyMu sync.Mutex
	entropy   io.Reader
}

// NewStore creates a session store. A non-positive ttl uses DefaultTTL.
func NewStore(c cache.CacheService, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		cache:   c,
		ttl:     ttl,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewTurn stamps a turn with a sortable id and the current time.
func (s *Store) NewTurn(role Role, content string) Turn {
	now := s.now()
	s.entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(now), s.entropy)
	s.entropyMu.Unlock()
	return Turn{ID: id.String(), Role: role, Content: content, Timestamp: now}
}

func (s *Store) Append(ctx context.Context, caller string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	history, err := s.load(ctx, caller)
	if err != nil {
		return err
	}

	history = append(history, turns...)
	if len(history) > MaxTurnsPerCaller {
		history = history[len(history)-MaxTurnsPerCaller:]
	}

	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	if err := s.cache.Set(ctx, historyPrefix+caller, data, s.ttl); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, caller string, n int) ([]Turn, error) {
	history, err := s.load(ctx, caller)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(history) > n {
		history = history[len(history)-n:]
	}
	return history, nil
}

func (s *Store) load(ctx context.Context, caller string) ([]Turn, error) {
	data, ok := s.cache.Get(ctx, historyPrefix+caller)
	if !ok {
		return nil, nil
	}
	var history []Turn
	if err := json.Unmarshal(data, &history); err != nil {
		// A corrupt window is only a usability loss; start over.
		slog.Warn("failed to unmarshal history", "caller", caller, "error", err)
		return nil, nil
	}
	return history, nil
}

func (s *Store) Get(ctx context.Context, caller string) (*PendingClarification, error) {
	data, ok := s.cache.Get(ctx, pendingPrefix+caller)
	if !ok {
		return nil, nil
	}
	var p PendingClarification
	if err := json.Unmarshal(data, &p); err != nil {
		slog.Warn("failed to unmarshal pending clarification", "caller", caller, "error", err)
		return nil, nil
	}
	return &p, nil
}

func (s *Store) Set(ctx context.Context, caller string, p *PendingClarification) error {
	if err := s.Clear(ctx, caller); err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal pending clarification: %w", err)
	}
	if err := s.cache.Set(ctx, pendingPrefix+caller, data, s.ttl); err != nil {
		return fmt.Errorf("failed to save pending clarification: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, caller string) error {
	if err := s.cache.Delete(ctx, pendingPrefix+caller); err != nil {
		return fmt.Errorf("failed to clear pending clarification: %w", err)
	}
	return nil
}

var (
	_ HistoryStore = (*Store)(nil)
	_ PendingStore = (*Store)(nil)
)
