// Package calendar talks to a caller's linked external calendar.
//
// Every call may fail with ErrNotLinked (or any transport error); call sites
// treat that as a signal to use the local event store instead.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/hrygo/coworkr/plugin/ai/aitime"
	"github.com/hrygo/coworkr/plugin/ai/cache"
	"github.com/hrygo/coworkr/store"
)

// ErrNotLinked means the caller has no linked calendar.
var ErrNotLinked = errors.New("calendar not linked")

// Service is the external calendar contract.
type Service interface {
	List(ctx context.Context, caller string, r aitime.TimeRange) ([]*store.Event, error)
	Create(ctx context.Context, caller string, event *store.Event) (*store.Event, error)
	Update(ctx context.Context, caller, id string, fields map[string]any) (*store.Event, error)
	Delete(ctx context.Context, caller, id string) error
}

// TokenStore looks up the oauth2 token a caller linked earlier.
type TokenStore interface {
	Token(ctx context.Context, caller string) (*oauth2.Token, error)
}

const tokenPrefix = "calendar:token:"

// KVTokenStore keeps linked tokens in the assistant's key-value backend.
type KVTokenStore struct {
	cache cache.CacheService
	ttl   time.Duration
}

// NewKVTokenStore creates a token store. Tokens are kept for ttl, or a year
// when ttl is zero.
func NewKVTokenStore(c cache.CacheService, ttl time.Duration) *KVTokenStore {
	if ttl <= 0 {
		ttl = 365 * 24 * time.Hour
	}
	return &KVTokenStore{cache: c, ttl: ttl}
}

// Token returns the caller's token or ErrNotLinked.
func (s *KVTokenStore) Token(ctx context.Context, caller string) (*oauth2.Token, error) {
	data, ok := s.cache.Get(ctx, tokenPrefix+caller)
	if !ok {
		return nil, ErrNotLinked
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to decode calendar token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, ErrNotLinked
	}
	return &tok, nil
}

// Save stores a caller's token.
func (s *KVTokenStore) Save(ctx context.Context, caller string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode calendar token: %w", err)
	}
	return s.cache.Set(ctx, tokenPrefix+caller, data, s.ttl)
}

// Unlink removes a caller's token.
func (s *KVTokenStore) Unlink(ctx context.Context, caller string) error {
	return s.cache.Delete(ctx, tokenPrefix+caller)
}

// Disabled is used when no calendar endpoint is configured.
type Disabled struct{}

func (Disabled) List(context.Context, string, aitime.TimeRange) ([]*store.Event, error) {
	return nil, ErrNotLinked
}

func (Disabled) Create(context.Context, string, *store.Event) (*store.Event, error) {
	return nil, ErrNotLinked
}

func (Disabled) Update(context.Context, string, string, map[string]any) (*store.Event, error) {
	return nil, ErrNotLinked
}

func (Disabled) Delete(context.Context, string, string) error {
	return ErrNotLinked
}

var (
	_ Service    = Disabled{}
	_ TokenStore = (*KVTokenStore)(nil)
)
