package calendar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/hrygo/coworkr/plugin/ai/aitime"
	"github.com/hrygo/coworkr/plugin/ai/cache"
	"github.com/hrygo/coworkr/store"
)

func newLinkedService(t *testing.T, handler http.HandlerFunc) (*HTTPService, *KVTokenStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := NewKVTokenStore(cache.NewMemoryCache(10, time.Hour), 0)
	require.NoError(t, tokens.Save(context.Background(), "alice", &oauth2.Token{AccessToken: "tok-alice", TokenType: "Bearer"}))
	return NewHTTPService(srv.URL, tokens), tokens
}

func TestHTTPService_List(t *testing.T) {
	day := aitime.DayRange(time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC))
	svc, _ := newLinkedService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/events", r.URL.Path)
		assert.Equal(t, "Bearer tok-alice", r.Header.Get("Authorization"))
		assert.Equal(t, "2026-03-11T00:00:00Z", r.URL.Query().Get("from"))
		_, _ = io.WriteString(w, `{"events":[{"id":"g1","title":"Standup","startTime":"2026-03-11T09:00:00Z","endTime":"2026-03-11T09:15:00Z"}]}`)
	})

	events, err := svc.List(context.Background(), "alice", day)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "g1", events[0].ID)
	assert.Equal(t, store.SourceExternal, events[0].Source)
	assert.Equal(t, []string{}, events[0].Attendees)
}

func TestHTTPService_Writes(t *testing.T) {
	var calls []string
	svc, _ := newLinkedService(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Planning", body["title"])
			_, _ = io.WriteString(w, `{"id":"g2","title":"Planning","startTime":"2026-03-12T10:00:00Z","endTime":"2026-03-12T11:00:00Z"}`)
		case http.MethodPatch:
			_, _ = io.WriteString(w, `{"id":"g2","title":"Roadmap","startTime":"2026-03-12T10:00:00Z","endTime":"2026-03-12T11:00:00Z"}`)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	created, err := svc.Create(ctx, "alice", &store.Event{Title: "Planning"})
	require.NoError(t, err)
	assert.Equal(t, "g2", created.ID)

	updated, err := svc.Update(ctx, "alice", "g2", map[string]any{"title": "Roadmap"})
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", updated.Title)

	require.NoError(t, svc.Delete(ctx, "alice", "g2"))
	assert.Equal(t, []string{"POST /events", "PATCH /events/g2", "DELETE /events/g2"}, calls)
}

func TestHTTPService_NotLinked(t *testing.T) {
	hit := false
	svc, tokens := newLinkedService(t, func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.WriteHeader(http.StatusUnauthorized)
	})
	ctx := context.Background()

	_, err := svc.List(ctx, "bob", aitime.DayRange(time.Now()))
	assert.ErrorIs(t, err, ErrNotLinked)
	assert.False(t, hit)

	_, err = svc.List(ctx, "alice", aitime.DayRange(time.Now()))
	assert.ErrorIs(t, err, ErrNotLinked)
	assert.True(t, hit)

	require.NoError(t, tokens.Unlink(ctx, "alice"))
	_, err = tokens.Token(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotLinked)
}

func TestHTTPService_ServerError(t *testing.T) {
	svc, _ := newLinkedService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := svc.Create(context.Background(), "alice", &store.Event{Title: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotLinked)
}

func TestDisabled(t *testing.T) {
	var svc Service = Disabled{}
	_, err := svc.List(context.Background(), "alice", aitime.TimeRange{})
	assert.ErrorIs(t, err, ErrNotLinked)
	assert.ErrorIs(t, svc.Delete(context.Background(), "alice", "x"), ErrNotLinked)
}
