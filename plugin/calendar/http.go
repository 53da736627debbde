package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/hrygo/coworkr/plugin/ai/aitime"
	"github.com/hrygo/coworkr/plugin/ai/timeout"
	"github.com/hrygo/coworkr/store"
)

// HTTPService is a REST calendar client authenticated with the caller's
// linked oauth2 token.
type HTTPService struct {
	baseURL string
	tokens  TokenStore
	timeout time.Duration
	// base is the transport wrapped by the oauth2 client.
	base *http.Client
}

// NewHTTPService creates a calendar client for baseURL.
func NewHTTPService(baseURL string, tokens TokenStore) *HTTPService {
	return &HTTPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		timeout: timeout.CalendarTimeout,
		base:    http.DefaultClient,
	}
}

// remoteEvent is the calendar's wire shape.
type remoteEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Location    string    `json:"location,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
}

func (e *remoteEvent) toEvent() *store.Event {
	attendees := e.Attendees
	if attendees == nil {
		attendees = []string{}
	}
	ev := &store.Event{
		Title:       e.Title,
		Description: e.Description,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Location:    e.Location,
		Attendees:   attendees,
		Source:      store.SourceExternal,
	}
	ev.ID = e.ID
	return ev
}

func (s *HTTPService) List(ctx context.Context, caller string, r aitime.TimeRange) ([]*store.Event, error) {
	q := url.Values{}
	q.Set("from", r.Start.Format(time.RFC3339))
	q.Set("to", r.End.Format(time.RFC3339))

	var resp struct {
		Events []remoteEvent `json:"events"`
	}
	if err := s.do(ctx, caller, http.MethodGet, "/events?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	events := make([]*store.Event, 0, len(resp.Events))
	for i := range resp.Events {
		events = append(events, resp.Events[i].toEvent())
	}
	return events, nil
}

func (s *HTTPService) Create(ctx context.Context, caller string, event *store.Event) (*store.Event, error) {
	body := remoteEvent{
		Title:       event.Title,
		Description: event.Description,
		StartTime:   event.StartTime,
		EndTime:     event.EndTime,
		Location:    event.Location,
		Attendees:   event.Attendees,
	}
	var created remoteEvent
	if err := s.do(ctx, caller, http.MethodPost, "/events", body, &created); err != nil {
		return nil, err
	}
	return created.toEvent(), nil
}

func (s *HTTPService) Update(ctx context.Context, caller, id string, fields map[string]any) (*store.Event, error) {
	var updated remoteEvent
	if err := s.do(ctx, caller, http.MethodPatch, "/events/"+url.PathEscape(id), fields, &updated); err != nil {
		return nil, err
	}
	return updated.toEvent(), nil
}

func (s *HTTPService) Delete(ctx context.Context, caller, id string) error {
	return s.do(ctx, caller, http.MethodDelete, "/events/"+url.PathEscape(id), nil, nil)
}

func (s *HTTPService) do(ctx context.Context, caller, method, path string, in, out any) error {
	tok, err := s.tokens.Token(ctx, caller)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode calendar request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build calendar request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, s.base), oauth2.StaticTokenSource(tok))
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		slog.Warn("calendar rejected token", "caller", caller, "status", resp.StatusCode)
		return ErrNotLinked
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("calendar %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode calendar response: %w", err)
	}
	return nil
}

var _ Service = (*HTTPService)(nil)
