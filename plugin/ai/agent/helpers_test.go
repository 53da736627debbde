package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/coworkr/plugin/ai/aitime"
	aicontext "github.com/hrygo/coworkr/plugin/ai/context"
	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/plugin/calendar"
	"github.com/hrygo/coworkr/store"
	storetest "github.com/hrygo/coworkr/store/test"
)

// refNow is a Wednesday afternoon.
var refNow = time.Date(2026, 3, 11, 15, 42, 0, 0, time.UTC)

// spyRecords counts writes on top of a real store.
type spyRecords struct {
	store.RecordStore
	mu      sync.Mutex
	creates []string
	failOn  map[string]bool
}

func (s *spyRecords) Create(ctx context.Context, owner string, kind store.Kind, fields map[string]any) (*store.Record, error) {
	s.mu.Lock()
	s.creates = append(s.creates, owner+"/"+string(kind))
	fail := s.failOn["create"]
	s.mu.Unlock()
	if fail {
		return nil, context.DeadlineExceeded
	}
	return s.RecordStore.Create(ctx, owner, kind, fields)
}

func (s *spyRecords) Creates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.creates...)
}

// fakeCalendar is an in-memory external calendar.
type fakeCalendar struct {
	err     error
	events  []*store.Event
	created []*store.Event
	updated map[string]map[string]any
	deleted []string
}

func (c *fakeCalendar) List(context.Context, string, aitime.TimeRange) ([]*store.Event, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.events, nil
}

func (c *fakeCalendar) Create(_ context.Context, _ string, e *store.Event) (*store.Event, error) {
	if c.err != nil {
		return nil, c.err
	}
	cp := *e
	cp.ID = "ext-new"
	cp.Source = store.SourceExternal
	c.created = append(c.created, &cp)
	return &cp, nil
}

func (c *fakeCalendar) Update(_ context.Context, _ string, id string, fields map[string]any) (*store.Event, error) {
	if c.err != nil {
		return nil, c.err
	}
	if c.updated == nil {
		c.updated = map[string]map[string]any{}
	}
	c.updated[id] = fields
	for _, e := range c.events {
		if e.ID == id {
			cp := *e
			if title, ok := fields["title"].(string); ok {
				cp.Title = title
			}
			if start, ok := fields["startTime"].(time.Time); ok {
				cp.StartTime = start
			}
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (c *fakeCalendar) Delete(_ context.Context, _ string, id string) error {
	if c.err != nil {
		return c.err
	}
	c.deleted = append(c.deleted, id)
	return nil
}

var _ calendar.Service = (*fakeCalendar)(nil)

type fixture struct {
	t          *testing.T
	ctx        context.Context
	store      *store.Store
	records    *spyRecords
	calendar   *fakeCalendar
	dispatcher *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := storetest.NewTestingStore(ctx, t)
	spy := &spyRecords{RecordStore: st, failOn: map[string]bool{}}
	cal := &fakeCalendar{err: calendar.ErrNotLinked}
	d, err := NewDispatcher(spy, cal)
	require.NoError(t, err)
	return &fixture{t: t, ctx: ctx, store: st, records: spy, calendar: cal, dispatcher: d}
}

func (f *fixture) create(owner string, kind store.Kind, fields map[string]any) *store.Record {
	f.t.Helper()
	rec, err := f.store.Create(f.ctx, owner, kind, fields)
	require.NoError(f.t, err)
	return rec
}

func (f *fixture) member(id, first, last string) {
	f.t.Helper()
	_, err := f.store.UpsertTeamMember(f.ctx, &store.TeamMember{ID: id, FirstName: first, LastName: last})
	require.NoError(f.t, err)
}

// snapshot assembles the caller's current state, pinned to refNow.
func (f *fixture) snapshot(caller string) *aicontext.Snapshot {
	f.t.Helper()
	a := aicontext.NewAssembler(aicontext.Config{Records: f.store, Team: f.store, Calendar: f.calendar, Location: time.UTC})
	snap, err := a.Assemble(f.ctx, caller)
	require.NoError(f.t, err)
	snap.Now = refNow
	return snap
}

// run dispatches params for caller against a fresh snapshot.
func (f *fixture) run(caller string, p router.Params) *Outcome {
	f.t.Helper()
	c := &router.Classification{Intent: p.Intent(), Params: p}
	c.Field, c.NeedsMoreInfo = p.Missing()
	return f.dispatcher.Dispatch(f.ctx, caller, c, f.snapshot(caller))
}

func (f *fixture) tasks(owner string) []*store.Task {
	f.t.Helper()
	records, err := f.store.List(f.ctx, owner, store.KindTask, nil)
	require.NoError(f.t, err)
	return store.DecodeAll[store.Task](records)
}

func (f *fixture) events(owner string) []*store.Event {
	f.t.Helper()
	records, err := f.store.List(f.ctx, owner, store.KindEvent, nil)
	require.NoError(f.t, err)
	return store.DecodeAll[store.Event](records)
}
