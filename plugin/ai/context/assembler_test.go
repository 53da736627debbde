package context

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hrygo/coworkr/plugin/ai/aitime"
	"github.com/hrygo/coworkr/plugin/calendar"
	"github.com/hrygo/coworkr/store"
	storetest "github.com/hrygo/coworkr/store/test"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var refNow = time.Date(2026, 3, 11, 15, 42, 0, 0, time.UTC)

// failingRecords fails reads for the listed kinds.
type failingRecords struct {
	store.RecordStore
	fail map[store.Kind]bool
}

func (f *failingRecords) List(ctx context.Context, owner string, kind store.Kind, filter store.Filter) ([]*store.Record, error) {
	if f.fail[kind] {
		return nil, errors.New("connection reset")
	}
	return f.RecordStore.List(ctx, owner, kind, filter)
}

type staticCalendar struct {
	calendar.Disabled
	events []*store.Event
	err    error
}

func (c staticCalendar) List(context.Context, string, aitime.TimeRange) ([]*store.Event, error) {
	return c.events, c.err
}

func newAssembler(records store.RecordStore, team store.TeamDirectory, cal calendar.Service) *Assembler {
	a := NewAssembler(Config{Records: records, Team: team, Calendar: cal, Location: time.UTC})
	a.now = func() time.Time { return refNow }
	return a
}

func seedTasks(t *testing.T, s store.RecordStore, owner string, tasks ...map[string]any) {
	t.Helper()
	for _, fields := range tasks {
		_, err := s.Create(context.Background(), owner, store.KindTask, fields)
		require.NoError(t, err)
	}
}

func TestAssemble(t *testing.T) {
	ctx := context.Background()
	st := storetest.NewTestingStore(ctx, t)

	seedTasks(t, st, "alice",
		map[string]any{"title": "Draft the report", "status": "pending", "priority": "high", "dueDate": refNow.Add(time.Hour)},
		map[string]any{"title": "Send invoice", "status": "done", "priority": "low"},
	)
	_, err := st.Create(ctx, "alice", store.KindEvent, map[string]any{
		"title": "Design review", "startTime": refNow.Add(2 * time.Hour), "endTime": refNow.Add(3 * time.Hour),
	})
	require.NoError(t, err)
	_, err = st.Create(ctx, "alice", store.KindProject, map[string]any{"name": "Apollo"})
	require.NoError(t, err)

	external := &store.Event{Title: "Design review", StartTime: refNow.Add(2 * time.Hour), EndTime: refNow.Add(3 * time.Hour), Source: store.SourceExternal}
	a := newAssembler(st, st, staticCalendar{events: []*store.Event{external}})

	snap, err := a.Assemble(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, "alice", snap.Caller)
	assert.Equal(t, "Wednesday, March 11, 2026", snap.CurrentDate)
	assert.Equal(t, "3:42 PM", snap.CurrentTime)
	assert.Len(t, snap.Tasks, 2)
	assert.Len(t, snap.OpenTasks(), 1)
	require.Len(t, snap.Projects, 1)
	assert.Equal(t, "Apollo", snap.Projects[0].Name)

	t.Run("external events come first and are not deduplicated", func(t *testing.T) {
		require.Len(t, snap.Events, 2)
		assert.Equal(t, store.SourceExternal, snap.Events[0].Source)
		assert.Equal(t, store.SourceLocal, snap.Events[1].Source)
		assert.Len(t, snap.EventsBySource(store.SourceLocal), 1)
	})

	t.Run("each call builds a fresh snapshot", func(t *testing.T) {
		seedTasks(t, st, "alice", map[string]any{"title": "New one", "status": "pending"})
		again, err := a.Assemble(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, again.Tasks, 3)
		assert.Len(t, snap.Tasks, 2)
	})
}

func TestAssemble_DegradesFailedReads(t *testing.T) {
	ctx := context.Background()
	st := storetest.NewTestingStore(ctx, t)
	seedTasks(t, st, "alice", map[string]any{"title": "Draft the report", "status": "pending"})
	_, err := st.Create(ctx, "alice", store.KindContact, map[string]any{"firstName": "Maria"})
	require.NoError(t, err)

	records := &failingRecords{RecordStore: st, fail: map[store.Kind]bool{store.KindContact: true, store.KindEvent: true}}
	a := newAssembler(records, st, staticCalendar{err: errors.New("calendar down")})

	snap, err := a.Assemble(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, snap.Tasks, 1)
	assert.NotNil(t, snap.Contacts)
	assert.Empty(t, snap.Contacts)
	assert.NotNil(t, snap.Events)
	assert.Empty(t, snap.Events)
}

func TestAssemble_CalendarNotLinked(t *testing.T) {
	ctx := context.Background()
	st := storetest.NewTestingStore(ctx, t)
	_, err := st.Create(ctx, "alice", store.KindEvent, map[string]any{
		"title": "Standup", "startTime": refNow.Add(time.Hour), "endTime": refNow.Add(90 * time.Minute),
	})
	require.NoError(t, err)

	snap, err := newAssembler(st, st, nil).Assemble(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, snap.Events, 1)
	assert.Equal(t, "Standup", snap.Events[0].Title)
}

func TestAssemble_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	st := storetest.NewTestingStore(context.Background(), t)
	cancel()

	_, err := newAssembler(st, st, nil).Assemble(ctx, "alice")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssemble_TeamWorkload(t *testing.T) {
	ctx := context.Background()
	st := storetest.NewTestingStore(ctx, t)

	for _, m := range []*store.TeamMember{
		{ID: "sarah", TeamID: "t1", FirstName: "Sarah", LastName: "Chen"},
		{ID: "david", TeamID: "t1", FirstName: "David", LastName: "Lee"},
		{ID: "maria", TeamID: "t1", FirstName: "Maria", LastName: "Garcia"},
	} {
		_, err := st.UpsertTeamMember(ctx, m)
		require.NoError(t, err)
	}

	open := func(priority string) map[string]any {
		return map[string]any{"title": "task", "status": "pending", "priority": priority}
	}
	seedTasks(t, st, "sarah", open("high"), open("low"), open("medium"))
	seedTasks(t, st, "david", open("low"), map[string]any{"title": "closed", "status": "done", "priority": "urgent"})
	seedTasks(t, st, "maria", open("high"), open("urgent"), open("low"), open("low"), open("medium"))

	snap, err := newAssembler(st, st, nil).Assemble(ctx, "sarah")
	require.NoError(t, err)
	assert.Equal(t, "t1", snap.TeamID)
	require.Len(t, snap.TeamMembers, 3)

	scores := map[string]Workload{}
	for _, m := range snap.TeamMembers {
		scores[m.ID] = m.Workload
	}
	assert.Equal(t, Workload{OpenTasks: 3, HighPriorityTasks: 1, Score: 5}, scores["sarah"])
	assert.Equal(t, Workload{OpenTasks: 1, HighPriorityTasks: 0, Score: 1}, scores["david"])
	assert.Equal(t, Workload{OpenTasks: 5, HighPriorityTasks: 2, Score: 9}, scores["maria"])

	ordered := snap.ByWorkload()
	assert.Equal(t, "david", ordered[0].ID)
	assert.Equal(t, "sarah", ordered[1].ID)
	assert.Equal(t, "maria", ordered[2].ID)
}

func TestComputeWorkload(t *testing.T) {
	due := refNow.Add(2 * time.Hour)
	tomorrow := refNow.Add(24 * time.Hour)
	tasks := []*store.Task{
		{Status: store.TaskPending, Priority: store.PriorityUrgent, DueDate: &due},
		{Status: store.TaskInProgress, Priority: store.PriorityMedium, DueDate: &tomorrow},
		{Status: store.TaskDone, Priority: store.PriorityHigh, DueDate: &due},
	}
	assert.Equal(t, Workload{OpenTasks: 2, HighPriorityTasks: 1, TasksDueToday: 1, Score: 4}, ComputeWorkload(tasks, refNow))
}
