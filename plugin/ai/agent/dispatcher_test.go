package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/store"
)

type stubHandler struct {
	intent router.Intent
	calls  int
}

func (h *stubHandler) Intent() router.Intent { return h.intent }

func (h *stubHandler) Handle(context.Context, *Request) *Outcome {
	h.calls++
	return ok("stub")
}

func TestDispatcherRegistry(t *testing.T) {
	f := newFixture(t)

	want := router.Intents()
	got := f.dispatcher.List()
	assert.ElementsMatch(t, want, got)
	assert.Len(t, got, 22)

	assert.Error(t, f.dispatcher.Register(nil))
	assert.Error(t, f.dispatcher.Register(&stubHandler{intent: router.IntentQuery}))
	assert.Error(t, f.dispatcher.Register(&stubHandler{intent: "LAUNCH_ROCKET"}))

	h, ok := f.dispatcher.Get(router.IntentCreateTask)
	require.True(t, ok)
	assert.Equal(t, router.IntentCreateTask, h.Intent())
}

func TestDispatchNotReady(t *testing.T) {
	f := newFixture(t)

	c := &router.Classification{
		Intent:        router.IntentAssignTask,
		Params:        &router.AssignTaskParams{Title: "Prepare the demo"},
		Field:         "assigneeName",
		NeedsMoreInfo: "Who should I assign it to?",
	}
	out := f.dispatcher.Dispatch(f.ctx, "alice", c, f.snapshot("alice"))
	assert.False(t, out.Success)
	assert.Equal(t, "Who should I assign it to?", out.NeedsMoreInfo)
	assert.Equal(t, "assigneeName", out.Field)
	assert.Empty(t, f.records.Creates())

	m := f.dispatcher.Metrics().Snapshot()
	assert.Zero(t, m.Total)
	assert.Equal(t, int64(1), m.Clarifications)
}

func TestDispatchWrongParams(t *testing.T) {
	f := newFixture(t)

	c := &router.Classification{Intent: router.IntentCreateTask, Params: &router.DeleteTaskParams{TaskTitle: "x"}}
	out := f.dispatcher.Dispatch(f.ctx, "alice", c, f.snapshot("alice"))
	assert.False(t, out.Success)
	assert.Equal(t, MsgWriteFailed, out.Error)
}

func TestDispatchMetrics(t *testing.T) {
	f := newFixture(t)

	f.run("alice", &router.CreateTaskParams{Title: "One"})
	f.run("alice", &router.CreateTaskParams{Title: "Two"})
	f.run("alice", &router.CompleteTaskParams{TaskTitle: "nonexistent thing"})
	f.run("alice", router.NoParams{Name: router.IntentGreeting})

	m := f.dispatcher.Metrics().Snapshot()
	assert.Equal(t, int64(4), m.Total)
	assert.Equal(t, int64(1), m.Failures)
	assert.InDelta(t, 75.0, m.SuccessRate, 0.001)
	assert.Equal(t, int64(2), m.Intents[string(router.IntentCreateTask)].Calls)
	assert.Equal(t, int64(1), m.Intents[string(router.IntentCompleteTask)].Failures)
}

func TestDailySummary(t *testing.T) {
	f := newFixture(t)
	today := at(11, 17, 0)
	yesterday := at(10, 17, 0)
	f.create("alice", store.KindTask, map[string]any{"title": "Due today", "status": "pending", "dueDate": today})
	f.create("alice", store.KindTask, map[string]any{"title": "Late", "status": "pending", "dueDate": yesterday})
	f.create("alice", store.KindTask, map[string]any{"title": "Late but done", "status": "done", "dueDate": yesterday})
	f.create("alice", store.KindEvent, map[string]any{"title": "Afternoon sync", "startTime": at(11, 16, 0), "endTime": at(11, 16, 30)})
	f.create("alice", store.KindEvent, map[string]any{"title": "Morning sync", "startTime": at(11, 9, 0), "endTime": at(11, 9, 30)})
	f.create("alice", store.KindTimesheet, map[string]any{"date": at(11, 0, 0), "hours": 3.5})
	f.create("alice", store.KindTimesheet, map[string]any{"date": at(11, 0, 0), "hours": 2})

	out := f.run("alice", &router.DailySummaryParams{})
	require.True(t, out.Success, out.Error)

	s := out.Data.(*DailySummary)
	assert.Equal(t, "Wednesday, March 11", s.Date)
	require.Len(t, s.Events, 2)
	assert.Equal(t, "Morning sync", s.Events[0].Title)
	require.Len(t, s.DueToday, 1)
	assert.Equal(t, "Due today", s.DueToday[0].Title)
	require.Len(t, s.Overdue, 1)
	assert.Equal(t, "Late", s.Overdue[0].Title)
	assert.InDelta(t, 5.5, s.HoursLogged, 0.001)
}

func TestTaskSummary(t *testing.T) {
	f := newFixture(t)
	seedTasks(f)
	f.create("alice", store.KindTask, map[string]any{"title": "Late", "status": "pending", "priority": "urgent", "dueDate": at(9, 12, 0)})

	out := f.run("alice", router.NoParams{Name: router.IntentTaskSummary})
	require.True(t, out.Success)

	s := out.Data.(*TaskSummary)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Open)
	assert.Equal(t, map[string]int{"pending": 2, "in_progress": 1, "done": 1}, s.ByStatus)
	assert.Equal(t, map[string]int{"high": 1, "low": 1, "urgent": 1}, s.ByPriority)
	assert.Equal(t, 1, s.Overdue)
	assert.Zero(t, s.DueToday)
}

func TestMeetingSummary(t *testing.T) {
	f := newFixture(t)
	f.create("alice", store.KindEvent, map[string]any{"title": "Design review", "startTime": at(12, 10, 0), "endTime": at(12, 11, 0)})
	f.create("alice", store.KindEvent, map[string]any{"title": "Today thing", "startTime": at(11, 10, 0), "endTime": at(11, 11, 0)})

	out := f.run("alice", &router.MeetingSummaryParams{Date: "tomorrow"})
	require.True(t, out.Success)
	listing := out.Data.(*Listing)
	assert.Equal(t, "Thursday, March 12", listing.Date)
	assert.Equal(t, []string{"Design review"}, listing.Titles)
}

func TestDealSummary(t *testing.T) {
	f := newFixture(t)
	f.create("alice", store.KindDeal, map[string]any{"title": "Acme renewal", "value": 12000, "stage": "proposal"})
	f.create("alice", store.KindDeal, map[string]any{"title": "Globex pilot", "value": 5000, "stage": "lead"})
	f.create("alice", store.KindDeal, map[string]any{"title": "Initech expansion", "value": 30000, "stage": "Closed Won"})

	out := f.run("alice", &router.DealSummaryParams{})
	require.True(t, out.Success)
	s := out.Data.(*DealSummary)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 47000, s.TotalValue, 0.001)
	assert.Equal(t, []StageTotal{
		{Stage: "lead", Count: 1, Value: 5000},
		{Stage: "proposal", Count: 1, Value: 12000},
		{Stage: "won", Count: 1, Value: 30000},
	}, s.ByStage)

	out = f.run("alice", &router.DealSummaryParams{Stage: "proposal"})
	require.True(t, out.Success)
	s = out.Data.(*DealSummary)
	assert.Equal(t, []string{"Acme renewal"}, s.Titles)

	empty := newFixture(t)
	out = empty.run("alice", &router.DealSummaryParams{})
	require.True(t, out.Success)
	assert.Zero(t, out.Data.(*DealSummary).Count)
}

func TestCreateRecords(t *testing.T) {
	f := newFixture(t)

	out := f.run("alice", &router.CreateContactParams{FirstName: "Priya", LastName: "Nair", Email: "priya@example.com"})
	require.True(t, out.Success, out.Error)
	contact := out.Data.(*store.Contact)
	assert.Equal(t, "priya@example.com", contact.Email)

	f.create("alice", store.KindAccount, map[string]any{"name": "Acme Corp"})

	out = f.run("alice", &router.CreateDealParams{Title: "Acme renewal", Value: 12500, ContactName: "priya", AccountName: "acme", Stage: "negotiating", CloseDate: "next month"})
	require.True(t, out.Success, out.Error)
	deal := out.Data.(*store.Deal)
	assert.Equal(t, contact.ID, deal.ContactID)
	assert.NotEmpty(t, deal.AccountID)
	assert.Equal(t, "negotiation", deal.Stage)
	assert.InDelta(t, 12500, deal.Value, 0.001)
	require.NotNil(t, deal.CloseDate)
	assert.Equal(t, time.April, deal.CloseDate.Month())

	out = f.run("alice", &router.CreateProjectParams{Name: "Website relaunch"})
	require.True(t, out.Success, out.Error)
	project := out.Data.(*store.Project)
	assert.Equal(t, "active", project.Status)
}
