// Package context assembles the per-turn snapshot of a caller's state that
// every later stage of a turn (classification, dispatch, composition)
// reads from.
package context

import (
	"context"
	"sort"
	"time"

	"github.com/hrygo/coworkr/plugin/ai/aitime"
	"github.com/hrygo/coworkr/store"
)

// ContextAssembler builds a fresh Snapshot for a caller.
type ContextAssembler interface {
	Assemble(ctx context.Context, caller string) (*Snapshot, error)
}

// Workload summarizes a member's open work. Lower Score is less busy.
type Workload struct {
	OpenTasks         int `json:"openTasks"`
	HighPriorityTasks int `json:"highPriorityTasks"`
	TasksDueToday     int `json:"tasksDueToday"`
	Score             int `json:"score"`
}

// ComputeScore returns openTasks + 2 * highPriorityTasks.
func ComputeScore(openTasks, highPriorityTasks int) int {
	return openTasks + 2*highPriorityTasks
}

// Member is a roster entry with its computed workload.
type Member struct {
	store.TeamMember
	Workload Workload `json:"workload"`
}

// Snapshot is a request-scoped, read-only view of a caller's state. It is
// rebuilt for every turn and never modified after Assemble returns.
type Snapshot struct {
	Caller   string
	TeamID   string
	Now      time.Time
	Location *time.Location

	// CurrentDate and CurrentTime are for prompts only.
	CurrentDate string
	CurrentTime string

	Tasks []*store.Task
	// Events holds external calendar events first, then local ones. The two
	// sources are not deduplicated.
	Events      []*store.Event
	Projects    []*store.Project
	Contacts    []*store.Contact
	Deals       []*store.Deal
	Accounts    []*store.Account
	Timesheets  []*store.Timesheet
	TeamMembers []*Member
}

// OpenTasks returns tasks that are not done, in store order.
func (s *Snapshot) OpenTasks() []*store.Task {
	out := make([]*store.Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		if t.Open() {
			out = append(out, t)
		}
	}
	return out
}

// UpcomingEvents returns events ending after now, soonest first.
func (s *Snapshot) UpcomingEvents() []*store.Event {
	out := make([]*store.Event, 0, len(s.Events))
	for _, e := range s.Events {
		if (e.EndTime.IsZero() && e.StartTime.After(s.Now)) || e.EndTime.After(s.Now) {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out
}

// EventsOn returns events starting on the same calendar day as day, soonest first.
func (s *Snapshot) EventsOn(day time.Time) []*store.Event {
	r := aitime.DayRange(day.In(s.location()))
	out := make([]*store.Event, 0)
	for _, e := range s.Events {
		if r.Contains(e.StartTime.In(s.location())) {
			out = append(out, e)
		}
	}
	sortEvents(out)
	return out
}

// EventsBySource splits events by where they live.
func (s *Snapshot) EventsBySource(src store.EventSource) []*store.Event {
	out := make([]*store.Event, 0)
	for _, e := range s.Events {
		if e.Source == src {
			out = append(out, e)
		}
	}
	return out
}

// Roster returns the plain team members in roster order.
func (s *Snapshot) Roster() []*store.TeamMember {
	out := make([]*store.TeamMember, len(s.TeamMembers))
	for i, m := range s.TeamMembers {
		out[i] = &m.TeamMember
	}
	return out
}

// MemberByID finds a roster entry.
func (s *Snapshot) MemberByID(id string) *Member {
	for _, m := range s.TeamMembers {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// ByWorkload returns the roster sorted by ascending score. Ties keep roster order.
func (s *Snapshot) ByWorkload() []*Member {
	out := make([]*Member, len(s.TeamMembers))
	copy(out, s.TeamMembers)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Workload.Score < out[j].Workload.Score
	})
	return out
}

func (s *Snapshot) location() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func sortEvents(events []*store.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
}
