package agent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/coworkr/plugin/ai/aitime"
	aicontext "github.com/hrygo/coworkr/plugin/ai/context"
	"github.com/hrygo/coworkr/plugin/ai/match"
	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/plugin/calendar"
	"github.com/hrygo/coworkr/store"
)

const (
	defaultEventDuration   = time.Hour
	defaultMeetingDuration = 30 * time.Minute
)

// EventChange is the data of an UPDATE_EVENT outcome.
type EventChange struct {
	Before *store.Event `json:"before"`
	After  *store.Event `json:"after"`
}

// ScheduledMeeting is the data of a SCHEDULE_MEETING_WITH outcome.
type ScheduledMeeting struct {
	Event     *store.Event `json:"event"`
	Attendees []string     `json:"attendees"`
}

// createEvent tries the linked calendar first and silently falls back to
// the local event store.
func (d *Dispatcher) createEvent(ctx context.Context, req *Request, p *router.CreateEventParams) *Outcome {
	start := aitime.Resolve(p.Date, p.Time, req.Snapshot.Now)
	attendees := []string(p.Attendees)
	if attendees == nil {
		attendees = []string{}
	}
	ev := &store.Event{
		Title:       strings.TrimSpace(p.Title),
		Description: p.Description,
		StartTime:   start,
		EndTime:     start.Add(minutes(int(p.DurationMinutes), defaultEventDuration)),
		Location:    p.Location,
		Attendees:   attendees,
		OrganizerID: req.Caller,
	}

	created, err := d.calendar.Create(ctx, req.Caller, ev)
	if err == nil {
		return ok(created)
	}
	if !errors.Is(err, calendar.ErrNotLinked) {
		slog.Warn("external calendar create failed, using local store", "caller", req.Caller, "error", err)
	}

	rec, err := d.records.Create(ctx, req.Caller, store.KindEvent, eventFields(ev))
	if err != nil {
		return writeFailed("create event", req.Caller, err)
	}
	return decoded[store.Event](rec)
}

func (d *Dispatcher) updateEvent(ctx context.Context, req *Request, p *router.UpdateEventParams) *Outcome {
	snap := req.Snapshot
	ev := resolveEvent(p.EventRef, p.NewTitle, snap, true)
	if ev == nil {
		return eventNotFound(p.EventRef)
	}

	loc := snap.Now.Location()
	start := ev.StartTime.In(loc)
	duration := ev.EndTime.Sub(ev.StartTime)
	if duration <= 0 {
		duration = defaultEventDuration
	}
	if p.DurationMinutes > 0 {
		duration = time.Duration(p.DurationMinutes) * time.Minute
	}

	newStart := start
	if p.NewDate != "" {
		if day, _, ok := aitime.ResolveDate(p.NewDate, snap.Now); ok {
			newStart = time.Date(day.Year(), day.Month(), day.Day(), start.Hour(), start.Minute(), 0, 0, loc)
		}
	}
	if p.NewTime != "" {
		if c, ok := aitime.ParseClock(p.NewTime); ok {
			newStart = time.Date(newStart.Year(), newStart.Month(), newStart.Day(), c.Hour, c.Minute, 0, 0, loc)
		}
	}

	fields := map[string]any{}
	if s := strings.TrimSpace(p.NewTitle); s != "" && s != ev.Title {
		fields["title"] = s
	}
	if !newStart.Equal(start) || p.DurationMinutes > 0 {
		fields["startTime"] = newStart
		fields["endTime"] = newStart.Add(duration)
	}
	if s := strings.TrimSpace(p.Location); s != "" {
		fields["location"] = s
	}
	if len(fields) == 0 {
		return askFor("What would you like to change about " + quote(ev.Title) + "?")
	}

	updated, err := d.writeEvent(ctx, req.Caller, ev, fields)
	if err != nil {
		return writeFailed("update event", req.Caller, err)
	}
	return ok(&EventChange{Before: ev, After: updated})
}

func (d *Dispatcher) cancelEvent(ctx context.Context, req *Request, p *router.CancelEventParams) *Outcome {
	ev := resolveEvent(p.EventRef, "", req.Snapshot, false)
	if ev == nil {
		return eventNotFound(p.EventRef)
	}

	var err error
	if ev.Source == store.SourceExternal {
		err = d.calendar.Delete(ctx, req.Caller, ev.ID)
	} else {
		err = d.records.Delete(ctx, req.Caller, store.KindEvent, ev.ID)
	}
	if err != nil {
		return writeFailed("cancel event", req.Caller, err)
	}
	return ok(ev)
}

// scheduleMeeting resolves every person before writing. The meeting is
// recorded in each attendee's own scope.
func (d *Dispatcher) scheduleMeeting(ctx context.Context, req *Request, p *router.ScheduleMeetingParams) *Outcome {
	var members []*store.TeamMember
	seen := map[string]bool{}
	for _, name := range p.PersonNames {
		m, out := findMember(name, req)
		if out != nil {
			return out
		}
		if !seen[m.ID] {
			seen[m.ID] = true
			members = append(members, m)
		}
	}

	names := make([]string, len(members))
	firstNames := make([]string, len(members))
	for i, m := range members {
		names[i] = m.FullName()
		firstNames[i] = m.FirstName
	}
	title := strings.TrimSpace(p.Title)
	if title == "" {
		title = "Meeting with " + joinNames(firstNames)
	}

	start := aitime.Resolve(p.Date, p.Time, req.Snapshot.Now)
	ev := &store.Event{
		Title:       title,
		StartTime:   start,
		EndTime:     start.Add(minutes(int(p.DurationMinutes), defaultMeetingDuration)),
		Location:    p.Location,
		Attendees:   names,
		OrganizerID: req.Caller,
	}

	var first *store.Event
	for _, m := range members {
		rec, err := d.records.Create(ctx, m.ID, store.KindEvent, eventFields(ev))
		if err != nil {
			return writeFailed("schedule meeting", req.Caller, err)
		}
		if first == nil {
			if first, err = store.Decode[store.Event](rec); err != nil {
				return writeFailed("schedule meeting", req.Caller, err)
			}
		}
	}
	return ok(&ScheduledMeeting{Event: first, Attendees: names})
}

// writeEvent patches an event through the source it lives in.
func (d *Dispatcher) writeEvent(ctx context.Context, caller string, ev *store.Event, fields map[string]any) (*store.Event, error) {
	if ev.Source == store.SourceExternal {
		return d.calendar.Update(ctx, caller, ev.ID, fields)
	}
	rec, err := d.records.Update(ctx, caller, store.KindEvent, ev.ID, fields)
	if err != nil {
		return nil, err
	}
	updated, err := store.Decode[store.Event](rec)
	if err != nil {
		return nil, err
	}
	updated.Source = store.SourceLocal
	return updated, nil
}

// ============================================================================
// Event resolution
// ============================================================================

// resolveEvent finds the event a reference points at. Candidates are the
// snapshot's events, external ones first. Steps, first hit wins:
//
//  1. exact title
//  2. partial title
//  3. same day, starting within an hour of the given time
//  4. same day, same hour
//  5. (heuristic only) same day, preferring a title other than newTitle
//
// The returned event's Source says which system to write to.
func resolveEvent(ref router.EventRef, newTitle string, snap *aicontext.Snapshot, heuristic bool) *store.Event {
	events := snap.Events

	if id := strings.TrimSpace(ref.EventID); id != "" {
		for _, e := range events {
			if e.ID == id {
				return e
			}
		}
	}

	if ref.EventTitle != "" {
		if e, rule, err := match.Event(ref.EventTitle, events); err == nil {
			slog.Debug("event resolved by title", "rule", rule, "source", e.Source)
			return e
		}
	}

	if strings.TrimSpace(ref.Date) == "" && strings.TrimSpace(ref.Time) == "" {
		return nil
	}

	loc := snap.Now.Location()
	day, _, _ := aitime.ResolveDate(ref.Date, snap.Now)
	var sameDay []*store.Event
	for _, e := range events {
		if aitime.SameDay(e.StartTime.In(loc), day) {
			sameDay = append(sameDay, e)
		}
	}
	if len(sameDay) == 0 {
		return nil
	}

	if _, ok := aitime.ParseClock(ref.Time); ok {
		target := aitime.Resolve(ref.Date, ref.Time, snap.Now)
		for _, e := range sameDay {
			if absDuration(e.StartTime.Sub(target)) <= time.Hour {
				return e
			}
		}
		for _, e := range sameDay {
			if e.StartTime.In(loc).Hour() == target.Hour() {
				return e
			}
		}
	}

	if !heuristic {
		return nil
	}
	for _, e := range sameDay {
		if !strings.EqualFold(strings.TrimSpace(e.Title), strings.TrimSpace(newTitle)) {
			return e
		}
	}
	return sameDay[0]
}

func eventNotFound(ref router.EventRef) *Outcome {
	if ref.EventTitle != "" {
		return notFound("I couldn't find an event called %s.", quote(ref.EventTitle))
	}
	return notFound("I couldn't find that event on your calendar.")
}

func eventFields(ev *store.Event) map[string]any {
	fields := map[string]any{
		"title":       ev.Title,
		"startTime":   ev.StartTime,
		"endTime":     ev.EndTime,
		"attendees":   ev.Attendees,
		"source":      store.SourceLocal,
		"organizerId": ev.OrganizerID,
	}
	if ev.Description != "" {
		fields["description"] = ev.Description
	}
	if ev.Location != "" {
		fields["location"] = ev.Location
	}
	return fields
}

func minutes(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Minute
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// joinNames renders "A", "A and B" or "A, B and C".
func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}
