package context

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hrygo/coworkr/plugin/ai/aitime"
	"github.com/hrygo/coworkr/plugin/calendar"
	"github.com/hrygo/coworkr/store"
)

// Config configures the assembler.
type Config struct {
	Records  store.RecordStore
	Team     store.TeamDirectory
	Calendar calendar.Service
	Location *time.Location

	// CalendarLookback and CalendarLookahead bound the external calendar read.
	CalendarLookback  time.Duration // default: 1 day
	CalendarLookahead time.Duration // default: 30 days

	// Concurrency caps the number of in-flight reads (default: 8).
	Concurrency int
}

// Assembler reads every category concurrently. A failed read degrades to an
// empty list for that category and never fails the turn.
type Assembler struct {
	records   store.RecordStore
	team      store.TeamDirectory
	calendar  calendar.Service
	location  *time.Location
	lookback  time.Duration
	lookahead time.Duration
	limit     int
	now       func() time.Time
}

// NewAssembler creates a new Assembler.
func NewAssembler(cfg Config) *Assembler {
	if cfg.Calendar == nil {
		cfg.Calendar = calendar.Disabled{}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.CalendarLookback <= 0 {
		cfg.CalendarLookback = 24 * time.Hour
	}
	if cfg.CalendarLookahead <= 0 {
		cfg.CalendarLookahead = 30 * 24 * time.Hour
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Assembler{
		records:   cfg.Records,
		team:      cfg.Team,
		calendar:  cfg.Calendar,
		location:  cfg.Location,
		lookback:  cfg.CalendarLookback,
		lookahead: cfg.CalendarLookahead,
		limit:     cfg.Concurrency,
		now:       time.Now,
	}
}

// Assemble builds a fresh snapshot. It only returns an error when ctx is
// cancelled.
func (a *Assembler) Assemble(ctx context.Context, caller string) (*Snapshot, error) {
	start := time.Now()
	now := a.now().In(a.location)
	snap := &Snapshot{
		Caller:      caller,
		Now:         now,
		Location:    a.location,
		CurrentDate: now.Format("Monday, January 2, 2006"),
		CurrentTime: now.Format("3:04 PM"),
	}

	var (
		external []*store.Event
		local    []*store.Event
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)

	g.Go(func() error {
		snap.Tasks = store.DecodeAll[store.Task](a.list(gctx, caller, store.KindTask))
		return nil
	})
	g.Go(func() error {
		local = store.DecodeAll[store.Event](a.list(gctx, caller, store.KindEvent))
		for _, e := range local {
			if e.Source == "" {
				e.Source = store.SourceLocal
			}
		}
		return nil
	})
	g.Go(func() error {
		window := aitime.TimeRange{Start: aitime.StartOfDay(now).Add(-a.lookback), End: now.Add(a.lookahead)}
		events, err := a.calendar.List(gctx, caller, window)
		if err != nil {
			// Not linked is the common case and not worth a warning.
			if err != calendar.ErrNotLinked {
				slog.Warn("external calendar read failed", "caller", caller, "error", err)
			}
			return nil
		}
		external = events
		return nil
	})
	g.Go(func() error {
		snap.Projects = store.DecodeAll[store.Project](a.list(gctx, caller, store.KindProject))
		return nil
	})
	g.Go(func() error {
		snap.Contacts = store.DecodeAll[store.Contact](a.list(gctx, caller, store.KindContact))
		return nil
	})
	g.Go(func() error {
		snap.Deals = store.DecodeAll[store.Deal](a.list(gctx, caller, store.KindDeal))
		return nil
	})
	g.Go(func() error {
		snap.Accounts = store.DecodeAll[store.Account](a.list(gctx, caller, store.KindAccount))
		return nil
	})
	g.Go(func() error {
		snap.Timesheets = store.DecodeAll[store.Timesheet](a.list(gctx, caller, store.KindTimesheet))
		return nil
	})
	g.Go(func() error {
		snap.TeamID, snap.TeamMembers = a.roster(gctx, caller, now)
		return nil
	})

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap.Events = make([]*store.Event, 0, len(external)+len(local))
	snap.Events = append(snap.Events, external...)
	snap.Events = append(snap.Events, local...)

	slog.Debug("context assembled",
		"caller", caller,
		"tasks", len(snap.Tasks),
		"events", len(snap.Events),
		"members", len(snap.TeamMembers),
		"latency_ms", time.Since(start).Milliseconds())
	return snap, nil
}

// roster loads the caller's team and each member's workload.
func (a *Assembler) roster(ctx context.Context, caller string, now time.Time) (string, []*Member) {
	if a.team == nil {
		return "", []*Member{}
	}
	teamID, err := a.team.TeamOf(ctx, caller)
	if err != nil {
		slog.Warn("team lookup failed", "caller", caller, "error", err)
		return "", []*Member{}
	}
	roster, err := a.team.ListTeamMembers(ctx, teamID)
	if err != nil {
		slog.Warn("team roster read failed", "caller", caller, "team", teamID, "error", err)
		return teamID, []*Member{}
	}

	members := make([]*Member, len(roster))
	var wg sync.WaitGroup
	sem := make(chan struct{}, a.limit)
	for i, m := range roster {
		members[i] = &Member{TeamMember: *m}
		wg.Add(1)
		go func(member *Member) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			tasks := store.DecodeAll[store.Task](a.list(ctx, member.ID, store.KindTask))
			member.Workload = ComputeWorkload(tasks, now)
		}(members[i])
	}
	wg.Wait()
	return teamID, members
}

// ComputeWorkload counts open, high-priority and due-today tasks.
func ComputeWorkload(tasks []*store.Task, now time.Time) Workload {
	var w Workload
	today := aitime.DayRange(now)
	for _, t := range tasks {
		if !t.Open() {
			continue
		}
		w.OpenTasks++
		if t.Priority.IsHigh() {
			w.HighPriorityTasks++
		}
		if t.DueDate != nil && today.Contains(t.DueDate.In(now.Location())) {
			w.TasksDueToday++
		}
	}
	w.Score = ComputeScore(w.OpenTasks, w.HighPriorityTasks)
	return w
}

// list reads one category, degrading to an empty list on failure.
func (a *Assembler) list(ctx context.Context, owner string, kind store.Kind) []*store.Record {
	records, err := a.records.List(ctx, owner, kind, nil)
	if err != nil {
		slog.Warn("record read failed, using empty list", "owner", owner, "kind", kind, "error", err)
		return nil
	}
	return records
}
