package agent

import (
	"context"
	"log/slog"

	"github.com/hrygo/coworkr/plugin/ai/aitime"
	aicontext "github.com/hrygo/coworkr/plugin/ai/context"
	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/store"
)

// Availability bands by open task count.
const (
	BandFree     = "free"
	BandModerate = "moderate"
	BandBusy     = "busy"
)

// Band buckets a member by open tasks: up to 2 is free, up to 4 moderate.
func Band(openTasks int) string {
	switch {
	case openTasks <= 2:
		return BandFree
	case openTasks <= 4:
		return BandModerate
	default:
		return BandBusy
	}
}

// MemberLoad is one roster line of a workload or availability report.
type MemberLoad struct {
	Name string `json:"name"`
	aicontext.Workload
	Band string `json:"band"`
}

// WorkloadReport is the data of a CHECK_WORKLOAD outcome. Members are
// sorted from least to most busy.
type WorkloadReport struct {
	Members   []MemberLoad `json:"members"`
	LeastBusy string       `json:"leastBusy,omitempty"`
	MostBusy  string       `json:"mostBusy,omitempty"`
}

// AvailabilityReport is the data of a CHECK_AVAILABILITY outcome. Member is
// set when one person was asked about.
type AvailabilityReport struct {
	Date         string       `json:"date"`
	Member       *MemberLoad  `json:"member,omitempty"`
	EventsOnDate *int         `json:"eventsOnDate,omitempty"`
	Team         []MemberLoad `json:"team,omitempty"`
}

// TeamTasks is the data of a GET_TEAM_TASKS outcome without a member.
type TeamTasks struct {
	Members []MemberLoad `json:"members"`
}

func (d *Dispatcher) checkWorkload(_ context.Context, req *Request, _ router.NoParams) *Outcome {
	ranked := req.Snapshot.ByWorkload()
	report := &WorkloadReport{Members: loads(ranked)}
	if len(ranked) > 0 {
		report.LeastBusy = ranked[0].FullName()
		report.MostBusy = ranked[len(ranked)-1].FullName()
	}
	return ok(report)
}

func (d *Dispatcher) checkAvailability(ctx context.Context, req *Request, p *router.CheckAvailabilityParams) *Outcome {
	snap := req.Snapshot
	day, _, _ := aitime.ResolveDate(p.Date, snap.Now)
	report := &AvailabilityReport{Date: day.Format("Monday, January 2")}

	if p.MemberName == "" {
		report.Team = loads(snap.TeamMembers)
		return ok(report)
	}

	m, out := findMember(p.MemberName, req)
	if out != nil {
		return out
	}
	load := toLoad(snap.MemberByID(m.ID))
	if load.Name == "" {
		load.Name = m.FullName()
	}
	report.Member = &load

	// A failed read leaves the event count out rather than failing the turn.
	if events, ok := d.memberEvents(ctx, m.ID); ok {
		count := 0
		for _, e := range events {
			if aitime.SameDay(e.StartTime.In(snap.Now.Location()), day) {
				count++
			}
		}
		report.EventsOnDate = &count
	}
	return ok(report)
}

func (d *Dispatcher) teamTasks(ctx context.Context, req *Request, p *router.TeamTasksParams) *Outcome {
	if p.MemberName == "" {
		return ok(&TeamTasks{Members: loads(req.Snapshot.TeamMembers)})
	}

	m, out := findMember(p.MemberName, req)
	if out != nil {
		return out
	}
	records, err := d.records.List(ctx, m.ID, store.KindTask, nil)
	if err != nil {
		slog.Warn("list member tasks failed", "caller", req.Caller, "member", m.ID, "error", err)
		records = nil
	}
	open := make([]*store.Task, 0, len(records))
	for _, t := range store.DecodeAll[store.Task](records) {
		if t.Open() {
			open = append(open, t)
		}
	}
	listing := newListing(store.KindTask, open, taskTitle)
	listing.Owner = m.FullName()
	return ok(listing)
}

func (d *Dispatcher) memberEvents(ctx context.Context, memberID string) ([]*store.Event, bool) {
	records, err := d.records.List(ctx, memberID, store.KindEvent, nil)
	if err != nil {
		return nil, false
	}
	return store.DecodeAll[store.Event](records), true
}

func loads(members []*aicontext.Member) []MemberLoad {
	out := make([]MemberLoad, len(members))
	for i, m := range members {
		out[i] = toLoad(m)
	}
	return out
}

func toLoad(m *aicontext.Member) MemberLoad {
	if m == nil {
		return MemberLoad{Band: BandFree}
	}
	return MemberLoad{Name: m.FullName(), Workload: m.Workload, Band: Band(m.Workload.OpenTasks)}
}
