package agent

import (
	"context"
	"sort"
	"strings"

	"github.com/hrygo/coworkr/plugin/ai/aitime"
	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/store"
)

// DailySummary is the data of a DAILY_SUMMARY outcome.
type DailySummary struct {
	Date        string         `json:"date"`
	Events      []*store.Event `json:"events"`
	DueToday    []*store.Task  `json:"dueToday"`
	Overdue     []*store.Task  `json:"overdue"`
	HoursLogged float64        `json:"hoursLogged,omitempty"`
}

// TaskSummary is the data of a TASK_SUMMARY outcome. ByPriority counts open
// tasks only.
type TaskSummary struct {
	Total      int            `json:"total"`
	Open       int            `json:"open"`
	ByStatus   map[string]int `json:"byStatus"`
	ByPriority map[string]int `json:"byPriority"`
	DueToday   int            `json:"dueToday"`
	Overdue    int            `json:"overdue"`
}

// StageTotal is one pipeline stage of a DealSummary.
type StageTotal struct {
	Stage string  `json:"stage"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

// DealSummary is the data of a DEAL_SUMMARY outcome.
type DealSummary struct {
	Stage      string       `json:"stage,omitempty"`
	Count      int          `json:"count"`
	TotalValue float64      `json:"totalValue"`
	ByStage    []StageTotal `json:"byStage"`
	Titles     []string     `json:"titles"`
}

func (d *Dispatcher) dailySummary(_ context.Context, req *Request, p *router.DailySummaryParams) *Outcome {
	snap := req.Snapshot
	loc := snap.Now.Location()
	day, _, _ := aitime.ResolveDate(p.Date, snap.Now)
	today := aitime.StartOfDay(snap.Now)
	r := aitime.DayRange(day)

	s := &DailySummary{
		Date:     day.Format("Monday, January 2"),
		Events:   snap.EventsOn(day),
		DueToday: []*store.Task{},
		Overdue:  []*store.Task{},
	}
	for _, t := range snap.OpenTasks() {
		if t.DueDate == nil {
			continue
		}
		due := t.DueDate.In(loc)
		switch {
		case r.Contains(due):
			s.DueToday = append(s.DueToday, t)
		case day.Equal(today) && due.Before(today):
			s.Overdue = append(s.Overdue, t)
		}
	}
	for _, ts := range snap.Timesheets {
		if aitime.SameDay(ts.Date.In(loc), day) {
			s.HoursLogged += ts.Hours
		}
	}
	return ok(s)
}

func (d *Dispatcher) taskSummary(_ context.Context, req *Request, _ router.NoParams) *Outcome {
	snap := req.Snapshot
	loc := snap.Now.Location()
	today := aitime.DayRange(snap.Now)

	s := &TaskSummary{
		Total:      len(snap.Tasks),
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
	}
	for _, t := range snap.Tasks {
		status := string(t.Status)
		if status == "" {
			status = string(store.TaskPending)
		}
		s.ByStatus[status]++
		if !t.Open() {
			continue
		}
		s.Open++
		priority := string(t.Priority)
		if priority == "" {
			priority = string(store.PriorityMedium)
		}
		s.ByPriority[priority]++
		if t.DueDate != nil {
			due := t.DueDate.In(loc)
			switch {
			case today.Contains(due):
				s.DueToday++
			case due.Before(today.Start):
				s.Overdue++
			}
		}
	}
	return ok(s)
}

func (d *Dispatcher) meetingSummary(_ context.Context, req *Request, p *router.MeetingSummaryParams) *Outcome {
	day, _, _ := aitime.ResolveDate(p.Date, req.Snapshot.Now)
	listing := newListing(store.KindEvent, req.Snapshot.EventsOn(day), eventTitle)
	listing.Date = day.Format("Monday, January 2")
	return ok(listing)
}

func (d *Dispatcher) dealSummary(_ context.Context, req *Request, p *router.DealSummaryParams) *Outcome {
	stage := ""
	if strings.TrimSpace(p.Stage) != "" {
		stage = normalizeStage(p.Stage)
	}

	s := &DealSummary{Stage: stage, ByStage: []StageTotal{}, Titles: []string{}}
	byStage := map[string]*StageTotal{}
	for _, deal := range req.Snapshot.Deals {
		ds := normalizeStage(deal.Stage)
		if stage != "" && ds != stage {
			continue
		}
		s.Count++
		s.TotalValue += deal.Value
		s.Titles = append(s.Titles, deal.Title)
		if byStage[ds] == nil {
			byStage[ds] = &StageTotal{Stage: ds}
		}
		byStage[ds].Count++
		byStage[ds].Value += deal.Value
	}
	for _, name := range DealStages {
		if t, ok := byStage[name]; ok {
			s.ByStage = append(s.ByStage, *t)
		}
	}
	return ok(s)
}

func sortByStart(events []*store.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
}
