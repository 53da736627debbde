package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/store"
)

// Listing is the data of a read that returns records. Titles holds the
// display name of every item, in order.
type Listing struct {
	Kind   store.Kind `json:"kind"`
	Owner  string     `json:"owner,omitempty"`
	Date   string     `json:"date,omitempty"`
	Count  int        `json:"count"`
	Items  any        `json:"items"`
	Titles []string   `json:"titles"`
}

func newListing[T any](kind store.Kind, items []*T, title func(*T) string) *Listing {
	if items == nil {
		items = []*T{}
	}
	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = title(it)
	}
	return &Listing{Kind: kind, Count: len(items), Items: items, Titles: titles}
}

// dataTypes maps the names people use to record collections.
var dataTypes = map[string]store.Kind{
	"task": store.KindTask, "todo": store.KindTask, "to-do": store.KindTask,
	"event": store.KindEvent, "meeting": store.KindEvent, "calendar": store.KindEvent,
	"schedule": store.KindEvent, "appointment": store.KindEvent,
	"project": store.KindProject,
	"contact": store.KindContact, "people": store.KindContact, "person": store.KindContact,
	"deal": store.KindDeal, "pipeline": store.KindDeal, "opportunity": store.KindDeal, "opportunities": store.KindDeal,
	"account": store.KindAccount, "company": store.KindAccount, "companies": store.KindAccount, "client": store.KindAccount,
	"timesheet": store.KindTimesheet, "hour": store.KindTimesheet, "time entry": store.KindTimesheet, "time entries": store.KindTimesheet,
}

// KindOf maps a data type name to its collection. Empty means tasks.
func KindOf(dataType string) (store.Kind, bool) {
	s := strings.ToLower(strings.TrimSpace(dataType))
	if s == "" {
		return store.KindTask, true
	}
	if k := store.Kind(s); k.Valid() {
		return k, true
	}
	if k, ok := dataTypes[s]; ok {
		return k, true
	}
	k, ok := dataTypes[strings.TrimSuffix(s, "s")]
	return k, ok
}

// query reads one collection from the snapshot. Without caller filters,
// tasks default to open ones and events to upcoming ones.
func (d *Dispatcher) query(_ context.Context, req *Request, p *router.QueryParams) *Outcome {
	kind, ok := KindOf(p.DataType)
	if !ok {
		return notFound("I can't look up %s yet.", quote(p.DataType))
	}

	snap := req.Snapshot
	filters := store.Filter{}
	openOnly := false
	for field, value := range p.Filters {
		if kind == store.KindTask && field == "status" && isOpenStatus(value) {
			openOnly = true
			continue
		}
		filters[field] = value
	}
	prg := d.exprs.compile(p.FilterExpr)
	defaults := len(filters) == 0 && prg == nil && !openOnly
	f := recordFilter{fields: filters, prg: prg, now: snap.Now}

	var listing *Listing
	switch kind {
	case store.KindTask:
		items := snap.Tasks
		if defaults || openOnly {
			items = snap.OpenTasks()
		}
		listing = newListing(kind, filterItems(items, f), taskTitle)
	case store.KindEvent:
		items := snap.UpcomingEvents()
		if !defaults {
			items = sortedEvents(snap.Events)
		}
		listing = newListing(kind, filterItems(items, f), eventTitle)
	case store.KindProject:
		listing = newListing(kind, filterItems(snap.Projects, f), func(p *store.Project) string { return p.Name })
	case store.KindContact:
		listing = newListing(kind, filterItems(snap.Contacts, f), contactTitle)
	case store.KindDeal:
		listing = newListing(kind, filterItems(snap.Deals, f), func(d *store.Deal) string { return d.Title })
	case store.KindAccount:
		listing = newListing(kind, filterItems(snap.Accounts, f), func(a *store.Account) string { return a.Name })
	case store.KindTimesheet:
		listing = newListing(kind, filterItems(snap.Timesheets, f), timesheetTitle)
	}
	return ok(listing)
}

func isOpenStatus(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open", "not done", "incomplete", "outstanding", "todo":
		return true
	}
	return false
}

func taskTitle(t *store.Task) string       { return t.Title }
func eventTitle(e *store.Event) string     { return e.Title }
func contactTitle(c *store.Contact) string { return strings.TrimSpace(c.FirstName + " " + c.LastName) }
func timesheetTitle(t *store.Timesheet) string {
	return fmt.Sprintf("%s: %.1f hours", t.Date.Format("Jan 2"), t.Hours)
}

func sortedEvents(events []*store.Event) []*store.Event {
	out := make([]*store.Event, len(events))
	copy(out, events)
	sortByStart(out)
	return out
}

// ============================================================================
// Filters
// ============================================================================

type recordFilter struct {
	fields store.Filter
	prg    cel.Program
	now    time.Time
}

func filterItems[T any](items []*T, f recordFilter) []*T {
	if len(f.fields) == 0 && f.prg == nil {
		return items
	}
	out := make([]*T, 0, len(items))
	for _, it := range items {
		doc, err := json.Marshal(it)
		if err != nil {
			continue
		}
		if len(f.fields) > 0 && !f.fields.Match(doc) {
			continue
		}
		if f.prg != nil && !evalExpr(f.prg, doc, f.now) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// exprFilter compiles CEL expressions over a record document bound to
// "record", with "now" as a timestamp.
type exprFilter struct {
	env *cel.Env
}

func newExprFilter() (*exprFilter, error) {
	env, err := cel.NewEnv(
		cel.Variable("record", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("now", cel.TimestampType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter environment: %w", err)
	}
	return &exprFilter{env: env}, nil
}

// compile returns nil for an empty or invalid expression. Invalid ones are
// logged and ignored.
func (f *exprFilter) compile(expr string) cel.Program {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}
	ast, iss := f.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		slog.Warn("ignoring invalid filter expression", "expr", expr, "error", iss.Err())
		return nil
	}
	prg, err := f.env.Program(ast)
	if err != nil {
		slog.Warn("ignoring invalid filter expression", "expr", expr, "error", err)
		return nil
	}
	return prg
}

// evalExpr treats evaluation errors (such as a missing field) as no match.
func evalExpr(prg cel.Program, doc []byte, now time.Time) bool {
	var record map[string]any
	if err := json.Unmarshal(doc, &record); err != nil {
		return false
	}
	out, _, err := prg.Eval(map[string]any{"record": record, "now": now})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
