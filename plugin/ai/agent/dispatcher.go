// Package agent executes classified intents against the record store, the
// external calendar and the team roster.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	aicontext "github.com/hrygo/coworkr/plugin/ai/context"
	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/plugin/calendar"
	"github.com/hrygo/coworkr/store"
)

// Outcome is the result of one handler run.
type Outcome struct {
	Success bool `json:"success"`
	// Data is a record, a Listing or a report struct.
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`

	// NeedsMoreInfo is a clarifying question. Field names the parameter it
	// fills; it is empty when the answer cannot be merged back.
	NeedsMoreInfo string `json:"needsMoreInfo,omitempty"`
	Field         string `json:"field,omitempty"`
}

// Request is the input of a handler.
type Request struct {
	Caller   string
	Params   router.Params
	Snapshot *aicontext.Snapshot
}

// Handler executes one intent.
type Handler interface {
	Intent() router.Intent
	Handle(ctx context.Context, req *Request) *Outcome
}

type handlerFunc[P router.Params] struct {
	intent router.Intent
	fn     func(ctx context.Context, req *Request, p P) *Outcome
}

// handle adapts a function over one params variant into a Handler.
func handle[P router.Params](intent router.Intent, fn func(ctx context.Context, req *Request, p P) *Outcome) Handler {
	return &handlerFunc[P]{intent: intent, fn: fn}
}

func (h *handlerFunc[P]) Intent() router.Intent {
	return h.intent
}

func (h *handlerFunc[P]) Handle(ctx context.Context, req *Request) *Outcome {
	p, ok := req.Params.(P)
	if !ok {
		slog.Error("handler received wrong params variant",
			"intent", h.intent,
			"params", fmt.Sprintf("%T", req.Params))
		return failed()
	}
	return h.fn(ctx, req, p)
}

// Dispatcher routes classified intents to their handlers.
type Dispatcher struct {
	handlers map[router.Intent]Handler
	records  store.RecordStore
	calendar calendar.Service
	exprs    *exprFilter
	metrics  *DispatchMetrics
}

// NewDispatcher creates a dispatcher with every built-in handler registered.
func NewDispatcher(records store.RecordStore, cal calendar.Service) (*Dispatcher, error) {
	if cal == nil {
		cal = calendar.Disabled{}
	}
	exprs, err := newExprFilter()
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		handlers: make(map[router.Intent]Handler),
		records:  records,
		calendar: cal,
		exprs:    exprs,
		metrics:  NewDispatchMetrics(),
	}
	for _, h := range d.builtins() {
		if err := d.Register(h); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Register adds a handler to the registry.
func (d *Dispatcher) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	intent := h.Intent()
	if !intent.Valid() {
		return fmt.Errorf("handler for unknown intent %q", intent)
	}
	if _, exists := d.handlers[intent]; exists {
		return fmt.Errorf("handler for %s already registered", intent)
	}
	d.handlers[intent] = h
	return nil
}

// Get retrieves a handler by intent.
func (d *Dispatcher) Get(intent router.Intent) (Handler, bool) {
	h, ok := d.handlers[intent]
	return h, ok
}

// List returns the registered intents, sorted.
func (d *Dispatcher) List() []router.Intent {
	out := make([]router.Intent, 0, len(d.handlers))
	for intent := range d.handlers {
		out = append(out, intent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Metrics returns the dispatcher's counters.
func (d *Dispatcher) Metrics() *DispatchMetrics {
	return d.metrics
}

// Dispatch runs the handler for c. A classification that still needs a
// required field is answered with its question and no handler runs.
func (d *Dispatcher) Dispatch(ctx context.Context, caller string, c *router.Classification, snap *aicontext.Snapshot) *Outcome {
	if !c.Ready() {
		d.metrics.RecordClarification(string(c.Intent))
		return &Outcome{NeedsMoreInfo: c.NeedsMoreInfo, Field: c.Field}
	}

	h, ok := d.Get(c.Intent)
	if !ok {
		slog.Error("no handler registered", "intent", c.Intent)
		return failed()
	}

	start := time.Now()
	out := h.Handle(ctx, &Request{Caller: caller, Params: c.Params, Snapshot: snap})
	duration := time.Since(start)
	d.metrics.RecordDispatch(string(c.Intent), duration, out.Success)
	if out.NeedsMoreInfo != "" {
		d.metrics.RecordClarification(string(c.Intent))
	}

	slog.Debug("intent dispatched",
		"caller", caller,
		"intent", c.Intent,
		"success", out.Success,
		"needs_more_info", out.NeedsMoreInfo != "",
		"latency_ms", duration.Milliseconds())
	return out
}

func (d *Dispatcher) builtins() []Handler {
	return []Handler{
		handle(router.IntentQuery, d.query),
		handle(router.IntentCreateTask, d.createTask),
		handle(router.IntentUpdateTask, d.updateTask),
		handle(router.IntentCompleteTask, d.completeTask),
		handle(router.IntentDeleteTask, d.deleteTask),
		handle(router.IntentAssignTask, d.assignTask),
		handle(router.IntentCreateEvent, d.createEvent),
		handle(router.IntentUpdateEvent, d.updateEvent),
		handle(router.IntentCancelEvent, d.cancelEvent),
		handle(router.IntentScheduleMeetingWith, d.scheduleMeeting),
		handle(router.IntentCreateProject, d.createProject),
		handle(router.IntentCreateContact, d.createContact),
		handle(router.IntentCreateDeal, d.createDeal),
		handle(router.IntentCheckWorkload, d.checkWorkload),
		handle(router.IntentCheckAvailability, d.checkAvailability),
		handle(router.IntentGetTeamTasks, d.teamTasks),
		handle(router.IntentDailySummary, d.dailySummary),
		handle(router.IntentTaskSummary, d.taskSummary),
		handle(router.IntentMeetingSummary, d.meetingSummary),
		handle(router.IntentDealSummary, d.dealSummary),
		handle(router.IntentGreeting, chat),
		handle(router.IntentGeneralChat, chat),
	}
}

func chat(context.Context, *Request, router.NoParams) *Outcome {
	return ok(nil)
}

// ============================================================================
// Outcome helpers
// ============================================================================

// MsgWriteFailed is the reply for any failed store or calendar write.
const MsgWriteFailed = "Something went wrong, please try again."

func ok(data any) *Outcome {
	return &Outcome{Success: true, Data: data}
}

func notFound(format string, args ...any) *Outcome {
	return &Outcome{Error: fmt.Sprintf(format, args...)}
}

func askFor(question string) *Outcome {
	return &Outcome{NeedsMoreInfo: question}
}

func failed() *Outcome {
	return &Outcome{Error: MsgWriteFailed}
}

// writeFailed logs a collaborator write error and hides it from the caller.
func writeFailed(op, caller string, err error) *Outcome {
	slog.Warn("write failed", "op", op, "caller", caller, "error", err)
	return failed()
}

func quote(s string) string {
	return "'" + strings.TrimSpace(s) + "'"
}
