// Package compose turns an action outcome into the reply spoken to the
// caller.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/coworkr/plugin/ai"
	"github.com/hrygo/coworkr/plugin/ai/agent"
	aicontext "github.com/hrygo/coworkr/plugin/ai/context"
	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/plugin/ai/session"
	"github.com/hrygo/coworkr/store"
)

// FallbackReply is returned when no reply could be composed.
const FallbackReply = "Sorry, I couldn't put an answer together just now. Please try again."

// Request is everything the composer may draw facts from.
type Request struct {
	Utterance string
	Snapshot  *aicontext.Snapshot
	Intent    router.Intent
	Outcome   *agent.Outcome
	History   []session.Turn
}

// ResponseComposer produces the final reply of a turn.
type ResponseComposer interface {
	Compose(ctx context.Context, req *Request) string
}

// Composer asks the LLM for a fact-constrained answer and checks it
// against the outcome before returning it.
type Composer struct {
	llm ai.LLMService
}

// NewComposer creates a composer. A nil llm answers deterministically.
func NewComposer(llm ai.LLMService) *Composer {
	return &Composer{llm: llm}
}

// Compose never fails: errors and clarifications are answered directly,
// empty results get a fixed phrase, and LLM failures become FallbackReply.
func (c *Composer) Compose(ctx context.Context, req *Request) string {
	start := time.Now()
	out := req.Outcome
	if out == nil {
		out = &agent.Outcome{Success: true}
	}

	switch {
	case out.NeedsMoreInfo != "":
		return Sanitize(out.NeedsMoreInfo)
	case !out.Success:
		if out.Error == "" {
			return agent.MsgWriteFailed
		}
		return Sanitize(out.Error)
	}
	if reply, ok := emptyReply(out.Data); ok {
		return reply
	}

	listing, _ := out.Data.(*agent.Listing)
	if c.llm == nil {
		return deterministic(req.Intent, out, listing)
	}

	raw, err := c.llm.Complete(ctx, BuildPrompt(req), SystemPrompt)
	if err != nil {
		slog.Warn("reply composition failed",
			"intent", req.Intent,
			"latency_ms", time.Since(start).Milliseconds(),
			"error", err)
		return FallbackReply
	}

	reply := Sanitize(raw)
	if reply == "" {
		return deterministic(req.Intent, out, listing)
	}
	if listing != nil {
		if missing := missingTitles(reply, listing.Titles); len(missing) > 0 {
			slog.Debug("composed reply dropped list items, enumerating instead",
				"intent", req.Intent,
				"missing", len(missing),
				"count", listing.Count)
			return Enumerate(listing)
		}
	}

	slog.Debug("reply composed",
		"intent", req.Intent,
		"latency_ms", time.Since(start).Milliseconds())
	return reply
}

var _ ResponseComposer = (*Composer)(nil)

// ============================================================================
// Deterministic replies
// ============================================================================

// nouns maps a collection to its singular and plural spoken names.
var nouns = map[store.Kind][2]string{
	store.KindTask:      {"open task", "open tasks"},
	store.KindEvent:     {"event", "events"},
	store.KindProject:   {"project", "projects"},
	store.KindContact:   {"contact", "contacts"},
	store.KindDeal:      {"deal", "deals"},
	store.KindAccount:   {"account", "accounts"},
	store.KindTimesheet: {"timesheet entry", "timesheet entries"},
}

func noun(kind store.Kind, n int) string {
	names, ok := nouns[kind]
	if !ok {
		names = [2]string{"item", "items"}
	}
	if n == 1 {
		return names[0]
	}
	return names[1]
}

// emptyReply answers results that have nothing in them.
func emptyReply(data any) (string, bool) {
	switch d := data.(type) {
	case *agent.Listing:
		if d.Count > 0 {
			return "", false
		}
		plural := noun(d.Kind, 0)
		switch {
		case d.Owner != "":
			return fmt.Sprintf("%s doesn't have any %s.", d.Owner, plural), true
		case d.Date != "":
			return fmt.Sprintf("You don't have any %s on %s.", plural, d.Date), true
		}
		return fmt.Sprintf("You don't have any %s.", plural), true
	case *agent.DealSummary:
		if d.Count > 0 {
			return "", false
		}
		if d.Stage != "" {
			return fmt.Sprintf("You don't have any deals in the %s stage.", d.Stage), true
		}
		return "You don't have any deals.", true
	case *agent.WorkloadReport:
		if len(d.Members) == 0 {
			return "You don't have any team members yet.", true
		}
	}
	return "", false
}

// Enumerate lists every item of a listing.
func Enumerate(l *agent.Listing) string {
	if reply, ok := emptyReply(l); ok {
		return reply
	}
	subject := "You have"
	switch {
	case l.Owner != "":
		subject = l.Owner + " has"
	case l.Date != "":
		subject = "On " + l.Date + " you have"
	}
	return fmt.Sprintf("%s %d %s: %s.", subject, l.Count, noun(l.Kind, l.Count), joinList(l.Titles))
}

func deterministic(intent router.Intent, out *agent.Outcome, listing *agent.Listing) string {
	if listing != nil {
		return Enumerate(listing)
	}
	switch d := out.Data.(type) {
	case *store.Task:
		if intent == router.IntentCompleteTask {
			return fmt.Sprintf("Marked '%s' as done.", d.Title)
		}
		if intent == router.IntentDeleteTask {
			return fmt.Sprintf("Deleted '%s'.", d.Title)
		}
		return fmt.Sprintf("Got it, '%s' is saved.", d.Title)
	case *agent.AssignedTask:
		return fmt.Sprintf("Assigned '%s' to %s.", d.Task.Title, d.Assignee)
	case *store.Event:
		if intent == router.IntentCancelEvent {
			return fmt.Sprintf("Cancelled '%s'.", d.Title)
		}
		return fmt.Sprintf("'%s' is on your calendar for %s.", d.Title, d.StartTime.Format("Monday, January 2 at 3:04 PM"))
	case *agent.EventChange:
		return fmt.Sprintf("'%s' is now on %s.", d.After.Title, d.After.StartTime.Format("Monday, January 2 at 3:04 PM"))
	case *agent.ScheduledMeeting:
		return fmt.Sprintf("Scheduled '%s' with %s.", d.Event.Title, joinList(d.Attendees))
	case *agent.WorkloadReport:
		return fmt.Sprintf("%s is the least busy and %s is the most busy.", d.LeastBusy, d.MostBusy)
	case *agent.DealSummary:
		return fmt.Sprintf("You have %d %s worth %.0f in total.", d.Count, noun(store.KindDeal, d.Count), d.TotalValue)
	}
	switch intent {
	case router.IntentGreeting:
		return "Hi! How can I help?"
	case router.IntentGeneralChat:
		return "I can help with your tasks, calendar and deals. What would you like to do?"
	}
	return "Done."
}

func missingTitles(reply string, titles []string) []string {
	lower := strings.ToLower(reply)
	var missing []string
	for _, t := range titles {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		if !strings.Contains(lower, strings.ToLower(Sanitize(t))) {
			missing = append(missing, t)
		}
	}
	return missing
}

// joinList renders "A", "A and B" or "A, B, and C".
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}
