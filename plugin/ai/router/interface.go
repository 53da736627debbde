// Package router turns an utterance into a closed-set intent with typed
// parameters. Classification never fails: anything it cannot understand
// becomes GENERAL_CHAT.
package router

import (
	"context"
	"strings"

	aicontext "github.com/hrygo/coworkr/plugin/ai/context"
	"github.com/hrygo/coworkr/plugin/ai/session"
)

// IntentClassifier classifies one utterance against the caller's current state.
type IntentClassifier interface {
	Classify(ctx context.Context, utterance string, snap *aicontext.Snapshot, history []session.Turn) *Classification
}

// Intent is a closed enumeration of what the assistant can do.
type Intent string

const (
	IntentQuery               Intent = "QUERY"
	IntentCreateTask          Intent = "CREATE_TASK"
	IntentUpdateTask          Intent = "UPDATE_TASK"
	IntentCompleteTask        Intent = "COMPLETE_TASK"
	IntentDeleteTask          Intent = "DELETE_TASK"
	IntentCreateEvent         Intent = "CREATE_EVENT"
	IntentUpdateEvent         Intent = "UPDATE_EVENT"
	IntentCancelEvent         Intent = "CANCEL_EVENT"
	IntentCreateProject       Intent = "CREATE_PROJECT"
	IntentCreateContact       Intent = "CREATE_CONTACT"
	IntentCreateDeal          Intent = "CREATE_DEAL"
	IntentScheduleMeetingWith Intent = "SCHEDULE_MEETING_WITH"
	IntentCheckWorkload       Intent = "CHECK_WORKLOAD"
	IntentCheckAvailability   Intent = "CHECK_AVAILABILITY"
	IntentAssignTask          Intent = "ASSIGN_TASK"
	IntentGetTeamTasks        Intent = "GET_TEAM_TASKS"
	IntentDailySummary        Intent = "DAILY_SUMMARY"
	IntentTaskSummary         Intent = "TASK_SUMMARY"
	IntentMeetingSummary      Intent = "MEETING_SUMMARY"
	IntentDealSummary         Intent = "DEAL_SUMMARY"
	IntentGreeting            Intent = "GREETING"
	IntentGeneralChat         Intent = "GENERAL_CHAT"
)

// intentCatalog lists every intent with the parameter shape shown to the
// model. Order is the order used in the prompt.
var intentCatalog = []struct {
	Intent Intent
	Shape  string
	Hint   string
}{
	{IntentQuery, `{"dataType": "tasks|projects|contacts|deals|accounts|events|timesheets", "filters": {"field": "value"}, "filterExpr": "optional CEL boolean expression over the record, e.g. record.priority == 'high'"}`, "list or look up records"},
	{IntentCreateTask, `{"title": string, "description"?: string, "priority"?: "low|medium|high|urgent", "dueDate"?: string, "dueTime"?: string}`, "add a task for the user"},
	{IntentUpdateTask, `{"taskTitle": string, "newTitle"?: string, "status"?: "pending|in_progress|done", "priority"?: string, "dueDate"?: string, "dueTime"?: string, "description"?: string}`, "change an existing task"},
	{IntentCompleteTask, `{"taskTitle": string}`, "mark a task done"},
	{IntentDeleteTask, `{"taskTitle": string}`, "remove a task"},
	{IntentCreateEvent, `{"title": string, "date"?: string, "time"?: string, "durationMinutes"?: number, "location"?: string, "attendees"?: [string], "description"?: string}`, "put an event on the calendar"},
	{IntentUpdateEvent, `{"eventId"?: string, "eventTitle"?: string, "date"?: string, "time"?: string, "newTitle"?: string, "newDate"?: string, "newTime"?: string, "durationMinutes"?: number, "location"?: string}`, "move, rename or change an event; date/time identify the existing event, new* fields are the changes"},
	{IntentCancelEvent, `{"eventId"?: string, "eventTitle"?: string, "date"?: string, "time"?: string}`, "cancel an event"},
	{IntentCreateProject, `{"name": string, "description"?: string, "dueDate"?: string}`, "start a project"},
	{IntentCreateContact, `{"firstName": string, "lastName"?: string, "email"?: string, "phone"?: string, "company"?: string}`, "save a contact"},
	{IntentCreateDeal, `{"title": string, "value"?: number, "stage"?: "lead|qualified|proposal|negotiation|won|lost", "contactName"?: string, "accountName"?: string, "closeDate"?: string}`, "record a sales deal"},
	{IntentScheduleMeetingWith, `{"personNames": [string], "title"?: string, "date"?: string, "time"?: string, "durationMinutes"?: number, "location"?: string}`, "book a meeting with teammates"},
	{IntentCheckWorkload, `{}`, "who on the team is busy or free"},
	{IntentCheckAvailability, `{"memberName"?: string, "date"?: string}`, "is someone (or the team) available"},
	{IntentAssignTask, `{"assigneeName": string, "title": string, "priority"?: string, "dueDate"?: string, "dueTime"?: string, "description"?: string}`, "give a task to a teammate"},
	{IntentGetTeamTasks, `{"memberName"?: string}`, "what a teammate or the team is working on"},
	{IntentDailySummary, `{"date"?: string}`, "overview of the day"},
	{IntentTaskSummary, `{}`, "task counts by status and priority"},
	{IntentMeetingSummary, `{"date"?: string}`, "meetings on a day"},
	{IntentDealSummary, `{"stage"?: string}`, "pipeline overview"},
	{IntentGreeting, `{}`, "hello, good morning"},
	{IntentGeneralChat, `{}`, "anything else"},
}

// Intents returns every intent in catalog order.
func Intents() []Intent {
	out := make([]Intent, len(intentCatalog))
	for i, c := range intentCatalog {
		out[i] = c.Intent
	}
	return out
}

// Valid reports whether i is one of the known intents.
func (i Intent) Valid() bool {
	for _, c := range intentCatalog {
		if c.Intent == i {
			return true
		}
	}
	return false
}

// ParseIntent normalizes a model-supplied intent name. Unknown names map to
// GENERAL_CHAT.
func ParseIntent(s string) (Intent, bool) {
	i := Intent(strings.ToUpper(strings.TrimSpace(s)))
	if !i.Valid() {
		return IntentGeneralChat, false
	}
	return i, true
}

// Classification is the outcome of classifying one utterance.
type Classification struct {
	Intent Intent
	Params Params

	// NeedsMoreInfo is a clarifying question for the missing Field. Empty when
	// the intent is ready to dispatch.
	NeedsMoreInfo string
	Field         string

	// Source is "rule", "llm", "resume" or "fallback".
	Source string
}

// Ready reports whether every required parameter is present.
func (c *Classification) Ready() bool {
	return c.NeedsMoreInfo == ""
}

// Fallback is the classification used when nothing better is available.
func Fallback() *Classification {
	return &Classification{Intent: IntentGeneralChat, Params: NoParams{Name: IntentGeneralChat}, Source: "fallback"}
}

// newClassification validates params and fills NeedsMoreInfo.
func newClassification(p Params, source string) *Classification {
	c := &Classification{Intent: p.Intent(), Params: p, Source: source}
	c.Field, c.NeedsMoreInfo = p.Missing()
	return c
}
