package router

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Params is the typed parameter bag of one intent.
type Params interface {
	Intent() Intent

	// Missing returns the first absent required field and the question that
	// asks for it, or two empty strings.
	Missing() (field, question string)

	// Fill sets field from a clarification reply. It reports false when the
	// field is not one the variant asks for.
	Fill(field, value string) bool
}

// DecodeParams decodes raw JSON into the variant for intent. Empty input
// yields the zero variant.
func DecodeParams(intent Intent, raw []byte) (Params, error) {
	p := newParams(intent)
	if p == nil {
		return nil, fmt.Errorf("unknown intent %q", intent)
	}
	if _, ok := p.(NoParams); ok {
		return p, nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed != "" && trimmed != "null" {
		if err := json.Unmarshal([]byte(trimmed), p); err != nil {
			return nil, fmt.Errorf("failed to decode %s params: %w", intent, err)
		}
	}
	return p, nil
}

func newParams(intent Intent) Params {
	switch intent {
	case IntentQuery:
		return &QueryParams{}
	case IntentCreateTask:
		return &CreateTaskParams{}
	case IntentUpdateTask:
		return &UpdateTaskParams{}
	case IntentCompleteTask:
		return &CompleteTaskParams{}
	case IntentDeleteTask:
		return &DeleteTaskParams{}
	case IntentCreateEvent:
		return &CreateEventParams{}
	case IntentUpdateEvent:
		return &UpdateEventParams{}
	case IntentCancelEvent:
		return &CancelEventParams{}
	case IntentCreateProject:
		return &CreateProjectParams{}
	case IntentCreateContact:
		return &CreateContactParams{}
	case IntentCreateDeal:
		return &CreateDealParams{}
	case IntentScheduleMeetingWith:
		return &ScheduleMeetingParams{}
	case IntentCheckAvailability:
		return &CheckAvailabilityParams{}
	case IntentAssignTask:
		return &AssignTaskParams{}
	case IntentGetTeamTasks:
		return &TeamTasksParams{}
	case IntentDailySummary:
		return &DailySummaryParams{}
	case IntentMeetingSummary:
		return &MeetingSummaryParams{}
	case IntentDealSummary:
		return &DealSummaryParams{}
	case IntentCheckWorkload, IntentTaskSummary, IntentGreeting, IntentGeneralChat:
		return NoParams{Name: intent}
	}
	return nil
}

// ============================================================================
// Variants
// ============================================================================

// NoParams is used by intents that take no parameters.
type NoParams struct {
	Name Intent `json:"-"`
}

func (p NoParams) Intent() Intent          { return p.Name }
func (NoParams) Missing() (string, string) { return "", "" }
func (NoParams) Fill(string, string) bool  { return false }

// QueryParams reads records of one data type.
type QueryParams struct {
	DataType   string            `json:"dataType,omitempty"`
	Filters    map[string]string `json:"filters,omitempty"`
	FilterExpr string            `json:"filterExpr,omitempty"`
}

func (*QueryParams) Intent() Intent            { return IntentQuery }
func (*QueryParams) Missing() (string, string) { return "", "" }
func (p *QueryParams) Fill(field, value string) bool {
	if field != "dataType" {
		return false
	}
	p.DataType = value
	return true
}

// CreateTaskParams adds a task for the caller.
type CreateTaskParams struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	DueTime     string `json:"dueTime,omitempty"`
}

func (*CreateTaskParams) Intent() Intent { return IntentCreateTask }
func (p *CreateTaskParams) Missing() (string, string) {
	if blank(p.Title) {
		return "title", "What's the task you want to create?"
	}
	return "", ""
}
func (p *CreateTaskParams) Fill(field, value string) bool {
	return fill(field, value, map[string]*string{"title": &p.Title})
}

// UpdateTaskParams changes an existing task found by title.
type UpdateTaskParams struct {
	TaskTitle   string `json:"taskTitle,omitempty"`
	NewTitle    string `json:"newTitle,omitempty"`
	Status      string `json:"status,omitempty"`
	Priority    string `json:"priority,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	DueTime     string `json:"dueTime,omitempty"`
	Description string `json:"description,omitempty"`
}

func (*UpdateTaskParams) Intent() Intent { return IntentUpdateTask }
func (p *UpdateTaskParams) Missing() (string, string) {
	if blank(p.TaskTitle) {
		return "taskTitle", "Which task do you want to update?"
	}
	return "", ""
}
func (p *UpdateTaskParams) Fill(field, value string) bool {
	return fill(field, value, map[string]*string{"taskTitle": &p.TaskTitle})
}

// CompleteTaskParams marks a task done.
type CompleteTaskParams struct {
	TaskTitle string `json:"taskTitle,omitempty"`
}

func (*CompleteTaskParams) Intent() Intent { return IntentCompleteTask }
func (p *CompleteTaskParams) Missing() (string, string) {
	if blank(p.TaskTitle) {
		return "taskTitle", "Which task did you finish?"
	}
	return "", ""
}
func (p *CompleteTaskParams) Fill(field, value string) bool {
	return fill(field, value, map[string]*string{"taskTitle": &p.TaskTitle})
}

// DeleteTaskParams removes a task.
type DeleteTaskParams struct {
	TaskTitle string `json:"taskTitle,omitempty"`
}

func (*DeleteTaskParams) Intent() Intent { return IntentDeleteTask }
func (p *DeleteTaskParams) Missing() (string, string) {
	if blank(p.TaskTitle) {
		return "taskTitle", "Which task should I delete?"
	}
	return "", ""
}
func (p *DeleteTaskParams) Fill(field, value string) bool {
	return fill(field, value, map[string]*string{"taskTitle": &p.TaskTitle})
}

// CreateEventParams puts an event on the caller's calendar.
type CreateEventParams struct {
	Title           string      `json:"title,omitempty"`
	Date            string      `json:"date,omitempty"`
	Time            string      `json:"time,omitempty"`
	DurationMinutes flexInt     `json:"durationMinutes,omitempty"`
	Location        string      `json:"location,omitempty"`
	Attendees       flexStrings `json:"attendees,omitempty"`
	Description     string      `json:"description,omitempty"`
}

func (*CreateEventParams) Intent() Intent { return IntentCreateEvent }
func (p *CreateEventParams) Missing() (string, string) {
	if blank(p.Title) {
		return "title", "What should I call the event?"
	}
	return "", ""
}
func (p *CreateEventParams) Fill(field, value string) bool {
	return fill(field, value, map[string]*string{"title": &p.Title})
}

// EventRef identifies an existing event by id, title or when it happens.
type EventRef struct {
	EventID    string `json:"eventId,omitempty"`
	EventTitle string `json:"eventTitle,omitempty"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
}

func (r *EventRef) empty() bool {
	return blank(r.EventID) && blank(r.EventTitle) && blank(r.Date) && blank(r.Time)
}

// UpdateEventParams changes an event. Date and Time identify the existing
// event; the New* fields carry the change.
type UpdateEventParams struct {
	EventRef
	NewTitle        string  `json:"newTitle,omitempty"`
	NewDate         string  `json:"newDate,omitempty"`
	NewTime         string  `json:"newTime,omitempty"`
	DurationMinutes flexInt `json:"durationMinutes,omitempty"`
	Location        string  `json:"location,omitempty"`
}

func (*UpdateEventParams) Intent() Intent { return IntentUpdateEvent }
func (p *UpdateEventParams) Missing() (string, string) {
	if p.EventRef.empty() {
		return "eventTitle", "Which event do you want to change?"
	}
	return "", ""
}
func (p *UpdateEventParams) Fill(field, value string) bool {
	return fill(field, value, map[string]*string{"eventTitle": &p.EventTitle})
}

// CancelEventParams cancels an event.
type CancelEventParams struct {
	EventRef
}

func (*CancelEventParams) Intent() Intent { return IntentCancelEvent }
func (p *CancelEventParams) Missing() (string, string) {
	if p.EventRef.empty() {
		return "eventTitle", "Which event do you want to cancel?"
	}
	return "", ""
}
func (p *CancelEventParams) Fill(field, value string) bool {
	return fill(field, value, map[string]*string{"eventTitle": &p.EventTitle})
}

// CreateProjectParams starts a project.
type CreateProjectParams struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
}

func (*CreateProjectParams) Intent() Intent { return IntentCreateProject }
func (p *CreateProjectParams) Missing() (string, string) {
	if blank(p.Name) {
		return "name", "What's the project called?"
	}
	return "", ""
}
func (p *CreateProjectParams) Fill(field, value string) bool {
	return fill(field, value, map[string]*string{"name": &p.Name})
}

// CreateContactParams saves a contact.
type CreateContactParams struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
}

func (*CreateContactParams) Intent() Intent { return IntentCreateContact }
func (p *CreateContactParams) Missing() (string, string) {
	if blank(p.FirstName) {
		return "firstName", "What's the contact's name?"
	}
	return "", ""
}

// Fill splits a full name reply into first and last name.
func (p *CreateContactParams) Fill(field, value string) bool {
	if field != "firstName" {
		return false
	}
	first, last, _ := strings.Cut(strings.TrimSpace(value), " ")
	p.FirstName = first
	if last = strings.TrimSpace(last); last != "" && p.LastName == "" {
		p.LastName = last
	}
	return true
}

// CreateDealParams records a sales deal.
type CreateDealParams struct {
	Title       string    `json:"title,omitempty"`
	Value       flexFloat `json:"value,omitempty"`
	Stage       string    `json:"stage,omitempty"`
	ContactName string    `json:"contactName,omitempty"`
	AccountName string    `json:"accountName,omitempty"`
	CloseDate   string    `json:"closeDate,omitempty"`
}

func (*CreateDealParams) Intent() Intent { return IntentCreateDeal }
func (p *CreateDealParams) Missing() (string, string) {
	if blank(p.Title) {
		return "title", "What's the deal called?"
	}
	return "", ""
}
func (p *CreateDealParams) Fill(field, value string) bool {
	return fill(field, value, map[string]*string{"title": &p.Title})
}

// ScheduleMeetingParams books a meeting with one or more teammates.
type ScheduleMeetingParams struct {
	PersonNames     flexStrings `json:"personNames,omitempty"`
	Title           string      `json:"title,omitempty"`
	Date            string      `json:"date,omitempty"`
	Time            string      `json:"time,omitempty"`
	DurationMinutes flexInt     `json:"durationMinutes,omitempty"`
	Location        string      `json:"location,omitempty"`
}

func (*ScheduleMeetingParams) Intent() Intent { return IntentScheduleMeetingWith }
func (p *ScheduleMeetingParams) Missing() (string, string) {
	if len(p.PersonNames) == 0 {
		return "personNames", "Who do you want to meet with?"
	}
	return "", ""
}
func (p *ScheduleMeetingParams) Fill(field, value string) bool {
	switch field {
	case "personNames":
		p.PersonNames = splitNames(value)
		return len(p.PersonNames) > 0
	case "title":
		p.Title = value
		return true
	}
	return false
}

// CheckAvailabilityParams asks about one member or the whole team.
type CheckAvailabilityParams struct {
	MemberName string `json:"memberName,omitempty"`
	Date       string `json:"date,omitempty"`
}

func (*CheckAvailabilityParams) Intent() Intent            { return IntentCheckAvailability }
func (*CheckAvailabilityParams) Missing() (string, string) { return "", "" }
func (p *CheckAvailabilityParams) Fill(field, value string) bool {
	return fill(field, value, map[string]*string{"memberName": &p.MemberName})
}

// AssignTaskParams creates a task owned by a teammate.
type AssignTaskParams struct {
	AssigneeName string `json:"assigneeName,omitempty"`
	Title        string `json:"title,omitempty"`
	Priority     string `json:"priority,omitempty"`
	DueDate      string `json:"dueDate,omitempty"`
	DueTime      string `json:"dueTime,omitempty"`
	Description  string `json:"description,omitempty"`
}

func (*AssignTaskParams) Intent() Intent { return IntentAssignTask }
func (p *AssignTaskParams) Missing() (string, string) {
	if blank(p.Title) {
		return "title", "What's the task you want to assign?"
	}
	if blank(p.AssigneeName) {
		return "assigneeName", "Who should I assign it to?"
	}
	return "", ""
}
func (p *AssignTaskParams) Fill(field, value string) bool {
	return fill(field, value, map[string]*string{"title": &p.Title, "assigneeName": &p.AssigneeName})
}

// TeamTasksParams lists a member's open tasks, or counts for everyone.
type TeamTasksParams struct {
	MemberName string `json:"memberName,omitempty"`
}

func (*TeamTasksParams) Intent() Intent            { return IntentGetTeamTasks }
func (*TeamTasksParams) Missing() (string, string) { return "", "" }
func (p *TeamTasksParams) Fill(field, value string) bool {
	return fill(field, value, map[string]*string{"memberName": &p.MemberName})
}

// DailySummaryParams summarizes a day, today by default.
type DailySummaryParams struct {
	Date string `json:"date,omitempty"`
}

func (*DailySummaryParams) Intent() Intent            { return IntentDailySummary }
func (*DailySummaryParams) Missing() (string, string) { return "", "" }
func (*DailySummaryParams) Fill(string, string) bool  { return false }

// MeetingSummaryParams lists meetings on a day, today by default.
type MeetingSummaryParams struct {
	Date string `json:"date,omitempty"`
}

func (*MeetingSummaryParams) Intent() Intent            { return IntentMeetingSummary }
func (*MeetingSummaryParams) Missing() (string, string) { return "", "" }
func (*MeetingSummaryParams) Fill(string, string) bool  { return false }

// DealSummaryParams summarizes the pipeline, optionally for one stage.
type DealSummaryParams struct {
	Stage string `json:"stage,omitempty"`
}

func (*DealSummaryParams) Intent() Intent            { return IntentDealSummary }
func (*DealSummaryParams) Missing() (string, string) { return "", "" }
func (*DealSummaryParams) Fill(string, string) bool  { return false }

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func fill(field, value string, fields map[string]*string) bool {
	dst, ok := fields[field]
	if !ok {
		return false
	}
	*dst = value
	return true
}

// splitNames splits "Sarah and David, Maria" into names.
func splitNames(s string) []string {
	s = strings.ReplaceAll(s, " and ", ",")
	s = strings.ReplaceAll(s, "&", ",")
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ============================================================================
// Lenient scalar types
// ============================================================================

// flexInt accepts 30, 30.0, "30", "30 minutes" or "an hour" (read as minutes).
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	r := gjson.ParseBytes(b)
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.Number:
		*f = flexInt(math.Round(r.Num))
		return nil
	case gjson.String:
		n, ok := leadingNumber(r.Str)
		if strings.Contains(strings.ToLower(r.Str), "hour") {
			if !ok {
				n, ok = 1, true
			}
			n *= 60
		}
		if ok {
			*f = flexInt(math.Round(n))
		}
		return nil
	}
	return fmt.Errorf("cannot read %s as a number", r.Raw)
}

// flexFloat accepts 5000, "5000", "$5,000" or "5k".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	r := gjson.ParseBytes(b)
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.Number:
		*f = flexFloat(r.Num)
		return nil
	case gjson.String:
		s := strings.ToLower(strings.NewReplacer("$", "", ",", "", " ", "").Replace(r.Str))
		mult := 1.0
		switch {
		case strings.HasSuffix(s, "k"):
			mult, s = 1e3, strings.TrimSuffix(s, "k")
		case strings.HasSuffix(s, "m"):
			mult, s = 1e6, strings.TrimSuffix(s, "m")
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			*f = flexFloat(n * mult)
		}
		return nil
	}
	return fmt.Errorf("cannot read %s as a number", r.Raw)
}

// flexStrings accepts a list or a single comma-separated string.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	r := gjson.ParseBytes(b)
	switch {
	case r.Type == gjson.Null:
		return nil
	case r.IsArray():
		out := flexStrings{}
		for _, item := range r.Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				out = append(out, s)
			}
		}
		*f = out
		return nil
	case r.Type == gjson.String:
		*f = splitNames(r.Str)
		return nil
	}
	return fmt.Errorf("cannot read %s as a list", r.Raw)
}

func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	n, err := strconv.ParseFloat(s[:end], 64)
	return n, err == nil
}
