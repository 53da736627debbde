package store

import (
	"encoding/json"
	"time"
)

// Kind is a record collection name.
type Kind string

const (
	KindTask      Kind = "tasks"
	KindProject   Kind = "projects"
	KindContact   Kind = "contacts"
	KindDeal      Kind = "deals"
	KindAccount   Kind = "accounts"
	KindEvent     Kind = "events"
	KindTimesheet Kind = "timesheets"
)

// Kinds lists every record collection.
var Kinds = []Kind{KindTask, KindProject, KindContact, KindDeal, KindAccount, KindEvent, KindTimesheet}

// Valid reports whether k is a known collection.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Record is a single JSON document owned by a caller.
type Record struct {
	ID        string
	Owner     string
	Kind      Kind
	Data      json.RawMessage
	CreatedTs int64
	UpdatedTs int64
}

// FindRecord selects records. Nil fields are ignored.
type FindRecord struct {
	ID    *string
	Owner *string
	Kind  *Kind
}

// UpdateRecord replaces the document of a record.
type UpdateRecord struct {
	ID        string
	Owner     string
	Kind      Kind
	Data      json.RawMessage
	UpdatedTs int64
}

// DeleteRecord removes a record.
type DeleteRecord struct {
	ID    string
	Owner string
	Kind  Kind
}

// Filter is a field -> value equality filter over record documents.
// Values compare case-insensitively.
type Filter map[string]string

// Meta holds the server-assigned fields shared by every typed view.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Meta) meta() *Meta { return m }

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

// Priority ranks tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// IsHigh reports whether p counts toward high-priority workload.
func (p Priority) IsHigh() bool {
	return p == PriorityHigh || p == PriorityUrgent
}

// Task is the typed view of a tasks record.
type Task struct {
	Meta
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	AssignedBy  string     `json:"assignedBy,omitempty"`
	ProjectID   string     `json:"projectId,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Open reports whether the task still needs work.
func (t *Task) Open() bool {
	return t.Status != TaskDone
}

// EventSource tells which system an event lives in.
type EventSource string

const (
	SourceLocal    EventSource = "local"
	SourceExternal EventSource = "external"
)

// Event is the typed view of an events record or an external calendar entry.
type Event struct {
	Meta
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	StartTime   time.Time   `json:"startTime"`
	EndTime     time.Time   `json:"endTime"`
	Location    string      `json:"location,omitempty"`
	Attendees   []string    `json:"attendees"`
	Source      EventSource `json:"source"`
	OrganizerID string      `json:"organizerId,omitempty"`
}

// Project is the typed view of a projects record.
type Project struct {
	Meta
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// Contact is the typed view of a contacts record.
type Contact struct {
	Meta
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Company   string `json:"company,omitempty"`
}

// Deal is the typed view of a deals record.
type Deal struct {
	Meta
	Title     string     `json:"title"`
	Value     float64    `json:"value"`
	Stage     string     `json:"stage"`
	ContactID string     `json:"contactId,omitempty"`
	AccountID string     `json:"accountId,omitempty"`
	CloseDate *time.Time `json:"closeDate,omitempty"`
}

// Account is the typed view of an accounts record.
type Account struct {
	Meta
	Name     string `json:"name"`
	Industry string `json:"industry,omitempty"`
	Website  string `json:"website,omitempty"`
}

// Timesheet is the typed view of a timesheets record.
type Timesheet struct {
	Meta
	Date        time.Time `json:"date"`
	Hours       float64   `json:"hours"`
	Description string    `json:"description,omitempty"`
	ProjectID   string    `json:"projectId,omitempty"`
	TaskID      string    `json:"taskId,omitempty"`
}

// View is implemented by every typed record view.
type View interface {
	meta() *Meta
}

// Decode converts a record into its typed view. Records whose document
// does not decode are reported through the returned error.
func Decode[T any, P interface {
	*T
	View
}](r *Record) (*T, error) {
	v := P(new(T))
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, v); err != nil {
			return nil, err
		}
	}
	m := v.meta()
	m.ID = r.ID
	m.CreatedAt = time.Unix(r.CreatedTs, 0)
	m.UpdatedAt = time.Unix(r.UpdatedTs, 0)
	return (*T)(v), nil
}

// DecodeAll decodes every record, skipping documents that fail to decode.
func DecodeAll[T any, P interface {
	*T
	View
}](records []*Record) []*T {
	out := make([]*T, 0, len(records))
	for _, r := range records {
		v, err := Decode[T, P](r)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
