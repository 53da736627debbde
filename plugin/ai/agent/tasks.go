package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hrygo/coworkr/plugin/ai/aitime"
	"github.com/hrygo/coworkr/plugin/ai/match"
	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/store"
)

// AssignedTask is the data of an ASSIGN_TASK outcome.
type AssignedTask struct {
	Task     *store.Task `json:"task"`
	Assignee string      `json:"assignee"`
}

func (d *Dispatcher) createTask(ctx context.Context, req *Request, p *router.CreateTaskParams) *Outcome {
	fields := taskFields(p.Title, p.Description, p.Priority, p.DueDate, p.DueTime, req.Snapshot.Now)
	rec, err := d.records.Create(ctx, req.Caller, store.KindTask, fields)
	if err != nil {
		return writeFailed("create task", req.Caller, err)
	}
	return decoded[store.Task](rec)
}

func (d *Dispatcher) updateTask(ctx context.Context, req *Request, p *router.UpdateTaskParams) *Outcome {
	task, out := findTask(p.TaskTitle, req)
	if out != nil {
		return out
	}

	now := req.Snapshot.Now
	fields := map[string]any{}
	if s := strings.TrimSpace(p.NewTitle); s != "" {
		fields["title"] = s
	}
	if p.Status != "" {
		status := normalizeStatus(p.Status)
		fields["status"] = status
		if status == store.TaskDone {
			fields["completedAt"] = now
		} else {
			fields["completedAt"] = nil
		}
	}
	if p.Priority != "" {
		fields["priority"] = normalizePriority(p.Priority)
	}
	if p.DueDate != "" || p.DueTime != "" {
		fields["dueDate"] = aitime.Resolve(p.DueDate, p.DueTime, now)
	}
	if s := strings.TrimSpace(p.Description); s != "" {
		fields["description"] = s
	}
	if len(fields) == 0 {
		return askFor("What would you like to change about " + quote(task.Title) + "?")
	}

	rec, err := d.records.Update(ctx, req.Caller, store.KindTask, task.ID, fields)
	if err != nil {
		return writeFailed("update task", req.Caller, err)
	}
	return decoded[store.Task](rec)
}

func (d *Dispatcher) completeTask(ctx context.Context, req *Request, p *router.CompleteTaskParams) *Outcome {
	task, out := findTask(p.TaskTitle, req)
	if out != nil {
		return out
	}
	rec, err := d.records.Update(ctx, req.Caller, store.KindTask, task.ID, map[string]any{
		"status":      store.TaskDone,
		"completedAt": req.Snapshot.Now,
	})
	if err != nil {
		return writeFailed("complete task", req.Caller, err)
	}
	return decoded[store.Task](rec)
}

func (d *Dispatcher) deleteTask(ctx context.Context, req *Request, p *router.DeleteTaskParams) *Outcome {
	task, out := findTask(p.TaskTitle, req)
	if out != nil {
		return out
	}
	if err := d.records.Delete(ctx, req.Caller, store.KindTask, task.ID); err != nil {
		return writeFailed("delete task", req.Caller, err)
	}
	return ok(task)
}

// assignTask resolves the assignee before writing, so a failed lookup leaves
// no record behind. The task is owned by the assignee.
func (d *Dispatcher) assignTask(ctx context.Context, req *Request, p *router.AssignTaskParams) *Outcome {
	member, out := findMember(p.AssigneeName, req)
	if out != nil {
		return out
	}

	fields := taskFields(p.Title, p.Description, p.Priority, p.DueDate, p.DueTime, req.Snapshot.Now)
	fields["assignedTo"] = member.ID
	fields["assignedBy"] = req.Caller
	rec, err := d.records.Create(ctx, member.ID, store.KindTask, fields)
	if err != nil {
		return writeFailed("assign task", req.Caller, err)
	}
	task, err := store.Decode[store.Task](rec)
	if err != nil {
		return writeFailed("assign task", req.Caller, err)
	}
	return ok(&AssignedTask{Task: task, Assignee: member.FullName()})
}

func taskFields(title, description, priority, dueDate, dueTime string, now time.Time) map[string]any {
	fields := map[string]any{
		"title":    strings.TrimSpace(title),
		"status":   store.TaskPending,
		"priority": normalizePriority(priority),
	}
	if s := strings.TrimSpace(description); s != "" {
		fields["description"] = s
	}
	if dueDate != "" || dueTime != "" {
		fields["dueDate"] = aitime.Resolve(dueDate, dueTime, now)
	}
	return fields
}

// findTask resolves a title fragment against every task, done or not.
func findTask(title string, req *Request) (*store.Task, *Outcome) {
	task, err := match.Task(title, req.Snapshot.Tasks)
	switch {
	case errors.Is(err, match.ErrQueryTooShort):
		return nil, notFound("I couldn't understand which task you meant.")
	case err != nil:
		return nil, notFound("I couldn't find a task called %s.", quote(title))
	}
	return task, nil
}

// findMember resolves a person against the team roster.
func findMember(name string, req *Request) (*store.TeamMember, *Outcome) {
	member, err := match.Member(name, req.Snapshot.Roster())
	switch {
	case errors.Is(err, match.ErrQueryTooShort):
		return nil, notFound("I couldn't understand the name %s.", quote(name))
	case err != nil:
		return nil, notFound("I couldn't find anyone named %s on your team.", quote(name))
	}
	return member, nil
}

func normalizePriority(s string) store.Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "minor":
		return store.PriorityLow
	case "high", "important":
		return store.PriorityHigh
	case "urgent", "critical", "asap", "top":
		return store.PriorityUrgent
	default:
		return store.PriorityMedium
	}
}

func normalizeStatus(s string) store.TaskStatus {
	switch strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(s))) {
	case "done", "complete", "completed", "finished":
		return store.TaskDone
	case "in_progress", "started", "doing", "active":
		return store.TaskInProgress
	default:
		return store.TaskPending
	}
}

// decoded returns a success outcome with the typed view of rec.
func decoded[T any, P interface {
	*T
	store.View
}](rec *store.Record) *Outcome {
	v, err := store.Decode[T, P](rec)
	if err != nil {
		return writeFailed("decode "+string(rec.Kind), rec.Owner, err)
	}
	return ok(v)
}
