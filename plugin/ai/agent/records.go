package agent

import (
	"context"
	"strings"

	"github.com/hrygo/coworkr/plugin/ai/aitime"
	"github.com/hrygo/coworkr/plugin/ai/match"
	"github.com/hrygo/coworkr/plugin/ai/router"
	"github.com/hrygo/coworkr/store"
)

// DealStages lists the pipeline stages in order.
var DealStages = []string{"lead", "qualified", "proposal", "negotiation", "won", "lost"}

func (d *Dispatcher) createProject(ctx context.Context, req *Request, p *router.CreateProjectParams) *Outcome {
	fields := map[string]any{
		"name":   strings.TrimSpace(p.Name),
		"status": "active",
	}
	if s := strings.TrimSpace(p.Description); s != "" {
		fields["description"] = s
	}
	if p.DueDate != "" {
		fields["dueDate"] = aitime.Resolve(p.DueDate, "", req.Snapshot.Now)
	}
	rec, err := d.records.Create(ctx, req.Caller, store.KindProject, fields)
	if err != nil {
		return writeFailed("create project", req.Caller, err)
	}
	return decoded[store.Project](rec)
}

func (d *Dispatcher) createContact(ctx context.Context, req *Request, p *router.CreateContactParams) *Outcome {
	fields := map[string]any{"firstName": strings.TrimSpace(p.FirstName)}
	for key, value := range map[string]string{
		"lastName": p.LastName,
		"email":    p.Email,
		"phone":    p.Phone,
		"company":  p.Company,
	} {
		if s := strings.TrimSpace(value); s != "" {
			fields[key] = s
		}
	}
	rec, err := d.records.Create(ctx, req.Caller, store.KindContact, fields)
	if err != nil {
		return writeFailed("create contact", req.Caller, err)
	}
	return decoded[store.Contact](rec)
}

// createDeal links a contact or account only when the name resolves; an
// unknown name is not an error because both links are optional.
func (d *Dispatcher) createDeal(ctx context.Context, req *Request, p *router.CreateDealParams) *Outcome {
	snap := req.Snapshot
	fields := map[string]any{
		"title": strings.TrimSpace(p.Title),
		"value": float64(p.Value),
		"stage": normalizeStage(p.Stage),
	}
	if p.ContactName != "" {
		if c, _, err := match.Find(p.ContactName, snap.Contacts, contactNames); err == nil {
			fields["contactId"] = c.ID
		}
	}
	if p.AccountName != "" {
		if a, _, err := match.Find(p.AccountName, snap.Accounts, func(a *store.Account) match.Names {
			return match.Names{Full: a.Name}
		}); err == nil {
			fields["accountId"] = a.ID
		}
	}
	if p.CloseDate != "" {
		fields["closeDate"] = aitime.Resolve(p.CloseDate, "", snap.Now)
	}
	rec, err := d.records.Create(ctx, req.Caller, store.KindDeal, fields)
	if err != nil {
		return writeFailed("create deal", req.Caller, err)
	}
	return decoded[store.Deal](rec)
}

func contactNames(c *store.Contact) match.Names {
	return match.Names{
		Full:  strings.TrimSpace(c.FirstName + " " + c.LastName),
		Parts: []string{c.FirstName, c.LastName},
	}
}

func normalizeStage(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, stage := range DealStages {
		if s == stage {
			return s
		}
	}
	switch s {
	case "closed won", "closed-won", "closed_won":
		return "won"
	case "closed lost", "closed-lost", "closed_lost":
		return "lost"
	case "negotiating":
		return "negotiation"
	}
	return "lead"
}
