package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrNotFound is returned when a record or member does not exist.
var ErrNotFound = errors.New("not found")

// RecordStore is the per-caller CRUD surface over record collections.
type RecordStore interface {
	List(ctx context.Context, owner string, kind Kind, filter Filter) ([]*Record, error)
	Create(ctx context.Context, owner string, kind Kind, fields map[string]any) (*Record, error)
	Update(ctx context.Context, owner string, kind Kind, id string, fields map[string]any) (*Record, error)
	Delete(ctx context.Context, owner string, kind Kind, id string) error
}

// TeamDirectory resolves a caller's team roster.
type TeamDirectory interface {
	TeamOf(ctx context.Context, caller string) (string, error)
	ListTeamMembers(ctx context.Context, teamID string) ([]*TeamMember, error)
}

// Store provides database access to records and the team roster.
type Store struct {
	driver      Driver
	defaultTeam string
	now         func() time.Time
}

// New creates a new instance of Store.
func New(driver Driver, defaultTeam string) *Store {
	if defaultTeam == "" {
		defaultTeam = "default"
	}
	return &Store{
		driver:      driver,
		defaultTeam: defaultTeam,
		now:         time.Now,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// List returns the owner's records of one kind matching filter, oldest first.
func (s *Store) List(ctx context.Context, owner string, kind Kind, filter Filter) ([]*Record, error) {
	records, err := s.driver.ListRecords(ctx, &FindRecord{Owner: &owner, Kind: &kind})
	if err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		return records, nil
	}
	matched := make([]*Record, 0, len(records))
	for _, r := range records {
		if filter.Match(r.Data) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// Match reports whether every filter field equals the document's value.
func (f Filter) Match(doc []byte) bool {
	for field, want := range f {
		got := gjson.GetBytes(doc, field)
		if !got.Exists() || !strings.EqualFold(got.String(), want) {
			return false
		}
	}
	return true
}

// Create stores a new record with a generated id.
func (s *Store) Create(ctx context.Context, owner string, kind Kind, fields map[string]any) (*Record, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s fields: %w", kind, err)
	}
	ts := s.now().Unix()
	return s.driver.CreateRecord(ctx, &Record{
		ID:        shortuuid.New(),
		Owner:     owner,
		Kind:      kind,
		Data:      data,
		CreatedTs: ts,
		UpdatedTs: ts,
	})
}

// Update patches fields into an existing record's document.
// A nil value removes the field.
func (s *Store) Update(ctx context.Context, owner string, kind Kind, id string, fields map[string]any) (*Record, error) {
	records, err := s.driver.ListRecords(ctx, &FindRecord{ID: &id, Owner: &owner, Kind: &kind})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}

	doc := string(records[0].Data)
	if doc == "" {
		doc = "{}"
	}
	for field, value := range fields {
		if value == nil {
			doc, err = sjson.Delete(doc, field)
		} else {
			doc, err = sjson.Set(doc, field, value)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to patch field %q: %w", field, err)
		}
	}

	return s.driver.UpdateRecord(ctx, &UpdateRecord{
		ID:        id,
		Owner:     owner,
		Kind:      kind,
		Data:      json.RawMessage(doc),
		UpdatedTs: s.now().Unix(),
	})
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, owner string, kind Kind, id string) error {
	return s.driver.DeleteRecord(ctx, &DeleteRecord{ID: id, Owner: owner, Kind: kind})
}

// TeamOf returns the team the caller belongs to, or the default team.
func (s *Store) TeamOf(ctx context.Context, caller string) (string, error) {
	members, err := s.driver.ListTeamMembers(ctx, &FindTeamMember{ID: &caller})
	if err != nil {
		return "", err
	}
	if len(members) == 0 || members[0].TeamID == "" {
		return s.defaultTeam, nil
	}
	return members[0].TeamID, nil
}

// ListTeamMembers returns the roster of a team.
func (s *Store) ListTeamMembers(ctx context.Context, teamID string) ([]*TeamMember, error) {
	return s.driver.ListTeamMembers(ctx, &FindTeamMember{TeamID: &teamID})
}

// UpsertTeamMember creates or replaces a roster entry.
func (s *Store) UpsertTeamMember(ctx context.Context, member *TeamMember) (*TeamMember, error) {
	if member.ID == "" {
		member.ID = shortuuid.New()
	}
	if member.TeamID == "" {
		member.TeamID = s.defaultTeam
	}
	return s.driver.UpsertTeamMember(ctx, member)
}

var (
	_ RecordStore   = (*Store)(nil)
	_ TeamDirectory = (*Store)(nil)
)
