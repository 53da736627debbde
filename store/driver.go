package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates the tables the store needs when they are missing.
	Migrate(ctx context.Context) error

	// Record model related methods.
	CreateRecord(ctx context.Context, create *Record) (*Record, error)
	ListRecords(ctx context.Context, find *FindRecord) ([]*Record, error)
	UpdateRecord(ctx context.Context, update *UpdateRecord) (*Record, error)
	DeleteRecord(ctx context.Context, delete *DeleteRecord) error

	// TeamMember model related methods.
	UpsertTeamMember(ctx context.Context, upsert *TeamMember) (*TeamMember, error)
	ListTeamMembers(ctx context.Context, find *FindTeamMember) ([]*TeamMember, error)
}
