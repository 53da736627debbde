package store

import (
	"context"
	"embed"
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Migration Flow:
// 1. The driver creates any missing tables (idempotent).
// 2. In demo mode, an empty roster is seeded from seed/demo.yaml.

//go:embed seed
var seedFS embed.FS

const (
	demoSeedFile = "seed/demo.yaml"

	modeDemo = "demo"
)

// SeedData is the document loaded by `coworkr seed` and demo mode.
type SeedData struct {
	Team    []*TeamMember `yaml:"team"`
	Records []*SeedRecord `yaml:"records"`
}

// SeedRecord is one record to create for an owner.
type SeedRecord struct {
	Owner  string         `yaml:"owner"`
	Kind   Kind           `yaml:"kind"`
	Fields map[string]any `yaml:"fields"`
}

// SeedResult counts what Seed wrote.
type SeedResult struct {
	Members int
	Records int
}

// Migrate brings the schema up to date and seeds demo data in demo mode.
func (s *Store) Migrate(ctx context.Context, mode string) error {
	if err := s.driver.Migrate(ctx); err != nil {
		return errors.Wrap(err, "failed to migrate")
	}
	if mode != modeDemo {
		return nil
	}

	members, err := s.ListTeamMembers(ctx, s.defaultTeam)
	if err != nil {
		return errors.Wrap(err, "failed to check roster")
	}
	if len(members) > 0 {
		return nil
	}
	f, err := seedFS.Open(demoSeedFile)
	if err != nil {
		return errors.Wrap(err, "failed to open demo seed")
	}
	defer f.Close()
	data, err := DecodeSeed(f)
	if err != nil {
		return err
	}
	res, err := s.Seed(ctx, data)
	if err != nil {
		return errors.Wrap(err, "failed to seed")
	}
	slog.Info("seeded demo data", "members", res.Members, "records", res.Records)
	return nil
}

// DecodeSeed parses a YAML seed document.
func DecodeSeed(r io.Reader) (*SeedData, error) {
	var data SeedData
	if err := yaml.NewDecoder(r).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to decode seed")
	}
	for i, rec := range data.Records {
		if rec.Owner == "" {
			return nil, errors.Errorf("seed record %d has no owner", i)
		}
		if !rec.Kind.Valid() {
			return nil, errors.Errorf("seed record %d has unknown kind %q", i, rec.Kind)
		}
	}
	return &data, nil
}

// Seed upserts the roster and creates every record. Records are not
// deduplicated, so seeding twice creates them twice.
func (s *Store) Seed(ctx context.Context, data *SeedData) (*SeedResult, error) {
	res := &SeedResult{}
	for _, m := range data.Team {
		if _, err := s.UpsertTeamMember(ctx, m); err != nil {
			return res, errors.Wrapf(err, "failed to upsert member %s", m.ID)
		}
		res.Members++
	}
	for _, rec := range data.Records {
		if _, err := s.Create(ctx, rec.Owner, rec.Kind, rec.Fields); err != nil {
			return res, errors.Wrapf(err, "failed to create %s for %s", rec.Kind, rec.Owner)
		}
		res.Records++
	}
	return res, nil
}
