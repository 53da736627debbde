package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/coworkr/store"
)

func (d *DB) UpsertTeamMember(ctx context.Context, upsert *store.TeamMember) (*store.TeamMember, error) {
	stmt := `
		INSERT INTO team_member (id, team_id, first_name, last_name, email, title, role)
		VALUES (` + placeholders(7) + `)
		ON CONFLICT (id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			title = EXCLUDED.title,
			role = EXCLUDED.role`
	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.ID, upsert.TeamID, upsert.FirstName, upsert.LastName, upsert.Email, upsert.Title, upsert.Role,
	); err != nil {
		return nil, errors.Wrap(err, "failed to upsert team member")
	}
	return upsert, nil
}

func (d *DB) ListTeamMembers(ctx context.Context, find *store.FindTeamMember) ([]*store.TeamMember, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.TeamID; v != nil {
		where, args = append(where, "team_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, team_id, first_name, last_name, email, title, role
		FROM team_member
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY first_name ASC, last_name ASC, id ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list team members")
	}
	defer rows.Close()

	list := []*store.TeamMember{}
	for rows.Next() {
		var m store.TeamMember
		if err := rows.Scan(&m.ID, &m.TeamID, &m.FirstName, &m.LastName, &m.Email, &m.Title, &m.Role); err != nil {
			return nil, errors.Wrap(err, "failed to scan team member")
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
