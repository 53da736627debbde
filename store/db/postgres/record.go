package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/coworkr/store"
)

func (d *DB) CreateRecord(ctx context.Context, create *store.Record) (*store.Record, error) {
	stmt := `INSERT INTO record (id, owner, kind, data, created_ts, updated_ts) VALUES (` + placeholders(6) + `)`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID, create.Owner, string(create.Kind), string(create.Data), create.CreatedTs, create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create record")
	}
	return create, nil
}

func (d *DB) ListRecords(ctx context.Context, find *store.FindRecord) ([]*store.Record, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Owner; v != nil {
		where, args = append(where, "owner = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Kind; v != nil {
		where, args = append(where, "kind = "+placeholder(len(args)+1)), append(args, string(*v))
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, owner, kind, data::text, created_ts, updated_ts
		FROM record
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY created_ts ASC, id ASC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list records")
	}
	defer rows.Close()

	list := []*store.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, rows.Err()
}

func (d *DB) UpdateRecord(ctx context.Context, update *store.UpdateRecord) (*store.Record, error) {
	row := d.db.QueryRowContext(ctx, `
		UPDATE record SET data = $1, updated_ts = $2
		WHERE id = $3 AND owner = $4 AND kind = $5
		RETURNING id, owner, kind, data::text, created_ts, updated_ts`,
		string(update.Data), update.UpdatedTs, update.ID, update.Owner, string(update.Kind))
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return r, err
}

func (d *DB) DeleteRecord(ctx context.Context, delete *store.DeleteRecord) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM record WHERE id = $1 AND owner = $2 AND kind = $3`,
		delete.ID, delete.Owner, string(delete.Kind))
	if err != nil {
		return errors.Wrap(err, "failed to delete record")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*store.Record, error) {
	var (
		r    store.Record
		kind string
		data string
	)
	if err := s.Scan(&r.ID, &r.Owner, &kind, &data, &r.CreatedTs, &r.UpdatedTs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan record")
	}
	r.Kind = store.Kind(kind)
	r.Data = []byte(data)
	return &r, nil
}
