package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/coworkr/store"
)

func (d *DB) CreateRecord(ctx context.Context, create *store.Record) (*store.Record, error) {
	fields := []string{"id", "owner", "kind", "data", "created_ts", "updated_ts"}
	args := []any{create.ID, create.Owner, string(create.Kind), string(create.Data), create.CreatedTs, create.UpdatedTs}

	stmt := `INSERT INTO record (` + strings.Join(fields, ", ") + `) VALUES (` + placeholders(len(args)) + `)`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
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

	query := `SELECT id, owner, kind, data, created_ts, updated_ts FROM record WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_ts ASC, id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list records")
	}
	defer rows.Close()

	list := []*store.Record{}
	for rows.Next() {
		var (
			r    store.Record
			kind string
			data string
		)
		if err := rows.Scan(&r.ID, &r.Owner, &kind, &data, &r.CreatedTs, &r.UpdatedTs); err != nil {
			return nil, errors.Wrap(err, "failed to scan record")
		}
		r.Kind = store.Kind(kind)
		r.Data = []byte(data)
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateRecord(ctx context.Context, update *store.UpdateRecord) (*store.Record, error) {
	stmt := `UPDATE record SET data = ?, updated_ts = ? WHERE id = ? AND owner = ? AND kind = ?`
	result, err := d.db.ExecContext(ctx, stmt, string(update.Data), update.UpdatedTs, update.ID, update.Owner, string(update.Kind))
	if err != nil {
		return nil, errors.Wrap(err, "failed to update record")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound
	}

	var r store.Record
	var kind, data string
	err = d.db.QueryRowContext(ctx, `SELECT id, owner, kind, data, created_ts, updated_ts FROM record WHERE id = ?`, update.ID).
		Scan(&r.ID, &r.Owner, &kind, &data, &r.CreatedTs, &r.UpdatedTs)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to reload record")
	}
	r.Kind = store.Kind(kind)
	r.Data = []byte(data)
	return &r, nil
}

func (d *DB) DeleteRecord(ctx context.Context, delete *store.DeleteRecord) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM record WHERE id = ? AND owner = ? AND kind = ?`,
		delete.ID, delete.Owner, string(delete.Kind))
	if err != nil {
		return errors.Wrap(err, "failed to delete record")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
