package store

import (
	"context"

	verr "vaulta/internal/errors"
	"vaulta/internal/eval"
)

// AddEvalRow persists one anonymised evaluation row.
func (s *Store) AddEvalRow(ctx context.Context, row *eval.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO eval_rows (
			id, action, user_identifier, record_identifier, snapshot, timestamp
		) VALUES (?, ?, ?, ?, ?, ?)`,
		row.ID, string(row.Action), row.UserIdentifier, row.RecordIdentifier,
		row.Snapshot, row.Timestamp)
	if err != nil {
		return verr.WrapStore("insert", "eval_rows", err)
	}
	return nil
}

// EvalRows returns every evaluation row for a given action, oldest
// first. An empty action returns all rows.
func (s *Store) EvalRows(ctx context.Context, action eval.Action) ([]*eval.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, action, user_identifier, record_identifier,
		COALESCE(snapshot, X''), timestamp FROM eval_rows`
	args := []interface{}{}
	if action != "" {
		query += ` WHERE action = ?`
		args = append(args, string(action))
	}
	query += ` ORDER BY timestamp`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, verr.WrapStore("query", "eval_rows", err)
	}
	defer rows.Close()

	var out []*eval.Row
	for rows.Next() {
		var (
			r   eval.Row
			act string
		)
		if err := rows.Scan(&r.ID, &act, &r.UserIdentifier,
			&r.RecordIdentifier, &r.Snapshot, &r.Timestamp); err != nil {
			return nil, verr.WrapStore("query", "eval_rows", err)
		}
		r.Action = eval.Action(act)
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.WrapStore("query", "eval_rows", err)
	}
	return out, nil
}
