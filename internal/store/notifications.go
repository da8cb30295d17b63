package store

import (
	"context"
	"database/sql"

	verr "vaulta/internal/errors"
	"vaulta/internal/notify"
)

// PutTemplate inserts or replaces a notification template.
func (s *Store) PutTemplate(ctx context.Context, t *notify.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (name, subject, body)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			subject = excluded.subject,
			body = excluded.body`,
		t.Name, t.Subject, t.Body)
	if err != nil {
		return verr.WrapStore("insert", "notifications", err)
	}
	return nil
}

// GetTemplate fetches a notification template by name.
func (s *Store) GetTemplate(ctx context.Context, name string) (*notify.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t notify.Template
	err := s.db.QueryRowContext(ctx,
		`SELECT name, subject, body FROM notifications WHERE name = ?`, name).
		Scan(&t.Name, &t.Subject, &t.Body)
	if err == sql.ErrNoRows {
		return nil, verr.ErrNotFound
	}
	if err != nil {
		return nil, verr.WrapStore("query", "notifications", err)
	}
	return &t, nil
}

// ListTemplates returns the names of all stored templates.
func (s *Store) ListTemplates(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM notifications ORDER BY name`)
	if err != nil {
		return nil, verr.WrapStore("query", "notifications", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, verr.WrapStore("query", "notifications", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.WrapStore("query", "notifications", err)
	}
	return out, nil
}
