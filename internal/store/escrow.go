package store

import (
	"context"
	"database/sql"
	"strings"

	verr "vaulta/internal/errors"
	"vaulta/internal/match"
)

// AddEntry persists an escrow entry.
func (s *Store) AddEntry(ctx context.Context, e *match.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_entries (
			id, report_id, owner_id, contact_email, identifier,
			added, seen, encrypted, salt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ReportID, e.OwnerID, e.ContactEmail,
		nullString(e.Identifier), e.Added, e.Seen, e.Encrypted, e.Salt)
	if err != nil {
		return verr.WrapStore("insert", "match_entries", err)
	}
	return nil
}

// EntriesByReport returns all escrow entries for a report.
func (s *Store) EntriesByReport(ctx context.Context, reportID string) ([]*match.Entry, error) {
	return s.queryEntries(ctx, `WHERE report_id = ?`, reportID)
}

// PendingEntries returns entries whose identifier has not been consumed
// by a matching run.
func (s *Store) PendingEntries(ctx context.Context) ([]*match.Entry, error) {
	return s.queryEntries(ctx, `WHERE seen = 0 AND identifier IS NOT NULL`)
}

// AllEntries returns every escrow entry.
func (s *Store) AllEntries(ctx context.Context) ([]*match.Entry, error) {
	return s.queryEntries(ctx, ``)
}

// DeleteEntriesByReport removes a report's escrow entries (withdrawal).
func (s *Store) DeleteEntriesByReport(ctx context.Context, reportID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM match_entries WHERE report_id = ?`, reportID)
	if err != nil {
		return verr.WrapStore("delete", "match_entries", err)
	}
	return nil
}

// MarkSeen marks entries as seen and clears their plaintext
// identifiers. After this only the sealed payload can reproduce the
// identifier, and only for someone who already knows it.
func (s *Store) MarkSeen(ctx context.Context, entryIDs []string) error {
	if len(entryIDs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `UPDATE match_entries SET seen = 1, identifier = NULL
		WHERE id IN (` + placeholders(len(entryIDs)) + `)`
	_, err := s.db.ExecContext(ctx, query, stringArgs(entryIDs)...)
	if err != nil {
		return verr.WrapStore("update", "match_entries", err)
	}
	return nil
}

// MarkMatchFound flags the given reports as matched.
func (s *Store) MarkMatchFound(ctx context.Context, reportIDs []string) error {
	if len(reportIDs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `UPDATE reports SET match_found = 1
		WHERE id IN (` + placeholders(len(reportIDs)) + `)`
	_, err := s.db.ExecContext(ctx, query, stringArgs(reportIDs)...)
	if err != nil {
		return verr.WrapStore("update", "reports", err)
	}
	return nil
}

// ClearMatchFound resets the match flag on one report (withdrawal).
func (s *Store) ClearMatchFound(ctx context.Context, reportID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE reports SET match_found = 0 WHERE id = ?`, reportID)
	if err != nil {
		return verr.WrapStore("update", "reports", err)
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────

func (s *Store) queryEntries(ctx context.Context, where string, args ...interface{}) ([]*match.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, report_id, owner_id, contact_email, identifier,
		       added, seen, encrypted, salt
		FROM match_entries ` + where + ` ORDER BY added`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, verr.WrapStore("query", "match_entries", err)
	}
	defer rows.Close()

	var out []*match.Entry
	for rows.Next() {
		var (
			e     match.Entry
			ident sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ReportID, &e.OwnerID, &e.ContactEmail,
			&ident, &e.Added, &e.Seen, &e.Encrypted, &e.Salt); err != nil {
			return nil, verr.WrapStore("query", "match_entries", err)
		}
		e.Identifier = ident.String
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.WrapStore("query", "match_entries", err)
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// nullString maps the empty string to NULL.
func nullString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
