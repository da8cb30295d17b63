package store

import (
	"context"
	"database/sql"
	"time"

	verr "vaulta/internal/errors"
	"vaulta/internal/record"
)

// SaveReport inserts or updates a report.
func (s *Store) SaveReport(ctx context.Context, r *record.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (
			id, owner_id, encrypted, salt, added, last_edited, autosaved,
			contact_name, contact_email, contact_phone, contact_voicemail,
			contact_notes, submitted, match_found
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			encrypted = excluded.encrypted,
			salt = excluded.salt,
			last_edited = excluded.last_edited,
			autosaved = excluded.autosaved,
			contact_name = excluded.contact_name,
			contact_email = excluded.contact_email,
			contact_phone = excluded.contact_phone,
			contact_voicemail = excluded.contact_voicemail,
			contact_notes = excluded.contact_notes,
			submitted = excluded.submitted,
			match_found = excluded.match_found`,
		r.ID, r.OwnerID, r.Encrypted, r.Salt, r.Added,
		nullTime(r.LastEdited), r.Autosaved,
		r.ContactName, r.ContactEmail, r.ContactPhone, r.ContactVoicemail,
		r.ContactNotes, nullTime(r.Submitted), r.MatchFound)
	if err != nil {
		return verr.WrapStore("insert", "reports", err)
	}
	return nil
}

// GetReport fetches one report by ID.
func (s *Store) GetReport(ctx context.Context, id string) (*record.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, encrypted, salt, added, last_edited, autosaved,
		       contact_name, contact_email, contact_phone, contact_voicemail,
		       contact_notes, submitted, match_found
		FROM reports WHERE id = ?`, id)
	return scanReport(row)
}

// ReportsByOwner returns all reports owned by ownerID, newest first.
func (s *Store) ReportsByOwner(ctx context.Context, ownerID string) ([]*record.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, encrypted, salt, added, last_edited, autosaved,
		       contact_name, contact_email, contact_phone, contact_voicemail,
		       contact_notes, submitted, match_found
		FROM reports WHERE owner_id = ? ORDER BY added DESC`, ownerID)
	if err != nil {
		return nil, verr.WrapStore("query", "reports", err)
	}
	defer rows.Close()

	var out []*record.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, verr.WrapStore("query", "reports", err)
	}
	return out, nil
}

// DeleteReport removes a report; escrow entries cascade.
func (s *Store) DeleteReport(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = ?`, id)
	if err != nil {
		return verr.WrapStore("delete", "reports", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return verr.ErrNotFound
	}
	return nil
}

// MarkSubmitted records the submission timestamp on a report.
func (s *Store) MarkSubmitted(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE reports SET submitted = ? WHERE id = ?`, at, id)
	if err != nil {
		return verr.WrapStore("update", "reports", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return verr.ErrNotFound
	}
	return nil
}

// ── scanning helpers ─────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(sc scanner) (*record.Report, error) {
	var (
		r          record.Report
		lastEdited sql.NullTime
		submitted  sql.NullTime
		name       sql.NullString
		email      sql.NullString
		phone      sql.NullString
		voicemail  sql.NullString
		notes      sql.NullString
	)
	err := sc.Scan(&r.ID, &r.OwnerID, &r.Encrypted, &r.Salt, &r.Added,
		&lastEdited, &r.Autosaved,
		&name, &email, &phone, &voicemail, &notes,
		&submitted, &r.MatchFound)
	if err == sql.ErrNoRows {
		return nil, verr.ErrNotFound
	}
	if err != nil {
		return nil, verr.WrapStore("query", "reports", err)
	}
	r.LastEdited = lastEdited.Time
	r.Submitted = submitted.Time
	r.ContactName = name.String
	r.ContactEmail = email.String
	r.ContactPhone = phone.String
	r.ContactVoicemail = voicemail.String
	r.ContactNotes = notes.String
	return &r, nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
