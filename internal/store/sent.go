package store

import (
	"context"
	"database/sql"
	"time"

	verr "vaulta/internal/errors"
)

// SentKind distinguishes full submissions from match submissions.
type SentKind string

const (
	SentFull  SentKind = "full"
	SentMatch SentKind = "match"
)

// SentReport is the persisted trace of one submission. Match
// submissions link their escrow entries through sent_report_entries.
type SentReport struct {
	ID        int64
	Kind      SentKind
	Sent      time.Time
	ToAddress string
	ReportID  string // full submissions only
	Document  []byte
}

// InsertSent records a submission and returns its sequence number,
// which the delivery package folds into the coordinator report ID.
func (s *Store) InsertSent(ctx context.Context, kind SentKind, toAddress, reportID string, entryIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, verr.WrapStore("insert", "sent_reports", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sent_reports (kind, sent, to_address, report_id)
		VALUES (?, ?, ?, ?)`,
		string(kind), time.Now().UTC(), toAddress, nullString(reportID))
	if err != nil {
		return 0, verr.WrapStore("insert", "sent_reports", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, verr.WrapStore("insert", "sent_reports", err)
	}
	for _, entryID := range entryIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sent_report_entries (sent_id, entry_id)
			VALUES (?, ?)`, id, entryID); err != nil {
			return 0, verr.WrapStore("insert", "sent_report_entries", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, verr.WrapStore("insert", "sent_reports", err)
	}
	return id, nil
}

// AttachDocument stores the rendered submission document.
func (s *Store) AttachDocument(ctx context.Context, sentID int64, document []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE sent_reports SET document = ? WHERE id = ?`, document, sentID)
	if err != nil {
		return verr.WrapStore("update", "sent_reports", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return verr.ErrNotFound
	}
	return nil
}

// FirstSentForReport returns the earliest full submission of a report,
// or ErrNotFound.
func (s *Store) FirstSentForReport(ctx context.Context, reportID string) (*SentReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, sent, to_address, COALESCE(report_id, ''), COALESCE(document, X'')
		FROM sent_reports
		WHERE kind = 'full' AND report_id = ?
		ORDER BY sent LIMIT 1`, reportID)

	var sr SentReport
	var kind string
	err := row.Scan(&sr.ID, &kind, &sr.Sent, &sr.ToAddress, &sr.ReportID, &sr.Document)
	if err == sql.ErrNoRows {
		return nil, verr.ErrNotFound
	}
	if err != nil {
		return nil, verr.WrapStore("query", "sent_reports", err)
	}
	sr.Kind = SentKind(kind)
	return &sr, nil
}
