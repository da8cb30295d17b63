// Package intake implements the multi-step record intake flow: the
// key step comes first, answer steps follow, and completion seals the
// collected answers into the record. It decouples record encryption
// from whatever front end is collecting the answers — the CLI today, a
// form service tomorrow.
package intake

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"vaulta/internal/crypto"
	verr "vaulta/internal/errors"
	"vaulta/internal/eval"
	"vaulta/internal/metrics"
	"vaulta/internal/record"
	"vaulta/internal/store"
)

// Deps bundles what every session needs.
type Deps struct {
	Store    *store.Store
	Cipher   *crypto.Cipher
	Recorder *eval.Recorder
	Log      *zap.Logger
	Metrics  *metrics.Collector
}

// Session is one in-progress intake. Answers live in memory only;
// nothing unencrypted touches the store.
type Session struct {
	deps    Deps
	report  *record.Report
	key     string
	editing bool
	answers map[string]interface{}
	closed  bool
}

// New starts an intake session for a fresh record. The key is fixed at
// the start of the session, mirroring the key step coming first.
func New(deps Deps, ownerID, key string) *Session {
	return &Session{
		deps:    deps,
		report:  record.New(ownerID),
		key:     key,
		answers: map[string]interface{}{},
	}
}

// Resume opens an existing record for editing. The key must decrypt
// the record, and ownerID must own it; a mismatched owner is rejected
// before any decryption is attempted.
func Resume(ctx context.Context, deps Deps, reportID, ownerID, key string) (*Session, error) {
	r, err := deps.Store.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !r.OwnedBy(ownerID) {
		deps.Log.Error("owner mismatch on intake resume",
			zap.String("report_id", reportID))
		return nil, verr.ErrNotOwner
	}
	text, err := r.Open(deps.Cipher, key)
	if err != nil {
		deps.Metrics.DecryptFailure()
		return nil, err
	}
	deps.Metrics.RecordOpened()

	answers := map[string]interface{}{}
	if err := json.Unmarshal([]byte(text), &answers); err != nil {
		return nil, verr.WrapCrypto("open", err)
	}
	return &Session{
		deps:    deps,
		report:  r,
		key:     key,
		editing: true,
		answers: answers,
	}, nil
}

// Report exposes the session's record.
func (s *Session) Report() *record.Report { return s.report }

// Editing reports whether this session resumes an existing record.
func (s *Session) Editing() bool { return s.editing }

// Answer returns the stored answer for a step, if any.
func (s *Session) Answer(step string) (interface{}, bool) {
	v, ok := s.answers[step]
	return v, ok
}

// SetAnswer records the answer for one step.
func (s *Session) SetAnswer(step string, value interface{}) error {
	if s.closed {
		return verr.ErrSessionClosed
	}
	s.answers[step] = value
	return nil
}

// SetContact attaches voluntary contact details to the record.
func (s *Session) SetContact(name, email, phone, voicemail, notes string) error {
	if s.closed {
		return verr.ErrSessionClosed
	}
	s.report.ContactName = name
	s.report.ContactEmail = email
	s.report.ContactPhone = phone
	s.report.ContactVoicemail = voicemail
	s.report.ContactNotes = notes
	return nil
}

// Autosave seals and stores the current answers without closing the
// session.
func (s *Session) Autosave(ctx context.Context) error {
	if s.closed {
		return verr.ErrSessionClosed
	}
	if err := s.seal(record.SealOptions{Edit: s.editing, Autosave: true}); err != nil {
		return err
	}
	if err := s.deps.Store.SaveReport(ctx, s.report); err != nil {
		return err
	}
	s.deps.Log.Debug("intake autosaved", zap.String("report_id", s.report.ID))
	return s.recordEval(ctx, eval.ActionAutosave)
}

// Complete seals the answers, stores the record, writes the evaluation
// row, and closes the session. It returns the stored record.
func (s *Session) Complete(ctx context.Context) (*record.Report, error) {
	if s.closed {
		return nil, verr.ErrSessionClosed
	}
	if err := s.seal(record.SealOptions{Edit: s.editing}); err != nil {
		return nil, err
	}
	if err := s.deps.Store.SaveReport(ctx, s.report); err != nil {
		return nil, err
	}
	s.deps.Metrics.RecordSealed()

	action := eval.ActionCreate
	if s.editing {
		action = eval.ActionEdit
	}
	if err := s.recordEval(ctx, action); err != nil {
		return nil, err
	}
	s.closed = true
	s.key = ""
	s.deps.Log.Info("intake complete",
		zap.String("report_id", s.report.ID),
		zap.Bool("edit", s.editing))
	return s.report, nil
}

// seal serializes the answers with sorted keys and encrypts them into
// the record. Sorted keys keep repeated seals of the same answers
// byte-stable before nonce randomisation.
func (s *Session) seal(opts record.SealOptions) error {
	text, err := json.Marshal(s.answers)
	if err != nil {
		return verr.WrapCrypto("seal", err)
	}
	return s.report.Seal(s.deps.Cipher, string(text), s.key, opts)
}

func (s *Session) recordEval(ctx context.Context, action eval.Action) error {
	if s.deps.Recorder == nil {
		return nil
	}
	row, err := s.deps.Recorder.Row(action, s.report.OwnerID, s.report.ID, s.answers)
	if err != nil {
		return err
	}
	return s.deps.Store.AddEvalRow(ctx, row)
}
