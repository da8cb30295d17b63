package intake

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"vaulta/internal/crypto"
	verr "vaulta/internal/errors"
	"vaulta/internal/eval"
	"vaulta/internal/metrics"
	"vaulta/internal/store"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "vault.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	c, err := crypto.New(crypto.MinIterations, nil)
	if err != nil {
		t.Fatalf("crypto.New: %v", err)
	}
	rec, err := eval.NewRecorder("eval-salt", nil)
	if err != nil {
		t.Fatalf("eval.NewRecorder: %v", err)
	}
	return Deps{
		Store:    s,
		Cipher:   c,
		Recorder: rec,
		Log:      zap.NewNop(),
		Metrics:  metrics.New(),
	}
}

func TestCompleteAndResume(t *testing.T) {
	deps := testDeps(t)
	ctx := context.Background()

	s := New(deps, "alice", "correct horse")
	if err := s.SetAnswer("report_text", "what happened"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetContact("Alex", "alex@example.com", "", "", ""); err != nil {
		t.Fatal(err)
	}

	r, err := s.Complete(ctx)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if r.ID == "" || r.Salt == "" || len(r.Encrypted) == 0 {
		t.Fatalf("completed record not sealed: %+v", r)
	}

	resumed, err := Resume(ctx, deps, r.ID, "alice", "correct horse")
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if !resumed.Editing() {
		t.Error("resumed session not marked as editing")
	}
	got, ok := resumed.Answer("report_text")
	if !ok || got != "what happened" {
		t.Errorf("Answer(report_text) = %v, %v", got, ok)
	}
	if resumed.Report().ContactEmail != "alex@example.com" {
		t.Errorf("contact email = %q", resumed.Report().ContactEmail)
	}
}

func TestResumeWrongOwner(t *testing.T) {
	deps := testDeps(t)
	ctx := context.Background()

	s := New(deps, "alice", "key")
	s.SetAnswer("report_text", "text")
	r, err := s.Complete(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Resume(ctx, deps, r.ID, "mallory", "key"); err != verr.ErrNotOwner {
		t.Errorf("Resume() error = %v, want ErrNotOwner", err)
	}
}

func TestResumeWrongKey(t *testing.T) {
	deps := testDeps(t)
	ctx := context.Background()

	s := New(deps, "alice", "right key")
	s.SetAnswer("report_text", "text")
	r, err := s.Complete(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Resume(ctx, deps, r.ID, "alice", "wrong key"); !verr.IsWrongKey(err) {
		t.Errorf("Resume() error = %v, want wrong-key", err)
	}
}

func TestResumeMissingReport(t *testing.T) {
	deps := testDeps(t)
	if _, err := Resume(context.Background(), deps, "missing", "alice", "key"); err != verr.ErrNotFound {
		t.Errorf("Resume() error = %v, want ErrNotFound", err)
	}
}

func TestEditKeepsSaltAndUpdatesText(t *testing.T) {
	deps := testDeps(t)
	ctx := context.Background()

	s := New(deps, "alice", "key")
	s.SetAnswer("report_text", "first version")
	r, err := s.Complete(ctx)
	if err != nil {
		t.Fatal(err)
	}
	salt := r.Salt

	edit, err := Resume(ctx, deps, r.ID, "alice", "key")
	if err != nil {
		t.Fatal(err)
	}
	edit.SetAnswer("report_text", "second version")
	edited, err := edit.Complete(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if edited.Salt != salt {
		t.Error("editing changed the record salt")
	}
	if edited.LastEdited.IsZero() {
		t.Error("edit did not set last-edited time")
	}

	check, err := Resume(ctx, deps, r.ID, "alice", "key")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := check.Answer("report_text"); got != "second version" {
		t.Errorf("Answer(report_text) = %v", got)
	}
}

func TestAutosaveKeepsSessionOpen(t *testing.T) {
	deps := testDeps(t)
	ctx := context.Background()

	s := New(deps, "alice", "key")
	s.SetAnswer("report_text", "draft")
	if err := s.Autosave(ctx); err != nil {
		t.Fatalf("Autosave() error = %v", err)
	}

	saved, err := deps.Store.GetReport(ctx, s.Report().ID)
	if err != nil {
		t.Fatalf("autosaved record not stored: %v", err)
	}
	if !saved.Autosaved {
		t.Error("autosave flag not set")
	}

	// Still answerable and completable after an autosave.
	if err := s.SetAnswer("report_text", "final"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Complete(ctx); err != nil {
		t.Fatalf("Complete() after autosave error = %v", err)
	}
}

func TestClosedSessionRejectsEverything(t *testing.T) {
	deps := testDeps(t)
	ctx := context.Background()

	s := New(deps, "alice", "key")
	s.SetAnswer("report_text", "text")
	if _, err := s.Complete(ctx); err != nil {
		t.Fatal(err)
	}

	if err := s.SetAnswer("report_text", "more"); err != verr.ErrSessionClosed {
		t.Errorf("SetAnswer() error = %v, want ErrSessionClosed", err)
	}
	if err := s.SetContact("n", "e", "", "", ""); err != verr.ErrSessionClosed {
		t.Errorf("SetContact() error = %v, want ErrSessionClosed", err)
	}
	if err := s.Autosave(ctx); err != verr.ErrSessionClosed {
		t.Errorf("Autosave() error = %v, want ErrSessionClosed", err)
	}
	if _, err := s.Complete(ctx); err != verr.ErrSessionClosed {
		t.Errorf("Complete() error = %v, want ErrSessionClosed", err)
	}
}

func TestCompleteWritesEvalRow(t *testing.T) {
	deps := testDeps(t)
	ctx := context.Background()

	s := New(deps, "alice", "key")
	s.SetAnswer("report_text", "text")
	if _, err := s.Complete(ctx); err != nil {
		t.Fatal(err)
	}

	rows, err := deps.Store.EvalRows(ctx, eval.ActionCreate)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("eval rows = %d, want 1", len(rows))
	}
	if rows[0].UserIdentifier == "alice" {
		t.Error("eval row leaks the owner ID")
	}
}
