package record

import (
	"testing"

	"vaulta/internal/crypto"
	verr "vaulta/internal/errors"
)

func testCipher(t *testing.T) *crypto.Cipher {
	t.Helper()
	c, err := crypto.New(crypto.MinIterations, nil)
	if err != nil {
		t.Fatalf("crypto.New: %v", err)
	}
	return c
}

func TestNewReport(t *testing.T) {
	r := New("owner-1")
	if r.ID == "" {
		t.Error("ID not generated")
	}
	if r.Added.IsZero() {
		t.Error("Added not set")
	}
	if !r.OwnedBy("owner-1") || r.OwnedBy("owner-2") {
		t.Error("ownership mismatch")
	}
	if r.IsSubmitted() {
		t.Error("fresh report reports submitted")
	}
}

func TestSealGeneratesSaltOnce(t *testing.T) {
	c := testCipher(t)
	r := New("owner-1")

	if err := r.Seal(c, "first version", "key", SealOptions{}); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if r.Salt == "" {
		t.Fatal("first seal did not generate a salt")
	}
	salt := r.Salt

	if err := r.Seal(c, "second version", "key", SealOptions{Edit: true}); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if r.Salt != salt {
		t.Error("edit regenerated the salt; the old key would stop working")
	}
}

func TestSealEditSetsLastEdited(t *testing.T) {
	c := testCipher(t)
	r := New("owner-1")

	if err := r.Seal(c, "v1", "key", SealOptions{}); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !r.LastEdited.IsZero() {
		t.Error("first seal should not set LastEdited")
	}
	if err := r.Seal(c, "v2", "key", SealOptions{Edit: true}); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if r.LastEdited.IsZero() {
		t.Error("edit did not set LastEdited")
	}
}

func TestSealAutosaveFlag(t *testing.T) {
	c := testCipher(t)
	r := New("owner-1")

	if err := r.Seal(c, "v1", "key", SealOptions{Autosave: true}); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !r.Autosaved {
		t.Error("autosave flag not recorded")
	}
	if err := r.Seal(c, "v2", "key", SealOptions{Edit: true}); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if r.Autosaved {
		t.Error("deliberate seal did not clear the autosave flag")
	}
}

func TestOpenRoundtrip(t *testing.T) {
	c := testCipher(t)
	r := New("owner-1")

	if err := r.Seal(c, "the record text", "key", SealOptions{}); err != nil {
		t.Fatalf("Seal: %v", err)
	}
	got, err := r.Open(c, "key")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "the record text" {
		t.Errorf("Open = %q", got)
	}

	if _, err := r.Open(c, "wrong"); !verr.Is(err, verr.ErrWrongKey) {
		t.Errorf("Open with wrong key = %v, want ErrWrongKey", err)
	}
}
