// Package match implements perpetrator matching: escrowed copies of a
// record sealed under a perpetrator identifier, and an engine that
// declares a match when entries from distinct owners decrypt under the
// same identifier.
package match

import (
	"time"

	"github.com/google/uuid"

	"vaulta/internal/crypto"
	verr "vaulta/internal/errors"
	"vaulta/internal/record"
)

// Entry is one escrowed matching copy. A single report can have
// several entries, one per perpetrator identifier.
//
// Identifier is held only until the next matching run consumes it;
// after that the sealed payload is the sole trace of the identifier.
type Entry struct {
	ID           string
	ReportID     string
	OwnerID      string
	ContactEmail string
	Identifier   string // cleared after the entry is seen by a run
	Added        time.Time
	Seen         bool
	Encrypted    []byte // peppered on top of the identifier seal
	Salt         string
}

// NewEntry creates an escrow entry for the given report.
func NewEntry(r *record.Report, contactEmail string) *Entry {
	return &Entry{
		ID:           uuid.NewString(),
		ReportID:     r.ID,
		OwnerID:      r.OwnerID,
		ContactEmail: contactEmail,
		Added:        time.Now().UTC(),
	}
}

// Seal encrypts text under the identifier and wraps it with the server
// pepper. A fresh salt is generated on every seal.
func (e *Entry) Seal(c *crypto.Cipher, text, identifier string) error {
	salt, err := crypto.RandomSalt()
	if err != nil {
		return err
	}
	sealed, err := c.Seal(text, identifier, salt)
	if err != nil {
		return err
	}
	peppered, err := c.Pepper(sealed)
	if err != nil {
		return err
	}
	e.Salt = salt
	e.Encrypted = peppered
	e.Identifier = identifier
	return nil
}

// Try checks whether identifier decrypts this entry. It returns the
// record text on a hit and ok=false on a mismatch. A pepper failure is
// an operational error, not a mismatch, and is returned as such.
func (e *Entry) Try(c *crypto.Cipher, identifier string) (text string, ok bool, err error) {
	sealed, err := c.Unpepper(e.Encrypted)
	if err != nil {
		return "", false, err
	}
	plain, err := c.Open(sealed, identifier, e.Salt)
	if err != nil {
		if verr.IsWrongKey(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return plain, true, nil
}
