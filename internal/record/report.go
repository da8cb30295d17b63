// Package record defines the Report aggregate: the full text of a
// reported incident, sealed under a key only the owner holds.
package record

import (
	"time"

	"github.com/google/uuid"

	"vaulta/internal/crypto"
)

// Report is one stored incident record. Encrypted and Salt are the only
// representation of the record text the vault ever persists.
type Report struct {
	ID         string
	OwnerID    string
	Encrypted  []byte
	Salt       string
	Added      time.Time
	LastEdited time.Time // zero until the first edit
	Autosaved  bool

	// Contact details are provided voluntarily for coordinator
	// follow-up and stored outside the sealed payload.
	ContactName      string
	ContactEmail     string
	ContactPhone     string
	ContactVoicemail string
	ContactNotes     string

	Submitted  time.Time // zero until submitted to the coordinator
	MatchFound bool
}

// New creates an empty report owned by ownerID.
func New(ownerID string) *Report {
	return &Report{
		ID:      uuid.NewString(),
		OwnerID: ownerID,
		Added:   time.Now().UTC(),
	}
}

// SealOptions control how Seal treats an existing record.
type SealOptions struct {
	// Edit marks this seal as a deliberate edit, refreshing LastEdited.
	Edit bool
	// Autosave marks this seal as an automatic save.
	Autosave bool
}

// Seal encrypts text and attaches it to the report. The first seal
// generates the record's salt; later seals reuse it so the same key
// keeps working.
func (r *Report) Seal(c *crypto.Cipher, text, key string, opts SealOptions) error {
	if r.Salt == "" {
		salt, err := crypto.RandomSalt()
		if err != nil {
			return err
		}
		r.Salt = salt
	} else if opts.Edit {
		r.LastEdited = time.Now().UTC()
	}
	r.Autosaved = opts.Autosave

	sealed, err := c.Seal(text, key, r.Salt)
	if err != nil {
		return err
	}
	r.Encrypted = sealed
	return nil
}

// Open decrypts the record text. Returns ErrWrongKey when the key and
// stored salt fail to authenticate the record.
func (r *Report) Open(c *crypto.Cipher, key string) (string, error) {
	return c.Open(r.Encrypted, key, r.Salt)
}

// IsSubmitted reports whether the record has been sent to the
// coordinator.
func (r *Report) IsSubmitted() bool { return !r.Submitted.IsZero() }

// OwnedBy reports whether ownerID owns this record.
func (r *Report) OwnedBy(ownerID string) bool { return r.OwnerID == ownerID }
