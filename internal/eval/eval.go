// Package eval builds anonymised evaluation rows: which actions happen
// in the vault, without revealing who did them or what the records say.
// Identifiers are HMAC-hashed under a dedicated salt, and the record
// snapshot is sealed to an evaluator public key the server does not
// hold the counterpart of.
package eval

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/nacl/box"

	verr "vaulta/internal/errors"
)

// Action labels what happened to a record.
type Action string

const (
	ActionCreate        Action = "CREATE"
	ActionEdit          Action = "EDIT"
	ActionView          Action = "VIEW"
	ActionSubmit        Action = "SUBMIT"
	ActionMatch         Action = "MATCH"
	ActionEnterMatching Action = "ENTER_MATCHING"
	ActionWithdraw      Action = "WITHDRAW"
	ActionAutosave      Action = "AUTOSAVE"
	ActionDelete        Action = "DELETE"
)

// Row is one anonymised evaluation record.
type Row struct {
	ID               string
	Action           Action
	UserIdentifier   string // HMAC of the owner ID, hex
	RecordIdentifier string // HMAC of the record ID, hex
	Snapshot         []byte // anonymous box seal of the record JSON, nil when no key
	Timestamp        time.Time
}

// Recorder hashes identifiers and seals snapshots. A Recorder with no
// public key still produces rows, just without snapshots.
type Recorder struct {
	salt      []byte
	publicKey *[32]byte
}

// NewRecorder creates a Recorder. publicKey must be nil or 32 bytes.
func NewRecorder(salt string, publicKey []byte) (*Recorder, error) {
	if salt == "" {
		return nil, &verr.ConfigError{
			Field:   "eval-salt",
			Message: "an evaluation salt is required to anonymise identifiers",
		}
	}
	r := &Recorder{salt: []byte(salt)}
	if publicKey != nil {
		if len(publicKey) != 32 {
			return nil, &verr.ConfigError{
				Field:   "eval-public-key",
				Value:   len(publicKey),
				Message: "must be exactly 32 bytes",
			}
		}
		r.publicKey = new([32]byte)
		copy(r.publicKey[:], publicKey)
	}
	return r, nil
}

// Row builds an evaluation row for the given action. snapshot is the
// decrypted record content (any JSON-marshalable value); pass nil for
// actions that never see plaintext.
func (r *Recorder) Row(action Action, ownerID, recordID string, snapshot interface{}) (*Row, error) {
	row := &Row{
		ID:               uuid.NewString(),
		Action:           action,
		UserIdentifier:   r.anonymise(ownerID),
		RecordIdentifier: r.anonymise(recordID),
		Timestamp:        time.Now().UTC(),
	}
	if snapshot != nil && r.publicKey != nil {
		// json.Marshal emits map keys in sorted order, so identical
		// snapshots produce identical pre-seal bytes.
		plain, err := json.Marshal(snapshot)
		if err != nil {
			return nil, verr.WrapCrypto("seal", err)
		}
		sealed, err := box.SealAnonymous(nil, plain, r.publicKey, rand.Reader)
		if err != nil {
			return nil, verr.WrapCrypto("seal", err)
		}
		row.Snapshot = sealed
	}
	return row, nil
}

// anonymise maps an identifier to a stable, non-reversible token.
func (r *Recorder) anonymise(id string) string {
	mac := hmac.New(sha256.New, r.salt)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

// OpenSnapshot decrypts a sealed snapshot given the evaluator keypair.
// It exists for the evaluator tooling and for tests; the vault itself
// never holds the private key.
func OpenSnapshot(sealed []byte, publicKey, privateKey *[32]byte) ([]byte, error) {
	plain, ok := box.OpenAnonymous(nil, sealed, publicKey, privateKey)
	if !ok {
		return nil, verr.ErrWrongKey
	}
	return plain, nil
}
