// Package errors provides domain-specific error types for vaulta.
//
// These types carry structured context (operation, record identity,
// recoverability) that helps callers decide how to handle failures and
// provides better diagnostics than plain string wrapping.
package errors

import (
	"errors"
	"fmt"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrWrongKey      = errors.New("record key does not decrypt this record")
	ErrWrongPepper   = errors.New("server pepper does not decrypt this entry")
	ErrNotFound      = errors.New("record not found")
	ErrNotOwner      = errors.New("record belongs to a different owner")
	ErrNoRecipient   = errors.New("no recipient address configured")
	ErrSessionClosed = errors.New("intake session is closed")
)

// ── Structured error types ───────────────────────────────────────────

// CryptoError represents a failure to seal or open encrypted content.
// It deliberately carries no plaintext and no key material.
type CryptoError struct {
	Op  string // operation: "stretch", "seal", "open", "pepper", "unpepper"
	Err error  // underlying error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto %s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// StoreError represents a persistence failure with table context.
type StoreError struct {
	Op    string // "insert", "update", "delete", "query", "migrate"
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// DeliveryError represents a failure to deliver a submission or
// notification, with retryability context for the backoff loop.
type DeliveryError struct {
	Op        string // "render", "sign", "send"
	Recipient string
	Err       error
	Retryable bool // whether the caller should retry
}

func (e *DeliveryError) Error() string {
	s := fmt.Sprintf("delivery %s %s: %v", e.Op, e.Recipient, e.Err)
	if e.Retryable {
		s += " (retryable)"
	}
	return s
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: %s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// WrapCrypto creates a CryptoError.
func WrapCrypto(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// WrapStore creates a StoreError.
func WrapStore(op, table string, err error) *StoreError {
	return &StoreError{Op: op, Table: table, Err: err}
}

// WrapDelivery creates a DeliveryError, automatically classifying
// retryability from the underlying error.
func WrapDelivery(op, recipient string, err error) *DeliveryError {
	return &DeliveryError{
		Op:        op,
		Recipient: recipient,
		Err:       err,
		Retryable: classifyRetryable(err),
	}
}

// ── Classification helpers ───────────────────────────────────────────

// IsWrongKey reports whether err means the supplied key or identifier
// failed to decrypt, as opposed to an operational failure.
func IsWrongKey(err error) bool {
	return errors.Is(err, ErrWrongKey) || errors.Is(err, ErrWrongPepper)
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return classifyRetryable(err)
}

// classifyRetryable distinguishes transient transport failures from
// permanent ones. Crypto and ownership failures never retry.
func classifyRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsWrongKey(err) || errors.Is(err, ErrNotOwner) || errors.Is(err, ErrNotFound) {
		return false
	}
	var ce *CryptoError
	if errors.As(err, &ce) {
		return false
	}
	var se *StoreError
	if errors.As(err, &se) {
		return false
	}
	// Anything that reached the wire (SMTP dial, TLS, write) is assumed
	// transient unless proven otherwise.
	return true
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use vaulta/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
