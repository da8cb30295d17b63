// Package metrics provides lightweight, lock-free counters for
// tracking runtime statistics of a vault instance.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for a vault instance.
// A nil Collector is safe to use — all methods become no-ops.
type Collector struct {
	recordsSealed   atomic.Int64
	recordsOpened   atomic.Int64
	decryptFailures atomic.Int64
	entriesEscrowed atomic.Int64
	matchesFound    atomic.Int64
	submissions     atomic.Int64
	emailsSent      atomic.Int64
	errorsTotal     atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Record metrics ───────────────────────────────────────────────────

// RecordSealed counts a successful record encryption (create or edit).
func (c *Collector) RecordSealed() {
	if c == nil {
		return
	}
	c.recordsSealed.Add(1)
}

// RecordOpened counts a successful record decryption.
func (c *Collector) RecordOpened() {
	if c == nil {
		return
	}
	c.recordsOpened.Add(1)
}

// DecryptFailure counts a failed decryption attempt (wrong key).
func (c *Collector) DecryptFailure() {
	if c == nil {
		return
	}
	c.decryptFailures.Add(1)
}

// RecordsSealed returns the lifetime seal count.
func (c *Collector) RecordsSealed() int64 {
	if c == nil {
		return 0
	}
	return c.recordsSealed.Load()
}

// DecryptFailures returns the lifetime failed-decryption count.
func (c *Collector) DecryptFailures() int64 {
	if c == nil {
		return 0
	}
	return c.decryptFailures.Load()
}

// ── Matching metrics ─────────────────────────────────────────────────

// EntryEscrowed counts an escrow entry entering matching.
func (c *Collector) EntryEscrowed() {
	if c == nil {
		return
	}
	c.entriesEscrowed.Add(1)
}

// MatchFound counts a declared match group.
func (c *Collector) MatchFound() {
	if c == nil {
		return
	}
	c.matchesFound.Add(1)
}

// MatchesFound returns the lifetime match count.
func (c *Collector) MatchesFound() int64 {
	if c == nil {
		return 0
	}
	return c.matchesFound.Load()
}

// ── Delivery metrics ─────────────────────────────────────────────────

// SubmissionSent counts a submission delivered to the coordinator.
func (c *Collector) SubmissionSent() {
	if c == nil {
		return
	}
	c.submissions.Add(1)
}

// EmailSent counts a delivered notification email.
func (c *Collector) EmailSent() {
	if c == nil {
		return
	}
	c.emailsSent.Add(1)
}

// EmailsSent returns the lifetime notification count.
func (c *Collector) EmailsSent() int64 {
	if c == nil {
		return 0
	}
	return c.emailsSent.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime          string `json:"uptime"`
	RecordsSealed   int64  `json:"records_sealed"`
	RecordsOpened   int64  `json:"records_opened"`
	DecryptFailures int64  `json:"decrypt_failures"`
	EntriesEscrowed int64  `json:"entries_escrowed"`
	MatchesFound    int64  `json:"matches_found"`
	Submissions     int64  `json:"submissions"`
	EmailsSent      int64  `json:"emails_sent"`
	ErrorsTotal     int64  `json:"errors_total"`
	LastError       string `json:"last_error,omitempty"`
	LastErrorTime   string `json:"last_error_time,omitempty"`
}

// Snapshot captures the current state of every counter.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:          time.Since(c.startTime).Round(time.Second).String(),
		RecordsSealed:   c.recordsSealed.Load(),
		RecordsOpened:   c.recordsOpened.Load(),
		DecryptFailures: c.decryptFailures.Load(),
		EntriesEscrowed: c.entriesEscrowed.Load(),
		MatchesFound:    c.matchesFound.Load(),
		Submissions:     c.submissions.Load(),
		EmailsSent:      c.emailsSent.Load(),
		ErrorsTotal:     c.errorsTotal.Load(),
		LastError:       c.lastErrorMsg,
	}
	if !c.lastError.IsZero() {
		s.LastErrorTime = c.lastError.Format(time.RFC3339)
	}
	return s
}

// JSON renders the snapshot as indented JSON.
func (c *Collector) JSON() ([]byte, error) {
	return json.MarshalIndent(c.Snapshot(), "", "  ")
}
