package metrics

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestCounters(t *testing.T) {
	c := New()

	c.RecordSealed()
	c.RecordSealed()
	c.RecordOpened()
	c.DecryptFailure()
	c.EntryEscrowed()
	c.MatchFound()
	c.SubmissionSent()
	c.EmailSent()
	c.EmailSent()
	c.EmailSent()

	if got := c.RecordsSealed(); got != 2 {
		t.Errorf("RecordsSealed() = %d, want 2", got)
	}
	if got := c.DecryptFailures(); got != 1 {
		t.Errorf("DecryptFailures() = %d, want 1", got)
	}
	if got := c.MatchesFound(); got != 1 {
		t.Errorf("MatchesFound() = %d, want 1", got)
	}
	if got := c.EmailsSent(); got != 3 {
		t.Errorf("EmailsSent() = %d, want 3", got)
	}
}

func TestNilCollectorIsNoOp(t *testing.T) {
	var c *Collector

	// None of these should panic.
	c.RecordSealed()
	c.RecordOpened()
	c.DecryptFailure()
	c.EntryEscrowed()
	c.MatchFound()
	c.SubmissionSent()
	c.EmailSent()
	c.RecordError("boom")

	if got := c.RecordsSealed(); got != 0 {
		t.Errorf("nil RecordsSealed() = %d, want 0", got)
	}
	if got := c.ErrorCount(); got != 0 {
		t.Errorf("nil ErrorCount() = %d, want 0", got)
	}
	if s := c.Snapshot(); s != (Snapshot{}) {
		t.Errorf("nil Snapshot() = %+v, want zero value", s)
	}
}

func TestRecordError(t *testing.T) {
	c := New()
	c.RecordError("smtp dial failed")
	c.RecordError("smtp timeout")

	if got := c.ErrorCount(); got != 2 {
		t.Errorf("ErrorCount() = %d, want 2", got)
	}
	s := c.Snapshot()
	if s.LastError != "smtp timeout" {
		t.Errorf("LastError = %q, want the most recent message", s.LastError)
	}
	if s.LastErrorTime == "" {
		t.Error("LastErrorTime not set")
	}
}

func TestSnapshotJSON(t *testing.T) {
	c := New()
	c.RecordSealed()
	c.SubmissionSent()

	data, err := c.JSON()
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("JSON() output invalid: %v", err)
	}
	if s.RecordsSealed != 1 || s.Submissions != 1 {
		t.Errorf("snapshot = %+v", s)
	}
	if s.Uptime == "" {
		t.Error("uptime missing from snapshot")
	}
}

func TestConcurrentIncrements(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordSealed()
				c.EmailSent()
			}
		}()
	}
	wg.Wait()

	if got := c.RecordsSealed(); got != 1000 {
		t.Errorf("RecordsSealed() = %d, want 1000", got)
	}
	if got := c.EmailsSent(); got != 1000 {
		t.Errorf("EmailsSent() = %d, want 1000", got)
	}
}
