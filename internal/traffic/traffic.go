// Package traffic keeps a short history of /predict outcomes for the health check.
package traffic

import (
	"sync"
	"time"
)

// MaxWindow is how long outcomes are retained. Health windows must not exceed it.
const MaxWindow = 15 * time.Minute

// Outcome classifies a finished /predict request.
type Outcome uint8

const (
	Success Outcome = iota
	// Failure is a scaler or model fault.
	Failure
	// Rejected is an input the validator or body limit refused.
	Rejected
)

var defaultTracker Tracker

func RecordSuccess()  { defaultTracker.Record(Success) }
func RecordError()    { defaultTracker.Record(Failure) }
func RecordRejected() { defaultTracker.Record(Rejected) }

// RequestCount returns all outcomes recorded within window.
func RequestCount(window time.Duration) int {
	return defaultTracker.Total(window)
}

// RejectedCount returns the rejections recorded within window.
func RejectedCount(window time.Duration) int {
	return defaultTracker.Count(Rejected, window)
}

// ErrorRate returns failures and failures+successes within window. Rejections are the
// caller's mistake and are left out of both.
func ErrorRate(window time.Duration) (failures, total int) {
	return defaultTracker.ErrorRate(window)
}

// Reset clears the process-wide history. For tests only.
func Reset() { defaultTracker.Reset() }

type event struct {
	at      time.Time
	outcome Outcome
}

// Tracker is a time-ordered log of outcomes. The zero value is ready to use.
type Tracker struct {
	mu     sync.Mutex
	events []event
	now    func() time.Time
}

func (t *Tracker) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

// Record appends an outcome stamped with the current time and drops entries older than
// MaxWindow.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	t.events = append(t.events, event{at: now, outcome: o})

	cutoff := now.Add(-MaxWindow)
	drop := 0
	for drop < len(t.events) && t.events[drop].at.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		t.events = append(t.events[:0], t.events[drop:]...)
	}
}

// tally counts outcomes of each kind within window.
func (t *Tracker) tally(window time.Duration) [3]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	var counts [3]int
	cutoff := t.clock().Add(-window)
	// newest entries are at the end
	for i := len(t.events) - 1; i >= 0 && !t.events[i].at.Before(cutoff); i-- {
		counts[t.events[i].outcome]++
	}
	return counts
}

func (t *Tracker) Count(o Outcome, window time.Duration) int {
	return t.tally(window)[o]
}

func (t *Tracker) Total(window time.Duration) int {
	c := t.tally(window)
	return c[Success] + c[Failure] + c[Rejected]
}

func (t *Tracker) ErrorRate(window time.Duration) (failures, total int) {
	c := t.tally(window)
	return c[Failure], c[Failure] + c[Success]
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}
