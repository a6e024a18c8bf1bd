package session

import (
	"sync"
	"time"
)

// Activity is the last-activity timestamp shared by the validator and the
// token store. It is not persisted.
type Activity struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewActivity returns an Activity marked at the current time. A nil clock
// uses time.Now.
func NewActivity(now func() time.Time) *Activity {
	if now == nil {
		now = time.Now
	}
	return &Activity{now: now, last: now()}
}

// Touch records activity at t. Earlier timestamps are ignored.
func (a *Activity) Touch(t time.Time) {
	a.mu.Lock()
	if t.After(a.last) {
		a.last = t
	}
	a.mu.Unlock()
}

// Mark records activity now.
func (a *Activity) Mark() {
	a.Touch(a.now())
}

// Last returns the most recent activity.
func (a *Activity) Last() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Idle returns the time since the last activity.
func (a *Activity) Idle() time.Duration {
	return a.now().Sub(a.Last())
}
