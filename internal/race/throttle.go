package race

import (
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing of progress publications.
const DefaultInterval = 150 * time.Millisecond

// Update is one progress publication.
type Update struct {
	Progress int
	WPM      float64
}

// Throttle gates progress publications. At most one update passes per
// interval; a suppressed update waits in a single slot and is replaced by any
// newer one.
type Throttle struct {
	limiter *rate.Limiter
	pending *Update
}

// NewThrottle creates a throttle allowing one update per interval.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Offer returns u when it may be sent now. Otherwise u becomes the pending
// update.
func (t *Throttle) Offer(now time.Time, u Update) (Update, bool) {
	if t.limiter.AllowN(now, 1) {
		t.pending = nil
		return u, true
	}
	t.pending = &u
	return Update{}, false
}

// Drain returns the pending update if the interval has elapsed.
func (t *Throttle) Drain(now time.Time) (Update, bool) {
	if t.pending == nil {
		return Update{}, false
	}
	if !t.limiter.AllowN(now, 1) {
		return Update{}, false
	}
	u := *t.pending
	t.pending = nil
	return u, true
}

// Flush discards any pending update regardless of the interval. It reports
// whether one was pending.
func (t *Throttle) Flush() (Update, bool) {
	if t.pending == nil {
		return Update{}, false
	}
	u := *t.pending
	t.pending = nil
	return u, true
}

// Pending reports whether an update is waiting.
func (t *Throttle) Pending() bool { return t.pending != nil }
