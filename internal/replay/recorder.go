// Package replay records cursor timelines of completed runs and replays them
// as a ghost cursor on later attempts over the same text.
package replay

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/typerace/internal/model"
)

// ErrNoRecord is returned when no replay record matches the upcoming run.
var ErrNoRecord = errors.New("no replay record")

// Store persists one RunRecord per mode. SaveRecord overwrites wholesale.
type Store interface {
	LoadRecord(ctx context.Context, mode model.Mode) (model.RunRecord, bool, error)
	SaveRecord(ctx context.Context, rec model.RunRecord) error
}

// Fingerprint identifies a target text exactly.
func Fingerprint(target string) string {
	sum := sha256.Sum256([]byte(target))
	return hex.EncodeToString(sum[:])
}

// Recorder builds the timeline of the current run.
type Recorder struct {
	store Store

	mode        model.Mode
	limit       model.Limit
	fingerprint string
	startedAt   time.Time
	timeline    []model.TimelinePoint
	recording   bool
}

// NewRecorder creates a recorder persisting into store. A nil store keeps
// timelines in memory only.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Start opens a new timeline seeded at {0, 0}. It is called when a run
// becomes active.
func (r *Recorder) Start(target string, mode model.Mode, limit model.Limit, now time.Time) {
	r.mode = mode
	r.limit = limit
	r.fingerprint = Fingerprint(target)
	r.startedAt = now
	r.timeline = []model.TimelinePoint{{ElapsedMs: 0, CursorIndex: 0}}
	r.recording = true
}

// Observe appends a point when index differs from the last recorded index.
// It reports whether a point was appended.
func (r *Recorder) Observe(now time.Time, index int) bool {
	if !r.recording {
		return false
	}
	last := r.timeline[len(r.timeline)-1]
	if last.CursorIndex == index {
		return false
	}
	elapsed := now.Sub(r.startedAt).Milliseconds()
	if elapsed < last.ElapsedMs {
		elapsed = last.ElapsedMs
	}
	r.timeline = append(r.timeline, model.TimelinePoint{ElapsedMs: elapsed, CursorIndex: index})
	return true
}

// Finish closes the timeline and persists it keyed by mode. Timelines holding
// only the seed point are discarded and reported as not saved.
func (r *Recorder) Finish(ctx context.Context, completedAt time.Time) (model.RunRecord, bool, error) {
	if !r.recording {
		return model.RunRecord{}, false, nil
	}
	r.recording = false
	if len(r.timeline) < 2 {
		return model.RunRecord{}, false, nil
	}
	rec := model.RunRecord{
		Fingerprint: r.fingerprint,
		Timeline:    r.Timeline(),
		Mode:        r.mode,
		LimitKind:   r.limit.Kind,
		LimitValue:  r.limit.Value,
		CompletedAt: completedAt,
	}
	if r.store == nil {
		return rec, false, nil
	}
	if err := r.store.SaveRecord(ctx, rec); err != nil {
		return rec, false, fmt.Errorf("failed to save replay record: %w", err)
	}
	return rec, true, nil
}

// Cancel drops the in-progress timeline without persisting it.
func (r *Recorder) Cancel() {
	r.recording = false
	r.timeline = nil
}

// Recording reports whether a timeline is open.
func (r *Recorder) Recording() bool { return r.recording }

// Timeline returns a copy of the recorded points.
func (r *Recorder) Timeline() []model.TimelinePoint {
	out := make([]model.TimelinePoint, len(r.timeline))
	copy(out, r.timeline)
	return out
}
