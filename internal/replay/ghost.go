package replay

import (
	"context"
	"sort"
	"time"

	"github.com/verte-zerg/typerace/internal/model"
)

// Resolve returns the cursor index of the last point whose elapsed time is at
// or before elapsedMs. Queries before the first point use the first point and
// queries past the end clamp to the last.
func Resolve(timeline []model.TimelinePoint, elapsedMs int64) int {
	if len(timeline) == 0 {
		return 0
	}
	i := sort.Search(len(timeline), func(i int) bool {
		return timeline[i].ElapsedMs > elapsedMs
	})
	if i == 0 {
		return timeline[0].CursorIndex
	}
	return timeline[i-1].CursorIndex
}

// Ghost replays a recorded timeline anchored to the start of a new run.
type Ghost struct {
	timeline  []model.TimelinePoint
	startedAt time.Time
	started   bool
}

// Arm builds a ghost from rec if it was recorded for the same mode over the
// exact same target.
func Arm(rec model.RunRecord, mode model.Mode, target string) (*Ghost, bool) {
	if rec.Mode != mode || rec.Fingerprint != Fingerprint(target) || len(rec.Timeline) == 0 {
		return nil, false
	}
	tl := make([]model.TimelinePoint, len(rec.Timeline))
	copy(tl, rec.Timeline)
	return &Ghost{timeline: tl}, true
}

// Load fetches the stored record for mode and arms it for target. It returns
// ErrNoRecord when nothing matches.
func Load(ctx context.Context, store Store, mode model.Mode, target string) (*Ghost, error) {
	if store == nil {
		return nil, ErrNoRecord
	}
	rec, ok, err := store.LoadRecord(ctx, mode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoRecord
	}
	g, ok := Arm(rec, mode, target)
	if !ok {
		return nil, ErrNoRecord
	}
	return g, nil
}

// Start anchors replay at now. Later calls are ignored.
func (g *Ghost) Start(now time.Time) {
	if g.started {
		return
	}
	g.started = true
	g.startedAt = now
}

// Started reports whether replay has been anchored.
func (g *Ghost) Started() bool { return g.started }

// Index resolves the ghost cursor at now. done is true once the timeline is
// exhausted.
func (g *Ghost) Index(now time.Time) (idx int, done bool) {
	if !g.started {
		return Resolve(g.timeline, 0), false
	}
	elapsed := now.Sub(g.startedAt).Milliseconds()
	last := g.timeline[len(g.timeline)-1]
	return Resolve(g.timeline, elapsed), elapsed >= last.ElapsedMs
}

// Play emits the resolved index every interval until the timeline ends or ctx
// is cancelled, then closes the channel. Only the latest index is buffered so
// a slow reader never blocks the ticker. Start must be called first.
func (g *Ghost) Play(ctx context.Context, clock func() time.Time, interval time.Duration) <-chan int {
	out := make(chan int, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			idx, done := g.Index(clock())
			select {
			case <-out:
			default:
			}
			select {
			case out <- idx:
			case <-ctx.Done():
				return
			}
			if done {
				return
			}
		}
	}()
	return out
}

// Timeline returns a copy of the replayed points.
func (g *Ghost) Timeline() []model.TimelinePoint {
	out := make([]model.TimelinePoint, len(g.timeline))
	copy(out, g.timeline)
	return out
}
