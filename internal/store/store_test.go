package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typerace/internal/model"
	"github.com/verte-zerg/typerace/internal/replay"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "typerace.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestSubmitAndListResults(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	win := false
	require.NoError(t, st.SubmitResult(ctx, model.Result{Mode: model.ModeCode, WPM: 40, CompletedAt: base.Add(2 * time.Second)}))
	require.NoError(t, st.SubmitResult(ctx, model.Result{Mode: model.ModeSolo, WPM: 70, Accuracy: 97.5, CompletedAt: base.Add(500 * time.Millisecond)}))
	require.NoError(t, st.SubmitResult(ctx, model.Result{Mode: model.ModeRace, Player: "ann", WPM: 80, IsWin: &win, CompletedAt: base.Add(1500 * time.Millisecond)}))

	all, err := st.ListResults(ctx, model.StatsConfig{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []model.Mode{model.ModeSolo, model.ModeRace, model.ModeCode},
		[]model.Mode{all[0].Mode, all[1].Mode, all[2].Mode}, "ordered by completion time")
	for _, r := range all {
		require.NotEmpty(t, r.ID)
	}
	require.Nil(t, all[0].IsWin)
	require.NotNil(t, all[1].IsWin)
	require.False(t, *all[1].IsWin)
	require.Equal(t, "ann", all[1].Player)
	require.Equal(t, 97.5, all[0].Accuracy)
	require.True(t, all[0].CompletedAt.Equal(base.Add(500*time.Millisecond)))

	race, err := st.ListResults(ctx, model.StatsConfig{Mode: model.ModeRace})
	require.NoError(t, err)
	require.Len(t, race, 1)

	since := base.Add(time.Second)
	recent, err := st.ListResults(ctx, model.StatsConfig{Since: &since})
	require.NoError(t, err)
	require.Len(t, recent, 2)
}

func TestReplayRecordRoundTrip(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	_, ok, err := st.LoadRecord(ctx, model.ModeSolo)
	require.NoError(t, err)
	require.False(t, ok)

	rec := model.RunRecord{
		Fingerprint: "abc123",
		Mode:        model.ModeSolo,
		LimitKind:   model.LimitTime,
		LimitValue:  30,
		CompletedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		Timeline: []model.TimelinePoint{
			{ElapsedMs: 0, CursorIndex: 0},
			{ElapsedMs: 120, CursorIndex: 1},
			{ElapsedMs: 300, CursorIndex: 2},
			{ElapsedMs: 410, CursorIndex: 1},
			{ElapsedMs: 600, CursorIndex: 2},
		},
	}
	require.NoError(t, st.SaveRecord(ctx, rec))

	got, ok, err := st.LoadRecord(ctx, model.ModeSolo)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.Timeline, got.Timeline)
	require.Equal(t, rec.Fingerprint, got.Fingerprint)
	require.True(t, rec.CompletedAt.Equal(got.CompletedAt))

	_, ok, err = st.LoadRecord(ctx, model.ModeCode)
	require.NoError(t, err)
	require.False(t, ok, "records are keyed by mode")

	rec.Fingerprint = "def456"
	rec.Timeline = rec.Timeline[:2]
	require.NoError(t, st.SaveRecord(ctx, rec))
	got, _, err = st.LoadRecord(ctx, model.ModeSolo)
	require.NoError(t, err)
	require.Equal(t, "def456", got.Fingerprint)
	require.Len(t, got.Timeline, 2, "records are overwritten wholesale")
}

func TestRecorderToGhostThroughStore(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	target := "fox jumps"

	rec := replay.NewRecorder(st)
	rec.Start(target, model.ModeSolo, model.Limit{Kind: model.LimitTime, Value: 15}, start)
	rec.Observe(start.Add(100*time.Millisecond), 1)
	rec.Observe(start.Add(200*time.Millisecond), 2)
	rec.Observe(start.Add(250*time.Millisecond), 1)
	want, saved, err := rec.Finish(ctx, start.Add(time.Second))
	require.NoError(t, err)
	require.True(t, saved)

	g, err := replay.Load(ctx, st, model.ModeSolo, target)
	require.NoError(t, err)
	require.Equal(t, want.Timeline, g.Timeline())

	_, err = replay.Load(ctx, st, model.ModeSolo, "other text")
	require.ErrorIs(t, err, replay.ErrNoRecord)
}
