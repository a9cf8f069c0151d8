package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/typerace/internal/engine"
	"github.com/verte-zerg/typerace/internal/model"
	"github.com/verte-zerg/typerace/internal/provider"
	"github.com/verte-zerg/typerace/internal/race"
	"github.com/verte-zerg/typerace/internal/replay"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type records struct {
	mu     sync.Mutex
	byMode map[model.Mode]model.RunRecord
}

func newRecords() *records { return &records{byMode: map[model.Mode]model.RunRecord{}} }

func (r *records) LoadRecord(_ context.Context, mode model.Mode) (model.RunRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byMode[mode]
	return rec, ok, nil
}

func (r *records) SaveRecord(_ context.Context, rec model.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byMode[rec.Mode] = rec
	return nil
}

type results struct {
	mu   sync.Mutex
	got  []model.Result
	fail error
}

func (r *results) SubmitResult(_ context.Context, res model.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.got = append(r.got, res)
	return nil
}

func (r *results) all() []model.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Result(nil), r.got...)
}

type fixed string

func (f fixed) FetchTarget(context.Context, model.Mode, int) (string, error) { return string(f), nil }

func typeText(s *Session, c *clock, text string) Update {
	var last Update
	for _, r := range text {
		c.Advance(100 * time.Millisecond)
		last = s.Key(engine.RuneKey(r))
	}
	return last
}

func TestSoloRunSubmitsAndRecords(t *testing.T) {
	c := newClock()
	recs := newRecords()
	subs := &results{}
	s := New(Options{
		Mode:      model.ModeSolo,
		Limit:     model.Limit{Kind: model.LimitWords, Value: 0},
		Player:    "ann",
		Provider:  fixed("ab cd"),
		Records:   recs,
		Submitter: subs,
		Clock:     c.Now,
	})
	s.Next(context.Background())
	require.Equal(t, "ab cd", s.Target())

	first := s.Key(engine.RuneKey('a'))
	require.True(t, first.Started)
	up := typeText(s, c, "b cd")
	require.True(t, up.Completed)
	s.Wait()

	res := s.Result()
	require.NotNil(t, res)
	require.Equal(t, 5, res.Correct)
	require.Equal(t, "ann", res.Player)
	require.Equal(t, model.ModeSolo, res.Mode)
	require.Nil(t, res.IsWin)
	require.Len(t, subs.all(), 1)
	require.Equal(t, res.ID, subs.all()[0].ID)

	rec, ok, err := recs.LoadRecord(context.Background(), model.ModeSolo)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 5, rec.Timeline[len(rec.Timeline)-1].CursorIndex)
}

func TestInputIgnoredWithoutTarget(t *testing.T) {
	s := New(Options{Mode: model.ModeRace, Clock: newClock().Now})
	s.Next(context.Background())
	require.Equal(t, Update{}, s.Key(engine.RuneKey('a')))
	require.Equal(t, engine.PhaseIdle, s.Engine().Phase())
}

func TestNextFallsBackWithoutProvider(t *testing.T) {
	s := New(Options{Mode: model.ModeCode, Clock: newClock().Now})
	s.Next(context.Background())
	require.Equal(t, provider.FallbackCode, s.Target())
}

func TestStaleGenerationTicksIgnored(t *testing.T) {
	c := newClock()
	s := New(Options{Limit: model.Limit{Kind: model.LimitTime, Value: 30}, Clock: c.Now})
	old := s.Load("ab cd")
	s.Key(engine.RuneKey('a'))
	fresh := s.Load("ef gh")
	require.NotEqual(t, old, fresh)

	require.False(t, s.SampleTick(old))
	require.False(t, s.CountdownTick(old))
	require.True(t, s.SampleTick(fresh), "idle runs keep their tick alive")
	require.Empty(t, s.Engine().Samples())
}

func TestCountdownExpiresRun(t *testing.T) {
	c := newClock()
	subs := &results{}
	s := New(Options{Limit: model.Limit{Kind: model.LimitTime, Value: 2}, Submitter: subs, Clock: c.Now})
	gen := s.Load("ab cd ef")
	require.True(t, s.Timed())

	s.Key(engine.RuneKey('a'))
	c.Advance(time.Second)
	require.True(t, s.SampleTick(gen))
	require.True(t, s.CountdownTick(gen))
	require.Equal(t, time.Second, s.Remaining(c.Now()))

	c.Advance(time.Second)
	require.False(t, s.CountdownTick(gen))
	require.Equal(t, engine.PhaseComplete, s.Engine().Phase())
	require.Equal(t, time.Duration(0), s.Remaining(c.Now()))
	s.Wait()
	require.Len(t, subs.all(), 1)
	require.Equal(t, int64(2000), subs.all()[0].DurationMs)
	require.False(t, s.SampleTick(gen))
}

func TestSubmitFailureIsNotFatal(t *testing.T) {
	c := newClock()
	subs := &results{fail: errors.New("offline")}
	s := New(Options{Limit: model.Limit{Kind: model.LimitWords}, Submitter: subs, Clock: c.Now})
	s.Load("ab")
	require.True(t, typeText(s, c, "ab").Completed)
	s.Wait()
	require.NotNil(t, s.Result())
	require.Empty(t, subs.all())
}

func TestGhostReplaysPreviousRun(t *testing.T) {
	c := newClock()
	recs := newRecords()
	opts := Options{Limit: model.Limit{Kind: model.LimitWords}, Records: recs, Ghost: true, Clock: c.Now}

	s := New(opts)
	s.Load("ab")
	require.Equal(t, -1, s.GhostIndex(), "no record yet")
	require.True(t, typeText(s, c, "ab").Completed)

	gen := s.Load("ab")
	require.Equal(t, 0, s.GhostIndex())
	require.Nil(t, s.GhostStream(), "replay starts with the run")

	s.Key(engine.RuneKey('a'))
	require.NotNil(t, s.GhostStream())
	s.GhostUpdate(gen, 1)
	require.Equal(t, 1, s.GhostIndex())
	s.GhostUpdate(gen-1, 2)
	require.Equal(t, 1, s.GhostIndex(), "stale updates are dropped")

	s.Load("zz")
	require.Equal(t, -1, s.GhostIndex(), "record does not match a different text")
	require.NoError(t, s.Close())
}

func TestBotOpponentReplacesStoredGhost(t *testing.T) {
	c := newClock()
	recs := newRecords()
	opts := Options{
		Limit:   model.Limit{Kind: model.LimitWords},
		Records: recs,
		Ghost:   true,
		Bot:     replay.BotExpert,
		Rand:    rand.New(rand.NewSource(1)),
		Clock:   c.Now,
	}
	s := New(opts)
	s.Load("ab cd")
	require.Equal(t, replay.BotExpert, s.Bot())
	require.Equal(t, 0, s.GhostIndex(), "bot needs no stored record")
	require.Nil(t, s.Versus())

	// 100ms per key outpaces a 90 WPM bot.
	require.True(t, typeText(s, c, "ab cd").Completed)
	v := s.Versus()
	require.NotNil(t, v)
	require.Equal(t, replay.BotExpert, v.Bot)
	require.Equal(t, 5, v.Player.Cursor)
	require.Less(t, v.Rival.Cursor, 5)
	require.Equal(t, 1, v.Outcome)

	s.Load("ab cd")
	require.Nil(t, s.Versus(), "a new run clears the comparison")
	require.NoError(t, s.Close())
}

func TestBotWinsAgainstSlowerPlayer(t *testing.T) {
	c := newClock()
	s := New(Options{Limit: model.Limit{Kind: model.LimitWords}, Bot: replay.BotEasy, Clock: c.Now})
	s.Load("ab")
	s.Key(engine.RuneKey('a'))
	c.Advance(time.Second)
	require.True(t, s.Key(engine.RuneKey('b')).Completed)

	v := s.Versus()
	require.NotNil(t, v)
	require.Equal(t, 2, v.Rival.Cursor, "30 WPM types two characters in under a second")
	require.Greater(t, v.Rival.WPM, v.Player.WPM)
	require.Equal(t, -1, v.Outcome)
	require.NoError(t, s.Close())
}

func TestBotIgnoredInRaceMode(t *testing.T) {
	s := New(Options{Mode: model.ModeRace, Bot: replay.BotHard})
	require.Empty(t, s.Bot())
	s.Load("ab")
	require.Equal(t, -1, s.GhostIndex())
}

type loopback struct {
	mu   sync.Mutex
	sent []race.Envelope
}

func (l *loopback) Join(context.Context, string, string) error { return nil }

func (l *loopback) Publish(_ context.Context, env race.Envelope) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, env)
	return nil
}

func (l *loopback) Subscribe(race.Handler) {}

func (l *loopback) Close() error { return nil }

func (l *loopback) types() []race.MessageType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]race.MessageType, 0, len(l.sent))
	for _, env := range l.sent {
		out = append(out, env.Type)
	}
	return out
}

func encode(t *testing.T, env race.Envelope) []byte {
	t.Helper()
	data, err := race.Encode(env)
	require.NoError(t, err)
	return data
}

func TestRaceRunPublishesFinish(t *testing.T) {
	c := newClock()
	lb := &loopback{}
	client := race.NewClient(lb, race.Options{Room: "r1", Player: "ann", Clock: c.Now})
	require.NoError(t, client.Connect(context.Background()))

	s := New(Options{Mode: model.ModeRace, Player: "ann", Race: client, Records: newRecords(), Clock: c.Now})
	s.Next(context.Background())

	ev, err := s.HandleRace(encode(t, race.Envelope{Type: race.TypeStart, Room: "r1", Text: "go on"}))
	require.NoError(t, err)
	require.Equal(t, race.TypeStart, ev.Type)
	require.Equal(t, "go on", s.Target())

	require.True(t, typeText(s, c, "go on").Completed)
	types := lb.types()
	require.Equal(t, race.TypeFinish, types[len(types)-1])
	require.Equal(t, race.TypeProgress, types[len(types)-2])

	res := s.Result()
	require.NotNil(t, res)
	require.Nil(t, res.IsWin, "no winner was announced before finishing")
	require.Equal(t, model.ModeRace, res.Mode)

	_, err = s.HandleRace(encode(t, race.Envelope{Type: race.TypeFinish, Room: "r1", Winner: "ann"}))
	require.NoError(t, err)
	require.Equal(t, "ann", client.Winner())
}

func TestRaceLoserGetsLoss(t *testing.T) {
	c := newClock()
	client := race.NewClient(&loopback{}, race.Options{Room: "r1", Player: "ann", Clock: c.Now})
	require.NoError(t, client.Connect(context.Background()))
	s := New(Options{Mode: model.ModeRace, Player: "ann", Race: client, Clock: c.Now})

	_, err := s.HandleRace(encode(t, race.Envelope{Type: race.TypeStart, Text: "ab"}))
	require.NoError(t, err)
	_, err = s.HandleRace(encode(t, race.Envelope{Type: race.TypeFinish, Winner: "bob"}))
	require.NoError(t, err)

	require.True(t, typeText(s, c, "ab").Completed)
	require.NotNil(t, s.Result().IsWin)
	require.False(t, *s.Result().IsWin)
}

func TestHandleRaceWithoutClient(t *testing.T) {
	s := New(Options{})
	_, err := s.HandleRace([]byte(`{"type":"start","text":"x"}`))
	require.ErrorIs(t, err, race.ErrNotJoined)
}

func TestRaceTickFlushesThrottledProgress(t *testing.T) {
	c := newClock()
	lb := &loopback{}
	client := race.NewClient(lb, race.Options{Room: "r1", Player: "ann", Interval: 150 * time.Millisecond, Clock: c.Now})
	require.NoError(t, client.Connect(context.Background()))
	s := New(Options{Mode: model.ModeRace, Player: "ann", Race: client, Clock: c.Now})
	_, err := s.HandleRace(encode(t, race.Envelope{Type: race.TypeStart, Text: "abcdef"}))
	require.NoError(t, err)

	s.Key(engine.RuneKey('a'))
	c.Advance(50 * time.Millisecond)
	s.Key(engine.RuneKey('b'))
	before := len(lb.types())

	s.RaceTick()
	require.Len(t, lb.types(), before, "interval has not elapsed")

	c.Advance(200 * time.Millisecond)
	s.RaceTick()
	types := lb.types()
	require.Len(t, types, before+1)
	require.Equal(t, race.TypeProgress, types[len(types)-1])
}
