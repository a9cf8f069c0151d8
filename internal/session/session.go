// Package session runs one typing attempt at a time. It owns the engine and
// wires recording, ghost replay, race publication and result submission
// around it. All methods are meant to be called from a single event loop.
package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/typerace/internal/engine"
	"github.com/verte-zerg/typerace/internal/logging"
	"github.com/verte-zerg/typerace/internal/model"
	"github.com/verte-zerg/typerace/internal/provider"
	"github.com/verte-zerg/typerace/internal/race"
	"github.com/verte-zerg/typerace/internal/replay"
	"github.com/verte-zerg/typerace/internal/stats"
	"github.com/verte-zerg/typerace/internal/store"
)

const (
	// SampleInterval is the WPM sampling period.
	SampleInterval = time.Second
	// CountdownInterval is the countdown tick period for time-limited runs.
	CountdownInterval = time.Second
	// GhostInterval is the ghost replay animation period.
	GhostInterval = 50 * time.Millisecond

	defaultTimeWords = 50
	submitTimeout    = 5 * time.Second
)

// Options configures a Session.
type Options struct {
	Mode      model.Mode
	Limit     model.Limit
	Ghost     bool
	Bot       replay.Difficulty
	Player    string
	Provider  provider.Provider
	Records   replay.Store
	Submitter store.Submitter
	Race      *race.Client
	Logger    *zap.Logger
	Clock     func() time.Time
	Rand      *rand.Rand
}

// Versus is the outcome of a run against a bot. Outcome is positive when the
// player won, negative when the bot did and zero on a tie.
type Versus struct {
	Bot     replay.Difficulty
	Player  replay.Standing
	Rival   replay.Standing
	Outcome int
}

// Update reports what a key did to the run.
type Update struct {
	Accepted  bool
	Started   bool
	Completed bool
}

// Session is the controller of the current run.
type Session struct {
	opts Options
	log  *zap.Logger

	gen      uint64
	target   string
	engine   *engine.Engine
	recorder *replay.Recorder

	ghost       *replay.Ghost
	ghostCancel context.CancelFunc
	ghostCh     <-chan int
	ghostIndex  int
	vsBot       bool

	result *model.Result
	versus *Versus
	wg     sync.WaitGroup
}

// New creates an idle session with no target.
func New(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	log := logging.OrNop(opts.Logger)
	if opts.Mode == "" {
		opts.Mode = model.ModeSolo
	}
	if opts.Mode == model.ModeRace {
		opts.Limit = model.Limit{Kind: model.LimitWords, Value: 0}
	}
	if opts.Player == "" {
		opts.Player = "player-" + uuid.NewString()[:8]
	}
	s := &Session{
		opts:     opts,
		log:      log.With(zap.String("mode", string(opts.Mode))),
		recorder: replay.NewRecorder(opts.Records),
	}
	s.engine = engine.New("", s.engineOptions())
	return s
}

func (s *Session) engineOptions() engine.Options {
	return engine.Options{Code: s.opts.Mode == model.ModeCode, Limit: s.opts.Limit}
}

// Next fetches a fresh target and loads it. Race targets arrive through
// HandleRace instead, so in race mode Next only clears the run.
func (s *Session) Next(ctx context.Context) uint64 {
	if s.opts.Mode == model.ModeRace {
		return s.Load("")
	}
	return s.Load(s.Fetch(ctx))
}

// Fetch asks the provider for a target sized to the limit. It reads only
// immutable options and may run off the event loop.
func (s *Session) Fetch(ctx context.Context) string {
	return provider.Fetch(ctx, s.opts.Provider, s.opts.Mode, s.requestLength(), s.log)
}

func (s *Session) requestLength() int {
	if s.opts.Mode == model.ModeCode {
		return 0
	}
	if s.opts.Limit.Kind == model.LimitWords && s.opts.Limit.Value > 0 {
		return s.opts.Limit.Value
	}
	return defaultTimeWords
}

// Load installs target as a new run. Any in-flight ghost is stopped and the
// generation is bumped so ticks scheduled for the previous run are ignored.
func (s *Session) Load(target string) uint64 {
	s.gen++
	s.stopGhost()
	s.recorder.Cancel()
	s.result = nil
	s.versus = nil
	s.target = target
	s.engine.Reset(target)
	s.ghostIndex = 0

	if target == "" || s.opts.Mode == model.ModeRace {
		return s.gen
	}
	switch {
	case s.opts.Bot != "":
		if g, ok := replay.NewBot(target, s.opts.Bot, s.opts.Rand); ok {
			s.ghost = g
			s.vsBot = true
		}
	case s.opts.Ghost:
		g, err := replay.Load(context.Background(), s.opts.Records, s.opts.Mode, target)
		switch {
		case err == nil:
			s.ghost = g
		case errors.Is(err, replay.ErrNoRecord):
			s.log.Debug("no ghost for target")
		default:
			s.log.Warn("failed to load ghost record", zap.Error(err))
		}
	}
	return s.gen
}

func (s *Session) stopGhost() {
	if s.ghostCancel != nil {
		s.ghostCancel()
		s.ghostCancel = nil
	}
	s.ghost = nil
	s.ghostCh = nil
	s.vsBot = false
}

// Key feeds one key to the engine.
func (s *Session) Key(k engine.Key) Update {
	if s.target == "" {
		return Update{}
	}
	now := s.opts.Clock()
	out := s.engine.Submit(k, now)
	if out.Started {
		s.onStart(now)
	}
	if out.Moved() {
		s.recorder.Observe(now, out.CursorTo)
		s.publishProgress(now)
	}
	if out.Completed {
		s.complete(now)
	}
	return Update{Accepted: out.Accepted, Started: out.Started, Completed: out.Completed}
}

func (s *Session) onStart(now time.Time) {
	if s.opts.Mode != model.ModeRace {
		s.recorder.Start(s.target, s.opts.Mode, s.opts.Limit, now)
	}
	if s.ghost != nil {
		s.ghost.Start(now)
		ctx, cancel := context.WithCancel(context.Background())
		s.ghostCancel = cancel
		s.ghostCh = s.ghost.Play(ctx, s.opts.Clock, GhostInterval)
	}
}

func (s *Session) publishProgress(now time.Time) {
	if s.opts.Race == nil {
		return
	}
	m := s.engine.Metrics(now)
	if err := s.opts.Race.Progress(context.Background(), s.engine.Progress(), m.WPM); err != nil {
		s.log.Warn("failed to publish progress", zap.Error(err))
	}
}

// SampleTick appends a WPM sample for generation gen. It reports whether
// sampling should continue.
func (s *Session) SampleTick(gen uint64) bool {
	if gen != s.gen {
		return false
	}
	_, ok := s.engine.Sample(s.opts.Clock())
	return ok || s.engine.Phase() == engine.PhaseIdle
}

// RaceTick sends any throttled progress update that is now due.
func (s *Session) RaceTick() {
	if s.opts.Race == nil {
		return
	}
	if err := s.opts.Race.Tick(context.Background()); err != nil {
		s.log.Warn("failed to publish progress", zap.Error(err))
	}
}

// CountdownTick ends a time-limited run once its limit elapses. It reports
// whether the countdown should keep ticking.
func (s *Session) CountdownTick(gen uint64) bool {
	if gen != s.gen || !s.Timed() {
		return false
	}
	switch s.engine.Phase() {
	case engine.PhaseIdle:
		return true
	case engine.PhaseComplete:
		return false
	}
	now := s.opts.Clock()
	if s.Remaining(now) > 0 {
		return true
	}
	if s.engine.Expire(now) {
		s.complete(now)
	}
	return false
}

// Timed reports whether the run has a countdown.
func (s *Session) Timed() bool {
	return s.opts.Limit.Kind == model.LimitTime && s.opts.Limit.Value > 0
}

// Remaining is the countdown left at now. Untimed runs report 0.
func (s *Session) Remaining(now time.Time) time.Duration {
	if !s.Timed() {
		return 0
	}
	limit := time.Duration(s.opts.Limit.Value) * time.Second
	left := limit - s.engine.Elapsed(now)
	if left < 0 {
		return 0
	}
	return left
}

// GhostStream returns the replay channel of the current run, or nil.
func (s *Session) GhostStream() <-chan int { return s.ghostCh }

// GhostUpdate records a replayed index for generation gen.
func (s *Session) GhostUpdate(gen uint64, idx int) {
	if gen != s.gen || s.ghost == nil {
		return
	}
	s.ghostIndex = idx
}

// GhostIndex is the ghost cursor, or -1 without a ghost.
func (s *Session) GhostIndex() int {
	if s.ghost == nil {
		return -1
	}
	return s.ghostIndex
}

// HandleRace applies one inbound room frame. A start message loads the shared
// text as a new run.
func (s *Session) HandleRace(data []byte) (race.Event, error) {
	if s.opts.Race == nil {
		return race.Event{}, race.ErrNotJoined
	}
	ev, err := s.opts.Race.HandleMessage(data)
	if err != nil {
		return ev, err
	}
	if ev.Type == race.TypeStart {
		s.Load(ev.Text)
	}
	return ev, nil
}

func (s *Session) complete(now time.Time) {
	s.stopGhostLoop()
	m := s.engine.Metrics(now)
	c := s.engine.Counters()
	res := model.Result{
		ID:          uuid.NewString(),
		Player:      s.opts.Player,
		Mode:        s.opts.Mode,
		WPM:         m.WPM,
		RawWPM:      m.RawWPM,
		Accuracy:    m.Accuracy,
		Consistency: m.Consistency,
		WordsTyped:  stats.WordsTyped(c.Correct),
		DurationMs:  m.Elapsed.Milliseconds(),
		Correct:     c.Correct,
		Incorrect:   c.Incorrect,
		Missed:      c.Missed,
		Extra:       c.Extra,
		CompletedAt: now,
	}

	if s.opts.Race != nil {
		err := s.opts.Race.Finish(context.Background(), race.Final{
			WPM:        res.WPM,
			Accuracy:   res.Accuracy,
			WordsTyped: res.WordsTyped,
			Duration:   m.Elapsed,
		})
		if err != nil {
			s.log.Warn("failed to publish finish", zap.Error(err))
		}
		if winner := s.opts.Race.Winner(); winner != "" {
			win := winner == s.opts.Player
			res.IsWin = &win
		}
	}

	if _, saved, err := s.recorder.Finish(context.Background(), now); err != nil {
		s.log.Warn("failed to persist replay record", zap.Error(err))
	} else if saved {
		s.log.Debug("replay record saved")
	}

	if s.vsBot {
		s.versus = s.versusAt(now, res.WPM)
	}

	s.result = &res
	s.submit(res)
}

func (s *Session) versusAt(now time.Time, wpm float64) *Versus {
	player := replay.Standing{Cursor: s.engine.Cursor(), WPM: wpm}
	rival := s.ghost.Standing(now)
	v := &Versus{Bot: s.opts.Bot, Player: player, Rival: rival, Outcome: replay.Compare(player, rival)}
	s.log.Debug("bot run finished",
		zap.String("bot", string(v.Bot)),
		zap.Float64("botWpm", rival.WPM),
		zap.Int("outcome", v.Outcome))
	return v
}

// Versus returns the bot comparison of the completed run, or nil.
func (s *Session) Versus() *Versus { return s.versus }

// Bot is the configured bot opponent, or "".
func (s *Session) Bot() replay.Difficulty {
	if s.opts.Mode == model.ModeRace {
		return ""
	}
	return s.opts.Bot
}

// stopGhostLoop ends replay ticks but keeps the ghost for rendering.
func (s *Session) stopGhostLoop() {
	if s.ghostCancel != nil {
		s.ghostCancel()
		s.ghostCancel = nil
	}
	s.ghostCh = nil
}

func (s *Session) submit(res model.Result) {
	if s.opts.Submitter == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		if err := s.opts.Submitter.SubmitResult(ctx, res); err != nil {
			s.log.Warn("failed to submit result", zap.String("id", res.ID), zap.Error(err))
		}
	}()
}

// Wait blocks until in-flight result submissions finish.
func (s *Session) Wait() { s.wg.Wait() }

// Close stops background work and leaves any race room.
func (s *Session) Close() error {
	s.stopGhost()
	s.Wait()
	if s.opts.Race != nil {
		return s.opts.Race.Close()
	}
	return nil
}

// Generation identifies the current run.
func (s *Session) Generation() uint64 { return s.gen }

// Engine exposes the run state for rendering.
func (s *Session) Engine() *engine.Engine { return s.engine }

// Target is the current text.
func (s *Session) Target() string { return s.target }

// Result is the last completed run's result, or nil.
func (s *Session) Result() *model.Result { return s.result }

// Metrics computes live figures at the session clock.
func (s *Session) Metrics() engine.Metrics { return s.engine.Metrics(s.opts.Clock()) }

// Now reads the session clock.
func (s *Session) Now() time.Time { return s.opts.Clock() }

// Mode is the session mode.
func (s *Session) Mode() model.Mode { return s.opts.Mode }

// Limit is the run limit.
func (s *Session) Limit() model.Limit { return s.opts.Limit }

// Race is the race client, or nil outside race mode.
func (s *Session) Race() *race.Client { return s.opts.Race }

// Player is the local participant name.
func (s *Session) Player() string { return s.opts.Player }
