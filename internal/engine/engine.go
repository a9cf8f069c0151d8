// Package engine implements the per-keystroke typing state machine.
//
// An Engine validates input against a fixed target text one key at a time.
// Every cursor advance is a Commit pushed onto an undo stack (or, for code
// mode line breaks that auto-skip indentation, onto a separate indent stack)
// so Backspace reverses exactly one commit.
package engine

import (
	"strings"
	"time"
	"unicode"

	"github.com/verte-zerg/typerace/internal/model"
	"github.com/verte-zerg/typerace/internal/stats"
)

// CharState is the classification of one target character.
type CharState uint8

const (
	Waiting CharState = iota
	Correct
	Incorrect
)

func (s CharState) String() string {
	switch s {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	}
	return "waiting"
}

// Phase is the run lifecycle. It only moves forward until Reset.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseActive
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseComplete:
		return "complete"
	}
	return "idle"
}

// Options configures run rules.
type Options struct {
	// Code enables required Enter at line breaks with indentation auto-skip,
	// and disables the space word-skip.
	Code  bool
	Limit model.Limit
}

// Outcome reports what a single Submit did.
type Outcome struct {
	Accepted   bool
	Rejected   bool
	Started    bool
	Completed  bool
	CursorFrom int
	CursorTo   int
}

// Moved reports whether the cursor position changed.
func (o Outcome) Moved() bool {
	return o.CursorFrom != o.CursorTo
}

// Metrics are the derived figures for a run at a point in time.
type Metrics struct {
	WPM         float64
	RawWPM      float64
	Accuracy    float64
	Consistency float64
	Elapsed     time.Duration
}

// Engine is the live state of one local attempt. It is not safe for
// concurrent use; callers serialize events.
type Engine struct {
	opts   Options
	target []rune
	words  []string

	states   []CharState
	typed    []rune
	cursor   int
	undo     []Commit
	indent   []Commit
	counters Counters
	rejected int

	phase     Phase
	startedAt time.Time
	endedAt   time.Time
	samples   []float64
}

// New creates an idle engine for target.
func New(target string, opts Options) *Engine {
	e := &Engine{opts: opts}
	e.Reset(target)
	return e
}

// Reset discards all run state and installs a new target.
func (e *Engine) Reset(target string) {
	e.target = []rune(target)
	e.words = strings.Fields(target)
	e.states = make([]CharState, len(e.target))
	e.typed = e.typed[:0]
	e.cursor = 0
	e.undo = e.undo[:0]
	e.indent = e.indent[:0]
	e.counters = Counters{}
	e.rejected = -1
	e.phase = PhaseIdle
	e.startedAt = time.Time{}
	e.endedAt = time.Time{}
	e.samples = nil
}

// Submit applies one key at time now.
func (e *Engine) Submit(key Key, now time.Time) Outcome {
	out := Outcome{CursorFrom: e.cursor, CursorTo: e.cursor}
	if e.phase == PhaseComplete {
		return out
	}
	wasIdle := e.phase == PhaseIdle

	switch key.Type {
	case KeyBackspace:
		out.Accepted = e.backspace()
	case KeyEnter:
		out.Accepted = e.enter(now)
	case KeyRune:
		if unicode.IsControl(key.Rune) {
			return out
		}
		out.Accepted, out.Rejected = e.char(key.Rune, now)
	}

	out.CursorTo = e.cursor
	out.Started = wasIdle && e.phase != PhaseIdle
	out.Completed = e.phase == PhaseComplete
	return out
}

func (e *Engine) char(r rune, now time.Time) (accepted, rejected bool) {
	if e.cursor >= len(e.target) {
		e.start(now)
		e.push(Commit{Kind: KindExtra, Start: e.cursor, Count: 1}, []rune{r})
		e.checkCompletion(r, now)
		return true, false
	}

	expected := e.target[e.cursor]
	if e.opts.Code && expected == '\n' {
		e.states[e.cursor] = Incorrect
		e.rejected = e.cursor
		return false, true
	}

	e.start(now)
	if !e.opts.Code && r == ' ' && !unicode.IsSpace(expected) {
		end := e.wordEnd(e.cursor)
		missed := Commit{Kind: KindMissed, Start: e.cursor, Count: end - e.cursor}
		e.push(missed, e.target[e.cursor:end])
		if e.cursor < len(e.target) {
			e.push(e.compare(r), []rune{r})
		}
		e.checkCompletion(r, now)
		return true, false
	}

	e.push(e.compare(r), []rune{r})
	e.checkCompletion(r, now)
	return true, false
}

func (e *Engine) compare(r rune) Commit {
	kind := KindIncorrect
	if r == e.target[e.cursor] {
		kind = KindCorrect
	}
	return Commit{Kind: kind, Start: e.cursor, Count: 1}
}

func (e *Engine) enter(now time.Time) bool {
	if !e.opts.Code || e.cursor >= len(e.target) || e.target[e.cursor] != '\n' {
		return false
	}
	e.start(now)
	spaces := 0
	for i := e.cursor + 1; i < len(e.target) && e.target[i] == ' '; i++ {
		spaces++
	}
	c := Commit{Kind: KindCorrect, Start: e.cursor, Count: 1 + spaces}
	keys := e.target[e.cursor : e.cursor+c.Count]
	if spaces == 0 {
		e.push(c, keys)
	} else {
		e.applyCommit(c, keys)
		e.indent = append(e.indent, c)
	}
	e.checkCompletion('\n', now)
	return true
}

func (e *Engine) backspace() bool {
	if e.rejected >= 0 {
		e.states[e.rejected] = Waiting
		e.rejected = -1
	}
	if e.cursor == 0 {
		return false
	}
	if n := len(e.indent); n > 0 {
		top := e.indent[n-1]
		if top.Start+top.Count == e.cursor {
			e.indent = e.indent[:n-1]
			e.applyUndo(top)
			return true
		}
	}
	if n := len(e.undo); n > 0 {
		top := e.undo[n-1]
		e.undo = e.undo[:n-1]
		e.applyUndo(top)
		return true
	}
	return false
}

func (e *Engine) push(c Commit, keys []rune) {
	if c.Count <= 0 {
		return
	}
	e.applyCommit(c, keys)
	e.undo = append(e.undo, c)
}

func (e *Engine) start(now time.Time) {
	if e.phase != PhaseIdle {
		return
	}
	e.phase = PhaseActive
	e.startedAt = now
}

func (e *Engine) complete(now time.Time) {
	if e.phase != PhaseActive {
		return
	}
	e.phase = PhaseComplete
	e.endedAt = now
}

func (e *Engine) checkCompletion(last rune, now time.Time) {
	limit := e.opts.Limit
	switch {
	case limit.Kind == model.LimitWords:
		if e.cursor >= len(e.target) {
			e.complete(now)
			return
		}
		if limit.Value > 0 && last == ' ' && e.CompletedWords() >= limit.Value {
			e.complete(now)
		}
	case limit.Kind == model.LimitTime && limit.Value <= 0:
		// Unlimited time runs have no timer, so the end of the text ends them.
		if e.cursor >= len(e.target) {
			e.complete(now)
		}
	}
}

// wordEnd returns the index of the first whitespace at or after i, or the
// target length.
func (e *Engine) wordEnd(i int) int {
	for i < len(e.target) && !unicode.IsSpace(e.target[i]) {
		i++
	}
	return i
}

// Expire ends an active run when its countdown reaches zero. It reports
// whether the call completed the run.
func (e *Engine) Expire(now time.Time) bool {
	if e.phase != PhaseActive {
		return false
	}
	e.complete(now)
	return true
}

// Sample appends the current net WPM to the sample series. Samples are only
// taken while the run is active.
func (e *Engine) Sample(now time.Time) (float64, bool) {
	if e.phase != PhaseActive {
		return 0, false
	}
	wpm := stats.NetWPM(e.counters.Correct, now.Sub(e.startedAt))
	e.samples = append(e.samples, wpm)
	return wpm, true
}

// Metrics computes derived figures. For a complete run the end time is used
// regardless of now.
func (e *Engine) Metrics(now time.Time) Metrics {
	elapsed := e.Elapsed(now)
	return Metrics{
		WPM:         stats.NetWPM(e.counters.Correct, elapsed),
		RawWPM:      stats.RawWPM(e.counters.Total, elapsed),
		Accuracy:    stats.Accuracy(e.counters.Correct, e.counters.Total),
		Consistency: stats.Consistency(e.samples),
		Elapsed:     elapsed,
	}
}

// Elapsed returns time since the first productive keystroke.
func (e *Engine) Elapsed(now time.Time) time.Duration {
	switch e.phase {
	case PhaseActive:
		return now.Sub(e.startedAt)
	case PhaseComplete:
		return e.endedAt.Sub(e.startedAt)
	}
	return 0
}

// CompletedWords counts whitespace-delimited words in the committed input.
func (e *Engine) CompletedWords() int {
	return len(strings.Fields(string(e.typed)))
}

// Progress is the cursor position as a whole percentage of the target.
func (e *Engine) Progress() int {
	if len(e.target) == 0 {
		return 0
	}
	pct := e.cursor * 100 / len(e.target)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Cursor is the number of committed characters.
func (e *Engine) Cursor() int { return e.cursor }

// Phase returns the lifecycle phase.
func (e *Engine) Phase() Phase { return e.phase }

// Counters returns the committed-character tallies.
func (e *Engine) Counters() Counters { return e.counters }

// StartedAt is the time of the first productive keystroke.
func (e *Engine) StartedAt() time.Time { return e.startedAt }

// Target returns the text being typed.
func (e *Engine) Target() []rune { return e.target }

// Words returns the target split on whitespace.
func (e *Engine) Words() []string { return e.words }

// Options returns the run rules.
func (e *Engine) Options() Options { return e.opts }

// State returns the classification of target index i.
func (e *Engine) State(i int) CharState {
	if i < 0 || i >= len(e.states) {
		return Waiting
	}
	return e.states[i]
}

// States returns a copy of all character states.
func (e *Engine) States() []CharState {
	out := make([]CharState, len(e.states))
	copy(out, e.states)
	return out
}

// Typed returns a copy of the committed input, including extra characters.
func (e *Engine) Typed() []rune {
	out := make([]rune, len(e.typed))
	copy(out, e.typed)
	return out
}

// Samples returns a copy of the WPM samples.
func (e *Engine) Samples() []float64 {
	out := make([]float64, len(e.samples))
	copy(out, e.samples)
	return out
}

// Snapshot is a read-only view of the run for rendering.
type Snapshot struct {
	Phase    Phase
	Cursor   int
	Counters Counters
	Progress int
	Words    int
}

// Snapshot captures the current run state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Phase:    e.phase,
		Cursor:   e.cursor,
		Counters: e.counters,
		Progress: e.Progress(),
		Words:    e.CompletedWords(),
	}
}
