package engine

// CommitKind classifies the characters a commit consumed.
type CommitKind uint8

const (
	KindCorrect CommitKind = iota
	KindIncorrect
	KindExtra
	KindMissed
)

func (k CommitKind) String() string {
	switch k {
	case KindCorrect:
		return "correct"
	case KindIncorrect:
		return "incorrect"
	case KindExtra:
		return "extra"
	case KindMissed:
		return "missed"
	}
	return "unknown"
}

// Commit is one atomic advance of the cursor over [Start, Start+Count).
type Commit struct {
	Kind  CommitKind
	Start int
	Count int
}

// Counters tallies committed characters. Total counts keystroke commits,
// Correct + Incorrect + Extra, and is the denominator for raw WPM and
// accuracy. Missed characters of an abandoned word were never typed, so they
// stay out of Total.
type Counters struct {
	Correct   int
	Incorrect int
	Missed    int
	Extra     int
	Total     int
}

func (c *Counters) add(kind CommitKind, n int) {
	switch kind {
	case KindCorrect:
		c.Correct += n
	case KindIncorrect:
		c.Incorrect += n
	case KindMissed:
		c.Missed += n
	case KindExtra:
		c.Extra += n
	}
	if kind != KindMissed {
		c.Total += n
	}
}

// applyCommit advances the cursor over c. keys holds the runes recorded as
// typed for the span and must have length c.Count.
func (e *Engine) applyCommit(c Commit, keys []rune) {
	state := Correct
	if c.Kind != KindCorrect {
		state = Incorrect
	}
	for i := c.Start; i < c.Start+c.Count && i < len(e.states); i++ {
		e.states[i] = state
	}
	e.counters.add(c.Kind, c.Count)
	e.cursor += c.Count
	e.typed = append(e.typed, keys...)
	if e.rejected >= 0 && e.rejected < e.cursor {
		e.rejected = -1
	}
}

// applyUndo is the exact inverse of applyCommit for the top-most commit.
func (e *Engine) applyUndo(c Commit) {
	for i := c.Start; i < c.Start+c.Count && i < len(e.states); i++ {
		e.states[i] = Waiting
	}
	e.counters.add(c.Kind, -c.Count)
	e.cursor -= c.Count
	e.typed = e.typed[:e.cursor]
}
