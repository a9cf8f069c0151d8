package replay

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"github.com/verte-zerg/typerace/internal/model"
)

// Difficulty names a bot opponent speed.
type Difficulty string

const (
	BotEasy   Difficulty = "easy"
	BotMedium Difficulty = "medium"
	BotHard   Difficulty = "hard"
	BotExpert Difficulty = "expert"
)

// botJitter is the per-word speed variation around the target WPM.
const botJitter = 0.1

// ErrUnknownDifficulty is returned for a bot name outside Difficulties.
var ErrUnknownDifficulty = errors.New("unknown bot difficulty")

var botWPM = map[Difficulty]float64{
	BotEasy:   30,
	BotMedium: 50,
	BotHard:   70,
	BotExpert: 90,
}

// Difficulties lists the bots from slowest to fastest.
func Difficulties() []Difficulty {
	return []Difficulty{BotEasy, BotMedium, BotHard, BotExpert}
}

// ParseDifficulty maps a flag value to a Difficulty. An empty value means no
// bot and returns "".
func ParseDifficulty(s string) (Difficulty, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	d := Difficulty(s)
	if _, ok := botWPM[d]; !ok {
		return "", fmt.Errorf("%w %q (easy, medium, hard, expert)", ErrUnknownDifficulty, s)
	}
	return d, nil
}

// WPM is the bot's nominal typing speed, or 0 for an unknown difficulty.
func (d Difficulty) WPM() float64 { return botWPM[d] }

// BotTimeline spreads target over a timeline typed at wpm, five characters
// per word. Each word and its trailing whitespace share one speed drawn within
// ±10% of wpm. A nil rnd types at exactly wpm.
func BotTimeline(target string, wpm float64, rnd *rand.Rand) []model.TimelinePoint {
	runes := []rune(target)
	if len(runes) == 0 || wpm <= 0 {
		return nil
	}
	msPerChar := 60000 / (wpm * 5)
	tl := make([]model.TimelinePoint, 0, len(runes)+1)
	tl = append(tl, model.TimelinePoint{})

	var elapsed float64
	for start := 0; start < len(runes); {
		end := start
		for end < len(runes) && !unicode.IsSpace(runes[end]) {
			end++
		}
		for end < len(runes) && unicode.IsSpace(runes[end]) {
			end++
		}
		per := msPerChar
		if rnd != nil {
			per *= 1 - botJitter + rnd.Float64()*2*botJitter
		}
		for i := start; i < end; i++ {
			elapsed += per
			tl = append(tl, model.TimelinePoint{ElapsedMs: int64(math.Round(elapsed)), CursorIndex: i + 1})
		}
		start = end
	}
	return tl
}

// NewBot arms a ghost that types target at the difficulty's speed.
func NewBot(target string, d Difficulty, rnd *rand.Rand) (*Ghost, bool) {
	tl := BotTimeline(target, d.WPM(), rnd)
	if len(tl) == 0 {
		return nil, false
	}
	return &Ghost{timeline: tl}, true
}

// Standing is a racer's position when a run ends.
type Standing struct {
	Cursor int
	WPM    float64
}

// Compare orders standings by cursor progress, then by WPM.
func Compare(a, b Standing) int {
	if c := cmp.Compare(a.Cursor, b.Cursor); c != 0 {
		return c
	}
	return cmp.Compare(a.WPM, b.WPM)
}

// Standing resolves the ghost's position at now. WPM counts five characters
// per word over the time the ghost has actually spent typing.
func (g *Ghost) Standing(now time.Time) Standing {
	idx, done := g.Index(now)
	if !g.started {
		return Standing{Cursor: idx}
	}
	elapsed := now.Sub(g.startedAt).Milliseconds()
	if done {
		elapsed = g.timeline[len(g.timeline)-1].ElapsedMs
	}
	if elapsed <= 0 {
		return Standing{Cursor: idx}
	}
	wpm := float64(idx) / 5 / (float64(elapsed) / 60000)
	return Standing{Cursor: idx, WPM: math.Round(wpm*10) / 10}
}
