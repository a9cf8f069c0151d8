package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/typerace/internal/model"
	"github.com/verte-zerg/typerace/internal/race"
	"github.com/verte-zerg/typerace/internal/replay"
	"github.com/verte-zerg/typerace/internal/session"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func newTestModel(t *testing.T, opts session.Options) (*Model, *stepClock) {
	t.Helper()
	c := &stepClock{now: t0}
	opts.Clock = c.Now
	return NewModel(session.New(opts), nil), c
}

func press(m *Model, s string) tea.Cmd {
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	if s == " " {
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(s)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

func TestRenderFooterFormats(t *testing.T) {
	m, c := newTestModel(t, session.Options{Limit: model.Limit{Kind: model.LimitTime, Value: 30}})
	m.Update(targetMsg{text: "abcde"})
	press(m, "a")
	c.now = c.now.Add(2 * time.Second)
	press(m, "b")

	out := m.renderFooter()
	if !containsAll(out, []string{"Progress 40%", "WPM", "100.0% acc", "0:28 left"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestRenderFooterWordsLimit(t *testing.T) {
	m, _ := newTestModel(t, session.Options{Limit: model.Limit{Kind: model.LimitWords, Value: 2}})
	m.Update(targetMsg{text: "ab cd ef"})
	press(m, "ab")
	press(m, " ")
	out := m.renderFooter()
	if !containsAll(out, []string{"Words 1/2", "0:00"}) {
		t.Fatalf("footer missing word count: %s", out)
	}
	if strings.Contains(out, "left") {
		t.Fatalf("untimed footer shows a countdown: %s", out)
	}
}

func TestBotRunShowsBotProgressAndVerdict(t *testing.T) {
	m, c := newTestModel(t, session.Options{Limit: model.Limit{Kind: model.LimitWords}, Bot: replay.BotEasy})
	m.Update(targetMsg{text: "abc"})
	press(m, "a")
	if out := m.renderFooter(); !strings.Contains(out, "Bot 0%") {
		t.Fatalf("footer missing bot progress: %s", out)
	}
	c.now = c.now.Add(3 * time.Second)
	press(m, "b")
	press(m, "c")

	view := m.View()
	if !containsAll(view, []string{"Bot (easy)", "bot won"}) {
		t.Fatalf("result screen missing bot verdict: %s", view)
	}
}

func TestResultScreenAfterCompletion(t *testing.T) {
	m, c := newTestModel(t, session.Options{Limit: model.Limit{Kind: model.LimitWords}})
	m.Update(targetMsg{text: "ab"})
	press(m, "a")
	c.now = c.now.Add(time.Second)
	press(m, "b")

	if m.sess.Result() == nil {
		t.Fatalf("expected a result after typing the whole text")
	}
	view := m.View()
	if !containsAll(view, []string{"Result", "WPM", "consistency", "2 correct"}) {
		t.Fatalf("result screen missing fields: %s", view)
	}
	if !strings.Contains(m.renderFooter(), "tab: next test") {
		t.Fatalf("expected help in footer after completion")
	}
}

func TestFirstKeySchedulesTicks(t *testing.T) {
	m, _ := newTestModel(t, session.Options{Limit: model.Limit{Kind: model.LimitTime, Value: 15}})
	m.Update(targetMsg{text: "abc"})
	if cmd := press(m, "a"); cmd == nil {
		t.Fatalf("expected tick commands when the run starts")
	}
	if cmd := press(m, "b"); cmd != nil {
		t.Fatalf("expected no new ticks for later keys")
	}
}

func TestStaleTicksStop(t *testing.T) {
	m, _ := newTestModel(t, session.Options{Limit: model.Limit{Kind: model.LimitTime, Value: 15}})
	m.Update(targetMsg{text: "abc"})
	press(m, "a")
	old := m.sess.Generation()
	m.Update(targetMsg{text: "xyz"})

	if _, cmd := m.Update(sampleTickMsg{gen: old}); cmd != nil {
		t.Fatalf("stale sample tick was rescheduled")
	}
	if _, cmd := m.Update(countdownTickMsg{gen: old}); cmd != nil {
		t.Fatalf("stale countdown tick was rescheduled")
	}
}

func TestNextIgnoredInRace(t *testing.T) {
	m, _ := newTestModel(t, session.Options{Mode: model.ModeRace})
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab}); cmd != nil {
		t.Fatalf("tab should not fetch text in race mode")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc}); cmd == nil {
		t.Fatalf("esc should quit")
	}
}

type nopTransport struct{}

func (nopTransport) Join(context.Context, string, string) error     { return nil }
func (nopTransport) Publish(context.Context, race.Envelope) error { return nil }
func (nopTransport) Subscribe(race.Handler)                       {}
func (nopTransport) Close() error                                 { return nil }

func TestRaceMessagesDriveView(t *testing.T) {
	client := race.NewClient(nopTransport{}, race.Options{Room: "r1", Player: "ann"})
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	m, _ := newTestModel(t, session.Options{Mode: model.ModeRace, Player: "ann", Race: client})
	m.Init()
	if !strings.Contains(m.View(), "Waiting for players") {
		t.Fatalf("expected waiting status")
	}

	frame := func(env race.Envelope) raceMsg {
		data, err := race.Encode(env)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		return raceMsg{data: data}
	}
	m.Update(frame(race.Envelope{Type: race.TypePlayerUpdate, Players: []model.RosterEntry{
		{Player: "ann", Status: model.StatusWaiting},
		{Player: "bob", Status: model.StatusWaiting},
	}}))
	if got := len(m.roster.Rows()); got != 2 {
		t.Fatalf("expected 2 roster rows, got %d", got)
	}

	m.Update(frame(race.Envelope{Type: race.TypeStart, Text: "go"}))
	if m.sess.Target() != "go" {
		t.Fatalf("start did not load the shared text")
	}
	m.Update(frame(race.Envelope{Type: race.TypeFinish, Winner: "bob"}))
	if !strings.Contains(m.renderRace(), "bob wins the race") {
		t.Fatalf("expected winner banner")
	}

	if _, cmd := m.Update(raceMsg{closed: true}); cmd != nil {
		t.Fatalf("closed room should stop waiting")
	}
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}
