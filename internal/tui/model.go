package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/typerace/internal/engine"
	"github.com/verte-zerg/typerace/internal/logging"
	"github.com/verte-zerg/typerace/internal/model"
	"github.com/verte-zerg/typerace/internal/race"
	"github.com/verte-zerg/typerace/internal/session"
	"github.com/verte-zerg/typerace/internal/stats"
)

const fetchTimeout = 5 * time.Second

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	extraStyle       = incorrectStyle.Copy().Strikethrough(true)
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Copy().Underline(true)
	ghostStyle       = pendingStyle.Copy().Background(lipgloss.Color("#3A3F5C"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	bannerStyle      = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F0F0F0")).
				Bold(true).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#C89A3A"))
)

type (
	targetMsg        struct{ text string }
	sampleTickMsg    struct{ gen uint64 }
	countdownTickMsg struct{ gen uint64 }
	raceTickMsg      struct{}
	ghostMsg         struct {
		gen uint64
		idx int
		ch  <-chan int
	}
	raceMsg struct {
		data   []byte
		closed bool
	}
)

// Model implements the Bubble Tea typing UI on top of a session.
type Model struct {
	sess *session.Session
	keys keyMap
	log  *zap.Logger

	width  int
	height int

	loading bool
	roster  table.Model
	winner  string
	status  string
}

// NewModel constructs a typing TUI model.
func NewModel(sess *session.Session, log *zap.Logger) *Model {
	log = logging.OrNop(log)
	return &Model{
		sess:   sess,
		keys:   defaultKeyMap(),
		log:    log,
		roster: newRosterTable(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if r := m.sess.Race(); r != nil {
		m.status = fmt.Sprintf("Waiting for players in room %s...", r.Room())
		return tea.Batch(waitRace(r), raceTick())
	}
	return m.fetchTarget()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case targetMsg:
		m.loading = false
		m.sess.Load(msg.text)
		return m, nil
	case sampleTickMsg:
		if m.sess.SampleTick(msg.gen) {
			return m, sampleTick(msg.gen)
		}
		return m, nil
	case countdownTickMsg:
		if m.sess.CountdownTick(msg.gen) {
			return m, countdownTick(msg.gen)
		}
		return m, nil
	case ghostMsg:
		m.sess.GhostUpdate(msg.gen, msg.idx)
		return m, waitGhost(msg.gen, msg.ch)
	case raceTickMsg:
		r := m.sess.Race()
		if r == nil {
			return m, nil
		}
		select {
		case <-r.Done():
			return m, nil
		default:
		}
		m.sess.RaceTick()
		return m, raceTick()
	case raceMsg:
		return m, m.handleRace(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Next):
		if m.sess.Mode() == model.ModeRace || m.loading {
			return nil
		}
		return m.fetchTarget()
	}
	if m.loading || msg.Paste {
		return nil
	}

	var keys []engine.Key
	switch msg.Type {
	case tea.KeyBackspace, tea.KeyDelete:
		keys = []engine.Key{engine.Backspace}
	case tea.KeyEnter:
		keys = []engine.Key{engine.Enter}
	case tea.KeySpace:
		keys = []engine.Key{engine.RuneKey(' ')}
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			keys = append(keys, engine.RuneKey(r))
		}
	default:
		return nil
	}

	var cmds []tea.Cmd
	for _, k := range keys {
		up := m.sess.Key(k)
		if up.Started {
			cmds = append(cmds, m.runStarted()...)
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) runStarted() []tea.Cmd {
	gen := m.sess.Generation()
	cmds := []tea.Cmd{sampleTick(gen)}
	if m.sess.Timed() {
		cmds = append(cmds, countdownTick(gen))
	}
	if ch := m.sess.GhostStream(); ch != nil {
		cmds = append(cmds, waitGhost(gen, ch))
	}
	return cmds
}

func (m *Model) handleRace(msg raceMsg) tea.Cmd {
	r := m.sess.Race()
	if msg.closed {
		m.status = "Disconnected from room."
		return nil
	}
	ev, err := m.sess.HandleRace(msg.data)
	if err != nil {
		return waitRace(r)
	}
	switch ev.Type {
	case race.TypeStart:
		m.status = ""
		m.winner = ""
	case race.TypePlayerUpdate:
		m.setRoster(ev.Roster)
	case race.TypeFinish:
		m.winner = ev.Winner
	}
	return waitRace(r)
}

func (m *Model) fetchTarget() tea.Cmd {
	m.loading = true
	sess := m.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		return targetMsg{text: sess.Fetch(ctx)}
	}
}

func sampleTick(gen uint64) tea.Cmd {
	return tea.Tick(session.SampleInterval, func(time.Time) tea.Msg { return sampleTickMsg{gen: gen} })
}

func countdownTick(gen uint64) tea.Cmd {
	return tea.Tick(session.CountdownInterval, func(time.Time) tea.Msg { return countdownTickMsg{gen: gen} })
}

func raceTick() tea.Cmd {
	return tea.Tick(race.DefaultInterval, func(time.Time) tea.Msg { return raceTickMsg{} })
}

func waitGhost(gen uint64, ch <-chan int) tea.Cmd {
	return func() tea.Msg {
		idx, ok := <-ch
		if !ok {
			return nil
		}
		return ghostMsg{gen: gen, idx: idx, ch: ch}
	}
}

func waitRace(r *race.Client) tea.Cmd {
	return func() tea.Msg {
		select {
		case data := <-r.Inbox():
			return raceMsg{data: data}
		case <-r.Done():
			return raceMsg{closed: true}
		}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	e := m.sess.Engine()
	var content string
	switch {
	case m.sess.Target() == "":
		content = m.renderWaiting()
	case m.sess.Result() != nil && e.Phase() == engine.PhaseComplete:
		content = m.renderResult()
	default:
		content = m.renderText()
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	w := int(float64(m.width) * 0.70)
	if w < 1 {
		w = 1
	}
	return w
}

func (m *Model) renderText() string {
	runes := buildStyledRunes(viewOf(m.sess.Engine(), m.sess.GhostIndex()))
	if m.width == 0 {
		return renderStyledRunes(runes)
	}
	width := m.contentWidth()
	text := lipgloss.NewStyle().Width(width).Render(wrapStyledRunes(runes, width))
	if m.sess.Race() == nil {
		return text
	}
	return text + "\n\n" + m.renderRace()
}

func (m *Model) renderWaiting() string {
	if m.loading {
		return footerStyle.Render("Loading text...")
	}
	parts := []string{footerStyle.Render(m.status)}
	if m.sess.Race() != nil && len(m.roster.Rows()) > 0 {
		parts = append(parts, "", m.roster.View())
	}
	return strings.Join(parts, "\n")
}

func (m *Model) renderRace() string {
	var parts []string
	if m.winner != "" {
		msg := m.winner + " wins the race"
		if m.winner == m.sess.Player() {
			msg = "You win the race"
		}
		parts = append(parts, bannerStyle.Render(msg))
	}
	if len(m.roster.Rows()) > 0 {
		parts = append(parts, m.roster.View())
	}
	return strings.Join(parts, "\n")
}

func (m *Model) renderResult() string {
	res := m.sess.Result()
	lines := []string{
		titleStyle.Render("Result"),
		"",
		fmt.Sprintf("%s WPM   %s raw   %s accuracy   %s consistency",
			valueStyle.Render(fmt.Sprintf("%.1f", res.WPM)),
			valueStyle.Render(fmt.Sprintf("%.1f", res.RawWPM)),
			valueStyle.Render(fmt.Sprintf("%.1f%%", res.Accuracy)),
			valueStyle.Render(fmt.Sprintf("%.1f%%", res.Consistency))),
		fmt.Sprintf("Characters %d correct · %d incorrect · %d missed · %d extra",
			res.Correct, res.Incorrect, res.Missed, res.Extra),
		fmt.Sprintf("Words %d   Time %s", res.WordsTyped, formatClock(time.Duration(res.DurationMs)*time.Millisecond)),
	}
	if samples := m.sess.Engine().Samples(); len(samples) > 1 {
		lines = append(lines, "", footerStyle.Render("WPM ")+currentWordStyle.Render(stats.Sparkline(samples)))
	}
	if v := m.sess.Versus(); v != nil {
		lines = append(lines, "", renderVersus(v))
	}
	if m.sess.Race() != nil {
		if r := m.renderRace(); r != "" {
			lines = append(lines, "", r)
		}
	}
	return strings.Join(lines, "\n")
}

func renderVersus(v *session.Versus) string {
	verdict := "tie"
	switch {
	case v.Outcome > 0:
		verdict = "you won"
	case v.Outcome < 0:
		verdict = "bot won"
	}
	return fmt.Sprintf("Bot (%s) %s WPM · %s",
		v.Bot, valueStyle.Render(fmt.Sprintf("%.1f", v.Rival.WPM)), bannerStyle.Render(verdict))
}

func (m *Model) renderFooter() string {
	e := m.sess.Engine()
	snap := e.Snapshot()
	if len(e.Target()) == 0 || snap.Phase == engine.PhaseComplete {
		return footerStyle.Render(m.keys.help(m.sess.Mode() == model.ModeRace))
	}
	now := m.sess.Now()
	metrics := e.Metrics(now)
	segments := []string{
		fmt.Sprintf("%.1f WPM", metrics.WPM),
		fmt.Sprintf("%.1f%% acc", metrics.Accuracy),
	}
	if m.sess.Timed() {
		segments = append(segments, formatClock(m.sess.Remaining(now))+" left")
	} else {
		segments = append(segments, formatClock(metrics.Elapsed))
	}
	segments = append(segments, fmt.Sprintf("Progress %d%%", snap.Progress))
	if limit := m.sess.Limit(); limit.Kind == model.LimitWords && limit.Value > 0 {
		segments = append(segments, fmt.Sprintf("Words %d/%d", snap.Words, limit.Value))
	}
	if g := m.sess.GhostIndex(); g >= 0 {
		label := "Ghost"
		if m.sess.Bot() != "" {
			label = "Bot"
		}
		segments = append(segments, fmt.Sprintf("%s %d%%", label, g*100/len(e.Target())))
	}
	return footerStyle.Render(joinSegments(segments))
}

func (m *Model) setRoster(entries []model.RosterEntry) {
	rows := make([]table.Row, 0, len(entries))
	for _, p := range entries {
		name := p.Player
		if name == m.sess.Player() {
			name += " (you)"
		}
		rows = append(rows, table.Row{
			name,
			fmt.Sprintf("%d%%", p.Progress),
			fmt.Sprintf("%.0f", p.WPM),
			string(p.Status),
		})
	}
	m.roster.SetRows(rows)
	m.roster.SetHeight(len(rows) + 1)
}

func newRosterTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Player", Width: 20},
			{Title: "Progress", Width: 9},
			{Title: "WPM", Width: 5},
			{Title: "Status", Width: 9},
		}),
		table.WithHeight(1),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		PaddingLeft(0)
	styles.Cell = styles.Cell.PaddingLeft(0)
	styles.Selected = styles.Cell
	t.SetStyles(styles)
	t.Blur()
	return t
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func joinSegments(parts []string) string {
	return strings.Join(parts, "  ")
}
