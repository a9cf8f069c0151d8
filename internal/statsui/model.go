// Package statsui is the interactive stats browser: an overview of
// per-mode summaries and WPM curves plus a table of individual runs.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/typerace/internal/model"
	"github.com/verte-zerg/typerace/internal/stats"
)

type tab int

const (
	tabOverview tab = iota
	tabRuns
	tabCount
)

func (t tab) String() string {
	if t == tabRuns {
		return "Runs"
	}
	return "Overview"
}

const (
	curveHeight   = 8
	narrowWidth   = 80
	fallbackWidth = 80
	windowStep    = 5
)

var (
	borderColor = lipgloss.Color("#4A4A4A")

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(borderColor).
			Foreground(lipgloss.Color("#B0B0B0"))
	activeTabStyle = tabStyle.
			BorderForeground(lipgloss.Color("#C89A3A")).
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle  = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(borderColor)
	cardLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	runsStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

var runColumns = []table.Column{
	{Title: "Completed", Width: 16},
	{Title: "Mode", Width: 5},
	{Title: "WPM", Width: 6},
	{Title: "Raw", Width: 6},
	{Title: "Accuracy", Width: 9},
	{Title: "Consistency", Width: 11},
	{Title: "Time", Width: 6},
	{Title: "Win", Width: 4},
}

// Model implements tea.Model for the stats browser.
type Model struct {
	lister stats.Lister
	cfg    model.StatsConfig
	keys   keyMap

	report  stats.Report
	loadErr error

	active   tab
	overview viewport.Model
	runs     table.Model
	form     filterForm

	width  int
	height int
}

// NewModel loads the first report and returns a ready model.
func NewModel(lister stats.Lister, cfg model.StatsConfig) *Model {
	m := &Model{
		lister:   lister,
		cfg:      cfg,
		keys:     defaultKeyMap(),
		overview: viewport.New(0, 0),
		runs:     newRunsTable(),
		form:     newFilterForm(),
	}
	m.reload()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.renderOverview()
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return tea.Quit
	}
	if m.form.open {
		return m.handleFormKey(msg)
	}
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.PrevTab):
		m.switchTab(-1)
		return tea.ClearScreen
	case key.Matches(msg, m.keys.NextTab):
		m.switchTab(1)
		return tea.ClearScreen
	case key.Matches(msg, m.keys.Wider):
		m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
		m.reload()
		return nil
	case key.Matches(msg, m.keys.Narrower):
		m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
		m.reload()
		return nil
	case key.Matches(msg, m.keys.Filter):
		return m.form.show(m.cfg)
	}
	var cmd tea.Cmd
	if m.active == tabRuns {
		m.runs, cmd = m.runs.Update(msg)
	} else {
		m.overview, cmd = m.overview.Update(msg)
	}
	return cmd
}

func (m *Model) handleFormKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.form.hide()
		return nil
	case tea.KeyEnter:
		cfg, err := m.form.submit()
		if err != nil {
			m.form.err = err.Error()
			return nil
		}
		m.form.hide()
		m.cfg = cfg
		m.reload()
		m.resize()
		return nil
	}
	return m.form.update(msg)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layout()
	return strings.Join([]string{
		fitBlock(m.renderHeader(), m.width, headerHeight),
		fitBlock(m.renderBody(), m.width, bodyHeight),
		fitBlock(m.renderFooter(), m.width, footerHeight),
	}, "\n")
}

func (m *Model) layout() (header, body, footer int) {
	header = lipgloss.Height(tabStyle.Render(tabOverview.String())) + 1
	footer = 1
	if !m.form.open && m.loadErr != nil {
		footer = 2
	}
	body = max(1, m.height-header-footer)
	return header, body, footer
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, body, _ := m.layout()
	m.overview.Width = m.width
	m.overview.Height = body
	m.runs.SetWidth(m.width)
	m.runs.SetHeight(max(1, body-1))
	m.form.resize(m.width)
}

func (m *Model) switchTab(delta int) {
	m.active = (m.active + tab(delta) + tabCount) % tabCount
	if m.active == tabRuns {
		m.runs.Focus()
		return
	}
	m.runs.Blur()
}

func (m *Model) reload() {
	report, err := stats.BuildReport(context.Background(), m.lister, m.cfg)
	m.loadErr = err
	if err != nil {
		m.report = stats.Report{}
		m.overview.SetContent("Failed to load stats.")
		m.runs.SetRows(nil)
		return
	}
	m.report = report
	m.runs.SetRows(runRows(report.Results))
	m.renderOverview()
}

func (m *Model) renderOverview() {
	if m.loadErr != nil {
		return
	}
	width := m.width
	if width <= 0 {
		width = fallbackWidth
	}
	m.overview.SetContent(overviewContent(m.report, m.cfg.CurveWindow, width))
}

func (m *Model) renderHeader() string {
	tabs := make([]string, 0, tabCount)
	for t := tabOverview; t < tabCount; t++ {
		style := tabStyle
		if t == m.active {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(t.String()))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return row + "\n" + mutedStyle.Render(runewidth.Truncate(m.filterSummary(), m.width, "..."))
}

func (m *Model) filterSummary() string {
	mode, since, last := "any", "any", "all"
	if m.cfg.Mode != "" {
		mode = string(m.cfg.Mode)
	}
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format(dateLayout)
	}
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	return fmt.Sprintf("Settings: mode=%s  since=%s  last=%s  window=%d", mode, since, last, m.cfg.CurveWindow)
}

func (m *Model) renderBody() string {
	switch {
	case m.form.open:
		return m.form.view()
	case m.active == tabOverview:
		return m.overview.View()
	case len(m.report.Results) == 0:
		return "No results found."
	}
	return runsStyle.Render(m.runs.View())
}

func (m *Model) renderFooter() string {
	if m.form.open {
		return mutedStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := mutedStyle.Render(m.keys.help())
	if m.loadErr != nil {
		return help + "\n" + errorStyle.Render(m.loadErr.Error())
	}
	return help
}

func overviewContent(report stats.Report, window, width int) string {
	if len(report.Results) == 0 {
		return "No results found."
	}
	cards := summaryCards(report.Aggregates, width)
	var curves bytes.Buffer
	if err := stats.RenderCurves(&curves, report.Window, window, width, curveHeight); err != nil {
		return cards + "\n\nFailed to render curves: " + err.Error()
	}
	return strings.TrimRight(cards+"\n\n"+curves.String(), "\n")
}

func summaryCards(aggs []model.ResultAggregate, width int) string {
	rows := make([]string, 0, len(aggs))
	for _, agg := range aggs {
		cards := []string{
			card("Mode", string(agg.Mode)),
			card("Runs", strconv.Itoa(agg.Count)),
			card("Avg WPM", fmt.Sprintf("%.1f", agg.AvgWPM)),
			card("Best WPM", fmt.Sprintf("%.1f", agg.BestWPM)),
			card("Avg Acc", fmt.Sprintf("%.1f%%", agg.AvgAccuracy)),
		}
		if agg.Mode == model.ModeRace {
			cards = append(cards, card("Wins", strconv.Itoa(agg.Wins)))
		}
		if width < narrowWidth {
			rows = append(rows, lipgloss.JoinVertical(lipgloss.Left, cards...))
		} else {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func card(label, value string) string {
	return cardStyle.Render(cardLabelStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

func newRunsTable() table.Model {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(borderColor).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1, 0, 0)
	styles.Cell = styles.Cell.Padding(0, 1, 0, 0)
	styles.Selected = styles.Cell.Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	return table.New(
		table.WithColumns(runColumns),
		table.WithHeight(1),
		table.WithStyles(styles),
	)
}

// runRows lists results newest first.
func runRows(results []model.Result) []table.Row {
	rows := make([]table.Row, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		rows = append(rows, table.Row{
			r.CompletedAt.Local().Format("2006-01-02 15:04"),
			string(r.Mode),
			fmt.Sprintf("%.1f", r.WPM),
			fmt.Sprintf("%.1f", r.RawWPM),
			fmt.Sprintf("%.1f%%", r.Accuracy),
			fmt.Sprintf("%.1f%%", r.Consistency),
			fmt.Sprintf("%.1fs", float64(r.DurationMs)/1000),
			winLabel(r.IsWin),
		})
	}
	return rows
}

func winLabel(win *bool) string {
	switch {
	case win == nil:
		return "-"
	case *win:
		return "yes"
	}
	return "no"
}

// nextCurveWindow steps up to the next multiple of windowStep.
func nextCurveWindow(n int) int {
	return max(n/windowStep+1, 1) * windowStep
}

// prevCurveWindow steps down to the previous multiple of windowStep,
// bottoming out at a window of one run.
func prevCurveWindow(n int) int {
	if n <= windowStep {
		return 1
	}
	return (n - 1) / windowStep * windowStep
}

// fitBlock clips s to width x height and pads it to fill exactly that area.
func fitBlock(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	clipped := lipgloss.NewStyle().MaxWidth(width).MaxHeight(height).Render(s)
	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, clipped)
}
