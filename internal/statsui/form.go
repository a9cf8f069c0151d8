package statsui

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typerace/internal/model"
)

const dateLayout = "2006-01-02"

const (
	fieldMode = iota
	fieldSince
	fieldLast
	fieldWindow
)

// formField binds one text input to a StatsConfig setting.
type formField struct {
	input  textinput.Model
	format func(model.StatsConfig) string
	parse  func(string, *model.StatsConfig) error
}

// filterForm edits the report filters in place of the report body.
type filterForm struct {
	open   bool
	focus  int
	err    string
	fields []formField
}

func newFilterForm() filterForm {
	return filterForm{fields: []formField{
		fieldMode:   {input: newInput("Mode: "), format: formatMode, parse: parseMode},
		fieldSince:  {input: newInput("Since (YYYY-MM-DD): "), format: formatSince, parse: parseSince},
		fieldLast:   {input: newInput("Last: "), format: formatLast, parse: parseLast},
		fieldWindow: {input: newInput("Curve window: "), format: formatWindow, parse: parseWindow},
	}}
}

func newInput(prompt string) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Cursor.SetMode(cursor.CursorBlink)
	return in
}

// show opens the form pre-filled from cfg and focuses the first field.
func (f *filterForm) show(cfg model.StatsConfig) tea.Cmd {
	f.open = true
	f.err = ""
	for i := range f.fields {
		f.fields[i].input.SetValue(f.fields[i].format(cfg))
	}
	return f.focusField(0)
}

func (f *filterForm) hide() {
	f.open = false
	f.err = ""
}

// submit parses every field into a fresh config. Empty fields mean no filter.
func (f *filterForm) submit() (model.StatsConfig, error) {
	cfg := model.StatsConfig{CurveWindow: 1}
	for _, field := range f.fields {
		value := strings.TrimSpace(field.input.Value())
		if value == "" {
			continue
		}
		if err := field.parse(value, &cfg); err != nil {
			return model.StatsConfig{}, err
		}
	}
	return cfg, nil
}

func (f *filterForm) focusField(i int) tea.Cmd {
	n := len(f.fields)
	f.focus = ((i % n) + n) % n
	var cmd tea.Cmd
	for j := range f.fields {
		if j == f.focus {
			cmd = f.fields[j].input.Focus()
			continue
		}
		f.fields[j].input.Blur()
	}
	return cmd
}

func (f *filterForm) update(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		return f.focusField(f.focus + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return f.focusField(f.focus - 1)
	}
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

func (f *filterForm) resize(width int) {
	for i := range f.fields {
		in := &f.fields[i].input
		in.Width = max(10, width-lipgloss.Width(in.Prompt)-2)
	}
}

func (f *filterForm) view() string {
	lines := make([]string, 0, len(f.fields)+2)
	lines = append(lines, "Settings (enter to apply, esc to cancel)")
	for _, field := range f.fields {
		lines = append(lines, field.input.View())
	}
	if f.err != "" {
		lines = append(lines, errorStyle.Render(f.err))
	}
	return strings.Join(lines, "\n")
}

func formatMode(cfg model.StatsConfig) string { return string(cfg.Mode) }

func parseMode(value string, cfg *model.StatsConfig) error {
	mode, err := model.ParseMode(value)
	if err != nil {
		return err
	}
	cfg.Mode = mode
	return nil
}

func formatSince(cfg model.StatsConfig) string {
	if cfg.Since == nil {
		return ""
	}
	return cfg.Since.Format(dateLayout)
}

func parseSince(value string, cfg *model.StatsConfig) error {
	since, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		return errors.New("invalid since date (expected YYYY-MM-DD)")
	}
	cfg.Since = &since
	return nil
}

func formatLast(cfg model.StatsConfig) string {
	if cfg.Last <= 0 {
		return ""
	}
	return strconv.Itoa(cfg.Last)
}

func parseLast(value string, cfg *model.StatsConfig) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return errors.New("invalid last value (use 0 or positive integer)")
	}
	cfg.Last = n
	return nil
}

func formatWindow(cfg model.StatsConfig) string { return strconv.Itoa(cfg.CurveWindow) }

func parseWindow(value string, cfg *model.StatsConfig) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return errors.New("invalid curve window (use integer >= 1)")
	}
	cfg.CurveWindow = n
	return nil
}
