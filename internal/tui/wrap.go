// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/typerace/internal/engine"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
	isBreak bool
}

// textView is the slice of run state the text area needs.
type textView struct {
	target []rune
	states []engine.CharState
	typed  []rune
	cursor int
	ghost  int
}

func viewOf(e *engine.Engine, ghost int) textView {
	cursor := e.Cursor()
	if e.Phase() == engine.PhaseComplete {
		cursor = -1
	}
	return textView{
		target: e.Target(),
		states: e.States(),
		typed:  e.Typed(),
		cursor: cursor,
		ghost:  ghost,
	}
}

func buildStyledRunes(v textView) []styledRune {
	words := findWords(v.target)
	currentWord := wordForCursor(words, v.cursor)

	out := make([]styledRune, 0, len(v.target)+1)
	for i, target := range v.target {
		displayed := target
		style := pendingStyle
		switch v.states[i] {
		case engine.Correct:
			style = correctStyle
		case engine.Incorrect:
			style = incorrectStyle
			if target == ' ' && i < len(v.typed) && v.typed[i] != ' ' {
				displayed = '•'
			}
		default:
			if !unicode.IsSpace(target) && currentWord != nil && i >= currentWord.start && i < currentWord.end {
				style = currentWordStyle
			}
		}
		if target == '\n' {
			displayed = '↵'
		}
		switch {
		case i == v.cursor:
			style = style.Underline(true)
		case i == v.ghost && v.states[i] == engine.Waiting:
			style = ghostStyle
		}
		out = append(out, styledRune{
			s:       style.Render(string(displayed)),
			width:   runewidth.RuneWidth(displayed),
			isSpace: target == ' ',
			isBreak: target == '\n',
		})
	}
	if len(v.typed) > len(v.target) {
		for _, r := range v.typed[len(v.target):] {
			out = append(out, styledRune{
				s:     extraStyle.Render(string(r)),
				width: runewidth.RuneWidth(r),
			})
		}
	}
	if v.cursor >= len(v.target) {
		out = append(out, styledRune{s: cursorStyle.Render(" "), width: 1})
	}
	return out
}

type wordRange struct {
	start int
	end   int
}

func findWords(targetRunes []rune) []wordRange {
	words := []wordRange{}
	start := -1
	for i, r := range targetRunes {
		if unicode.IsSpace(r) {
			if start != -1 {
				words = append(words, wordRange{start: start, end: i})
				start = -1
			}
			continue
		}
		if start == -1 {
			start = i
		}
	}
	if start != -1 {
		words = append(words, wordRange{start: start, end: len(targetRunes)})
	}
	return words
}

func wordForCursor(words []wordRange, cursorIndex int) *wordRange {
	if len(words) == 0 || cursorIndex < 0 {
		return nil
	}
	for i, w := range words {
		if cursorIndex < w.end {
			return &words[i]
		}
	}
	return nil
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
		if item.isBreak {
			b.WriteRune('\n')
		}
	}
	return b.String()
}

// wrapStyledRunes breaks lines at the last space that fits width. Line
// breaks in the text always end a line.
func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderLine(line[:lastSpaceIdx+1]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderLine(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
		if item.isBreak {
			out.WriteString(renderLine(line))
			out.WriteRune('\n')
			line = line[:0]
			lineWidth = 0
			lastSpaceIdx = -1
		}
	}
	out.WriteString(renderLine(line))
	return out.String()
}

func renderLine(line []styledRune) string {
	var b strings.Builder
	for _, item := range line {
		b.WriteString(item.s)
	}
	return b.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
