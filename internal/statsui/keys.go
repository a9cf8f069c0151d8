package statsui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	PrevTab  key.Binding
	NextTab  key.Binding
	Narrower key.Binding
	Wider    key.Binding
	Filter   key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		PrevTab:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("left/right", "tabs")),
		NextTab:  key.NewBinding(key.WithKeys("right", "l")),
		Narrower: key.NewBinding(key.WithKeys("-"), key.WithHelp("-/=", "window")),
		Wider:    key.NewBinding(key.WithKeys("=", "+")),
		Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "settings")),
		Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) help() string {
	parts := []string{"up/down: scroll"}
	for _, b := range []key.Binding{k.PrevTab, k.Narrower, k.Filter, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return strings.Join(parts, "  ")
}
