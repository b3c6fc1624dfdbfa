package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

type confirmView int

const (
	promptView confirmView = iota
	listView
)

const (
	txtFound       = "Found %d files. Press 'L' to list, or 'U' to start the upload."
	txtListing     = "Listing found, supported files"
	txtListConfirm = "Press 'U' to start the upload if this looks reasonable."
	txtConfirmHelp = "Any other key aborts."
	txtScrollHelp  = "↑/↓ pgup/pgdown to scroll"
	maxListHeight  = 15
)

type confirmModel struct {
	paths     []string
	view      confirmView
	viewport  viewport.Model
	confirmed bool
	done      bool
}

func newConfirmModel(paths []string) confirmModel {
	vp := viewport.New(80, max(1, min(len(paths), maxListHeight)))
	// u would otherwise scroll half a page
	vp.KeyMap = viewport.KeyMap{
		Up:       key.NewBinding(key.WithKeys("up")),
		Down:     key.NewBinding(key.WithKeys("down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
	}

	var b strings.Builder
	for i, p := range paths {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(" - " + p)
	}
	vp.SetContent(b.String())

	return confirmModel{paths: paths, viewport: vp}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		if h := msg.Height - 6; h > 0 {
			m.viewport.Height = max(1, min(len(m.paths), maxListHeight, h))
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == listView && m.isScrollKey(msg) {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		switch strings.ToUpper(msg.String()) {
		case "L":
			if m.view == promptView {
				m.view = listView
				return m, nil
			}
		case "U":
			m.confirmed = true
		}
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m confirmModel) isScrollKey(msg tea.KeyMsg) bool {
	km := m.viewport.KeyMap
	return key.Matches(msg, km.Up, km.Down, km.PageUp, km.PageDown)
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	switch m.view {
	case promptView:
		b.WriteString(fmt.Sprintf(txtFound, len(m.paths)))
		b.WriteString("\n")
	case listView:
		b.WriteString(cyan.Render(txtListing))
		b.WriteString("\n")
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
		if m.viewport.TotalLineCount() > m.viewport.Height {
			b.WriteString(gray.Render(fmt.Sprintf("%s (%3.f%%)", txtScrollHelp, m.viewport.ScrollPercent()*100)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(txtListConfirm)
		b.WriteString("\n")
	}
	b.WriteString(gray.Render(txtConfirmHelp))
	b.WriteString("\n")
	return b.String()
}

// runConfirmTUI returns true when the user chose to upload
func runConfirmTUI(paths []string) (bool, error) {
	final, err := tea.NewProgram(newConfirmModel(paths)).Run()
	if err != nil {
		return false, fmt.Errorf("confirm: %w", err)
	}
	m, ok := final.(confirmModel)
	return ok && m.confirmed, nil
}
