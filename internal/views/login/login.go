// Package login provides the sign-in form.
package login

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/prince4597/society-management-software-sub001/internal/theme"
)

// SubmitMsg is emitted when the user submits the form.
type SubmitMsg struct {
	Username string
	Password string
}

type keyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
}

var keys = keyMap{
	Next:   key.NewBinding(key.WithKeys("tab", "down")),
	Prev:   key.NewBinding(key.WithKeys("shift+tab", "up")),
	Submit: key.NewBinding(key.WithKeys("enter")),
}

// Model is the sign-in form.
type Model struct {
	inputs []textinput.Model
	focus  int

	// Busy disables submission while a sign-in is in flight.
	Busy bool
	// Err is the last sign-in failure, shown under the form.
	Err string
}

// New creates an empty form focused on the username.
func New() Model {
	user := textinput.New()
	user.Placeholder = "username"
	user.Prompt = "User     "
	user.CharLimit = 64
	user.Focus()

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.Prompt = "Password "
	pass.CharLimit = 128
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	return Model{inputs: []textinput.Model{user, pass}}
}

// Reset clears the form for a fresh sign-in.
func (m *Model) Reset() {
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
	m.setFocus(0)
	m.Busy = false
	m.Err = ""
}

func (m *Model) setFocus(i int) {
	m.focus = (i + len(m.inputs)) % len(m.inputs)
	for j := range m.inputs {
		if j == m.focus {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, keys.Next):
			m.setFocus(m.focus + 1)
			return m, nil
		case key.Matches(k, keys.Prev):
			m.setFocus(m.focus - 1)
			return m, nil
		case key.Matches(k, keys.Submit):
			if m.focus < len(m.inputs)-1 {
				m.setFocus(m.focus + 1)
				return m, nil
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	if m.Busy {
		return m, nil
	}
	user := strings.TrimSpace(m.inputs[0].Value())
	pass := m.inputs[1].Value()
	if user == "" || pass == "" {
		m.Err = "username and password are required"
		return m, nil
	}
	m.Busy = true
	m.Err = ""
	return m, func() tea.Msg { return SubmitMsg{Username: user, Password: pass} }
}

func (m Model) View(width int) string {
	lines := []string{
		theme.StyleHeader.Render("Sign in to the society console"),
		"",
	}
	for _, in := range m.inputs {
		lines = append(lines, in.View())
	}
	lines = append(lines, "")
	switch {
	case m.Busy:
		lines = append(lines, theme.StyleDimmed.Render("Signing in..."))
	case m.Err != "":
		lines = append(lines, theme.StyleError.Render(m.Err))
	default:
		lines = append(lines, theme.StyleDimmed.Render("tab:next field  enter:sign in"))
	}

	box := theme.StyleBorder.Padding(1, 3).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	if width <= 0 {
		return box
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, box)
}
