// Package debug keeps the lifecycle trace behind the debug overlay: session
// transitions, navigation, realtime connection changes and error bus events,
// each recorded from the value that produced it.
package debug

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/prince4597/society-management-software-sub001/internal/errbus"
	"github.com/prince4597/society-management-software-sub001/internal/realtime"
	"github.com/prince4597/society-management-software-sub001/internal/session"
	"github.com/prince4597/society-management-software-sub001/internal/theme"
)

const maxEntries = 200

// Source is the component an entry came from.
type Source int

const (
	SourceSession Source = iota
	SourceRoute
	SourceRealtime
	SourceBus
	numSources
)

func (s Source) String() string {
	switch s {
	case SourceSession:
		return "session"
	case SourceRoute:
		return "route"
	case SourceRealtime:
		return "realtime"
	case SourceBus:
		return "bus"
	}
	return "unknown"
}

func (s Source) badge() string {
	switch s {
	case SourceSession:
		return "SESS"
	case SourceRoute:
		return "NAV"
	case SourceRealtime:
		return "RT"
	case SourceBus:
		return "BUS"
	}
	return "?"
}

func (s Source) color() lipgloss.Color {
	switch s {
	case SourceSession:
		return theme.ColorSuccess
	case SourceRoute:
		return theme.ColorAccent
	case SourceRealtime:
		return theme.ColorInfo
	}
	return theme.ColorWarning
}

// Entry is one trace record.
type Entry struct {
	At      time.Time
	Source  Source
	Summary string
	Detail  string
	Failed  bool
}

// Model is the trace buffer plus the overlay's scroll and filter state.
type Model struct {
	entries []Entry
	counts  [numSources]int
	offset  int // lines scrolled up from the newest entry

	// filter narrows the view to one source while filtering is set.
	filter    Source
	filtering bool

	now func() time.Time
}

// New creates an empty trace.
func New() Model {
	return Model{now: time.Now}
}

// Transition records a session store transition.
func (m *Model) Transition(t session.Transition) {
	e := Entry{
		Source:  SourceSession,
		Summary: fmt.Sprintf("%s: %s → %s", t.Cause, t.Prev.Status, t.Next.Status),
	}
	switch {
	case t.Next.Identity != nil:
		e.Detail = fmt.Sprintf("%s (%s)", t.Next.Identity.DisplayName(), t.Next.Identity.Role)
	case t.Next.Err != "":
		e.Detail = t.Next.Err
		e.Failed = true
	}
	m.record(e)
}

// SignInFailed records a rejected credential sign-in.
func (m *Model) SignInFailed(err error) {
	m.record(Entry{Source: SourceSession, Summary: "sign-in rejected", Detail: err.Error(), Failed: true})
}

// Navigation records a route change.
func (m *Model) Navigation(from, to string) {
	if from == "" {
		from = "(start)"
	}
	m.record(Entry{Source: SourceRoute, Summary: from + " → " + to})
}

// Connection records a change in realtime connection health.
func (m *Model) Connection(st realtime.Status) {
	e := Entry{Source: SourceRealtime}
	switch {
	case st.Connected:
		e.Summary = "connected"
	case st.Error != "":
		e.Summary = "gave up"
		e.Detail = st.Error
		e.Failed = true
	default:
		e.Summary = "disconnected"
	}
	m.record(e)
}

// Event records an inbound or outbound realtime event.
func (m *Model) Event(name, detail string) {
	m.record(Entry{Source: SourceRealtime, Summary: name, Detail: detail})
}

// BusEvent records an error bus publication at the time it was published.
func (m *Model) BusEvent(ev errbus.Event) {
	m.record(Entry{At: ev.Timestamp, Source: SourceBus, Summary: ev.Code, Detail: ev.Message, Failed: true})
}

func (m *Model) record(e Entry) {
	if e.At.IsZero() {
		now := m.now
		if now == nil {
			now = time.Now
		}
		e.At = now()
	}
	m.entries = append(m.entries, e)
	m.counts[e.Source]++
	if len(m.entries) > maxEntries {
		m.counts[m.entries[0].Source]--
		m.entries = m.entries[len(m.entries)-maxEntries:]
	}
	m.offset = 0
}

// Entries returns the entries passing the current filter, oldest first.
func (m Model) Entries() []Entry {
	if !m.filtering {
		out := make([]Entry, len(m.entries))
		copy(out, m.entries)
		return out
	}
	var out []Entry
	for _, e := range m.entries {
		if e.Source == m.filter {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many retained entries came from src.
func (m Model) Count(src Source) int {
	return m.counts[src]
}

// Filter reports the source the view is narrowed to, if any.
func (m Model) Filter() (Source, bool) {
	return m.filter, m.filtering
}

// CycleFilter steps through all → session → route → realtime → bus → all.
func (m *Model) CycleFilter() {
	switch {
	case !m.filtering:
		m.filtering, m.filter = true, SourceSession
	case m.filter+1 < numSources:
		m.filter++
	default:
		m.filtering = false
	}
	m.offset = 0
}

// Offset is the current scroll position, counted up from the newest entry.
func (m Model) Offset() int {
	return m.offset
}

// ScrollUp moves the viewport toward older entries.
func (m *Model) ScrollUp(n int) {
	m.offset += n
	if max := len(m.Entries()) - 1; m.offset > max {
		m.offset = max
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// ScrollDown moves the viewport toward newer entries.
func (m *Model) ScrollDown(n int) {
	m.offset -= n
	if m.offset < 0 {
		m.offset = 0
	}
}

// View renders the trace as an overlay panel.
func (m Model) View(width, height int) string {
	innerW := width - 4
	if innerW < 30 {
		innerW = 30
	}
	visibleLines := height - 7
	if visibleLines < 3 {
		visibleLines = 3
	}

	title := theme.StyleHeader.Render(" LIFECYCLE TRACE ")
	help := theme.StyleDimmed.Render("j/k:scroll  f:filter  esc:close")

	entries := m.Entries()
	var body string
	if len(entries) == 0 {
		body = theme.StyleDimmed.Render("  Nothing recorded yet.")
	} else {
		end := len(entries) - m.offset
		start := end - visibleLines
		if start < 0 {
			start = 0
		}
		lines := make([]string, 0, end-start)
		for _, e := range entries[start:end] {
			lines = append(lines, m.line(e, innerW))
		}
		body = strings.Join(lines, "\n")
		if m.offset > 0 {
			body += "\n" + theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d newer", m.offset))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, m.tabs(), "", body, "", help)
	return lipgloss.NewStyle().
		Width(innerW).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

// tabs renders the filter bar with per-source counts.
func (m Model) tabs() string {
	tab := func(label string, active bool) string {
		if active {
			return theme.StyleSelected.Render("[" + label + "]")
		}
		return theme.StyleDimmed.Render(" " + label + " ")
	}
	parts := []string{tab(fmt.Sprintf("all %d", len(m.entries)), !m.filtering)}
	for src := SourceSession; src < numSources; src++ {
		parts = append(parts, tab(fmt.Sprintf("%s %d", src, m.counts[src]), m.filtering && m.filter == src))
	}
	return strings.Join(parts, " ")
}

func (m Model) line(e Entry, width int) string {
	badgeColor := e.Source.color()
	if e.Failed {
		badgeColor = theme.ColorError
	}
	ts := theme.StyleDimmed.Render(e.At.Format("15:04:05.000"))
	badge := lipgloss.NewStyle().Foreground(badgeColor).Width(4).Render(e.Source.badge())

	// timestamp, badge and separators take 19 columns.
	room := width - 19
	text := truncate(e.Summary, room)
	if e.Detail != "" && room-len([]rune(text)) > 4 {
		text += "  " + theme.StyleDimmed.Render(truncate(e.Detail, room-len([]rune(text))-2))
	}
	return ts + " " + badge + " " + text
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
