// Package app is the console's root Bubble Tea model. It renders whatever
// the route guard allows for the current path and turns session, routing,
// connection and notification events into screen updates.
package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/prince4597/society-management-software-sub001/internal/errbus"
	"github.com/prince4597/society-management-software-sub001/internal/guard"
	"github.com/prince4597/society-management-software-sub001/internal/logging"
	"github.com/prince4597/society-management-software-sub001/internal/notify"
	"github.com/prince4597/society-management-software-sub001/internal/realtime"
	"github.com/prince4597/society-management-software-sub001/internal/route"
	"github.com/prince4597/society-management-software-sub001/internal/session"
	"github.com/prince4597/society-management-software-sub001/internal/theme"
	"github.com/prince4597/society-management-software-sub001/internal/views/debug"
	"github.com/prince4597/society-management-software-sub001/internal/views/feed"
	"github.com/prince4597/society-management-software-sub001/internal/views/login"
	"github.com/prince4597/society-management-software-sub001/internal/views/status"
	"github.com/prince4597/society-management-software-sub001/internal/views/toast"
)

// Deps are the long-lived components the shell drives.
type Deps struct {
	Store   *session.Store
	Router  *route.Router
	Manager *realtime.Manager
	Surface *notify.Surface
	Bus     *errbus.Bus
	Logger  *zap.Logger
}

type (
	sessionMsg struct{ t session.Transition }
	navMsg     struct{ from, to string }
	connMsg    struct{ st realtime.Status }
	toastsMsg  struct{}
	busMsg     struct{ ev errbus.Event }
	noticeMsg  struct{ n realtime.Notice }
	joinedMsg  struct{ room string }

	loginResultMsg struct{ err error }
	loggedOutMsg   struct{}
)

// Model is the root Bubble Tea model.
type Model struct {
	deps   Deps
	table  route.Table
	log    *zap.Logger
	inbox  *inbox
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int

	statusBar status.Model
	debug     debug.Model
	showDebug bool
	login     login.Model
	spinner   spinner.Model
	feed      feed.Model

	// boundFor is the identity whose channel carries our event handlers.
	boundFor string
	unbind   []func()
}

// New creates the root model and subscribes it to every component.
func New(d Deps) Model {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = session.WithStore(ctx, d.Store)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorAccent)

	m := Model{
		deps:      d,
		table:     d.Router.Table(),
		log:       logging.OrNop(d.Logger).Named("app"),
		inbox:     newInbox(),
		ctx:       ctx,
		cancel:    cancel,
		keys:      DefaultKeyMap(),
		statusBar: status.New(),
		debug:     debug.New(),
		login:     login.New(),
		spinner:   sp,
		feed:      feed.New("Live events"),
	}

	in := m.inbox
	d.Store.Subscribe(func(t session.Transition) { in.push(sessionMsg{t}) })
	d.Router.OnNavigate(func(from, to string) { in.push(navMsg{from, to}) })
	d.Manager.OnStatus(func(st realtime.Status) { in.push(connMsg{st}) })
	d.Surface.OnChange(func() { in.push(toastsMsg{}) })
	if d.Bus != nil {
		d.Bus.Subscribe(func(ev errbus.Event) { in.push(busMsg{ev}) })
	}
	return m
}

// Init resolves the session and starts listening for component events.
func (m Model) Init() tea.Cmd {
	ctx := m.ctx
	return tea.Batch(
		m.inbox.next(ctx),
		m.spinner.Tick,
		func() tea.Msg {
			session.FromContext(ctx).Initialize(ctx)
			return nil
		},
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width

	case inboxMsg:
		for _, inner := range msg {
			var cmd tea.Cmd
			m, cmd = m.apply(inner)
			cmds = append(cmds, cmd)
		}
		cmds = append(cmds, m.inbox.next(m.ctx))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case login.SubmitMsg:
		ctx := m.ctx
		cmds = append(cmds, func() tea.Msg {
			return loginResultMsg{session.FromContext(ctx).LoginWithCredentials(ctx, msg.Username, msg.Password)}
		})

	case loginResultMsg:
		if msg.err != nil {
			m.login.Busy = false
			m.login.Err = msg.err.Error()
			m.debug.SignInFailed(msg.err)
		} else if st := m.deps.Store.State(); st.Authenticated() {
			m.deps.Surface.Success("Signed in as " + st.Identity.DisplayName())
		}

	case loggedOutMsg:
		m.deps.Surface.Info("Signed out")

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	m.enforce()
	return m, tea.Batch(cmds...)
}

// apply folds one component event into the model.
func (m Model) apply(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionMsg:
		t := msg.t
		m.debug.Transition(t)
		if !t.Next.Authenticated() {
			m.release()
			m.feed.Reset()
		}
		if t.Left(session.StatusAuthenticated) {
			m.login.Reset()
		}
		m.bind()

	case navMsg:
		m.debug.Navigation(msg.from, msg.to)

	case connMsg:
		m.debug.Connection(msg.st)
		if msg.st.Connected {
			m.bind()
			m.joinRoom()
		} else {
			m.feed.Joined = false
		}

	case noticeMsg:
		m.feed.Add(msg.n)
		m.debug.Event(realtime.EventNotice, msg.n.Title)

	case joinedMsg:
		if msg.room == m.feed.Room {
			m.feed.Joined = true
		}
		m.debug.Event(realtime.EventRoomJoined, msg.room)

	case busMsg:
		m.debug.BusEvent(msg.ev)

	case toastsMsg:
		// Toasts are read from the surface at render time.
	}
	return m, nil
}

// bind registers event handlers on the current channel once per identity.
// A fresh channel for the same identity only appears after a sign-out,
// which clears boundFor.
func (m *Model) bind() {
	st := m.deps.Store.State()
	if !st.Authenticated() || !m.deps.Manager.Connected() || m.boundFor == st.Identity.ID {
		return
	}
	m.release()

	in := m.inbox
	log := m.log
	m.unbind = append(m.unbind,
		m.deps.Manager.On(realtime.EventNotice, func(data json.RawMessage) {
			var n realtime.Notice
			if err := json.Unmarshal(data, &n); err != nil {
				log.Debug("bad notice payload", zap.Error(err))
				return
			}
			in.push(noticeMsg{n})
		}),
		m.deps.Manager.On(realtime.EventRoomJoined, func(data json.RawMessage) {
			var req realtime.RoomRequest
			if json.Unmarshal(data, &req) == nil {
				in.push(joinedMsg{req.Room})
			}
		}),
	)
	m.boundFor = st.Identity.ID
}

func (m *Model) release() {
	for _, off := range m.unbind {
		off()
	}
	m.unbind = nil
	m.boundFor = ""
}

// joinRoom asks for the actor's room. Rooms do not survive a reconnect, so
// this runs on every connect.
func (m *Model) joinRoom() {
	st := m.deps.Store.State()
	if !st.Authenticated() {
		return
	}
	room := ""
	switch {
	case st.Role() == m.table.SuperRole:
		room = realtime.PlatformRoom
		m.feed.Title = "Platform events"
	case st.Identity.SocietyID != "":
		room = realtime.SocietyRoom(st.Identity.SocietyID)
		m.feed.Title = "Society events"
	default:
		return
	}
	m.feed.Room = room
	m.feed.Joined = false
	if !m.deps.Manager.SubscribeToRoom(room) {
		m.log.Debug("room subscription dropped", zap.String("room", room))
	}
}

// enforce applies the guard's redirect for the current path, if any.
func (m *Model) enforce() {
	path := m.deps.Router.Current()
	d := guard.Check(m.deps.Store.State(), m.table, path)
	if d.Outcome == guard.Redirect && d.Target != path {
		m.log.Debug("guard redirect", zap.String("from", path), zap.String("to", d.Target))
		m.deps.Router.Navigate(d.Target)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, forceQuit) {
		m.cancel()
		return m, tea.Quit
	}

	if m.showDebug {
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Debug):
			m.showDebug = false
		case key.Matches(msg, m.keys.Up):
			m.debug.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.debug.ScrollDown(1)
		case key.Matches(msg, m.keys.Filter):
			m.debug.CycleFilter()
		}
		return m, nil
	}

	if m.onLoginForm() {
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	}

	ctx := m.ctx
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Refresh):
		return m, func() tea.Msg {
			session.FromContext(ctx).Refresh(ctx)
			return nil
		}

	case key.Matches(msg, m.keys.Logout):
		return m, func() tea.Msg {
			session.FromContext(ctx).Logout(ctx)
			return loggedOutMsg{}
		}

	case key.Matches(msg, m.keys.Tab):
		m.cycleScreen()

	case key.Matches(msg, m.keys.Back):
		m.deps.Router.Back()

	case key.Matches(msg, m.keys.Debug):
		m.showDebug = true

	case key.Matches(msg, m.keys.Dismiss):
		m.deps.Surface.DismissLatest()
	}
	return m, nil
}

// onLoginForm reports whether the sign-in form is on screen and owns the
// keyboard.
func (m Model) onLoginForm() bool {
	path := m.deps.Router.Current()
	if path != m.table.Entry {
		return false
	}
	return guard.Check(m.deps.Store.State(), m.table, path).Outcome == guard.Render
}

func (m *Model) cycleScreen() {
	routes := m.table.ForRole(m.deps.Store.State().Role())
	if len(routes) == 0 {
		return
	}
	cur := m.deps.Router.Current()
	next := routes[0].Path
	for i, r := range routes {
		if r.Path == cur {
			next = routes[(i+1)%len(routes)].Path
			break
		}
	}
	m.deps.Router.Navigate(next)
}

// View renders the full console.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	st := m.deps.Store.State()
	conn := m.deps.Manager.Status()
	path := m.deps.Router.Current()

	sb := m.statusBar
	sb.Session = string(st.Status)
	sb.Route = path
	sb.Connected = conn.Connected
	sb.ConnError = conn.Error
	sb.HasChannel = m.deps.Manager.HasChannel()
	if st.Authenticated() {
		sb.Actor = st.Identity.DisplayName()
		sb.Role = st.Role()
	}

	bodyHeight := m.height - 6
	var body string
	if m.showDebug {
		body = m.debug.View(m.width, bodyHeight)
	} else {
		body = m.screen(st, path, bodyHeight)
	}

	sections := []string{sb.View(), body}
	if t := toast.View(m.deps.Surface.Toasts(), m.width); t != "" {
		sections = append(sections, t)
	}
	sections = append(sections, theme.StyleDimmed.Render(m.helpLine()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) screen(st session.State, path string, height int) string {
	d := guard.Check(st, m.table, path)
	switch d.Outcome {
	case guard.Placeholder:
		return lipgloss.Place(m.width, max(height, 3), lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Resolving session...")
	case guard.Redirect:
		return theme.StyleDimmed.Render("  Redirecting to " + d.Target + "...")
	}

	switch path {
	case m.table.Entry:
		return m.login.View(m.width)
	case m.table.SuperLanding, m.table.DefaultLanding:
		return m.feed.View(m.width, height)
	}

	r, ok := m.table.Lookup(path)
	if !ok {
		return theme.StyleDimmed.Render("  Unknown screen " + path)
	}
	return theme.StyleBorder.Width(max(m.width-2, 20)).Render(lipgloss.JoinVertical(lipgloss.Left,
		theme.StyleHeader.Render(r.Title),
		theme.StyleDimmed.Render(fmt.Sprintf("Nothing to show yet for %s.", path)),
	))
}

func (m Model) helpLine() string {
	switch {
	case m.showDebug:
		return "  j/k:scroll  esc:close"
	case m.onLoginForm():
		return "  tab:next field  enter:sign in  ctrl+c:quit"
	default:
		return "  tab:screen  r:refresh  L:sign out  x:dismiss  d:debug  q:quit"
	}
}
