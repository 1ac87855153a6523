package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/calldesk/calldesk-cli/internal/calls"
	"github.com/calldesk/calldesk-cli/internal/query"
	"github.com/calldesk/calldesk-cli/internal/stream"
)

type viewMode int

const (
	modeList viewMode = iota
	modeDetail
)

type inputFocus int

const (
	focusTable inputFocus = iota
	focusFrom
	focusTo
)

type (
	listMsg   stream.ListState
	queryMsg  query.Query
	detailMsg struct {
		gen   int
		state stream.DetailState
	}
	actionMsg struct {
		gen   int
		state stream.ActionState
	}
	flashMsg struct {
		text string
		err  bool
	}
)

type Model struct {
	sess *Session
	log  *zap.Logger
	now  func() time.Time

	mode  viewMode
	focus inputFocus

	width  int
	height int

	table   table.Model
	from    textinput.Model
	to      textinput.Model
	spin    spinner.Model
	detail  viewport.Model
	help    help.Model
	keys    keyMap
	rowIDs  []string
	listSub <-chan stream.ListState
	qrySub  <-chan query.Query

	list  stream.ListState
	query query.Query

	open      *DetailView
	openGen   int
	detailSub <-chan stream.DetailState
	actionSub <-chan stream.ActionState
	detailSt  stream.DetailState
	actionSt  stream.ActionState

	flash    string
	flashErr bool
}

type Config struct {
	Provider calls.Provider
	Session  SessionConfig
}

func Run(ctx context.Context, cfg Config) error {
	sess := NewSession(cfg.Provider, cfg.Session)
	sess.Start(ctx)
	defer sess.Stop()

	m := NewModel(sess, cfg.Session.Logger)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// NewModel expects a started session.
func NewModel(sess *Session, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}
	t := table.New(
		table.WithColumns(callColumns(80)),
		table.WithRows(nil),
		table.WithFocused(true),
	)
	t.SetStyles(minimalTableStyles())

	q := sess.Cell.Query()
	from := newDateInput("from ", q.From)
	to := newDateInput("to   ", q.To)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = mutedStyle()

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().AlignVertical(lipgloss.Top).Align(lipgloss.Left)

	ctx := sess.Context()
	return Model{
		sess:    sess,
		log:     log,
		now:     time.Now,
		mode:    modeList,
		focus:   focusTable,
		table:   t,
		from:    from,
		to:      to,
		spin:    sp,
		detail:  vp,
		help:    help.New(),
		keys:    defaultKeyMap(),
		listSub: sess.List.Subscribe(ctx),
		qrySub:  sess.Cell.Subscribe(ctx),
		list:    sess.List.State(),
		query:   q,
	}
}

func newDateInput(prompt, value string) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = "YYYY-MM-DD"
	in.CharLimit = 10
	in.Width = 12
	in.SetValue(value)
	return in
}

func waitList(ch <-chan stream.ListState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return listMsg(st)
	}
}

func waitQuery(ch <-chan query.Query) tea.Cmd {
	return func() tea.Msg {
		q, ok := <-ch
		if !ok {
			return nil
		}
		return queryMsg(q)
	}
}

func waitDetail(gen int, ch <-chan stream.DetailState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return detailMsg{gen: gen, state: st}
	}
}

func waitAction(gen int, ch <-chan stream.ActionState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return actionMsg{gen: gen, state: st}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitList(m.listSub), waitQuery(m.qrySub), m.spin.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshRows()
		return m, nil

	case listMsg:
		m.list = stream.ListState(msg)
		m.refreshRows()
		return m, waitList(m.listSub)

	case queryMsg:
		m.query = query.Query(msg)
		m.syncInputs()
		return m, waitQuery(m.qrySub)

	case detailMsg:
		if msg.gen != m.openGen || m.open == nil {
			return m, nil
		}
		m.detailSt = msg.state
		m.refreshDetail()
		return m, waitDetail(msg.gen, m.detailSub)

	case actionMsg:
		if msg.gen != m.openGen || m.open == nil {
			return m, nil
		}
		m.actionSt = msg.state
		m.refreshDetail()
		return m, waitAction(msg.gen, m.actionSub)

	case flashMsg:
		m.flash, m.flashErr = msg.text, msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.mode == modeDetail {
			return m.updateDetail(msg)
		}
		if m.focus != focusTable {
			return m.updateInputs(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.flash = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.Open):
		if id := m.selectedID(); id != "" {
			return m.openDetail(id)
		}
		return m, nil
	case key.Matches(msg, m.keys.NextPage):
		if res := m.list.Result; res != nil && m.query.Page < res.TotalPages {
			m.sess.Cell.Merge(query.PageTo(m.query.Page + 1))
		}
		return m, nil
	case key.Matches(msg, m.keys.PrevPage):
		if m.query.Page > 1 {
			m.sess.Cell.Merge(query.PageTo(m.query.Page - 1))
		}
		return m, nil
	case key.Matches(msg, m.keys.Focus):
		if msg.String() == "shift+tab" {
			return m.setFocus(focusTo)
		}
		return m.setFocus(focusFrom)
	case key.Matches(msg, m.keys.Today):
		m.sess.Form.SetToday()
		return m, nil
	case key.Matches(msg, m.keys.Week):
		m.sess.Form.SetThisWeek()
		return m, nil
	case key.Matches(msg, m.keys.Month):
		m.sess.Form.SetThisMonth()
		return m, nil
	case key.Matches(msg, m.keys.Clear):
		m.sess.Form.ClearRange()
		return m, nil
	case key.Matches(msg, m.keys.History):
		if !m.sess.Cell.Back() {
			m.flash = "No earlier filters."
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		m.sess.List.Refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(translateNavKeys(msg))
	return m, cmd
}

func (m Model) updateInputs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		return m.setFocus(focusTable)
	case "tab":
		if m.focus == focusFrom {
			return m.setFocus(focusTo)
		}
		return m.setFocus(focusTable)
	case "shift+tab":
		if m.focus == focusTo {
			return m.setFocus(focusFrom)
		}
		return m.setFocus(focusTable)
	}

	var cmd tea.Cmd
	if m.focus == focusFrom {
		before := m.from.Value()
		m.from, cmd = m.from.Update(msg)
		if v := m.from.Value(); v != before {
			m.sess.Form.EditFrom(v)
		}
	} else {
		before := m.to.Value()
		m.to, cmd = m.to.Update(msg)
		if v := m.to.Value(); v != before {
			m.sess.Form.EditTo(v)
		}
	}
	return m, cmd
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.detailSt.Call
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.Back):
		m.closeDetail()
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		m.open.Detail.Refresh()
		return m, nil
	case key.Matches(msg, m.keys.Start):
		if stream.CanStart(c) {
			return m, m.runAction(stream.ActionStart, c.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.Finish):
		if stream.CanFinish(c) {
			return m, m.runAction(stream.ActionFinish, c.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.Dismiss):
		m.open.Actions.Dismiss()
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		id := m.open.Detail.ID()
		return m, func() tea.Msg {
			if err := copyToClipboard(id); err != nil {
				return flashMsg{text: "Copy failed: " + err.Error(), err: true}
			}
			return flashMsg{text: "Copied " + id}
		}
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(translateNavKeys(msg))
	return m, cmd
}

func (m Model) runAction(kind stream.ActionKind, id string) tea.Cmd {
	view := m.open
	return func() tea.Msg {
		if kind == stream.ActionStart {
			view.Actions.Start(view.Context(), id)
		} else {
			view.Actions.Finish(view.Context(), id)
		}
		return nil
	}
}

func (m Model) openDetail(id string) (tea.Model, tea.Cmd) {
	m.closeDetail()
	m.openGen++
	m.open = m.sess.OpenDetail(id)
	m.detailSub = m.open.Detail.Subscribe(m.open.Context())
	m.actionSub = m.open.Actions.Subscribe(m.open.Context())
	m.detailSt = m.open.Detail.State()
	m.actionSt = stream.ActionState{}
	m.mode = modeDetail
	m.flash = ""
	m.layout()
	m.refreshDetail()
	m.detail.GotoTop()
	m.log.Debug("detail opened", zap.String("id", id))
	return m, tea.Batch(waitDetail(m.openGen, m.detailSub), waitAction(m.openGen, m.actionSub))
}

func (m *Model) closeDetail() {
	if m.open != nil {
		m.open.Close()
		m.open = nil
	}
	m.detailSub, m.actionSub = nil, nil
	m.detailSt, m.actionSt = stream.DetailState{}, stream.ActionState{}
	m.mode = modeList
	m.flash = ""
	m.layout()
}

func (m Model) setFocus(f inputFocus) (tea.Model, tea.Cmd) {
	m.focus = f
	m.from.Blur()
	m.to.Blur()
	m.table.Blur()
	var cmd tea.Cmd
	switch f {
	case focusFrom:
		cmd = m.from.Focus()
	case focusTo:
		cmd = m.to.Focus()
	default:
		m.table.Focus()
	}
	return m, cmd
}

// syncInputs mirrors the query into the date fields unless the user has an
// edit waiting to commit.
func (m *Model) syncInputs() {
	if !m.sess.Form.From.Pending() && m.from.Value() != m.query.From {
		m.from.SetValue(m.query.From)
	}
	if !m.sess.Form.To.Pending() && m.to.Value() != m.query.To {
		m.to.SetValue(m.query.To)
	}
}

func (m *Model) refreshRows() {
	var items []calls.Call
	if m.list.Result != nil {
		items = m.list.Result.Items
	}
	ids := make([]string, 0, len(items))
	for _, c := range items {
		ids = append(ids, c.ID)
	}
	m.rowIDs = ids
	m.table.SetRows(callRows(items, m.now()))
	if m.table.Cursor() >= len(items) {
		m.table.SetCursor(maxInt(len(items)-1, 0))
	}
}

func (m *Model) refreshDetail() {
	m.detail.SetContent(renderDetail(m.detailSt, m.actionSt, m.now()))
}

func (m Model) selectedID() string {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rowIDs) {
		return ""
	}
	return m.rowIDs[i]
}

func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	innerW := maxInt(m.width-4, 20)
	bodyH := maxInt(m.height-m.chromeHeight(), 3)
	m.table.SetWidth(innerW)
	m.table.SetHeight(bodyH)
	m.table.SetColumns(callColumns(innerW))
	m.detail.Width = innerW
	m.detail.Height = bodyH
}

// chromeHeight counts header, filter, status and footer lines around the body.
func (m Model) chromeHeight() int {
	h := 6
	if m.help.ShowAll {
		h += 3
	}
	return h
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading…"
	}
	header := m.renderHeader()
	var body string
	if m.mode == modeDetail {
		body = panelStyle().Width(m.width).Render(m.detail.View())
	} else {
		body = panelStyle().Width(m.width).Render(m.table.View())
	}
	keys := m.keys
	if m.mode == modeDetail {
		keys = keys.forDetail()
	}
	footer := footerStyle().Render(m.help.View(keys))
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatus(), footer)
}

func (m Model) renderHeader() string {
	title := titleStyle().Render("calldesk")
	if m.mode == modeDetail {
		return title + mutedStyle().Render("  /calls/"+m.open.Detail.ID())
	}
	from, to := m.from.View(), m.to.View()
	switch m.focus {
	case focusFrom:
		from = activeInputStyle().Render(from)
	case focusTo:
		to = activeInputStyle().Render(to)
	}
	path := mutedStyle().Render(truncateRunes("  ?"+m.sess.Cell.Encode(), maxInt(m.width-12, 10)))
	filters := lipgloss.JoinHorizontal(lipgloss.Top, from, "  ", to, "  ",
		mutedStyle().Render(renderFilterSummary(m.query, string(m.sess.Form.Preset()))))
	return lipgloss.JoinVertical(lipgloss.Left, title+path, filters)
}

func (m Model) renderStatus() string {
	if m.flash != "" {
		if m.flashErr {
			return errorStyle().Render(m.flash)
		}
		return mutedStyle().Render(m.flash)
	}
	if m.mode == modeDetail {
		if m.detailSt.Loading || m.detailSt.TranscriptLoading || m.actionSt.Phase == stream.ActionInFlight {
			return m.spin.View()
		}
		return ""
	}
	line := listStatusLine(m.list)
	if m.list.Err != nil {
		line = errorStyle().Render(line)
	}
	if m.list.Loading {
		line = m.spin.View() + " " + line
	}
	if strip := renderPageStrip(m.query, m.list.Result); strip != "" {
		line = fmt.Sprintf("%s   %s", strip, line)
	}
	return line
}
