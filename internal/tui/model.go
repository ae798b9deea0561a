// Package tui is the terminal front end of the start page. It renders the
// sync client's draft and turns key presses into client mutations.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"glassdash/internal/dashboard"
	"glassdash/internal/feed"
	"glassdash/internal/settings"
	"glassdash/internal/syncclient"
)

const (
	feedTimeout   = 20 * time.Second
	editTimeout   = 10 * time.Second
	feedHeight    = 8
	minCardWidth  = 14
	defaultWidth  = 100
	defaultHeight = 30
)

// tickMsg drives the clock. It is scheduled once a second on the wall
// clock boundary.
type tickMsg time.Time

// stateChangedMsg means the sync client's state changed; the model reads
// the latest state itself.
type stateChangedMsg struct{}

type feedLoadedMsg struct {
	url   string
	items []feed.Item
	err   error
}

type editorOpenedMsg struct {
	session *syncclient.Editor
	err     error
}

type reloadDoneMsg struct {
	err error
}

type Options struct {
	// Fetcher loads the feed panel. Nil hides the panel.
	Fetcher *feed.Fetcher
	Now     func() time.Time
	Keys    *KeyMap
}

type Model struct {
	client  *syncclient.Client
	fetcher *feed.Fetcher
	keys    KeyMap
	now     func() time.Time

	// changes is signalled by the client subscription. Buffered by one so a
	// burst of changes collapses into one redraw.
	changes     chan struct{}
	unsubscribe func()

	width  int
	height int
	state  syncclient.State
	clock  time.Time

	feedURL     string
	feedItems   []feed.Item
	feedErr     error
	feedLoading bool
	feedView    viewport.Model

	editor *editorModel
	notice string
}

func NewModel(client *syncclient.Client, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	keys := DefaultKeyMap
	if opts.Keys != nil {
		keys = *opts.Keys
	}

	changes := make(chan struct{}, 1)
	unsubscribe := client.Subscribe(func(syncclient.State) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	m := Model{
		client:      client,
		fetcher:     opts.Fetcher,
		keys:        keys,
		now:         opts.Now,
		changes:     changes,
		unsubscribe: unsubscribe,
		width:       defaultWidth,
		height:      defaultHeight,
		state:       client.State(),
		clock:       opts.Now(),
	}
	m.feedView = viewport.New(defaultWidth-4, feedHeight)
	return m
}

// Close detaches the model from the client.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick(), listenForChanges(m.changes)}
	if url, ok := m.wantFeed(); ok {
		cmds = append(cmds, fetchFeed(m.fetcher, url))
	}
	return tea.Batch(cmds...)
}

func tick() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// listenForChanges blocks until the client reports a change.
func listenForChanges(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

func fetchFeed(fetcher *feed.Fetcher, url string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), feedTimeout)
		defer cancel()
		result, err := fetcher.Fetch(ctx, url)
		return feedLoadedMsg{url: url, items: result.Items, err: err}
	}
}

func beginEdit(client *syncclient.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), editTimeout)
		defer cancel()
		session, err := client.BeginEdit(ctx)
		return editorOpenedMsg{session: session, err: err}
	}
}

func reload(client *syncclient.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), editTimeout)
		defer cancel()
		return reloadDoneMsg{err: client.Reload(ctx)}
	}
}

// wantFeed returns the feed URL the panel should show, if any.
func (m Model) wantFeed() (string, bool) {
	doc := m.state.Document
	if m.fetcher == nil || m.state.Status != syncclient.StatusReady || !doc.ShowRSS {
		return "", false
	}
	return doc.RSSURL, true
}

// syncFeed starts a fetch when the configured feed changed.
func (m *Model) syncFeed() tea.Cmd {
	url, ok := m.wantFeed()
	if !ok {
		m.feedURL = ""
		return nil
	}
	if url == m.feedURL && (m.feedLoading || m.feedItems != nil || m.feedErr != nil) {
		return nil
	}
	m.feedURL = url
	m.feedItems, m.feedErr, m.feedLoading = nil, nil, true
	m.feedView.SetContent("")
	return fetchFeed(m.fetcher, url)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.feedView.Width = max(msg.Width-4, 10)
		m.feedView.SetContent(m.renderFeedItems())
		return m, nil

	case tickMsg:
		m.clock = time.Time(msg)
		return m, tick()

	case stateChangedMsg:
		m.state = m.client.State()
		return m, tea.Batch(listenForChanges(m.changes), m.syncFeed())

	case feedLoadedMsg:
		if msg.url != m.feedURL {
			return m, nil
		}
		m.feedLoading = false
		m.feedItems, m.feedErr = msg.items, msg.err
		if msg.err == nil && m.feedItems == nil {
			m.feedItems = []feed.Item{}
		}
		m.feedView.SetContent(m.renderFeedItems())
		m.feedView.GotoTop()
		return m, nil

	case editorOpenedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Cannot open settings: %v", msg.err)
			return m, nil
		}
		m.notice = ""
		m.editor = newEditorModel(msg.session, m.keys)
		m.state = m.client.State()
		return m, nil

	case reloadDoneMsg:
		m.state = m.client.State()
		return m, m.syncFeed()

	case tea.KeyMsg:
		if m.editor != nil {
			next, cmd, done := m.editor.Update(msg)
			if done {
				m.editor = nil
			} else {
				m.editor = &next
			}
			m.state = m.client.State()
			return m, cmd
		}
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.state.Status == syncclient.StatusError {
		if key.Matches(msg, m.keys.Reload) {
			return m, reload(m.client)
		}
		return m, nil
	}
	if m.state.Status != syncclient.StatusReady {
		return m, nil
	}

	doc := m.state.Document
	page := dashboard.Paginate(doc, settings.PageSize)
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.PrevPage):
		if page.HasPrev() {
			m.client.GoToPage(page.Index - 1)
		}
	case key.Matches(msg, m.keys.NextPage):
		if page.HasNext() {
			m.client.GoToPage(page.Index + 1)
		}
	case key.Matches(msg, m.keys.Theme):
		m.client.SetTheme(settings.NextTheme(doc.ThemeID))
	case key.Matches(msg, m.keys.ViewMode):
		m.client.SetViewMode(doc.ViewMode.Next())
	case key.Matches(msg, m.keys.ToggleRSS):
		m.client.SetShowRSS(!doc.ShowRSS)
	case key.Matches(msg, m.keys.Edit):
		return m, beginEdit(m.client)
	case key.Matches(msg, m.keys.FeedUp), key.Matches(msg, m.keys.FeedDown):
		var cmd tea.Cmd
		m.feedView, cmd = m.feedView.Update(msg)
		return m, cmd
	}
	m.state = m.client.State()
	return m, nil
}

func (m Model) View() string {
	styles := NewStyles(settings.ResolveTheme(m.state.Document.ThemeID))

	switch m.state.Status {
	case syncclient.StatusLoading:
		return m.center(styles.Faint.Render("Loading settings..."))
	case syncclient.StatusError:
		body := lipgloss.JoinVertical(lipgloss.Center,
			styles.Error.Render("Unable to load settings"),
			styles.Faint.Render(errorText(m.state.Err)),
			"",
			styles.Help.Render(helpLine(m.keys.Reload, m.keys.Quit)),
		)
		return m.center(body)
	}

	view := dashboard.Build(m.state.Document, m.clock)

	var sections []string
	sections = append(sections, m.renderHeader(view, styles))
	if m.editor != nil {
		sections = append(sections, m.editor.View(styles, m.width))
	} else {
		sections = append(sections, m.renderGrid(view, styles))
		if dots := m.renderDots(view.Page, styles); dots != "" {
			sections = append(sections, dots)
		}
		if view.ShowRSS && m.fetcher != nil {
			sections = append(sections, m.renderFeed(styles))
		}
		sections = append(sections, m.renderHelp(styles))
	}
	if m.notice != "" {
		sections = append(sections, styles.Error.Render(m.notice))
	}
	return strings.Join(sections, "\n")
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (m Model) center(s string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
}

func (m Model) renderHeader(view dashboard.View, styles Styles) string {
	header := lipgloss.JoinVertical(lipgloss.Center,
		styles.Clock.Render(view.Time),
		styles.Date.Render(view.Date),
	)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, header) + "\n"
}

func (m Model) cardWidth(cols int) int {
	// two border cells per card
	w := m.width/cols - 2
	if w < minCardWidth {
		w = minCardWidth
	}
	return w
}

func (m Model) renderGrid(view dashboard.View, styles Styles) string {
	cols := dashboard.Columns(view.ViewMode)
	width := m.cardWidth(cols)

	var rows []string
	var row []string
	for _, slot := range view.Page.Slots {
		row = append(row, renderSlot(slot, view.ViewMode, width, styles))
		if len(row) == cols {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderSlot(slot dashboard.Slot, mode settings.ViewMode, width int, styles Styles) string {
	switch slot := slot.(type) {
	case dashboard.LinkSlot:
		icon := iconText(dashboard.IconFor(slot.Link), slot.Link)
		title := truncate(slot.Link.Title, width-2)
		style := styles.Card.Width(width)
		switch mode {
		case settings.ViewCompact:
			return style.Align(lipgloss.Left).Render(truncate(icon+" "+slot.Link.Title, width-2))
		case settings.ViewLarge:
			return style.Render(lipgloss.JoinVertical(lipgloss.Center, "", icon, "", title, styles.Faint.Render(truncate(hostOf(slot.Link.URL), width-2))))
		default:
			return style.Render(lipgloss.JoinVertical(lipgloss.Center, icon, title))
		}
	case dashboard.AddSlot:
		style := styles.AddCard.Width(width)
		if !dashboard.ShowsTitles(mode) {
			return style.Render("+")
		}
		if mode == settings.ViewLarge {
			return style.Render(lipgloss.JoinVertical(lipgloss.Center, "", "+", "", "Add Link", ""))
		}
		return style.Render(lipgloss.JoinVertical(lipgloss.Center, "+", "Add Link"))
	}
	return ""
}

// iconText stands in for the favicon image with the first letter of the
// title, since a terminal cannot show it.
func iconText(icon dashboard.Icon, link settings.Link) string {
	if icon.Symbol != "" {
		return icon.Symbol
	}
	for _, r := range link.Title {
		return "[" + strings.ToUpper(string(r)) + "]"
	}
	return "[?]"
}

func hostOf(rawURL string) string {
	s := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s
}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

func (m Model) renderDots(page dashboard.Page, styles Styles) string {
	dots := page.Dots()
	if dots == nil {
		return ""
	}
	var parts []string
	if page.HasPrev() {
		parts = append(parts, styles.Arrow.Render("‹"))
	} else {
		parts = append(parts, " ")
	}
	for _, active := range dots {
		if active {
			parts = append(parts, styles.ActiveDot.Render("●"))
		} else {
			parts = append(parts, styles.Dot.Render("○"))
		}
	}
	if page.HasNext() {
		parts = append(parts, styles.Arrow.Render("›"))
	}
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, strings.Join(parts, " "))
}

func (m Model) renderFeed(styles Styles) string {
	var body string
	switch {
	case m.feedLoading:
		body = styles.Faint.Render("Loading feed...")
	case m.feedErr != nil:
		body = styles.Error.Render("Unable to load feed")
	case len(m.feedItems) == 0:
		body = styles.Faint.Render("No items")
	default:
		body = m.feedView.View()
	}
	content := lipgloss.JoinVertical(lipgloss.Left, styles.Heading.Render("Latest"), body)
	return styles.Panel.Width(max(m.width-2, 10)).Render(content)
}

func (m Model) renderFeedItems() string {
	var b strings.Builder
	width := max(m.feedView.Width, 10)
	for i, item := range m.feedItems {
		if i > 0 {
			b.WriteString("\n")
		}
		line := "• " + item.Title
		if item.PubDate != "" {
			line += "  " + item.PubDate
		}
		b.WriteString(truncate(line, width))
		if item.Description != "" {
			b.WriteString("\n  " + truncate(item.Description, width-2))
		}
	}
	return b.String()
}

func (m Model) renderHelp(styles Styles) string {
	return styles.Help.Render(" " + helpLine(
		m.keys.PrevPage, m.keys.NextPage, m.keys.Theme, m.keys.ViewMode,
		m.keys.ToggleRSS, m.keys.Edit, m.keys.Quit,
	))
}
