package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"glassdash/internal/dashboard"
	"glassdash/internal/settings"
	"glassdash/internal/syncclient"
)

const (
	fieldTitle = iota
	fieldURL
	fieldIcon
	fieldCount
)

// editorModel drives a syncclient.Editor session: a cursor over the link
// list, a form for new links and a line for the feed URL.
type editorModel struct {
	session *syncclient.Editor
	keys    KeyMap
	cursor  int

	form   *linkForm
	rss    *textinput.Model
	status string
}

type linkForm struct {
	inputs [fieldCount]textinput.Model
	focus  int
	emoji  int
}

func newEditorModel(session *syncclient.Editor, keys KeyMap) *editorModel {
	return &editorModel{session: session, keys: keys}
}

func newLinkForm() *linkForm {
	f := &linkForm{emoji: -1}
	placeholders := [fieldCount]string{"Title", "example.com", "Icon (emoji, optional)"}
	for i := range f.inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = 2048
		in.Width = 40
		f.inputs[i] = in
	}
	f.inputs[fieldTitle].Focus()
	return f
}

func (f *linkForm) setFocus(i int) {
	f.inputs[f.focus].Blur()
	f.focus = (i + fieldCount) % fieldCount
	f.inputs[f.focus].Focus()
}

// Update handles one key press. done reports that the session ended and the
// editor should close.
func (e editorModel) Update(msg tea.KeyMsg) (editorModel, tea.Cmd, bool) {
	switch {
	case e.form != nil:
		return e.updateForm(msg)
	case e.rss != nil:
		return e.updateRSS(msg)
	}

	doc := e.session.Document()
	e.status = ""

	switch {
	case key.Matches(msg, e.keys.Save):
		if err := e.session.Save(); err != nil {
			e.status = fmt.Sprintf("Save failed: %v", err)
			return e, nil, false
		}
		return e, nil, true
	case key.Matches(msg, e.keys.Cancel):
		e.session.Cancel()
		return e, nil, true

	case key.Matches(msg, e.keys.Up):
		if e.cursor > 0 {
			e.cursor--
		}
	case key.Matches(msg, e.keys.Down):
		if e.cursor < len(doc.Links)-1 {
			e.cursor++
		}
	case key.Matches(msg, e.keys.MoveUp):
		if e.cursor > 0 {
			e.session.MoveLink(e.cursor, e.cursor-1)
			e.cursor--
		}
	case key.Matches(msg, e.keys.MoveDown):
		if e.cursor < len(doc.Links)-1 {
			e.session.MoveLink(e.cursor, e.cursor+1)
			e.cursor++
		}
	case key.Matches(msg, e.keys.Delete):
		if e.cursor < len(doc.Links) {
			e.session.RemoveLink(doc.Links[e.cursor].ID)
			if e.cursor > 0 && e.cursor >= len(doc.Links)-1 {
				e.cursor--
			}
		}
	case key.Matches(msg, e.keys.Add):
		e.form = newLinkForm()
		return e, textinput.Blink, false

	case key.Matches(msg, e.keys.Theme):
		e.session.Update(func(d *settings.Document) { d.ThemeID = settings.NextTheme(d.ThemeID) })
	case key.Matches(msg, e.keys.ViewMode):
		e.session.Update(func(d *settings.Document) { d.ViewMode = d.ViewMode.Next() })
	case key.Matches(msg, e.keys.ToggleRSS):
		e.session.Update(func(d *settings.Document) { d.ShowRSS = !d.ShowRSS })
	case key.Matches(msg, e.keys.EditRSS):
		in := textinput.New()
		in.Placeholder = "https://example.com/feed.xml"
		in.CharLimit = 2048
		in.Width = 60
		in.SetValue(doc.RSSURL)
		in.Focus()
		e.rss = &in
		return e, textinput.Blink, false
	}
	return e, nil, false
}

func (e editorModel) updateForm(msg tea.KeyMsg) (editorModel, tea.Cmd, bool) {
	form := *e.form
	e.form = &form

	switch {
	case key.Matches(msg, e.keys.Cancel):
		e.form = nil
		return e, nil, false
	case key.Matches(msg, e.keys.NextField):
		form.setFocus(form.focus + 1)
		return e, nil, false
	case key.Matches(msg, e.keys.PrevField):
		form.setFocus(form.focus - 1)
		return e, nil, false
	case key.Matches(msg, e.keys.NextEmoji) && form.focus == fieldIcon:
		form.emoji = (form.emoji + 1) % len(settings.EmojiPresets)
		form.inputs[fieldIcon].SetValue(settings.EmojiPresets[form.emoji])
		return e, nil, false
	case key.Matches(msg, e.keys.Submit):
		link, err := e.session.AddLink(
			form.inputs[fieldTitle].Value(),
			form.inputs[fieldURL].Value(),
			form.inputs[fieldIcon].Value(),
		)
		switch {
		case errors.Is(err, settings.ErrTitleRequired):
			e.status = "Title is required"
			form.setFocus(fieldTitle)
		case errors.Is(err, settings.ErrURLRequired):
			e.status = "URL is required"
			form.setFocus(fieldURL)
		case err != nil:
			e.status = err.Error()
		default:
			e.form = nil
			e.status = "Added " + link.Title
			e.cursor = e.session.Document().IndexOf(link.ID)
		}
		return e, nil, false
	}

	var cmd tea.Cmd
	form.inputs[form.focus], cmd = form.inputs[form.focus].Update(msg)
	return e, cmd, false
}

func (e editorModel) updateRSS(msg tea.KeyMsg) (editorModel, tea.Cmd, bool) {
	in := *e.rss
	switch {
	case key.Matches(msg, e.keys.Cancel):
		e.rss = nil
		return e, nil, false
	case key.Matches(msg, e.keys.Submit):
		url := strings.TrimSpace(in.Value())
		e.session.Update(func(d *settings.Document) { d.RSSURL = url })
		e.rss = nil
		return e, nil, false
	}
	var cmd tea.Cmd
	in, cmd = in.Update(msg)
	e.rss = &in
	return e, cmd, false
}

func (e editorModel) View(styles Styles, width int) string {
	doc := e.session.Document()
	theme := settings.ResolveTheme(doc.ThemeID)

	var lines []string
	lines = append(lines, styles.Heading.Render("Settings"), "")
	lines = append(lines,
		fmt.Sprintf("Theme      %s", theme.Name),
		fmt.Sprintf("View       %s", doc.ViewMode),
		fmt.Sprintf("Feed       %s", onOff(doc.ShowRSS)),
	)
	if e.rss != nil {
		lines = append(lines, "Feed URL   "+e.rss.View())
	} else {
		lines = append(lines, "Feed URL   "+styles.Faint.Render(doc.RSSURL))
	}
	lines = append(lines, "", styles.Heading.Render(fmt.Sprintf("Links (%d)", len(doc.Links))))

	if len(doc.Links) == 0 {
		lines = append(lines, styles.Faint.Render("  no links yet"))
	}
	for i, link := range doc.Links {
		icon := iconText(dashboard.IconFor(link), link)
		line := truncate(fmt.Sprintf("%s %s  %s", icon, link.Title, styles.Faint.Render(link.URL)), max(width-4, 20))
		if i == e.cursor && e.form == nil && e.rss == nil {
			line = styles.Selected.Render("› " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}

	if e.form != nil {
		lines = append(lines, "", styles.Heading.Render("New link"))
		labels := [fieldCount]string{"Title", "URL", "Icon"}
		for i, in := range e.form.inputs {
			lines = append(lines, fmt.Sprintf("%-6s %s", labels[i], in.View()))
		}
		lines = append(lines, styles.Help.Render(helpLine(e.keys.NextField, e.keys.NextEmoji, e.keys.Submit, e.keys.Cancel)))
	}

	if e.status != "" {
		lines = append(lines, "", styles.Date.Render(e.status))
	}
	lines = append(lines, "", styles.Help.Render(" "+helpLine(
		e.keys.Up, e.keys.MoveUp, e.keys.Add, e.keys.Delete, e.keys.Theme,
		e.keys.ViewMode, e.keys.ToggleRSS, e.keys.EditRSS, e.keys.Save, e.keys.Cancel,
	)))

	return lipgloss.NewStyle().Padding(0, 2).Render(strings.Join(lines, "\n"))
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
