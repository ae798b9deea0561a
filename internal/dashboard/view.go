package dashboard

import (
	"strings"
	"time"

	"glassdash/internal/favicon"
	"glassdash/internal/settings"
)

const (
	ClockLayout = "15:04"
	DateLayout  = "Monday, January 2"
)

// Clock returns the time and date lines of the header.
func Clock(now time.Time) (string, string) {
	return now.Format(ClockLayout), now.Format(DateLayout)
}

// Icon is what a link card shows: a literal symbol, or an image URL.
type Icon struct {
	Symbol string
	URL    string
}

// IconFor uses the link's own icon when it is a symbol. An empty icon, or one
// that looks like a URL, falls back to the favicon of the link's host.
func IconFor(link settings.Link) Icon {
	if link.Icon != "" && !strings.HasPrefix(link.Icon, "http") {
		return Icon{Symbol: link.Icon}
	}
	return Icon{URL: favicon.URLFor(link.URL)}
}

// Columns is the grid width for a view mode. Unknown modes get the regular
// layout.
func Columns(mode settings.ViewMode) int {
	if mode == settings.ViewLarge {
		return 4
	}
	return 5
}

// ShowsTitles reports whether add and link cards carry a caption line below
// the icon. Compact cards put the title beside it instead.
func ShowsTitles(mode settings.ViewMode) bool {
	return mode != settings.ViewCompact
}

// View is everything the start page renders at one instant.
type View struct {
	Theme    settings.Theme
	ViewMode settings.ViewMode
	Time     string
	Date     string
	Page     Page
	ShowRSS  bool
	RSSURL   string
}

func Build(doc settings.Document, now time.Time) View {
	v := View{
		Theme:    settings.ResolveTheme(doc.ThemeID),
		ViewMode: doc.ViewMode,
		Page:     Paginate(doc, settings.PageSize),
		ShowRSS:  doc.ShowRSS,
		RSSURL:   doc.RSSURL,
	}
	if !v.ViewMode.Valid() {
		v.ViewMode = settings.ViewRegular
	}
	v.Time, v.Date = Clock(now)
	return v
}
