package settings

const (
	DefaultThemeID = "oceanic"
	DefaultRSSURL  = "https://feeds.bbci.co.uk/news/world/rss.xml"

	// PageSize is the number of grid slots per carousel page.
	PageSize = 10
)

// ServerDefaults returns the document written to an empty store on first boot.
func ServerDefaults() Document {
	return Document{
		ThemeID:  DefaultThemeID,
		ViewMode: ViewRegular,
		ShowRSS:  true,
		RSSURL:   DefaultRSSURL,
		Links: []Link{
			{ID: "1", Title: "GitHub", URL: "https://github.com"},
			{ID: "2", Title: "Reddit", URL: "https://reddit.com"},
			{ID: "3", Title: "YouTube", URL: "https://youtube.com", Icon: "📺"},
			{ID: "4", Title: "Local Server", URL: "http://localhost:8080", Icon: "🖥️"},
			{ID: "5", Title: "Home Assistant", URL: "http://homeassistant.local:8123", Icon: "🏠"},
		},
		CarouselPage: 0,
	}
}

// ClientDefaults is the base that fetched documents are decoded onto so a
// partial document still has every field. It carries no links: a client must
// never show starter links the server did not send.
func ClientDefaults() Document {
	return Document{
		ThemeID:      DefaultThemeID,
		ViewMode:     ViewRegular,
		ShowRSS:      true,
		RSSURL:       DefaultRSSURL,
		Links:        []Link{},
		CarouselPage: 0,
	}
}

// EmojiPresets are the icons offered by the link editor.
var EmojiPresets = []string{
	"🏠", "🏢", "🌐", "☁️", "💾", "🖥️", "📱", "📺",
	"🎮", "🎵", "📷", "📁", "⚙️", "🔧", "🔒", "🔑",
	"🚪", "💡", "🔌", "🔋", "📡", "🔭", "🔬", "💊",
	"🛒", "💳", "💵", "📊", "📅", "📝", "📚", "🎓",
	"🍕", "☕", "🍺", "🚗", "✈️", "🚀", "🧠", "🤖",
	"🎨", "🎬", "🎤", "🎧", "🎸", "🥁", "⚽", "🏀",
}
