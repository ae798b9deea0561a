package settings

// Theme is a catalog entry. Background and Accent are terminal colours
// (hex strings understood by lipgloss).
type Theme struct {
	ID         string
	Name       string
	Background string
	Accent     string
	Text       string
}

// Themes is the static theme catalog. The first entry is the fallback.
var Themes = []Theme{
	{ID: "oceanic", Name: "Oceanic Depth", Background: "#1e1b4b", Accent: "#06b6d4", Text: "#ffffff"},
	{ID: "sunset", Name: "Sunset Vibes", Background: "#db2777", Accent: "#fde047", Text: "#ffffff"},
	{ID: "forest", Name: "Misty Forest", Background: "#134e4a", Accent: "#34d399", Text: "#ecfdf5"},
	{ID: "midnight", Name: "Midnight City", Background: "#1e3a8a", Accent: "#3b82f6", Text: "#eff6ff"},
	{ID: "cotton-candy", Name: "Cotton Candy", Background: "#d8b4fe", Accent: "#ffffff", Text: "#1e293b"},
	{ID: "aurora", Name: "Aurora Borealis", Background: "#3b82f6", Accent: "#86efac", Text: "#ffffff"},
	{ID: "volcano", Name: "Volcano", Background: "#ea580c", Accent: "#fdba74", Text: "#ffffff"},
	{ID: "royal", Name: "Royal Guard", Background: "#581c87", Accent: "#fbbf24", Text: "#ffffff"},
	{ID: "slate", Name: "Clean Slate", Background: "#cbd5e1", Accent: "#1e293b", Text: "#0f172a"},
	{ID: "cyber", Name: "Cyberpunk", Background: "#ef4444", Accent: "#22d3ee", Text: "#0f172a"},
}

// ResolveTheme looks up id in the catalog, falling back to the first theme.
// The stored id itself is never rewritten.
func ResolveTheme(id string) Theme {
	for _, t := range Themes {
		if t.ID == id {
			return t
		}
	}
	return Themes[0]
}

// NextTheme returns the id of the catalog entry after id.
func NextTheme(id string) string {
	for i, t := range Themes {
		if t.ID == id {
			return Themes[(i+1)%len(Themes)].ID
		}
	}
	return Themes[0].ID
}
