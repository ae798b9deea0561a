package settings

import (
	"encoding/json"
	"errors"
	"reflect"
)

var (
	ErrTitleRequired = errors.New("link title is required")
	ErrURLRequired   = errors.New("link url is required")
	ErrInvalidPage   = errors.New("page index out of range")
)

type ViewMode string

const (
	ViewCompact ViewMode = "compact"
	ViewRegular ViewMode = "regular"
	ViewLarge   ViewMode = "large"
)

// ViewModes lists the view modes in the order the editor cycles through them.
var ViewModes = []ViewMode{ViewCompact, ViewRegular, ViewLarge}

// Valid reports whether m is one of the known view modes.
func (m ViewMode) Valid() bool {
	switch m {
	case ViewCompact, ViewRegular, ViewLarge:
		return true
	}
	return false
}

// Next returns the view mode following m. Unknown modes wrap to the first one.
func (m ViewMode) Next() ViewMode {
	for i, mode := range ViewModes {
		if mode == m {
			return ViewModes[(i+1)%len(ViewModes)]
		}
	}
	return ViewModes[0]
}

type Link struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Icon  string `json:"icon,omitempty"`
}

// Document is the single shared settings object. Field values are kept as
// received; interpretation (theme fallback, page clamping) happens in clients.
type Document struct {
	ThemeID      string   `json:"themeId"`
	ViewMode     ViewMode `json:"viewMode"`
	ShowRSS      bool     `json:"showRss"`
	RSSURL       string   `json:"rssUrl"`
	Links        []Link   `json:"links"`
	CarouselPage int      `json:"carouselPage"`

	// Extra holds top-level fields this package does not know about, so a
	// write does not drop what another client stored.
	Extra map[string]json.RawMessage `json:"-"`
}

var knownFields = map[string]bool{
	"themeId":      true,
	"viewMode":     true,
	"showRss":      true,
	"rssUrl":       true,
	"links":        true,
	"carouselPage": true,
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := d
	if d.Links != nil {
		out.Links = make([]Link, len(d.Links))
		copy(out.Links, d.Links)
	}
	if d.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(d.Extra))
		for k, v := range d.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// Equal reports whether two documents are deeply equal. A nil and an empty
// link list compare equal since both encode to the same thing on the wire.
func Equal(a, b Document) bool {
	if len(a.Links) == 0 && len(b.Links) == 0 {
		a.Links, b.Links = nil, nil
	}
	if len(a.Extra) == 0 && len(b.Extra) == 0 {
		a.Extra, b.Extra = nil, nil
	}
	return reflect.DeepEqual(a, b)
}

// Decode overlays the JSON object in data on top of base and returns the
// result. Fields missing from data keep the value from base.
func Decode(data []byte, base Document) (Document, error) {
	doc := base.Clone()
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Document{}, err
	}
	for k, v := range fields {
		if knownFields[k] {
			continue
		}
		if doc.Extra == nil {
			doc.Extra = make(map[string]json.RawMessage)
		}
		doc.Extra[k] = v
	}
	return doc, nil
}

// Encode returns the wire form of d. A nil link list is written as [] and
// Extra fields are written back next to the known ones.
func Encode(d Document) ([]byte, error) {
	if d.Links == nil {
		d.Links = []Link{}
	}
	body, err := json.Marshal(d)
	if err != nil || len(d.Extra) == 0 {
		return body, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	for k, v := range d.Extra {
		if !knownFields[k] {
			fields[k] = v
		}
	}
	return json.Marshal(fields)
}
