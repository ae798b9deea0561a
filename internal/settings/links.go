package settings

import (
	"strconv"
	"strings"
	"time"
)

// NormalizeURL prefixes bare hosts with https://. Anything that already
// starts with "http" is returned trimmed but otherwise untouched.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "http") {
		return raw
	}
	return "https://" + raw
}

// NewLink builds a link stamped with an id derived from now.
func NewLink(title, rawURL, icon string, now time.Time) (Link, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Link{}, ErrTitleRequired
	}
	u := NormalizeURL(rawURL)
	if u == "" {
		return Link{}, ErrURLRequired
	}
	return Link{
		ID:    strconv.FormatInt(now.UnixMilli(), 10),
		Title: title,
		URL:   u,
		Icon:  strings.TrimSpace(icon),
	}, nil
}

// AddLink appends l to the document. If l.ID is already taken (two links
// created within the same millisecond) the id is bumped until it is unique.
func (d *Document) AddLink(l Link) Link {
	taken := make(map[string]bool, len(d.Links))
	for _, existing := range d.Links {
		taken[existing.ID] = true
	}
	for taken[l.ID] {
		n, err := strconv.ParseInt(l.ID, 10, 64)
		if err != nil {
			l.ID += "-1"
			continue
		}
		l.ID = strconv.FormatInt(n+1, 10)
	}
	d.Links = append(d.Links, l)
	return l
}

// RemoveLink filters out the link with the given id and reports whether one was removed.
func (d *Document) RemoveLink(id string) bool {
	kept := make([]Link, 0, len(d.Links))
	for _, l := range d.Links {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	removed := len(kept) != len(d.Links)
	d.Links = kept
	return removed
}

// IndexOf returns the position of the link with the given id, or -1.
func (d Document) IndexOf(id string) int {
	for i, l := range d.Links {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// Move returns a copy of links with the element at from relocated to to.
// Out of range indices leave the order unchanged.
func Move(links []Link, from, to int) []Link {
	out := make([]Link, len(links))
	copy(out, links)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]Link{moved}, out[to:]...)...)
	return out
}
