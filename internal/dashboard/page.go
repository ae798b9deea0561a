// Package dashboard computes what the start page shows for a settings
// document. Everything here is a pure function of its inputs.
package dashboard

import "glassdash/internal/settings"

// Slot is one cell of the link grid: a LinkSlot or the AddSlot.
type Slot interface {
	isSlot()
}

// LinkSlot shows links[Index].
type LinkSlot struct {
	Index int
	Link  settings.Link
}

// AddSlot is the add-link affordance. It sits at index len(links), one past
// the last link.
type AddSlot struct{}

func (LinkSlot) isSlot() {}
func (AddSlot) isSlot() {}

// Page is one carousel page of the grid.
type Page struct {
	// Index is the page shown, already clamped into range.
	Index int
	Total int
	Slots []Slot
}

// HasPrev and HasNext report whether the carousel arrows are shown.
func (p Page) HasPrev() bool { return p.Index > 0 }
func (p Page) HasNext() bool { return p.Index < p.Total-1 }

// Dots returns one entry per page, true for the current one. A single page
// has no dots.
func (p Page) Dots() []bool {
	if p.Total <= 1 {
		return nil
	}
	dots := make([]bool, p.Total)
	dots[p.Index] = true
	return dots
}

// Paginate returns the page doc.CarouselPage points at. An out of range page
// is clamped for display only; correcting the stored value is the sync
// client's job.
func Paginate(doc settings.Document, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = settings.PageSize
	}
	total := settings.TotalPages(len(doc.Links), pageSize)
	index := settings.ClampPage(doc.CarouselPage, total)
	return Page{
		Index: index,
		Total: total,
		Slots: SlotsFor(doc.Links, index, pageSize),
	}
}

// SlotsFor returns links[page*size : page*size+size] as LinkSlots, followed by
// the AddSlot when index len(links) falls on this page.
func SlotsFor(links []settings.Link, page, size int) []Slot {
	start := page * size
	end := start + size
	if start < 0 {
		return nil
	}

	var slots []Slot
	for i := start; i < end && i < len(links); i++ {
		slots = append(slots, LinkSlot{Index: i, Link: links[i]})
	}
	if n := len(links); n >= start && n < end {
		slots = append(slots, AddSlot{})
	}
	return slots
}
