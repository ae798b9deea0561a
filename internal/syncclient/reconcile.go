package syncclient

import "glassdash/internal/settings"

// Reconcile decides what a client holds after a successful poll. known is the
// last document the client believes the server has, draft is what it shows.
// When fetched matches both, nothing changes. Otherwise fetched wins both
// slots: either another client wrote, or one of our own writes never landed.
func Reconcile(known, draft, fetched settings.Document) (settings.Document, settings.Document, bool) {
	if settings.Equal(fetched, known) && settings.Equal(fetched, draft) {
		return known, draft, false
	}
	return fetched.Clone(), fetched.Clone(), true
}
