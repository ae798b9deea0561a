package settings

// TotalPages counts carousel pages for linkCount links. The add affordance
// occupies one extra slot, so there is always at least one page.
func TotalPages(linkCount, pageSize int) int {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	items := linkCount + 1
	pages := (items + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPage forces page into [0, totalPages).
func ClampPage(page, totalPages int) int {
	if page >= totalPages {
		page = totalPages - 1
	}
	if page < 0 {
		page = 0
	}
	return page
}

// PageInRange reports whether the document's carousel page is valid for its
// current link count.
func (d Document) PageInRange(pageSize int) bool {
	total := TotalPages(len(d.Links), pageSize)
	return d.CarouselPage >= 0 && d.CarouselPage < total
}
