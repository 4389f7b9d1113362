package pagination

import "math"

const (
	DefaultLimit = 20
	MaxLimit     = 100

	// MaxPage bounds page numbers accepted from clients.
	MaxPage = 1_000_000
)

type Page struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// Normalize clamps page to >= 1 and limit to [1, MaxLimit], substituting
// DefaultLimit for a non-positive limit.
func Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}

	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	return page, limit
}

// Offset saturates at math.MaxInt instead of wrapping.
func Offset(page, limit int) int {
	if page < 1 || limit < 1 {
		return 0
	}

	if page-1 > math.MaxInt/limit {
		return math.MaxInt
	}

	return (page - 1) * limit
}

// Beyond reports whether page lies past the last page of total rows. The
// first page is never beyond, even when there are no rows.
func Beyond(page, limit, total int) bool {
	return page > 1 && page > Pages(total, limit)
}

// Pages is the number of pages needed to hold total rows.
func Pages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}

	return (total + limit - 1) / limit
}

func New(page, limit, total int) Page {
	page, limit = Normalize(page, limit)
	pages := Pages(total, limit)

	return Page{
		Page:    page,
		Limit:   limit,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}
