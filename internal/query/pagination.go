package query

// PageRequest is a clamped page selection
type PageRequest struct {
	Page    int
	PerPage int
}

// NewPageRequest clamps page to >= 1 and perPage to [1, maxPerPage]
func NewPageRequest(page, perPage, maxPerPage int) PageRequest {
	if maxPerPage < 1 {
		maxPerPage = 1
	}
	return PageRequest{
		Page:    max(1, page),
		PerPage: min(max(1, perPage), maxPerPage),
	}
}

func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

func (p PageRequest) Limit() int {
	return p.PerPage
}

// Pagination is the metadata returned with every page of results
type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalItems int64 `json:"total_items"`
	TotalPages int64 `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func NewPagination(req PageRequest, total int64) Pagination {
	var pages int64
	if total > 0 {
		pages = (total + int64(req.PerPage) - 1) / int64(req.PerPage)
	}
	return Pagination{
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalItems: total,
		TotalPages: pages,
		HasNext:    int64(req.Page) < pages,
		HasPrev:    req.Page > 1,
	}
}

// Page is one page of items plus its metadata
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}
