package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 50
)

// Page is a normalized page request. Limit never exceeds MaxPageLimit.
type Page struct {
	Number int
	Limit  int
}

func NewPage(number, limit int) Page {
	if number < 1 {
		number = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Number: number, Limit: limit}
}

// PageFromQuery reads ?page= and ?limit=, ignoring values that do not parse.
func PageFromQuery(c echo.Context) Page {
	number, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return NewPage(number, limit)
}

func (p Page) Skip() int64 {
	return int64(p.Number-1) * int64(p.Limit)
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	Total       int64 `json:"total"`
	Limit       int   `json:"limit"`
	HasNext     bool  `json:"hasNext"`
	HasPrev     bool  `json:"hasPrev"`
}

func (p Page) Paginate(total int64) Pagination {
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Pagination{
		CurrentPage: p.Number,
		TotalPages:  pages,
		Total:       total,
		Limit:       p.Limit,
		HasNext:     p.Number < pages,
		HasPrev:     p.Number > 1,
	}
}
