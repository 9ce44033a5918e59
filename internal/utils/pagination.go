package utils

import "github.com/gofiber/fiber/v2"

const (
	// DefaultPageSize applies when limit is missing or not positive.
	DefaultPageSize = 20
	// MaxPageSize caps the limit query parameter.
	MaxPageSize = 100
)

// Pagination is a page window resolved from the page and limit query params.
type Pagination struct {
	Page   int
	Limit  int
	Offset int
}

// ParsePagination reads ?page= and ?limit=. Invalid values fall back to page 1 and DefaultPageSize.
func ParsePagination(c *fiber.Ctx) Pagination {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	limit := c.QueryInt("limit", DefaultPageSize)
	switch {
	case limit < 1:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	return Pagination{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

// Meta renders the pagination block of list responses.
func (p Pagination) Meta(total int64) fiber.Map {
	return fiber.Map{
		"current_page":   p.Page,
		"items_per_page": p.Limit,
		"total_items":    total,
	}
}
