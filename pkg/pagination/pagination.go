// Package pagination reads skip/limit query parameters and shapes list
// responses.
package pagination

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Limit  int
	Offset int
}

// FromContext is WithDefault using DefaultLimit.
func FromContext(c echo.Context) Params {
	return WithDefault(c, DefaultLimit)
}

// WithDefault reads ?limit= and ?skip= (or ?offset=) leniently: a missing or
// non-positive limit becomes def, anything above MaxLimit is clamped, and a
// negative offset becomes zero.
func WithDefault(c echo.Context, def int) Params {
	p := Params{Limit: def}
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		p.Limit = min(n, MaxLimit)
	}

	raw := c.QueryParam("skip")
	if raw == "" {
		raw = c.QueryParam("offset")
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		p.Offset = n
	}
	return p
}

// Limit reads ?limit= strictly for feeds that take no offset. Values outside
// 1..MaxLimit are a 400.
func Limit(c echo.Context, def int) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxLimit {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	}
	return n, nil
}

// HasNext reports whether rows remain past this page.
func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

// Page is one page of a list endpoint. Items is never null.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Skip    int  `json:"skip"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

func NewPage[T any](items []T, total int, p Params) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:   items,
		Total:   total,
		Skip:    p.Offset,
		Limit:   p.Limit,
		HasMore: p.HasNext(total),
	}
}
