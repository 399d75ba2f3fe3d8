// AngelaMos | 2026
// request.go

package core

import (
	"net/http"
	"strconv"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Page is a 1-based page request read from ?page and ?page_size.
type Page struct {
	Number int
	Size   int
}

// PageQuery reads pagination params, falling back to page 1 of 20 and
// capping the size at 100. Garbage values are treated as absent.
func PageQuery(r *http.Request) Page {
	q := r.URL.Query()
	p := Page{Number: 1, Size: defaultPageSize}

	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		p.Number = n
	}
	if n, err := strconv.Atoi(q.Get("page_size")); err == nil && n > 0 {
		p.Size = min(n, maxPageSize)
	}
	return p
}

// DateQuery parses a YYYY-MM-DD query parameter. A missing value yields nil.
func DateQuery(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}

	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, Validationf("%s must be a date in YYYY-MM-DD form", key)
	}
	return &day, nil
}
