// Package pagination parses page/limit/sort query parameters.
package pagination

import (
	"math"
	"strconv"
	"strings"

	dErrors "waypoint/pkg/domain-errors"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params is a validated page request. Sort is a field name from the caller's
// allowlist, never raw user input.
type Params struct {
	Page  int
	Limit int
	Sort  string
	Desc  bool
}

// Offset is the number of rows to skip. It never goes negative.
func (p Params) Offset() int {
	if p.Page < 1 || p.Limit < 1 || p.Page-1 > math.MaxInt/p.Limit {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Parse validates raw query values. sort uses the "-field" convention for
// descending order; allowed lists the accepted field names and defaultSort is
// applied when sort is empty.
func Parse(page, limit, sort string, defaultLimit int, defaultSort string, allowed ...string) (Params, error) {
	p := Params{Page: DefaultPage, Limit: defaultLimit}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}

	if limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return Params{}, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer")
		}
		p.Limit = min(n, MaxLimit)
	}
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return Params{}, dErrors.New(dErrors.CodeValidation, "page must be a positive integer")
		}
		// The row offset must fit in an int.
		if n-1 > math.MaxInt/p.Limit {
			return Params{}, dErrors.New(dErrors.CodeValidation, "page is out of range")
		}
		p.Page = n
	}

	if sort == "" {
		sort = defaultSort
	}
	field, desc := strings.CutPrefix(sort, "-")
	for _, a := range allowed {
		if field == a {
			p.Sort, p.Desc = field, desc
			return p, nil
		}
	}
	return Params{}, dErrors.New(dErrors.CodeValidation, "unsupported sort field")
}
