package core

import (
	"fmt"
	"net/url"
	"strconv"
)

// parsePagination reads limit/offset query parameters. Missing or
// non-numeric values fall back to the defaults; negative values are a
// validation error; a limit above max is clamped.
func parsePagination(values url.Values, defaultLimit, maxLimit int) (limit, offset int, err error) {
	limit = defaultLimit

	if raw := values.Get("limit"); raw != "" {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			if n < 0 {
				return 0, 0, fmt.Errorf("limit must not be negative")
			}
			if n > 0 {
				limit = n
			}
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if raw := values.Get("offset"); raw != "" {
		if n, convErr := strconv.Atoi(raw); convErr == nil {
			if n < 0 {
				return 0, 0, fmt.Errorf("offset must not be negative")
			}
			offset = n
		}
	}
	return limit, offset, nil
}

// window applies the pagination window to n candidates and reports the
// half-open index range [from, to).
func window(n, limit, offset int) (from, to int) {
	if offset >= n {
		return n, n
	}
	from = offset
	to = offset + limit
	if to > n {
		to = n
	}
	return from, to
}
