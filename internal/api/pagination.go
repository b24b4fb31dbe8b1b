package api

import (
	"fmt"
	"net/http"
	"strconv"
)

const (
	defaultSkip  = 0
	defaultLimit = 100
	maxLimit     = 1000
)

// parsePagination reads skip and limit from the query string. Both must be
// non-negative integers; limit is capped at maxLimit.
func parsePagination(r *http.Request) (skip, limit int, err error) {
	q := r.URL.Query()

	skip, err = nonNegativeParam(q.Get("skip"), "skip", defaultSkip)
	if err != nil {
		return 0, 0, err
	}
	limit, err = nonNegativeParam(q.Get("limit"), "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	return skip, min(limit, maxLimit), nil
}

func nonNegativeParam(raw, name string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
