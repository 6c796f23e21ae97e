package core

import (
	"fmt"
	"net/url"
	"strconv"
)

// Default and limit constants for pagination
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ListQueryOptions holds parsed pagination parameters for log listings.
// Ordering is fixed (created_at descending) so only limit/offset apply.
type ListQueryOptions struct {
	Limit  int
	Offset int
}

// ParseListQueryOptions extracts pagination options from query parameters.
// Returns the parsed options and any validation error.
func ParseListQueryOptions(queryParams url.Values) (*ListQueryOptions, error) {
	opts := &ListQueryOptions{
		Limit:  DefaultLimit,
		Offset: 0,
	}

	if limitStr := queryParams.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, fmt.Errorf("invalid 'limit' parameter: must be an integer")
		}
		if limit < 1 {
			return nil, fmt.Errorf("invalid 'limit' parameter: must be at least 1")
		}
		if limit > MaxLimit {
			return nil, fmt.Errorf("invalid 'limit' parameter: maximum is %d", MaxLimit)
		}
		opts.Limit = limit
	}

	if offsetStr := queryParams.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, fmt.Errorf("invalid 'offset' parameter: must be an integer")
		}
		if offset < 0 {
			return nil, fmt.Errorf("invalid 'offset' parameter: must be non-negative")
		}
		opts.Offset = offset
	}

	return opts, nil
}
