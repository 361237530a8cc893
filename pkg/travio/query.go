package travio

import (
	"net/url"
	"strconv"
	"strings"
)

// QueryParams are the list options understood by catalog endpoints.
type QueryParams struct {
	// SearchQuery filters the collection server-side. Empty lists everything.
	SearchQuery string
	// PageSize is the requested page length. Zero lets the server decide.
	PageSize int
	// PageToken is the opaque cursor (or stringified offset) of the page to fetch.
	PageToken string
	// Filters are passed through verbatim.
	Filters map[string]string
}

// NewQueryParams creates empty query params.
func NewQueryParams() *QueryParams {
	return &QueryParams{}
}

// WithSearch sets the search query.
func (q *QueryParams) WithSearch(query string) *QueryParams {
	q.SearchQuery = strings.TrimSpace(query)

	return q
}

// WithPageSize sets the page length.
func (q *QueryParams) WithPageSize(size int) *QueryParams {
	q.PageSize = size

	return q
}

// WithPageToken sets the page cursor.
func (q *QueryParams) WithPageToken(token string) *QueryParams {
	q.PageToken = token

	return q
}

// WithFilter adds a pass-through filter.
func (q *QueryParams) WithFilter(key, value string) *QueryParams {
	if q.Filters == nil {
		q.Filters = make(map[string]string)
	}

	q.Filters[key] = value

	return q
}

// Clone returns a deep copy.
func (q *QueryParams) Clone() *QueryParams {
	if q == nil {
		return NewQueryParams()
	}

	out := *q
	if q.Filters != nil {
		out.Filters = make(map[string]string, len(q.Filters))
		for k, v := range q.Filters {
			out.Filters[k] = v
		}
	}

	return &out
}

// ToValues converts the params to URL query values.
func (q *QueryParams) ToValues() url.Values {
	values := url.Values{}
	if q == nil {
		return values
	}

	if q.SearchQuery != "" {
		values.Set("search_query", q.SearchQuery)
	}

	if q.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(q.PageSize))
	}

	if q.PageToken != "" {
		values.Set("page_token", q.PageToken)
	}

	for key, value := range q.Filters {
		values.Set(key, value)
	}

	return values
}
