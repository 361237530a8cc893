package travio_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travio/travio-client/pkg/travio"
)

var errPageFailed = errors.New("page failed")

// pagedFetcher serves pages keyed by page token and records every request.
type pagedFetcher struct {
	pages    map[string]*travio.ListResponse[string]
	failAt   string
	requests []*travio.QueryParams
}

func (f *pagedFetcher) fetch(ctx context.Context, params *travio.QueryParams) (*travio.ListResponse[string], error) {
	f.requests = append(f.requests, params.Clone())

	if f.failAt != "" && params.PageToken == f.failAt {
		return nil, errPageFailed
	}

	page, ok := f.pages[params.PageToken]
	if !ok {
		return &travio.ListResponse[string]{}, nil
	}

	return page, nil
}

func threePages() *pagedFetcher {
	return &pagedFetcher{
		pages: map[string]*travio.ListResponse[string]{
			"":   {Items: []string{"mad", "bcn"}, Total: 5, NextPageToken: "p2"},
			"p2": {Items: []string{"vlc", "sev"}, Total: 5, NextPageToken: "p3"},
			"p3": {Items: []string{"bio"}, Total: 5},
		},
	}
}

func TestPaginationIterator_HasNext(t *testing.T) {
	t.Parallel()

	fetcher := threePages()
	it := travio.NewPaginationIterator(context.Background(), fetcher.fetch, nil, nil)

	var items []string

	for it.HasNext() {
		item, err := it.Next()
		require.NoError(t, err)

		items = append(items, item)
	}

	assert.Equal(t, []string{"mad", "bcn", "vlc", "sev", "bio"}, items)
	require.NoError(t, it.Err())
	assert.Len(t, fetcher.requests, 3)

	_, err := it.Next()
	require.ErrorIs(t, err, travio.ErrNoMoreItems)
}

func TestPaginationIterator_All(t *testing.T) {
	t.Parallel()

	fetcher := threePages()
	params := travio.NewQueryParams().WithSearch("a").WithPageSize(10)

	items, err := travio.NewPaginationIterator(context.Background(), fetcher.fetch, params, &travio.PaginationOptions{PageSize: 2}).All()
	require.NoError(t, err)
	assert.Len(t, items, 5)

	// options override the params page size without mutating the caller's params
	for _, req := range fetcher.requests {
		assert.Equal(t, 2, req.PageSize)
		assert.Equal(t, "a", req.SearchQuery)
	}

	assert.Equal(t, 10, params.PageSize)
	assert.Empty(t, params.PageToken)
	assert.Equal(t, []string{"", "p2", "p3"}, []string{
		fetcher.requests[0].PageToken,
		fetcher.requests[1].PageToken,
		fetcher.requests[2].PageToken,
	})
}

func TestPaginationIterator_EmptyPageEndsWalk(t *testing.T) {
	t.Parallel()

	fetcher := &pagedFetcher{
		pages: map[string]*travio.ListResponse[string]{
			"":   {Items: []string{"mad"}, NextPageToken: "p2"},
			"p2": {Items: nil, NextPageToken: "p3"},
			"p3": {Items: []string{"never"}},
		},
	}

	items, err := travio.FetchAllPages(context.Background(), fetcher.fetch, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mad"}, items)
	assert.Len(t, fetcher.requests, 2)
}

func TestPaginationIterator_ForEach(t *testing.T) {
	t.Parallel()

	fetcher := threePages()
	errStop := errors.New("stop")

	var seen []string

	err := travio.NewPaginationIterator(context.Background(), fetcher.fetch, nil, nil).ForEach(func(item string) error {
		seen = append(seen, item)
		if item == "vlc" {
			return errStop
		}

		return nil
	})

	require.ErrorIs(t, err, errStop)
	assert.Equal(t, []string{"mad", "bcn", "vlc"}, seen)
	assert.Len(t, fetcher.requests, 2)
}

func TestPaginationIterator_FetchError(t *testing.T) {
	t.Parallel()

	fetcher := threePages()
	fetcher.failAt = "p2"

	it := travio.NewPaginationIterator(context.Background(), fetcher.fetch, nil, nil)

	items, err := it.All()
	require.ErrorIs(t, err, errPageFailed)
	assert.Equal(t, []string{"mad", "bcn"}, items)
	require.ErrorIs(t, it.Err(), errPageFailed)

	_, err = it.Next()
	require.ErrorIs(t, err, errPageFailed)
}

func TestFetchAllPages_WithMaxPages(t *testing.T) {
	t.Parallel()

	fetcher := threePages()

	items, err := travio.FetchAllPages(context.Background(), fetcher.fetch, nil, &travio.PaginationOptions{MaxPages: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"mad", "bcn", "vlc", "sev"}, items)
	assert.Len(t, fetcher.requests, 2)
}
