package travio

import (
	"context"
)

// PageFetcher fetches one page of a cursor-paginated collection.
type PageFetcher[T any] func(ctx context.Context, params *QueryParams) (*ListResponse[T], error)

// PaginationOptions bounds a full-collection walk.
type PaginationOptions struct {
	// PageSize is requested on every page. Zero lets the server decide.
	PageSize int
	// MaxPages stops the walk after this many pages. Zero means no limit.
	MaxPages int
}

// PaginationIterator walks a collection item by item, fetching pages lazily.
// An empty page or an empty next_page_token ends the walk.
type PaginationIterator[T any] struct {
	ctx     context.Context
	fetch   PageFetcher[T]
	params  *QueryParams
	options *PaginationOptions

	buffer    []T
	pages     int
	exhausted bool
	err       error
}

// NewPaginationIterator creates an iterator starting at params (may be nil).
func NewPaginationIterator[T any](ctx context.Context, fetch PageFetcher[T], params *QueryParams, options *PaginationOptions) *PaginationIterator[T] {
	if options == nil {
		options = &PaginationOptions{}
	}

	params = params.Clone()
	if options.PageSize > 0 {
		params.PageSize = options.PageSize
	}

	return &PaginationIterator[T]{
		ctx:     ctx,
		fetch:   fetch,
		params:  params,
		options: options,
	}
}

// HasNext reports whether Next can return another item, fetching a page if needed.
func (it *PaginationIterator[T]) HasNext() bool {
	if len(it.buffer) > 0 {
		return true
	}

	if it.exhausted || it.err != nil {
		return false
	}

	it.fetchPage()

	return len(it.buffer) > 0
}

// Next returns the next item or ErrNoMoreItems.
func (it *PaginationIterator[T]) Next() (T, error) {
	var zero T

	if !it.HasNext() {
		if it.err != nil {
			return zero, it.err
		}

		return zero, ErrNoMoreItems
	}

	item := it.buffer[0]
	it.buffer = it.buffer[1:]

	return item, nil
}

// Err returns the fetch error that stopped the walk, if any.
func (it *PaginationIterator[T]) Err() error {
	return it.err
}

// All drains the iterator.
func (it *PaginationIterator[T]) All() ([]T, error) {
	var items []T

	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return items, err
		}

		items = append(items, item)
	}

	return items, it.err
}

// ForEach calls fn for every item until fn returns an error.
func (it *PaginationIterator[T]) ForEach(fn func(T) error) error {
	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return it.err
}

func (it *PaginationIterator[T]) fetchPage() {
	if it.options.MaxPages > 0 && it.pages >= it.options.MaxPages {
		it.exhausted = true

		return
	}

	page, err := it.fetch(it.ctx, it.params)
	if err != nil {
		it.err = err

		return
	}

	it.pages++

	if page == nil || len(page.Items) == 0 {
		it.exhausted = true

		return
	}

	it.buffer = append(it.buffer, page.Items...)

	if page.NextPageToken == "" {
		it.exhausted = true

		return
	}

	it.params = it.params.Clone().WithPageToken(page.NextPageToken)
}

// FetchAllPages collects every item of a collection.
func FetchAllPages[T any](ctx context.Context, fetch PageFetcher[T], params *QueryParams, options *PaginationOptions) ([]T, error) {
	return NewPaginationIterator(ctx, fetch, params, options).All()
}
