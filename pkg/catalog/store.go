package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/travio/travio-client/internal/constants"
	"github.com/travio/travio-client/pkg/travio"
)

// ErrSuperseded is returned by Load, Search and LoadMore when a newer Load or
// Search started while the call was in flight and the call itself succeeded.
// Its page was discarded.
var ErrSuperseded = errors.New("superseded by a newer catalog request")

// Lookup tiers reported to metrics.
const (
	tierMemory  = "memory"
	tierDurable = "durable"
	tierNetwork = "network"
	tierMiss    = "miss"
)

// Source is the remote side of a catalog.
type Source[T any] interface {
	List(ctx context.Context, params *travio.QueryParams) (*travio.ListResponse[T], error)
	Get(ctx context.Context, id string) (*T, error)
}

// Options configures a Store.
type Options[T any] struct {
	// Name prefixes durable keys and labels metrics, e.g. "stations".
	Name string
	// ID extracts the identifier of an entity.
	ID func(T) string
	// PageSize is the page length. Zero uses constants.StandardPageSize.
	PageSize int
	// Mode selects cursor (default) or offset pagination.
	Mode travio.PaginationMode
	// Durable caches point lookups. Nil disables the durable tier.
	Durable *travio.CacheManager
	// TTL of durable point-lookup entries. Zero uses the manager's default.
	TTL time.Duration
	// Concurrency bounds Warm. Zero uses constants.DefaultConcurrencyLimit.
	Concurrency int
	Logger      travio.Logger
	Metrics     *travio.Metrics
}

// Store presents a server-paginated, searchable collection as an in-memory
// list with incremental loading and fast point lookups.
//
// items holds the last unfiltered first page; visible holds the current
// query's accumulated pages. index maps ids to every entity ever observed.
// Load and Search bump the generation; any call whose generation is stale on
// completion drops its result.
type Store[T any] struct {
	source  Source[T]
	options Options[T]
	logger  travio.Logger
	lookups singleflight.Group

	mu          sync.RWMutex
	items       []T
	visible     []T
	visibleIDs  map[string]struct{}
	index       map[string]T
	cursor      string
	pages       int
	hasMore     bool
	query       string
	loading     bool
	loadingMore bool
	err         error
	generation  uint64

	// pagination state right after the last unfiltered Load
	defaultCursor  string
	defaultHasMore bool
}

// New creates an empty store over source.
func New[T any](source Source[T], options Options[T]) *Store[T] {
	if options.PageSize <= 0 {
		options.PageSize = constants.StandardPageSize
	}

	if options.Mode == "" {
		options.Mode = travio.PaginationCursor
	}

	if options.Concurrency <= 0 {
		options.Concurrency = constants.DefaultConcurrencyLimit
	}

	return &Store[T]{
		source:     source,
		options:    options,
		logger:     travio.LoggerOrNop(options.Logger),
		visibleIDs: make(map[string]struct{}),
		index:      make(map[string]T),
	}
}

// Load fetches the first unfiltered page. When a list is already held and
// force is false it is returned without a network call.
func (s *Store[T]) Load(ctx context.Context, force bool) ([]T, error) {
	s.mu.Lock()

	if len(s.items) > 0 && !force {
		items := cloneSlice(s.items)
		s.mu.Unlock()

		return items, nil
	}

	generation := s.begin("")
	s.mu.Unlock()

	page, err := s.source.List(ctx, s.params("", ""))

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return nil, stale(err)
	}

	s.loading = false

	if err != nil {
		s.err = err

		return nil, err
	}

	page = orEmpty(page)
	s.items = s.resetVisible(page.Items)
	s.mergeIndex(page.Items)
	s.advance(page)
	s.defaultCursor = s.cursor
	s.defaultHasMore = s.hasMore

	return cloneSlice(s.items), nil
}

// Search fetches the first page matching query and replaces the visible
// list with it. The unfiltered list is left untouched.
func (s *Store[T]) Search(ctx context.Context, query string) ([]T, error) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	generation := s.begin(query)
	s.mu.Unlock()

	page, err := s.source.List(ctx, s.params(query, ""))

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return nil, stale(err)
	}

	s.loading = false

	if err != nil {
		s.err = err

		return nil, err
	}

	page = orEmpty(page)
	visible := s.resetVisible(page.Items)
	s.mergeIndex(page.Items)
	s.advance(page)

	return visible, nil
}

// LoadMore appends the next page of the active query and returns the entities
// it added. It does nothing while another load is running or once the
// collection is exhausted.
func (s *Store[T]) LoadMore(ctx context.Context) ([]T, error) {
	s.mu.Lock()

	if s.loading || s.loadingMore || !s.hasMore {
		s.mu.Unlock()

		return nil, nil
	}

	generation := s.generation
	query := s.query
	token := s.nextToken()
	s.loadingMore = true
	s.mu.Unlock()

	page, err := s.source.List(ctx, s.params(query, token))

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return nil, stale(err)
	}

	s.loadingMore = false

	if err != nil {
		s.err = err

		return nil, err
	}

	page = orEmpty(page)
	if len(page.Items) == 0 {
		s.hasMore = false

		return nil, nil
	}

	added := s.appendVisible(page.Items)
	s.mergeIndex(page.Items)
	s.advance(page)

	return added, nil
}

// stale is the result of a request whose generation was overtaken. A failed
// fetch still reports its own error; only a good page is discarded as
// superseded.
func stale(err error) error {
	if err != nil {
		return err
	}

	return ErrSuperseded
}

// ResetToDefault clears the query and shows the unfiltered list again.
func (s *Store[T]) ResetToDefault() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.query = ""
	s.loading = false
	s.loadingMore = false
	s.resetVisible(s.items)
	s.cursor = s.defaultCursor
	s.hasMore = s.defaultHasMore
	s.pages = 0

	if len(s.items) > 0 {
		s.pages = 1
	}
}

// GetByID resolves one entity from the index, then the durable cache, then
// the network. Failures yield nil.
func (s *Store[T]) GetByID(ctx context.Context, id string) *T {
	if id == "" {
		return nil
	}

	s.mu.RLock()
	item, ok := s.index[id]
	s.mu.RUnlock()

	if ok {
		s.observe(tierMemory)

		return &item
	}

	result, err, _ := s.lookups.Do(id, func() (interface{}, error) {
		return s.resolve(ctx, id)
	})
	if err != nil {
		s.logger.Debug("point lookup failed", map[string]interface{}{
			"resource": s.options.Name,
			"id":       id,
			"error":    err.Error(),
		})

		return nil
	}

	resolved, _ := result.(T)

	return &resolved
}

// Warm resolves ids concurrently so later GetByID calls hit memory. It
// returns how many ids were resolved.
func (s *Store[T]) Warm(ctx context.Context, ids []string) int {
	var (
		group    errgroup.Group
		mu       sync.Mutex
		resolved int
	)

	group.SetLimit(s.options.Concurrency)

	for _, id := range ids {
		group.Go(func() error {
			if s.GetByID(ctx, id) != nil {
				mu.Lock()
				resolved++
				mu.Unlock()
			}

			return nil
		})
	}

	_ = group.Wait()

	return resolved
}

// Clear resets the store to its initial empty state.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.items = nil
	s.visible = nil
	s.visibleIDs = make(map[string]struct{})
	s.index = make(map[string]T)
	s.cursor = ""
	s.pages = 0
	s.hasMore = false
	s.defaultCursor = ""
	s.defaultHasMore = false
	s.query = ""
	s.loading = false
	s.loadingMore = false
	s.err = nil
}

// Items returns the last unfiltered list.
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneSlice(s.items)
}

// Visible returns the list currently shown.
func (s *Store[T]) Visible() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneSlice(s.visible)
}

// Indexed returns how many entities the index holds.
func (s *Store[T]) Indexed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.index)
}

// Cursor returns the continuation token of the last page.
func (s *Store[T]) Cursor() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cursor
}

// HasMore reports whether another page may exist.
func (s *Store[T]) HasMore() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.hasMore
}

// Query returns the active search query.
func (s *Store[T]) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.query
}

// Loading reports whether Load or Search is in flight.
func (s *Store[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loading
}

// LoadingMore reports whether LoadMore is in flight.
func (s *Store[T]) LoadingMore() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadingMore
}

// Err returns the error of the last failed list fetch.
func (s *Store[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.err
}

// begin starts a first-page fetch for query. Callers hold mu.
func (s *Store[T]) begin(query string) uint64 {
	s.generation++
	s.query = query
	s.cursor = ""
	s.pages = 0
	s.hasMore = false
	s.loading = true
	s.loadingMore = false
	s.err = nil

	return s.generation
}

func (s *Store[T]) params(query, token string) *travio.QueryParams {
	return travio.NewQueryParams().
		WithSearch(query).
		WithPageSize(s.options.PageSize).
		WithPageToken(token)
}

// nextToken is the page_token of the next page. Callers hold mu.
func (s *Store[T]) nextToken() string {
	if s.options.Mode == travio.PaginationOffset {
		return strconv.Itoa(s.pages * s.options.PageSize)
	}

	return s.cursor
}

// advance records a fetched page. Callers hold mu.
func (s *Store[T]) advance(page *travio.ListResponse[T]) {
	s.pages++
	s.cursor = page.NextPageToken

	switch {
	case len(page.Items) == 0:
		s.hasMore = false
	case s.options.Mode == travio.PaginationOffset:
		s.hasMore = len(page.Items) == s.options.PageSize
	default:
		s.hasMore = page.NextPageToken != ""
	}
}

// resetVisible replaces the visible list with the de-duplicated items and
// returns a copy of it. Callers hold mu.
func (s *Store[T]) resetVisible(items []T) []T {
	s.visible = nil
	s.visibleIDs = make(map[string]struct{}, len(items))
	s.appendVisible(items)

	return cloneSlice(s.visible)
}

// appendVisible appends items not yet visible. Callers hold mu.
func (s *Store[T]) appendVisible(items []T) []T {
	added := make([]T, 0, len(items))

	for _, item := range items {
		id := s.options.ID(item)
		if _, seen := s.visibleIDs[id]; seen {
			continue
		}

		s.visibleIDs[id] = struct{}{}
		s.visible = append(s.visible, item)
		added = append(added, item)
	}

	return added
}

// mergeIndex records items in the index. Callers hold mu.
func (s *Store[T]) mergeIndex(items []T) {
	for _, item := range items {
		s.index[s.options.ID(item)] = item
	}
}

func (s *Store[T]) resolve(ctx context.Context, id string) (T, error) {
	if item, ok := s.readDurable(ctx, id); ok {
		s.remember(item)
		s.observe(tierDurable)

		return item, nil
	}

	fetched, err := s.source.Get(ctx, id)
	if err != nil {
		s.observe(tierMiss)

		var zero T

		return zero, err
	}

	if fetched == nil {
		s.observe(tierMiss)

		var zero T

		return zero, travio.ErrCacheMiss
	}

	s.remember(*fetched)
	s.writeDurable(ctx, id, *fetched)
	s.observe(tierNetwork)

	return *fetched, nil
}

func (s *Store[T]) remember(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index[s.options.ID(item)] = item
}

func (s *Store[T]) durableKey(id string) string {
	return s.options.Name + ":byId:" + id
}

// readDurable treats absent, expired and undecodable entries alike as a miss;
// undecodable entries are removed.
func (s *Store[T]) readDurable(ctx context.Context, id string) (T, bool) {
	var item T

	if s.options.Durable == nil {
		return item, false
	}

	key := s.durableKey(id)

	data, err := s.options.Durable.Get(ctx, key)
	if err != nil {
		return item, false
	}

	err = json.Unmarshal(data, &item)
	if err != nil {
		s.logger.Debug("dropping corrupt cache entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})

		_ = s.options.Durable.Delete(ctx, key)

		return item, false
	}

	return item, true
}

func (s *Store[T]) writeDurable(ctx context.Context, id string, item T) {
	if s.options.Durable == nil {
		return
	}

	data, err := json.Marshal(item)
	if err == nil {
		err = s.options.Durable.Set(ctx, s.durableKey(id), data, s.options.TTL)
	}

	if err != nil {
		s.logger.Debug("failed to cache point lookup", map[string]interface{}{
			"resource": s.options.Name,
			"id":       id,
			"error":    err.Error(),
		})
	}
}

func (s *Store[T]) observe(tier string) {
	if s.options.Metrics != nil {
		s.options.Metrics.ObserveLookup(s.options.Name, tier)
	}
}

func orEmpty[T any](page *travio.ListResponse[T]) *travio.ListResponse[T] {
	if page == nil {
		return &travio.ListResponse[T]{}
	}

	return page
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}

	out := make([]T, len(in))
	copy(out, in)

	return out
}
