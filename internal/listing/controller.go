// Package listing keeps the filter, pagination and fetch state of a list
// screen in step. One Controller serves every entity screen.
//
// A Controller never performs I/O from its mutators. Each mutator applies the
// user's change, moves the status to Loading and returns the Request the
// caller must pass to Execute. Execute runs the fetch under the retry policy
// and publishes the outcome only if no newer request was issued meanwhile.
package listing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockdesk/stockdesk/internal/retry"
)

// Fetcher loads one page for the given filter.
type Fetcher[T any] func(ctx context.Context, filter FilterCriteria, page PageRequest) (ListResult[T], error)

// Request is a snapshot of the state a fetch was triggered with.
type Request struct {
	Generation uint64
	Filter     FilterCriteria
	Page       PageRequest
}

// Options configures a Controller.
type Options struct {
	// Name identifies the screen in logs.
	Name string

	// Policy wraps every fetch. The zero value means retry.DefaultPolicy.
	Policy retry.Policy

	// ApplyGate keeps filter edits in a draft until ApplyFilters is called.
	ApplyGate bool

	// Message turns the final fetch error into a short user message.
	// Nil uses err.Error().
	Message func(error) string

	Logger *zerolog.Logger
}

// ErrClosed is returned by Execute after Close.
var ErrClosed = errors.New("list controller closed")

// Controller owns the FilterCriteria, PageRequest and FetchStatus of one
// screen. It is safe for concurrent use.
type Controller[T any] struct {
	mu sync.Mutex

	name    string
	fetch   Fetcher[T]
	policy  retry.Policy
	gated   bool
	message func(error) string
	logger  zerolog.Logger

	filter     FilterCriteria
	draft      FilterCriteria
	page       PageRequest
	totalPages int

	generation uint64
	status     FetchStatus[T]
	inflight   map[uint64]context.CancelFunc
	closed     bool
}

// NewController returns an Idle controller. Nothing is fetched until a
// mutator or Refresh is called.
func NewController[T any](fetch Fetcher[T], filter FilterCriteria, page PageRequest, opts Options) *Controller[T] {
	policy := opts.Policy
	if policy.MaxAttempts == 0 {
		policy = retry.DefaultPolicy().WithClassifier(opts.Policy.Retryable)
	}
	message := opts.Message
	if message == nil {
		message = func(err error) string { return err.Error() }
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "listing").Str("screen", opts.Name).Logger()
	}
	if page.PageSize == 0 {
		page.PageSize = DefaultPageSize
	}
	if page.SortDirection == "" {
		page.SortDirection = DefaultSortDir
	}

	return &Controller[T]{
		name:     opts.Name,
		fetch:    fetch,
		policy:   policy,
		gated:    opts.ApplyGate,
		message:  message,
		logger:   logger,
		filter:   filter.Clone(),
		draft:    filter.Clone(),
		page:     page,
		status:   Idle[T](),
		inflight: make(map[uint64]context.CancelFunc),
	}
}

// Refresh re-fetches the current state.
func (c *Controller[T]) Refresh() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trigger()
}

// SetFilter replaces the filter and resets to the first page. In gated mode
// only the draft changes and no fetch is triggered.
func (c *Controller[T]) SetFilter(f FilterCriteria) (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setFilter(f)
}

// SetFilterValue sets one filter key; an empty value removes it.
func (c *Controller[T]) SetFilterValue(key, value string) (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setFilter(c.editable().With(key, value))
}

// ClearFilter removes one filter key.
func (c *Controller[T]) ClearFilter(key string) (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setFilter(c.editable().Without(key))
}

// ApplyFilters promotes the draft to the active filter. It is a no-op when
// the controller is not gated or the draft equals the active filter.
func (c *Controller[T]) ApplyFilters() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.gated || c.closed || c.draft.Equal(c.filter) {
		return Request{}, false
	}
	c.filter = c.draft.Clone()
	c.page.PageIndex = 0
	return c.trigger()
}

// SetPageSize changes the page size, clamped to the allowed range, and
// resets to the first page.
func (c *Controller[T]) SetPageSize(size int) (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	size = min(max(size, MinPageSize), MaxPageSize)
	if c.closed || size == c.page.PageSize {
		return Request{}, false
	}
	c.page.PageSize = size
	c.page.PageIndex = 0
	return c.trigger()
}

// SetSort changes the sort. The page index is kept.
func (c *Controller[T]) SetSort(field string, dir SortDirection) (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || field == "" || (field == c.page.SortField && dir == c.page.SortDirection) {
		return Request{}, false
	}
	if dir != SortAsc && dir != SortDesc {
		return Request{}, false
	}
	c.page.SortField = field
	c.page.SortDirection = dir
	return c.trigger()
}

// NextPage advances one page unless already on the last.
func (c *Controller[T]) NextPage() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.canNext() {
		return Request{}, false
	}
	c.page.PageIndex++
	return c.trigger()
}

// PreviousPage goes back one page unless already on the first.
func (c *Controller[T]) PreviousPage() (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.page.PageIndex == 0 {
		return Request{}, false
	}
	c.page.PageIndex--
	return c.trigger()
}

// GoToPage jumps to a zero-based page within the last known page count.
func (c *Controller[T]) GoToPage(index int) (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || index < 0 || index == c.page.PageIndex || index >= max(1, c.totalPages) {
		return Request{}, false
	}
	c.page.PageIndex = index
	return c.trigger()
}

// Execute runs the fetch for req with retries and publishes the outcome. It
// returns the status now in effect and whether req's outcome was applied;
// outcomes of superseded requests are dropped.
func (c *Controller[T]) Execute(ctx context.Context, req Request) (FetchStatus[T], bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.closed || req.Generation != c.generation {
		status := c.status
		c.mu.Unlock()
		return status, false
	}
	c.inflight[req.Generation] = cancel
	c.mu.Unlock()

	logger := c.logger.With().
		Uint64("generation", req.Generation).
		Int("page", req.Page.PageIndex).
		Int("size", req.Page.PageSize).
		Str("filter", req.Filter.String()).
		Logger()
	start := time.Now()

	var result ListResult[T]
	attempts := 0
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		attempts++
		var fetchErr error
		result, fetchErr = c.fetch(ctx, req.Filter, req.Page)
		return fetchErr
	}, func(attempt int, err error, next time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("list fetch failed, retrying")
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, req.Generation)

	if c.closed || req.Generation != c.generation {
		logger.Debug().Msg("discarding superseded list response")
		return c.status, false
	}

	if err != nil {
		logger.Error().Err(err).Int("attempts", attempts).Dur("elapsed", time.Since(start)).Msg("list fetch failed")
		c.status = Failed[T](c.message(err), err, attempts)
		return c.status, true
	}

	if result.Items == nil {
		result.Items = []T{}
	}
	c.totalPages = result.TotalPages
	c.status = Loaded(result, attempts)
	logger.Debug().
		Int("items", len(result.Items)).
		Int("total_elements", result.TotalElements).
		Int("attempts", attempts).
		Dur("elapsed", time.Since(start)).
		Msg("list fetch complete")
	return c.status, true
}

// Close stops the controller. In-flight fetches are cancelled and their
// outcomes dropped; later mutators are no-ops.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.generation++
	c.cancelInflight()
}

// Closed reports whether Close has been called.
func (c *Controller[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Status returns the current fetch status.
func (c *Controller[T]) Status() FetchStatus[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Filter returns a copy of the active filter.
func (c *Controller[T]) Filter() FilterCriteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.Clone()
}

// DraftFilter returns a copy of the filter being edited. It equals Filter
// when the controller is not gated.
func (c *Controller[T]) DraftFilter() FilterCriteria {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Clone()
}

// Gated reports whether filter edits wait for ApplyFilters.
func (c *Controller[T]) Gated() bool {
	return c.gated
}

// Dirty reports whether the draft differs from the active filter.
func (c *Controller[T]) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.draft.Equal(c.filter)
}

// Page returns the current page request.
func (c *Controller[T]) Page() PageRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// CanPrevious reports whether PreviousPage would move.
func (c *Controller[T]) CanPrevious() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.PageIndex > 0
}

// CanNext reports whether NextPage would move.
func (c *Controller[T]) CanNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canNext()
}

// TotalPages returns the last known page count, at least 1.
func (c *Controller[T]) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return max(1, c.totalPages)
}

// Name returns the screen name.
func (c *Controller[T]) Name() string {
	return c.name
}

func (c *Controller[T]) canNext() bool {
	return c.page.PageIndex+1 < max(1, c.totalPages)
}

func (c *Controller[T]) editable() FilterCriteria {
	if c.gated {
		return c.draft
	}
	return c.filter
}

func (c *Controller[T]) setFilter(f FilterCriteria) (Request, bool) {
	if c.closed {
		return Request{}, false
	}
	if c.gated {
		c.draft = f.Clone()
		return Request{}, false
	}
	if f.Equal(c.filter) {
		return Request{}, false
	}
	c.filter = f.Clone()
	c.draft = f.Clone()
	c.page.PageIndex = 0
	return c.trigger()
}

// trigger must be called with mu held.
func (c *Controller[T]) trigger() (Request, bool) {
	if c.closed {
		return Request{}, false
	}
	c.generation++
	c.cancelInflight()
	c.status = Loading[T]()
	return Request{
		Generation: c.generation,
		Filter:     c.filter.Clone(),
		Page:       c.page,
	}, true
}

func (c *Controller[T]) cancelInflight() {
	for gen, cancel := range c.inflight {
		cancel()
		delete(c.inflight, gen)
	}
}
