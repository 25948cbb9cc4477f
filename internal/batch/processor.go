// Package batch runs one remote operation per selected row, such as a bulk
// delete, with bounded concurrency, an optional request rate and a per-row
// guard so the same row is never submitted twice.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/stockdesk/stockdesk/internal/listing"
)

// Default processing configuration.
const (
	DefaultConcurrency = 4
	MinConcurrency     = 1
	MaxConcurrency     = 32
)

// Common batch processing errors.
var (
	ErrInvalidConcurrency = errors.New("concurrency must be between 1 and 32")
	ErrInvalidRate        = errors.New("rate must be zero (unlimited) or positive")
	ErrNilCallback        = errors.New("batch callback cannot be nil")
	ErrEmptyItems         = errors.New("items slice cannot be empty")
	ErrInFlight           = errors.New("operation already in progress for this row")
)

// ItemCallback performs the operation on one item.
type ItemCallback[T any] func(ctx context.Context, item T) error

// ProgressCallback is invoked after each item finishes.
type ProgressCallback func(snapshot ProgressSnapshot)

// Result is the outcome for one item.
type Result[T any] struct {
	Item     T
	Key      string
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Processor applies a callback to every item.
type Processor[T any] struct {
	key         func(T) string
	concurrency int
	limiter     *rate.Limiter
	guard       *listing.RowGuard
	onProgress  ProgressCallback
	logger      zerolog.Logger
}

// Option configures a Processor.
type Option func(*options) error

type options struct {
	concurrency int
	perSecond   float64
	guard       *listing.RowGuard
	onProgress  ProgressCallback
	logger      *zerolog.Logger
}

// WithConcurrency bounds the number of items in flight.
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n < MinConcurrency || n > MaxConcurrency {
			return fmt.Errorf("%w: got %d", ErrInvalidConcurrency, n)
		}
		o.concurrency = n
		return nil
	}
}

// WithRate limits item starts per second. Zero means unlimited.
func WithRate(perSecond float64) Option {
	return func(o *options) error {
		if perSecond < 0 {
			return fmt.Errorf("%w: got %v", ErrInvalidRate, perSecond)
		}
		o.perSecond = perSecond
		return nil
	}
}

// WithGuard shares a row guard with other callers, such as a list screen
// that deletes rows individually.
func WithGuard(g *listing.RowGuard) Option {
	return func(o *options) error {
		o.guard = g
		return nil
	}
}

// WithProgressCallback sets a progress callback.
func WithProgressCallback(fn ProgressCallback) Option {
	return func(o *options) error {
		o.onProgress = fn
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = &l
		return nil
	}
}

// NewProcessor returns a processor keyed by key, which must identify a row.
func NewProcessor[T any](key func(T) string, opts ...Option) (*Processor[T], error) {
	o := options{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	p := &Processor[T]{
		key:         key,
		concurrency: o.concurrency,
		guard:       o.guard,
		onProgress:  o.onProgress,
		logger:      zerolog.Nop(),
	}
	if p.guard == nil {
		p.guard = listing.NewRowGuard()
	}
	if o.perSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(o.perSecond), 1)
	}
	if o.logger != nil {
		p.logger = o.logger.With().Str("component", "batch").Logger()
	}
	return p, nil
}

// Concurrency returns the configured bound.
func (p *Processor[T]) Concurrency() int {
	return p.concurrency
}

// Process runs callback for every item and returns one Result per item in
// input order. Item failures are reported in the results, not as the
// returned error, which is set only for invalid input or cancellation.
func (p *Processor[T]) Process(ctx context.Context, items []T, callback ItemCallback[T]) ([]Result[T], error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	if callback == nil {
		return nil, ErrNilCallback
	}

	results := make([]Result[T], len(items))
	progress := NewProgress(len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	seen := make(map[string]struct{}, len(items))

	for i, item := range items {
		key := p.key(item)
		results[i] = Result[T]{Item: item, Key: key}

		if err := gctx.Err(); err != nil {
			results[i].Err = err
			progress.Add(OutcomeFailed)
			continue
		}

		_, dup := seen[key]
		seen[key] = struct{}{}
		if dup || !p.guard.Begin(key) {
			results[i].Skipped = true
			results[i].Err = ErrInFlight
			progress.Add(OutcomeSkipped)
			p.notify(progress)
			continue
		}

		g.Go(func() error {
			defer p.guard.End(key)

			if p.limiter != nil {
				if err := p.limiter.Wait(gctx); err != nil {
					results[i].Err = err
					progress.Add(OutcomeFailed)
					p.notify(progress)
					return err
				}
			}

			start := time.Now()
			err := callback(gctx, item)
			results[i].Err = err
			results[i].Duration = time.Since(start)

			if err != nil {
				progress.Add(OutcomeFailed)
				p.logger.Warn().Err(err).Str("row", key).Msg("row operation failed")
			} else {
				progress.Add(OutcomeSucceeded)
				p.logger.Debug().Str("row", key).Dur("elapsed", results[i].Duration).Msg("row operation complete")
			}
			p.notify(progress)

			// Only cancellation stops the remaining rows.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, nil
}

func (p *Processor[T]) notify(progress *Progress) {
	if p.onProgress != nil {
		p.onProgress(progress.Snapshot())
	}
}

// Summarize counts results by outcome.
func Summarize[T any](results []Result[T]) (succeeded, failed, skipped int) {
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
		case r.Err != nil:
			failed++
		default:
			succeeded++
		}
	}
	return succeeded, failed, skipped
}
