// Package dashboard gathers the headline counts shown on the dashboard
// screen. Each metric is fetched independently; a failing metric is
// reported on its own and never hides the others.
package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stockdesk/stockdesk/internal/api"
	"github.com/stockdesk/stockdesk/internal/entity"
	"github.com/stockdesk/stockdesk/internal/listing"
	"github.com/stockdesk/stockdesk/internal/retry"
)

// DefaultConcurrency bounds the number of metric requests in flight.
const DefaultConcurrency = 4

// Metric groups.
const (
	GroupTotals    = "totals"
	GroupTransfers = "transfers"
	GroupStock     = "stock"
)

// Query defines one counted metric.
type Query struct {
	Key    string
	Label  string
	Group  string
	Entity string
	Filter listing.FilterCriteria
}

// Metric is the value of one Query.
type Metric struct {
	Query

	Value   int
	Err     error
	Message string
}

// OK reports whether the metric was fetched.
func (m Metric) OK() bool { return m.Err == nil }

// Summary is a dashboard snapshot.
type Summary struct {
	GeneratedAt time.Time
	Elapsed     time.Duration
	Metrics     []Metric
}

// Get returns the metric with key.
func (s Summary) Get(key string) (Metric, bool) {
	for _, m := range s.Metrics {
		if m.Key == key {
			return m, true
		}
	}
	return Metric{}, false
}

// Group returns the metrics of group in definition order.
func (s Summary) Group(group string) []Metric {
	var out []Metric
	for _, m := range s.Metrics {
		if m.Group == group {
			out = append(out, m)
		}
	}
	return out
}

// Failed returns the metrics that could not be fetched.
func (s Summary) Failed() []Metric {
	var out []Metric
	for _, m := range s.Metrics {
		if !m.OK() {
			out = append(out, m)
		}
	}
	return out
}

// DefaultQueries returns the dashboard metrics: a total per entity, the
// transfers per status and the stock alerts.
func DefaultQueries() []Query {
	titles := map[string]string{
		entity.Users: "Users", entity.Vehicles: "Vehicles", entity.Transfers: "Transfers",
		entity.Inventory: "Inventory items", entity.Products: "Products",
	}

	var qs []Query
	for _, name := range entity.Names() {
		qs = append(qs, Query{Key: "total." + name, Label: titles[name], Group: GroupTotals, Entity: name})
	}
	for _, status := range entity.TransferStatuses {
		qs = append(qs, Query{
			Key:    "transfers." + status,
			Label:  status,
			Group:  GroupTransfers,
			Entity: entity.Transfers,
			Filter: listing.FilterCriteria{listing.FilterStatus: status},
		})
	}
	qs = append(qs,
		Query{
			Key: "stock.LOW_STOCK", Label: "Low stock", Group: GroupStock, Entity: entity.Inventory,
			Filter: listing.FilterCriteria{listing.FilterStatus: "LOW_STOCK"},
		},
		Query{
			Key: "stock.OUT_OF_STOCK", Label: "Out of stock", Group: GroupStock, Entity: entity.Inventory,
			Filter: listing.FilterCriteria{listing.FilterStatus: "OUT_OF_STOCK"},
		},
	)
	return qs
}

// Counter returns the number of records matching filter.
type Counter interface {
	Count(ctx context.Context, entityName string, filter listing.FilterCriteria) (int, error)
}

// APICounter counts with a one-record search and reads the total.
type APICounter struct {
	Client *api.Client
}

// Count implements Counter.
func (c APICounter) Count(ctx context.Context, entityName string, filter listing.FilterCriteria) (int, error) {
	res, err := api.Search[json.RawMessage](ctx, c.Client, entityName, api.SearchQuery{
		Filter: filter,
		Page:   listing.PageRequest{PageIndex: 0, PageSize: 1, SortDirection: listing.SortDesc},
	})
	if err != nil {
		return 0, err
	}
	return res.TotalElements, nil
}

// Service builds Summaries.
type Service struct {
	counter     Counter
	queries     []Query
	policy      retry.Policy
	concurrency int
	logger      zerolog.Logger
}

// NewService returns a service running queries with policy. A nil queries
// uses DefaultQueries.
func NewService(counter Counter, queries []Query, policy retry.Policy, logger zerolog.Logger) *Service {
	if queries == nil {
		queries = DefaultQueries()
	}
	return &Service{
		counter:     counter,
		queries:     queries,
		policy:      policy,
		concurrency: DefaultConcurrency,
		logger:      logger.With().Str("component", "dashboard").Logger(),
	}
}

// Summary fetches every metric concurrently. It only fails when ctx is
// done; individual metric failures are recorded on the metric.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	start := time.Now()
	metrics := make([]Metric, len(s.queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, q := range s.queries {
		metrics[i] = Metric{Query: q}
		g.Go(func() error {
			var n int
			err := retry.Do(gctx, s.policy, func(ctx context.Context) error {
				var countErr error
				n, countErr = s.counter.Count(ctx, q.Entity, q.Filter)
				return countErr
			}, nil)
			if err != nil {
				metrics[i].Err = err
				metrics[i].Message = api.UserMessage(err)
				s.logger.Warn().Err(err).Str("metric", q.Key).Msg("metric unavailable")
				return nil
			}
			metrics[i].Value = n
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	summary := Summary{GeneratedAt: start, Elapsed: time.Since(start), Metrics: metrics}
	s.logger.Debug().
		Int("metrics", len(metrics)).
		Int("failed", len(summary.Failed())).
		Dur("elapsed", summary.Elapsed).
		Msg("dashboard summary complete")
	return summary, nil
}
