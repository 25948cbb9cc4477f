package dashboard

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/api"
	"github.com/stockdesk/stockdesk/internal/listing"
	"github.com/stockdesk/stockdesk/internal/retry"
)

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int
	fail   map[string]error
	calls  map[string]int
}

func (f *fakeCounter) Count(_ context.Context, name string, filter listing.FilterCriteria) (int, error) {
	key := name + "|" + filter.String()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[key]++
	if err, ok := f.fail[key]; ok {
		return 0, err
	}
	return f.counts[key], nil
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}.
		WithClassifier(api.IsRetryable)
}

func TestSummary_AllMetrics(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int{
		"users|":                        12,
		"transfers|":                    40,
		"transfers|status=PENDING":      7,
		"inventory|status=LOW_STOCK":    3,
		"inventory|status=OUT_OF_STOCK": 1,
	}}
	svc := NewService(counter, nil, fastPolicy(), zerolog.Nop())

	s, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Len(t, s.Metrics, len(DefaultQueries()))
	assert.Empty(t, s.Failed())

	m, ok := s.Get("total.users")
	require.True(t, ok)
	assert.Equal(t, 12, m.Value)

	m, _ = s.Get("transfers.PENDING")
	assert.Equal(t, 7, m.Value)

	stock := s.Group(GroupStock)
	require.Len(t, stock, 2)
	assert.Equal(t, 3, stock[0].Value)
	assert.Equal(t, 1, stock[1].Value)
	assert.Len(t, s.Group(GroupTotals), 5)
}

func TestSummary_PartialFailure(t *testing.T) {
	counter := &fakeCounter{
		counts: map[string]int{"users|": 12},
		fail: map[string]error{
			"vehicles|": &api.APIError{Status: http.StatusForbidden, Message: "Access denied"},
			"products|": &api.NetworkError{Method: "POST", URL: "x", Err: errors.New("refused")},
		},
	}
	svc := NewService(counter, nil, fastPolicy(), zerolog.Nop())

	s, err := svc.Summary(context.Background())
	require.NoError(t, err, "partial failures never fail the summary")

	failed := s.Failed()
	require.Len(t, failed, 2)

	m, _ := s.Get("total.vehicles")
	assert.Equal(t, "Access denied", m.Message)
	assert.Equal(t, 1, counter.calls["vehicles|"], "4xx is not retried")

	m, _ = s.Get("total.products")
	assert.Equal(t, api.MsgNetwork, m.Message)
	assert.Equal(t, 3, counter.calls["products|"], "network failures are retried")

	m, _ = s.Get("total.users")
	assert.True(t, m.OK())
	assert.Equal(t, 12, m.Value)
}

func TestSummary_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewService(&fakeCounter{}, nil, fastPolicy(), zerolog.Nop())

	_, err := svc.Summary(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAPICounter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transfers/search", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("size"))
		_, _ = io.WriteString(w, `{"content":[{"id":"t1"}],"totalPages":9,"totalElements":9,"first":true,"last":false}`)
	}))
	defer srv.Close()

	c, err := api.NewClient(srv.URL, nil)
	require.NoError(t, err)

	n, err := APICounter{Client: c}.Count(context.Background(), "transfers", listing.FilterCriteria{"status": "PENDING"})
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}
