package batch

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/listing"
)

func identity(s string) string { return s }

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}

func TestProcessor_Process(t *testing.T) {
	t.Run("AllSucceed", func(t *testing.T) {
		p, err := NewProcessor(identity, WithConcurrency(3))
		require.NoError(t, err)

		var count atomic.Int32
		results, err := p.Process(context.Background(), ids(25), func(context.Context, string) error {
			count.Add(1)
			return nil
		})
		require.NoError(t, err)
		assert.EqualValues(t, 25, count.Load())

		ok, failed, skipped := Summarize(results)
		assert.Equal(t, 25, ok)
		assert.Zero(t, failed)
		assert.Zero(t, skipped)
		assert.Equal(t, "1", results[0].Key, "results keep input order")
		assert.Equal(t, "25", results[24].Key)
	})

	t.Run("FailuresAreReportedPerItem", func(t *testing.T) {
		p, _ := NewProcessor(identity)
		results, err := p.Process(context.Background(), ids(4), func(_ context.Context, id string) error {
			if id == "2" {
				return errors.New("not found")
			}
			return nil
		})
		require.NoError(t, err)
		require.Error(t, results[1].Err)
		require.NoError(t, results[2].Err, "one failure does not stop the rest")

		ok, failed, _ := Summarize(results)
		assert.Equal(t, 3, ok)
		assert.Equal(t, 1, failed)
	})

	t.Run("EmptyItems", func(t *testing.T) {
		p, _ := NewProcessor(identity)
		_, err := p.Process(context.Background(), nil, func(context.Context, string) error { return nil })
		assert.Equal(t, ErrEmptyItems, err)
	})

	t.Run("NilCallback", func(t *testing.T) {
		p, _ := NewProcessor(identity)
		_, err := p.Process(context.Background(), ids(1), nil)
		assert.Equal(t, ErrNilCallback, err)
	})

	t.Run("InvalidOptions", func(t *testing.T) {
		_, err := NewProcessor(identity, WithConcurrency(0))
		require.ErrorIs(t, err, ErrInvalidConcurrency)
		_, err = NewProcessor(identity, WithConcurrency(100))
		require.ErrorIs(t, err, ErrInvalidConcurrency)
		_, err = NewProcessor(identity, WithRate(-1))
		require.ErrorIs(t, err, ErrInvalidRate)
	})
}

func TestProcessor_DuplicateRowsSubmittedOnce(t *testing.T) {
	p, _ := NewProcessor(identity)
	var count atomic.Int32
	results, err := p.Process(context.Background(), []string{"5", "7", "5"}, func(context.Context, string) error {
		count.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, count.Load())
	assert.True(t, results[2].Skipped)
	require.ErrorIs(t, results[2].Err, ErrInFlight)
}

func TestProcessor_SharedGuardSkipsBusyRows(t *testing.T) {
	guard := listing.NewRowGuard()
	require.True(t, guard.Begin("7"), "row 7 is being deleted elsewhere")

	p, _ := NewProcessor(identity, WithGuard(guard))
	var seen sync.Map
	results, err := p.Process(context.Background(), []string{"5", "7"}, func(_ context.Context, id string) error {
		seen.Store(id, true)
		assert.True(t, guard.Busy(id), "row is marked busy while in flight")
		return nil
	})
	require.NoError(t, err)

	_, ran5 := seen.Load("5")
	_, ran7 := seen.Load("7")
	assert.True(t, ran5)
	assert.False(t, ran7)
	assert.True(t, results[1].Skipped)
	assert.False(t, guard.Busy("5"), "guard released after completion")
	assert.True(t, guard.Busy("7"), "foreign entry untouched")
}

func TestProcessor_ConcurrentDeletesOfDifferentRows(t *testing.T) {
	p, _ := NewProcessor(identity, WithConcurrency(2))

	var inFlight, peak atomic.Int32
	release := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	_, err := p.Process(context.Background(), []string{"5", "7"}, func(context.Context, string) error {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, peak.Load(), "rows 5 and 7 are deleted concurrently")
}

func TestProcessor_RateLimit(t *testing.T) {
	p, err := NewProcessor(identity, WithConcurrency(4), WithRate(50))
	require.NoError(t, err)

	start := time.Now()
	_, err = p.Process(context.Background(), ids(5), func(context.Context, string) error { return nil })
	require.NoError(t, err)
	// Burst of one, then 20ms per start.
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestProcessor_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p, _ := NewProcessor(identity, WithConcurrency(1))

	_, err := p.Process(ctx, ids(10), func(context.Context, string) error {
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcessor_Progress(t *testing.T) {
	var mu sync.Mutex
	var snapshots []ProgressSnapshot
	p, _ := NewProcessor(identity, WithConcurrency(1), WithProgressCallback(func(s ProgressSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, s)
	}))

	_, err := p.Process(context.Background(), []string{"1", "2", "2", "3"}, func(_ context.Context, id string) error {
		if id == "3" {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)

	require.Len(t, snapshots, 4)
	last := snapshots[len(snapshots)-1]
	for _, s := range snapshots {
		if s.IsComplete() {
			last = s
		}
	}
	assert.True(t, last.IsComplete())
	assert.Equal(t, 2, last.Succeeded)
	assert.Equal(t, 1, last.Failed)
	assert.Equal(t, 1, last.Skipped)
	assert.InDelta(t, 100.0, last.PercentComplete, 0.001)
}
