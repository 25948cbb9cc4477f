package tui

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/stockdesk/stockdesk/internal/entity"
	"github.com/stockdesk/stockdesk/internal/listing"
	"github.com/stockdesk/stockdesk/internal/retry"
)

// maxCmdDepth bounds follow-up commands so cursor blink chains never loop.
const maxCmdDepth = 4

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// typeText sends s one rune at a time. Cursor blink commands are dropped.
func typeText(m tea.Model, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// collect runs cmd and flattens batches. Spinner ticks are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case nil, spinner.TickMsg:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	default:
		return []tea.Msg{msg}
	}
}

// process feeds the messages produced by cmd back into m, following the
// commands they return.
func process(t *testing.T, m tea.Model, cmd tea.Cmd) {
	t.Helper()
	processDepth(m, cmd, 0)
}

func processDepth(m tea.Model, cmd tea.Cmd, depth int) {
	if depth > maxCmdDepth {
		return
	}
	for _, msg := range collect(cmd) {
		_, next := m.Update(msg)
		processDepth(m, next, depth+1)
	}
}

// press sends a key and processes whatever it triggers.
func press(t *testing.T, m tea.Model, key tea.KeyMsg) {
	t.Helper()
	_, cmd := m.Update(key)
	process(t, m, cmd)
}

func fastPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func product(i int) entity.Product {
	return entity.Product{
		ID:       "p" + strconv.Itoa(i),
		SKU:      "SKU-" + strconv.Itoa(i),
		Name:     "Product " + strconv.Itoa(i),
		Category: "tools",
		Price:    decimal.NewFromInt(int64(i)),
		Unit:     "ea",
		Status:   "ACTIVE",
	}
}

// productServer is an in-memory products endpoint recording every request.
type productServer struct {
	mu       sync.Mutex
	items    []entity.Product
	err      error
	requests []listing.PageRequest
	filters  []listing.FilterCriteria
}

func newProductServer(n int) *productServer {
	s := &productServer{}
	for i := 1; i <= n; i++ {
		s.items = append(s.items, product(i))
	}
	return s
}

func (s *productServer) fetch(_ context.Context, filter listing.FilterCriteria, page listing.PageRequest) (listing.ListResult[entity.Product], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, page)
	s.filters = append(s.filters, filter.Clone())
	if s.err != nil {
		return listing.ListResult[entity.Product]{}, s.err
	}

	var matched []entity.Product
	for _, p := range s.items {
		if st := filter.Get(listing.FilterStatus); st != "" && p.Status != st {
			continue
		}
		matched = append(matched, p)
	}
	n := len(matched)
	totalPages := (n + page.PageSize - 1) / page.PageSize
	start := min(page.PageIndex*page.PageSize, n)
	end := min(start+page.PageSize, n)
	return listing.ListResult[entity.Product]{
		Items:         append([]entity.Product{}, matched[start:end]...),
		TotalPages:    totalPages,
		TotalElements: n,
		PageIndex:     page.PageIndex,
		IsFirstPage:   page.PageIndex == 0,
		IsLastPage:    page.PageIndex+1 >= totalPages,
	}, nil
}

func (s *productServer) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.items {
		if p.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

func (s *productServer) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *productServer) lastPage() listing.PageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func (s *productServer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
