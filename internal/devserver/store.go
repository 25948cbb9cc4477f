package devserver

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockdesk/stockdesk/internal/entity"
	"github.com/stockdesk/stockdesk/internal/listing"
)

// Record is one stored row as its JSON object.
type Record map[string]any

// Store errors.
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// uniqueFields names the field that must be unique per entity.
//
//nolint:gochecknoglobals // read-only lookup
var uniqueFields = map[string]string{
	entity.Users:     "username",
	entity.Vehicles:  "plate",
	entity.Transfers: "code",
	entity.Inventory: "serialNumber",
	entity.Products:  "sku",
}

// SearchQuery is a decoded list request.
type SearchQuery struct {
	Where        map[string]string
	Search       string
	SearchFields []string
	Page         int
	Size         int
	SortField    string
	Descending   bool
}

// Page is one page of search results.
type Page struct {
	Content       []Record
	TotalPages    int
	TotalElements int
	Number        int
	Size          int
}

// Store keeps records per entity in memory. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records map[string][]Record
	now     func() time.Time
}

// NewStore returns an empty store for every known entity.
func NewStore() *Store {
	s := &Store{records: make(map[string][]Record), now: time.Now}
	for _, name := range entity.Names() {
		s.records[name] = nil
	}
	return s
}

// Has reports whether name is a known entity.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[name]
	return ok
}

// Count returns the number of records of name.
func (s *Store) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[name])
}

// Search filters, sorts and pages the records of name.
func (s *Store) Search(name string, q SearchQuery) Page {
	s.mu.RLock()
	matched := make([]Record, 0, len(s.records[name]))
	for _, r := range s.records[name] {
		if matches(name, r, q) {
			matched = append(matched, r.clone())
		}
	}
	s.mu.RUnlock()

	if q.SortField != "" {
		slices.SortStableFunc(matched, func(a, b Record) int {
			c := compareValues(a[q.SortField], b[q.SortField])
			if q.Descending {
				return -c
			}
			return c
		})
	}

	size := max(q.Size, 1)
	total := len(matched)
	pages := (total + size - 1) / size
	start := min(q.Page*size, total)
	end := min(start+size, total)

	return Page{
		Content:       matched[start:end],
		TotalPages:    pages,
		TotalElements: total,
		Number:        q.Page,
		Size:          size,
	}
}

// Get returns a copy of the record with id.
func (s *Store) Get(name, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.index(name, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, name, id)
	}
	return s.records[name][i].clone(), nil
}

// Create stores r under a new id and returns the stored copy.
func (s *Store) Create(name string, r Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnique(name, "", r); err != nil {
		return nil, err
	}
	stored := r.clone()
	stored["id"] = uuid.NewString()
	if _, ok := stored["createdAt"]; !ok {
		stored["createdAt"] = s.now().UTC().Format(time.RFC3339)
	}
	s.records[name] = append(s.records[name], stored)
	return stored.clone(), nil
}

// Update merges fields into the record with id.
func (s *Store) Update(name, id string, fields Record) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(name, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, name, id)
	}
	if err := s.checkUnique(name, id, fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		if k != "id" {
			s.records[name][i][k] = v
		}
	}
	return s.records[name][i].clone(), nil
}

// Delete removes the record with id.
func (s *Store) Delete(name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(name, id)
	if i < 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, name, id)
	}
	s.records[name] = slices.Delete(s.records[name], i, i+1)
	return nil
}

func (s *Store) index(name, id string) int {
	return slices.IndexFunc(s.records[name], func(r Record) bool { return r["id"] == id })
}

func (s *Store) checkUnique(name, id string, r Record) error {
	field, ok := uniqueFields[name]
	if !ok {
		return nil
	}
	v, ok := r[field]
	if !ok {
		return nil
	}
	for _, existing := range s.records[name] {
		if existing["id"] != id && fmt.Sprint(existing[field]) == fmt.Sprint(v) {
			return &FieldConflict{Field: field, Value: v}
		}
	}
	return nil
}

// FieldConflict is a uniqueness violation.
type FieldConflict struct {
	Field string
	Value any
}

func (e *FieldConflict) Error() string {
	return fmt.Sprintf("%s %v already exists", e.Field, e.Value)
}

func (e *FieldConflict) Unwrap() error { return ErrDuplicate }

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// dateField is the field date range filters apply to.
func dateField(name string) string {
	if name == entity.Transfers {
		return "scheduledAt"
	}
	return "createdAt"
}

func matches(name string, r Record, q SearchQuery) bool {
	for k, v := range q.Where {
		switch k {
		case listing.FilterStartDate:
			if d := dayOf(r[dateField(name)]); d == "" || d < v {
				return false
			}
		case listing.FilterEndDate:
			if d := dayOf(r[dateField(name)]); d == "" || d > v {
				return false
			}
		default:
			if !strings.EqualFold(fmt.Sprint(r[k]), v) {
				return false
			}
		}
	}

	if q.Search == "" {
		return true
	}
	term := strings.ToLower(q.Search)
	for _, f := range q.SearchFields {
		if v, ok := r[f]; ok && strings.Contains(strings.ToLower(fmt.Sprint(v)), term) {
			return true
		}
	}
	return false
}

func dayOf(v any) string {
	s, _ := v.(string)
	if len(s) < len(entity.DateLayout) {
		return ""
	}
	return s[:len(entity.DateLayout)]
}

// compareValues orders numbers numerically and everything else as text.
func compareValues(a, b any) int {
	da, aok := number(a)
	db, bok := number(b)
	if aok && bok {
		return da.Cmp(db)
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case decimal.Decimal:
		return n, true
	case string:
		if _, err := strconv.ParseFloat(n, 64); err != nil {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(n)
		return d, err == nil
	}
	return decimal.Zero, false
}
