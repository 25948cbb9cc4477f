package listing

// ListResult is one page of records as the server returned it.
type ListResult[T any] struct {
	Items         []T
	TotalPages    int
	TotalElements int
	PageIndex     int
	IsFirstPage   bool
	IsLastPage    bool
}

// SinglePage wraps an unpaginated slice. Some endpoints answer a search with
// a bare array instead of the page envelope.
func SinglePage[T any](items []T) ListResult[T] {
	if items == nil {
		items = []T{}
	}
	return ListResult[T]{
		Items:         items,
		TotalPages:    1,
		TotalElements: len(items),
		PageIndex:     0,
		IsFirstPage:   true,
		IsLastPage:    true,
	}
}

// DisplayTotalPages is the page count shown to users; never less than 1.
func (r ListResult[T]) DisplayTotalPages() int {
	return max(1, r.TotalPages)
}

// StatusKind identifies the active FetchStatus variant.
type StatusKind int

// Fetch status kinds.
const (
	StatusIdle StatusKind = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

// String returns a lowercase name.
func (k StatusKind) String() string {
	switch k {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchStatus is the result slot of a screen. Result is set only when Kind
// is StatusLoaded; Message and Err only when Kind is StatusFailed.
type FetchStatus[T any] struct {
	Kind     StatusKind
	Result   ListResult[T]
	Message  string
	Err      error
	Attempts int
}

// Idle returns the initial status.
func Idle[T any]() FetchStatus[T] { return FetchStatus[T]{Kind: StatusIdle} }

// Loading returns the in-flight status.
func Loading[T any]() FetchStatus[T] { return FetchStatus[T]{Kind: StatusLoading} }

// Loaded wraps a successful result.
func Loaded[T any](r ListResult[T], attempts int) FetchStatus[T] {
	return FetchStatus[T]{Kind: StatusLoaded, Result: r, Attempts: attempts}
}

// Failed wraps the final error of a fetch.
func Failed[T any](message string, err error, attempts int) FetchStatus[T] {
	return FetchStatus[T]{Kind: StatusFailed, Message: message, Err: err, Attempts: attempts}
}

// IsLoading reports whether a fetch is in flight.
func (s FetchStatus[T]) IsLoading() bool { return s.Kind == StatusLoading }
