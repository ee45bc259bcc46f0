// Package misc provides miscellaneous functions and types.
package misc

// Sort specifies parameters for ordering.
type Sort struct {
	By    SortBy
	Order SortOrder
}

// SortBy specifies a field to sort by.
type SortBy string

const (
	// SortByCreatedAt sorts by created at.
	SortByCreatedAt SortBy = "created_at"
	// SortByTitle sorts by title.
	SortByTitle SortBy = "title"
	// SortByUpdatedAt sorts by updated at.
	SortByUpdatedAt SortBy = "updated_at"
)

// SortOrder specifies a sort order.
type SortOrder string

const (
	// SortOrderAsc sorts in ascending order.
	SortOrderAsc SortOrder = "asc"
	// SortOrderDesc sorts in descending order.
	SortOrderDesc SortOrder = "desc"
)

// Pagination specifies pagination parameters.
type Pagination struct {
	PerPage int
	Page    int
}

// Empty returns true if no explicit pagination was requested.
func (p Pagination) Empty() bool {
	return p.Page == 0 && p.PerPage == 0
}

// Filter is a filter for a list of items.
type Filter[T any] struct {
	Include []T
	Exclude []T
}

// Empty returns true if neither include nor exclude lists carry entries.
func (f Filter[T]) Empty() bool {
	return len(f.Include) == 0 && len(f.Exclude) == 0
}

// PtrTernary returns ifTrue if cond is true, ifFalse if cond is false, and empty value otherwise.
func PtrTernary[T any](cond *bool, ifTrue, ifFalse T) T {
	if cond == nil {
		return *new(T)
	}
	if *cond {
		return ifTrue
	}
	return ifFalse
}

// Map applies f to each element of s and returns the result.
func Map[T, R any](s []T, f func(T) R) []R {
	r := make([]R, len(s))
	for i, v := range s {
		r[i] = f(v)
	}
	return r
}

// Dedup returns s with duplicate keys (as produced by key) removed, keeping
// the first occurrence and preserving input order.
func Dedup[T any, K comparable](s []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(s))
	out := make([]T, 0, len(s))
	for _, v := range s {
		k := key(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// FirstN returns at most the first n elements of s.
func FirstN[T any](s []T, n int) []T {
	if n < 0 || n > len(s) {
		n = len(s)
	}
	return s[:n]
}
