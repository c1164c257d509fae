// Package swipe is a like/pass cursor over an ordered candidate list.
package swipe

import (
	"tripline/internal/domain"
)

// Session walks candidates in order. Every candidate before the cursor is in
// exactly one of liked or rejected, in presentation order. A session over an
// empty list starts complete.
type Session[T any] struct {
	candidates []T
	cursor     int
	liked      []T
	rejected   []T
}

// New copies candidates so later changes to the caller's slice do not leak in.
func New[T any](candidates []T) *Session[T] {
	return &Session[T]{candidates: append([]T(nil), candidates...)}
}

func (s *Session[T]) Len() int    { return len(s.candidates) }
func (s *Session[T]) Cursor() int { return s.cursor }

func (s *Session[T]) Complete() bool { return s.cursor == len(s.candidates) }

// Current returns the candidate under the cursor.
func (s *Session[T]) Current() (T, error) {
	var zero T
	if s.Complete() {
		return zero, domain.ErrEmptySession
	}
	return s.candidates[s.cursor], nil
}

func (s *Session[T]) Like() error {
	return s.decide(&s.liked)
}

func (s *Session[T]) Pass() error {
	return s.decide(&s.rejected)
}

func (s *Session[T]) decide(into *[]T) error {
	if s.Complete() {
		return domain.ErrAlreadyComplete
	}
	*into = append(*into, s.candidates[s.cursor])
	s.cursor++
	return nil
}

// Reset rewinds to the first candidate and forgets every decision.
func (s *Session[T]) Reset() {
	s.cursor = 0
	s.liked = nil
	s.rejected = nil
}

// Progress is cursor/len, or 1 for an empty list.
func (s *Session[T]) Progress() float64 {
	if len(s.candidates) == 0 {
		return 1
	}
	return float64(s.cursor) / float64(len(s.candidates))
}

func (s *Session[T]) Liked() []T      { return append([]T{}, s.liked...) }
func (s *Session[T]) Rejected() []T   { return append([]T{}, s.rejected...) }
func (s *Session[T]) Candidates() []T { return append([]T{}, s.candidates...) }

// View is a serializable snapshot of a session.
type View[T any] struct {
	Current  *T      `json:"current,omitempty"`
	Position int     `json:"position"`
	Total    int     `json:"total"`
	Progress float64 `json:"progress"`
	Complete bool    `json:"complete"`
	Liked    []T     `json:"liked"`
	Rejected []T     `json:"rejected"`
}

func (s *Session[T]) View() View[T] {
	v := View[T]{
		Position: s.cursor,
		Total:    len(s.candidates),
		Progress: s.Progress(),
		Complete: s.Complete(),
		Liked:    s.Liked(),
		Rejected: s.Rejected(),
	}
	if cur, err := s.Current(); err == nil {
		v.Current = &cur
	}
	return v
}
