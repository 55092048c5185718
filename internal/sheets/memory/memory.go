// Package memory is an in-process RecordMirror used in development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	ports "gastos/internal/sheets"
)

type Store struct {
	mu    sync.Mutex
	years map[int]map[string]ports.Row
}

var _ ports.RecordMirror = (*Store)(nil)

func New() *Store {
	return &Store{years: map[int]map[string]ports.Row{}}
}

// UpsertRecord stores row under its date's year, replacing any row with the
// same id in any year.
func (s *Store) UpsertRecord(_ context.Context, row ports.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rows := range s.years {
		delete(rows, row.ID)
	}
	y := row.Date.Year()
	if s.years[y] == nil {
		s.years[y] = map[string]ports.Row{}
	}
	s.years[y][row.ID] = row
	return nil
}

func (s *Store) DeleteRecord(_ context.Context, year int, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.years[year], id)
	return nil
}

// Rows returns the rows of a year ordered by date, then id.
func (s *Store) Rows(year int) []ports.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.Row, 0, len(s.years[year]))
	for _, r := range s.years[year] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
