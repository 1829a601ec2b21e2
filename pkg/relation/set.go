package relation

import "context"

// QueryFunc issues one MAC table query against the device and returns the
// raw table text.
type QueryFunc func(ctx context.Context) (string, error)

// Set is a lazy, finite, restartable sequence of relations concatenated
// across one or more device queries. Queries are issued during iteration,
// one at a time, in the order they were added; ordering of relations
// follows query issue order, not a global sort. Iterating again re-issues
// every query.
type Set struct {
	queries []QueryFunc
}

// NewSet builds a set over the given queries.
func NewSet(queries ...QueryFunc) *Set {
	return &Set{queries: queries}
}

// Add appends another query to the sequence.
func (s *Set) Add(q QueryFunc) {
	s.queries = append(s.queries, q)
}

// Each issues the queries in order, parsing each response and calling fn
// for every relation. Iteration stops at the first query, parse, or
// callback error.
func (s *Set) Each(ctx context.Context, fn func(Relation) error) error {
	for _, q := range s.queries {
		raw, err := q(ctx)
		if err != nil {
			return err
		}
		relations, err := ParseTable(raw)
		if err != nil {
			return err
		}
		for _, r := range relations {
			if err := fn(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// Collect materializes the whole sequence.
func (s *Set) Collect(ctx context.Context) ([]Relation, error) {
	var out []Relation
	err := s.Each(ctx, func(r Relation) error {
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
