package lookup

import (
	"context"

	"github.com/amsross/transitlambda/pkg/transit"
)

// Static is an in-memory lookup table supplied by the host at construction
// time. It is empty by default; nothing is compiled in.
type Static struct {
	Operators map[string]transit.Operator
	Stops     map[string]transit.Stop
}

// NewStatic creates a Static source from the given tables. Either map may be
// nil.
func NewStatic(operators map[string]transit.Operator, stops map[string]transit.Stop) *Static {
	return &Static{Operators: operators, Stops: stops}
}

// Operator returns the pre-seeded operator for term, if any.
func (s *Static) Operator(_ context.Context, term string) (*transit.Operator, bool) {
	op, ok := s.Operators[term]
	recordLookup(TableOperators, ok)
	if !ok {
		return nil, false
	}
	return &op, true
}

// Stop returns the pre-seeded stop for term, if any.
func (s *Static) Stop(_ context.Context, term string) (*transit.Stop, bool) {
	stop, ok := s.Stops[term]
	recordLookup(TableStops, ok)
	if !ok {
		return nil, false
	}
	return &stop, true
}
