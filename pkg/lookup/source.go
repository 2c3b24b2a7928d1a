// Package lookup provides pre-seeded, read-only lookup tables consulted
// before any network resolution. A miss is never an error; it only means the
// pipeline falls back to fetching and fuzzy-matching.
package lookup

import (
	"context"

	"github.com/amsross/transitlambda/pkg/transit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Table names used for keys and metrics.
const (
	TableOperators = "operators"
	TableStops     = "stops"
)

// Prometheus metrics for lookup sources.
var (
	lookupHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transit_lookup_hits_total",
		Help: "Lookup table hits by table",
	}, []string{"table"})

	lookupMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transit_lookup_misses_total",
		Help: "Lookup table misses by table",
	}, []string{"table"})
)

// Source is a read-only lookup table keyed by the user-entered search term.
// Implementations must be safe for concurrent reads; the pipeline never
// writes at runtime.
type Source interface {
	Operator(ctx context.Context, term string) (*transit.Operator, bool)
	Stop(ctx context.Context, term string) (*transit.Stop, bool)
}

func recordLookup(table string, hit bool) {
	if hit {
		lookupHitsTotal.WithLabelValues(table).Inc()
		return
	}
	lookupMissesTotal.WithLabelValues(table).Inc()
}
