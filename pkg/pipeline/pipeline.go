// Package pipeline composes resolution, schedule windowing, and pairing into
// the single entry point hosts call: FindNextDepartures.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/amsross/transitlambda/pkg/client"
	"github.com/amsross/transitlambda/pkg/lookup"
	"github.com/amsross/transitlambda/pkg/resolve"
	"github.com/amsross/transitlambda/pkg/schedule"
	"github.com/amsross/transitlambda/pkg/transit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for pipeline runs.
var (
	pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transit_pipeline_duration_seconds",
		Help:    "End-to-end FindNextDepartures duration",
		Buckets: []float64{0.1, 0.5, 1, 2, 3, 5},
	})

	pipelineLegsReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transit_pipeline_legs_returned",
		Help:    "Trip legs returned per pipeline run",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	})

	pipelineEmptyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "transit_pipeline_empty_total",
		Help: "Pipeline runs that resolved nothing, by stage",
	}, []string{"stage"})
)

// Batch bounds: the first batch is whatever accumulates within BatchWindow,
// capped at BatchCount, whichever bound is reached first.
const (
	DefaultBatchCount  = 5
	DefaultBatchWindow = 3 * time.Second
)

// Config holds pipeline configuration.
type Config struct {
	BatchCount  int
	BatchWindow time.Duration
}

// DefaultConfig returns the default batch bounds.
func DefaultConfig() Config {
	return Config{
		BatchCount:  DefaultBatchCount,
		BatchWindow: DefaultBatchWindow,
	}
}

// Pipeline is the orchestrator.
type Pipeline struct {
	resolver *resolve.Resolver
	query    *schedule.Query
	config   Config
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a Pipeline over the shared API client. source may be nil.
func New(c *client.Client, source lookup.Source, cfg Config) *Pipeline {
	if cfg.BatchCount <= 0 {
		cfg.BatchCount = DefaultBatchCount
	}
	if cfg.BatchWindow <= 0 {
		cfg.BatchWindow = DefaultBatchWindow
	}

	return &Pipeline{
		resolver: resolve.New(c, source),
		query:    schedule.NewQuery(c),
		config:   cfg,
		logger:   log.With().Str("component", "pipeline").Logger(),
		now:      time.Now,
	}
}

// FindNextDepartures resolves the operator and both stops, then collects the
// next scheduled trip legs between them. It returns the first batch bounded
// by the configured time and count budgets; reaching the time budget returns
// whatever has accumulated, not an error. Transport failures propagate.
// A result that resolves to nothing at any stage is an empty slice with a
// nil error.
func (p *Pipeline) FindNextDepartures(ctx context.Context, operatorTerm, fromTerm, toTerm string) ([]transit.TripLeg, error) {
	start := time.Now()
	defer func() {
		pipelineDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, p.config.BatchWindow)
	defer cancel()

	op, err := p.resolver.Operator(ctx, operatorTerm)
	if err != nil {
		return nil, err
	}
	if op == nil {
		pipelineEmptyTotal.WithLabelValues("operator").Inc()
		return nil, nil
	}

	pair, err := p.resolver.StopPair(ctx, op, fromTerm, toTerm)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		pipelineEmptyTotal.WithLabelValues("stops").Inc()
		return nil, nil
	}

	legs, err := p.collectLegs(ctx, pair)
	if err != nil {
		return nil, err
	}

	pipelineLegsReturned.Observe(float64(len(legs)))
	p.logger.Info().
		Str("operator", pair.OperatorOnestopID).
		Str("origin", pair.OriginOnestopID).
		Str("destination", pair.DestinationOnestopID).
		Int("legs", len(legs)).
		Dur("elapsed", time.Since(start)).
		Msg("Departure batch assembled")

	return legs, nil
}

// collectLegs enumerates candidate origin departures, re-queries each trip
// for its destination-side record, and pairs them until a batch bound is
// hit.
func (p *Pipeline) collectLegs(ctx context.Context, pair *transit.StopPair) ([]transit.TripLeg, error) {
	base, err := p.localBase(pair.Timezone)
	if err != nil {
		return nil, err
	}

	var legs []transit.TripLeg

	origins := p.query.Windows(ctx, schedule.Params{
		OriginOnestopID:   pair.OriginOnestopID,
		OperatorOnestopID: pair.OperatorOnestopID,
		Timezone:          pair.Timezone,
	})

	for origin, err := range origins {
		if err != nil {
			if deadlineReached(ctx, err) {
				p.logger.Warn().Int("legs", len(legs)).
					Msg("Batch time budget reached, returning partial batch")
				return legs, nil
			}
			return nil, err
		}

		anchor, ok := departureAnchor(base, origin.OriginDepartureTime)
		if !ok {
			continue
		}

		destinations := p.query.Windows(ctx, schedule.Params{
			DestinationOnestopID: pair.DestinationOnestopID,
			OperatorOnestopID:    pair.OperatorOnestopID,
			Timezone:             pair.Timezone,
			Trip:                 origin.Trip,
			Anchor:               anchor,
		})

		leg, err := schedule.PairLeg(origin, destinations)
		if err != nil {
			if deadlineReached(ctx, err) {
				return legs, nil
			}
			return nil, err
		}
		if leg == nil {
			continue
		}

		legs = append(legs, *leg)
		if len(legs) >= p.config.BatchCount {
			break
		}
	}

	return legs, nil
}

// ResolveOperator exposes operator resolution for hosts.
func (p *Pipeline) ResolveOperator(ctx context.Context, term string) (*transit.Operator, error) {
	return p.resolver.Operator(ctx, term)
}

// ResolveStop exposes stop resolution for hosts.
func (p *Pipeline) ResolveStop(ctx context.Context, term, operatorID string) (*transit.Stop, error) {
	return p.resolver.Stop(ctx, term, operatorID)
}

// ResolveStopPair exposes stop pair resolution for hosts.
func (p *Pipeline) ResolveStopPair(ctx context.Context, op *transit.Operator, fromTerm, toTerm string) (*transit.StopPair, error) {
	return p.resolver.StopPair(ctx, op, fromTerm, toTerm)
}

// QueryWindow exposes the schedule window query for hosts.
func (p *Pipeline) QueryWindow(ctx context.Context, params schedule.Params) iter.Seq2[transit.ScheduleStopPair, error] {
	return p.query.Windows(ctx, params)
}

// localBase is the current time in the operator's timezone; departure
// anchors for trip re-queries are derived from its date.
func (p *Pipeline) localBase(timezone string) (time.Time, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return p.now().In(loc), nil
}

// departureAnchor places a feed time string ("HH:MM:SS", hours may reach 24)
// on base's calendar date.
func departureAnchor(base time.Time, departure string) (time.Time, bool) {
	parts := strings.SplitN(departure, ":", 3)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	hh, err1 := strconv.Atoi(parts[0])
	mm, err2 := strconv.Atoi(parts[1])
	ss, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}

	days := 0
	if hh >= 24 {
		days = hh / 24
		hh = hh % 24
	}

	anchor := time.Date(base.Year(), base.Month(), base.Day(), hh, mm, ss, 0, base.Location())
	return anchor.AddDate(0, 0, days), true
}

// deadlineReached reports whether err is the batch window expiring rather
// than a real failure.
func deadlineReached(ctx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded
}
