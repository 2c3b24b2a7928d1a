// Package resolve turns human-entered operator and stop names into concrete
// transit.land entities, consulting a pre-seeded lookup source before
// falling back to fetch-and-fuzzy-match.
//
// "Not found" is a valid empty outcome, returned as (nil, nil); it is never
// conflated with a transport failure, which is returned as a non-nil error.
package resolve

import (
	"context"
	"net/url"

	"github.com/amsross/transitlambda/pkg/client"
	"github.com/amsross/transitlambda/pkg/fetch"
	"github.com/amsross/transitlambda/pkg/lookup"
	"github.com/amsross/transitlambda/pkg/match"
	"github.com/amsross/transitlambda/pkg/transit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Resolver resolves operators and stops.
type Resolver struct {
	client  *client.Client
	fetcher *fetch.Fetcher
	source  lookup.Source
	logger  zerolog.Logger
}

// New creates a Resolver. source may be nil, in which case every resolution
// goes to the network.
func New(c *client.Client, source lookup.Source) *Resolver {
	return &Resolver{
		client:  c,
		fetcher: fetch.New(c),
		source:  source,
		logger:  log.With().Str("component", "resolver").Logger(),
	}
}

// Operator resolves a free-text operator term to the best-matching operator.
// Returns (nil, nil) when nothing matches.
func (r *Resolver) Operator(ctx context.Context, term string) (*transit.Operator, error) {
	if r.source != nil {
		if op, ok := r.source.Operator(ctx, term); ok {
			r.logger.Debug().Str("term", term).Str("onestop_id", op.OnestopID).
				Msg("Operator resolved from lookup table")
			return op, nil
		}
	}

	resourceURL := r.client.ResourceURL(lookup.TableOperators, nil)
	candidates, err := fetch.CollectAll(
		fetch.Items[transit.Operator](r.fetcher, ctx, lookup.TableOperators, resourceURL))
	if err != nil {
		return nil, err
	}

	best, ok := match.Best(term, candidates, match.Operators, match.OperatorFields)
	if !ok {
		r.logger.Info().Str("term", term).Int("candidates", len(candidates)).
			Msg("No operator matched")
		return nil, nil
	}

	r.logger.Debug().Str("term", term).Str("onestop_id", best.OnestopID).
		Msg("Operator resolved by fuzzy match")
	return &best, nil
}

// Stop resolves a free-text stop term against the stops served by one
// operator. Returns (nil, nil) when nothing matches.
func (r *Resolver) Stop(ctx context.Context, term, operatorID string) (*transit.Stop, error) {
	if r.source != nil {
		if stop, ok := r.source.Stop(ctx, term); ok {
			r.logger.Debug().Str("term", term).Str("onestop_id", stop.OnestopID).
				Msg("Stop resolved from lookup table")
			return stop, nil
		}
	}

	resourceURL := r.client.ResourceURL(lookup.TableStops, url.Values{
		"served_by": {operatorID},
	})
	candidates, err := fetch.CollectAll(
		fetch.Items[transit.Stop](r.fetcher, ctx, lookup.TableStops, resourceURL))
	if err != nil {
		return nil, err
	}

	best, ok := match.Best(term, candidates, match.Stops, match.StopFields)
	if !ok {
		r.logger.Info().Str("term", term).Str("operator", operatorID).
			Int("candidates", len(candidates)).Msg("No stop matched")
		return nil, nil
	}

	r.logger.Debug().Str("term", term).Str("onestop_id", best.OnestopID).
		Msg("Stop resolved by fuzzy match")
	return &best, nil
}

// StopPair resolves the origin and destination stop terms concurrently for
// one operator and joins them once both have arrived. If either side
// resolves to nothing, the pair is (nil, nil); a partial pair is never
// returned.
func (r *Resolver) StopPair(ctx context.Context, op *transit.Operator, fromTerm, toTerm string) (*transit.StopPair, error) {
	var origin, destination *transit.Stop

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stop, err := r.Stop(gctx, fromTerm, op.OnestopID)
		origin = stop
		return err
	})
	g.Go(func() error {
		stop, err := r.Stop(gctx, toTerm, op.OnestopID)
		destination = stop
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if origin == nil || destination == nil {
		return nil, nil
	}

	timezone := origin.Timezone
	if timezone == "" {
		timezone = op.Timezone
	}

	return &transit.StopPair{
		Timezone:             timezone,
		OperatorOnestopID:    op.OnestopID,
		OriginOnestopID:      origin.OnestopID,
		DestinationOnestopID: destination.OnestopID,
	}, nil
}
