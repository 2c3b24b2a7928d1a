// Package schedule queries scheduled departures across the service-day
// boundary and pairs origin departures with destination arrivals.
//
// Transit feeds encode post-midnight continuations of a service day with
// times past 24:00. A query that literally asked for the remainder of the
// anchor date would miss trips that are logically "tonight" but
// calendar-dated tomorrow, so every window query is issued twice: the
// remainder of the anchor's date, then [00:00,02:00) on the next date.
package schedule

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"time"

	"github.com/amsross/transitlambda/pkg/client"
	"github.com/amsross/transitlambda/pkg/fetch"
	"github.com/amsross/transitlambda/pkg/transit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Resource is the schedule resource name in the upstream API.
const Resource = "schedule_stop_pairs"

// Early-morning window pulled from the next service date.
const nextDayWindow = "00:00,02:00"

// Params filters a window query. Empty fields are omitted from the request.
type Params struct {
	OriginOnestopID      string
	DestinationOnestopID string
	OperatorOnestopID    string
	Timezone             string
	Trip                 string

	// Anchor overrides the query's reference time. When zero, the current
	// time in Timezone is used.
	Anchor time.Time
}

// Query issues day-boundary-aware schedule queries.
type Query struct {
	client  *client.Client
	fetcher *fetch.Fetcher
	logger  zerolog.Logger
	now     func() time.Time
}

// NewQuery creates a Query on top of the shared API client.
func NewQuery(c *client.Client) *Query {
	return &Query{
		client:  c,
		fetcher: fetch.New(c),
		logger:  log.With().Str("component", "schedule").Logger(),
		now:     time.Now,
	}
}

// Windows returns the lazy, ordered sequence of schedule records covering
// "today remaining" followed by "early next service day". Results keep the
// API's ascending departure-time order within each window; window 1 always
// precedes window 2 chronologically, so the two are concatenated, never
// re-sorted.
func (q *Query) Windows(ctx context.Context, p Params) iter.Seq2[transit.ScheduleStopPair, error] {
	return func(yield func(transit.ScheduleStopPair, error) bool) {
		var zero transit.ScheduleStopPair

		anchor, err := q.anchor(p)
		if err != nil {
			yield(zero, err)
			return
		}

		windows := []struct {
			date    string
			between string
		}{
			{
				date:    anchor.Format("2006-01-02"),
				between: anchor.Format("15:04") + ",24:00",
			},
			{
				date:    anchor.AddDate(0, 0, 1).Format("2006-01-02"),
				between: nextDayWindow,
			},
		}

		for _, w := range windows {
			q.logger.Debug().
				Str("date", w.date).
				Str("between", w.between).
				Str("trip", p.Trip).
				Msg("Querying schedule window")

			resourceURL := q.windowURL(p, w.date, w.between)
			for pair, err := range fetch.Items[transit.ScheduleStopPair](q.fetcher, ctx, Resource, resourceURL) {
				if err != nil {
					yield(zero, err)
					return
				}
				if !yield(pair, nil) {
					return
				}
			}
		}
	}
}

// anchor resolves the query's reference time: the explicit override when
// set, otherwise the current time in the operator's timezone.
func (q *Query) anchor(p Params) (time.Time, error) {
	if !p.Anchor.IsZero() {
		return p.Anchor, nil
	}

	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("load timezone %q: %w", p.Timezone, err)
	}
	return q.now().In(loc), nil
}

// windowURL builds one window's resource URL. Both windows carry identical
// filters except date and time range.
func (q *Query) windowURL(p Params, date, between string) string {
	values := url.Values{
		"sort_key":                 {"origin_departure_time"},
		"date":                     {date},
		"origin_departure_between": {between},
	}
	if p.OriginOnestopID != "" {
		values.Set("origin_onestop_id", p.OriginOnestopID)
	}
	if p.DestinationOnestopID != "" {
		values.Set("destination_onestop_id", p.DestinationOnestopID)
	}
	if p.OperatorOnestopID != "" {
		values.Set("operator_onestop_id", p.OperatorOnestopID)
	}
	if p.Trip != "" {
		values.Set("trip", p.Trip)
	}
	return q.client.ResourceURL(Resource, values)
}
