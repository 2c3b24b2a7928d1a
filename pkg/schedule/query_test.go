package schedule

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/amsross/transitlambda/internal/testutil"
	"github.com/amsross/transitlambda/pkg/client"
	"github.com/amsross/transitlambda/pkg/fetch"
)

func newQuery(t *testing.T, mock *testutil.MockAPI) *Query {
	t.Helper()

	cfg := client.DefaultConfig()
	cfg.BaseURL = mock.URL()
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return NewQuery(c)
}

func TestQuery_Windows_CoversServiceDayBoundary(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()

	// Window 1 (tonight) and window 2 (early tomorrow) get distinct fixtures
	// so concatenation order is observable.
	mock.SetHandler("/"+Resource, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("origin_departure_between") == nextDayWindow {
			w.Write([]byte(`{"schedule_stop_pairs":[{"trip":"T2","origin_departure_time":"00:30:00"}],"meta":{}}`))
			return
		}
		w.Write([]byte(`{"schedule_stop_pairs":[{"trip":"T1","origin_departure_time":"23:50:00"}],"meta":{}}`))
	})

	q := newQuery(t, mock)
	anchor := time.Date(2023, 3, 14, 23, 45, 0, 0, time.UTC)

	pairs, err := fetch.CollectAll(q.Windows(context.Background(), Params{
		OriginOnestopID:   "s-origin",
		OperatorOnestopID: "o-op",
		Anchor:            anchor,
	}))
	if err != nil {
		t.Fatalf("Windows() error = %v", err)
	}

	if len(pairs) != 2 {
		t.Fatalf("got %d records, want 2", len(pairs))
	}
	if pairs[0].Trip != "T1" || pairs[1].Trip != "T2" {
		t.Errorf("order = [%s %s], want [T1 T2] (window 1 before window 2)", pairs[0].Trip, pairs[1].Trip)
	}

	reqs := mock.RequestsTo(Resource)
	if len(reqs) != 2 {
		t.Fatalf("got %d requests, want 2", len(reqs))
	}

	q1 := reqs[0].URL.Query()
	if got := q1.Get("date"); got != "2023-03-14" {
		t.Errorf("window 1 date = %q, want 2023-03-14", got)
	}
	if got := q1.Get("origin_departure_between"); got != "23:45,24:00" {
		t.Errorf("window 1 between = %q, want 23:45,24:00", got)
	}

	q2 := reqs[1].URL.Query()
	if got := q2.Get("date"); got != "2023-03-15" {
		t.Errorf("window 2 date = %q, want 2023-03-15", got)
	}
	if got := q2.Get("origin_departure_between"); got != nextDayWindow {
		t.Errorf("window 2 between = %q, want %s", got, nextDayWindow)
	}

	// Both windows carry identical filters except date and range.
	for i, r := range reqs {
		query := r.URL.Query()
		if got := query.Get("origin_onestop_id"); got != "s-origin" {
			t.Errorf("request %d origin_onestop_id = %q", i, got)
		}
		if got := query.Get("operator_onestop_id"); got != "o-op" {
			t.Errorf("request %d operator_onestop_id = %q", i, got)
		}
		if got := query.Get("sort_key"); got != "origin_departure_time" {
			t.Errorf("request %d sort_key = %q", i, got)
		}
	}
}

func TestQuery_Windows_TripFilterIncluded(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResource(Resource, []string{`{"trip":"T7","destination_arrival_time":"10:00:00"}`})

	q := newQuery(t, mock)

	pairs, err := fetch.CollectAll(q.Windows(context.Background(), Params{
		DestinationOnestopID: "s-dest",
		Trip:                 "T7",
		Anchor:               time.Date(2023, 3, 14, 9, 0, 0, 0, time.UTC),
	}))
	if err != nil {
		t.Fatalf("Windows() error = %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("got %d records, want 2 (one per window fixture)", len(pairs))
	}

	for i, r := range mock.RequestsTo(Resource) {
		query := r.URL.Query()
		if got := query.Get("trip"); got != "T7" {
			t.Errorf("request %d trip = %q, want T7", i, got)
		}
		if got := query.Get("destination_onestop_id"); got != "s-dest" {
			t.Errorf("request %d destination_onestop_id = %q", i, got)
		}
		if got := query.Get("origin_onestop_id"); got != "" {
			t.Errorf("request %d origin_onestop_id = %q, want unset", i, got)
		}
	}
}

func TestQuery_Windows_ConsumerStopHaltsPagination(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResource(Resource,
		[]string{`{"trip":"T1"}`},
		[]string{`{"trip":"T2"}`},
	)

	q := newQuery(t, mock)

	for range q.Windows(context.Background(), Params{
		Anchor: time.Date(2023, 3, 14, 9, 0, 0, 0, time.UTC),
	}) {
		break
	}

	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("request count = %d, want 1 (stop pulling stops fetching)", got)
	}
}

func TestQuery_Anchor(t *testing.T) {
	q := &Query{now: func() time.Time {
		return time.Date(2023, 3, 14, 12, 0, 0, 0, time.UTC)
	}}

	t.Run("explicit anchor wins", func(t *testing.T) {
		want := time.Date(2023, 3, 1, 6, 30, 0, 0, time.UTC)
		got, err := q.anchor(Params{Anchor: want, Timezone: "America/New_York"})
		if err != nil {
			t.Fatalf("anchor() error = %v", err)
		}
		if !got.Equal(want) {
			t.Errorf("anchor() = %v, want %v", got, want)
		}
	})

	t.Run("defaults to now in operator timezone", func(t *testing.T) {
		got, err := q.anchor(Params{Timezone: "UTC"})
		if err != nil {
			t.Fatalf("anchor() error = %v", err)
		}
		if got.Hour() != 12 {
			t.Errorf("anchor().Hour() = %d, want 12", got.Hour())
		}
	})

	t.Run("bad timezone errors", func(t *testing.T) {
		if _, err := q.anchor(Params{Timezone: "Nowhere/Invalid"}); err == nil {
			t.Error("anchor() error = nil, want error")
		}
	})
}
