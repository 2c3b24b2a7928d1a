package fetch

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/amsross/transitlambda/internal/testutil"
	"github.com/amsross/transitlambda/pkg/client"
	"github.com/amsross/transitlambda/pkg/transit"
)

func newFetcher(t *testing.T, mock *testutil.MockAPI) *Fetcher {
	t.Helper()

	cfg := client.DefaultConfig()
	cfg.BaseURL = mock.URL()
	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return New(c)
}

func TestFetcher_TwoLinkedPagesYieldConcatenation(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResource("operators",
		[]string{
			`{"onestop_id":"o-1","name":"First"}`,
			`{"onestop_id":"o-2","name":"Second"}`,
		},
		[]string{
			`{"onestop_id":"o-3","name":"Third"}`,
		},
	)

	f := newFetcher(t, mock)

	ops, err := CollectAll(Items[transit.Operator](f, context.Background(), "operators", mock.URL()+"/operators"))
	if err != nil {
		t.Fatalf("CollectAll() error = %v", err)
	}

	want := []string{"o-1", "o-2", "o-3"}
	if len(ops) != len(want) {
		t.Fatalf("got %d operators, want %d", len(ops), len(want))
	}
	for i, id := range want {
		if ops[i].OnestopID != id {
			t.Errorf("operator[%d].OnestopID = %q, want %q", i, ops[i].OnestopID, id)
		}
	}

	// Exactly K requests for K pages, no probe past the last next link.
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("request count = %d, want 2", got)
	}
}

func TestFetcher_ConsumerStopPreventsFurtherRequests(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResource("stops",
		[]string{`{"onestop_id":"s-1"}`},
		[]string{`{"onestop_id":"s-2"}`},
		[]string{`{"onestop_id":"s-3"}`},
	)

	f := newFetcher(t, mock)

	var seen int
	for _, err := range f.Entities(context.Background(), "stops", mock.URL()+"/stops") {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen++
		break
	}

	if seen != 1 {
		t.Fatalf("consumed %d entities, want 1", seen)
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("request count = %d, want 1 (no background pagination)", got)
	}
}

func TestFetcher_NonSuccessStatusTerminatesSequence(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetError("/operators", http.StatusBadGateway, `{"message":"bad gateway"}`)

	f := newFetcher(t, mock)

	var pages int
	var lastErr error
	for page, err := range f.Pages(context.Background(), "operators", mock.URL()+"/operators") {
		if err != nil {
			lastErr = err
			continue
		}
		_ = page
		pages++
	}

	if pages != 0 {
		t.Errorf("yielded %d pages before failure, want 0", pages)
	}
	if lastErr == nil {
		t.Fatal("expected terminal error, got none")
	}
	if _, ok := client.IsAPIError(lastErr); !ok {
		t.Errorf("error = %v, want wrapped *client.APIError", lastErr)
	}
	if !strings.Contains(lastErr.Error(), "bad gateway") {
		t.Errorf("error = %q, want raw response body in message", lastErr)
	}
}

func TestFetcher_MalformedBodyCarriesRawBody(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetHandler("/operators", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<!doctype html>nope`))
	})

	f := newFetcher(t, mock)

	var lastErr error
	for _, err := range f.Pages(context.Background(), "operators", mock.URL()+"/operators") {
		lastErr = err
	}

	if lastErr == nil || !strings.Contains(lastErr.Error(), "nope") {
		t.Errorf("error = %v, want raw body in message", lastErr)
	}
}

func TestFetcher_CancelledContextStopsSequence(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetResource("stops", []string{`{"onestop_id":"s-1"}`})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newFetcher(t, mock)

	var lastErr error
	for _, err := range f.Pages(ctx, "stops", mock.URL()+"/stops") {
		lastErr = err
	}

	if lastErr == nil {
		t.Fatal("expected context error, got none")
	}
}
