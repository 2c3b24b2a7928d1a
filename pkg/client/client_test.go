package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/amsross/transitlambda/internal/testutil"
)

func newTestClient(t *testing.T, mock *testutil.MockAPI) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BaseURL = mock.URL()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "default config is valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing base URL",
			mutate:  func(c *Config) { c.BaseURL = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			c, err := New(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if c != nil {
				c.Close()
			}
		})
	}
}

func TestClient_ResourceURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://transit.land/api/v1"
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	raw := c.ResourceURL("stops", url.Values{"served_by": {"o-dr4e-patco"}})

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", raw, err)
	}
	if u.Path != "/api/v1/stops" {
		t.Errorf("path = %q, want /api/v1/stops", u.Path)
	}

	q := u.Query()
	want := map[string]string{
		"offset":     "0",
		"per_page":   "50",
		"sort_key":   "id",
		"sort_order": "asc",
		"served_by":  "o-dr4e-patco",
	}
	for key, value := range want {
		if got := q.Get(key); got != value {
			t.Errorf("query %s = %q, want %q", key, got, value)
		}
	}
}

func TestClient_ResourceURL_OverridesDefaults(t *testing.T) {
	cfg := DefaultConfig()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	raw := c.ResourceURL("schedule_stop_pairs", url.Values{"sort_key": {"origin_departure_time"}})
	u, _ := url.Parse(raw)
	if got := u.Query().Get("sort_key"); got != "origin_departure_time" {
		t.Errorf("sort_key = %q, want origin_departure_time", got)
	}
}

func TestClient_Get_Success(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetHandler("/operators", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"operators":[]}`))
	})

	c := newTestClient(t, mock)

	body, err := c.Get(context.Background(), mock.URL()+"/operators")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(body) != `{"operators":[]}` {
		t.Errorf("body = %q", body)
	}
	if mock.GetRequestCount() != 1 {
		t.Errorf("request count = %d, want 1", mock.GetRequestCount())
	}
}

func TestClient_Get_NonSuccessStatusCarriesRawBody(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetError("/operators", http.StatusInternalServerError, `{"message":"upstream exploded"}`)

	c := newTestClient(t, mock)

	_, err := c.Get(context.Background(), mock.URL()+"/operators")
	if err == nil {
		t.Fatal("Get() error = nil, want *APIError")
	}

	apiErr, ok := IsAPIError(err)
	if !ok {
		t.Fatalf("IsAPIError(%v) = false, want true", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Error(), "upstream exploded") {
		t.Errorf("Error() = %q, want raw response body", apiErr.Error())
	}
}

func TestClient_Get_PassesThroughRateLimiter(t *testing.T) {
	mock := testutil.NewMockAPI()
	defer mock.Close()
	mock.SetHandler("/stops", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stops":[]}`))
	})

	cfg := DefaultConfig()
	cfg.BaseURL = mock.URL()
	cfg.RateCapacity = 1
	cfg.RateWindow = 100 * time.Millisecond
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := c.Get(ctx, mock.URL()+"/stops"); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("2 requests at capacity 1/100ms took %v, want >= 90ms", elapsed)
	}
}
