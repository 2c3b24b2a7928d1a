// Package testutil provides testing utilities for the transitlambda client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// MockAPI is a configurable mock transit.land Datastore server for testing.
// It serves paginated resources with meta.next links the way the real API
// does, and records every request for assertions.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	pages    map[string][]pageFixture

	// Tracking
	RequestCount int
	Requests     []*http.Request
}

type pageFixture struct {
	resource string
	entities []json.RawMessage
}

// NewMockAPI creates a new mock API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
		pages:    make(map[string][]pageFixture),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.Requests = append(mock.Requests, r.Clone(r.Context()))
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, hasHandler := mock.handlers[r.URL.Path]
		_, hasPages := mock.pages[r.URL.Path]
		mock.mu.RUnlock()

		if hasHandler {
			handler(w, r)
			return
		}
		if hasPages {
			mock.servePages(w, r)
			return
		}

		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"message":"no fixture for %s"}`, r.URL.Path)
	}))

	return mock
}

// URL returns the mock server URL, usable as the client base URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetError configures a path to fail with the given status and raw body.
func (m *MockAPI) SetError(path string, status int, body string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
}

// SetResource configures a paginated resource at /<resource>. Each element
// of pages becomes one page; pages after the first are linked via meta.next
// and selected by the page query parameter.
func (m *MockAPI) SetResource(resource string, pages ...[]string) {
	fixtures := make([]pageFixture, len(pages))
	for i, page := range pages {
		entities := make([]json.RawMessage, len(page))
		for j, e := range page {
			entities[j] = json.RawMessage(e)
		}
		fixtures[i] = pageFixture{resource: resource, entities: entities}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages["/"+resource] = fixtures
}

// servePages renders the requested page of a fixture, including a meta.next
// link when further pages exist.
func (m *MockAPI) servePages(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	fixtures := m.pages[r.URL.Path]
	m.mu.RUnlock()

	idx := 0
	if p := r.URL.Query().Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			idx = parsed
		}
	}
	if idx < 0 || idx >= len(fixtures) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprintf(w, `{"message":"page %d out of range"}`, idx)
		return
	}

	page := fixtures[idx]
	meta := map[string]any{"offset": idx * len(page.entities)}
	if idx+1 < len(fixtures) {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(idx+1))
		next := *r.URL
		next.RawQuery = q.Encode()
		meta["next"] = m.server.URL + next.String()
	}

	body := map[string]any{
		page.resource: page.entities,
		"meta":        meta,
	}

	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write(data)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// RequestsTo returns the recorded requests whose path matches /<resource>.
func (m *MockAPI) RequestsTo(resource string) []*http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*http.Request
	for _, r := range m.Requests {
		if r.URL.Path == "/"+resource {
			out = append(out, r)
		}
	}
	return out
}
