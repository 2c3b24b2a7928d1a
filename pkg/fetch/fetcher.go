package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "transit_pages_fetched_total",
	Help: "Total pages fetched by resource",
}, []string{"resource"})

// Getter is the single capability the fetcher needs from the API client.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Meta is the pagination metadata attached to each page.
type Meta struct {
	Next   string `json:"next"`
	Offset int    `json:"offset"`
}

// Page is one page of a resource: the entity array named after the resource
// plus pagination metadata.
type Page struct {
	Entities []json.RawMessage
	Meta     Meta
}

// Fetcher follows meta.next links lazily.
type Fetcher struct {
	getter Getter
	logger zerolog.Logger
}

// New creates a Fetcher on top of the given API client.
func New(getter Getter) *Fetcher {
	return &Fetcher{
		getter: getter,
		logger: log.With().Str("component", "fetcher").Logger(),
	}
}

// Pages returns the lazy page sequence starting at url. The sequence ends
// when a page carries no meta.next link, when the consumer stops pulling, or
// with a terminal error when a fetch or parse fails.
func (f *Fetcher) Pages(ctx context.Context, resource, url string) iter.Seq2[*Page, error] {
	return func(yield func(*Page, error) bool) {
		next := url
		pageNum := 0

		for next != "" {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			body, err := f.getter.Get(ctx, next)
			if err != nil {
				yield(nil, fmt.Errorf("fetch %s page %d: %w", resource, pageNum, err))
				return
			}

			page, err := parsePage(resource, body)
			if err != nil {
				yield(nil, err)
				return
			}

			pagesFetchedTotal.WithLabelValues(resource).Inc()
			f.logger.Debug().
				Str("resource", resource).
				Int("page", pageNum).
				Int("entities", len(page.Entities)).
				Bool("has_next", page.Meta.Next != "").
				Msg("Page fetched")

			if !yield(page, nil) {
				return
			}

			next = page.Meta.Next
			pageNum++
		}
	}
}

// Entities flattens Pages into a lazy sequence of raw entities in page order.
func (f *Fetcher) Entities(ctx context.Context, resource, url string) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		for page, err := range f.Pages(ctx, resource, url) {
			if err != nil {
				yield(nil, err)
				return
			}
			for _, entity := range page.Entities {
				if !yield(entity, nil) {
					return
				}
			}
		}
	}
}

// Items decodes the lazy entity sequence into typed values.
func Items[T any](f *Fetcher, ctx context.Context, resource, url string) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		for entity, err := range f.Entities(ctx, resource, url) {
			if err != nil {
				yield(zero, err)
				return
			}
			var item T
			if err := json.Unmarshal(entity, &item); err != nil {
				yield(zero, fmt.Errorf("decode %s entity: %w", resource, err))
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// CollectAll drains a typed sequence into a slice, stopping at the first
// error.
func CollectAll[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var items []T
	for item, err := range seq {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

// parsePage extracts the named entity array and pagination metadata from a
// response body. An unparsable body fails with the raw body as the message.
func parsePage(resource string, body []byte) (*Page, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("malformed %s page: %s", resource, body)
	}

	page := &Page{}

	if entities, ok := raw[resource]; ok {
		if err := json.Unmarshal(entities, &page.Entities); err != nil {
			return nil, fmt.Errorf("malformed %s entity array: %s", resource, body)
		}
	}

	if meta, ok := raw["meta"]; ok {
		if err := json.Unmarshal(meta, &page.Meta); err != nil {
			return nil, fmt.Errorf("malformed %s page meta: %s", resource, body)
		}
	}

	return page, nil
}
