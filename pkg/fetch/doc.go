// Package fetch provides lazy, pull-driven fetching of paginated transit.land
// resources.
//
// The Datastore API links pages through a meta.next URL in each response
// body. This package follows those links as an iter.Seq2 sequence, so a
// consumer that stops pulling (for example after taking one entity) stops
// further page requests instead of paginating in the background.
//
// Example usage:
//
//	fetcher := fetch.New(apiClient)
//	for op, err := range fetch.Items[transit.Operator](fetcher, ctx, "operators", url) {
//		...
//	}
//
// The fetcher:
//   - Issues each page request through the client's shared rate limiter
//   - Yields pages in server-declared order, never revisiting one
//   - Terminates the sequence with the failing error on a bad page
//   - Stops requesting when the consumer breaks out of the loop
package fetch
