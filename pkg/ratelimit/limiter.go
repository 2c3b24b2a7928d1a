// Package ratelimit implements process-wide admission control for outgoing
// API requests. At most Capacity admissions start within any Window-length
// interval; excess callers queue in FIFO order and are admitted as slots free
// up, never dropped or reordered. Every outgoing request in the system must
// pass through one shared Limiter so the aggregate rate stays under the
// externally imposed cap.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for admission control.
var (
	admissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "transit_rate_limit_admissions_total",
		Help: "Total number of requests admitted by the rate limiter",
	})

	admissionWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "transit_rate_limit_wait_seconds",
		Help:    "Time requests spent queued before admission",
		Buckets: []float64{0.001, 0.01, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	admissionQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "transit_rate_limit_queue_depth",
		Help: "Number of requests currently queued for admission",
	})
)

// Default admission budget, matching the upstream API's documented cap.
const (
	DefaultCapacity = 8
	DefaultWindow   = time.Second
)

// ErrClosed is returned by Wait after the limiter has been closed.
var ErrClosed = errors.New("rate limiter closed")

// queue buffer size; senders beyond this block on the channel, which
// preserves FIFO order without dropping.
const queueBuffer = 256

type request struct {
	admitted  chan struct{}
	cancelled <-chan struct{}
	enqueued  time.Time
}

// Limiter admits requests at a bounded rate. A single admitter goroutine
// owns the admission state, so callers never contend on a lock; the request
// channel is the FIFO queue.
type Limiter struct {
	capacity int
	window   time.Duration
	requests chan request
	done     chan struct{}
	once     sync.Once
	logger   zerolog.Logger
}

// New creates a Limiter admitting at most capacity requests per window and
// starts its admitter goroutine. Non-positive arguments fall back to the
// defaults.
func New(capacity int, window time.Duration, logger zerolog.Logger) *Limiter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultWindow
	}

	l := &Limiter{
		capacity: capacity,
		window:   window,
		requests: make(chan request, queueBuffer),
		done:     make(chan struct{}),
		logger:   logger,
	}
	go l.run()
	return l
}

// Wait blocks until the caller is admitted, the context is cancelled, or the
// limiter is closed. Admission order equals submission order. The limiter
// itself never fails an admitted request; it only delays.
func (l *Limiter) Wait(ctx context.Context) error {
	req := request{
		admitted:  make(chan struct{}),
		cancelled: ctx.Done(),
		enqueued:  time.Now(),
	}

	admissionQueueDepth.Inc()
	defer admissionQueueDepth.Dec()

	select {
	case l.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}

	select {
	case <-req.admitted:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// Close stops the admitter goroutine. Queued callers receive ErrClosed.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
}

// run is the admitter loop. It owns the sliding window of admission start
// times; because it is the only writer, no lock is needed.
func (l *Limiter) run() {
	starts := make([]time.Time, 0, l.capacity)

	for {
		select {
		case <-l.done:
			return
		case req := <-l.requests:
			now := time.Now()
			starts = pruneWindow(starts, now, l.window)

			if len(starts) >= l.capacity {
				wait := starts[0].Add(l.window).Sub(now)
				l.logger.Debug().
					Dur("wait", wait).
					Int("capacity", l.capacity).
					Msg("Admission slot exhausted, delaying request")

				timer := time.NewTimer(wait)
				select {
				case <-timer.C:
				case <-l.done:
					timer.Stop()
					return
				}
				now = time.Now()
				starts = pruneWindow(starts, now, l.window)
			}

			// The caller may have given up while queued; its slot must
			// not be consumed.
			select {
			case <-req.cancelled:
				continue
			default:
			}

			starts = append(starts, now)
			close(req.admitted)

			admissionsTotal.Inc()
			admissionWaitSeconds.Observe(now.Sub(req.enqueued).Seconds())
		}
	}
}

// pruneWindow drops admission times that have aged out of the window.
// Entries are appended in order, so the prefix is the stale part.
func pruneWindow(starts []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(starts) && !starts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return starts
	}
	return append(starts[:0], starts[i:]...)
}
