package attom

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/Veraticus/fieldwise/internal/model"
)

// quota paces lookups against the API key's per-minute allowance. The
// allowance is replenished from elapsed time whenever a lookup asks for it,
// so nothing runs between lookups.
type quota struct {
	now      func() time.Time
	last     time.Time
	interval time.Duration
	tokens   float64
	burst    float64
	mu       sync.Mutex
}

func newQuota(requestsPerMinute int) *quota {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	q := &quota{
		now:      time.Now,
		interval: time.Minute / time.Duration(requestsPerMinute),
		tokens:   float64(requestsPerMinute),
		burst:    float64(requestsPerMinute),
	}
	q.last = q.now()
	return q
}

// reserve spends one lookup if the allowance has one left. Otherwise it
// returns how long until the next lookup is allowed.
func (q *quota) reserve() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.replenish()
	if q.tokens >= 1 {
		q.tokens--
		return 0
	}
	return time.Duration((1 - q.tokens) * float64(q.interval))
}

// exhaust empties the allowance after the API itself reported the key as
// over quota. A positive hold pushes the next lookup out further.
func (q *quota) exhaust(hold time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.replenish()
	q.tokens = 0
	if hold > q.interval {
		q.tokens = -float64(hold-q.interval) / float64(q.interval)
	}
}

// remaining reports the whole lookups available right now.
func (q *quota) remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.replenish()
	if q.tokens < 0 {
		return 0
	}
	return int(q.tokens)
}

func (q *quota) replenish() {
	now := q.now()
	elapsed := now.Sub(q.last)
	if elapsed <= 0 {
		return
	}
	q.last = now
	q.tokens = min(q.burst, q.tokens+float64(elapsed)/float64(q.interval))
}

// wait blocks until the lookup for address may be sent.
func (q *quota) wait(ctx context.Context, address model.AddressLines) error {
	for {
		delay := q.reserve()
		if delay == 0 {
			return nil
		}

		slog.Debug("Property lookup waiting for quota",
			"address1", address.Line1,
			"delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("waiting for lookup quota (%s): %w", address.Line1, ctx.Err())
		case <-timer.C:
		}
	}
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(header string) time.Duration {
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
