package notify

import (
	"context"
	"log"

	"golang.org/x/time/rate"

	"github.com/mimir-aip/maintenance-automation/pkg/automation"
	"github.com/mimir-aip/maintenance-automation/pkg/queue"
)

// DefaultMaxAttempts is how many times a failed delivery is retried before the
// notification is dropped
const DefaultMaxAttempts = 3

// Relay drains the notification outbox into a transport at a bounded rate
type Relay struct {
	queue       *queue.Queue
	transport   automation.Notifier
	limiter     *rate.Limiter
	maxAttempts int
}

// NewRelay creates a relay delivering at most perSecond notifications per
// second with the given burst
func NewRelay(q *queue.Queue, transport automation.Notifier, perSecond float64, burst int) *Relay {
	return &Relay{
		queue:       q,
		transport:   transport,
		limiter:     rate.NewLimiter(rate.Limit(perSecond), burst),
		maxAttempts: DefaultMaxAttempts,
	}
}

// Run delivers queued notifications until ctx is cancelled
func (r *Relay) Run(ctx context.Context) {
	log.Println("Notification relay started")
	for {
		select {
		case <-ctx.Done():
			log.Println("Notification relay stopped")
			return
		case <-r.queue.Ready():
			r.Flush(ctx)
		}
	}
}

// Flush delivers everything currently queued and returns the number delivered.
// It stops early when ctx is done.
func (r *Relay) Flush(ctx context.Context) int {
	delivered := 0
	for r.queue.Len() > 0 {
		if err := r.limiter.Wait(ctx); err != nil {
			return delivered
		}

		n, err := r.queue.Dequeue()
		if err != nil {
			log.Printf("Failed to dequeue notification: %v", err)
			continue
		}
		if n == nil {
			break
		}

		if err := r.transport.Deliver(ctx, n); err != nil {
			attempt := r.queue.Attempts(n.ID) + 1
			if attempt >= r.maxAttempts {
				log.Printf("Dropping notification %s for task %s after %d attempts: %v", n.ID, n.TaskID, attempt, err)
				r.queue.Forget(n.ID)
				continue
			}
			if _, qerr := r.queue.Requeue(n); qerr != nil {
				log.Printf("Dropping notification %s for task %s: %v", n.ID, n.TaskID, qerr)
				r.queue.Forget(n.ID)
				continue
			}
			log.Printf("Failed to deliver notification %s (attempt %d): %v", n.ID, attempt, err)
			continue
		}

		r.queue.Forget(n.ID)
		delivered++
	}
	return delivered
}
