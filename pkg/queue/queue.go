package queue

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// ErrClosed is returned when enqueuing onto a closed queue
var ErrClosed = errors.New("notification queue is closed")

// Queue is an in-memory outbox for task notifications. Urgent notifications are
// dequeued before standard ones; within a severity the order is first in, first out.
type Queue struct {
	mu            sync.RWMutex
	pq            *PriorityQueue
	notifications map[string]*models.Notification
	attempts      map[string]int
	seq           uint64
	ready         chan struct{}
	closed        bool
}

// NewQueue creates a new in-memory queue instance
func NewQueue() *Queue {
	pq := make(PriorityQueue, 0)
	heap.Init(&pq)

	return &Queue{
		pq:            &pq,
		notifications: make(map[string]*models.Notification),
		attempts:      make(map[string]int),
		ready:         make(chan struct{}, 1),
	}
}

// Deliver enqueues the notification, so the queue can stand in for a transport
func (q *Queue) Deliver(ctx context.Context, n *models.Notification) error {
	return q.Enqueue(n)
}

// Enqueue adds a notification to the queue
func (q *Queue) Enqueue(n *models.Notification) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("notification must have an ID")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if _, ok := q.notifications[n.ID]; ok {
		return fmt.Errorf("notification already queued: %s", n.ID)
	}

	q.push(n)
	return nil
}

// Requeue puts a notification whose delivery failed back on the queue and
// returns how many times it has been requeued
func (q *Queue) Requeue(n *models.Notification) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return q.attempts[n.ID], ErrClosed
	}

	q.attempts[n.ID]++
	q.push(n)
	return q.attempts[n.ID], nil
}

func (q *Queue) push(n *models.Notification) {
	q.seq++
	heap.Push(q.pq, &PriorityQueueItem{
		NotificationID: n.ID,
		Rank:           severityRank(n.Severity),
		Seq:            q.seq,
	})
	q.notifications[n.ID] = n

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Dequeue retrieves the next notification, or nil when the queue is empty
func (q *Queue) Dequeue() (*models.Notification, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pq.Len() == 0 {
		return nil, nil
	}

	item := heap.Pop(q.pq).(*PriorityQueueItem)
	n, ok := q.notifications[item.NotificationID]
	if !ok {
		return nil, fmt.Errorf("notification data not found: %s", item.NotificationID)
	}
	delete(q.notifications, item.NotificationID)

	return n, nil
}

// Attempts returns how many times a notification has been requeued
func (q *Queue) Attempts(id string) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.attempts[id]
}

// Forget drops the retry bookkeeping for a notification that is done
func (q *Queue) Forget(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.attempts, id)
}

// Ready is signalled whenever a notification is pushed
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Len returns the number of queued notifications
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.pq.Len()
}

// Close stops the queue from accepting notifications. Queued ones can still be dequeued.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	return nil
}

func severityRank(s models.NotificationSeverity) int {
	if s == models.SeverityUrgent {
		return 0
	}
	return 1
}

// PriorityQueueItem represents an item in the priority queue
type PriorityQueueItem struct {
	NotificationID string
	Rank           int    // Lower value = delivered first
	Seq            uint64 // Arrival order within a rank
	index          int
}

// PriorityQueue implements heap.Interface
type PriorityQueue []*PriorityQueueItem

func (pq PriorityQueue) Len() int { return len(pq) }

func (pq PriorityQueue) Less(i, j int) bool {
	if pq[i].Rank != pq[j].Rank {
		return pq[i].Rank < pq[j].Rank
	}
	return pq[i].Seq < pq[j].Seq
}

func (pq PriorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *PriorityQueue) Push(x interface{}) {
	n := len(*pq)
	item := x.(*PriorityQueueItem)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *PriorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[0 : n-1]
	return item
}
