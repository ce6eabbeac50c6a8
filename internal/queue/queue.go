package queue

import (
	"fmt"
	"log"
	"sync"
)

// Queue decouples job producers from the workers that run them.
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, workers int, handler func(payload any) error) error
	Close()
}

// topicBuffer is the per-topic backlog; Publish fails once it is full so
// producers stay non-blocking under load.
const topicBuffer = 64

// InMemoryQueue runs handlers on a bounded worker pool per topic, so a
// burst of jobs (e.g. many trigger matches in one poll tick) cannot fan out
// into unbounded goroutines.
type InMemoryQueue struct {
	mu     sync.Mutex
	topics map[string]chan any
	wg     sync.WaitGroup
	closed bool
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		topics: make(map[string]chan any),
	}
}

// Publish enqueues a job for the topic's workers. It fails if nothing has
// subscribed to the topic or the backlog is full.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	ch, ok := q.topics[topic]
	closed := q.closed
	q.mu.Unlock()

	if closed {
		return fmt.Errorf("queue is closed")
	}
	if !ok {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	select {
	case ch <- payload:
		return nil
	default:
		return fmt.Errorf("topic %s backlog is full", topic)
	}
}

// Subscribe starts the given number of workers draining the topic. Handler
// errors are logged, not retried; retry policy is the caller's concern.
func (q *InMemoryQueue) Subscribe(topic string, workers int, handler func(payload any) error) error {
	if workers < 1 {
		workers = 1
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return fmt.Errorf("queue is closed")
	}
	if _, ok := q.topics[topic]; ok {
		return fmt.Errorf("topic %s already has a subscriber", topic)
	}

	ch := make(chan any, topicBuffer)
	q.topics[topic] = ch

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for payload := range ch {
				if err := handler(payload); err != nil {
					log.Printf("⚠️ Job failed on topic %s: %v", topic, err)
				}
			}
		}()
	}
	return nil
}

// Close stops accepting jobs and waits for in-flight handlers to finish.
func (q *InMemoryQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, ch := range q.topics {
		close(ch)
	}
	q.mu.Unlock()

	q.wg.Wait()
}

var _ Queue = (*InMemoryQueue)(nil)
