package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"domusreport/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// LeadQueue is an in-memory queue for batches of captured leads, decoupling
// widget submissions from lead persistence.
type LeadQueue struct {
	items    chan []*models.Lead
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
	logger   *logrus.Logger
	handlers []func([]*models.Lead) error
}

// NewLeadQueue creates a new lead queue with the specified buffer size
func NewLeadQueue(bufferSize int, logger *logrus.Logger) *LeadQueue {
	return &LeadQueue{
		items:    make(chan []*models.Lead, bufferSize),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func([]*models.Lead) error, 0),
	}
}

// Push adds a batch of leads to the queue
func (q *LeadQueue) Push(leads []*models.Lead) error {
	// The read lock is held across the send so Close cannot close the
	// channel mid-push.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	// Non-blocking send to prevent deadlocks
	select {
	case q.items <- leads:
		q.logger.WithField("batch_size", len(leads)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each batch
func (q *LeadQueue) Subscribe(handler func([]*models.Lead) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start launches a consumer goroutine. Each call adds one consumer; a batch
// is delivered to a single consumer.
func (q *LeadQueue) Start() {
	q.wg.Add(1)
	go q.process()
}

// process handles the queue processing loop, draining remaining batches
// after Close.
func (q *LeadQueue) process() {
	defer q.wg.Done()

	for batch := range q.items {
		q.processBatch(batch)
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *LeadQueue) processBatch(batch []*models.Lead) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close stops accepting new batches and waits for the consumers to drain
// whatever is still buffered, so accepted leads are never dropped.
func (q *LeadQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// Len returns the current number of batches in the queue
func (q *LeadQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *LeadQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
