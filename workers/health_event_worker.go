package workers

import (
	"context"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"fitness-challenge-system/models"
)

// HealthEvent is one synced day of metrics for one user, queued for the
// progress pipeline.
type HealthEvent struct {
	UserID string
	Date   time.Time
	Sample models.HealthData
}

// HealthEventWorker fans sample events out to a fixed pool. Events are
// sharded by user id, so one user's events process strictly one at a time
// while different users run in parallel.
type HealthEventWorker struct {
	handler func(HealthEvent)
	queues  []chan HealthEvent
	wg      sync.WaitGroup
}

func NewHealthEventWorker(workers, buffer int, handler func(HealthEvent)) *HealthEventWorker {
	if workers <= 0 {
		workers = 4
	}
	if buffer <= 0 {
		buffer = 64
	}
	queues := make([]chan HealthEvent, workers)
	for i := range queues {
		queues[i] = make(chan HealthEvent, buffer)
	}
	return &HealthEventWorker{handler: handler, queues: queues}
}

// Start launches the pool; workers drain until ctx is cancelled.
func (w *HealthEventWorker) Start(ctx context.Context) {
	log.Printf("Starting health event worker pool (%d workers)...", len(w.queues))
	for i := range w.queues {
		w.wg.Add(1)
		go func(queue chan HealthEvent) {
			defer w.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case evt := <-queue:
					w.handler(evt)
				}
			}
		}(w.queues[i])
	}
}

// Enqueue routes the event to its user's shard. Blocks when the shard's
// buffer is full, applying backpressure to the ingestion layer.
func (w *HealthEventWorker) Enqueue(evt HealthEvent) {
	h := fnv.New32a()
	h.Write([]byte(evt.UserID))
	w.queues[int(h.Sum32())%len(w.queues)] <- evt
}

// Wait blocks until all workers have exited after cancellation.
func (w *HealthEventWorker) Wait() {
	w.wg.Wait()
}
