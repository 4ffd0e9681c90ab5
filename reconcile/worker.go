package reconcile

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const defaultQueueSize = 1000

type NoticeProcessor interface {
	ProcessNotice(ctx context.Context, notice Notice) error
}

// WorkerPool processes notices on a fixed number of goroutines.
type WorkerPool struct {
	tasks     chan func()
	wg        sync.WaitGroup
	once      sync.Once
	logger    *zap.Logger
	processor NoticeProcessor
}

func NewWorkerPool(size int, processor NoticeProcessor, logger *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	wp := &WorkerPool{
		tasks:     make(chan func(), defaultQueueSize),
		logger:    logger,
		processor: processor,
	}

	wp.wg.Add(size)
	for i := 0; i < size; i++ {
		go wp.worker()
	}

	return wp
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.tasks {
		task()
	}
}

// Submit blocks while the queue is full. It must not be called after Shutdown.
// Processing keeps ctx values but not its cancellation, so notices queued at
// shutdown still finish.
func (wp *WorkerPool) Submit(ctx context.Context, notice Notice) {
	ctx = context.WithoutCancel(ctx)
	wp.tasks <- func() {
		if err := wp.processor.ProcessNotice(ctx, notice); err != nil {
			wp.logger.Error("Failed to process notice",
				zap.Error(err),
				zap.String("checkout_id", notice.CheckoutID),
				zap.String("payment_reference", notice.PaymentReference))
		}
	}
}

// Shutdown stops accepting work and waits for queued notices to finish.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.tasks)
	})
	wp.wg.Wait()
}
