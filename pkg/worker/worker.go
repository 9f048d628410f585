package worker

import (
	"context"
	"sync"

	"github.com/nimasrn/seva-booking/pkg/logger"
)

type WorkerHandler = func(workerIndex int, job interface{})

// WorkerManager is a fixed pool of goroutines reading jobs from one
// buffered channel. Jobs enqueued after Exit are dropped.
type WorkerManager struct {
	numberOfWorker int
	jobChannel     chan interface{}
	do             WorkerHandler
	ctx            context.Context
	cancel         context.CancelFunc
	waiter         sync.WaitGroup
}

func NewWorkerManager(bufferSize, numberOfWorkers int) *WorkerManager {
	if numberOfWorkers <= 0 {
		numberOfWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerManager{
		numberOfWorker: numberOfWorkers,
		jobChannel:     make(chan interface{}, bufferSize),
		ctx:            ctx,
		cancel:         cancel,
	}
}

func (w *WorkerManager) GetUnreadCount() int64 {
	return int64(len(w.jobChannel))
}

func (w *WorkerManager) SetWorker(worker WorkerHandler) {
	w.do = worker
}

// Enqueue blocks until a slot is free in the buffer or the caller's
// context is done. It returns false when the job was not accepted.
func (w *WorkerManager) Enqueue(ctx context.Context, val interface{}) bool {
	select {
	case w.jobChannel <- val:
		return true
	case <-ctx.Done():
		return false
	case <-w.ctx.Done():
		return false
	}
}

// Start runs the workers and blocks until Exit is called.
func (w *WorkerManager) Start() {
	w.waiter.Add(w.numberOfWorker)
	for i := 0; i < w.numberOfWorker; i++ {
		go func(index int) {
			defer w.waiter.Done()
			for {
				select {
				case job := <-w.jobChannel:
					w.do(index, job)
				case <-w.ctx.Done():
					return
				}
			}
		}(i)
	}
	w.waiter.Wait()
}

func (w *WorkerManager) Exit() {
	logger.Info("worker manager is shutting down", "workers", w.numberOfWorker, "unread", w.GetUnreadCount())
	w.cancel()
}
