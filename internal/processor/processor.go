package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nimasrn/seva-booking/internal/config"
	"github.com/nimasrn/seva-booking/internal/queue"
	"github.com/nimasrn/seva-booking/pkg/logger"
	"github.com/nimasrn/seva-booking/pkg/redis"
	"github.com/nimasrn/seva-booking/pkg/worker"
)

const ProcessingTimeout = time.Second * 5
const HealthInterval = time.Second * 30
const ShutdownTimeout = time.Minute

// ProcessorService consumes the changes stream with a set of consumers
// that hand every event to a shared worker pool.
type ProcessorService struct {
	adapter   redis.RedisAdapter
	cfg       *config.Config
	queues    []*queue.Queue
	processor Processor
	sweeper   Sweeper
	metrics   *ServiceMetrics
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	worker    *worker.WorkerManager
}

type Processor interface {
	Process(ctx context.Context, message *queue.Message) error
	GetType() string
}

type Sweeper interface {
	Sweep(ctx context.Context) error
}

func NewProcessorService(adapter redis.RedisAdapter, cfg *config.Config) *ProcessorService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ProcessorService{
		adapter: adapter,
		cfg:     cfg,
		metrics: NewServiceMetrics(),
		ctx:     ctx,
		cancel:  cancel,
		worker:  worker.NewWorkerManager(cfg.ProcessorWorkers*int(cfg.QueueBatchSize), cfg.ProcessorWorkers),
	}
}

func (s *ProcessorService) RegisterProcessor(p Processor) {
	s.processor = p
	logger.Info("[processor] registered", "type", p.GetType())
}

// RegisterSweeper enables the periodic full reconcile.
func (s *ProcessorService) RegisterSweeper(sw Sweeper) {
	s.sweeper = sw
}

func (s *ProcessorService) queueConfig(instance int) queue.QueueConfig {
	return queue.QueueConfig{
		Name:              s.cfg.ChangesStream,
		ConsumerGroup:     s.cfg.QueueConsumerGroup,
		ConsumerName:      fmt.Sprintf("%s-instance-%d", s.cfg.QueueConsumerName, instance),
		MaxRetries:        s.cfg.QueueMaxRetries,
		VisibilityTimeout: s.cfg.QueueVisibilityTimeout,
		PollInterval:      s.cfg.QueuePollInterval,
		BatchSize:         s.cfg.QueueBatchSize,
		MaxLen:            s.cfg.QueueMaxLen,
		EnableDLQ:         s.cfg.QueueEnableDLQ,
	}
}

func (s *ProcessorService) Start() error {
	logger.Info("[processor] starting", "stream", s.cfg.ChangesStream, "group", s.cfg.QueueConsumerGroup)

	s.worker.SetWorker(s.workerHandler)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.worker.Start()
	}()

	for i := 0; i < s.cfg.ProcessorConsumers; i++ {
		q, err := queue.NewQueue(s.adapter, s.queueConfig(i))
		if err != nil {
			return fmt.Errorf("failed to create queue %d: %w", i, err)
		}
		if err := q.Consume(s.messageHandler); err != nil {
			return fmt.Errorf("failed to start consumer %d: %w", i, err)
		}
		s.queues = append(s.queues, q)
	}

	s.wg.Add(2)
	go s.metricsReporter()
	go s.healthChecker()
	if s.sweeper != nil && s.cfg.ProcessorSweepInterval > 0 {
		s.wg.Add(1)
		go s.sweepLoop()
	}

	logger.Info("[processor] started", "consumers", len(s.queues), "workers", s.cfg.ProcessorWorkers)
	return nil
}

func (s *ProcessorService) metricsReporter() {
	defer s.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.reportMetrics()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) reportMetrics() {
	st := s.metrics.GetStats()
	logger.Info("[processor] metrics",
		"processed", st.Processed,
		"failed", st.Failed,
		"sweeps", st.Sweeps,
		"rate_per_second", st.RatePerSecond,
		"avg_duration_ms", st.AvgDuration.Milliseconds(),
		"uptime", st.Uptime.String())

	if len(s.queues) == 0 {
		return
	}
	// every consumer reads the same stream and group
	if qs, err := s.queues[0].GetStats(s.ctx); err == nil {
		logger.Info("[processor] stream stats", "total", qs.TotalMessages, "pending", qs.PendingMessages, "consumers", qs.ConsumerCount)
	}
}

func (s *ProcessorService) healthChecker() {
	defer s.wg.Done()

	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.performHealthCheck()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) performHealthCheck() {
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()

	if err := s.adapter.Ping(ctx); err != nil {
		logger.Error("[processor] health check failed: redis", "error", err)
		return
	}
	if len(s.queues) > 0 {
		if qs, err := s.queues[0].GetStats(ctx); err == nil && qs.PendingMessages > 10_000 {
			logger.Warn("[processor] changes stream lagging", "pending", qs.PendingMessages)
		}
	}
}

func (s *ProcessorService) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.ProcessorSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.sweeper.Sweep(s.ctx); err != nil {
				logger.Error("[processor] sweep failed", "error", err)
				continue
			}
			s.metrics.RecordSweep()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *ProcessorService) Stop() {
	logger.Info("[processor] shutting down")
	s.cancel()

	var stopping sync.WaitGroup
	for i, q := range s.queues {
		stopping.Add(1)
		go func(index int, q *queue.Queue) {
			defer stopping.Done()
			if err := q.Stop(ShutdownTimeout); err != nil {
				logger.Error("[processor] error stopping queue", "queue", index, "error", err)
			}
		}(i, q)
	}
	stopping.Wait()

	s.worker.Exit()
	s.wg.Wait()
	s.reportMetrics()
	logger.Info("[processor] stopped")
}

type job struct {
	msg    *queue.Message
	result chan error
	ctx    context.Context
}

// messageHandler hands the event to the worker pool and waits for its
// result, so the queue acks only what was reconciled.
func (s *ProcessorService) messageHandler(ctx context.Context, msg *queue.Message) error {
	jobCtx, cancel := context.WithTimeout(ctx, ProcessingTimeout+time.Second)
	defer cancel()

	j := &job{msg: msg, result: make(chan error, 1), ctx: jobCtx}
	if !s.worker.Enqueue(jobCtx, j) {
		return fmt.Errorf("worker pool did not accept event %s", msg.ID)
	}

	select {
	case err := <-j.result:
		return err
	case <-jobCtx.Done():
		return fmt.Errorf("timeout waiting for worker: %w", jobCtx.Err())
	}
}

func (s *ProcessorService) workerHandler(workerIndex int, v interface{}) {
	j, ok := v.(*job)
	if !ok {
		logger.Error("[processor] invalid job type", "worker", workerIndex)
		return
	}
	if j.ctx.Err() != nil {
		return
	}

	var err error
	start := time.Now()
	if s.processor == nil {
		// nothing would ever handle it, so ack
		logger.Warn("[processor] no processor registered", "worker", workerIndex)
		s.metrics.RecordFailure()
	} else if err = s.processor.Process(j.ctx, j.msg); err != nil {
		s.metrics.RecordFailure()
		logger.Error("[processor] reconcile failed", "worker", workerIndex, "stream_id", j.msg.ID, "error", err)
	} else {
		s.metrics.RecordSuccess(time.Since(start))
	}

	// buffered, never blocks
	j.result <- err
}
