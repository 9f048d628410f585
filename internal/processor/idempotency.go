package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nimasrn/seva-booking/pkg/logger"
	"github.com/nimasrn/seva-booking/pkg/redis"
)

var (
	ErrAlreadyProcessed   = errors.New("event already processed")
	ErrLockAcquireFailed  = errors.New("failed to acquire processing lock")
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL time.Duration

	ProcessedTTL time.Duration

	MaxRetries int

	RetryKeyPrefix string

	LockKeyPrefix string

	ProcessedKeyPrefix string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:            30 * time.Second,
		ProcessedTTL:       24 * time.Hour,
		MaxRetries:         3,
		RetryKeyPrefix:     "reconcile:retry:",
		LockKeyPrefix:      "reconcile:lock:",
		ProcessedKeyPrefix: "reconcile:done:",
	}
}

// IdempotencyService keeps a redelivered change event from being reconciled
// twice and caps how often a failing one is retried.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(redisAdapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	return &IdempotencyService{
		redis:  redisAdapter,
		config: config,
	}
}

type ProcessingContext struct {
	EventID      string
	RetryCount   int
	IsRetry      bool
	lockAcquired bool
}

func (s *IdempotencyService) AcquireProcessingLock(ctx context.Context, eventID string) (*ProcessingContext, error) {
	done, err := s.IsProcessed(ctx, eventID)
	if err != nil {
		// a duplicate reconcile is harmless, a blocked one is not
		logger.Warn("[idempotency] processed check failed", "event_id", eventID, "error", err)
	} else if done {
		return nil, ErrAlreadyProcessed
	}

	retryCount, err := s.GetRetryCount(ctx, eventID)
	if err != nil {
		logger.Warn("[idempotency] retry count unavailable", "event_id", eventID, "error", err)
	}
	if retryCount >= s.config.MaxRetries {
		return nil, fmt.Errorf("%w: event_id=%s, retries=%d", ErrMaxRetriesExceeded, eventID, retryCount)
	}

	lockValue := []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
	acquired, err := s.redis.SetNX(ctx, s.config.LockKeyPrefix+eventID, lockValue, s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !acquired {
		return nil, ErrLockAcquireFailed
	}

	logger.Debug("[idempotency] lock acquired", "event_id", eventID, "retry_count", retryCount)
	return &ProcessingContext{
		EventID:      eventID,
		RetryCount:   retryCount,
		IsRetry:      retryCount > 0,
		lockAcquired: true,
	}, nil
}

func (s *IdempotencyService) MarkSuccess(ctx context.Context, pc *ProcessingContext) error {
	err := s.redis.Set(ctx, s.config.ProcessedKeyPrefix+pc.EventID, []byte("1"), s.config.ProcessedTTL)
	if err != nil {
		return fmt.Errorf("failed to mark as processed: %w", err)
	}

	s.cleanup(ctx, pc)
	return nil
}

func (s *IdempotencyService) MarkFailure(ctx context.Context, pc *ProcessingContext, reason error) error {
	n, err := s.redis.Incr(ctx, s.config.RetryKeyPrefix+pc.EventID, s.config.ProcessedTTL)
	if err != nil {
		logger.Error("[idempotency] failed to count retry", "event_id", pc.EventID, "error", err)
	}
	if err := s.ReleaseLock(ctx, pc); err != nil {
		return err
	}

	logger.Warn("[idempotency] reconcile failed, will retry",
		"event_id", pc.EventID,
		"retry_count", n,
		"max_retries", s.config.MaxRetries,
		"reason", reason)
	return nil
}

func (s *IdempotencyService) ReleaseLock(ctx context.Context, pc *ProcessingContext) error {
	if pc == nil || !pc.lockAcquired {
		return nil
	}
	if err := s.redis.Del(ctx, s.config.LockKeyPrefix+pc.EventID); err != nil {
		logger.Warn("[idempotency] failed to release lock", "event_id", pc.EventID, "error", err)
		return err
	}
	pc.lockAcquired = false
	return nil
}

func (s *IdempotencyService) cleanup(ctx context.Context, pc *ProcessingContext) {
	_ = s.ReleaseLock(ctx, pc)
	if err := s.redis.Del(ctx, s.config.RetryKeyPrefix+pc.EventID); err != nil {
		logger.Warn("[idempotency] failed to clear retry counter", "event_id", pc.EventID, "error", err)
	}
}

func (s *IdempotencyService) GetRetryCount(ctx context.Context, eventID string) (int, error) {
	raw, err := s.redis.Get(ctx, s.config.RetryKeyPrefix+eventID)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (s *IdempotencyService) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	exists, err := s.redis.Exist(ctx, s.config.ProcessedKeyPrefix+eventID)
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}
