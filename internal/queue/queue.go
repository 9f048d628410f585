package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/pkg/logger"
	"github.com/nimasrn/seva-booking/pkg/redis"
	"github.com/pkg/errors"
)

var (
	ErrAlreadyAcked    = errors.New("message already acknowledged")
	ErrAlreadyRejected = errors.New("message already rejected")
	ErrNoHandler       = errors.New("message handler is required")
	ErrNoGroup         = errors.New("consumer group is required to consume")
)

type Message struct {
	ID        string
	Data      []byte
	Metadata  map[string]string
	Timestamp time.Time
	Attempts  int
	acked     bool
	nacked    bool
	queue     *Queue
}

// Ack marks the message as processed for this consumer group.
func (m *Message) Ack() error {
	if m.acked {
		return ErrAlreadyAcked
	}
	if m.nacked {
		return ErrAlreadyRejected
	}

	m.acked = true
	return m.queue.ackMessage(m.queue.ctx, m.ID)
}

// Nack leaves the message pending so it is reclaimed after the visibility
// timeout.
func (m *Message) Nack() error {
	if m.acked {
		return ErrAlreadyAcked
	}
	if m.nacked {
		return ErrAlreadyRejected
	}

	m.nacked = true
	return nil
}

// Change decodes the message body as a change event.
func (m *Message) Change() (model.ChangeEvent, error) {
	var ev model.ChangeEvent
	if err := json.Unmarshal(m.Data, &ev); err != nil {
		return ev, errors.Wrap(err, "decode change event")
	}
	return ev, nil
}

// MessageHandler returning nil acks the message; an error leaves it pending.
type MessageHandler func(ctx context.Context, msg *Message) error

// MessageHandlerManual must call msg.Ack or msg.Nack itself.
type MessageHandlerManual func(ctx context.Context, msg *Message)

type QueueConfig struct {
	Name              string
	ConsumerGroup     string
	ConsumerName      string
	MaxRetries        int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	BatchSize         int64
	MaxLen            int64
	EnableDLQ         bool
	// StartID is where a new consumer group begins reading: "0" replays
	// the stream, "$" only sees entries added afterwards.
	StartID string
}

// Queue is a redis stream with one consumer group. A Queue without a
// group can only publish.
type Queue struct {
	adapter       redis.RedisAdapter
	config        QueueConfig
	handler       MessageHandler
	handlerManual MessageHandlerManual
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.RWMutex
	processing    map[string]*Message
}

type QueueStats struct {
	TotalMessages   int64
	PendingMessages int64
	ConsumerCount   int64
}

func NewQueue(adapter redis.RedisAdapter, config QueueConfig) (*Queue, error) {
	if config.Name == "" {
		return nil, errors.New("queue name is required")
	}
	if config.ConsumerName == "" {
		config.ConsumerName = fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.VisibilityTimeout == 0 {
		config.VisibilityTimeout = 30 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.StartID == "" {
		config.StartID = "0"
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		adapter:    adapter,
		config:     config,
		ctx:        ctx,
		cancel:     cancel,
		processing: make(map[string]*Message),
	}

	if config.ConsumerGroup != "" {
		if err := q.initConsumerGroup(ctx); err != nil && !isBusyGroup(err) {
			cancel()
			return nil, errors.Wrap(err, "create consumer group")
		}
	}

	return q, nil
}

func (q *Queue) Name() string {
	return q.config.Name
}

func (q *Queue) initConsumerGroup(ctx context.Context) error {
	return q.adapter.XGroupCreateMkStream(ctx, q.config.Name, q.config.ConsumerGroup, q.config.StartID)
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func (q *Queue) Publish(ctx context.Context, data []byte, metadata map[string]string) (string, error) {
	values := map[string]interface{}{
		"data":      string(data),
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range metadata {
		values["meta_"+k] = v
	}

	id, err := q.adapter.XAdd(ctx, q.config.Name, values)
	if err != nil {
		return "", errors.Wrap(err, "publish message")
	}

	if q.config.MaxLen > 0 {
		if err := q.adapter.XTrimApprox(ctx, q.config.Name, q.config.MaxLen); err != nil {
			logger.Warn("[queue] trim failed", "queue", q.config.Name, "error", err)
		}
	}

	return id, nil
}

func (q *Queue) PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", errors.Wrap(err, "marshal message")
	}
	return q.Publish(ctx, jsonData, metadata)
}

// PublishChange appends a change event, tagging it with its table so
// consumers can filter without decoding.
func (q *Queue) PublishChange(ctx context.Context, ev model.ChangeEvent) (string, error) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	return q.PublishJSON(ctx, ev, map[string]string{"table": ev.Table, "event": string(ev.Event)})
}

func (q *Queue) Consume(handler MessageHandler) error {
	if handler == nil {
		return ErrNoHandler
	}
	if q.config.ConsumerGroup == "" {
		return ErrNoGroup
	}

	q.handler = handler
	q.wg.Add(1)
	go q.consumeLoop()
	return nil
}

func (q *Queue) ConsumeManual(handler MessageHandlerManual) error {
	if handler == nil {
		return ErrNoHandler
	}
	if q.config.ConsumerGroup == "" {
		return ErrNoGroup
	}

	q.handlerManual = handler
	q.wg.Add(1)
	go q.consumeLoop()
	return nil
}

func (q *Queue) consumeLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.processMessages()
			q.claimStuckMessages()
		}
	}
}

func (q *Queue) processMessages() {
	messages, err := q.adapter.XReadGroup(q.ctx, q.config.ConsumerGroup, q.config.ConsumerName, q.config.Name, ">", q.config.BatchSize, 0)
	if err != nil {
		if !errors.Is(err, redis.NilError) && q.ctx.Err() == nil {
			logger.Warn("[queue] read failed", "queue", q.config.Name, "error", err)
		}
		return
	}

	for _, streamMsg := range messages {
		msg := q.streamMessageToMessage(streamMsg)
		msg.Attempts = 1
		q.handleMessage(msg)
	}
}

// claimStuckMessages takes over entries another delivery left pending for
// longer than the visibility timeout. The stream's delivery counter is the
// attempt count.
func (q *Queue) claimStuckMessages() {
	pending, err := q.adapter.XPending(q.ctx, q.config.Name, q.config.ConsumerGroup)
	if err != nil || pending == nil || pending.Count == 0 {
		return
	}

	pendingExt, err := q.adapter.XPendingExt(q.ctx, q.config.Name, q.config.ConsumerGroup, "-", "+", 100)
	if err != nil || len(pendingExt) == 0 {
		return
	}

	attempts := make(map[string]int, len(pendingExt))
	var idsToReclaim []string
	for _, p := range pendingExt {
		if p.Idle >= q.config.VisibilityTimeout {
			idsToReclaim = append(idsToReclaim, p.ID)
			attempts[p.ID] = int(p.RetryCount)
		}
	}
	if len(idsToReclaim) == 0 {
		return
	}

	messages, err := q.adapter.XClaim(q.ctx, q.config.Name, q.config.ConsumerGroup, q.config.ConsumerName, q.config.VisibilityTimeout, idsToReclaim...)
	if err != nil {
		logger.Warn("[queue] claim failed", "queue", q.config.Name, "error", err)
		return
	}

	for _, streamMsg := range messages {
		msg := q.streamMessageToMessage(streamMsg)
		msg.Attempts = attempts[msg.ID] + 1
		q.handleMessage(msg)
	}
}

func (q *Queue) handleMessage(msg *Message) {
	q.mu.Lock()
	q.processing[msg.ID] = msg
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		delete(q.processing, msg.ID)
		q.mu.Unlock()
	}()

	if msg.Attempts > q.config.MaxRetries {
		logger.Warn("[queue] giving up on message", "queue", q.config.Name, "id", msg.ID, "attempts", msg.Attempts)
		q.moveToDeadLetterQueue(msg)
		_ = q.ackMessage(q.ctx, msg.ID)
		return
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.config.VisibilityTimeout)
	defer cancel()

	if q.handlerManual != nil {
		q.handlerManual(ctx, msg)
		return
	}

	if err := q.handler(ctx, msg); err != nil {
		logger.Debug("[queue] handler failed, will retry", "queue", q.config.Name, "id", msg.ID, "error", err)
		return
	}
	if err := q.ackMessage(q.ctx, msg.ID); err != nil {
		logger.Warn("[queue] ack failed", "queue", q.config.Name, "id", msg.ID, "error", err)
	}
}

func (q *Queue) ackMessage(ctx context.Context, messageID string) error {
	return q.adapter.XAck(ctx, q.config.Name, q.config.ConsumerGroup, messageID)
}

func (q *Queue) DeadLetterName() string {
	return q.config.Name + ":dlq"
}

func (q *Queue) moveToDeadLetterQueue(msg *Message) {
	if !q.config.EnableDLQ {
		return
	}

	values := map[string]interface{}{
		"data":           string(msg.Data),
		"original_id":    msg.ID,
		"attempts":       msg.Attempts,
		"failed_at":      time.Now().UTC().Format(time.RFC3339Nano),
		"original_queue": q.config.Name,
		"consumer_group": q.config.ConsumerGroup,
	}
	for k, v := range msg.Metadata {
		values["meta_"+k] = v
	}

	if _, err := q.adapter.XAdd(q.ctx, q.DeadLetterName(), values); err != nil {
		logger.Error("[queue] dead letter failed", "queue", q.config.Name, "id", msg.ID, "error", err)
	}
}

func (q *Queue) streamMessageToMessage(streamMsg redis.StreamMessage) *Message {
	msg := &Message{
		ID:       streamMsg.ID,
		Metadata: make(map[string]string),
		queue:    q,
	}

	for k, v := range streamMsg.Values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch {
		case k == "data":
			msg.Data = []byte(s)
		case k == "timestamp":
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				msg.Timestamp = ts
			}
		case k == "attempts":
			msg.Attempts, _ = strconv.Atoi(s)
		case strings.HasPrefix(k, "meta_"):
			msg.Metadata[strings.TrimPrefix(k, "meta_")] = s
		}
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	return msg
}

// Stop cancels the consume loop and waits up to timeout for in-flight
// handlers.
func (q *Queue) Stop(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.New("timeout waiting for queue to stop")
	}
}

func (q *Queue) GetStats(ctx context.Context) (*QueueStats, error) {
	totalMessages, err := q.adapter.XLen(ctx, q.config.Name)
	if err != nil {
		return nil, err
	}

	stats := &QueueStats{TotalMessages: totalMessages}
	if q.config.ConsumerGroup == "" {
		return stats, nil
	}

	pending, err := q.adapter.XPending(ctx, q.config.Name, q.config.ConsumerGroup)
	if err == nil && pending != nil {
		stats.PendingMessages = pending.Count
		stats.ConsumerCount = int64(len(pending.Consumers))
	}
	return stats, nil
}
