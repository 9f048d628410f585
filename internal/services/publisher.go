package services

import (
	"context"

	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/pkg/logger"
)

type ChangeQueue interface {
	PublishChange(ctx context.Context, ev model.ChangeEvent) (string, error)
}

// ChangeNotifier announces committed writes.
type ChangeNotifier interface {
	Publish(ctx context.Context, events ...model.ChangeEvent)
}

// ChangePublisher writes change events to the changes stream. The write it
// announces has already committed, so a failed publish is logged and left
// for the reconciler rather than failing the request.
type ChangePublisher struct {
	queue ChangeQueue
}

func NewChangePublisher(queue ChangeQueue) *ChangePublisher {
	return &ChangePublisher{queue: queue}
}

func (p *ChangePublisher) Publish(ctx context.Context, events ...model.ChangeEvent) {
	if p == nil || p.queue == nil {
		return
	}
	for _, ev := range events {
		if _, err := p.queue.PublishChange(ctx, ev); err != nil {
			logger.Error("[changes] publish failed", "table", ev.Table, "event", ev.Event, "id", ev.ID, "error", err)
		}
	}
}

type noopNotifier struct{}

func (noopNotifier) Publish(context.Context, ...model.ChangeEvent) {}

func notifierOrNoop(n ChangeNotifier) ChangeNotifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
