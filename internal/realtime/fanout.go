package realtime

import (
	"context"

	"github.com/nimasrn/seva-booking/internal/queue"
	"github.com/rs/zerolog/log"
)

type ChangeSource interface {
	Consume(handler queue.MessageHandler) error
}

// Fanout feeds the hub from the changes stream. Every realtime instance
// needs its own consumer group, otherwise instances split the events.
type Fanout struct {
	hub    *Hub
	source ChangeSource
}

func NewFanout(hub *Hub, source ChangeSource) *Fanout {
	return &Fanout{hub: hub, source: source}
}

func (f *Fanout) Start() error {
	return f.source.Consume(f.handle)
}

// handle always acks: a malformed event is logged and skipped, and a
// missed event only delays a client refresh.
func (f *Fanout) handle(_ context.Context, msg *queue.Message) error {
	ev, err := msg.Change()
	if err != nil {
		log.Warn().Err(err).Str("message_id", msg.ID).Msg("skipping undecodable change event")
		return nil
	}
	n := f.hub.Broadcast(ev)
	log.Debug().
		Str("table", ev.Table).
		Str("event", string(ev.Event)).
		Str("id", ev.ID.String()).
		Int("delivered", n).
		Msg("change event fanned out")
	return nil
}
