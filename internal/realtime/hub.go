package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/pkg/prom"
	"github.com/rs/zerolog/log"
)

const sendBuffer = 64

// Subscriber is one websocket connection and the filter it asked for.
type Subscriber struct {
	UserID uuid.UUID
	Table  string
	SevaID *uuid.UUID
	Send   chan []byte

	hub  *Hub
	once sync.Once
}

func NewSubscriber(userID uuid.UUID, table string, sevaID *uuid.UUID) *Subscriber {
	return &Subscriber{
		UserID: userID,
		Table:  table,
		SevaID: sevaID,
		Send:   make(chan []byte, sendBuffer),
	}
}

// Close unregisters the subscriber and closes Send. Safe to call twice.
func (s *Subscriber) Close() {
	s.once.Do(func() {
		if s.hub != nil {
			s.hub.unregister(s)
		}
		close(s.Send)
	})
}

// Hub fans change events out to the subscribers whose filter matches.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

func (h *Hub) Register(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s.hub = h
	h.subs[s] = struct{}{}
}

func (h *Hub) unregister(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, s)
}

// Broadcast delivers ev and returns how many subscribers got it. A
// subscriber whose buffer is full is closed instead; its client reconnects
// and re-fetches everything.
func (h *Hub) Broadcast(ev model.ChangeEvent) int {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("table", ev.Table).Msg("encode change event")
		return 0
	}

	// sends happen under the read lock so Close cannot close a channel
	// mid-send
	var slow []*Subscriber
	delivered := 0
	h.mu.RLock()
	for s := range h.subs {
		if !ev.Matches(s.Table, s.SevaID) {
			continue
		}
		select {
		case s.Send <- data:
			delivered++
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		log.Warn().Str("user_id", s.UserID.String()).Str("table", ev.Table).Msg("subscriber too slow, closing")
		s.Close()
	}
	if delivered > 0 {
		prom.AddCounterVec(prom.SystemStream, prom.MetricStreamEventsFanout, float64(delivered), ev.Table)
	}
	return delivered
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
