// internal/realtime/hub.go
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// EventType is the kind of row change carried by an Event.
type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

// Table names published on the change feed.
const (
	TableLobbies           = "lobbies"
	TableGameStates        = "game_states"
	TablePlayAgainRequests = "play_again_requests"
	TableChatMessages      = "chat_messages"
)

// Event is one row change. Keys holds the filterable columns of the row so subscribers
// can match without decoding New.
type Event struct {
	Table string            `json:"table"`
	Type  EventType         `json:"event"`
	New   json.RawMessage   `json:"new,omitempty"`
	Old   json.RawMessage   `json:"old,omitempty"`
	Keys  map[string]string `json:"keys,omitempty"`
}

// NewEvent marshals the row images into an Event. A nil row is left out.
func NewEvent(table string, typ EventType, newRow, oldRow interface{}, keys map[string]string) (Event, error) {
	ev := Event{Table: table, Type: typ, Keys: keys}
	if newRow != nil {
		b, err := json.Marshal(newRow)
		if err != nil {
			return Event{}, err
		}
		ev.New = b
	}
	if oldRow != nil {
		b, err := json.Marshal(oldRow)
		if err != nil {
			return Event{}, err
		}
		ev.Old = b
	}
	return ev, nil
}

// Filter scopes a subscription to rows whose Column equals Value. An empty Column
// matches every row of the table.
type Filter struct {
	Column string
	Value  string
}

func (f Filter) matches(ev Event) bool {
	if f.Column == "" {
		return true
	}
	return ev.Keys[f.Column] == f.Value
}

// Publisher accepts change events.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Hub fans events out to in-process subscribers.
type Hub struct {
	logger *logrus.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
}

// NewHub returns an empty hub.
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[uint64]*Subscription),
	}
}

// Subscription delivers matching events until Unsubscribe is called.
type Subscription struct {
	id     uint64
	table  string
	filter Filter
	ch     chan Event
	hub    *Hub
	once   sync.Once
}

// Events returns the delivery channel. It is closed by Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Unsubscribe detaches the subscription. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		close(s.ch)
		s.hub.mu.Unlock()
	})
}

// Subscribe registers interest in table rows matching f.
func (h *Hub) Subscribe(table string, f Filter) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	s := &Subscription{
		id:     h.nextID,
		table:  table,
		filter: f,
		ch:     make(chan Event, 32),
		hub:    h,
	}
	h.subs[s.id] = s
	return s
}

// Publish delivers ev to every matching subscriber without blocking. Slow subscribers
// lose the event; clients recover through polling.
func (h *Hub) Publish(_ context.Context, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.table != ev.Table || !s.filter.matches(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			if h.logger != nil {
				h.logger.Warnf("realtime: dropping %s %s event for subscriber %d", ev.Table, ev.Type, s.id)
			}
		}
	}
}

// Len reports the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
