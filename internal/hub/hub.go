package hub

import (
	"encoding/json"
	"log"
	"sync"
)

const (
	// Per-subscriber queue size. Delivery is best-effort: a subscriber that
	// cannot drain its queue loses messages rather than stalling the
	// publisher.
	sendQueueSize = 64
)

// PushMessage is the payload shape delivered over both push transports.
type PushMessage struct {
	ID        string          `json:"id"`
	Title     string          `json:"title,omitempty"`
	Body      string          `json:"body,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Status    string          `json:"status,omitempty"`
	CreatedAt int64           `json:"created_at,omitempty"`
}

// Subscriber is one connected push client (websocket or SSE). The transport
// handler owns the read side; the hub owns the write side.
type Subscriber struct {
	AccountID string

	send      chan []byte
	closeOnce sync.Once
}

// Messages returns the delivery queue. The channel is closed when the
// subscriber is removed from the hub.
func (s *Subscriber) Messages() <-chan []byte {
	return s.send
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.send)
	})
}

// Hub fans notification payloads out to every connected client of an account.
// At-most-once: nothing is persisted here, late joiners poll the REST API.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[*Subscriber]struct{}),
	}
}

func (h *Hub) Subscribe(accountID string) *Subscriber {
	sub := &Subscriber{
		AccountID: accountID,
		send:      make(chan []byte, sendQueueSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[accountID] == nil {
		h.subs[accountID] = make(map[*Subscriber]struct{})
	}
	h.subs[accountID][sub] = struct{}{}
	return sub
}

// Unsubscribe removes the subscriber and closes its queue. Safe to call more
// than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	if set, ok := h.subs[sub.AccountID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.AccountID)
		}
	}
	h.mu.Unlock()

	sub.close()
}

// Publish delivers msg to every subscriber of accountID. Never blocks; a full
// queue drops the message for that subscriber.
func (h *Hub) Publish(accountID string, msg PushMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("hub: marshal push message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[accountID] {
		select {
		case sub.send <- payload:
		default:
			log.Printf("hub: dropping message for slow subscriber account=%s", accountID)
		}
	}
}

// Broadcast delivers msg to every connected subscriber of every account.
func (h *Hub) Broadcast(msg PushMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("hub: marshal broadcast message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for accountID, set := range h.subs {
		for sub := range set {
			select {
			case sub.send <- payload:
			default:
				log.Printf("hub: dropping broadcast for slow subscriber account=%s", accountID)
			}
		}
	}
}

// ConnectionCount reports the live subscriber total, for diagnostics.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, set := range h.subs {
		total += len(set)
	}
	return total
}
