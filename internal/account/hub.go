package account

import (
	"sync"

	"castenobar/internal/models"
)

const (
	EventSignedOut      = "signed_out"
	EventTokenRefreshed = "token_refreshed"
	EventExpired        = "expired"
)

// Event is what a watching client receives about its own token.
type Event struct {
	Type    string          `json:"event"`
	Session *models.Session `json:"session,omitempty"`
}

// Hub fans session events out to the watchers of a token id.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

func (h *Hub) Subscribe(tokenID string) (<-chan Event, func()) {
	ch := make(chan Event, 4)
	h.mu.Lock()
	if h.subs[tokenID] == nil {
		h.subs[tokenID] = make(map[chan Event]struct{})
	}
	h.subs[tokenID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[tokenID], ch)
			if len(h.subs[tokenID]) == 0 {
				delete(h.subs, tokenID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish never blocks; a watcher with a full buffer misses the event.
func (h *Hub) Publish(tokenID string, e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[tokenID] {
		select {
		case ch <- e:
		default:
		}
	}
}
