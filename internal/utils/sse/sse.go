package sse

import "sync"

// Registry holds one notification channel per connected user. Notifications
// are a best-effort hint; clients still poll the interview for truth.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]chan map[string]interface{}
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]chan map[string]interface{})}
}

func (r *Registry) Register(userID string, ch chan map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[userID] = ch
}

func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, userID)
}

// Notify drops the message when the user is not connected or the channel is
// full.
func (r *Registry) Notify(userID string, msg map[string]interface{}) {
	r.mu.RLock()
	ch, ok := r.channels[userID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
	}
}
