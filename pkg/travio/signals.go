package travio

import (
	"sync"

	"github.com/google/uuid"
)

// SignalKind enumerates the session lifecycle events published on Signals.
type SignalKind int

const (
	// SignalSessionRefreshed is published after a silent credential refresh succeeded.
	SignalSessionRefreshed SignalKind = iota + 1
	// SignalAuthCleared is published when the session can no longer be recovered.
	SignalAuthCleared
)

// String returns the wire-friendly name of the signal.
func (k SignalKind) String() string {
	switch k {
	case SignalSessionRefreshed:
		return "session_refreshed"
	case SignalAuthCleared:
		return "auth_cleared"
	default:
		return "unknown"
	}
}

// Observer receives signals. It runs on the publisher's goroutine.
type Observer func(kind SignalKind)

// Subscription identifies a registered observer.
type Subscription struct {
	ID    string
	kinds map[SignalKind]bool
	fn    Observer
}

func (s *Subscription) wants(kind SignalKind) bool {
	return len(s.kinds) == 0 || s.kinds[kind]
}

// Signals is a typed, in-process publish/subscribe bus for session events.
// Observers are invoked synchronously in registration order.
type Signals struct {
	mu     sync.RWMutex
	subs   []*Subscription
	logger Logger
}

// NewSignals creates an empty bus.
func NewSignals(logger Logger) *Signals {
	return &Signals{logger: LoggerOrNop(logger)}
}

// Subscribe registers fn for the given kinds, or for every kind when none are given.
func (s *Signals) Subscribe(fn Observer, kinds ...SignalKind) *Subscription {
	sub := &Subscription{
		ID: uuid.New().String(),
		fn: fn,
	}

	if len(kinds) > 0 {
		sub.kinds = make(map[SignalKind]bool, len(kinds))
		for _, kind := range kinds {
			sub.kinds[kind] = true
		}
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	s.logger.Debug("signal subscriber added", map[string]interface{}{"subscription_id": sub.ID})

	return sub
}

// Unsubscribe removes a subscription. Unknown or nil subscriptions are ignored.
func (s *Signals) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.subs {
		if existing.ID == sub.ID {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)

			s.logger.Debug("signal subscriber removed", map[string]interface{}{"subscription_id": sub.ID})

			return
		}
	}
}

// Publish delivers kind to every observer registered at the time of the call.
func (s *Signals) Publish(kind SignalKind) {
	s.mu.RLock()
	snapshot := make([]*Subscription, len(s.subs))
	copy(snapshot, s.subs)
	s.mu.RUnlock()

	s.logger.Debug("publishing signal", map[string]interface{}{
		"signal":      kind.String(),
		"subscribers": len(snapshot),
	})

	for _, sub := range snapshot {
		if sub.wants(kind) {
			sub.fn(kind)
		}
	}
}

// Len returns the number of registered subscriptions.
func (s *Signals) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.subs)
}
