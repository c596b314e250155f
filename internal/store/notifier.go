package store

import "sync"

// Notifier fans wake-up signals out to feeds interested in a collection.
// Sends never block: a pending signal already covers any later one.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[string]map[chan struct{}]struct{}
	closed bool
}

// NewNotifier returns an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers interest in collection and returns the wake channel.
func (n *Notifier) Subscribe(collection string) chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ch
	}
	set, ok := n.subs[collection]
	if !ok {
		set = make(map[chan struct{}]struct{})
		n.subs[collection] = set
	}
	set[ch] = struct{}{}
	return ch
}

// Unsubscribe drops ch. The channel is not closed: a feed may still select on it.
func (n *Notifier) Unsubscribe(collection string, ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if set, ok := n.subs[collection]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(n.subs, collection)
		}
	}
}

// Notify wakes every feed of collection.
func (n *Notifier) Notify(collection string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	for ch := range n.subs[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close stops further notifications.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.subs = make(map[string]map[chan struct{}]struct{})
}
