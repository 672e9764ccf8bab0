package store

import "sync"

// Notifier fans out write notifications to per-user subscribers. Sends are
// non-blocking: a subscriber that has not drained its channel keeps a
// single pending signal, so bursts of writes coalesce.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]subscriber
}

type subscriber struct {
	userID string
	ch     chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]subscriber)}
}

// Subscribe registers interest in writes for userID and returns the signal
// channel plus a cancel func.
func (n *Notifier) Subscribe(userID string) (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan struct{}, 1)
	n.subs[id] = subscriber{userID: userID, ch: ch}

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Notify signals every subscriber registered for userID.
func (n *Notifier) Notify(userID string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, s := range n.subs {
		if s.userID != userID {
			continue
		}
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
}
