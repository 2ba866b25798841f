// Package notifier fans out snapshot reload events to subscribers.
package notifier

import "sync"

// Notifier broadcasts the ID of each new snapshot to all subscribers.
// Each subscriber holds at most one pending ID: a newer one replaces an
// unread older one, so slow readers only ever see the latest load.
type Notifier struct {
	mu        sync.Mutex
	listeners map[chan string]struct{}
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{listeners: make(map[chan string]struct{})}
}

// Subscribe returns a channel receiving load IDs. Call Unsubscribe when done.
func (n *Notifier) Subscribe() chan string {
	ch := make(chan string, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch.
func (n *Notifier) Unsubscribe(ch chan string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[ch]; !ok {
		return
	}
	delete(n.listeners, ch)
	close(ch)
}

// Broadcast delivers id to every subscriber without blocking.
func (n *Notifier) Broadcast(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.listeners {
		select {
		case <-ch:
		default:
		}
		ch <- id
	}
}

// Len returns the number of subscribers.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
