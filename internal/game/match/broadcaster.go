package match

import "sync"

// Broadcaster fans frames out to spectators without ever blocking the
// simulation.
//
// Invariant: a subscriber whose buffer is full loses its oldest queued frame,
// never the newest, so the terminal frame always reaches a live subscriber.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan Frame]struct{}
	last   *Frame
	closed bool
}

// NewBroadcaster creates an open Broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Frame]struct{})}
}

// Subscribe registers a new subscriber with the given buffer size. The most
// recent frame, if any, is queued immediately so late joiners start from the
// current state.
//
// Precondition: buffer >= 1.
// Postcondition: The returned channel is closed by cancel or by Close.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Frame, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Frame, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last != nil {
		ch <- *b.last
	}
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Publish delivers f to every subscriber without blocking.
func (b *Broadcaster) Publish(f Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.last = &f
	for ch := range b.subs {
		select {
		case ch <- f:
			continue
		default:
		}
		// Full: drop the oldest queued frame and retry once.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- f:
		default:
		}
	}
}

// Len returns the number of live subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Safe to call multiple times.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}
