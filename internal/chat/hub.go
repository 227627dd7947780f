package chat

import "sync"

// Hub is the in-process live sync channel: it fans every committed delta out
// to the registered observers of that topic, in commit order. Each
// subscription owns an unbounded FIFO queue, so a slow observer delays only
// itself and never loses an intermediate delta.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[*Subscription]struct{}{}}
}

type Subscription struct {
	hub   *Hub
	topic string

	mu     sync.Mutex
	queue  []Event
	notify chan struct{}
	closed bool

	out  chan Event
	done chan struct{}
}

// Events yields deltas in the order they were published. The channel is
// closed after Unsubscribe.
func (s *Subscription) Events() <-chan Event { return s.out }

func (s *Subscription) Topic() string { return s.topic }

// Subscribe registers an observer for topic. Register before reading the
// snapshot: anything committed after Subscribe returns is guaranteed to show
// up on Events, so snapshot+diff never misses a delta (duplicates are
// possible and fine, delivery is at-least-once).
func (h *Hub) Subscribe(topic string) *Subscription {
	s := &Subscription{
		hub:    h,
		topic:  topic,
		notify: make(chan struct{}, 1),
		out:    make(chan Event, 16),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	set, ok := h.subs[topic]
	if !ok {
		set = map[*Subscription]struct{}{}
		h.subs[topic] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()

	go s.pump()
	return s
}

// Unsubscribe detaches the handle. It is synchronous: once it returns, no
// further deltas are enqueued for this handle and the pump is told to stop.
func (h *Hub) Unsubscribe(s *Subscription) {
	if s == nil {
		return
	}

	h.mu.Lock()
	if set, ok := h.subs[s.topic]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.topic)
		}
	}
	h.mu.Unlock()

	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	if !already {
		close(s.done)
	}
}

// Publish delivers ev to every current subscriber of its topic.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	snapshot := make([]*Subscription, 0, len(h.subs[ev.Topic]))
	for s := range h.subs[ev.Topic] {
		snapshot = append(snapshot, s)
	}
	h.mu.Unlock()

	for _, s := range snapshot {
		s.enqueue(ev)
	}
}

// Close tears down every live subscription (process shutdown).
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*Subscription
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.subs = map[string]map[*Subscription]struct{}{}
	h.mu.Unlock()

	for _, s := range all {
		s.mu.Lock()
		already := s.closed
		s.closed = true
		s.mu.Unlock()
		if !already {
			close(s.done)
		}
	}
}

func (s *Subscription) enqueue(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.notify:
				continue
			case <-s.done:
				return
			}
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		// done wins over a pending send
		select {
		case <-s.done:
			return
		default:
		}
		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
	}
}
