package monitor

import "sync"

// Subscription delivers published values on C. Delivery is latest-wins: if
// the subscriber falls behind, pending values are replaced by newer ones.
// C is closed when the subscription or its publisher is closed.
type Subscription[T any] struct {
	C <-chan T

	ch  chan T
	hub *hub[T]
}

// Close detaches the subscription. It is safe to call more than once.
func (s *Subscription[T]) Close() {
	s.hub.unsubscribe(s)
}

type hub[T any] struct {
	subs   map[*Subscription[T]]struct{}
	closed bool
	mtx    sync.Mutex
}

func newHub[T any]() *hub[T] {
	return &hub[T]{subs: make(map[*Subscription[T]]struct{})}
}

func (h *hub[T]) subscribe(buffer int) *Subscription[T] {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan T, buffer)
	s := &Subscription[T]{C: ch, ch: ch, hub: h}

	h.mtx.Lock()
	defer h.mtx.Unlock()

	if h.closed {
		close(ch)
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

func (h *hub[T]) unsubscribe(s *Subscription[T]) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	if _, found := h.subs[s]; found {
		delete(h.subs, s)
		close(s.ch)
	}
}

// publish never blocks. A full subscriber loses its oldest pending value.
func (h *hub[T]) publish(v T) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	for s := range h.subs {
		for {
			select {
			case s.ch <- v:
			default:
				select {
				case <-s.ch:
				default:
				}
				continue
			}
			break
		}
	}
}

func (h *hub[T]) close() {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		close(s.ch)
	}
	h.subs = nil
}
