package bus

import "sync"

// Subscribe delivers events of the given type ("*" for all) on a buffered
// channel. Delivery never blocks the emitter: when the buffer is full the
// event is dropped and logged. The returned cancel func unsubscribes and
// closes the channel; it is safe to call more than once.
func (eb *EventBus) Subscribe(eventType string, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 100
	}
	var (
		mu     sync.Mutex
		closed bool
		ch     = make(chan Event, buffer)
	)

	id := eb.On(eventType, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- e:
		default:
			eb.logger.Warn("subscriber buffer full, event dropped", "event", e.Type)
		}
	})

	cancel := func() {
		eb.Off(eventType, id)
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			close(ch)
		}
	}
	return ch, cancel
}
