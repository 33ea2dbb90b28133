// Package signal implements ordered observer lists.
package signal

// Signal fans a value out to its connected slots in connection order.
// It is not safe for concurrent use; owners drive it from the event loop.
// The zero value is ready to use.
type Signal[T any] struct {
	slots []*slot[T]
}

type slot[T any] struct {
	fn        func(T)
	connected bool
}

// Connect registers fn and returns a func that disconnects it. Disconnecting
// twice is harmless.
func (s *Signal[T]) Connect(fn func(T)) (disconnect func()) {
	sl := &slot[T]{fn: fn, connected: true}
	s.slots = append(s.slots, sl)

	return func() {
		if !sl.connected {
			return
		}
		sl.connected = false
		for i, other := range s.slots {
			if other == sl {
				s.slots = append(s.slots[:i], s.slots[i+1:]...)
				break
			}
		}
	}
}

// Emit calls every slot connected at the time of the call, in order. A slot
// disconnected by an earlier slot during the same Emit is skipped.
func (s *Signal[T]) Emit(v T) {
	snapshot := make([]*slot[T], len(s.slots))
	copy(snapshot, s.slots)

	for _, sl := range snapshot {
		if sl.connected {
			sl.fn(v)
		}
	}
}

// Len returns the number of connected slots.
func (s *Signal[T]) Len() int {
	return len(s.slots)
}
