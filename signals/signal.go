package signals

type subEntry[T any] struct {
	state *subState
	fn    func(T)
}

// Signal[T] is a reactive value with identity separate from its value.
// Reading has no side effects. Writing an equal value is a no-op; writing a
// new value enqueues every subscriber on the scheduler with a snapshot of
// the value at write time.
type Signal[T any] struct {
	sched *Scheduler
	value T
	eq    func(a, b T) bool
	subs  []*subEntry[T]
}

// New creates a Signal whose equal-write check is ==.
func New[T comparable](sched *Scheduler, initial T) *Signal[T] {
	return NewFunc(sched, initial, func(a, b T) bool { return a == b })
}

// NewFunc creates a Signal with a custom equality check. A nil eq means no
// two writes are ever considered equal; use it for slice- or map-valued
// signals where each write carries a fresh reference.
func NewFunc[T any](sched *Scheduler, initial T, eq func(a, b T) bool) *Signal[T] {
	return &Signal[T]{sched: sched, value: initial, eq: eq}
}

// Get returns the current value.
func (s *Signal[T]) Get() T {
	return s.value
}

// Set stores v and returns it. If v equals the current value nothing is
// enqueued. Two writes before a flush enqueue each subscriber twice with two
// snapshots: the stored value is last-write-wins, but subscribers observe
// both notifications.
func (s *Signal[T]) Set(v T) T {
	if s.eq != nil && s.eq(s.value, v) {
		return v
	}
	s.value = v
	snapshot := v
	for _, e := range s.subs {
		if e.state.cancelled {
			continue
		}
		fn := e.fn
		s.sched.enqueue(e.state, func() { fn(snapshot) })
	}
	return v
}

// Subscribe registers fn. Unless skipInitial is true, fn runs synchronously
// once with the current value before Subscribe returns. The returned
// unsubscribe func is safe to call during a flush: a queued notification for
// this subscription that has not yet run will be skipped.
func (s *Signal[T]) Subscribe(fn func(T), skipInitial bool) (unsubscribe func()) {
	e := &subEntry[T]{state: &subState{}, fn: fn}
	s.subs = append(s.subs, e)
	if !skipInitial {
		fn(s.value)
	}
	return func() {
		if e.state.cancelled {
			return
		}
		e.state.cancelled = true
		for i, x := range s.subs {
			if x == e {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
	}
}

// SubscriberCount reports the number of live subscriptions.
func (s *Signal[T]) SubscriberCount() int {
	return len(s.subs)
}

// Scheduler returns the scheduler this signal notifies through.
func (s *Signal[T]) Scheduler() *Scheduler {
	return s.sched
}
