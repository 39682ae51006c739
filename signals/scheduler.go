// Package signals implements the reactive value cell the generated binding
// code subscribes to, together with the batched notification scheduler.
//
// A Scheduler and every Signal attached to it are confined to a single
// goroutine. Writes update the stored value immediately but defer subscriber
// notification to the next Flush, which is the host's microtask boundary:
// the browser runtime drains via queueMicrotask, the Go host drains at the
// end of event dispatch and in tests.
package signals

// subState is shared between a subscription and every task queued for it,
// so an unsubscribe observed mid-flush suppresses tasks that have not run.
type subState struct {
	cancelled bool
}

type task struct {
	state *subState
	run   func()
}

// Scheduler owns the pending notification queue. Construct one per
// runtime; there is no package-level instance.
type Scheduler struct {
	queue    []task
	depth    int
	flushing bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) enqueue(st *subState, run func()) {
	s.queue = append(s.queue, task{state: st, run: run})
}

// Pending returns the number of queued notifications.
func (s *Scheduler) Pending() int {
	return len(s.queue)
}

// Flush runs every queued notification in enqueue order, then clears the
// queue. Notifications enqueued by callbacks during the flush are processed
// in the same pass. Flush is a no-op while a batch is open or a flush is
// already running.
func (s *Scheduler) Flush() {
	if s.depth > 0 || s.flushing {
		return
	}
	s.flushing = true
	for i := 0; i < len(s.queue); i++ {
		t := s.queue[i]
		if t.state.cancelled {
			continue
		}
		t.run()
	}
	s.queue = s.queue[:0]
	s.flushing = false
}

// StartBatch suppresses flushing until the matching EndBatch.
func (s *Scheduler) StartBatch() {
	s.depth++
}

// EndBatch closes the innermost batch and flushes once the outermost
// batch closes.
func (s *Scheduler) EndBatch() {
	if s.depth == 0 {
		return
	}
	s.depth--
	if s.depth == 0 {
		s.Flush()
	}
}

// Batch runs fn inside a batch. Writes made by fn notify in one flush when
// the outermost batch ends.
func (s *Scheduler) Batch(fn func()) {
	s.StartBatch()
	defer s.EndBatch()
	fn()
}
