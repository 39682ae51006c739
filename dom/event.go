package dom

import "golang.org/x/net/html"

// Event is a synthetic DOM event. The flags stay observable after
// dispatch so tests can assert modifier effects.
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node

	// Key carries the DOM KeyboardEvent key value for keyup/keydown.
	Key string

	defaultPrevented   bool
	propagationStopped bool
}

func NewEvent(typ string, target *html.Node) *Event {
	return &Event{Type: typ, Target: target}
}

func (e *Event) PreventDefault()          { e.defaultPrevented = true }
func (e *Event) StopPropagation()         { e.propagationStopped = true }
func (e *Event) DefaultPrevented() bool   { return e.defaultPrevented }
func (e *Event) PropagationStopped() bool { return e.propagationStopped }

type listener struct {
	event   string
	capture bool
	fn      func(*Event)
}

// AddListener registers fn for one event type on n. The returned func
// removes the registration and is safe to call more than once.
func (d *Document) AddListener(n *html.Node, event string, capture bool, fn func(*Event)) func() {
	l := &listener{event: event, capture: capture, fn: fn}
	d.listeners[n] = append(d.listeners[n], l)
	return func() {
		ls := d.listeners[n]
		for i, x := range ls {
			if x == l {
				d.listeners[n] = append(ls[:i], ls[i+1:]...)
				return
			}
		}
	}
}

// Dispatch runs capture listeners from the outermost ancestor down to the
// target, then bubble listeners back up. StopPropagation halts the walk
// once the current node's listeners have run.
func (d *Document) Dispatch(e *Event) {
	var path []*html.Node
	for n := e.Target; n != nil; n = n.Parent {
		path = append(path, n)
	}
	for i := len(path) - 1; i >= 0; i-- {
		d.invoke(path[i], e, true)
		if e.propagationStopped {
			return
		}
	}
	for _, n := range path {
		d.invoke(n, e, false)
		if e.propagationStopped {
			return
		}
	}
}

func (d *Document) invoke(n *html.Node, e *Event, capture bool) {
	ls := d.listeners[n]
	if len(ls) == 0 {
		return
	}
	// Snapshot so a listener removing itself does not skip its siblings.
	for _, l := range append([]*listener(nil), ls...) {
		if l.event == e.Type && l.capture == capture {
			e.CurrentTarget = n
			l.fn(e)
		}
	}
}
