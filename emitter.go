package hxmodal

import (
	"sync"
	"sync/atomic"
)

// Handler receives the arguments passed to Trigger.
type Handler func(args ...any)

// Events is the event capability exposed uniformly by every component.
//
// Components embed *Emitter to satisfy it:
//
//	type Modal struct {
//	    *hxmodal.Emitter
//	    ...
//	}
type Events interface {
	On(event string, h Handler) *Subscription
	Once(event string, h Handler) *Subscription
	Trigger(event string, args ...any)
}

// Subscription is a single registered handler. Cancel is idempotent.
type Subscription struct {
	event   string
	emitter *Emitter
	active  atomic.Bool
}

// Event returns the event name this subscription listens to.
func (s *Subscription) Event() string {
	return s.event
}

// Active reports whether the handler is still registered.
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// Cancel removes the handler from its emitter. Calling Cancel more than once
// has no effect.
func (s *Subscription) Cancel() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.emitter.remove(s)
}

type listener struct {
	sub *Subscription
	fn  Handler
}

// Emitter is a named-event publisher with listener bookkeeping.
//
// Handlers run synchronously on the goroutine that calls Trigger, in
// registration order. A handler cancelled while an event is being dispatched
// is not invoked for that event.
//
// ListenTo records subscriptions made on other emitters so StopListening can
// release them all at teardown:
//
//	view.ListenTo(model, "destroy", func(...any) { view.Remove() })
//	...
//	view.StopListening()
type Emitter struct {
	mu        sync.Mutex
	handlers  map[string][]listener
	listening []*Subscription
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[string][]listener)}
}

// On registers h for event.
func (e *Emitter) On(event string, h Handler) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = make(map[string][]listener)
	}
	sub := &Subscription{event: event, emitter: e}
	sub.active.Store(true)
	e.handlers[event] = append(e.handlers[event], listener{sub: sub, fn: h})
	return sub
}

// Once registers h for the next occurrence of event only.
func (e *Emitter) Once(event string, h Handler) *Subscription {
	var sub *Subscription
	sub = e.On(event, OnceHandler(h, func() { sub.Cancel() }))
	return sub
}

// OnceHandler wraps h so it runs at most once. after runs before h on the
// first invocation (typically to unsubscribe); later invocations do nothing.
func OnceHandler(h Handler, after func()) Handler {
	var fired atomic.Bool
	return func(args ...any) {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		if after != nil {
			after()
		}
		h(args...)
	}
}

// Off removes every handler for event, or every handler when event is empty.
func (e *Emitter) Off(event string) {
	e.mu.Lock()
	var removed []listener
	if event == "" {
		for _, ls := range e.handlers {
			removed = append(removed, ls...)
		}
		e.handlers = make(map[string][]listener)
	} else {
		removed = e.handlers[event]
		delete(e.handlers, event)
	}
	e.mu.Unlock()

	for _, l := range removed {
		l.sub.active.Store(false)
	}
}

// Trigger invokes the handlers registered for event with args.
func (e *Emitter) Trigger(event string, args ...any) {
	e.mu.Lock()
	snapshot := append([]listener(nil), e.handlers[event]...)
	e.mu.Unlock()

	for _, l := range snapshot {
		if !l.sub.Active() {
			continue
		}
		l.fn(args...)
	}
}

// ListenerCount returns the number of handlers registered for event.
func (e *Emitter) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers[event])
}

// ListenTo subscribes h to event on other and remembers the subscription.
func (e *Emitter) ListenTo(other Events, event string, h Handler) *Subscription {
	sub := other.On(event, h)
	e.track(sub)
	return sub
}

// ListenToOnce is ListenTo for a single occurrence.
func (e *Emitter) ListenToOnce(other Events, event string, h Handler) *Subscription {
	sub := other.Once(event, h)
	e.track(sub)
	return sub
}

// StopListening cancels every subscription made through ListenTo.
func (e *Emitter) StopListening() {
	e.mu.Lock()
	subs := e.listening
	e.listening = nil
	e.mu.Unlock()

	for _, sub := range subs {
		sub.Cancel()
	}
}

func (e *Emitter) track(sub *Subscription) {
	e.mu.Lock()
	e.listening = append(e.listening, sub)
	e.mu.Unlock()
}

func (e *Emitter) remove(sub *Subscription) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ls := e.handlers[sub.event]
	for i, l := range ls {
		if l.sub == sub {
			e.handlers[sub.event] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(e.handlers[sub.event]) == 0 {
		delete(e.handlers, sub.event)
	}
}
