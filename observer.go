package fract

import "time"

// EventKind classifies what happened while applying an envelope.
type EventKind string

const (
	EventRedirect EventKind = "redirect"
	EventVeto     EventKind = "veto"
	EventMutate   EventKind = "mutate"
	EventSkip     EventKind = "skip"
	EventFailure  EventKind = "failure"
	EventDone     EventKind = "done"
)

// Event is reported to an Observer for every step of an application.
// Path is empty for envelope-level events; for EventRedirect it holds the
// redirect target.
type Event struct {
	Kind     EventKind
	Path     string
	Method   Method
	Count    int
	Duration time.Duration
	Err      error
}

// Observer receives events synchronously, while the applier holds its lock.
// Implementations must not call back into the applier.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}
