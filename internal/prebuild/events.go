package prebuild

import (
	"fmt"
	"log/slog"
)

// EventKind names a stage of a build.
type EventKind string

const (
	EventStart     EventKind = "start"
	EventPrepareBG EventKind = "prepare_bg"
	EventComposite EventKind = "composite"
	EventSkip      EventKind = "skip"
	EventError     EventKind = "error"
	EventDone      EventKind = "done"
)

// Event is one progress report. Current and Total are zero for events that
// carry no counter (start, skip, error).
type Event struct {
	Kind    EventKind
	Current int
	Total   int
	Message string
}

// String formats the event for progress output.
func (e Event) String() string {
	if e.Total > 0 {
		return fmt.Sprintf("[%s %d/%d] %s", e.Kind, e.Current, e.Total, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// ProgressFunc receives build events. It runs on the building goroutine.
type ProgressFunc func(Event)

// notifier delivers events to a ProgressFunc, containing any panic it raises
// so a faulty callback cannot abort a build.
type notifier struct {
	fn ProgressFunc
	id string
}

func (n notifier) emit(kind EventKind, current, total int, format string, args ...any) {
	if n.fn == nil {
		return
	}
	ev := Event{Kind: kind, Current: current, Total: total, Message: fmt.Sprintf(format, args...)}
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("progress callback panicked", "character", n.id, "event", string(kind), "panic", r)
		}
	}()
	n.fn(ev)
}
