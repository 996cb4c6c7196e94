package datalab

// EventKind identifies what changed in a Workspace.
type EventKind int

const (
	// EventTablesChanged follows a successful catalog refresh
	EventTablesChanged EventKind = iota
	// EventSelectionChanged follows any change to the column selection
	EventSelectionChanged
	// EventDashboardChanged follows pinning or unpinning a chart
	EventDashboardChanged
	// EventLoadingChanged follows the start or end of a bulk load
	EventLoadingChanged
	// EventError carries a new user-visible error message
	EventError
)

// String returns the event kind name
func (k EventKind) String() string {
	switch k {
	case EventTablesChanged:
		return "tables"
	case EventSelectionChanged:
		return "selection"
	case EventDashboardChanged:
		return "dashboard"
	case EventLoadingChanged:
		return "loading"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event describes a Workspace change.
type Event struct {
	Kind EventKind `json:"kind"`
	// Message is set for EventError.
	Message string `json:"message,omitempty"`
}

// Subscribe registers fn to be called after every change. Callbacks run
// synchronously on the goroutine that made the change and must not call
// back into mutating Workspace methods. The returned function unregisters fn.
func (w *Workspace) Subscribe(fn func(Event)) (unsubscribe func()) {
	w.subMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	w.subMu.Unlock()

	return func() {
		w.subMu.Lock()
		delete(w.subs, id)
		w.subMu.Unlock()
	}
}

func (w *Workspace) publish(e Event) {
	w.subMu.Lock()
	fns := make([]func(Event), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.subMu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
