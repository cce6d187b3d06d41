package pipeline

// EventType identifies a run progress event.
type EventType int

const (
	// RunStart fires once before the first item is dispatched.
	RunStart EventType = iota
	// ItemCompleted fires when a record clears the full chain.
	ItemCompleted
	// ItemFailed fires when a record is dropped (filter, dedup, error).
	ItemFailed
	// StepFailed fires when a step errors on a record, before ItemFailed.
	StepFailed
	// RunEnd fires once after all workers drain.
	RunEnd
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case RunStart:
		return "run_start"
	case ItemCompleted:
		return "item_completed"
	case ItemFailed:
		return "item_failed"
	case StepFailed:
		return "step_failed"
	case RunEnd:
		return "run_end"
	default:
		return "unknown"
	}
}

// Event is one run progress notification.
type Event struct {
	Type  EventType
	RunID string
	// Step is the full compiled step name; set on StepFailed only.
	Step string
	// Index is the source item ordinal; set on item and step events.
	Index int
	// Err carries the failure; set on StepFailed.
	Err error
	// Processed and Failed are final counts; set on RunEnd.
	Processed int
	Failed    int
}

// EventFunc receives run progress events. Callbacks may fire concurrently
// from multiple workers and must be safe for concurrent use.
type EventFunc func(Event)

func (rt *runtime) emit(ev Event) {
	if rt.onEvent != nil {
		rt.onEvent(ev)
	}
}
