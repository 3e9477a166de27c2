package scalespace

import "fmt"

// Level is the severity of a diagnostic event
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// Event is a diagnostic emitted while the optimizer runs
type Event struct {
	Level   Level
	Message string

	// Scale is the candidate scale the event refers to, zero for run-wide events
	Scale float64

	// Completed and Total count processed candidate scales for progress events
	Completed int
	Total     int
}

// DiagnosticsFunc receives diagnostic events. It is called synchronously from
// the goroutine running the optimizer.
type DiagnosticsFunc func(Event)

func (f DiagnosticsFunc) emit(e Event) {
	if f != nil {
		f(e)
	}
}
