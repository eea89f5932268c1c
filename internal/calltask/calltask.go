package calltask

import "context"

type EventType string

const (
	EventStdout EventType = "stdout"
	EventStderr EventType = "stderr"
	EventExit   EventType = "exit"
)

// Event is one observation of the external call-placing task: a line from
// one of its output streams, or its termination.
type Event struct {
	Type     EventType
	Line     string
	ExitCode int
	Err      string
}

// Runner starts the external task that places an outbound call. The
// returned channel carries stdout/stderr lines as they arrive and is
// closed after a final exit event.
type Runner interface {
	Start(ctx context.Context, phoneNumber string) (<-chan Event, error)
}
