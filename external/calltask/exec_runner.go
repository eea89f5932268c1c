package calltask

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/mindfulvoice/backend/internal/calltask"
)

const scanBufferBytes = 256 * 1024

// ExecRunner spawns the call-placing script as a child process and
// streams its output line by line.
type ExecRunner struct {
	command string
	args    []string
}

func NewExecRunner(command string, args []string) *ExecRunner {
	return &ExecRunner{command: command, args: args}
}

func (r *ExecRunner) Start(ctx context.Context, phoneNumber string) (<-chan calltask.Event, error) {
	args := make([]string, 0, len(r.args)+2)
	args = append(args, r.args...)
	args = append(args, "--to", phoneNumber)

	cmd := exec.CommandContext(ctx, r.command, args...)
	cmd.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8")

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start call task: %w", err)
	}

	events := make(chan calltask.Event)
	go func() {
		defer close(events)

		stderrDone := make(chan struct{})
		go func() {
			defer close(stderrDone)
			scanner := bufio.NewScanner(stderr)
			scanner.Buffer(make([]byte, scanBufferBytes), scanBufferBytes)
			for scanner.Scan() {
				events <- calltask.Event{Type: calltask.EventStderr, Line: scanner.Text()}
			}
		}()

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, scanBufferBytes), scanBufferBytes)
		for scanner.Scan() {
			events <- calltask.Event{Type: calltask.EventStdout, Line: scanner.Text()}
		}

		<-stderrDone

		exit := calltask.Event{Type: calltask.EventExit}
		if err := cmd.Wait(); err != nil {
			exit.Err = err.Error()
			exit.ExitCode = cmd.ProcessState.ExitCode()
		}
		events <- exit
	}()

	return events, nil
}
