package mapreduce

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// CommandResult is what CommandMapper emits for every task: whether the
// external tool signalled success, plus its captured output streams.
type CommandResult struct {
	Success bool   `json:"success"`
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
}

const (
	commandSuccessMark = "__mapred.command.success__"
	commandFailMark    = "__mapred.command.fail__"
)

var (
	commandMu     sync.RWMutex
	commandBinary = "sh"
	commandArgs   = []string{"-s"}
)

func init() {
	MustRegisterMapper("command", func() Mapper { return &CommandMapper{} })
}

// SetCommand configures the binary and arguments the command mapper starts
// for every task. Call it before the worker begins serving tasks.
func SetCommand(binary string, args ...string) {
	commandMu.Lock()
	defer commandMu.Unlock()
	commandBinary = binary
	commandArgs = args
}

// CommandMapper runs an external tool once per task, feeding a script built
// from the task on stdin. Starting a process per task carries a fixed
// overhead, so it only pays off for tasks that run longer than that.
//
// A success or failure sentinel printed on stderr decides the outcome; the
// emitted value carries the sentinel verdict and both output streams so the
// reducer can inspect them.
type CommandMapper struct{}

// MakeScript builds the script piped to the tool's stdin. The default turns
// the task value into a shell command line; embed CommandMapper and override
// it for anything less trivial.
func (CommandMapper) MakeScript(key string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("command mapper expects a string value, got %T", value)
	}
	return s, nil
}

// Map runs the configured tool and emits (key, CommandResult).
func (m *CommandMapper) Map(key string, value any, emit Emitter) error {
	script, err := m.MakeScript(key, value)
	if err != nil {
		return err
	}

	commandMu.RLock()
	binary, args := commandBinary, commandArgs
	commandMu.RUnlock()

	cmd := exec.Command(binary, args...)
	cmd.Stdin = strings.NewReader(wrapScript(script))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return fmt.Errorf("start %s: %w", binary, err)
		}
	}

	emit(key, CommandResult{
		Success: strings.HasSuffix(strings.TrimSpace(stderr.String()), commandSuccessMark),
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	})
	return nil
}

// wrapScript appends the sentinel logic: the success mark is printed on
// stderr only if the script exits cleanly.
func wrapScript(script string) string {
	return strings.Join([]string{
		"if { " + script + " ; }",
		"then printf '%s' '" + commandSuccessMark + "' >&2",
		"else printf '%s' '" + commandFailMark + "' >&2",
		"fi",
	}, "\n")
}
