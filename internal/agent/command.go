package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/teemow/calendar-mcp/internal/logging"
)

type commandRunner struct {
	name   string
	args   []string
	logger *slog.Logger
}

// NewCommandDelegate runs command once per request. The JSON-encoded inputs
// are appended as the last argument and also written to stdin. The trimmed
// stdout is the result.
func NewCommandDelegate(command string, opts ...Option) (Delegate, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("agent command is required")
	}
	d := newDelegate(nil, opts...)
	d.runner = &commandRunner{name: fields[0], args: fields[1:], logger: d.logger}
	return d, nil
}

func (r *commandRunner) run(ctx context.Context, in Inputs) (string, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return "", err
	}

	args := append(append([]string{}, r.args...), string(payload))
	cmd := exec.CommandContext(ctx, r.name, args...)

	var stdout bytes.Buffer
	stderr := logging.NewLineWriter(r.logger, slog.LevelInfo, "agent crew output")
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	err = cmd.Run()
	stderr.Flush()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("crew command %s: %w", r.name, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("crew command %s exited with code %d", r.name, exitErr.ExitCode())
		}
		return "", fmt.Errorf("crew command %s: %w", r.name, err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
