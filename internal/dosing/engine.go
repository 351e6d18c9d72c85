// Package dosing triggers the external dosing engine and routes bolus
// confirmation requests.
package dosing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrNoCommand is returned when a CommandEngine has nothing to run
var ErrNoCommand = errors.New("no loop command configured")

// Engine recalculates insulin delivery
type Engine interface {
	DetermineBasal(ctx context.Context) error
}

// CommandEngine runs an external loop command, e.g. an openaps or
// oref0 wrapper script, and waits for it to exit.
type CommandEngine struct {
	command string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCommandEngine creates an engine for command. A non-positive timeout disables it.
func NewCommandEngine(command string, timeout time.Duration) *CommandEngine {
	return &CommandEngine{
		command: command,
		timeout: timeout,
		logger:  slog.Default(),
	}
}

// WithLogger sets the logger used for command output
func (e *CommandEngine) WithLogger(logger *slog.Logger) *CommandEngine {
	e.logger = logger
	return e
}

// DetermineBasal runs the command once
func (e *CommandEngine) DetermineBasal(ctx context.Context) error {
	args := strings.Fields(e.command)
	if len(args) == 0 {
		return ErrNoCommand
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	//nolint:gosec // The command comes from the user's own settings file
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("loop command %q: %w", args[0], ctx.Err())
		}
		return fmt.Errorf("loop command %q: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}

	e.logger.Debug("loop command finished", "command", args[0], "duration", time.Since(start))
	return nil
}

// LogEngine only logs recalculation requests. It is used when no loop
// command is configured.
type LogEngine struct {
	Logger *slog.Logger
}

// DetermineBasal logs the request
func (e LogEngine) DetermineBasal(ctx context.Context) error {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "dosing recalculation requested")
	return nil
}
