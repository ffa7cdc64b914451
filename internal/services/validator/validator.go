// Package validator runs the external check that decides whether one
// converted artifact is well formed.
package validator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cogstream/internal/config"
	"cogstream/internal/logging"
	"cogstream/internal/services"
)

// Validator checks a single artifact file.
type Validator interface {
	Validate(ctx context.Context, path string) error
}

// Option configures the command validator.
type Option func(*Command)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(c *Command) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Command runs a configured executable once per artifact. A zero exit
// status means the artifact is valid. Args may reference {path}.
type Command struct {
	binary  string
	args    []string
	timeout time.Duration
	exec    services.Executor
	logger  *slog.Logger
}

// New constructs a command validator.
func New(binary string, args []string, timeoutSeconds int, logger *slog.Logger, opts ...Option) (*Command, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "verify", "init", "validator command required", nil)
	}
	if len(args) == 0 {
		args = []string{"{path}"}
	}
	c := &Command{
		binary:  binary,
		args:    append([]string(nil), args...),
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    services.CommandExecutor{},
		logger:  logging.NewComponentLogger(logger, "validator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig builds the validator described by cfg.
func NewFromConfig(cfg config.Validator, logger *slog.Logger, opts ...Option) (*Command, error) {
	return New(cfg.Command, cfg.Args, cfg.TimeoutSeconds, logger, opts...)
}

// Validate runs the validator against path. A failing check is reported as
// ErrValidation carrying the tail of the tool's output.
func (c *Command) Validate(ctx context.Context, path string) error {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := services.ExpandArgs(c.args, map[string]string{"path": path})
	tail := services.NewTail(3)
	err := c.exec.Run(runCtx, c.binary, args, func(line string) {
		tail.Add(line)
		c.logger.Debug("validator output", logging.String("path", path), logging.String("line", line))
	})
	if err == nil {
		return nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "verify", c.binary, fmt.Sprintf("timed out after %s", c.timeout), err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	msg := "artifact failed validation"
	if detail := tail.String(); detail != "" {
		msg += ": " + detail
	}
	return services.Wrap(services.ErrValidation, "verify", c.binary, msg, err)
}
