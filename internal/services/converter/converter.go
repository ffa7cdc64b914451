// Package converter runs the external transform that turns one source item
// into a set of artifacts inside a staging directory.
package converter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cogstream/internal/config"
	"cogstream/internal/logging"
	"cogstream/internal/services"
)

// Converter transforms item into artifacts written under outDir and returns
// their paths.
type Converter interface {
	Transform(ctx context.Context, item, outDir string) ([]string, error)
}

// Option configures the command converter.
type Option func(*Command)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(c *Command) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Command runs a configured executable. Args may reference {input},
// {output}, and {name} (the item's base name without extension).
type Command struct {
	binary  string
	args    []string
	timeout time.Duration
	exec    services.Executor
	logger  *slog.Logger
}

// New constructs a command converter.
func New(binary string, args []string, timeoutSeconds int, logger *slog.Logger, opts ...Option) (*Command, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "transform", "init", "converter command required", nil)
	}
	if len(args) == 0 {
		args = []string{"{input}", "{output}"}
	}
	c := &Command{
		binary:  binary,
		args:    append([]string(nil), args...),
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    services.CommandExecutor{},
		logger:  logging.NewComponentLogger(logger, "converter"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig builds the converter described by cfg.
func NewFromConfig(cfg config.Converter, logger *slog.Logger, opts ...Option) (*Command, error) {
	return New(cfg.Command, cfg.Args, cfg.TimeoutSeconds, logger, opts...)
}

// Transform runs the converter for item with outDir as its output.
func (c *Command) Transform(ctx context.Context, item, outDir string) ([]string, error) {
	if strings.TrimSpace(item) == "" {
		return nil, services.Wrap(services.ErrValidation, "transform", "input", "item identifier is empty", nil)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transform", "mkdir", "create output directory", err)
	}
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	base := path.Base(filepath.ToSlash(item))
	args := services.ExpandArgs(c.args, map[string]string{
		"input":  item,
		"output": outDir,
		"name":   strings.TrimSuffix(base, path.Ext(base)),
	})
	tail := services.NewTail(5)
	err := c.exec.Run(runCtx, c.binary, args, func(line string) {
		tail.Add(line)
		c.logger.Debug("converter output", logging.String(logging.FieldItem, item), logging.String("line", line))
	})
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, services.Wrap(services.ErrTimeout, "transform", c.binary, fmt.Sprintf("timed out after %s", c.timeout), err)
		}
		msg := "converter failed"
		if detail := tail.String(); detail != "" {
			msg += ": " + detail
		}
		return nil, services.Wrap(services.ErrExternalTool, "transform", c.binary, msg, err)
	}

	artifacts, err := listFiles(outDir)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "transform", "scan", "list artifacts", err)
	}
	if len(artifacts) == 0 {
		return nil, services.Wrap(services.ErrValidation, "transform", c.binary, "converter produced no artifacts", nil)
	}
	return artifacts, nil
}

func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}
