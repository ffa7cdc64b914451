// Package uploader publishes one artifact set (a local directory) to its
// remote destination.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cogstream/internal/config"
	"cogstream/internal/fileutil"
	"cogstream/internal/logging"
	"cogstream/internal/services"
)

// Uploader copies the contents of srcDir to dest. A nil error means every
// file in srcDir reached dest.
type Uploader interface {
	Publish(ctx context.Context, srcDir, dest string) error
}

// Option configures the command uploader.
type Option func(*Command)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(c *Command) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Command publishes with a configured executable such as `aws s3 sync`.
// Args may reference {src} and {dest}.
type Command struct {
	binary  string
	args    []string
	timeout time.Duration
	exec    services.Executor
	logger  *slog.Logger
}

// NewCommand constructs a command uploader.
func NewCommand(binary string, args []string, timeoutSeconds int, logger *slog.Logger, opts ...Option) (*Command, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "init", "uploader command required", nil)
	}
	if len(args) == 0 {
		args = []string{"{src}", "{dest}"}
	}
	c := &Command{
		binary:  binary,
		args:    append([]string(nil), args...),
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    services.CommandExecutor{},
		logger:  logging.NewComponentLogger(logger, "uploader"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Publish runs the command for one directory.
func (c *Command) Publish(ctx context.Context, srcDir, dest string) error {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	args := services.ExpandArgs(c.args, map[string]string{"src": srcDir, "dest": dest})
	tail := services.NewTail(5)
	err := c.exec.Run(runCtx, c.binary, args, func(line string) {
		tail.Add(line)
		c.logger.Debug("uploader output", logging.String("dest", dest), logging.String("line", line))
	})
	if err == nil {
		return nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "publish", c.binary, fmt.Sprintf("timed out after %s", c.timeout), err)
	}
	msg := "upload to " + dest + " failed"
	if detail := tail.String(); detail != "" {
		msg += ": " + detail
	}
	return services.Wrap(services.ErrExternalTool, "publish", c.binary, msg, err)
}

// Local publishes into a local or mounted directory with verified copies.
type Local struct{}

// Publish copies srcDir into dest, which may be a bare path or a file:// URL.
func (Local) Publish(ctx context.Context, srcDir, dest string) error {
	target := strings.TrimPrefix(dest, "file://")
	if strings.TrimSpace(target) == "" {
		return services.Wrap(services.ErrConfiguration, "publish", "local", "destination is empty", nil)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "publish", "local", "create destination", err)
	}
	if _, err := fileutil.CopyTree(ctx, srcDir, filepath.FromSlash(target)); err != nil {
		return services.Wrap(services.ErrTransient, "publish", "local", "copy to "+target, err)
	}
	return nil
}

// IsLocal reports whether dest names a local path rather than a remote URL.
func IsLocal(dest string) bool {
	dest = strings.TrimSpace(dest)
	if strings.HasPrefix(dest, "file://") {
		return true
	}
	return !strings.Contains(dest, "://")
}

// New picks Local for file:// or bare-path buckets and Command otherwise.
func New(cfg config.Uploader, logger *slog.Logger, opts ...Option) (Uploader, error) {
	if IsLocal(cfg.Bucket) {
		return Local{}, nil
	}
	return NewCommand(cfg.Command, cfg.Args, cfg.TimeoutSeconds, logger, opts...)
}

// Join appends slash-separated segments to a destination root, keeping any
// URL scheme intact. Empty segments are skipped.
func Join(root string, segments ...string) string {
	scheme := ""
	rest := root
	if i := strings.Index(root, "://"); i >= 0 {
		scheme = root[:i+3]
		rest = root[i+3:]
	}
	parts := []string{rest}
	for _, seg := range segments {
		if seg = strings.Trim(seg, "/"); seg != "" {
			parts = append(parts, seg)
		}
	}
	return scheme + path.Join(parts...)
}
