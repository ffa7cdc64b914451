package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cogstream/internal/config"
)

const userAgent = "cogstream/0.1"

// Summary is the outcome of one run as reported in a completion notice.
type Summary struct {
	Signature string
	Pending   int
	Published int
	Failed    int
	Cancelled bool
	Elapsed   time.Duration
}

// Notifier sends run notices.
type Notifier interface {
	RunCompleted(ctx context.Context, s Summary) error
	RunFailed(ctx context.Context, signature string, err error) error
	Test(ctx context.Context) error
}

// New builds an ntfy notifier, or a no-op one when no topic is set.
func New(cfg config.Notifications) Notifier {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noop{}
	}
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfy{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfy struct {
	endpoint string
	client   *http.Client
}

func (n *ntfy) RunCompleted(ctx context.Context, s Summary) error {
	msg := message{
		title: "cogstream - " + s.Signature,
		body: fmt.Sprintf("Published %d of %d pending items (%d failed) in %s",
			s.Published, s.Pending, s.Failed, s.Elapsed.Round(time.Second)),
		tags: []string{"cogstream", "completed"},
	}
	switch {
	case s.Cancelled:
		msg.body = "Cancelled. " + msg.body
		msg.tags = []string{"cogstream", "cancelled"}
	case s.Failed > 0:
		msg.tags = []string{"cogstream", "warning"}
		msg.priority = "high"
	}
	return n.send(ctx, msg)
}

func (n *ntfy) RunFailed(ctx context.Context, signature string, err error) error {
	detail := "unknown error"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	return n.send(ctx, message{
		title:    "cogstream - " + signature + " failed",
		body:     detail,
		tags:     []string{"cogstream", "error"},
		priority: "high",
	})
}

func (n *ntfy) Test(ctx context.Context) error {
	return n.send(ctx, message{
		title:    "cogstream - test",
		body:     "Notification test",
		tags:     []string{"cogstream", "test"},
		priority: "low",
	})
}

func (n *ntfy) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noop struct{}

func (noop) RunCompleted(context.Context, Summary) error    { return nil }
func (noop) RunFailed(context.Context, string, error) error { return nil }
func (noop) Test(context.Context) error                     { return nil }
