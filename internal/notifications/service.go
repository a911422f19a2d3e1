package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wavecatch/internal/config"
)

const (
	userAgent      = "wavecatch/0.1.0"
	defaultTimeout = 10 * time.Second
)

// Service defines the notification surface used by the registry and CLI.
type Service interface {
	NotifyJobCompleted(ctx context.Context, title, outputDir string, items int) error
	NotifyJobFailed(ctx context.Context, title, message string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		completed: cfg.Notifications.JobCompleted,
		failed:    cfg.Notifications.JobFailed,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	completed bool
	failed    bool
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, title, outputDir string, items int) error {
	if !n.completed {
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Download"
	}
	message := fmt.Sprintf("🎵 Download complete: %s", title)
	if items > 1 {
		message = fmt.Sprintf("🎵 Download complete: %s (%d items)", title, items)
	}
	if outputDir = strings.TrimSpace(outputDir); outputDir != "" {
		message = fmt.Sprintf("%s\nSaved to: %s", message, outputDir)
	}
	return n.send(ctx, payload{
		title:   "wavecatch - Download Complete",
		message: message,
		tags:    []string{"wavecatch", "download", "completed"},
	})
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, title, message string) error {
	if !n.failed {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Download failed")
	if title = strings.TrimSpace(title); title != "" {
		builder.WriteString(": ")
		builder.WriteString(title)
	}
	if message = strings.TrimSpace(message); message != "" {
		builder.WriteByte('\n')
		builder.WriteString(message)
	}
	return n.send(ctx, payload{
		title:    "wavecatch - Download Failed",
		message:  builder.String(),
		tags:     []string{"wavecatch", "download", "error"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "wavecatch - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"wavecatch", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
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

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, string, int) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
