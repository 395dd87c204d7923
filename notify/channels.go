package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/emberloop/ember/domain"
	"github.com/emberloop/ember/telemetry"
)

// LogChannel writes deliveries to the structured log. It is the development
// sink and the fallback when no real transport is configured.
type LogChannel struct {
	id      string
	typ     domain.ReminderChannel
	logger  telemetry.Logger
	enabled atomic.Bool
}

// NewLogChannel builds a LogChannel posing as the given transport class.
func NewLogChannel(id string, typ domain.ReminderChannel, logger telemetry.Logger) *LogChannel {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	ch := &LogChannel{id: id, typ: typ, logger: logger}
	ch.enabled.Store(true)
	return ch
}

func (c *LogChannel) ID() string                   { return c.id }
func (c *LogChannel) Type() domain.ReminderChannel { return c.typ }
func (c *LogChannel) IsEnabled() bool              { return c.enabled.Load() }

// SetEnabled toggles the channel.
func (c *LogChannel) SetEnabled(v bool) { c.enabled.Store(v) }

// Send logs the message.
func (c *LogChannel) Send(ctx context.Context, msg Message) error {
	c.logger.Info(ctx, "reminder delivered",
		"channel", c.id,
		"reminder", msg.ReminderID,
		"user", msg.UserID,
		"tone", string(msg.Tone),
		"variant", string(msg.Variant),
		"title", msg.Title)
	return nil
}

// Test always succeeds.
func (c *LogChannel) Test(ctx context.Context) error { return nil }

// WebhookChannel posts deliveries as JSON to a fixed URL. Push and sms sinks
// in front of a gateway both use this shape.
type WebhookChannel struct {
	id      string
	typ     domain.ReminderChannel
	url     string
	client  *http.Client
	enabled atomic.Bool
}

// NewWebhookChannel builds a WebhookChannel. A nil client falls back to
// http.DefaultClient; callers that need timeouts pass their own.
func NewWebhookChannel(id string, typ domain.ReminderChannel, url string, client *http.Client) (*WebhookChannel, error) {
	if url == "" {
		return nil, domain.NewError(domain.KindValidation, "webhook channel requires a url")
	}
	if client == nil {
		client = http.DefaultClient
	}
	ch := &WebhookChannel{id: id, typ: typ, url: url, client: client}
	ch.enabled.Store(true)
	return ch, nil
}

func (c *WebhookChannel) ID() string                   { return c.id }
func (c *WebhookChannel) Type() domain.ReminderChannel { return c.typ }
func (c *WebhookChannel) IsEnabled() bool              { return c.enabled.Load() }

// SetEnabled toggles the channel.
func (c *WebhookChannel) SetEnabled(v bool) { c.enabled.Store(v) }

// Send posts the message as JSON.
func (c *WebhookChannel) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return domain.WrapError(domain.KindValidation, err, "encode notification")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.WrapError(domain.KindBackend, err, "build notification request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return domain.WrapError(domain.KindBackend, err, "deliver notification")
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return domain.NewError(domain.KindBackend, "notification sink returned %s", resp.Status)
	}
	return nil
}

// Test sends a HEAD request to the sink.
func (c *WebhookChannel) Test(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return domain.WrapError(domain.KindBackend, err, "build probe request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return domain.WrapError(domain.KindBackend, err, "probe notification sink")
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return domain.NewError(domain.KindBackend, "notification sink probe returned %s", resp.Status)
	}
	return nil
}
