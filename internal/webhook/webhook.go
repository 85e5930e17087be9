// Package webhook delivers session event notifications to a configured
// external HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lewisedginton/wa_gateway/pkg/logger"
	"github.com/lewisedginton/wa_gateway/pkg/metrics"
)

const defaultTimeout = 10 * time.Second

// Notification is the payload POSTed to the webhook endpoint.
type Notification struct {
	SessionID string `json:"sessionId"`
	EventKind string `json:"eventKind"`
	Data      any    `json:"data"`
}

// Dispatcher posts notifications to a single configured URL. Delivery is
// fire-and-forget: a failed or slow webhook never blocks session
// processing, it is logged and counted instead.
type Dispatcher struct {
	url     string
	client  *http.Client
	logger  logger.Logger
	metrics *metrics.Metrics

	wg sync.WaitGroup
}

// Config configures a Dispatcher.
type Config struct {
	// URL is the webhook endpoint. Empty disables delivery entirely.
	URL string
	// Timeout bounds each delivery attempt. Zero means the default.
	Timeout time.Duration
	Logger  logger.Logger
	Metrics *metrics.Metrics
}

// New creates a dispatcher. A dispatcher with an empty URL is valid and
// drops every notification.
func New(cfg Config) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		url:     cfg.URL,
		client:  &http.Client{Timeout: timeout},
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Enabled reports whether a webhook URL is configured.
func (d *Dispatcher) Enabled() bool {
	return d.url != ""
}

// Notify delivers a notification asynchronously. It returns immediately;
// the POST happens on a background goroutine.
func (d *Dispatcher) Notify(sessionID, eventKind string, data any) {
	if !d.Enabled() {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(Notification{SessionID: sessionID, EventKind: eventKind, Data: data})
	}()
}

// Wait blocks until all in-flight deliveries have finished. Used on
// shutdown and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(n Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		d.fail(n, fmt.Errorf("failed to marshal notification: %w", err))
		return
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		d.fail(n, fmt.Errorf("failed to build webhook request: %w", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.fail(n, err)
		return
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.fail(n, fmt.Errorf("webhook returned status %d", resp.StatusCode))
		return
	}

	if d.metrics != nil {
		d.metrics.WebhookDeliveriesCounter.WithLabelValues("success").Inc()
	}
	d.logger.Debug("Webhook delivered",
		logger.SessionIDField(n.SessionID),
		logger.StringField("event_kind", n.EventKind))
}

func (d *Dispatcher) fail(n Notification, err error) {
	if d.metrics != nil {
		d.metrics.WebhookDeliveriesCounter.WithLabelValues("failure").Inc()
	}
	d.logger.Warn("Webhook delivery failed",
		logger.SessionIDField(n.SessionID),
		logger.StringField("event_kind", n.EventKind),
		logger.ErrorField(err))
}
