package session_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lewisedginton/wa_gateway/internal/metadata_store"
	"github.com/lewisedginton/wa_gateway/internal/storage_manager"
	"github.com/lewisedginton/wa_gateway/internal/transport"
	"github.com/lewisedginton/wa_gateway/internal/webhook"
	"github.com/lewisedginton/wa_gateway/pkg/logger"
	"github.com/lewisedginton/wa_gateway/pkg/metrics"
)

// DefaultReconnectDelay is the pause before rebuilding a transport after
// a recoverable close.
const DefaultReconnectDelay = 2 * time.Second

// ControllerConfig wires a controller to its collaborators.
type ControllerConfig struct {
	ID   string
	Name string

	Factory transport.Factory
	// Credentials is scoped to this session's credential directory. Its
	// contents are owned by the transport.
	Credentials storage_manager.FileProvider
	Metadata    *metadata_store.Store
	Webhook     *webhook.Dispatcher
	Metrics     *metrics.Metrics
	Logger      logger.Logger

	// ReconnectDelay defaults to DefaultReconnectDelay when zero.
	ReconnectDelay time.Duration
}

// Controller is the per-session state machine. It owns the session's
// transport and its SessionRecord: every mutation happens on the
// controller's single event goroutine, so transitions are never observed
// half-applied. Readers get copies via Snapshot.
type Controller struct {
	cfg    ControllerConfig
	logger logger.Logger

	mu     sync.Mutex
	record SessionRecord
	tr     transport.Transport

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewController builds a controller in Initializing. Start must be called
// before the controller does anything.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Controller{
		cfg:    cfg,
		logger: cfg.Logger.WithFields(logger.SessionIDField(cfg.ID)),
		record: SessionRecord{
			ID:           cfg.ID,
			Name:         cfg.Name,
			Status:       StatusInitializing,
			LastActiveAt: time.Now().UTC(),
		},
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.cfg.ID
}

// Snapshot returns a copy of the current session record.
func (c *Controller) Snapshot() SessionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.record
}

// Start constructs the first transport and launches the event loop. A
// dial failure is returned to the caller; nothing is launched in that
// case.
func (c *Controller) Start(ctx context.Context) error {
	t, err := c.cfg.Factory.Dial(ctx, c.cfg.Credentials)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("failed to construct transport: %w", err)}
	}

	c.mu.Lock()
	c.tr = t
	c.mu.Unlock()

	go c.run()
	return nil
}

// Stop terminates the controller: any pending reconnect timer is
// cancelled first, then the transport is told to close, then the call
// waits for the event loop to exit. Persisted credentials and metadata
// are untouched; deletion is the service's business.
func (c *Controller) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })

	c.mu.Lock()
	t := c.tr
	c.mu.Unlock()
	if t != nil {
		if err := t.Close(ctx); err != nil {
			c.logger.Warn("Transport close failed", logger.ErrorField(err))
		}
	}

	select {
	case <-c.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send forwards an outbound action to the session's transport. Fails with
// ErrNotConnected unless the session is currently connected.
func (c *Controller) Send(ctx context.Context, action transport.Action) error {
	t, err := c.connectedTransport()
	if err != nil {
		return err
	}
	if err := t.Send(ctx, action); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// CheckRecipient asks the transport whether a recipient is registered on
// the network.
func (c *Controller) CheckRecipient(ctx context.Context, recipient string) (bool, error) {
	t, err := c.connectedTransport()
	if err != nil {
		return false, err
	}
	exists, err := t.CheckRecipient(ctx, recipient)
	if err != nil {
		return false, &TransportError{Err: err}
	}
	return exists, nil
}

func (c *Controller) connectedTransport() (transport.Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record.Status != StatusConnected || c.tr == nil {
		return nil, ErrNotConnected
	}
	return c.tr, nil
}

// run is the controller's actor loop. It consumes one transport's event
// stream to exhaustion, then either stops, settles terminal, or rebuilds
// a transport after the reconnect delay and goes around again.
func (c *Controller) run() {
	defer close(c.doneCh)
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Session event loop panicked", logger.Field("panic", r))
			c.transition(func(rec *SessionRecord) {
				rec.Status = StatusDisconnected
				rec.PairingPayload = ""
			})
		}
	}()

	for {
		reason := c.consume()

		if c.stopRequested() {
			return
		}

		if !reason.Recoverable() {
			c.logger.Info("Session logged out, settling terminal")
			c.transition(func(rec *SessionRecord) {
				rec.Status = StatusDisconnected
				rec.PairingPayload = ""
			})
			return
		}

		// Recoverable close: one delayed rebuild with the same
		// credentials. Stop cancels the wait.
		c.transition(func(rec *SessionRecord) {
			rec.Status = StatusInitializing
			rec.PairingPayload = ""
		})
		c.logger.Info("Connection lost, scheduling reconnect",
			logger.StringField("reason", reason.String()),
			logger.DurationField("delay", c.cfg.ReconnectDelay))
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.ReconnectAttemptsCounter.Inc()
		}

		timer := time.NewTimer(c.cfg.ReconnectDelay)
		select {
		case <-timer.C:
		case <-c.stopCh:
			timer.Stop()
			return
		}

		t, err := c.cfg.Factory.Dial(context.Background(), c.cfg.Credentials)
		if err != nil {
			c.logger.Error("Reconnect failed, settling terminal", logger.ErrorField(err))
			c.transition(func(rec *SessionRecord) {
				rec.Status = StatusDisconnected
			})
			return
		}
		c.mu.Lock()
		c.tr = t
		c.mu.Unlock()

		// Stop may have raced the dial and closed only the previous,
		// already-dead transport; a replacement must not outlive the
		// session.
		if c.stopRequested() {
			if cerr := t.Close(context.Background()); cerr != nil {
				c.logger.Warn("Transport close failed", logger.ErrorField(cerr))
			}
			return
		}
	}
}

// consume drains the current transport's event stream, applying each
// event, and returns the close reason once the stream ends. A stream that
// ends without a disconnect event counts as an unclassified close.
func (c *Controller) consume() transport.CloseReason {
	c.mu.Lock()
	t := c.tr
	c.mu.Unlock()

	reason := transport.CloseReasonUnknown
	for ev := range t.Events() {
		switch e := ev.(type) {
		case transport.PairingEvent:
			c.handlePairing(e)
		case transport.ConnectedEvent:
			c.handleConnected(e)
		case transport.MessageEvent:
			c.handleMessage(e)
		case transport.DisconnectedEvent:
			reason = e.Reason
			if e.Err != nil {
				c.logger.Debug("Transport closed", logger.StringField("reason", reason.String()), logger.ErrorField(e.Err))
			}
		}
	}
	return reason
}

func (c *Controller) handlePairing(e transport.PairingEvent) {
	c.transition(func(rec *SessionRecord) {
		rec.Status = StatusAwaitingPairing
		rec.PairingPayload = e.Code
	})
	c.logger.Info("Pairing payload issued")
}

func (c *Controller) handleConnected(e transport.ConnectedEvent) {
	phone := transport.PhoneFromIdentity(e.Identity)
	var firstOpen bool
	c.transition(func(rec *SessionRecord) {
		rec.Status = StatusConnected
		rec.PairingPayload = ""
		rec.LastActiveAt = time.Now().UTC()
		if rec.PhoneIdentifier == "" {
			rec.PhoneIdentifier = phone
			firstOpen = true
		}
	})
	c.logger.Info("Session connected", logger.StringField("phone", phone))

	if firstOpen && c.cfg.Metadata != nil {
		err := c.cfg.Metadata.Save(context.Background(), metadata_store.Record{
			SessionID:       c.cfg.ID,
			PhoneIdentifier: phone,
		})
		if err != nil {
			c.logger.Error("Failed to persist session identity", logger.ErrorField(err))
		}
	}
}

func (c *Controller) handleMessage(e transport.MessageEvent) {
	if e.FromSelf || c.cfg.Webhook == nil {
		return
	}
	c.cfg.Webhook.Notify(c.cfg.ID, "message.received", messagePayload(e))
}

// transition applies a record mutation atomically and keeps the connected
// sessions gauge in step with status changes.
func (c *Controller) transition(apply func(*SessionRecord)) {
	c.mu.Lock()
	before := c.record.Status
	apply(&c.record)
	after := c.record.Status
	c.mu.Unlock()

	if c.cfg.Metrics == nil || before == after {
		return
	}
	if after == StatusConnected {
		c.cfg.Metrics.SessionsConnectedGauge.Inc()
	} else if before == StatusConnected {
		c.cfg.Metrics.SessionsConnectedGauge.Dec()
	}
}

func (c *Controller) stopRequested() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

// messagePayload flattens an inbound message into the webhook's JSON
// shape.
func messagePayload(e transport.MessageEvent) map[string]any {
	payload := map[string]any{
		"sender":    e.Sender,
		"kind":      e.Content.Kind(),
		"timestamp": e.Timestamp,
	}
	switch content := e.Content.(type) {
	case transport.TextContent:
		payload["body"] = content.Body
	case transport.MediaContent:
		payload["mimeType"] = content.MimeType
		payload["url"] = content.URL
		if content.Caption != "" {
			payload["caption"] = content.Caption
		}
	case transport.LocationContent:
		payload["latitude"] = content.Latitude
		payload["longitude"] = content.Longitude
		if content.Name != "" {
			payload["name"] = content.Name
		}
	case transport.ReactionContent:
		payload["targetMessageId"] = content.TargetMessageID
		payload["emoji"] = content.Emoji
	case transport.UnknownContent:
		payload["raw"] = content.Raw
	}
	return payload
}
