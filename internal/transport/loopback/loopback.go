// Package loopback implements an in-process transport for development and
// demos. It goes through the full lifecycle a real provider would: it
// issues a pairing payload, reports an open with a synthetic identity,
// echoes every inbound-capable send back as a received message, and
// persists a small credential marker so restored sessions skip pairing.
package loopback

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lewisedginton/wa_gateway/internal/storage_manager"
	"github.com/lewisedginton/wa_gateway/internal/transport"
)

const credsFile = "loopback.json"

type creds struct {
	Identity string    `json:"identity"`
	PairedAt time.Time `json:"paired_at"`
}

// Factory builds loopback transports.
type Factory struct {
	// PairingDelay is how long a fresh session waits in pairing before
	// the loopback "scan" completes on its own.
	PairingDelay time.Duration
	// Echo controls whether sends are reflected back as inbound messages.
	Echo bool
}

// NewFactory returns a factory with a short self-completing pairing phase.
func NewFactory() *Factory {
	return &Factory{PairingDelay: 3 * time.Second, Echo: true}
}

// Dial implements transport.Factory.
func (f *Factory) Dial(ctx context.Context, store storage_manager.FileProvider) (transport.Transport, error) {
	t := &loopbackTransport{
		factory: f,
		store:   store,
		events:  make(chan transport.Event, 16),
		closed:  make(chan struct{}),
	}
	go t.connect(ctx)
	return t, nil
}

type loopbackTransport struct {
	factory *Factory
	store   storage_manager.FileProvider
	events  chan transport.Event

	mu       sync.Mutex
	identity string
	closed   chan struct{}
	done     bool
}

func (t *loopbackTransport) Events() <-chan transport.Event {
	return t.events
}

// connect replays persisted credentials, or runs a synthetic pairing
// phase for a session that has never linked.
func (t *loopbackTransport) connect(ctx context.Context) {
	c, err := t.loadCreds(ctx)
	if err != nil || c == nil {
		code := uuid.NewString()
		t.emit(transport.PairingEvent{Code: code})

		select {
		case <-time.After(t.factory.PairingDelay):
		case <-t.closed:
			return
		}

		c = &creds{
			Identity: fmt.Sprintf("%d:1@s.whatsapp.net", time.Now().UnixNano()%1e12),
			PairedAt: time.Now().UTC(),
		}
		if err := t.saveCreds(ctx, c); err != nil {
			t.finish(transport.CloseReasonUnknown, err)
			return
		}
	}

	t.mu.Lock()
	t.identity = c.Identity
	t.mu.Unlock()
	t.emit(transport.ConnectedEvent{Identity: c.Identity})
}

func (t *loopbackTransport) Send(ctx context.Context, action transport.Action) error {
	select {
	case <-t.closed:
		return fmt.Errorf("transport is closed")
	default:
	}

	if !t.factory.Echo || !action.CountsAsSend() {
		return nil
	}

	var content transport.Content
	switch a := action.(type) {
	case transport.TextAction:
		content = transport.TextContent{Body: a.Body}
	case transport.MediaAction:
		content = transport.MediaContent{Media: a.Media, MimeType: a.MimeType, Caption: a.Caption, URL: a.URL}
	case transport.LocationAction:
		content = transport.LocationContent{Latitude: a.Latitude, Longitude: a.Longitude, Name: a.Name}
	case transport.ReactionAction:
		content = transport.ReactionContent{TargetMessageID: a.MessageID, Emoji: a.Emoji}
	default:
		return nil
	}

	t.mu.Lock()
	sender := t.identity
	t.mu.Unlock()
	t.emit(transport.MessageEvent{
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (t *loopbackTransport) CheckRecipient(ctx context.Context, recipient string) (bool, error) {
	select {
	case <-t.closed:
		return false, fmt.Errorf("transport is closed")
	default:
		return true, nil
	}
}

func (t *loopbackTransport) Close(ctx context.Context) error {
	t.finish(transport.CloseReasonConnectionLost, nil)
	return nil
}

func (t *loopbackTransport) emit(ev transport.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	select {
	case t.events <- ev:
	default:
		// A full buffer means nobody is consuming; drop rather than wedge.
	}
}

func (t *loopbackTransport) finish(reason transport.CloseReason, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	close(t.closed)
	select {
	case t.events <- transport.DisconnectedEvent{Reason: reason, Err: err}:
	default:
	}
	close(t.events)
}

func (t *loopbackTransport) loadCreds(ctx context.Context) (*creds, error) {
	exists, err := t.store.Exists(ctx, credsFile)
	if err != nil || !exists {
		return nil, err
	}
	data, err := t.store.Read(ctx, credsFile)
	if err != nil {
		return nil, err
	}
	var c creds
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.Identity == "" {
		return nil, nil
	}
	return &c, nil
}

func (t *loopbackTransport) saveCreds(ctx context.Context, c *creds) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return t.store.Write(ctx, credsFile, data)
}
