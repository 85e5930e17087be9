// Package transporttest provides a scriptable in-memory Transport and
// Factory for exercising session lifecycle logic without a real network.
package transporttest

import (
	"context"
	"sync"

	"github.com/lewisedginton/wa_gateway/internal/storage_manager"
	"github.com/lewisedginton/wa_gateway/internal/transport"
)

// FakeTransport is a Transport whose event stream is driven by the test.
type FakeTransport struct {
	mu     sync.Mutex
	events chan transport.Event
	closed bool

	// SendErr is returned from Send when non-nil.
	SendErr error
	// CheckResult and CheckErr control CheckRecipient.
	CheckResult bool
	CheckErr    error
	// OnClose, when set, is invoked once on Close.
	OnClose func()

	sent    []transport.Action
	checked []string
}

// NewFakeTransport returns a fake with a buffered event stream.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{events: make(chan transport.Event, 16)}
}

// Events implements transport.Transport.
func (f *FakeTransport) Events() <-chan transport.Event {
	return f.events
}

// Send implements transport.Transport, recording the action.
func (f *FakeTransport) Send(_ context.Context, action transport.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return f.SendErr
	}
	f.sent = append(f.sent, action)
	return nil
}

// CheckRecipient implements transport.Transport.
func (f *FakeTransport) CheckRecipient(_ context.Context, recipient string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checked = append(f.checked, recipient)
	return f.CheckResult, f.CheckErr
}

// Close implements transport.Transport. The first call emits a
// DisconnectedEvent with CloseReasonConnectionLost and closes the stream;
// use EmitDisconnect first to end with a different reason.
func (f *FakeTransport) Close(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if f.OnClose != nil {
		f.OnClose()
	}
	f.events <- transport.DisconnectedEvent{Reason: transport.CloseReasonConnectionLost}
	close(f.events)
	return nil
}

// EmitPairing pushes a PairingEvent onto the stream.
func (f *FakeTransport) EmitPairing(code string) {
	f.events <- transport.PairingEvent{Code: code}
}

// EmitConnected pushes a ConnectedEvent onto the stream.
func (f *FakeTransport) EmitConnected(identity string) {
	f.events <- transport.ConnectedEvent{Identity: identity}
}

// EmitMessage pushes a MessageEvent onto the stream.
func (f *FakeTransport) EmitMessage(ev transport.MessageEvent) {
	f.events <- ev
}

// EmitDisconnect ends the transport with the given reason and closes the
// stream. Subsequent Close calls are no-ops.
func (f *FakeTransport) EmitDisconnect(reason transport.CloseReason, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.events <- transport.DisconnectedEvent{Reason: reason, Err: err}
	close(f.events)
}

// Sent returns a copy of the actions dispatched through this transport.
func (f *FakeTransport) Sent() []transport.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]transport.Action, len(f.sent))
	copy(out, f.sent)
	return out
}

// Checked returns the recipients passed to CheckRecipient.
func (f *FakeTransport) Checked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.checked))
	copy(out, f.checked)
	return out
}

// Closed reports whether the transport has ended.
func (f *FakeTransport) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// FakeFactory hands out fake transports and records every dial.
type FakeFactory struct {
	mu sync.Mutex

	// DialErr is returned from Dial when non-nil.
	DialErr error
	// OnDial, when set, is invoked with each new transport before it is
	// returned, letting tests script its event stream.
	OnDial func(*FakeTransport)

	dialed []*FakeTransport
}

// NewFakeFactory returns an empty factory.
func NewFakeFactory() *FakeFactory {
	return &FakeFactory{}
}

// Dial implements transport.Factory.
func (f *FakeFactory) Dial(_ context.Context, _ storage_manager.FileProvider) (transport.Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DialErr != nil {
		return nil, f.DialErr
	}
	t := NewFakeTransport()
	f.dialed = append(f.dialed, t)
	if f.OnDial != nil {
		f.OnDial(t)
	}
	return t, nil
}

// DialCount returns how many transports have been constructed.
func (f *FakeFactory) DialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dialed)
}

// Transport returns the i-th dialed transport.
func (f *FakeFactory) Transport(i int) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dialed[i]
}
