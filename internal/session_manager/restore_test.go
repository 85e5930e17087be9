package session_manager

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/wa_gateway/internal/metadata_store"
	"github.com/lewisedginton/wa_gateway/internal/stats"
	"github.com/lewisedginton/wa_gateway/internal/storage_manager"
	"github.com/lewisedginton/wa_gateway/internal/transport"
	"github.com/lewisedginton/wa_gateway/internal/transport/transporttest"
	"github.com/lewisedginton/wa_gateway/internal/webhook"
	"github.com/lewisedginton/wa_gateway/pkg/logger"
)

// seedPersistedSession lays down the on-disk shape a previous process
// would have left behind: a credential blob and, optionally, metadata.
func seedPersistedSession(t *testing.T, sessions storage_manager.FileProvider, id, name string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, sessions.Write(ctx, id+"/creds/creds.json", []byte(`{"opaque":true}`)))
	if name != "" {
		log := logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
		store := metadata_store.New(sessions, log)
		require.NoError(t, store.Save(ctx, metadata_store.Record{SessionID: id, Name: name}))
	}
}

func TestService_RestoreStartsPersistedSessions(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	local := storage_manager.NewLocalFileProvider(root)
	sessions := storage_manager.NewPrefixedFileProvider(local, "sessions")
	log := logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

	seedPersistedSession(t, sessions, "wa-one", "Support line")
	seedPersistedSession(t, sessions, "wa-two", "")

	factory := transporttest.NewFakeFactory()
	svc, err := NewService(ServiceConfig{
		Sessions: sessions,
		Factory:  factory,
		Metadata: metadata_store.New(sessions, log),
		Stats:    stats.Load(ctx, local, log),
		Logger:   log,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		svc.Shutdown(c)
	})

	require.NoError(t, svc.Restore(ctx))
	assert.Equal(t, 2, factory.DialCount())

	one, err := svc.Get("wa-one")
	require.NoError(t, err)
	assert.Equal(t, "Support line", one.Name)
	assert.Equal(t, "connecting", one.Status, "never connected before a fresh open")

	two, err := svc.Get("wa-two")
	require.NoError(t, err)
	assert.Equal(t, "Session wa-two", two.Name, "name falls back when metadata is missing")

	// A fresh open flips exactly the session whose transport reported it.
	factory.Transport(0).EmitConnected("22799123456:1@s.whatsapp.net")
	require.Eventually(t, func() bool {
		got, _ := svc.Get("wa-one")
		return got.Status == "connected"
	}, 2*time.Second, 5*time.Millisecond)
	two, _ = svc.Get("wa-two")
	assert.Equal(t, "connecting", two.Status)
}

func TestService_RestoreSkipsUndialableSession(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	local := storage_manager.NewLocalFileProvider(root)
	sessions := storage_manager.NewPrefixedFileProvider(local, "sessions")
	log := logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

	seedPersistedSession(t, sessions, "wa-bad", "Broken")

	factory := transporttest.NewFakeFactory()
	factory.DialErr = assert.AnError
	svc, err := NewService(ServiceConfig{
		Sessions: sessions,
		Factory:  factory,
		Metadata: metadata_store.New(sessions, log),
		Stats:    stats.Load(ctx, local, log),
		Logger:   log,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Restore(ctx))
	assert.Empty(t, svc.List())
	_, getErr := svc.Get("wa-bad")
	assert.ErrorIs(t, getErr, ErrNotFound)
}

func TestController_ForwardsInboundMessagesToWebhook(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	local := storage_manager.NewLocalFileProvider(root)
	sessions := storage_manager.NewPrefixedFileProvider(local, "sessions")
	log := logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Output: io.Discard})

	var mu sync.Mutex
	var notifications []webhook.Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n webhook.Notification
		require.NoError(t, json.NewDecoder(r.Body).Decode(&n))
		mu.Lock()
		notifications = append(notifications, n)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dispatcher := webhook.New(webhook.Config{URL: srv.URL, Logger: log})
	factory := transporttest.NewFakeFactory()
	svc, err := NewService(ServiceConfig{
		Sessions: sessions,
		Factory:  factory,
		Metadata: metadata_store.New(sessions, log),
		Stats:    stats.Load(ctx, local, log),
		Webhook:  dispatcher,
		Logger:   log,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		svc.Shutdown(c)
	})

	rec, err := svc.Create(ctx, "Bot1")
	require.NoError(t, err)
	tr := factory.Transport(0)
	tr.EmitConnected("22799123456:1@s.whatsapp.net")

	// Own-device messages must not loop back to the webhook.
	tr.EmitMessage(transport.MessageEvent{
		Sender:   "22799123456@s.whatsapp.net",
		FromSelf: true,
		Content:  transport.TextContent{Body: "from my other device"},
	})
	tr.EmitMessage(transport.MessageEvent{
		Sender:  "33611309743@s.whatsapp.net",
		Content: transport.TextContent{Body: "hello"},
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(notifications) == 1
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	n := notifications[0]
	assert.Equal(t, rec.ID, n.SessionID)
	assert.Equal(t, "message.received", n.EventKind)
	data, ok := n.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", data["body"])
	assert.Equal(t, "text", data["kind"])
	assert.Equal(t, "33611309743@s.whatsapp.net", data["sender"])
}
