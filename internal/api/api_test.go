package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/wa_gateway/internal/metadata_store"
	"github.com/lewisedginton/wa_gateway/internal/session_manager"
	"github.com/lewisedginton/wa_gateway/internal/stats"
	"github.com/lewisedginton/wa_gateway/internal/storage_manager"
	"github.com/lewisedginton/wa_gateway/internal/transport/transporttest"
	"github.com/lewisedginton/wa_gateway/pkg/logger"
)

type apiEnv struct {
	router  http.Handler
	service *session_manager.Service
	factory *transporttest.FakeFactory
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	local := storage_manager.NewLocalFileProvider(t.TempDir())
	sessions := storage_manager.NewPrefixedFileProvider(local, "sessions")
	log := logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	factory := transporttest.NewFakeFactory()

	svc, err := session_manager.NewService(session_manager.ServiceConfig{
		Sessions: sessions,
		Factory:  factory,
		Metadata: metadata_store.New(sessions, log),
		Stats:    stats.Load(context.Background(), local, log),
		Logger:   log,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		svc.Shutdown(ctx)
	})

	return &apiEnv{
		router:  NewHandler(svc, log).Routes(),
		service: svc,
		factory: factory,
	}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) createConnectedSession(t *testing.T) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/sessions", map[string]string{"name": "Bot1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created session_manager.PublicSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	e.factory.Transport(e.factory.DialCount() - 1).EmitConnected("22799123456:1@s.whatsapp.net")
	require.Eventually(t, func() bool {
		got, err := e.service.Get(created.ID)
		return err == nil && got.Status == "connected"
	}, 2*time.Second, 5*time.Millisecond)
	return created.ID
}

func TestAPI_CreateAndGetSession(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/sessions", map[string]string{"name": "Bot1"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created session_manager.PublicSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Bot1", created.Name)
	assert.Equal(t, "connecting", created.Status)

	rec = env.do(t, http.MethodGet, "/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// List is a bare array, not an object wrapper.
	rec = env.do(t, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []session_manager.PublicSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestAPI_GetUnknownSessionIs404(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/sessions/wa-missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_QREndpoint(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/sessions", map[string]string{"name": "Bot1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created session_manager.PublicSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// No payload yet.
	rec = env.do(t, http.MethodGet, "/sessions/"+created.ID+"/qr", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	env.factory.Transport(0).EmitPairing("pairing-code")
	require.Eventually(t, func() bool {
		got, _ := env.service.Get(created.ID)
		return got.PairingPayload != ""
	}, 2*time.Second, 5*time.Millisecond)

	rec = env.do(t, http.MethodGet, "/sessions/"+created.ID+"/qr", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG", rec.Body.String()[:4])
}

func TestAPI_DispatchTextAction(t *testing.T) {
	env := newAPIEnv(t)
	id := env.createConnectedSession(t)

	rec := env.do(t, http.MethodPost, "/sessions/"+id+"/messages", map[string]any{
		"kind":      "text",
		"recipient": "+33 611 309 743",
		"body":      "hello",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var snap struct {
		TotalMessagesSent int64 `json:"totalMessagesSent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, int64(1), snap.TotalMessagesSent)
}

func TestAPI_DispatchErrors(t *testing.T) {
	env := newAPIEnv(t)

	// Not found.
	rec := env.do(t, http.MethodPost, "/sessions/wa-missing/messages", map[string]any{
		"kind": "text", "recipient": "33611309743", "body": "hi",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Not connected.
	create := env.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, create.Code)
	var created session_manager.PublicSession
	require.NoError(t, json.Unmarshal(create.Body.Bytes(), &created))

	rec = env.do(t, http.MethodPost, "/sessions/"+created.ID+"/messages", map[string]any{
		"kind": "text", "recipient": "33611309743", "body": "hi",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Validation.
	rec = env.do(t, http.MethodPost, "/sessions/"+created.ID+"/messages", map[string]any{
		"kind": "text", "recipient": "???", "body": "hi",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown kind.
	rec = env.do(t, http.MethodPost, "/sessions/"+created.ID+"/messages", map[string]any{
		"kind": "carrier-pigeon", "recipient": "33611309743",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_TransportFailureIs502(t *testing.T) {
	env := newAPIEnv(t)
	id := env.createConnectedSession(t)
	env.factory.Transport(0).SendErr = assert.AnError

	rec := env.do(t, http.MethodPost, "/sessions/"+id+"/messages", map[string]any{
		"kind": "text", "recipient": "33611309743", "body": "hi",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAPI_LegacySendMessage(t *testing.T) {
	env := newAPIEnv(t)
	id := env.createConnectedSession(t)

	rec := env.do(t, http.MethodPost, "/send-message", map[string]string{
		"sessionId": id,
		"number":    "33611309743",
		"message":   "hello from the old shape",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	sent := env.factory.Transport(0).Sent()
	require.Len(t, sent, 1)
}

func TestAPI_CheckRecipient(t *testing.T) {
	env := newAPIEnv(t)
	id := env.createConnectedSession(t)
	env.factory.Transport(0).CheckResult = true

	rec := env.do(t, http.MethodPost, "/sessions/"+id+"/check", map[string]string{"recipient": "33611309743"})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Exists bool `json:"exists"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Exists)
}

func TestAPI_DeleteSession(t *testing.T) {
	env := newAPIEnv(t)
	id := env.createConnectedSession(t)

	rec := env.do(t, http.MethodDelete, "/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
