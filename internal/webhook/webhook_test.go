package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/wa_gateway/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func TestDispatcher_DeliversNotification(t *testing.T) {
	var mu sync.Mutex
	var received []Notification

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var n Notification
		require.NoError(t, json.NewDecoder(r.Body).Decode(&n))
		mu.Lock()
		received = append(received, n)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(Config{URL: srv.URL, Logger: testLogger()})
	d.Notify("wa-abc", "message.received", map[string]string{"body": "hi"})
	d.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "wa-abc", received[0].SessionID)
	assert.Equal(t, "message.received", received[0].EventKind)
}

func TestDispatcher_DisabledWithoutURL(t *testing.T) {
	d := New(Config{Logger: testLogger()})
	assert.False(t, d.Enabled())

	// Must not panic or block.
	d.Notify("wa-abc", "session.connected", nil)
	d.Wait()
}

func TestDispatcher_FailureDoesNotBlockCaller(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := New(Config{URL: srv.URL, Logger: testLogger()})

	done := make(chan struct{})
	go func() {
		d.Notify("wa-abc", "session.disconnected", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a failing endpoint")
	}
	d.Wait()
}
