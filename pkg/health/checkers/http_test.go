package checkers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPCheckerHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPChecker(srv.URL, "upstream")
	assert.Equal(t, "upstream", c.Name())
	assert.NoError(t, c.Check(context.Background()))
}

func TestHTTPCheckerServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPChecker(srv.URL, "")
	assert.Equal(t, srv.URL, c.Name())
	assert.Error(t, c.Check(context.Background()))
}

func TestHTTPCheckerUnreachable(t *testing.T) {
	c := NewHTTPChecker("http://127.0.0.1:1", "dead")
	assert.Error(t, c.Check(context.Background()))
}
