package session_manager

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lewisedginton/wa_gateway/internal/transport/transporttest"
	"github.com/lewisedginton/wa_gateway/pkg/logger"
)

func newIdleController(id string) *Controller {
	return NewController(ControllerConfig{
		ID:      id,
		Name:    "Session " + id,
		Factory: transporttest.NewFakeFactory(),
		Logger:  logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Output: io.Discard}),
	})
}

func TestRegistry_InsertRejectsDuplicateID(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Insert(newIdleController("wa-one")))
	assert.False(t, r.Insert(newIdleController("wa-one")), "one controller owns an id at a time")
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ListIsSortedByID(t *testing.T) {
	r := NewRegistry()
	r.Insert(newIdleController("wa-ccc"))
	r.Insert(newIdleController("wa-aaa"))
	r.Insert(newIdleController("wa-bbb"))

	var ids []string
	for _, c := range r.List() {
		ids = append(ids, c.ID())
	}
	assert.Equal(t, []string{"wa-aaa", "wa-bbb", "wa-ccc"}, ids)
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	r.Insert(newIdleController("wa-one"))

	removed := r.Remove("wa-one")
	assert.NotNil(t, removed)
	assert.Nil(t, r.Get("wa-one"))
	assert.Nil(t, r.Remove("wa-one"))
}
