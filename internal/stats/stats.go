// Package stats maintains the gateway's durable message counters.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lewisedginton/wa_gateway/internal/storage_manager"
	"github.com/lewisedginton/wa_gateway/pkg/logger"
)

const statsFile = "stats.json"

// Snapshot is the externally visible view of the counters.
type Snapshot struct {
	TotalMessagesSent int64     `json:"total_messages_sent"`
	StartTime         time.Time `json:"start_time"`
}

// Counter tracks the total number of messages sent across every session,
// surviving restarts. All mutation goes through a single mutex so
// concurrent sends never lose an increment.
type Counter struct {
	mu       sync.Mutex
	current  Snapshot
	provider storage_manager.FileProvider
	logger   logger.Logger
}

// Load reads the persisted counters, or initializes fresh ones when none
// exist. StartTime is preserved across restarts; it only resets when the
// stats file is missing or unreadable.
func Load(ctx context.Context, provider storage_manager.FileProvider, log logger.Logger) *Counter {
	c := &Counter{
		current:  Snapshot{StartTime: time.Now().UTC()},
		provider: provider,
		logger:   log,
	}

	exists, err := provider.Exists(ctx, statsFile)
	if err != nil {
		log.Warn("Could not check stats file, starting fresh", logger.ErrorField(err))
		return c
	}
	if !exists {
		log.Info("Stats file does not exist, starting with zero counters")
		return c
	}

	data, err := provider.Read(ctx, statsFile)
	if err != nil {
		log.Warn("Could not read stats file, starting fresh", logger.ErrorField(err))
		return c
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn("Could not parse stats file, starting fresh", logger.ErrorField(err))
		return c
	}
	if snap.StartTime.IsZero() {
		snap.StartTime = c.current.StartTime
	}
	c.current = snap
	return c
}

// IncrementMessagesSent bumps the sent counter by one and persists the
// result. The write happens under the same mutex as the increment, so
// the persisted file always reflects a consistent count.
func (c *Counter) IncrementMessagesSent(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.TotalMessagesSent++
	if err := c.persistLocked(ctx); err != nil {
		c.logger.Error("Failed to persist stats", logger.ErrorField(err))
	}
}

// Snapshot returns a copy of the current counters.
func (c *Counter) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Counter) persistLocked(ctx context.Context) error {
	data, err := json.MarshalIndent(c.current, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}
	if err := c.provider.Write(ctx, statsFile, data); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return nil
}
