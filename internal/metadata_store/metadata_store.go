// Package metadata_store persists the small descriptive record kept
// alongside each session's credential material.
package metadata_store //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/lewisedginton/wa_gateway/internal/storage_manager"
	"github.com/lewisedginton/wa_gateway/pkg/logger"
)

const metadataFile = "metadata.json"

// Record is the durable metadata for one session.
type Record struct {
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"`
	// PhoneIdentifier is the phone number the session authenticated as.
	// Empty until the first successful connection.
	PhoneIdentifier string    `json:"phone_identifier,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Store reads and writes per-session metadata records underneath a file
// provider. Each session owns one metadata file; writes replace the whole
// file atomically.
type Store struct {
	provider storage_manager.FileProvider
	logger   logger.Logger
}

// New returns a store rooted at the provider's session area.
func New(provider storage_manager.FileProvider, log logger.Logger) *Store {
	return &Store{provider: provider, logger: log}
}

func recordPath(sessionID string) string {
	return path.Join(sessionID, metadataFile)
}

// Load returns the record for a session, or (nil, nil) when none is
// persisted. A corrupt record is reported as an error, not silently
// discarded.
func (s *Store) Load(ctx context.Context, sessionID string) (*Record, error) {
	p := recordPath(sessionID)
	exists, err := s.provider.Exists(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to check metadata existence: %w", err)
	}
	if !exists {
		return nil, nil
	}

	data, err := s.provider.Read(ctx, p)
	if err != nil {
		if errors.Is(err, storage_manager.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse metadata JSON: %w", err)
	}
	if rec.SessionID == "" {
		rec.SessionID = sessionID
	}
	return &rec, nil
}

// Save writes the record, stamping UpdatedAt. CreatedAt is preserved from
// any existing record so repeated saves keep the original creation time.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.SessionID == "" {
		return fmt.Errorf("metadata record has no session id")
	}

	existing, err := s.Load(ctx, rec.SessionID)
	if err != nil {
		s.logger.Warn("Could not load existing metadata before save",
			logger.SessionIDField(rec.SessionID), logger.ErrorField(err))
	}
	if existing != nil {
		if !existing.CreatedAt.IsZero() {
			rec.CreatedAt = existing.CreatedAt
		}
		if rec.PhoneIdentifier == "" {
			rec.PhoneIdentifier = existing.PhoneIdentifier
		}
		if rec.Name == "" {
			rec.Name = existing.Name
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := s.provider.Write(ctx, recordPath(rec.SessionID), data); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// Delete removes the record. Missing records are not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.provider.Delete(ctx, recordPath(sessionID)); err != nil {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}
