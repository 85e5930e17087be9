package session_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"

	"github.com/lewisedginton/wa_gateway/pkg/logger"
)

// Restore reconstructs a controller for every persisted session
// directory. Every restored session starts in the connecting phase; a
// session is never assumed connected until its transport reports a fresh
// open. Directories whose transport cannot even be constructed are
// logged and skipped so one bad session does not block startup.
func (s *Service) Restore(ctx context.Context) error {
	ids, err := s.cfg.Sessions.ListDirs(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to enumerate session directories: %w", err)
	}

	restored := 0
	for _, id := range ids {
		name := "Session " + id
		rec, err := s.cfg.Metadata.Load(ctx, id)
		if err != nil {
			s.logger.Warn("Could not load metadata for persisted session",
				logger.SessionIDField(id), logger.ErrorField(err))
		} else if rec != nil && rec.Name != "" {
			name = rec.Name
		}

		if _, err := s.startController(ctx, id, name); err != nil {
			s.logger.Error("Failed to restore session",
				logger.SessionIDField(id), logger.ErrorField(err))
			continue
		}
		restored++
		s.logger.Info("Session restored",
			logger.SessionIDField(id), logger.StringField("name", name))
	}

	s.logger.Info("Session restoration finished",
		logger.IntField("found", len(ids)), logger.IntField("restored", restored))
	return nil
}
