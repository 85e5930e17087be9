package session_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/lewisedginton/wa_gateway/internal/metadata_store"
	"github.com/lewisedginton/wa_gateway/internal/stats"
	"github.com/lewisedginton/wa_gateway/internal/storage_manager"
	"github.com/lewisedginton/wa_gateway/internal/transport"
	"github.com/lewisedginton/wa_gateway/internal/webhook"
	"github.com/lewisedginton/wa_gateway/pkg/logger"
	"github.com/lewisedginton/wa_gateway/pkg/metrics"
	"github.com/lewisedginton/wa_gateway/pkg/prefixed_uuid"
)

const (
	sessionIDPrefix = "wa"
	credsDir        = "creds"
)

// ServiceConfig wires the service to its collaborators.
type ServiceConfig struct {
	// Sessions is the file provider rooted at the sessions area; each
	// session owns the subtree <id>/ underneath it.
	Sessions storage_manager.FileProvider
	Factory  transport.Factory
	Metadata *metadata_store.Store
	Stats    *stats.Counter
	Webhook  *webhook.Dispatcher
	Metrics  *metrics.Metrics
	Logger   logger.Logger

	// ReconnectDelay defaults to DefaultReconnectDelay when zero.
	ReconnectDelay time.Duration
}

// Service is the facade the command layer consumes: create, list, get,
// delete, dispatch-action, check, stats. It owns the registry and
// constructs one controller per session.
type Service struct {
	cfg      ServiceConfig
	registry *Registry
	logger   logger.Logger
}

// NewService validates the wiring and returns a service with an empty
// registry. Call Restore to pick up persisted sessions.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("sessions file provider is required")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("transport factory is required")
	}
	if cfg.Metadata == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if cfg.Stats == nil {
		return nil, fmt.Errorf("stats counter is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Service{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   cfg.Logger,
	}, nil
}

// Create allocates a new session and starts its controller. The returned
// record is in the connecting phase; pairing progress is observed via Get.
func (s *Service) Create(ctx context.Context, name string) (PublicSession, error) {
	id := prefixed_uuid.New(sessionIDPrefix).String()
	if name == "" {
		name = "Session " + id
	}

	if err := s.cfg.Metadata.Save(ctx, metadata_store.Record{SessionID: id, Name: name}); err != nil {
		return PublicSession{}, &PersistenceError{Err: fmt.Errorf("failed to persist session metadata: %w", err)}
	}

	ctrl, err := s.startController(ctx, id, name)
	if err != nil {
		// Roll the metadata back so a failed create leaves nothing behind.
		if derr := s.cfg.Metadata.Delete(ctx, id); derr != nil {
			s.logger.Warn("Failed to clean up metadata after create failure",
				logger.SessionIDField(id), logger.ErrorField(derr))
		}
		return PublicSession{}, err
	}

	s.logger.Info("Session created",
		logger.SessionIDField(id), logger.StringField("name", name))
	return ctrl.Snapshot().public(), nil
}

// List returns the public view of every live session.
func (s *Service) List() []PublicSession {
	controllers := s.registry.List()
	out := make([]PublicSession, 0, len(controllers))
	for _, c := range controllers {
		out = append(out, c.Snapshot().public())
	}
	return out
}

// Get returns the public view of one session.
func (s *Service) Get(id string) (PublicSession, error) {
	c := s.registry.Get(id)
	if c == nil {
		return PublicSession{}, ErrNotFound
	}
	return c.Snapshot().public(), nil
}

// Delete tears a session down: reconnect timer cancelled, transport
// closed, registry entry removed, then persisted metadata and credentials
// deleted. Cleanup failures after the registry removal are logged, not
// returned; stale files on disk are recoverable leftovers.
func (s *Service) Delete(ctx context.Context, id string) error {
	c := s.registry.Get(id)
	if c == nil {
		return ErrNotFound
	}

	if err := c.Stop(ctx); err != nil {
		s.logger.Warn("Controller stop did not finish cleanly",
			logger.SessionIDField(id), logger.ErrorField(err))
	}
	s.registry.Remove(id)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SessionsActiveGauge.Dec()
	}

	var cleanup *multierror.Error
	if err := s.cfg.Metadata.Delete(ctx, id); err != nil {
		cleanup = multierror.Append(cleanup, err)
	}
	if err := s.cfg.Sessions.DeleteAll(ctx, id); err != nil {
		cleanup = multierror.Append(cleanup, err)
	}
	if err := cleanup.ErrorOrNil(); err != nil {
		s.logger.Warn("Session deleted with stale files left on disk",
			logger.SessionIDField(id), logger.ErrorField(err))
	}

	s.logger.Info("Session deleted", logger.SessionIDField(id))
	return nil
}

// DispatchAction validates the target session and forwards the action to
// its transport. Send-type actions bump the durable sent counter on
// success.
func (s *Service) DispatchAction(ctx context.Context, id string, action transport.Action) error {
	normalized, err := normalizeAction(action)
	if err != nil {
		return err
	}

	c := s.registry.Get(id)
	if c == nil {
		return ErrNotFound
	}
	if err := c.Send(ctx, normalized); err != nil {
		return err
	}

	if normalized.CountsAsSend() {
		s.cfg.Stats.IncrementMessagesSent(ctx)
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.MessagesSentCounter.Inc()
		}
	}
	return nil
}

// CheckRecipient reports whether a recipient is registered on the
// network, via the session's transport.
func (s *Service) CheckRecipient(ctx context.Context, id, recipient string) (bool, error) {
	normalized, err := transport.NormalizeRecipient(recipient)
	if err != nil {
		return false, NewValidationError("invalid recipient: %v", err)
	}
	c := s.registry.Get(id)
	if c == nil {
		return false, ErrNotFound
	}
	return c.CheckRecipient(ctx, normalized)
}

// Stats returns the durable global counters.
func (s *Service) Stats() stats.Snapshot {
	return s.cfg.Stats.Snapshot()
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	return s.registry.Len()
}

// Shutdown stops every controller without deleting anything. Sessions are
// restored from disk on the next start.
func (s *Service) Shutdown(ctx context.Context) {
	for _, c := range s.registry.List() {
		if err := c.Stop(ctx); err != nil {
			s.logger.Warn("Controller stop did not finish cleanly",
				logger.SessionIDField(c.ID()), logger.ErrorField(err))
		}
		s.registry.Remove(c.ID())
	}
	if s.cfg.Webhook != nil {
		s.cfg.Webhook.Wait()
	}
}

// startController builds, starts and registers a controller for an id.
func (s *Service) startController(ctx context.Context, id, name string) (*Controller, error) {
	creds := storage_manager.NewPrefixedFileProvider(s.cfg.Sessions, path.Join(id, credsDir))
	ctrl := NewController(ControllerConfig{
		ID:             id,
		Name:           name,
		Factory:        s.cfg.Factory,
		Credentials:    creds,
		Metadata:       s.cfg.Metadata,
		Webhook:        s.cfg.Webhook,
		Metrics:        s.cfg.Metrics,
		Logger:         s.logger,
		ReconnectDelay: s.cfg.ReconnectDelay,
	})
	if err := ctrl.Start(ctx); err != nil {
		return nil, err
	}
	if !s.registry.Insert(ctrl) {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ctrl.Stop(stopCtx); err != nil {
			s.logger.Warn("Duplicate controller stop failed",
				logger.SessionIDField(id), logger.ErrorField(err))
		}
		return nil, fmt.Errorf("session id %s already registered", id)
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SessionsActiveGauge.Inc()
	}
	return ctrl, nil
}

// normalizeAction canonicalizes the recipient on an outbound action.
func normalizeAction(action transport.Action) (transport.Action, error) {
	normalize := func(raw string) (string, error) {
		n, err := transport.NormalizeRecipient(raw)
		if err != nil {
			return "", NewValidationError("invalid recipient: %v", err)
		}
		return n, nil
	}

	switch a := action.(type) {
	case transport.TextAction:
		if a.Body == "" {
			return nil, NewValidationError("message body is required")
		}
		r, err := normalize(a.Recipient)
		if err != nil {
			return nil, err
		}
		a.Recipient = r
		return a, nil
	case transport.MediaAction:
		if a.URL == "" {
			return nil, NewValidationError("media url is required")
		}
		r, err := normalize(a.Recipient)
		if err != nil {
			return nil, err
		}
		a.Recipient = r
		return a, nil
	case transport.LocationAction:
		r, err := normalize(a.Recipient)
		if err != nil {
			return nil, err
		}
		a.Recipient = r
		return a, nil
	case transport.PresenceAction:
		r, err := normalize(a.Recipient)
		if err != nil {
			return nil, err
		}
		a.Recipient = r
		return a, nil
	case transport.ReactionAction:
		if a.MessageID == "" {
			return nil, NewValidationError("target message id is required")
		}
		r, err := normalize(a.Recipient)
		if err != nil {
			return nil, err
		}
		a.Recipient = r
		return a, nil
	case transport.ReceiptAction:
		if len(a.MessageIDs) == 0 {
			return nil, NewValidationError("message ids are required")
		}
		r, err := normalize(a.Recipient)
		if err != nil {
			return nil, err
		}
		a.Recipient = r
		return a, nil
	default:
		return nil, NewValidationError("unsupported action kind %q", action.Kind())
	}
}
