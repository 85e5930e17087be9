// Package server assembles the gateway components and runs the HTTP
// surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-chi/chi/v5"

	"github.com/lewisedginton/wa_gateway/internal/api"
	appconfig "github.com/lewisedginton/wa_gateway/internal/config"
	"github.com/lewisedginton/wa_gateway/internal/metadata_store"
	"github.com/lewisedginton/wa_gateway/internal/middleware"
	"github.com/lewisedginton/wa_gateway/internal/monitoring"
	"github.com/lewisedginton/wa_gateway/internal/session_manager"
	"github.com/lewisedginton/wa_gateway/internal/stats"
	"github.com/lewisedginton/wa_gateway/internal/storage_manager"
	"github.com/lewisedginton/wa_gateway/internal/transport"
	"github.com/lewisedginton/wa_gateway/internal/transport/loopback"
	"github.com/lewisedginton/wa_gateway/internal/webhook"
	"github.com/lewisedginton/wa_gateway/pkg/httpmiddleware"
	"github.com/lewisedginton/wa_gateway/pkg/logger"
	"github.com/lewisedginton/wa_gateway/pkg/metrics"
)

// Server encapsulates the gateway components and their lifecycle.
type Server struct {
	cfg     *appconfig.AppConfig
	log     logger.Logger
	metrics *metrics.Metrics

	storageManager *storage_manager.StorageManager
	service        *session_manager.Service
	dispatcher     *webhook.Dispatcher

	cancel context.CancelFunc
}

// New creates a Server with all components initialized and persisted
// sessions restored. The transport factory may be nil, in which case the
// configured provider is constructed (only "loopback" is built in).
func New(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger, factory transport.Factory) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NewMetrics(),
	}

	var err error
	s.storageManager, err = s.createStorageManager(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	if factory == nil {
		factory, err = s.createTransportFactory()
		if err != nil {
			return nil, err
		}
	}

	s.dispatcher = webhook.New(webhook.Config{
		URL:     cfg.Webhook.URL,
		Timeout: cfg.Webhook.Timeout,
		Logger:  log,
		Metrics: s.metrics,
	})

	sessions := s.storageManager.GetProvider("sessions")
	statsProvider := s.storageManager.GetProvider("")

	s.service, err = session_manager.NewService(session_manager.ServiceConfig{
		Sessions:       sessions,
		Factory:        factory,
		Metadata:       metadata_store.New(sessions, log),
		Stats:          stats.Load(ctx, statsProvider, log),
		Webhook:        s.dispatcher,
		Metrics:        s.metrics,
		Logger:         log,
		ReconnectDelay: cfg.Session.ReconnectDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session service: %w", err)
	}

	if err := s.service.Restore(ctx); err != nil {
		return nil, fmt.Errorf("failed to restore persisted sessions: %w", err)
	}

	return s, nil
}

// Service exposes the session service, mainly for tests.
func (s *Server) Service() *session_manager.Service {
	return s.service
}

// Run starts the HTTP server and blocks until shutdown.
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	defer cancel()

	s.setupGracefulShutdown()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.RequestTimeout,
		WriteTimeout:      s.cfg.RequestTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Gateway listening", logger.IntField("port", s.cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("Shutting down gateway")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second) //nolint:contextcheck // New context needed for shutdown
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil { //nolint:contextcheck // Using new context for graceful shutdown
		s.log.Error("HTTP server shutdown error", logger.ErrorField(err))
	}

	// Stop controllers without deleting anything; sessions restore on the
	// next start.
	s.service.Shutdown(shutdownCtx) //nolint:contextcheck // Using new context for graceful shutdown

	s.log.Info("Gateway stopped")
	return nil
}

// buildRouter assembles the full HTTP surface: command API, health
// endpoints and metrics.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	recovery := middleware.DefaultRecoveryConfig()
	recovery.Logger = s.log
	r.Use(middleware.Recovery(recovery))
	r.Use(s.log.HTTPMiddleware)
	r.Use(s.metrics.HTTPMiddleware)
	r.Use(middleware.RequestSizeLimit(s.cfg.Security.MaxRequestSize))
	corsCfg := httpmiddleware.DefaultCORSConfig()
	if len(s.cfg.Security.CORSAllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = s.cfg.Security.CORSAllowedOrigins
	}
	r.Use(httpmiddleware.CORS(corsCfg))
	r.Use(httpmiddleware.Security(nil))

	r.Mount("/api", api.NewHandler(s.service, s.log).Routes())

	if s.cfg.Health.Enabled {
		monitor := monitoring.NewHealthMonitor(monitoring.Config{
			Logger:           s.log,
			Storage:          s.storageManager.GetProvider("health"),
			Sessions:         s.service,
			WebhookURL:       s.cfg.Webhook.URL,
			Timeout:          s.cfg.Health.Timeout,
			FailureThreshold: s.cfg.Health.FailureThreshold,
		})
		r.Get(s.cfg.Health.CombinedPath, monitor.HealthHandler())
		r.Get(s.cfg.Health.LivenessPath, monitor.LivenessHandler())
		r.Get(s.cfg.Health.ReadinessPath, monitor.ReadinessHandler())
	}

	if s.cfg.Monitoring.MetricsEnabled {
		r.Method(http.MethodGet, s.cfg.Monitoring.MetricsPath, s.metrics.Handler())
	}

	return r
}

// createStorageManager creates a storage manager based on configuration
func (s *Server) createStorageManager(ctx context.Context) (*storage_manager.StorageManager, error) {
	cfg := &s.cfg.Storage

	switch cfg.Backend {
	case "local":
		s.log.Info("Using local file-based storage", logger.StringField("directory", cfg.LocalDir))

		// Ensure directory exists (0750 needed for directory traversal)
		if err := os.MkdirAll(cfg.LocalDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}

		return storage_manager.New(storage_manager.Config{
			Backend: storage_manager.BackendLocal,
			LocalConfig: &storage_manager.LocalConfig{
				BaseDir: cfg.LocalDir,
			},
		})

	case "s3":
		s.log.Info("Using S3-based storage",
			logger.StringField("bucket", cfg.S3Bucket),
			logger.StringField("prefix", cfg.S3Prefix),
			logger.StringField("region", cfg.S3Region))

		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3 bucket is required when using S3 storage")
		}

		configOptions := []func(*awsconfig.LoadOptions) error{}
		if cfg.S3Profile != "" {
			configOptions = append(configOptions, awsconfig.WithSharedConfigProfile(cfg.S3Profile))
		}
		if cfg.S3Region != "" {
			configOptions = append(configOptions, awsconfig.WithRegion(cfg.S3Region))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOptions...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		return storage_manager.New(storage_manager.Config{
			Backend: storage_manager.BackendS3,
			S3Config: &storage_manager.S3Config{
				Bucket: cfg.S3Bucket,
				Prefix: cfg.S3Prefix,
				Client: s3.NewFromConfig(awsCfg),
			},
		})

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (must be 'local' or 's3')", cfg.Backend)
	}
}

// createTransportFactory builds the configured wire-protocol provider.
func (s *Server) createTransportFactory() (transport.Factory, error) {
	switch strings.ToLower(s.cfg.Session.Transport) {
	case "loopback":
		s.log.Info("Using loopback transport provider")
		return loopback.NewFactory(), nil
	default:
		return nil, fmt.Errorf("unsupported transport provider: %s", s.cfg.Session.Transport)
	}
}

// setupGracefulShutdown sets up signal handling for graceful shutdown
func (s *Server) setupGracefulShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		s.log.Info("Received shutdown signal", logger.StringField("signal", sig.String()))

		if s.cancel != nil {
			s.cancel()
		}

		// Give processes time to shutdown gracefully, then force exit
		time.AfterFunc(30*time.Second, func() {
			s.log.Warn("Force exiting due to timeout")
			os.Exit(1)
		})
	}()
}
