// Package monitoring exposes the gateway's health endpoints.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lewisedginton/wa_gateway/internal/storage_manager"
	"github.com/lewisedginton/wa_gateway/pkg/health"
	"github.com/lewisedginton/wa_gateway/pkg/health/checkers"
	"github.com/lewisedginton/wa_gateway/pkg/logger"
)

// Health status constants
const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusReady     = "ready"
	statusNotReady  = "not_ready"
)

// SessionCounter reports how many sessions are live in the process.
type SessionCounter interface {
	Len() int
}

// HealthMonitor manages health checks and monitoring endpoints for the
// gateway.
type HealthMonitor struct {
	checker   *health.HealthChecker
	logger    logger.Logger
	startTime time.Time
}

// Config holds configuration for the health monitor
type Config struct {
	Logger           logger.Logger
	Storage          storage_manager.FileProvider // Storage probed by the readiness write check
	Sessions         SessionCounter               // Optional: session registry for status reporting
	WebhookURL       string                       // Optional: webhook endpoint probed for reachability
	Timeout          time.Duration // Health check timeout
	FailureThreshold int           // Number of consecutive failures before reporting unhealthy
}

// NewHealthMonitor creates a new health monitor with configured checks
func NewHealthMonitor(cfg Config) *HealthMonitor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	failureThreshold := cfg.FailureThreshold
	if failureThreshold == 0 {
		failureThreshold = 3
	}

	checker := health.New(
		health.WithLogger(cfg.Logger),
		health.WithTimeout(timeout),
		health.WithFailureThreshold(failureThreshold),
	)

	// Process is alive if we can execute this check at all.
	checker.AddLivenessCheck(health.NewCheckFunc("process", func(ctx context.Context) error {
		return nil
	}))

	// Storage must accept writes or every session operation is doomed.
	if cfg.Storage != nil {
		checker.AddReadinessCheck(health.NewCheckFunc("storage", func(ctx context.Context) error {
			probe := fmt.Sprintf("health/probe-%d", time.Now().UnixNano())
			if err := cfg.Storage.Write(ctx, probe, []byte("ok")); err != nil {
				return fmt.Errorf("storage write failed: %w", err)
			}
			if err := cfg.Storage.Delete(ctx, probe); err != nil {
				return fmt.Errorf("storage cleanup failed: %w", err)
			}
			return nil
		}))
	}

	if cfg.WebhookURL != "" {
		checker.AddReadinessCheck(checkers.NewHTTPChecker(cfg.WebhookURL, "webhook_endpoint"))
	}

	if cfg.Sessions != nil {
		checker.AddReadinessCheck(health.NewCheckFunc("session_registry", func(ctx context.Context) error {
			// Registry reads never block; a hang here means the process
			// is wedged.
			_ = cfg.Sessions.Len()
			return nil
		}))
	}

	return &HealthMonitor{
		checker:   checker,
		logger:    cfg.Logger,
		startTime: time.Now(),
	}
}

// LivenessHandler returns an HTTP handler for Kubernetes liveness probes
// GET /health/live - Returns 200 if the process is alive and can handle requests
func (hm *HealthMonitor) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status, err := hm.checker.CheckLiveness(ctx)

		response := map[string]interface{}{
			"status":    statusHealthy,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(hm.startTime).String(),
			"checks":    status.Checks,
		}

		w.Header().Set("Content-Type", "application/json")

		if err != nil {
			response["status"] = statusUnhealthy
			response["error"] = err.Error()
			w.WriteHeader(http.StatusServiceUnavailable)
			hm.logger.Error("Liveness check failed", logger.ErrorField(err))
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	}
}

// ReadinessHandler returns an HTTP handler for Kubernetes readiness probes
// GET /health/ready - Returns 200 if the service can handle requests (dependencies are healthy)
func (hm *HealthMonitor) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status, err := hm.checker.CheckReadiness(ctx)

		response := map[string]interface{}{
			"status":    statusReady,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"checks":    status.Checks,
		}

		w.Header().Set("Content-Type", "application/json")

		if err != nil {
			response["status"] = statusNotReady
			response["error"] = err.Error()
			w.WriteHeader(http.StatusServiceUnavailable)
			hm.logger.Error("Readiness check failed", logger.ErrorField(err))
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	}
}

// HealthHandler returns a combined health endpoint that includes both liveness and readiness
// GET /health - Returns comprehensive health status
func (hm *HealthMonitor) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		livenessStatus, livenessErr := hm.checker.CheckLiveness(ctx)
		readinessStatus, readinessErr := hm.checker.CheckReadiness(ctx)

		response := map[string]interface{}{
			"status":    statusHealthy,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(hm.startTime).String(),
			"liveness": map[string]interface{}{
				"status": statusHealthy,
				"checks": livenessStatus.Checks,
			},
			"readiness": map[string]interface{}{
				"status": statusReady,
				"checks": readinessStatus.Checks,
			},
		}

		w.Header().Set("Content-Type", "application/json")

		overallHealthy := true

		if livenessErr != nil {
			response["liveness"].(map[string]interface{})["status"] = statusUnhealthy
			response["liveness"].(map[string]interface{})["error"] = livenessErr.Error()
			overallHealthy = false
		}

		if readinessErr != nil {
			response["readiness"].(map[string]interface{})["status"] = statusNotReady
			response["readiness"].(map[string]interface{})["error"] = readinessErr.Error()
			overallHealthy = false
		}

		if !overallHealthy {
			response["status"] = statusUnhealthy
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(response)
	}
}

// RegisterHandlers registers all health check endpoints on the provided mux
func (hm *HealthMonitor) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/health", hm.HealthHandler())
	mux.HandleFunc("/health/live", hm.LivenessHandler())
	mux.HandleFunc("/health/ready", hm.ReadinessHandler())
}
