// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/lewisedginton/wa_gateway/pkg/logger"
)

// RecoveryConfig holds configuration for the recovery middleware
type RecoveryConfig struct {
	Logger              logger.Logger
	EnableStackTrace    bool   // Whether to log full stack traces
	ResponseMessage     string // Custom message to return to clients
	ResponseContentType string // Content type for error responses
}

// DefaultRecoveryConfig returns a sensible default configuration
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace:    true,
		ResponseMessage:     `{"error":"Internal server error"}`,
		ResponseContentType: "application/json",
	}
}

// Recovery returns a middleware that recovers from panics and logs them
func Recovery(config RecoveryConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					handlePanic(w, r, err, config)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// handlePanic handles a recovered panic
func handlePanic(w http.ResponseWriter, r *http.Request, err interface{}, config RecoveryConfig) {
	var stackTrace string
	if config.EnableStackTrace {
		stackTrace = string(debug.Stack())
	}

	logPanic(r, err, stackTrace, config.Logger)

	w.Header().Set("Content-Type", config.ResponseContentType)
	w.Header().Set("Connection", "close") // Signal to close connection after response
	w.WriteHeader(http.StatusInternalServerError)

	if config.ResponseMessage != "" {
		_, _ = w.Write([]byte(config.ResponseMessage))
	}
}

// logPanic logs panic information
func logPanic(r *http.Request, panicErr interface{}, stackTrace string, log logger.Logger) {
	if log == nil {
		// Fallback to basic logging if no logger provided
		fmt.Printf("PANIC: %v\nRequest: %s %s\nStack:\n%s\n",
			panicErr, r.Method, r.URL.Path, stackTrace)
		return
	}

	fields := []logger.LogField{
		logger.StringField("panic_error", fmt.Sprintf("%v", panicErr)),
		logger.HTTPMethodField(r.Method),
		logger.HTTPPathField(r.URL.Path),
		logger.ClientIPField(GetClientIP(r)),
		logger.StringField("user_agent", r.UserAgent()),
	}

	if stackTrace != "" {
		fields = append(fields, logger.StringField("stack_trace", stackTrace))
	}

	log.Error("HTTP request panic recovered", fields...)
}

// GetClientIP extracts the real client IP from various headers
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (most common)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP in the chain
		for idx := 0; idx < len(xff); idx++ {
			if xff[idx] == ',' {
				return xff[:idx]
			}
		}
		return xff
	}

	// Check X-Real-IP header (common in nginx)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	return r.RemoteAddr
}

// RequestSizeLimit rejects request bodies larger than maxBytes.
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, `{"error":"Request body too large"}`, http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ChainMiddleware chains multiple middleware functions together
func ChainMiddleware(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(handler http.Handler) http.Handler {
		// Apply middleware in reverse order so they execute in the order they were passed
		for i := len(middlewares) - 1; i >= 0; i-- {
			handler = middlewares[i](handler)
		}
		return handler
	}
}
