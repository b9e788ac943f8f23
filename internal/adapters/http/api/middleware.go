package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nuid"

	service "github.com/okian/scorecard/internal/app"
	"github.com/okian/scorecard/internal/domain/model"
	"github.com/okian/scorecard/pkg/logger"
	"github.com/okian/scorecard/pkg/metrics"
)

// Header names.
const (
	HeaderRequestID      = "X-Request-ID"
	HeaderEvaluatorCode  = "X-Evaluator-Code"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// HTTP status code constants.
const (
	statusBadRequest      = 400
	statusUnauthorized    = 401
	statusForbidden       = 403
	statusNotFound        = 404
	statusTooManyRequests = 429
	statusInternalError   = 500
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Microseconds()) / 1000.0
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)

		if wrapped.statusCode >= statusBadRequest {
			errorType := getErrorType(wrapped.statusCode)
			metrics.RecordErrorByEndpoint(endpoint, r.Method, errorType)
			metrics.RecordErrorByComponent("http", errorType)
		}
	}
}

// RequestIDMiddleware propagates the caller's X-Request-ID, or issues one,
// and puts it on the request context for logging.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if id == "" || len(id) > 128 {
			id = nuid.Next()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// getErrorType returns a standardized error type based on HTTP status code.
func getErrorType(statusCode int) string {
	switch {
	case statusCode >= statusInternalError:
		return "server_error"
	case statusCode == statusTooManyRequests:
		return "rate_limit"
	case statusCode == statusNotFound:
		return "not_found"
	case statusCode == statusUnauthorized, statusCode == statusForbidden:
		return "auth"
	case statusCode >= statusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}

// AuthDependencies resolves evaluator access codes.
type AuthDependencies interface {
	AuthenticateEvaluator(ctx context.Context, code string) (model.Evaluator, error)
}

// principal is the authenticated caller. Exactly one of admin or evaluator
// is set.
type principal struct {
	admin     bool
	evaluator *model.Evaluator
}

type principalKey struct{}

func principalFrom(ctx context.Context) principal {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p
}

type authenticator struct {
	deps       AuthDependencies
	adminToken string
}

// isAdmin reports whether r carries the admin bearer token. With no token
// configured every caller is an administrator.
func (a *authenticator) isAdmin(r *http.Request) bool {
	if a.adminToken == "" {
		return true
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(a.adminToken)) == 1
}

// admin admits only administrators.
func (a *authenticator) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.isAdmin(r) {
			writeError(w, http.StatusUnauthorized, "unauthorized", NewKind("api.auth", ErrUnauthorized))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, principal{admin: true})))
	}
}

// member admits an evaluator presenting an access code, or an administrator.
// A presented code takes precedence so evaluators are never treated as
// administrators when admin auth is disabled.
func (a *authenticator) member(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if code := strings.TrimSpace(r.Header.Get(HeaderEvaluatorCode)); code != "" {
			ev, err := a.deps.AuthenticateEvaluator(r.Context(), code)
			if err != nil {
				fail(w, r, "api.auth", err)
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, principal{evaluator: &ev})))
			return
		}
		a.admin(next)(w, r)
	}
}

// actingEvaluator resolves which evaluator a member request acts for. An
// evaluator acts for itself; an administrator must name one.
func actingEvaluator(r *http.Request, requested string) (string, error) {
	p := principalFrom(r.Context())
	if p.evaluator != nil {
		if requested != "" && requested != p.evaluator.ID {
			return "", fmt.Errorf("acting for evaluator %q: %w", requested, service.ErrForbidden)
		}
		return p.evaluator.ID, nil
	}
	if requested == "" {
		return "", fmt.Errorf("evaluator_id required: %w", ErrBadRequest)
	}
	return requested, nil
}
