package router

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/account"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/department"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/plate"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/province"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/utilities"
)

// BasePath prefixes every route.
const BasePath = "/plaques-api"

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers push server-sent events through the wrapper.
func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			// ensure status is set
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
// It is intentionally simple and conservative so it works with most setups.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Clickjacking protection
			w.Header().Set("X-Frame-Options", "DENY")

			// Referrer policy
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")

			// Permissions policy (formerly Feature-Policy) - tighten common features
			// allow none for camera, microphone, geolocation by default
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			// Basic Content-Security-Policy - block mixed content and restrict sources to self by default
			// Keep this conservative; callers may opt to override with more specific policy downstream.
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}

			// HSTS - instruct browsers to use HTTPS for future requests. Only set if request is over TLS.
			if r.TLS != nil {
				// 30 days by default
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Deps are the handlers mounted by RegisterRoutes.
type Deps struct {
	Session     *session.Service
	Auth        *session.Handler
	Plates      *plate.Handler
	Accounts    *account.Handler
	Departments *department.Handler
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) http.Handler {
	mux := http.NewServeMux()
	authed := session.RequireAuth(d.Session, logger, false)
	rotation := session.RequireAuth(d.Session, logger, true)
	handle := func(pattern string, mw func(http.Handler) http.Handler, h http.HandlerFunc) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.Handle(method+" "+BasePath+path, mw(h))
	}
	open := func(h http.Handler) http.Handler { return h }

	// health
	handle("GET /health", open, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	handle("GET /provinces", open, func(w http.ResponseWriter, r *http.Request) {
		utilities.WriteJSON(w, http.StatusOK, province.All())
	})

	// auth
	handle("POST /auth/login", open, d.Auth.Login)
	handle("POST /auth/refresh", open, d.Auth.Refresh)
	handle("GET /auth/jwks", open, d.Auth.JWKS)
	handle("POST /auth/logout", rotation, d.Auth.Logout)
	handle("POST /auth/change-password", rotation, d.Auth.ChangePassword)
	handle("GET /auth/me", rotation, d.Auth.Me)
	handle("GET /auth/events", rotation, d.Auth.Events)

	// plates
	handle("GET /plates/form", authed, d.Plates.Form)
	handle("POST /plates/preview", authed, d.Plates.Preview)
	handle("GET /plates", authed, d.Plates.List)
	handle("POST /plates", authed, d.Plates.Create)
	handle("GET /plates/{id}", authed, d.Plates.Get)
	handle("PUT /plates/{id}", authed, d.Plates.Update)
	handle("DELETE /plates/{id}", authed, d.Plates.Delete)

	// accounts
	handle("GET /accounts", authed, d.Accounts.List)
	handle("GET /accounts/{id}", authed, d.Accounts.Get)
	handle("POST /accounts", authed, d.Accounts.Create)
	handle("PUT /accounts/{id}", authed, d.Accounts.Update)
	handle("DELETE /accounts/{id}", authed, d.Accounts.Delete)

	// departments
	handle("GET /departments", authed, d.Departments.List)
	handle("POST /departments", authed, d.Departments.Create)
	handle("DELETE /departments/{id}", authed, d.Departments.Delete)

	// wrap with security headers middleware then logging middleware
	handler := LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))
	return handler
}
