package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"
)

type contextKey int

const (
	ctxKeyAuthUser contextKey = iota
	ctxKeyRequestID
	ctxKeyLogger
)

// AuthUser is the identity resolved from the validated proxy headers.
type AuthUser struct {
	UserID string
	Email  string
}

// getUserFromContext returns the authenticated user from the request context, or nil.
func getUserFromContext(ctx context.Context) *AuthUser {
	u, _ := ctx.Value(ctxKeyAuthUser).(*AuthUser)
	return u
}

// getRequestID returns the request ID from the context.
func getRequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// logFor returns the context-scoped logger, falling back to the default logger.
func logFor(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKeyLogger).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// loggerMiddleware creates a per-request logger with the request ID and stores it in the context.
func loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := slog.Default().With("rid", getRequestID(r.Context()))
		ctx := context.WithValue(r.Context(), ctxKeyLogger, l)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// metricsMiddleware records request counts and categorizes response status codes.
func metricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.RecordRequest()
			sc := &statusCapture{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(sc, r)
			switch {
			case sc.code >= 500:
				m.RecordError()
			case sc.code >= 400:
				m.RecordClientError()
			}
		})
	}
}

// recoveryMiddleware catches panics and returns a 500 response.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logFor(r.Context()).Error("panic recovered", "panic", rec, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// generateRequestID creates a random hex string for request tracing.
func generateRequestID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

// requestIDMiddleware generates a unique request ID and adds it to the context and response headers.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := generateRequestID()
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusCapture wraps ResponseWriter to capture the status code.
type statusCapture struct {
	http.ResponseWriter
	code int
}

func (sc *statusCapture) WriteHeader(code int) {
	sc.code = code
	sc.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs each request with method, path, status, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sc := &statusCapture{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sc, r)
		logFor(r.Context()).Info("req",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sc.code,
			"dur", time.Since(start).String(),
		)
	})
}

// requireUser resolves the identity headers set by the authenticating
// proxy (X-Auth-Provider, X-Auth-Subject, optionally X-Auth-Email and
// X-Auth-Name) and injects the mapped user into the context. The user is
// created on first sight.
func (s *Server) requireUser(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := r.Header.Get("X-Auth-Provider")
		subject := r.Header.Get("X-Auth-Subject")
		if provider == "" || subject == "" {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "missing identity headers")
			return
		}

		user, err := s.store.GetUser(provider, subject)
		if err != nil {
			logFor(r.Context()).Error("get user", "err", err)
			writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to resolve user")
			return
		}

		var userID, email string
		if user != nil {
			userID, email = user.ID, user.Email
		} else {
			email = r.Header.Get("X-Auth-Email")
			userID, err = s.store.ResolveOrCreateUser(provider, subject, email, r.Header.Get("X-Auth-Name"))
			if err != nil {
				logFor(r.Context()).Error("resolve user", "err", err)
				writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to resolve user")
				return
			}
		}

		authUser := &AuthUser{UserID: userID, Email: email}
		ctx := context.WithValue(r.Context(), ctxKeyAuthUser, authUser)
		ctx = context.WithValue(ctx, ctxKeyLogger, logFor(ctx).With("uid", userID))
		handler(w, r.WithContext(ctx))
	}
}

// requireWorkspaceRole validates identity and checks the user has the
// required role in the workspace identified by the "id" path value.
func (s *Server) requireWorkspaceRole(requiredRole string, handler http.HandlerFunc) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request) {
		workspaceID := r.PathValue("id")
		if workspaceID == "" {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "missing workspace id")
			return
		}

		user := getUserFromContext(r.Context())
		if err := s.store.Authorize(user.UserID, workspaceID, requiredRole); err != nil {
			writeStoreError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyLogger, logFor(r.Context()).With("ws", workspaceID))
		handler(w, r.WithContext(ctx))
	})
}

// requireAdmin validates identity and checks the user is a deployment admin.
func (s *Server) requireAdmin(handler http.HandlerFunc) http.HandlerFunc {
	return s.requireUser(func(w http.ResponseWriter, r *http.Request) {
		user := getUserFromContext(r.Context())
		ok, err := s.store.IsAdmin(user.UserID)
		if err != nil {
			logFor(r.Context()).Error("check admin", "err", err)
			writeError(w, http.StatusInternalServerError, ErrCodeInternal, "failed to check admin")
			return
		}
		if !ok {
			writeError(w, http.StatusForbidden, ErrCodeUnauthorized, "admin access required")
			return
		}
		handler(w, r)
	})
}

// maxBytesMiddleware limits request body size to prevent abuse.
func maxBytesMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// chain applies middleware in order (first applied is outermost).
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
