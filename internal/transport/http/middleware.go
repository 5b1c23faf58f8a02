package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/YusovID/git-done/internal/session"
	"github.com/YusovID/git-done/pkg/logger/sl"
	"github.com/google/uuid"
)

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := getRequestID(r.Context())

		log := s.log.With(
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("user_agent", r.UserAgent()),
		)
		log.Info("request started")

		t1 := time.Now()

		next.ServeHTTP(w, r)

		log.Info("request completed",
			slog.String("duration", time.Since(t1).String()),
		)
	})
}

type contextKey string

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = contextKey("requestID")
	sessionKey      = contextKey("session")
)

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getRequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey).(string); ok {
		return reqID
	}

	return ""
}

// requireSession rejects requests without a valid session cookie and
// re-issues the cookie on success so active users stay signed in.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const op = "internal.transport.http.requireSession"

		sess, err := s.sessions.Read(r)
		if err != nil {
			s.handleServiceError(w, r, op, err)
			return
		}

		if err := s.sessions.Issue(w, sess.UserID, sess.Username); err != nil {
			s.log.Warn("failed to refresh session", sl.Err(err), slog.String("user_id", sess.UserID))
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the GitHub id of the signed-in user. Only valid behind
// requireSession.
func currentUser(ctx context.Context) string {
	if sess, ok := ctx.Value(sessionKey).(*session.Session); ok {
		return sess.UserID
	}

	return ""
}
