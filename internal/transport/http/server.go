// package http implements the HTTP transport layer for the service.
// It handles incoming requests, decodes them, calls the appropriate service methods,
// and encodes the responses.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/YusovID/git-done/internal/apperrors"
	"github.com/YusovID/git-done/internal/github"
	"github.com/YusovID/git-done/internal/service"
	"github.com/YusovID/git-done/internal/session"
	"github.com/YusovID/git-done/internal/validation"
	"github.com/YusovID/git-done/pkg/logger/sl"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OAuthProvider runs the sign-in code flow.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*github.Identity, error)
}

// Pinger is a dependency probed by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Goals       service.GoalService
	Users       service.UserService
	Completions service.CompletionService
	Embeds      service.EmbedService
}

type Options struct {
	// PublicBaseURL prefixes the embed links returned with goals.
	PublicBaseURL string
	WebhookSecret string
	RateRPS       float64
	RateBurst     int
	MaxBodyBytes  int64
	HealthTimeout time.Duration
}

// Server holds the dependencies for the HTTP server, including the logger and service interfaces.
type Server struct {
	log      *slog.Logger
	services Services
	sessions *session.Manager
	oauth    OAuthProvider
	database Pinger
	github   Pinger
	limiter  *RateLimiter
	opts     Options
	now      func() time.Time
}

// NewServer creates a new instance of the HTTP server.
func NewServer(
	log *slog.Logger,
	services Services,
	sessions *session.Manager,
	oauth OAuthProvider,
	database, githubAPI Pinger,
	opts Options,
) *Server {
	return &Server{
		log:      log,
		services: services,
		sessions: sessions,
		oauth:    oauth,
		database: database,
		github:   githubAPI,
		limiter:  NewRateLimiter(opts.RateRPS, opts.RateBurst),
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Routes sets up the router with all middleware and endpoints.
func (s *Server) Routes() http.Handler {
	mux := chi.NewRouter()

	mux.Use(s.requestID)
	mux.Use(s.logRequest)
	mux.Use(s.metricsMiddleware)

	mux.Handle("/metrics", promhttp.Handler())

	mux.Get("/auth/callback", s.authCallback)
	mux.Get("/auth/{provider}", s.authLogin)
	mux.Get("/logout", s.logout)

	mux.With(s.limiter.Handler).Get("/embed/{token}", s.embedWidget)

	mux.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)
		r.Post("/github-webhook", s.githubWebhook)

		r.Route("/embed/{token}/data", func(r chi.Router) {
			r.Use(s.limiter.Handler)

			r.Options("/", s.embedDataOptions)
			r.Get("/", s.embedData)
		})

		r.Route("/goals", func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/", s.listGoals)
			r.Post("/", s.createGoal)
			r.Put("/{id}", s.updateGoal)
			r.Delete("/{id}", s.deleteGoal)
			r.Get("/{id}/calendar", s.goalCalendar)
		})
	})

	return mux
}

// respond is a helper function to encode data to JSON and write it to the response.
// It centralizes setting the Content-Type header and writing the status code.
func (s *Server) respond(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.log.Error("failed to encode response", sl.Err(err))
		}
	}
}

// respondError is a convenience wrapper around respond for sending simple error messages.
func (s *Server) respondError(w http.ResponseWriter, code int, message string) {
	s.respond(w, code, map[string]string{"error": message})
}

// decodeAndValidate is a helper that deserializes a JSON request body into a struct
// and then runs validation checks on it.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := s.decode(w, r, v); err != nil {
		return err
	}

	if err := validation.ValidateStruct(v); err != nil {
		return err
	}

	return nil
}

// decode is a helper function to decode a JSON request body.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body := r.Body
	if s.opts.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	return nil
}

// readBody returns the raw request body, bounded by MaxBodyBytes.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := r.Body
	if s.opts.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidRequest, err)
	}

	return data, nil
}

// handleServiceError provides centralized error handling for all HTTP handlers.
// It logs the internal error and maps it to a user-friendly HTTP response.
func (s *Server) handleServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	log := s.log.With(slog.String("op", op), slog.String("request_id", getRequestID(r.Context())))

	code, message := errorResponse(err)
	if code >= http.StatusInternalServerError {
		log.Error("service error occurred", sl.Err(err))
	} else {
		log.Warn("request rejected", sl.Err(err), slog.Int("status", code))
	}

	s.respondError(w, code, message)
}

// inputSentinels keep their own message when reported as validation errors.
var inputSentinels = []error{
	apperrors.ErrInvalidRepoURL,
	apperrors.ErrInvalidDeadline,
	apperrors.ErrDeadlinePast,
	apperrors.ErrCompletionType,
}

func errorResponse(err error) (int, string) {
	var (
		validationErr *validation.ValidationError
		fieldErr      *apperrors.FieldError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Error()
	case errors.As(err, &fieldErr):
		return http.StatusBadRequest, fieldErr.Error()
	case errors.Is(err, apperrors.ErrValidation):
		for _, sentinel := range inputSentinels {
			if errors.Is(err, sentinel) {
				return http.StatusBadRequest, sentinel.Error()
			}
		}

		return http.StatusBadRequest, apperrors.ErrValidation.Error()
	case errors.Is(err, apperrors.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid request body"
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized, "not authenticated"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "goal not found"
	case errors.Is(err, apperrors.ErrMissingSignature):
		return http.StatusForbidden, apperrors.ErrMissingSignature.Error()
	case errors.Is(err, apperrors.ErrInvalidSignature):
		return http.StatusForbidden, apperrors.ErrInvalidSignature.Error()
	case errors.Is(err, apperrors.ErrMissingEvent):
		return http.StatusBadRequest, apperrors.ErrMissingEvent.Error()
	case errors.Is(err, apperrors.ErrMalformedPayload):
		return http.StatusBadRequest, malformedReason(err)
	case errors.Is(err, apperrors.ErrUpstream):
		return http.StatusBadGateway, "error communicating with GitHub"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
