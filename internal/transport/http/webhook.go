package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/YusovID/git-done/internal/apperrors"
	"github.com/YusovID/git-done/internal/service"
	"github.com/YusovID/git-done/internal/webhook"
)

type webhookResponse struct {
	Status  string `json:"status"`
	Outcome string `json:"outcome,omitempty"`
	GoalID  int64  `json:"goal_id,omitempty"`
}

// githubWebhook authenticates the raw body before anything is parsed, then
// hands the decoded event to the completion service.
func (s *Server) githubWebhook(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.githubWebhook"

	eventType := r.Header.Get(webhook.EventHeader)
	log := s.log.With(
		slog.String("op", op),
		slog.String("event", eventType),
		slog.String("delivery", r.Header.Get(webhook.DeliveryHeader)),
	)

	body, err := s.readBody(w, r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	if err := webhook.Verify([]byte(s.opts.WebhookSecret), body, r.Header.Get(webhook.SignatureHeader)); err != nil {
		webhookDeliveriesTotal.WithLabelValues(eventLabel(eventType), "rejected").Inc()
		s.handleServiceError(w, r, op, err)
		return
	}

	if eventType == "" {
		webhookDeliveriesTotal.WithLabelValues(eventLabel(eventType), "malformed").Inc()
		s.handleServiceError(w, r, op, apperrors.ErrMissingEvent)
		return
	}

	event, err := webhook.Decode(eventType, body)
	if err != nil {
		webhookDeliveriesTotal.WithLabelValues(eventLabel(eventType), "malformed").Inc()
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := s.services.Completions.Apply(r.Context(), event)
	if err != nil {
		webhookDeliveriesTotal.WithLabelValues(eventLabel(eventType), "error").Inc()
		s.handleServiceError(w, r, op, err)
		return
	}

	webhookDeliveriesTotal.WithLabelValues(eventLabel(eventType), string(res.Outcome)).Inc()
	if res.Outcome == service.OutcomeCompleted {
		goalsCompletedTotal.WithLabelValues(completionLabel(event)).Inc()
	}

	log.Info("webhook processed", slog.String("outcome", string(res.Outcome)), slog.Int64("goal_id", res.GoalID))

	s.respond(w, http.StatusOK, webhookResponse{
		Status:  res.Message,
		Outcome: string(res.Outcome),
		GoalID:  res.GoalID,
	})
}

// eventLabel bounds the label set to the kinds the service knows.
func eventLabel(eventType string) string {
	switch webhook.Kind(eventType) {
	case webhook.KindPush, webhook.KindIssues:
		return eventType
	case "":
		return "none"
	default:
		return "other"
	}
}

func completionLabel(event webhook.Event) string {
	if event.Kind() == webhook.KindIssues {
		return "issue"
	}

	return "commit"
}

// malformedReason drops the operation prefix so clients see only the
// payload problem.
func malformedReason(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, apperrors.ErrMalformedPayload.Error()); i >= 0 {
		return msg[i:]
	}

	return apperrors.ErrMalformedPayload.Error()
}
