// Package webhook authenticates GitHub deliveries and decodes them into the
// closed set of events the completion matcher understands.
package webhook

import (
	"fmt"
	"strings"

	"github.com/YusovID/git-done/internal/apperrors"
	"github.com/google/go-github/v57/github"
)

const (
	SignatureHeader = "X-Hub-Signature-256"
	EventHeader     = "X-GitHub-Event"
	DeliveryHeader  = "X-GitHub-Delivery"

	signaturePrefix = "sha256="
)

// Verify checks header against HMAC-SHA256(secret, body). It must run on the
// raw body before anything is decoded.
func Verify(secret, body []byte, header string) error {
	const op = "internal.webhook.Verify"

	if header == "" {
		return apperrors.ErrMissingSignature
	}

	if !strings.HasPrefix(header, signaturePrefix) {
		return apperrors.ErrInvalidSignature
	}

	if err := github.ValidateSignature(header, body, secret); err != nil {
		return fmt.Errorf("%s: %w", op, apperrors.ErrInvalidSignature)
	}

	return nil
}
