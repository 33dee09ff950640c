package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/billing-bridge/api/responses"
	pkgerrors "github.com/angelmondragon/billing-bridge/pkg/errors"
	"github.com/angelmondragon/billing-bridge/pkg/logger"
	pkgstripe "github.com/angelmondragon/billing-bridge/pkg/stripe"
)

// Stripe payloads are capped well below this.
const maxWebhookBytes = int64(65536)

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type eventVerifier interface {
	WebhookSecret() string
	ConstructEvent(payload []byte, signature, secret string) (stripe.Event, error)
}

// StripeWebhook verifies and applies Stripe billing events.
func StripeWebhook(svc StripeWebhookService, verifier eventVerifier, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || verifier == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		secret := verifier.WebhookSecret()
		if secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConfiguration, "Missing STRIPE_WEBHOOK_SECRET."))
			return
		}

		sigHeader := r.Header.Get(pkgstripe.SignatureHeader)
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Missing stripe-signature header."))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body"))
			return
		}

		event, err := verifier.ConstructEvent(payload, sigHeader, secret)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeAuthentication, err, "Invalid signature."))
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Webhook handler failed."))
			return
		}

		if logg != nil {
			logg.Debug(logg.WithEventID(logg.WithEventType(ctx, string(event.Type)), event.ID), "stripe event processed")
		}
		responses.WriteSuccess(w, map[string]bool{"received": true})
	}
}
