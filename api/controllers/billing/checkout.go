package billing

import (
	"context"
	"net/http"

	"github.com/angelmondragon/billing-bridge/api/responses"
	"github.com/angelmondragon/billing-bridge/api/validators"
	"github.com/angelmondragon/billing-bridge/internal/checkout"
	pkgerrors "github.com/angelmondragon/billing-bridge/pkg/errors"
	"github.com/angelmondragon/billing-bridge/pkg/logger"
)

type CheckoutService interface {
	CreateSession(ctx context.Context, req checkout.Request, origin string) (*checkout.Session, error)
}

// CreateCheckoutSession starts a subscription checkout for the signed-in user.
func CreateCheckoutSession(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkout.Request
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.UID = validators.SanitizeString(payload.UID, 128)
		payload.Email = validators.SanitizeString(payload.Email, 320)
		payload.PriceID = validators.SanitizeString(payload.PriceID, 255)
		payload.LookupKey = validators.SanitizeString(payload.LookupKey, 255)

		session, err := svc.CreateSession(r.Context(), payload, r.Header.Get("Origin"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, session)
	}
}
