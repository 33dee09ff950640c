package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/billing-bridge/api/controllers"
	billingcontrollers "github.com/angelmondragon/billing-bridge/api/controllers/billing"
	webhookcontrollers "github.com/angelmondragon/billing-bridge/api/controllers/webhooks"
	"github.com/angelmondragon/billing-bridge/api/middleware"
	"github.com/angelmondragon/billing-bridge/pkg/config"
	"github.com/angelmondragon/billing-bridge/pkg/logger"
	"github.com/angelmondragon/billing-bridge/pkg/metrics"
	"github.com/angelmondragon/billing-bridge/pkg/stripe"
)

// Observability bundles the metrics instruments with the registry they are served from.
// A nil Gatherer disables the /metrics endpoint.
type Observability struct {
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	obs Observability,
	readiness map[string]controllers.Pinger,
	checkoutService billingcontrollers.CheckoutService,
	stripeClient *stripe.Client,
	stripeWebhookService webhookcontrollers.StripeWebhookService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(obs.Metrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness))
	})

	if obs.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(obs.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/stripe", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.CORS(cfg.App.CORSOrigins))
			r.Post("/checkout", billingcontrollers.CreateCheckoutSession(checkoutService, logg))
			r.Options("/checkout", func(w http.ResponseWriter, r *http.Request) {})
		})
		r.Post("/webhook", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, logg))
	})

	return r
}
