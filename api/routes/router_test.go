package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripego "github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/billing-bridge/api/controllers"
	"github.com/angelmondragon/billing-bridge/internal/accounts"
	"github.com/angelmondragon/billing-bridge/internal/checkout"
	stripewebhook "github.com/angelmondragon/billing-bridge/internal/webhooks/stripe"
	"github.com/angelmondragon/billing-bridge/pkg/config"
	"github.com/angelmondragon/billing-bridge/pkg/metrics"
	"github.com/angelmondragon/billing-bridge/pkg/stripe"
)

type stubBilling struct{}

func (stubBilling) CreateCheckoutSession(context.Context, *stripego.CheckoutSessionParams) (*stripego.CheckoutSession, error) {
	return &stripego.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.com/c/pay/cs_1"}, nil
}

func (stubBilling) FindActivePriceByLookupKey(context.Context, string) (*stripego.Price, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{App: config.AppConfig{
		Env:           "dev",
		DefaultOrigin: "http://localhost:3000",
		CORSOrigins:   []string{"http://localhost:3000"},
	}}

	stripeClient, err := stripe.NewClient(context.Background(), config.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: "whsec_test",
		Env:           "test",
	}, nil)
	require.NoError(t, err)

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Billing:        stubBilling{},
		DefaultPriceID: "price_default",
		DefaultOrigin:  cfg.App.DefaultOrigin,
	})
	require.NoError(t, err)

	store := accounts.NewMemoryStore()
	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{Accounts: store})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	return NewRouter(
		cfg,
		nil,
		Observability{Metrics: metrics.New(reg), Gatherer: reg},
		map[string]controllers.Pinger{"accounts": store},
		checkoutSvc,
		stripeClient,
		webhookSvc,
	)
}

func TestRouterHealth(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	}
}

func TestRouterCheckout(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/checkout", strings.NewReader(`{"uid":"u1","email":"a@example.com"}`))
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"url":"https://checkout.stripe.com/c/pay/cs_1"}`, rec.Body.String())
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterWebhookRequiresSignature(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing stripe-signature header."}`, rec.Body.String())
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/health/live",status="2xx"} 1`)
}

func TestRouterUnknownMethod(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stripe/webhook", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
