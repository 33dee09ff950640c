package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/billing-bridge/internal/accounts"
	stripewebhook "github.com/angelmondragon/billing-bridge/internal/webhooks/stripe"
	"github.com/angelmondragon/billing-bridge/pkg/config"
	pkgstripe "github.com/angelmondragon/billing-bridge/pkg/stripe"
)

const testSecret = "whsec_test"

func newVerifier(t *testing.T, webhookSecret string) *pkgstripe.Client {
	t.Helper()
	client, err := pkgstripe.NewClient(context.Background(), config.StripeConfig{
		SecretKey:     "sk_test_123",
		WebhookSecret: webhookSecret,
		Env:           "test",
	}, nil)
	if err != nil {
		t.Fatalf("stripe client: %v", err)
	}
	return client
}

func newHandler(t *testing.T, store accounts.Store, webhookSecret string) http.HandlerFunc {
	t.Helper()
	svc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Accounts: store,
		Clock:    func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return StripeWebhook(svc, newVerifier(t, webhookSecret), nil)
}

func post(handler http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(pkgstripe.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestStripeWebhook_CompletedEventUpgrades(t *testing.T) {
	store := accounts.NewMemoryStore()
	store.Seed("u1", map[string]any{"displayName": "Ada"})
	handler := newHandler(t, store, testSecret)

	payload, header := buildSignedEvent(t, stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"id":           "cs_test",
		"object":       "checkout.session",
		"customer":     "cus_1",
		"subscription": "sub_1",
		"metadata":     map[string]string{"uid": "u1"},
	})

	rec := post(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || !body["received"] {
		t.Fatalf("expected received=true, got %s", rec.Body.String())
	}

	doc := store.Document("u1")
	if doc["isUpgraded"] != true || doc["stripeSubscriptionId"] != "sub_1" {
		t.Fatalf("expected upgraded document, got %v", doc)
	}
	if doc["displayName"] != "Ada" {
		t.Fatalf("expected unrelated field preserved")
	}
}

func TestStripeWebhook_TamperedBodyRejected(t *testing.T) {
	store := accounts.NewMemoryStore()
	handler := newHandler(t, store, testSecret)

	payload, header := buildSignedEvent(t, stripe.EventTypeCheckoutSessionCompleted, map[string]any{
		"id":       "cs_test",
		"metadata": map[string]string{"uid": "u1"},
	})
	tampered := bytes.Replace(payload, []byte(`"u1"`), []byte(`"u2"`), 1)

	rec := post(handler, tampered, header)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Invalid signature." {
		t.Fatalf("unexpected error message %q", msg)
	}
	if store.Merges() != 0 {
		t.Fatalf("expected no writes on invalid signature")
	}
}

func TestStripeWebhook_MissingSignature(t *testing.T) {
	store := accounts.NewMemoryStore()
	handler := newHandler(t, store, testSecret)

	rec := post(handler, []byte(`{}`), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Missing stripe-signature header." {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestStripeWebhook_MissingSecret(t *testing.T) {
	store := accounts.NewMemoryStore()
	handler := newHandler(t, store, "")

	payload, header := buildSignedEvent(t, stripe.EventTypeCheckoutSessionCompleted, map[string]any{"id": "cs_test"})
	rec := post(handler, payload, header)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Missing STRIPE_WEBHOOK_SECRET." {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func TestStripeWebhook_UnhandledTypeAcknowledged(t *testing.T) {
	store := accounts.NewMemoryStore()
	handler := newHandler(t, store, testSecret)

	payload, header := buildSignedEvent(t, stripe.EventTypeInvoicePaid, map[string]any{
		"id":       "in_1",
		"metadata": map[string]string{"uid": "u1"},
	})
	rec := post(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.Merges() != 0 {
		t.Fatalf("expected no writes for unhandled type")
	}
}

func TestStripeWebhook_HandlerFailure(t *testing.T) {
	handler := StripeWebhook(failingService{}, newVerifier(t, testSecret), nil)

	payload, header := buildSignedEvent(t, stripe.EventTypeCheckoutSessionCompleted, map[string]any{"id": "cs_test"})
	rec := post(handler, payload, header)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := errorMessage(t, rec); msg != "Webhook handler failed." {
		t.Fatalf("unexpected error message %q", msg)
	}
}

func buildSignedEvent(t *testing.T, eventType stripe.EventType, object map[string]any) ([]byte, string) {
	t.Helper()
	raw, err := json.Marshal(object)
	if err != nil {
		t.Fatalf("marshal object: %v", err)
	}
	event := &stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       eventType,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: raw},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload, buildStripeSignatureHeader(payload, testSecret, time.Now().Unix())
}

func buildStripeSignatureHeader(payload []byte, secret string, ts int64) string {
	signedPayload := fmt.Sprintf("%d.%s", ts, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type failingService struct{}

func (failingService) HandleEvent(context.Context, *stripe.Event) error {
	return errors.New("store down")
}
