package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	checkoutsession "github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/price"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/billing-bridge/pkg/config"
	pkgerrors "github.com/angelmondragon/billing-bridge/pkg/errors"
	"github.com/angelmondragon/billing-bridge/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"

	// SignatureHeader carries the HMAC Stripe computes over each webhook delivery.
	SignatureHeader = "Stripe-Signature"
)

// Client is the process-wide handle to the Stripe API. It is read-only after
// construction and safe for concurrent use.
type Client struct {
	environment   string
	webhookSecret string
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.SecretKey)
	if apiKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "Missing STRIPE_SECRET_KEY in environment variables.")
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	stripe.Key = apiKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		environment:   env,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// WebhookSecret returns the endpoint signing secret, empty when unset.
func (c *Client) WebhookSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// CreateCheckoutSession creates a hosted Checkout Session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if params == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout session params required")
	}
	params.Context = ctx
	return checkoutsession.New(params)
}

// FindActivePriceByLookupKey returns the first active price carrying lookupKey,
// or nil when none exists.
func (c *Client) FindActivePriceByLookupKey(ctx context.Context, lookupKey string) (*stripe.Price, error) {
	params := &stripe.PriceListParams{
		LookupKeys: stripe.StringSlice([]string{lookupKey}),
		Active:     stripe.Bool(true),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.Single = true
	params.AddExpand("data.product")

	iter := price.List(params)
	for iter.Next() {
		if p := iter.Price(); p != nil && p.ID != "" {
			return p, nil
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

// ConstructEvent verifies the signature header against the raw payload and
// decodes the event. The payload must be the unmodified request body.
func (c *Client) ConstructEvent(payload []byte, signature, secret string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", pkgerrors.Newf(pkgerrors.CodeConfiguration, "stripe environment must be %q or %q", testEnv, liveEnv)
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return pkgerrors.Newf(pkgerrors.CodeConfiguration, "stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return pkgerrors.Newf(pkgerrors.CodeConfiguration, "stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return pkgerrors.Newf(pkgerrors.CodeConfiguration, "stripe environment must be %q or %q", testEnv, liveEnv)
	}
}
