package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/angelmondragon/billing-bridge/pkg/errors"
	"github.com/angelmondragon/billing-bridge/pkg/logger"
	"github.com/angelmondragon/billing-bridge/pkg/metrics"
	pkgredis "github.com/angelmondragon/billing-bridge/pkg/redis"
)

const (
	MetadataUID = "uid"

	successPath = "/pricing?success=1"
	cancelPath  = "/pricing?canceled=1"
)

// BillingClient is the subset of the Stripe client used to open sessions.
type BillingClient interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	FindActivePriceByLookupKey(ctx context.Context, lookupKey string) (*stripe.Price, error)
}

// RecentSessions remembers the URL of a just-created session so a repeated submit
// reuses it. Get returns pkgredis.ErrMiss when absent.
type RecentSessions interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Request is the checkout payload sent by the pricing page.
type Request struct {
	UID       string `json:"uid" validate:"max=128"`
	Email     string `json:"email" validate:"max=320"`
	PriceID   string `json:"priceId" validate:"max=255"`
	LookupKey string `json:"lookupKey" validate:"max=255"`
}

// Session is returned to the browser, which redirects to URL.
type Session struct {
	URL string `json:"url"`
}

type ServiceParams struct {
	Billing        BillingClient
	DefaultPriceID string
	DefaultOrigin  string
	Recent         RecentSessions
	ReuseWindow    time.Duration
	Metrics        *metrics.Metrics
	Logger         *logger.Logger
}

type Service struct {
	billing        BillingClient
	defaultPriceID string
	defaultOrigin  string
	recent         RecentSessions
	reuseWindow    time.Duration
	metrics        *metrics.Metrics
	logg           *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Billing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing client required")
	}
	origin := strings.TrimRight(strings.TrimSpace(params.DefaultOrigin), "/")
	if origin == "" {
		origin = "http://localhost:3000"
	}
	return &Service{
		billing:        params.Billing,
		defaultPriceID: strings.TrimSpace(params.DefaultPriceID),
		defaultOrigin:  origin,
		recent:         params.Recent,
		reuseWindow:    params.ReuseWindow,
		metrics:        params.Metrics,
		logg:           params.Logger,
	}, nil
}

// CreateSession opens a subscription Checkout Session for the user and returns its URL.
// origin is the caller's Origin header; empty falls back to the configured default.
func (s *Service) CreateSession(ctx context.Context, req Request, origin string) (*Session, error) {
	uid := strings.TrimSpace(req.UID)
	email := strings.TrimSpace(req.Email)
	if uid == "" || email == "" {
		s.metrics.IncCheckout("invalid")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Missing uid or email.")
	}
	if s.logg != nil {
		ctx = s.logg.WithUID(ctx, uid)
	}

	priceID, err := s.resolvePrice(ctx, strings.TrimSpace(req.PriceID), strings.TrimSpace(req.LookupKey))
	if err != nil {
		s.metrics.IncCheckout("price_error")
		return nil, err
	}

	recentKey := recentSessionKey(uid, email, priceID)
	if url, ok := s.recentSession(ctx, recentKey); ok {
		s.metrics.IncCheckout("reused")
		return &Session{URL: url}, nil
	}

	base := s.origin(origin)
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail:       stripe.String(email),
		SuccessURL:          stripe.String(base + successPath),
		CancelURL:           stripe.String(base + cancelPath),
		AllowPromotionCodes: stripe.Bool(true),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{MetadataUID: uid},
		},
	}
	params.AddMetadata(MetadataUID, uid)

	session, err := s.billing.CreateCheckoutSession(ctx, params)
	if err != nil {
		s.metrics.IncCheckout("stripe_error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, pkgerrors.DependencyMessage(err))
	}
	if session == nil || session.URL == "" {
		s.metrics.IncCheckout("stripe_error")
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout session returned no url")
	}

	s.rememberSession(ctx, recentKey, session.URL)
	s.metrics.IncCheckout("created")
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"session_id": session.ID,
			"price_id":   priceID,
		}), "checkout session created")
	}
	return &Session{URL: session.URL}, nil
}

func (s *Service) origin(header string) string {
	header = strings.TrimRight(strings.TrimSpace(header), "/")
	if header == "" {
		return s.defaultOrigin
	}
	return header
}

func (s *Service) resolvePrice(ctx context.Context, explicit, lookupKey string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if s.defaultPriceID != "" {
		return s.defaultPriceID, nil
	}
	if lookupKey == "" {
		return "", pkgerrors.New(pkgerrors.CodeConfiguration, "Missing Stripe price configuration (STRIPE_PRICE_ID or lookupKey).")
	}

	price, err := s.billing.FindActivePriceByLookupKey(ctx, lookupKey)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, pkgerrors.DependencyMessage(err))
	}
	if price == nil || price.ID == "" {
		return "", pkgerrors.Newf(pkgerrors.CodeNotFound, "No active Stripe price found for lookup key: %s", lookupKey)
	}
	return price.ID, nil
}

func recentSessionKey(uid, email, priceID string) string {
	return pkgredis.Key("checkout", "recent", uid, strings.ToLower(email), priceID)
}

func (s *Service) recentSession(ctx context.Context, key string) (string, bool) {
	if s.recent == nil || s.reuseWindow <= 0 {
		return "", false
	}
	url, err := s.recent.Get(ctx, key)
	switch {
	case err == nil && url != "":
		s.metrics.IncSessionReuse("hit")
		return url, true
	case err == nil, errors.Is(err, pkgredis.ErrMiss):
		s.metrics.IncSessionReuse("miss")
	default:
		s.metrics.IncSessionReuse("error")
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "recent session read failed")
		}
	}
	return "", false
}

func (s *Service) rememberSession(ctx context.Context, key, url string) {
	if s.recent == nil || s.reuseWindow <= 0 {
		return
	}
	if err := s.recent.Set(ctx, key, url, s.reuseWindow); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "recent session write failed")
	}
}
