package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/billing-bridge/internal/accounts"
	"github.com/angelmondragon/billing-bridge/internal/checkout"
	pkgerrors "github.com/angelmondragon/billing-bridge/pkg/errors"
	"github.com/angelmondragon/billing-bridge/pkg/logger"
	"github.com/angelmondragon/billing-bridge/pkg/metrics"
)

const (
	resultApplied   = "applied"
	resultNoUID     = "missing_uid"
	resultIgnored   = "ignored"
	resultFailed    = "failed"
	resultMalformed = "malformed"

	resultNotifyFailed = "notify_failed"
)

// Publisher delivers serialized status changes to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

type ServiceParams struct {
	Accounts  accounts.Store
	Publisher Publisher
	Clock     func() time.Time
	Metrics   *metrics.Metrics
	Logger    *logger.Logger
}

// Service applies verified Stripe events to user account records.
type Service struct {
	accounts  accounts.Store
	publisher Publisher
	now       func() time.Time
	metrics   *metrics.Metrics
	logg      *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account store required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		accounts:  params.Accounts,
		publisher: params.Publisher,
		now:       clock,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// HandleEvent dispatches a verified event. Unhandled types and events without
// a uid in their metadata are acknowledged without writing.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event required")
	}
	eventType := string(event.Type)
	if s.logg != nil {
		ctx = s.logg.WithEventID(s.logg.WithEventType(ctx, eventType), event.ID)
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := decodeObject(event, &session); err != nil {
			s.metrics.IncWebhookEvent(eventType, resultMalformed)
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		return s.upgrade(ctx, event, &session)
	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := decodeObject(event, &sub); err != nil {
			s.metrics.IncWebhookEvent(eventType, resultMalformed)
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		return s.downgrade(ctx, event, &sub)
	default:
		s.metrics.IncWebhookEvent(eventType, resultIgnored)
		return nil
	}
}

func decodeObject(event *stripe.Event, dest any) error {
	if event.Data == nil {
		return errors.New("event has no data")
	}
	return json.Unmarshal(event.Data.Raw, dest)
}

func (s *Service) upgrade(ctx context.Context, event *stripe.Event, session *stripe.CheckoutSession) error {
	uid := uidFrom(session.Metadata)
	if uid == "" {
		s.skip(ctx, string(event.Type))
		return nil
	}

	var customerRef, subscriptionRef *string
	if session.Customer != nil && session.Customer.ID != "" {
		customerRef = stripe.String(session.Customer.ID)
	}
	if session.Subscription != nil && session.Subscription.ID != "" {
		subscriptionRef = stripe.String(session.Subscription.ID)
	}
	return s.merge(ctx, event, uid, accounts.UpgradePatch(customerRef, subscriptionRef, s.now()))
}

func (s *Service) downgrade(ctx context.Context, event *stripe.Event, sub *stripe.Subscription) error {
	uid := uidFrom(sub.Metadata)
	if uid == "" {
		s.skip(ctx, string(event.Type))
		return nil
	}
	return s.merge(ctx, event, uid, accounts.DowngradePatch(s.now()))
}

func (s *Service) merge(ctx context.Context, event *stripe.Event, uid string, patch accounts.Patch) error {
	eventType := string(event.Type)
	if s.logg != nil {
		ctx = s.logg.WithUID(ctx, uid)
	}
	if err := s.accounts.Merge(ctx, uid, patch); err != nil {
		s.metrics.IncWebhookEvent(eventType, resultFailed)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write account record")
	}
	s.metrics.IncWebhookEvent(eventType, resultApplied)
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "upgraded", patch[accounts.FieldUpgraded]), "account billing status updated")
	}

	s.publish(ctx, event, uid, patch)
	return nil
}

// publish failures are logged and counted, never returned.
func (s *Service) publish(ctx context.Context, event *stripe.Event, uid string, patch accounts.Patch) {
	if s.publisher == nil {
		return
	}
	change := accounts.ChangeFor(uid, patch)
	change.EventID = event.ID
	change.EventType = string(event.Type)

	data, err := json.Marshal(change)
	if err == nil {
		_, err = s.publisher.Publish(ctx, data, map[string]string{
			"uid":        uid,
			"event_type": change.EventType,
		})
	}
	if err != nil {
		s.metrics.IncWebhookEvent(change.EventType, resultNotifyFailed)
		if s.logg != nil {
			s.logg.Error(ctx, "publishing billing status change failed", err)
		}
	}
}

func (s *Service) skip(ctx context.Context, eventType string) {
	s.metrics.IncWebhookEvent(eventType, resultNoUID)
	if s.logg != nil {
		s.logg.Warn(ctx, "event has no uid metadata")
	}
}

func uidFrom(metadata map[string]string) string {
	return strings.TrimSpace(metadata[checkout.MetadataUID])
}
