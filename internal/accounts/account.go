package accounts

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no record exists for the uid.
var ErrNotFound = errors.New("account not found")

// Field names a persisted account attribute. The string values are the
// document field names used by the account system that owns these records.
type Field string

const (
	FieldUpgraded        Field = "isUpgraded"
	FieldCustomerRef     Field = "stripeCustomerId"
	FieldSubscriptionRef Field = "stripeSubscriptionId"
	FieldUpdatedAt       Field = "updatedAt"
)

// Account is the billing view of a user record. Records are created at signup
// elsewhere; this service only merge-writes the fields below.
type Account struct {
	UID             string
	Upgraded        bool
	CustomerRef     *string
	SubscriptionRef *string
	UpdatedAt       time.Time
}

// Patch is a merge-write: only the listed fields are written, everything else
// on the record is preserved. A nil *string value writes null.
type Patch map[Field]any

// UpgradePatch marks the account upgraded and records the Stripe references.
func UpgradePatch(customerRef, subscriptionRef *string, now time.Time) Patch {
	return Patch{
		FieldUpgraded:        true,
		FieldCustomerRef:     customerRef,
		FieldSubscriptionRef: subscriptionRef,
		FieldUpdatedAt:       now.UTC(),
	}
}

// DowngradePatch clears the upgrade and the subscription reference. The
// customer reference is left in place.
func DowngradePatch(now time.Time) Patch {
	return Patch{
		FieldUpgraded:        false,
		FieldSubscriptionRef: (*string)(nil),
		FieldUpdatedAt:       now.UTC(),
	}
}

// Document renders the patch with plain values, nil pointers becoming nil.
func (p Patch) Document() map[string]any {
	doc := make(map[string]any, len(p))
	for field, value := range p {
		doc[string(field)] = plain(value)
	}
	return doc
}

// Apply merges the patch into acct.
func (p Patch) Apply(acct *Account) {
	for field, value := range p {
		switch field {
		case FieldUpgraded:
			acct.Upgraded, _ = value.(bool)
		case FieldCustomerRef:
			acct.CustomerRef = stringRef(value)
		case FieldSubscriptionRef:
			acct.SubscriptionRef = stringRef(value)
		case FieldUpdatedAt:
			acct.UpdatedAt, _ = value.(time.Time)
		}
	}
}

// Store persists account records with merge semantics.
type Store interface {
	Merge(ctx context.Context, uid string, patch Patch) error
	Get(ctx context.Context, uid string) (*Account, error)
	Ping(ctx context.Context) error
	Close() error
}

func plain(value any) any {
	switch v := value.(type) {
	case *string:
		if v == nil {
			return nil
		}
		return *v
	default:
		return v
	}
}

func stringRef(value any) *string {
	switch v := value.(type) {
	case *string:
		if v == nil {
			return nil
		}
		s := *v
		return &s
	case string:
		return &v
	default:
		return nil
	}
}
