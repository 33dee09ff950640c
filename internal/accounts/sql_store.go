package accounts

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/billing-bridge/pkg/db"
)

type accountRow struct {
	UID                  string    `gorm:"column:uid;primaryKey"`
	IsUpgraded           bool      `gorm:"column:is_upgraded;not null"`
	StripeCustomerID     *string   `gorm:"column:stripe_customer_id"`
	StripeSubscriptionID *string   `gorm:"column:stripe_subscription_id"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (accountRow) TableName() string {
	return "accounts"
}

var columnByField = map[Field]string{
	FieldUpgraded:        "is_upgraded",
	FieldCustomerRef:     "stripe_customer_id",
	FieldSubscriptionRef: "stripe_subscription_id",
	FieldUpdatedAt:       "updated_at",
}

// SQLStore keeps accounts in a relational table via GORM.
type SQLStore struct {
	client *db.Client
}

// NewSQLStore returns a store over client. The accounts table is owned by pkg/migrate.
func NewSQLStore(client *db.Client) *SQLStore {
	return &SQLStore{client: client}
}

// Merge upserts the row, updating only the patched columns on conflict.
func (s *SQLStore) Merge(ctx context.Context, uid string, patch Patch) error {
	acct := Account{UID: uid}
	patch.Apply(&acct)

	columns := make([]string, 0, len(patch))
	for field := range patch {
		if col, ok := columnByField[field]; ok {
			columns = append(columns, col)
		}
	}
	if len(columns) == 0 {
		return nil
	}

	row := accountRow{
		UID:                  uid,
		IsUpgraded:           acct.Upgraded,
		StripeCustomerID:     acct.CustomerRef,
		StripeSubscriptionID: acct.SubscriptionRef,
		UpdatedAt:            acct.UpdatedAt,
	}
	return s.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(&row).Error
}

func (s *SQLStore) Get(ctx context.Context, uid string) (*Account, error) {
	var row accountRow
	err := s.client.DB().WithContext(ctx).Where("uid = ?", uid).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Account{
		UID:             row.UID,
		Upgraded:        row.IsUpgraded,
		CustomerRef:     row.StripeCustomerID,
		SubscriptionRef: row.StripeSubscriptionID,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *SQLStore) Close() error {
	return s.client.Close()
}
