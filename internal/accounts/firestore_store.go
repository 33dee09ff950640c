package accounts

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pkgfirestore "github.com/angelmondragon/billing-bridge/pkg/firestore"
)

// FirestoreStore writes account fields into users/{uid} documents.
type FirestoreStore struct {
	client *pkgfirestore.Client
}

func NewFirestoreStore(client *pkgfirestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

type firestoreAccount struct {
	IsUpgraded           bool      `firestore:"isUpgraded"`
	StripeCustomerID     *string   `firestore:"stripeCustomerId"`
	StripeSubscriptionID *string   `firestore:"stripeSubscriptionId"`
	UpdatedAt            time.Time `firestore:"updatedAt"`
}

func (s *FirestoreStore) doc(uid string) *firestore.DocumentRef {
	return s.client.Doc(s.client.Collection(), uid)
}

// Merge sets the patched fields with MergeAll so the rest of the document is untouched.
func (s *FirestoreStore) Merge(ctx context.Context, uid string, patch Patch) error {
	_, err := s.doc(uid).Set(ctx, patch.Document(), firestore.MergeAll)
	return err
}

func (s *FirestoreStore) Get(ctx context.Context, uid string) (*Account, error) {
	snap, err := s.doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var row firestoreAccount
	if err := snap.DataTo(&row); err != nil {
		return nil, err
	}
	return &Account{
		UID:             uid,
		Upgraded:        row.IsUpgraded,
		CustomerRef:     row.StripeCustomerID,
		SubscriptionRef: row.StripeSubscriptionID,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}

func (s *FirestoreStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
