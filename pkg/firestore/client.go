package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/angelmondragon/billing-bridge/pkg/config"
	pkgerrors "github.com/angelmondragon/billing-bridge/pkg/errors"
	"github.com/angelmondragon/billing-bridge/pkg/logger"
)

const (
	tokenURI    = "https://oauth2.googleapis.com/token"
	pingTimeout = 5 * time.Second
)

type Client struct {
	client     *firestore.Client
	projectID  string
	collection string
}

// serviceAccount mirrors the subset of a Google service-account key file the
// auth libraries need to mint tokens.
type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

// NewClient opens a Firestore client authenticated with the configured service account.
func NewClient(ctx context.Context, cfg config.FirebaseConfig, logg *logger.Logger) (*Client, error) {
	creds, err := CredentialsJSON(cfg)
	if err != nil {
		return nil, err
	}

	projectID := strings.TrimSpace(cfg.ProjectID)
	fsClient, err := firestore.NewClient(ctx, projectID, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating firestore client")
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "project_id", projectID), "firestore client initialized")
	}

	return Wrap(fsClient, projectID, cfg.Collection), nil
}

// Wrap adopts an existing Firestore client, e.g. one pointed at the emulator.
func Wrap(fsClient *firestore.Client, projectID, collection string) *Client {
	if strings.TrimSpace(collection) == "" {
		collection = "users"
	}
	return &Client{client: fsClient, projectID: projectID, collection: collection}
}

// CredentialsJSON builds a service-account key document from discrete env values.
func CredentialsJSON(cfg config.FirebaseConfig) ([]byte, error) {
	missing := []string{}
	if strings.TrimSpace(cfg.ProjectID) == "" {
		missing = append(missing, config.EnvFirebaseProjectID)
	}
	if strings.TrimSpace(cfg.ClientEmail) == "" {
		missing = append(missing, config.EnvFirebaseClientEmail)
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		missing = append(missing, config.EnvFirebasePrivateKey)
	}
	if len(missing) > 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeConfiguration, "Missing %s in env.", strings.Join(missing, ", "))
	}

	return json.Marshal(serviceAccount{
		Type:        "service_account",
		ProjectID:   strings.TrimSpace(cfg.ProjectID),
		ClientEmail: strings.TrimSpace(cfg.ClientEmail),
		PrivateKey:  cfg.NormalizedPrivateKey(),
		TokenURI:    tokenURI,
	})
}

// Firestore returns the underlying SDK client.
func (c *Client) Firestore() *firestore.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// Collection returns the configured users collection name.
func (c *Client) Collection() string {
	if c == nil {
		return ""
	}
	return c.collection
}

// Doc returns a reference to collection/id. An empty collection means the users collection.
func (c *Client) Doc(collection, id string) *firestore.DocumentRef {
	if collection == "" {
		collection = c.collection
	}
	return c.client.Collection(collection).Doc(id)
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("firestore client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	iter := c.client.Collection(c.collection).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
