package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/billing-bridge/pkg/config"
	pkgerrors "github.com/angelmondragon/billing-bridge/pkg/errors"
	"github.com/angelmondragon/billing-bridge/pkg/logger"
)

// Client publishes to the billing status topic.
type Client struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	projectID string
	topic     string
}

// NewClient opens a Pub/Sub v2 client bound to the configured billing topic.
func NewClient(ctx context.Context, cfg config.PubSubConfig, logg *logger.Logger, opts ...option.ClientOption) (*Client, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "Missing PUBSUB_PROJECT_ID in env.")
	}
	if strings.TrimSpace(cfg.BillingTopic) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "Missing PUBSUB_BILLING_TOPIC in env.")
	}

	psClient, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating pubsub client")
	}

	c := Wrap(psClient, projectID, cfg.BillingTopic)
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", c.topic), "pubsub publisher initialized")
	}
	return c, nil
}

// Wrap adopts an existing client, e.g. one connected to pstest or the emulator.
func Wrap(psClient *pubsub.Client, projectID, topic string) *Client {
	c := &Client{client: psClient, projectID: projectID}
	c.topic = c.topicResourceName(topic)
	c.publisher = psClient.Publisher(c.topic)
	return c
}

// Topic returns the full topic resource name.
func (c *Client) Topic() string {
	if c == nil {
		return ""
	}
	return c.topic
}

// Publish sends data and blocks until the server acknowledges it.
func (c *Client) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	if c == nil || c.publisher == nil {
		return "", errors.New("pubsub client not initialized")
	}
	res := c.publisher.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	id, err := res.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publishing to %s: %w", c.topic, err)
	}
	return id, nil
}

// Ping verifies the topic exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: c.topic})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return pkgerrors.Newf(pkgerrors.CodeConfiguration, "topic %q does not exist", c.topic)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checking pubsub topic")
	}
	return nil
}

// Close flushes pending messages and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.publisher != nil {
		c.publisher.Stop()
	}
	return c.client.Close()
}

func (c *Client) topicResourceName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	return fmt.Sprintf("projects/%s/topics/%s", strings.TrimSpace(c.projectID), n)
}
