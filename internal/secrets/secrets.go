// ABOUTME: Secret resolution from Google Secret Manager at startup.
// ABOUTME: Decodes the JSON bot-credentials payload and fails fast on missing fields.

package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// Provider resolves a named secret to its payload bytes. It is consumed
// once during initialization; implementations do not need to cache.
type Provider interface {
	Secret(ctx context.Context, name string) ([]byte, error)
}

// ManagerProvider is a Provider backed by Google Secret Manager.
type ManagerProvider struct {
	client    *secretmanager.Client
	projectID string
}

// NewManagerProvider creates a Secret Manager client scoped to the given project.
// The caller owns the returned provider and must Close it.
func NewManagerProvider(ctx context.Context, projectID string) (*ManagerProvider, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating secret manager client: %w", err)
	}
	return &ManagerProvider{client: client, projectID: projectID}, nil
}

// Secret accesses the latest version of the named secret.
func (p *ManagerProvider) Secret(ctx context.Context, name string) ([]byte, error) {
	resp, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", p.projectID, name),
	})
	if err != nil {
		return nil, fmt.Errorf("accessing secret %q: %w", name, err)
	}
	return resp.GetPayload().GetData(), nil
}

// Close releases the underlying client connection.
func (p *ManagerProvider) Close() error {
	return p.client.Close()
}

// BotSecrets is the JSON payload stored in the bot-credentials secret.
type BotSecrets struct {
	BotToken      string `json:"SLACK_BOT_TOKEN"`
	SigningSecret string `json:"SLACK_SIGNING_SECRET"`
	ResourceID    string `json:"VERTEX_RESOURCE_ID"`
}

// LoadBotSecrets resolves and decodes the bot-credentials secret.
// Every field must be present and non-empty; a partial payload is a
// startup failure, not something to limp along with.
func LoadBotSecrets(ctx context.Context, provider Provider, name string) (*BotSecrets, error) {
	data, err := provider.Secret(ctx, name)
	if err != nil {
		return nil, err
	}

	var bs BotSecrets
	if err := json.Unmarshal(data, &bs); err != nil {
		return nil, fmt.Errorf("decoding secret %q: %w", name, err)
	}

	if bs.BotToken == "" {
		return nil, fmt.Errorf("secret %q: SLACK_BOT_TOKEN is empty", name)
	}
	if bs.SigningSecret == "" {
		return nil, fmt.Errorf("secret %q: SLACK_SIGNING_SECRET is empty", name)
	}
	if bs.ResourceID == "" {
		return nil, fmt.Errorf("secret %q: VERTEX_RESOURCE_ID is empty", name)
	}

	return &bs, nil
}
