// ABOUTME: Tests for bot-credentials secret decoding.
// ABOUTME: Uses a fake Provider; never talks to Secret Manager.

package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns a fixed payload for any secret name.
type fakeProvider struct {
	payload []byte
	err     error
}

func (f *fakeProvider) Secret(_ context.Context, _ string) ([]byte, error) {
	return f.payload, f.err
}

func TestLoadBotSecrets_Valid(t *testing.T) {
	provider := &fakeProvider{payload: []byte(`{
		"SLACK_BOT_TOKEN": "xoxb-token",
		"SLACK_SIGNING_SECRET": "sign-secret",
		"VERTEX_RESOURCE_ID": "projects/p/locations/l/reasoningEngines/42"
	}`)}

	bs, err := LoadBotSecrets(context.Background(), provider, "bot-creds")
	require.NoError(t, err)
	assert.Equal(t, "xoxb-token", bs.BotToken)
	assert.Equal(t, "sign-secret", bs.SigningSecret)
	assert.Equal(t, "projects/p/locations/l/reasoningEngines/42", bs.ResourceID)
}

func TestLoadBotSecrets_ProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("permission denied")}

	_, err := LoadBotSecrets(context.Background(), provider, "bot-creds")
	assert.Error(t, err)
}

func TestLoadBotSecrets_MalformedJSON(t *testing.T) {
	provider := &fakeProvider{payload: []byte(`not json`)}

	_, err := LoadBotSecrets(context.Background(), provider, "bot-creds")
	assert.ErrorContains(t, err, "decoding secret")
}

func TestLoadBotSecrets_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "missing bot token",
			payload: `{"SLACK_SIGNING_SECRET": "s", "VERTEX_RESOURCE_ID": "r"}`,
			want:    "SLACK_BOT_TOKEN",
		},
		{
			name:    "missing signing secret",
			payload: `{"SLACK_BOT_TOKEN": "t", "VERTEX_RESOURCE_ID": "r"}`,
			want:    "SLACK_SIGNING_SECRET",
		},
		{
			name:    "missing resource id",
			payload: `{"SLACK_BOT_TOKEN": "t", "SLACK_SIGNING_SECRET": "s"}`,
			want:    "VERTEX_RESOURCE_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{payload: []byte(tt.payload)}
			_, err := LoadBotSecrets(context.Background(), provider, "bot-creds")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
