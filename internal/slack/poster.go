// ABOUTME: Outbound Slack client: message posting and bot-identity resolution.
// ABOUTME: Thin wrapper over slack-go so the rest of the relay depends on an interface.

package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// Poster posts a message to a channel. Satisfied by *Client and by test fakes.
type Poster interface {
	PostMessage(ctx context.Context, channelID, text string) error
}

// Client wraps the Slack Web API for the operations the relay needs.
type Client struct {
	api *slackapi.Client
}

// NewClient builds a Web API client from a bot token.
func NewClient(botToken string) *Client {
	return &Client{api: slackapi.New(botToken)}
}

// PostMessage posts plain text to the given channel.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, channelID, slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting to channel %s: %w", channelID, err)
	}
	return nil
}

// BotIdentity resolves the bot's own user ID via auth.test. Called once at
// startup; the result is cached by the dispatcher for the process lifetime.
func (c *Client) BotIdentity(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("resolving bot identity: %w", err)
	}
	return resp.UserID, nil
}
