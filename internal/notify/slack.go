package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
)

// SlackNotifier delivers messages via the Slack Web API.
// The identity key is the Slack channel or user id.
type SlackNotifier struct {
	client *slack.Client
	logger *slog.Logger
}

// NewSlackNotifier creates a Slack notifier from a bot token.
func NewSlackNotifier(log *slog.Logger, botToken string) (*SlackNotifier, error) {
	if strings.TrimSpace(botToken) == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &SlackNotifier{
		client: slack.New(botToken),
		logger: log.With(slog.String("notifier", "slack")),
	}, nil
}

// Send posts the text to the channel or user identified by identityKey.
func (n *SlackNotifier) Send(ctx context.Context, identityKey, text string) error {
	channel := strings.TrimSpace(identityKey)
	if channel == "" {
		return fmt.Errorf("slack: channel id is required")
	}
	_, _, err := n.client.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	n.logger.Debug("message sent", slog.String("channel", channel))
	return nil
}
