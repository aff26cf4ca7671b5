package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// DiscordNotifier delivers messages as Discord DMs.
// The identity key is the Discord user id.
type DiscordNotifier struct {
	session *discordgo.Session
	logger  *slog.Logger
}

// NewDiscordNotifier creates a Discord notifier from a bot token.
func NewDiscordNotifier(log *slog.Logger, botToken string) (*DiscordNotifier, error) {
	if strings.TrimSpace(botToken) == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	if log == nil {
		log = slog.Default()
	}
	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &DiscordNotifier{
		session: session,
		logger:  log.With(slog.String("notifier", "discord")),
	}, nil
}

// Send opens (or reuses) the DM channel for the user and posts the text.
func (n *DiscordNotifier) Send(ctx context.Context, identityKey, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	userID := strings.TrimSpace(identityKey)
	if userID == "" {
		return fmt.Errorf("discord: user id is required")
	}
	channel, err := n.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord dm channel: %w", err)
	}
	if _, err := n.session.ChannelMessageSend(channel.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	n.logger.Debug("message sent", slog.String("user_id", userID))
	return nil
}
