// Package bot runs the Telegram command frontend.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/gitpingio/gitping/internal/authflow"
	"github.com/gitpingio/gitping/internal/identities"
	"github.com/gitpingio/gitping/internal/subscriptions"
)

// Bot long-polls Telegram for updates and translates commands into identity,
// subscription and authorization operations. The chat id doubles as the
// identity key, so replies and push notifications land in the same chat.
type Bot struct {
	api        *tgbotapi.BotAPI
	identities *identities.Service
	subs       *subscriptions.Service
	flow       *authflow.Coordinator
	logger     *slog.Logger

	cancel context.CancelFunc
}

func New(log *slog.Logger, api *tgbotapi.BotAPI, ids *identities.Service, subs *subscriptions.Service, flow *authflow.Coordinator) *Bot {
	if log == nil {
		log = slog.Default()
	}
	return &Bot{
		api:        api,
		identities: ids,
		subs:       subs,
		flow:       flow,
		logger:     log.With(slog.String("service", "bot")),
	}
}

// Start begins consuming updates. It returns immediately; the update loop runs
// until Stop is called.
func (b *Bot) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := b.api.GetUpdatesChan(updateConfig)

	go func() {
		for {
			select {
			case <-runCtx.Done():
				b.api.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					b.logger.Info("updates channel closed")
					return
				}
				if update.Message == nil || update.Message.Chat == nil {
					continue
				}
				cmd, ok := ParseCommand(update.Message.Text)
				if !ok {
					continue
				}
				chatID := update.Message.Chat.ID
				reply := b.handleCommand(runCtx, chatID, cmd)
				if reply == "" {
					continue
				}
				if _, err := b.api.Send(tgbotapi.NewMessage(chatID, reply)); err != nil {
					b.logger.Error("send reply failed",
						slog.Int64("chat_id", chatID),
						slog.Any("error", err))
				}
			}
		}
	}()
	b.logger.Info("started", slog.String("username", b.api.Self.UserName))
}

// Stop terminates the update loop.
func (b *Bot) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, cmd Command) string {
	key := strconv.FormatInt(chatID, 10)
	log := b.logger.With(slog.String("identity", key), slog.String("command", cmd.Name))

	switch cmd.Name {
	case "start":
		if _, err := b.identities.Ensure(ctx, key); err != nil {
			log.Error("ensure identity failed", slog.Any("error", err))
			return "Something went wrong, please try again."
		}
		return "Welcome to GitPing. Use /login to link your GitHub account, then /subscribe to watch repository paths.\n\n" + helpText

	case "help":
		return helpText

	case "login":
		return b.handleLogin(ctx, key, log)

	case "logout":
		if _, err := b.identities.Unlink(ctx, key); err != nil {
			if errors.Is(err, identities.ErrIdentityNotFound) {
				return "Your GitHub account is not linked."
			}
			log.Error("unlink failed", slog.Any("error", err))
			return "Something went wrong, please try again."
		}
		return "Your GitHub account has been unlinked."

	case "enable":
		return b.handleMute(ctx, key, false, log)

	case "disable":
		return b.handleMute(ctx, key, true, log)

	case "subscribe":
		return b.handleSubscribe(ctx, key, cmd.Args, log)

	case "subscriptions":
		return b.handleList(ctx, key, log)

	case "unsubscribe":
		return b.handleUnsubscribe(ctx, key, cmd.Args, log)

	default:
		return "Unknown command. Use /help to see what I can do."
	}
}

func (b *Bot) handleLogin(ctx context.Context, key string, log *slog.Logger) string {
	res, _, err := b.flow.Begin(ctx, key)
	if err != nil {
		if errors.Is(err, authflow.ErrAttemptPending) {
			return "A login is already in progress. Finish it or wait for it to expire."
		}
		log.Error("begin authorization failed", slog.Any("error", err))
		return "Could not start GitHub login, please try again later."
	}
	if res.AlreadyLinked {
		return "Your GitHub account is already linked. Use /logout first to relink."
	}
	return fmt.Sprintf("Open %s and enter code %s to link your GitHub account. I'll message you once it's done.",
		res.VerificationURI, res.UserCode)
}

func (b *Bot) handleMute(ctx context.Context, key string, muted bool, log *slog.Logger) string {
	if _, err := b.identities.Ensure(ctx, key); err != nil {
		log.Error("ensure identity failed", slog.Any("error", err))
		return "Something went wrong, please try again."
	}
	if _, err := b.identities.SetMuted(ctx, key, muted); err != nil {
		log.Error("set muted failed", slog.Any("error", err))
		return "Something went wrong, please try again."
	}
	if muted {
		return "Notifications disabled. Use /enable to turn them back on."
	}
	return "Notifications enabled."
}

func (b *Bot) handleSubscribe(ctx context.Context, key string, args []string, log *slog.Logger) string {
	if len(args) < 2 {
		return "Usage: /subscribe owner/repo pattern\nExample: /subscribe torvalds/linux drivers/net/**"
	}
	owner, name, err := ParseRepo(args[0])
	if err != nil {
		return err.Error()
	}
	pattern := strings.Join(args[1:], " ")

	linked, err := b.identities.Linked(ctx, key)
	if err != nil && !errors.Is(err, identities.ErrIdentityNotFound) {
		log.Error("check link failed", slog.Any("error", err))
		return "Something went wrong, please try again."
	}
	if !linked {
		return "Link your GitHub account with /login first."
	}

	sub, err := b.subs.Create(ctx, key, subscriptions.CreateRequest{
		RepoOwner: owner,
		RepoName:  name,
		Pattern:   pattern,
	})
	if err != nil {
		log.Error("create subscription failed", slog.Any("error", err))
		return "Could not create the subscription, please try again."
	}
	return fmt.Sprintf("Subscribed: #%d %s/%s %s", sub.Seq, sub.RepoOwner, sub.RepoName, sub.Pattern)
}

func (b *Bot) handleList(ctx context.Context, key string, log *slog.Logger) string {
	subs, err := b.subs.List(ctx, key)
	if err != nil {
		log.Error("list subscriptions failed", slog.Any("error", err))
		return "Something went wrong, please try again."
	}
	if len(subs) == 0 {
		return "You have no subscriptions. Use /subscribe owner/repo pattern to add one."
	}
	var sb strings.Builder
	sb.WriteString("Your subscriptions:\n")
	for _, sub := range subs {
		fmt.Fprintf(&sb, "#%d %s/%s %s\n", sub.Seq, sub.RepoOwner, sub.RepoName, sub.Pattern)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) handleUnsubscribe(ctx context.Context, key string, args []string, log *slog.Logger) string {
	if len(args) != 1 {
		return "Usage: /unsubscribe N (see /subscriptions for numbers)"
	}
	seq, err := ParseSeq(args[0])
	if err != nil {
		return err.Error()
	}
	if err := b.subs.Delete(ctx, key, int(seq)); err != nil {
		if errors.Is(err, subscriptions.ErrSubscriptionNotFound) {
			return fmt.Sprintf("No subscription #%d found.", seq)
		}
		log.Error("delete subscription failed", slog.Any("error", err))
		return "Something went wrong, please try again."
	}
	return fmt.Sprintf("Subscription #%d removed.", seq)
}
