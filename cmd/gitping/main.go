package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	dbembed "github.com/gitpingio/gitping/db"
	"github.com/gitpingio/gitping/internal/authflow"
	"github.com/gitpingio/gitping/internal/bot"
	"github.com/gitpingio/gitping/internal/config"
	"github.com/gitpingio/gitping/internal/db"
	dbsqlc "github.com/gitpingio/gitping/internal/db/sqlc"
	"github.com/gitpingio/gitping/internal/dispatch"
	"github.com/gitpingio/gitping/internal/githubapi"
	"github.com/gitpingio/gitping/internal/handlers"
	"github.com/gitpingio/gitping/internal/identities"
	"github.com/gitpingio/gitping/internal/logger"
	"github.com/gitpingio/gitping/internal/notify"
	"github.com/gitpingio/gitping/internal/server"
	"github.com/gitpingio/gitping/internal/subscriptions"
	"github.com/gitpingio/gitping/internal/version"
)

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideDBQueries(conn *pgxpool.Pool) *dbsqlc.Queries {
	return dbsqlc.New(conn)
}

func provideGitHubClient(log *slog.Logger, cfg config.Config) (*githubapi.Client, error) {
	return githubapi.NewClient(log, cfg.GitHub)
}

func provideTelegramAPI(cfg config.Config) (*tgbotapi.BotAPI, error) {
	token := strings.TrimSpace(cfg.Telegram.BotToken)
	if token == "" {
		if cfg.Notify.Channel == "telegram" {
			return nil, fmt.Errorf("telegram bot_token required in config.toml")
		}
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	return api, nil
}

func provideNotifier(log *slog.Logger, cfg config.Config, api *tgbotapi.BotAPI) (notify.Notifier, error) {
	switch cfg.Notify.Channel {
	case "telegram":
		return notify.NewTelegramNotifier(log, api), nil
	case "discord":
		return notify.NewDiscordNotifier(log, cfg.Discord.BotToken)
	case "slack":
		return notify.NewSlackNotifier(log, cfg.Slack.BotToken)
	default:
		return nil, fmt.Errorf("unknown notify channel %q", cfg.Notify.Channel)
	}
}

func provideIdentitiesService(log *slog.Logger, queries *dbsqlc.Queries) *identities.Service {
	return identities.NewService(log, queries)
}

func provideSubscriptionsService(log *slog.Logger, cfg config.Config, conn *pgxpool.Pool, queries *dbsqlc.Queries, github *githubapi.Client, ids *identities.Service) *subscriptions.Service {
	var registrar subscriptions.WebhookRegistrar
	webhookURL := ""
	if cfg.GitHub.RegisterHooks {
		registrar = github
		webhookURL = cfg.GitHub.WebhookURL
	}
	return subscriptions.NewService(log, conn, queries, registrar, ids, webhookURL)
}

// identityLinker adapts the identities service to the coordinator's store
// surface, dropping the returned row.
type identityLinker struct {
	ids *identities.Service
}

func (l identityLinker) Linked(ctx context.Context, identityKey string) (bool, error) {
	return l.ids.Linked(ctx, identityKey)
}

func (l identityLinker) Link(ctx context.Context, identityKey, token string) error {
	_, err := l.ids.Link(ctx, identityKey, token)
	return err
}

func provideCoordinator(log *slog.Logger, github *githubapi.Client, ids *identities.Service, notifier notify.Notifier) *authflow.Coordinator {
	return authflow.NewCoordinator(log, github, identityLinker{ids: ids}, notifier)
}

// repoSubscriptionSource adapts the subscriptions service to the dispatcher's
// read surface.
type repoSubscriptionSource struct {
	subs *subscriptions.Service
}

func (s repoSubscriptionSource) ListByRepo(ctx context.Context, owner, repo string) ([]dispatch.Subscription, error) {
	rows, err := s.subs.ListByRepo(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	items := make([]dispatch.Subscription, 0, len(rows))
	for _, row := range rows {
		items = append(items, dispatch.Subscription{
			IdentityKey: row.IdentityKey,
			Seq:         row.Seq,
			Pattern:     row.Pattern,
			Muted:       row.Muted,
		})
	}
	return items, nil
}

func provideDispatcher(log *slog.Logger, subs *subscriptions.Service, notifier notify.Notifier) *dispatch.Dispatcher {
	return dispatch.NewDispatcher(log, repoSubscriptionSource{subs: subs}, notifier)
}

func provideAuthHandler(log *slog.Logger, cfg config.Config) *handlers.AuthHandler {
	expiresIn, err := time.ParseDuration(cfg.Auth.JWTExpiresIn)
	if err != nil || expiresIn <= 0 {
		expiresIn = 24 * time.Hour
	}
	return handlers.NewAuthHandler(log, cfg.Admin, cfg.Auth.JWTSecret, expiresIn)
}

func provideWebhookHandler(log *slog.Logger, cfg config.Config, dispatcher *dispatch.Dispatcher) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, dispatcher, cfg.GitHub.WebhookSecret)
}

func provideBot(log *slog.Logger, api *tgbotapi.BotAPI, ids *identities.Service, subs *subscriptions.Service, flow *authflow.Coordinator) *bot.Bot {
	if api == nil {
		return nil
	}
	return bot.New(log, api, ids, subs, flow)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.ServerHandlers...)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func startBot(lc fx.Lifecycle, b *bot.Bot, logger *slog.Logger) {
	if b == nil {
		logger.Info("telegram bot disabled: no bot_token configured")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			b.Start(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			b.Stop()
			return nil
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	srv *server.Server,
	shutdowner fx.Shutdowner,
	cfg config.Config,
) {
	fmt.Printf("Starting gitping %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			migrations, err := dbembed.Migrations()
			if err != nil {
				return fmt.Errorf("migrations fs: %w", err)
			}
			if err := db.RunMigrate(logger, cfg.Postgres, migrations, "up"); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			go func() {
				if err := srv.Start(); err != nil { // block until server is stopped
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown() // shutdown the application if the server fails to start
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// graceful shutdown
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

func runMigrateCommand(command string) {
	cfg, err := provideConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := provideLogger(cfg)
	migrations, err := dbembed.Migrations()
	if err != nil {
		log.Error("migrations fs", slog.Any("error", err))
		os.Exit(1)
	}
	if err := db.RunMigrate(log, cfg.Postgres, migrations, command); err != nil {
		log.Error("migrate failed", slog.String("command", command), slog.Any("error", err))
		os.Exit(1)
	}
}

func main() {
	if len(os.Args) > 2 && os.Args[1] == "migrate" {
		runMigrateCommand(os.Args[2])
		return
	}

	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,

			provideDBConn,
			provideDBQueries,
			provideGitHubClient,
			provideTelegramAPI,
			provideNotifier,

			provideIdentitiesService,
			provideSubscriptionsService,
			provideCoordinator,
			provideDispatcher,
			provideBot,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideAuthHandler),
			provideServerHandler(handlers.NewIdentitiesHandler),
			provideServerHandler(handlers.NewSubscriptionsHandler),
			provideServerHandler(provideWebhookHandler),

			provideServer,
		),
		fx.Invoke(
			startBot,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}
