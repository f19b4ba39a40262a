package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/garrettladley/bnotif/internal/client/bsky"
	"github.com/garrettladley/bnotif/internal/config"
	"github.com/garrettladley/bnotif/internal/feed"
	"github.com/garrettladley/bnotif/internal/moderation"
	"github.com/garrettladley/bnotif/internal/notification"
	"github.com/garrettladley/bnotif/internal/querycache"
	xredis "github.com/garrettladley/bnotif/internal/redis"
	"github.com/garrettladley/bnotif/internal/session"
	"github.com/garrettladley/bnotif/internal/unread"
	"github.com/garrettladley/bnotif/internal/version"
	"github.com/garrettladley/bnotif/internal/xslog"
)

var errNoAccessJWT = errors.New("ACCESS_JWT is not set")

type moderationFlags struct {
	muted        []string
	blocked      []string
	hiddenLabels []string
	mutedThreads []string
}

func (f *moderationFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringSliceVar(&f.muted, "mute", nil, "actor DIDs whose notifications are hidden")
	pf.StringSliceVar(&f.blocked, "block", nil, "blocked actor DIDs")
	pf.StringSliceVar(&f.hiddenLabels, "hide-label", nil, "label values that hide a notification")
	pf.StringSliceVar(&f.mutedThreads, "mute-thread", nil, "thread root URIs to hide")
}

// deps is everything a subcommand needs, built from the environment.
type deps struct {
	logger  *slog.Logger
	queries *querycache.Client[notification.Page]
	tracker *unread.Tracker
	feed    *feed.Cache
}

func newDeps(ctx context.Context, flags *moderationFlags) (*deps, error) {
	logger := xslog.NewLoggerFromEnv(os.Stderr)
	slog.SetDefault(logger)

	cfg, err := config.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if cfg.AccessJWT == "" {
		return nil, errNoAccessJWT
	}

	sessionID := session.NewID()
	logger = logger.With(xslog.SessionID(sessionID), xslog.Version())

	tokenSource := oauth2.ReuseTokenSource(nil, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.AccessJWT,
		TokenType:   "Bearer",
	}))

	client := bsky.New(tokenSource,
		bsky.WithServiceURL(cfg.ServiceURL),
		bsky.WithSessionID(sessionID),
		bsky.WithLogger(logger),
		bsky.WithTimeout(cfg.RequestTimeout),
		bsky.WithRateLimit(cfg.RequestsPerSecond),
	)

	store, err := newStore(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}
	queries := querycache.New[notification.Page](store, logger)

	fetcher := notification.NewFetcher(client.Notification, client.Feed,
		notification.WithModeration(moderation.NewOptions(flags.muted, flags.blocked, flags.hiddenLabels)),
		notification.WithThreadMutes(moderation.NewThreadMutes(flags.mutedThreads...)),
		notification.WithLogger(logger),
	)

	tracker := unread.New(fetcher, client.Notification, queries,
		unread.WithLogger(logger),
		unread.WithPollInterval(cfg.PollInterval),
	)

	return &deps{
		logger:  logger,
		queries: queries,
		tracker: tracker,
		feed:    feed.New(fetcher, tracker, queries, logger),
	}, nil
}

func newStore(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (querycache.Store[notification.Page], error) {
	if !cfg.Enabled() {
		return querycache.NewMemoryStore[notification.Page](), nil
	}

	client, err := xredis.Open(ctx, xredis.Config{
		URL:        cfg.URL,
		ClientName: version.UserAgent(version.Get()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis client: %w", err)
	}
	logger.InfoContext(ctx, "using redis query cache", slog.String("namespace", cfg.Namespace))
	return querycache.NewRedisStore[notification.Page](client, cfg.Namespace), nil
}

func (d *deps) Close() {
	d.tracker.Close()
	if err := d.queries.Close(); err != nil {
		d.logger.Error("failed to close query cache", xslog.Error(err))
	}
}
