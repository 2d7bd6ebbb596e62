package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/profilebot/internal/api"
	"github.com/ignite/profilebot/internal/battlenet"
	"github.com/ignite/profilebot/internal/bot"
	"github.com/ignite/profilebot/internal/compose"
	"github.com/ignite/profilebot/internal/config"
	"github.com/ignite/profilebot/internal/formatter"
	"github.com/ignite/profilebot/internal/lifecycle"
	"github.com/ignite/profilebot/internal/lookup"
	"github.com/ignite/profilebot/internal/monitoring"
	"github.com/ignite/profilebot/internal/pkg/distlock"
	"github.com/ignite/profilebot/internal/pkg/logger"
	"github.com/ignite/profilebot/internal/profiler"
	"github.com/ignite/profilebot/internal/reddit"
)

// leaseTTL bounds how long a crashed instance blocks its successor.
const leaseTTL = 10 * time.Minute

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		logger.Error("profilebot stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting profilebot",
		"username", cfg.Bot.Username,
		"subreddit", cfg.Reddit.Subreddit,
		"source", cfg.Reddit.Source,
		"dry_run", cfg.Bot.DryRun)

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return err
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		logger.Info("connected to redis")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	db, err := lookup.Open(pingCtx, cfg.Lookup.DatabaseURL)
	cancel()
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	logger.Info("connected to lookup database")

	composer, err := newComposer(cfg, db, rdb)
	if err != nil {
		return err
	}

	lease := distlock.New(rdb, db, "profilebot:"+cfg.Bot.Username, leaseTTL)
	if err := lease.Acquire(ctx); err != nil {
		if errors.Is(err, distlock.ErrHeld) {
			logger.Error("another instance is running for this account", "username", cfg.Bot.Username)
		}
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			logger.Warn("failed to release instance lease", "error", err)
		}
	}()

	metrics := monitoring.NewMetrics("profilebot")
	b := bot.New(bot.Config{
		Identity:        cfg.Bot.Username,
		Terms:           cfg.Bot.Terms(),
		MaxAge:          cfg.Bot.MaxAge(),
		SubmissionLimit: cfg.Bot.SubmissionLimit,
		CommentLimit:    cfg.Bot.CommentLimit,
		PollInterval:    cfg.Bot.PollInterval(),
		FaultRetry:      cfg.Bot.FaultRetry(),
		Policy: lifecycle.Policy{
			FailsAllowed:      cfg.Bot.FailsAllowed,
			SelfPostRetention: cfg.Bot.SelfPostRetention(),
			OwnHistoryLimit:   cfg.Bot.OwnHistoryLimit,
		},
	}, newTransport(cfg), composer, metrics, bot.WithLease(lease))

	var srv *api.Server
	if cfg.Server.Enabled {
		stale := 3 * (cfg.Bot.PollInterval() + cfg.Bot.FaultRetry())
		srv = api.NewServer(cfg.Server, metrics, api.NewHealthChecker(db, rdb, metrics, stale))
		go func() {
			logger.Info("status server listening", "addr", cfg.Server.Addr())
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server failed", "error", err)
			}
		}()
	}

	runErr := b.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown", "error", err)
		}
	}
	logger.Info("profilebot stopped")
	return runErr
}

func newComposer(cfg *config.Config, db *sql.DB, rdb *redis.Client) (*compose.Composer, error) {
	store, err := lookup.NewStore(db, cfg.Lookup.ItemTable, cfg.Lookup.StatsTable)
	if err != nil {
		return nil, err
	}

	var cache battlenet.Cache = battlenet.NopCache{}
	if rdb != nil {
		cache = battlenet.NewRedisCache(rdb, "profilebot:bnet:")
	}
	bnet := battlenet.NewClient(battlenet.Config{
		BaseURL:      cfg.BattleNet.BaseURL,
		TokenURL:     cfg.BattleNet.TokenURL,
		ClientID:     cfg.BattleNet.ClientID,
		ClientSecret: cfg.BattleNet.ClientSecret,
		Locale:       cfg.BattleNet.Locale,
		CacheTTL:     cfg.BattleNet.CacheTTL(),
		Timeout:      cfg.BattleNet.Timeout(),
		MaxRetries:   cfg.BattleNet.MaxRetries,
	}, cache)

	prof := profiler.New(profiler.Config{
		ProfileURL:      cfg.BattleNet.ProfileURL,
		ItemPath:        cfg.BattleNet.ItemPath,
		CraftedItemPath: cfg.BattleNet.CraftedItemPath,
		GearStats:       cfg.Lookup.GearStatNames(),
	}, bnet, store)

	render := formatter.NewRenderer(formatter.Config{
		SlotOrder:    cfg.Lookup.SlotOrder(),
		MaxOrder:     cfg.Lookup.MaxOrder,
		MessageMeURL: cfg.Lookup.MessageMeURL,
	}, store)

	ex, err := compose.NewExtractor(cfg.BattleNet.Regions)
	if err != nil {
		return nil, err
	}
	return compose.NewComposer(ex, bnet, prof, render), nil
}

// newTransport picks the live client, or a read-only wrapper in dry-run mode.
func newTransport(cfg *config.Config) bot.Transport {
	if cfg.Reddit.Source == "feed" {
		return reddit.NewDryRun(reddit.NewFeedSource(cfg.Reddit.FeedBaseURL, cfg.Reddit.Subreddit,
			cfg.Reddit.UserAgent, cfg.Reddit.Timeout()))
	}

	client := reddit.NewClient(reddit.Config{
		Subreddit:         cfg.Reddit.Subreddit,
		Username:          cfg.Bot.Username,
		Password:          cfg.Reddit.Password,
		ClientID:          cfg.Reddit.ClientID,
		ClientSecret:      cfg.Reddit.ClientSecret,
		UserAgent:         cfg.Reddit.UserAgent,
		BaseURL:           cfg.Reddit.BaseURL,
		AuthURL:           cfg.Reddit.AuthURL,
		RequestsPerMinute: cfg.Reddit.RequestsPerMinute,
		MaxRetries:        cfg.Reddit.MaxRetries,
		Timeout:           cfg.Reddit.Timeout(),
	})
	if cfg.Bot.DryRun {
		return reddit.NewDryRun(client)
	}
	return client
}
