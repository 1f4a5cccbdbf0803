// Command webpro runs the Web Pro connection broker and its maintenance tasks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lborres/webpro"
	"github.com/lborres/webpro/adapters/memory"
	pgxadapter "github.com/lborres/webpro/adapters/pgx"
	"github.com/lborres/webpro/adapters/platform"
	"github.com/lborres/webpro/adapters/rediscache"
	"github.com/lborres/webpro/core"
	"github.com/lborres/webpro/internal/config"
	"github.com/lborres/webpro/pkg/cache"
)

var cfgFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "webpro",
		Short:         "Connect Web Pro operators to this site",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigPath(), "path to the YAML config file")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newDisconnectCmd(),
		newCheckKeyCmd(),
		newAdminTokenCmd(),
	)
	return root
}

func defaultConfigPath() string {
	if path := os.Getenv("WEBPRO_CONFIG"); path != "" {
		return path
	}
	return "webpro.yaml"
}

// env bundles what every command builds from the config file
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	dir    core.UserDirectory
	cache  core.VerificationCache
	close  func()
}

func loadEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	e := &env{cfg: cfg, logger: logger, close: func() {}}
	e.cache = openCache(ctx, cfg, logger)

	if cfg.Database.URL == "" {
		logger.Warn("database.url is empty, using the in-memory directory")
		e.dir = memory.NewDirectory()
		return e, nil
	}

	pool, err := pgxadapter.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	e.dir = pgxadapter.New(pool)
	e.close = pool.Close
	return e, nil
}

// openCache prefers redis so replicas share verifications, and falls
// back to process memory when it is unset or unreachable
func openCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) core.VerificationCache {
	cacheCfg := core.CacheConfig{TTL: cfg.Platform.CacheTTL, MaxSize: 500}
	if cacheCfg.TTL == 0 {
		cacheCfg.TTL = platform.DefaultCacheTTL
	}

	if cfg.Cache.RedisURL != "" {
		client, err := rediscache.Open(ctx, cfg.Cache.RedisURL)
		if err == nil {
			return rediscache.New(client, cacheCfg)
		}
		logger.Warn("redis unavailable, falling back to in-memory cache", "error", err)
	}
	return cache.NewInMemoryCache[*core.Verification](cacheCfg)
}

// newWebPro wires the library from the config file; http may be nil
func (e *env) newWebPro(http webpro.HTTPAdapter) (*webpro.WebPro, error) {
	client, err := platform.New(platform.Config{
		BaseURL:       e.cfg.Platform.BaseURL,
		SiteURL:       e.cfg.Site.URL,
		VerifyTimeout: e.cfg.Platform.VerifyTimeout,
		CallTimeout:   e.cfg.Platform.CallTimeout,
		Cache:         e.cache,
		Logger:        e.logger,
	})
	if err != nil {
		return nil, err
	}

	return webpro.New(webpro.Config{
		SiteURL:              e.cfg.Site.URL,
		Secret:               e.cfg.Site.Secret,
		AllowInsecureSiteURL: e.cfg.Site.AllowInsecure,
		Directory:            e.dir,
		Platform:             client,
		Logger:               e.logger,
		HTTP:                 http,
		BasePath:             e.cfg.Server.BasePath,
	})
}

// operator is the actor CLI commands act as
func operator() core.Actor {
	login := os.Getenv("USER")
	if login == "" {
		login = "cli"
	}
	return core.Actor{Login: login, CanManageUsers: true}
}
