package main

import (
	"context"
	"fmt"
	"os"

	lc "github.com/huykn/livecache"
	"github.com/huykn/livecache/identity"
	"github.com/huykn/livecache/internal/config"
	"github.com/huykn/livecache/internal/logger"
	zaplog "github.com/huykn/livecache/log/zap"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

var configPath string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "livecache",
	Short: "Live query cache over Redis Pub/Sub",
	Long: `livecache keeps lists stored in Redis in sync with data messages
published on a Pub/Sub channel, and publishes such messages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		l, logErr := logger.New(&logger.Config{Level: "debug", Format: "console"})
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory holding the .env file")
}

// queryFlags are shared by the commands that host a live query.
type queryFlags struct {
	group         string
	idField       string
	hydratePrefix string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.group, "group", "", "group to join for the query's lifetime")
	cmd.Flags().StringVar(&f.idField, "id-field", "id", "record field holding the identity")
	cmd.Flags().StringVar(&f.hydratePrefix, "hydrate-prefix", "", "store key prefix of canonical records; empty disables hydration")
}

// connect loads configuration, builds the logger and connects the cache.
func connect(meter metric.Meter) (*config.Config, *zap.Logger, *lc.Cache, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create logger: %w", err)
	}

	lcCfg := lc.DefaultConfig()
	if cfg.Cache.PodID != "" {
		lcCfg.PodID = cfg.Cache.PodID
	}
	lcCfg.RedisAddr = cfg.Redis.Addr
	lcCfg.RedisPassword = cfg.Redis.Password
	lcCfg.RedisDB = cfg.Redis.DB
	lcCfg.StorePrefix = cfg.Redis.Prefix
	lcCfg.Channel = cfg.Cache.Channel
	lcCfg.IgnoreOwn = cfg.Cache.IgnoreOwn
	lcCfg.SerializationFormat = cfg.Cache.Format
	lcCfg.ContextTimeout = cfg.Cache.Timeout
	lcCfg.DebugMode = cfg.Cache.Debug
	lcCfg.Logger = zaplog.New(logg)
	lcCfg.Meter = meter
	lcCfg.OnError = func(err error) {
		logg.Debug("background error", zap.Error(err))
	}

	c, err := lc.New(lcCfg)
	if err != nil {
		_ = logg.Sync()
		return nil, nil, nil, fmt.Errorf("connect: %w", err)
	}

	logg = logg.With(zap.String("pod", lcCfg.PodID))
	return cfg, logg, c, nil
}

// watchList starts a live query over the list stored under listKey.
func watchList(ctx context.Context, c *lc.Cache, event, listKey string, f queryFlags) (*lc.LiveQuery[lc.Record], error) {
	opts := lc.QueryOptions[lc.Record]{
		Key:      lc.Key{event, listKey},
		Event:    event,
		Group:    f.group,
		Fetch:    lc.Fetcher[lc.Record](c, listKey),
		SelectID: identity.Field[lc.Record](f.idField),
	}
	if f.hydratePrefix != "" {
		opts.Hydrate = lc.Hydrator[lc.Record](c, f.hydratePrefix)
	}
	return lc.Watch(ctx, c, opts)
}
