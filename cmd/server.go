package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wecombot/internal/audit"
	"github.com/ziadkadry99/wecombot/internal/bots"
	"github.com/ziadkadry99/wecombot/internal/config"
	"github.com/ziadkadry99/wecombot/internal/db"
	"github.com/ziadkadry99/wecombot/internal/server"
	"github.com/ziadkadry99/wecombot/internal/workflow"
	"github.com/ziadkadry99/wecombot/internal/wxcrypt"
)

var serverPort int

// shutdownTimeout bounds how long in-flight callbacks may take on shutdown.
const shutdownTimeout = 10 * time.Second

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the bot callback server",
	Long:  `Starts the callback server: URL verification, encrypted message callbacks, background replies and the event log API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = serverPort
		}
		if len(cfg.Channels) == 0 {
			return fmt.Errorf("no channels configured in %s\nRun `wecombot init` to add one", cfgFile)
		}

		logger, closeLog, err := newLogger(cfg)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		defer closeLog()

		// Open database.
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		dbPath := filepath.Join(cfg.DataDir, "wecombot.db")
		database, err := db.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		runner, err := workflow.NewRunner(cfg.Workflow)
		if err != nil {
			return fmt.Errorf("creating workflow runner: %w", err)
		}

		cache, err := wxcrypt.NewCache(cfg.CacheSize)
		if err != nil {
			return fmt.Errorf("creating crypto cache: %w", err)
		}

		pushTimeout := time.Duration(cfg.PushTimeoutSeconds) * time.Second
		store := audit.NewStore(database)
		dispatcher := bots.NewDispatcher(
			bots.NewGateway(bots.NewProcessor(runner), logger),
			bots.NewWebhookSender(pushTimeout, logger),
			bots.DispatcherOptions{
				Workers:    cfg.Workers,
				QueueSize:  cfg.QueueSize,
				JobTimeout: time.Duration(cfg.Workflow.TimeoutSeconds)*time.Second + pushTimeout,
				RunnerName: runner.Name(),
				Recorder:   store,
				Logger:     logger,
			},
		)
		dispatcher.Start(context.Background())

		srv := server.New(server.Config{
			Port:     cfg.Port,
			AllowAll: cfg.AllowAllOrigins,
		}, database, logger)

		registerAllRoutes(srv, cfg, cache, dispatcher, store, logger)

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("wecombot starting",
			"version", Version,
			"port", cfg.Port,
			"database", dbPath,
			"workflow", runner.Name(),
			"workers", cfg.Workers,
		)
		for _, ch := range cfg.Channels {
			logger.Info("channel configured", "name", ch.Name, "callback", "/api/bots/wecom/"+ch.Name)
		}

		// Run returns once in-flight callbacks have been acknowledged, so
		// every job they submitted is queued before the workers drain.
		err = srv.Run(ctx, shutdownTimeout)
		dispatcher.Stop()
		logger.Info("server stopped")
		return err
	},
}

// registerAllRoutes wires up the callback and event log routes.
func registerAllRoutes(srv *server.Server, cfg *config.Config, cache *wxcrypt.Cache, dispatcher *bots.Dispatcher, store *audit.Store, logger *slog.Logger) {
	r := srv.Router()

	// Event log
	audit.RegisterRoutes(r, store)

	// WeCom callbacks
	wecom := bots.NewWeComHandler(bots.WeComOptions{
		Channels:   cfg.Channels,
		Cache:      cache,
		Dispatcher: dispatcher,
		Events:     store,
		Logger:     logger,
	})
	bots.RegisterRoutes(r, wecom)
}

func init() {
	serverCmd.Flags().IntVar(&serverPort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serverCmd)
}
