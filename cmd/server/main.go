// Package main provides the entry point for the race session server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/runbattle/internal/baseline"
	"github.com/yourusername/runbattle/internal/config"
	"github.com/yourusername/runbattle/internal/database"
	"github.com/yourusername/runbattle/internal/gateway"
	"github.com/yourusername/runbattle/internal/health"
	"github.com/yourusername/runbattle/internal/logger"
	"github.com/yourusername/runbattle/internal/metrics"
	"github.com/yourusername/runbattle/internal/race"
	"github.com/yourusername/runbattle/internal/repository"
	"github.com/yourusername/runbattle/internal/scheduler"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	appLog     *logrus.Logger
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "runbattle-server",
	Short: "Real-time race session server",
	Long:  `Runs the WebSocket gateway and race session engine for live head-to-head battles and solo ghost runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appLog = logger.NewLogger(cfg.App.LogLevel)
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("runbattle-server %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	return config.Validate(cfg)
}

func runServer() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
		"commit":      GitCommit,
	}).Info("RunBattle server starting")

	metrics.InitRegistry()

	// Database connection
	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()
	appLog.Info("Database connection established")

	repos, err := repository.NewRepositories(db)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize repositories")
	}
	sink := repository.NewSink(repos, appLog)

	// Optional Redis fanout for multi-instance deployments
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			appLog.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer redisClient.Close()
		appLog.WithField("address", cfg.Redis.Address).Info("Redis fanout enabled")
	}

	hub := gateway.NewHub(redisClient, appLog)
	defer hub.Close()

	clock := clockwork.NewRealClock()
	broadcaster := gateway.NewBroadcaster(hub, clock, appLog)
	baselines := baseline.NewCachedClient(&cfg.Baseline, appLog)

	actorCfg := race.ActorConfig{
		Countdown:       cfg.Race.Countdown(),
		GraceTimeout:    cfg.Race.GraceTimeout(),
		MinParticipants: cfg.Race.MinParticipants,
		QueueSize:       cfg.Race.EventQueueSize,
		PersistTimeout:  cfg.Race.PersistTimeout(),
		Filter: race.FilterConfig{
			MaxAccuracyM: cfg.Filter.MaxAccuracyM,
			MaxJumpM:     cfg.Filter.MaxJumpM,
			MinMoveM:     cfg.Filter.MinMoveM,
		},
	}
	manager := race.NewManager(actorCfg, broadcaster, sink, baselines, clock, appLog)

	// HTTP and WebSocket surface
	mux := http.NewServeMux()
	handlerCfg := gateway.HandlerConfig{
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		PingInterval:      time.Duration(cfg.Server.PingIntervalSeconds) * time.Second,
		MaxMessageSize:    cfg.Server.MaxMessageSizeBytes,
		MessagesPerSecond: cfg.Server.MessagesPerSecond,
		MessageBurst:      cfg.Server.MessageBurst,
	}
	gateway.NewHandler(manager, hub, handlerCfg, clock, appLog).Register(mux)
	gateway.NewSessionHandler(manager, repos.Result, cfg.Race.LobbyTTL(), appLog).Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.GetServerAddress(),
		Handler: mux,
	}
	go func() {
		appLog.WithField("address", httpServer.Addr).Info("Gateway listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.WithError(err).Fatal("Gateway server failed")
		}
	}()

	// Metrics endpoint
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: metricsMux,
		}
		go func() {
			appLog.WithField("port", cfg.Metrics.Port).Info("Metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLog.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	// Health endpoints
	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        strconv.Itoa(cfg.Health.Port),
		Logger:      appLog,
		DB:          db,
		Sessions:    manager,
	})
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start health server")
	}

	// Periodic lobby sweep
	sched := scheduler.NewScheduler(manager, log.New(os.Stdout, "scheduler: ", log.LstdFlags))
	if err := sched.ScheduleLobbySweep(cfg.Race.LobbySweepSchedule); err != nil {
		appLog.WithError(err).Fatal("Failed to schedule lobby sweep")
	}
	if err := sched.Start(); err != nil {
		appLog.WithError(err).Fatal("Failed to start scheduler")
	}

	healthServer.SetReady(true)
	appLog.WithFields(logrus.Fields{
		"redis_fanout":    cfg.Redis.Enabled,
		"metrics_enabled": cfg.Metrics.Enabled,
		"lobby_sweep":     cfg.Race.LobbySweepSchedule,
	}).Info("Server is running")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	appLog.Info("Initiating graceful shutdown...")
	healthServer.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.WithError(err).Error("Error during gateway shutdown")
	}
	if err := sched.Stop(); err != nil {
		appLog.WithError(err).Error("Error during scheduler shutdown")
	}

	// Let in-flight sessions persist their results before the process exits
	manager.Shutdown(shutdownCtx)

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("Error during metrics server shutdown")
		}
	}
	if err := healthServer.Shutdown(); err != nil {
		appLog.WithError(err).Error("Error during health server shutdown")
	}

	appLog.Info("RunBattle server shut down successfully")
}
