// cmd/agent-worker/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rehmat-agent/internal/common/agent"
	"rehmat-agent/internal/common/config"
	"rehmat-agent/internal/common/database"
	apperrors "rehmat-agent/internal/common/errors"
	"rehmat-agent/internal/common/gemini"
	apphttp "rehmat-agent/internal/common/http"
	"rehmat-agent/internal/common/livekit"
	"rehmat-agent/internal/common/logger"
	"rehmat-agent/internal/common/metrics"
	"rehmat-agent/internal/common/observability"
	"rehmat-agent/internal/knowledge"
	notifyorder "rehmat-agent/internal/workers/communication/notify-order"
	confirmorder "rehmat-agent/internal/workers/voice/confirm-order"
	ordersession "rehmat-agent/internal/workers/voice/order-session"
)

var (
	configPath   string
	instructions bool
)

var rootCmd = &cobra.Command{
	Use:   "agent-worker",
	Short: "Rehmat-e-Shereen voice ordering agent",
	Long: `agent-worker answers LiveKit calls with a Gemini Live voice agent that
takes sweets and bakery orders in Urdu.`,
	SilenceUsage: true,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runWorker(cfg, cfg.Logging.Level, cfg.Logging.Format)
	},
}

var devCmd = &cobra.Command{
	Use:   "dev",
	Short: "Run the worker with debug console logging",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runWorker(cfg, "debug", "console")
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the rendered catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.NewStructured("warn", "console")
		text := knowledge.Render(knowledge.LoadOrEmpty(cfg.Knowledge.Path, log, cfg.Knowledge.ValidateSchema))
		if instructions {
			if text, err = ordersession.BuildInstructions(text); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a customer room token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		resp, err := livekit.NewTokenIssuer(cfg.LiveKit).CustomerToken()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./configs/config.yaml)")
	renderCmd.Flags().BoolVar(&instructions, "instructions", false, "print the full assistant instructions")
	rootCmd.AddCommand(startCmd, devCmd, renderCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func runWorker(cfg *config.Config, level, format string) error {
	zapLog := logger.New(level, format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	if err := config.ValidateWorker(cfg); err != nil {
		return apperrors.NewConfigInvalidError(err)
	}

	zapLog.Info("Starting agent worker...",
		zap.String("environment", cfg.App.Environment),
		zap.String("model", cfg.Gemini.Model),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	traceOpts, err := observability.TracingOptions(ctx, cfg.App.Name, cfg.Tracing, os.Stdout)
	if err != nil {
		return err
	}
	obs := observability.New(cfg.App.Name, nil, traceOpts...)
	defer obs.Shutdown()
	zapLog.Info("Tracing configured", zap.String("exporter", cfg.Tracing.Exporter))

	// --- Room claims ---
	claimer, closeClaimer := database.NewRoomClaimer(cfg.Dispatch)
	defer closeClaimer()
	if rc, ok := claimer.(*database.RedisClient); ok {
		err := retryWithBackoff(func() error { return rc.Ping(ctx) }, 10, time.Second, zapLog, "Redis connection")
		if err != nil {
			return err
		}
		zapLog.Info("Redis connected successfully", zap.String("address", cfg.Dispatch.Redis.Address))
	}

	// --- Knowledge base ---
	doc := knowledge.LoadOrEmpty(cfg.Knowledge.Path, log, cfg.Knowledge.ValidateSchema)
	catalog := knowledge.Render(doc)

	// --- Realtime model ---
	httpClient := apphttp.NewClient(config.GetDuration(cfg.Gemini.Timeout))
	model, err := gemini.NewModel(ctx, cfg.Gemini, httpClient, log)
	if err != nil {
		return err
	}

	// --- Order notifications ---
	var notifier ordersession.OrderNotifier
	if config.IsWorkerEnabled(cfg, notifyorder.TaskType) {
		h, err := notifyorder.NewHandler(ctx, notifyorder.LoadConfig(cfg), httpClient, log)
		if err != nil {
			return err
		}
		notifier = h
		zapLog.Info("Worker registered", zap.String("taskType", notifyorder.TaskType))
	}

	toolConfig := confirmorder.LoadConfig(config.GetWorkerConfig(cfg, confirmorder.TaskType))
	sessionConfig := ordersession.LoadConfig(cfg)
	if wc, ok := cfg.Workers[notifyorder.TaskType]; ok {
		sessionConfig.NotifyTimeout = config.GetDuration(wc.Timeout)
	}
	handler, err := ordersession.NewHandler(sessionConfig, model, catalog, toolConfig, notifier, obs, log)
	if err != nil {
		return err
	}

	// --- Agent server ---
	recorder := metrics.Recorder{}
	hostname, _ := os.Hostname()
	server, err := agent.NewServer(agent.ServerOptions{
		TaskType: ordersession.TaskType,
		WorkerID: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		Setup: func(proc *agent.Process) error {
			vad, err := agent.LoadVAD(cfg.VAD)
			if err != nil {
				return err
			}
			proc.VAD = vad
			return nil
		},
		Entrypoint:            handler.Entrypoint,
		Rooms:                 livekit.NewRoomFactory(cfg.LiveKit, cfg.Session.DeleteRoomOnHangup, log),
		Claimer:               claimer,
		ClaimTTL:              config.GetDuration(cfg.Dispatch.ClaimTTL),
		MaxConcurrentSessions: cfg.Session.MaxConcurrentSessions,
		Recorder:              recorder,
		ErrorHandler:          apperrors.NewErrorHandler(log, recorder),
		Logger:                log,
	})
	if err != nil {
		return err
	}
	if err := server.Start(ctx); err != nil {
		return err
	}

	// --- Health, Metrics, Token & Webhook Server ---
	httpServer := apphttp.NewServer(apphttp.ServerOptions{
		Port:    cfg.HTTP.Port,
		Ready:   server.Ready,
		Tokens:  livekit.NewTokenIssuer(cfg.LiveKit),
		Webhook: livekit.NewWebhookHandler(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.RoomPrefix, cfg.LiveKit.AgentIdentity, server, log),
		Metrics: promhttp.Handler(),
		Logger:  log,
	})
	go func() {
		zapLog.Info("HTTP server listening", zap.Int("port", cfg.HTTP.Port))
		if err := httpServer.Start(); err != nil {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping sessions...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping agent server", zap.Error(err))
	}

	zapLog.Info("Agent worker stopped gracefully")
	return nil
}
