package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/detailongo/dotg-team/internal/api"
	"github.com/detailongo/dotg-team/internal/app"
	"github.com/detailongo/dotg-team/internal/bot"
	"github.com/detailongo/dotg-team/internal/config"
	"github.com/detailongo/dotg-team/internal/logging"
	"github.com/detailongo/dotg-team/internal/metrics"
	"github.com/detailongo/dotg-team/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, loadErr := loadConfigAndLogger()
	if loadErr != nil {
		return loadErr
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core, err := app.New(ctx, cfg, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("init app")
		return err
	}
	defer core.Close()
	core.Start(ctx)

	if cfg.API.Enabled {
		apiServer := api.NewHTTPServer(cfg.API, core.Services(), &logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error().Err(err).Msg("API server error")
			}
		}()
		defer func() {
			_ = apiServer.Shutdown(context.Background())
		}()
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	return startBot(ctx, cfg, core, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, err
	}
	logger := baseLogger.With().Str("component", "bot-main").Logger()

	branchesPath := os.Getenv("BRANCHES_PATH")
	if branchesPath == "" {
		branchesPath = "configs/branches.yaml"
	}
	if err := app.LoadBranches(branchesPath, cfg); err != nil {
		logger.Error().Err(err).Str("branches_path", branchesPath).Msg("Branches validation failed")
		return nil, zerolog.Logger{}, closer, err
	}

	return cfg, logger, closer, nil
}

func startBot(ctx context.Context, cfg *config.Config, core *app.App, logger *zerolog.Logger) error {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Error().Msg("telegram.bot_token is not set in config.yaml")
		return os.ErrInvalid
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("create BotAPI")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	tgService := service.NewTelegramService(bot.NewSender(botAPI))
	telegramBot := bot.NewBot(tgService, cfg, core.Sessions, core.Orders, bot.NewMetrics(), logger)
	telegramBot.SubscribeNotifications(core.Events)

	logger.Info().Str("username", botAPI.Self.UserName).Msg("Bot started")
	defer telegramBot.Stop()
	telegramBot.Start(ctx)

	logger.Info().Msg("Shutdown complete.")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
