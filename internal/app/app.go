// Package app assembles the booking core from configuration. Both binaries
// share it so the wizard behaves the same behind HTTP, gRPC and Telegram.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/detailongo/dotg-team/internal/api"
	"github.com/detailongo/dotg-team/internal/config"
	"github.com/detailongo/dotg-team/internal/database"
	"github.com/detailongo/dotg-team/internal/domain"
	"github.com/detailongo/dotg-team/internal/editor"
	"github.com/detailongo/dotg-team/internal/events"
	"github.com/detailongo/dotg-team/internal/gateway"
	"github.com/detailongo/dotg-team/internal/google"
	"github.com/detailongo/dotg-team/internal/models"
	"github.com/detailongo/dotg-team/internal/payments"
	"github.com/detailongo/dotg-team/internal/pricing"
	"github.com/detailongo/dotg-team/internal/repository"
	"github.com/detailongo/dotg-team/internal/service"
	"github.com/detailongo/dotg-team/internal/wizard"
	"github.com/detailongo/dotg-team/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

const sheetsCacheRefresh = 10 * time.Minute

// App holds the long-lived collaborators of a running process.
type App struct {
	Config   *config.Config
	DB       *database.DB
	Redis    *redis.Client
	Gateway  *gateway.Client
	Pricing  *pricing.Engine
	Events   *events.EventBus
	Sheets   *google.SheetsService
	Worker   *worker.SheetsWorker
	Sessions *service.SessionService
	Orders   *service.OrderService
	Editor   *service.EditorService

	logger *zerolog.Logger
}

// New wires the services. Redis, Stripe and Google Sheets are optional and
// only logged when they are missing.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	a := &App{Config: cfg, logger: logger}

	if err := prepareDirectories(cfg); err != nil {
		return nil, err
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = db

	if cfg.Redis.Address != "" {
		a.Redis = repository.NewRedisClient(cfg.Redis)
		if err := repository.Ping(ctx, a.Redis); err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, sessions fall back to memory")
		}
	}

	a.Gateway = gateway.NewClient(cfg.Services, logger)
	if a.Redis != nil {
		a.Gateway.UseRedisCache(a.Redis, cfg.Services.CatalogCacheTTL)
	}

	tables, err := pricing.TablesFromConfig(cfg.Pricing)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("pricing tables: %w", err)
	}
	a.Pricing = pricing.NewEngine(tables)

	a.Events = events.NewEventBus(logger)
	subscribeAudit(a.Events, logger)

	a.initSheets(ctx)

	var syncer domain.SyncWorker
	if a.Worker != nil {
		syncer = a.Worker
	}

	deps := wizard.Deps{
		Pricing:       a.Pricing,
		Tax:           pricing.NewTaxQuoter(a.Gateway, logger),
		Slots:         a.Gateway,
		Catalog:       a.Gateway,
		Orders:        a.Gateway,
		Branches:      a.Gateway,
		KnownBranches: cfg.Booking.Branches,
		DefaultBranch: cfg.Booking.DefaultBranch,
		WindowDays:    cfg.Booking.WindowDays,
		Logger:        logger,
	}
	if cfg.Stripe.SecretKey != "" {
		deps.Payments = payments.NewStripeProcessor(cfg.Stripe, logger)
	} else {
		logger.Warn().Msg("Stripe secret key not set, online payment disabled")
	}

	a.Sessions = service.NewSessionService(a.sessionRepository(), db, syncer, a.Events, deps, logger)
	a.Orders = service.NewOrderService(db, syncer, a.Events, logger)
	a.Editor = service.NewEditorService(editor.New(a.Gateway, logger), a.Events, logger)

	return a, nil
}

func (a *App) sessionRepository() domain.SessionRepository {
	ttl := a.Config.Booking.SessionTTL
	fallback := repository.NewMemorySessionRepository(ttl)
	if a.Redis == nil {
		return fallback
	}
	primary := repository.NewRedisSessionRepository(a.Redis, ttl)
	return repository.NewFailoverSessionRepository(primary, fallback, a.logger)
}

func (a *App) initSheets(ctx context.Context) {
	cfg := a.Config.Google
	if cfg.GoogleCredentialsFile == "" || cfg.OrdersSpreadSheetID == "" {
		a.logger.Info().Msg("Google Sheets not configured, order sync disabled")
		return
	}

	sheetsSvc, err := google.NewSheetsService(ctx, cfg.GoogleCredentialsFile, cfg.OrdersSpreadSheetID, a.logger)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to initialize Google Sheets service")
		return
	}
	if err := sheetsSvc.TestConnection(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Google Sheets connection test failed")
		return
	}

	a.Sheets = sheetsSvc
	a.Worker = worker.NewSheetsWorker(a.DB, sheetsSvc, a.Redis, worker.DefaultRetryPolicy(), a.logger)
	a.logger.Info().Msg("Google Sheets service initialized successfully")
}

// Start launches the background loops. They stop with ctx.
func (a *App) Start(ctx context.Context) {
	if a.Worker != nil {
		go a.Worker.Start(ctx)
	}
	if a.Sheets != nil {
		go a.Sheets.StartCacheRefresh(ctx, sheetsCacheRefresh)
	}
	if a.Config.Backup.Enabled {
		backupService := database.NewBackupService(a.Config.Database.Path, a.Config.Backup, a.logger)
		go backupService.Start(ctx)
	}
}

// Services exposes the app to the HTTP and gRPC layers.
func (a *App) Services() api.Services {
	return api.Services{
		Sessions: a.Sessions,
		Orders:   a.Orders,
		Editor:   a.Editor,
		Pricing:  a.Pricing,
		Slots:    a.Gateway,
	}
}

// Close releases the database and Redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := repository.Close(a.Redis); err != nil {
			a.logger.Warn().Err(err).Msg("close redis")
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close database")
		}
	}
}

func prepareDirectories(cfg *config.Config) error {
	if cfg.Exports.Path == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		return fmt.Errorf("create exports directory: %w", err)
	}
	return nil
}

// LoadBranches reads a branch list from a standalone YAML file. A missing
// file is not an error; the branches from the main config stay in effect.
func LoadBranches(path string, cfg *config.Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var branchesConfig struct {
		DefaultBranch string          `yaml:"default_branch"`
		Branches      []models.Branch `yaml:"branches"`
	}
	if err := yaml.Unmarshal(data, &branchesConfig); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if len(branchesConfig.Branches) == 0 {
		return nil
	}

	defaultBranch := branchesConfig.DefaultBranch
	if defaultBranch == "" {
		defaultBranch = branchesConfig.Branches[0].ID
	}
	if err := config.ValidateBranches(branchesConfig.Branches, defaultBranch); err != nil {
		return err
	}

	cfg.Booking.Branches = branchesConfig.Branches
	cfg.Booking.DefaultBranch = defaultBranch
	return nil
}

func subscribeAudit(bus *events.EventBus, logger *zerolog.Logger) {
	l := logger.With().Str("component", "audit").Logger()

	bus.Subscribe(events.EventOrderSubmitted, func(ev *events.Event) error {
		var payload events.OrderEventPayload
		if err := ev.Decode(&payload); err != nil {
			return err
		}
		l.Info().
			Str("order_id", payload.OrderID).
			Str("branch", payload.Branch).
			Str("slot", payload.SlotStart).
			Str("total", payload.PriceAfterTax).
			Msg("order submitted")
		return nil
	})
	bus.Subscribe(events.EventPaymentCaptured, func(ev *events.Event) error {
		var payload events.OrderEventPayload
		if err := ev.Decode(&payload); err != nil {
			return err
		}
		l.Info().Str("order_id", payload.OrderID).Msg("payment captured")
		return nil
	})
	bus.Subscribe(events.EventCalendarEventUpdated, func(ev *events.Event) error {
		var payload events.CalendarEventPayload
		if err := ev.Decode(&payload); err != nil {
			return err
		}
		entry := l.Info().Str("event_id", payload.EventID).Str("updated_by", payload.UpdatedBy)
		if payload.Rule != "" {
			entry = entry.Str("rule", payload.Rule)
		}
		if payload.Warning != "" {
			entry = entry.Str("warning", payload.Warning)
		}
		entry.Msg("calendar event updated")
		return nil
	})
}
