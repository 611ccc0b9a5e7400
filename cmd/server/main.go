package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"clinicbook/internal/config"
	"clinicbook/internal/database"
	"clinicbook/internal/domain"
	"clinicbook/internal/events"
	"clinicbook/internal/google"
	"clinicbook/internal/logging"
	"clinicbook/internal/metrics"
	"clinicbook/internal/notify"
	"clinicbook/internal/repository"
	"clinicbook/internal/schedule"
	"clinicbook/internal/service"
	"clinicbook/internal/web"
	"clinicbook/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := baseLogger.With().Str("component", "server-main").Logger()

	if err := prepareDirectories(cfg, &logger); err != nil {
		return err
	}

	clinic, err := buildClinic(cfg, &logger)
	if err != nil {
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, limiter := initRateLimiter(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	sheetsWorker := initSheetsWorker(ctx, cfg, db, redisClient, &logger)

	eventBus := events.NewEventBus()
	subscribeBookingEvents(eventBus, &logger)

	notifier := buildNotifier(cfg, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
	}

	var syncWorker domain.SyncWorker
	if sheetsWorker != nil {
		syncWorker = sheetsWorker
	}
	bookingService := service.NewBookingService(db, clinic, notifier, eventBus, syncWorker, &logger)

	server, err := web.NewServer(cfg, bookingService, limiter, &logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	logger.Info().Msg("shutdown complete")
	return nil
}

func prepareDirectories(cfg *config.Config, logger *zerolog.Logger) error {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error().Err(err).Msg("failed to create database directory")
			return err
		}
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create exports directory")
		return err
	}
	return nil
}

// buildClinic assembles the slot catalog from clinic hours, or from an
// explicit slot list in configs/slots.yaml when that file exists.
func buildClinic(cfg *config.Config, logger *zerolog.Logger) (*schedule.Clinic, error) {
	catalog := schedule.NewCatalog(cfg.Clinic.OpenHour, cfg.Clinic.CloseHour, cfg.Clinic.SlotMinutes)

	slotsPath := os.Getenv("SLOTS_PATH")
	if slotsPath == "" {
		slotsPath = "configs/slots.yaml"
	}
	if data, err := os.ReadFile(slotsPath); err == nil {
		var slotsConfig struct {
			Slots []string `yaml:"slots"`
		}
		if err := yaml.Unmarshal(data, &slotsConfig); err != nil {
			logger.Error().Err(err).Str("path", slotsPath).Msg("failed to parse slots file")
			return nil, err
		}
		if len(slotsConfig.Slots) > 0 {
			catalog = schedule.NewCatalogFromSlots(slotsConfig.Slots)
			logger.Info().Int("slots", catalog.Len()).Str("path", slotsPath).Msg("slot catalog loaded from file")
		}
	}

	return schedule.NewClinic(catalog, cfg.Clinic.Timezone, cfg.Clinic.ClosedWeekday)
}

// initRateLimiter wires the submission limiter: redis-backed when configured,
// with an in-memory fallback behind a failover wrapper.
func initRateLimiter(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, domain.RateLimitStore) {
	memory := repository.NewMemoryLimiterStore()

	if cfg.Redis.Address == "" {
		return nil, memory
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, rate limiting falls back to memory")
	}

	primary := repository.NewRedisLimiterStore(redisClient)
	return redisClient, repository.NewFailoverLimiterStore(primary, memory, logger)
}

func initSheetsWorker(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) *worker.SheetsWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.BookingsSpreadsheetID == "" {
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingsSpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize sheets service, sync disabled")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("sheets connection test failed, sync disabled")
		return nil
	}

	sheetsWorker := worker.NewSheetsWorker(db, sheetsService, redisClient, worker.DefaultRetryPolicy(), logger)
	go sheetsWorker.Start(ctx)
	logger.Info().Msg("sheets sync worker started")
	return sheetsWorker
}

func buildNotifier(cfg *config.Config, logger *zerolog.Logger) *notify.Service {
	var channels []notify.Channel

	if email := notify.NewEmailChannel(cfg.Mail, logger); email != nil {
		channels = append(channels, email)
	}

	telegram, err := notify.NewTelegramChannel(cfg.Telegram, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram channel disabled")
	} else if telegram != nil {
		channels = append(channels, telegram)
	}

	if len(channels) == 0 {
		logger.Warn().Msg("no notification channels configured, staff notifications disabled")
	}
	return notify.NewService(logger, channels...)
}

func subscribeBookingEvents(bus *events.EventBus, logger *zerolog.Logger) {
	bus.Subscribe(events.EventBookingCreated, func(ev *events.Event) error {
		logger.Info().
			Str("event", ev.Type).
			RawJSON("payload", ev.Payload).
			Msg("booking event")
		return nil
	})
}
