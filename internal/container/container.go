package container

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"leaguesync/internal/config"
	"leaguesync/internal/repository"
	"leaguesync/internal/service/notification"
	"leaguesync/internal/service/reconcile"
	"leaguesync/internal/service/result"
	"leaguesync/internal/service/scheduler"
	"leaguesync/internal/service/tracking"
	"leaguesync/pkg/credential"
	"leaguesync/pkg/database"
	"leaguesync/pkg/eventbus"
	"leaguesync/pkg/lock"
	"leaguesync/pkg/logger"
	"leaguesync/pkg/metrics"
	"leaguesync/pkg/push"
	"leaguesync/pkg/redis"
	"leaguesync/pkg/sheets"
)

// Services groups the business services
type Services struct {
	Tracking     *tracking.Service
	Reconcile    *reconcile.Service
	Result       *result.Service
	Notification *notification.Service
	Scheduler    *scheduler.Scheduler
}

// Infra is the external state the services run against
type Infra struct {
	DB           *database.PostgresDB // nil when Repositories is supplied directly
	Repositories *repository.Repositories
	Sheets       sheets.ReadWriter
	Redis        *redis.Client // optional
	Transport    notification.Transport
}

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *database.PostgresDB
	RedisClient *redis.Client
	Metrics     *metrics.Metrics
	Bus         *eventbus.Bus
	Services    *Services
}

// New connects to Postgres, Redis and the spreadsheet backend and builds the container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL, database.DefaultPoolOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Redis is optional: without it locks are process-local
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, using in-process locks")
		} else {
			redisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, using in-process locks")
	}

	sheetsClient, err := newSheets(ctx, cfg, log)
	if err != nil {
		db.Close()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		return nil, err
	}

	return Build(cfg, log, Infra{
		DB:           db,
		Repositories: repository.NewPostgresRepositories(db),
		Sheets:       sheetsClient,
		Redis:        redisClient,
		Transport:    push.NewExpoTransport(cfg.PushEndpoint, cfg.PushAccessToken, cfg.PushTimeout, log),
	}), nil
}

func newSheets(ctx context.Context, cfg *config.Config, log *logger.Logger) (sheets.ReadWriter, error) {
	if cfg.SheetsXLSXDir != "" {
		log.WithField("dir", cfg.SheetsXLSXDir).Info("Reading spreadsheets from local xlsx files")
		return sheets.NewXLSXStore(cfg.SheetsXLSXDir), nil
	}

	creds, err := cfg.GoogleCredentials()
	if err != nil {
		return nil, err
	}
	client, err := sheets.NewGoogleClient(ctx, creds, sheets.GoogleOptions{
		RequestsPerSecond: cfg.SheetsRPS,
		Timeout:           30 * time.Second,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets client: %w", err)
	}
	return client, nil
}

// Build wires services on top of already-opened infrastructure
func Build(cfg *config.Config, log *logger.Logger, infra Infra) *Container {
	m := metrics.New()
	bus := eventbus.New(log, 256)
	hasher := credential.NewHasher(0)

	var (
		locker lock.Locker    = lock.NewLocalLocker()
		guard  lock.TryLocker = lock.NewLocalLocker()
	)
	if infra.Redis != nil {
		locker = redis.NewLocker(infra.Redis, redis.TTLLock)
		guard = redis.NewLocker(infra.Redis, redis.TTLSyncPass)
	}

	repos := infra.Repositories
	trackingService := tracking.NewService(repos.Tracking, log.Named("tracking"))

	reconcileService := reconcile.NewService(infra.Sheets, repos, trackingService, hasher, bus, m, log, reconcile.Options{
		SeasonYear: cfg.SeasonYear,
		Workers:    cfg.SyncWorkers,
	})

	resultService := result.NewService(repos, hasher, locker, infra.Sheets, cfg.SpreadsheetFor, bus, log)

	notificationService := notification.NewService(repos, infra.Transport, locker, m, log, notification.Options{
		MaxAttempts: cfg.NotificationMaxAttempts,
		Workers:     cfg.DeliveryWorkers,
		SendTimeout: cfg.PushTimeout,
		Retention:   cfg.NotificationRetention,
	})

	targets := make([]reconcile.Target, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		targets = append(targets, reconcile.Target{
			SpreadsheetID: c.SpreadsheetID,
			Category:      c.Name,
			RosterSheet:   c.RosterSheet,
		})
	}
	sched := scheduler.New(reconcileService, notificationService, guard, targets, log, scheduler.Options{
		SyncInterval:     cfg.SyncInterval,
		DeliveryInterval: cfg.DeliveryInterval,
		SyncTimeout:      cfg.SyncTimeout,
	})

	return &Container{
		Config:      cfg,
		Logger:      log,
		DB:          infra.DB,
		RedisClient: infra.Redis,
		Metrics:     m,
		Bus:         bus,
		Services: &Services{
			Tracking:     trackingService,
			Reconcile:    reconcileService,
			Result:       resultService,
			Notification: notificationService,
			Scheduler:    sched,
		},
	}
}

// Start subscribes the notification consumer to the event bus
func (c *Container) Start(ctx context.Context) error {
	return c.Services.Notification.Start(ctx, c.Bus)
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// Category resolves a configured category to its sync target
func (c *Container) Category(name string) (reconcile.Target, bool) {
	cat, ok := c.Config.CategoryByName(name)
	if !ok {
		return reconcile.Target{}, false
	}
	return reconcile.Target{SpreadsheetID: cat.SpreadsheetID, Category: cat.Name, RosterSheet: cat.RosterSheet}, true
}

// Close releases the event bus, Redis and the database pool, collecting errors
func (c *Container) Close() error {
	var errs []error
	if err := c.Bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("event bus close: %w", err))
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	return stderrors.Join(errs...)
}
