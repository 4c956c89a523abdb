package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	balanceledger "boostpanel/contexts/finance-core/balance-ledger"
	ledgerpostgres "boostpanel/contexts/finance-core/balance-ledger/adapters/postgres"
	campaigndistributor "boostpanel/contexts/fulfillment/campaign-distributor"
	"boostpanel/contexts/fulfillment/campaign-distributor/adapters/binom"
	distributorpostgres "boostpanel/contexts/fulfillment/campaign-distributor/adapters/postgres"
	cliporchestrator "boostpanel/contexts/fulfillment/clip-orchestrator"
	clippostgres "boostpanel/contexts/fulfillment/clip-orchestrator/adapters/postgres"
	"boostpanel/contexts/fulfillment/clip-orchestrator/adapters/remote"
	orderpipeline "boostpanel/contexts/fulfillment/order-pipeline"
	pipelinepostgres "boostpanel/contexts/fulfillment/order-pipeline/adapters/postgres"
	"boostpanel/contexts/fulfillment/order-pipeline/adapters/youtube"
	"boostpanel/contexts/fulfillment/order-pipeline/application/workers"
	"boostpanel/internal/platform/config"
	"boostpanel/internal/platform/db"
	"boostpanel/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type WorkerApp struct {
	postgres  *db.Postgres
	bus       *messaging.Bus
	pipeline  orderpipeline.Module
	clips     cliporchestrator.Module
	consumers []workers.PipelineConsumer
	scheduler *cron.Cron
	cfg       config.Config
	logger    *slog.Logger
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	bus := messaging.NewBus(logger)

	ledgerRepo := ledgerpostgres.NewRepository(pg.DB, logger)
	ledgerModule := balanceledger.NewModule(balanceledger.Dependencies{
		Store:       ledgerRepo,
		Clock:       ledgerpostgres.SystemClock{},
		IDGenerator: ledgerpostgres.UUIDGenerator{},
		Logger:      logger,
	})

	distributorRepo := distributorpostgres.NewRepository(pg.DB, logger)
	distributorModule := campaigndistributor.NewModule(campaigndistributor.Dependencies{
		Fixed:        distributorRepo,
		Assignments:  distributorRepo,
		Coefficients: distributorRepo,
		Platform:     binom.NewClient(cfg.TrackerURL, cfg.TrackerAPIKey),
		Clock:        distributorpostgres.SystemClock{},
		IDGenerator:  distributorpostgres.UUIDGenerator{},
		Logger:       logger,
	})

	clipRepo := clippostgres.NewRepository(pg.DB, logger)
	clipModule := cliporchestrator.NewModule(cliporchestrator.Dependencies{
		Driver:         remote.NewDriver(cfg.ClipperURL),
		Accounts:       clipRepo,
		Processings:    clipRepo,
		Clock:          clippostgres.SystemClock{},
		IDGenerator:    clippostgres.UUIDGenerator{},
		MaxAttempts:    cfg.ClipMaxAttempts,
		RetryBackoff:   cfg.ClipRetryBackoff,
		AttemptTimeout: cfg.ClipAttemptTimeout,
		Logger:         logger,
	})

	pipelineRepo := pipelinepostgres.NewRepository(pg.DB, logger)
	pipelineModule := orderpipeline.NewModule(orderpipeline.Dependencies{
		Orders:              pipelineRepo,
		Services:            pipelineRepo,
		Ledger:              ledgerGlue{service: ledgerModule.Service},
		Metadata:            youtube.NewClient(cfg.YouTubeAPIKey),
		Clips:               clipGlue{service: clipModule.Service, processings: clipRepo},
		Distributor:         distributorGlue{service: distributorModule.Service},
		Outbox:              pipelineRepo,
		Publisher:           bus,
		Clock:               pipelinepostgres.SystemClock{},
		IDGenerator:         pipelinepostgres.UUIDGenerator{},
		ClipCreationEnabled: cfg.ClipCreationEnabled,
		BatchSize:           cfg.OutboxBatchSize,
		Logger:              logger,
	})

	consumerCount := cfg.PipelineWorkers
	if consumerCount <= 0 {
		consumerCount = 1
	}
	consumers := make([]workers.PipelineConsumer, 0, consumerCount)
	for i := 0; i < consumerCount; i++ {
		consumers = append(consumers, workers.PipelineConsumer{
			Bus:     bus,
			Process: pipelineModule.Process,
			Logger:  logger,
		})
	}

	return &WorkerApp{
		postgres:  pg,
		bus:       bus,
		pipeline:  pipelineModule,
		clips:     clipModule,
		consumers: consumers,
		scheduler: cron.New(),
		cfg:       cfg,
		logger:    logger,
	}, nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	for _, consumer := range w.consumers {
		if err := consumer.Start(ctx); err != nil {
			return err
		}
	}

	if _, err := w.scheduler.AddFunc(w.cfg.OutboxSchedule, func() {
		_ = w.pipeline.OutboxRelay.RunOnce(ctx)
	}); err != nil {
		return err
	}
	if _, err := w.scheduler.AddFunc(w.cfg.MonitorSchedule, func() {
		_ = w.pipeline.ProgressMonitor.RunOnce(ctx)
	}); err != nil {
		return err
	}
	if _, err := w.scheduler.AddFunc(w.cfg.QuotaResetSchedule, func() {
		_, _ = w.clips.Service.ResetDailyCounters(ctx)
	}); err != nil {
		return err
	}

	w.scheduler.Start()
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"pipeline_workers", len(w.consumers),
		"outbox_schedule", w.cfg.OutboxSchedule,
		"monitor_schedule", w.cfg.MonitorSchedule,
	)

	group.Go(func() error {
		<-ctx.Done()
		stopped := w.scheduler.Stop()
		<-stopped.Done()
		return nil
	})
	return group.Wait()
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}
