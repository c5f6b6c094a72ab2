package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"vendorwatch/internal/compliance"
	compliancemetrics "vendorwatch/internal/compliance/metrics"
	"vendorwatch/internal/compliance/runlock"
	"vendorwatch/internal/compliance/scheduler"
	"vendorwatch/internal/notify"
	"vendorwatch/internal/platform/config"
	"vendorwatch/internal/platform/kafka/producer"
	"vendorwatch/internal/platform/postgres"
	redisclient "vendorwatch/internal/platform/redis"
	vendorstore "vendorwatch/internal/vendors/store"
	"vendorwatch/pkg/platform/audit"
	"vendorwatch/pkg/platform/audit/outbox"
	"vendorwatch/pkg/platform/audit/publisher"
	auditmemory "vendorwatch/pkg/platform/audit/store/memory"
	auditpostgres "vendorwatch/pkg/platform/audit/store/postgres"
	"vendorwatch/pkg/platform/circuit"
)

// vendorBackend is what both vendor stores implement.
type vendorBackend interface {
	compliance.DocumentStore
	compliance.VendorStore
	compliance.ReviewerDirectory
	vendorstore.Writer
}

type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// app holds the wired process. Build with newApp, release with Close.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	vendors   vendorBackend
	audits    audit.Store
	publisher *publisher.Publisher
	service   *compliance.Service
	scheduler *scheduler.Scheduler
	relay     *outbox.Relay

	checks  []healthCheck
	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	loc, err := cfg.Compliance.Location()
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, postgres.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	a.wireStorage(db)

	if cfg.Compliance.SeedDemoData {
		if err := vendorstore.SeedDemo(ctx, a.vendors, time.Now()); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		logger.InfoContext(ctx, "demo vendors seeded")
	}

	lock, err := a.wireRunLock(ctx)
	if err != nil {
		return err
	}

	if err := a.wireOutbox(ctx, db); err != nil {
		return err
	}

	notifier, err := a.wireNotifier()
	if err != nil {
		return err
	}

	a.publisher = publisher.NewPublisher(a.audits, publisher.WithLogger(logger))
	a.closers = append(a.closers, a.publisher.Close)

	a.service, err = compliance.New(a.vendors, a.vendors, a.vendors, notifier, a.publisher,
		compliance.WithLogger(logger),
		compliance.WithMetrics(compliancemetrics.New(a.registry)),
		compliance.WithRunLock(lock),
		compliance.WithPolicy(compliance.Policy{
			MandatoryDocTypes: cfg.Compliance.DocTypes(),
			ExpiringWindow:    cfg.Compliance.ExpiringWindow,
			ReviewSLA:         cfg.Compliance.ReviewSLA,
			Concurrency:       cfg.Compliance.Concurrency,
			RunTimeout:        cfg.Compliance.RunTimeout,
			Location:          loc,
		}),
	)
	if err != nil {
		return err
	}

	a.scheduler, err = scheduler.New(a.service, scheduler.Config{
		Hour:       cfg.Compliance.ScheduleHour,
		Minute:     cfg.Compliance.ScheduleMinute,
		Location:   loc,
		RunOnStart: cfg.Compliance.RunOnStart,
	}, scheduler.WithLogger(logger))
	return err
}

func (a *app) wireStorage(db *sql.DB) {
	if db == nil {
		a.logger.Warn("DATABASE_URL not set, using in-memory stores")
		a.vendors = vendorstore.NewInMemory()
		a.audits = auditmemory.NewInMemoryStore()
		return
	}
	a.vendors = vendorstore.NewPostgres(db)
	a.audits = auditpostgres.New(db)
	a.checks = append(a.checks, healthCheck{name: "postgres", check: db.PingContext})
	a.closers = append(a.closers, db.Close)
}

func (a *app) wireRunLock(ctx context.Context) (compliance.RunLock, error) {
	client, err := redisclient.New(ctx, a.cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		a.logger.InfoContext(ctx, "REDIS_URL not set, run lock is process-local")
		return runlock.NewMemory(), nil
	}
	a.checks = append(a.checks, healthCheck{name: "redis", check: client.Health})
	a.closers = append(a.closers, client.Close)
	return runlock.NewRedis(client.Client), nil
}

func (a *app) wireOutbox(ctx context.Context, db *sql.DB) error {
	p, err := producer.New(producer.Config{Brokers: a.cfg.Kafka.Brokers, ClientID: "vendorwatch"})
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	a.closers = append(a.closers, func() error {
		p.Close()
		return nil
	})
	if db == nil {
		a.logger.WarnContext(ctx, "KAFKA_BROKERS set without DATABASE_URL, audit relay disabled")
		return nil
	}
	if err := p.EnsureTopic(ctx, a.cfg.Kafka.AuditTopic, 1, 1); err != nil {
		a.logger.WarnContext(ctx, "could not ensure audit topic", "topic", a.cfg.Kafka.AuditTopic, "error", err)
	}
	a.checks = append(a.checks, healthCheck{name: "kafka", check: p.Health})
	a.relay = outbox.NewRelay(db, p, a.cfg.Kafka.AuditTopic,
		outbox.WithBatchSize(a.cfg.Kafka.RelayBatch),
		outbox.WithInterval(a.cfg.Kafka.RelayInterval),
		outbox.WithLogger(a.logger),
	)
	return nil
}

func (a *app) wireNotifier() (compliance.Notifier, error) {
	if a.cfg.SMTP.Addr == "" {
		a.logger.Warn("SMTP_ADDR not set, notifications are logged only")
		return notify.NewLogNotifier(a.logger), nil
	}
	smtp, err := notify.NewSMTPNotifier(notify.SMTPConfig{
		Addr:     a.cfg.SMTP.Addr,
		Username: a.cfg.SMTP.Username,
		Password: a.cfg.SMTP.Password,
		From:     a.cfg.SMTP.From,
	})
	if err != nil {
		return nil, err
	}
	breaker := circuit.New("smtp", circuit.WithFailureThreshold(5), circuit.WithCooldown(time.Minute))
	return notify.NewGuardedSender(smtp, breaker, a.logger), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
