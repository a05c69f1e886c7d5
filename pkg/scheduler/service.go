package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tcgvault/tcgvault/pkg/observability"
	r "github.com/tcgvault/tcgvault/pkg/redis"
	"github.com/tcgvault/tcgvault/pkg/tcgsync"
)

const (
	// TaskFullSync triggers an orchestrated full sync.
	TaskFullSync = "sync:full"
	// TaskPricingRefresh triggers a pricing update across stored cards.
	TaskPricingRefresh = "pricing:refresh"
	// QueueName is the queue scheduled tasks are delivered on.
	QueueName = "scheduler"
)

// Service defines the public interface for the scheduler
type Service interface {
	Start(ctx context.Context) error
	Stop() error
}

type service struct {
	log logrus.FieldLogger
	cfg *Config

	orchestrator *tcgsync.Orchestrator
	syncer       *tcgsync.Syncer

	scheduler *asynq.Scheduler
	server    *asynq.Server
	mux       *asynq.ServeMux
}

// NewService creates a new scheduler service
func NewService(log logrus.FieldLogger, cfg *Config, redisOpt *redis.Options, orchestrator *tcgsync.Orchestrator, syncer *tcgsync.Syncer) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	asynqRedis := r.NewAsynqRedisOptions(redisOpt)

	scheduler := asynq.NewScheduler(asynqRedis, &asynq.SchedulerOpts{
		Location: time.UTC,
		LogLevel: asynq.InfoLevel,
	})

	server := asynq.NewServer(asynqRedis, asynq.Config{
		Queues: map[string]int{
			QueueName: 10,
		},
		Concurrency: cfg.Concurrency,
	})

	return &service{
		log:          log.WithField("service", "scheduler"),
		cfg:          cfg,
		orchestrator: orchestrator,
		syncer:       syncer,
		scheduler:    scheduler,
		server:       server,
		mux:          asynq.NewServeMux(),
	}, nil
}

// Start registers the task handlers and schedules, then runs the asynq
// server and scheduler in the background.
func (s *service) Start(_ context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("Scheduler service is disabled")
		return nil
	}

	s.mux.HandleFunc(TaskFullSync, s.handleFullSync)
	s.mux.HandleFunc(TaskPricingRefresh, s.handlePricingRefresh)

	for taskType, schedule := range map[string]string{
		TaskFullSync:       s.cfg.FullSync,
		TaskPricingRefresh: s.cfg.PricingRefresh,
	} {
		task := asynq.NewTask(taskType, nil)

		entryID, err := s.scheduler.Register(schedule, task, asynq.Queue(QueueName))
		if err != nil {
			return fmt.Errorf("failed to register %s schedule: %w", taskType, err)
		}

		s.log.WithFields(logrus.Fields{
			"task":     taskType,
			"schedule": schedule,
			"entry_id": entryID,
		}).Info("Registered scheduled task")
	}

	go func() {
		if err := s.server.Run(s.mux); err != nil {
			s.log.WithError(err).Error("Scheduler server stopped with error")
		}
	}()

	go func() {
		if err := s.scheduler.Run(); err != nil {
			s.log.WithError(err).Error("Scheduler stopped with error")
		}
	}()

	s.log.Info("Scheduler service started")

	return nil
}

// Stop gracefully shuts down the scheduler service
func (s *service) Stop() error {
	if !s.cfg.Enabled {
		return nil
	}

	s.scheduler.Shutdown()
	s.server.Shutdown()

	s.log.Info("Scheduler service stopped")

	return nil
}

// handleFullSync runs an orchestrated full sync. A run already in flight is
// skipped rather than retried: the next scheduled trigger will catch up.
func (s *service) handleFullSync(ctx context.Context, _ *asynq.Task) error {
	operation := "scheduled-full-sync-" + uuid.New().String()

	result, err := s.orchestrator.Run(ctx, tcgsync.RunOptions{OperationKey: operation})
	if err != nil {
		if errors.Is(err, tcgsync.ErrAlreadyRunning) {
			observability.ScheduledRunsTotal.WithLabelValues(TaskFullSync, "skipped").Inc()
			s.log.Info("Skipping scheduled full sync, a run is already in flight")

			return nil
		}

		observability.ScheduledRunsTotal.WithLabelValues(TaskFullSync, "error").Inc()

		return err
	}

	observability.ScheduledRunsTotal.WithLabelValues(TaskFullSync, result.Status).Inc()

	if result.Status == tcgsync.StatusFatal {
		return fmt.Errorf("scheduled full sync %s failed: %s", operation, result.Errors[0])
	}

	s.log.WithFields(logrus.Fields{
		"operation": operation,
		"status":    result.Status,
	}).Info("Scheduled full sync finished")

	return nil
}

// handlePricingRefresh updates pricing from both sources for stored cards.
func (s *service) handlePricingRefresh(ctx context.Context, _ *asynq.Task) error {
	result := s.syncer.UpdatePricing(ctx, tcgsync.PricingOptions{Source: tcgsync.SourceAll})

	status := "ok"
	if !result.Success {
		status = "partial"
	}

	if !result.Success && result.CardsUpdated == 0 {
		observability.ScheduledRunsTotal.WithLabelValues(TaskPricingRefresh, "error").Inc()

		return fmt.Errorf("scheduled pricing refresh failed: %s", result.Errors[0])
	}

	observability.ScheduledRunsTotal.WithLabelValues(TaskPricingRefresh, status).Inc()

	s.log.WithFields(logrus.Fields{
		"cards_updated": result.CardsUpdated,
		"errors":        len(result.Errors),
	}).Info("Scheduled pricing refresh finished")

	return nil
}
