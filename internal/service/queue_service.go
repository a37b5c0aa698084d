// Package service is the use-case layer tying admission, delivery, and
// reporting together behind the HTTP API and the cron trigger.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/josephbaria24/petros-event-management-system/internal/config"
	"github.com/josephbaria24/petros-event-management-system/internal/domain"
	"github.com/josephbaria24/petros-event-management-system/internal/metrics"
	"github.com/josephbaria24/petros-event-management-system/internal/rate"
	"github.com/josephbaria24/petros-event-management-system/internal/repository"
	"github.com/josephbaria24/petros-event-management-system/internal/scheduler"
	"github.com/josephbaria24/petros-event-management-system/internal/worker"
)

// QueueService exposes the operations the API and cron runner invoke.
type QueueService struct {
	admission    *scheduler.Admission
	deliverer    *worker.Deliverer
	processor    *worker.Processor
	repo         repository.QueueRepository
	tracker      *rate.Tracker
	totalCap     int
	drainTimeout time.Duration
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func NewQueueService(
	admission *scheduler.Admission,
	deliverer *worker.Deliverer,
	processor *worker.Processor,
	repo repository.QueueRepository,
	tracker *rate.Tracker,
	cfg *config.Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *QueueService {
	return &QueueService{
		admission:    admission,
		deliverer:    deliverer,
		processor:    processor,
		repo:         repo,
		tracker:      tracker,
		totalCap:     cfg.Caps.Total,
		drainTimeout: cfg.DrainTimeout,
		metrics:      m,
		logger:       logger,
	}
}

// EnqueueBatch admits a batch and immediately delivers the portion that fits
// in today's budget. Deferred items wait for the scheduled drain. A delivery
// hiccup does not fail the call: the affected items stay queued for retry,
// and the admission result is returned as persisted.
//
// The immediate sends go through the normal oldest-first claim, so when older
// backlog is eligible today those items ship ahead of the batch's own;
// Immediate counts sends triggered by this call, not batch items delivered.
func (s *QueueService) EnqueueBatch(ctx context.Context, category domain.Category, requests []domain.EnqueueRequest) (*domain.AdmitResult, error) {
	result, err := s.admission.Admit(ctx, category, requests)
	if err != nil {
		return nil, err
	}

	for i := 0; i < result.Immediate; i++ {
		outcome := s.deliverer.ProcessNext(ctx)
		if outcome.Status == domain.OutcomeIdle ||
			outcome.Status == domain.OutcomeRateLimited ||
			outcome.Status == domain.OutcomeError {
			s.logger.Warn("immediate delivery stopped early",
				zap.String("status", string(outcome.Status)),
				zap.Int("delivered", i),
				zap.Int("admitted", result.Immediate))
			break
		}
	}

	return result, nil
}

// Capacity answers whether count more emails of the category fit today.
func (s *QueueService) Capacity(ctx context.Context, category domain.Category, count int) (*domain.Capacity, error) {
	return s.admission.Capacity(ctx, category, count)
}

// Drain runs one full drain pass over today's backlog. A full budget pass
// takes Caps.Total paced sends, longer than any request or shutdown deadline,
// so the pass runs under its own timeout and is not cancelled when the
// caller's context is.
func (s *QueueService) Drain(ctx context.Context) (*domain.DrainSummary, error) {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.drainTimeout)
	defer cancel()
	return s.processor.DrainToday(drainCtx)
}

// Step processes exactly one queue item, for manual operator control.
func (s *QueueService) Step(ctx context.Context) domain.Outcome {
	return s.deliverer.ProcessNext(ctx)
}

// Stats returns the backlog snapshot. Read-only: calling it never sends.
func (s *QueueService) Stats(ctx context.Context) (*domain.QueueStats, error) {
	byDate, err := s.repo.PendingByDate(ctx)
	if err != nil {
		return nil, err
	}
	pending := 0
	for _, n := range byDate {
		pending += n
	}
	counts, err := s.tracker.CountSentToday(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.QueueStats{
		Pending:       pending,
		PendingByDate: byDate,
		TodayLimit: domain.BudgetUsage{
			Used:  counts.Total,
			Limit: s.totalCap,
		},
	}
	if s.metrics != nil {
		s.metrics.ObserveQueue(stats, counts)
	}
	return stats, nil
}
