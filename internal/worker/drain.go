package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
	xrate "golang.org/x/time/rate"

	"github.com/josephbaria24/petros-event-management-system/internal/domain"
	"github.com/josephbaria24/petros-event-management-system/internal/rate"
	"github.com/josephbaria24/petros-event-management-system/internal/repository"
)

// Processor runs drain passes: repeated delivery steps, paced by a rate
// limiter, until the queue is empty for today or a cap is hit.
type Processor struct {
	deliverer *Deliverer
	repo      repository.QueueRepository
	tracker   *rate.Tracker
	ceiling   int
	limiter   *xrate.Limiter
	logger    *zap.Logger
}

func NewProcessor(deliverer *Deliverer, repo repository.QueueRepository, tracker *rate.Tracker, ceiling int, interval time.Duration, logger *zap.Logger) *Processor {
	return &Processor{
		deliverer: deliverer,
		repo:      repo,
		tracker:   tracker,
		ceiling:   ceiling,
		limiter:   xrate.NewLimiter(xrate.Every(interval), 1),
		logger:    logger,
	}
}

// DrainToday processes today's eligible backlog one item at a time. Items
// that fail and get requeued are excluded from the rest of this pass, so a
// flaky recipient cannot starve the queue behind it. The pass stops when the
// queue is idle, a cap is hit, or a step reports an internal error.
func (p *Processor) DrainToday(ctx context.Context) (*domain.DrainSummary, error) {
	summary := &domain.DrainSummary{Errors: []string{}}
	var exclude []int64

	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return summary, err
		}

		outcome := p.deliverer.ProcessNext(ctx, exclude...)
		switch outcome.Status {
		case domain.OutcomeSent:
			summary.Sent++
			continue
		case domain.OutcomeRetry:
			exclude = append(exclude, outcome.ItemID)
			summary.Errors = append(summary.Errors, outcome.Error)
			continue
		case domain.OutcomeFailed:
			summary.Failed++
			summary.Errors = append(summary.Errors, outcome.Error)
			continue
		case domain.OutcomeRateLimited:
			p.logger.Info("drain stopped at daily cap",
				zap.Int("sent", summary.Sent))
		case domain.OutcomeIdle:
		case domain.OutcomeError:
			summary.Errors = append(summary.Errors, outcome.Error)
		}
		break
	}

	remaining, err := p.repo.CountPendingEligible(ctx, p.tracker.Today(), p.ceiling)
	if err != nil {
		p.logger.Error("counting remaining backlog failed", zap.Error(err))
		summary.Errors = append(summary.Errors, err.Error())
	} else {
		summary.Remaining = remaining
	}

	p.logger.Info("drain pass complete",
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("remaining", summary.Remaining),
		zap.Int("errors", len(summary.Errors)))

	return summary, nil
}
