// Package worker drives delivery: claiming queued emails, sending them
// under the daily caps, and resolving each attempt to sent, retry, or failed.
package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/josephbaria24/petros-event-management-system/internal/config"
	"github.com/josephbaria24/petros-event-management-system/internal/domain"
	"github.com/josephbaria24/petros-event-management-system/internal/mailer"
	"github.com/josephbaria24/petros-event-management-system/internal/rate"
	"github.com/josephbaria24/petros-event-management-system/internal/recipient"
	"github.com/josephbaria24/petros-event-management-system/internal/render"
	"github.com/josephbaria24/petros-event-management-system/internal/repository"
)

// Hooks are optional metric callbacks invoked on delivery outcomes.
type Hooks struct {
	OnSent   func(category domain.Category, latency time.Duration)
	OnFailed func(category domain.Category)
	OnRetry  func(category domain.Category)
}

func (h Hooks) sent(cat domain.Category, latency time.Duration) {
	if h.OnSent != nil {
		h.OnSent(cat, latency)
	}
}

func (h Hooks) failed(cat domain.Category) {
	if h.OnFailed != nil {
		h.OnFailed(cat)
	}
}

func (h Hooks) retry(cat domain.Category) {
	if h.OnRetry != nil {
		h.OnRetry(cat)
	}
}

// Deliverer performs one delivery step at a time. It never exceeds the daily
// caps: the cap check and the claim are both scoped to categories that still
// have budget, so a step either sends within budget or reports rate_limited.
type Deliverer struct {
	repo      repository.QueueRepository
	tracker   *rate.Tracker
	composer  *render.Composer
	mailer    mailer.Mailer
	attendees recipient.Store
	caps      config.Caps
	ceiling   int
	timeout   time.Duration
	hooks     Hooks
	logger    *zap.Logger

	now func() time.Time
}

func NewDeliverer(
	repo repository.QueueRepository,
	tracker *rate.Tracker,
	composer *render.Composer,
	m mailer.Mailer,
	attendees recipient.Store,
	cfg *config.Config,
	hooks Hooks,
	logger *zap.Logger,
) *Deliverer {
	return &Deliverer{
		repo:      repo,
		tracker:   tracker,
		composer:  composer,
		mailer:    m,
		attendees: attendees,
		caps:      cfg.Caps,
		ceiling:   cfg.RetryCeiling,
		timeout:   cfg.SendTimeout,
		hooks:     hooks,
		logger:    logger,
		now:       time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (d *Deliverer) WithNow(now func() time.Time) *Deliverer {
	d.now = now
	return d
}

// ProcessNext claims and delivers at most one item. Items whose ids appear in
// exclude are skipped, which lets a drain pass defer retried items to a later
// pass instead of hammering them in a loop.
func (d *Deliverer) ProcessNext(ctx context.Context, exclude ...int64) domain.Outcome {
	counts, err := d.tracker.CountSentToday(ctx)
	if err != nil {
		d.logger.Error("counting today's sends failed", zap.Error(err))
		return domain.Outcome{Status: domain.OutcomeError, Error: err.Error()}
	}
	if counts.Total >= d.caps.Total {
		return domain.Outcome{Status: domain.OutcomeRateLimited}
	}

	var open []domain.Category
	for _, cat := range domain.Categories() {
		if counts.ByCategory(cat) < d.caps.Category(string(cat)) {
			open = append(open, cat)
		}
	}
	if len(open) == 0 {
		return domain.Outcome{Status: domain.OutcomeRateLimited}
	}

	item, err := d.repo.ClaimNext(ctx, d.tracker.Today(), d.ceiling, open, exclude)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Outcome{Status: domain.OutcomeIdle}
		}
		d.logger.Error("claiming next item failed", zap.Error(err))
		return domain.Outcome{Status: domain.OutcomeError, Error: err.Error()}
	}

	if sendErr := d.send(ctx, item); sendErr != nil {
		return d.resolveFailure(ctx, item, sendErr)
	}

	return d.resolveSent(ctx, item)
}

func (d *Deliverer) send(ctx context.Context, item *domain.QueueItem) error {
	msg, err := d.composer.Compose(ctx, item)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	start := d.now()
	if err := d.mailer.Send(sendCtx, msg); err != nil {
		return err
	}
	d.hooks.sent(item.Category, d.now().Sub(start))
	return nil
}

func (d *Deliverer) resolveSent(ctx context.Context, item *domain.QueueItem) domain.Outcome {
	now := d.now()
	if err := d.repo.MarkSent(ctx, item.ID, now); err != nil {
		d.logger.Error("marking item sent failed",
			zap.Int64("item_id", item.ID), zap.Error(err))
		return domain.Outcome{Status: domain.OutcomeError, ItemID: item.ID, Error: err.Error()}
	}

	// Side effects on the attendee record are best effort: the email is out,
	// so a bookkeeping failure must not fail the delivery.
	d.recordSideEffects(ctx, item, now)

	d.logger.Info("email sent",
		zap.Int64("item_id", item.ID),
		zap.String("category", string(item.Category)),
		zap.String("email", item.Email))

	return domain.Outcome{
		Status:   domain.OutcomeSent,
		ItemID:   item.ID,
		Category: item.Category,
		Email:    item.Email,
		Attempt:  item.Attempt + 1,
	}
}

func (d *Deliverer) recordSideEffects(ctx context.Context, item *domain.QueueItem, at time.Time) {
	if item.AttendeeID == nil {
		return
	}
	switch item.Category {
	case domain.CategoryEvaluation:
		if err := d.attendees.MarkEvaluationSent(ctx, *item.AttendeeID); err != nil {
			d.logger.Warn("marking evaluation sent failed",
				zap.Int64("attendee_id", *item.AttendeeID), zap.Error(err))
		}
	case domain.CategoryCertificate:
		tpl := item.Payload.TemplateType
		if tpl == "" {
			tpl = domain.TemplateParticipation
		}
		if err := d.attendees.RecordCertificateSent(ctx, *item.AttendeeID, tpl, item.Email, at); err != nil {
			d.logger.Warn("recording certificate sent failed",
				zap.Int64("attendee_id", *item.AttendeeID), zap.Error(err))
		}
	}
}

func (d *Deliverer) resolveFailure(ctx context.Context, item *domain.QueueItem, sendErr error) domain.Outcome {
	attempt := item.Attempt + 1
	now := d.now()

	d.logger.Warn("delivery attempt failed",
		zap.Int64("item_id", item.ID),
		zap.String("category", string(item.Category)),
		zap.Int("attempt", attempt),
		zap.Error(sendErr))

	if attempt >= d.ceiling {
		if err := d.repo.MarkFailed(ctx, item.ID, attempt, now); err != nil {
			d.logger.Error("marking item failed errored",
				zap.Int64("item_id", item.ID), zap.Error(err))
			return domain.Outcome{Status: domain.OutcomeError, ItemID: item.ID, Error: err.Error()}
		}
		d.hooks.failed(item.Category)
		return domain.Outcome{
			Status:   domain.OutcomeFailed,
			ItemID:   item.ID,
			Category: item.Category,
			Email:    item.Email,
			Attempt:  attempt,
			Error:    sendErr.Error(),
		}
	}

	if err := d.repo.Requeue(ctx, item.ID, attempt, now); err != nil {
		d.logger.Error("requeueing item failed",
			zap.Int64("item_id", item.ID), zap.Error(err))
		return domain.Outcome{Status: domain.OutcomeError, ItemID: item.ID, Error: err.Error()}
	}
	d.hooks.retry(item.Category)
	return domain.Outcome{
		Status:   domain.OutcomeRetry,
		ItemID:   item.ID,
		Category: item.Category,
		Email:    item.Email,
		Attempt:  attempt,
		Error:    sendErr.Error(),
	}
}
