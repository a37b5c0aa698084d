// Package scheduler decides how many newly requested sends may go out today
// and assigns deferred items to future calendar days.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/josephbaria24/petros-event-management-system/internal/config"
	"github.com/josephbaria24/petros-event-management-system/internal/domain"
	"github.com/josephbaria24/petros-event-management-system/internal/rate"
	"github.com/josephbaria24/petros-event-management-system/internal/repository"
)

// Admission is the single entry point for putting emails into the queue.
// Capacity is evaluated against the category cap and the shared total cap
// simultaneously: the categories carve their budgets out of one provider
// limit, so a category with room under its own cap can still be blocked by
// the total.
type Admission struct {
	repo    repository.QueueRepository
	tracker *rate.Tracker
	caps    config.Caps
	logger  *zap.Logger
}

func NewAdmission(
	repo repository.QueueRepository,
	tracker *rate.Tracker,
	caps config.Caps,
	logger *zap.Logger,
) *Admission {
	return &Admission{repo: repo, tracker: tracker, caps: caps, logger: logger}
}

// Admit validates and persists a batch of send requests, all of one category.
//
// The first items, up to today's remaining budget, are scheduled for today
// (the caller drains them synchronously right after). The rest spill across
// consecutive future days: today's leftover category budget first, then one
// full category cap per following day. Priority records the index within the
// batch so same-day items keep their relative order.
//
// Persistence is all-or-nothing; a store failure fails the whole call and the
// caller may retry the entire batch.
func (a *Admission) Admit(
	ctx context.Context,
	category domain.Category,
	requests []domain.EnqueueRequest,
) (*domain.AdmitResult, error) {
	if len(requests) == 0 {
		return &domain.AdmitResult{ScheduledDates: []string{}}, nil
	}
	if len(requests) > 1000 {
		return nil, domain.ErrBatchTooLarge
	}
	for i := range requests {
		if err := requests[i].Validate(category); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}

	counts, err := a.tracker.CountSentToday(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sent today: %w", err)
	}

	categoryCap := a.caps.Category(string(category))
	availableToday := min(
		categoryCap-counts.ByCategory(category),
		a.caps.Total-counts.Total,
	)
	if availableToday < 0 {
		availableToday = 0
	}

	immediate := min(availableToday, len(requests))
	today := a.tracker.Today()
	now := time.Now().UTC()

	// Today's leftover category room for deferred items, after what admission
	// itself just allocated.
	dayRemaining := categoryCap - counts.ByCategory(category) - immediate
	if dayRemaining < 0 {
		dayRemaining = 0
	}

	items := make([]*domain.QueueItem, len(requests))
	day := today
	dates := make(map[string]struct{})

	for i, req := range requests {
		item := &domain.QueueItem{
			AttendeeID: req.AttendeeID,
			Email:      req.Email,
			Category:   category,
			Payload:    req.Payload,
			Status:     domain.StatusPending,
			Priority:   i,
			CreatedAt:  now,
		}

		if i < immediate {
			item.ScheduledDate = today
		} else {
			for dayRemaining == 0 {
				day = day.AddDate(0, 0, 1)
				dayRemaining = categoryCap
			}
			item.ScheduledDate = day
			dayRemaining--
			dates[day.Format(domain.DateFormat)] = struct{}{}
		}
		items[i] = item
	}

	if err := a.repo.Insert(ctx, items); err != nil {
		return nil, fmt.Errorf("persist admitted batch: %w", err)
	}

	scheduledDates := make([]string, 0, len(dates))
	for d := range dates {
		scheduledDates = append(scheduledDates, d)
	}
	sort.Strings(scheduledDates)

	result := &domain.AdmitResult{
		Immediate:      immediate,
		Queued:         len(requests) - immediate,
		ScheduledDates: scheduledDates,
	}

	a.logger.Info("batch admitted",
		zap.String("category", string(category)),
		zap.Int("immediate", result.Immediate),
		zap.Int("queued", result.Queued),
		zap.Strings("scheduled_dates", result.ScheduledDates),
	)
	return result, nil
}

// Capacity reports whether count more emails of the category fit in today's
// remaining budget, with an operator-facing message either way.
func (a *Admission) Capacity(ctx context.Context, category domain.Category, count int) (*domain.Capacity, error) {
	if !category.IsValid() {
		return nil, domain.ErrInvalidCategory
	}

	counts, err := a.tracker.CountSentToday(ctx)
	if err != nil {
		return nil, fmt.Errorf("count sent today: %w", err)
	}

	available := min(
		a.caps.Category(string(category))-counts.ByCategory(category),
		a.caps.Total-counts.Total,
	)
	if available < 0 {
		available = 0
	}

	c := &domain.Capacity{CanSend: available >= count, Available: available}
	if c.CanSend {
		c.Message = fmt.Sprintf("Can send all %d emails. %d slots remaining today.",
			count, available-count)
	} else {
		c.Message = fmt.Sprintf(
			"Rate limit reached. Can only send %d more %s emails today (%d/%d total used). Remaining %d will be queued for later days.",
			available, category, counts.Total, a.caps.Total, count-available)
	}
	return c, nil
}
